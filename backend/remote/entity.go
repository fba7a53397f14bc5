package remote

import (
	"fmt"
	"time"

	"aitasks/backend"

	"github.com/bytedance/sonic"
)

const (
	EdmDateTime = "Edm.DateTime"
)

// taskEntity is the table row of a task. Structured fields travel as JSON strings.
type taskEntity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
	UserID       string `json:"UserId"`
	Title        string `json:"Title"`
	Description  string `json:"Description,omitempty"`
	Completed    bool   `json:"Completed"`
	Priority     string `json:"Priority"`

	Deadline     *string `json:"Deadline,omitempty"`
	DeadlineType *string `json:"Deadline@odata.type,omitempty"`

	Tags        string `json:"Tags,omitempty"`
	Category    string `json:"Category,omitempty"`
	Color       string `json:"Color,omitempty"`
	FolderID    string `json:"FolderId,omitempty"`
	SubNotes    string `json:"SubNotes,omitempty"`
	Attachments string `json:"Attachments,omitempty"`

	CreatedAt     string `json:"CreatedAt"`
	CreatedAtType string `json:"CreatedAt@odata.type"`
	UpdatedAt     string `json:"UpdatedAt"`
	UpdatedAtType string `json:"UpdatedAt@odata.type"`
}

func formatDateTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseDateTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t.Local(), nil
}

func encodeJSONField(v any, empty bool) (string, error) {
	if empty {
		return "", nil
	}
	s, err := sonic.MarshalString(v)
	if err != nil {
		return "", err
	}
	return s, nil
}

// toEntity converts a task into its row in the userID partition.
func toEntity(userID string, t backend.Task) (taskEntity, error) {
	ent := taskEntity{
		PartitionKey:  userID,
		RowKey:        t.ID,
		UserID:        userID,
		Title:         t.Title,
		Description:   t.Description,
		Completed:     t.Completed,
		Priority:      string(t.Priority),
		Category:      t.Category,
		Color:         t.Color,
		FolderID:      t.FolderID,
		CreatedAt:     formatDateTime(t.CreatedAt),
		CreatedAtType: EdmDateTime,
		UpdatedAt:     formatDateTime(t.UpdatedAt),
		UpdatedAtType: EdmDateTime,
	}
	if t.Deadline != nil {
		d := formatDateTime(*t.Deadline)
		typ := EdmDateTime
		ent.Deadline = &d
		ent.DeadlineType = &typ
	}

	var err error
	if ent.Tags, err = encodeJSONField(t.Tags, len(t.Tags) == 0); err != nil {
		return ent, fmt.Errorf("encode tags: %w", err)
	}
	if ent.SubNotes, err = encodeJSONField(t.SubNotes, len(t.SubNotes) == 0); err != nil {
		return ent, fmt.Errorf("encode sub-notes: %w", err)
	}
	if ent.Attachments, err = encodeJSONField(t.Attachments, len(t.Attachments) == 0); err != nil {
		return ent, fmt.Errorf("encode attachments: %w", err)
	}
	return ent, nil
}

// toTask converts a row back into a task.
func (e taskEntity) toTask() (backend.Task, error) {
	t := backend.Task{
		ID:          e.RowKey,
		Title:       e.Title,
		Description: e.Description,
		Completed:   e.Completed,
		Priority:    backend.Priority(e.Priority),
		Category:    e.Category,
		Color:       e.Color,
		FolderID:    e.FolderID,
		UserID:      e.UserID,
		Tags:        []string{},
	}
	if t.UserID == "" {
		t.UserID = e.PartitionKey
	}

	var err error
	if t.CreatedAt, err = parseDateTime(e.CreatedAt); err != nil {
		return t, err
	}
	if t.UpdatedAt, err = parseDateTime(e.UpdatedAt); err != nil {
		return t, err
	}
	if e.Deadline != nil && *e.Deadline != "" {
		d, err := parseDateTime(*e.Deadline)
		if err != nil {
			return t, err
		}
		t.Deadline = &d
	}

	if e.Tags != "" {
		if err := sonic.UnmarshalString(e.Tags, &t.Tags); err != nil {
			return t, fmt.Errorf("decode tags: %w", err)
		}
	}
	if e.SubNotes != "" {
		if err := sonic.UnmarshalString(e.SubNotes, &t.SubNotes); err != nil {
			return t, fmt.Errorf("decode sub-notes: %w", err)
		}
	}
	if e.Attachments != "" {
		if err := sonic.UnmarshalString(e.Attachments, &t.Attachments); err != nil {
			return t, fmt.Errorf("decode attachments: %w", err)
		}
	}
	return t, nil
}

func marshalEntity(e taskEntity) ([]byte, error) {
	return sonic.Marshal(e)
}

func unmarshalEntity(payload []byte) (taskEntity, error) {
	var e taskEntity
	if err := sonic.Unmarshal(payload, &e); err != nil {
		return e, fmt.Errorf("decode entity: %w", err)
	}
	return e, nil
}
