package backend

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Priority is the urgency bucket of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Weight orders priorities: high=3, medium=2, low=1, anything else 0.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// ParsePriority normalizes user input ("H", "High", "urgent") into a Priority.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h", "high", "urgent":
		return PriorityHigh, nil
	case "m", "medium", "normal", "":
		return PriorityMedium, nil
	case "l", "low":
		return PriorityLow, nil
	}
	return "", fmt.Errorf("invalid priority %q: expected low, medium or high", s)
}

// SubNoteKind is the rendering style of a sub-note.
type SubNoteKind string

const (
	SubNoteText      SubNoteKind = "text"
	SubNoteChecklist SubNoteKind = "checklist"
	SubNoteNumbered  SubNoteKind = "numbered"
)

// SubNote is an ordered child entry of a task with its own completion state.
type SubNote struct {
	ID        string      `json:"id"`
	Content   string      `json:"content" validate:"required"`
	Completed bool        `json:"completed"`
	Kind      SubNoteKind `json:"type" validate:"omitempty,oneof=text checklist numbered"`
	Order     int         `json:"order" validate:"gte=0"`
}

// AttachmentKind classifies an attachment reference.
type AttachmentKind string

const (
	AttachmentImage    AttachmentKind = "image"
	AttachmentDocument AttachmentKind = "document"
	AttachmentLink     AttachmentKind = "link"
)

// Attachment is an opaque reference carried with a task. It is stored and
// returned but never interpreted.
type Attachment struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	URL  string         `json:"url"`
	Kind AttachmentKind `json:"type"`
	Size int64          `json:"size,omitempty"`
}

// Task is the uniform representation returned by every store.
type Task struct {
	ID          string       `json:"id" yaml:"id"`
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Completed   bool         `json:"completed" yaml:"completed"`
	Priority    Priority     `json:"priority" yaml:"priority"`
	Deadline    *time.Time   `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Tags        []string     `json:"tags,omitempty" yaml:"tags,omitempty"`
	Category    string       `json:"category,omitempty" yaml:"category,omitempty"`
	Color       string       `json:"color,omitempty" yaml:"color,omitempty"`
	FolderID    string       `json:"folderId,omitempty" yaml:"folder_id,omitempty"`
	SubNotes    []SubNote    `json:"subNotes,omitempty" yaml:"sub_notes,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty" yaml:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"createdAt" yaml:"created_at"`
	UpdatedAt   time.Time    `json:"updatedAt" yaml:"updated_at"`
	UserID      string       `json:"userId,omitempty" yaml:"user_id,omitempty"`
}

// IsOverdue reports whether the task is pending with a deadline strictly before now.
func (t Task) IsOverdue(now time.Time) bool {
	return !t.Completed && t.Deadline != nil && t.Deadline.Before(now)
}

// HasTag reports whether the task carries tag (case-insensitive).
func (t Task) HasTag(tag string) bool {
	for _, tg := range t.Tags {
		if strings.EqualFold(tg, tag) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can never mutate a store's record.
func (t Task) Clone() Task {
	c := t
	if t.Deadline != nil {
		d := *t.Deadline
		c.Deadline = &d
	}
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	if t.SubNotes != nil {
		c.SubNotes = append([]SubNote(nil), t.SubNotes...)
	}
	if t.Attachments != nil {
		c.Attachments = append([]Attachment(nil), t.Attachments...)
	}
	return c
}

// TaskDraft holds the caller-supplied fields of a task about to be created.
// Identity, timestamps and ownership are assigned by the repository.
type TaskDraft struct {
	Title       string       `json:"title" validate:"required"`
	Description string       `json:"description,omitempty"`
	Completed   bool         `json:"completed"`
	Priority    Priority     `json:"priority" validate:"omitempty,oneof=low medium high"`
	Deadline    *time.Time   `json:"deadline,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Category    string       `json:"category,omitempty"`
	Color       string       `json:"color,omitempty"`
	FolderID    string       `json:"folderId,omitempty"`
	SubNotes    []SubNote    `json:"subNotes,omitempty" validate:"dive"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

var validate = validator.New()

// Validate checks the draft. Whitespace-only titles are rejected.
func (d TaskDraft) Validate() error {
	d.Title = strings.TrimSpace(d.Title)
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}
	return nil
}

// Materialize builds the full task for the draft. Missing priority defaults to medium.
func (d TaskDraft) Materialize(id string, now time.Time) Task {
	t := Task{
		ID:          id,
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		Completed:   d.Completed,
		Priority:    d.Priority,
		Deadline:    d.Deadline,
		Tags:        d.Tags,
		Category:    d.Category,
		Color:       d.Color,
		FolderID:    d.FolderID,
		SubNotes:    d.SubNotes,
		Attachments: d.Attachments,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	return t.Clone()
}

// TaskPatch is a partial update. Nil fields are left unchanged. There is no
// way to express a change of ID, CreatedAt, UpdatedAt or UserID.
type TaskPatch struct {
	Title         *string       `json:"title,omitempty"`
	Description   *string       `json:"description,omitempty"`
	Completed     *bool         `json:"completed,omitempty"`
	Priority      *Priority     `json:"priority,omitempty"`
	Deadline      *time.Time    `json:"deadline,omitempty"`
	ClearDeadline bool          `json:"clearDeadline,omitempty"`
	Tags          *[]string     `json:"tags,omitempty"`
	Category      *string       `json:"category,omitempty"`
	Color         *string       `json:"color,omitempty"`
	FolderID      *string       `json:"folderId,omitempty"`
	SubNotes      *[]SubNote    `json:"subNotes,omitempty"`
	Attachments   *[]Attachment `json:"attachments,omitempty"`
}

// Validate rejects patches that would break task invariants.
func (p TaskPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("invalid patch: title cannot be empty")
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("invalid patch: unknown priority %q", *p.Priority)
	}
	if p.SubNotes != nil {
		for i, n := range *p.SubNotes {
			if err := validate.Struct(n); err != nil {
				return fmt.Errorf("invalid patch: sub-note %d: %w", i, err)
			}
		}
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil &&
		p.Priority == nil && p.Deadline == nil && !p.ClearDeadline && p.Tags == nil &&
		p.Category == nil && p.Color == nil && p.FolderID == nil &&
		p.SubNotes == nil && p.Attachments == nil
}

// Apply merges the patch onto t and returns the result. t is not modified.
func (p TaskPatch) Apply(t Task) Task {
	out := t.Clone()
	if p.Title != nil {
		out.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Completed != nil {
		out.Completed = *p.Completed
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.ClearDeadline {
		out.Deadline = nil
	} else if p.Deadline != nil {
		d := *p.Deadline
		out.Deadline = &d
	}
	if p.Tags != nil {
		out.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Color != nil {
		out.Color = *p.Color
	}
	if p.FolderID != nil {
		out.FolderID = *p.FolderID
	}
	if p.SubNotes != nil {
		out.SubNotes = append([]SubNote(nil), (*p.SubNotes)...)
	}
	if p.Attachments != nil {
		out.Attachments = append([]Attachment(nil), (*p.Attachments)...)
	}
	return out
}
