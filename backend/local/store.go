package local

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"aitasks/backend"
	"aitasks/internal/utils"

	"github.com/bytedance/sonic"
)

// timestampLayout is ISO-8601 with millisecond precision, always written in UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Store is the on-device task store. The whole collection lives in one JSON
// document under TasksKey; every write rewrites it. userID is ignored.
type Store struct {
	db  *Database
	mu  sync.Mutex
	now func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the clock used for generated ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens the local store at path (empty selects the default location).
func Open(path string, opts ...Option) (*Store, error) {
	db, err := InitDatabase(path)
	if err != nil {
		return nil, err
	}
	return New(db, opts...), nil
}

// New wraps an initialized database.
func New(db *Database, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the database for diagnostics.
func (s *Store) DB() *Database {
	return s.db
}

func (s *Store) Name() string { return string(backend.RouteLocal) }

// List returns the stored collection in stored order. New tasks are
// prepended, so the order is newest first.
func (s *Store) List(ctx context.Context, userID string) ([]backend.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return nil, backend.NewStoreError(s.Name(), "List", err)
	}
	return tasks, nil
}

func (s *Store) Create(ctx context.Context, userID string, task backend.Task) (backend.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return backend.Task{}, backend.NewStoreError(s.Name(), "Create", err)
	}

	task = task.Clone()
	task.UserID = ""
	if task.ID == "" {
		task.ID = s.newID()
	}

	tasks = append([]backend.Task{task}, tasks...)
	if err := s.save(tasks); err != nil {
		return backend.Task{}, backend.NewStoreError(s.Name(), "Create", err).WithTaskID(task.ID)
	}
	return task, nil
}

func (s *Store) Update(ctx context.Context, userID, id string, mutate func(backend.Task) backend.Task) (backend.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return backend.Task{}, backend.NewStoreError(s.Name(), "Update", err).WithTaskID(id)
	}

	for i, t := range tasks {
		if t.ID != id {
			continue
		}
		updated := mutate(t.Clone())
		updated.ID = t.ID
		updated.UserID = ""
		tasks[i] = updated
		if err := s.save(tasks); err != nil {
			return backend.Task{}, backend.NewStoreError(s.Name(), "Update", err).WithTaskID(id)
		}
		return updated.Clone(), nil
	}

	return backend.Task{}, backend.NewStoreError(s.Name(), "Update", backend.ErrNotFound).WithTaskID(id)
}

func (s *Store) Delete(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return backend.NewStoreError(s.Name(), "Delete", err).WithTaskID(id)
	}

	kept := tasks[:0]
	for _, t := range tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(tasks) {
		return backend.NewStoreError(s.Name(), "Delete", backend.ErrNotFound).WithTaskID(id)
	}

	if err := s.save(kept); err != nil {
		return backend.NewStoreError(s.Name(), "Delete", err).WithTaskID(id)
	}
	return nil
}

// load reads the collection. A missing key is an empty collection; an
// unreadable document is logged and treated as empty.
func (s *Store) load() ([]backend.Task, error) {
	raw, ok, err := s.db.Get(TasksKey)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []backend.Task{}, nil
	}

	var records []record
	if err := sonic.UnmarshalString(raw, &records); err != nil {
		utils.Warnf("local store: discarding unreadable task document: %v", err)
		return []backend.Task{}, nil
	}

	tasks := make([]backend.Task, 0, len(records))
	for _, r := range records {
		tasks = append(tasks, r.toTask())
	}
	return tasks, nil
}

func (s *Store) save(tasks []backend.Task) error {
	records := make([]record, 0, len(tasks))
	for _, t := range tasks {
		records = append(records, fromTask(t))
	}
	raw, err := sonic.MarshalString(records)
	if err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}
	return s.db.Put(TasksKey, raw)
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newID returns task-<unix-ms>-<9 base36 chars>.
func (s *Store) newID() string {
	suffix := make([]byte, 9)
	base := big.NewInt(int64(len(idAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			suffix[i] = idAlphabet[i]
			continue
		}
		suffix[i] = idAlphabet[n.Int64()]
	}
	return "task-" + strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + string(suffix)
}

// record is the stored shape of a task.
type record struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Completed   bool                 `json:"completed"`
	Priority    string               `json:"priority"`
	Deadline    string               `json:"deadline,omitempty"`
	Tags        []string             `json:"tags"`
	Category    string               `json:"category,omitempty"`
	Color       string               `json:"color,omitempty"`
	FolderID    string               `json:"folderId,omitempty"`
	SubNotes    []backend.SubNote    `json:"subNotes,omitempty"`
	Attachments []backend.Attachment `json:"attachments,omitempty"`
	CreatedAt   string               `json:"createdAt"`
	UpdatedAt   string               `json:"updatedAt"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		utils.Debugf("local store: unparseable timestamp %q: %v", s, err)
		return time.Time{}
	}
	return t.Local()
}

func fromTask(t backend.Task) record {
	r := record{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Priority:    string(t.Priority),
		Tags:        t.Tags,
		Category:    t.Category,
		Color:       t.Color,
		FolderID:    t.FolderID,
		SubNotes:    t.SubNotes,
		Attachments: t.Attachments,
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if t.Deadline != nil {
		r.Deadline = formatTime(*t.Deadline)
	}
	return r
}

func (r record) toTask() backend.Task {
	t := backend.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
		Priority:    backend.Priority(r.Priority),
		Tags:        r.Tags,
		Category:    r.Category,
		Color:       r.Color,
		FolderID:    r.FolderID,
		SubNotes:    r.SubNotes,
		Attachments: r.Attachments,
		CreatedAt:   parseTime(r.CreatedAt),
		UpdatedAt:   parseTime(r.UpdatedAt),
	}
	if r.Deadline != "" {
		d := parseTime(r.Deadline)
		if !d.IsZero() {
			t.Deadline = &d
		}
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t
}
