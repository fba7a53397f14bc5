package remote

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"aitasks/backend"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/bytedance/sonic"
)

// fakeTable is an in-memory tableAPI. It understands only the partition filter.
type fakeTable struct {
	mu    sync.Mutex
	rows  map[string][]byte // pk + "/" + rk
	err   error
	calls []string
}

func newFakeTable() *fakeTable {
	return &fakeTable{rows: make(map[string][]byte)}
}

func notFound() error {
	return &azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: "ResourceNotFound"}
}

func (f *fakeTable) keyOf(payload []byte) string {
	var e taskEntity
	_ = sonic.Unmarshal(payload, &e)
	return e.PartitionKey + "/" + e.RowKey
}

func (f *fakeTable) listEntities(ctx context.Context, filter string) ([][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list:"+filter)
	if f.err != nil {
		return nil, f.err
	}
	var rows [][]byte
	for _, row := range f.rows {
		var e taskEntity
		_ = sonic.Unmarshal(row, &e)
		if PartitionFilter(e.PartitionKey) == filter {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (f *fakeTable) getEntity(ctx context.Context, pk, rk string) ([]byte, azcore.ETag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, "", f.err
	}
	row, ok := f.rows[pk+"/"+rk]
	if !ok {
		return nil, "", notFound()
	}
	return row, azcore.ETag("W/\"1\""), nil
}

func (f *fakeTable) addEntity(ctx context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows[f.keyOf(payload)] = payload
	return nil
}

func (f *fakeTable) replaceEntity(ctx context.Context, payload []byte, etag azcore.ETag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	key := f.keyOf(payload)
	if _, ok := f.rows[key]; !ok {
		return notFound()
	}
	f.rows[key] = payload
	return nil
}

func (f *fakeTable) deleteEntity(ctx context.Context, pk, rk string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.rows[pk+"/"+rk]; !ok {
		return notFound()
	}
	delete(f.rows, pk+"/"+rk)
	return nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	users []string
}

func (p *recordingPublisher) Publish(ctx context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, userID)
	return nil
}

func TestPartitionFilter(t *testing.T) {
	tests := []struct {
		userID string
		want   string
	}{
		{"u1", "PartitionKey eq 'u1'"},
		{"o'brien", "PartitionKey eq 'o''brien'"},
	}
	for _, tt := range tests {
		if got := PartitionFilter(tt.userID); got != tt.want {
			t.Errorf("PartitionFilter(%q) = %q, want %q", tt.userID, got, tt.want)
		}
	}
}

func TestUnavailableStore(t *testing.T) {
	s := New(context.Background(), Config{})
	if s.Available() {
		t.Fatal("store without connection string should be unavailable")
	}

	_, err := s.List(context.Background(), "u1")
	if !errors.Is(err, backend.ErrUnavailable) {
		t.Errorf("List() error = %v, want ErrUnavailable", err)
	}
	if _, err := s.Create(context.Background(), "u1", backend.Task{Title: "x"}); !errors.Is(err, backend.ErrUnavailable) {
		t.Errorf("Create() error = %v, want ErrUnavailable", err)
	}
}

func TestMalformedConnectionStringIsUnavailable(t *testing.T) {
	s := New(context.Background(), Config{ConnectionString: "not-a-connection-string"})
	if s.Available() {
		t.Error("malformed connection string should leave the store uninitialized")
	}
}

func TestCreateAndList(t *testing.T) {
	table := newFakeTable()
	pub := &recordingPublisher{}
	s := newStore(table, WithPublisher(pub))
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	deadline := base.Add(48 * time.Hour)

	older, err := s.Create(ctx, "u1", backend.Task{
		Title:     "older",
		Priority:  backend.PriorityLow,
		Tags:      []string{"a", "b"},
		Deadline:  &deadline,
		SubNotes:  []backend.SubNote{{ID: "n1", Content: "step", Order: 0}},
		CreatedAt: base,
		UpdatedAt: base,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if older.ID == "" || older.UserID != "u1" {
		t.Errorf("Create() should assign id and owner, got %+v", older)
	}

	if _, err := s.Create(ctx, "u1", backend.Task{Title: "newer", CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, "u2", backend.Task{Title: "someone else"}); err != nil {
		t.Fatal(err)
	}

	tasks, err := s.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks in partition, got %d", len(tasks))
	}
	if tasks[0].Title != "newer" {
		t.Errorf("expected newest first, got %q", tasks[0].Title)
	}

	got := tasks[1]
	if !got.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base)
	}
	if got.Deadline == nil || !got.Deadline.Equal(deadline) {
		t.Errorf("Deadline = %v", got.Deadline)
	}
	if strings.Join(got.Tags, ",") != "a,b" {
		t.Errorf("Tags = %v", got.Tags)
	}
	if len(got.SubNotes) != 1 || got.SubNotes[0].Content != "step" {
		t.Errorf("SubNotes = %+v", got.SubNotes)
	}

	if len(pub.users) != 3 || pub.users[0] != "u1" || pub.users[2] != "u2" {
		t.Errorf("published = %v", pub.users)
	}
}

func TestUpdate(t *testing.T) {
	table := newFakeTable()
	s := newStore(table)
	ctx := context.Background()

	deadline := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	created, _ := s.Create(ctx, "u1", backend.Task{Title: "draft", Deadline: &deadline})

	updated, err := s.Update(ctx, "u1", created.ID, func(t backend.Task) backend.Task {
		t.Title = "final"
		t.Deadline = nil
		t.UserID = "intruder"
		return t
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.UserID != "u1" || updated.ID != created.ID {
		t.Errorf("identity fields changed: %+v", updated)
	}

	tasks, _ := s.List(ctx, "u1")
	if tasks[0].Title != "final" {
		t.Errorf("Title = %q", tasks[0].Title)
	}
	if tasks[0].Deadline != nil {
		t.Error("replace should remove the cleared deadline")
	}
}

func TestNotFoundMapping(t *testing.T) {
	s := newStore(newFakeTable())
	ctx := context.Background()

	_, err := s.Update(ctx, "u1", "missing", func(t backend.Task) backend.Task { return t })
	if !backend.IsNotFound(err) {
		t.Errorf("Update() error = %v, want not found", err)
	}
	if err := s.Delete(ctx, "u1", "missing"); !backend.IsNotFound(err) {
		t.Errorf("Delete() error = %v, want not found", err)
	}
}

func TestTransportErrorIsNotNotFound(t *testing.T) {
	table := newFakeTable()
	table.err = errors.New("connection reset")
	s := newStore(table)

	err := s.Delete(context.Background(), "u1", "t1")
	if err == nil || backend.IsNotFound(err) {
		t.Errorf("Delete() error = %v, want a transport failure", err)
	}
	var se *backend.StoreError
	if !errors.As(err, &se) || se.Store != "remote" || se.Op != "Delete" {
		t.Errorf("expected remote StoreError, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	pub := &recordingPublisher{}
	s := newStore(newFakeTable(), WithPublisher(pub))
	ctx := context.Background()

	task, _ := s.Create(ctx, "u1", backend.Task{Title: "x"})
	if err := s.Delete(ctx, "u1", task.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "u1", task.ID); !backend.IsNotFound(err) {
		t.Errorf("second Delete() error = %v", err)
	}
	if len(pub.users) != 2 {
		t.Errorf("expected create and delete to publish, got %v", pub.users)
	}
}

func TestEmptyCallerRejected(t *testing.T) {
	s := newStore(newFakeTable())
	if _, err := s.List(context.Background(), ""); err == nil {
		t.Error("List() without caller id should fail")
	}
}
