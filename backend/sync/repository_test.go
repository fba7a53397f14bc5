package sync

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"aitasks/backend"
	"aitasks/backend/local"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var errOffline = errors.New("network unreachable")

// steppingClock returns start, start+1s, start+2s, ...
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(time.Second)
		return t
	}
}

func newTestRepository(t *testing.T, remote backend.RemoteStore, opts ...Option) (*Repository, *local.Store) {
	t.Helper()
	store, err := local.Open(filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	opts = append([]Option{WithClock(steppingClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)))}, opts...)
	return NewRepository(store, remote, opts...), store
}

func TestAnonymousCallerUsesLocalStore(t *testing.T) {
	remote := backend.NewMockStore("remote")
	repo, _ := newTestRepository(t, remote)
	ctx := context.Background()

	res, err := repo.AddTask(ctx, "", backend.TaskDraft{Title: "Buy milk"})
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	if res.Store != backend.RouteLocal || res.Status != StatusOK {
		t.Errorf("expected local ok, got %s/%s", res.Store, res.Status)
	}
	if remote.CallCount("Create") != 0 {
		t.Error("remote store should not be touched without a caller id")
	}

	list := repo.GetTasks(ctx, "")
	if len(list.Value) != 1 || list.Value[0].ID != res.Value.ID {
		t.Errorf("GetTasks() = %+v", list.Value)
	}
}

func TestAddThenGetContainsExactlyOneRecord(t *testing.T) {
	for _, callerID := range []string{"", "u1"} {
		t.Run("caller="+callerID, func(t *testing.T) {
			repo, _ := newTestRepository(t, backend.NewMockStore("remote"))
			ctx := context.Background()

			before := repo.GetTasks(ctx, callerID).Value
			res, err := repo.AddTask(ctx, callerID, backend.TaskDraft{Title: "Write report"})
			if err != nil {
				t.Fatal(err)
			}
			after := repo.GetTasks(ctx, callerID).Value

			if len(after) != len(before)+1 {
				t.Fatalf("expected one more task, got %d -> %d", len(before), len(after))
			}
			matches := 0
			for _, task := range after {
				if task.Title == "Write report" && task.ID == res.Value.ID {
					matches++
				}
				for _, old := range before {
					if old.ID == res.Value.ID {
						t.Error("new id collides with an existing task")
					}
				}
			}
			if matches != 1 {
				t.Errorf("expected exactly one matching record, got %d", matches)
			}
		})
	}
}

func TestAddRejectsInvalidDraft(t *testing.T) {
	repo, store := newTestRepository(t, nil)

	_, err := repo.AddTask(context.Background(), "", backend.TaskDraft{Title: "   "})
	if err == nil {
		t.Fatal("expected error for blank title")
	}
	_, err = repo.AddTask(context.Background(), "", backend.TaskDraft{Title: "x", Priority: "urgent"})
	if err == nil {
		t.Fatal("expected error for unknown priority")
	}

	tasks, _ := store.List(context.Background(), "")
	if len(tasks) != 0 {
		t.Error("invalid drafts must not be stored")
	}
}

func TestAddDefaultsAndTimestamps(t *testing.T) {
	repo, _ := newTestRepository(t, nil)

	res, _ := repo.AddTask(context.Background(), "", backend.TaskDraft{Title: "x"})
	task := res.Value

	if task.Priority != backend.PriorityMedium {
		t.Errorf("Priority = %q, want medium", task.Priority)
	}
	if !task.CreatedAt.Equal(task.UpdatedAt) {
		t.Errorf("CreatedAt %v != UpdatedAt %v", task.CreatedAt, task.UpdatedAt)
	}
	if task.CreatedAt.Location() != time.Local {
		t.Error("timestamps should be returned in the local zone")
	}
	if task.Tags == nil || task.SubNotes == nil || task.Attachments == nil {
		t.Error("collections should be normalized to empty slices")
	}
}

func TestUpdateKeepsIdentityAndAdvancesUpdatedAt(t *testing.T) {
	for _, callerID := range []string{"", "u1"} {
		t.Run("caller="+callerID, func(t *testing.T) {
			repo, _ := newTestRepository(t, backend.NewMockStore("remote"))
			ctx := context.Background()

			added, _ := repo.AddTask(ctx, callerID, backend.TaskDraft{Title: "draft"})
			orig := added.Value

			done := true
			res, err := repo.UpdateTask(ctx, callerID, orig.ID, backend.TaskPatch{Completed: &done})
			if err != nil {
				t.Fatal(err)
			}
			if res.Status != StatusOK {
				t.Fatalf("status = %s", res.Status)
			}
			got := res.Value
			if got.ID != orig.ID || !got.CreatedAt.Equal(orig.CreatedAt) {
				t.Errorf("identity changed: %+v vs %+v", got, orig)
			}
			if !got.UpdatedAt.After(orig.UpdatedAt) {
				t.Errorf("UpdatedAt %v should advance past %v", got.UpdatedAt, orig.UpdatedAt)
			}
			if !got.Completed {
				t.Error("patch not applied")
			}
		})
	}
}

func TestUpdatedAtNeverMovesBackwards(t *testing.T) {
	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	remote := backend.NewMockStore("remote")
	remote.Seed("u1", backend.Task{ID: "t1", Title: "x", Priority: backend.PriorityLow, CreatedAt: future, UpdatedAt: future})
	repo, _ := newTestRepository(t, remote)

	title := "y"
	res, _ := repo.UpdateTask(context.Background(), "u1", "t1", backend.TaskPatch{Title: &title})
	if !res.Value.UpdatedAt.Equal(future) {
		t.Errorf("UpdatedAt = %v, want %v", res.Value.UpdatedAt, future)
	}
}

func TestUpdateMissingAndInvalid(t *testing.T) {
	repo, _ := newTestRepository(t, nil)
	ctx := context.Background()

	title := "x"
	res, err := repo.UpdateTask(ctx, "", "nope", backend.TaskPatch{Title: &title})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusNotFound {
		t.Errorf("status = %s, want not_found", res.Status)
	}

	blank := ""
	if _, err := repo.UpdateTask(ctx, "", "nope", backend.TaskPatch{Title: &blank}); err == nil {
		t.Error("expected error for empty title patch")
	}
}

func TestDeleteTwice(t *testing.T) {
	for _, callerID := range []string{"", "u1"} {
		t.Run("caller="+callerID, func(t *testing.T) {
			repo, _ := newTestRepository(t, backend.NewMockStore("remote"))
			ctx := context.Background()

			added, _ := repo.AddTask(ctx, callerID, backend.TaskDraft{Title: "x"})

			first := repo.DeleteTask(ctx, callerID, added.Value.ID)
			if !first.Value || first.Status != StatusOK {
				t.Errorf("first delete = %+v", first)
			}
			second := repo.DeleteTask(ctx, callerID, added.Value.ID)
			if second.Value || second.Status != StatusNotFound {
				t.Errorf("second delete = %+v", second)
			}
		})
	}
}

func TestRemoteFailureFallsBackForEveryOperation(t *testing.T) {
	remote := backend.NewMockStore("remote")
	remote.FailAll(errOffline)
	repo, store := newTestRepository(t, remote)
	ctx := context.Background()

	seeded, err := store.Create(ctx, "", backend.Task{Title: "offline task", Priority: backend.PriorityLow})
	if err != nil {
		t.Fatal(err)
	}

	get := repo.GetTasks(ctx, "u1")
	if get.Status != StatusFallback || get.Store != backend.RouteLocal || len(get.Value) != 1 {
		t.Errorf("GetTasks() = %+v", get)
	}
	if !errors.Is(get.Cause, errOffline) {
		t.Errorf("Cause = %v, want remote error", get.Cause)
	}

	add, err := repo.AddTask(ctx, "u1", backend.TaskDraft{Title: "while offline"})
	if err != nil {
		t.Fatal(err)
	}
	if add.Status != StatusFallback || add.Value.ID == "" {
		t.Errorf("AddTask() = %+v", add)
	}
	if remote.Count("u1") != 0 {
		t.Error("remote store should hold nothing")
	}

	title := "renamed"
	upd, _ := repo.UpdateTask(ctx, "u1", seeded.ID, backend.TaskPatch{Title: &title})
	if upd.Status != StatusFallback || upd.Value.Title != "renamed" {
		t.Errorf("UpdateTask() = %+v", upd)
	}

	del := repo.DeleteTask(ctx, "u1", seeded.ID)
	if del.Status != StatusFallback || !del.Value {
		t.Errorf("DeleteTask() = %+v", del)
	}

	for _, op := range []string{"List", "Create", "Update", "Delete"} {
		if remote.CallCount(op) != 1 {
			t.Errorf("remote %s called %d times, want 1", op, remote.CallCount(op))
		}
	}
}

func TestRemoteNotFoundDoesNotFallBack(t *testing.T) {
	remote := backend.NewMockStore("remote")
	repo, store := newTestRepository(t, remote)
	ctx := context.Background()

	seeded, _ := store.Create(ctx, "", backend.Task{Title: "local only"})

	res := repo.DeleteTask(ctx, "u1", seeded.ID)
	if res.Status != StatusNotFound || res.Store != backend.RouteRemote {
		t.Errorf("DeleteTask() = %+v", res)
	}
	tasks, _ := store.List(ctx, "")
	if len(tasks) != 1 {
		t.Error("local record must not be touched")
	}
}

func TestUnavailableRemoteRoutesLocal(t *testing.T) {
	remote := backend.NewMockStore("remote")
	remote.SetAvailable(false)
	repo, _ := newTestRepository(t, remote)

	res := repo.GetTasks(context.Background(), "u1")
	if res.Status != StatusOK || res.Store != backend.RouteLocal {
		t.Errorf("GetTasks() = %+v", res)
	}
	if remote.CallCount("List") != 0 {
		t.Error("uninitialized remote must not be called")
	}
	if repo.Route("u1") != backend.RouteLocal {
		t.Error("Route() should report local")
	}
}

func TestRemoteResultsCarryOwnerAndOrder(t *testing.T) {
	remote := backend.NewMockStore("remote")
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	remote.Seed("u1",
		backend.Task{ID: "a", Title: "old", UserID: "u1", CreatedAt: base, UpdatedAt: base},
		backend.Task{ID: "b", Title: "new", UserID: "u1", CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)},
	)
	repo, _ := newTestRepository(t, remote)

	res := repo.GetTasks(context.Background(), "u1")
	if len(res.Value) != 2 || res.Value[0].ID != "b" {
		t.Fatalf("unexpected order: %+v", res.Value)
	}
	if res.Value[0].UserID != "u1" {
		t.Error("remote records should keep their owner")
	}
}

func TestSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	remote := backend.NewMockStore("remote")
	remote.ListErr = errOffline
	repo, _ := newTestRepository(t, remote, WithTracer(provider.Tracer("test")))

	repo.GetTasks(context.Background(), "u1")

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "tasks.get" {
		t.Errorf("span name = %q", span.Name())
	}

	attrs := map[string]string{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	if attrs["tasks.route"] != "local" || attrs["tasks.status"] != "fallback" {
		t.Errorf("attributes = %v", attrs)
	}
	if len(span.Events()) == 0 {
		t.Error("fallback should record the remote error")
	}
}

func TestSubscribeDeliversInitialAndChanges(t *testing.T) {
	remote := backend.NewMockStore("remote")
	feed := backend.NewMockFeed()
	repo, _ := newTestRepository(t, remote, WithFeed(feed))
	ctx := context.Background()

	var mu sync.Mutex
	var deliveries [][]backend.Task
	dispose := repo.SubscribeToTasks(ctx, "u1", func(tasks []backend.Task) {
		mu.Lock()
		defer mu.Unlock()
		deliveries = append(deliveries, tasks)
	})

	repo.AddTask(ctx, "u1", backend.TaskDraft{Title: "first"})
	feed.Notify("u1")

	mu.Lock()
	if len(deliveries) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(deliveries))
	}
	if len(deliveries[0]) != 0 || len(deliveries[1]) != 1 {
		t.Errorf("unexpected deliveries: %+v", deliveries)
	}
	mu.Unlock()

	dispose()
	dispose()

	feed.Notify("u1")
	mu.Lock()
	defer mu.Unlock()
	if len(deliveries) != 2 {
		t.Errorf("delivery after dispose: %d", len(deliveries))
	}
}

func TestSubscribeIsNoopWithoutRemote(t *testing.T) {
	feed := backend.NewMockFeed()
	called := false
	onChange := func([]backend.Task) { called = true }

	repo, _ := newTestRepository(t, nil, WithFeed(feed))
	repo.SubscribeToTasks(context.Background(), "u1", onChange)()
	if repo.Live("u1") {
		t.Error("Live without remote store")
	}

	repo, _ = newTestRepository(t, backend.NewMockStore("remote"), WithFeed(feed))
	repo.SubscribeToTasks(context.Background(), "", onChange)()
	if repo.Live("") || !repo.Live("u1") {
		t.Errorf("Live(\"\") = %v, Live(u1) = %v", repo.Live(""), repo.Live("u1"))
	}

	repo, _ = newTestRepository(t, backend.NewMockStore("remote"))
	repo.SubscribeToTasks(context.Background(), "u1", onChange)()
	if repo.Live("u1") {
		t.Error("Live without change feed")
	}

	if called {
		t.Error("onChange must not be called without a remote subscription")
	}
}

func TestSubscribeFeedErrorIsNoop(t *testing.T) {
	feed := backend.NewMockFeed()
	feed.Err = errOffline
	repo, _ := newTestRepository(t, backend.NewMockStore("remote"), WithFeed(feed))

	called := false
	dispose := repo.SubscribeToTasks(context.Background(), "u1", func([]backend.Task) { called = true })
	dispose()
	if called {
		t.Error("onChange must not be called when the feed cannot subscribe")
	}
}

// gatedStore holds its first List call until gate is closed, after the
// data has already been read, and tracks how many Lists run at once.
type gatedStore struct {
	*backend.MockStore
	gate    chan struct{}
	started chan struct{}

	mu          sync.Mutex
	calls       int
	inFlight    int
	maxInFlight int
}

func (g *gatedStore) List(ctx context.Context, userID string) ([]backend.Task, error) {
	g.mu.Lock()
	g.calls++
	call := g.calls
	g.inFlight++
	if g.inFlight > g.maxInFlight {
		g.maxInFlight = g.inFlight
	}
	g.mu.Unlock()

	tasks, err := g.MockStore.List(ctx, userID)
	if call == 1 {
		close(g.started)
		<-g.gate
	}

	g.mu.Lock()
	g.inFlight--
	g.mu.Unlock()
	return tasks, err
}

func TestSubscribeDeliveriesDoNotOverlap(t *testing.T) {
	remote := &gatedStore{
		MockStore: backend.NewMockStore("remote"),
		gate:      make(chan struct{}),
		started:   make(chan struct{}),
	}
	feed := backend.NewMockFeed()
	repo, _ := newTestRepository(t, remote, WithFeed(feed))

	var mu sync.Mutex
	var deliveries [][]backend.Task
	onChange := func(tasks []backend.Task) {
		mu.Lock()
		defer mu.Unlock()
		deliveries = append(deliveries, tasks)
	}

	subscribed := make(chan Disposer, 1)
	go func() { subscribed <- repo.SubscribeToTasks(context.Background(), "u1", onChange) }()

	<-remote.started
	remote.Seed("u1", backend.Task{ID: "t1", Title: "new", CreatedAt: time.Now()})
	notified := make(chan struct{})
	go func() {
		feed.Notify("u1")
		close(notified)
	}()

	time.Sleep(50 * time.Millisecond)
	close(remote.gate)
	dispose := <-subscribed
	defer dispose()
	<-notified

	mu.Lock()
	defer mu.Unlock()
	if len(deliveries) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(deliveries))
	}
	if len(deliveries[0]) != 0 || len(deliveries[1]) != 1 {
		t.Errorf("stale list delivered last: %+v", deliveries)
	}
	remote.mu.Lock()
	defer remote.mu.Unlock()
	if remote.maxInFlight != 1 {
		t.Errorf("concurrent remote reads = %d, want 1", remote.maxInFlight)
	}
}
