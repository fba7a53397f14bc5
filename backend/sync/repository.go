package sync

import (
	"context"
	"sync"
	"time"

	"aitasks/backend"
	"aitasks/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "aitasks/backend/sync"

// Status describes how a repository call was served.
type Status string

const (
	StatusOK       Status = "ok"        // served by the selected store
	StatusFallback Status = "fallback"  // remote failed, served by the local store
	StatusNotFound Status = "not_found" // the target record does not exist
	StatusFailed   Status = "failed"    // no store could serve the call
)

// Result is the outcome of a repository call. Cause holds the remote error on
// fallback and the final error on failure.
type Result[T any] struct {
	Value  T
	Status Status
	Store  backend.Route
	Cause  error
}

// Degraded reports whether the call fell back to the local store.
func (r Result[T]) Degraded() bool {
	return r.Status == StatusFallback
}

// Succeeded reports whether Value is meaningful.
func (r Result[T]) Succeeded() bool {
	return r.Status == StatusOK || r.Status == StatusFallback
}

// Disposer stops a subscription. Calling it more than once is harmless.
type Disposer func()

// Repository is the single entry point for task persistence. Each call is
// routed to the remote store when a caller id is given and the remote store
// is initialized, and to the local store otherwise. A failed remote call is
// retried once against the local store.
type Repository struct {
	selector *backend.Selector
	feed     backend.ChangeFeed
	now      func() time.Time
	tracer   trace.Tracer
}

// Option configures a Repository
type Option func(*Repository)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithTracer overrides the tracer used for operation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Repository) { r.tracer = tracer }
}

// WithFeed enables SubscribeToTasks.
func WithFeed(feed backend.ChangeFeed) Option {
	return func(r *Repository) { r.feed = feed }
}

// NewRepository creates a repository. remote may be nil.
func NewRepository(local backend.Store, remote backend.RemoteStore, opts ...Option) *Repository {
	r := &Repository{
		selector: backend.NewSelector(local, remote),
		now:      time.Now,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route returns the store a call for callerID would be sent to right now.
func (r *Repository) Route(callerID string) backend.Route {
	route, _ := r.selector.Select(callerID)
	return route
}

// Live reports whether SubscribeToTasks would deliver updates for callerID:
// a caller id, an initialized remote store and a change feed are all needed.
func (r *Repository) Live(callerID string) bool {
	return callerID != "" && r.feed != nil && r.selector.RemoteAvailable()
}

// Describe returns routing diagnostics for callerID.
func (r *Repository) Describe(callerID string) backend.RouteInfo {
	return r.selector.Describe(callerID)
}

// GetTasks returns every task visible to callerID, newest first.
func (r *Repository) GetTasks(ctx context.Context, callerID string) Result[[]backend.Task] {
	res := execute(r, ctx, "get", callerID, func(ctx context.Context, store backend.Store, userID string) ([]backend.Task, error) {
		return store.List(ctx, userID)
	})
	if res.Value == nil {
		res.Value = []backend.Task{}
	}
	for i := range res.Value {
		res.Value[i] = normalize(res.Value[i], res.Store)
	}
	return res
}

// AddTask validates draft and persists it. The returned error is reserved
// for an invalid draft; store failures are reported through the Result.
func (r *Repository) AddTask(ctx context.Context, callerID string, draft backend.TaskDraft) (Result[backend.Task], error) {
	if err := draft.Validate(); err != nil {
		return Result[backend.Task]{Status: StatusFailed, Cause: err}, err
	}
	task := draft.Materialize("", r.timestamp())

	res := execute(r, ctx, "add", callerID, func(ctx context.Context, store backend.Store, userID string) (backend.Task, error) {
		return store.Create(ctx, userID, task)
	})
	if res.Succeeded() {
		res.Value = normalize(res.Value, res.Store)
	}
	return res, nil
}

// UpdateTask merges patch onto the task with id. UpdatedAt becomes the later
// of now and its previous value; id and CreatedAt never change.
func (r *Repository) UpdateTask(ctx context.Context, callerID, id string, patch backend.TaskPatch) (Result[backend.Task], error) {
	if err := patch.Validate(); err != nil {
		return Result[backend.Task]{Status: StatusFailed, Cause: err}, err
	}
	now := r.timestamp()

	mutate := func(current backend.Task) backend.Task {
		next := patch.Apply(current)
		next.ID = current.ID
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = now
		if current.UpdatedAt.After(now) {
			next.UpdatedAt = current.UpdatedAt
		}
		return next
	}

	res := execute(r, ctx, "update", callerID, func(ctx context.Context, store backend.Store, userID string) (backend.Task, error) {
		return store.Update(ctx, userID, id, mutate)
	})
	if res.Succeeded() {
		res.Value = normalize(res.Value, res.Store)
	}
	return res, nil
}

// DeleteTask removes the task with id. Value is false when nothing was removed.
func (r *Repository) DeleteTask(ctx context.Context, callerID, id string) Result[bool] {
	return execute(r, ctx, "delete", callerID, func(ctx context.Context, store backend.Store, userID string) (bool, error) {
		if err := store.Delete(ctx, userID, id); err != nil {
			return false, err
		}
		return true, nil
	})
}

// SubscribeToTasks delivers the full task list of callerID once, then again
// after every change reported by the feed. Without a caller id, an
// initialized remote store or a feed it does nothing and onChange is never
// called.
func (r *Repository) SubscribeToTasks(ctx context.Context, callerID string, onChange func([]backend.Task)) Disposer {
	if !r.Live(callerID) {
		return func() {}
	}
	remote := r.selector.Remote()
	ctx, cancel := context.WithCancel(ctx)

	// mu covers the fetch as well as the callback so deliveries never
	// overlap and an older list cannot overtake a newer one
	var mu sync.Mutex
	deliver := func() {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}

		tasks, err := remote.List(ctx, callerID)
		if err != nil {
			if ctx.Err() == nil {
				utils.Warnf("subscription: unable to refresh tasks for %s: %v", callerID, err)
			}
			return
		}
		for i := range tasks {
			tasks[i] = normalize(tasks[i], backend.RouteRemote)
		}
		if tasks == nil {
			tasks = []backend.Task{}
		}
		if ctx.Err() != nil {
			return
		}
		onChange(tasks)
	}

	stop, err := r.feed.Subscribe(ctx, callerID, deliver)
	if err != nil {
		utils.Warnf("subscription: change feed unavailable: %v", err)
		cancel()
		return func() {}
	}

	deliver()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			stop()
		})
	}
}

func (r *Repository) timestamp() time.Time {
	return r.now().Truncate(time.Millisecond)
}

// execute runs call against the selected store and falls back to the local
// store when the remote store fails with anything but a missing record.
func execute[T any](r *Repository, ctx context.Context, op, callerID string, call func(context.Context, backend.Store, string) (T, error)) Result[T] {
	ctx, span := r.tracer.Start(ctx, "tasks."+op)
	defer span.End()

	route, store := r.selector.Select(callerID)
	userID := callerID
	if route == backend.RouteLocal {
		userID = ""
	}

	value, err := call(ctx, store, userID)
	res := classify(value, err, route)

	if route == backend.RouteRemote && res.Status == StatusFailed {
		remoteErr := err
		utils.Warnf("%s: remote store failed, falling back to local store: %v", op, remoteErr)
		span.RecordError(remoteErr)

		value, err = call(ctx, r.selector.Local(), "")
		res = classify(value, err, backend.RouteLocal)
		if res.Status == StatusOK {
			res.Status = StatusFallback
			res.Cause = remoteErr
		}
	}

	switch res.Status {
	case StatusNotFound:
		utils.Debugf("%s: record not found in %s store", op, res.Store)
	case StatusFailed:
		utils.Errorf("%s: %v", op, res.Cause)
		span.SetStatus(codes.Error, res.Cause.Error())
	}

	span.SetAttributes(
		attribute.String("tasks.route", string(res.Store)),
		attribute.String("tasks.status", string(res.Status)),
	)
	return res
}

func classify[T any](value T, err error, route backend.Route) Result[T] {
	switch {
	case err == nil:
		return Result[T]{Value: value, Status: StatusOK, Store: route}
	case backend.IsNotFound(err):
		var zero T
		return Result[T]{Value: zero, Status: StatusNotFound, Store: route, Cause: err}
	default:
		var zero T
		return Result[T]{Value: zero, Status: StatusFailed, Store: route, Cause: err}
	}
}

// normalize converts timestamps to the local zone and fills empty collections.
func normalize(t backend.Task, route backend.Route) backend.Task {
	t.CreatedAt = t.CreatedAt.Local()
	t.UpdatedAt = t.UpdatedAt.Local()
	if t.Deadline != nil {
		d := t.Deadline.Local()
		t.Deadline = &d
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.SubNotes == nil {
		t.SubNotes = []backend.SubNote{}
	}
	if t.Attachments == nil {
		t.Attachments = []backend.Attachment{}
	}
	if route == backend.RouteLocal {
		t.UserID = ""
	}
	return t
}
