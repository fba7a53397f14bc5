package backend

import "context"

// Store is the persistence capability shared by the local and the remote
// backends. userID partitions the remote store and is ignored locally.
type Store interface {
	// Name identifies the backend in logs and traces.
	Name() string

	// List returns every task of userID, newest first.
	List(ctx context.Context, userID string) ([]Task, error)

	// Create persists task. An empty ID is assigned by the store.
	Create(ctx context.Context, userID string, task Task) (Task, error)

	// Update reads the record, hands it to mutate and writes the result back.
	// Returns ErrNotFound when no record with id exists.
	Update(ctx context.Context, userID, id string, mutate func(Task) Task) (Task, error)

	// Delete removes the record. Returns ErrNotFound when it does not exist.
	Delete(ctx context.Context, userID, id string) error
}

// RemoteStore is a Store whose initialization may have failed or not happened.
type RemoteStore interface {
	Store
	Available() bool
}

// ChangeFeed delivers a notification every time the tasks of userID change.
type ChangeFeed interface {
	// Subscribe calls notify after each change until the returned cancel
	// function is invoked or ctx ends.
	Subscribe(ctx context.Context, userID string, notify func()) (cancel func(), err error)
}
