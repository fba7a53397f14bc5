package backend

// This file contains shared test helpers and mocks used across backend tests.
// MockStore is exported so the sync, operations and server packages can use it.

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MockStore implements RemoteStore in memory for testing
type MockStore struct {
	mu          sync.Mutex
	name        string
	tasks       map[string][]Task // userID -> tasks
	nextID      int
	unavailable bool

	ListErr   error
	CreateErr error
	UpdateErr error
	DeleteErr error

	Calls map[string]int
}

// NewMockStore creates a new mock store instance
func NewMockStore(name string) *MockStore {
	return &MockStore{
		name:  name,
		tasks: make(map[string][]Task),
		Calls: make(map[string]int),
	}
}

// FailAll makes every operation return err.
func (m *MockStore) FailAll(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListErr, m.CreateErr, m.UpdateErr, m.DeleteErr = err, err, err, err
}

// SetAvailable toggles what Available reports.
func (m *MockStore) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = !available
}

// Seed inserts tasks directly, bypassing Create.
func (m *MockStore) Seed(userID string, tasks ...Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tasks {
		m.tasks[userID] = append(m.tasks[userID], t.Clone())
	}
}

// Count returns how many records the partition holds.
func (m *MockStore) Count(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks[userID])
}

// CallCount returns how many times op was invoked.
func (m *MockStore) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[op]
}

func (m *MockStore) Name() string { return m.name }

func (m *MockStore) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.unavailable
}

func (m *MockStore) List(ctx context.Context, userID string) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["List"]++
	if m.ListErr != nil {
		return nil, NewStoreError(m.name, "List", m.ListErr)
	}
	out := make([]Task, 0, len(m.tasks[userID]))
	for _, t := range m.tasks[userID] {
		out = append(out, t.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MockStore) Create(ctx context.Context, userID string, task Task) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Create"]++
	if m.CreateErr != nil {
		return Task{}, NewStoreError(m.name, "Create", m.CreateErr)
	}
	if task.ID == "" {
		m.nextID++
		task.ID = fmt.Sprintf("%s-%d", m.name, m.nextID)
	}
	m.tasks[userID] = append(m.tasks[userID], task.Clone())
	return task.Clone(), nil
}

func (m *MockStore) Update(ctx context.Context, userID, id string, mutate func(Task) Task) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Update"]++
	if m.UpdateErr != nil {
		return Task{}, NewStoreError(m.name, "Update", m.UpdateErr).WithTaskID(id)
	}
	tasks := m.tasks[userID]
	for i, t := range tasks {
		if t.ID == id {
			updated := mutate(t.Clone())
			tasks[i] = updated.Clone()
			return updated, nil
		}
	}
	return Task{}, NewStoreError(m.name, "Update", ErrNotFound).WithTaskID(id)
}

func (m *MockStore) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Delete"]++
	if m.DeleteErr != nil {
		return NewStoreError(m.name, "Delete", m.DeleteErr).WithTaskID(id)
	}
	tasks := m.tasks[userID]
	for i, t := range tasks {
		if t.ID == id {
			m.tasks[userID] = append(tasks[:i], tasks[i+1:]...)
			return nil
		}
	}
	return NewStoreError(m.name, "Delete", ErrNotFound).WithTaskID(id)
}

// MockFeed implements ChangeFeed with a manual trigger
type MockFeed struct {
	mu   sync.Mutex
	subs map[string][]func()
	Err  error
}

// NewMockFeed creates a new mock change feed
func NewMockFeed() *MockFeed {
	return &MockFeed{subs: make(map[string][]func())}
}

func (f *MockFeed) Subscribe(ctx context.Context, userID string, notify func()) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.subs[userID] = append(f.subs[userID], notify)
	idx := len(f.subs[userID]) - 1
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if idx < len(f.subs[userID]) {
			f.subs[userID][idx] = nil
		}
	}, nil
}

// Notify fires every live subscription of userID.
func (f *MockFeed) Notify(userID string) {
	f.mu.Lock()
	subs := append([]func(){}, f.subs[userID]...)
	f.mu.Unlock()
	for _, fn := range subs {
		if fn != nil {
			fn()
		}
	}
}
