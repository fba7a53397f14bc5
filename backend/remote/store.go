package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"aitasks/backend"
	"aitasks/internal/utils"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/google/uuid"
)

const (
	DefaultTable   = "tasks"
	DefaultTimeout = 10 * time.Second
)

// Config holds the connection parameters of the remote store.
type Config struct {
	ConnectionString string
	Table            string
	Timeout          time.Duration
	// CreateTable creates the table when it does not exist yet.
	CreateTable bool
}

// tableAPI is the subset of the table client the store needs.
type tableAPI interface {
	listEntities(ctx context.Context, filter string) ([][]byte, error)
	getEntity(ctx context.Context, pk, rk string) ([]byte, azcore.ETag, error)
	addEntity(ctx context.Context, payload []byte) error
	replaceEntity(ctx context.Context, payload []byte, etag azcore.ETag) error
	deleteEntity(ctx context.Context, pk, rk string) error
}

// publisher is told about every successful mutation.
type publisher interface {
	Publish(ctx context.Context, userID string) error
}

// Store is the cloud task store backed by Azure Table Storage. Each caller
// owns one partition; the row key is the task id.
type Store struct {
	table   tableAPI
	feed    publisher
	timeout time.Duration
}

// Option configures a Store
type Option func(*Store)

// WithPublisher announces mutations on p.
func WithPublisher(p publisher) Option {
	return func(s *Store) { s.feed = p }
}

// New builds the remote store. Construction failures are logged and leave
// the store uninitialized; Available then reports false and every call
// returns backend.ErrUnavailable.
func New(ctx context.Context, cfg Config, opts ...Option) *Store {
	s := &Store{timeout: cfg.Timeout}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.ConnectionString == "" {
		utils.Debugf("remote store: no connection string configured")
		return s
	}

	table, err := newAzureTable(ctx, cfg)
	if err != nil {
		utils.Warnf("remote store: initialization failed: %v", err)
		return s
	}
	s.table = table
	return s
}

func newStore(table tableAPI, opts ...Option) *Store {
	s := &Store{table: table, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Name() string { return string(backend.RouteRemote) }

// Available reports whether the table client was constructed.
func (s *Store) Available() bool {
	return s != nil && s.table != nil
}

// PartitionFilter returns the OData filter selecting one caller's partition.
func PartitionFilter(userID string) string {
	return "PartitionKey eq '" + strings.ReplaceAll(userID, "'", "''") + "'"
}

// List returns the caller's tasks ordered by CreatedAt, newest first.
func (s *Store) List(ctx context.Context, userID string) ([]backend.Task, error) {
	if err := s.check("List", userID); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.table.listEntities(ctx, PartitionFilter(userID))
	if err != nil {
		return nil, backend.NewStoreError(s.Name(), "List", err).WithUserID(userID)
	}

	tasks := make([]backend.Task, 0, len(rows))
	for _, row := range rows {
		ent, err := unmarshalEntity(row)
		if err != nil {
			return nil, backend.NewStoreError(s.Name(), "List", err).WithUserID(userID)
		}
		task, err := ent.toTask()
		if err != nil {
			return nil, backend.NewStoreError(s.Name(), "List", err).WithTaskID(ent.RowKey).WithUserID(userID)
		}
		tasks = append(tasks, task)
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// Create inserts task into the caller's partition. An empty ID gets a UUID.
func (s *Store) Create(ctx context.Context, userID string, task backend.Task) (backend.Task, error) {
	if err := s.check("Create", userID); err != nil {
		return backend.Task{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	task = task.Clone()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.UserID = userID

	ent, err := toEntity(userID, task)
	if err != nil {
		return backend.Task{}, backend.NewStoreError(s.Name(), "Create", err).WithTaskID(task.ID)
	}
	payload, err := marshalEntity(ent)
	if err != nil {
		return backend.Task{}, backend.NewStoreError(s.Name(), "Create", err).WithTaskID(task.ID)
	}
	if err := s.table.addEntity(ctx, payload); err != nil {
		return backend.Task{}, backend.NewStoreError(s.Name(), "Create", err).WithTaskID(task.ID).WithUserID(userID)
	}

	s.publish(ctx, userID)
	return task, nil
}

// Update reads the row, applies mutate and replaces the row, guarded by the
// ETag of the read.
func (s *Store) Update(ctx context.Context, userID, id string, mutate func(backend.Task) backend.Task) (backend.Task, error) {
	if err := s.check("Update", userID); err != nil {
		return backend.Task{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row, etag, err := s.table.getEntity(ctx, userID, id)
	if err != nil {
		return backend.Task{}, s.wrap("Update", userID, id, err)
	}
	ent, err := unmarshalEntity(row)
	if err != nil {
		return backend.Task{}, backend.NewStoreError(s.Name(), "Update", err).WithTaskID(id)
	}
	current, err := ent.toTask()
	if err != nil {
		return backend.Task{}, backend.NewStoreError(s.Name(), "Update", err).WithTaskID(id)
	}

	updated := mutate(current.Clone())
	updated.ID = current.ID
	updated.UserID = userID

	next, err := toEntity(userID, updated)
	if err != nil {
		return backend.Task{}, backend.NewStoreError(s.Name(), "Update", err).WithTaskID(id)
	}
	payload, err := marshalEntity(next)
	if err != nil {
		return backend.Task{}, backend.NewStoreError(s.Name(), "Update", err).WithTaskID(id)
	}
	if err := s.table.replaceEntity(ctx, payload, etag); err != nil {
		return backend.Task{}, s.wrap("Update", userID, id, err)
	}

	s.publish(ctx, userID)
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, userID, id string) error {
	if err := s.check("Delete", userID); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.table.deleteEntity(ctx, userID, id); err != nil {
		return s.wrap("Delete", userID, id, err)
	}

	s.publish(ctx, userID)
	return nil
}

func (s *Store) check(op, userID string) error {
	if !s.Available() {
		return backend.NewStoreError(s.Name(), op, backend.ErrUnavailable).WithUserID(userID)
	}
	if userID == "" {
		return backend.NewStoreError(s.Name(), op, errors.New("caller id required")).WithUserID(userID)
	}
	return nil
}

// wrap maps a 404 from the table service to backend.ErrNotFound.
func (s *Store) wrap(op, userID, id string, err error) error {
	if isNotFound(err) {
		err = backend.ErrNotFound
	}
	return backend.NewStoreError(s.Name(), op, err).WithTaskID(id).WithUserID(userID)
}

func (s *Store) publish(ctx context.Context, userID string) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, userID); err != nil {
		utils.Warnf("remote store: unable to publish update for %s: %v", userID, err)
	}
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

// azureTable adapts *aztables.Client to tableAPI.
type azureTable struct {
	client *aztables.Client
}

func newAzureTable(ctx context.Context, cfg Config) (*azureTable, error) {
	name := cfg.Table
	if name == "" {
		name = DefaultTable
	}
	svc, err := aztables.NewServiceClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("table service client: %w", err)
	}
	client := svc.NewClient(name)

	if cfg.CreateTable {
		if _, err := client.CreateTable(ctx, nil); err != nil {
			var respErr *azcore.ResponseError
			if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
				return nil, fmt.Errorf("create table %s: %w", name, err)
			}
		}
	}
	return &azureTable{client: client}, nil
}

func (a *azureTable) listEntities(ctx context.Context, filter string) ([][]byte, error) {
	pager := a.client.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	var rows [][]byte
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		rows = append(rows, resp.Entities...)
	}
	return rows, nil
}

func (a *azureTable) getEntity(ctx context.Context, pk, rk string) ([]byte, azcore.ETag, error) {
	resp, err := a.client.GetEntity(ctx, pk, rk, nil)
	if err != nil {
		return nil, "", err
	}
	return resp.Value, resp.ETag, nil
}

func (a *azureTable) addEntity(ctx context.Context, payload []byte) error {
	_, err := a.client.AddEntity(ctx, payload, nil)
	return err
}

func (a *azureTable) replaceEntity(ctx context.Context, payload []byte, etag azcore.ETag) error {
	if etag == "" {
		etag = azcore.ETagAny
	}
	_, err := a.client.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &etag, UpdateMode: aztables.UpdateModeReplace})
	return err
}

func (a *azureTable) deleteEntity(ctx context.Context, pk, rk string) error {
	_, err := a.client.DeleteEntity(ctx, pk, rk, nil)
	return err
}
