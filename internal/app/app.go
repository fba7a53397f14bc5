package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aitasks/backend"
	"aitasks/backend/local"
	"aitasks/backend/remote"
	"aitasks/backend/sync"
	"aitasks/internal/ai"
	"aitasks/internal/cache"
	"aitasks/internal/config"
	"aitasks/internal/credentials"
	"aitasks/internal/operations"
	"aitasks/internal/utils"
)

// App holds the wired application: stores, repository and gateway.
type App struct {
	config   *config.Config
	callerID string

	local   *local.Store
	remote  *remote.Store
	feed    *remote.Feed
	repo    *sync.Repository
	gateway *ai.Gateway
	secrets *credentials.Resolver
	cache   *cache.InsightCache
}

// Options selects the configuration and the caller.
type Options struct {
	ConfigPath string
	// CallerID overrides config caller_id when non-empty.
	CallerID string
	// CreateConfig writes the sample configuration when none exists.
	CreateConfig bool
}

// NewApp loads the configuration and wires every component.
func NewApp(ctx context.Context, opts Options) (*App, error) {
	path, err := config.GetConfigPath(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path, opts.CreateConfig)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(ctx, cfg, opts.CallerID)
}

// NewWithConfig wires the application for cfg. The remote store and the
// gateway degrade to unavailable instead of failing construction; only an
// unusable local store is fatal.
func NewWithConfig(ctx context.Context, cfg *config.Config, callerID string) (*App, error) {
	a := &App{
		config:   cfg,
		callerID: cfg.CallerID,
		secrets:  credentials.NewResolver(),
	}
	if callerID != "" {
		a.callerID = callerID
	}

	store, err := local.Open(cfg.Local.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	a.local = store
	utils.Debugf("Local store at %s", store.DB().Path())

	var repoOpts []sync.Option
	var remoteStore backend.RemoteStore
	if cfg.Remote.Enabled {
		a.feed = a.dialFeed()
		a.remote = a.openRemote(ctx)
		remoteStore = a.remote
		if a.feed != nil {
			repoOpts = append(repoOpts, sync.WithFeed(a.feed))
		}
	}
	a.repo = sync.NewRepository(a.local, remoteStore, repoOpts...)

	a.gateway = ai.New(ctx, ai.Config{
		Enabled: cfg.AI.Enabled,
		APIKey:  a.secrets.Lookup(credentials.SecretGemini, cfg.AI.APIKey),
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	})
	utils.Debugf("AI gateway: %s", a.gateway.State())

	if c, err := cache.Default(); err != nil {
		utils.Warnf("Insight cache disabled: %v", err)
	} else {
		a.cache = c
	}
	return a, nil
}

func (a *App) dialFeed() *remote.Feed {
	url := a.secrets.Lookup(credentials.SecretRedis, a.config.Remote.RedisURL)
	if url == "" {
		utils.Debugf("No change feed configured, live updates disabled")
		return nil
	}
	feed, err := remote.DialFeed(url, a.config.Remote.Channel)
	if err != nil {
		utils.Warnf("Change feed unavailable: %v", err)
		return nil
	}
	return feed
}

func (a *App) openRemote(ctx context.Context) *remote.Store {
	cfg := remote.Config{
		ConnectionString: a.secrets.Lookup(credentials.SecretAzure, a.config.Remote.ConnectionString),
		Table:            a.config.Remote.Table,
		Timeout:          a.config.Remote.Timeout,
		CreateTable:      a.config.Remote.CreateTable,
	}
	var opts []remote.Option
	if a.feed != nil {
		opts = append(opts, remote.WithPublisher(a.feed))
	}
	return remote.New(ctx, cfg, opts...)
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config { return a.config }

// CallerID returns the effective caller id ("" is anonymous).
func (a *App) CallerID() string { return a.callerID }

// Repository returns the sync facade.
func (a *App) Repository() *sync.Repository { return a.repo }

// Gateway returns the AI enrichment gateway.
func (a *App) Gateway() *ai.Gateway { return a.gateway }

// Secrets returns the credential resolver.
func (a *App) Secrets() *credentials.Resolver { return a.secrets }

// InsightCache returns the insight cache, or nil when it could not be set up.
func (a *App) InsightCache() *cache.InsightCache { return a.cache }

// Status describes routing and enrichment availability.
type Status struct {
	Route     backend.RouteInfo `json:"route" yaml:"route"`
	AI        string            `json:"ai" yaml:"ai"`
	LiveFeed  bool              `json:"liveFeed" yaml:"live_feed"`
	LocalPath string            `json:"localPath" yaml:"local_path"`
	LocalSize string            `json:"localSize,omitempty" yaml:"local_size,omitempty"`
}

// Status reports the current state of every component.
func (a *App) Status() Status {
	st := Status{
		Route:     a.repo.Describe(a.callerID),
		AI:        a.gateway.State().String(),
		LiveFeed:  a.feed != nil,
		LocalPath: a.local.DB().Path(),
	}
	if dbStats, err := a.local.DB().GetStats(); err != nil {
		utils.Debugf("Local store stats unavailable: %v", err)
	} else {
		st.LocalSize = dbStats.String()
	}
	return st
}

// Tasks returns the caller's tasks. A degraded result is logged.
func (a *App) Tasks(ctx context.Context) (sync.Result[[]backend.Task], error) {
	res := a.repo.GetTasks(ctx, a.callerID)
	if !res.Succeeded() {
		return res, utils.ErrRemoteUnavailable(res.Cause.Error())
	}
	if res.Degraded() {
		utils.Warnf("%v", utils.ErrRemoteUnavailable(res.Cause.Error()))
	}
	return res, nil
}

// FindTask resolves ref (id or title) among the caller's tasks.
func (a *App) FindTask(ctx context.Context, ref string) (*backend.Task, error) {
	res, err := a.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	task, err := operations.FindTask(res.Value, ref)
	if err != nil {
		var ambiguous *operations.AmbiguousMatchError
		if errors.As(err, &ambiguous) {
			return nil, err
		}
		return nil, utils.ErrTaskNotFound(ref)
	}
	return task, nil
}

// Update applies patch to the task matching ref.
func (a *App) Update(ctx context.Context, ref string, patch backend.TaskPatch) (sync.Result[backend.Task], error) {
	task, err := a.FindTask(ctx, ref)
	if err != nil {
		return sync.Result[backend.Task]{}, err
	}
	res, err := a.repo.UpdateTask(ctx, a.callerID, task.ID, patch)
	if err != nil {
		return res, err
	}
	return res, resultError(res.Status, res.Cause, ref)
}

// Delete removes the task matching ref.
func (a *App) Delete(ctx context.Context, ref string) (sync.Result[bool], error) {
	task, err := a.FindTask(ctx, ref)
	if err != nil {
		return sync.Result[bool]{}, err
	}
	res := a.repo.DeleteTask(ctx, a.callerID, task.ID)
	return res, resultError(res.Status, res.Cause, ref)
}

func resultError(status sync.Status, cause error, ref string) error {
	switch status {
	case sync.StatusNotFound:
		return utils.ErrTaskNotFound(ref)
	case sync.StatusFailed:
		return utils.ErrRemoteUnavailable(cause.Error())
	}
	return nil
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() {
	a.ShutdownWithTimeout(5 * time.Second)
}

// ShutdownWithTimeout closes the feed and the local store, giving up after timeout.
func (a *App) ShutdownWithTimeout(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if a.feed != nil {
			if err := a.feed.Close(); err != nil {
				utils.Debugf("Closing change feed: %v", err)
			}
		}
		if err := utils.LogOperation("close local store", a.local.Close); err != nil {
			utils.Warnf("Closing local store: %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		utils.Warnf("Shutdown timed out after %s", timeout)
	}
}
