package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aitasks/backend"
	"aitasks/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/zalando/go-keyring"
)

// isolate points every on-disk location and secret source at t's temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	for _, name := range []string{"GEMINI", "AZURE", "REDIS", "JWT"} {
		t.Setenv("AITASKS_"+name+"_SECRET", "")
	}
	return dir
}

func localConfig(dir string) *config.Config {
	return &config.Config{
		Local: config.LocalConfig{DBPath: filepath.Join(dir, "local.db")},
	}
}

func TestNewWithConfigLocalOnly(t *testing.T) {
	dir := isolate(t)
	a, err := NewWithConfig(context.Background(), localConfig(dir), "")
	if err != nil {
		t.Fatalf("NewWithConfig() error = %v", err)
	}
	defer a.Shutdown()

	st := a.Status()
	if st.Route.Route != backend.RouteLocal || st.Route.RemoteConfigured {
		t.Errorf("route = %+v", st.Route)
	}
	if st.AI != "unavailable" || st.LiveFeed {
		t.Errorf("status = %+v", st)
	}
	if st.LocalPath != filepath.Join(dir, "local.db") {
		t.Errorf("LocalPath = %s", st.LocalPath)
	}
	if a.InsightCache() == nil || !strings.HasPrefix(a.InsightCache().Path(), filepath.Join(dir, "cache")) {
		t.Errorf("insight cache not under XDG_CACHE_HOME")
	}
}

func TestCallerOverride(t *testing.T) {
	dir := isolate(t)
	cfg := localConfig(dir)
	cfg.CallerID = "from-config"

	a, err := NewWithConfig(context.Background(), cfg, "")
	if err != nil {
		t.Fatal(err)
	}
	if a.CallerID() != "from-config" {
		t.Errorf("CallerID() = %q", a.CallerID())
	}
	a.Shutdown()

	a, err = NewWithConfig(context.Background(), cfg, "from-flag")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Shutdown()
	if a.CallerID() != "from-flag" {
		t.Errorf("CallerID() = %q", a.CallerID())
	}
}

func TestRemoteWithoutConnectionStringStaysLocal(t *testing.T) {
	dir := isolate(t)
	cfg := localConfig(dir)
	cfg.Remote.Enabled = true

	a, err := NewWithConfig(context.Background(), cfg, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Shutdown()

	info := a.Status().Route
	if !info.RemoteConfigured || info.RemoteAvailable || info.Route != backend.RouteLocal {
		t.Errorf("route = %+v", info)
	}
}

func TestChangeFeedFromRedisURL(t *testing.T) {
	dir := isolate(t)
	mr := miniredis.RunT(t)
	cfg := localConfig(dir)
	cfg.Remote.Enabled = true
	cfg.Remote.RedisURL = "redis://" + mr.Addr()

	a, err := NewWithConfig(context.Background(), cfg, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Shutdown()
	if !a.Status().LiveFeed {
		t.Error("expected live feed to be configured")
	}
}

func TestFindUpdateDelete(t *testing.T) {
	dir := isolate(t)
	ctx := context.Background()
	a, err := NewWithConfig(ctx, localConfig(dir), "")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Shutdown()

	if _, err := a.Repository().AddTask(ctx, "", backend.TaskDraft{Title: "Buy milk"}); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Repository().AddTask(ctx, "", backend.TaskDraft{Title: "Walk the dog"}); err != nil {
		t.Fatal(err)
	}

	done := true
	res, err := a.Update(ctx, "buy milk", backend.TaskPatch{Completed: &done})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !res.Value.Completed || res.Value.Title != "Buy milk" {
		t.Errorf("updated = %+v", res.Value)
	}

	if _, err := a.Update(ctx, "nothing like this", backend.TaskPatch{Completed: &done}); err == nil ||
		!strings.Contains(err.Error(), "no task found matching 'nothing like this'") {
		t.Errorf("Update(missing) error = %v", err)
	}

	if _, err := a.Delete(ctx, "dog"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	tasks, err := a.Tasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks.Value) != 1 || tasks.Value[0].Title != "Buy milk" {
		t.Errorf("tasks = %+v", tasks.Value)
	}
}

func TestNewAppCreatesConfig(t *testing.T) {
	dir := isolate(t)
	t.Setenv("AITASKS_DB_PATH", filepath.Join(dir, "env.db"))
	path := filepath.Join(dir, "conf", "config.yaml")

	a, err := NewApp(context.Background(), Options{ConfigPath: path, CreateConfig: true, CallerID: "cli"})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer a.Shutdown()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("config not written: %v", err)
	}
	if a.Config().GetDefaultSort() != "created" || a.CallerID() != "cli" {
		t.Errorf("unexpected config: %+v", a.Config())
	}
	if a.Status().LocalPath != filepath.Join(dir, "env.db") {
		t.Errorf("LocalPath = %s", a.Status().LocalPath)
	}
}
