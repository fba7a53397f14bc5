package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"aitasks/backend"
	"aitasks/internal/ai"
)

type countingModel struct {
	calls atomic.Int32
	reply string
}

func (m *countingModel) Generate(context.Context, string) (string, error) {
	m.calls.Add(1)
	return m.reply, nil
}

func tasks() []backend.Task {
	return []backend.Task{{ID: "t1", Title: "Pay rent", Priority: backend.PriorityHigh, CreatedAt: time.Now()}}
}

func TestGetCacheDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", tmp)

	dir, err := GetCacheDir()
	if err != nil {
		t.Fatalf("GetCacheDir() error = %v", err)
	}
	if dir != filepath.Join(tmp, "aitasks") {
		t.Errorf("GetCacheDir() = %s", dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Error("cache dir should be created")
	}

	c, err := Default()
	if err != nil || c.Path() != filepath.Join(tmp, "aitasks", "insights.json") {
		t.Errorf("Default() = %v, %v", c, err)
	}
}

func TestSaveAndForDay(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "sub", "insights.json"))
	day := time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)

	if _, ok := c.ForDay("", day); ok {
		t.Error("empty cache should miss")
	}

	insights := []ai.Insight{{ID: "i1", Type: ai.InsightSummary, Content: "Good job", CreatedAt: day}}
	if err := c.Save("", insights, day); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok := c.ForDay("", day.Add(10 * time.Hour))
	if !ok || len(got) != 1 || got[0].Content != "Good job" {
		t.Errorf("ForDay(same day) = %+v, %v", got, ok)
	}
	if _, ok := c.ForDay("", day.AddDate(0, 0, 1)); ok {
		t.Error("next day should miss")
	}
}

func TestCorruptCacheMisses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "insights.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	c := New(path)
	if _, err := c.Load(); err == nil || !strings.Contains(err.Error(), "corrupt") {
		t.Errorf("Load() error = %v", err)
	}
	if _, ok := c.ForDay("", time.Now()); ok {
		t.Error("corrupt cache should miss")
	}
}

func TestMarkRead(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "insights.json"))
	now := time.Now()
	insights := []ai.Insight{
		{ID: "a", Type: ai.InsightSummary, Content: "one"},
		{ID: "b", Type: ai.InsightPriority, Content: "two"},
	}
	if err := c.Save("alice", insights, now); err != nil {
		t.Fatal(err)
	}

	n, err := c.MarkRead("alice", "b")
	if err != nil || n != 1 {
		t.Fatalf("MarkRead(b) = %d, %v", n, err)
	}
	got, _ := c.ForDay("alice", now)
	if got[0].IsRead || !got[1].IsRead {
		t.Errorf("after MarkRead(b): %+v", got)
	}

	if n, _ := c.MarkRead("alice", "b"); n != 0 {
		t.Errorf("second MarkRead(b) changed %d", n)
	}
	if n, _ := c.MarkRead("bob", ""); n != 0 {
		t.Errorf("MarkRead by another caller changed %d", n)
	}
	if n, _ := c.MarkRead("alice", ""); n != 1 {
		t.Errorf("MarkRead(all) changed %d, want 1", n)
	}

	missing := New(filepath.Join(t.TempDir(), "none.json"))
	if _, err := missing.MarkRead("alice", ""); !os.IsNotExist(err) {
		t.Errorf("MarkRead on missing cache = %v", err)
	}
}

func TestLoadInsightsWithFallback(t *testing.T) {
	ctx := context.Background()
	c := New(filepath.Join(t.TempDir(), "insights.json"))
	model := &countingModel{reply: `[{"type":"summary","content":"Two done"},{"type":"suggestion","content":"Start early"}]`}
	gw := ai.NewWithModel(model, time.Second)
	now := time.Now()

	first := LoadInsightsWithFallback(ctx, c, gw, "alice", tasks(), now, false)
	if len(first) != 2 {
		t.Fatalf("expected 2 insights, got %d", len(first))
	}
	second := LoadInsightsWithFallback(ctx, c, gw, "alice", tasks(), now, false)
	if model.calls.Load() != 1 {
		t.Errorf("same-day call should use the cache, model called %d times", model.calls.Load())
	}
	if second[0].ID != first[0].ID {
		t.Error("cached insights should keep their ids")
	}

	LoadInsightsWithFallback(ctx, c, gw, "alice", tasks(), now, true)
	if model.calls.Load() != 2 {
		t.Errorf("refresh should regenerate, model called %d times", model.calls.Load())
	}
}

func TestLoadInsightsWithFallbackDoesNotCacheEmpty(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "insights.json"))
	got := LoadInsightsWithFallback(context.Background(), c, ai.NewWithModel(nil, 0), "", tasks(), time.Now(), false)
	if len(got) != 0 {
		t.Errorf("unavailable gateway should yield nothing, got %+v", got)
	}
	if _, err := os.Stat(c.Path()); !os.IsNotExist(err) {
		t.Error("empty result should not be cached")
	}
}

func TestInsightsAreScopedToCaller(t *testing.T) {
	ctx := context.Background()
	c := New(filepath.Join(t.TempDir(), "insights.json"))
	now := time.Now()

	alice := &countingModel{reply: `[{"type":"summary","content":"Alice finished the merger memo"}]`}
	got := LoadInsightsWithFallback(ctx, c, ai.NewWithModel(alice, time.Second), "alice", tasks(), now, false)
	if len(got) != 1 {
		t.Fatalf("alice got %d insights", len(got))
	}

	tests := []struct {
		name   string
		caller string
	}{
		{"other user", "bob"},
		{"anonymous", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := c.ForDay(tt.caller, now); ok {
				t.Errorf("ForDay(%q) should miss alice's cache", tt.caller)
			}
			model := &countingModel{reply: `[{"type":"suggestion","content":"Start with the rent"}]`}
			got := LoadInsightsWithFallback(ctx, c, ai.NewWithModel(model, time.Second), tt.caller, tasks(), now, false)
			if model.calls.Load() != 1 {
				t.Errorf("model called %d times, want 1", model.calls.Load())
			}
			if len(got) != 1 || strings.Contains(got[0].Content, "Alice") {
				t.Errorf("%s got %+v", tt.caller, got)
			}
		})
	}
}
