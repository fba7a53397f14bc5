package cli

import (
	"errors"
	"strings"
	"testing"
	"time"

	"aitasks/backend"
	"aitasks/internal/ai"
	"aitasks/internal/stats"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestFormatTask(t *testing.T) {
	yesterday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	nextWeek := time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		task    backend.Task
		opts    DisplayOptions
		want    []string
		notWant []string
	}{
		{
			name: "pending with tags",
			task: backend.Task{ID: "t1", Title: "Buy milk", Priority: backend.PriorityHigh, Tags: []string{"home", "errand"}},
			want: []string{"[ ]", "Buy milk", "H", "#home #errand"},
		},
		{
			name:    "completed",
			task:    backend.Task{Title: "Done thing", Completed: true, Priority: backend.PriorityLow},
			want:    []string{"[x]", "Done thing"},
			notWant: []string{"due"},
		},
		{
			name: "overdue deadline",
			task: backend.Task{Title: "Taxes", Deadline: &yesterday, Priority: backend.PriorityMedium},
			want: []string{"due 2026-03-09", "(overdue)"},
		},
		{
			name:    "future deadline",
			task:    backend.Task{Title: "Trip", Deadline: &nextWeek},
			want:    []string{"due 2026-03-17"},
			notWant: []string{"overdue"},
		},
		{
			name: "ids and notes",
			task: backend.Task{
				ID:    "abc-123",
				Title: "Pack",
				SubNotes: []backend.SubNote{
					{ID: "n1", Content: "socks", Kind: backend.SubNoteChecklist, Completed: true},
					{ID: "n2", Content: "charger", Kind: backend.SubNoteChecklist},
				},
			},
			opts: DisplayOptions{ShowIDs: true, ShowNotes: true},
			want: []string{"abc-123", "(1/2)", "[x] socks", "[ ] charger"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			opts.Now = now
			opts.DateFormat = "2006-01-02"
			out := strings.Join(FormatTask(tt.task, opts), "\n")
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(out, nw) {
					t.Errorf("output should not contain %q:\n%s", nw, out)
				}
			}
		})
	}
}

func TestRenderTasks(t *testing.T) {
	out := RenderTasks("Tasks", nil, DisplayOptions{Width: 80, Now: now})
	if !strings.Contains(out, "No tasks") || !strings.Contains(out, "Tasks (0)") {
		t.Errorf("unexpected empty rendering:\n%s", out)
	}

	tasks := []backend.Task{{Title: "one"}, {Title: "two"}}
	out = RenderTasks("Tasks", tasks, DisplayOptions{Width: 80, Now: now})
	if !strings.Contains(out, "Tasks (2)") || !strings.Contains(out, "one") || !strings.Contains(out, "two") {
		t.Errorf("unexpected rendering:\n%s", out)
	}
}

func TestRenderStats(t *testing.T) {
	s := stats.TaskStats{Total: 5, Completed: 2, Pending: 3, Overdue: 1}
	out := RenderStats(s, 1, 80)
	for _, w := range []string{"Total      5", "Pending    3", "Streak     1 day\n"} {
		if !strings.Contains(out, w) {
			t.Errorf("stats missing %q:\n%s", w, out)
		}
	}
	if out := RenderStats(s, 4, 80); !strings.Contains(out, "4 days") {
		t.Errorf("expected plural streak:\n%s", out)
	}
}

func TestRenderAnalytics(t *testing.T) {
	tasks := []backend.Task{
		{Title: "a", Completed: true, Priority: backend.PriorityHigh, CreatedAt: now.Add(-48 * time.Hour), UpdatedAt: now},
		{Title: "b", Priority: backend.PriorityLow, CreatedAt: now},
	}
	out := RenderAnalytics(tasks, now, 80)
	for _, w := range []string{"Analytics", "Last 7 days", "Priorities", "Weekly overview"} {
		if !strings.Contains(out, w) {
			t.Errorf("analytics missing %q:\n%s", w, out)
		}
	}
}

func TestRenderInsights(t *testing.T) {
	if out := RenderInsights(nil, 80); !strings.Contains(out, "No insights available") {
		t.Errorf("unexpected empty rendering:\n%s", out)
	}
	out := RenderInsights([]ai.Insight{{Type: ai.InsightSummary, Content: "Two tasks done"}}, 80)
	if !strings.Contains(out, "summary") || !strings.Contains(out, "Two tasks done") {
		t.Errorf("unexpected rendering:\n%s", out)
	}
}

func TestRenderStatus(t *testing.T) {
	info := backend.RouteInfo{Route: backend.RouteLocal}
	out := RenderStatus(info, ai.StateUnavailable)
	if !strings.Contains(out, "Store: local") || !strings.Contains(out, "AI: ") {
		t.Errorf("unexpected status:\n%s", out)
	}
}

func TestDegradedWarning(t *testing.T) {
	out := DegradedWarning(errors.New("dial tcp: timeout"))
	if !strings.Contains(out, "local store") || !strings.Contains(out, "dial tcp: timeout") {
		t.Errorf("unexpected warning: %s", out)
	}
}

func TestBar(t *testing.T) {
	if got := bar(0, 0, 5); got != "     " {
		t.Errorf("bar(0,0) = %q", got)
	}
	if got := bar(2, 4, 10); strings.Count(got, "█") != 5 {
		t.Errorf("bar(2,4) = %q", got)
	}
}
