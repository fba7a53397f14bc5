package stats

import (
	"testing"
	"time"

	"aitasks/backend"
)

func TestAnalyze(t *testing.T) {
	// now is Wednesday 2024-05-15
	tasks := []backend.Task{
		{Completed: true, CreatedAt: now.AddDate(0, 0, -3), UpdatedAt: now},                    // 3 days, Wednesday
		{Completed: true, CreatedAt: now.AddDate(0, 0, -2), UpdatedAt: now.AddDate(0, 0, -1)},  // 1 day, Tuesday
		{Completed: true, CreatedAt: now.AddDate(0, 0, -30), UpdatedAt: now.AddDate(0, 0, -28)}, // April, 2 days, Wednesday
		{Completed: false, CreatedAt: now},
	}

	a := Analyze(tasks, now)

	if a.CompletedToday != 1 || a.CompletedThisWeek != 2 || a.CompletedThisMonth != 2 {
		t.Errorf("counters = %+v", a)
	}
	if a.AverageDaysToComplete != 2 {
		t.Errorf("AverageDaysToComplete = %d, want 2", a.AverageDaysToComplete)
	}
	if a.Streak != 2 {
		t.Errorf("Streak = %d, want 2", a.Streak)
	}
	if !a.HasProductiveDay || a.MostProductiveDay != time.Wednesday {
		t.Errorf("MostProductiveDay = %v (%v)", a.MostProductiveDay, a.HasProductiveDay)
	}
}

func TestAnalyzeNothingCompleted(t *testing.T) {
	a := Analyze([]backend.Task{{Title: "pending", CreatedAt: now}}, now)
	if a.AverageDaysToComplete != 0 || a.HasProductiveDay || a.Streak != 0 {
		t.Errorf("Analyze() = %+v", a)
	}
}

func TestCompletionTrend(t *testing.T) {
	tasks := []backend.Task{
		completedAt(now),
		completedAt(now.Add(-time.Hour)),
		completedAt(now.AddDate(0, 0, -6)),
		completedAt(now.AddDate(0, 0, -7)),
		{Title: "pending", UpdatedAt: now},
	}

	trend := CompletionTrend(tasks, now)
	if len(trend) != 7 {
		t.Fatalf("len = %d, want 7", len(trend))
	}
	if trend[6].Completed != 2 || !sameDay(trend[6].Date, now) {
		t.Errorf("today = %+v", trend[6])
	}
	if trend[0].Completed != 1 {
		t.Errorf("six days ago = %+v", trend[0])
	}
	total := 0
	for _, d := range trend {
		total += d.Completed
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
}

func TestPriorityDistribution(t *testing.T) {
	tasks := []backend.Task{
		{Priority: backend.PriorityLow},
		{Priority: backend.PriorityHigh},
		{Priority: backend.PriorityLow},
	}

	got := PriorityDistribution(tasks)
	if len(got) != 2 {
		t.Fatalf("expected medium bucket to be omitted, got %+v", got)
	}
	if got[0].Priority != backend.PriorityHigh || got[0].Count != 1 {
		t.Errorf("first bucket = %+v", got[0])
	}
	if got[1].Priority != backend.PriorityLow || got[1].Count != 2 {
		t.Errorf("second bucket = %+v", got[1])
	}

	if PriorityDistribution(nil) != nil {
		t.Error("empty input should yield no buckets")
	}
}

func TestStatusDistribution(t *testing.T) {
	got := StatusDistribution([]backend.Task{{Completed: true}, {}, {}})
	if len(got) != 2 || !got[0].Completed || got[0].Count != 1 || got[1].Count != 2 {
		t.Errorf("StatusDistribution() = %+v", got)
	}

	got = StatusDistribution([]backend.Task{{}})
	if len(got) != 1 || got[0].Completed {
		t.Errorf("StatusDistribution() = %+v", got)
	}
}

func TestWeeklyOverview(t *testing.T) {
	sunday := time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)
	tasks := []backend.Task{
		{CreatedAt: sunday, UpdatedAt: sunday},                                          // created week 4
		{Completed: true, CreatedAt: sunday.AddDate(0, 0, -6), UpdatedAt: sunday.Add(time.Hour)}, // created week 3, completed week 4
		{CreatedAt: sunday.AddDate(0, 0, -21), UpdatedAt: sunday.AddDate(0, 0, -21)},    // created week 1
		{CreatedAt: sunday.AddDate(0, 0, -22), UpdatedAt: sunday.AddDate(0, 0, -22)},    // before window
	}

	weeks := WeeklyOverview(tasks, now)
	if len(weeks) != 4 {
		t.Fatalf("len = %d, want 4", len(weeks))
	}
	if weeks[3].Label != "Week 4" || !weeks[3].Start.Equal(sunday) {
		t.Errorf("current week = %+v", weeks[3])
	}
	if weeks[0].Label != "Week 1" || !weeks[0].Start.Equal(sunday.AddDate(0, 0, -21)) {
		t.Errorf("first week = %+v", weeks[0])
	}

	want := [][2]int{{1, 0}, {0, 0}, {1, 0}, {1, 1}} // created, completed
	for i, w := range weeks {
		if w.Created != want[i][0] || w.Completed != want[i][1] {
			t.Errorf("%s = created %d completed %d, want %v", w.Label, w.Created, w.Completed, want[i])
		}
	}
}
