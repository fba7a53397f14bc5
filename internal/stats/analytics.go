package stats

import (
	"fmt"
	"math"
	"time"

	"aitasks/backend"
)

// Analytics is the extended productivity summary.
type Analytics struct {
	CompletedToday        int          `json:"completedToday" yaml:"completed_today"`
	CompletedThisWeek     int          `json:"completedThisWeek" yaml:"completed_this_week"`
	CompletedThisMonth    int          `json:"completedThisMonth" yaml:"completed_this_month"`
	AverageDaysToComplete int          `json:"averageDaysToComplete" yaml:"average_days_to_complete"`
	Streak                int          `json:"streak" yaml:"streak"`
	MostProductiveDay     time.Weekday `json:"mostProductiveDay" yaml:"most_productive_day"`
	// HasProductiveDay is false when nothing was completed.
	HasProductiveDay bool `json:"hasProductiveDay" yaml:"has_productive_day"`
}

// Analyze computes the extended summary of tasks relative to now.
func Analyze(tasks []backend.Task, now time.Time) Analytics {
	base := Compute(tasks, now)
	monthStart := startOfMonth(now)

	a := Analytics{
		CompletedToday:    base.CompletedToday,
		CompletedThisWeek: base.CompletedThisWeek,
		Streak:            Streak(tasks, now),
	}

	var totalDays float64
	var byWeekday [7]int
	for _, t := range tasks {
		if !t.Completed {
			continue
		}
		if !t.UpdatedAt.Before(monthStart) {
			a.CompletedThisMonth++
		}
		totalDays += t.UpdatedAt.Sub(t.CreatedAt).Hours() / 24
		byWeekday[t.UpdatedAt.In(now.Location()).Weekday()]++
	}

	if base.Completed > 0 {
		a.AverageDaysToComplete = int(math.Round(totalDays / float64(base.Completed)))
	}

	best := 0
	for day, n := range byWeekday {
		if n > best {
			best = n
			a.MostProductiveDay = time.Weekday(day)
		}
	}
	a.HasProductiveDay = best > 0
	return a
}

// DayCount is the number of completions on one calendar day.
type DayCount struct {
	Date      time.Time `json:"date" yaml:"date"`
	Completed int       `json:"completed" yaml:"completed"`
}

// CompletionTrend returns completions for the last 7 days, oldest first,
// today last.
func CompletionTrend(tasks []backend.Task, now time.Time) []DayCount {
	y, m, d := now.Date()
	loc := now.Location()

	trend := make([]DayCount, 0, 7)
	for i := 6; i >= 0; i-- {
		day := time.Date(y, m, d-i, 0, 0, 0, 0, loc)
		n := 0
		for _, t := range tasks {
			if t.Completed && sameDay(day, t.UpdatedAt) {
				n++
			}
		}
		trend = append(trend, DayCount{Date: day, Completed: n})
	}
	return trend
}

// PriorityCount is the number of tasks with one priority.
type PriorityCount struct {
	Priority backend.Priority `json:"priority" yaml:"priority"`
	Count    int              `json:"count" yaml:"count"`
}

// PriorityDistribution counts tasks by priority, high first. Empty buckets
// are omitted.
func PriorityDistribution(tasks []backend.Task) []PriorityCount {
	counts := make(map[backend.Priority]int)
	for _, t := range tasks {
		counts[t.Priority]++
	}

	var out []PriorityCount
	for _, p := range []backend.Priority{backend.PriorityHigh, backend.PriorityMedium, backend.PriorityLow} {
		if counts[p] > 0 {
			out = append(out, PriorityCount{Priority: p, Count: counts[p]})
		}
	}
	return out
}

// StatusCount splits tasks into completed and pending.
type StatusCount struct {
	Completed bool `json:"completed" yaml:"completed"`
	Count     int  `json:"count" yaml:"count"`
}

// StatusDistribution returns the completed and pending buckets, completed
// first. Empty buckets are omitted.
func StatusDistribution(tasks []backend.Task) []StatusCount {
	done := 0
	for _, t := range tasks {
		if t.Completed {
			done++
		}
	}

	var out []StatusCount
	if done > 0 {
		out = append(out, StatusCount{Completed: true, Count: done})
	}
	if pending := len(tasks) - done; pending > 0 {
		out = append(out, StatusCount{Completed: false, Count: pending})
	}
	return out
}

// WeekCount summarizes one Sunday-started week.
type WeekCount struct {
	Label     string    `json:"label" yaml:"label"`
	Start     time.Time `json:"start" yaml:"start"`
	Created   int       `json:"created" yaml:"created"`
	Completed int       `json:"completed" yaml:"completed"`
}

// WeeklyOverview returns the last 4 weeks, oldest first. The current week
// is "Week 4".
func WeeklyOverview(tasks []backend.Task, now time.Time) []WeekCount {
	current := startOfWeek(now)
	y, m, d := current.Date()
	loc := now.Location()

	weeks := make([]WeekCount, 0, 4)
	for i := 3; i >= 0; i-- {
		start := time.Date(y, m, d-7*i, 0, 0, 0, 0, loc)
		end := time.Date(y, m, d-7*i+7, 0, 0, 0, 0, loc)

		w := WeekCount{Label: weekLabel(4 - i), Start: start}
		for _, t := range tasks {
			if inRange(t.CreatedAt, start, end) {
				w.Created++
			}
			if t.Completed && inRange(t.UpdatedAt, start, end) {
				w.Completed++
			}
		}
		weeks = append(weeks, w)
	}
	return weeks
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

func weekLabel(n int) string {
	return fmt.Sprintf("Week %d", n)
}
