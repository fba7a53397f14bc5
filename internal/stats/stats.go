// Package stats derives counters and analytics from an in-memory task
// collection. Every function is pure; the caller supplies "now".
package stats

import (
	"time"

	"aitasks/backend"
)

// MaxStreak bounds the backward walk of Streak.
const MaxStreak = 30

// TaskStats holds the headline counters of a task collection.
type TaskStats struct {
	Total             int `json:"total" yaml:"total"`
	Completed         int `json:"completed" yaml:"completed"`
	Pending           int `json:"pending" yaml:"pending"`
	Overdue           int `json:"overdue" yaml:"overdue"`
	CompletedToday    int `json:"completedToday" yaml:"completed_today"`
	CompletedThisWeek int `json:"completedThisWeek" yaml:"completed_this_week"`
}

// startOfDay returns local midnight of t's calendar day.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek returns midnight of the most recent Sunday, today included.
func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	y, m, d := day.Date()
	return time.Date(y, m, d-int(day.Weekday()), 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// dayKey identifies a calendar day as yyyymmdd.
func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// Compute derives the counters of tasks relative to now. Completion time is
// approximated by UpdatedAt.
func Compute(tasks []backend.Task, now time.Time) TaskStats {
	today := startOfDay(now)
	weekStart := startOfWeek(now)

	s := TaskStats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
			if !t.UpdatedAt.Before(today) {
				s.CompletedToday++
			}
			if !t.UpdatedAt.Before(weekStart) {
				s.CompletedThisWeek++
			}
			continue
		}
		s.Pending++
		if t.IsOverdue(now) {
			s.Overdue++
		}
	}
	return s
}

// ComputeNow is Compute at the current time.
func ComputeNow(tasks []backend.Task) TaskStats {
	return Compute(tasks, time.Now())
}

// Streak counts consecutive calendar days, walking backward from today, on
// which at least one completed task was last updated. It stops at the first
// day without one and never exceeds MaxStreak.
func Streak(tasks []backend.Task, now time.Time) int {
	days := make(map[int]bool)
	loc := now.Location()
	for _, t := range tasks {
		if t.Completed {
			days[dayKey(t.UpdatedAt.In(loc))] = true
		}
	}
	if len(days) == 0 {
		return 0
	}

	y, m, d := now.Date()
	streak := 0
	for streak < MaxStreak {
		day := time.Date(y, m, d-streak, 0, 0, 0, 0, loc)
		if !days[dayKey(day)] {
			break
		}
		streak++
	}
	return streak
}
