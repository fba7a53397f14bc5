package operations

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"aitasks/backend"
	"aitasks/internal/ai"
)

// StatusFilter selects tasks by completion.
type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusPending   StatusFilter = "pending"
	StatusCompleted StatusFilter = "completed"
)

// SortMode orders a task view.
type SortMode string

const (
	SortCreated  SortMode = "created"
	SortPriority SortMode = "priority"
	SortDeadline SortMode = "deadline"
	SortAI       SortMode = "ai"
)

// Filter narrows a task list. Empty fields match everything.
type Filter struct {
	Status   StatusFilter
	FolderID string
	Tag      string
}

// ParseStatusFilter validates a --status flag value.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch StatusFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusPending, "active", "todo":
		return StatusPending, nil
	case StatusCompleted, "done":
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("invalid status %q: expected all, pending or completed", s)
}

// ParseSortMode validates a --sort flag value.
func ParseSortMode(s string) (SortMode, error) {
	switch m := SortMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return SortCreated, nil
	case SortCreated, SortPriority, SortDeadline, SortAI:
		return m, nil
	}
	return "", fmt.Errorf("invalid sort %q: expected created, priority, deadline or ai", s)
}

// ParsePriority parses a --priority flag value. Empty means unset.
func ParsePriority(s string) (backend.Priority, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return backend.ParsePriority(s)
}

// FilterTasks returns the tasks matching f, preserving order.
func FilterTasks(tasks []backend.Task, f Filter) []backend.Task {
	out := []backend.Task{}
	for _, t := range tasks {
		switch f.Status {
		case StatusPending:
			if t.Completed {
				continue
			}
		case StatusCompleted:
			if !t.Completed {
				continue
			}
		}
		if f.FolderID != "" && t.FolderID != f.FolderID {
			continue
		}
		if f.Tag != "" && !t.HasTag(f.Tag) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SortTasks returns a sorted copy of tasks. SortAI is not handled here; it
// falls back to SortCreated (use RankView).
func SortTasks(tasks []backend.Task, mode SortMode) []backend.Task {
	out := make([]backend.Task, len(tasks))
	copy(out, tasks)
	switch mode {
	case SortPriority:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Priority.Weight() > out[j].Priority.Weight()
		})
	case SortDeadline:
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].Deadline, out[j].Deadline
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			}
			return a.Before(*b)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out
}

// RankView ranks the pending tasks through the gateway and appends the
// completed ones in their original order.
func RankView(ctx context.Context, gw *ai.Gateway, tasks []backend.Task) []backend.Task {
	var pending, completed []backend.Task
	for _, t := range tasks {
		if t.Completed {
			completed = append(completed, t)
		} else {
			pending = append(pending, t)
		}
	}

	out := make([]backend.Task, 0, len(tasks))
	out = append(out, gw.RankTasks(ctx, pending)...)
	return append(out, completed...)
}

// View applies filter then mode to tasks.
func View(ctx context.Context, gw *ai.Gateway, tasks []backend.Task, f Filter, mode SortMode) []backend.Task {
	filtered := FilterTasks(tasks, f)
	if mode == SortAI {
		return RankView(ctx, gw, filtered)
	}
	return SortTasks(filtered, mode)
}
