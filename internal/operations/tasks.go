package operations

import (
	"fmt"
	"strings"

	"aitasks/backend"
)

// AmbiguousMatchError is returned when a query matches several tasks.
type AmbiguousMatchError struct {
	Query   string
	Matches []backend.Task
}

func (e *AmbiguousMatchError) Error() string {
	var titles []string
	for _, t := range e.Matches {
		titles = append(titles, fmt.Sprintf("%s (%s)", t.Title, t.ID))
	}
	return fmt.Sprintf("%d tasks match '%s': %s", len(e.Matches), e.Query, strings.Join(titles, ", "))
}

// FindTask resolves query against tasks. An exact id wins, then a unique
// exact title (case-insensitive), then a unique title substring.
func FindTask(tasks []backend.Task, query string) (*backend.Task, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty task reference")
	}

	for i := range tasks {
		if tasks[i].ID == query {
			return &tasks[i], nil
		}
	}

	var exactMatches, partialMatches []backend.Task
	queryLower := strings.ToLower(query)
	for _, t := range tasks {
		title := strings.ToLower(t.Title)
		switch {
		case title == queryLower:
			exactMatches = append(exactMatches, t)
		case strings.Contains(title, queryLower):
			partialMatches = append(partialMatches, t)
		}
	}

	switch {
	case len(exactMatches) == 1:
		return &exactMatches[0], nil
	case len(exactMatches) > 1:
		return nil, &AmbiguousMatchError{Query: query, Matches: exactMatches}
	case len(partialMatches) == 1:
		return &partialMatches[0], nil
	case len(partialMatches) > 1:
		return nil, &AmbiguousMatchError{Query: query, Matches: partialMatches}
	}
	return nil, fmt.Errorf("no tasks found matching '%s'", query)
}
