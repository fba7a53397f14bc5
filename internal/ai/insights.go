package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"aitasks/backend"
	"aitasks/internal/stats"
	"aitasks/internal/utils"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// MaxInsights caps GenerateDailyInsights.
const MaxInsights = 3

// InsightType classifies an insight.
type InsightType string

const (
	InsightSuggestion InsightType = "suggestion"
	InsightPriority   InsightType = "priority"
	InsightSummary    InsightType = "summary"
)

// Insight is a short advisory message about the day's productivity.
type Insight struct {
	ID        string      `json:"id" yaml:"id"`
	Type      InsightType `json:"type" yaml:"type"`
	Content   string      `json:"content" yaml:"content"`
	CreatedAt time.Time   `json:"createdAt" yaml:"created_at"`
	IsRead    bool        `json:"isRead" yaml:"is_read"`
}

func insightPrompt(tasks []backend.Task, now time.Time) string {
	s := stats.Compute(tasks, now)

	var doneToday, overdue []string
	highPending := 0
	y, m, d := now.Date()
	for _, t := range tasks {
		if t.Completed {
			ty, tm, td := t.UpdatedAt.In(now.Location()).Date()
			if ty == y && tm == m && td == d && len(doneToday) < 3 {
				doneToday = append(doneToday, t.Title)
			}
			continue
		}
		if t.Priority == backend.PriorityHigh {
			highPending++
		}
		if t.IsOverdue(now) && len(overdue) < 3 {
			overdue = append(overdue, t.Title)
		}
	}

	return fmt.Sprintf(`Generate 2-3 brief insights about today's productivity based on this data:

Total tasks: %d
Completed today: %d
Overdue tasks: %d
High priority pending: %d

Sample completed tasks: %s
Sample overdue tasks: %s

Respond with JSON array of insights:
[
  {"type": "summary", "content": "brief summary"},
  {"type": "suggestion", "content": "actionable suggestion"},
  {"type": "priority", "content": "priority recommendation"}
]

Keep each insight under 50 words.
`, s.Total, s.CompletedToday, s.Overdue, highPending,
		strings.Join(doneToday, ", "), strings.Join(overdue, ", "))
}

// GenerateDailyInsights asks the model for up to MaxInsights short
// insights. It returns an empty slice on any failure or for empty input.
func (g *Gateway) GenerateDailyInsights(ctx context.Context, tasks []backend.Task) []Insight {
	if len(tasks) == 0 || !g.IsAvailable() {
		return []Insight{}
	}

	now := g.clock()
	out, err := g.generate(ctx, insightPrompt(tasks, now))
	if err != nil {
		utils.Debugf("ai: daily insights: %v", err)
		return []Insight{}
	}

	insights, err := decodeInsights(out, now)
	if err != nil {
		utils.Debugf("ai: daily insights: %v", err)
		return []Insight{}
	}
	return insights
}

func decodeInsights(out string, now time.Time) ([]Insight, error) {
	raw, ok := extractJSON(out, '[')
	if !ok {
		return nil, fmt.Errorf("%w: no JSON array", errMalformed)
	}
	var items []map[string]any
	if err := sonic.UnmarshalString(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}

	insights := []Insight{}
	for _, item := range items {
		if len(insights) == MaxInsights {
			break
		}
		content, _ := item["content"].(string)
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		typ := InsightSummary
		if s, ok := item["type"].(string); ok {
			switch InsightType(s) {
			case InsightSuggestion, InsightPriority, InsightSummary:
				typ = InsightType(s)
			}
		}
		insights = append(insights, Insight{
			ID:        uuid.NewString(),
			Type:      typ,
			Content:   content,
			CreatedAt: now,
		})
	}
	return insights, nil
}
