package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"aitasks/backend"
	"aitasks/internal/utils"

	"github.com/bytedance/sonic"
)

// ParsedTaskInput is the structure extracted from free text.
type ParsedTaskInput struct {
	Title    string           `json:"title"`
	Deadline *time.Time       `json:"deadline,omitempty"`
	Priority backend.Priority `json:"priority"`
	Tags     []string         `json:"tags,omitempty"`
}

const parsePrompt = `Parse the following task input into structured data. Extract:
- title (required)
- deadline (optional, parse natural language dates relative to today, %s)
- priority (low, medium, high based on urgency indicators)
- tags (optional, extract relevant keywords)

Input: %q

Respond with valid JSON only:
{"title": "string", "deadline": "ISO date string or null", "priority": "low|medium|high", "tags": ["array", "of", "strings"]}

Examples:
Input: "Buy groceries tomorrow"
Output: {"title": "Buy groceries", "deadline": "2024-01-02T00:00:00.000Z", "priority": "medium", "tags": ["shopping", "groceries"]}

Input: "URGENT: Fix the bug in auth system"
Output: {"title": "Fix the bug in auth system", "deadline": null, "priority": "high", "tags": ["urgent", "bug", "auth"]}
`

// ParseTask extracts title, deadline, priority and tags from text. It
// returns nil when the gateway is unavailable or the answer is unusable.
func (g *Gateway) ParseTask(ctx context.Context, text string) *ParsedTaskInput {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	prompt := fmt.Sprintf(parsePrompt, g.clock().Format("Monday 2006-01-02"), text)
	out, err := g.generate(ctx, prompt)
	if err != nil {
		utils.Debugf("ai: parse task: %v", err)
		return nil
	}

	parsed, err := decodeParsedTask(out, text)
	if err != nil {
		utils.Debugf("ai: parse task: %v", err)
		return nil
	}
	return parsed
}

func decodeParsedTask(out, input string) (*ParsedTaskInput, error) {
	raw, ok := extractJSON(out, '{')
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object", errMalformed)
	}
	var payload map[string]any
	if err := sonic.UnmarshalString(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}

	p := &ParsedTaskInput{Title: input, Priority: backend.PriorityMedium}

	if title, ok := payload["title"].(string); ok && strings.TrimSpace(title) != "" {
		p.Title = strings.TrimSpace(title)
	}
	if prio, ok := payload["priority"].(string); ok {
		if v := backend.Priority(strings.ToLower(strings.TrimSpace(prio))); v.Valid() {
			p.Priority = v
		}
	}
	if deadline, ok := payload["deadline"].(string); ok {
		p.Deadline = parseDeadline(deadline)
	}
	if tags, ok := payload["tags"].([]any); ok {
		p.Tags = []string{}
		for _, tag := range tags {
			if s, ok := tag.(string); ok && strings.TrimSpace(s) != "" {
				p.Tags = append(p.Tags, strings.TrimSpace(s))
			}
		}
	}
	return p, nil
}

// parseDeadline accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDeadline(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return &t
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return &t
	}
	utils.Debugf("ai: ignoring unparseable deadline %q", s)
	return nil
}
