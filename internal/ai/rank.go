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

func rankPrompt(tasks []backend.Task) string {
	var sb strings.Builder
	sb.WriteString("Rank these tasks by priority considering:\n")
	sb.WriteString("- Deadline urgency\n")
	sb.WriteString("- Priority level (high > medium > low)\n")
	sb.WriteString("- Creation date (older tasks get slight priority boost)\n\n")
	sb.WriteString("Tasks:\n")
	for i, t := range tasks {
		deadline := "none"
		if t.Deadline != nil {
			deadline = t.Deadline.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(&sb, "%d: %s\n  - Priority: %s\n  - Deadline: %s\n  - Created: %s\n",
			i, t.Title, t.Priority, deadline, t.CreatedAt.UTC().Format(time.RFC3339))
	}
	sb.WriteString("\nRespond with just the reordered indices as JSON array: [2, 0, 1, 3, ...]\n")
	return sb.String()
}

// RankTasks reorders tasks by model-judged importance. The answer must be an
// exact permutation of the input indices; anything else returns tasks
// unchanged.
func (g *Gateway) RankTasks(ctx context.Context, tasks []backend.Task) []backend.Task {
	if len(tasks) == 0 || !g.IsAvailable() {
		return tasks
	}

	out, err := g.generate(ctx, rankPrompt(tasks))
	if err != nil {
		utils.Debugf("ai: rank tasks: %v", err)
		return tasks
	}

	order, err := decodePermutation(out, len(tasks))
	if err != nil {
		utils.Debugf("ai: rank tasks: %v", err)
		return tasks
	}

	ranked := make([]backend.Task, len(tasks))
	for i, idx := range order {
		ranked[i] = tasks[idx]
	}
	return ranked
}

func decodePermutation(out string, n int) ([]int, error) {
	raw, ok := extractJSON(out, '[')
	if !ok {
		return nil, fmt.Errorf("%w: no JSON array", errMalformed)
	}
	var order []int
	if err := sonic.UnmarshalString(raw, &order); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if len(order) != n {
		return nil, fmt.Errorf("%w: got %d indices for %d tasks", errMalformed, len(order), n)
	}
	seen := make([]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n || seen[idx] {
			return nil, fmt.Errorf("%w: %v is not a permutation", errMalformed, order)
		}
		seen[idx] = true
	}
	return order, nil
}
