package operations

import (
	"context"
	"strings"
	"time"

	"aitasks/backend"
	"aitasks/backend/sync"
	"aitasks/internal/ai"
	"aitasks/internal/utils"
)

// CreateOptions carries explicit flags for CreateFromText. Set fields take
// precedence over anything the model suggests.
type CreateOptions struct {
	UseAI       bool
	Priority    backend.Priority
	Deadline    *time.Time
	Tags        []string
	FolderID    string
	Description string
}

// DraftFromText builds the draft for free text. The fallback is the trimmed
// text as title, medium priority and no tags.
func DraftFromText(ctx context.Context, gw *ai.Gateway, text string, opts CreateOptions) backend.TaskDraft {
	draft := backend.TaskDraft{
		Title:    strings.TrimSpace(text),
		Priority: backend.PriorityMedium,
		Tags:     []string{},
	}

	if opts.UseAI && gw.IsAvailable() {
		if parsed := gw.ParseTask(ctx, text); parsed != nil {
			utils.Debugf("Parsed %q as title=%q priority=%s", text, parsed.Title, parsed.Priority)
			draft.Title = parsed.Title
			draft.Priority = parsed.Priority
			draft.Deadline = parsed.Deadline
			if parsed.Tags != nil {
				draft.Tags = parsed.Tags
			}
		}
	}

	if opts.Priority != "" {
		draft.Priority = opts.Priority
	}
	if opts.Deadline != nil {
		draft.Deadline = opts.Deadline
	}
	if len(opts.Tags) > 0 {
		draft.Tags = opts.Tags
	}
	draft.FolderID = opts.FolderID
	draft.Description = opts.Description
	return draft
}

// CreateFromText turns free text into a task and stores it through repo.
func CreateFromText(ctx context.Context, repo *sync.Repository, gw *ai.Gateway, callerID, text string, opts CreateOptions) (sync.Result[backend.Task], error) {
	draft := DraftFromText(ctx, gw, text, opts)
	return repo.AddTask(ctx, callerID, draft)
}
