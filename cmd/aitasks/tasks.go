package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"aitasks/backend"
	"aitasks/internal/cli"
	"aitasks/internal/operations"
	"aitasks/internal/utils"

	"github.com/spf13/cobra"
)

func displayOptions() cli.DisplayOptions {
	return cli.DisplayOptions{
		Width:      cli.GetTerminalWidth(),
		DateFormat: application.Config().GetDateFormat(),
		Now:        time.Now(),
	}
}

// taskCompletion lists the caller's tasks for shell completion.
var taskCompletion = cli.TaskCompletion(func() []backend.Task {
	if application == nil {
		return nil
	}
	res, err := application.Tasks(context.Background())
	if err != nil {
		return nil
	}
	return res.Value
})

func warnIfDegraded(cmd *cobra.Command, degraded bool, cause error) {
	if degraded {
		fmt.Fprintln(cmd.ErrOrStderr(), cli.DegradedWarning(cause))
	}
}

func newListCmd() *cobra.Command {
	var status, sortMode, folder, tag string
	var showIDs, showNotes bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Long: `List the caller's tasks.

Examples:
  aitasks list                          # newest first
  aitasks list --status pending --sort deadline
  aitasks list --sort ai                # ranked by the language model
  aitasks list --tag work --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statusFilter, err := operations.ParseStatusFilter(status)
			if err != nil {
				return err
			}
			if sortMode == "" {
				sortMode = application.Config().GetDefaultSort()
			}
			mode, err := operations.ParseSortMode(sortMode)
			if err != nil {
				return err
			}

			res, err := application.Tasks(cmd.Context())
			if err != nil {
				return err
			}
			filter := operations.Filter{Status: statusFilter, FolderID: folder, Tag: tag}
			tasks := operations.View(cmd.Context(), application.Gateway(), res.Value, filter, mode)

			if done, err := emit(cmd, tasks); done {
				return err
			}
			warnIfDegraded(cmd, res.Degraded(), res.Cause)
			opts := displayOptions()
			opts.ShowIDs = showIDs
			opts.ShowNotes = showNotes
			fmt.Fprint(cmd.OutOrStdout(), cli.RenderTasks("Tasks", tasks, opts))
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "all", "all, pending or completed")
	cmd.Flags().StringVar(&sortMode, "sort", "", "created, priority, deadline or ai (default from config)")
	cmd.Flags().StringVar(&folder, "folder", "", "only tasks in this folder")
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "only tasks with this tag")
	cmd.Flags().BoolVar(&showIDs, "ids", false, "show task ids")
	cmd.Flags().BoolVarP(&showNotes, "notes", "n", false, "show sub-notes")
	addOutputFlags(cmd)
	_ = cmd.RegisterFlagCompletionFunc("sort", cli.FixedCompletion("created", "priority", "deadline", "ai"))
	_ = cmd.RegisterFlagCompletionFunc("status", cli.FixedCompletion("all", "pending", "completed"))
	return cmd
}

func newAddCmd() *cobra.Command {
	var noAI bool
	var priority, deadline, folder, description string
	var tags []string

	cmd := &cobra.Command{
		Use:   "add <text...>",
		Short: "Add a task from free text",
		Long: `Add a task. When a language model is configured the text is parsed
for a title, deadline, priority and tags; explicit flags always win.

Examples:
  aitasks add "Submit the report by friday, high priority"
  aitasks add "Buy milk" --no-ai --tag home --deadline tomorrow`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := createOptions(!noAI, priority, deadline, tags, folder, description, time.Now())
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			res, err := operations.CreateFromText(cmd.Context(), application.Repository(), application.Gateway(), application.CallerID(), text, opts)
			if err != nil {
				return err
			}
			if !res.Succeeded() {
				return utils.ErrRemoteUnavailable(res.Cause.Error())
			}

			if done, err := emit(cmd, res.Value); done {
				return err
			}
			warnIfDegraded(cmd, res.Degraded(), res.Cause)
			fmt.Fprintf(cmd.OutOrStdout(), "Added to %s store:\n", res.Store)
			display := displayOptions()
			display.ShowIDs = true
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(cli.FormatTask(res.Value, display), "\n"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noAI, "no-ai", false, "store the text as the title without parsing")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "low, medium or high")
	cmd.Flags().StringVarP(&deadline, "deadline", "d", "", "YYYY-MM-DD, today, tomorrow, +Nd or +Nw")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag (repeatable)")
	cmd.Flags().StringVar(&folder, "folder", "", "folder id")
	cmd.Flags().StringVar(&description, "description", "", "longer description")
	addOutputFlags(cmd)
	_ = cmd.RegisterFlagCompletionFunc("priority", cli.FixedCompletion("low", "medium", "high"))
	return cmd
}

// createOptions validates the add flags.
func createOptions(useAI bool, priority, deadline string, tags []string, folder, description string, now time.Time) (operations.CreateOptions, error) {
	opts := operations.CreateOptions{
		UseAI:       useAI,
		Tags:        tags,
		FolderID:    folder,
		Description: description,
	}
	p, err := operations.ParsePriority(priority)
	if err != nil {
		return opts, utils.ErrInvalidPriority(priority)
	}
	opts.Priority = p

	d, err := operations.ParseDateFlag(deadline, now)
	if err != nil {
		return opts, utils.ErrInvalidDate(deadline)
	}
	opts.Deadline = d
	return opts, nil
}

// newDoneCmd builds `done` (completed=true) or `undo` (completed=false).
func newDoneCmd(completed bool) *cobra.Command {
	use, short := "done <id|title>", "Mark a task as completed"
	if !completed {
		use, short = "undo <id|title>", "Mark a task as pending again"
	}
	return &cobra.Command{
		Use:               use,
		Short:             short,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: taskCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := application.Update(cmd.Context(), args[0], backend.TaskPatch{Completed: &completed})
			if err != nil {
				return err
			}
			warnIfDegraded(cmd, res.Degraded(), res.Cause)
			state := "completed"
			if !completed {
				state = "pending"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %q as %s\n", res.Value.Title, state)
			return nil
		},
	}
}

func newUpdateCmd() *cobra.Command {
	var title, description, priority, deadline, folder string
	var tags []string
	var clearDeadline bool

	cmd := &cobra.Command{
		Use:   "update <id|title>",
		Short: "Change fields of a task",
		Long: `Change fields of a task. Only the flags given are changed.

Examples:
  aitasks update "milk" --priority high --deadline +2d
  aitasks update abc123 --title "Buy oat milk" --clear-deadline`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: taskCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := buildPatch(cmd, title, description, priority, deadline, folder, tags, clearDeadline, time.Now())
			if err != nil {
				return err
			}
			res, err := application.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			if done, err := emit(cmd, res.Value); done {
				return err
			}
			warnIfDegraded(cmd, res.Degraded(), res.Cause)
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(cli.FormatTask(res.Value, displayOptions()), "\n"))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "low, medium or high")
	cmd.Flags().StringVarP(&deadline, "deadline", "d", "", "YYYY-MM-DD, today, tomorrow, +Nd or +Nw")
	cmd.Flags().BoolVar(&clearDeadline, "clear-deadline", false, "remove the deadline")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "replace tags (repeatable)")
	cmd.Flags().StringVar(&folder, "folder", "", "move to folder")
	cmd.MarkFlagsMutuallyExclusive("deadline", "clear-deadline")
	addOutputFlags(cmd)
	return cmd
}

// buildPatch turns the flags that were set on cmd into a patch.
func buildPatch(cmd *cobra.Command, title, description, priority, deadline, folder string, tags []string, clearDeadline bool, now time.Time) (backend.TaskPatch, error) {
	var patch backend.TaskPatch
	flags := cmd.Flags()
	if flags.Changed("title") {
		patch.Title = &title
	}
	if flags.Changed("description") {
		patch.Description = &description
	}
	if flags.Changed("priority") {
		p, err := backend.ParsePriority(priority)
		if err != nil {
			return patch, utils.ErrInvalidPriority(priority)
		}
		patch.Priority = &p
	}
	if flags.Changed("deadline") {
		d, err := operations.ParseDateFlag(deadline, now)
		if err != nil || d == nil {
			return patch, utils.ErrInvalidDate(deadline)
		}
		patch.Deadline = d
	}
	patch.ClearDeadline = clearDeadline
	if flags.Changed("tag") {
		patch.Tags = &tags
	}
	if flags.Changed("folder") {
		patch.FolderID = &folder
	}
	if patch.IsEmpty() {
		return patch, fmt.Errorf("nothing to update: pass at least one of --title, --description, --priority, --deadline, --clear-deadline, --tag or --folder")
	}
	return patch, nil
}

func newDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:               "delete <id|title>",
		Aliases:           []string{"rm"},
		Short:             "Delete a task",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: taskCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := application.FindTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !force && !utils.PromptYesNo(fmt.Sprintf("Delete %q?", task.Title)) {
				return errAborted
			}
			res, err := application.Delete(cmd.Context(), task.ID)
			if err != nil {
				return err
			}
			warnIfDegraded(cmd, res.Degraded(), res.Cause)
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", task.Title)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
	return cmd
}

func newNoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage sub-notes of a task",
		Long: `Manage the ordered sub-notes (checklist items, numbered steps or plain
text) of a task. Notes are referenced by id or 1-based position.

Examples:
  aitasks note add "trip" "pack charger"
  aitasks note add "trip" "book hotel" --kind numbered
  aitasks note toggle "trip" 1
  aitasks note remove "trip" 2`,
	}

	var kind string
	add := &cobra.Command{
		Use:               "add <task> <content...>",
		Short:             "Append a sub-note",
		Args:              cobra.MinimumNArgs(2),
		ValidArgsFunction: taskCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return editNotes(cmd, args[0], func(task backend.Task) (backend.TaskPatch, error) {
				return operations.AddSubNote(task, strings.Join(args[1:], " "), backend.SubNoteKind(kind), time.Now())
			})
		},
	}
	add.Flags().StringVarP(&kind, "kind", "k", string(backend.SubNoteChecklist), "checklist, numbered or text")
	_ = add.RegisterFlagCompletionFunc("kind", cli.FixedCompletion("checklist", "numbered", "text"))

	toggle := &cobra.Command{
		Use:               "toggle <task> <note>",
		Short:             "Flip a sub-note between done and pending",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: taskCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return editNotes(cmd, args[0], func(task backend.Task) (backend.TaskPatch, error) {
				return operations.ToggleSubNote(task, args[1])
			})
		},
	}

	remove := &cobra.Command{
		Use:               "remove <task> <note>",
		Aliases:           []string{"rm"},
		Short:             "Remove a sub-note",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: taskCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return editNotes(cmd, args[0], func(task backend.Task) (backend.TaskPatch, error) {
				return operations.RemoveSubNote(task, args[1])
			})
		},
	}

	cmd.AddCommand(add, toggle, remove)
	return cmd
}

func editNotes(cmd *cobra.Command, ref string, edit func(backend.Task) (backend.TaskPatch, error)) error {
	task, err := application.FindTask(cmd.Context(), ref)
	if err != nil {
		return err
	}
	patch, err := edit(*task)
	if err != nil {
		return err
	}
	res, err := application.Update(cmd.Context(), task.ID, patch)
	if err != nil {
		return err
	}
	warnIfDegraded(cmd, res.Degraded(), res.Cause)
	opts := displayOptions()
	opts.ShowNotes = true
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(cli.FormatTask(res.Value, opts), "\n"))
	return nil
}
