package main

import (
	"fmt"

	"aitasks/backend"
	"aitasks/internal/cli"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Show the task list and refresh it live",
		Long: `Show the caller's tasks and redraw them whenever they change in the
cloud store. Needs a caller id, an initialized remote store and
remote.redis_url.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			caller := application.CallerID()
			repo := application.Repository()
			if !repo.Live(caller) {
				return fmt.Errorf("live updates need a caller id (--user), a reachable remote store and remote.redis_url")
			}

			updates := make(chan []backend.Task, 1)
			dispose := repo.SubscribeToTasks(cmd.Context(), caller, func(tasks []backend.Task) {
				select {
				case <-updates:
				default:
				}
				updates <- tasks
			})
			defer dispose()

			model := cli.NewWatchModel(caller, updates, displayOptions())
			_, err := tea.NewProgram(model, tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}

