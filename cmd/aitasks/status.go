package main

import (
	"fmt"

	"aitasks/internal/ai"
	"aitasks/internal/cli"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which store serves calls and whether AI is available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := application.Status()
			if done, err := emit(cmd, st); done {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderStatus(st.Route, application.Gateway().State()))
			fmt.Fprintf(cmd.OutOrStdout(), "Local store: %s\n", st.LocalPath)
			if st.LocalSize != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", st.LocalSize)
			}
			if st.LiveFeed {
				fmt.Fprintln(cmd.OutOrStdout(), "Live updates: enabled")
			}
			if application.Gateway().State() != ai.StateAvailable {
				fmt.Fprintln(cmd.OutOrStdout(), "AI enrichment is off: tasks are stored as typed and lists keep their order")
			}
			return nil
		},
	}
	addOutputFlags(cmd)
	return cmd
}
