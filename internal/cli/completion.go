package cli

import (
	"strings"

	"aitasks/backend"

	"github.com/spf13/cobra"
)

// TaskCompletion completes task ids for commands taking <id> arguments.
// load is only called when completion is requested.
func TaskCompletion(load func() []backend.Task) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		var completions []string
		for _, t := range load() {
			if strings.HasPrefix(t.ID, toComplete) {
				// "id\tdescription" shows the title in zsh and fish
				completions = append(completions, t.ID+"\t"+t.Title)
			}
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}

// FixedCompletion completes a flag from a fixed set of values.
func FixedCompletion(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var out []string
		for _, v := range values {
			if strings.HasPrefix(v, strings.ToLower(toComplete)) {
				out = append(out, v)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}
