package main

import (
	"fmt"
	"time"

	"aitasks/backend"
	"aitasks/internal/ai"
	"aitasks/internal/cache"
	"aitasks/internal/cli"
	"aitasks/internal/operations"
	"aitasks/internal/stats"
	"aitasks/internal/utils"

	"github.com/spf13/cobra"
)

type statsOutput struct {
	stats.TaskStats `yaml:",inline"`
	Streak          int `json:"streak" yaml:"streak"`
}

func newStatsCmd() *cobra.Command {
	var analytics bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show completion statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := application.Tasks(cmd.Context())
			if err != nil {
				return err
			}
			now := time.Now()

			if analytics {
				if done, err := emit(cmd, stats.Analyze(res.Value, now)); done {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), cli.RenderAnalytics(res.Value, now, cli.GetTerminalWidth()))
				return nil
			}

			out := statsOutput{TaskStats: stats.Compute(res.Value, now), Streak: stats.Streak(res.Value, now)}
			if done, err := emit(cmd, out); done {
				return err
			}
			warnIfDegraded(cmd, res.Degraded(), res.Cause)
			fmt.Fprint(cmd.OutOrStdout(), cli.RenderStats(out.TaskStats, out.Streak, cli.GetTerminalWidth()))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&analytics, "analytics", "a", false, "show trends and distributions")
	addOutputFlags(cmd)
	return cmd
}

func newRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Order pending tasks by what to do next",
		Long: `Ask the language model to order pending tasks by urgency, importance
and deadline. Without a model the order is unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !application.Gateway().IsAvailable() {
				utils.Warnf("%v", utils.ErrAINotConfigured())
			}
			res, err := application.Tasks(cmd.Context())
			if err != nil {
				return err
			}
			filter := operations.Filter{Status: operations.StatusPending}
			ranked := operations.View(cmd.Context(), application.Gateway(), res.Value, filter, operations.SortAI)

			if done, err := emit(cmd, ranked); done {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), cli.RenderTasks("Next up", ranked, displayOptions()))
			return nil
		},
	}
	addOutputFlags(cmd)
	return cmd
}

func newInsightsCmd() *cobra.Command {
	var refresh bool
	var markRead string

	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Show today's productivity insights",
		Long: `Show up to three short insights generated from your tasks. Insights
are cached for the day; --refresh generates new ones.

Examples:
  aitasks insights
  aitasks insights --refresh
  aitasks insights --mark-read all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := application.InsightCache()

			if cmd.Flags().Changed("mark-read") {
				if c == nil {
					return fmt.Errorf("insight cache is not available")
				}
				id := markRead
				if id == "all" {
					id = ""
				}
				n, err := c.MarkRead(application.CallerID(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Marked %d insight(s) as read\n", n)
				return nil
			}

			res, err := application.Tasks(cmd.Context())
			if err != nil {
				return err
			}
			insights := loadInsights(cmd, c, res.Value, refresh)

			if done, err := emit(cmd, insights); done {
				return err
			}
			if len(insights) == 0 && !application.Gateway().IsAvailable() {
				fmt.Fprintln(cmd.ErrOrStderr(), utils.ErrAINotConfigured())
			}
			fmt.Fprint(cmd.OutOrStdout(), cli.RenderInsights(insights, cli.GetTerminalWidth()))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&refresh, "refresh", "r", false, "ignore today's cached insights")
	cmd.Flags().StringVar(&markRead, "mark-read", "", "mark an insight id, or 'all', as read")
	addOutputFlags(cmd)
	return cmd
}

func loadInsights(cmd *cobra.Command, c *cache.InsightCache, tasks []backend.Task, refresh bool) []ai.Insight {
	if c == nil {
		return application.Gateway().GenerateDailyInsights(cmd.Context(), tasks)
	}
	return cache.LoadInsightsWithFallback(cmd.Context(), c, application.Gateway(), application.CallerID(), tasks, time.Now(), refresh)
}
