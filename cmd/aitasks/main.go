package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"aitasks/internal/app"
	"aitasks/internal/utils"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	application *app.App

	configPath string
	callerFlag string
	verbose    bool
	logFormat  string
)

// commands that must work without a wired application
var standalone = map[string]bool{
	"credentials": true,
	"completion":  true,
	"help":        true,
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aitasks",
		Short: "AI-assisted task manager with local and cloud storage",
		Long: `aitasks keeps a task list in a local store and, when you are signed in
(--user or caller_id), in a cloud store with automatic fallback to the
local copy. Free-text input is parsed by a language model when one is
configured.

Examples:
  aitasks add "Call the dentist tomorrow, urgent"
  aitasks list --sort priority
  aitasks done "dentist"
  aitasks stats --analytics
  aitasks insights`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			format, err := utils.ParseLogFormat(logFormat)
			if err != nil {
				return err
			}
			utils.SetVerboseMode(verbose)
			utils.SetLogFormat(format)

			if standalone[topLevel(cmd).Name()] {
				return nil
			}
			application, err = app.NewApp(cmd.Context(), app.Options{
				ConfigPath:   configPath,
				CallerID:     callerFlag,
				CreateConfig: true,
			})
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if application != nil {
				application.Shutdown()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file or directory (default: $XDG_CONFIG_HOME/aitasks/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&callerFlag, "user", "u", "", "caller id; empty means anonymous (local store only)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")

	rootCmd.AddCommand(
		newListCmd(),
		newAddCmd(),
		newDoneCmd(true),
		newDoneCmd(false),
		newUpdateCmd(),
		newDeleteCmd(),
		newNoteCmd(),
		newStatsCmd(),
		newRankCmd(),
		newInsightsCmd(),
		newWatchCmd(),
		newServeCmd(),
		newStatusCmd(),
		newCredentialsCmd(),
	)
	return rootCmd
}

// topLevel returns the direct child of the root that cmd belongs to.
func topLevel(cmd *cobra.Command) *cobra.Command {
	for cmd.HasParent() && cmd.Parent().HasParent() {
		cmd = cmd.Parent()
	}
	return cmd
}

func main() {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
