package main

import (
	"errors"

	"aitasks/internal/utils"

	"github.com/spf13/cobra"
)

// addOutputFlags registers --json and --yaml on cmd.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "print JSON")
	cmd.Flags().Bool("yaml", false, "print YAML")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")
}

func outputFormat(cmd *cobra.Command) utils.OutputFormat {
	if v, _ := cmd.Flags().GetBool("json"); v {
		return utils.OutputJSON
	}
	if v, _ := cmd.Flags().GetBool("yaml"); v {
		return utils.OutputYAML
	}
	return utils.OutputText
}

// emit prints data in the structured format selected on cmd. It returns
// false when text output was requested and the caller should render.
func emit(cmd *cobra.Command, data interface{}) (bool, error) {
	format := outputFormat(cmd)
	if format == utils.OutputText {
		return false, nil
	}
	return true, utils.Emit(cmd.OutOrStdout(), format, data)
}

var errAborted = errors.New("aborted")
