package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"aitasks/internal/credentials"
	"aitasks/internal/utils"

	"github.com/spf13/cobra"
)

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage secrets",
		Long: `Securely manage secrets using the system keyring.

Secrets are looked up in three places (in priority order):
  1. System keyring (most secure) - recommended
  2. Environment variables AITASKS_<NAME>_SECRET (good for CI/CD)
  3. The config file (least secure)

Known secrets: ` + strings.Join(credentials.KnownSecrets, ", ") + `
  gemini  language model API key
  azure   storage connection string
  redis   change feed URL (redis://...)
  jwt     HS256 secret for 'aitasks serve'

Examples:
  aitasks credentials set gemini
  aitasks credentials get azure
  aitasks credentials delete jwt`,
	}

	cmd.AddCommand(newCredentialsSetCmd())
	cmd.AddCommand(newCredentialsGetCmd())
	cmd.AddCommand(newCredentialsDeleteCmd())
	return cmd
}

func checkSecretName(name string) error {
	if !slices.Contains(credentials.KnownSecrets, name) {
		return fmt.Errorf("unknown secret %q: expected one of %s", name, strings.Join(credentials.KnownSecrets, ", "))
	}
	return nil
}

func newCredentialsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "set <name> [value]",
		Short:     "Store a secret in the system keyring",
		Long:      "Store a secret. Without a value it is read interactively, which keeps it out of shell history.",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: credentials.KnownSecrets,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToLower(args[0])
			if err := checkSecretName(name); err != nil {
				return err
			}

			var value string
			if len(args) == 2 {
				value = args[1]
			} else {
				var err error
				value, err = utils.PromptSecret(fmt.Sprintf("Enter %s secret: ", name))
				if err != nil {
					return fmt.Errorf("failed to read secret: %w", err)
				}
			}
			if value == "" {
				return fmt.Errorf("secret cannot be empty")
			}

			if err := credentials.Set(name, value); err != nil {
				if !credentials.IsAvailable() {
					return fmt.Errorf("system keyring is not available. Try an environment variable instead:\n  export %s=<secret>", credentials.EnvVarName(name))
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s secret in the system keyring\n", name)
			return nil
		},
	}
}

func newCredentialsGetCmd() *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:       "get <name>",
		Short:     "Check where a secret is found",
		Args:      cobra.ExactArgs(1),
		ValidArgs: credentials.KnownSecrets,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToLower(args[0])
			if err := checkSecretName(name); err != nil {
				return err
			}
			secret, err := credentials.NewResolver().Resolve(name, "")
			if err != nil {
				if errors.Is(err, credentials.ErrNotFound) {
					return utils.ErrCredentialsNotFound(name)
				}
				return err
			}
			value := mask(secret.Value)
			if show {
				value = secret.Value
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (source: %s)\n", name, value, secret.Source)
			return nil
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "print the secret in clear")
	return cmd
}

func newCredentialsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "delete <name>",
		Short:     "Remove a secret from the system keyring",
		Args:      cobra.ExactArgs(1),
		ValidArgs: credentials.KnownSecrets,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToLower(args[0])
			if err := checkSecretName(name); err != nil {
				return err
			}
			if err := credentials.Delete(name); err != nil {
				if errors.Is(err, credentials.ErrNotFound) {
					return utils.ErrCredentialsNotFound(name)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s secret from the system keyring\n", name)
			return nil
		},
	}
}

// mask keeps the first and last two characters of long secrets.
func mask(s string) string {
	if len(s) <= 6 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
