package credentials

import (
	"os"
	"strings"
)

// EnvVarName returns the environment variable holding a secret.
// Example: "gemini" becomes "AITASKS_GEMINI_SECRET".
func EnvVarName(name string) string {
	normalized := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	return "AITASKS_" + normalized + "_SECRET"
}

// FromEnv returns the secret from the environment, or "".
func FromEnv(name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(EnvVarName(name)))
}
