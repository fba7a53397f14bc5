package utils

import (
	"fmt"
	"strings"
)

// ErrorWithSuggestion wraps an error with a helpful suggestion for the user
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap allows errors.Is and errors.As to work
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// ErrTaskNotFound creates an error when a task is not found
func ErrTaskNotFound(ref string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("no task found matching '%s'", ref),
		Suggestion: "Run 'aitasks list' to see task ids and titles",
	}
}

// ErrRemoteUnavailable explains a call that fell back to the local store.
func ErrRemoteUnavailable(reason string) error {
	suggestion := "Check your internet connection and try again"
	switch {
	case strings.Contains(reason, "no such host"):
		suggestion = "Check your DNS settings and the remote.connection_string account name"
	case strings.Contains(reason, "refused"):
		suggestion = "Check if the storage endpoint is running and accessible"
	case strings.Contains(reason, "timeout"), strings.Contains(reason, "deadline exceeded"):
		suggestion = "The remote store may be slow or unreachable. Raise remote.timeout or try again later"
	case strings.Contains(reason, "403"), strings.Contains(reason, "AuthenticationFailed"):
		suggestion = "Check the stored secret with 'aitasks credentials get azure'"
	}

	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("remote store unavailable: %s", reason),
		Suggestion: suggestion,
	}
}

// ErrAINotConfigured is returned by commands that need the language model.
func ErrAINotConfigured() error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("AI enrichment is unavailable"),
		Suggestion: "Set ai.enabled: true and store a key with 'aitasks credentials set gemini'",
	}
}

// ErrInvalidDate creates an error for invalid date formats
func ErrInvalidDate(dateStr string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid date format: %s", dateStr),
		Suggestion: "Use YYYY-MM-DD, today, tomorrow or +Nd (e.g., 2026-01-15, +3d)",
	}
}

// ErrInvalidPriority creates an error for invalid priority values
func ErrInvalidPriority(priority string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid priority: %s", priority),
		Suggestion: "Priority must be one of: low, medium, high",
	}
}

// ErrCredentialsNotFound creates an error when a secret is not found
func ErrCredentialsNotFound(name string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("no secret stored for %s", name),
		Suggestion: fmt.Sprintf("Store it with 'aitasks credentials set %s' or export AITASKS_%s_SECRET", name, strings.ToUpper(name)),
	}
}

// ErrUnauthenticated is returned when the server cannot verify a bearer token.
func ErrUnauthenticated(reason string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("authentication failed: %s", reason),
		Suggestion: "Send a valid 'Authorization: Bearer <token>' header or omit it to use the local store",
	}
}

// ErrInvalidConfig creates an error for invalid configuration
func ErrInvalidConfig(field string, reason string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid configuration for '%s': %s", field, reason),
		Suggestion: fmt.Sprintf("Check ~/.config/aitasks/config.yaml and fix the '%s' field", field),
	}
}

// WrapWithSuggestion wraps an existing error with a suggestion
func WrapWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}
