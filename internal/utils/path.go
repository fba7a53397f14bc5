package utils

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	escapedTilde  = "\x00tilde\x00"
	escapedDollar = "\x00dollar\x00"
)

// ExpandPath expands ~ and environment variables in file paths.
// A leading backslash keeps the character literal.
// Examples:
//   - "~/data/file.txt" -> "/home/user/data/file.txt"
//   - "$HOME/data" -> "/home/user/data"
//   - `\~/literal` -> "~/literal"
func ExpandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}

	path = strings.ReplaceAll(path, `\~`, escapedTilde)
	path = strings.ReplaceAll(path, `\$`, escapedDollar)

	// Environment variables first, so $VAR may itself start with ~
	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") || path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			path = homeDir
		} else {
			path = filepath.Join(homeDir, path[2:])
		}
	}

	path = strings.ReplaceAll(path, escapedTilde, "~")
	path = strings.ReplaceAll(path, escapedDollar, "$")
	return path, nil
}

// XDGDir returns $<envVar>/aitasks, or fallback under the home directory
// when the variable is unset.
func XDGDir(envVar, fallback string) (string, error) {
	if dir := os.Getenv(envVar); dir != "" {
		return filepath.Join(dir, "aitasks"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, "aitasks"), nil
}
