package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringServicePrefix is the prefix for all aitasks keyring entries
	KeyringServicePrefix = "aitasks"

	// keyringAccount is the account every secret is stored under.
	keyringAccount = "default"
)

// Known secret names.
const (
	SecretGemini = "gemini"
	SecretAzure  = "azure"
	SecretRedis  = "redis"
	SecretJWT    = "jwt"
)

// KnownSecrets lists the secrets the application reads.
var KnownSecrets = []string{SecretGemini, SecretAzure, SecretRedis, SecretJWT}

// ErrNotFound is returned when no source holds the secret.
var ErrNotFound = errors.New("secret not found")

func serviceName(name string) string {
	return fmt.Sprintf("%s-%s", KeyringServicePrefix, strings.ToLower(name))
}

// Set stores a secret in the OS keyring
func Set(name, secret string) error {
	if name == "" {
		return fmt.Errorf("secret name cannot be empty")
	}
	if secret == "" {
		return fmt.Errorf("secret cannot be empty")
	}
	if err := keyring.Set(serviceName(name), keyringAccount, secret); err != nil {
		return fmt.Errorf("failed to store secret in keyring: %w", err)
	}
	return nil
}

// Get retrieves a secret from the OS keyring
func Get(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("secret name cannot be empty")
	}
	secret, err := keyring.Get(serviceName(name), keyringAccount)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("no %s secret in keyring: %w", name, ErrNotFound)
		}
		return "", fmt.Errorf("failed to retrieve secret from keyring: %w", err)
	}
	return secret, nil
}

// Delete removes a secret from the OS keyring
func Delete(name string) error {
	if name == "" {
		return fmt.Errorf("secret name cannot be empty")
	}
	if err := keyring.Delete(serviceName(name), keyringAccount); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s secret in keyring: %w", name, ErrNotFound)
		}
		return fmt.Errorf("failed to delete secret from keyring: %w", err)
	}
	return nil
}

// IsAvailable checks if the keyring is accessible
func IsAvailable() bool {
	// a missing probe entry still proves the keyring answers
	_, err := keyring.Get(serviceName("keyring-test"), keyringAccount)
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
