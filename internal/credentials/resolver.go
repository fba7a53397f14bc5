package credentials

import (
	"errors"
	"fmt"

	"aitasks/internal/utils"
)

// Source indicates where a secret was found
type Source string

const (
	SourceKeyring Source = "keyring"
	SourceEnv     Source = "env"
	SourceConfig  Source = "config"
	SourceNone    Source = "none"
)

// Secret is a resolved secret value.
type Secret struct {
	Name   string
	Value  string
	Source Source
}

// Resolver finds secrets in priority order: keyring, environment, config.
type Resolver struct {
	useKeyring bool
}

// NewResolver creates a resolver. The keyring is probed once.
func NewResolver() *Resolver {
	return &Resolver{useKeyring: IsAvailable()}
}

// Resolve returns the secret called name. configValue is the value written
// in the configuration file, used last.
func (r *Resolver) Resolve(name, configValue string) (*Secret, error) {
	if name == "" {
		return nil, fmt.Errorf("secret name is required for resolution")
	}

	if r.useKeyring {
		value, err := Get(name)
		if err == nil {
			return &Secret{Name: name, Value: value, Source: SourceKeyring}, nil
		}
		if !errors.Is(err, ErrNotFound) {
			utils.Debugf("credentials: keyring lookup for %s failed: %v", name, err)
		}
	}

	if value := FromEnv(name); value != "" {
		return &Secret{Name: name, Value: value, Source: SourceEnv}, nil
	}

	if configValue != "" {
		return &Secret{Name: name, Value: configValue, Source: SourceConfig}, nil
	}

	return nil, fmt.Errorf("%s (tried: keyring, %s, config): %w", name, EnvVarName(name), ErrNotFound)
}

// Lookup is Resolve without the error: it returns "" when nothing is found.
func (r *Resolver) Lookup(name, configValue string) string {
	s, err := r.Resolve(name, configValue)
	if err != nil {
		return ""
	}
	utils.Debugf("credentials: %s secret from %s", name, s.Source)
	return s.Value
}
