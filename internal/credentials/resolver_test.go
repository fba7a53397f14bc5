package credentials

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestResolverPriority(t *testing.T) {
	tests := []struct {
		name        string
		keyring     string
		env         string
		config      string
		wantValue   string
		wantSource  Source
		wantMissing bool
	}{
		{"keyring wins", "from-keyring", "from-env", "from-config", "from-keyring", SourceKeyring, false},
		{"env over config", "", "from-env", "from-config", "from-env", SourceEnv, false},
		{"config last", "", "", "from-config", "from-config", SourceConfig, false},
		{"nothing", "", "", "", "", SourceNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keyring.MockInit()
			if tt.keyring != "" {
				if err := Set(SecretGemini, tt.keyring); err != nil {
					t.Fatalf("Set() error = %v", err)
				}
			}
			t.Setenv(EnvVarName(SecretGemini), tt.env)

			r := NewResolver()
			got, err := r.Resolve(SecretGemini, tt.config)
			if tt.wantMissing {
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("Resolve() error = %v, want ErrNotFound", err)
				}
				if r.Lookup(SecretGemini, tt.config) != "" {
					t.Error("Lookup() should be empty")
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got.Value != tt.wantValue || got.Source != tt.wantSource {
				t.Errorf("Resolve() = %+v, want %s from %s", got, tt.wantValue, tt.wantSource)
			}
			if r.Lookup(SecretGemini, tt.config) != tt.wantValue {
				t.Error("Lookup() should match Resolve()")
			}
		})
	}
}

func TestResolverWithoutKeyring(t *testing.T) {
	keyring.MockInitWithError(errors.New("no secret service"))
	defer keyring.MockInit()
	t.Setenv(EnvVarName(SecretJWT), "env-secret")

	got, err := NewResolver().Resolve(SecretJWT, "")
	if err != nil || got.Source != SourceEnv {
		t.Errorf("Resolve() = %+v, %v", got, err)
	}
}

func TestResolverEmptyName(t *testing.T) {
	if _, err := NewResolver().Resolve("", "x"); err == nil {
		t.Error("expected error for empty name")
	}
}
