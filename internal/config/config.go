package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"aitasks/internal/utils"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed config.sample.yaml
var sampleConfig []byte

const (
	CONFIG_DIR_PATH  = "aitasks"
	CONFIG_FILE_PATH = "config.yaml"
	CONFIG_DIR_PERM  = 0755
	CONFIG_FILE_PERM = 0600
)

// Config represents the application configuration.
type Config struct {
	CallerID    string `yaml:"caller_id"`
	DateFormat  string `yaml:"date_format,omitempty"` // Go time format string, defaults to "2006-01-02"
	DefaultSort string `yaml:"default_sort,omitempty" validate:"omitempty,oneof=created priority deadline ai"`

	Local  LocalConfig  `yaml:"local"`
	Remote RemoteConfig `yaml:"remote"`
	AI     AIConfig     `yaml:"ai"`
	Server ServerConfig `yaml:"server"`
}

// LocalConfig configures the on-device store.
type LocalConfig struct {
	DBPath string `yaml:"db_path,omitempty"`
}

// RemoteConfig configures the cloud store and its change feed.
type RemoteConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Table            string        `yaml:"table,omitempty" validate:"omitempty,alphanum,min=3,max=63"`
	ConnectionString string        `yaml:"connection_string,omitempty"`
	CreateTable      bool          `yaml:"create_table"`
	Timeout          time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
	RedisURL         string        `yaml:"redis_url,omitempty" validate:"omitempty,url"`
	Channel          string        `yaml:"channel,omitempty"`
}

// AIConfig configures the enrichment gateway.
type AIConfig struct {
	Enabled bool          `yaml:"enabled"`
	Model   string        `yaml:"model,omitempty"`
	APIKey  string        `yaml:"api_key,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
}

// ServerConfig configures `aitasks serve`.
type ServerConfig struct {
	Addr      string `yaml:"addr,omitempty"`
	JWTSecret string `yaml:"jwt_secret,omitempty"`
	JWKSURL   string `yaml:"jwks_url,omitempty" validate:"omitempty,url"`
	Audience  string `yaml:"audience,omitempty"`
	Issuer    string `yaml:"issuer,omitempty"`
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.DateFormat != "" && time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC).Format(c.DateFormat) == c.DateFormat {
		return utils.ErrInvalidConfig("date_format", "must be a Go layout such as 2006-01-02")
	}
	if c.Server.JWTSecret != "" && c.Server.JWKSURL != "" {
		return utils.ErrInvalidConfig("server", "set either jwt_secret or jwks_url, not both")
	}
	return nil
}

// GetDateFormat returns the display date layout.
func (c *Config) GetDateFormat() string {
	if c.DateFormat == "" {
		return "2006-01-02" // Default to yyyy-mm-dd
	}
	return c.DateFormat
}

// GetDefaultSort returns the list sort mode.
func (c *Config) GetDefaultSort() string {
	if c.DefaultSort == "" {
		return "created"
	}
	return c.DefaultSort
}

// GetConfigPath resolves the config file location. custom may name a file
// or a directory holding config.yaml.
func GetConfigPath(custom string) (string, error) {
	if custom != "" {
		expanded, err := utils.ExpandPath(custom)
		if err != nil {
			return "", err
		}
		if info, err := os.Stat(expanded); err == nil && info.IsDir() {
			return filepath.Join(expanded, CONFIG_FILE_PATH), nil
		}
		return expanded, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	return filepath.Join(dir, CONFIG_DIR_PATH, CONFIG_FILE_PATH), nil
}

// Sample returns the embedded sample configuration.
func Sample() []byte {
	return bytes.Clone(sampleConfig)
}

// WriteSample writes the sample configuration to path, creating its directory.
func WriteSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), CONFIG_DIR_PERM); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	return os.WriteFile(path, sampleConfig, CONFIG_FILE_PERM)
}

// Load reads, expands and validates the configuration at path. A missing
// file yields the sample configuration, written to path first when
// createIfMissing is set.
func Load(path string, createIfMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		utils.Debugf("No config at %s, using sample", path)
		if createIfMissing {
			if err := WriteSample(path); err != nil {
				return nil, err
			}
			utils.Infof("Created default configuration at %s", path)
		}
		data = sampleConfig
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML, applies environment overrides and path expansion, and
// validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets AITASKS_CALLER_ID and AITASKS_DB_PATH override the file.
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("AITASKS_CALLER_ID")); v != "" {
		c.CallerID = v
	}
	if v := strings.TrimSpace(os.Getenv("AITASKS_DB_PATH")); v != "" {
		c.Local.DBPath = v
	}
}

func (c *Config) expandPaths() error {
	expanded, err := utils.ExpandPath(c.Local.DBPath)
	if err != nil {
		return utils.ErrInvalidConfig("local.db_path", err.Error())
	}
	c.Local.DBPath = expanded
	return nil
}
