// Package config loads and validates the gateway configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the gateway configuration
type Config struct {
	Port     int            `yaml:"port"`
	Bind     string         `yaml:"bind"`
	LogLevel string         `yaml:"log_level"`
	Platform PlatformConfig `yaml:"platform"`
}

// PlatformConfig holds FutureHouse platform client settings.
type PlatformConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"` // falls back to FUTUREHOUSE_API_KEY
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"` // overall wait deadline per task
}

// Defaults
const (
	DefaultPort         = 3001
	DefaultBind         = "0.0.0.0"
	DefaultLogLevel     = "info"
	DefaultBaseURL      = "https://api.platform.futurehouse.org"
	DefaultPollInterval = 2 * time.Second
	DefaultTimeout      = 10 * time.Minute

	// APIKeyEnv is consulted when no api_key is configured.
	APIKeyEnv = "FUTUREHOUSE_API_KEY"
)

// Parse parses YAML config data
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load loads config from a file path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Validate checks config validity
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.Platform.BaseURL == "" {
		return fmt.Errorf("platform base_url must not be empty")
	}

	if c.Platform.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("platform poll_interval must be at least 100ms, got %v", c.Platform.PollInterval)
	}

	if c.Platform.Timeout < time.Second {
		return fmt.Errorf("platform timeout must be at least 1 second, got %v", c.Platform.Timeout)
	}

	return nil
}

// Default returns a config with default values
func Default() *Config {
	return &Config{
		Port:     DefaultPort,
		Bind:     DefaultBind,
		LogLevel: DefaultLogLevel,
		Platform: PlatformConfig{
			BaseURL:      DefaultBaseURL,
			PollInterval: DefaultPollInterval,
			Timeout:      DefaultTimeout,
		},
	}
}

// ResolveAPIKey returns the configured API key, falling back to the
// FUTUREHOUSE_API_KEY environment variable. An empty result means the
// gateway cannot be constructed.
func (c *Config) ResolveAPIKey() string {
	if c.Platform.APIKey != "" {
		return c.Platform.APIKey
	}
	return os.Getenv(APIKeyEnv)
}
