// Package config loads service configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Trigger  TriggerConfig  `yaml:"trigger"`
	Sources  SourcesConfig  `yaml:"sources"`
	Email    EmailConfig    `yaml:"email"`
	SMS      SMSConfig      `yaml:"sms"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	BaseURL string `yaml:"base_url"`
	Port    int    `yaml:"port"`
}

// TriggerConfig configures how ticks are triggered.
type TriggerConfig struct {
	// Token authenticates POST /tick callers. Required for serve mode.
	Token string `yaml:"token"`
	// Schedule is an optional cron expression for self-triggered ticks
	// (e.g. "0 */3 * * *"). Empty means external triggers only.
	Schedule string `yaml:"schedule"`
}

// SourcesConfig enables or disables the platform fetchers.
type SourcesConfig struct {
	Codeforces SourceConfig `yaml:"codeforces"`
	AtCoder    SourceConfig `yaml:"atcoder"`
	LeetCode   SourceConfig `yaml:"leetcode"`
	CodeChef   SourceConfig `yaml:"codechef"`
}

// SourceConfig for a single platform fetcher.
type SourceConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"` // override for testing; empty means the platform default
}

// EmailConfig selects and configures the email provider.
type EmailConfig struct {
	// Provider is "gmail", "brevo", or "mock". Empty falls back to mock
	// when no credentials are present.
	Provider        string `yaml:"provider"`
	FromAddr        string `yaml:"from_addr"`
	FromName        string `yaml:"from_name"`
	BrevoAPIKey     string `yaml:"brevo_api_key"`
	GoogleCredsJSON string `yaml:"google_credentials_json"`
}

// SMSConfig configures the Twilio SMS provider. Missing credentials
// degrade SMS sending to a logged no-op.
type SMSConfig struct {
	Provider   string `yaml:"provider"` // "twilio" or "mock"
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./contest-notifier.db"},
		Server: ServerConfig{
			Port:    8080,
			BaseURL: "http://localhost:8080",
		},
		Sources: SourcesConfig{
			Codeforces: SourceConfig{Enabled: true},
			AtCoder:    SourceConfig{Enabled: true},
			LeetCode:   SourceConfig{Enabled: true},
			CodeChef:   SourceConfig{Enabled: true},
		},
		Email: EmailConfig{
			FromName: "Contest Notifier",
		},
	}
}

// Load reads configuration from a YAML file and applies env overrides.
// An empty path loads defaults plus env overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Validate catches configuration that would only fail later at runtime.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("TRIGGER_TOKEN"); v != "" {
		cfg.Trigger.Token = v
	}
	if v := os.Getenv("BREVO_API_KEY"); v != "" {
		cfg.Email.BrevoAPIKey = v
		if cfg.Email.Provider == "" {
			cfg.Email.Provider = "brevo"
		}
	}
	if v := os.Getenv("GOOGLE_CREDENTIALS_JSON"); v != "" {
		cfg.Email.GoogleCredsJSON = v
		if cfg.Email.Provider == "" {
			cfg.Email.Provider = "gmail"
		}
	}
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		cfg.SMS.AccountSID = v
		if cfg.SMS.Provider == "" {
			cfg.SMS.Provider = "twilio"
		}
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		cfg.SMS.AuthToken = v
	}
	if v := os.Getenv("TWILIO_FROM_NUMBER"); v != "" {
		cfg.SMS.FromNumber = v
	}
}
