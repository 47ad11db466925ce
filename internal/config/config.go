// Package config provides YAML-based configuration loading for Dispatchline.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Dispatchline configuration, loaded from config.yaml.
type Config struct {
	DB       DBConfig       `yaml:"db"`
	Server   ServerConfig   `yaml:"server"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Mirror   MirrorConfig   `yaml:"mirror"`
	Operator OperatorConfig `yaml:"operator"`
	Triage   TriageConfig   `yaml:"triage"`
	Notify   NotifyConfig   `yaml:"notify"`
	Drain    DrainConfig    `yaml:"drain"`
}

// DBConfig holds connection settings for the MySQL server.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// ServerConfig holds webhook server settings.
type ServerConfig struct {
	Port        int    `yaml:"port"`
	DrainSecret string `yaml:"drain_secret"` // shared secret for /cron/drain; empty disables the check
}

// GatewayConfig holds SMS provider credentials.
type GatewayConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

// MirrorConfig configures best-effort alert mirroring to ops chat channels.
type MirrorConfig struct {
	SlackToken     string `yaml:"slack_token"`
	SlackChannel   string `yaml:"slack_channel"`
	DiscordToken   string `yaml:"discord_token"`
	DiscordChannel string `yaml:"discord_channel"`
}

// OperatorConfig holds defaults applied when auto-provisioning an operator
// profile for an intake event that has no matching operator.
type OperatorConfig struct {
	Name       string `yaml:"name"`
	Phone      string `yaml:"phone"`
	Timezone   string `yaml:"timezone"`
	QuietStart string `yaml:"quiet_start"`
	QuietEnd   string `yaml:"quiet_end"`
}

// TriageConfig holds classifier tuning.
type TriageConfig struct {
	RevenueThreshold float64 `yaml:"revenue_threshold"`
}

// NotifyConfig holds alerting policy.
type NotifyConfig struct {
	ContextWindowMinutes int `yaml:"context_window_minutes"`
	CooldownMinutes      int `yaml:"cooldown_minutes"` // 0 disables per-case alert cooldown
}

// DrainConfig holds queue drain worker settings.
type DrainConfig struct {
	BatchSize int    `yaml:"batch_size"`
	Cron      string `yaml:"cron"` // 5-field cron expression for the in-process drain
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ContextWindow returns the alert-context correlation window as a duration.
func (c *Config) ContextWindow() time.Duration {
	return time.Duration(c.Notify.ContextWindowMinutes) * time.Minute
}

// Cooldown returns the per-case alert cooldown, zero when disabled.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Notify.CooldownMinutes) * time.Minute
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.User == "" {
		c.DB.User = "root"
	}
	if c.DB.Database == "" {
		c.DB.Database = "dispatchline"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Operator.Timezone == "" {
		c.Operator.Timezone = "America/Chicago"
	}
	if c.Operator.QuietStart == "" {
		c.Operator.QuietStart = "21:00"
	}
	if c.Operator.QuietEnd == "" {
		c.Operator.QuietEnd = "08:00"
	}
	if c.Triage.RevenueThreshold == 0 {
		c.Triage.RevenueThreshold = 1500
	}
	if c.Notify.ContextWindowMinutes == 0 {
		c.Notify.ContextWindowMinutes = 60
	}
	if c.Drain.BatchSize == 0 {
		c.Drain.BatchSize = 50
	}
	if c.Drain.Cron == "" {
		c.Drain.Cron = "*/5 * * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if _, err := time.LoadLocation(c.Operator.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("operator.timezone %q is not a valid IANA zone", c.Operator.Timezone))
	}
	for _, f := range []struct{ name, val string }{
		{"operator.quiet_start", c.Operator.QuietStart},
		{"operator.quiet_end", c.Operator.QuietEnd},
	} {
		if _, err := time.Parse("15:04", f.val); err != nil {
			errs = append(errs, fmt.Sprintf("%s %q must be HH:MM", f.name, f.val))
		}
	}
	if c.Triage.RevenueThreshold < 0 {
		errs = append(errs, "triage.revenue_threshold must not be negative")
	}
	if c.Notify.ContextWindowMinutes < 0 {
		errs = append(errs, "notify.context_window_minutes must not be negative")
	}
	if c.Drain.BatchSize < 1 {
		errs = append(errs, "drain.batch_size must be at least 1")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
