package config

import (
	"fmt"
	"time"
)

// Config is the root SDK configuration.
type Config struct {
	// BaseURL is the backend root. Required.
	BaseURL string `yaml:"base_url"`

	// Timeout is the per-attempt request deadline.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent overrides the default User-Agent header.
	UserAgent string `yaml:"user_agent"`

	Retry     RetryConfig     `yaml:"retry"`
	Health    HealthConfig    `yaml:"health"`
	Auth      AuthConfig      `yaml:"auth"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Upload    UploadConfig    `yaml:"upload"`
	Observe   ObserveConfig   `yaml:"observe"`
}

// RetryConfig mirrors the transport retry knobs.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	Multiplier   float64       `yaml:"multiplier"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Jitter       bool          `yaml:"jitter"`
}

// HealthConfig controls the connection monitor.
type HealthConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// AuthConfig selects request credentials. APIKey wins when both are set.
type AuthConfig struct {
	APIKey      string `yaml:"api_key"`
	BearerToken string `yaml:"bearer_token"`
}

// TelemetryConfig controls the SendMetrics rate limit.
type TelemetryConfig struct {
	Enabled   bool    `yaml:"enabled"`
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// UploadConfig controls the upload bulkhead.
type UploadConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// ObserveConfig mirrors observe.Config with yaml tags.
type ObserveConfig struct {
	ServiceName string `yaml:"service_name"`
	Version     string `yaml:"version"`

	Tracing struct {
		Enabled   bool    `yaml:"enabled"`
		Exporter  string  `yaml:"exporter"`
		SamplePct float64 `yaml:"sample_pct"`
	} `yaml:"tracing"`

	Metrics struct {
		Enabled  bool   `yaml:"enabled"`
		Exporter string `yaml:"exporter"`
	} `yaml:"metrics"`

	Logging struct {
		Enabled bool   `yaml:"enabled"`
		Level   string `yaml:"level"`
	} `yaml:"logging"`
}

// applyDefaults fills in zero fields.
func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "relay-go"
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialDelay <= 0 {
		c.Retry.InitialDelay = time.Second
	}
	if c.Retry.Multiplier <= 0 {
		c.Retry.Multiplier = 2
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = 30 * time.Second
	}
	if c.Health.Interval <= 0 {
		c.Health.Interval = 30 * time.Second
	}
	if c.Health.Timeout <= 0 {
		c.Health.Timeout = 5 * time.Second
	}
	if c.Telemetry.PerSecond <= 0 {
		c.Telemetry.PerSecond = 1
	}
	if c.Telemetry.Burst <= 0 {
		c.Telemetry.Burst = 10
	}
	if c.Upload.MaxConcurrent <= 0 {
		c.Upload.MaxConcurrent = 4
	}
	if c.Observe.ServiceName == "" {
		c.Observe.ServiceName = "relay-go"
	}
	if c.Observe.Logging.Level == "" {
		c.Observe.Logging.Level = "info"
	}
}

// Validate checks fields that defaults cannot repair.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("config: base_url is required")
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("config: retry.multiplier must be >= 1, got %v", c.Retry.Multiplier)
	}
	return nil
}
