package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads the configuration file at path. A .env file in the working
// directory is loaded first, best-effort, so ${VAR} references and the
// RELAY_* overrides can draw from it. An empty path yields a config built
// from environment and defaults alone.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets the environment win over the file. Useful for
// containers where the file is baked in but the endpoint is not.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("RELAY_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("RELAY_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("RELAY_BEARER_TOKEN"); v != "" {
		cfg.Auth.BearerToken = v
	}
	if v := os.Getenv("RELAY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: parsing RELAY_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	return nil
}
