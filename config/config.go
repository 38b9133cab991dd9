// Package config loads process configuration from the environment, an
// optional YAML file, and defaults. Configuration is read once at startup
// and treated as read-only afterwards.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// HTTP listen address.
	Addr string

	// Model backend.
	Model   string
	APIKey  string
	BaseURL string

	// Pipeline policy.
	MaxUploadBytes  int64
	VerifyThreshold float64
	StageTimeout    time.Duration
	RetryCount      int
	RetryBaseDelay  time.Duration

	// TraceDir enables per-run audit traces when non-empty.
	TraceDir string

	LogLevel string
}

// Load reads configuration with the HEMOLENS_ env prefix and an optional
// config file (hemolens.yaml in the working directory, or the path given).
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("addr", ":8000")
	v.SetDefault("model", "gpt-4o")
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", "")
	v.SetDefault("max_upload_bytes", 10*1024*1024)
	v.SetDefault("verify_threshold", 0.5)
	v.SetDefault("stage_timeout", "60s")
	v.SetDefault("retry_count", 2)
	v.SetDefault("retry_base_delay", "1s")
	v.SetDefault("trace_dir", "")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("HEMOLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("hemolens")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		// Missing default config file is fine; env and defaults apply.
		_ = v.ReadInConfig()
	}

	cfg := &Config{
		Addr:            v.GetString("addr"),
		Model:           v.GetString("model"),
		APIKey:          v.GetString("api_key"),
		BaseURL:         v.GetString("base_url"),
		MaxUploadBytes:  v.GetInt64("max_upload_bytes"),
		VerifyThreshold: v.GetFloat64("verify_threshold"),
		StageTimeout:    v.GetDuration("stage_timeout"),
		RetryCount:      v.GetInt("retry_count"),
		RetryBaseDelay:  v.GetDuration("retry_base_delay"),
		TraceDir:        v.GetString("trace_dir"),
		LogLevel:        v.GetString("log_level"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.Model == "" {
		return fmt.Errorf("model must not be empty")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if c.VerifyThreshold <= 0 || c.VerifyThreshold > 1 {
		return fmt.Errorf("verify_threshold must be in (0, 1], got %g", c.VerifyThreshold)
	}
	if c.StageTimeout <= 0 {
		return fmt.Errorf("stage_timeout must be positive, got %s", c.StageTimeout)
	}
	if c.RetryCount < 0 {
		return fmt.Errorf("retry_count must not be negative, got %d", c.RetryCount)
	}
	if c.RetryBaseDelay <= 0 {
		return fmt.Errorf("retry_base_delay must be positive, got %s", c.RetryBaseDelay)
	}
	return nil
}

// SlogLevel maps the configured level string onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
