// Package config provides configuration loading with layered precedence:
// runtime overrides, then environment variables, then built-in defaults.
package config

import (
	"fmt"
	"time"

	"github.com/audioforge/audioforge/pkg/validate"
)

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Convert   ConvertConfig   `mapstructure:"convert"`
	Cleanup   CleanupConfig   `mapstructure:"cleanup"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`

	// Profile selects the output format: STRUCTURED (JSON) or CONSOLE.
	Profile string `mapstructure:"profile"`
}

// StorageConfig configures the artifact storage directory.
type StorageConfig struct {
	Dir string `mapstructure:"dir"`

	// KeepPatterns are storage dir entries cleanup must never remove.
	KeepPatterns []string `mapstructure:"keep_patterns"`
}

// ConvertConfig configures conversion behavior.
type ConvertConfig struct {
	// DefaultBitrate in kbit/s, used when a request does not specify one.
	DefaultBitrate int `mapstructure:"default_bitrate"`
}

// CleanupConfig configures the retention sweep.
type CleanupConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

// CatalogConfig holds credentials for the music catalog integration.
// Catalog support is disabled when either field is empty.
type CatalogConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// Enabled reports whether catalog credentials are configured.
func (c CatalogConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// RateLimitConfig configures per-client request rate limits.
type RateLimitConfig struct {
	// ConvertPerMinute limits conversion starts per client.
	ConvertPerMinute int `mapstructure:"convert_per_minute"`

	// DownloadPerMinute limits artifact downloads per client.
	DownloadPerMinute int `mapstructure:"download_per_minute"`
}

// Addr returns the host:port the server binds to.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if !validate.IsValidBitrate(c.Convert.DefaultBitrate) {
		return fmt.Errorf("invalid default bitrate %d (valid: %v)", c.Convert.DefaultBitrate, validate.Bitrates)
	}
	if c.Cleanup.Interval <= 0 {
		return fmt.Errorf("cleanup interval must be positive, got %s", c.Cleanup.Interval)
	}
	if c.Cleanup.MaxAge <= 0 {
		return fmt.Errorf("cleanup max age must be positive, got %s", c.Cleanup.MaxAge)
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage dir must not be empty")
	}
	if c.RateLimit.ConvertPerMinute < 1 {
		return fmt.Errorf("convert rate limit must be positive, got %d", c.RateLimit.ConvertPerMinute)
	}
	if c.RateLimit.DownloadPerMinute < 1 {
		return fmt.Errorf("download rate limit must be positive, got %d", c.RateLimit.DownloadPerMinute)
	}
	return nil
}
