package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// envPrefix is the prefix for all environment variable overrides.
const envPrefix = "AUDIOFORGE"

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// envSpec maps one environment variable to a config key.
type envSpec struct {
	Name string
	Path string
}

func getEnvSpecs() []envSpec {
	return []envSpec{
		{Name: envPrefix + "_HOST", Path: "server.host"},
		{Name: envPrefix + "_PORT", Path: "server.port"},
		{Name: envPrefix + "_READ_TIMEOUT", Path: "server.read_timeout"},
		{Name: envPrefix + "_WRITE_TIMEOUT", Path: "server.write_timeout"},
		{Name: envPrefix + "_IDLE_TIMEOUT", Path: "server.idle_timeout"},
		{Name: envPrefix + "_SHUTDOWN_TIMEOUT", Path: "server.shutdown_timeout"},
		{Name: envPrefix + "_LOG_LEVEL", Path: "logging.level"},
		{Name: envPrefix + "_LOG_PROFILE", Path: "logging.profile"},
		{Name: envPrefix + "_STORAGE_DIR", Path: "storage.dir"},
		{Name: envPrefix + "_KEEP_PATTERNS", Path: "storage.keep_patterns"},
		{Name: envPrefix + "_DEFAULT_BITRATE", Path: "convert.default_bitrate"},
		{Name: envPrefix + "_CLEANUP_INTERVAL", Path: "cleanup.interval"},
		{Name: envPrefix + "_MAX_AGE", Path: "cleanup.max_age"},
		{Name: envPrefix + "_SPOTIFY_CLIENT_ID", Path: "catalog.client_id"},
		{Name: envPrefix + "_SPOTIFY_CLIENT_SECRET", Path: "catalog.client_secret"},
		{Name: envPrefix + "_CONVERT_RATE_LIMIT", Path: "rate_limit.convert_per_minute"},
		{Name: envPrefix + "_DOWNLOAD_RATE_LIMIT", Path: "rate_limit.download_per_minute"},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "STRUCTURED")
	v.SetDefault("storage.dir", "downloads")
	v.SetDefault("storage.keep_patterns", []string{".gitkeep"})
	v.SetDefault("convert.default_bitrate", 128)
	v.SetDefault("cleanup.interval", "5m")
	v.SetDefault("cleanup.max_age", "30m")
	v.SetDefault("catalog.client_id", "")
	v.SetDefault("catalog.client_secret", "")
	v.SetDefault("rate_limit.convert_per_minute", 5)
	v.SetDefault("rate_limit.download_per_minute", 10)
}

// Load builds the configuration from defaults, environment variables, and
// runtime overrides, in increasing precedence. The loaded config becomes the
// one GetConfig returns.
//
// Overrides are nested maps mirroring the config structure:
//
//	Load(ctx, map[string]any{"server": map[string]any{"port": 9000}})
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	// Optional config file: ./audioforge.yaml or the user config dir.
	v.SetConfigName("audioforge")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, "audioforge"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for _, spec := range getEnvSpecs() {
		if err := v.BindEnv(spec.Path, spec.Name); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", spec.Name, err)
		}
	}
	for _, override := range overrides {
		applyOverrides(v, "", override)
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()
	return &cfg, nil
}

// applyOverrides flattens nested override maps into viper's explicit-set
// layer, which outranks both env vars and defaults.
func applyOverrides(v *viper.Viper, prefix string, m map[string]any) {
	for key, val := range m {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			applyOverrides(v, path, nested)
			continue
		}
		v.Set(path, val)
	}
}

// GetConfig returns the most recently loaded config, or nil before the
// first Load.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}
