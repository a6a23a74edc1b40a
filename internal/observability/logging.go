// Package observability holds the process-wide loggers.
//
// CLILogger is for command-line output paths, ServerLogger for the HTTP
// serving path. Both default to no-ops so library code can log
// unconditionally; the command layer initializes them once at startup.
package observability

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logging profiles.
const (
	ProfileStructured = "STRUCTURED"
	ProfileConsole    = "CONSOLE"
)

var (
	// CLILogger is the logger for CLI command paths.
	CLILogger = zap.NewNop()

	// ServerLogger is the logger for the HTTP server path.
	ServerLogger = zap.NewNop()
)

// InitCLILogger initializes CLILogger at the given level. verbose forces
// debug level and console output regardless of level.
func InitCLILogger(level string, verbose bool) {
	profile := ProfileConsole
	if verbose {
		level = "debug"
	}
	logger, err := build(level, profile)
	if err != nil {
		return
	}
	CLILogger = logger
}

// InitServerLogger initializes ServerLogger with the given level and
// profile.
func InitServerLogger(level, profile string) error {
	logger, err := build(level, profile)
	if err != nil {
		return err
	}
	ServerLogger = logger
	return nil
}

// Sync flushes both loggers. Called on shutdown.
func Sync() {
	_ = CLILogger.Sync()
	_ = ServerLogger.Sync()
}

func build(level, profile string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch strings.ToUpper(profile) {
	case ProfileStructured:
		cfg = zap.NewProductionConfig()
	case ProfileConsole:
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid logging profile %q", profile)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}
