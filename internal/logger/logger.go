// Package logger builds the zap logger shared by the CLI and the daemon.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options select level and destination
type Options struct {
	Level string
	// File receives log lines; empty means stderr
	File string
	// Console switches to the human-readable development encoder
	Console bool
}

// New builds a logger. If the log file cannot be opened it falls back to
// stderr and reports the problem through the returned logger.
func New(opts Options) *zap.Logger {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	if opts.Console {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(level)
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	if opts.File != "" {
		if mkErr := os.MkdirAll(filepath.Dir(opts.File), 0755); mkErr == nil {
			config.OutputPaths = []string{opts.File}
			config.ErrorOutputPaths = []string{opts.File}
		}
	}

	logger, buildErr := config.Build()
	if buildErr != nil {
		config.OutputPaths = []string{"stderr"}
		config.ErrorOutputPaths = []string{"stderr"}
		logger, _ = config.Build()
		logger.Warn("falling back to stderr logging", zap.String("file", opts.File), zap.Error(buildErr))
	}
	if err != nil {
		logger.Warn("unknown log level, using info", zap.String("level", opts.Level))
	}
	return logger
}

// ParseLevel maps a config level name to a zap level
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}
