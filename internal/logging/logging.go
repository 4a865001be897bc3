// Package logging builds the zap loggers used by cbtctl and the library
// packages.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/joshuapare/cbtkit/pkg/types"
)

// Config holds logger configuration options.
type Config struct {
	// Format is "json" or "text" (alias "console").
	Format string
	// Level is one of "debug", "info", "warn", "error".
	Level string
	// File, when set, receives log output instead of Output. The file is
	// appended to and its directory created if needed.
	File string
	// Output defaults to os.Stderr so stdout stays free for command results.
	Output zapcore.WriteSyncer
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Format: "text",
		Level:  "info",
		Output: os.Stderr,
	}
}

// NewLogger creates a logger from cfg. The returned cleanup closes the log
// file, if any.
func NewLogger(cfg Config) (*zap.Logger, func(), error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "", "text", "console":
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case "json":
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, nil, types.Errorf(types.ErrKindConfig, "unknown log format %q (want json or text)", cfg.Format)
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	cleanup := func() {}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, types.Wrap(types.ErrKindIO, err, "create log directory")
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, types.Wrap(types.ErrKindIO, err, "open log file")
		}
		output = zapcore.AddSync(f)
		cleanup = func() { _ = f.Close() }
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(output), level)
	return zap.New(core, zap.AddCaller()), cleanup, nil
}

// ParseLevel converts a level name to a zapcore.Level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, types.Wrap(types.ErrKindConfig,
			fmt.Errorf("unknown level %q", level), "parse log level")
	}
}
