package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a SugaredLogger for the given level and format. Format is
// either "json" or "console"; anything else falls back to json.
func New(level, format string) (*zap.SugaredLogger, error) {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info", "":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	if strings.ToLower(format) == "console" {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	base, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return base.Sugar(), nil
}

// MustNew is New that panics on error. For main() wiring only.
func MustNew(level, format string) *zap.SugaredLogger {
	l, err := New(level, format)
	if err != nil {
		panic(err)
	}
	return l
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
