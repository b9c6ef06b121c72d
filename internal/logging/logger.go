// Package logging builds the daemon-wide structured logger.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production zap logger named for the daemon. The level string
// comes from config; unknown values fall back to info rather than failing
// startup. Sampling is disabled: the daemon's log volume is a handful of
// lines per sync event and dropping merge errors would hide the only trace
// of a lost update.
func New(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.Sampling = nil
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Named("bunkmated"), nil
}

func parseLevel(level string) zapcore.Level {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if normalized == "warning" {
		normalized = "warn"
	}
	parsed, err := zapcore.ParseLevel(normalized)
	if err != nil || parsed < zapcore.DebugLevel || parsed > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return parsed
}
