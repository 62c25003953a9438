// Package logger provides the process-wide zap logger and crash reporting.
package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	base  *zap.Logger
	sugar *zap.SugaredLogger
	level = zap.NewAtomicLevel()
	once  sync.Once
)

// Options controls logger construction.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Development switches to the human-readable console encoder.
	Development bool
}

// Init builds the global logger. Only the first call has any effect.
func Init(opts Options) {
	once.Do(func() {
		base = build(opts)
		sugar = base.Sugar()
	})
}

func build(opts Options) *zap.Logger {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	level.SetLevel(ParseLevel(opts.Level))
	cfg.Level = level
	cfg.OutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// SetLevel changes the minimum level of the global logger at runtime.
func SetLevel(name string) {
	level.SetLevel(ParseLevel(name))
}

// Level reports the current minimum level.
func Level() zapcore.Level {
	return level.Level()
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// L returns the global structured logger.
func L() *zap.Logger {
	if base == nil {
		Init(Options{})
	}
	return base
}

// S returns the global sugared logger.
func S() *zap.SugaredLogger {
	if sugar == nil {
		Init(Options{})
	}
	return sugar
}

// Sync flushes buffered entries. Call before exit.
func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}

// WithRun returns a child logger tagged with a pipeline run ID.
func WithRun(runID string) *zap.Logger {
	return L().With(zap.String("run_id", runID))
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}
