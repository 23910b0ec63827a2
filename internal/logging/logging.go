// Package logging builds the zap loggers used by the driver and its
// stages, and times compiler phases.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLevel keeps a normal run quiet: only program output and
// diagnostics reach the terminal.
const DefaultLevel = "warn"

// Config configures New.
type Config struct {
	// Level is a zap level name ("debug", "info", "warn", "error").
	// Empty means DefaultLevel.
	Level string

	// Development adds caller information to each entry.
	Development bool

	// Output receives log lines. Nil means os.Stderr.
	Output io.Writer
}

// New returns a console logger tagged with a fresh run_id.
func New(cfg Config) (*zap.Logger, error) {
	if cfg.Level == "" {
		cfg.Level = DefaultLevel
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", cfg.Level)
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(out), level)

	var opts []zap.Option
	if cfg.Development {
		opts = append(opts, zap.AddCaller(), zap.Development())
	}
	return zap.New(core, opts...).With(zap.String("run_id", uuid.New().String())), nil
}

// ctxKey is the context key for the logger.
type ctxKey struct{}

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger carried by ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
			return logger
		}
	}
	return zap.NewNop()
}

// StepTimer times one compiler phase.
type StepTimer struct {
	logger *zap.Logger
	phase  string
	start  time.Time
}

// NewStepTimer starts timing phase.
func NewStepTimer(logger *zap.Logger, phase string) *StepTimer {
	return &StepTimer{logger: logger, phase: phase, start: time.Now()}
}

// Done logs the phase at debug level with its duration and outcome.
func (t *StepTimer) Done(err error) {
	fields := []zap.Field{
		zap.String("phase", t.phase),
		zap.Duration("duration", time.Since(t.start)),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	t.logger.Debug("phase done", fields...)
}

// Phase starts timing name and returns the function that ends it.
//
// Usage: done := logging.Phase(logger, "parse"); ...; done(err)
func Phase(logger *zap.Logger, name string) func(error) {
	return NewStepTimer(logger, name).Done
}
