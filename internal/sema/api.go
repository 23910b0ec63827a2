package sema

import (
	"go.uber.org/zap"

	"github.com/you-not-fish/prsl/internal/syntax"
)

// Config specifies the configuration for resolution.
type Config struct {
	// Error is called for each resolution error.
	// If nil, errors are only collected in the Result.
	Error ErrorHandler

	// Logger receives debug output. If nil, logging is disabled.
	Logger *zap.Logger
}

// Result holds the outcome of one resolution pass.
type Result struct {
	Errors []*Error
}

// OK reports whether the pass found no errors.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

// Err returns the first error, or nil.
func (r *Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// Resolve checks prog with a fresh resolver.
func Resolve(prog *syntax.Program, conf *Config) *Result {
	return NewResolver(conf).Resolve(prog)
}
