// Package driver runs the PRSL pipeline: source to tokens to syntax tree,
// then resolution, then evaluation or native code generation. A Session
// keeps resolver and evaluator state between runs, which is what the REPL
// builds on.
package driver

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/you-not-fish/prsl/internal/codegen"
	"github.com/you-not-fish/prsl/internal/diag"
	"github.com/you-not-fish/prsl/internal/interp"
	"github.com/you-not-fish/prsl/internal/logging"
	"github.com/you-not-fish/prsl/internal/sema"
	"github.com/you-not-fish/prsl/internal/syntax"
)

// ErrDiagnostics is returned when a stage reported errors. The errors
// themselves are in the session's diagnostics.
var ErrDiagnostics = errors.New("compilation failed")

// Config configures a Session.
type Config struct {
	// Filename is used in positions. Empty means "<stdin>".
	Filename string

	// Color enables ANSI colors in diagnostics.
	Color bool

	// Trace logs phase timings. It implies the debug log level.
	Trace bool

	// LogLevel is a zap level name. Empty means logging.DefaultLevel.
	LogLevel string

	// Program input and output. Nil means the process's standard streams.
	Stdin  io.Reader
	Stdout io.Writer

	// Stderr receives diagnostics and log lines. Nil means os.Stderr.
	Stderr io.Writer
}

// Session is one compiler run or one REPL session.
type Session struct {
	cfg      Config
	diags    diag.List
	printer  *diag.Printer
	reported int

	logger   *zap.Logger
	resolver *sema.Resolver
	interp   *interp.Interpreter
}

// New returns a session with empty global state.
func New(cfg Config) (*Session, error) {
	if cfg.Filename == "" {
		cfg.Filename = "<stdin>"
	}
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	level := cfg.LogLevel
	if cfg.Trace && level == "" {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{Level: level, Development: cfg.Trace, Output: cfg.Stderr})
	if err != nil {
		return nil, errors.Wrap(err, "create logger")
	}

	s := &Session{
		cfg:     cfg,
		printer: diag.NewPrinter(cfg.Stderr, cfg.Color),
		logger:  logger,
	}
	s.resolver = sema.NewResolver(&sema.Config{
		Error:  s.diags.Handler(diag.Resolve, diag.Error),
		Logger: logger.Named("sema"),
	})
	s.interp = interp.New(
		interp.WithInput(cfg.Stdin),
		interp.WithOutput(cfg.Stdout),
	)
	return s, nil
}

// Diagnostics returns the session's diagnostics.
func (s *Session) Diagnostics() *diag.List {
	return &s.diags
}

// Logger returns the session logger.
func (s *Session) Logger() *zap.Logger {
	return s.logger
}

// Close flushes the logger.
func (s *Session) Close() {
	_ = s.logger.Sync()
}

// Report prints the diagnostics added since the last report. With
// summary set it ends with an "N errors, M warnings" line when there is
// anything to count.
func (s *Session) Report(summary bool) {
	s.printer.PrintFrom(&s.diags, s.reported)
	s.reported = s.diags.Len()
	if summary {
		s.printer.Summary(&s.diags)
	}
}

// Tokens scans src. Lexical errors go into diagnostics.
func (s *Session) Tokens(src string) []syntax.Token {
	done := logging.Phase(s.logger, "lex")
	mark := s.diags.Len()
	toks := syntax.Tokenize(s.cfg.Filename, strings.NewReader(src), func(line, col uint32, msg string) {
		s.diags.Errorf(diag.Lex, syntax.NewPos(s.cfg.Filename, line, col), "%s", msg)
	})
	done(s.stageErr(mark))
	return toks
}

// Parse scans and parses src. Errors and warnings go into diagnostics,
// with lexical errors under the Lex stage. ok is false when there were
// errors.
func (s *Session) Parse(src string) (prog *syntax.Program, ok bool) {
	done := logging.Phase(s.logger, "parse")
	mark := s.diags.Len()
	p := syntax.NewParser(s.cfg.Filename, strings.NewReader(src),
		s.diags.Handler(diag.Parse, diag.Error),
		syntax.WithLexErrorHandler(s.diags.Handler(diag.Lex, diag.Error)))
	p.SetWarningHandler(s.diags.Handler(diag.Parse, diag.Warning))
	prog = p.Parse()
	err := s.stageErr(mark)
	done(err)
	return prog, err == nil
}

// Check resolves prog against the session's global state. A rejected
// program leaves that state unchanged.
func (s *Session) Check(prog *syntax.Program) bool {
	done := logging.Phase(s.logger, "resolve")
	res := s.resolver.Resolve(prog)
	done(res.Err())
	return res.OK()
}

// Run evaluates a checked program. A runtime error is recorded in
// diagnostics and returned, and the resolver forgets the names the
// program did not get to bind.
func (s *Session) Run(ctx context.Context, prog *syntax.Program) error {
	done := logging.Phase(s.logger, "run")
	err := s.interp.Run(logging.WithLogger(ctx, s.logger.Named("interp")), prog)
	done(err)
	if err == nil {
		return nil
	}
	s.resolver.Retain(func(name string) bool {
		_, ok := s.interp.Global(name)
		return ok
	}, s.interp.HasFunc)
	var rerr *interp.RuntimeError
	if errors.As(err, &rerr) {
		s.diags.Errorf(diag.Runtime, rerr.Pos, "%s", rerr.Msg)
		return errors.Wrap(rerr, "run")
	}
	return errors.Wrap(err, "run")
}

// Interpret parses, checks and runs src, stopping at the first failing
// stage.
func (s *Session) Interpret(ctx context.Context, src string) error {
	prog, ok := s.Parse(src)
	if !ok {
		return ErrDiagnostics
	}
	if !s.Check(prog) {
		return ErrDiagnostics
	}
	return s.Run(ctx, prog)
}

// Compile parses and checks src and writes its LLVM IR to w.
func (s *Session) Compile(src string, w io.Writer) error {
	prog, ok := s.Parse(src)
	if !ok {
		return ErrDiagnostics
	}
	if !s.Check(prog) {
		return ErrDiagnostics
	}

	done := logging.Phase(s.logger, "codegen")
	err := codegen.Generate(w, prog,
		codegen.WithSourceName(s.cfg.Filename),
		codegen.WithLogger(s.logger.Named("codegen")))
	done(err)
	var cerr *codegen.Error
	if errors.As(err, &cerr) {
		s.diags.Errorf(diag.Codegen, cerr.Pos, "%s", cerr.Msg)
		return ErrDiagnostics
	}
	return err
}

// EvalLine runs one REPL entry against the persistent state, prints its
// diagnostics and then forgets them.
func (s *Session) EvalLine(ctx context.Context, src string) error {
	err := s.Interpret(ctx, src)
	s.Report(false)
	s.diags.Truncate(0)
	s.reported = 0
	return err
}

// stageErr returns the first error added to diagnostics after mark.
func (s *Session) stageErr(mark int) error {
	for _, d := range s.diags.Items()[mark:] {
		if d.Severity == diag.Error {
			return &diag.DiagError{Diagnostic: d}
		}
	}
	return nil
}

// IsIncomplete reports whether src ends inside an open brace or
// parenthesis, so that more input is needed.
func IsIncomplete(src string) bool {
	depth := 0
	for _, tok := range syntax.Tokenize("", strings.NewReader(src), nil) {
		switch tok.Kind {
		case syntax.LeftBrace, syntax.LeftParen:
			depth++
		case syntax.RightBrace, syntax.RightParen:
			depth--
		}
	}
	return depth > 0
}
