// Package main implements the PRSL command: interpreter, checker, native
// code generator and REPL.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"github.com/pkg/errors"

	"github.com/you-not-fish/prsl/internal/driver"
	"github.com/you-not-fish/prsl/internal/syntax"
)

// Version information
const Version = "0.1.0"

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// options holds the parsed command line.
type options struct {
	interpret  bool
	parse      bool
	codegen    bool
	emitTokens bool
	emitAST    bool
	astFormat  string
	output     string
	noColor    bool
	logLevel   string
	trace      bool
	repl       bool
	version    bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var o options
	fs := flag.NewFlagSet("prsl", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.BoolVar(&o.interpret, "interpret", false, "Parse, check and run the program (default)")
	fs.BoolVar(&o.parse, "parse", false, "Parse and check only")
	fs.BoolVar(&o.codegen, "codegen", false, "Output LLVM IR")
	fs.BoolVar(&o.emitTokens, "emit-tokens", false, "Output token stream")
	fs.BoolVar(&o.emitAST, "emit-ast", false, "Output AST")
	fs.StringVar(&o.astFormat, "ast-format", "text", "AST output format (text or json)")
	fs.StringVar(&o.output, "o", "", "Output file")
	fs.BoolVar(&o.noColor, "no-color", false, "Disable colored diagnostics")
	fs.StringVar(&o.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.BoolVar(&o.trace, "trace", false, "Output phase timing trace")
	fs.BoolVar(&o.repl, "repl", false, "Start an interactive session")
	fs.BoolVar(&o.version, "version", false, "Print version")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "PRSL %s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: prsl [options] [file.prsl]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if o.version {
		fmt.Printf("prsl version %s\n", Version)
		fmt.Printf("go version %s\n", runtime.Version())
		return exitOK
	}

	modes := 0
	for _, set := range []bool{o.interpret, o.parse, o.codegen, o.emitTokens, o.emitAST, o.repl} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		fmt.Fprintln(os.Stderr, "error: choose one of -interpret, -parse, -codegen, -emit-tokens, -emit-ast, -repl")
		return exitUsage
	}
	if o.astFormat != "text" && o.astFormat != "json" {
		fmt.Fprintf(os.Stderr, "error: unknown AST format %q\n", o.astFormat)
		return exitUsage
	}

	cfg := driver.Config{
		Color:    !o.noColor && os.Getenv("NO_COLOR") == "" && isTerminal(os.Stderr),
		Trace:    o.trace,
		LogLevel: o.logLevel,
	}

	files := fs.Args()
	if o.repl || (modes == 0 && len(files) == 0 && isTerminal(os.Stdin)) {
		return runREPL(cfg)
	}
	if len(files) > 1 {
		fmt.Fprintln(os.Stderr, "error: more than one input file")
		fmt.Fprintln(os.Stderr, "usage: prsl [options] [file.prsl]")
		return exitUsage
	}

	src, name, err := readSource(files)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailure
	}
	cfg.Filename = name

	s, err := driver.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitUsage
	}
	defer s.Close()

	switch {
	case o.emitTokens:
		return runEmitTokens(s, src, o.output)
	case o.emitAST:
		return runEmitAST(s, src, o.astFormat, o.output)
	case o.parse:
		return runParse(s, src)
	case o.codegen:
		return runCodegen(s, src, o.output)
	}
	return runInterpret(s, src)
}

// readSource reads the single input file, or stdin when none is given.
func readSource(files []string) (src, name string, err error) {
	if len(files) == 0 {
		b, err := io.ReadAll(os.Stdin)
		return string(b), "<stdin>", errors.Wrap(err, "read stdin")
	}
	b, err := os.ReadFile(files[0])
	return string(b), files[0], errors.Wrap(err, "read input")
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

// withOutput runs emit against the -o file, or stdout. The file is only
// written when emit succeeds.
func withOutput(path string, emit func(w io.Writer) error) error {
	if path == "" {
		return emit(os.Stdout)
	}
	var buf bytes.Buffer
	if err := emit(&buf); err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(path, buf.Bytes(), 0o644), "write output")
}

// runInterpret parses, checks and runs src. Ctrl-C stops the program.
func runInterpret(s *driver.Session, src string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := s.Interpret(ctx, src)
	s.Report(false)
	if err == nil {
		return exitOK
	}
	reportPlainError(s, err)
	return exitFailure
}

// reportPlainError prints errors that are not already diagnostics.
func reportPlainError(s *driver.Session, err error) {
	if s.Diagnostics().HasErrors() {
		return
	}
	if errors.Cause(err) == context.Canceled {
		fmt.Fprintln(os.Stderr, "interrupted")
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}

// runParse parses and checks src and prints a summary.
func runParse(s *driver.Session, src string) int {
	prog, ok := s.Parse(src)
	if ok {
		ok = s.Check(prog)
	}
	s.Report(true)
	if !ok {
		return exitFailure
	}
	return exitOK
}

// runCodegen writes the LLVM IR for src.
func runCodegen(s *driver.Session, src, output string) int {
	err := withOutput(output, func(w io.Writer) error {
		return s.Compile(src, w)
	})
	s.Report(false)
	if err != nil {
		reportPlainError(s, err)
		return exitFailure
	}
	return exitOK
}

// runEmitAST parses src and outputs the AST.
func runEmitAST(s *driver.Session, src, format, output string) int {
	prog, ok := s.Parse(src)
	s.Report(false)
	err := withOutput(output, func(w io.Writer) error {
		if format == "json" {
			return syntax.FprintJSON(w, prog)
		}
		syntax.Fprint(w, prog)
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailure
	}
	if !ok {
		return exitFailure
	}
	return exitOK
}

// runEmitTokens scans src and prints all tokens with positions.
func runEmitTokens(s *driver.Session, src, output string) int {
	toks := s.Tokens(src)
	err := withOutput(output, func(w io.Writer) error {
		fmt.Fprintf(w, "%-20s %-12s %s\n", "POSITION", "TOKEN", "LITERAL")
		fmt.Fprintf(w, "%-20s %-12s %s\n", strings.Repeat("-", 20), strings.Repeat("-", 12), strings.Repeat("-", 20))
		for _, tok := range toks {
			fmt.Fprintf(w, "%-20s %-12s %s\n", tok.Pos, tok.Kind, formatLiteral(tok.Text))
		}
		return nil
	})
	s.Report(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailure
	}
	if s.Diagnostics().HasErrors() {
		return exitFailure
	}
	return exitOK
}

// formatLiteral formats a literal for display, escaping special characters.
func formatLiteral(lit string) string {
	if lit == "" {
		return "\"\""
	}

	var b strings.Builder
	b.WriteRune('"')
	for _, r := range lit {
		switch r {
		case '\n':
			b.WriteString("\\n")
		case '\t':
			b.WriteString("\\t")
		case '\\':
			b.WriteString("\\\\")
		case '"':
			b.WriteString("\\\"")
		default:
			b.WriteRune(r)
		}
	}
	b.WriteRune('"')
	return b.String()
}
