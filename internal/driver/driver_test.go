package driver

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you-not-fish/prsl/internal/diag"
	"github.com/you-not-fish/prsl/internal/interp"
)

type streams struct {
	out, err bytes.Buffer
}

func newSession(t *testing.T, input string, cfg Config) (*Session, *streams) {
	t.Helper()
	st := &streams{}
	if cfg.Filename == "" {
		cfg.Filename = "test.prsl"
	}
	cfg.Stdin = strings.NewReader(input)
	cfg.Stdout = &st.out
	cfg.Stderr = &st.err
	s, err := New(cfg)
	require.NoError(t, err)
	return s, st
}

func TestInterpret(t *testing.T) {
	s, st := newSession(t, "4", Config{})
	err := s.Interpret(context.Background(), "a = ?; f = func(x): f { x * 2; }; print f(a);")
	require.NoError(t, err)
	assert.Equal(t, "8\n", st.out.String())
	assert.Zero(t, s.Diagnostics().Len())
}

func TestInterpretStopsAtFirstFailingStage(t *testing.T) {
	s, st := newSession(t, "", Config{})
	err := s.Interpret(context.Background(), "print 1;\nprint y;\nprint (;\n")
	assert.Equal(t, ErrDiagnostics, err)
	assert.Empty(t, st.out.String(), "nothing runs after a syntax error")

	items := s.Diagnostics().Items()
	require.Len(t, items, 1)
	assert.Equal(t, diag.Parse, items[0].Stage)

	s, st = newSession(t, "", Config{})
	err = s.Interpret(context.Background(), "print 1;\nprint y;\n")
	assert.Equal(t, ErrDiagnostics, err)
	assert.Empty(t, st.out.String(), "nothing runs after a resolve error")
	assert.Equal(t, diag.Resolve, s.Diagnostics().Items()[0].Stage)
}

func TestRuntimeErrorIsDiagnostic(t *testing.T) {
	s, st := newSession(t, "", Config{})
	err := s.Interpret(context.Background(), "print 1;\nprint 1 / 0;\n")
	var rerr *interp.RuntimeError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, interp.DivisionByZero, rerr.Kind)
	assert.Equal(t, "1\n", st.out.String())

	s.Report(true)
	assert.Equal(t, "test.prsl:2:9: error: division by zero\n1 error, 0 warnings\n", st.err.String())
}

func TestWarningsDoNotFail(t *testing.T) {
	s, st := newSession(t, "", Config{})
	require.NoError(t, s.Interpret(context.Background(), "print { x = 1; };"))
	assert.Equal(t, "0\n", st.out.String())
	assert.Equal(t, 1, s.Diagnostics().WarningCount())
	s.Report(false)
	assert.Contains(t, st.err.String(), "warning: implicit return of 0")
}

func TestParseReportsAllErrors(t *testing.T) {
	s, _ := newSession(t, "", Config{})
	_, ok := s.Parse("x = ;\nprint );\ny = 1;\n")
	assert.False(t, ok)
	assert.Equal(t, 2, s.Diagnostics().ErrorCount())
}

func TestParseSeparatesLexErrors(t *testing.T) {
	s, _ := newSession(t, "", Config{})
	_, ok := s.Parse("x = 1 @ 2;\nprint );\n")
	assert.False(t, ok)

	var stages []diag.Stage
	for _, d := range s.Diagnostics().Items() {
		stages = append(stages, d.Stage)
	}
	assert.Contains(t, stages, diag.Lex)
	assert.Contains(t, stages, diag.Parse)
}

func TestTokens(t *testing.T) {
	s, _ := newSession(t, "", Config{})
	toks := s.Tokens("x = 1 @ 2;")
	assert.NotEmpty(t, toks)
	require.Equal(t, 1, s.Diagnostics().ErrorCount())
	assert.Equal(t, diag.Lex, s.Diagnostics().Items()[0].Stage)
}

func TestCompile(t *testing.T) {
	s, _ := newSession(t, "", Config{})
	var ir bytes.Buffer
	require.NoError(t, s.Compile("x = 2; print x * 3;", &ir))
	assert.Contains(t, ir.String(), "define i32 @main()")
	assert.Contains(t, ir.String(), `source_filename = "test.prsl"`)

	s, _ = newSession(t, "", Config{})
	ir.Reset()
	err := s.Compile("f = func() { 1; }; print f;", &ir)
	assert.Equal(t, ErrDiagnostics, err)
	assert.Zero(t, ir.Len())
	items := s.Diagnostics().Items()
	require.Len(t, items, 1)
	assert.Equal(t, diag.Codegen, items[0].Stage)
	assert.Contains(t, items[0].Msg, "function values are not supported")
}

func TestEvalLineKeepsState(t *testing.T) {
	s, st := newSession(t, "", Config{})
	ctx := context.Background()

	require.NoError(t, s.EvalLine(ctx, "x = 20;"))
	require.NoError(t, s.EvalLine(ctx, "double = func(n): double { n * 2; };"))
	require.NoError(t, s.EvalLine(ctx, "print double(x) + 2;"))
	assert.Equal(t, "42\n", st.out.String())
}

func TestEvalLineRollsBackFailedLine(t *testing.T) {
	s, st := newSession(t, "", Config{})
	ctx := context.Background()

	// y is bound by the failing line only and must not survive it.
	assert.Error(t, s.EvalLine(ctx, "y = 1; print z;"))
	assert.Contains(t, st.err.String(), "undefined variable 'z'")
	assert.Zero(t, s.Diagnostics().Len(), "diagnostics are cleared after each line")

	st.err.Reset()
	assert.Error(t, s.EvalLine(ctx, "print y;"))
	assert.Contains(t, st.err.String(), "undefined variable 'y'")

	require.NoError(t, s.EvalLine(ctx, "y = 5; print y;"))
	assert.Equal(t, "5\n", st.out.String())
}

func TestEvalLineForgetsUnboundNames(t *testing.T) {
	s, st := newSession(t, "", Config{})
	ctx := context.Background()

	assert.Error(t, s.EvalLine(ctx, "x = 1 / 0;"))
	st.err.Reset()

	// x is rejected before anything runs.
	assert.Equal(t, ErrDiagnostics, s.EvalLine(ctx, "print 7; print x;"))
	assert.Contains(t, st.err.String(), "undefined variable 'x'")
	assert.Empty(t, st.out.String())

	require.NoError(t, s.EvalLine(ctx, "x = 2; print x;"))
	assert.Equal(t, "2\n", st.out.String())
}

func TestCancelledRun(t *testing.T) {
	s, _ := newSession(t, "", Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Interpret(ctx, "while (1) ;")
	require.Error(t, err)
	assert.Equal(t, context.Canceled, errors.Cause(err))
	assert.Zero(t, s.Diagnostics().ErrorCount())
}

func TestTrace(t *testing.T) {
	s, st := newSession(t, "", Config{Trace: true})
	require.NoError(t, s.Interpret(context.Background(), "print 1;"))
	s.Close()
	for _, phase := range []string{"parse", "resolve", "run"} {
		assert.Contains(t, st.err.String(), `"phase": "`+phase+`"`)
	}
}

func TestBadLogLevel(t *testing.T) {
	_, err := New(Config{LogLevel: "chatty"})
	assert.Error(t, err)
}

func TestIsIncomplete(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"x = 1;", false},
		{"f = func(a) {", true},
		{"f = func(a) { a; };", false},
		{"print (1 +", true},
		{"while (1) { { }", true},
		{"}", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsIncomplete(tt.src), tt.src)
	}
}
