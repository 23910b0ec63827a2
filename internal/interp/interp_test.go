package interp

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/you-not-fish/prsl/internal/logging"
	"github.com/you-not-fish/prsl/internal/syntax"
)

func parse(t *testing.T, src string) *syntax.Program {
	t.Helper()
	var errs []string
	prog := syntax.NewParser("test.prsl", strings.NewReader(src), func(pos syntax.Pos, msg string) {
		errs = append(errs, pos.String()+": "+msg)
	}).Parse()
	require.Empty(t, errs, "syntax errors")
	return prog
}

// run evaluates src with the given stdin and returns what it printed.
func run(t *testing.T, src, input string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	in := New(WithOutput(&out), WithInput(strings.NewReader(input)))
	err := in.Run(context.Background(), parse(t, src))
	assert.Equal(t, 1, in.Depth(), "scope chain must be restored")
	return out.String(), err
}

func runOK(t *testing.T, src string) string {
	t.Helper()
	out, err := run(t, src, "")
	require.NoError(t, err)
	return out
}

// runErr evaluates src and checks the runtime error kind.
func runErr(t *testing.T, src string, kind ErrorKind) (string, *RuntimeError) {
	t.Helper()
	out, err := run(t, src, "")
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, kind, rerr.Kind, "error: %v", rerr)
	return out, rerr
}

func lines(vals ...string) string {
	return strings.Join(vals, "\n") + "\n"
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"print 1 + 2 * 3;", "7"},
		{"print (1 + 2) * 3;", "9"},
		{"print 7 / 2;", "3"},
		{"print -7 / 2;", "-3"},
		{"print 10 - 3 - 2;", "5"},
		{"print -(2 + 3);", "-5"},
		{"print 2147483647 + 1;", "-2147483648"},
		{"print 3 < 4;", "1"},
		{"print 4 <= 3;", "0"},
		{"print 5 > 4;", "1"},
		{"print 4 >= 5;", "0"},
		{"print 2 == 2;", "1"},
		{"print 2 != 2;", "0"},
		{"print (1 < 2) == (2 < 3);", "1"},
		{"print (1 < 2) == 1;", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want+"\n", runOK(t, tt.src))
		})
	}
}

func TestVariablesAndControlFlow(t *testing.T) {
	out := runOK(t, `
i = 0;
sum = 0;
while (i < 5) {
	sum = sum + i;
	i = i + 1;
}
print sum;
if (sum > 100) print 1; else print 2;
if (0) print 3;
`)
	assert.Equal(t, lines("10", "2"), out)
}

func TestDeclarationAssignsOuterBinding(t *testing.T) {
	out := runOK(t, "x = 1; { x = 2; y = 3; } print x;")
	assert.Equal(t, "2\n", out)
}

func TestScopeIsolation(t *testing.T) {
	out, err := runErr(t, "{ x = 1; print x; }\nprint x;", UndefinedVariable)
	assert.Equal(t, "1\n", out)
	assert.Equal(t, uint32(2), err.Pos.Line())
}

func TestScopeExpressionValue(t *testing.T) {
	assert.Equal(t, "3\n", runOK(t, "print { 1; 2; 3; };"))
	assert.Equal(t, "0\n", runOK(t, "print { x = 1; };"))
	assert.Equal(t, "6\n", runOK(t, "v = { a = 2; a * 3; }; print v;"))
}

func TestReturnEndsNearestScope(t *testing.T) {
	out := runOK(t, `
f = func(n) {
	x = { if (n > 0) return 10; 20; };
	x + 1;
};
print f(1);
print f(0);
`)
	assert.Equal(t, lines("11", "21"), out)
}

func TestReturnFromLoop(t *testing.T) {
	out := runOK(t, `
find = func(limit): find {
	i = 0;
	while (1) {
		if (i * i > limit) return i;
		i++;
	}
	0;
};
print find(50);
`)
	assert.Equal(t, "8\n", out)
}

func TestTopLevelReturnEndsProgram(t *testing.T) {
	assert.Equal(t, "1\n", runOK(t, "print 1; return 0; print 2;"))
}

func TestFunctions(t *testing.T) {
	out := runOK(t, `
add = func(a, b): plus { a + b; };
print add(2, 3);
print plus(4, 5);
fact = func(n): fact { if (n < 2) return 1; n * fact(n - 1); };
print fact(10);
g = add;
print g(1, 1);
print add;
print func() { 0; };
`)
	assert.Equal(t, lines("5", "9", "3628800", "2", "<func plus>", "<func>"), out)
}

func TestNestedFunctionsAreRegistered(t *testing.T) {
	out := runOK(t, `
outer = func(x): outer {
	y = helper(x);
	func(v): helper { v * 2; };
	y + 1;
};
print outer(4);
print helper(5);
`)
	assert.Equal(t, lines("9", "10"), out)
}

func TestNoClosure(t *testing.T) {
	out, err := runErr(t, "x = 1; f = func() { x; }; print 0; print f();", UndefinedVariable)
	assert.Equal(t, "0\n", out)
	assert.Contains(t, err.Msg, "'x'")
}

func TestArgumentsEvaluatedInCallerScope(t *testing.T) {
	out := runOK(t, `
a = 5;
f = func(a) { a * 10; };
print f(a + 1);
print a;
`)
	assert.Equal(t, lines("60", "5"), out)
}

func TestArityChecked(t *testing.T) {
	src := "f = func(a, b) { a + b; }; print 1; print f(1);"
	out, err := runErr(t, src, WrongArgumentCount)
	assert.Equal(t, "1\n", out)
	assert.Contains(t, err.Msg, "takes 2 arguments, got 1")

	_, _ = runErr(t, "f = func(a, b) { a + b; }; f(1, 2, 3);", WrongArgumentCount)

	// Arity is checked before any argument is evaluated.
	out, _ = runErr(t, "f = func(a) { a; }; f({ print 7; 1; }, 2);", WrongArgumentCount)
	assert.Empty(t, out)
}

func TestNotAFunction(t *testing.T) {
	_, err := runErr(t, "x = 3; x(1);", NotAFunction)
	assert.Equal(t, "'x' is not a function", err.Msg)
	_, _ = runErr(t, "nope();", UndefinedVariable)
}

func TestDivisionByZeroStopsProgram(t *testing.T) {
	out, err := runErr(t, "print 1;\nprint 1 / 0;\nprint 2;", DivisionByZero)
	assert.Equal(t, "1\n", out)
	assert.Equal(t, "test.prsl:2:9: division by zero", err.Error())
}

func TestTypeErrors(t *testing.T) {
	_, _ = runErr(t, "f = func() { 1; }; print f + 1;", TypeError)
	_, _ = runErr(t, "f = func() { 1; }; print -f;", TypeError)
	_, _ = runErr(t, "print (1 < 2) + 1;", TypeError)
	_, err := runErr(t, "g = func() { { func() { 1; }; }; }; g();", TypeError)
	assert.Contains(t, err.Msg, "returned func")
}

func TestPostfix(t *testing.T) {
	out := runOK(t, `
a = 5;
print a++;
print a;
print a--;
print a;
print (b = 10)++;
print b;
{ a++; }
print a;
`)
	assert.Equal(t, lines("5", "6", "6", "5", "10", "11", "6"), out)
}

func TestPostfixIdempotence(t *testing.T) {
	// Reading twice gives the same value; one postfix is exactly one step.
	out := runOK(t, "a = 3; print a * 2 + 1; print a * 2 + 1; a++; print a;")
	assert.Equal(t, lines("7", "7", "4"), out)
}

func TestInput(t *testing.T) {
	out, err := run(t, "a = ?; b = ?; print a + b;", "3\n  39")
	require.NoError(t, err)
	assert.Equal(t, "42\n", out)

	_, err = run(t, "a = ?;", "seven")
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, InputError, rerr.Kind)

	_, err = run(t, "a = ?;", "")
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, InputError, rerr.Kind)
}

func TestFailedInitializerUnbindsName(t *testing.T) {
	in := New(WithOutput(&bytes.Buffer{}))
	err := in.Run(context.Background(), parse(t, "x = 1 / 0;"))
	require.Error(t, err)
	_, ok := in.Global("x")
	assert.False(t, ok, "x was never initialized")

	err = in.Run(context.Background(), parse(t, "print x;"))
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, UndefinedVariable, rerr.Kind)

	// An existing binding keeps its old value.
	in = New(WithOutput(&bytes.Buffer{}))
	require.NoError(t, in.Run(context.Background(), parse(t, "y = 3;")))
	require.Error(t, in.Run(context.Background(), parse(t, "y = 1 / 0;")))
	v, ok := in.Global("y")
	require.True(t, ok)
	n, _ := v.AsInt()
	assert.Equal(t, int32(3), n)
}

func TestStatePersistsAcrossRuns(t *testing.T) {
	var out bytes.Buffer
	in := New(WithOutput(&out))
	require.NoError(t, in.Run(context.Background(), parse(t, "x = 2; f = func(a): twice { a * 2; };")))
	require.NoError(t, in.Run(context.Background(), parse(t, "print twice(x);")))
	assert.Equal(t, "4\n", out.String())

	v, ok := in.Global("x")
	require.True(t, ok)
	n, isInt := v.AsInt()
	assert.True(t, isInt)
	assert.Equal(t, int32(2), n)
}

func TestScopeChainRestoredAfterErrorInNestedCalls(t *testing.T) {
	in := New(WithOutput(&bytes.Buffer{}))
	before := in.Depth()
	err := in.Run(context.Background(), parse(t, `
inner = func(n): inner { { { n / 0; }; }; };
outer = func(n): outer { { inner(n); }; };
{ { print outer(1); } }
`))
	require.Error(t, err)
	assert.Equal(t, before, in.Depth())
}

func TestStackOverflow(t *testing.T) {
	var out bytes.Buffer
	in := New(WithOutput(&out), WithMaxDepth(50))
	err := in.Run(context.Background(), parse(t, "f = func(n): f { f(n + 1); }; f(0);"))
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, StackOverflow, rerr.Kind)
	assert.Equal(t, 1, in.Depth())
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in := New(WithOutput(&bytes.Buffer{}))
	err := in.Run(ctx, parse(t, "while (1) ;"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestValues(t *testing.T) {
	assert.True(t, Int(2).Truthy())
	assert.False(t, Int(0).Truthy())
	assert.True(t, Bool(true).Truthy())
	assert.False(t, Nil.Truthy())

	f := &Function{Decl: &syntax.FuncExpr{}}
	assert.False(t, Func(f).Truthy())

	assert.True(t, Int(1).Equal(Int(1)))
	assert.False(t, Int(1).Equal(Bool(true)))
	assert.True(t, Nil.Equal(Nil))
	assert.True(t, Func(f).Equal(Func(&Function{Decl: f.Decl})))

	assert.Equal(t, "nil", Nil.String())
	assert.Equal(t, "1", Bool(true).String())
	assert.Equal(t, "0", Bool(false).String())
	assert.Equal(t, "int", KindInt.String())
	assert.Equal(t, "DivisionByZero", DivisionByZero.String())
}

func TestLoggerFromContext(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	var out bytes.Buffer
	in := New(WithOutput(&out))
	ctx := logging.WithLogger(context.Background(), zap.New(core))
	require.NoError(t, in.Run(ctx, parse(t, "f = func(x): f { x; }; print f(3);")))
	assert.Equal(t, "3\n", out.String())
	calls := logs.FilterMessage("call").All()
	require.Len(t, calls, 1)
	assert.Equal(t, "f", calls[0].ContextMap()["func"])
}
