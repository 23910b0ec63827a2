package codegen

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func generate(t *testing.T, src string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, parse(t, src), WithSourceName("test.prsl")))
	ir := buf.String()
	checkBlocks(t, ir)
	return ir
}

func generateErr(t *testing.T, src string) *Error {
	t.Helper()
	var buf bytes.Buffer
	err := Generate(&buf, parse(t, src))
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Zero(t, buf.Len(), "nothing is written on error")
	return cerr
}

var terminator = regexp.MustCompile(`^  (br |ret |unreachable)`)

// checkBlocks verifies that every block inside a definition ends in exactly
// one terminator and that no instruction follows one.
func checkBlocks(t *testing.T, ir string) {
	t.Helper()
	var inFunc, closed bool
	for i, line := range strings.Split(ir, "\n") {
		switch {
		case strings.HasPrefix(line, "define "):
			inFunc, closed = true, false
		case !inFunc:
		case line == "}":
			assert.True(t, closed, "line %d: definition ends in an open block", i+1)
			inFunc = false
		case strings.HasSuffix(line, ":") && !strings.HasPrefix(line, " "):
			if line != "entry:" {
				assert.True(t, closed, "line %d: block %s entered by fallthrough", i+1, line)
			}
			closed = false
		case strings.HasPrefix(line, "  ;"):
		default:
			assert.False(t, closed, "line %d: instruction after terminator: %s", i+1, line)
			closed = terminator.MatchString(line)
		}
	}
}

func TestModuleLayout(t *testing.T) {
	ir := generate(t, "print 1 + 2;")
	assert.Contains(t, ir, "source_filename = \"test.prsl\"")
	assert.Contains(t, ir, `@.fmt.print = private unnamed_addr constant [4 x i8] c"%d\0A\00"`)
	assert.Contains(t, ir, `@.fmt.scan = private unnamed_addr constant [3 x i8] c"%d\00"`)
	assert.Contains(t, ir, `@.msg.divzero = private unnamed_addr constant [18 x i8] c"Division by zero\0A\00"`)
	assert.Contains(t, ir, "declare i32 @printf(ptr, ...)")
	assert.Contains(t, ir, "define i32 @main() {")
	assert.Contains(t, ir, "%t0 = add i32 1, 2")
	assert.Contains(t, ir, "call i32 (ptr, ...) @printf(ptr @.fmt.print, i32 %t0)")
	assert.Contains(t, ir, "ret i32 0")
	assert.Contains(t, ir, "define internal void @prsl.trap.divzero() noreturn")
	assert.Contains(t, ir, "call i64 @write(i32 2, ptr @.msg.divzero, i64 17)")
}

func TestVariablesUseSlots(t *testing.T) {
	ir := generate(t, "x = 2; { x = 3; y = x; } print x;")
	assert.Equal(t, 1, strings.Count(ir, "%x.addr.0 = alloca i32"))
	assert.Contains(t, ir, "store i32 3, ptr %x.addr.0")
	assert.Contains(t, ir, "%y.addr.1 = alloca i32")
	assert.Contains(t, ir, "load i32, ptr %x.addr.0")
}

func TestDeterministic(t *testing.T) {
	src := "f = func(a): f { if (a < 1) return 0; a + f(a - 1); }; print f(3);"
	assert.Equal(t, generate(t, src), generate(t, src))
}

func TestControlFlow(t *testing.T) {
	ir := generate(t, `
i = 0;
while (i < 3) {
	if (i == 1) print 10; else print i;
	i++;
}
if (i) print 7;
`)
	for _, want := range []string{
		"br label %while.cond.0",
		"while.cond.0:",
		"icmp slt i32",
		"zext i1",
		"while.body.1:",
		"if.then.",
		"if.else.",
		"while.end.2:",
	} {
		assert.Contains(t, ir, want)
	}
}

func TestScopeExpression(t *testing.T) {
	ir := generate(t, "v = { a = 2; if (a) return 5; a * 3; }; print v;")
	assert.Contains(t, ir, "%scope.addr.1 = alloca i32")
	assert.Contains(t, ir, "store i32 5, ptr %scope.addr.1")
	assert.Contains(t, ir, "br label %scope.exit.0")
	assert.Contains(t, ir, "scope.exit.0:")
}

func TestTopLevelReturn(t *testing.T) {
	ir := generate(t, "print 1; return 0; print 2;")
	assert.Contains(t, ir, "dead.0:")
}

func TestFunctionsAreHoisted(t *testing.T) {
	ir := generate(t, `
add = func(a, b): plus { a + b; };
print plus(1, 2);
print add(3, 4);
`)
	main := strings.Index(ir, "define i32 @main()")
	def := strings.Index(ir, "define internal i32 @prsl.plus.0(i32 %arg0, i32 %arg1)")
	require.True(t, main >= 0 && def > main, "functions follow main")
	assert.Contains(t, ir, "store i32 %arg0, ptr %a.addr.0")
	assert.Contains(t, ir, "call i32 @prsl.plus.0(i32 1, i32 2)")
	assert.Contains(t, ir, "call i32 @prsl.plus.0(i32 3, i32 4)")
	assert.Contains(t, ir, "; func plus at test.prsl:2:7")
}

func TestAnonymousFunctionBoundToName(t *testing.T) {
	ir := generate(t, "sq = func(n) { n * n; }; print sq(5);")
	assert.Contains(t, ir, "define internal i32 @prsl.anon.0(i32 %arg0)")
	assert.Contains(t, ir, "call i32 @prsl.anon.0(i32 5)")
}

func TestNestedFunctionsCallable(t *testing.T) {
	ir := generate(t, `
outer = func(x): outer {
	y = helper(x);
	func(v): helper { v * 2; };
	y + 1;
};
print helper(5);
`)
	assert.Contains(t, ir, "define internal i32 @prsl.outer.0(i32 %arg0)")
	assert.Contains(t, ir, "define internal i32 @prsl.helper.1(i32 %arg0)")
	assert.Contains(t, ir, "call i32 @prsl.helper.1(i32 5)")
}

func TestDivisionTraps(t *testing.T) {
	ir := generate(t, "a = 7; print a / 2;")
	assert.Contains(t, ir, "call void @prsl.trap.divzero()")
	assert.Contains(t, ir, "icmp eq i32 2, 0")
	assert.Contains(t, ir, "icmp eq i32 2, -1")
	assert.Contains(t, ir, "sdiv i32")
}

func TestInputAndPostfix(t *testing.T) {
	ir := generate(t, "a = ?; print a++; print (b = 1)--;")
	assert.Contains(t, ir, "call i32 (ptr, ...) @scanf(ptr @.fmt.scan, ptr %in.addr.1)")
	assert.Contains(t, ir, "store i32 0, ptr %in.addr.1")
	assert.Regexp(t, `%t\d+ = add i32 %t\d+, 1\n  store i32 %t\d+, ptr %a.addr.0`, ir)
	assert.Regexp(t, `%t\d+ = sub i32 1, 1\n  store i32 %t\d+, ptr %b.addr.2`, ir)
}

func TestMixedEqualityFolds(t *testing.T) {
	ir := generate(t, "print (1 < 2) == 1; print (1 < 2) != 1;")
	assert.Contains(t, ir, "@printf(ptr @.fmt.print, i32 0)")
	assert.Contains(t, ir, "@printf(ptr @.fmt.print, i32 1)")
}

func TestRejected(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"print function", "f = func() { 1; }; print f;", errFuncValue},
		{"function argument", "f = func(a) { a; }; g = func() { 1; }; f(g);", errFuncValue},
		{"copy function", "f = func() { 1; }; g = f;", errFuncValue},
		{"rebind function", "f = func() { 1; }; f = func() { 2; };", errFuncValue},
		{"function over int", "f = 1; f = func() { 2; };", errFuncValue},
		{"int over function", "f = func() { 1; }; f = 2;", errFuncValue},
		{"call int", "x = 3; x();", "'x' is not a function known at compile time"},
		{"arity", "f = func(a) { a; }; f(1, 2);", "'f' takes 1 arguments, got 2"},
		{"undefined", "g();", "undefined function 'g'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := generateErr(t, tt.src)
			assert.Equal(t, tt.msg, err.Msg)
			assert.Equal(t, "test.prsl", err.Pos.Filename())
		})
	}
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `a\0A\22\5C\00`, escape("a\n\"\\"))
}
