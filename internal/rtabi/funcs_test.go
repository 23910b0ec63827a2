package rtabi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecl(t *testing.T) {
	want := map[string]string{
		FnPrintf: "declare i32 @printf(ptr, ...)",
		FnScanf:  "declare i32 @scanf(ptr, ...)",
		FnWrite:  "declare i64 @write(i32, ptr, i64)",
		FnExit:   "declare void @exit(i32) noreturn",
	}
	fns := RuntimeFunctions()
	assert.Len(t, fns, len(want))
	for _, fn := range fns {
		assert.Equal(t, want[fn.Name], fn.Decl())
	}
	assert.Equal(t, "declare void @f(...)", FuncSignature{Name: "f", ReturnType: "void", Variadic: true}.Decl())
}
