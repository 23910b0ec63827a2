// Package rtabi defines the names and constants shared between the native
// code generator and the C runtime it links against.
package rtabi

// C library functions called by generated code.
const (
	FnPrintf = "printf"
	FnScanf  = "scanf"
	FnWrite  = "write"
	FnExit   = "exit"
)

// Routines emitted into every module.
const (
	// FnDivTrap reports a division by zero on stderr and exits with
	// ExitRuntimeError.
	FnDivTrap = "prsl.trap.divzero"
)

// Program entry point and symbol prefix for user functions. A function
// named f becomes @prsl.f.N; an anonymous one becomes @prsl.anon.N.
const (
	MainName   = "main"
	FuncPrefix = "prsl."
	AnonName   = "anon"
)

// Global string constants.
const (
	FmtPrintName   = ".fmt.print"
	FmtPrint       = "%d\n"
	FmtScanName    = ".fmt.scan"
	FmtScan        = "%d"
	MsgDivZeroName = ".msg.divzero"
	MsgDivZero     = "Division by zero\n"
)

// Process exit codes of a compiled program.
const (
	ExitOK           = 0
	ExitRuntimeError = 1
)

// Stderr is the file descriptor the trap writes to.
const Stderr = 2

// LLVM types.
const (
	LLVMTypeInt  = "i32"
	LLVMTypeBool = "i1"
	LLVMTypePtr  = "ptr"
	LLVMTypeSize = "i64"
)

// FuncSignature describes an external function's signature for code
// generation.
type FuncSignature struct {
	Name       string   // Function name
	ReturnType string   // LLVM return type
	ParamTypes []string // LLVM parameter types
	Variadic   bool
	NoReturn   bool
}

// Decl returns the LLVM declaration line for s.
func (s FuncSignature) Decl() string {
	params := ""
	for i, p := range s.ParamTypes {
		if i > 0 {
			params += ", "
		}
		params += p
	}
	if s.Variadic {
		if params != "" {
			params += ", "
		}
		params += "..."
	}
	decl := "declare " + s.ReturnType + " @" + s.Name + "(" + params + ")"
	if s.NoReturn {
		decl += " noreturn"
	}
	return decl
}

// RuntimeFunctions returns the signatures of the C functions generated code
// may call.
func RuntimeFunctions() []FuncSignature {
	return []FuncSignature{
		{Name: FnPrintf, ReturnType: LLVMTypeInt, ParamTypes: []string{LLVMTypePtr}, Variadic: true},
		{Name: FnScanf, ReturnType: LLVMTypeInt, ParamTypes: []string{LLVMTypePtr}, Variadic: true},
		{Name: FnWrite, ReturnType: LLVMTypeSize, ParamTypes: []string{LLVMTypeInt, LLVMTypePtr, LLVMTypeSize}},
		{Name: FnExit, ReturnType: "void", ParamTypes: []string{LLVMTypeInt}, NoReturn: true},
	}
}
