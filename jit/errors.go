package jit

import "fmt"

// CompileError is raised when the builder meets something it cannot
// lower: a binary operator with no dispatch callback, or a callback that
// was never declared in the module. A callee that is neither a local nor a
// host function is not an error; it is resolved at run time through
// global_get_func. Compile-time, fatal.
type CompileError struct {
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("💥 compile error: %s", e.Message)
}
