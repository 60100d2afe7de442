package codegen

import "fmt"

// VerifyError is raised when the codegen library's module verifier
// rejects the emitted IR. Compile-time, fatal.
type VerifyError struct {
	Message string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("💥 module verification failed: %s", e.Message)
}

// LinkError is raised when the execution engine cannot be constructed
// (target initialization failure, symbol resolution failure).
type LinkError struct {
	Message string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("💥 link error: %s", e.Message)
}
