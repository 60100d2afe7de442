package interp

import "fmt"

// RuntimeError is raised for a shape the tree-walking interpreter cannot
// make sense of: calling a non-Lambda value, or referencing an undeclared
// host function. Unlike the JIT path's missing-intermediate case, the
// interpreter can unwind an ordinary Go panic all the way to Interpret's
// recover, so it is free to fail loudly here instead of resolving to Null.
type RuntimeError struct {
	Line    int32
	Column  int
	Message string
}

func CreateRuntimeError(line int32, column int, message string) RuntimeError {
	return RuntimeError{Line: line, Column: column, Message: message}
}

func (e RuntimeError) Error() string {
	return fmt.Sprintf("💥 runtime error:\nline:%d, column:%d - %s", e.Line, e.Column, e.Message)
}
