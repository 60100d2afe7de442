package codegen

import (
	"unsafe"

	"github.com/ebitengine/purego"
	"tinygo.org/x/go-llvm"
)

// Engine wraps the MCJIT execution engine built over a Module: the
// "links, finalizes, resolves external symbols" step of run().
type Engine struct {
	mod *Module
	ee  llvm.ExecutionEngine

	// trampolines keeps every purego callback pointer reachable for the
	// engine's lifetime; purego's native stub would otherwise be a
	// candidate for garbage collection once the Go closure driving it
	// becomes unreachable.
	trampolines []uintptr
}

// NewEngine initializes the native target and builds an MCJIT execution
// engine over mod. Callers must call Dispose before the underlying Module
// is disposed.
func NewEngine(mod *Module) (*Engine, error) {
	if err := llvm.InitializeNativeTarget(); err != nil {
		return nil, &LinkError{Message: err.Error()}
	}
	if err := llvm.InitializeNativeAsmPrinter(); err != nil {
		return nil, &LinkError{Message: err.Error()}
	}

	ee, err := llvm.NewExecutionEngine(mod.mod)
	if err != nil {
		return nil, &LinkError{Message: err.Error()}
	}

	return &Engine{mod: mod, ee: ee}, nil
}

// BindCallback wires a declared external function symbol named name to
// the native function pointer produced from fn by purego.NewCallback. fn
// must have a signature compatible with the function's IR declaration:
// C-calling-convention parameters/return matching uintptr or float64.
func (e *Engine) BindCallback(name string, fn interface{}) error {
	decl, ok := e.mod.Func(name)
	if !ok {
		return &LinkError{Message: "no declaration for callback " + name}
	}
	trampoline := purego.NewCallback(fn)
	e.trampolines = append(e.trampolines, trampoline)
	e.ee.AddGlobalMapping(decl, unsafe.Pointer(trampoline))
	return nil
}

// FunctionAddress returns the native entry address the engine resolves
// for a declared function (used to box a bound host function's address
// into its Lambda global). Lambda literals do not go through it: their
// address is taken in the emitted IR and passed to lambda_new.
func (e *Engine) FunctionAddress(name string) uintptr {
	decl, ok := e.mod.Func(name)
	if !ok {
		return 0
	}
	return uintptr(e.ee.GetFunctionAddress(decl.Name()))
}

// Invoke runs the named zero-argument function (ordinarily `__main__`) to
// completion.
func (e *Engine) Invoke(name string) error {
	decl, ok := e.mod.Func(name)
	if !ok {
		return &LinkError{Message: "no declaration for function " + name}
	}
	e.ee.RunFunction(decl, nil)
	return nil
}

// Dispose releases the execution engine. Must run before the owning
// Module is disposed, per the resource model's strict teardown order.
func (e *Engine) Dispose() {
	e.ee.Dispose()
}
