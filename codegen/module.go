// Package codegen wraps the LLVM C API bindings (tinygo.org/x/go-llvm)
// used as the codegen library: it owns the LLVM context, module and IR
// builder for one script, declares the fixed runtime callback surface plus
// any add_fn-registered host functions, and exposes the small set of IR
// emission primitives the jit package's builder needs. Native callback
// trampolines are produced with github.com/ebitengine/purego, which turns
// a Go closure into the C-callable function pointer LLVM's execution
// engine binds via AddGlobalMapping.
package codegen

import (
	"tinygo.org/x/go-llvm"
)

// Module owns the IR for one compiled script: a single LLVM context and
// module shared for the whole script, per the "one module per Context"
// rule.
type Module struct {
	ctx     llvm.Context
	mod     llvm.Module
	builder llvm.Builder

	// handleType is the IR representation of a Value handle: a pointer-
	// sized integer, per "every runtime value at the IR level is
	// represented as an opaque pointer-sized integer".
	handleType llvm.Type

	funcs map[string]llvm.Value
}

// NewModule opens an LLVM context and module named name.
func NewModule(name string) *Module {
	ctx := llvm.NewContext()
	return &Module{
		ctx:        ctx,
		mod:        ctx.NewModule(name),
		builder:    ctx.NewBuilder(),
		handleType: ctx.Int64Type(),
		funcs:      make(map[string]llvm.Value),
	}
}

// HandleType returns the IR type used for every boxed Value handle.
func (m *Module) HandleType() llvm.Type { return m.handleType }

// LLVMModule exposes the underlying module for the rare operation (dump,
// verify) that does not warrant its own wrapper method.
func (m *Module) LLVMModule() llvm.Module { return m.mod }

// Builder exposes the underlying IR builder for jit.Builder's direct use
// of instruction-emission calls not wrapped here (branches, phi nodes).
func (m *Module) Builder() llvm.Builder { return m.builder }

// Context exposes the underlying LLVM context, needed to build basic
// blocks and constants from jit.Builder.
func (m *Module) Context() llvm.Context { return m.ctx }

// handleFnType builds the `(handle, handle, ..., handle) -> handle`
// signature shared by most of the fixed callback roster.
func (m *Module) handleFnType(arity int) llvm.Type {
	params := make([]llvm.Type, arity)
	for i := range params {
		params[i] = m.handleType
	}
	return llvm.FunctionType(m.handleType, params, false)
}

// DeclareCallback declares an external function of uniform handle arity
// taking arity handle parameters and returning one handle. It is used for
// every member of the fixed roster whose Go implementation lives in
// runtime.Callbacks, except float_new and string_from which have
// non-uniform signatures (see DeclareFloatNew/DeclareStringFrom).
func (m *Module) DeclareCallback(name string, arity int) llvm.Value {
	if fn, ok := m.funcs[name]; ok {
		return fn
	}
	fn := llvm.AddFunction(m.mod, name, m.handleFnType(arity))
	m.funcs[name] = fn
	return fn
}

// DeclareFloatNew declares float_new(double) -> handle.
func (m *Module) DeclareFloatNew() llvm.Value {
	const name = "float_new"
	if fn, ok := m.funcs[name]; ok {
		return fn
	}
	ftyp := llvm.FunctionType(m.handleType, []llvm.Type{m.ctx.DoubleType()}, false)
	fn := llvm.AddFunction(m.mod, name, ftyp)
	m.funcs[name] = fn
	return fn
}

// DeclareStringFrom declares string_from(i8*) -> handle.
func (m *Module) DeclareStringFrom() llvm.Value {
	const name = "string_from"
	if fn, ok := m.funcs[name]; ok {
		return fn
	}
	ftyp := llvm.FunctionType(m.handleType, []llvm.Type{llvm.PointerType(m.ctx.Int8Type(), 0)}, false)
	fn := llvm.AddFunction(m.mod, name, ftyp)
	m.funcs[name] = fn
	return fn
}

// DeclareLambdaNew declares lambda_new(handle addr, handle arity) -> handle.
func (m *Module) DeclareLambdaNew() llvm.Value {
	return m.DeclareCallback("lambda_new", 2)
}

// DeclareHostFn declares an add_fn-registered external under name with the
// uniform arity handle-typed parameters and a handle return, per
// "add_fn(name, host_ptr, arity) declares an external function in the
// module with arity handle-typed parameters and a handle return".
func (m *Module) DeclareHostFn(name string, arity int) llvm.Value {
	return m.DeclareCallback(name, arity)
}

// DeclareFunction declares (or returns the existing declaration for) a
// script-level function of the given name and arity: one handle parameter
// per declared lambda parameter, returning one handle. Used both for
// `__main__` and for each compiled lambda literal; `__main__` is the one
// exception to the handle signature: it takes no parameters and returns
// void.
func (m *Module) DeclareFunction(name string, arity int) llvm.Value {
	if fn, ok := m.funcs[name]; ok {
		return fn
	}
	ftyp := m.handleFnType(arity)
	if name == "__main__" {
		ftyp = llvm.FunctionType(m.ctx.VoidType(), nil, false)
	}
	fn := llvm.AddFunction(m.mod, name, ftyp)
	m.funcs[name] = fn
	return fn
}

// ConstFloat builds a constant double.
func (m *Module) ConstFloat(f float64) llvm.Value {
	return llvm.ConstFloat(m.ctx.DoubleType(), f)
}

// ConstHandle builds a constant handle-typed integer, used to pass a
// lambda's own function address through IntToPtr/PtrToInt casts.
func (m *Module) ConstHandle(v uint64) llvm.Value {
	return llvm.ConstInt(m.handleType, v, false)
}

// Dispose releases the IR builder and the LLVM context; the module itself
// is owned by the context and is disposed with it. Per the resource model,
// this must run only after the execution engine built over this module has
// itself been disposed.
func (m *Module) Dispose() {
	m.builder.Dispose()
	m.ctx.Dispose()
}

// Verify runs the LLVM module verifier, returning a VerifyError carrying
// the codegen-library diagnostic on failure.
func (m *Module) Verify() error {
	if err := llvm.VerifyModule(m.mod, llvm.ReturnStatusAction); err != nil {
		return &VerifyError{Message: err.Error()}
	}
	return nil
}

// DumpIR renders the module's textual IR, used by the `emit-ir` CLI
// subcommand and by the jit package's golden-snapshot tests.
func (m *Module) DumpIR() string {
	return m.mod.String()
}

// Func returns a previously declared function by name, for binding into
// an execution engine.
func (m *Module) Func(name string) (llvm.Value, bool) {
	fn, ok := m.funcs[name]
	return fn, ok
}
