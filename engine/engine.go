// Package engine is the public embedding API: the single entry point a
// host process uses to register native callbacks, compile a source file,
// run it through the JIT, and read back the resulting globals. It wraps
// runtime.Context, codegen.Module and codegen.Engine behind the
// New/AddFn/ReadFile/Run/Get* surface spec'd for the engine driver.
package engine

import (
	"os"

	"tinylambda/ast"
	"tinylambda/codegen"
	"tinylambda/jit"
	"tinylambda/lexer"
	"tinylambda/parser"
	"tinylambda/runtime"
	"tinylambda/value"
)

// Context owns one script's whole compile/run lifecycle: created empty,
// has callbacks registered into it, is read and compiled from exactly one
// source file, and is run at most once. Re-compilation is out of scope.
type Context struct {
	rctx *runtime.Context
	mod  *codegen.Module
	cbs  *runtime.Callbacks

	program []ast.Stmt
	eng     *codegen.Engine
}

// New opens a codegen context and module and allocates the runtime
// context backing it.
func New() *Context {
	rctx := runtime.New()
	return &Context{
		rctx: rctx,
		mod:  codegen.NewModule("tinylambda"),
		cbs:  runtime.NewCallbacks(rctx),
	}
}

// AddFn registers a native callback under name, with the given arity. It
// appears to scripts as a global Lambda once Run links and finalizes the
// module.
func (c *Context) AddFn(name string, arity int, fn func(args []*value.Value) *value.Value) {
	c.rctx.AddFn(name, arity, fn)
}

// ReadFile parses path, emits `__main__`, and verifies the module — the
// "read_file(path) parses, emits __main__, verifies the module" step of
// the engine driver.
func (c *Context) ReadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.compile(string(data))
}

// Compile runs the same pipeline as ReadFile over an in-memory source
// string, for hosts that already have the script bytes (the REPL, tests).
func (c *Context) Compile(source string) error {
	return c.compile(source)
}

func (c *Context) compile(source string) error {
	lex := lexer.New(source)
	tokens, err := lex.Scan()
	if err != nil {
		return err
	}
	p := parser.Make(tokens)
	program, err := p.Parse()
	if err != nil {
		return err
	}
	c.program = program
	return jit.Build(c.mod, c.rctx, program)
}

// Run links the MCJIT execution engine, binds every fixed callback and
// every add_fn-registered host function, inserts one Lambda(func_addr)
// global per registered callback so a bare reference to its name resolves
// through global_get_func, then fetches and invokes `__main__`. Run does
// not release the execution engine; it stays in place until Dispose.
func (c *Context) Run() error {
	eng, err := codegen.NewEngine(c.mod)
	if err != nil {
		return err
	}
	c.eng = eng

	if err := c.bindFixedRoster(); err != nil {
		return err
	}
	if err := c.bindHostFns(); err != nil {
		return err
	}

	if err := eng.Invoke("__main__"); err != nil {
		return err
	}
	return nil
}

// Dispose releases the execution engine and the codegen module, in that
// order, per the resource model's strict teardown rule. Callers should
// defer this right after a successful New().
func (c *Context) Dispose() {
	if c.eng != nil {
		c.eng.Dispose()
	}
	c.mod.Dispose()
}

func (c *Context) bindFixedRoster() error {
	bindings := map[string]interface{}{
		"global_get":      c.cbs.GlobalGet,
		"global_get_func": c.cbs.GlobalGetFunc,
		"global_set":      c.cbs.GlobalSet,
		"array_new":       c.cbs.ArrayNew,
		"array_push":      c.cbs.ArrayPush,
		"dict_new":        c.cbs.DictNew,
		"dict_insert":     c.cbs.DictInsert,
		"dict_remove":     c.cbs.DictRemove,
		"string_from":     c.cbs.StringFrom,
		"float_new":       c.cbs.FloatNew,
		"lambda_new":      c.cbs.LambdaNew,
		"value_delete":    c.cbs.ValueDelete,
		"is_truthy":       c.cbs.Truthy,
		"lambda_addr":     c.cbs.LambdaAddr,
		"add":             c.cbs.Add,
		"sub":             c.cbs.Sub,
		"mul":             c.cbs.Mul,
		"div":             c.cbs.Div,
		"mod":             c.cbs.Mod,
		"and":             c.cbs.And,
		"or":              c.cbs.Or,
		"eq":              c.cbs.Eq,
		"neq":             c.cbs.Neq,
		"gt":              c.cbs.Gt,
		"le":              c.cbs.Le,
		"gte":             c.cbs.Gte,
		"lee":             c.cbs.Lee,
	}
	for name, fn := range bindings {
		if err := c.eng.BindCallback(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// bindHostFns wires each add_fn-registered callback to its native
// trampoline, then inserts a Lambda global for it under its own name so
// a script can both call it directly (tier-2 callee resolution in
// jit.Builder) and pass it around as a first-class value (tier-3,
// resolved through global_get_func). Iterates in registration order
// (Context.HostFnNames) rather than Go's randomized map order, so binding
// failures are reproducible and the bound addresses land deterministically.
func (c *Context) bindHostFns() error {
	for _, name := range c.rctx.HostFnNames() {
		hostFn := c.rctx.HostFns[name]
		if err := c.eng.BindCallback(name, hostFnTrampoline(hostFn)); err != nil {
			return err
		}
		addr := c.eng.FunctionAddress(name)
		c.rctx.Globals[name] = value.NewLambda(addr, hostFn.Arity)
	}
	return nil
}

// hostFnTrampoline adapts a HostFn's ([]*value.Value) -> *value.Value
// shape to the fixed-arity, uintptr-handle C calling convention codegen
// declares for it; purego.NewCallback requires a concrete fixed-arity
// function value, so the arity is dispatched here rather than using a
// variadic signature.
func hostFnTrampoline(hostFn *runtime.HostFn) interface{} {
	call := func(handles []uintptr) uintptr {
		args := make([]*value.Value, len(handles))
		for i, h := range handles {
			args[i] = resolveArg(h)
		}
		result := hostFn.Fn(args)
		return value.Handle(result.Retain())
	}

	switch hostFn.Arity {
	case 0:
		return func() uintptr { return call(nil) }
	case 1:
		return func(a uintptr) uintptr { return call([]uintptr{a}) }
	case 2:
		return func(a, b uintptr) uintptr { return call([]uintptr{a, b}) }
	case 3:
		return func(a, b, c uintptr) uintptr { return call([]uintptr{a, b, c}) }
	case 4:
		return func(a, b, c, d uintptr) uintptr { return call([]uintptr{a, b, c, d}) }
	default:
		return func(a, b, c, d, e uintptr) uintptr { return call([]uintptr{a, b, c, d, e}) }
	}
}

func resolveArg(h uintptr) *value.Value {
	if h == 0 {
		return value.Null
	}
	return value.FromHandle(h)
}

// Get returns the current value bound to name, or Null if unbound.
func (c *Context) Get(name string) *value.Value {
	return c.rctx.Get(name)
}

// GetFloat is the typed projection for a Float global; non-Float or
// unbound resolves to 0.
func (c *Context) GetFloat(name string) float64 {
	return c.rctx.GetFloat(name)
}

// GetString is the typed projection for a Str global; non-Str or unbound
// resolves to an empty string.
func (c *Context) GetString(name string) string {
	v := c.rctx.Get(name)
	if v.Kind != value.KindStr {
		return ""
	}
	return string(v.Str)
}

// GetArray is the typed projection for an Array global; non-Array or
// unbound resolves to nil.
func (c *Context) GetArray(name string) []*value.Value {
	v := c.rctx.Get(name)
	if v.Kind != value.KindArray {
		return nil
	}
	return v.Array
}

// DumpIR exposes the compiled module's textual IR, useful for golden-file
// tests and the CLI's emit-ir subcommand.
func (c *Context) DumpIR() string {
	return c.mod.DumpIR()
}
