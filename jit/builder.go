// Package jit walks the parser's AST and emits codegen IR into a single
// module shared for the whole script, targeting the uniform handle
// calling convention described by the runtime callback surface: every
// runtime value at the IR level is an opaque pointer-sized integer, and
// every non-trivial operation is lowered to a call into a pre-declared
// external host function.
package jit

import (
	"tinygo.org/x/go-llvm"

	"tinylambda/ast"
	"tinylambda/codegen"
	"tinylambda/runtime"
)

// fixedRoster is every callback of the uniform (handle...) -> handle
// shape declared up front, grounded on SPEC_FULL.md §1/§5's runtime
// callback surface.
var fixedRoster = []struct {
	name  string
	arity int
}{
	{"global_get", 2},
	{"global_get_func", 2},
	{"global_set", 3},
	{"array_new", 0},
	{"array_push", 2},
	{"dict_new", 0},
	{"dict_insert", 3},
	{"dict_remove", 2},
	{"value_delete", 1},
	{"lambda_addr", 1},
	{"is_truthy", 1},
	{"add", 2}, {"sub", 2}, {"mul", 2}, {"div", 2}, {"mod", 2},
	{"and", 2}, {"or", 2},
	{"eq", 2}, {"neq", 2}, {"gt", 2}, {"le", 2}, {"gte", 2}, {"lee", 2},
}

var binaryCallback = map[string]string{
	"+": "add", "-": "sub", "*": "mul", "/": "div", "%": "mod",
	"&&": "and", "||": "or",
	"==": "eq", "!=": "neq", ">": "gt", "<": "le", ">=": "gte", "<=": "lee",
}

// Builder implements ast.StmtVisitor and ast.ExpressionVisitor, lowering
// the AST into the Module's IR.
type Builder struct {
	mod  *codegen.Module
	rctx *runtime.Context

	fn llvm.Value

	// blockStack holds the insertion block to restore after emitting a
	// nested lambda function, one frame per lambda being built.
	blockStack []llvm.BasicBlock

	// localStack holds the compile-time name -> IR-value map for each
	// lambda currently being built. A non-empty stack means the builder
	// is inside a lambda body.
	localStack []map[string]llvm.Value

	lambdaSeq int
}

// Build declares the fixed callback roster plus every registered host
// function, emits `__main__` for program, and verifies the module.
func Build(mod *codegen.Module, rctx *runtime.Context, program []ast.Stmt) (err error) {
	b := &Builder{mod: mod, rctx: rctx}

	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*CompileError); ok {
				err = ce
				return
			}
			panic(r)
		}
	}()

	b.declareRoster()

	mainFn := mod.DeclareFunction("__main__", 0)
	b.fn = mainFn
	entry := llvm.AddBasicBlock(mainFn, "entry")
	mod.Builder().SetInsertPointAtEnd(entry)

	for _, stmt := range program {
		stmt.Accept(b)
	}
	mod.Builder().CreateRetVoid()

	return mod.Verify()
}

func (b *Builder) declareRoster() {
	for _, cb := range fixedRoster {
		b.mod.DeclareCallback(cb.name, cb.arity)
	}
	b.mod.DeclareFloatNew()
	b.mod.DeclareStringFrom()
	b.mod.DeclareLambdaNew()

	for _, name := range b.rctx.HostFnNames() {
		b.mod.DeclareHostFn(name, b.rctx.HostFns[name].Arity)
	}
}

func (b *Builder) callback(name string) llvm.Value {
	fn, ok := b.mod.Func(name)
	if !ok {
		panic(&CompileError{Message: "internal: callback " + name + " was never declared"})
	}
	return fn
}

func (b *Builder) zeroCtx() llvm.Value {
	return b.mod.ConstHandle(0)
}

func (b *Builder) emitValueDelete(h llvm.Value) {
	b.mod.Builder().CreateCall(b.callback("value_delete"), []llvm.Value{h}, "")
}

func (b *Builder) currentLocals() map[string]llvm.Value {
	if len(b.localStack) == 0 {
		return nil
	}
	return b.localStack[len(b.localStack)-1]
}

func (b *Builder) inLambda() bool {
	return len(b.localStack) > 0
}

// emitAccessArray builds array_new()/array_push(...) IR for an access
// path: a Str segment per dotted field, or the evaluated expression's
// handle per bracketed index.
func (b *Builder) emitAccessArray(path ast.Access) llvm.Value {
	irBuilder := b.mod.Builder()

	arr := irBuilder.CreateCall(b.callback("array_new"), nil, "")
	baseStr := b.emitStringConst(path.Base.Lexeme)
	irBuilder.CreateCall(b.callback("array_push"), []llvm.Value{arr, baseStr}, "")

	for _, seg := range path.Segments {
		var elem llvm.Value
		if seg.Index != nil {
			elem = b.emitExpr(seg.Index)
		} else {
			elem = b.emitStringConst(seg.Field)
		}
		irBuilder.CreateCall(b.callback("array_push"), []llvm.Value{arr, elem}, "")
	}
	return arr
}

func (b *Builder) emitStringConst(s string) llvm.Value {
	irBuilder := b.mod.Builder()
	cstr := irBuilder.CreateGlobalStringPtr(s, "")
	return irBuilder.CreateCall(b.callback("string_from"), []llvm.Value{cstr}, "")
}

// --- ast.StmtVisitor ---

func (b *Builder) VisitBlock(stmt *ast.Block) any {
	for _, s := range stmt.Statements {
		s.Accept(b)
	}
	return nil
}

// VisitAssign implements the two assignment emission rules: a
// bare identifier inside a lambda body binds a local; anything else boxes
// the access path and calls global_set, descending through nested
// containers for a dotted/bracketed path.
func (b *Builder) VisitAssign(stmt *ast.Assign) any {
	if len(stmt.Path.Segments) == 0 && b.inLambda() {
		val := b.emitExpr(stmt.Value)
		b.currentLocals()[stmt.Path.Base.Lexeme] = val
		return nil
	}

	pathHandle := b.emitAccessArray(stmt.Path)
	val := b.emitExpr(stmt.Value)
	irBuilder := b.mod.Builder()
	result := irBuilder.CreateCall(b.callback("global_set"), []llvm.Value{b.zeroCtx(), pathHandle, val}, "")
	b.emitValueDelete(pathHandle)
	b.emitValueDelete(result)
	return nil
}

// VisitCall resolves the callee in priority order: a local parameter by
// name, a registered extern callback by name, then a runtime global. Each
// freshly-minted argument handle is released once the call has consumed
// it; a bare-local-name argument is left untouched since it is still
// bound for later reads.
func (b *Builder) VisitCall(stmt *ast.Call) any {
	irBuilder := b.mod.Builder()

	args := make([]llvm.Value, len(stmt.Args))
	argOwned := make([]bool, len(stmt.Args))
	for i, a := range stmt.Args {
		args[i], argOwned[i] = b.emitOperand(a)
	}
	releaseArgs := func() {
		for i, a := range args {
			if argOwned[i] {
				b.emitValueDelete(a)
			}
		}
	}

	name := stmt.Callee.Base.Lexeme
	arity := len(stmt.Args)

	if len(stmt.Callee.Segments) == 0 {
		if local, ok := b.currentLocals()[name]; ok {
			addr := irBuilder.CreateCall(b.callback("lambda_addr"), []llvm.Value{local}, "")
			b.emitIndirectCall(addr, args, arity)
			releaseArgs()
			return nil
		}
		if _, ok := b.rctx.HostFns[name]; ok {
			irBuilder.CreateCall(b.callback(name), args, "")
			releaseArgs()
			return nil
		}
	}

	pathHandle := b.emitAccessArray(stmt.Callee)
	addr := irBuilder.CreateCall(b.callback("global_get_func"), []llvm.Value{b.zeroCtx(), pathHandle}, "")
	b.emitValueDelete(pathHandle)
	b.emitIndirectCall(addr, args, arity)
	releaseArgs()
	return nil
}

// emitIndirectCall casts a raw code address (as produced by
// global_get_func or lambda_addr) to a function pointer of the call
// site's derived arity and invokes it. Arity mismatch between the
// site and the actual lambda is undefined behavior.
func (b *Builder) emitIndirectCall(addr llvm.Value, args []llvm.Value, arity int) llvm.Value {
	irBuilder := b.mod.Builder()
	fnType := llvm.FunctionType(b.mod.HandleType(), repeatHandleType(b.mod, arity), false)
	ptrType := llvm.PointerType(fnType, 0)
	fnPtr := irBuilder.CreateIntToPtr(addr, ptrType, "")
	return irBuilder.CreateCall(fnPtr, args, "")
}

func repeatHandleType(mod *codegen.Module, n int) []llvm.Type {
	types := make([]llvm.Type, n)
	for i := range types {
		types[i] = mod.HandleType()
	}
	return types
}

// VisitIf lowers the condition's boxed handle to a native i1 via the
// internal is_truthy helper, then branches between then/else basic
// blocks that converge on a shared continuation block.
func (b *Builder) VisitIf(stmt *ast.If) any {
	irBuilder := b.mod.Builder()

	condHandle, condOwned := b.emitOperand(stmt.Condition)
	truthyInt := irBuilder.CreateCall(b.callback("is_truthy"), []llvm.Value{condHandle}, "")
	if condOwned {
		b.emitValueDelete(condHandle)
	}
	cond := irBuilder.CreateICmp(llvm.IntNE, truthyInt, b.mod.ConstHandle(0), "")

	thenBlock := llvm.AddBasicBlock(b.fn, "then")
	contBlock := llvm.AddBasicBlock(b.fn, "endif")

	if stmt.Else == nil {
		irBuilder.CreateCondBr(cond, thenBlock, contBlock)

		irBuilder.SetInsertPointAtEnd(thenBlock)
		stmt.Then.Accept(b)
		irBuilder.CreateBr(contBlock)

		irBuilder.SetInsertPointAtEnd(contBlock)
		return nil
	}

	elseBlock := llvm.AddBasicBlock(b.fn, "else")
	irBuilder.CreateCondBr(cond, thenBlock, elseBlock)

	irBuilder.SetInsertPointAtEnd(thenBlock)
	stmt.Then.Accept(b)
	irBuilder.CreateBr(contBlock)

	irBuilder.SetInsertPointAtEnd(elseBlock)
	stmt.Else.Accept(b)
	irBuilder.CreateBr(contBlock)

	irBuilder.SetInsertPointAtEnd(contBlock)
	return nil
}

// --- ast.ExpressionVisitor ---

func (b *Builder) emitExpr(e ast.Expression) llvm.Value {
	return e.Accept(b).(llvm.Value)
}

// emitOperand evaluates e and reports whether the resulting handle is
// freshly minted for this call site (the caller owns it and must
// value_delete it once consumed) or a borrowed reference to a still-live
// local binding (a lambda parameter or a locally-assigned name), which
// must be left alone since later statements may still read it. Per
// spec.md's ownership rule, only a bare local-name Var ever returns a
// borrowed handle; every other expression kind mints its result fresh.
func (b *Builder) emitOperand(e ast.Expression) (llvm.Value, bool) {
	if v, ok := e.(*ast.Var); ok && len(v.Path.Segments) == 0 {
		if local, ok := b.currentLocals()[v.Path.Base.Lexeme]; ok {
			return local, false
		}
	}
	return b.emitExpr(e), true
}

// VisitBinary lowers a binary operator to its callback and releases any
// freshly-minted operand once the call has consumed it, per spec.md §9's
// "operator results... are a known leak" note.
func (b *Builder) VisitBinary(expr *ast.Binary) any {
	left, leftOwned := b.emitOperand(expr.Left)
	right, rightOwned := b.emitOperand(expr.Right)

	name, ok := binaryCallback[string(expr.Operator.TokenType)]
	if !ok {
		panic(&CompileError{Message: "unknown operator " + expr.Operator.Lexeme})
	}
	result := b.mod.Builder().CreateCall(b.callback(name), []llvm.Value{left, right}, "")
	if leftOwned {
		b.emitValueDelete(left)
	}
	if rightOwned {
		b.emitValueDelete(right)
	}
	return result
}

func (b *Builder) VisitFloat(expr *ast.Float) any {
	irBuilder := b.mod.Builder()
	return irBuilder.CreateCall(b.callback("float_new"), []llvm.Value{b.mod.ConstFloat(expr.Value)}, "")
}

func (b *Builder) VisitStr(expr *ast.Str) any {
	return b.emitStringConst(expr.Value)
}

// VisitVar reads a single identifier inside a lambda body from the local
// map; any other access path calls global_get.
func (b *Builder) VisitVar(expr *ast.Var) any {
	if len(expr.Path.Segments) == 0 {
		if local, ok := b.currentLocals()[expr.Path.Base.Lexeme]; ok {
			return local
		}
	}

	irBuilder := b.mod.Builder()
	pathHandle := b.emitAccessArray(expr.Path)
	result := irBuilder.CreateCall(b.callback("global_get"), []llvm.Value{b.zeroCtx(), pathHandle}, "")
	b.emitValueDelete(pathHandle)
	return result
}

// VisitLambda allocates a new IR function with one handle-typed parameter
// per declared name, builds its body in a fresh insertion point, restores
// the caller's insertion point, and boxes the function's address as a
// first-class Lambda value.
func (b *Builder) VisitLambda(expr *ast.Lambda) any {
	irBuilder := b.mod.Builder()

	b.lambdaSeq++
	name := lambdaName(b.lambdaSeq)
	fn := b.mod.DeclareFunction(name, len(expr.Params))

	savedBlock := irBuilder.GetInsertBlock()
	savedFn := b.fn
	b.blockStack = append(b.blockStack, savedBlock)

	locals := make(map[string]llvm.Value, len(expr.Params))
	for i, param := range expr.Params {
		locals[param.Lexeme] = fn.Param(i)
	}
	b.localStack = append(b.localStack, locals)

	entry := llvm.AddBasicBlock(fn, "entry")
	irBuilder.SetInsertPointAtEnd(entry)
	b.fn = fn

	var last llvm.Value
	for _, stmt := range expr.Body.Statements {
		if exprStmt, ok := stmt.(*ast.Assign); ok && len(exprStmt.Path.Segments) == 0 {
			last = b.emitExpr(exprStmt.Value)
			locals[exprStmt.Path.Base.Lexeme] = last
			continue
		}
		stmt.Accept(b)
	}
	if last.IsNil() {
		last = irBuilder.CreateCall(b.callback("float_new"), []llvm.Value{b.mod.ConstFloat(0)}, "")
	}
	irBuilder.CreateRet(last)

	b.localStack = b.localStack[:len(b.localStack)-1]
	b.blockStack = b.blockStack[:len(b.blockStack)-1]
	b.fn = savedFn
	irBuilder.SetInsertPointAtEnd(savedBlock)

	addr := irBuilder.CreatePtrToInt(fn, b.mod.HandleType(), "")
	arityConst := b.mod.ConstHandle(uint64(len(expr.Params)))
	return irBuilder.CreateCall(b.callback("lambda_new"), []llvm.Value{addr, arityConst}, "")
}

func (b *Builder) VisitDict(expr *ast.Dict) any {
	irBuilder := b.mod.Builder()
	d := irBuilder.CreateCall(b.callback("dict_new"), nil, "")
	for _, entry := range expr.Entries {
		key := b.emitStringConst(entry.Key.Lexeme)
		val := b.emitExpr(entry.Value)
		irBuilder.CreateCall(b.callback("dict_insert"), []llvm.Value{d, key, val}, "")
		b.emitValueDelete(key)
	}
	return d
}

func (b *Builder) VisitArray(expr *ast.Array) any {
	irBuilder := b.mod.Builder()
	arr := irBuilder.CreateCall(b.callback("array_new"), nil, "")
	for _, elemExpr := range expr.Elements {
		val := b.emitExpr(elemExpr)
		irBuilder.CreateCall(b.callback("array_push"), []llvm.Value{arr, val}, "")
	}
	return arr
}

func lambdaName(seq int) string {
	return "__lambda_" + itoa(seq)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
