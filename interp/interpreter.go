// Package interp provides a tree-walking interpreter that executes the
// same AST the jit package compiles to native code. It exists to give
// reference semantics independent of LLVM/MCJIT: useful in tests that pin
// down behavior, and as a fallback evaluation strategy a host can pick
// when it has no interest in paying for JIT compilation.
//
// It shares the value and runtime packages with the JIT path, so a global
// set by compiled code and one set by the interpreter are interchangeable,
// but it never mints cgo.Handles or crosses into generated machine code:
// every operation here is a plain Go function call.
package interp

import (
	"fmt"

	"tinylambda/ast"
	"tinylambda/runtime"
	"tinylambda/token"
	"tinylambda/value"
)

// closure pairs a Lambda literal's parameter names and body with nothing
// else, since lambdas never capture enclosing locals (see ast.Lambda).
type closure struct {
	params []string
	body   *ast.Block
}

// Interpreter implements ast.StmtVisitor and ast.ExpressionVisitor,
// evaluating statements and expressions directly against value.Value
// rather than emitting IR.
type Interpreter struct {
	ctx *runtime.Context
	env *Environment

	// closures maps a Lambda value's LambdaAddr field to its AST. In this
	// realization LambdaAddr is a closure-table index minted by
	// VisitLambda, not a native code address (contrast with the jit
	// package, where it is a real function pointer) — both packages
	// produce the same value.Value shape, but only the interpreter that
	// built a given Lambda understands what its address field means.
	closures map[uintptr]*closure
	nextID   uintptr
}

// New builds an interpreter sharing ctx's globals and host functions with
// any other execution strategy the host has also set up.
func New(ctx *runtime.Context) *Interpreter {
	return &Interpreter{
		ctx:      ctx,
		env:      MakeGlobalEnvironment(ctx),
		closures: make(map[uintptr]*closure),
	}
}

// Interpret executes a parsed program, recovering from a panic raised by
// any Visit method and reporting it as an error instead of crashing the
// host process.
func (i *Interpreter) Interpret(program []ast.Stmt) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()
	i.execStatements(program)
	return nil
}

func (i *Interpreter) execStatements(statements []ast.Stmt) {
	for _, s := range statements {
		s.Accept(i)
	}
}

func (i *Interpreter) evaluate(e ast.Expression) *value.Value {
	return e.Accept(i).(*value.Value)
}

// --- ast.StmtVisitor ---

func (i *Interpreter) VisitBlock(stmt *ast.Block) any {
	i.execStatements(stmt.Statements)
	return nil
}

// VisitAssign binds a bare identifier in the current scope; an access path
// with one or more segments always descends against the shared globals,
// regardless of scope, mirroring the JIT builder's own split.
func (i *Interpreter) VisitAssign(stmt *ast.Assign) any {
	val := i.evaluate(stmt.Value)

	if len(stmt.Path.Segments) == 0 {
		i.env.set(stmt.Path.Base.Lexeme, val)
		return nil
	}

	i.assignPath(stmt.Path, val)
	return nil
}

func (i *Interpreter) assignPath(path ast.Access, val *value.Value) {
	key := path.Base.Lexeme
	cur := i.ctx.Get(key)
	for idx := 0; idx < len(path.Segments)-1; idx++ {
		cur = i.descend(cur, path.Segments[idx])
		if cur == value.Null {
			return
		}
	}
	i.assignLeaf(cur, path.Segments[len(path.Segments)-1], val)
}

func (i *Interpreter) descend(cur *value.Value, seg ast.Segment) *value.Value {
	switch cur.Kind {
	case value.KindDict:
		if seg.Index != nil {
			return value.Null
		}
		if v, ok := cur.Dict[seg.Field]; ok {
			return v
		}
		return value.Null
	case value.KindArray:
		if seg.Index == nil {
			return value.Null
		}
		idxVal := i.evaluate(seg.Index)
		if idxVal.Kind != value.KindFloat {
			return value.Null
		}
		idx := int(idxVal.Float)
		if idx < 0 || idx >= len(cur.Array) {
			return value.Null
		}
		return cur.Array[idx]
	default:
		return value.Null
	}
}

func (i *Interpreter) assignLeaf(cur *value.Value, seg ast.Segment, val *value.Value) {
	switch cur.Kind {
	case value.KindDict:
		if seg.Index == nil {
			cur.DictInsert(seg.Field, val)
		}
	case value.KindArray:
		if seg.Index != nil {
			idxVal := i.evaluate(seg.Index)
			if idxVal.Kind == value.KindFloat {
				idx := int(idxVal.Float)
				if idx >= 0 && idx < len(cur.Array) {
					cur.Array[idx].Release()
					cur.Array[idx] = val
				}
			}
		}
	}
}

// readPath reads a bare identifier through the scope chain, or an access
// path with segments by descending against the shared globals.
func (i *Interpreter) readPath(path ast.Access) *value.Value {
	if len(path.Segments) == 0 {
		return i.env.get(path.Base.Lexeme)
	}
	cur := i.ctx.Get(path.Base.Lexeme)
	for _, seg := range path.Segments {
		cur = i.descend(cur, seg)
	}
	return cur
}

// VisitCall resolves the callee in the same three-tier priority the JIT
// builder uses: a local parameter by name, a registered host function,
// then a runtime global reached by access path.
func (i *Interpreter) VisitCall(stmt *ast.Call) any {
	args := make([]*value.Value, len(stmt.Args))
	for idx, a := range stmt.Args {
		args[idx] = i.evaluate(a)
	}

	name := stmt.Callee.Base.Lexeme
	if len(stmt.Callee.Segments) == 0 {
		if local, ok := i.env.lookupLocal(name); ok {
			i.invokeLambda(local, args)
			return nil
		}
		if hostFn, ok := i.ctx.HostFns[name]; ok {
			hostFn.Fn(args)
			return nil
		}
	}

	callee := i.readPath(stmt.Callee)
	i.invokeLambda(callee, args)
	return nil
}

func (i *Interpreter) invokeLambda(v *value.Value, args []*value.Value) *value.Value {
	if v.Kind != value.KindLambda {
		panic(CreateRuntimeError(0, 0, "call target is not a Lambda"))
	}
	c, ok := i.closures[v.LambdaAddr]
	if !ok {
		panic(CreateRuntimeError(0, 0, "call target references an unknown closure"))
	}

	params := make(map[string]*value.Value, len(c.params))
	for idx, p := range c.params {
		if idx < len(args) {
			params[p] = args[idx]
		} else {
			params[p] = value.Null
		}
	}

	savedEnv := i.env
	i.env = MakeLambdaFrame(i.ctx, params)

	var last *value.Value = value.Null
	for _, s := range c.body.Statements {
		if a, ok := s.(*ast.Assign); ok && len(a.Path.Segments) == 0 {
			last = i.evaluate(a.Value)
			i.env.set(a.Path.Base.Lexeme, last)
			continue
		}
		s.Accept(i)
	}

	i.env = savedEnv
	return last
}

// VisitIf evaluates Condition and, per "if enters a child scope when the
// condition is truthy", executes Then (or the supplemented Else) inside a
// fresh child scope that is discarded once the branch finishes.
func (i *Interpreter) VisitIf(stmt *ast.If) any {
	cond := i.evaluate(stmt.Condition)

	savedEnv := i.env
	if isTruthy(cond) {
		i.env = MakeChildEnvironment(savedEnv)
		stmt.Then.Accept(i)
		i.env = savedEnv
	} else if stmt.Else != nil {
		i.env = MakeChildEnvironment(savedEnv)
		stmt.Else.Accept(i)
		i.env = savedEnv
	}
	return nil
}

// --- ast.ExpressionVisitor ---

func (i *Interpreter) VisitBinary(expr *ast.Binary) any {
	l := i.evaluate(expr.Left)
	r := i.evaluate(expr.Right)
	return i.applyBinary(expr.Operator, l, r)
}

func (i *Interpreter) applyBinary(op token.Token, l, r *value.Value) *value.Value {
	switch op.TokenType {
	case token.ADD:
		return arith(l, r, func(a, b float64) float64 { return a + b })
	case token.SUB:
		return arith(l, r, func(a, b float64) float64 { return a - b })
	case token.MULT:
		return arith(l, r, func(a, b float64) float64 { return a * b })
	case token.DIV:
		return divmod(l, r, func(a, b float64) float64 { return a / b })
	case token.MOD:
		return divmod(l, r, func(a, b float64) float64 {
			q := float64(int64(a / b))
			return a - q*b
		})
	case token.AND_AND:
		return boolResult(isTruthy(l) && isTruthy(r))
	case token.OR_OR:
		return boolResult(isTruthy(l) || isTruthy(r))
	case token.EQUAL_EQUAL:
		lf, rf, ok := bothFloat(l, r)
		return boolResult(ok && lf == rf)
	case token.NOT_EQUAL:
		lf, rf, ok := bothFloat(l, r)
		return boolResult(!ok || lf != rf)
	case token.LARGER:
		return cmp(l, r, func(a, b float64) bool { return a > b })
	case token.LESS:
		return cmp(l, r, func(a, b float64) bool { return a < b })
	case token.LARGER_EQUAL:
		return cmp(l, r, func(a, b float64) bool { return a >= b })
	case token.LESS_EQUAL:
		return cmp(l, r, func(a, b float64) bool { return a <= b })
	default:
		panic(CreateRuntimeError(op.Line, op.Column, "operator '"+op.Lexeme+"' not supported"))
	}
}

func bothFloat(l, r *value.Value) (float64, float64, bool) {
	if l.Kind != value.KindFloat || r.Kind != value.KindFloat {
		return 0, 0, false
	}
	return l.Float, r.Float, true
}

func arith(l, r *value.Value, f func(a, b float64) float64) *value.Value {
	lf, rf, ok := bothFloat(l, r)
	if !ok {
		return value.NewFloat(0)
	}
	return value.NewFloat(f(lf, rf))
}

func divmod(l, r *value.Value, f func(a, b float64) float64) *value.Value {
	lf, rf, ok := bothFloat(l, r)
	if !ok || rf == 0 {
		return value.NewFloat(0)
	}
	return value.NewFloat(f(lf, rf))
}

func cmp(l, r *value.Value, f func(a, b float64) bool) *value.Value {
	lf, rf, ok := bothFloat(l, r)
	return boolResult(ok && f(lf, rf))
}

func boolResult(ok bool) *value.Value {
	if ok {
		return value.NewFloat(1.0)
	}
	return value.Null
}

func isTruthy(v *value.Value) bool {
	return v != nil && v.Kind != value.KindNull
}

func (i *Interpreter) VisitFloat(expr *ast.Float) any {
	return value.NewFloat(expr.Value)
}

func (i *Interpreter) VisitStr(expr *ast.Str) any {
	return value.NewStr([]byte(expr.Value))
}

func (i *Interpreter) VisitVar(expr *ast.Var) any {
	return i.readPath(expr.Path)
}

// VisitLambda registers the literal's params/body under a fresh closure
// id and boxes that id as a Lambda value's LambdaAddr.
func (i *Interpreter) VisitLambda(expr *ast.Lambda) any {
	i.nextID++
	id := i.nextID
	params := make([]string, len(expr.Params))
	for idx, p := range expr.Params {
		params[idx] = p.Lexeme
	}
	i.closures[id] = &closure{params: params, body: expr.Body}
	return value.NewLambda(uintptr(id), len(params))
}

func (i *Interpreter) VisitDict(expr *ast.Dict) any {
	d := value.NewDict()
	for _, entry := range expr.Entries {
		d.DictInsert(entry.Key.Lexeme, i.evaluate(entry.Value))
	}
	return d
}

func (i *Interpreter) VisitArray(expr *ast.Array) any {
	arr := value.NewArray()
	for _, elem := range expr.Elements {
		arr.ArrayPush(i.evaluate(elem))
	}
	return arr
}
