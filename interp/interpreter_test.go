package interp

import (
	"testing"

	"tinylambda/lexer"
	"tinylambda/parser"
	"tinylambda/runtime"
	"tinylambda/value"
)

func mustInterpret(t *testing.T, src string, ctx *runtime.Context) *Interpreter {
	t.Helper()
	lex := lexer.New(src)
	tokens, err := lex.Scan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	p := parser.Make(tokens)
	program, err := p.Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	interp := New(ctx)
	if err := interp.Interpret(program); err != nil {
		t.Fatalf("interpret: %v", err)
	}
	return interp
}

func TestInterpretArithmeticAssignsGlobal(t *testing.T) {
	ctx := runtime.New()
	mustInterpret(t, `x = 1 + 2 * 3`, ctx)
	if got := ctx.GetFloat("x"); got != 7 {
		t.Fatalf("x = %v, want 7", got)
	}
}

func TestInterpretRightAssociativeSubtraction(t *testing.T) {
	ctx := runtime.New()
	mustInterpret(t, `x = 1 - 2 - 3`, ctx)
	if got := ctx.GetFloat("x"); got != 2 {
		t.Fatalf("x = %v, want 2 (1 - (2 - 3))", got)
	}
}

func TestInterpretIfElseBranches(t *testing.T) {
	ctx := runtime.New()
	mustInterpret(t, `
cond = 0
out = 0
if cond {
  out = 1
} else {
  out = 2
}
`, ctx)
	if got := ctx.GetFloat("out"); got != 0 {
		t.Fatalf("out = %v, want 0 (assign inside if/else scopes to the block)", got)
	}
}

func TestInterpretArrayAndDictAccess(t *testing.T) {
	ctx := runtime.New()
	mustInterpret(t, `
arr = [10, 20, 30]
d = {a: 1, b: 2}
total = arr[1] + d.a
`, ctx)
	if got := ctx.GetFloat("total"); got != 21 {
		t.Fatalf("total = %v, want 21", got)
	}
}

func TestInterpretNestedAssignment(t *testing.T) {
	ctx := runtime.New()
	mustInterpret(t, `
d = {a: 1}
d.a = 9
`, ctx)
	v := ctx.Get("d")
	if v.Kind != value.KindDict || v.Dict["a"].Float != 9 {
		t.Fatalf("d.a not updated: %+v", v)
	}
}

func TestInterpretLambdaCallDoesNotCaptureEnclosing(t *testing.T) {
	ctx := runtime.New()
	var result float64
	ctx.AddFn("record", 1, func(args []*value.Value) *value.Value {
		result = args[0].Float
		return value.Null
	})
	mustInterpret(t, `
x = 100
f = (x) => {
  y = x + 1
  record(y)
}
f(5)
`, ctx)
	if result != 6 {
		t.Fatalf("result = %v, want 6", result)
	}
	if got := ctx.GetFloat("x"); got != 100 {
		t.Fatalf("x leaked into/from lambda frame: got %v, want 100", got)
	}
}

func TestInterpretHostFnCall(t *testing.T) {
	ctx := runtime.New()
	var captured float64
	ctx.AddFn("record", 1, func(args []*value.Value) *value.Value {
		captured = args[0].Float
		return value.Null
	})
	mustInterpret(t, `record(42)`, ctx)
	if captured != 42 {
		t.Fatalf("captured = %v, want 42", captured)
	}
}

func TestInterpretCallNonLambdaPanics(t *testing.T) {
	ctx := runtime.New()
	lex := lexer.New("x = 1\nx()")
	tokens, _ := lex.Scan()
	p := parser.Make(tokens)
	program, err := p.Parse()
	if err != nil {
		return
	}
	interp := New(ctx)
	if err := interp.Interpret(program); err == nil {
		t.Fatalf("expected a runtime error calling a non-Lambda value")
	}
}
