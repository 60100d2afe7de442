package engine

import (
	"testing"

	"tinylambda/value"
)

// TestCompileAndRunArithmetic exercises the full ReadFile-equivalent →
// Run → Get lifecycle end to end: compile a script to native code, link
// and invoke it, then read a global back through the typed projection.
func TestCompileAndRunArithmetic(t *testing.T) {
	ctx := New()
	defer ctx.Dispose()

	if err := ctx.Compile(`myvar = 1 + 2`); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := ctx.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := ctx.GetFloat("myvar"); got != 3.0 {
		t.Fatalf("myvar = %v, want 3.0", got)
	}
}

// TestRunDeletesTransientOperatorHandles is the end-to-end leak check
// spec.md §8 asks for: every transient Float minted while evaluating a
// chained binary expression is released once the operator consuming it
// returns, so only the final bound global survives. A regression in
// jit.Builder's per-operand value_delete emission would inflate the
// surviving-handle count reported here.
func TestRunDeletesTransientOperatorHandles(t *testing.T) {
	ctx := New()
	defer ctx.Dispose()

	liveBefore, deletesBefore := value.Stats()

	if err := ctx.Compile(`result = 1 + 2 + 3 + 4`); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := ctx.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	liveAfter, deletesAfter := value.Stats()
	allocated := liveAfter - liveBefore
	deleted := deletesAfter - deletesBefore
	if surviving := allocated - deleted; surviving != 1 {
		t.Fatalf("script left %d handles undeleted (allocated=%d deleted=%d), want exactly 1 surviving (the bound global)", surviving, allocated, deleted)
	}
	if got := ctx.GetFloat("result"); got != 10 {
		t.Fatalf("result = %v, want 10", got)
	}
}

func TestHostFnCallableFromScript(t *testing.T) {
	ctx := New()
	defer ctx.Dispose()

	var recorded float64
	ctx.AddFn("record", 1, func(args []*value.Value) *value.Value {
		recorded = args[0].Float
		return value.NewFloat(0)
	})

	if err := ctx.Compile(`record(9)`); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := ctx.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if recorded != 9 {
		t.Fatalf("recorded = %v, want 9", recorded)
	}
}

func TestGetStringAndArrayProjections(t *testing.T) {
	ctx := New()
	defer ctx.Dispose()

	if err := ctx.Compile(`
s = "hi"
arr = [1, 2, 3]
`); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := ctx.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := ctx.GetString("s"); got != "hi" {
		t.Fatalf("s = %q, want hi", got)
	}
	if got := ctx.GetArray("arr"); len(got) != 3 {
		t.Fatalf("len(arr) = %d, want 3", len(got))
	}
}
