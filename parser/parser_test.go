package parser

import (
	"testing"

	"tinylambda/ast"
	"tinylambda/lexer"
)

func mustParse(t *testing.T, src string) []ast.Stmt {
	t.Helper()
	toks, err := lexer.New(src).Scan()
	if err != nil {
		t.Fatalf("lexer.Scan(%q) error: %v", src, err)
	}
	stmts, err := Make(toks).Parse()
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", src, err)
	}
	return stmts
}

func TestParseRightAssociativeBinary(t *testing.T) {
	stmts := mustParse(t, "x = 1 - 2 - 3")
	assign, ok := stmts[0].(*ast.Assign)
	if !ok {
		t.Fatalf("statement = %T, want *ast.Assign", stmts[0])
	}

	top, ok := assign.Value.(*ast.Binary)
	if !ok {
		t.Fatalf("value = %T, want *ast.Binary", assign.Value)
	}
	if top.Operator.Lexeme != "-" {
		t.Fatalf("top operator = %q, want '-'", top.Operator.Lexeme)
	}
	if _, ok := top.Left.(*ast.Float); !ok {
		t.Fatalf("top.Left = %T, want *ast.Float", top.Left)
	}

	right, ok := top.Right.(*ast.Binary)
	if !ok {
		t.Fatalf("top.Right = %T, want *ast.Binary (right-recursive grammar)", top.Right)
	}
	if right.Operator.Lexeme != "-" {
		t.Fatalf("right operator = %q, want '-'", right.Operator.Lexeme)
	}
}

func TestParseAssignLiteral(t *testing.T) {
	stmts := mustParse(t, `name = "value"`)
	assign := stmts[0].(*ast.Assign)
	str, ok := assign.Value.(*ast.Str)
	if !ok || str.Value != "value" {
		t.Fatalf("value = %#v, want Str{\"value\"}", assign.Value)
	}
}

func TestParseArrayLiteral(t *testing.T) {
	stmts := mustParse(t, "arr = [1, 2, 3]")
	assign := stmts[0].(*ast.Assign)
	arr, ok := assign.Value.(*ast.Array)
	if !ok || len(arr.Elements) != 3 {
		t.Fatalf("value = %#v, want a 3-element Array", assign.Value)
	}
}

func TestParseDictLiteral(t *testing.T) {
	stmts := mustParse(t, "d = { a: 1, b: 2 }")
	assign := stmts[0].(*ast.Assign)
	dict, ok := assign.Value.(*ast.Dict)
	if !ok || len(dict.Entries) != 2 {
		t.Fatalf("value = %#v, want a 2-entry Dict", assign.Value)
	}
	if dict.Entries[0].Key.Lexeme != "a" {
		t.Fatalf("first key = %q, want 'a'", dict.Entries[0].Key.Lexeme)
	}
}

func TestParseDottedAccess(t *testing.T) {
	stmts := mustParse(t, "out = d.a")
	assign := stmts[0].(*ast.Assign)
	v, ok := assign.Value.(*ast.Var)
	if !ok || len(v.Path.Segments) != 1 || v.Path.Segments[0].Field != "a" {
		t.Fatalf("value = %#v, want Var{d.a}", assign.Value)
	}
}

func TestParseLambdaAssign(t *testing.T) {
	stmts := mustParse(t, "sq = (n) => { r = n * n }")
	assign := stmts[0].(*ast.Assign)
	lambda, ok := assign.Value.(*ast.Lambda)
	if !ok || len(lambda.Params) != 1 || lambda.Params[0].Lexeme != "n" {
		t.Fatalf("value = %#v, want Lambda with one param 'n'", assign.Value)
	}
	if len(lambda.Body.Statements) != 1 {
		t.Fatalf("lambda body has %d statements, want 1", len(lambda.Body.Statements))
	}
}

func TestParseCall(t *testing.T) {
	stmts := mustParse(t, "print(x)")
	call, ok := stmts[0].(*ast.Call)
	if !ok || call.Callee.Base.Lexeme != "print" || len(call.Args) != 1 {
		t.Fatalf("statement = %#v, want Call print(x)", stmts[0])
	}
}

func TestParseIfElse(t *testing.T) {
	stmts := mustParse(t, "if 1 == 1 { ok = 1 } else { ok = 0 }")
	ifStmt, ok := stmts[0].(*ast.If)
	if !ok {
		t.Fatalf("statement = %T, want *ast.If", stmts[0])
	}
	if ifStmt.Else == nil {
		t.Fatalf("expected an else block")
	}
	if len(ifStmt.Then.Statements) != 1 || len(ifStmt.Else.Statements) != 1 {
		t.Fatalf("then/else block sizes = %d/%d, want 1/1", len(ifStmt.Then.Statements), len(ifStmt.Else.Statements))
	}
}

func TestParseUnexpectedTokenFails(t *testing.T) {
	toks, err := lexer.New("= x").Scan()
	if err != nil {
		t.Fatalf("lexer error: %v", err)
	}
	if _, err := Make(toks).Parse(); err == nil {
		t.Fatalf("expected a syntax error for a leading '='")
	}
}
