package lexer

import (
	"reflect"
	"testing"

	"tinylambda/token"
)

func stripPositions(toks []token.Token) []token.Token {
	out := make([]token.Token, len(toks))
	for i, tok := range toks {
		tok.Line = 0
		tok.Column = 0
		out[i] = tok
	}
	return out
}

func TestScanOperators(t *testing.T) {
	scanner := New("== / = * + > - < != <= >= % && ||")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan() raised an error: %v", err)
	}

	want := []token.Token{
		{TokenType: token.EQUAL_EQUAL, Lexeme: "=="},
		{TokenType: token.DIV, Lexeme: "/"},
		{TokenType: token.ASSIGN, Lexeme: "="},
		{TokenType: token.MULT, Lexeme: "*"},
		{TokenType: token.ADD, Lexeme: "+"},
		{TokenType: token.LARGER, Lexeme: ">"},
		{TokenType: token.SUB, Lexeme: "-"},
		{TokenType: token.LESS, Lexeme: "<"},
		{TokenType: token.NOT_EQUAL, Lexeme: "!="},
		{TokenType: token.LESS_EQUAL, Lexeme: "<="},
		{TokenType: token.LARGER_EQUAL, Lexeme: ">="},
		{TokenType: token.MOD, Lexeme: "%"},
		{TokenType: token.AND_AND, Lexeme: "&&"},
		{TokenType: token.OR_OR, Lexeme: "||"},
		{TokenType: token.EOF, Lexeme: "EOF"},
	}

	if !reflect.DeepEqual(stripPositions(got), want) {
		t.Errorf("Scan() = %v, want %v", got, want)
	}
}

func TestScanPunctuationAndArrow(t *testing.T) {
	scanner := New("(){}[] , : . =>")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan() raised an error: %v", err)
	}

	want := []token.Token{
		{TokenType: token.LPA, Lexeme: "("},
		{TokenType: token.RPA, Lexeme: ")"},
		{TokenType: token.LCUR, Lexeme: "{"},
		{TokenType: token.RCUR, Lexeme: "}"},
		{TokenType: token.LBRACKET, Lexeme: "["},
		{TokenType: token.RBRACKET, Lexeme: "]"},
		{TokenType: token.COMMA, Lexeme: ","},
		{TokenType: token.COLON, Lexeme: ":"},
		{TokenType: token.DOT, Lexeme: "."},
		{TokenType: token.ARROW, Lexeme: "=>"},
		{TokenType: token.EOF, Lexeme: "EOF"},
	}

	if !reflect.DeepEqual(stripPositions(got), want) {
		t.Errorf("Scan() = %v, want %v", got, want)
	}
}

func TestScanNumberAlwaysFloat(t *testing.T) {
	scanner := New("42")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan() raised an error: %v", err)
	}
	if got[0].TokenType != token.FLOAT || got[0].Literal.(float64) != 42.0 {
		t.Errorf("Scan() first token = %v, want FLOAT 42.0", got[0])
	}
}

func TestScanStringLiteral(t *testing.T) {
	scanner := New(`"hello world"`)
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan() raised an error: %v", err)
	}
	if got[0].TokenType != token.STRING || got[0].Literal != "hello world" {
		t.Errorf("Scan() first token = %v, want STRING hello world", got[0])
	}
}

func TestScanUnclosedString(t *testing.T) {
	scanner := New(`"hello`)
	if _, err := scanner.Scan(); err == nil {
		t.Errorf("Scan() expected an error for an unclosed string literal")
	}
}

func TestScanInvalidNumber(t *testing.T) {
	scanner := New("1.2.3")
	if _, err := scanner.Scan(); err == nil {
		t.Errorf("Scan() expected an error for a malformed number literal")
	}
}

func TestScanIdentifierAndKeywords(t *testing.T) {
	scanner := New("myVar if else true false null")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan() raised an error: %v", err)
	}

	wantTypes := []token.TokenType{
		token.IDENTIFIER, token.IF, token.ELSE, token.TRUE, token.FALSE, token.NULL, token.EOF,
	}
	if len(got) != len(wantTypes) {
		t.Fatalf("Scan() produced %d tokens, want %d", len(got), len(wantTypes))
	}
	for i, wantType := range wantTypes {
		if got[i].TokenType != wantType {
			t.Errorf("token %d TokenType = %v, want %v", i, got[i].TokenType, wantType)
		}
	}
}

func TestScanComment(t *testing.T) {
	scanner := New("x = 1 # trailing comment\n")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan() raised an error: %v", err)
	}
	wantTypes := []token.TokenType{token.IDENTIFIER, token.ASSIGN, token.FLOAT, token.EOF}
	if len(got) != len(wantTypes) {
		t.Fatalf("Scan() produced %d tokens, want %d", len(got), len(wantTypes))
	}
}
