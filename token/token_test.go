package token

import "testing"

func TestCreateToken(t *testing.T) {
	tests := []struct {
		name      string
		tokenType TokenType
		want      Token
	}{
		{
			name:      "assign token",
			tokenType: ASSIGN,
			want:      Token{TokenType: ASSIGN, Lexeme: "=", Line: 1, Column: 2},
		},
		{
			name:      "arrow token",
			tokenType: ARROW,
			want:      Token{TokenType: ARROW, Lexeme: "=>", Line: 1, Column: 2},
		},
		{
			name:      "mod token",
			tokenType: MOD,
			want:      Token{TokenType: MOD, Lexeme: "%", Line: 1, Column: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CreateToken(tt.tokenType, 1, 2)
			if got != tt.want {
				t.Errorf("CreateToken() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCreateLiteralToken(t *testing.T) {
	got := CreateLiteralToken(FLOAT, 42.0, "42", 3, 1)
	want := Token{TokenType: FLOAT, Literal: 42.0, Lexeme: "42", Line: 3, Column: 1}
	if got != want {
		t.Errorf("CreateLiteralToken() = %v, want %v", got, want)
	}
}

func TestKeyWords(t *testing.T) {
	if KeyWords["if"] != IF {
		t.Errorf("KeyWords[\"if\"] = %v, want IF", KeyWords["if"])
	}
	if _, ok := KeyWords["fn"]; ok {
		t.Errorf("KeyWords should not contain \"fn\"")
	}
}
