package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"tinylambda/engine"
	"tinylambda/lexer"
	"tinylambda/token"
)

// replCmd starts an interactive session, grounded on the teacher's
// cmd_repl_compiled.go buffering strategy (wait for balanced braces and a
// non-dangling last token before compiling a chunk) but driving
// chzyer/readline for line editing instead of a bare bufio.Scanner, and
// compiling each ready chunk through the engine instead of the bytecode
// VM. Each chunk gets its own engine.Context, since a Context compiles and
// runs only once; globals do not carry over from one chunk to the next.
type replCmd struct{}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive tinylambda session" }
func (*replCmd) Usage() string {
	return `repl:
  Start an interactive REPL session, compiling and running each statement
  as it is completed.
`
}
func (*replCmd) SetFlags(f *flag.FlagSet) {}

func (*replCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rl, err := readline.New(">>> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to start line editor: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	fmt.Println("tinylambda repl — type 'exit' to quit")

	var buffer strings.Builder
	for {
		if buffer.Len() == 0 {
			rl.SetPrompt(">>> ")
		} else {
			rl.SetPrompt("... ")
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			buffer.Reset()
			continue
		}
		if err == io.EOF {
			return subcommands.ExitSuccess
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}

		if strings.TrimSpace(line) == "exit" && buffer.Len() == 0 {
			return subcommands.ExitSuccess
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)
		source := buffer.String()

		lex := lexer.New(source)
		tokens, err := lex.Scan()
		if err != nil {
			fmt.Println(err)
			buffer.Reset()
			continue
		}
		if !isInputReady(tokens) {
			continue
		}

		ctx := engine.New()
		if err := ctx.Compile(source); err != nil {
			fmt.Println(err)
			ctx.Dispose()
			buffer.Reset()
			continue
		}
		if err := ctx.Run(); err != nil {
			fmt.Println(err)
		}
		ctx.Dispose()
		buffer.Reset()
	}
}

// isInputReady reports whether tokens form a brace-balanced chunk whose
// last non-EOF token does not dangle mid-expression, so the REPL knows
// whether to keep accumulating lines before compiling.
func isInputReady(tokens []token.Token) bool {
	braceBalance := 0
	for _, tok := range tokens {
		switch tok.TokenType {
		case token.LCUR:
			braceBalance++
		case token.RCUR:
			braceBalance--
		}
	}
	if braceBalance > 0 {
		return false
	}

	last := lastNonEOF(tokens)
	if last == nil {
		return true
	}

	switch last.TokenType {
	case token.ASSIGN, token.ADD, token.SUB, token.MULT, token.DIV, token.MOD,
		token.AND_AND, token.OR_OR, token.EQUAL_EQUAL, token.NOT_EQUAL,
		token.LESS, token.LESS_EQUAL, token.LARGER, token.LARGER_EQUAL,
		token.COMMA, token.LPA, token.LCUR, token.LBRACKET, token.COLON, token.DOT, token.ARROW,
		token.IF, token.ELSE:
		return false
	}
	return true
}

func lastNonEOF(tokens []token.Token) *token.Token {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].TokenType != token.EOF {
			return &tokens[i]
		}
	}
	return nil
}
