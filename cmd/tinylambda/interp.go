package main

import (
	"fmt"
	"os"

	"github.com/google/subcommands"

	"tinylambda/interp"
	"tinylambda/lexer"
	"tinylambda/parser"
	"tinylambda/runtime"
)

// runInterpreted evaluates a source file with the tree-walking
// interpreter, the reference-semantics path -interp opts into instead of
// the JIT.
func runInterpreted(filename string) subcommands.ExitStatus {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}

	lex := lexer.New(string(data))
	tokens, err := lex.Scan()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	p := parser.Make(tokens)
	program, err := p.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	ctx := runtime.New()
	i := interp.New(ctx)
	if err := i.Interpret(program); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
