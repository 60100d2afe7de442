package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"tinylambda/engine"
)

// runCmd compiles a source file to native code via the JIT and invokes it,
// grounded on the teacher's runCmd but driving engine.Context instead of
// the bytecode interpreter.
type runCmd struct {
	interp bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Compile and run a tinylambda source file" }
func (*runCmd) Usage() string {
	return `run [-interp] <file>:
  Execute a tinylambda script. By default it is JIT-compiled to native
  code; -interp evaluates it with the tree-walking interpreter instead.
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.interp, "interp", false, "evaluate with the tree-walking interpreter instead of the JIT")
}

func (r *runCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "💥 no source file provided")
		return subcommands.ExitUsageError
	}
	filename := args[0]

	if r.interp {
		return runInterpreted(filename)
	}
	return runCompiled(filename)
}

func runCompiled(filename string) subcommands.ExitStatus {
	ctx := engine.New()
	defer ctx.Dispose()

	if err := ctx.ReadFile(filename); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := ctx.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
