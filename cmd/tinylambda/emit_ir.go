package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"tinylambda/engine"
)

// emitIRCmd compiles a source file and dumps its textual LLVM IR without
// running it, grounded on the teacher's dumpBytecode/diassemble REPL
// flags generalized to a standalone subcommand for the codegen path.
type emitIRCmd struct{}

func (*emitIRCmd) Name() string     { return "emit-ir" }
func (*emitIRCmd) Synopsis() string { return "Compile a source file and print its LLVM IR" }
func (*emitIRCmd) Usage() string {
	return `emit-ir <file>:
  Compile a tinylambda script and print the generated LLVM IR without running it.
`
}

func (*emitIRCmd) SetFlags(f *flag.FlagSet) {}

func (*emitIRCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "💥 no source file provided")
		return subcommands.ExitUsageError
	}

	ctx := engine.New()
	defer ctx.Dispose()

	if err := ctx.ReadFile(args[0]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Println(ctx.DumpIR())
	return subcommands.ExitSuccess
}
