package climain

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/lox/compiler"
	"github.com/mna/lox/config"
	"github.com/mna/lox/debug"
	"github.com/mna/lox/object"
	"github.com/mna/lox/vm"
)

// Disasm compiles each file argument and prints its disassembled bytecode,
// including every nested function chunk, without running it. The VM used
// to compile is discarded afterward; nothing is executed.
func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var firstErr error
	d := &debug.Disassembler{Output: stdio.Stdout}

	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		machine := vm.New(config.Default())
		fn, errs, ok := compiler.Compile(string(src), machine)
		if !ok {
			for _, e := range errs {
				fmt.Fprintln(stdio.Stderr, e)
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: compile failed", path)
			}
			continue
		}

		disassembleRecursive(d, fn, map[*object.Function]bool{})
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return firstErr
}

func disassembleRecursive(d *debug.Disassembler, fn *object.Function, seen map[*object.Function]bool) {
	if seen[fn] {
		return
	}
	seen[fn] = true

	name := "<script>"
	if fn.Name != nil {
		name = fn.Name.Value()
	}
	d.Disassemble(fn.Chunk, name)

	for _, c := range fn.Chunk.Constants {
		if !c.IsObject() {
			continue
		}
		if nested, ok := c.AsObject().(*object.Function); ok {
			disassembleRecursive(d, nested, seen)
		}
	}
}
