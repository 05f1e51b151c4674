package climain

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/lox/config"
	"github.com/mna/lox/internal/runlog"
	"github.com/mna/lox/vm"
)

// Run compiles and executes each file argument in its own fresh VM.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg := config.Default()
	cfg.StressGC = cfg.StressGC || c.StressGC
	cfg.LogGC = cfg.LogGC || c.LogGC

	var firstErr error
	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		machine := vm.New(cfg)
		machine.Stdout = stdio.Stdout
		machine.Stderr = stdio.Stderr
		if cfg.LogGC {
			machine.SetLogger(runlog.New(true))
		}
		if _, err := machine.Interpret(string(src)); err != nil && firstErr == nil {
			firstErr = err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return firstErr
}
