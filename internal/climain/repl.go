package climain

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/mna/lox/config"
	"github.com/mna/lox/internal/runlog"
	"github.com/mna/lox/vm"
)

// Repl runs an interactive read-eval-print loop over a single long-lived
// VM: globals and interned strings persist between lines, the way a
// session at a language's interactive prompt is expected to behave.
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, _ []string) error {
	cfg := config.Default()
	cfg.StressGC = cfg.StressGC || c.StressGC
	cfg.LogGC = cfg.LogGC || c.LogGC

	machine := vm.New(cfg)
	machine.Stdout = stdio.Stdout
	machine.Stderr = stdio.Stderr
	if cfg.LogGC {
		machine.SetLogger(runlog.New(true))
	}

	scanner := bufio.NewScanner(stdio.Stdin)
	for {
		fmt.Fprint(stdio.Stdout, "> ")
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !scanner.Scan() {
			fmt.Fprintln(stdio.Stdout)
			return scanner.Err()
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		machine.Interpret(line)
	}
}
