// Package climain implements the `lox` command-line driver: flag parsing,
// subcommand dispatch, and wiring the VM's configuration and logger from
// flags and environment variables.
package climain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mna/mainer"
)

const binName = "lox"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] [<command>] [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> [<path>...]
       %[1]s [<option>...] <script>
       %[1]s -h|--help
       %[1]s -v|--version

Bytecode compiler and virtual machine for the lox scripting language.

With no command and a single <path> argument, runs that script. With no
arguments at all, starts an interactive REPL.

The <command> can be one of:
       run                       Compile and run the given script(s).
       repl                      Start an interactive read-eval-print loop.
       tokenize                  Print the token stream for the given
                                 script(s).
       disasm                    Compile the given script(s) and print
                                 their disassembled bytecode, without
                                 running them.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --stress-gc               Collect garbage before every allocation.
       --log-gc                  Trace collector activity to stderr.
`, binName)
)

// Cmd holds the parsed command line and dispatches to the matching
// subcommand method.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	StressGC bool `flag:"stress-gc"`
	LogGC    bool `flag:"log-gc"`

	args    []string
	flags   map[string]bool
	cmdFn   func(context.Context, mainer.Stdio, []string) error
	cmdArgs []string
}

func (c *Cmd) SetArgs(args []string)         { c.args = args }
func (c *Cmd) SetFlags(flags map[string]bool) { c.flags = flags }

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	if len(c.args) == 0 {
		c.cmdFn = c.Repl
		return nil
	}

	commands := buildCmds(c)
	if fn, ok := commands[c.args[0]]; ok {
		c.cmdFn = fn
		c.cmdArgs = c.args[1:]
		if (c.args[0] == "tokenize" || c.args[0] == "disasm") && len(c.cmdArgs) == 0 {
			return fmt.Errorf("%s: at least one file must be provided", c.args[0])
		}
		return nil
	}

	// No recognized command: treat the arguments as script paths, the
	// single-file shorthand for `lox run <script>`.
	c.cmdFn = c.Run
	c.cmdArgs = c.args
	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   true,
		EnvPrefix: strings.ToUpper(binName) + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	if c.cmdFn == nil {
		fmt.Fprintln(stdio.Stderr, errors.New("no command specified"))
		return mainer.InvalidArgs
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.cmdArgs); err != nil {
		return mainer.Failure
	}
	return mainer.Success
}

func buildCmds(c *Cmd) map[string]func(context.Context, mainer.Stdio, []string) error {
	return map[string]func(context.Context, mainer.Stdio, []string) error{
		"run":      c.Run,
		"repl":     c.Repl,
		"tokenize": c.Tokenize,
		"disasm":   c.Disasm,
	}
}
