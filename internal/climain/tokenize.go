package climain

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/lox/scanner"
	"github.com/mna/lox/token"
)

// Tokenize scans each file argument and prints its token stream, one token
// per line, without compiling or running it.
func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
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

		var sc scanner.Scanner
		sc.Init(string(src))
		for {
			tok := sc.Scan()
			fmt.Fprintf(stdio.Stdout, "%4d %-14s %q\n", tok.Line, tok.Type, tok.Lexeme)
			if tok.Type == token.EOF {
				break
			}
			if tok.Type == token.ILLEGAL && firstErr == nil {
				firstErr = fmt.Errorf("%s: line %d: %s", path, tok.Line, tok.Lexeme)
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return firstErr
}
