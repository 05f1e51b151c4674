// Package runlog provides the CLI driver's structured logger. It is
// intentionally kept out of the language core (token, scanner, compiler,
// object, vm, gc): those packages report failures through plain errors and
// the language's own print/stderr contract, exactly as the reference
// compiler's machine package does. The command-line driver uses it only for
// GC tracing (--log-gc), handing the logger to the VM; flag errors and file
// I/O problems are printed directly to stderr.
package runlog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger writing leveled, human-readable lines to stderr.
// debug enables debug-level output (used by --log-gc).
func New(debug bool) *zap.Logger {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.Lock(zapcore.AddSync(os.Stderr)),
		level,
	)
	return zap.New(core)
}
