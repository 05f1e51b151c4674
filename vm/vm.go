// Package vm implements the stack-based bytecode interpreter: value stack,
// call frames, upvalue capture, class/instance/method dispatch, and the
// allocation path that feeds the garbage collector. It is the run-time half
// of the pair that compiler.Compile's output is made for.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/mna/lox/compiler"
	"github.com/mna/lox/config"
	"github.com/mna/lox/gc"
	"github.com/mna/lox/object"
	"go.uber.org/zap"
)

const stackSlotsPerFrame = 256

// VM is one instance of the interpreter. It is not safe for concurrent use.
// A VM is reusable across repeated Interpret calls (as the REPL does):
// globals, interned strings and heap state all persist between calls.
type VM struct {
	stack []object.Value
	sp    int

	frames     []CallFrame
	frameCount int

	globals      object.Table
	strings      object.Table
	openUpvalues *object.Upvalue
	objects      object.Object

	bytesAllocated int
	nextGC         int
	collector      gc.Collector

	config     config.Config
	logger     *zap.Logger
	initString *object.String

	// Stdout and Stderr receive the output of the PRINT opcode and runtime
	// error/stack-trace reporting, respectively. Nil means os.Stdout /
	// os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

var _ compiler.Interner = (*VM)(nil)
var _ gc.RootMarker = (*VM)(nil)

// New builds a VM ready to Interpret source. cfg tunes GC behavior and call
// depth; pass config.Default() for the built-in defaults.
func New(cfg config.Config) *VM {
	framesMax := cfg.FramesMax
	if framesMax <= 0 {
		framesMax = 64
	}
	nextGC := cfg.InitialHeapBytes
	if nextGC <= 0 {
		nextGC = 1 << 20
	}

	vm := &VM{
		config: cfg,
		frames: make([]CallFrame, framesMax),
		stack:  make([]object.Value, framesMax*stackSlotsPerFrame),
		nextGC: nextGC,
	}
	vm.initString = vm.InternString("init")
	vm.defineNative("clock", nativeClock)
	return vm
}

// SetLogger attaches a logger for GC tracing (active only when
// config.Config.LogGC is set).
func (vm *VM) SetLogger(l *zap.Logger) { vm.logger = l }

func (vm *VM) stdout() io.Writer {
	if vm.Stdout != nil {
		return vm.Stdout
	}
	return os.Stdout
}

func (vm *VM) stderr() io.Writer {
	if vm.Stderr != nil {
		return vm.Stderr
	}
	return os.Stderr
}

func (vm *VM) push(v object.Value) {
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() object.Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) object.Value {
	return vm.stack[vm.sp-1-distance]
}

func (vm *VM) defineNative(name string, fn object.NativeFn) {
	// Root the name and the native across both allocations, same discipline
	// as every other two-step heap construction in this file.
	nameObj := vm.InternString(name)
	vm.push(object.Obj(nameObj))
	native := vm.newNative(name, fn)
	vm.push(object.Obj(native))
	vm.globals.Set(nameObj, vm.peek(0))
	vm.pop()
	vm.pop()
}

// Result is the outcome of an Interpret call.
type Result int

const (
	ResultOK Result = iota
	ResultCompileError
	ResultRuntimeError
)

// Interpret compiles and runs source to completion. Compile errors are
// written to Stderr and reported via the returned error; a runtime error is
// likewise written (with a stack trace) and reported. The VM is left usable
// for a subsequent Interpret call either way (the value stack and call
// frames are reset at the top of every call; globals and heap state are
// not).
func (vm *VM) Interpret(source string) (Result, error) {
	fn, errs, ok := compiler.Compile(source, vm)
	if !ok {
		for _, e := range errs {
			fmt.Fprintln(vm.stderr(), e)
		}
		return ResultCompileError, fmt.Errorf("%d compile error(s)", len(errs))
	}

	vm.sp = 0
	vm.frameCount = 0
	vm.openUpvalues = nil

	closure := vm.newClosure(fn)
	vm.push(object.Obj(closure))
	if err := vm.call(closure, 0); err != nil {
		fmt.Fprintln(vm.stderr(), err)
		return ResultRuntimeError, err
	}

	if err := vm.run(); err != nil {
		// Close upvalues still aliasing the abandoned stack, so closures that
		// escaped before the error keep the values they captured.
		vm.closeUpvalues(0)
		fmt.Fprintln(vm.stderr(), err)
		return ResultRuntimeError, err
	}
	return ResultOK, nil
}
