package vm

import "github.com/mna/lox/object"

// CallFrame records one active call to a Closure. ip indexes into the
// closure's chunk; slotsBase is the index into the VM's single value stack
// at which this call's locals begin (slot 0 holds the callee closure
// itself, or the bound receiver for a method/init call — reserved, not
// user-visible).
type CallFrame struct {
	closure   *object.Closure
	ip        int
	slotsBase int
}

func (f *CallFrame) line() int {
	if f.ip == 0 || f.ip > len(f.closure.Fn.Chunk.Lines) {
		return 0
	}
	return f.closure.Fn.Chunk.Lines[f.ip-1]
}

func (f *CallFrame) name() string {
	if f.closure.Fn.Name == nil {
		return "script"
	}
	return f.closure.Fn.Name.Value()
}
