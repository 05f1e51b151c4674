package object

// Function is the compiled, immutable form of a lox function or method, as
// produced by the compiler. At runtime every call target is a Closure
// wrapping a Function (even the implicit top-level script function); the
// Function itself carries no captured state.
type Function struct {
	Header
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
	Name         *String // nil for the top-level script
}

var _ Object = (*Function)(nil)

func NewFunction(name *String) *Function {
	return &Function{Header: newHeader(KindFunction), Chunk: &Chunk{}, Name: name}
}

func (f *Function) Trace(mark func(Value)) {
	if f.Name != nil {
		mark(Obj(f.Name))
	}
	for _, c := range f.Chunk.Constants {
		mark(c)
	}
}

func (f *Function) Display() string {
	if f.Name == nil {
		return "<script>"
	}
	return "<fn " + f.Name.Value() + ">"
}

func (f *Function) TypeName() string { return "function" }

// NativeFn is the host-side implementation of a Native. It receives the
// argument slice (never longer than the call site provided) and returns a
// result or an error, which the VM turns into a runtime error.
type NativeFn func(args []Value) (Value, error)

// Native wraps a host-implemented callable, such as the `clock` builtin.
type Native struct {
	Header
	Name string
	Fn   NativeFn
}

var _ Object = (*Native)(nil)

func NewNative(name string, fn NativeFn) *Native {
	return &Native{Header: newHeader(KindNative), Name: name, Fn: fn}
}

func (n *Native) Trace(func(Value)) {}
func (n *Native) Display() string   { return "<native fn>" }
func (n *Native) TypeName() string  { return "native function" }
