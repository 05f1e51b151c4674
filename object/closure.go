package object

// Closure pairs a compiled Function with the Upvalues it captured from its
// enclosing scopes at creation time. Every call target at runtime is a
// Closure, even the implicit top-level script.
type Closure struct {
	Header
	Fn       *Function
	Upvalues []*Upvalue
}

var _ Object = (*Closure)(nil)

func NewClosure(fn *Function) *Closure {
	return &Closure{Header: newHeader(KindClosure), Fn: fn, Upvalues: make([]*Upvalue, fn.UpvalueCount)}
}

func (c *Closure) Trace(mark func(Value)) {
	mark(Obj(c.Fn))
	for _, uv := range c.Upvalues {
		if uv != nil {
			mark(Obj(uv))
		}
	}
}

func (c *Closure) Display() string  { return c.Fn.Display() }
func (c *Closure) TypeName() string { return "function" }
