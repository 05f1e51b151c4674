package object

// Class is a runtime class value: a name and a table of methods (each a
// *Closure). Single inheritance is implemented by copying the superclass's
// method table into the subclass's at class-creation time (INHERIT opcode),
// so method lookup at a call site never has to walk a superclass chain.
type Class struct {
	Header
	Name    *String
	Methods Table
}

var _ Object = (*Class)(nil)

func NewClass(name *String) *Class {
	return &Class{Header: newHeader(KindClass), Name: name}
}

// Method looks up a method closure by name in the class's method table.
func (c *Class) Method(name *String) (*Closure, bool) {
	v, ok := c.Methods.Get(name)
	if !ok {
		return nil, false
	}
	cl, ok := v.AsObject().(*Closure)
	return cl, ok
}

func (c *Class) Trace(mark func(Value)) {
	mark(Obj(c.Name))
	c.Methods.Range(func(key *String, value Value) bool {
		mark(Obj(key))
		mark(value)
		return true
	})
}

func (c *Class) Display() string  { return c.Name.Value() }
func (c *Class) TypeName() string { return "class" }

// Instance is a runtime instance of a Class, with a dynamically-growable
// table of fields (fields may be added to an instance at any time by
// assignment; the class declares no static field list).
type Instance struct {
	Header
	Class  *Class
	Fields Table
}

var _ Object = (*Instance)(nil)

func NewInstance(class *Class) *Instance {
	return &Instance{Header: newHeader(KindInstance), Class: class}
}

func (i *Instance) Trace(mark func(Value)) {
	mark(Obj(i.Class))
	i.Fields.Range(func(key *String, value Value) bool {
		mark(Obj(key))
		mark(value)
		return true
	})
}

func (i *Instance) Display() string  { return i.Class.Name.Value() + " instance" }
func (i *Instance) TypeName() string { return "instance" }

// BoundMethod couples a receiver instance with one of its class's methods,
// produced when a method reference is read without being immediately
// called (e.g. assigned to a variable or passed as a value). It is itself a
// callable object, exactly like a bare Closure.
type BoundMethod struct {
	Header
	Receiver Value
	Method   *Closure
}

var _ Object = (*BoundMethod)(nil)

func NewBoundMethod(receiver Value, method *Closure) *BoundMethod {
	return &BoundMethod{Header: newHeader(KindBoundMethod), Receiver: receiver, Method: method}
}

func (b *BoundMethod) Trace(mark func(Value)) {
	mark(b.Receiver)
	mark(Obj(b.Method))
}

func (b *BoundMethod) Display() string  { return b.Method.Display() }
func (b *BoundMethod) TypeName() string { return "function" }
