package object

// Kind tags for heap object variants (distinct from the Value Kind tags in
// value.go; these only apply when a Value holds KindObject).
const (
	KindString Kind = iota + 10
	KindFunction
	KindNative
	KindClosure
	KindUpvalue
	KindClass
	KindInstance
	KindBoundMethod
)

// Header is embedded in every heap object. It carries the GC's bookkeeping:
// the object's kind tag, its mark bit, and an intrusive pointer threading
// every live object into a single list rooted at the VM. The mark bit is
// false outside of a collection cycle.
type Header struct {
	kind   Kind
	marked bool
	next   Object
}

func newHeader(k Kind) Header { return Header{kind: k} }

func (h *Header) ObjectKind() Kind   { return h.kind }
func (h *Header) IsMarked() bool     { return h.marked }
func (h *Header) SetMarked(m bool)   { h.marked = m }
func (h *Header) Next() Object       { return h.next }
func (h *Header) SetNext(o Object)   { h.next = o }

// Object is the common interface satisfied by every heap object variant:
// String, Function, Native, Closure, Upvalue, Class, Instance, BoundMethod.
// Dispatch on the Kind tag, via a type switch at call sites, is exhaustive;
// Trace lets the collector discover a variant's children without every
// caller needing to type-switch.
type Object interface {
	// ObjectKind returns the object's heap type tag.
	ObjectKind() Kind
	// IsMarked / SetMarked implement the GC mark bit.
	IsMarked() bool
	SetMarked(bool)
	// Next / SetNext thread the VM-wide object list.
	Next() Object
	SetNext(Object)
	// Trace calls mark for every Value this object directly references, so
	// the collector can blacken it during tracing.
	Trace(mark func(Value))
	// Display returns the value's printed form (what PRINT emits).
	Display() string
	// TypeName returns the dynamic type name used in runtime error messages.
	TypeName() string
}
