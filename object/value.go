// Package object implements the runtime value representation: the tagged
// Value union, the heap object model (string, function, native, closure,
// upvalue, class, instance, bound method), and the open-addressed hash
// table used for globals, string interning, instance fields and class
// method tables.
package object

import (
	"fmt"
	"math"
	"strconv"
)

// Kind tags the dynamic type of a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObject
)

// Value is the tagged union every lox expression produces and every VM
// stack slot holds. It is always copied by value; the Object variant carries
// an unowned reference to a heap object managed by the collector.
type Value struct {
	kind Kind
	b    bool
	n    float64
	obj  Object
}

// Nil is the singleton nil value.
var Nil = Value{kind: KindNil}

// True and False are the two bool values.
var (
	True  = Value{kind: KindBool, b: true}
	False = Value{kind: KindBool, b: false}
)

// Bool returns the Value for b.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Number returns the Value wrapping the float64 n.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Obj returns the Value wrapping the heap object o. Passing a nil o panics:
// callers must use Nil for the absence of a value.
func Obj(o Object) Value {
	if o == nil {
		panic("object.Obj: nil Object, use object.Nil instead")
	}
	return Value{kind: KindObject, obj: o}
}

func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsObject() bool { return v.kind == KindObject }

// AsBool returns the bool payload; only meaningful when IsBool is true.
func (v Value) AsBool() bool { return v.b }

// AsNumber returns the float64 payload; only meaningful when IsNumber is true.
func (v Value) AsNumber() float64 { return v.n }

// AsObject returns the Object payload; only meaningful when IsObject is true.
func (v Value) AsObject() Object { return v.obj }

// Truthy implements lox's truthiness rule: only nil and false are falsey.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.b
	default:
		return true
	}
}

// Equal implements lox's equality: nil=nil, bool by value, number by IEEE
// equality (so NaN != NaN), object by reference identity (sound for strings
// because all strings are interned).
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	case KindObject:
		return a.obj == b.obj
	default:
		return false
	}
}

// TypeName returns the dynamic type name used in runtime error messages and
// by the native `type` introspection, if any is ever added.
func (v Value) TypeName() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindObject:
		return v.obj.TypeName()
	default:
		return "unknown"
	}
}

// String returns the printed form used by the PRINT opcode and by
// interpolating values into error messages.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.n)
	case KindObject:
		return v.obj.Display()
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	if math.IsInf(n, 1) {
		return "inf"
	}
	if math.IsInf(n, -1) {
		return "-inf"
	}
	if math.IsNaN(n) {
		return "nan"
	}
	// Matches the host's default %g-equivalent double formatting (the
	// shortest decimal representation that round-trips).
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// GoString implements fmt.GoStringer for debugger/disassembler output.
func (v Value) GoString() string {
	return fmt.Sprintf("Value(%s: %s)", v.TypeName(), v.String())
}
