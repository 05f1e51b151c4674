package object

// Upvalue is the runtime cell holding a variable captured by a closure. It
// is open while its source slot is still live on the VM value stack
// (Location points at that stack slot) and closed once the slot's owning
// call frame has returned or the block scope holding it has exited (the
// value is copied into Closed and Location is retargeted to &Closed).
//
// The open-upvalue list threads Next through every currently open Upvalue,
// sorted by descending stack slot index, so the VM can close every upvalue
// at or above a cutoff slot in one linear pass.
type Upvalue struct {
	Header
	Location *Value // points into the VM stack while open, at &Closed once closed
	Closed   Value
	Slot     int // stack index Location aliases while open; used to keep the open list sorted
	open     bool
	OpenNext *Upvalue // next node in the VM's open-upvalue list (nil once closed or tail)
}

var _ Object = (*Upvalue)(nil)

// NewOpenUpvalue creates an upvalue aliasing the given stack slot.
func NewOpenUpvalue(slot int, loc *Value) *Upvalue {
	uv := &Upvalue{Header: newHeader(KindUpvalue), open: true, Slot: slot}
	uv.Location = loc
	return uv
}

// IsOpen reports whether the upvalue still aliases a live stack slot.
func (u *Upvalue) IsOpen() bool { return u.open }

// Close promotes the upvalue from aliasing a stack slot to owning its value
// inline, and clears its open-upvalue list link. The caller advances the
// list head past it before calling Close.
func (u *Upvalue) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
	u.open = false
	u.OpenNext = nil
}

func (u *Upvalue) Trace(mark func(Value)) {
	// Safe even while open: Closed is the zero Value (Nil) until Close is
	// called, and the stack slot an open upvalue aliases is already marked
	// as part of the VM's live value stack.
	mark(u.Closed)
}

func (u *Upvalue) Display() string  { return "<upvalue>" }
func (u *Upvalue) TypeName() string { return "upvalue" }
