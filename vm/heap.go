package vm

import "github.com/mna/lox/object"

// track charges size bytes to the heap, runs a collection first if that
// crosses the trigger (or stress mode is on), then links o into the VM's
// object list. This is the one place all object allocation flows through,
// mirroring the reference compiler's single reallocate choke point.
func (vm *VM) track(o object.Object, size int) {
	vm.bytesAllocated += size
	if vm.config.StressGC || vm.bytesAllocated > vm.nextGC {
		vm.collectGarbage()
	}
	o.SetNext(vm.objects)
	vm.objects = o
}

// InternString returns the canonical *object.String for s, allocating and
// interning a new one if s has not been seen before. Implements
// compiler.Interner.
func (vm *VM) InternString(s string) *object.String {
	h := object.HashString(s)
	if existing := vm.strings.FindString(s, h); existing != nil {
		return existing
	}
	str := object.NewString(s)
	// The new string must stay reachable across the track call below, which
	// may trigger a collection; it is already in the intern table by then,
	// whose weak keys alone would not keep it alive.
	vm.push(object.Obj(str))
	vm.strings.Set(str, object.Nil)
	vm.track(str, 24+len(s))
	vm.pop()
	return str
}

// NewFunction allocates a fresh, empty Function. Implements
// compiler.Interner.
func (vm *VM) NewFunction(name *object.String) *object.Function {
	fn := object.NewFunction(name)
	vm.track(fn, 64)
	return fn
}

// PushRoot and PopRoot let the compiler keep an in-progress object rooted
// on the value stack for as long as it is not yet reachable through some
// already-rooted constant pool. Implements compiler.Interner.
func (vm *VM) PushRoot(v object.Value) { vm.push(v) }
func (vm *VM) PopRoot()                { vm.pop() }

func (vm *VM) newClosure(fn *object.Function) *object.Closure {
	cl := object.NewClosure(fn)
	vm.track(cl, 24+8*len(cl.Upvalues))
	return cl
}

func (vm *VM) newNative(name string, fn object.NativeFn) *object.Native {
	n := object.NewNative(name, fn)
	vm.track(n, 32)
	return n
}

func (vm *VM) newUpvalue(slot int) *object.Upvalue {
	uv := object.NewOpenUpvalue(slot, &vm.stack[slot])
	vm.track(uv, 24)
	return uv
}

func (vm *VM) newClass(name *object.String) *object.Class {
	c := object.NewClass(name)
	vm.track(c, 48)
	return c
}

func (vm *VM) newInstance(class *object.Class) *object.Instance {
	i := object.NewInstance(class)
	vm.track(i, 48)
	return i
}

func (vm *VM) newBoundMethod(receiver object.Value, method *object.Closure) *object.BoundMethod {
	b := object.NewBoundMethod(receiver, method)
	vm.track(b, 32)
	return b
}

// concatenate builds a new interned string from the concatenation of a and
// b's bytes. Two concatenations producing the same content always yield
// the same String object, because InternString always checks the table
// first.
func (vm *VM) concatenate(a, b *object.String) *object.String {
	return vm.InternString(a.Value() + b.Value())
}

func sizeOfObject(o object.Object) int {
	switch o.ObjectKind() {
	case object.KindString:
		return 24 + o.(*object.String).Len()
	case object.KindFunction:
		fn := o.(*object.Function)
		return 64 + len(fn.Chunk.Code) + 16*len(fn.Chunk.Constants)
	case object.KindNative:
		return 32
	case object.KindClosure:
		return 24 + 8*len(o.(*object.Closure).Upvalues)
	case object.KindUpvalue:
		return 24
	case object.KindClass:
		return 48
	case object.KindInstance:
		return 48
	case object.KindBoundMethod:
		return 32
	default:
		return 16
	}
}

// collectGarbage runs one mark-sweep cycle. It is invoked opportunistically
// from track during heap expansion, never directly by user code.
func (vm *VM) collectGarbage() {
	before := vm.bytesAllocated
	remaining, freed := vm.collector.Collect(vm.objects, vm, &vm.strings, sizeOfObject)
	vm.objects = remaining
	vm.bytesAllocated -= freed
	vm.nextGC = vm.bytesAllocated * vm.config.HeapGrowFactor
	if vm.nextGC == 0 {
		vm.nextGC = vm.config.InitialHeapBytes
	}
	if vm.logger != nil && vm.config.LogGC {
		vm.logger.Sugar().Debugf("gc: collected %d objects, %d -> %d bytes, next at %d",
			vm.collector.Freed, before, vm.bytesAllocated, vm.nextGC)
	}
}

// MarkRoots implements gc.RootMarker: it marks every value directly
// reachable from VM state — the live stack slots, every call frame's
// closure, every node in the open-upvalue list, and every global.
func (vm *VM) MarkRoots(mark func(object.Value)) {
	for i := 0; i < vm.sp; i++ {
		mark(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		mark(object.Obj(vm.frames[i].closure))
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.OpenNext {
		mark(object.Obj(uv))
	}
	vm.globals.Range(func(key *object.String, value object.Value) bool {
		mark(object.Obj(key))
		mark(value)
		return true
	})
	if vm.initString != nil {
		mark(object.Obj(vm.initString))
	}
}
