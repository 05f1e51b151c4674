// Package gc implements the tracing tri-color mark-sweep algorithm that
// collects the VM's heap. It holds no state of its own between cycles: the
// gray stack (the collector's one piece of working memory) is allocated
// fresh for every Collect call precisely so that growing it can never
// itself trigger a nested collection or be mistaken for a root.
//
// This mirrors clox's memory.c, with one necessary divergence: clox's gray
// stack is allocated with the system's realloc rather than its own
// instrumented reallocate, to avoid re-entrancy; here the gray stack is a
// plain Go slice that the VM's byte-accounting allocator never sees or
// charges, which gives the same guarantee.
package gc

import "github.com/mna/lox/object"

// RootMarker is implemented by whatever owns the GC roots (the VM): it must
// call mark for every Value directly reachable from program state — the
// value stack, call frames, the open-upvalue list, the globals table, and
// (because a collection may be triggered mid-compilation) any function
// under construction by the active compiler chain.
type RootMarker interface {
	MarkRoots(mark func(object.Value))
}

// Collector runs mark-sweep cycles over a VM's object list.
type Collector struct {
	// Freed is the number of objects reclaimed by the most recent cycle.
	Freed int
}

// Collect traces every object reachable from roots, removes unmarked
// entries from the (weak-keyed) intern table, then sweeps the object list,
// freeing everything left unmarked and resetting the mark bit on every
// survivor. sizeOf estimates the byte footprint of an object for heap
// accounting; it may be nil if the caller does not track bytes.
//
// It returns the new head of the (now compacted) object list and the
// estimated number of bytes freed.
func (c *Collector) Collect(objects object.Object, roots RootMarker, interned *object.Table, sizeOf func(object.Object) int) (remaining object.Object, freedBytes int) {
	var gray []object.Object

	mark := func(v object.Value) {
		if !v.IsObject() {
			return
		}
		o := v.AsObject()
		if o == nil || o.IsMarked() {
			return
		}
		o.SetMarked(true)
		gray = append(gray, o)
	}

	roots.MarkRoots(mark)

	for len(gray) > 0 {
		n := len(gray) - 1
		o := gray[n]
		gray = gray[:n]
		o.Trace(mark)
	}

	// Weak-key sweep of the intern table must happen before objects are
	// freed below, or a string with no other referents would stay falsely
	// reachable through the intern table forever.
	if interned != nil {
		interned.RemoveUnmarked()
	}

	var head, tail object.Object
	freed := 0
	for cur := objects; cur != nil; {
		next := cur.Next()
		if cur.IsMarked() {
			cur.SetMarked(false)
			cur.SetNext(nil)
			if head == nil {
				head = cur
			} else {
				tail.SetNext(cur)
			}
			tail = cur
		} else {
			freed++
			if sizeOf != nil {
				freedBytes += sizeOf(cur)
			}
		}
		cur = next
	}

	c.Freed = freed
	return head, freedBytes
}
