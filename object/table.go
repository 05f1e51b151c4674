package object

const tableMaxLoad = 0.75

type entryState uint8

const (
	stateEmpty entryState = iota
	stateTombstone
	stateOccupied
)

type entry struct {
	state entryState
	key   *String
	value Value
}

// Table is an open-addressed, linear-probing hash table keyed by interned
// strings, used throughout the VM for globals, the string intern table,
// instance fields and class method tables. Deletion leaves a tombstone
// behind (rather than compacting the probe sequence) so that later lookups
// still find entries that were inserted after a now-deleted key collided
// with them.
type Table struct {
	entries []entry
	count   int // occupied + tombstone entries
	live    int // occupied entries only
}

// Len returns the number of live (non-tombstone) entries.
func (t *Table) Len() int { return t.live }

// Get looks up key and reports whether it was found.
func (t *Table) Get(key *String) (Value, bool) {
	if len(t.entries) == 0 {
		return Nil, false
	}
	e := t.findEntry(t.entries, key)
	if e.state != stateOccupied {
		return Nil, false
	}
	return e.value, true
}

// Set inserts or updates key. It reports whether this created a brand new
// key (as opposed to overwriting an existing one).
func (t *Table) Set(key *String, value Value) bool {
	if t.count+1 > int(float64(len(t.entries))*tableMaxLoad) {
		t.grow(growCapacity(len(t.entries)))
	}
	e := t.findEntry(t.entries, key)
	isNew := e.state != stateOccupied
	if isNew && e.state == stateEmpty {
		t.count++
	}
	if isNew {
		t.live++
	}
	e.state = stateOccupied
	e.key = key
	e.value = value
	return isNew
}

// Delete removes key, leaving a tombstone so later probes are not broken.
// Reports whether key was present.
func (t *Table) Delete(key *String) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.findEntry(t.entries, key)
	if e.state != stateOccupied {
		return false
	}
	e.state = stateTombstone
	e.key = nil
	e.value = Nil
	t.live--
	return true
}

// AddAll copies every live entry of src into t, overwriting any existing
// key. Used when a subclass inherits its superclass's method table.
func (t *Table) AddAll(src *Table) {
	for _, e := range src.entries {
		if e.state == stateOccupied {
			t.Set(e.key, e.value)
		}
	}
}

// Range calls fn for every live entry. Iteration order is unspecified.
func (t *Table) Range(fn func(key *String, value Value) bool) {
	for _, e := range t.entries {
		if e.state == stateOccupied {
			if !fn(e.key, e.value) {
				return
			}
		}
	}
}

// RemoveUnmarked deletes every live entry whose key is not marked. This
// implements the intern table's weak-key discipline: it must run after
// tracing but before the sweep frees unmarked string objects, or the
// now-dangling keys would corrupt later lookups.
func (t *Table) RemoveUnmarked() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.state == stateOccupied && !e.key.IsMarked() {
			e.state = stateTombstone
			e.key = nil
			e.value = Nil
			t.live--
		}
	}
}

// FindString looks up a string by content rather than by object identity.
// It is used exclusively by the interning path, where no String object
// exists yet for the candidate bytes.
func (t *Table) FindString(chars string, hash uint32) *String {
	if len(t.entries) == 0 {
		return nil
	}
	cap := len(t.entries)
	idx := int(hash) % cap
	for {
		e := &t.entries[idx]
		switch e.state {
		case stateEmpty:
			return nil
		case stateOccupied:
			if e.key.hash == hash && e.key.chars == chars {
				return e.key
			}
		}
		idx = (idx + 1) % cap
	}
}

func (t *Table) findEntry(entries []entry, key *String) *entry {
	cap := len(entries)
	idx := int(key.hash) % cap
	var tombstone *entry
	for {
		e := &entries[idx]
		switch e.state {
		case stateEmpty:
			if tombstone != nil {
				return tombstone
			}
			return e
		case stateTombstone:
			if tombstone == nil {
				tombstone = e
			}
		case stateOccupied:
			if e.key == key {
				return e
			}
		}
		idx = (idx + 1) % cap
	}
}

func (t *Table) grow(newCap int) {
	newEntries := make([]entry, newCap)
	liveCount := 0
	for _, e := range t.entries {
		if e.state != stateOccupied {
			continue
		}
		dst := findEmptySlot(newEntries, e.key)
		dst.state = stateOccupied
		dst.key = e.key
		dst.value = e.value
		liveCount++
	}
	t.entries = newEntries
	t.count = liveCount
	t.live = liveCount
}

func findEmptySlot(entries []entry, key *String) *entry {
	cap := len(entries)
	idx := int(key.hash) % cap
	for {
		e := &entries[idx]
		if e.state == stateEmpty {
			return e
		}
		idx = (idx + 1) % cap
	}
}

func growCapacity(cap int) int {
	if cap < 8 {
		return 8
	}
	return cap * 2
}
