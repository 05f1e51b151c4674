package vm

import (
	"testing"

	"github.com/mna/lox/config"
	"github.com/mna/lox/object"
	"github.com/stretchr/testify/require"
)

// TestInterpretResetsOpenUpvalues guards against a stale-upvalue aliasing
// bug: if a runtime error unwinds out of a function whose locals are still
// captured by an open upvalue, Interpret must not let that upvalue survive
// into the next call. vm.stack is reused across calls (only sp is rewound),
// so a leftover entry in vm.openUpvalues would let captureUpvalue hand the
// old node back to a brand new closure at the same slot instead of
// allocating a fresh one, fusing two unrelated closures' variables together.
func TestInterpretResetsOpenUpvalues(t *testing.T) {
	m := New(config.Default())

	const slot = 5
	m.stack[slot] = object.Number(1)
	stale := m.captureUpvalue(slot)
	require.Same(t, stale, m.openUpvalues)

	_, err := m.Interpret(``)
	require.NoError(t, err)
	require.Nil(t, m.openUpvalues)

	m.stack[slot] = object.Number(2)
	fresh := m.captureUpvalue(slot)
	require.NotSame(t, stale, fresh, "captureUpvalue must not resurrect an upvalue left open by a prior Interpret call")
}
