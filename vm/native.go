package vm

import (
	"time"

	"github.com/mna/lox/object"
)

// nativeClock implements the `clock` native: seconds elapsed since the Unix
// epoch, as a float. It is the one standard-library function the language
// defines natively.
func nativeClock(args []object.Value) (object.Value, error) {
	return object.Number(float64(time.Now().UnixNano()) / 1e9), nil
}
