package physics

import (
	"fmt"

	"github.com/pkg/errors"
)

// errors.go implements the typed error taxonomy of spec.md §7. Creation
// and mutation calls return these via errors.Wrapf so callers get both a
// stable sentinel (errors.Is) and call-site context. Internal contract
// violations that should never happen at a correctly-used call site are
// reported through assert, which panics, matching the teacher's
// assert(cond, msg) convention throughout space.go.

var (
	// ErrWorldLocked is returned when a mutating call is attempted while
	// the world is executing Step.
	ErrWorldLocked = errors.New("physics: world is locked (call during Step)")

	// ErrInvalidArgument is returned when a configuration value or
	// constructor argument is outside its allowed range.
	ErrInvalidArgument = errors.New("physics: invalid argument")

	// ErrLengthExceeded is the sentinel for population limits. No creation
	// call in this package checks a population limit, so none returns it.
	ErrLengthExceeded = errors.New("physics: length limit exceeded")
)

func wrapLocked(op string) error {
	return errors.Wrapf(ErrWorldLocked, "op=%s", op)
}

func wrapInvalid(op, reason string) error {
	return errors.Wrapf(ErrInvalidArgument, "op=%s reason=%s", op, reason)
}

func wrapLength(op string, limit int) error {
	return errors.Wrapf(ErrLengthExceeded, "op=%s limit=%d", op, limit)
}

// assert panics with msg if cond is false. Used for invariants that a
// correct caller can never violate (corrupt handles, internal state
// machine breaks) as opposed to user-facing errors above.
func assert(cond bool, msg string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("physics: assertion failed: "+msg, args...))
	}
}
