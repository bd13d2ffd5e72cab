// Package errs defines the three kinds of failure the compiler distinguishes. Callers test for a
// kind with errors.Is; every error the compiler returns wraps exactly one of these.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrResolution is bad or missing input: a class file that cannot be found, a malformed
	// descriptor, or a field or method that is not declared anywhere in the superclass chain.
	ErrResolution = errors.New("resolution error")
	// ErrNotYetImplemented marks a valid JVM feature this compiler does not lower.
	ErrNotYetImplemented = errors.New("not yet implemented")
	// ErrInvariant is a broken programming contract, such as allocating from a sealed allocator.
	ErrInvariant = errors.New("invariant violation")
)

// Resolution returns an error wrapping ErrResolution.
func Resolution(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrResolution, fmt.Sprintf(format, args...))
}

// NotYetImplemented returns an error wrapping ErrNotYetImplemented.
func NotYetImplemented(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotYetImplemented, fmt.Sprintf(format, args...))
}

// Invariant returns an error wrapping ErrInvariant.
func Invariant(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}

// Recover converts a panic raised by an invariant check back into an error. It is meant to be
// deferred at package boundaries:
//
//	defer errs.Recover(&err)
//
// Any other panic, including runtime errors, is re-raised.
func Recover(err *error) {
	if v := recover(); v != nil {
		if e, ok := v.(error); ok && errors.Is(e, ErrInvariant) {
			*err = e
			return
		}
		panic(v)
	}
}
