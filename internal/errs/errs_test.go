package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindsAreDistinct(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
		kind error
	}{
		{name: "resolution", err: Resolution("class %s not found", "a/B"), kind: ErrResolution},
		{name: "not yet implemented", err: NotYetImplemented("opcode %s", "lcmp"), kind: ErrNotYetImplemented},
		{name: "invariant", err: Invariant("allocator sealed"), kind: ErrInvariant},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.err, tc.kind)
			for _, other := range []error{ErrResolution, ErrNotYetImplemented, ErrInvariant} {
				if other != tc.kind {
					require.False(t, errors.Is(tc.err, other))
				}
			}
		})
	}
}

func TestRecover(t *testing.T) {
	f := func() (err error) {
		defer Recover(&err)
		panic(Invariant("boom"))
	}
	err := f()
	require.ErrorIs(t, err, ErrInvariant)
	require.Contains(t, err.Error(), "boom")

	tests := []struct {
		name  string
		value interface{}
	}{
		{name: "not an error", value: "not an error"},
		{name: "resolution error", value: Resolution("missing")},
		{name: "runtime error", value: fmt.Errorf("index out of range")},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			require.PanicsWithValue(t, tc.value, func() {
				var err error
				defer Recover(&err)
				panic(tc.value)
			})
		})
	}

	require.Panics(t, func() {
		var err error
		defer Recover(&err)
		var m map[string]int
		m["x"] = 1
	})
}
