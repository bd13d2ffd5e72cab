package logging

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLogScopes tests the bitset works as expected
func TestLogScopes(t *testing.T) {
	tests := []struct {
		name   string
		scopes LogScopes
	}{
		{
			name:   "one is the smallest flag",
			scopes: 1,
		},
		{
			name:   "63 is the largest feature flag", // because uint64
			scopes: 1 << 63,
		},
	}

	for _, tt := range tests {
		tc := tt

		t.Run(tc.name, func(t *testing.T) {
			f := LogScopes(0)

			// Defaults to false
			require.False(t, f.IsEnabled(tc.scopes))

			// Set true makes it true
			f = f | tc.scopes
			require.True(t, f.IsEnabled(tc.scopes))

			// Set false makes it false again
			f = f ^ tc.scopes
			require.False(t, f.IsEnabled(tc.scopes))
		})
	}
}

func TestLogScopes_String(t *testing.T) {
	tests := []struct {
		name     string
		scopes   LogScopes
		expected string
	}{
		{name: "none", scopes: LogScopeNone, expected: ""},
		{name: "any", scopes: LogScopeAll, expected: "all"},
		{name: "load", scopes: LogScopeLoad, expected: "load"},
		{name: "resolve", scopes: LogScopeResolve, expected: "resolve"},
		{name: "compile", scopes: LogScopeCompile, expected: "compile"},
		{name: "translate", scopes: LogScopeTranslate, expected: "translate"},
		{name: "objects", scopes: LogScopeObjects, expected: "objects"},
		{name: "resolve|objects", scopes: LogScopeResolve | LogScopeObjects, expected: "resolve|objects"},
		{name: "undefined", scopes: 1 << 14, expected: fmt.Sprintf("<unknown=%d>", 1<<14)},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, tc.scopes.String())
		})
	}
}

func TestParseLogScopes(t *testing.T) {
	scopes, err := ParseLogScopes("resolve,,translate")
	require.NoError(t, err)
	require.Equal(t, LogScopeResolve|LogScopeTranslate, scopes)

	scopes, err = ParseLogScopes("all")
	require.NoError(t, err)
	require.Equal(t, LogScopeAll, scopes)

	_, err = ParseLogScopes("clock")
	require.EqualError(t, err, "not a log scope")
}

func TestLoggerName(t *testing.T) {
	require.Equal(t, "majai.translate", LoggerName(LogScopeTranslate))
}
