// Package logging names the compiler's log scopes and hands out their loggers. This is in an
// independent package to avoid dependency cycles.
package logging

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tliron/commonlog"
	// Registers the default commonlog backend.
	_ "github.com/tliron/commonlog/simple"
)

type LogScopes uint64

const (
	LogScopeNone           = LogScopes(0)
	LogScopeLoad LogScopes = 1 << iota
	LogScopeResolve
	LogScopeCompile
	LogScopeTranslate
	LogScopeObjects
	LogScopeAll = LogScopes(0xffffffffffffffff)
)

var allScopes = []LogScopes{LogScopeLoad, LogScopeResolve, LogScopeCompile, LogScopeTranslate, LogScopeObjects}

func scopeName(s LogScopes) string {
	switch s {
	case LogScopeLoad:
		return "load"
	case LogScopeResolve:
		return "resolve"
	case LogScopeCompile:
		return "compile"
	case LogScopeTranslate:
		return "translate"
	case LogScopeObjects:
		return "objects"
	default:
		return fmt.Sprintf("<unknown=%d>", s)
	}
}

// IsEnabled returns true if the scope (or group of scopes) is enabled.
func (f LogScopes) IsEnabled(scope LogScopes) bool {
	return f&scope != 0
}

// String implements fmt.Stringer by returning each enabled log scope.
func (f LogScopes) String() string {
	if f == LogScopeAll {
		return "all"
	}
	var builder strings.Builder
	for i := 0; i <= 63; i++ { // cycle through all bits to reduce code and maintenance
		target := LogScopes(1 << i)
		if f.IsEnabled(target) {
			if name := scopeName(target); name != "" {
				if builder.Len() > 0 {
					builder.WriteByte('|')
				}
				builder.WriteString(name)
			}
		}
	}
	return builder.String()
}

// ParseLogScopes parses a comma separated list of scope names. "all" enables every scope.
func ParseLogScopes(input string) (LogScopes, error) {
	var scopes LogScopes
	for _, s := range strings.Split(input, ",") {
		switch s {
		case "":
			continue
		case "all":
			scopes |= LogScopeAll
			continue
		}
		found := false
		for _, scope := range allScopes {
			if scopeName(scope) == s {
				scopes |= scope
				found = true
			}
		}
		if !found {
			return 0, errors.New("not a log scope")
		}
	}
	return scopes, nil
}

// LoggerName returns the commonlog name of a scope's logger.
func LoggerName(scope LogScopes) string {
	return "majai." + scopeName(scope)
}

// GetLogger returns the logger of a single scope.
func GetLogger(scope LogScopes) commonlog.Logger {
	return commonlog.GetLogger(LoggerName(scope))
}

// Configure sets up the log backend. verbosity follows commonlog: 0 logs errors and worse, each
// step adds a level, and a negative value disables logging. An empty path logs to stderr. Scopes
// outside the given set are silenced.
func Configure(verbosity int, path string, scopes LogScopes) {
	var p *string
	if path != "" {
		p = &path
	}
	commonlog.Configure(verbosity, p)
	for _, scope := range allScopes {
		if !scopes.IsEnabled(scope) {
			commonlog.SetMaxLevel(commonlog.None, LoggerName(scope))
		}
	}
}
