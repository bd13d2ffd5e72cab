// Package version reports the version of the majai module a binary was built from.
package version

import (
	"runtime/debug"
)

// Default is the version reported when build information is unavailable, such as in tests.
const Default = "dev"

// GetMajaiVersion returns the majai version from the build information, or Default.
func GetMajaiVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Default
	}
	if v := info.Main.Version; info.Main.Path == modulePath && v != "" && v != "(devel)" {
		return v
	}
	for _, dep := range info.Deps {
		// A program embedding the compiler sees majai as a dependency.
		if dep.Path == modulePath {
			return dep.Version
		}
	}
	return Default
}

const modulePath = "github.com/MartinGeisse/majai"
