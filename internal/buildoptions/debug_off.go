//go:build !majai_debug

package buildoptions

// IsDebugMode is true when built with the majai_debug tag. Code generators then annotate their
// output, e.g. the translator writes each bytecode instruction as a comment before its lowering.
// Checks on this constant are removed from normal builds.
const IsDebugMode = false
