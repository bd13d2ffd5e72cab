//go:build majai_debug

package buildoptions

const IsDebugMode = true
