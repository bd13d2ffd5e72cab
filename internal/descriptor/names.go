package descriptor

import "strings"

// NormalizeClassName returns the slash form of a class name; dots and slashes are the same
// separator.
func NormalizeClassName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

// DenormalizeClassName returns the dotted form of a class name, used in human-readable output.
func DenormalizeClassName(name string) string {
	return strings.ReplaceAll(name, "/", ".")
}

var symbolReplacer = strings.NewReplacer(
	"(", "",
	")", "_",
	";", "_",
	"/", "_",
	".", "_",
	"[", "$",
	"<", "$",
	">", "$",
)

// MangleClassName turns a class name into an assembler symbol fragment.
func MangleClassName(name string) string {
	return symbolReplacer.Replace(NormalizeClassName(name))
}

// MangleMethodName returns the symbol of a method body:
// mangled class name, '_', method name, '_', mangled descriptor.
func MangleMethodName(className, methodName, desc string) string {
	return MangleClassName(className) + "_" + symbolReplacer.Replace(methodName) + "_" + symbolReplacer.Replace(desc)
}

// VtableSymbol returns the conventional alias under which a class's vtable is reachable from
// generated code and the runtime.
func VtableSymbol(className string) string {
	return MangleClassName(className) + "_vtable"
}

// SimpleName returns the part of a slash-form class name after the last slash. Array
// descriptors get the simple name of their leaf type followed by one "[]" per dimension, such as
// "Object[]" for "[Ljava/lang/Object;" or "int[][]" for "[[I".
func SimpleName(name string) string {
	if strings.HasPrefix(name, "[") {
		if f, err := ParseField(name); err == nil {
			leaf := f.Base.Keyword()
			if f.Base == BaseTypeReference {
				leaf = SimpleName(f.Class)
			}
			return leaf + strings.Repeat("[]", f.Dimension)
		}
	}
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}
