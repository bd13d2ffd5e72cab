// Package descriptor parses JVM field and method type descriptors.
package descriptor

import (
	"strings"

	"github.com/MartinGeisse/majai/internal/errs"
)

// BaseType is the leaf type letter of a field descriptor.
type BaseType byte

const (
	BaseTypeBoolean   BaseType = 'Z'
	BaseTypeByte      BaseType = 'B'
	BaseTypeShort     BaseType = 'S'
	BaseTypeChar      BaseType = 'C'
	BaseTypeInt       BaseType = 'I'
	BaseTypeFloat     BaseType = 'F'
	BaseTypeLong      BaseType = 'J'
	BaseTypeDouble    BaseType = 'D'
	BaseTypeReference BaseType = 'L'
)

// Bytes returns the storage size of a single value of this base type.
func (b BaseType) Bytes() int {
	switch b {
	case BaseTypeBoolean, BaseTypeByte:
		return 1
	case BaseTypeShort, BaseTypeChar:
		return 2
	case BaseTypeLong, BaseTypeDouble:
		return 8
	default:
		return 4
	}
}

// Signed reports whether loading a sub-word value of this type needs sign extension.
func (b BaseType) Signed() bool {
	return b == BaseTypeByte || b == BaseTypeShort || b == BaseTypeInt || b == BaseTypeLong
}

// Shift returns log2(Bytes()), the index shift used to address array elements of this type.
func (b BaseType) Shift() int {
	switch b.Bytes() {
	case 1:
		return 0
	case 2:
		return 1
	case 8:
		return 3
	default:
		return 2
	}
}

// Keyword returns the Java source name of a primitive base type, e.g. "int" for 'I'. It returns
// the empty string for BaseTypeReference.
func (b BaseType) Keyword() string {
	switch b {
	case BaseTypeBoolean:
		return "boolean"
	case BaseTypeByte:
		return "byte"
	case BaseTypeShort:
		return "short"
	case BaseTypeChar:
		return "char"
	case BaseTypeInt:
		return "int"
	case BaseTypeFloat:
		return "float"
	case BaseTypeLong:
		return "long"
	case BaseTypeDouble:
		return "double"
	}
	return ""
}

func (b BaseType) valid() bool {
	return strings.IndexByte("ZBSCIFJDL", byte(b)) >= 0
}

// Field is a parsed field descriptor such as "I", "[[C" or "Ljava/lang/String;".
type Field struct {
	// Dimension is the number of leading '[' characters.
	Dimension int
	// Base is the leaf type.
	Base BaseType
	// Class is the leaf class name for BaseTypeReference, in slash form.
	Class string
}

// ParseField parses a complete field descriptor.
func ParseField(s string) (Field, error) {
	f, n, err := parseField(s, 0)
	if err != nil {
		return Field{}, err
	}
	if n != len(s) {
		return Field{}, errs.Resolution("invalid descriptor: %s", s)
	}
	return f, nil
}

// parseField parses one field type starting at pos and returns the position just after it.
func parseField(s string, pos int) (f Field, next int, err error) {
	start := pos
	for pos < len(s) && s[pos] == '[' {
		f.Dimension++
		pos++
	}
	if pos >= len(s) {
		return Field{}, 0, errs.Resolution("invalid descriptor: %s", s)
	}
	f.Base = BaseType(s[pos])
	switch {
	case f.Base == BaseTypeReference:
		end := strings.IndexByte(s[pos:], ';')
		if end <= 1 {
			return Field{}, 0, errs.Resolution("invalid descriptor: %s", s)
		}
		f.Class = s[pos+1 : pos+end]
		pos += end + 1
	case f.Base.valid():
		pos++
	default:
		return Field{}, 0, errs.Resolution("invalid descriptor: %s (at %q)", s, s[start:])
	}
	return f, pos, nil
}

// IsArray reports whether the descriptor has at least one array dimension.
func (f Field) IsArray() bool {
	return f.Dimension > 0
}

// IsReference reports whether values of this type are object pointers.
func (f Field) IsReference() bool {
	return f.IsArray() || f.Base == BaseTypeReference
}

// Bytes returns the storage size of a value of this type.
func (f Field) Bytes() int {
	if f.IsReference() {
		return 4
	}
	return f.Base.Bytes()
}

// Words returns the number of 32-bit words a value of this type occupies in locals and on the
// operand stack.
func (f Field) Words() int {
	if f.Bytes() == 8 {
		return 2
	}
	return 1
}

// Signed reports whether loading a value of this type sign-extends.
func (f Field) Signed() bool {
	return !f.IsReference() && f.Base.Signed()
}

// Element returns the descriptor of the elements of an array type.
func (f Field) Element() Field {
	e := f
	e.Dimension--
	return e
}

// LoadInstruction returns the load mnemonic for a single-word value of this type.
func (f Field) LoadInstruction() string {
	switch f.Bytes() {
	case 1:
		if f.Signed() {
			return "lb"
		}
		return "lbu"
	case 2:
		if f.Signed() {
			return "lh"
		}
		return "lhu"
	case 4:
		return "lw"
	}
	panic(errs.Invariant("no load instruction for %s", f))
}

// StoreInstruction returns the store mnemonic for a single-word value of this type.
func (f Field) StoreInstruction() string {
	switch f.Bytes() {
	case 1:
		return "sb"
	case 2:
		return "sh"
	case 4:
		return "sw"
	}
	panic(errs.Invariant("no store instruction for %s", f))
}

// String returns the descriptor in class file syntax.
func (f Field) String() string {
	var b strings.Builder
	for i := 0; i < f.Dimension; i++ {
		b.WriteByte('[')
	}
	b.WriteByte(byte(f.Base))
	if f.Base == BaseTypeReference {
		b.WriteString(f.Class)
		b.WriteByte(';')
	}
	return b.String()
}

// Method is a parsed method descriptor such as "(I[Ljava/lang/String;)V".
type Method struct {
	Params []Field
	// Return is nil for void methods.
	Return *Field
}

// ParseMethod parses a complete method descriptor.
func ParseMethod(s string) (Method, error) {
	if len(s) < 3 || s[0] != '(' {
		return Method{}, errs.Resolution("invalid descriptor: %s", s)
	}
	var m Method
	pos := 1
	for pos < len(s) && s[pos] != ')' {
		f, next, err := parseField(s, pos)
		if err != nil {
			return Method{}, err
		}
		m.Params = append(m.Params, f)
		pos = next
	}
	if pos >= len(s) {
		return Method{}, errs.Resolution("invalid descriptor: %s", s)
	}
	pos++
	if s[pos:] == "V" {
		return m, nil
	}
	ret, err := ParseField(s[pos:])
	if err != nil {
		return Method{}, errs.Resolution("invalid descriptor: %s", s)
	}
	m.Return = &ret
	return m, nil
}

// ParameterWords returns the number of words the parameters occupy, not counting the receiver.
func (m Method) ParameterWords() (words int) {
	for _, p := range m.Params {
		words += p.Words()
	}
	return
}

// ReturnWords returns 0 for void, otherwise the word count of the return type.
func (m Method) ReturnWords() int {
	if m.Return == nil {
		return 0
	}
	return m.Return.Words()
}

// ParameterPrefix returns the part of a method descriptor up to and including ')'. Overriding is
// decided on this prefix so that the return type does not take part in it.
func ParameterPrefix(desc string) string {
	if i := strings.IndexByte(desc, ')'); i >= 0 {
		return desc[:i+1]
	}
	return desc
}

// BaseTypeForNewarray maps the operand of the newarray instruction to the element type.
func BaseTypeForNewarray(code int) (BaseType, bool) {
	switch code {
	case 4:
		return BaseTypeBoolean, true
	case 5:
		return BaseTypeChar, true
	case 6:
		return BaseTypeFloat, true
	case 7:
		return BaseTypeDouble, true
	case 8:
		return BaseTypeByte, true
	case 9:
		return BaseTypeShort, true
	case 10:
		return BaseTypeInt, true
	case 11:
		return BaseTypeLong, true
	}
	return 0, false
}
