package classfile

// Constant pool tags.
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

// Constant is a resolved constant pool entry referenced by an instruction. Every pool slot is
// decoded into exactly one value, so two instructions referring to the same slot see the same
// pointer.
type Constant interface {
	Tag() uint8
}

// IntegerConstant is a CONSTANT_Integer.
type IntegerConstant struct{ Value int32 }

// FloatConstant is a CONSTANT_Float, kept as raw IEEE 754 bits.
type FloatConstant struct{ Bits uint32 }

// LongConstant is a CONSTANT_Long.
type LongConstant struct{ Value int64 }

// DoubleConstant is a CONSTANT_Double, kept as raw IEEE 754 bits.
type DoubleConstant struct{ Bits uint64 }

// StringConstant is a CONSTANT_String.
type StringConstant struct {
	// Value is the string as Go text. Unpaired surrogates are replaced.
	Value string
	// Chars are the exact UTF-16 code units of the Java string.
	Chars []uint16
}

// ClassConstant is a CONSTANT_Class. Name is in slash form, or an array descriptor.
type ClassConstant struct{ Name string }

// MemberRef is a CONSTANT_Fieldref, CONSTANT_Methodref or CONSTANT_InterfaceMethodref.
type MemberRef struct {
	Kind       uint8
	Owner      string
	Name       string
	Descriptor string
}

// OpaqueConstant is any constant the compiler does not interpret, such as method handles and
// dynamic call sites.
type OpaqueConstant struct{ Kind uint8 }

// Tag implements Constant.
func (*IntegerConstant) Tag() uint8 {
	return TagInteger
}

// Tag implements Constant.
func (*FloatConstant) Tag() uint8 {
	return TagFloat
}

// Tag implements Constant.
func (*LongConstant) Tag() uint8 {
	return TagLong
}

// Tag implements Constant.
func (*DoubleConstant) Tag() uint8 {
	return TagDouble
}

// Tag implements Constant.
func (*StringConstant) Tag() uint8 {
	return TagString
}

// Tag implements Constant.
func (*ClassConstant) Tag() uint8 {
	return TagClass
}

// Tag implements Constant.
func (m *MemberRef) Tag() uint8 {
	return m.Kind
}

// Tag implements Constant.
func (o *OpaqueConstant) Tag() uint8 {
	return o.Kind
}
