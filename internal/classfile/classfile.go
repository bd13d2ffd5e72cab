// Package classfile decodes JVM class files into the tree the compiler works on: the class, its
// fields and methods, and each method's instructions with their constant pool operands already
// resolved. Debug attributes are skipped.
package classfile

// Access flags used by the compiler.
const (
	AccPublic    uint16 = 0x0001
	AccPrivate   uint16 = 0x0002
	AccProtected uint16 = 0x0004
	AccStatic    uint16 = 0x0008
	AccFinal     uint16 = 0x0010
	AccSuper     uint16 = 0x0020
	AccNative    uint16 = 0x0100
	AccInterface uint16 = 0x0200
	AccAbstract  uint16 = 0x0400
)

// Names of the special methods.
const (
	ConstructorName      = "<init>"
	ClassInitializerName = "<clinit>"
)

// Class is a decoded class file.
type Class struct {
	MinorVersion, MajorVersion uint16
	AccessFlags                uint16
	// Name is the class name in slash form.
	Name string
	// SuperName is empty only for the root class.
	SuperName  string
	Interfaces []string
	Fields     []*Field
	Methods    []*Method
}

// IsInterface reports whether the class is an interface.
func (c *Class) IsInterface() bool {
	return c.AccessFlags&AccInterface != 0
}

// Field is a field declaration.
type Field struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
}

// IsStatic reports whether the field lives in the static pool.
func (f *Field) IsStatic() bool {
	return f.AccessFlags&AccStatic != 0
}

// Method is a method declaration.
type Method struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	// Code is nil for abstract and native methods.
	Code *Code
}

// IsStatic reports whether the method has no receiver.
func (m *Method) IsStatic() bool {
	return m.AccessFlags&AccStatic != 0
}

// IsNative reports whether the method body is provided by the runtime.
func (m *Method) IsNative() bool {
	return m.AccessFlags&AccNative != 0
}

// IsConstructor reports whether the method is an instance or class initializer.
func (m *Method) IsConstructor() bool {
	return m.Name == ConstructorName || m.Name == ClassInitializerName
}

// Code is the Code attribute of a method.
type Code struct {
	MaxStack     int
	MaxLocals    int
	Instructions []Instruction
	Handlers     []ExceptionHandler
}

// ExceptionHandler is one entry of a Code attribute's exception table.
type ExceptionHandler struct {
	StartPC, EndPC, HandlerPC int
	// CatchType is empty for finally blocks.
	CatchType string
}

// Instruction is one decoded instruction.
type Instruction struct {
	// Offset is the bytecode offset of the instruction within the method.
	Offset int
	Opcode Opcode
	// Operand holds the immediate of bipush, sipush and newarray, the local variable index of
	// load, store, ret and iinc instructions, and the dimension count of multianewarray.
	Operand int
	// Increment is the constant added by iinc.
	Increment int
	// Target is the absolute bytecode offset a branch jumps to, or the default target of a switch.
	Target int
	// SwitchTargets are the non-default targets of tableswitch and lookupswitch.
	SwitchTargets []int
	// Constant is the constant pool operand of ldc, field, method and type instructions.
	Constant Constant
}

// IsBranch reports whether Target is meaningful.
func (i *Instruction) IsBranch() bool {
	switch i.Opcode {
	case OpIfeq, OpIfne, OpIflt, OpIfge, OpIfgt, OpIfle,
		OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt, OpIfIcmple,
		OpIfAcmpeq, OpIfAcmpne, OpGoto, OpJsr, OpIfnull, OpIfnonnull,
		OpTableswitch, OpLookupswitch:
		return true
	}
	return false
}
