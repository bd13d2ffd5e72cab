package objgraph

import (
	"github.com/MartinGeisse/majai/internal/descriptor"
)

// Kind tells the variants of Metadata apart.
type Kind uint8

const (
	KindClass Kind = iota
	KindInterface
	KindObjectArray
	KindPrimitiveArray
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindObjectArray:
		return "object array"
	case KindPrimitiveArray:
		return "primitive array"
	}
	return "unknown"
}

// Metadata describes the runtime shape of a class, an interface or an array type. Vtable slot
// 0 of every class and array type points back at its Metadata.
type Metadata struct {
	Kind Kind
	// Name is the class name in slash form or the array descriptor.
	Name       string
	SimpleName string
	// Parent is the superclass; for arrays it is java/lang/Object. Nil for the root class and
	// interfaces.
	Parent *Metadata
	// Vtable is allocated when the metadata is created and filled once all methods of the class
	// are known. Nil for interfaces.
	Vtable *ObjectArray
	// Element is the element type of an object array.
	Element *Metadata
	// ElementType is the element type of a primitive array.
	ElementType descriptor.BaseType

	nameString interface{}
}

// VtableType is the array type of every vtable.
const VtableType = "[Ljava/lang/Object;"

func newMetadata(kind Kind, name string, parent *Metadata) *Metadata {
	m := &Metadata{Kind: kind, Name: name, SimpleName: descriptor.SimpleName(name), Parent: parent}
	if kind != KindInterface {
		m.Vtable = &ObjectArray{Type: VtableType}
	}
	return m
}

// NewClassMetadata returns the unfilled metadata of a class.
func NewClassMetadata(name string, parent *Metadata) *Metadata {
	return newMetadata(KindClass, name, parent)
}

// NewInterfaceMetadata returns the metadata of an interface.
func NewInterfaceMetadata(name string) *Metadata {
	return newMetadata(KindInterface, name, nil)
}

// NewObjectArrayMetadata returns the unfilled metadata of a reference array type.
func NewObjectArrayMetadata(name string, object, element *Metadata) *Metadata {
	m := newMetadata(KindObjectArray, name, object)
	m.Element = element
	return m
}

// NewPrimitiveArrayMetadata returns the unfilled metadata of a primitive array type.
func NewPrimitiveArrayMetadata(name string, object *Metadata, elem descriptor.BaseType) *Metadata {
	m := newMetadata(KindPrimitiveArray, name, object)
	m.ElementType = elem
	return m
}

// Fill sets the vtable contents. Slot 0 must be m itself.
func (m *Metadata) Fill(entries []interface{}) {
	m.Vtable.Elements = entries
}
