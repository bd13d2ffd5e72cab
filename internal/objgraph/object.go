// Package objgraph holds the compile-time constant objects of a compiled program (strings,
// arrays, instances and runtime metadata) and serializes them as assembly data.
//
// Objects are identified by pointer identity: two equal strings are two objects unless they
// are the same *Instance.
package objgraph

import (
	"github.com/MartinGeisse/majai/internal/descriptor"
)

// LabelReference stands for an object that already has a symbol, such as a method body.
// Labels.Get returns the symbol itself and nothing is emitted for it.
type LabelReference string

// PrimitiveArray is an array of a primitive element type. Values holds one entry per element;
// each is truncated to the element width when serialized.
type PrimitiveArray struct {
	Elem   descriptor.BaseType
	Values []int64
}

// NewCharArray returns a char[] holding the given UTF-16 code units.
func NewCharArray(chars []uint16) *PrimitiveArray {
	values := make([]int64, len(chars))
	for i, c := range chars {
		values[i] = int64(c)
	}
	return &PrimitiveArray{Elem: descriptor.BaseTypeChar, Values: values}
}

// Descriptor returns the array type, e.g. "[C".
func (a *PrimitiveArray) Descriptor() string {
	return "[" + string(rune(a.Elem))
}

// ObjectArray is an array of references. Elements hold objects of any kind in this package,
// or nil.
type ObjectArray struct {
	// Type is the array type descriptor, e.g. "[Ljava/lang/Object;".
	Type     string
	Elements []interface{}
}

// Instance is an object of a class, with field values keyed by field name. Primitive fields
// hold an int64 and reference fields hold an object or nil. Fields without a value are zero.
type Instance struct {
	// Class is the class name in slash form.
	Class  string
	Fields map[string]interface{}
}

// NewInstance returns an instance of class with no field values set.
func NewInstance(class string) *Instance {
	return &Instance{Class: class, Fields: map[string]interface{}{}}
}

// Set assigns a field value.
func (i *Instance) Set(field string, value interface{}) {
	i.Fields[field] = value
}
