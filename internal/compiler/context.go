package compiler

import (
	"unicode/utf16"

	"github.com/MartinGeisse/majai/internal/classfile"
	"github.com/MartinGeisse/majai/internal/descriptor"
	"github.com/MartinGeisse/majai/internal/errs"
	"github.com/MartinGeisse/majai/internal/objgraph"
	"github.com/MartinGeisse/majai/internal/translator"
)

// sessionContext lets the translator and the object graph serializer query the session.
type sessionContext struct {
	s *Session
}

var (
	_ translator.Context = sessionContext{}
	_ objgraph.Resolver  = sessionContext{}
)

// Field implements translator.Context.
func (c sessionContext) Field(owner, name string) (translator.FieldRef, error) {
	class, err := c.s.ResolveClass(owner)
	if err != nil {
		return translator.FieldRef{}, err
	}
	f, err := class.FindField(name)
	if err != nil {
		return translator.FieldRef{}, err
	}
	return translator.FieldRef{Offset: f.Offset, Type: f.Type, Static: f.IsStatic()}, nil
}

// Method implements translator.Context.
func (c sessionContext) Method(owner, name, desc string) (translator.MethodRef, error) {
	class, err := c.s.ResolveClass(owner)
	if err != nil {
		return translator.MethodRef{}, err
	}
	m, err := class.FindMethod(name, desc)
	if err != nil {
		return translator.MethodRef{}, err
	}
	ref := translator.MethodRef{Class: m.Class.Name, Slot: -1, Static: m.Method.IsStatic()}
	if _, slot, ok := class.Vtable.Find(name, desc); ok && !ref.Static {
		ref.Slot = slot
	}
	return ref, nil
}

// InstanceSize implements translator.Context.
func (c sessionContext) InstanceSize(class string) (int, error) {
	ci, err := c.s.ResolveClass(class)
	if err != nil {
		return 0, err
	}
	return ci.Instance.Size(), nil
}

// ArrayVtable implements translator.Context.
func (c sessionContext) ArrayVtable(desc string) (string, error) {
	m, err := c.s.ResolveArrayMetadata(desc)
	if err != nil {
		return "", err
	}
	return c.s.labels.Get(m.Vtable), nil
}

// ArrayHeaderSize implements translator.Context.
func (c sessionContext) ArrayHeaderSize() int {
	return c.s.ArrayHeaderSize()
}

// StringLabel implements translator.Context.
func (c sessionContext) StringLabel(constant *classfile.StringConstant) (string, error) {
	str, ok := c.s.strings[constant]
	if !ok {
		chars := constant.Chars
		if chars == nil {
			chars = utf16.Encode([]rune(constant.Value))
		}
		var err error
		if str, err = c.newString(chars); err != nil {
			return "", err
		}
		c.s.strings[constant] = str
	}
	return c.s.labels.Get(str), nil
}

// ArrayMetadata implements objgraph.Resolver.
func (c sessionContext) ArrayMetadata(desc string) (*objgraph.Metadata, error) {
	return c.s.ResolveArrayMetadata(desc)
}

// ClassLayout implements objgraph.Resolver. Fields of subclasses come before those of their
// superclasses, so a shadowing field takes the value of a same-named one.
func (c sessionContext) ClassLayout(class string) (*objgraph.Layout, error) {
	ci, err := c.s.ResolveClass(class)
	if err != nil {
		return nil, err
	}
	l := &objgraph.Layout{Metadata: ci.Metadata, Size: ci.Instance.Size()}
	for k := ci; k != nil; k = k.Super {
		for _, f := range k.Fields {
			if !f.IsStatic() {
				l.Fields = append(l.Fields, objgraph.FieldSlot{Name: f.Name, Offset: f.Offset, Type: f.Type})
			}
		}
	}
	return l, nil
}

// NewString implements objgraph.Resolver.
func (c sessionContext) NewString(value string) (*objgraph.Instance, error) {
	return c.newString(utf16.Encode([]rune(value)))
}

// newString builds a java/lang/String instance around a char array holding chars. The array
// goes into the first char[] field String declares.
func (c sessionContext) newString(chars []uint16) (*objgraph.Instance, error) {
	for _, f := range c.s.str.Fields {
		if !f.IsStatic() && f.Type.Dimension == 1 && f.Type.Base == descriptor.BaseTypeChar {
			str := objgraph.NewInstance(StringClass)
			str.Set(f.Name, objgraph.NewCharArray(chars))
			return str, nil
		}
	}
	return nil, errs.Resolution("%s declares no char[] field", descriptor.DenormalizeClassName(StringClass))
}
