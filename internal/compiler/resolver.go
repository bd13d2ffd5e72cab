package compiler

import (
	"strings"

	"github.com/MartinGeisse/majai/internal/classfile"
	"github.com/MartinGeisse/majai/internal/descriptor"
	"github.com/MartinGeisse/majai/internal/errs"
	"github.com/MartinGeisse/majai/internal/layout"
	"github.com/MartinGeisse/majai/internal/objgraph"
)

// ClassInfo is a resolved class: its fields have storage offsets, its virtual methods have
// vtable slots and its runtime metadata exists, although the vtable contents are only filled
// when the class is compiled.
type ClassInfo struct {
	Name string
	// Super is nil for the root class.
	Super       *ClassInfo
	AccessFlags uint16
	Fields      []*FieldInfo
	Methods     []*MethodInfo
	// Instance is the instance field layout, including inherited fields.
	Instance *layout.FieldLayout
	Vtable   *layout.Vtable
	Metadata *objgraph.Metadata
}

// IsInterface reports whether the class is an interface.
func (c *ClassInfo) IsInterface() bool {
	return c.AccessFlags&classfile.AccInterface != 0
}

// FieldInfo is a field with its storage offset, in the instance for instance fields and in
// the static pool for static fields.
type FieldInfo struct {
	Class       *ClassInfo
	Name        string
	AccessFlags uint16
	Type        descriptor.Field
	Offset      int
}

// IsStatic reports whether the field lives in the static pool.
func (f *FieldInfo) IsStatic() bool {
	return f.AccessFlags&classfile.AccStatic != 0
}

// MethodInfo is a method with its vtable slot.
type MethodInfo struct {
	Class  *ClassInfo
	Method *classfile.Method
	Parsed descriptor.Method
	// Slot is -1 for static methods and initializers.
	Slot int
}

// Name implements layout.Method.
func (m *MethodInfo) Name() string {
	return m.Method.Name
}

// Descriptor implements layout.Method.
func (m *MethodInfo) Descriptor() string {
	return m.Method.Descriptor
}

// Symbol returns the label of the method body.
func (m *MethodInfo) Symbol() string {
	return descriptor.MangleMethodName(m.Class.Name, m.Method.Name, m.Method.Descriptor)
}

// FindField returns the field with the given name declared by c or inherited by it. Private
// fields of superclasses are not inherited.
func (c *ClassInfo) FindField(name string) (*FieldInfo, error) {
	for k := c; k != nil; k = k.Super {
		for _, f := range k.Fields {
			if f.Name != name {
				continue
			}
			if k != c && f.AccessFlags&classfile.AccPrivate != 0 {
				continue
			}
			return f, nil
		}
	}
	return nil, errs.Resolution("field not found: %s.%s", descriptor.DenormalizeClassName(c.Name), name)
}

// FindMethod returns the method with the given name and descriptor declared by c or one of its
// superclasses.
func (c *ClassInfo) FindMethod(name, desc string) (*MethodInfo, error) {
	for k := c; k != nil; k = k.Super {
		for _, m := range k.Methods {
			if m.Method.Name == name && m.Method.Descriptor == desc {
				return m, nil
			}
		}
	}
	return nil, errs.Resolution("method not found: %s.%s%s", descriptor.DenormalizeClassName(c.Name), name, desc)
}

// ResolveClass returns the resolved class with the given name, loading and resolving it and
// its superclasses first if necessary. Array types are resolved with ResolveArrayMetadata.
func (s *Session) ResolveClass(name string) (*ClassInfo, error) {
	if strings.HasPrefix(name, "[") {
		return nil, errs.Invariant("cannot resolve array type %s as a class", name)
	}
	name = descriptor.NormalizeClassName(name)
	if c, ok := s.classes[name]; ok {
		return c, nil
	}
	if s.closed {
		return nil, errs.Invariant("class resolution is closed (trying to resolve %s)", descriptor.DenormalizeClassName(name))
	}
	if s.resolving[name] {
		return nil, errs.Resolution("circular superclass chain at %s", descriptor.DenormalizeClassName(name))
	}
	s.resolving[name] = true
	defer delete(s.resolving, name)

	cls, err := s.loader.Load(name)
	if err != nil {
		return nil, err
	}

	var (
		super  *ClassInfo
		fields *layout.FieldAllocator
		vtable *layout.VtableAllocator
	)
	if cls.SuperName == "" {
		fields, vtable = layout.NewFieldAllocator(), layout.NewVtableAllocator()
	} else {
		if super, err = s.ResolveClass(cls.SuperName); err != nil {
			return nil, err
		}
		fields = layout.NewChildFieldAllocator(super.Instance)
		vtable = layout.NewChildVtableAllocator(super.Vtable)
	}

	c := &ClassInfo{Name: name, Super: super, AccessFlags: cls.AccessFlags}
	for _, f := range cls.Fields {
		typ, err := descriptor.ParseField(f.Descriptor)
		if err != nil {
			return nil, err
		}
		fi := &FieldInfo{Class: c, Name: f.Name, AccessFlags: f.AccessFlags, Type: typ}
		if f.IsStatic() {
			fi.Offset = s.statics.Allocate(typ)
		} else {
			fi.Offset = fields.Allocate(typ)
		}
		c.Fields = append(c.Fields, fi)
	}
	c.Instance = fields.Seal()

	for _, m := range cls.Methods {
		parsed, err := descriptor.ParseMethod(m.Descriptor)
		if err != nil {
			return nil, err
		}
		mi := &MethodInfo{Class: c, Method: m, Parsed: parsed, Slot: -1}
		if !m.IsStatic() && !m.IsConstructor() {
			mi.Slot = vtable.AllocateMethod(mi)
		}
		c.Methods = append(c.Methods, mi)
	}
	c.Vtable = vtable.Seal()

	if cls.IsInterface() {
		c.Metadata = objgraph.NewInterfaceMetadata(name)
	} else {
		var parent *objgraph.Metadata
		if super != nil {
			parent = super.Metadata
		}
		c.Metadata = objgraph.NewClassMetadata(name, parent)
	}

	s.classes[name] = c
	s.order = append(s.order, c)
	resolveLogger.Debugf("resolved %s: %d instance words, %d vtable slots",
		descriptor.DenormalizeClassName(name), c.Instance.WordCount(), c.Vtable.Len())
	return c, nil
}

// ResolveArrayMetadata returns the metadata of an array type given by its descriptor, such as
// "[I" or "[Ljava/lang/String;". Primitive array types exist from the start of the session.
func (s *Session) ResolveArrayMetadata(desc string) (*objgraph.Metadata, error) {
	if m, ok := s.arrays[desc]; ok {
		return m, nil
	}
	if s.closed {
		return nil, errs.Invariant("class resolution is closed (trying to resolve %s)", desc)
	}
	typ, err := descriptor.ParseField(desc)
	if err != nil {
		return nil, err
	}
	if !typ.IsArray() {
		return nil, errs.Resolution("not an array type: %s", desc)
	}
	if s.object == nil {
		return nil, errs.Invariant("%s must be resolved before array types", ObjectClass)
	}

	var m *objgraph.Metadata
	switch element := typ.Element(); {
	case element.IsArray():
		em, err := s.ResolveArrayMetadata(element.String())
		if err != nil {
			return nil, err
		}
		m = objgraph.NewObjectArrayMetadata(desc, s.object.Metadata, em)
	case element.Base == descriptor.BaseTypeReference:
		ec, err := s.ResolveClass(element.Class)
		if err != nil {
			return nil, err
		}
		m = objgraph.NewObjectArrayMetadata(desc, s.object.Metadata, ec.Metadata)
	default:
		m = objgraph.NewPrimitiveArrayMetadata(desc, s.object.Metadata, element.Base)
	}
	// Arrays dispatch like java/lang/Object.
	m.Fill(s.object.Vtable.Build(m, s.vtableEntry))
	s.arrays[desc] = m
	resolveLogger.Debugf("resolved array type %s", desc)
	return m, nil
}

// vtableEntry returns what a vtable slot holding m points at. Abstract methods have no body and
// leave the slot null.
func (s *Session) vtableEntry(m layout.Method) interface{} {
	mi := m.(*MethodInfo)
	if mi.Method.Code == nil && !mi.Method.IsNative() {
		return nil
	}
	return objgraph.LabelReference(mi.Symbol())
}

// Close ends class resolution and seals the static field pool. Resolving a class that has not
// been seen before is an error from now on.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.staticLayout = s.statics.Seal()
}
