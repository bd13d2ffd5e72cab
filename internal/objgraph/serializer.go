package objgraph

import (
	"sort"
	"strconv"

	"github.com/MartinGeisse/majai/internal/asm"
	"github.com/MartinGeisse/majai/internal/descriptor"
	"github.com/MartinGeisse/majai/internal/errs"
)

// Resolver supplies the class and array information the serializer needs.
type Resolver interface {
	// ArrayMetadata returns the metadata of an array type such as "[C".
	ArrayMetadata(desc string) (*Metadata, error)
	// ClassLayout returns the instance layout of a class.
	ClassLayout(class string) (*Layout, error)
	// NewString returns a java/lang/String instance with the given contents.
	NewString(value string) (*Instance, error)
}

// Layout is the instance layout of a class.
type Layout struct {
	Metadata *Metadata
	// Size is the instance size in bytes.
	Size int
	// Fields lists all instance fields including inherited ones. When names repeat, the first
	// entry is the one that Instance values are assigned to.
	Fields []FieldSlot
}

// FieldSlot is one instance field of a Layout.
type FieldSlot struct {
	Name   string
	Offset int
	Type   descriptor.Field
}

// HeaderSize is the size of the vtable pointer at the start of every object.
const HeaderSize = 4

type serializer struct {
	labels *Labels
	w      *asm.Writer
	r      Resolver
}

func (s *serializer) word(values ...string) {
	s.w.Directive(".word", values...)
}

func (s *serializer) serialize(obj interface{}) error {
	switch o := obj.(type) {
	case nil:
		s.word("0")
	case *PrimitiveArray:
		return s.primitiveArray(o)
	case *ObjectArray:
		return s.objectArray(o)
	case *Instance:
		return s.instance(o)
	case *Metadata:
		return s.metadata(o)
	default:
		return errs.Invariant("cannot serialize %T", obj)
	}
	return nil
}

func (s *serializer) primitiveArray(a *PrimitiveArray) error {
	m, err := s.r.ArrayMetadata(a.Descriptor())
	if err != nil {
		return err
	}
	s.word(s.labels.Get(m.Vtable))
	s.word(strconv.Itoa(len(a.Values)))
	if len(a.Values) > 0 {
		size := a.Elem.Bytes()
		var values []string
		for _, v := range a.Values {
			values = append(values, formatValue(v, size)...)
		}
		s.w.Directive(dataDirective(size), values...)
	}
	s.w.Directive(".balign", "4")
	return nil
}

func (s *serializer) objectArray(a *ObjectArray) error {
	m, err := s.r.ArrayMetadata(a.Type)
	if err != nil {
		return err
	}
	s.word(s.labels.Get(m.Vtable))
	s.word(strconv.Itoa(len(a.Elements)))
	if len(a.Elements) > 0 {
		values := make([]string, len(a.Elements))
		for i, e := range a.Elements {
			values[i] = s.labels.Get(e)
		}
		s.word(values...)
	}
	return nil
}

func (s *serializer) instance(i *Instance) error {
	l, err := s.r.ClassLayout(i.Class)
	if err != nil {
		return err
	}
	fields := make([]FieldSlot, 0, len(l.Fields))
	assigned := map[string]bool{}
	values := map[int]interface{}{}
	for _, f := range l.Fields {
		first := !assigned[f.Name]
		if first {
			assigned[f.Name] = true
			values[f.Offset] = i.Fields[f.Name]
		}
		// Fields in the first word alias the vtable pointer, which is always written.
		if f.Offset >= HeaderSize {
			fields = append(fields, f)
		} else if _, set := i.Fields[f.Name]; set && first {
			return errs.Invariant("cannot serialize %s: field %s overlaps the vtable pointer", i.Class, f.Name)
		}
	}
	for name := range i.Fields {
		if !assigned[name] {
			return errs.Invariant("cannot serialize %s: no field %s", i.Class, name)
		}
	}
	sort.Slice(fields, func(a, b int) bool { return fields[a].Offset < fields[b].Offset })

	s.word(s.labels.Get(l.Metadata.Vtable))
	pos := HeaderSize
	for _, f := range fields {
		if f.Offset > pos {
			s.w.Directive(".zero", strconv.Itoa(f.Offset-pos))
		}
		v := values[f.Offset]
		size := f.Type.Bytes()
		if f.Type.IsReference() {
			s.word(s.labels.Get(v))
		} else {
			n, err := intValue(v)
			if err != nil {
				return errs.Invariant("cannot serialize %s.%s: %v", i.Class, f.Name, err)
			}
			s.w.Directive(dataDirective(size), formatValue(n, size)...)
		}
		pos = f.Offset + size
	}
	if l.Size > pos {
		s.w.Directive(".zero", strconv.Itoa(l.Size-pos))
	}
	return nil
}

// metadata writes the parent, kind, name, vtable and element type words.
func (s *serializer) metadata(m *Metadata) error {
	if m.nameString == nil {
		str, err := s.r.NewString(m.Name)
		if err != nil {
			return err
		}
		m.nameString = str
	}
	var parent, vtable, element interface{}
	if m.Parent != nil {
		parent = m.Parent
	}
	if m.Vtable != nil {
		vtable = m.Vtable
	}
	if m.Element != nil {
		element = m.Element
	}
	s.word(s.labels.Get(parent))
	s.word(strconv.Itoa(int(m.Kind)))
	s.word(s.labels.Get(m.nameString))
	s.word(s.labels.Get(vtable))
	s.word(s.labels.Get(element))
	return nil
}

func dataDirective(size int) string {
	switch size {
	case 1:
		return ".byte"
	case 2:
		return ".half"
	default:
		return ".word"
	}
}

// formatValue renders v as data items of the given size. 8-byte values become two words, low
// word first.
func formatValue(v int64, size int) []string {
	switch size {
	case 1:
		return []string{strconv.Itoa(int(v & 0xff))}
	case 2:
		return []string{strconv.Itoa(int(v & 0xffff))}
	case 8:
		return []string{strconv.Itoa(int(int32(v))), strconv.Itoa(int(int32(v >> 32)))}
	default:
		return []string{strconv.Itoa(int(int32(v)))}
	}
}

func intValue(v interface{}) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	}
	return 0, errs.Invariant("not a primitive value: %T", v)
}
