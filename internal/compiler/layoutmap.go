package compiler

import (
	"github.com/MartinGeisse/majai/internal/descriptor"
	"github.com/MartinGeisse/majai/internal/layout"
	"github.com/MartinGeisse/majai/internal/objgraph"
)

// LayoutMap describes the storage layout chosen for a program, for hand-written runtime code
// and for debugging. It is encoded as TOML.
type LayoutMap struct {
	StaticWords     int           `toml:"static_words"`
	ArrayHeaderSize int           `toml:"array_header_size"`
	Classes         []ClassLayout `toml:"class"`
}

// ClassLayout is the layout of one class. Vtable lists the method symbol of each slot from
// slot 1 on; abstract slots are empty.
type ClassLayout struct {
	Name         string       `toml:"name"`
	Super        string       `toml:"super,omitempty"`
	Interface    bool         `toml:"interface,omitempty"`
	Size         int          `toml:"size"`
	VtableSymbol string       `toml:"vtable_symbol,omitempty"`
	Fields       []FieldEntry `toml:"field,omitempty"`
	Vtable       []string     `toml:"vtable,omitempty"`
}

// FieldEntry is the storage location of one declared field.
type FieldEntry struct {
	Name       string `toml:"name"`
	Descriptor string `toml:"descriptor"`
	Offset     int    `toml:"offset"`
	Static     bool   `toml:"static,omitempty"`
}

// LayoutMap returns the layout of every resolved class. It is meant to be called after Compile.
func (s *Session) LayoutMap() *LayoutMap {
	m := &LayoutMap{StaticWords: s.StaticWords()}
	if s.array != nil {
		m.ArrayHeaderSize = s.ArrayHeaderSize()
	}
	for _, c := range s.order {
		cl := ClassLayout{
			Name:      descriptor.DenormalizeClassName(c.Name),
			Interface: c.IsInterface(),
			Size:      c.Instance.Size(),
		}
		if c.Super != nil {
			cl.Super = descriptor.DenormalizeClassName(c.Super.Name)
		}
		if !cl.Interface {
			cl.VtableSymbol = descriptor.VtableSymbol(c.Name)
		}
		for _, f := range c.Fields {
			cl.Fields = append(cl.Fields, FieldEntry{
				Name:       f.Name,
				Descriptor: f.Type.String(),
				Offset:     f.Offset,
				Static:     f.IsStatic(),
			})
		}
		for i := layout.FixedEntryCount; i < c.Vtable.Len(); i++ {
			symbol, _ := s.vtableEntry(c.Vtable.Method(i)).(objgraph.LabelReference)
			cl.Vtable = append(cl.Vtable, string(symbol))
		}
		m.Classes = append(m.Classes, cl)
	}
	return m
}
