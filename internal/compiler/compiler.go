package compiler

import (
	"fmt"
	"io"
	"strconv"

	"github.com/MartinGeisse/majai/internal/asm"
	"github.com/MartinGeisse/majai/internal/descriptor"
	"github.com/MartinGeisse/majai/internal/errs"
	"github.com/MartinGeisse/majai/internal/translator"
)

// DynamicHeapSymbol marks the end of the generated data, where the runtime starts its heap.
const DynamicHeapSymbol = "dynamicHeap"

// Compile translates entryClass and every class it transitively depends on, writing one
// assembly file to out. A Session compiles exactly once.
func (s *Session) Compile(entryClass string, out io.Writer) (err error) {
	defer errs.Recover(&err)

	w := asm.NewWriter(out)
	w.Raw(s.cfg.Prologue)
	if err = s.bootstrap(); err != nil {
		return
	}
	entry, err := s.ResolveClass(entryClass)
	if err != nil {
		return
	}
	if err = s.compileClass(w, entry); err != nil {
		return
	}
	// Compiling a class can resolve more classes, which are appended to s.order.
	for i := 0; i < len(s.order); i++ {
		if err = s.compileClass(w, s.order[i]); err != nil {
			return
		}
	}
	s.Close()
	compileLogger.Infof("compiled %d classes", len(s.compiled))

	s.emitStaticFields(w)
	s.emitAliases(w)
	w.Banner("runtime objects")
	w.Section(".data")
	if err = s.labels.Emit(w, sessionContext{s}); err != nil {
		return
	}
	compileLogger.Debugf("emitted %d runtime objects", s.labels.Len())
	w.Blank()
	w.Section(".data")
	w.Label(DynamicHeapSymbol)
	return w.Flush()
}

// compileClass writes the method bodies of c after those of its superclasses and fills in its
// vtable. Already compiled classes are skipped.
func (s *Session) compileClass(w *asm.Writer, c *ClassInfo) error {
	if s.compiled[c] {
		return nil
	}
	s.compiled[c] = true
	if c.Super != nil {
		if err := s.compileClass(w, c.Super); err != nil {
			return err
		}
	}

	name := descriptor.DenormalizeClassName(c.Name)
	if err := s.translateClass(w, c, name); err != nil {
		return fmt.Errorf("error compiling class %s: %w", name, err)
	}
	return w.Err()
}

// translateClass writes the bodies of the methods c declares. Invariant panics are returned as
// errors so they can be attributed to c.
func (s *Session) translateClass(w *asm.Writer, c *ClassInfo, name string) (err error) {
	defer errs.Recover(&err)

	compileLogger.Infof("compiling class %s", name)
	w.Banner("class %s", name)
	ctx := sessionContext{s}
	for _, m := range c.Methods {
		if err = translator.Translate(ctx, w, c.Name, m.Method); err != nil {
			return
		}
	}
	w.Blank()

	if c.Metadata.Vtable != nil {
		c.Metadata.Fill(c.Vtable.Build(c.Metadata, s.vtableEntry))
	}
	return
}

func (s *Session) emitStaticFields(w *asm.Writer) {
	w.Banner("static fields")
	w.Section(".data")
	w.Label(translator.StaticFieldsSymbol)
	w.Directive(".fill", strconv.Itoa(s.StaticWords()), "4", "0")
	w.Blank()
}

// emitAliases makes the vtable of every class reachable under its conventional symbol.
func (s *Session) emitAliases(w *asm.Writer) {
	w.Banner("alias labels for runtime objects")
	w.Section(".data")
	for _, c := range s.order {
		if c.Metadata.Vtable != nil {
			w.Set(descriptor.VtableSymbol(c.Name), s.labels.Get(c.Metadata.Vtable))
		}
	}
	w.Blank()
}
