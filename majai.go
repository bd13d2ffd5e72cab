// Package majai compiles JVM class files ahead of time into RISC-V32 assembly text.
//
// A program is compiled starting from an entry class; every class it references is loaded from
// the class path on demand. The classes java.lang.Object, java.lang.Array and java.lang.String
// must be on the class path, since the generated code and its runtime depend on them.
package majai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"

	"github.com/MartinGeisse/majai/internal/classpath"
	"github.com/MartinGeisse/majai/internal/compiler"
	"github.com/MartinGeisse/majai/internal/errs"
)

// Error kinds of a failed compilation. Use errors.Is to tell them apart.
var (
	// ErrResolution means a class, field, method or descriptor could not be resolved.
	ErrResolution = errs.ErrResolution
	// ErrNotYetImplemented means the input uses a feature the compiler does not support.
	ErrNotYetImplemented = errs.ErrNotYetImplemented
	// ErrInvariant means the compiler reached an inconsistent state.
	ErrInvariant = errs.ErrInvariant
)

// Program is the result of a successful compilation.
type Program struct {
	session *compiler.Session
}

// Compile compiles the entry class of config and everything it depends on, writing one
// assembly file to out.
//
// The context is only checked before compilation starts. A compilation is not interruptible.
func Compile(ctx context.Context, config *CompilerConfig, out io.Writer) (*Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if config.entryClass == "" {
		return nil, errors.New("entry class not set")
	}
	prologue, err := config.loadPrologue()
	if err != nil {
		return nil, err
	}
	s := compiler.New(classpath.New(config.classPath...), compiler.Config{Prologue: prologue})
	if err = s.Compile(config.entryClass, out); err != nil {
		return nil, err
	}
	return &Program{session: s}, nil
}

// ClassNames returns the compiled classes in dotted form, superclasses first.
func (p *Program) ClassNames() []string {
	m := p.session.LayoutMap()
	names := make([]string, len(m.Classes))
	for i, c := range m.Classes {
		names[i] = c.Name
	}
	return names
}

// WriteLayout writes the storage layout of every compiled class as a TOML document: instance
// sizes, field offsets, vtable slots and the size of the static field pool.
func (p *Program) WriteLayout(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(p.session.LayoutMap()); err != nil {
		return fmt.Errorf("writing layout: %w", err)
	}
	return nil
}
