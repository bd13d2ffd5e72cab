// Package compiler resolves classes and drives the translation of a whole program into one
// assembly file.
package compiler

import (
	"github.com/MartinGeisse/majai/internal/classfile"
	"github.com/MartinGeisse/majai/internal/layout"
	"github.com/MartinGeisse/majai/internal/logging"
	"github.com/MartinGeisse/majai/internal/objgraph"
)

// Classes every program depends on.
const (
	ObjectClass = "java/lang/Object"
	// ArrayClass is the layout template of array headers.
	ArrayClass  = "java/lang/Array"
	StringClass = "java/lang/String"
)

// primitiveArrays are the array types created when a session starts.
var primitiveArrays = []string{"[Z", "[B", "[S", "[C", "[I", "[F", "[J", "[D"}

var (
	resolveLogger = logging.GetLogger(logging.LogScopeResolve)
	compileLogger = logging.GetLogger(logging.LogScopeCompile)
)

// ClassLoader finds and decodes class files by name.
type ClassLoader interface {
	Load(name string) (*classfile.Class, error)
}

// Config holds the settings of a compilation session.
type Config struct {
	// Prologue is copied to the start of the output unchanged.
	Prologue []byte
}

// Session is one run of the compiler. It owns the class table, the static field pool and the
// runtime object graph. A Session is not safe for concurrent use.
type Session struct {
	loader ClassLoader
	cfg    Config

	classes map[string]*ClassInfo
	// order lists classes in resolution order, superclasses first.
	order     []*ClassInfo
	resolving map[string]bool
	arrays    map[string]*objgraph.Metadata
	closed    bool

	statics      *layout.FieldAllocator
	staticLayout *layout.FieldLayout

	object, array, str *ClassInfo

	compiled map[*ClassInfo]bool
	labels   *objgraph.Labels
	strings  map[*classfile.StringConstant]*objgraph.Instance
}

// New returns a session that loads classes through loader.
func New(loader ClassLoader, cfg Config) *Session {
	return &Session{
		loader:    loader,
		cfg:       cfg,
		classes:   map[string]*ClassInfo{},
		resolving: map[string]bool{},
		arrays:    map[string]*objgraph.Metadata{},
		statics:   layout.NewFieldAllocator(),
		compiled:  map[*ClassInfo]bool{},
		labels:    objgraph.NewLabels(),
		strings:   map[*classfile.StringConstant]*objgraph.Instance{},
	}
}

// Classes returns the resolved classes in resolution order.
func (s *Session) Classes() []*ClassInfo {
	return s.order
}

// bootstrap resolves the classes and array types that generated code and the runtime rely on.
func (s *Session) bootstrap() (err error) {
	if s.object, err = s.ResolveClass(ObjectClass); err != nil {
		return
	}
	if s.array, err = s.ResolveClass(ArrayClass); err != nil {
		return
	}
	if s.str, err = s.ResolveClass(StringClass); err != nil {
		return
	}
	for _, desc := range primitiveArrays {
		if _, err = s.ResolveArrayMetadata(desc); err != nil {
			return
		}
	}
	_, err = s.ResolveArrayMetadata(objgraph.VtableType)
	return
}

// ArrayHeaderSize returns the offset of element 0 in every array object.
func (s *Session) ArrayHeaderSize() int {
	return s.array.Instance.Size()
}

// StaticWords returns the size of the static field pool in words.
func (s *Session) StaticWords() int {
	if s.staticLayout != nil {
		return s.staticLayout.WordCount()
	}
	return s.statics.WordCount()
}
