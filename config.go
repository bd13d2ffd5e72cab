package majai

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// CompilerConfig controls a compilation, with the default implementation as NewCompilerConfig.
//
// Note: CompilerConfig is immutable. Each WithXXX function returns a new instance including the
// corresponding change.
type CompilerConfig struct {
	classPath    []string
	entryClass   string
	prologue     []byte
	prologueFile string
}

// defaultConfig holds the defaults of NewCompilerConfig.
var defaultConfig = &CompilerConfig{
	classPath: []string{"."},
}

// clone ensures all fields are copied even if nil.
func (c *CompilerConfig) clone() *CompilerConfig {
	return &CompilerConfig{
		classPath:    c.classPath,
		entryClass:   c.entryClass,
		prologue:     c.prologue,
		prologueFile: c.prologueFile,
	}
}

// NewCompilerConfig returns a configuration that searches the current directory for classes
// and writes no prologue. An entry class must still be set with WithEntryClass.
func NewCompilerConfig() *CompilerConfig {
	return defaultConfig.clone()
}

// WithClassPath sets the directories searched for class files, in order. The first directory
// containing a class wins.
func (c *CompilerConfig) WithClassPath(dirs ...string) *CompilerConfig {
	ret := c.clone()
	ret.classPath = append([]string(nil), dirs...)
	return ret
}

// WithEntryClass sets the class compilation starts from, in dotted or slash form.
func (c *CompilerConfig) WithEntryClass(name string) *CompilerConfig {
	ret := c.clone()
	ret.entryClass = name
	return ret
}

// WithPrologue sets assembly text copied unchanged to the start of the output. It replaces a
// prologue file set earlier.
func (c *CompilerConfig) WithPrologue(prologue []byte) *CompilerConfig {
	ret := c.clone()
	ret.prologue = prologue
	ret.prologueFile = ""
	return ret
}

// WithPrologueFile is like WithPrologue, except the prologue is read from path when compiling.
func (c *CompilerConfig) WithPrologueFile(path string) *CompilerConfig {
	ret := c.clone()
	ret.prologue = nil
	ret.prologueFile = path
	return ret
}

// ClassPath returns the class search path.
func (c *CompilerConfig) ClassPath() []string {
	return c.classPath
}

// EntryClass returns the class compilation starts from.
func (c *CompilerConfig) EntryClass() string {
	return c.entryClass
}

// loadPrologue returns the prologue bytes, reading the prologue file if one is set.
func (c *CompilerConfig) loadPrologue() ([]byte, error) {
	if c.prologueFile == "" {
		return c.prologue, nil
	}
	data, err := os.ReadFile(c.prologueFile)
	if err != nil {
		return nil, fmt.Errorf("reading prologue: %w", err)
	}
	return data, nil
}

// ProjectFileName is the name of the project file LoadProjectConfig reads.
const ProjectFileName = "majai.toml"

// ProjectConfig is the content of a majai.toml project file:
//
//	[compile]
//	entry = "com.example.Main"
//	classpath = ["runtime/classes", "build/classes"]
//	prologue = "runtime/prologue.S"
//	output = "build/program.S"
//
//	[layout]
//	output = "build/layout.toml"
//
// Relative paths are relative to the directory holding the file.
type ProjectConfig struct {
	Compile CompileSection `toml:"compile"`
	Layout  LayoutSection  `toml:"layout"`

	// Dir is the directory the project file was loaded from.
	Dir string `toml:"-"`
}

// CompileSection configures the "compile" command.
type CompileSection struct {
	Entry     string   `toml:"entry"`
	ClassPath []string `toml:"classpath"`
	Prologue  string   `toml:"prologue"`
	Output    string   `toml:"output"`
}

// LayoutSection configures the "layout" command.
type LayoutSection struct {
	Output string `toml:"output"`
}

// ErrNoProject is returned by LoadProjectConfig when the directory has no project file.
var ErrNoProject = errors.New("no " + ProjectFileName + " found")

// LoadProjectConfig reads the project file in dir. Unknown keys are rejected, so typos do not
// silently fall back to defaults.
func LoadProjectConfig(dir string) (*ProjectConfig, error) {
	path := filepath.Join(dir, ProjectFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w in %s", ErrNoProject, dir)
	} else if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var p ProjectConfig
	md, err := toml.Decode(string(data), &p)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q in %s", undecoded[0].String(), path)
	}
	p.Dir = dir
	return &p, nil
}

// CompilerConfig returns the compile settings of the project applied on top of base.
func (p *ProjectConfig) CompilerConfig(base *CompilerConfig) *CompilerConfig {
	ret := base
	if len(p.Compile.ClassPath) > 0 {
		dirs := make([]string, len(p.Compile.ClassPath))
		for i, dir := range p.Compile.ClassPath {
			dirs[i] = p.Path(dir)
		}
		ret = ret.WithClassPath(dirs...)
	}
	if p.Compile.Entry != "" {
		ret = ret.WithEntryClass(p.Compile.Entry)
	}
	if p.Compile.Prologue != "" {
		ret = ret.WithPrologueFile(p.Path(p.Compile.Prologue))
	}
	return ret
}

// Path resolves a path from the project file against the project directory. Empty and absolute
// paths are returned unchanged.
func (p *ProjectConfig) Path(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Dir, path)
}
