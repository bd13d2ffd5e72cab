// Package classpath locates class files by name under an ordered list of directories.
package classpath

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/MartinGeisse/majai/internal/classfile"
	"github.com/MartinGeisse/majai/internal/descriptor"
	"github.com/MartinGeisse/majai/internal/errs"
	"github.com/MartinGeisse/majai/internal/logging"
)

var logger = logging.GetLogger(logging.LogScopeLoad)

// Loader loads classes from the first search path entry that contains them.
type Loader struct {
	paths []string
}

// New returns a Loader that searches paths in order.
func New(paths ...string) *Loader {
	return &Loader{paths: append([]string(nil), paths...)}
}

// Paths returns the search path.
func (l *Loader) Paths() []string {
	return l.paths
}

// Load finds and decodes the class with the given name. Dotted and slash names are accepted.
func (l *Loader) Load(name string) (*classfile.Class, error) {
	rel := filepath.FromSlash(descriptor.NormalizeClassName(name)) + ".class"
	for _, dir := range l.paths {
		path := filepath.Join(dir, rel)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		logger.Debugf("loading %s from %s", name, path)
		c, err := classfile.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		return c, nil
	}
	return nil, errs.Resolution("class not found: %s", descriptor.DenormalizeClassName(name))
}
