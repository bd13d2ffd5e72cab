package objgraph

import (
	"strconv"

	"github.com/MartinGeisse/majai/internal/asm"
	"github.com/MartinGeisse/majai/internal/logging"
)

var logger = logging.GetLogger(logging.LogScopeObjects)

// Labels assigns data labels to objects. The first Get for an object allocates the next
// "object<N>" label; later calls for the same object return it again.
type Labels struct {
	labels map[interface{}]string
	// order lists objects in label allocation order.
	order []interface{}
}

// NewLabels returns an empty label table.
func NewLabels() *Labels {
	return &Labels{labels: map[interface{}]string{}}
}

// Get returns the label of obj. A LabelReference yields its own symbol and nil yields "0", the
// null reference; neither is recorded for emission.
func (l *Labels) Get(obj interface{}) string {
	switch o := obj.(type) {
	case nil:
		return "0"
	case LabelReference:
		return string(o)
	}
	if label, ok := l.labels[obj]; ok {
		return label
	}
	label := "object" + strconv.Itoa(len(l.order))
	l.labels[obj] = label
	l.order = append(l.order, obj)
	return label
}

// Lookup returns the label of obj without allocating one.
func (l *Labels) Lookup(obj interface{}) (string, bool) {
	label, ok := l.labels[obj]
	return label, ok
}

// Len returns the number of labeled objects.
func (l *Labels) Len() int {
	return len(l.order)
}

// Emit writes every labeled object. Serializing an object can label further objects, so this
// repeats until a pass discovers nothing new. Objects are written in label allocation order.
func (l *Labels) Emit(w *asm.Writer, r Resolver) error {
	s := &serializer{labels: l, w: w, r: r}
	emitted := 0
	for pass := 1; emitted < len(l.order); pass++ {
		batch := l.order[emitted:]
		logger.Debugf("object graph pass %d: %d objects", pass, len(batch))
		for _, obj := range batch {
			w.Label(l.labels[obj])
			if err := s.serialize(obj); err != nil {
				return err
			}
		}
		emitted += len(batch)
	}
	return w.Err()
}
