package layout

import (
	"github.com/MartinGeisse/majai/internal/descriptor"
	"github.com/MartinGeisse/majai/internal/errs"
)

// FixedEntryCount is the number of leading vtable slots that do not hold methods. Slot 0 points at
// the runtime metadata of the class.
const FixedEntryCount = 1

// Method is what the vtable allocator needs to know about a virtual method.
type Method interface {
	Name() string
	Descriptor() string
}

type vtableSlot struct {
	key    string
	method Method
}

// slotKey is the method name followed by the parameter part of the descriptor. The return type
// is not part of the key.
func slotKey(m Method) string {
	return m.Name() + descriptor.ParameterPrefix(m.Descriptor())
}

// VtableAllocator assigns dispatch slots to the virtual methods of one class. A method whose key
// is already present, typically inherited, takes over that slot; any other method gets a new one.
type VtableAllocator struct {
	slots  []vtableSlot
	sealed bool
}

// Vtable is a sealed VtableAllocator.
type Vtable struct {
	slots []vtableSlot
}

// NewVtableAllocator returns an allocator for a root class.
func NewVtableAllocator() *VtableAllocator {
	return &VtableAllocator{slots: make([]vtableSlot, FixedEntryCount)}
}

// NewChildVtableAllocator returns an allocator that starts with all slots of parent.
func NewChildVtableAllocator(parent *Vtable) *VtableAllocator {
	if parent == nil {
		panic(errs.Invariant("cannot use an unsealed vtable allocator as parent"))
	}
	slots := make([]vtableSlot, len(parent.slots))
	copy(slots, parent.slots)
	return &VtableAllocator{slots: slots}
}

// AllocateMethod returns the slot index of m. Static methods and constructors must not be passed
// here since they are always called directly.
func (a *VtableAllocator) AllocateMethod(m Method) int {
	if a.sealed {
		panic(errs.Invariant("this vtable allocator has been sealed"))
	}
	key := slotKey(m)
	for i := FixedEntryCount; i < len(a.slots); i++ {
		if a.slots[i].key == key {
			a.slots[i].method = m
			return i
		}
	}
	a.slots = append(a.slots, vtableSlot{key: key, method: m})
	return len(a.slots) - 1
}

// Len returns the number of slots allocated so far, including the fixed ones.
func (a *VtableAllocator) Len() int {
	return len(a.slots)
}

// Seal ends allocation and returns the read-only vtable.
func (a *VtableAllocator) Seal() *Vtable {
	if a.sealed {
		panic(errs.Invariant("this vtable allocator has been sealed"))
	}
	a.sealed = true
	return &Vtable{slots: a.slots}
}

// Len returns the number of slots, including the fixed ones.
func (v *Vtable) Len() int {
	return len(v.slots)
}

// Method returns the method occupying slot i, or nil for a fixed slot.
func (v *Vtable) Method(i int) Method {
	return v.slots[i].method
}

// Find returns the method and slot that dispatch a call to name with descriptor desc. Only the
// parameter part of desc is compared, as in AllocateMethod.
func (v *Vtable) Find(name, desc string) (Method, int, bool) {
	key := name + descriptor.ParameterPrefix(desc)
	for i := FixedEntryCount; i < len(v.slots); i++ {
		if v.slots[i].key == key {
			return v.slots[i].method, i, true
		}
	}
	return nil, 0, false
}

// Build returns the vtable contents: self in slot 0 and entry(method) for every method slot.
func (v *Vtable) Build(self interface{}, entry func(Method) interface{}) []interface{} {
	out := make([]interface{}, len(v.slots))
	out[0] = self
	for i := FixedEntryCount; i < len(v.slots); i++ {
		out[i] = entry(v.slots[i].method)
	}
	return out
}
