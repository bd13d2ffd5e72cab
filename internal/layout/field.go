// Package layout assigns storage offsets to fields and dispatch slots to virtual methods.
//
// Both allocators come in two phases: a builder that hands out offsets or slots, and the sealed,
// read-only result it turns into. Only a sealed result can seed the builder of a subclass, so a
// parent layout can never change after a child has copied it.
package layout

import (
	"github.com/MartinGeisse/majai/internal/descriptor"
	"github.com/MartinGeisse/majai/internal/errs"
)

// FieldAllocator assigns byte offsets to the fields of one class, or to the static fields of all
// classes. Byte- and halfword-sized holes are reused; word-sized holes left behind by doublewords
// are not.
type FieldAllocator struct {
	wordCount      int
	halfwordOffset int
	byteOffset     int
	sealed         bool
}

// FieldLayout is a sealed FieldAllocator.
type FieldLayout struct {
	wordCount      int
	halfwordOffset int
	byteOffset     int
}

// NewFieldAllocator returns an empty allocator for a root class or the static field pool.
func NewFieldAllocator() *FieldAllocator {
	return &FieldAllocator{halfwordOffset: -1, byteOffset: -1}
}

// NewChildFieldAllocator returns an allocator that continues after the fields of parent,
// including any of its pending sub-word holes.
func NewChildFieldAllocator(parent *FieldLayout) *FieldAllocator {
	if parent == nil {
		panic(errs.Invariant("cannot use an unsealed field allocator as parent"))
	}
	return &FieldAllocator{
		wordCount:      parent.wordCount,
		halfwordOffset: parent.halfwordOffset,
		byteOffset:     parent.byteOffset,
	}
}

// AllocateByte returns the offset of a new 1-byte field.
func (a *FieldAllocator) AllocateByte() int {
	a.checkNotSealed()
	if a.byteOffset < 0 {
		offset := a.AllocateHalfword()
		a.byteOffset = offset + 1
		return offset
	}
	offset := a.byteOffset
	a.byteOffset = -1
	return offset
}

// AllocateHalfword returns the offset of a new 2-byte field.
func (a *FieldAllocator) AllocateHalfword() int {
	a.checkNotSealed()
	if a.halfwordOffset < 0 {
		offset := a.AllocateWord()
		a.halfwordOffset = offset + 2
		return offset
	}
	offset := a.halfwordOffset
	a.halfwordOffset = -1
	return offset
}

// AllocateWord returns the offset of a new 4-byte field.
func (a *FieldAllocator) AllocateWord() int {
	a.checkNotSealed()
	offset := a.wordCount * 4
	a.wordCount++
	return offset
}

// AllocateDoubleword returns the offset of a new 8-byte field. Doublewords always start at a
// fresh word and never fill pending holes.
func (a *FieldAllocator) AllocateDoubleword() int {
	a.checkNotSealed()
	offset := a.wordCount * 4
	a.wordCount += 2
	return offset
}

// Allocate picks the size class for a field of the given type.
func (a *FieldAllocator) Allocate(desc descriptor.Field) int {
	switch desc.Bytes() {
	case 1:
		return a.AllocateByte()
	case 2:
		return a.AllocateHalfword()
	case 8:
		return a.AllocateDoubleword()
	default:
		return a.AllocateWord()
	}
}

// WordCount returns the number of words allocated so far.
func (a *FieldAllocator) WordCount() int {
	return a.wordCount
}

// Seal ends allocation and returns the read-only layout.
func (a *FieldAllocator) Seal() *FieldLayout {
	a.checkNotSealed()
	a.sealed = true
	return &FieldLayout{wordCount: a.wordCount, halfwordOffset: a.halfwordOffset, byteOffset: a.byteOffset}
}

func (a *FieldAllocator) checkNotSealed() {
	if a.sealed {
		panic(errs.Invariant("this field allocator has been sealed"))
	}
}

// WordCount returns the number of words occupied, including inherited ones.
func (l *FieldLayout) WordCount() int {
	return l.wordCount
}

// Size returns the size in bytes.
func (l *FieldLayout) Size() int {
	return l.wordCount * 4
}
