// Package translator lowers the bytecode of one method to RISC-V32 assembly.
//
// Generated code keeps the JVM operand stack in memory below sp, one word per slot, and
// addresses locals off the frame base register s0. A frame is max_locals+2 words: the locals,
// then the saved ra and the saved s0. Arguments arrive in a0..a7 and are stored into the
// first locals on entry; results are returned in a0 (and a1 for 64-bit values).
//
// A 64-bit value occupies two stack slots and two locals. The high word is pushed first, so
// the low word is on top and the high word lives in the lower numbered local. In memory the
// low word comes first.
//
// The input is trusted to be verified bytecode: stack depth and operand types are not tracked.
package translator

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/MartinGeisse/majai/internal/asm"
	"github.com/MartinGeisse/majai/internal/buildoptions"
	"github.com/MartinGeisse/majai/internal/classfile"
	"github.com/MartinGeisse/majai/internal/descriptor"
	"github.com/MartinGeisse/majai/internal/errs"
	"github.com/MartinGeisse/majai/internal/logging"
)

var logger = logging.GetLogger(logging.LogScopeTranslate)

const (
	// AllocateMemorySymbol is the runtime routine called by allocation instructions with the
	// size in bytes in a0 and the vtable address in a1. It returns the new object in a0.
	AllocateMemorySymbol = "allocateMemory"
	// StaticFieldsSymbol labels the static field pool.
	StaticFieldsSymbol = "staticFields"
)

// Context answers the questions the translator has about other classes. Lookups that need a
// class not seen before resolve it, which also schedules it for compilation.
type Context interface {
	// Field resolves a field reference, searching the superclass chain of owner.
	Field(owner, name string) (FieldRef, error)
	// Method resolves a method reference, searching the superclass chain of owner.
	Method(owner, name, desc string) (MethodRef, error)
	// InstanceSize returns the size in bytes of an instance of class.
	InstanceSize(class string) (int, error)
	// ArrayVtable returns the label of the vtable of an array type such as "[I".
	ArrayVtable(desc string) (string, error)
	// ArrayHeaderSize returns the offset of element 0 in every array. The length field is the
	// word just before it.
	ArrayHeaderSize() int
	// StringLabel returns the label of the string object for a string constant. The same
	// constant always yields the same label.
	StringLabel(c *classfile.StringConstant) (string, error)
}

// FieldRef is a resolved field.
type FieldRef struct {
	// Offset is the byte offset in the instance, or in the static pool for static fields.
	Offset int
	Type   descriptor.Field
	Static bool
}

// MethodRef is a resolved method.
type MethodRef struct {
	// Class declares the method.
	Class string
	// Slot is the vtable slot for the method's name in the owner's vtable, or -1.
	Slot   int
	Static bool
}

// ReturnLabel returns the label of the shared epilogue of a method.
func ReturnLabel(mangled string) string {
	return mangled + "__return"
}

type translator struct {
	ctx          Context
	w            *asm.Writer
	class        string
	method       *classfile.Method
	desc         descriptor.Method
	mangled      string
	returnLabel  string
	branchLabels map[int]string
}

// Translate writes the body of method m declared by class. Abstract and native methods, and
// instance and class initializers, produce no output.
func Translate(ctx Context, w *asm.Writer, class string, m *classfile.Method) error {
	if m.Code == nil || m.IsNative() || m.IsConstructor() {
		return nil
	}
	desc, err := descriptor.ParseMethod(m.Descriptor)
	if err != nil {
		return err
	}
	if len(m.Code.Handlers) > 0 {
		return errs.NotYetImplemented("exception handlers in %s%s", m.Name, m.Descriptor)
	}
	mangled := descriptor.MangleMethodName(class, m.Name, m.Descriptor)
	t := &translator{
		ctx:         ctx,
		w:           w,
		class:       class,
		method:      m,
		desc:        desc,
		mangled:     mangled,
		returnLabel: ReturnLabel(mangled),
	}
	logger.Debugf("translating %s", mangled)
	if err := t.translate(); err != nil {
		return fmt.Errorf("method %s%s: %w", m.Name, m.Descriptor, err)
	}
	return nil
}

func (t *translator) translate() error {
	code := t.method.Code
	t.assignBranchLabels()

	argumentWords := t.desc.ParameterWords()
	if !t.method.IsStatic() {
		argumentWords++
	}
	if argumentWords > len(asm.ArgumentRegisters) {
		return errs.NotYetImplemented("%s takes %d argument words", t.mangled, argumentWords)
	}

	w := t.w
	w.Label(t.mangled)
	frame := (code.MaxLocals + 2) * 4
	w.OpImm(asm.ADDI, asm.SP, asm.SP, -frame)
	w.Store(asm.SW, asm.RA, code.MaxLocals*4, asm.SP)
	w.Store(asm.SW, asm.FP, (code.MaxLocals+1)*4, asm.SP)
	w.Mv(asm.FP, asm.SP)
	for i := 0; i < argumentWords; i++ {
		w.Store(asm.SW, asm.ArgumentRegisters[i], i*4, asm.FP)
	}

	for i := range code.Instructions {
		in := &code.Instructions[i]
		if label, ok := t.branchLabels[in.Offset]; ok {
			w.Label(label)
		}
		if buildoptions.IsDebugMode {
			w.Comment("%d: %s", in.Offset, in.Opcode)
		}
		if err := t.handleInstruction(in); err != nil {
			return fmt.Errorf("%s at offset %d: %w", in.Opcode, in.Offset, err)
		}
	}

	// Early returns can leave words on the operand stack, so sp is reset from the frame base.
	w.Label(t.returnLabel)
	w.Mv(asm.SP, asm.FP)
	w.Load(asm.LW, asm.FP, (code.MaxLocals+1)*4, asm.SP)
	w.Load(asm.LW, asm.RA, code.MaxLocals*4, asm.SP)
	w.OpImm(asm.ADDI, asm.SP, asm.SP, frame)
	w.Ret()
	w.Blank()
	return nil
}

// assignBranchLabels numbers all branch targets of the method in ascending offset order.
func (t *translator) assignBranchLabels() {
	var targets []int
	seen := map[int]bool{}
	add := func(target int) {
		if !seen[target] {
			seen[target] = true
			targets = append(targets, target)
		}
	}
	for i := range t.method.Code.Instructions {
		in := &t.method.Code.Instructions[i]
		if in.IsBranch() {
			add(in.Target)
			for _, target := range in.SwitchTargets {
				add(target)
			}
		}
	}
	sort.Ints(targets)
	t.branchLabels = make(map[int]string, len(targets))
	for i, target := range targets {
		t.branchLabels[target] = t.mangled + "_" + strconv.Itoa(i)
	}
}

func (t *translator) branchLabel(in *classfile.Instruction) (string, error) {
	label, ok := t.branchLabels[in.Target]
	if !ok {
		return "", errs.Invariant("no label for branch target %d", in.Target)
	}
	return label, nil
}
