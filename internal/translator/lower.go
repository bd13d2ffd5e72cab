package translator

import (
	"strings"

	"github.com/MartinGeisse/majai/internal/asm"
	"github.com/MartinGeisse/majai/internal/classfile"
	"github.com/MartinGeisse/majai/internal/descriptor"
	"github.com/MartinGeisse/majai/internal/errs"
)

func (t *translator) handleInstruction(in *classfile.Instruction) error {
	switch in.Opcode {
	case classfile.OpNop:

	// Constants.
	case classfile.OpAconstNull:
		t.push(asm.Zero)
	case classfile.OpIconstM1, classfile.OpIconst0, classfile.OpIconst1, classfile.OpIconst2,
		classfile.OpIconst3, classfile.OpIconst4, classfile.OpIconst5:
		t.pushInt(int32(in.Opcode) - int32(classfile.OpIconst0))
	case classfile.OpLconst0, classfile.OpLconst1:
		t.pushLong(int64(in.Opcode) - int64(classfile.OpLconst0))
	case classfile.OpBipush, classfile.OpSipush:
		t.pushInt(int32(in.Operand))
	case classfile.OpLdc:
		return t.handleLdc(in)

	// Locals. Float and double values are moved as raw words.
	case classfile.OpIload, classfile.OpFload, classfile.OpAload:
		t.load32(in.Operand)
	case classfile.OpLload, classfile.OpDload:
		t.load64(in.Operand)
	case classfile.OpIstore, classfile.OpFstore, classfile.OpAstore:
		t.store32(in.Operand)
	case classfile.OpLstore, classfile.OpDstore:
		t.store64(in.Operand)
	case classfile.OpIinc:
		t.iinc(in.Operand, in.Increment)

	// Arrays.
	case classfile.OpIaload:
		t.arrayLoad(descriptor.BaseTypeInt)
	case classfile.OpLaload:
		t.arrayLoad(descriptor.BaseTypeLong)
	case classfile.OpFaload:
		t.arrayLoad(descriptor.BaseTypeFloat)
	case classfile.OpDaload:
		t.arrayLoad(descriptor.BaseTypeDouble)
	case classfile.OpAaload:
		t.arrayLoad(descriptor.BaseTypeReference)
	case classfile.OpBaload:
		t.arrayLoad(descriptor.BaseTypeByte)
	case classfile.OpCaload:
		t.arrayLoad(descriptor.BaseTypeChar)
	case classfile.OpSaload:
		t.arrayLoad(descriptor.BaseTypeShort)
	case classfile.OpIastore:
		t.arrayStore(descriptor.BaseTypeInt)
	case classfile.OpLastore:
		t.arrayStore(descriptor.BaseTypeLong)
	case classfile.OpFastore:
		t.arrayStore(descriptor.BaseTypeFloat)
	case classfile.OpDastore:
		t.arrayStore(descriptor.BaseTypeDouble)
	case classfile.OpAastore:
		t.arrayStore(descriptor.BaseTypeReference)
	case classfile.OpBastore:
		t.arrayStore(descriptor.BaseTypeByte)
	case classfile.OpCastore:
		t.arrayStore(descriptor.BaseTypeChar)
	case classfile.OpSastore:
		t.arrayStore(descriptor.BaseTypeShort)
	case classfile.OpArraylength:
		w := t.w
		w.Load(asm.LW, asm.T1, 0, asm.SP)
		w.Load(asm.LW, asm.T0, t.ctx.ArrayHeaderSize()-4, asm.T1)
		w.Store(asm.SW, asm.T0, 0, asm.SP)

	// Stack shuffle.
	case classfile.OpPop:
		t.adjust(4)
	case classfile.OpPop2:
		t.adjust(8)
	case classfile.OpDup:
		t.w.Load(asm.LW, asm.T0, 0, asm.SP)
		t.push(asm.T0)
	case classfile.OpDupX1:
		t.shuffle(2, 1)
	case classfile.OpDupX2:
		t.shuffle(3, 1)
	case classfile.OpDup2:
		t.shuffle(2, 2)
	case classfile.OpDup2X1:
		t.shuffle(3, 2)
	case classfile.OpDup2X2:
		t.shuffle(4, 2)
	case classfile.OpSwap:
		w := t.w
		w.Load(asm.LW, asm.T0, 0, asm.SP)
		w.Load(asm.LW, asm.T1, 4, asm.SP)
		w.Store(asm.SW, asm.T1, 0, asm.SP)
		w.Store(asm.SW, asm.T0, 4, asm.SP)

	// 32-bit arithmetic.
	case classfile.OpIadd:
		t.wordOp(asm.ADD)
	case classfile.OpIsub:
		t.wordOp(asm.SUB)
	case classfile.OpImul:
		t.wordOp(asm.MUL)
	case classfile.OpIdiv:
		t.wordOp(asm.DIV)
	case classfile.OpIrem:
		t.wordOp(asm.REM)
	case classfile.OpIshl:
		t.wordOp(asm.SLL)
	case classfile.OpIshr:
		t.wordOp(asm.SRA)
	case classfile.OpIushr:
		t.wordOp(asm.SRL)
	case classfile.OpIand:
		t.wordOp(asm.AND)
	case classfile.OpIor:
		t.wordOp(asm.OR)
	case classfile.OpIxor:
		t.wordOp(asm.XOR)
	case classfile.OpIneg:
		w := t.w
		w.Load(asm.LW, asm.T0, 0, asm.SP)
		w.Inst(asm.NEG, asm.T0.String(), asm.T0.String())
		w.Store(asm.SW, asm.T0, 0, asm.SP)
	case classfile.OpI2b:
		t.narrow(24, asm.SRAI)
	case classfile.OpI2c:
		t.narrow(16, asm.SRLI)
	case classfile.OpI2s:
		t.narrow(16, asm.SRAI)

	// Control transfer.
	case classfile.OpIfeq:
		return t.branch(in, asm.BEQ, true)
	case classfile.OpIfne:
		return t.branch(in, asm.BNE, true)
	case classfile.OpIflt:
		return t.branch(in, asm.BLT, true)
	case classfile.OpIfge:
		return t.branch(in, asm.BGE, true)
	case classfile.OpIfgt:
		return t.branch(in, asm.BGT, true)
	case classfile.OpIfle:
		return t.branch(in, asm.BLE, true)
	case classfile.OpIfnull:
		return t.branch(in, asm.BEQ, true)
	case classfile.OpIfnonnull:
		return t.branch(in, asm.BNE, true)
	case classfile.OpIfIcmpeq, classfile.OpIfAcmpeq:
		return t.branch(in, asm.BEQ, false)
	case classfile.OpIfIcmpne, classfile.OpIfAcmpne:
		return t.branch(in, asm.BNE, false)
	case classfile.OpIfIcmplt:
		return t.branch(in, asm.BLT, false)
	case classfile.OpIfIcmpge:
		return t.branch(in, asm.BGE, false)
	case classfile.OpIfIcmpgt:
		return t.branch(in, asm.BGT, false)
	case classfile.OpIfIcmple:
		return t.branch(in, asm.BLE, false)
	case classfile.OpGoto:
		label, err := t.branchLabel(in)
		if err != nil {
			return err
		}
		t.w.Jump(label)
	case classfile.OpIreturn, classfile.OpFreturn, classfile.OpAreturn:
		t.pop(asm.A0)
		t.w.Jump(t.returnLabel)
	case classfile.OpLreturn, classfile.OpDreturn:
		t.pop(asm.A0)
		t.pop(asm.A1)
		t.w.Jump(t.returnLabel)
	case classfile.OpReturn:
		t.w.Jump(t.returnLabel)

	// Fields.
	case classfile.OpGetstatic, classfile.OpPutstatic, classfile.OpGetfield, classfile.OpPutfield:
		return t.handleFieldAccess(in)

	// Invocation.
	case classfile.OpInvokestatic, classfile.OpInvokespecial, classfile.OpInvokevirtual:
		return t.handleInvoke(in)

	// Allocation.
	case classfile.OpNew:
		return t.handleNew(in)
	case classfile.OpNewarray:
		b, ok := descriptor.BaseTypeForNewarray(in.Operand)
		if !ok {
			return errs.Resolution("invalid newarray element type %d", in.Operand)
		}
		return t.allocateArray("["+string(b), b.Shift())
	case classfile.OpAnewarray:
		c, ok := in.Constant.(*classfile.ClassConstant)
		if !ok {
			return errs.Invariant("operand is %T, not a class", in.Constant)
		}
		element := c.Name
		if !strings.HasPrefix(element, "[") {
			element = "L" + element + ";"
		}
		return t.allocateArray("["+element, 2)

	case classfile.OpFconst0, classfile.OpFconst1, classfile.OpFconst2, classfile.OpDconst0, classfile.OpDconst1,
		classfile.OpLadd, classfile.OpFadd, classfile.OpDadd, classfile.OpLsub, classfile.OpFsub, classfile.OpDsub,
		classfile.OpLmul, classfile.OpFmul, classfile.OpDmul, classfile.OpLdiv, classfile.OpFdiv, classfile.OpDdiv,
		classfile.OpLrem, classfile.OpFrem, classfile.OpDrem, classfile.OpLneg, classfile.OpFneg, classfile.OpDneg,
		classfile.OpLshl, classfile.OpLshr, classfile.OpLushr, classfile.OpLand, classfile.OpLor, classfile.OpLxor,
		classfile.OpI2l, classfile.OpI2f, classfile.OpI2d, classfile.OpL2i, classfile.OpL2f, classfile.OpL2d,
		classfile.OpF2i, classfile.OpF2l, classfile.OpF2d, classfile.OpD2i, classfile.OpD2l, classfile.OpD2f,
		classfile.OpLcmp, classfile.OpFcmpl, classfile.OpFcmpg, classfile.OpDcmpl, classfile.OpDcmpg,
		classfile.OpJsr, classfile.OpRet, classfile.OpTableswitch, classfile.OpLookupswitch,
		classfile.OpInvokeinterface, classfile.OpInvokedynamic, classfile.OpAthrow,
		classfile.OpCheckcast, classfile.OpInstanceof, classfile.OpMonitorenter, classfile.OpMonitorexit,
		classfile.OpMultianewarray:
		return errs.NotYetImplemented("%s", in.Opcode)

	default:
		return errs.Invariant("unexpected opcode %s", in.Opcode)
	}
	return nil
}

func (t *translator) handleLdc(in *classfile.Instruction) error {
	switch c := in.Constant.(type) {
	case *classfile.IntegerConstant:
		t.pushInt(c.Value)
	case *classfile.LongConstant:
		t.pushLong(c.Value)
	case *classfile.StringConstant:
		label, err := t.ctx.StringLabel(c)
		if err != nil {
			return err
		}
		t.w.La(asm.T0, label)
		t.push(asm.T0)
	default:
		return errs.NotYetImplemented("ldc of %T", in.Constant)
	}
	return nil
}

func (t *translator) handleFieldAccess(in *classfile.Instruction) error {
	ref, ok := in.Constant.(*classfile.MemberRef)
	if !ok {
		return errs.Invariant("operand is %T, not a field reference", in.Constant)
	}
	f, err := t.ctx.Field(ref.Owner, ref.Name)
	if err != nil {
		return err
	}
	static := in.Opcode == classfile.OpGetstatic || in.Opcode == classfile.OpPutstatic
	if f.Static != static {
		return errs.Resolution("field %s.%s: static mismatch", descriptor.DenormalizeClassName(ref.Owner), ref.Name)
	}

	w := t.w
	wide := f.Type.Words() == 2
	switch in.Opcode {
	case classfile.OpGetstatic:
		w.La(asm.T1, StaticFieldsSymbol)
		if wide {
			w.Load(asm.LW, asm.T0, f.Offset+4, asm.T1)
			t.push(asm.T0)
			w.Load(asm.LW, asm.T0, f.Offset, asm.T1)
		} else {
			w.Load(f.Type.LoadInstruction(), asm.T0, f.Offset, asm.T1)
		}
		t.push(asm.T0)
	case classfile.OpPutstatic:
		w.La(asm.T1, StaticFieldsSymbol)
		t.pop(asm.T0)
		if wide {
			w.Store(asm.SW, asm.T0, f.Offset, asm.T1)
			t.pop(asm.T0)
			w.Store(asm.SW, asm.T0, f.Offset+4, asm.T1)
		} else {
			w.Store(f.Type.StoreInstruction(), asm.T0, f.Offset, asm.T1)
		}
	case classfile.OpGetfield:
		w.Load(asm.LW, asm.T1, 0, asm.SP)
		if wide {
			t.adjust(-4)
			w.Load(asm.LW, asm.T0, f.Offset, asm.T1)
			w.Store(asm.SW, asm.T0, 0, asm.SP)
			w.Load(asm.LW, asm.T0, f.Offset+4, asm.T1)
			w.Store(asm.SW, asm.T0, 4, asm.SP)
		} else {
			w.Load(f.Type.LoadInstruction(), asm.T0, f.Offset, asm.T1)
			w.Store(asm.SW, asm.T0, 0, asm.SP)
		}
	case classfile.OpPutfield:
		if wide {
			w.Load(asm.LW, asm.T1, 8, asm.SP)
			w.Load(asm.LW, asm.T0, 0, asm.SP)
			w.Store(asm.SW, asm.T0, f.Offset, asm.T1)
			w.Load(asm.LW, asm.T0, 4, asm.SP)
			w.Store(asm.SW, asm.T0, f.Offset+4, asm.T1)
			t.adjust(12)
		} else {
			w.Load(asm.LW, asm.T1, 4, asm.SP)
			w.Load(asm.LW, asm.T0, 0, asm.SP)
			w.Store(f.Type.StoreInstruction(), asm.T0, f.Offset, asm.T1)
			t.adjust(8)
		}
	}
	return nil
}

func (t *translator) handleInvoke(in *classfile.Instruction) error {
	ref, ok := in.Constant.(*classfile.MemberRef)
	if !ok {
		return errs.Invariant("operand is %T, not a method reference", in.Constant)
	}
	desc, err := descriptor.ParseMethod(ref.Descriptor)
	if err != nil {
		return err
	}
	static := in.Opcode == classfile.OpInvokestatic
	words := desc.ParameterWords()
	if !static {
		words++
	}
	if words > len(asm.ArgumentRegisters) {
		return errs.NotYetImplemented("call with %d argument words", words)
	}
	target, err := t.ctx.Method(ref.Owner, ref.Name, ref.Descriptor)
	if err != nil {
		return err
	}
	if target.Static != static {
		return errs.Resolution("method %s.%s%s: static mismatch",
			descriptor.DenormalizeClassName(ref.Owner), ref.Name, ref.Descriptor)
	}

	w := t.w
	for i := 0; i < words; i++ {
		w.Load(asm.LW, asm.ArgumentRegisters[i], 4*(words-1-i), asm.SP)
	}
	if words > 0 {
		t.adjust(4 * words)
	}

	switch in.Opcode {
	case classfile.OpInvokevirtual:
		if target.Slot < 0 {
			return errs.Resolution("method %s.%s%s is not virtual",
				descriptor.DenormalizeClassName(ref.Owner), ref.Name, ref.Descriptor)
		}
		w.Load(asm.LW, asm.T0, 0, asm.A0)
		w.Load(asm.LW, asm.T0, t.ctx.ArrayHeaderSize()+4*target.Slot, asm.T0)
		w.CallIndirect(asm.T0)
	case classfile.OpInvokespecial:
		// Initializers have no body; the receiver and arguments are only consumed.
		if ref.Name == classfile.ConstructorName {
			return nil
		}
		w.Call(descriptor.MangleMethodName(target.Class, ref.Name, ref.Descriptor))
	default:
		w.Call(descriptor.MangleMethodName(target.Class, ref.Name, ref.Descriptor))
	}

	switch desc.ReturnWords() {
	case 1:
		t.push(asm.A0)
	case 2:
		t.adjust(-8)
		w.Store(asm.SW, asm.A0, 0, asm.SP)
		w.Store(asm.SW, asm.A1, 4, asm.SP)
	}
	return nil
}

func (t *translator) handleNew(in *classfile.Instruction) error {
	c, ok := in.Constant.(*classfile.ClassConstant)
	if !ok {
		return errs.Invariant("operand is %T, not a class", in.Constant)
	}
	size, err := t.ctx.InstanceSize(c.Name)
	if err != nil {
		return err
	}
	w := t.w
	w.Li(asm.A0, int64(size))
	w.La(asm.A1, descriptor.VtableSymbol(c.Name))
	w.Call(AllocateMemorySymbol)
	t.push(asm.A0)
	return nil
}

// allocateArray pops the length and allocates an array of type desc whose elements take
// 1<<shift bytes each.
func (t *translator) allocateArray(desc string, shift int) error {
	vtable, err := t.ctx.ArrayVtable(desc)
	if err != nil {
		return err
	}
	w := t.w
	t.pop(asm.A0)
	w.OpImm(asm.SLLI, asm.A0, asm.A0, shift)
	w.OpImm(asm.ADDI, asm.A0, asm.A0, t.ctx.ArrayHeaderSize())
	w.La(asm.A1, vtable)
	w.Call(AllocateMemorySymbol)
	t.push(asm.A0)
	return nil
}

// branch pops the operands of a conditional branch and jumps if "op first, second" holds. With
// againstZero the single operand is compared to zero.
func (t *translator) branch(in *classfile.Instruction, op string, againstZero bool) error {
	label, err := t.branchLabel(in)
	if err != nil {
		return err
	}
	if againstZero {
		t.pop(asm.T0)
		t.w.Branch(op, asm.T0, asm.Zero, label)
	} else {
		t.pop(asm.T1)
		t.pop(asm.T0)
		t.w.Branch(op, asm.T0, asm.T1, label)
	}
	return nil
}
