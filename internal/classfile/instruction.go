package classfile

import "fmt"

// decodeInstructions decodes a method's bytecode. Short forms are folded into their general
// opcode with an explicit operand, so iload_2 becomes iload with Operand 2, ldc_w and ldc2_w
// become ldc, and goto_w and jsr_w become goto and jsr.
func decodeInstructions(code []byte, p *pool) ([]Instruction, error) {
	r := &reader{data: code}
	var out []Instruction
	for r.remaining() > 0 {
		in := Instruction{Offset: r.pos, Opcode: Opcode(r.u1())}
		if err := decodeOperands(r, p, &in); err != nil {
			return nil, fmt.Errorf("%s at offset %d: %w", in.Opcode, in.Offset, err)
		}
		if r.err != nil {
			return nil, fmt.Errorf("%s at offset %d: %w", in.Opcode, in.Offset, ErrTruncated)
		}
		out = append(out, in)
	}
	return out, nil
}

func decodeOperands(r *reader, p *pool, in *Instruction) (err error) {
	op := in.Opcode
	switch {
	case op >= OpIload0 && op <= OpAload3:
		n := op - OpIload0
		in.Opcode = OpIload + n/4
		in.Operand = int(n % 4)
	case op >= OpIstore0 && op <= OpAstore3:
		n := op - OpIstore0
		in.Opcode = OpIstore + n/4
		in.Operand = int(n % 4)
	case op >= OpIload && op <= OpAload, op >= OpIstore && op <= OpAstore, op == OpRet:
		in.Operand = int(r.u1())
	case op == OpBipush:
		in.Operand = int(int8(r.u1()))
	case op == OpSipush:
		in.Operand = int(int16(r.u2()))
	case op == OpNewarray:
		in.Operand = int(r.u1())
	case op == OpLdc:
		in.Constant, err = p.constant(uint16(r.u1()))
	case op == OpLdcW, op == OpLdc2W:
		in.Opcode = OpLdc
		in.Constant, err = p.constant(r.u2())
	case op == OpIinc:
		in.Operand = int(r.u1())
		in.Increment = int(int8(r.u1()))
	case op >= OpIfeq && op <= OpJsr, op == OpIfnull, op == OpIfnonnull:
		in.Target = in.Offset + int(int16(r.u2()))
	case op == OpGotoW, op == OpJsrW:
		if op == OpGotoW {
			in.Opcode = OpGoto
		} else {
			in.Opcode = OpJsr
		}
		in.Target = in.Offset + int(int32(r.u4()))
	case op == OpTableswitch:
		r.take((4 - r.pos%4) % 4)
		in.Target = in.Offset + int(int32(r.u4()))
		low, high := int32(r.u4()), int32(r.u4())
		if r.err == nil && high >= low {
			for i := int64(low); i <= int64(high) && r.err == nil; i++ {
				in.SwitchTargets = append(in.SwitchTargets, in.Offset+int(int32(r.u4())))
			}
		}
	case op == OpLookupswitch:
		r.take((4 - r.pos%4) % 4)
		in.Target = in.Offset + int(int32(r.u4()))
		pairs := int32(r.u4())
		for i := int32(0); i < pairs && r.err == nil; i++ {
			r.u4()
			in.SwitchTargets = append(in.SwitchTargets, in.Offset+int(int32(r.u4())))
		}
	case op >= OpGetstatic && op <= OpInvokestatic,
		op == OpNew, op == OpAnewarray, op == OpCheckcast, op == OpInstanceof:
		in.Constant, err = p.constant(r.u2())
	case op == OpInvokeinterface, op == OpInvokedynamic:
		in.Constant, err = p.constant(r.u2())
		r.u2()
	case op == OpMultianewarray:
		in.Constant, err = p.constant(r.u2())
		in.Operand = int(r.u1())
	case op == OpWide:
		in.Opcode = Opcode(r.u1())
		in.Operand = int(r.u2())
		switch {
		case in.Opcode == OpIinc:
			in.Increment = int(int16(r.u2()))
		case in.Opcode >= OpIload && in.Opcode <= OpAload,
			in.Opcode >= OpIstore && in.Opcode <= OpAstore,
			in.Opcode == OpRet:
		default:
			return fmt.Errorf("%w: wide %d", ErrInvalidOpcode, in.Opcode)
		}
	case op > OpJsrW:
		return fmt.Errorf("%w: %d", ErrInvalidOpcode, op)
	}
	return
}
