package translator

import (
	"github.com/MartinGeisse/majai/internal/asm"
	"github.com/MartinGeisse/majai/internal/descriptor"
)

// scratch holds the registers used by the stack shuffle templates, top of stack first.
var scratch = [...]asm.Register{asm.T0, asm.T1, asm.T2, asm.T3}

// adjust moves sp by the given number of bytes. Positive values pop.
func (t *translator) adjust(bytes int) {
	t.w.OpImm(asm.ADDI, asm.SP, asm.SP, bytes)
}

func (t *translator) push(r asm.Register) {
	t.adjust(-4)
	t.w.Store(asm.SW, r, 0, asm.SP)
}

func (t *translator) pop(r asm.Register) {
	t.w.Load(asm.LW, r, 0, asm.SP)
	t.adjust(4)
}

func (t *translator) pushInt(v int32) {
	t.w.Li(asm.T0, int64(v))
	t.push(asm.T0)
}

// pushLong pushes the high word first.
func (t *translator) pushLong(v int64) {
	t.pushInt(int32(v >> 32))
	t.pushInt(int32(v))
}

func (t *translator) load32(local int) {
	t.w.Load(asm.LW, asm.T0, 4*local, asm.FP)
	t.push(asm.T0)
}

func (t *translator) store32(local int) {
	t.pop(asm.T0)
	t.w.Store(asm.SW, asm.T0, 4*local, asm.FP)
}

func (t *translator) load64(local int) {
	t.load32(local)
	t.load32(local + 1)
}

func (t *translator) store64(local int) {
	t.store32(local + 1)
	t.store32(local)
}

func (t *translator) iinc(local, increment int) {
	w := t.w
	w.Load(asm.LW, asm.T0, 4*local, asm.FP)
	if increment >= -2048 && increment < 2048 {
		w.OpImm(asm.ADDI, asm.T0, asm.T0, increment)
	} else {
		w.Li(asm.T1, int64(increment))
		w.Op3(asm.ADD, asm.T0, asm.T0, asm.T1)
	}
	w.Store(asm.SW, asm.T0, 4*local, asm.FP)
}

// wordOp pops two words, combines them with op and pushes the result.
func (t *translator) wordOp(op string) {
	w := t.w
	w.Load(asm.LW, asm.T0, 4, asm.SP)
	w.Load(asm.LW, asm.T1, 0, asm.SP)
	w.Op3(op, asm.T0, asm.T0, asm.T1)
	t.adjust(4)
	w.Store(asm.SW, asm.T0, 0, asm.SP)
}

// narrow keeps the low 32-bits bits of the top of stack, extended with shiftOp.
func (t *translator) narrow(bits int, shiftOp string) {
	w := t.w
	w.Load(asm.LW, asm.T0, 0, asm.SP)
	w.OpImm(asm.SLLI, asm.T0, asm.T0, bits)
	w.OpImm(shiftOp, asm.T0, asm.T0, bits)
	w.Store(asm.SW, asm.T0, 0, asm.SP)
}

// shuffle implements the dup family: the top count words are copied below the top depth
// words. dup_x1 is shuffle(2, 1), dup2 is shuffle(2, 2).
func (t *translator) shuffle(depth, count int) {
	w := t.w
	for i := 0; i < depth; i++ {
		w.Load(asm.LW, scratch[i], 4*i, asm.SP)
	}
	t.adjust(-4 * count)
	for i := 0; i < depth; i++ {
		w.Store(asm.SW, scratch[i], 4*i, asm.SP)
	}
	if depth == count {
		return
	}
	for i := 0; i < count; i++ {
		w.Store(asm.SW, scratch[i], 4*(depth+i), asm.SP)
	}
}

// elementAddress leaves the address of the element minus the array header size in t0, given
// the array at arrayOffset(sp) and the index at indexOffset(sp).
func (t *translator) elementAddress(b descriptor.BaseType, arrayOffset, indexOffset int) {
	w := t.w
	w.Load(asm.LW, asm.T0, arrayOffset, asm.SP)
	w.Load(asm.LW, asm.T1, indexOffset, asm.SP)
	w.OpImm(asm.SLLI, asm.T1, asm.T1, b.Shift())
	w.Op3(asm.ADD, asm.T0, asm.T0, asm.T1)
}

func (t *translator) arrayLoad(b descriptor.BaseType) {
	w := t.w
	h := t.ctx.ArrayHeaderSize()
	t.elementAddress(b, 4, 0)
	if b.Bytes() == 8 {
		w.Load(asm.LW, asm.T2, h, asm.T0)
		w.Load(asm.LW, asm.T3, h+4, asm.T0)
		w.Store(asm.SW, asm.T2, 0, asm.SP)
		w.Store(asm.SW, asm.T3, 4, asm.SP)
		return
	}
	w.Load(descriptor.Field{Base: b}.LoadInstruction(), asm.T2, h, asm.T0)
	t.adjust(4)
	w.Store(asm.SW, asm.T2, 0, asm.SP)
}

func (t *translator) arrayStore(b descriptor.BaseType) {
	w := t.w
	h := t.ctx.ArrayHeaderSize()
	if b.Bytes() == 8 {
		t.elementAddress(b, 12, 8)
		w.Load(asm.LW, asm.T2, 0, asm.SP)
		w.Load(asm.LW, asm.T3, 4, asm.SP)
		t.adjust(16)
		w.Store(asm.SW, asm.T2, h, asm.T0)
		w.Store(asm.SW, asm.T3, h+4, asm.T0)
		return
	}
	t.elementAddress(b, 8, 4)
	w.Load(asm.LW, asm.T2, 0, asm.SP)
	t.adjust(12)
	w.Store(descriptor.Field{Base: b}.StoreInstruction(), asm.T2, h, asm.T0)
}
