package asm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMnemonics(t *testing.T) {
	tests := []struct {
		actual, expected string
	}{
		{ADD, "add"}, {ADDI, "addi"}, {SUB, "sub"}, {MUL, "mul"}, {DIV, "div"}, {REM, "rem"},
		{AND, "and"}, {OR, "or"}, {XOR, "xor"}, {SLL, "sll"}, {SLLI, "slli"}, {SRA, "sra"}, {SRAI, "srai"}, {SRL, "srl"}, {SRLI, "srli"},
		{LB, "lb"}, {LBU, "lbu"}, {LH, "lh"}, {LHU, "lhu"}, {LW, "lw"},
		{SB, "sb"}, {SH, "sh"}, {SW, "sw"},
		{BEQ, "beq"}, {BNE, "bne"}, {BLT, "blt"}, {BGE, "bge"}, {JALR, "jalr"},
	}
	for _, tc := range tests {
		require.Equal(t, tc.expected, tc.actual)
	}
}

func TestRegister_String(t *testing.T) {
	require.Equal(t, "zero", Zero.String())
	require.Equal(t, "sp", SP.String())
	require.Equal(t, "s0", FP.String())
	require.Equal(t, "a7", A7.String())
	require.Equal(t, 8, len(ArgumentRegisters))
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Raw([]byte("# prologue\n"))
	w.Banner("class %s", "a.B")
	w.Label("a_B_m__I")
	w.OpImm(ADDI, SP, SP, -8)
	w.Store(SW, RA, 0, SP)
	w.Load(LW, T0, 4, FP)
	w.Op3(ADD, T0, T0, T1)
	w.Branch(BEQ, T0, Zero, "a_B_m__I_0")
	w.Li(T0, -1)
	w.La(A1, "a_B_vtable")
	w.Mv(FP, SP)
	w.Jump("a_B_m__I__return")
	w.Call("allocateMemory")
	w.CallIndirect(T0)
	w.Ret()
	w.Section(".data")
	w.Set("a_B_vtable", "object0")
	w.Directive(".word", "0", "object1")
	w.Directive(".balign", "4")
	w.Comment("done")
	require.NoError(t, w.Flush())

	require.Equal(t, `# prologue
//
// class a.B
//

a_B_m__I:
	addi sp, sp, -8
	sw ra, 0(sp)
	lw t0, 4(s0)
	add t0, t0, t1
	beq t0, zero, a_B_m__I_0
	li t0, -1
	la a1, a_B_vtable
	mv s0, sp
	j a_B_m__I__return
	call allocateMemory
	jalr t0
	ret
.data
.set a_B_vtable, object0
	.word 0, object1
	.balign 4
	// done
`, buf.String())
}

type failingWriter struct{ err error }

func (f *failingWriter) Write([]byte) (int, error) { return 0, f.err }

func TestWriter_StickyError(t *testing.T) {
	expected := errors.New("disk full")
	w := NewWriter(&failingWriter{err: expected})
	// Large enough to force bufio to write through.
	w.Raw(make([]byte, 8192))
	w.Label("x")
	require.ErrorIs(t, w.Flush(), expected)
	require.ErrorIs(t, w.Err(), expected)
}
