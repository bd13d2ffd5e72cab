package asm

import (
	"strings"

	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/riscv"
)

// Register is a RISC-V integer register, numbered as in golang-asm.
type Register int16

const (
	Zero Register = riscv.REG_ZERO
	RA   Register = riscv.REG_RA
	SP   Register = riscv.REG_SP
	// FP is the frame base register; locals are addressed off it.
	FP Register = riscv.REG_S0
	T0 Register = riscv.REG_T0
	T1 Register = riscv.REG_T1
	T2 Register = riscv.REG_T2
	T3 Register = riscv.REG_T3
	A0 Register = riscv.REG_A0
	A1 Register = riscv.REG_A1
	A2 Register = riscv.REG_A2
	A3 Register = riscv.REG_A3
	A4 Register = riscv.REG_A4
	A5 Register = riscv.REG_A5
	A6 Register = riscv.REG_A6
	A7 Register = riscv.REG_A7
)

// ArgumentRegisters are the registers that carry the first words of a call's arguments.
var ArgumentRegisters = []Register{A0, A1, A2, A3, A4, A5, A6, A7}

var registerNames = map[Register]string{
	Zero: "zero",
	RA:   "ra",
	SP:   "sp",
	FP:   "s0",
	T0:   "t0",
	T1:   "t1",
	T2:   "t2",
	T3:   "t3",
	A0:   "a0",
	A1:   "a1",
	A2:   "a2",
	A3:   "a3",
	A4:   "a4",
	A5:   "a5",
	A6:   "a6",
	A7:   "a7",
}

// String returns the ABI name of the register as the GNU assembler expects it.
func (r Register) String() string {
	if name, ok := registerNames[r]; ok {
		return name
	}
	return strings.ToLower(riscv.RegName(int(r)))
}

func mnemonic(as obj.As) string {
	return strings.ToLower(as.String())
}

// Machine instructions.
var (
	ADD  = mnemonic(riscv.AADD)
	ADDI = mnemonic(riscv.AADDI)
	SUB  = mnemonic(riscv.ASUB)
	MUL  = mnemonic(riscv.AMUL)
	DIV  = mnemonic(riscv.ADIV)
	REM  = mnemonic(riscv.AREM)
	AND  = mnemonic(riscv.AAND)
	OR   = mnemonic(riscv.AOR)
	XOR  = mnemonic(riscv.AXOR)
	SLL  = mnemonic(riscv.ASLL)
	SLLI = mnemonic(riscv.ASLLI)
	SRA  = mnemonic(riscv.ASRA)
	SRAI = mnemonic(riscv.ASRAI)
	SRL  = mnemonic(riscv.ASRL)
	SRLI = mnemonic(riscv.ASRLI)
	LB   = mnemonic(riscv.ALB)
	LBU  = mnemonic(riscv.ALBU)
	LH   = mnemonic(riscv.ALH)
	LHU  = mnemonic(riscv.ALHU)
	LW   = mnemonic(riscv.ALW)
	SB   = mnemonic(riscv.ASB)
	SH   = mnemonic(riscv.ASH)
	SW   = mnemonic(riscv.ASW)
	BEQ  = mnemonic(riscv.ABEQ)
	BNE  = mnemonic(riscv.ABNE)
	BLT  = mnemonic(riscv.ABLT)
	BGE  = mnemonic(riscv.ABGE)
	JALR = mnemonic(riscv.AJALR)
)

// Pseudo instructions of the GNU assembler. golang-asm expands these itself, so they have no
// entry in its opcode table.
const (
	LI   = "li"
	LA   = "la"
	MV   = "mv"
	J    = "j"
	CALL = "call"
	RET  = "ret"
	NEG  = "neg"
	BGT  = "bgt"
	BLE  = "ble"
)
