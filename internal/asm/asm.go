// Package asm writes RISC-V32 assembly text in GNU assembler syntax.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Writer emits assembly text. The first write error is kept and returned by Flush; later
// writes are dropped, so callers do not need to check each line.
type Writer struct {
	w   *bufio.Writer
	err error
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Flush writes any buffered text and returns the first error encountered.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.w.Flush()
	return w.err
}

// Err returns the first error encountered.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) line(s string) {
	if w.err != nil {
		return
	}
	if _, err := w.w.WriteString(s); err != nil {
		w.err = err
		return
	}
	w.err = w.w.WriteByte('\n')
}

// Raw copies text verbatim.
func (w *Writer) Raw(p []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(p)
}

// Blank writes an empty line.
func (w *Writer) Blank() {
	w.line("")
}

// Banner writes a three line comment block followed by an empty line.
func (w *Writer) Banner(format string, args ...interface{}) {
	w.line("//")
	w.line("// " + fmt.Sprintf(format, args...))
	w.line("//")
	w.line("")
}

// Comment writes an indented comment line.
func (w *Writer) Comment(format string, args ...interface{}) {
	w.line("\t// " + fmt.Sprintf(format, args...))
}

// Label defines a symbol at the current location.
func (w *Writer) Label(name string) {
	w.line(name + ":")
}

// Section switches to a section such as ".data".
func (w *Writer) Section(name string) {
	w.line(name)
}

// Set defines symbol as an alias of value.
func (w *Writer) Set(symbol, value string) {
	w.line(".set " + symbol + ", " + value)
}

// Directive writes an indented data directive, e.g. Directive(".word", "0", "object3").
func (w *Writer) Directive(name string, args ...string) {
	if len(args) == 0 {
		w.line("\t" + name)
		return
	}
	w.line("\t" + name + " " + strings.Join(args, ", "))
}

// Inst writes one instruction with already formatted operands.
func (w *Writer) Inst(mnemonic string, operands ...string) {
	if len(operands) == 0 {
		w.line("\t" + mnemonic)
		return
	}
	w.line("\t" + mnemonic + " " + strings.Join(operands, ", "))
}

// Op3 writes a register-register instruction: op rd, rs1, rs2.
func (w *Writer) Op3(op string, rd, rs1, rs2 Register) {
	w.Inst(op, rd.String(), rs1.String(), rs2.String())
}

// OpImm writes a register-immediate instruction: op rd, rs1, imm.
func (w *Writer) OpImm(op string, rd, rs1 Register, imm int) {
	w.Inst(op, rd.String(), rs1.String(), strconv.Itoa(imm))
}

// Load writes op rd, offset(base).
func (w *Writer) Load(op string, rd Register, offset int, base Register) {
	w.Inst(op, rd.String(), Address(offset, base))
}

// Store writes op rs, offset(base).
func (w *Writer) Store(op string, rs Register, offset int, base Register) {
	w.Inst(op, rs.String(), Address(offset, base))
}

// Branch writes a conditional branch to label.
func (w *Writer) Branch(op string, rs1, rs2 Register, label string) {
	w.Inst(op, rs1.String(), rs2.String(), label)
}

// Li loads a constant.
func (w *Writer) Li(rd Register, value int64) {
	w.Inst(LI, rd.String(), strconv.FormatInt(value, 10))
}

// La loads the address of a symbol.
func (w *Writer) La(rd Register, symbol string) {
	w.Inst(LA, rd.String(), symbol)
}

// Mv copies a register.
func (w *Writer) Mv(rd, rs Register) {
	w.Inst(MV, rd.String(), rs.String())
}

// Jump writes an unconditional jump to label.
func (w *Writer) Jump(label string) {
	w.Inst(J, label)
}

// Call writes a direct call.
func (w *Writer) Call(symbol string) {
	w.Inst(CALL, symbol)
}

// CallIndirect writes a call through a register.
func (w *Writer) CallIndirect(rs Register) {
	w.Inst(JALR, rs.String())
}

// Ret returns from the current function.
func (w *Writer) Ret() {
	w.Inst(RET)
}

// Address formats a base-plus-offset memory operand.
func Address(offset int, base Register) string {
	return strconv.Itoa(offset) + "(" + base.String() + ")"
}
