package classfile

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MartinGeisse/majai/internal/errs"
)

// classBuilder assembles class file bytes for tests.
type classBuilder struct {
	pool      bytes.Buffer
	poolCount uint16
	utf8s     map[string]uint16
}

func newClassBuilder() *classBuilder {
	return &classBuilder{poolCount: 1, utf8s: map[string]uint16{}}
}

func (b *classBuilder) entry(tag byte, payload ...interface{}) uint16 {
	b.pool.WriteByte(tag)
	for _, v := range payload {
		_ = binary.Write(&b.pool, binary.BigEndian, v)
	}
	i := b.poolCount
	b.poolCount++
	if tag == TagLong || tag == TagDouble {
		b.poolCount++
	}
	return i
}

func (b *classBuilder) utf8(s string) uint16 {
	if i, ok := b.utf8s[s]; ok {
		return i
	}
	b.pool.WriteByte(TagUtf8)
	_ = binary.Write(&b.pool, binary.BigEndian, uint16(len(s)))
	b.pool.WriteString(s)
	i := b.poolCount
	b.poolCount++
	b.utf8s[s] = i
	return i
}

func (b *classBuilder) class(name string) uint16 {
	return b.entry(TagClass, b.utf8(name))
}

func (b *classBuilder) nameAndType(name, desc string) uint16 {
	return b.entry(TagNameAndType, b.utf8(name), b.utf8(desc))
}

func u2(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }

func u4(v uint32) []byte { return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)} }

type testMethod struct {
	access     uint16
	name, desc string
	maxLocals  uint16
	code       []byte
}

func (b *classBuilder) build(access uint16, this, super uint16, fields [][3]interface{}, methods []testMethod) []byte {
	codeName := b.utf8("Code")
	type encodedMethod struct {
		access, name, desc uint16
		maxLocals          uint16
		code               []byte
	}
	var ms []encodedMethod
	for _, m := range methods {
		ms = append(ms, encodedMethod{m.access, b.utf8(m.name), b.utf8(m.desc), m.maxLocals, m.code})
	}
	type encodedField struct{ access, name, desc uint16 }
	var fs []encodedField
	for _, f := range fields {
		fs = append(fs, encodedField{f[0].(uint16), b.utf8(f[1].(string)), b.utf8(f[2].(string))})
	}

	var out bytes.Buffer
	out.Write(u4(magic))
	out.Write(u2(0))
	out.Write(u2(52))
	out.Write(u2(b.poolCount))
	out.Write(b.pool.Bytes())
	out.Write(u2(access))
	out.Write(u2(this))
	out.Write(u2(super))
	out.Write(u2(0)) // interfaces
	out.Write(u2(uint16(len(fs))))
	for _, f := range fs {
		out.Write(u2(f.access))
		out.Write(u2(f.name))
		out.Write(u2(f.desc))
		out.Write(u2(0))
	}
	out.Write(u2(uint16(len(ms))))
	for _, m := range ms {
		out.Write(u2(m.access))
		out.Write(u2(m.name))
		out.Write(u2(m.desc))
		if m.code == nil {
			out.Write(u2(0))
			continue
		}
		out.Write(u2(1))
		out.Write(u2(codeName))
		out.Write(u4(uint32(2 + 2 + 4 + len(m.code) + 2 + 2)))
		out.Write(u2(4))
		out.Write(u2(m.maxLocals))
		out.Write(u4(uint32(len(m.code))))
		out.Write(m.code)
		out.Write(u2(0)) // exception table
		out.Write(u2(0)) // attributes
	}
	out.Write(u2(0)) // class attributes
	return out.Bytes()
}

func TestDecode(t *testing.T) {
	b := newClassBuilder()
	this := b.class("a/B")
	super := b.class("java/lang/Object")
	str := b.entry(TagString, b.utf8("héllo"))
	long := b.entry(TagLong, uint64(1)<<40)
	field := b.entry(TagFieldref, this, b.nameAndType("x", "I"))
	method := b.entry(TagMethodref, this, b.nameAndType("m", "()I"))

	code := []byte{
		byte(OpIload2),
		byte(OpLdc), byte(str),
		byte(OpLdc), byte(str),
		byte(OpLdc2W), byte(long >> 8), byte(long),
		byte(OpGetstatic), byte(field >> 8), byte(field),
		byte(OpInvokestatic), byte(method >> 8), byte(method),
		byte(OpBipush), 0xfe,
		byte(OpIfeq), 0xff, 0xff, // one byte back
		byte(OpWide), byte(OpIinc), 0x01, 0x00, 0xff, 0xfe,
		byte(OpReturn),
	}
	data := b.build(AccPublic|AccSuper, this, super,
		[][3]interface{}{{AccStatic, "x", "I"}, {uint16(0), "y", "J"}},
		[]testMethod{
			{access: AccStatic, name: "m", desc: "()I", maxLocals: 3, code: code},
			{access: AccNative, name: "n", desc: "()V"},
		})

	c, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, "a/B", c.Name)
	require.Equal(t, "java/lang/Object", c.SuperName)
	require.False(t, c.IsInterface())
	require.Equal(t, 2, len(c.Fields))
	require.True(t, c.Fields[0].IsStatic())
	require.Equal(t, "J", c.Fields[1].Descriptor)

	require.Equal(t, 2, len(c.Methods))
	require.Nil(t, c.Methods[1].Code)
	require.True(t, c.Methods[1].IsNative())

	m := c.Methods[0]
	require.True(t, m.IsStatic())
	require.Equal(t, 3, m.Code.MaxLocals)
	ins := m.Code.Instructions
	require.Equal(t, 10, len(ins))

	require.Equal(t, OpIload, ins[0].Opcode)
	require.Equal(t, 2, ins[0].Operand)

	s1, ok := ins[1].Constant.(*StringConstant)
	require.True(t, ok)
	require.Equal(t, "héllo", s1.Value)
	require.Equal(t, []uint16{'h', 0xe9, 'l', 'l', 'o'}, s1.Chars)
	// Both loads of the same pool slot see the same constant.
	require.Same(t, s1, ins[2].Constant)

	require.Equal(t, OpLdc, ins[3].Opcode)
	require.Equal(t, int64(1)<<40, ins[3].Constant.(*LongConstant).Value)

	require.Equal(t, &MemberRef{Kind: TagFieldref, Owner: "a/B", Name: "x", Descriptor: "I"}, ins[4].Constant)
	require.Equal(t, &MemberRef{Kind: TagMethodref, Owner: "a/B", Name: "m", Descriptor: "()I"}, ins[5].Constant)

	require.Equal(t, OpBipush, ins[6].Opcode)
	require.Equal(t, -2, ins[6].Operand)

	require.Equal(t, OpIfeq, ins[7].Opcode)
	require.True(t, ins[7].IsBranch())
	require.Equal(t, ins[7].Offset-1, ins[7].Target)

	require.Equal(t, OpIinc, ins[8].Opcode)
	require.Equal(t, 256, ins[8].Operand)
	require.Equal(t, -2, ins[8].Increment)

	require.Equal(t, OpReturn, ins[9].Opcode)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte{0xca, 0xfe, 0xba, 0xbf, 0, 0, 0, 52})
	require.ErrorIs(t, err, ErrInvalidMagicNumber)
	require.ErrorIs(t, err, errs.ErrResolution)

	_, err = Decode([]byte{0xca, 0xfe, 0xba, 0xbe, 0, 0})
	require.ErrorIs(t, err, ErrTruncated)

	b := newClassBuilder()
	this := b.class("a/B")
	data := b.build(0, this, 0, nil, []testMethod{{name: "m", desc: "()V", code: []byte{0xfe}}})
	_, err = Decode(data)
	require.ErrorIs(t, err, ErrInvalidOpcode)
}

func TestDecodeModifiedUTF8(t *testing.T) {
	// NUL in two bytes, and U+1F600 as an encoded surrogate pair.
	chars, err := decodeModifiedUTF8([]byte{'a', 0xc0, 0x80, 0xed, 0xa0, 0xbd, 0xed, 0xb8, 0x80})
	require.NoError(t, err)
	require.Equal(t, []uint16{'a', 0, 0xd83d, 0xde00}, chars)

	_, err = decodeModifiedUTF8([]byte{0xc3})
	require.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestOpcode_String(t *testing.T) {
	require.Equal(t, int(OpJsrW)+1, len(opcodeNames))
	tests := []struct {
		op       Opcode
		expected string
	}{
		{op: OpNop, expected: "nop"},
		{op: OpIconst2, expected: "iconst_2"},
		{op: OpIload, expected: "iload"},
		{op: OpIreturn, expected: "ireturn"},
		{op: OpInvokevirtual, expected: "invokevirtual"},
		{op: OpJsrW, expected: "jsr_w"},
		{op: Opcode(0xca), expected: "unknown"},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.expected, func(t *testing.T) {
			require.Equal(t, tc.expected, tc.op.String())
		})
	}
}
