package classfile

import (
	"fmt"
	"unicode/utf16"
)

type poolEntry struct {
	tag            uint8
	index1, index2 uint16
	bits           uint64
	chars          []uint16
}

// pool is the constant pool of one class file. Entries are resolved on first use and memoized.
type pool struct {
	entries  []poolEntry
	resolved []Constant
}

func decodePool(r *reader) (*pool, error) {
	count := int(r.u2())
	p := &pool{entries: make([]poolEntry, count), resolved: make([]Constant, count)}
	for i := 1; i < count; i++ {
		e := &p.entries[i]
		e.tag = r.u1()
		switch e.tag {
		case TagUtf8:
			n := int(r.u2())
			chars, err := decodeModifiedUTF8(r.take(n))
			if err != nil {
				return nil, fmt.Errorf("constant pool entry %d: %w", i, err)
			}
			e.chars = chars
		case TagInteger, TagFloat:
			e.bits = uint64(r.u4())
		case TagLong, TagDouble:
			e.bits = r.u8()
			// 8-byte constants take up two slots.
			i++
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			e.index1 = r.u2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			e.index1 = r.u2()
			e.index2 = r.u2()
		case TagMethodHandle:
			e.index1 = uint16(r.u1())
			e.index2 = r.u2()
		default:
			if r.err == nil {
				return nil, fmt.Errorf("%w: tag %d at constant pool entry %d", ErrInvalidConstantTag, e.tag, i)
			}
		}
		if r.err != nil {
			return nil, fmt.Errorf("constant pool entry %d: %w", i, r.err)
		}
	}
	return p, nil
}

func (p *pool) entry(i uint16, tag uint8) (*poolEntry, error) {
	if i == 0 || int(i) >= len(p.entries) || p.entries[i].tag != tag {
		return nil, fmt.Errorf("%w: index %d, expected tag %d", ErrInvalidConstantIndex, i, tag)
	}
	return &p.entries[i], nil
}

func (p *pool) utf8(i uint16) (string, error) {
	e, err := p.entry(i, TagUtf8)
	if err != nil {
		return "", err
	}
	return string(utf16.Decode(e.chars)), nil
}

func (p *pool) className(i uint16) (string, error) {
	e, err := p.entry(i, TagClass)
	if err != nil {
		return "", err
	}
	return p.utf8(e.index1)
}

func (p *pool) nameAndType(i uint16) (name, desc string, err error) {
	e, err := p.entry(i, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = p.utf8(e.index1); err != nil {
		return "", "", err
	}
	desc, err = p.utf8(e.index2)
	return
}

// constant returns the single Constant value for pool slot i.
func (p *pool) constant(i uint16) (Constant, error) {
	if i == 0 || int(i) >= len(p.entries) {
		return nil, fmt.Errorf("%w: index %d", ErrInvalidConstantIndex, i)
	}
	if c := p.resolved[i]; c != nil {
		return c, nil
	}
	e := &p.entries[i]
	var c Constant
	switch e.tag {
	case TagInteger:
		c = &IntegerConstant{Value: int32(uint32(e.bits))}
	case TagFloat:
		c = &FloatConstant{Bits: uint32(e.bits)}
	case TagLong:
		c = &LongConstant{Value: int64(e.bits)}
	case TagDouble:
		c = &DoubleConstant{Bits: e.bits}
	case TagString:
		s, err := p.entry(e.index1, TagUtf8)
		if err != nil {
			return nil, err
		}
		c = &StringConstant{Value: string(utf16.Decode(s.chars)), Chars: s.chars}
	case TagClass:
		name, err := p.utf8(e.index1)
		if err != nil {
			return nil, err
		}
		c = &ClassConstant{Name: name}
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		owner, err := p.className(e.index1)
		if err != nil {
			return nil, err
		}
		name, desc, err := p.nameAndType(e.index2)
		if err != nil {
			return nil, err
		}
		c = &MemberRef{Kind: e.tag, Owner: owner, Name: name, Descriptor: desc}
	case TagMethodHandle, TagMethodType, TagDynamic, TagInvokeDynamic:
		c = &OpaqueConstant{Kind: e.tag}
	default:
		return nil, fmt.Errorf("%w: index %d is not loadable (tag %d)", ErrInvalidConstantIndex, i, e.tag)
	}
	p.resolved[i] = c
	return c, nil
}

// decodeModifiedUTF8 decodes the class file variant of UTF-8 into UTF-16 code units: NUL is
// encoded in two bytes and supplementary characters as two encoded surrogates.
func decodeModifiedUTF8(b []byte) ([]uint16, error) {
	out := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c&0x80 == 0:
			out = append(out, uint16(c))
			i++
		case c&0xe0 == 0xc0:
			if i+1 >= len(b) || b[i+1]&0xc0 != 0x80 {
				return nil, ErrInvalidUTF8
			}
			out = append(out, uint16(c&0x1f)<<6|uint16(b[i+1]&0x3f))
			i += 2
		case c&0xf0 == 0xe0:
			if i+2 >= len(b) || b[i+1]&0xc0 != 0x80 || b[i+2]&0xc0 != 0x80 {
				return nil, ErrInvalidUTF8
			}
			out = append(out, uint16(c&0x0f)<<12|uint16(b[i+1]&0x3f)<<6|uint16(b[i+2]&0x3f))
			i += 3
		default:
			return nil, ErrInvalidUTF8
		}
	}
	return out, nil
}
