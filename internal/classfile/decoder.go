package classfile

import (
	"fmt"

	"github.com/MartinGeisse/majai/internal/errs"
)

var (
	ErrInvalidMagicNumber   = fmt.Errorf("%w: invalid magic number", errs.ErrResolution)
	ErrInvalidConstantTag   = fmt.Errorf("%w: invalid constant pool tag", errs.ErrResolution)
	ErrInvalidConstantIndex = fmt.Errorf("%w: invalid constant pool index", errs.ErrResolution)
	ErrInvalidUTF8          = fmt.Errorf("%w: invalid modified UTF-8", errs.ErrResolution)
	ErrInvalidOpcode        = fmt.Errorf("%w: invalid opcode", errs.ErrResolution)
	ErrTruncated            = fmt.Errorf("%w: truncated class file", errs.ErrResolution)
)

const magic = 0xcafebabe

// Decode parses a class file. Attributes other than Code are skipped.
func Decode(data []byte) (*Class, error) {
	r := &reader{data: data}
	if r.u4() != magic {
		return nil, ErrInvalidMagicNumber
	}
	c := &Class{MinorVersion: r.u2(), MajorVersion: r.u2()}
	if r.err != nil {
		return nil, ErrTruncated
	}

	p, err := decodePool(r)
	if err != nil {
		return nil, err
	}

	c.AccessFlags = r.u2()
	thisClass, superClass := r.u2(), r.u2()
	if r.err != nil {
		return nil, ErrTruncated
	}
	if c.Name, err = p.className(thisClass); err != nil {
		return nil, fmt.Errorf("this class: %w", err)
	}
	if superClass != 0 {
		if c.SuperName, err = p.className(superClass); err != nil {
			return nil, fmt.Errorf("super class of %s: %w", c.Name, err)
		}
	}

	interfaceCount := int(r.u2())
	for i := 0; i < interfaceCount; i++ {
		name, err := p.className(r.u2())
		if err != nil {
			return nil, fmt.Errorf("interface %d of %s: %w", i, c.Name, err)
		}
		c.Interfaces = append(c.Interfaces, name)
	}

	fieldCount := int(r.u2())
	for i := 0; i < fieldCount; i++ {
		f := &Field{AccessFlags: r.u2()}
		if f.Name, err = p.utf8(r.u2()); err != nil {
			return nil, fmt.Errorf("field %d of %s: %w", i, c.Name, err)
		}
		if f.Descriptor, err = p.utf8(r.u2()); err != nil {
			return nil, fmt.Errorf("field %s of %s: %w", f.Name, c.Name, err)
		}
		if err = skipAttributes(r); err != nil {
			return nil, fmt.Errorf("field %s of %s: %w", f.Name, c.Name, err)
		}
		c.Fields = append(c.Fields, f)
	}

	methodCount := int(r.u2())
	for i := 0; i < methodCount; i++ {
		m, err := decodeMethod(r, p)
		if err != nil {
			return nil, fmt.Errorf("method %d of %s: %w", i, c.Name, err)
		}
		c.Methods = append(c.Methods, m)
	}

	if err = skipAttributes(r); err != nil {
		return nil, fmt.Errorf("attributes of %s: %w", c.Name, err)
	}
	return c, nil
}

func skipAttributes(r *reader) error {
	count := int(r.u2())
	for i := 0; i < count; i++ {
		r.u2()
		r.take(int(r.u4()))
	}
	if r.err != nil {
		return ErrTruncated
	}
	return nil
}

func decodeMethod(r *reader, p *pool) (*Method, error) {
	m := &Method{AccessFlags: r.u2()}
	var err error
	if m.Name, err = p.utf8(r.u2()); err != nil {
		return nil, err
	}
	if m.Descriptor, err = p.utf8(r.u2()); err != nil {
		return nil, err
	}
	count := int(r.u2())
	for i := 0; i < count; i++ {
		name, err := p.utf8(r.u2())
		if err != nil {
			return nil, fmt.Errorf("attribute of %s: %w", m.Name, err)
		}
		body := r.take(int(r.u4()))
		if r.err != nil {
			return nil, ErrTruncated
		}
		if name != "Code" {
			continue
		}
		if m.Code, err = decodeCode(body, p); err != nil {
			return nil, fmt.Errorf("code of %s%s: %w", m.Name, m.Descriptor, err)
		}
	}
	return m, nil
}

func decodeCode(body []byte, p *pool) (*Code, error) {
	r := &reader{data: body}
	code := &Code{MaxStack: int(r.u2()), MaxLocals: int(r.u2())}
	bytecode := r.take(int(r.u4()))
	if r.err != nil {
		return nil, ErrTruncated
	}
	var err error
	if code.Instructions, err = decodeInstructions(bytecode, p); err != nil {
		return nil, err
	}
	handlerCount := int(r.u2())
	for i := 0; i < handlerCount; i++ {
		h := ExceptionHandler{StartPC: int(r.u2()), EndPC: int(r.u2()), HandlerPC: int(r.u2())}
		if catchType := r.u2(); catchType != 0 {
			if h.CatchType, err = p.className(catchType); err != nil {
				return nil, err
			}
		}
		code.Handlers = append(code.Handlers, h)
	}
	// LineNumberTable, LocalVariableTable and StackMapTable are not needed.
	if err = skipAttributes(r); err != nil {
		return nil, err
	}
	return code, nil
}
