package compiler

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MartinGeisse/majai/internal/classfile"
	"github.com/MartinGeisse/majai/internal/descriptor"
	"github.com/MartinGeisse/majai/internal/errs"
	"github.com/MartinGeisse/majai/internal/objgraph"
)

type mapLoader map[string]*classfile.Class

func (l mapLoader) Load(name string) (*classfile.Class, error) {
	c, ok := l[descriptor.NormalizeClassName(name)]
	if !ok {
		return nil, errs.Resolution("class not found: %s", descriptor.DenormalizeClassName(name))
	}
	return c, nil
}

func (l mapLoader) add(classes ...*classfile.Class) mapLoader {
	for _, c := range classes {
		l[c.Name] = c
	}
	return l
}

func newClass(name, super string, fields []*classfile.Field, methods ...*classfile.Method) *classfile.Class {
	return &classfile.Class{Name: name, SuperName: super, Fields: fields, Methods: methods}
}

func field(flags uint16, name, desc string) *classfile.Field {
	return &classfile.Field{AccessFlags: flags, Name: name, Descriptor: desc}
}

func method(flags uint16, name, desc string, maxLocals int, code ...classfile.Instruction) *classfile.Method {
	for i := range code {
		code[i].Offset = i
	}
	return &classfile.Method{
		AccessFlags: flags,
		Name:        name,
		Descriptor:  desc,
		Code:        &classfile.Code{MaxStack: 4, MaxLocals: maxLocals, Instructions: code},
	}
}

func op(opcode classfile.Opcode) classfile.Instruction {
	return classfile.Instruction{Opcode: opcode}
}

func ref(opcode classfile.Opcode, owner, name, desc string) classfile.Instruction {
	return classfile.Instruction{Opcode: opcode, Constant: &classfile.MemberRef{Owner: owner, Name: name, Descriptor: desc}}
}

func load(opcode classfile.Opcode, local int) classfile.Instruction {
	return classfile.Instruction{Opcode: opcode, Operand: local}
}

// emptyConstructor calls the superclass constructor.
func emptyConstructor(super string) *classfile.Method {
	return method(0, "<init>", "()V", 1,
		load(classfile.OpAload, 0),
		ref(classfile.OpInvokespecial, super, "<init>", "()V"),
		op(classfile.OpReturn))
}

// runtimeClasses returns the classes every session bootstraps.
func runtimeClasses() mapLoader {
	object := newClass(ObjectClass, "",
		[]*classfile.Field{field(classfile.AccPrivate, "vtable", "[Ljava/lang/Object;")},
		method(0, "<init>", "()V", 1, op(classfile.OpReturn)),
		&classfile.Method{AccessFlags: classfile.AccNative, Name: "hashCode", Descriptor: "()I"},
	)
	array := newClass(ArrayClass, ObjectClass, []*classfile.Field{field(classfile.AccFinal, "length", "I")})
	array.AccessFlags = classfile.AccAbstract
	str := newClass(StringClass, ObjectClass,
		[]*classfile.Field{field(classfile.AccPrivate|classfile.AccFinal, "characters", "[C")},
		method(0, "length", "()I", 1,
			load(classfile.OpAload, 0),
			ref(classfile.OpGetfield, StringClass, "characters", "[C"),
			op(classfile.OpArraylength),
			op(classfile.OpIreturn)),
	)
	return mapLoader{}.add(object, array, str)
}

// hierarchy returns Base with an int field x and a virtual m()I, and Sub overriding m()I and
// adding an int field y.
func hierarchy(root string) []*classfile.Class {
	base := newClass("Base", root,
		[]*classfile.Field{field(0, "x", "I")},
		method(0, "m", "()I", 1,
			load(classfile.OpAload, 0),
			ref(classfile.OpGetfield, "Base", "x", "I"),
			op(classfile.OpIreturn)),
	)
	sub := newClass("Sub", "Base",
		[]*classfile.Field{field(0, "y", "I")},
		method(0, "m", "()I", 1, op(classfile.OpIconst2), op(classfile.OpIreturn)),
	)
	if root != "" {
		base.Methods = append(base.Methods, emptyConstructor(root))
		sub.Methods = append(sub.Methods, emptyConstructor("Base"))
	}
	return []*classfile.Class{base, sub}
}

func TestResolveClass_Hierarchy(t *testing.T) {
	s := New(mapLoader{}.add(hierarchy("")...), Config{})
	sub, err := s.ResolveClass("Sub")
	require.NoError(t, err)
	base := sub.Super
	require.Equal(t, "Base", base.Name)

	require.Equal(t, 2, base.Vtable.Len())
	require.Equal(t, 2, sub.Vtable.Len())
	require.Same(t, base.Methods[0], base.Vtable.Method(1))
	require.Same(t, sub.Methods[0], sub.Vtable.Method(1))
	require.Equal(t, 1, sub.Methods[0].Slot)

	x, err := sub.FindField("x")
	require.NoError(t, err)
	require.Equal(t, 0, x.Offset)
	y, err := sub.FindField("y")
	require.NoError(t, err)
	require.Equal(t, 4, y.Offset)
	require.Equal(t, 8, sub.Instance.Size())

	// Resolution order is superclass first and memoized.
	require.Equal(t, []*ClassInfo{base, sub}, s.Classes())
	again, err := s.ResolveClass("Sub")
	require.NoError(t, err)
	require.Same(t, sub, again)
	require.Same(t, base.Metadata, sub.Metadata.Parent)
}

func TestResolveClass_Statics(t *testing.T) {
	loader := mapLoader{}.add(
		newClass("A", "", []*classfile.Field{field(classfile.AccStatic, "a", "B"), field(0, "i", "I")}),
		newClass("B", "A", []*classfile.Field{field(classfile.AccStatic, "b", "B"), field(classfile.AccStatic, "j", "J")}),
	)
	s := New(loader, Config{})
	b, err := s.ResolveClass("B")
	require.NoError(t, err)

	a, err := b.FindField("a")
	require.NoError(t, err)
	require.True(t, a.IsStatic())
	require.Equal(t, 0, a.Offset)
	f, err := b.FindField("b")
	require.NoError(t, err)
	require.Equal(t, 1, f.Offset)
	j, err := b.FindField("j")
	require.NoError(t, err)
	require.Equal(t, 4, j.Offset)
	require.Equal(t, 3, s.StaticWords())
	require.Equal(t, 4, b.Instance.Size())
}

func TestResolveClass_Errors(t *testing.T) {
	loader := mapLoader{}.add(
		newClass("Loop1", "Loop2", nil),
		newClass("Loop2", "Loop1", nil),
		newClass("Orphan", "Missing", nil),
		newClass("BadField", "", []*classfile.Field{field(0, "f", "Q")}),
		newClass("P", "", []*classfile.Field{field(classfile.AccPrivate, "secret", "I")}),
		newClass("C", "P", nil),
	)

	tests := []struct {
		name        string
		class       string
		expectedErr error
		contains    string
	}{
		{name: "missing", class: "a.Missing", expectedErr: errs.ErrResolution, contains: "a.Missing"},
		{name: "missing superclass", class: "Orphan", expectedErr: errs.ErrResolution, contains: "Missing"},
		{name: "circular", class: "Loop1", expectedErr: errs.ErrResolution, contains: "circular"},
		{name: "bad descriptor", class: "BadField", expectedErr: errs.ErrResolution},
		{name: "array", class: "[I", expectedErr: errs.ErrInvariant},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(loader, Config{}).ResolveClass(tc.class)
			require.True(t, errors.Is(err, tc.expectedErr), "%v", err)
			if tc.contains != "" {
				require.Contains(t, err.Error(), tc.contains)
			}
		})
	}

	t.Run("private field not inherited", func(t *testing.T) {
		c, err := New(loader, Config{}).ResolveClass("C")
		require.NoError(t, err)
		_, err = c.FindField("secret")
		require.True(t, errors.Is(err, errs.ErrResolution))
		_, err = c.Super.FindField("secret")
		require.NoError(t, err)
	})
}

func TestResolveArrayMetadata(t *testing.T) {
	s := New(runtimeClasses().add(hierarchy(ObjectClass)...), Config{})
	require.NoError(t, s.bootstrap())

	ints, err := s.ResolveArrayMetadata("[I")
	require.NoError(t, err)
	require.Equal(t, objgraph.KindPrimitiveArray, ints.Kind)
	require.Equal(t, descriptor.BaseTypeInt, ints.ElementType)

	nested, err := s.ResolveArrayMetadata("[[I")
	require.NoError(t, err)
	require.Equal(t, objgraph.KindObjectArray, nested.Kind)
	require.Same(t, ints, nested.Element)

	subs, err := s.ResolveArrayMetadata("[LSub;")
	require.NoError(t, err)
	sub, err := s.ResolveClass("Sub")
	require.NoError(t, err)
	require.Same(t, sub.Metadata, subs.Element)
	require.Same(t, s.object.Metadata, subs.Parent)

	// Arrays get java/lang/Object's methods with their own metadata in slot 0.
	require.Equal(t, []interface{}{subs, objgraph.LabelReference("java_lang_Object_hashCode__I")}, subs.Vtable.Elements)

	_, err = s.ResolveArrayMetadata("I")
	require.True(t, errors.Is(err, errs.ErrResolution))

	s.Close()
	_, err = s.ResolveArrayMetadata("[[LSub;")
	require.True(t, errors.Is(err, errs.ErrInvariant))
	again, err := s.ResolveArrayMetadata("[LSub;")
	require.NoError(t, err)
	require.Same(t, subs, again)
}

// program returns a Main class that allocates a Sub, calls m() through a Base reference and
// returns a string constant from a second method.
func program() mapLoader {
	hi := &classfile.StringConstant{Value: "hi", Chars: []uint16{'h', 'i'}}
	mainClass := newClass("Main", ObjectClass,
		[]*classfile.Field{field(classfile.AccStatic, "counter", "I")},
		emptyConstructor(ObjectClass),
		method(classfile.AccStatic, "main", "()I", 0,
			classfile.Instruction{Opcode: classfile.OpNew, Constant: &classfile.ClassConstant{Name: "Sub"}},
			op(classfile.OpDup),
			ref(classfile.OpInvokespecial, "Sub", "<init>", "()V"),
			ref(classfile.OpInvokevirtual, "Base", "m", "()I"),
			op(classfile.OpIreturn)),
		method(classfile.AccStatic, "greet", "()Ljava/lang/String;", 0,
			classfile.Instruction{Opcode: classfile.OpLdc, Constant: hi},
			op(classfile.OpPop),
			classfile.Instruction{Opcode: classfile.OpLdc, Constant: hi},
			op(classfile.OpAreturn)),
	)
	return runtimeClasses().add(hierarchy(ObjectClass)...).add(mainClass)
}

func TestSessionContext_Method_Overloads(t *testing.T) {
	c := newClass("C", "",
		nil,
		method(0, "m", "()I", 1, op(classfile.OpIconst2), op(classfile.OpIreturn)),
		method(0, "m", "(I)I", 2, load(classfile.OpIload, 1), op(classfile.OpIreturn)),
		method(classfile.AccStatic, "m", "(J)I", 2, op(classfile.OpIconst2), op(classfile.OpIreturn)),
	)
	sub := newClass("D", "C", nil, method(0, "m", "(I)I", 2, op(classfile.OpIconst3), op(classfile.OpIreturn)))
	ctx := sessionContext{New(mapLoader{}.add(c, sub), Config{})}

	tests := []struct {
		owner, desc   string
		expectedClass string
		expectedSlot  int
		static        bool
	}{
		{owner: "C", desc: "()I", expectedClass: "C", expectedSlot: 1},
		{owner: "C", desc: "(I)I", expectedClass: "C", expectedSlot: 2},
		{owner: "D", desc: "()I", expectedClass: "C", expectedSlot: 1},
		{owner: "D", desc: "(I)I", expectedClass: "D", expectedSlot: 2},
		{owner: "C", desc: "(J)I", expectedClass: "C", expectedSlot: -1, static: true},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.owner+".m"+tc.desc, func(t *testing.T) {
			ref, err := ctx.Method(tc.owner, "m", tc.desc)
			require.NoError(t, err)
			require.Equal(t, tc.expectedClass, ref.Class)
			require.Equal(t, tc.expectedSlot, ref.Slot)
			require.Equal(t, tc.static, ref.Static)
		})
	}
}

func TestCompile(t *testing.T) {
	prologue := "# prologue\n\tj start\n"
	s := New(program(), Config{Prologue: []byte(prologue)})
	var out bytes.Buffer
	require.NoError(t, s.Compile("Main", &out))
	text := out.String()

	require.True(t, strings.HasPrefix(text, prologue))
	require.True(t, strings.HasSuffix(text, "\n.data\ndynamicHeap:\n"))

	// Sections appear in order, classes superclass first.
	var last int
	for _, part := range []string{
		"//\n// class java.lang.Object\n//\n\n",
		"//\n// class Main\n//\n\n",
		"// class java.lang.Array\n",
		"// class java.lang.String\n",
		"// class Base\n",
		"// class Sub\n",
		"//\n// static fields\n//\n\n.data\nstaticFields:\n\t.fill 1, 4, 0\n",
		"// alias labels for runtime objects\n",
		".set Main_vtable, ",
		"// runtime objects\n",
	} {
		i := strings.Index(text, part)
		require.True(t, i > last, "%q out of order", part)
		last = i
	}

	// Bodies exist for methods with code, but not for constructors or native methods.
	require.Contains(t, text, "\nMain_main__I:\n")
	require.Contains(t, text, "\nSub_m__I:\n")
	require.Contains(t, text, "\njava_lang_String_length__I:\n")
	require.NotContains(t, text, "$init$")
	require.NotContains(t, text, "java_lang_Object_hashCode__I:")

	// new Sub: vtable word, x and y.
	require.Contains(t, text, "\tli a0, 12\n\tla a1, Sub_vtable\n\tcall allocateMemory\n")
	// m() is slot 2, after hashCode(), behind the 8 byte array header.
	require.Contains(t, text, "\tlw t0, 0(a0)\n\tlw t0, 16(t0)\n\tjalr t0\n")

	// One string object, referenced twice.
	require.Equal(t, 2, strings.Count(text, "\tla t0, object0\n"))
	require.Equal(t, 1, strings.Count(text, "\t.half 104, 105\n"))

	// Vtables: slot 0 metadata, then the method symbols.
	require.Contains(t, text, ", java_lang_Object_hashCode__I, Base_m__I\n")
	require.Contains(t, text, ", java_lang_Object_hashCode__I, Sub_m__I\n")

	// Resolution is closed after compiling.
	_, err := s.ResolveClass("Other")
	require.True(t, errors.Is(err, errs.ErrInvariant))
}

func TestCompile_LayoutMap(t *testing.T) {
	s := New(program(), Config{})
	require.NoError(t, s.Compile("Main", &bytes.Buffer{}))

	m := s.LayoutMap()
	require.Equal(t, 1, m.StaticWords)
	require.Equal(t, 8, m.ArrayHeaderSize)

	var sub *ClassLayout
	for i := range m.Classes {
		if m.Classes[i].Name == "Sub" {
			sub = &m.Classes[i]
		}
	}
	require.NotNil(t, sub)
	require.Equal(t, ClassLayout{
		Name:         "Sub",
		Super:        "Base",
		Size:         12,
		VtableSymbol: "Sub_vtable",
		Fields:       []FieldEntry{{Name: "y", Descriptor: "I", Offset: 8}},
		Vtable:       []string{"java_lang_Object_hashCode__I", "Sub_m__I"},
	}, *sub)
}

func TestCompile_Errors(t *testing.T) {
	unsupported := func() mapLoader {
		return runtimeClasses().add(newClass("Main", ObjectClass, nil,
			method(classfile.AccStatic, "main", "()V", 0, op(classfile.OpAthrow))))
	}
	missingField := func() mapLoader {
		return runtimeClasses().add(newClass("Main", ObjectClass, nil,
			method(classfile.AccStatic, "main", "()I", 0,
				ref(classfile.OpGetstatic, "Main", "nope", "I"),
				op(classfile.OpIreturn))))
	}
	noRuntime := func() mapLoader {
		return mapLoader{}
	}
	noCharField := func() mapLoader {
		l := program()
		l[StringClass] = newClass(StringClass, ObjectClass, nil)
		return l
	}

	tests := []struct {
		name        string
		loader      func() mapLoader
		entry       string
		expectedErr error
		contains    string
	}{
		{name: "not yet implemented", loader: unsupported, entry: "Main",
			expectedErr: errs.ErrNotYetImplemented, contains: "error compiling class Main"},
		{name: "missing field", loader: missingField, entry: "Main",
			expectedErr: errs.ErrResolution, contains: "Main.nope"},
		{name: "missing entry", loader: runtimeClasses, entry: "a.b.Main",
			expectedErr: errs.ErrResolution, contains: "a.b.Main"},
		{name: "missing runtime", loader: noRuntime, entry: "Main",
			expectedErr: errs.ErrResolution, contains: "java.lang.Object"},
		{name: "string without chars", loader: noCharField, entry: "Main",
			expectedErr: errs.ErrResolution, contains: "char[]"},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			err := New(tc.loader(), Config{}).Compile(tc.entry, &bytes.Buffer{})
			require.Error(t, err)
			require.True(t, errors.Is(err, tc.expectedErr), "%v", err)
			require.Contains(t, err.Error(), tc.contains)
		})
	}
}

// panicLoader panics with value when asked for the class panicOn.
type panicLoader struct {
	mapLoader
	panicOn string
	value   interface{}
}

func (l panicLoader) Load(name string) (*classfile.Class, error) {
	if descriptor.NormalizeClassName(name) == l.panicOn {
		panic(l.value)
	}
	return l.mapLoader.Load(name)
}

func TestCompile_Panics(t *testing.T) {
	// Main.main refers to Other, which is first loaded while Main is translated.
	loader := func(value interface{}) panicLoader {
		return panicLoader{
			mapLoader: runtimeClasses().add(newClass("Main", ObjectClass, nil,
				method(classfile.AccStatic, "main", "()I", 0,
					ref(classfile.OpGetstatic, "Other", "x", "I"),
					op(classfile.OpIreturn)))),
			panicOn: "Other",
			value:   value,
		}
	}

	t.Run("invariant", func(t *testing.T) {
		err := New(loader(errs.Invariant("broken")), Config{}).Compile("Main", &bytes.Buffer{})
		require.ErrorIs(t, err, errs.ErrInvariant)
		require.Contains(t, err.Error(), "error compiling class Main")
		require.Contains(t, err.Error(), "broken")
	})

	t.Run("runtime error", func(t *testing.T) {
		value := errors.New("runtime error: invalid memory address")
		require.PanicsWithValue(t, value, func() {
			_ = New(loader(value), Config{}).Compile("Main", &bytes.Buffer{})
		})
	})
}
