package classfile

// RawAttribute is any attribute this package does not interpret
// structurally; its bytes are copied through verbatim. This is safe for
// every attribute that stores constant-pool *indices* rather than
// embedded names (Exceptions, InnerClasses, LineNumberTable, ...) since
// rewriting happens at the pool entries those indices reference (see
// the package doc comment in constants.go).
type RawAttribute struct {
	Name string
	Info []byte
}

// ExceptionTableEntry is one row of a Code attribute's exception table.
// CatchType is a Class pool index (0 means catch-all / finally) and
// needs no remap logic of its own: the Class entry it references is
// rewritten in place.
type ExceptionTableEntry struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// LocalVar is one row of a LocalVariableTable or LocalVariableTypeTable
// attribute.
type LocalVar struct {
	StartPC    uint16
	Length     uint16
	NameIndex  uint16 // Utf8
	DescIndex  uint16 // Utf8: descriptor (LocalVariableTable) or signature (LocalVariableTypeTable)
	Slot       uint16
}

// CodeAttribute is the parsed form of a method's Code attribute. Code
// itself (the raw bytecode) is never rewritten by this package —
// instructions only ever reference the constant pool by index, and pool
// entries are rewritten in place, so the byte stream stays valid
// unchanged.
type CodeAttribute struct {
	MaxStack       uint16
	MaxLocals      uint16
	Code           []byte
	ExceptionTable []ExceptionTableEntry

	LocalVariableTable     []LocalVar
	LocalVariableTypeTable []LocalVar
	OtherAttributes        []RawAttribute
}

// FieldInfo is a field_info structure.
type FieldInfo struct {
	AccessFlags uint16
	NameIndex   uint16
	DescIndex   uint16
	Attributes  []RawAttribute
}

// MethodInfo is a method_info structure. Code is nil for abstract/native
// methods.
type MethodInfo struct {
	AccessFlags uint16
	NameIndex   uint16
	DescIndex   uint16
	Code        *CodeAttribute
	Attributes  []RawAttribute // every attribute except Code
}

// BootstrapMethod is one entry of the BootstrapMethods attribute.
type BootstrapMethod struct {
	MethodRefIndex uint16   // MethodHandle pool index
	Arguments      []uint16 // pool indices, static bootstrap args
}

// RecordComponentInfo is one entry of the Record attribute.
type RecordComponentInfo struct {
	NameIndex  uint16
	DescIndex  uint16
	Attributes []RawAttribute
}

// ClassFile is the fully decoded form of a .class file.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16

	Pool *ConstantPool

	AccessFlags uint16
	ThisClass   uint16 // Class pool index
	SuperClass  uint16 // Class pool index, 0 for java/lang/Object
	Interfaces  []uint16

	Fields  []*FieldInfo
	Methods []*MethodInfo

	SourceFile       *uint16 // Utf8 index, nil if absent
	BootstrapMethods []BootstrapMethod
	RecordComponents []RecordComponentInfo // nil unless class has a Record attribute
	IsRecord         bool

	OtherAttributes []RawAttribute
}

// Name returns the class's own internal name.
func (c *ClassFile) Name() string {
	name, _ := c.Pool.ClassNameAt(c.ThisClass)
	return name
}

// SuperName returns the superclass's internal name, or "" if this class
// is java/lang/Object.
func (c *ClassFile) SuperName() string {
	if c.SuperClass == 0 {
		return ""
	}
	name, _ := c.Pool.ClassNameAt(c.SuperClass)
	return name
}

// InterfaceNames returns the declared interfaces' internal names, in
// declaration order.
func (c *ClassFile) InterfaceNames() []string {
	names := make([]string, 0, len(c.Interfaces))
	for _, idx := range c.Interfaces {
		if n, ok := c.Pool.ClassNameAt(idx); ok {
			names = append(names, n)
		}
	}
	return names
}

// Name returns a field's current name.
func (f *FieldInfo) Name(p *ConstantPool) string { n, _ := p.Utf8At(f.NameIndex); return n }

// Descriptor returns a field's current descriptor.
func (f *FieldInfo) Descriptor(p *ConstantPool) string { d, _ := p.Utf8At(f.DescIndex); return d }

// Name returns a method's current name.
func (m *MethodInfo) Name(p *ConstantPool) string { n, _ := p.Utf8At(m.NameIndex); return n }

// Descriptor returns a method's current descriptor.
func (m *MethodInfo) Descriptor(p *ConstantPool) string { d, _ := p.Utf8At(m.DescIndex); return d }

func (m *MethodInfo) IsStatic() bool  { return m.AccessFlags&AccStatic != 0 }
func (m *MethodInfo) IsBridge() bool  { return m.AccessFlags&AccBridge != 0 }
func (f *FieldInfo) Attr(name string) (RawAttribute, bool) {
	for _, a := range f.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return RawAttribute{}, false
}
