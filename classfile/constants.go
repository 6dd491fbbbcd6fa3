// Package classfile is the "ASM-equivalent emitter" spec.md's Non-goals
// section refers to: a minimal constant-pool-centric decoder/encoder for
// the JVM class file format, just capable enough for the remapper,
// local-variable renamer and bridge detector built on top of it.
//
// Bytecode instructions in a class file never embed names or
// descriptors directly — they index into the constant pool. This
// implementation takes advantage of that: remapping rewrites constant
// pool entries in place (allocating fresh Utf8/NameAndType entries when
// a shared entry would otherwise leak one reference's new name onto an
// unrelated one), and every attribute that merely stores a constant
// pool *index* — Exceptions, InnerClasses, LineNumberTable, the
// exception table's catch type — is therefore already correct once the
// pool is rewritten, without needing its own remap logic. Only
// attributes that store a name/descriptor directly (LocalVariableTable,
// LocalVariableTypeTable, Record, SourceFile) and pool entries reached
// only indirectly (MethodType constants inside BootstrapMethods
// arguments) need explicit handling; see remap/remap.go.
package classfile

// Constant pool tags (JVM spec table 4.4-A).
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

// Method handle reference kinds (JVM spec table 5.4.3.5). Kinds <=
// RefPutStatic carry a field descriptor; all others carry a method
// descriptor (spec §4.G).
const (
	RefGetField         = 1
	RefGetStatic        = 2
	RefPutField         = 3
	RefPutStatic        = 4
	RefInvokeVirtual    = 5
	RefInvokeStatic     = 6
	RefInvokeSpecial    = 7
	RefNewInvokeSpecial = 8
	RefInvokeInterface  = 9
)

// Class/field/method access flags actually consulted by this package.
const (
	AccPublic    uint16 = 0x0001
	AccPrivate   uint16 = 0x0002
	AccStatic    uint16 = 0x0008
	AccBridge    uint16 = 0x0040
	AccVarargs   uint16 = 0x0080
	AccSynthetic uint16 = 0x1000
	AccInterface uint16 = 0x0200
	AccEnum      uint16 = 0x4000
)

// Attribute names this package interprets structurally; every other
// attribute is retained as an opaque byte blob.
const (
	AttrCode                  = "Code"
	AttrLocalVariableTable    = "LocalVariableTable"
	AttrLocalVariableTypeTable = "LocalVariableTypeTable"
	AttrBootstrapMethods      = "BootstrapMethods"
	AttrSourceFile            = "SourceFile"
	AttrRecord                = "Record"
)
