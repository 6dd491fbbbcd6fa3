package remap

import (
	"testing"

	"github.com/Fallen-Breath/monument/classfile"
	"github.com/Fallen-Breath/monument/mapping"
)

func newTreeWithNamespaces(t *testing.T, namespaces ...string) *mapping.MappingTree {
	t.Helper()
	return mapping.New(namespaces...)
}

func mustAddClass(t *testing.T, tree *mapping.MappingTree, names ...string) *mapping.ClassMapping {
	t.Helper()
	cm := &mapping.ClassMapping{Names: names, Fields: map[mapping.MemberDescriptor]*mapping.FieldMapping{}, Methods: map[mapping.MemberDescriptor]*mapping.MethodMapping{}}
	if err := tree.AddClass(cm); err != nil {
		t.Fatalf("AddClass: %v", err)
	}
	return cm
}

// buildClassWithField builds a minimal class named name with one field
// fieldName:fieldDesc and a trivial <init>, extending superName (empty
// for java/lang/Object).
func buildClassWithField(name, superName, fieldName, fieldDesc string) *classfile.ClassFile {
	pool := classfile.NewConstantPool()
	thisClass := pool.InternClass(name)
	var superClass uint16
	if superName == "" {
		superClass = pool.InternClass("java/lang/Object")
	} else {
		superClass = pool.InternClass(superName)
	}
	cf := &classfile.ClassFile{MajorVersion: 52, Pool: pool, AccessFlags: classfile.AccPublic, ThisClass: thisClass, SuperClass: superClass}
	fieldNameIdx := pool.InternUtf8(fieldName)
	fieldDescIdx := pool.InternUtf8(fieldDesc)
	cf.Fields = []*classfile.FieldInfo{{AccessFlags: classfile.AccPrivate, NameIndex: fieldNameIdx, DescIndex: fieldDescIdx}}
	return cf
}

func TestPass_ClassRename(t *testing.T) {
	tree := newTreeWithNamespaces(t, "o", "n")
	mustAddClass(t, tree, "a", "Apple")

	cf := buildClassWithField("a", "", "b", "I")
	classes := ClassSet{"a": cf}
	hier := BuildHierarchy(classes)
	out := Pass(classes, hier, tree, 1)

	remapped, ok := out["Apple"]
	if !ok {
		t.Fatalf("class Apple not present in output: %v", out)
	}
	if len(remapped.Fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(remapped.Fields))
	}
	if got := remapped.Fields[0].Name(remapped.Pool); got != "b" {
		t.Fatalf("field name = %q, want unchanged b", got)
	}
}

func TestPass_FieldRenameViaSuperclass(t *testing.T) {
	tree := newTreeWithNamespaces(t, "o", "n")
	p := mustAddClass(t, tree, "P", "")
	p.Fields[mapping.MemberDescriptor{Name: "x", Descriptor: "I"}] = &mapping.FieldMapping{
		Names: []string{"x", "count"}, Descriptor: "I",
	}
	mustAddClass(t, tree, "C", "")

	superCF := buildClassWithField("P", "", "x", "I")

	// Build C with a method m() containing `getfield C.x:I`.
	pool := classfile.NewConstantPool()
	thisClass := pool.InternClass("C")
	superClass := pool.InternClass("P")
	cf := &classfile.ClassFile{MajorVersion: 52, Pool: pool, AccessFlags: classfile.AccPublic, ThisClass: thisClass, SuperClass: superClass}
	nat := pool.InternNameAndType("x", "I")
	fieldRef := pool.Append(classfile.CPEntry{Tag: classfile.TagFieldref, Index1: thisClass, Index2: nat})
	code := []byte{
		0x2a, // aload_0
		0xb4, byte(fieldRef >> 8), byte(fieldRef), // getfield C.x:I
		0xac, // ireturn
	}
	methodNameIdx := pool.InternUtf8("m")
	methodDescIdx := pool.InternUtf8("()I")
	cf.Methods = []*classfile.MethodInfo{{
		AccessFlags: classfile.AccPublic,
		NameIndex:   methodNameIdx,
		DescIndex:   methodDescIdx,
		Code:        &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 1, Code: code},
	}}

	classes := ClassSet{"C": cf, "P": superCF}
	hier := BuildHierarchy(classes)
	out := Pass(classes, hier, tree, 1)

	remappedC, ok := out["C"]
	if !ok {
		t.Fatalf("class C not present in output: %v", out)
	}
	ref, ok := remappedC.Pool.MemberRefAt(fieldRef)
	if !ok {
		t.Fatalf("field ref %d missing after remap", fieldRef)
	}
	if ref.Owner != "C" || ref.Name != "count" {
		t.Fatalf("ref = %+v, want owner=C name=count", ref)
	}
}

func TestPass_InvokeDynamicHandleRewrite(t *testing.T) {
	tree := newTreeWithNamespaces(t, "o", "n")
	aClassMapping := mustAddClass(t, tree, "a", "A")
	aClassMapping.Methods[mapping.MemberDescriptor{Name: "b", Descriptor: "(I)Lz;"}] = &mapping.MethodMapping{
		Names: []string{"b", "compute"}, Descriptor: "(I)Lz;", Parameters: map[int]*mapping.ParameterMapping{},
	}
	mustAddClass(t, tree, "z", "Z")
	mustAddClass(t, tree, "Host", "Host")

	pool := classfile.NewConstantPool()
	thisClass := pool.InternClass("Host")
	cf := &classfile.ClassFile{MajorVersion: 52, Pool: pool, AccessFlags: classfile.AccPublic, ThisClass: thisClass, SuperClass: pool.InternClass("java/lang/Object")}

	aClass := pool.InternClass("a")
	nat := pool.InternNameAndType("b", "(I)Lz;")
	methodRef := pool.Append(classfile.CPEntry{Tag: classfile.TagMethodref, Index1: aClass, Index2: nat})
	handle := pool.Append(classfile.CPEntry{Tag: classfile.TagMethodHandle, RefKind: classfile.RefInvokeStatic, Index2: methodRef})
	cf.BootstrapMethods = []classfile.BootstrapMethod{{MethodRefIndex: handle}}

	hier := BuildHierarchy(ClassSet{"Host": cf, "a": buildClassWithField("a", "", "unused", "I")})
	out := Pass(ClassSet{"Host": cf, "a": buildClassWithField("a", "", "unused", "I")}, hier, tree, 1)

	remapped, ok := out["Host"]
	if !ok {
		t.Fatalf("class Host not present in output: %v", out)
	}
	handleEntry, ok := remapped.Pool.At(handle)
	if !ok || handleEntry.Tag != classfile.TagMethodHandle {
		t.Fatalf("handle entry missing or wrong tag: %+v ok=%v", handleEntry, ok)
	}
	ref, ok := remapped.Pool.MemberRefAt(handleEntry.Index2)
	if !ok {
		t.Fatalf("handle target ref missing")
	}
	if ref.Owner != "A" || ref.Name != "compute" || ref.Descriptor != "(I)LZ;" {
		t.Fatalf("ref = %+v, want owner=A name=compute descriptor=(I)LZ;", ref)
	}
}

func TestPass_InvokeDynamicCallSiteDescriptorRewrite(t *testing.T) {
	tree := newTreeWithNamespaces(t, "o", "n")
	mustAddClass(t, tree, "a", "A")
	mustAddClass(t, tree, "Host", "Host")

	pool := classfile.NewConstantPool()
	thisClass := pool.InternClass("Host")
	cf := &classfile.ClassFile{MajorVersion: 52, Pool: pool, AccessFlags: classfile.AccPublic, ThisClass: thisClass, SuperClass: pool.InternClass("java/lang/Object")}

	// A lambda metafactory-shaped indy site whose SAM descriptor
	// returns the project-local class "a" (renamed to "A").
	indyNat := pool.InternNameAndType("get", "()La;")
	indy := pool.Append(classfile.CPEntry{Tag: classfile.TagInvokeDynamic, Index1: 0, Index2: indyNat})
	cf.BootstrapMethods = []classfile.BootstrapMethod{{}}

	hier := BuildHierarchy(ClassSet{"Host": cf, "a": buildClassWithField("a", "", "unused", "I")})
	out := Pass(ClassSet{"Host": cf, "a": buildClassWithField("a", "", "unused", "I")}, hier, tree, 1)

	remapped, ok := out["Host"]
	if !ok {
		t.Fatalf("class Host not present in output: %v", out)
	}
	indyEntry, ok := remapped.Pool.At(indy)
	if !ok || indyEntry.Tag != classfile.TagInvokeDynamic {
		t.Fatalf("indy entry missing or wrong tag: %+v ok=%v", indyEntry, ok)
	}
	name, desc, ok := remapped.Pool.NameAndTypeAt(indyEntry.Index2)
	if !ok {
		t.Fatalf("indy NameAndType missing")
	}
	if name != "get" || desc != "()LA;" {
		t.Fatalf("indy name/descriptor = %q %q, want get ()LA;", name, desc)
	}
}

func TestPassFinal_SynthesizesLocalVariableNames(t *testing.T) {
	tree := newTreeWithNamespaces(t, "o", "n")
	mustAddClass(t, tree, "Host", "Host")

	pool := classfile.NewConstantPool()
	thisClass := pool.InternClass("Host")
	cf := &classfile.ClassFile{MajorVersion: 52, Pool: pool, AccessFlags: classfile.AccPublic, ThisClass: thisClass, SuperClass: pool.InternClass("java/lang/Object")}
	m := &classfile.MethodInfo{
		AccessFlags: classfile.AccPublic | classfile.AccStatic,
		NameIndex:   pool.InternUtf8("f"),
		DescIndex:   pool.InternUtf8("(ILjava/lang/String;)V"),
		Code: &classfile.CodeAttribute{
			MaxStack: 1, MaxLocals: 4, Code: []byte{0x00, 0xb1},
			LocalVariableTable: []classfile.LocalVar{
				{StartPC: 0, Length: 2, NameIndex: pool.InternUtf8("lvt1"), DescIndex: pool.InternUtf8("I"), Slot: 0},
				{StartPC: 0, Length: 2, NameIndex: pool.InternUtf8("lvt2"), DescIndex: pool.InternUtf8("Ljava/lang/String;"), Slot: 1},
			},
		},
	}
	cf.Methods = []*classfile.MethodInfo{m}

	classes := ClassSet{"Host": cf}
	hier := BuildHierarchy(classes)
	out := PassFinal(classes, hier, tree, 1)

	remapped := out["Host"].Methods[0]
	row0name, _ := out["Host"].Pool.Utf8At(remapped.Code.LocalVariableTable[0].NameIndex)
	row1name, _ := out["Host"].Pool.Utf8At(remapped.Code.LocalVariableTable[1].NameIndex)
	if row0name != "i" {
		t.Errorf("param 0 = %q, want i", row0name)
	}
	if row1name != "string" {
		t.Errorf("param 1 = %q, want string", row1name)
	}
}

func TestSynthesizeSourceFile(t *testing.T) {
	tree := newTreeWithNamespaces(t, "o", "n")
	mustAddClass(t, tree, "com/example/Foo$Inner", "com/example/Foo$Inner")

	cf := buildClassWithField("com/example/Foo$Inner", "", "x", "I")
	classes := ClassSet{"com/example/Foo$Inner": cf}
	hier := BuildHierarchy(classes)
	out := Pass(classes, hier, tree, 1)

	remapped := out["com/example/Foo$Inner"]
	if remapped.SourceFile == nil {
		t.Fatalf("SourceFile not synthesized")
	}
	got, _ := remapped.Pool.Utf8At(*remapped.SourceFile)
	if got != "Foo.java" {
		t.Fatalf("SourceFile = %q, want Foo.java", got)
	}
}
