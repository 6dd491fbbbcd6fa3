package lvt

import (
	"testing"

	"github.com/Fallen-Breath/monument/classfile"
	"github.com/Fallen-Breath/monument/hierarchy"
	"github.com/Fallen-Breath/monument/mapping"
)

// buildMethodWithLVT builds a minimal static method `name``descriptor`
// whose LocalVariableTable has one row per parameter slot, named
// "lvtN" (the obfuscator's placeholder convention), covering the
// method's full code length.
func buildMethodWithLVT(pool *classfile.ConstantPool, name, descriptor string, paramDescs []string, static bool) *classfile.MethodInfo {
	m := &classfile.MethodInfo{
		NameIndex: pool.InternUtf8(name),
		DescIndex: pool.InternUtf8(descriptor),
		Code:      &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 8, Code: []byte{0x00, 0xb1}},
	}
	if static {
		m.AccessFlags |= classfile.AccStatic
	}
	slot := uint16(0)
	if !static {
		m.Code.LocalVariableTable = append(m.Code.LocalVariableTable, classfile.LocalVar{
			StartPC: 0, Length: 2, NameIndex: pool.InternUtf8("this"),
			DescIndex: pool.InternUtf8("Lthis;"), Slot: 0,
		})
		slot = 1
	}
	for i, pd := range paramDescs {
		m.Code.LocalVariableTable = append(m.Code.LocalVariableTable, classfile.LocalVar{
			StartPC: 0, Length: 2, NameIndex: pool.InternUtf8("lvt" + itoa(i+1)),
			DescIndex: pool.InternUtf8(pd), Slot: slot,
		})
		slot += uint16(classfile.Slots(pd))
	}
	return m
}

func itoa(i int) string {
	if i < 10 {
		return string(rune('0' + i))
	}
	return string(rune('0'+i/10)) + string(rune('0'+i%10))
}

func TestRename_SynthesizesFromDescriptor(t *testing.T) {
	pool := classfile.NewConstantPool()
	thisClass := pool.InternClass("Host")
	cf := &classfile.ClassFile{Pool: pool, ThisClass: thisClass, SuperClass: pool.InternClass("java/lang/Object")}
	m := buildMethodWithLVT(pool, "f", "(ILjava/lang/String;)V", []string{"I", "Ljava/lang/String;"}, true)
	cf.Methods = []*classfile.MethodInfo{m}

	tree := mapping.New("o", "n")
	hier := hierarchy.New()
	hier.Add("Host", "java/lang/Object", nil)

	Rename(cf, m, hier, tree, "Host", "f", "(ILjava/lang/String;)V", 1)

	names := lvtNames(pool, m)
	if names[0] != "i" {
		t.Errorf("param 0 = %q, want i", names[0])
	}
	if names[1] != "string" {
		t.Errorf("param 1 = %q, want string", names[1])
	}
}

func TestRename_AppliesParameterMapping(t *testing.T) {
	pool := classfile.NewConstantPool()
	thisClass := pool.InternClass("Host")
	cf := &classfile.ClassFile{Pool: pool, ThisClass: thisClass, SuperClass: pool.InternClass("java/lang/Object")}
	m := buildMethodWithLVT(pool, "f", "(I)V", []string{"I"}, true)
	cf.Methods = []*classfile.MethodInfo{m}

	tree := mapping.New("o", "n")
	cm := &mapping.ClassMapping{Names: []string{"Host", "Host"}, Fields: map[mapping.MemberDescriptor]*mapping.FieldMapping{}, Methods: map[mapping.MemberDescriptor]*mapping.MethodMapping{}}
	cm.Methods[mapping.MemberDescriptor{Name: "f", Descriptor: "(I)V"}] = &mapping.MethodMapping{
		Names: []string{"f", "f"}, Descriptor: "(I)V",
		Parameters: map[int]*mapping.ParameterMapping{0: {Index: 0, Names: []string{"count", "count"}}},
	}
	if err := tree.AddClass(cm); err != nil {
		t.Fatalf("AddClass: %v", err)
	}
	hier := hierarchy.New()
	hier.Add("Host", "java/lang/Object", nil)

	Rename(cf, m, hier, tree, "Host", "f", "(I)V", 1)

	names := lvtNames(pool, m)
	if names[0] != "count" {
		t.Errorf("param 0 = %q, want count", names[0])
	}
}

func TestRename_NoCollisionBetweenSynthesizedAndExisting(t *testing.T) {
	pool := classfile.NewConstantPool()
	thisClass := pool.InternClass("Host")
	cf := &classfile.ClassFile{Pool: pool, ThisClass: thisClass, SuperClass: pool.InternClass("java/lang/Object")}
	m := &classfile.MethodInfo{
		NameIndex:   pool.InternUtf8("f"),
		DescIndex:   pool.InternUtf8("(II)V"),
		AccessFlags: classfile.AccStatic,
		Code:        &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 4, Code: []byte{0x00, 0xb1}},
	}
	m.Code.LocalVariableTable = []classfile.LocalVar{
		{StartPC: 0, Length: 2, NameIndex: pool.InternUtf8("i"), DescIndex: pool.InternUtf8("I"), Slot: 0},
		{StartPC: 0, Length: 2, NameIndex: pool.InternUtf8("lvt2"), DescIndex: pool.InternUtf8("I"), Slot: 1},
	}
	cf.Methods = []*classfile.MethodInfo{m}

	tree := mapping.New("o", "n")
	hier := hierarchy.New()
	hier.Add("Host", "java/lang/Object", nil)

	Rename(cf, m, hier, tree, "Host", "f", "(II)V", 1)

	names := lvtNames(pool, m)
	if names[0] != "i" {
		t.Fatalf("slot0 should be untouched, got %q", names[0])
	}
	if names[1] == "i" {
		t.Fatalf("slot1 synthesized name collided with existing i: %q", names[1])
	}
	if names[1] != "j" {
		t.Fatalf("slot1 = %q, want j (next available int letter)", names[1])
	}
}

func TestRename_DigitStrippingFallback(t *testing.T) {
	// Open Question (a): Style$1's class segment is purely numeric.
	// With no supertype available, synthesis fails and the
	// placeholder name is left unchanged.
	pool := classfile.NewConstantPool()
	thisClass := pool.InternClass("Host")
	cf := &classfile.ClassFile{Pool: pool, ThisClass: thisClass, SuperClass: pool.InternClass("java/lang/Object")}
	m := &classfile.MethodInfo{
		NameIndex:   pool.InternUtf8("f"),
		DescIndex:   pool.InternUtf8("(Lcom/example/Style$1;)V"),
		AccessFlags: classfile.AccStatic,
		Code:        &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 2, Code: []byte{0x00, 0xb1}},
	}
	m.Code.LocalVariableTable = []classfile.LocalVar{
		{StartPC: 0, Length: 2, NameIndex: pool.InternUtf8("lvt1"), DescIndex: pool.InternUtf8("Lcom/example/Style$1;"), Slot: 0},
	}
	cf.Methods = []*classfile.MethodInfo{m}

	tree := mapping.New("o", "n")
	hier := hierarchy.New()
	hier.Add("Host", "java/lang/Object", nil)

	Rename(cf, m, hier, tree, "Host", "f", "(Lcom/example/Style$1;)V", 1)

	names := lvtNames(pool, m)
	if names[0] != "lvt1" {
		t.Fatalf("expected synthesis to fail and leave placeholder, got %q", names[0])
	}
}

func TestRename_ClassRetriesSupertypeOnDigitFailure(t *testing.T) {
	pool := classfile.NewConstantPool()
	thisClass := pool.InternClass("Host")
	cf := &classfile.ClassFile{Pool: pool, ThisClass: thisClass, SuperClass: pool.InternClass("java/lang/Object")}
	m := &classfile.MethodInfo{
		NameIndex:   pool.InternUtf8("f"),
		DescIndex:   pool.InternUtf8("(Lcom/example/Style$1;)V"),
		AccessFlags: classfile.AccStatic,
		Code:        &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 2, Code: []byte{0x00, 0xb1}},
	}
	m.Code.LocalVariableTable = []classfile.LocalVar{
		{StartPC: 0, Length: 2, NameIndex: pool.InternUtf8("lvt1"), DescIndex: pool.InternUtf8("Lcom/example/Style$1;"), Slot: 0},
	}
	cf.Methods = []*classfile.MethodInfo{m}

	tree := mapping.New("o", "n")
	hier := hierarchy.New()
	hier.Add("Host", "java/lang/Object", nil)
	hier.Add("com/example/Style$1", "com/example/Style", nil)

	Rename(cf, m, hier, tree, "Host", "f", "(Lcom/example/Style$1;)V", 1)

	names := lvtNames(pool, m)
	if names[0] != "style" {
		t.Fatalf("expected fallback to supertype com/example/Style -> style, got %q", names[0])
	}
}

func lvtNames(pool *classfile.ConstantPool, m *classfile.MethodInfo) map[int]string {
	out := make(map[int]string)
	for _, row := range m.Code.LocalVariableTable {
		name, _ := pool.Utf8At(row.NameIndex)
		out[int(row.Slot)] = name
	}
	return out
}
