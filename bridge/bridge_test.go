package bridge

import "testing"

import "github.com/Fallen-Breath/monument/classfile"

func buildBridgeCandidate() *classfile.ClassFile {
	pool := classfile.NewConstantPool()
	thisClass := pool.InternClass("C")
	cf := &classfile.ClassFile{
		MajorVersion: 52,
		Pool:         pool,
		AccessFlags:  classfile.AccPublic,
		ThisClass:    thisClass,
		SuperClass:   pool.InternClass("java/lang/Object"),
	}

	nat := pool.InternNameAndType("get", "()Ljava/lang/String;")
	specializedRef := pool.Append(classfile.CPEntry{Tag: classfile.TagMethodref, Index1: thisClass, Index2: nat})

	code := []byte{
		0x2a, // aload_0
		0xb6, byte(specializedRef >> 8), byte(specializedRef), // invokevirtual C.get()Ljava/lang/String;
		0xb0, // areturn
	}
	bridgeMethod := &classfile.MethodInfo{
		AccessFlags: classfile.AccPublic | classfile.AccSynthetic,
		NameIndex:   pool.InternUtf8("get"),
		DescIndex:   pool.InternUtf8("()Ljava/lang/Object;"),
		Code:        &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 1, Code: code},
	}
	specialized := &classfile.MethodInfo{
		AccessFlags: classfile.AccPublic,
		NameIndex:   pool.InternUtf8("get"),
		DescIndex:   pool.InternUtf8("()Ljava/lang/String;"),
		Code:        &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 1, Code: []byte{0x01, 0xb0}},
	}
	cf.Methods = []*classfile.MethodInfo{bridgeMethod, specialized}
	return cf
}

func TestDetect_RecoversBridgeFlag(t *testing.T) {
	cf := buildBridgeCandidate()
	flagged, err := Detect(cf)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(flagged) != 1 || flagged[0] != "get" {
		t.Fatalf("flagged = %v, want [get]", flagged)
	}
	if cf.Methods[0].AccessFlags&classfile.AccBridge == 0 {
		t.Fatalf("bridge flag not set on candidate method")
	}
	if cf.Methods[1].AccessFlags&classfile.AccBridge != 0 {
		t.Fatalf("bridge flag incorrectly set on specialized method")
	}
}

func TestDetect_IgnoresNonSynthetic(t *testing.T) {
	cf := buildBridgeCandidate()
	cf.Methods[0].AccessFlags &^= classfile.AccSynthetic
	flagged, err := Detect(cf)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(flagged) != 0 {
		t.Fatalf("flagged = %v, want none", flagged)
	}
}

func TestDetect_RejectsInterfaceCall(t *testing.T) {
	pool := classfile.NewConstantPool()
	thisClass := pool.InternClass("C")
	iface := pool.InternClass("I")
	cf := &classfile.ClassFile{
		MajorVersion: 52, Pool: pool, AccessFlags: classfile.AccPublic,
		ThisClass: thisClass, SuperClass: pool.InternClass("java/lang/Object"),
		Interfaces: []uint16{iface},
	}
	nat := pool.InternNameAndType("get", "()Ljava/lang/String;")
	itfRef := pool.Append(classfile.CPEntry{Tag: classfile.TagInterfaceMethodref, Index1: iface, Index2: nat})
	code := []byte{0x2a, 0xb9, byte(itfRef >> 8), byte(itfRef), 0x01, 0x00, 0xb0}
	m := &classfile.MethodInfo{
		AccessFlags: classfile.AccPublic | classfile.AccSynthetic,
		NameIndex:   pool.InternUtf8("get"),
		DescIndex:   pool.InternUtf8("()Ljava/lang/Object;"),
		Code:        &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 1, Code: code},
	}
	cf.Methods = []*classfile.MethodInfo{m}

	flagged, err := Detect(cf)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(flagged) != 0 {
		t.Fatalf("flagged = %v, want none (interface call disqualifies)", flagged)
	}
}

// TestDetect_RejectsStaticInterfaceCall covers a default/static
// interface method invoked via invokestatic against an
// InterfaceMethodref-tagged constant (ASM's itf=true shape) — opcode
// alone can't tell this apart from a same-class invokestatic, so the
// rejection has to come from the constant pool entry's own tag.
func TestDetect_RejectsStaticInterfaceCall(t *testing.T) {
	pool := classfile.NewConstantPool()
	thisClass := pool.InternClass("C")
	iface := pool.InternClass("I")
	cf := &classfile.ClassFile{
		MajorVersion: 52, Pool: pool, AccessFlags: classfile.AccPublic,
		ThisClass: thisClass, SuperClass: pool.InternClass("java/lang/Object"),
		Interfaces: []uint16{iface},
	}
	nat := pool.InternNameAndType("get", "()Ljava/lang/String;")
	itfRef := pool.Append(classfile.CPEntry{Tag: classfile.TagInterfaceMethodref, Index1: iface, Index2: nat})
	code := []byte{0x2a, 0xb8, byte(itfRef >> 8), byte(itfRef), 0xb0}
	m := &classfile.MethodInfo{
		AccessFlags: classfile.AccPublic | classfile.AccSynthetic,
		NameIndex:   pool.InternUtf8("get"),
		DescIndex:   pool.InternUtf8("()Ljava/lang/Object;"),
		Code:        &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 1, Code: code},
	}
	cf.Methods = []*classfile.MethodInfo{m}

	flagged, err := Detect(cf)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(flagged) != 0 {
		t.Fatalf("flagged = %v, want none (static interface call disqualifies)", flagged)
	}
}
