package classfile

import "fmt"

// CPEntry is a single constant pool slot. Not every field is
// meaningful for a given Tag; see the JVM spec §4.4 for the per-tag
// layout. Long/Double entries consume the following index too, which
// is represented as a Tag 0 placeholder (index 0 of the pool itself is
// also unused, matching the JVM's 1-based constant pool numbering).
type CPEntry struct {
	Tag byte

	// Utf8
	Utf8 string

	// Integer / Float
	Int32 int32

	// Long / Double
	Int64 int64

	// Class, String, MethodType, Module, Package: name/descriptor index.
	Index1 uint16

	// Fieldref/Methodref/InterfaceMethodref: class_index, name_and_type_index.
	// NameAndType: name_index, descriptor_index.
	// MethodHandle: reference_kind (RefKind), reference_index (Index2).
	// Dynamic/InvokeDynamic: bootstrap_method_attr_index, name_and_type_index.
	Index2 uint16

	RefKind byte // MethodHandle only
}

// ConstantPool is the 1-indexed constant pool of a class file, plus the
// intern caches the remapper uses to avoid growing the pool when a
// requested (tag, content) entry already exists.
type ConstantPool struct {
	entries []CPEntry // entries[0] is the unused zero slot

	utf8Intern        map[string]uint16
	classIntern       map[string]uint16
	natIntern         map[[2]string]uint16
	methodTypeIntern  map[string]uint16
}

// NewConstantPool returns an empty pool (just the zero slot).
func NewConstantPool() *ConstantPool {
	return &ConstantPool{entries: make([]CPEntry, 1)}
}

func (p *ConstantPool) ensureInterns() {
	if p.utf8Intern != nil {
		return
	}
	p.utf8Intern = make(map[string]uint16)
	p.classIntern = make(map[string]uint16)
	p.natIntern = make(map[[2]string]uint16)
	p.methodTypeIntern = make(map[string]uint16)
	for i, e := range p.entries {
		switch e.Tag {
		case TagUtf8:
			if _, ok := p.utf8Intern[e.Utf8]; !ok {
				p.utf8Intern[e.Utf8] = uint16(i)
			}
		}
	}
	// Class/NameAndType/MethodType interning needs Utf8 resolved first,
	// so it is a second pass.
	for i, e := range p.entries {
		switch e.Tag {
		case TagClass:
			if name, ok := p.Utf8At(e.Index1); ok {
				if _, exists := p.classIntern[name]; !exists {
					p.classIntern[name] = uint16(i)
				}
			}
		case TagNameAndType:
			name, _ := p.Utf8At(e.Index1)
			desc, _ := p.Utf8At(e.Index2)
			key := [2]string{name, desc}
			if _, exists := p.natIntern[key]; !exists {
				p.natIntern[key] = uint16(i)
			}
		case TagMethodType:
			if desc, ok := p.Utf8At(e.Index1); ok {
				if _, exists := p.methodTypeIntern[desc]; !exists {
					p.methodTypeIntern[desc] = uint16(i)
				}
			}
		}
	}
}

// Len returns the number of slots, including the unused zero slot and
// the placeholder slots following Long/Double entries.
func (p *ConstantPool) Len() int { return len(p.entries) }

// Append adds a raw entry, returning its 1-based index. Long/Double
// entries additionally push a Tag-0 placeholder, per JVM spec §4.4.5.
func (p *ConstantPool) Append(e CPEntry) uint16 {
	idx := uint16(len(p.entries))
	p.entries = append(p.entries, e)
	if e.Tag == TagLong || e.Tag == TagDouble {
		p.entries = append(p.entries, CPEntry{Tag: 0})
	}
	return idx
}

func (p *ConstantPool) At(idx uint16) (CPEntry, bool) {
	if int(idx) <= 0 || int(idx) >= len(p.entries) {
		return CPEntry{}, false
	}
	return p.entries[idx], true
}

func (p *ConstantPool) set(idx uint16, e CPEntry) {
	p.entries[idx] = e
}

// Utf8At returns the literal string at idx.
func (p *ConstantPool) Utf8At(idx uint16) (string, bool) {
	e, ok := p.At(idx)
	if !ok || e.Tag != TagUtf8 {
		return "", false
	}
	return e.Utf8, true
}

// ClassNameAt returns the internal name referenced by the Class entry
// at idx.
func (p *ConstantPool) ClassNameAt(idx uint16) (string, bool) {
	e, ok := p.At(idx)
	if !ok || e.Tag != TagClass {
		return "", false
	}
	return p.Utf8At(e.Index1)
}

// NameAndTypeAt returns the (name, descriptor) pair at idx.
func (p *ConstantPool) NameAndTypeAt(idx uint16) (name, descriptor string, ok bool) {
	e, ok := p.At(idx)
	if !ok || e.Tag != TagNameAndType {
		return "", "", false
	}
	name, ok1 := p.Utf8At(e.Index1)
	descriptor, ok2 := p.Utf8At(e.Index2)
	return name, descriptor, ok1 && ok2
}

// MemberRef is the decoded (owner, name, descriptor) triple a
// Fieldref/Methodref/InterfaceMethodref entry denotes.
type MemberRef struct {
	Owner       string
	Name        string
	Descriptor  string
	IsInterface bool // true when the entry's tag is TagInterfaceMethodref
}

// MemberRefAt decodes a Fieldref/Methodref/InterfaceMethodref entry.
func (p *ConstantPool) MemberRefAt(idx uint16) (MemberRef, bool) {
	e, ok := p.At(idx)
	if !ok || (e.Tag != TagFieldref && e.Tag != TagMethodref && e.Tag != TagInterfaceMethodref) {
		return MemberRef{}, false
	}
	owner, ok1 := p.ClassNameAt(e.Index1)
	name, desc, ok2 := p.NameAndTypeAt(e.Index2)
	if !ok1 || !ok2 {
		return MemberRef{}, false
	}
	return MemberRef{Owner: owner, Name: name, Descriptor: desc, IsInterface: e.Tag == TagInterfaceMethodref}, true
}

// InternUtf8 returns the index of an existing Utf8 entry equal to s, or
// appends and returns a new one.
func (p *ConstantPool) InternUtf8(s string) uint16 {
	p.ensureInterns()
	if idx, ok := p.utf8Intern[s]; ok {
		return idx
	}
	idx := p.Append(CPEntry{Tag: TagUtf8, Utf8: s})
	p.utf8Intern[s] = idx
	return idx
}

// InternClass returns the index of an existing Class entry named name,
// or creates one (plus its backing Utf8 entry if needed).
func (p *ConstantPool) InternClass(name string) uint16 {
	p.ensureInterns()
	if idx, ok := p.classIntern[name]; ok {
		return idx
	}
	nameIdx := p.InternUtf8(name)
	idx := p.Append(CPEntry{Tag: TagClass, Index1: nameIdx})
	p.classIntern[name] = idx
	return idx
}

// InternNameAndType returns the index of an existing NameAndType(name,
// descriptor) entry, or creates one.
func (p *ConstantPool) InternNameAndType(name, descriptor string) uint16 {
	p.ensureInterns()
	key := [2]string{name, descriptor}
	if idx, ok := p.natIntern[key]; ok {
		return idx
	}
	nameIdx := p.InternUtf8(name)
	descIdx := p.InternUtf8(descriptor)
	idx := p.Append(CPEntry{Tag: TagNameAndType, Index1: nameIdx, Index2: descIdx})
	p.natIntern[key] = idx
	return idx
}

// InternMethodType returns the index of an existing MethodType(descriptor)
// entry, or creates one.
func (p *ConstantPool) InternMethodType(descriptor string) uint16 {
	p.ensureInterns()
	if idx, ok := p.methodTypeIntern[descriptor]; ok {
		return idx
	}
	descIdx := p.InternUtf8(descriptor)
	idx := p.Append(CPEntry{Tag: TagMethodType, Index1: descIdx})
	p.methodTypeIntern[descriptor] = idx
	return idx
}

// RetargetClass rewrites the Class entry at idx to name name, without
// changing idx itself, so every other entry that references this Class
// by index (Fieldref owners, Exceptions, InnerClasses, catch types...)
// observes the new name automatically.
func (p *ConstantPool) RetargetClass(idx uint16, name string) {
	p.set(idx, CPEntry{Tag: TagClass, Index1: p.InternUtf8(name)})
	p.ensureInterns()
	p.classIntern[name] = idx
}

// RetargetMemberRef rewrites the Fieldref/Methodref/InterfaceMethodref
// entry at idx to point at a (freshly interned, never mutated-in-place)
// NameAndType(name, descriptor), leaving idx and the owner Class index
// untouched. A fresh NameAndType is used rather than mutating any
// existing one because NameAndType entries may be shared by unrelated
// owners whose resolved names differ (see package doc comment).
func (p *ConstantPool) RetargetMemberRef(idx uint16, name, descriptor string) {
	e, ok := p.At(idx)
	if !ok {
		return
	}
	e.Index2 = p.InternNameAndType(name, descriptor)
	p.set(idx, e)
}

// RetargetMethodType rewrites the MethodType entry at idx to descriptor,
// without changing idx itself.
func (p *ConstantPool) RetargetMethodType(idx uint16, descriptor string) {
	p.set(idx, CPEntry{Tag: TagMethodType, Index1: p.InternUtf8(descriptor)})
}

func (p *ConstantPool) String() string {
	return fmt.Sprintf("ConstantPool[%d entries]", len(p.entries))
}
