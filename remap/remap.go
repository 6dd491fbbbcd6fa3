package remap

import (
	"strings"

	"github.com/Fallen-Breath/monument/classfile"
	"github.com/Fallen-Breath/monument/hierarchy"
	"github.com/Fallen-Breath/monument/lvt"
	"github.com/Fallen-Breath/monument/mapping"
)

// ClassSet is a remap job's working set of classes, keyed by each
// class's CURRENT internal name.
type ClassSet map[string]*classfile.ClassFile

// BuildHierarchy constructs a HierarchyIndex from the current state of
// classes (spec §4.G: "each pass rebuilds the HierarchyIndex from the
// currently-named classes").
func BuildHierarchy(classes ClassSet) *hierarchy.Index {
	idx := hierarchy.New()
	for name, cf := range classes {
		idx.Add(name, cf.SuperName(), cf.InterfaceNames())
	}
	return idx
}

// Pass applies tree's namespace nsIndex to every class in classes,
// returning a new ClassSet keyed by the post-remap internal names.
// hier must reflect classes' names as they stand before this pass
// (BuildHierarchy's output) — spec §4.G. Local-variable renaming never
// runs on this entrypoint; use PassFinal for the last pass of a chain
// (spec §4.H: "only the final pass enables local-variable renaming").
func Pass(classes ClassSet, hier *hierarchy.Index, tree *mapping.MappingTree, nsIndex int) ClassSet {
	return pass(classes, hier, tree, nsIndex, false)
}

// PassFinal is Pass plus local-variable/parameter renaming (spec
// §4.H), for use as the last pass of a remap job.
func PassFinal(classes ClassSet, hier *hierarchy.Index, tree *mapping.MappingTree, nsIndex int) ClassSet {
	return pass(classes, hier, tree, nsIndex, true)
}

func pass(classes ClassSet, hier *hierarchy.Index, tree *mapping.MappingTree, nsIndex int, renameLocals bool) ClassSet {
	out := make(ClassSet, len(classes))
	for _, cf := range classes {
		remapClass(cf, hier, tree, nsIndex, renameLocals)
		out[cf.Name()] = cf
	}
	return out
}

func mapFn(tree *mapping.MappingTree, nsIndex int) func(string) string {
	return func(n string) string {
		mapped, _ := tree.MapType(n, nsIndex)
		return mapped
	}
}

// mapClassEntryName maps the name carried by a CONSTANT_Class entry,
// which unlike a field/method descriptor is either a bare internal
// name or a full array descriptor ("[Ljava/lang/String;", "[I") — it
// is never wrapped in a lone "L...;" the way a field descriptor is.
func mapClassEntryName(tree *mapping.MappingTree, name string, nsIndex int) string {
	if strings.HasPrefix(name, "[") {
		return classfile.MapDescriptor(name, mapFn(tree, nsIndex))
	}
	mapped, _ := tree.MapType(name, nsIndex)
	return mapped
}

func remapClass(cf *classfile.ClassFile, hier *hierarchy.Index, tree *mapping.MappingTree, nsIndex int, renameLocals bool) {
	originalName := cf.Name()
	pool := cf.Pool

	// Snapshot each method's pre-remap (name, descriptor) now, before
	// remapDeclaredMembers below mutates them, for lvt's mapping-tree
	// lookup (spec §4.H needs the same pre-mutation identity §4.G's
	// member resolution uses).
	type methodIdentity struct{ name, descriptor string }
	originalMethodIdentities := make([]methodIdentity, len(cf.Methods))
	for i, m := range cf.Methods {
		originalMethodIdentities[i] = methodIdentity{name: m.Name(pool), descriptor: m.Descriptor(pool)}
	}

	type classEdit struct {
		idx  uint16
		name string
	}
	type memberEdit struct {
		idx        uint16
		name       string
		descriptor string
	}
	type methodTypeEdit struct {
		idx        uint16
		descriptor string
	}
	type dynamicEdit struct {
		idx        uint16
		name       string
		descriptor string
	}

	var classEdits []classEdit
	var memberEdits []memberEdit
	var methodTypeEdits []methodTypeEdit
	var dynamicEdits []dynamicEdit

	for i := 1; i < pool.Len(); i++ {
		e, ok := pool.At(uint16(i))
		if !ok {
			continue
		}
		switch e.Tag {
		case classfile.TagClass:
			name, ok := pool.ClassNameAt(uint16(i))
			if !ok {
				continue
			}
			classEdits = append(classEdits, classEdit{idx: uint16(i), name: mapClassEntryName(tree, name, nsIndex)})
		case classfile.TagFieldref, classfile.TagMethodref, classfile.TagInterfaceMethodref:
			ref, ok := pool.MemberRefAt(uint16(i))
			if !ok {
				continue
			}
			var resolved string
			if e.Tag == classfile.TagFieldref {
				resolved = ResolveFieldName(tree, hier, ref.Owner, ref.Name, ref.Descriptor, nsIndex)
			} else {
				resolved = ResolveMethodName(tree, hier, ref.Owner, ref.Name, ref.Descriptor, nsIndex)
			}
			mappedDesc := classfile.MapDescriptor(ref.Descriptor, mapFn(tree, nsIndex))
			memberEdits = append(memberEdits, memberEdit{idx: uint16(i), name: resolved, descriptor: mappedDesc})
		case classfile.TagMethodType:
			desc, ok := pool.Utf8At(e.Index1)
			if !ok {
				continue
			}
			methodTypeEdits = append(methodTypeEdits, methodTypeEdit{idx: uint16(i), descriptor: classfile.MapDescriptor(desc, mapFn(tree, nsIndex))})
		case classfile.TagDynamic, classfile.TagInvokeDynamic:
			// The NameAndType a Dynamic/InvokeDynamic entry points to
			// (Index2) carries the call site's own functional-interface
			// descriptor, which can itself reference a class being
			// remapped (e.g. a project-local SAM type) — it needs the
			// same descriptor rewrite a Fieldref/Methodref gets, even
			// though nothing here points at a Class entry to resolve via
			// the hierarchy. The invoked name is left untouched: it names
			// the functional interface's abstract method, not a member of
			// any class this pool references directly.
			name, desc, ok := pool.NameAndTypeAt(e.Index2)
			if !ok {
				continue
			}
			dynamicEdits = append(dynamicEdits, dynamicEdit{idx: uint16(i), name: name, descriptor: classfile.MapDescriptor(desc, mapFn(tree, nsIndex))})
		}
	}

	for _, e := range classEdits {
		pool.RetargetClass(e.idx, e.name)
	}
	for _, e := range memberEdits {
		pool.RetargetMemberRef(e.idx, e.name, e.descriptor)
	}
	for _, e := range methodTypeEdits {
		pool.RetargetMethodType(e.idx, e.descriptor)
	}
	for _, e := range dynamicEdits {
		// RetargetMemberRef only ever touches Index2 (interning a fresh
		// NameAndType) and leaves Index1/Tag alone, which is exactly what
		// a Dynamic/InvokeDynamic entry's bootstrap_method_attr_index
		// needs too.
		pool.RetargetMemberRef(e.idx, e.name, e.descriptor)
	}

	remapDeclaredMembers(cf, tree, originalName, nsIndex)
	remapRecordComponents(cf, tree, originalName, nsIndex)
	remapLocalVariableTables(cf, tree, nsIndex)
	synthesizeSourceFile(cf)

	if renameLocals {
		for i, m := range cf.Methods {
			id := originalMethodIdentities[i]
			lvt.Rename(cf, m, hier, tree, originalName, id.name, id.descriptor, nsIndex)
		}
	}
}

// remapDeclaredMembers renames cf's own field/method declarations.
// Unlike member *references* (handled above via hierarchy-sensitive
// resolution), a declaration is looked up directly against its own
// class's ClassMapping only — a field can't inherit its own name from
// a supertype's mapping.
func remapDeclaredMembers(cf *classfile.ClassFile, tree *mapping.MappingTree, originalName string, nsIndex int) {
	pool := cf.Pool
	for _, f := range cf.Fields {
		name, _ := pool.Utf8At(f.NameIndex)
		descriptor, _ := pool.Utf8At(f.DescIndex)
		if mapped, ok := lookupOwnField(tree, originalName, name, descriptor, nsIndex); ok {
			f.NameIndex = pool.InternUtf8(mapped)
		}
		f.DescIndex = pool.InternUtf8(classfile.MapDescriptor(descriptor, mapFn(tree, nsIndex)))
	}
	for _, m := range cf.Methods {
		name, _ := pool.Utf8At(m.NameIndex)
		descriptor, _ := pool.Utf8At(m.DescIndex)
		if mapped, ok := lookupOwnMethod(tree, originalName, name, descriptor, nsIndex); ok {
			m.NameIndex = pool.InternUtf8(mapped)
		}
		m.DescIndex = pool.InternUtf8(classfile.MapDescriptor(descriptor, mapFn(tree, nsIndex)))
	}
}

// remapRecordComponents renames Record attribute components "using
// the same resolution as fields" (spec §4.G) — a direct own-class
// lookup, since record components aren't an inherited concept.
func remapRecordComponents(cf *classfile.ClassFile, tree *mapping.MappingTree, originalName string, nsIndex int) {
	if !cf.IsRecord {
		return
	}
	pool := cf.Pool
	for i := range cf.RecordComponents {
		comp := &cf.RecordComponents[i]
		name, _ := pool.Utf8At(comp.NameIndex)
		descriptor, _ := pool.Utf8At(comp.DescIndex)
		if mapped, ok := lookupOwnField(tree, originalName, name, descriptor, nsIndex); ok {
			comp.NameIndex = pool.InternUtf8(mapped)
		}
		comp.DescIndex = pool.InternUtf8(classfile.MapDescriptor(descriptor, mapFn(tree, nsIndex)))
	}
}

// remapLocalVariableTables rewrites the type descriptor recorded by
// each LocalVariableTable row. LocalVariableTypeTable rows carry a
// generic *signature*, not a plain descriptor, and signature grammar
// (type parameters, wildcards, bounds) is intentionally out of scope —
// those rows pass through unrewritten (see classfile package doc
// comment).
func remapLocalVariableTables(cf *classfile.ClassFile, tree *mapping.MappingTree, nsIndex int) {
	pool := cf.Pool
	for _, m := range cf.Methods {
		if m.Code == nil {
			continue
		}
		for i := range m.Code.LocalVariableTable {
			row := &m.Code.LocalVariableTable[i]
			desc, _ := pool.Utf8At(row.DescIndex)
			row.DescIndex = pool.InternUtf8(classfile.MapDescriptor(desc, mapFn(tree, nsIndex)))
		}
	}
}

// synthesizeSourceFile fills in a missing SourceFile attribute from
// the class's (already remapped) simple name: the segment after the
// last '/' up to the first '$', with ".java" appended (spec §4.G).
func synthesizeSourceFile(cf *classfile.ClassFile) {
	if cf.SourceFile != nil {
		return
	}
	name := cf.Name()
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.IndexByte(name, '$'); idx >= 0 {
		name = name[:idx]
	}
	idx := cf.Pool.InternUtf8(name + ".java")
	cf.SourceFile = &idx
}

func lookupOwnField(tree *mapping.MappingTree, owner, name, descriptor string, nsIndex int) (string, bool) {
	cm, ok := tree.GetClass(owner)
	if !ok {
		return "", false
	}
	f, ok := cm.Fields[mapping.MemberDescriptor{Name: name, Descriptor: descriptor}]
	if !ok {
		return "", false
	}
	return f.Name(nsIndex), true
}

func lookupOwnMethod(tree *mapping.MappingTree, owner, name, descriptor string, nsIndex int) (string, bool) {
	cm, ok := tree.GetClass(owner)
	if !ok {
		return "", false
	}
	m, ok := cm.Methods[mapping.MemberDescriptor{Name: name, Descriptor: descriptor}]
	if !ok {
		return "", false
	}
	return m.Name(nsIndex), true
}
