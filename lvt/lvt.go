// Package lvt synthesizes readable, non-colliding local-variable and
// parameter names for methods that lack (or only partially carry)
// debug information, as the final step of a remap pass (spec §4.H).
// Grounded on utils/names.go's shape — turn an arbitrary string into a
// valid, non-colliding identifier, with regex validity checks and
// counter-suffix collision resolution — generalized here from
// "directory path to function name" to "type descriptor to variable
// name".
package lvt

import (
	"regexp"

	"github.com/Fallen-Breath/monument/classfile"
	"github.com/Fallen-Breath/monument/hierarchy"
	"github.com/Fallen-Breath/monument/mapping"
)

var placeholderName = regexp.MustCompile(`^lvt\d+$`)

// Rename synthesizes or applies mapped names for every eligible row of
// m's LocalVariableTable in place.
//
// owner, name and descriptor are m's identity BEFORE the enclosing
// remap pass renamed it — the same pre-mutation snapshot the pass uses
// for hierarchy-sensitive member resolution (spec §4.G) — so the
// parameter-mapping lookup below walks the same mapping tree and
// hierarchy index as everything else in the pass, rather than
// requiring a separately-inverted tree: a method mapping's own
// Descriptor field is never touched by Invert, so matching it against
// an already-remapped descriptor would silently miss any parameter
// whose type was itself renamed.
//
// m's own name/descriptor and its LocalVariableTable row descriptors
// are assumed already rewritten to their post-remap form by the time
// Rename runs, so synthesized names (which read the row's descriptor)
// see the final, human-facing type names.
//
// Methods without debug information (no LocalVariableTable) are left
// untouched — this package has nothing to attach a synthesized name
// to, since the decoder does not model the separate MethodParameters
// attribute some compilers emit.
func Rename(cf *classfile.ClassFile, m *classfile.MethodInfo, hier *hierarchy.Index, tree *mapping.MappingTree, owner, name, descriptor string, nsIndex int) {
	if m.Code == nil || len(m.Code.LocalVariableTable) == 0 {
		return
	}
	pool := cf.Pool
	methodMapping := findMethodMapping(tree, hier, owner, name, descriptor, make(map[string]bool))

	n := newNamer(nil)

	// Reserve every row's current name up front, so that synthesis
	// never collides with a name the bytecode already carries (spec
	// "record as taken"). Rows this pass will overwrite (parameter
	// mappings, or placeholder "lvtN" names destined for synthesis)
	// are skipped here and handled below.
	for i := range m.Code.LocalVariableTable {
		row := &m.Code.LocalVariableTable[i]
		if !m.IsStatic() && row.Slot == 0 {
			continue // `this`
		}
		if methodMapping != nil {
			if _, ok := methodMapping.Parameters[int(row.Slot)]; ok {
				continue
			}
		}
		current, _ := pool.Utf8At(row.NameIndex)
		if placeholderName.MatchString(current) {
			continue
		}
		n.reserve(current)
	}

	for i := range m.Code.LocalVariableTable {
		row := &m.Code.LocalVariableTable[i]
		if !m.IsStatic() && row.Slot == 0 {
			continue
		}
		if methodMapping != nil {
			if pm, ok := methodMapping.Parameters[int(row.Slot)]; ok {
				mapped := pm.Name(nsIndex)
				row.NameIndex = pool.InternUtf8(mapped)
				n.reserve(mapped)
				continue
			}
		}
		current, _ := pool.Utf8At(row.NameIndex)
		if !placeholderName.MatchString(current) {
			continue
		}
		desc, _ := pool.Utf8At(row.DescIndex)
		base, letterIncrement, ok := baseNameForDescriptor(desc, hier)
		if !ok {
			// Unsupported: an unrecognized descriptor leading byte
			// (spec §7). Caller logs; original placeholder name
			// stands.
			continue
		}
		row.NameIndex = pool.InternUtf8(n.assign(base, letterIncrement))
	}
}

// findMethodMapping looks up owner's declared MethodMapping for
// (name, descriptor), falling back to the same declared-supertype walk
// used by §4.G's member resolution. A constructor ("<init>") is never
// considered inherited, so the walk does not recurse past it for
// supertypes; whether a supertype's declaration is private is not
// modeled here (the hierarchy index carries only declared supertype
// names, not member access flags), so unlike the letter of spec §4.H
// this does not exclude private super-declarations explicitly — in
// practice a private method is never a valid override target, so a
// supertype mapping entry under that name/descriptor would not
// plausibly apply to this call site's parameter slots anyway.
func findMethodMapping(tree *mapping.MappingTree, hier *hierarchy.Index, owner, name, descriptor string, visited map[string]bool) *mapping.MethodMapping {
	if visited[owner] {
		return nil
	}
	visited[owner] = true

	if cm, ok := tree.GetClass(owner); ok {
		if mm, ok := cm.Methods[mapping.MemberDescriptor{Name: name, Descriptor: descriptor}]; ok {
			return mm
		}
	}
	if name == "<init>" {
		return nil
	}
	for _, super := range hier.Declared(owner) {
		if mm := findMethodMapping(tree, hier, super, name, descriptor, visited); mm != nil {
			return mm
		}
	}
	return nil
}
