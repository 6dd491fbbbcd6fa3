// Package remap is the visitor layer that rewrites a class set's
// constant pools against a mapping.MappingTree, in the style of
// function_options.go's functional-option/visitor composition (spec
// §4.G).
package remap

import (
	"github.com/Fallen-Breath/monument/hierarchy"
	"github.com/Fallen-Breath/monument/mapping"
)

// ResolveFieldName performs spec §4.G's hierarchy-sensitive member
// resolution for a field reference (owner, name, descriptor): if
// owner's ClassMapping declares the field, its name in nsIndex wins;
// otherwise each declared supertype is tried in order (superclass
// first, then interfaces), recursively. If nothing in the chain
// declares the field, name is returned unchanged.
func ResolveFieldName(tree *mapping.MappingTree, hier *hierarchy.Index, owner, name, descriptor string, nsIndex int) string {
	return resolveMember(tree, hier, owner, name, descriptor, nsIndex, true, make(map[string]bool))
}

// ResolveMethodName is ResolveFieldName's method-table counterpart.
func ResolveMethodName(tree *mapping.MappingTree, hier *hierarchy.Index, owner, name, descriptor string, nsIndex int) string {
	return resolveMember(tree, hier, owner, name, descriptor, nsIndex, false, make(map[string]bool))
}

func resolveMember(tree *mapping.MappingTree, hier *hierarchy.Index, owner, name, descriptor string, nsIndex int, isField bool, visited map[string]bool) string {
	if visited[owner] {
		return name
	}
	visited[owner] = true

	if cm, ok := tree.GetClass(owner); ok {
		key := mapping.MemberDescriptor{Name: name, Descriptor: descriptor}
		if isField {
			if f, ok := cm.Fields[key]; ok {
				return f.Name(nsIndex)
			}
		} else {
			if m, ok := cm.Methods[key]; ok {
				return m.Name(nsIndex)
			}
		}
	}

	for _, super := range hier.Declared(owner) {
		if resolved := resolveMember(tree, hier, super, name, descriptor, nsIndex, isField, visited); resolved != name {
			return resolved
		}
	}
	return name
}
