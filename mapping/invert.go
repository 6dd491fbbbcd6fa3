package mapping

import (
	"fmt"

	monument "github.com/Fallen-Breath/monument"
)

// Invert returns a new tree whose default namespace becomes target:
// namespace order is permuted so target sits at index 0, and every
// keyed table is rebuilt under the new default names (spec §4.D).
// Comments and parameter tables are preserved verbatim; only the
// containers they live under are rekeyed.
func (t *MappingTree) Invert(target string) (Tree, error) {
	targetIdx, oldIdxForNewIdx, newNamespaces, err := buildPermutation(t.namespaces, target)
	if err != nil {
		return nil, monument.NewError(monument.KindUnsupported, "mapping.Invert", err)
	}
	_ = targetIdx

	out := New(newNamespaces...)
	for _, cm := range t.classes {
		newCM := newClassMapping(permuteNames(cm.Names, oldIdxForNewIdx))
		newCM.Comment = cm.Comment
		for key, f := range cm.Fields {
			newNames := permuteNames(f.Names, oldIdxForNewIdx)
			newKey := MemberDescriptor{Name: newNames[0], Descriptor: key.Descriptor}
			newCM.Fields[newKey] = &FieldMapping{Names: newNames, Descriptor: f.Descriptor, Comment: f.Comment}
		}
		for key, m := range cm.Methods {
			newNames := permuteNames(m.Names, oldIdxForNewIdx)
			newKey := MemberDescriptor{Name: newNames[0], Descriptor: key.Descriptor}
			newMethod := &MethodMapping{
				Names:      newNames,
				Descriptor: m.Descriptor,
				Comment:    m.Comment,
				Parameters: make(map[int]*ParameterMapping, len(m.Parameters)),
			}
			for slot, p := range m.Parameters {
				newMethod.Parameters[slot] = &ParameterMapping{
					Index:   p.Index,
					Names:   permuteNames(p.Names, oldIdxForNewIdx),
					Comment: p.Comment,
				}
			}
			newCM.Methods[newKey] = newMethod
		}
		if err := out.AddClass(newCM); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// buildPermutation locates target within original and produces the
// inversion index mapping: target's original index and index 0 trade
// places and every other index keeps its position, so inverting the
// result back to original[0] restores the original namespace order.
func buildPermutation(original []string, target string) (targetIdx int, oldIdxForNewIdx []int, newNamespaces []string, err error) {
	targetIdx = -1
	for i, n := range original {
		if n == target {
			targetIdx = i
			break
		}
	}
	if targetIdx < 0 {
		return -1, nil, nil, fmt.Errorf("namespace %q not found", target)
	}
	oldIdxForNewIdx = make([]int, len(original))
	for i := range original {
		oldIdxForNewIdx[i] = i
	}
	oldIdxForNewIdx[0], oldIdxForNewIdx[targetIdx] = targetIdx, 0
	newNamespaces = make([]string, len(original))
	for k, oldIdx := range oldIdxForNewIdx {
		newNamespaces[k] = original[oldIdx]
	}
	return targetIdx, oldIdxForNewIdx, newNamespaces, nil
}

// permuteNames rebuilds a name vector under the new namespace order.
// Position 0 of the result always holds the fully-resolved new default
// name; later positions collapse back to "" when they equal that new
// default, preserving the "missing means same as default" convention
// so a second Invert sees the same canonical shape.
func permuteNames(old []string, oldIdxForNewIdx []int) []string {
	newNames := make([]string, len(oldIdxForNewIdx))
	newKey := effectiveName(old, oldIdxForNewIdx[0])
	for k, oldIdx := range oldIdxForNewIdx {
		v := effectiveName(old, oldIdx)
		if k == 0 || v != newKey {
			newNames[k] = v
		}
	}
	return newNames
}
