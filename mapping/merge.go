package mapping

import (
	"fmt"

	monument "github.com/Fallen-Breath/monument"
)

// Merge produces a tree containing the union of t's and other's
// classes (spec §4.D). Classes present in both (same default name)
// have their field/method tables unioned by MemberDescriptor; shared
// entries must agree on every namespace's name, or the merge fails
// with InconsistentMappings. Disjoint trees merge order-independently,
// so merge(A, B) == merge(B, A) whenever their class sets don't
// overlap.
func (t *MappingTree) Merge(otherTree Tree) (Tree, error) {
	other, ok := otherTree.(*MappingTree)
	if !ok {
		return nil, monument.NewError(monument.KindUnsupported, "mapping.Merge",
			fmt.Errorf("cannot merge a %T into a MappingTree", otherTree))
	}
	if len(t.namespaces) != len(other.namespaces) {
		return nil, monument.NewError(monument.KindInconsistentMappings, "mapping.Merge",
			fmt.Errorf("namespace count mismatch: %d vs %d", len(t.namespaces), len(other.namespaces)))
	}
	for i, ns := range t.namespaces {
		if other.namespaces[i] != ns {
			return nil, monument.NewError(monument.KindInconsistentMappings, "mapping.Merge",
				fmt.Errorf("namespace %d mismatch: %q vs %q", i, ns, other.namespaces[i]))
		}
	}

	out := New(t.namespaces...)
	for key, cm := range t.classes {
		out.classes[key] = cloneClassMapping(cm)
	}
	for key, cm := range other.classes {
		existing, present := out.classes[key]
		if !present {
			out.classes[key] = cloneClassMapping(cm)
			continue
		}
		merged, err := mergeClassMapping(existing, cm)
		if err != nil {
			return nil, err
		}
		out.classes[key] = merged
	}
	return out, nil
}

func cloneClassMapping(cm *ClassMapping) *ClassMapping {
	out := newClassMapping(append([]string(nil), cm.Names...))
	out.Comment = cm.Comment
	for k, f := range cm.Fields {
		out.Fields[k] = f
	}
	for k, m := range cm.Methods {
		out.Methods[k] = m
	}
	return out
}

func mergeClassMapping(a, b *ClassMapping) (*ClassMapping, error) {
	if err := namesAgree(a.Names, b.Names); err != nil {
		return nil, monument.NewError(monument.KindInconsistentMappings, "mapping.Merge",
			fmt.Errorf("class %q: %w", a.Names[0], err))
	}
	out := newClassMapping(reconcileNames(a.Names, b.Names))
	out.Comment = firstNonEmpty(a.Comment, b.Comment)
	for k, f := range a.Fields {
		out.Fields[k] = f
	}
	for k, f := range b.Fields {
		if existing, ok := out.Fields[k]; ok {
			if err := namesAgree(existing.Names, f.Names); err != nil {
				return nil, monument.NewError(monument.KindInconsistentMappings, "mapping.Merge",
					fmt.Errorf("field %s:%s: %w", k.Name, k.Descriptor, err))
			}
			out.Fields[k] = &FieldMapping{
				Names:      reconcileNames(existing.Names, f.Names),
				Descriptor: existing.Descriptor,
				Comment:    firstNonEmpty(existing.Comment, f.Comment),
			}
			continue
		}
		out.Fields[k] = f
	}
	for k, m := range a.Methods {
		out.Methods[k] = m
	}
	for k, m := range b.Methods {
		if existing, ok := out.Methods[k]; ok {
			if err := namesAgree(existing.Names, m.Names); err != nil {
				return nil, monument.NewError(monument.KindInconsistentMappings, "mapping.Merge",
					fmt.Errorf("method %s%s: %w", k.Name, k.Descriptor, err))
			}
			params := make(map[int]*ParameterMapping, len(existing.Parameters)+len(m.Parameters))
			for slot, p := range existing.Parameters {
				params[slot] = p
			}
			for slot, p := range m.Parameters {
				params[slot] = p
			}
			out.Methods[k] = &MethodMapping{
				Names:      reconcileNames(existing.Names, m.Names),
				Descriptor: existing.Descriptor,
				Comment:    firstNonEmpty(existing.Comment, m.Comment),
				Parameters: params,
			}
			continue
		}
		out.Methods[k] = m
	}
	return out, nil
}

// namesAgree reports whether two name vectors for "the same" entity
// disagree on any namespace where both specify a (possibly inherited)
// name.
func namesAgree(a, b []string) error {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		av, bv := effectiveName(a, i), effectiveName(b, i)
		if av != "" && bv != "" && av != bv {
			return fmt.Errorf("conflicting names at namespace %d: %q vs %q", i, av, bv)
		}
	}
	return nil
}

func reconcileNames(a, b []string) []string {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		if i < len(a) && a[i] != "" {
			out[i] = a[i]
			continue
		}
		if i < len(b) {
			out[i] = b[i]
		}
	}
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
