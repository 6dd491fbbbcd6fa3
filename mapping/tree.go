// Package mapping implements the multi-namespace class/field/method/
// parameter mapping tree model (spec §3-4.D/E) and its tiny/Proguard
// text-format parsers.
package mapping

import (
	"fmt"

	monument "github.com/Fallen-Breath/monument"
)

// MemberDescriptor is the (name, JVM descriptor) lookup key for fields
// and methods inside a ClassMapping; both fields participate in
// equality, which Go structs of comparable fields give for free as a
// map key.
type MemberDescriptor struct {
	Name       string
	Descriptor string
}

// ParameterMapping names one method parameter/local slot.
type ParameterMapping struct {
	Index   int
	Names   []string
	Comment string
}

// FieldMapping is one field's name vector, descriptor and comment.
type FieldMapping struct {
	Names      []string
	Descriptor string
	Comment    string
}

// MethodMapping is one method's name vector, descriptor, comment and
// sparse parameter table keyed by local-variable slot index.
type MethodMapping struct {
	Names      []string
	Descriptor string
	Comment    string
	Parameters map[int]*ParameterMapping
}

// ClassMapping is one class's name vector plus its member tables.
// Names[0] always equals the key this ClassMapping is stored under in
// its owning MappingTree.
type ClassMapping struct {
	Names   []string
	Fields  map[MemberDescriptor]*FieldMapping
	Methods map[MemberDescriptor]*MethodMapping
	Comment string
}

// Name resolves the class's name in namespace nsIndex, falling back to
// the default (namespace-0) name when unset.
func (c *ClassMapping) Name(nsIndex int) string { return effectiveName(c.Names, nsIndex) }

// Name resolves the field's name in namespace nsIndex.
func (f *FieldMapping) Name(nsIndex int) string { return effectiveName(f.Names, nsIndex) }

// Name resolves the method's name in namespace nsIndex.
func (m *MethodMapping) Name(nsIndex int) string { return effectiveName(m.Names, nsIndex) }

// Name resolves the parameter's name in namespace nsIndex.
func (p *ParameterMapping) Name(nsIndex int) string { return effectiveName(p.Names, nsIndex) }

func newClassMapping(names []string) *ClassMapping {
	return &ClassMapping{
		Names:   names,
		Fields:  make(map[MemberDescriptor]*FieldMapping),
		Methods: make(map[MemberDescriptor]*MethodMapping),
	}
}

// Tree is the common interface MappingTree and CombinedMappingTree
// both satisfy. CombinedMappingTree's Invert/Merge/MapType return a
// KindUnsupported *monument.Error rather than being removed from the
// interface (design note (b)): callers get a typed, catchable error
// instead of a compile-time wall, and a CombinedMappingTree can still
// be passed anywhere a Tree is expected.
type Tree interface {
	NamespaceCount() int
	Namespaces() []string
	MapType(internalName string, nsIndex int) (string, error)
	Invert(targetNamespace string) (Tree, error)
	Merge(other Tree) (Tree, error)
	GetClass(defaultName string) (*ClassMapping, bool)
	Classes() []*ClassMapping
}

// MappingTree is the concrete multi-namespace mapping table (spec §3).
type MappingTree struct {
	namespaces []string
	classes    map[string]*ClassMapping
	properties map[string]string
}

// New returns an empty tree over namespaces, namespace 0 being default.
func New(namespaces ...string) *MappingTree {
	ns := append([]string(nil), namespaces...)
	return &MappingTree{
		namespaces: ns,
		classes:    make(map[string]*ClassMapping),
		properties: make(map[string]string),
	}
}

func (t *MappingTree) NamespaceCount() int   { return len(t.namespaces) }
func (t *MappingTree) Namespaces() []string  { return append([]string(nil), t.namespaces...) }
func (t *MappingTree) Properties() map[string]string { return t.properties }
func (t *MappingTree) SetProperty(key, value string) { t.properties[key] = value }
func (t *MappingTree) HasProperty(key string) bool    { _, ok := t.properties[key]; return ok }

func (t *MappingTree) indexOf(namespace string) int {
	for i, n := range t.namespaces {
		if n == namespace {
			return i
		}
	}
	return -1
}

// AddClass registers cm under its default (namespace-0) name. Returns
// an InconsistentMappings error if a class is already registered under
// that name — spec §3: "a class may appear exactly once per tree".
func (t *MappingTree) AddClass(cm *ClassMapping) error {
	if len(cm.Names) != len(t.namespaces) {
		return monument.NewError(monument.KindBadFormat, "mapping.AddClass",
			fmt.Errorf("name vector length %d != namespace count %d", len(cm.Names), len(t.namespaces)))
	}
	key := cm.Names[0]
	if _, exists := t.classes[key]; exists {
		return monument.NewError(monument.KindInconsistentMappings, "mapping.AddClass",
			fmt.Errorf("class %q already present in tree", key))
	}
	t.classes[key] = cm
	return nil
}

// GetClass returns the ClassMapping keyed by its default name.
func (t *MappingTree) GetClass(defaultName string) (*ClassMapping, bool) {
	cm, ok := t.classes[defaultName]
	return cm, ok
}

// Classes returns every registered class, in no particular order.
func (t *MappingTree) Classes() []*ClassMapping {
	out := make([]*ClassMapping, 0, len(t.classes))
	for _, cm := range t.classes {
		out = append(out, cm)
	}
	return out
}

// MapType returns internalName's name in namespace nsIndex, or
// internalName unchanged if the class is unknown or carries no name in
// that namespace. Per spec §4.D this operates on bare internal class
// names only; array-dimension and descriptor composition is the
// remapper's job (classfile.MapDescriptor).
func (t *MappingTree) MapType(internalName string, nsIndex int) (string, error) {
	cm, ok := t.classes[internalName]
	if !ok {
		return internalName, nil
	}
	return effectiveName(cm.Names, nsIndex), nil
}

// effectiveName resolves index i of names, falling back to the
// namespace-0 (default) name when the entry is empty — the "missing
// entries mean same as default" invariant (spec §3).
func effectiveName(names []string, i int) string {
	if i >= 0 && i < len(names) && names[i] != "" {
		return names[i]
	}
	if len(names) > 0 {
		return names[0]
	}
	return ""
}
