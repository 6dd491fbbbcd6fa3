// Package hierarchy builds the per-class declared-supertype index the
// remapper consults for hierarchy-sensitive member resolution (spec
// §3, §4.F). Represented as a flat map[string][]string rather than an
// object graph with back-pointers, the same style as the dependency
// registry's flat name-keyed table — a DAG of names, recursed with a
// visited set, never embedding pointers between class nodes (design
// note (b)).
package hierarchy

// Index maps an internal class name to its declared supertypes:
// superclass first (if any), then declared interfaces in declaration
// order. Only classes present in the current remap job's jar are
// populated; a lookup miss means "supertype outside this jar", which
// callers must treat as the end of the chain (spec §4.F: "filtered to
// only those classes present in the current jar").
type Index struct {
	supertypes map[string][]string
}

// New builds an empty Index.
func New() *Index {
	return &Index{supertypes: make(map[string][]string)}
}

// Add records name's declared supertypes (superclass first, then
// interfaces). Calling Add again for the same name overwrites its
// entry — the index is built once per job, single-threaded, and then
// treated as read-only (spec §5).
func (idx *Index) Add(name string, superName string, interfaceNames []string) {
	supers := make([]string, 0, 1+len(interfaceNames))
	if superName != "" {
		supers = append(supers, superName)
	}
	supers = append(supers, interfaceNames...)
	idx.supertypes[name] = supers
}

// Declared returns the immediate declared supertypes of name
// (superclass first, then interfaces), or nil if name is unknown.
func (idx *Index) Declared(name string) []string {
	return idx.supertypes[name]
}

// Has reports whether name is present in this job's class set.
func (idx *Index) Has(name string) bool {
	_, ok := idx.supertypes[name]
	return ok
}

// Walk visits every transitive supertype of name in declared order
// (superclass-first preorder), calling visit for each. Walk stops
// early if visit returns false. A visited set guards against cyclic or
// repeated graphs, since Index stores names, not objects, and nothing
// prevents a diamond interface hierarchy from being walked twice
// without it.
func (idx *Index) Walk(name string, visit func(supertype string) bool) {
	visited := make(map[string]bool)
	idx.walk(name, visited, visit)
}

func (idx *Index) walk(name string, visited map[string]bool, visit func(string) bool) bool {
	for _, super := range idx.supertypes[name] {
		if visited[super] {
			continue
		}
		visited[super] = true
		if !visit(super) {
			return false
		}
		if !idx.walk(super, visited, visit) {
			return false
		}
	}
	return true
}

// TransitiveSupertypes returns every transitive supertype of name,
// superclass-first preorder, each appearing once.
func (idx *Index) TransitiveSupertypes(name string) []string {
	var out []string
	idx.Walk(name, func(s string) bool {
		out = append(out, s)
		return true
	})
	return out
}
