package mapping

import (
	"fmt"

	monument "github.com/Fallen-Breath/monument"
)

// CombinedMappingTree presents two MappingTrees (Intermediate, Named)
// as one tree, existing only to be consumed by the remapper, which
// applies the two component trees in sequence (spec §3, §4.G).
// Invert/Merge/MapType are unsupported (design note (b)): they return
// a KindUnsupported *monument.Error rather than being dropped from the
// Tree interface, so a CombinedMappingTree still satisfies Tree
// structurally and can be passed anywhere a Tree is expected.
type CombinedMappingTree struct {
	Intermediate *MappingTree
	Named        *MappingTree
}

// NewCombinedMappingTree pairs intermediate and named for sequential
// application by the remapper.
func NewCombinedMappingTree(intermediate, named *MappingTree) *CombinedMappingTree {
	return &CombinedMappingTree{Intermediate: intermediate, Named: named}
}

func (c *CombinedMappingTree) NamespaceCount() int  { return c.Named.NamespaceCount() }
func (c *CombinedMappingTree) Namespaces() []string { return c.Named.Namespaces() }

func (c *CombinedMappingTree) GetClass(defaultName string) (*ClassMapping, bool) {
	return c.Named.GetClass(defaultName)
}

func (c *CombinedMappingTree) Classes() []*ClassMapping { return c.Named.Classes() }

func unsupported(op string) error {
	return monument.NewError(monument.KindUnsupported, op,
		fmt.Errorf("not supported on a CombinedMappingTree"))
}

func (c *CombinedMappingTree) MapType(internalName string, nsIndex int) (string, error) {
	return "", unsupported("mapping.(*CombinedMappingTree).MapType")
}

func (c *CombinedMappingTree) Invert(targetNamespace string) (Tree, error) {
	return nil, unsupported("mapping.(*CombinedMappingTree).Invert")
}

func (c *CombinedMappingTree) Merge(other Tree) (Tree, error) {
	return nil, unsupported("mapping.(*CombinedMappingTree).Merge")
}

var (
	_ Tree = (*MappingTree)(nil)
	_ Tree = (*CombinedMappingTree)(nil)
)
