package remap

import "github.com/Fallen-Breath/monument/mapping"

// ApplyCombined runs a two-stage remap for a CombinedMappingTree:
// Intermediate is applied in full (a complete pass over every class),
// then Named is applied as a second pass over the results, each
// rebuilding the HierarchyIndex from the currently-named classes
// (spec §4.G). Both component trees are two-namespace trees (input at
// index 0, target at index 1), so each pass maps to namespace 1. Only
// the final (Named) pass is eligible for local-variable renaming,
// since lvt synthesis needs the fully-resolved, human-facing names.
func ApplyCombined(classes ClassSet, combined *mapping.CombinedMappingTree) ClassSet {
	hier1 := BuildHierarchy(classes)
	afterIntermediate := Pass(classes, hier1, combined.Intermediate, 1)

	hier2 := BuildHierarchy(afterIntermediate)
	return PassFinal(afterIntermediate, hier2, combined.Named, 1)
}
