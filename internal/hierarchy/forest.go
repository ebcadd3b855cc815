// Package hierarchy reconstructs the parent/child forest from a flat
// catalog snapshot. The builder never fails: a parent reference that does
// not resolve within the snapshot demotes the entity to a root, because
// snapshots are frequently partial (filtered views).
package hierarchy

import (
	"strings"

	"github.com/terrasense/agriops/internal/types"
)

// Node is one entity in the forest together with its attached children.
type Node struct {
	Entity   types.Entity `json:"entity"`
	Children []*Node      `json:"children,omitempty"`
}

// BuildForest converts a flat entity slice into a sorted forest. Two
// passes: index every entity by id, then attach each node to its parent
// when the parent resolves in the index, otherwise keep it as a root.
// Self-references never resolve to an attachment, so they demote to root
// like any other unresolved parent.
func BuildForest(entities []types.Entity) []*Node {
	index := make(map[string]*Node, len(entities))
	for _, e := range entities {
		index[e.ID] = &Node{Entity: e}
	}

	var roots []*Node
	for _, e := range entities {
		node := index[e.ID]
		parent, ok := index[e.ParentID]
		if e.ParentID == "" || !ok || parent == node {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	sortForest(roots)
	return roots
}

// sortForest orders every level of the forest: parcels first, then by
// name. Case differences only break ties between otherwise equal names,
// so "field-2" and "Field-10" sort by their folded forms.
func sortForest(nodes []*Node) {
	sortLevel(nodes)
	for _, n := range nodes {
		sortForest(n.Children)
	}
}

func sortLevel(nodes []*Node) {
	// Insertion sort keeps the pass stable without pulling in sort.Slice
	// closures per level; levels are small in practice.
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && less(nodes[j], nodes[j-1]); j-- {
			nodes[j], nodes[j-1] = nodes[j-1], nodes[j]
		}
	}
}

func less(a, b *Node) bool {
	aParcel := a.Entity.Category == types.CategoryParcels
	bParcel := b.Entity.Category == types.CategoryParcels
	if aParcel != bParcel {
		return aParcel
	}
	an := strings.ToLower(a.Entity.Name)
	bn := strings.ToLower(b.Entity.Name)
	if an != bn {
		return an < bn
	}
	return a.Entity.Name < b.Entity.Name
}

// CountOrphans reports how many roots are orphans: non-parcel entities
// with no resolvable parent in the current view. Being a root already
// means the parent was absent or never set, so category is the only test.
// A reporting concept, not a correctness error.
func CountOrphans(roots []*Node) int {
	n := 0
	for _, r := range roots {
		if r.Entity.Category != types.CategoryParcels {
			n++
		}
	}
	return n
}
