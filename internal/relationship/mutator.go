// Package relationship plans parent-reference changes. A plan is a single
// attribute fragment the caller applies through the repository in one
// PATCH; planning itself performs no I/O.
package relationship

import (
	"errors"

	"github.com/terrasense/agriops/internal/ngsi"
	"github.com/terrasense/agriops/internal/types"
)

// ErrUnknownParent is returned when the requested parent id is not present
// in the catalog snapshot. Only an empty id — "remove relationship" — may
// skip resolution.
var ErrUnknownParent = errors.New("parent entity not in catalog")

// Plan describes the attribute mutation for one (child, new parent) pair.
type Plan struct {
	// NoOp means the child already points at the requested parent and no
	// patch should be sent. Repeated application of the same target must
	// never generate traffic.
	NoOp bool
	// Attribute is the relationship attribute selected for the new
	// parent; empty when removing or NoOp.
	Attribute string
	// Fragment is the patch to apply. It always covers the full
	// mutual-exclusivity set: the selected attribute gets the new
	// reference, every competitor is cleared. Competitors are cleared
	// even when the snapshot never showed them set, because the broker
	// may hold leftover state.
	Fragment ngsi.AttributeFragment
}

// attributeForParent selects the relationship attribute for a parent type.
// The broker models "located at" differently per parent kind; parcels are
// the default arm, covering every type the table does not name.
func attributeForParent(parentType string) string {
	switch parentType {
	case "AgriFarm":
		return ngsi.RefAgriFarm
	case "AgriGreenhouse":
		return ngsi.RefAgriGreenhouse
	default:
		return ngsi.RefAgriParcel
	}
}

// PlanChange computes the patch that reparents child under newParentID.
// An empty newParentID removes the relationship. The catalog is the
// current snapshot keyed by id; the new parent must resolve in it.
func PlanChange(child types.Entity, newParentID string, catalog map[string]types.Entity) (Plan, error) {
	if newParentID == child.ParentID {
		return Plan{NoOp: true}, nil
	}

	frag := make(ngsi.AttributeFragment, len(ngsi.RelationshipAttributes))
	for _, attr := range ngsi.RelationshipAttributes {
		frag[attr] = nil
	}

	if newParentID == "" {
		return Plan{Fragment: frag}, nil
	}

	parent, ok := catalog[newParentID]
	if !ok {
		return Plan{}, ErrUnknownParent
	}
	attr := attributeForParent(parent.Type)
	frag[attr] = ngsi.NewRelationship(newParentID)
	return Plan{Attribute: attr, Fragment: frag}, nil
}
