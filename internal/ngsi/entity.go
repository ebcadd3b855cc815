// Package ngsi holds the NGSI-LD wire types the console exchanges with the
// context broker, and the HTTP client that speaks them. Only the attributes
// the hierarchy engine reads or writes are modelled; everything else on a
// broker entity is ignored.
package ngsi

import (
	"encoding/json"
	"strings"

	"github.com/terrasense/agriops/internal/types"
)

// Relationship attribute names. These are the externally visible contract —
// they must match what the context broker stores.
const (
	RefAgriParcel     = "refAgriParcel"
	RefAgriFarm       = "refAgriFarm"
	RefAgriGreenhouse = "refAgriGreenhouse"
)

// RelationshipAttributes is the mutual-exclusivity set: an entity holds at
// most one of these at a time. Order is the resolution priority when the
// broker carries stale leftovers on more than one.
var RelationshipAttributes = []string{RefAgriParcel, RefAgriFarm, RefAgriGreenhouse}

// Property is an NGSI-LD property attribute.
type Property struct {
	Type  string `json:"type"` // always "Property"
	Value any    `json:"value"`
}

// Relationship is an NGSI-LD relationship attribute pointing at another
// entity's identifier.
type Relationship struct {
	Type   string `json:"type"` // always "Relationship"
	Object string `json:"object"`
}

// NewRelationship builds a Relationship payload for the given target id.
func NewRelationship(object string) *Relationship {
	return &Relationship{Type: "Relationship", Object: object}
}

// AttributeFragment is the entity fragment sent in a single PATCH to
// /entities/{id}/attrs. A nil value marshals to JSON null, which the broker
// treats as "clear this attribute".
type AttributeFragment map[string]*Relationship

// Entity is the normalized NGSI-LD representation of a console entity.
type Entity struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Name          *Property       `json:"name,omitempty"`
	Status        *Property       `json:"status,omitempty"`
	Municipality  *Property       `json:"municipality,omitempty"`
	Location      json.RawMessage `json:"location,omitempty"`
	RefParcel     *Relationship   `json:"refAgriParcel,omitempty"`
	RefFarm       *Relationship   `json:"refAgriFarm,omitempty"`
	RefGreenhouse *Relationship   `json:"refAgriGreenhouse,omitempty"`
}

// relationshipByName returns the named relationship attribute, if set.
func (e Entity) relationshipByName(name string) *Relationship {
	switch name {
	case RefAgriParcel:
		return e.RefParcel
	case RefAgriFarm:
		return e.RefFarm
	case RefAgriGreenhouse:
		return e.RefGreenhouse
	default:
		return nil
	}
}

// ParentID derives the single parent reference from the relationship
// attributes, walking the priority order. At most one should be set; if the
// broker holds leftovers on more than one, the first in order wins.
func (e Entity) ParentID() string {
	for _, name := range RelationshipAttributes {
		if rel := e.relationshipByName(name); rel != nil && rel.Object != "" {
			return rel.Object
		}
	}
	return ""
}

// ToEntity flattens the wire representation into the console's domain shape.
// hasLocation means the broker entity carries a location attribute at all;
// the geometry itself is not interpreted here.
func (e Entity) ToEntity() types.Entity {
	out := types.Entity{
		ID:          e.ID,
		Type:        e.Type,
		Category:    types.CategoryForType(e.Type),
		ParentID:    e.ParentID(),
		Status:      types.StatusUnknown,
		HasLocation: len(e.Location) > 0 && string(e.Location) != "null",
	}
	if e.Name != nil {
		if s, ok := e.Name.Value.(string); ok {
			out.Name = s
		}
	}
	if e.Status != nil {
		if s, ok := e.Status.Value.(string); ok && s != "" {
			out.Status = strings.ToLower(s)
		}
	}
	if e.Municipality != nil {
		if s, ok := e.Municipality.Value.(string); ok {
			out.Municipality = s
		}
	}
	return out
}
