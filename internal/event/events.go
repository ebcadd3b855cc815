// Package event defines the domain events the engine emits toward
// presentation layers: relationship changes, completed deletions, and
// deletions blocked by dependents.
package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/terrasense/agriops/internal/types"
)

// DomainEvent carries the canonical shape of every console event.
type DomainEvent struct {
	ID         string          `json:"id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	EntityIDs  []string        `json:"entity_ids"`
	Summary    string          `json:"summary"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// RelationshipChangedPayload carries event-specific data for
// relationship_changed.
type RelationshipChangedPayload struct {
	EntityID  string `json:"entity_id"`
	Attribute string `json:"attribute,omitempty"`
	ParentID  string `json:"parent_id,omitempty"`
}

// NewRelationshipChanged records a reparent (or relationship removal when
// parentID is empty) applied to entityID.
func NewRelationshipChanged(entityID, attribute, parentID string) DomainEvent {
	summary := fmt.Sprintf("Entity %s moved under %s", entityID, parentID)
	if parentID == "" {
		summary = fmt.Sprintf("Entity %s detached from its parent", entityID)
	}
	return DomainEvent{
		ID:         newID(),
		EventType:  "relationship_changed",
		OccurredAt: time.Now(),
		EntityIDs:  []string{entityID},
		Summary:    summary,
		Payload: mustJSON(RelationshipChangedPayload{
			EntityID:  entityID,
			Attribute: attribute,
			ParentID:  parentID,
		}),
	}
}

// NewDeletionCompleted records a successful deletion of one or more
// entities.
func NewDeletionCompleted(deletedIDs []string) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "deletion_completed",
		OccurredAt: time.Now(),
		EntityIDs:  deletedIDs,
		Summary:    fmt.Sprintf("Deleted %d entities: %s", len(deletedIDs), strings.Join(deletedIDs, ", ")),
	}
}

// DeletionBlockedPayload lists the dependency records that blocked a
// deletion, so consumers can show the exact entity/type/count triples.
type DeletionBlockedPayload struct {
	Dependencies []types.Dependency `json:"dependencies"`
}

// NewDeletionBlocked records a deletion refused because dependents still
// reference the candidates.
func NewDeletionBlocked(entityIDs []string, deps []types.Dependency) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "deletion_blocked",
		OccurredAt: time.Now(),
		EntityIDs:  entityIDs,
		Summary:    fmt.Sprintf("Deletion blocked by %d dependency records", len(deps)),
		Payload:    mustJSON(DeletionBlockedPayload{Dependencies: deps}),
	}
}
