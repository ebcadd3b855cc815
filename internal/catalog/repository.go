// Package catalog provides the entity repository the console core reads
// snapshots from and issues patch/delete requests against. Two
// implementations exist: MemoryStore for tests and demos, and SQLiteStore
// for a local catalog. The NGSI-LD broker client in internal/ngsi satisfies
// the same contract for live deployments.
package catalog

import (
	"context"
	"errors"

	"github.com/terrasense/agriops/internal/ngsi"
	"github.com/terrasense/agriops/internal/types"
)

// ErrNotFound is returned when an entity id does not exist in the store.
var ErrNotFound = errors.New("entity not found")

// Repository is the collaborator contract the engine consumes. Patch and
// delete are per-entity atomic on the far side; the engine never batches
// mutations into one call.
type Repository interface {
	ListEntities(ctx context.Context, f types.ListFilter) ([]types.Entity, error)
	GetEntity(ctx context.Context, id string) (types.Entity, error)
	PatchAttributes(ctx context.Context, entityType, id string, frag ngsi.AttributeFragment) error
	DeleteEntity(ctx context.Context, entityType, id string) error
}
