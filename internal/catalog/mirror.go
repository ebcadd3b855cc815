package catalog

import (
	"context"
	"errors"
	"log"

	"github.com/terrasense/agriops/internal/ngsi"
	"github.com/terrasense/agriops/internal/types"
)

// Mirror serves reads from a local snapshot store while sending mutations
// to the upstream broker. Successful mutations are replayed into the
// snapshot immediately so reads reflect them before the next sync pass;
// the sync worker reconciles anything changed outside the console.
type Mirror struct {
	upstream Repository
	local    Repository
}

// NewMirror creates a Mirror over an upstream broker and a local store.
func NewMirror(upstream, local Repository) *Mirror {
	return &Mirror{upstream: upstream, local: local}
}

func (m *Mirror) ListEntities(ctx context.Context, f types.ListFilter) ([]types.Entity, error) {
	return m.local.ListEntities(ctx, f)
}

func (m *Mirror) GetEntity(ctx context.Context, id string) (types.Entity, error) {
	return m.local.GetEntity(ctx, id)
}

func (m *Mirror) PatchAttributes(ctx context.Context, entityType, id string, frag ngsi.AttributeFragment) error {
	if err := m.upstream.PatchAttributes(ctx, entityType, id, frag); err != nil {
		return err
	}
	if err := m.local.PatchAttributes(ctx, entityType, id, frag); err != nil && !errors.Is(err, ErrNotFound) {
		// The broker accepted the patch; the snapshot catches up on the
		// next sync pass.
		log.Printf("catalog: replaying patch of %s into snapshot: %v", id, err)
	}
	return nil
}

func (m *Mirror) DeleteEntity(ctx context.Context, entityType, id string) error {
	if err := m.upstream.DeleteEntity(ctx, entityType, id); err != nil {
		return err
	}
	if err := m.local.DeleteEntity(ctx, entityType, id); err != nil && !errors.Is(err, ErrNotFound) {
		log.Printf("catalog: replaying delete of %s into snapshot: %v", id, err)
	}
	return nil
}
