package catalog

import (
	"context"
	"sync"

	"github.com/terrasense/agriops/internal/ngsi"
	"github.com/terrasense/agriops/internal/types"
)

// record pairs an entity with its stored relationship attributes. ParentID
// on the entity is derived from the refs, never stored independently.
type record struct {
	entity types.Entity
	refs   map[string]string // relationship attribute -> target id
}

// MemoryStore implements Repository using in-memory maps.
// Intended for demos and testing — no broker or database required.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*record
	order   []string // insertion order, keeps listings deterministic
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*record)}
}

// Seed inserts entities, deriving their relationship attribute from
// ParentID and the parent's type when the parent is already present.
// Unresolved parents are stored under the default attribute.
func (s *MemoryStore) Seed(entities ...types.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entities {
		refs := make(map[string]string)
		if e.ParentID != "" {
			attr := ngsi.RefAgriParcel
			if parent, ok := s.records[e.ParentID]; ok {
				switch parent.entity.Type {
				case "AgriFarm":
					attr = ngsi.RefAgriFarm
				case "AgriGreenhouse":
					attr = ngsi.RefAgriGreenhouse
				}
			}
			refs[attr] = e.ParentID
		}
		if _, exists := s.records[e.ID]; !exists {
			s.order = append(s.order, e.ID)
		}
		s.records[e.ID] = &record{entity: e, refs: refs}
	}
}

// derive returns the entity with ParentID recomputed from stored refs.
func (r *record) derive() types.Entity {
	e := r.entity
	e.ParentID = ""
	for _, attr := range ngsi.RelationshipAttributes {
		if target, ok := r.refs[attr]; ok && target != "" {
			e.ParentID = target
			break
		}
	}
	return e
}

func (s *MemoryStore) ListEntities(_ context.Context, f types.ListFilter) ([]types.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Entity
	for _, id := range s.order {
		r, ok := s.records[id]
		if !ok {
			continue
		}
		e := r.derive()
		if len(f.Types) > 0 && !contains(f.Types, e.Type) {
			continue
		}
		if f.ParentID != "" && e.ParentID != f.ParentID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *MemoryStore) GetEntity(_ context.Context, id string) (types.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return types.Entity{}, ErrNotFound
	}
	return r.derive(), nil
}

func (s *MemoryStore) PatchAttributes(_ context.Context, _, id string, frag ngsi.AttributeFragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	for attr, rel := range frag {
		if rel == nil {
			delete(r.refs, attr)
			continue
		}
		r.refs[attr] = rel.Object
	}
	return nil
}

func (s *MemoryStore) DeleteEntity(_ context.Context, _, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
