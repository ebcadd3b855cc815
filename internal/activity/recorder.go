package activity

import (
	"context"

	"github.com/terrasense/agriops/internal/event"
)

// Recorder is an event bus consumer that fans each console event out into
// one audit entry per affected entity.
type Recorder struct {
	store Store
}

// NewRecorder creates a Recorder backed by the given store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// HandleEvent writes one entry per entity the event touched.
func (r *Recorder) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	entries := make([]Entry, 0, len(evt.EntityIDs))
	for _, id := range evt.EntityIDs {
		entries = append(entries, Entry{
			EventID:    evt.ID,
			EventType:  evt.EventType,
			OccurredAt: evt.OccurredAt,
			EntityID:   id,
			Summary:    evt.Summary,
			Payload:    evt.Payload,
		})
	}
	return r.store.WriteEntries(ctx, entries)
}
