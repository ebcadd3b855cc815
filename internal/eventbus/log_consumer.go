package eventbus

import (
	"context"
	"log"

	"github.com/terrasense/agriops/internal/event"
)

// LogConsumer logs all console events for observability.
type LogConsumer struct{}

func NewLogConsumer() *LogConsumer { return &LogConsumer{} }

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	log.Printf("event: %s %s entities=%v", evt.EventType, evt.Summary, evt.EntityIDs)
	return nil
}
