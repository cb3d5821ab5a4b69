// Package events publishes collection change events for consumers outside
// the realtime path (audit, analytics, integrations).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Event describes a single write to a user's collection.
type Event struct {
	Entity     string    `json:"entity"`
	Action     string    `json:"action"`
	UserID     string    `json:"user_id"`
	ID         string    `json:"id"`
	Field      string    `json:"field,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New creates an Event stamped with the current time.
func New(entity, action, userID, id string) Event {
	return Event{
		Entity:     entity,
		Action:     action,
		UserID:     userID,
		ID:         id,
		OccurredAt: time.Now().UTC(),
	}
}

// RoutingKey returns "<entity>.<action>", e.g. "todo.created".
func (e Event) RoutingKey() string {
	return fmt.Sprintf("%s.%s", e.Entity, e.Action)
}

// Publisher sends events somewhere. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher writes events to a structured logger. It is the default when
// no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	p.logger.DebugContext(ctx, "event",
		"routing_key", e.RoutingKey(),
		"user_id", e.UserID,
		"id", e.ID,
		"field", e.Field,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

func encode(e Event) ([]byte, error) {
	return json.Marshal(e)
}
