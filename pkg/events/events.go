// Package events carries domain events emitted after successful mutations.
// Delivery is best effort: publishers must never influence the outcome of the
// mutation that produced the event.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names a domain event.
type Type string

const (
	AssetCreated         Type = "asset.created"
	AssetUpdated         Type = "asset.updated"
	AssetAssigned        Type = "asset.assigned"
	AssetReturned        Type = "asset.returned"
	AssetTransferred     Type = "asset.transferred"
	AssetStatusChanged   Type = "asset.status_changed"
	AssetDeleted         Type = "asset.deleted"
	RequestSubmitted     Type = "request.submitted"
	RequestDecided       Type = "request.decided"
	RequestCancelled     Type = "request.cancelled"
	RequestFulfilled     Type = "request.fulfilled"
	IssueReported        Type = "issue.reported"
	IssueStatusChanged   Type = "issue.status_changed"
	MaintenanceScheduled Type = "maintenance.scheduled"
	MaintenanceUpdated   Type = "maintenance.updated"
	MaintenanceCompleted Type = "maintenance.completed"
	ReferenceChanged     Type = "reference.changed"
	UserChanged          Type = "user.changed"
	AlertsDigest         Type = "alerts.digest"
)

// Event is the envelope published to subscribers.
type Event struct {
	ID         string      `json:"id"`
	Type       Type        `json:"type"`
	Table      string      `json:"table"`
	EntityID   string      `json:"entity_id,omitempty"`
	ActorID    string      `json:"actor_id,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload,omitempty"`
}

// New builds an event stamped with an id and the current time.
func New(t Type, table, entityID, actorID string, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		Table:      table,
		EntityID:   entityID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Publisher delivers domain events.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// PublisherFunc adapts a function into a Publisher.
type PublisherFunc func(ctx context.Context, evt Event) error

// Publish implements Publisher.
func (f PublisherFunc) Publish(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to several publishers, returning the first error
// after every publisher has been tried.
func Multi(publishers ...Publisher) Publisher {
	return PublisherFunc(func(ctx context.Context, evt Event) error {
		var first error
		for _, p := range publishers {
			if p == nil {
				continue
			}
			if err := p.Publish(ctx, evt); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}
