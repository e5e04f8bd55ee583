package port

import "context"

// EventPublisher broadcasts dispatch outcomes. Delivery is best effort:
// the dispatcher logs a failed publish and moves on.
type EventPublisher interface {
	PublishEvent(ctx context.Context, subject string, event interface{}) error
}
