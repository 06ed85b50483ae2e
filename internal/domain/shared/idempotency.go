package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores processed event IDs to prevent duplicate processing
type IdempotencyStore interface {
	// MarkProcessed marks an event as processed with a TTL.
	// Returns true if the event was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// Forget removes a mark so the event can be retried after a failed attempt
	Forget(ctx context.Context, eventID string) error

	IsProcessed(ctx context.Context, eventID string) (bool, error)

	Close() error
}
