package support

import (
	"context"

	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository defines the interface for ticket persistence.
// Supported filter keys: "status", "category", "priority", "user_id", "assignee_id".
// Filter.Search matches ticket number, subject and email.
type Repository interface {
	// FindByID loads a ticket with its full message history
	FindByID(ctx context.Context, id uuid.UUID) (*Ticket, error)

	// FindAll returns tickets without messages, newest activity first
	FindAll(ctx context.Context, filter shared.Filter) ([]Ticket, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Save upserts the ticket and inserts any messages not yet stored
	Save(ctx context.Context, ticket *Ticket) error
}
