package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for cart persistence
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Cart, error)
	FindByUser(ctx context.Context, userID uuid.UUID) (*Cart, error)
	FindBySession(ctx context.Context, sessionToken string) (*Cart, error)

	// Save creates or updates a cart and replaces its lines
	Save(ctx context.Context, cart *Cart) error
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteExpired removes guest carts whose expiry is before the given time
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
