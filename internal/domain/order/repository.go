package order

import (
	"context"
	"time"

	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository defines the interface for order persistence.
// Supported filter keys: "payment_status", "fulfillment_status", "user_id".
// Filter.Search matches order number and email.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByNumber(ctx context.Context, number string) (*Order, error)
	FindByPaymentIntent(ctx context.Context, intentID string) (*Order, error)

	// FindAwaitingPaymentByCart returns the unpaid order created from a cart, if any
	FindAwaitingPaymentByCart(ctx context.Context, cartID uuid.UUID) (*Order, error)

	FindAll(ctx context.Context, filter shared.Filter) ([]Order, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// FindStalePending returns unpaid, unfulfilled orders placed before the cutoff
	FindStalePending(ctx context.Context, placedBefore time.Time, limit int) ([]Order, error)

	Save(ctx context.Context, order *Order) error
}
