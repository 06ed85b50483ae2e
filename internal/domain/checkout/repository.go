package checkout

import (
	"context"
	"time"

	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CouponRepository defines the interface for coupon persistence
type CouponRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Coupon, error)
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Coupon, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, coupon *Coupon) error

	// IncrementRedemptions atomically counts one redemption, respecting the
	// redemption cap
	IncrementRedemptions(ctx context.Context, id uuid.UUID) error
}

// WebhookEvent is a payment provider notification as it was received
type WebhookEvent struct {
	ID              string
	Type            string
	PaymentIntentID string
	Payload         []byte
	ReceivedAt      time.Time
	Outcome         string
}

// WebhookEventLog keeps an audit trail of payment webhooks
type WebhookEventLog interface {
	// Record stores the event; recording the same id twice keeps the first copy
	Record(ctx context.Context, event WebhookEvent) error
	// SetOutcome notes how the event was handled
	SetOutcome(ctx context.Context, eventID, outcome string) error
}
