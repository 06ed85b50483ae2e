package marketing

import (
	"context"

	"github.com/fruitstand/backend/internal/domain/shared"
)

// SubscriberRepository defines the interface for newsletter persistence.
// Supported filter keys: "status", "sms_opt_in". Filter.Search matches email.
type SubscriberRepository interface {
	FindByEmail(ctx context.Context, email string) (*Subscriber, error)
	FindByToken(ctx context.Context, token string) (*Subscriber, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Subscriber, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, subscriber *Subscriber) error
}
