package checkout

import (
	"context"
	"fmt"

	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Payment provider event types the checkout flow reacts to
const (
	GatewayEventPaymentSucceeded = "payment_intent.succeeded"
	GatewayEventPaymentFailed    = "payment_intent.payment_failed"
	GatewayEventChargeRefunded   = "charge.refunded"
)

// ErrInvalidSignature is returned when a webhook payload cannot be verified
var ErrInvalidSignature = shared.NewDomainError("UNAUTHORIZED", "Invalid webhook signature")

// PaymentIntent is the provider-side view of a payment attempt
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountCents  int64
	Currency     string
}

// CreateIntentInput describes the payment to collect for an order
type CreateIntentInput struct {
	OrderID     uuid.UUID
	OrderNumber string
	AmountCents int64
	Currency    valueobject.Currency
	Email       string
}

// IdempotencyKey is stable for one order and amount, so a retried request
// never creates a second intent for the same charge
func (in CreateIntentInput) IdempotencyKey() string {
	return fmt.Sprintf("order-%s-%d", in.OrderID, in.AmountCents)
}

// GatewayEvent is a verified webhook notification
type GatewayEvent struct {
	ID              string
	Type            string
	PaymentIntentID string
	AmountCents     int64
	// AmountReceivedCents is zero when the provider did not report it
	AmountReceivedCents int64
	Currency            string
	FailureMessage      string
	Payload             []byte
}

// ChargedCents is the amount actually collected, falling back to the
// requested amount
func (e GatewayEvent) ChargedCents() int64 {
	if e.AmountReceivedCents > 0 {
		return e.AmountReceivedCents
	}
	return e.AmountCents
}

// PaymentGateway is the port to the card payment provider
type PaymentGateway interface {
	CreateIntent(ctx context.Context, input CreateIntentInput) (*PaymentIntent, error)
	UpdateIntentAmount(ctx context.Context, intentID string, amountCents int64, currency valueobject.Currency) (*PaymentIntent, error)
	CancelIntent(ctx context.Context, intentID string) error
	// Refund returns the full charge on the intent and reports the refund id
	Refund(ctx context.Context, intentID, idempotencyKey string) (string, error)
	// ParseWebhook verifies the signature header and decodes the event
	ParseWebhook(payload []byte, signature string) (*GatewayEvent, error)
	PublishableKey() string
}
