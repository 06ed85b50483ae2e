package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fruitstand/backend/internal/domain/checkout"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/refund"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// StripeConfig holds credentials for the Stripe gateway
type StripeConfig struct {
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
}

// Validate validates the Stripe configuration
func (c StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe: secret key is required")
	}
	if !strings.HasPrefix(c.SecretKey, "sk_") && !strings.HasPrefix(c.SecretKey, "rk_") {
		return fmt.Errorf("stripe: secret key has an unexpected format")
	}
	if c.WebhookSecret == "" {
		return fmt.Errorf("stripe: webhook secret is required")
	}
	return nil
}

// StripeGateway implements checkout.PaymentGateway with Stripe PaymentIntents
type StripeGateway struct {
	config StripeConfig
	logger *zap.Logger
}

// NewStripeGateway creates a new Stripe gateway and sets the API key
func NewStripeGateway(config StripeConfig, logger *zap.Logger) (*StripeGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	stripe.Key = config.SecretKey

	return &StripeGateway{
		config: config,
		logger: logger,
	}, nil
}

// PublishableKey returns the key the storefront uses to confirm payments
func (g *StripeGateway) PublishableKey() string {
	return g.config.PublishableKey
}

// CreateIntent creates a PaymentIntent for exactly the order amount
func (g *StripeGateway) CreateIntent(ctx context.Context, input checkout.CreateIntentInput) (*checkout.PaymentIntent, error) {
	g.logger.Debug("Creating Stripe payment intent",
		zap.String("order_number", input.OrderNumber),
		zap.Int64("amount_cents", input.AmountCents))

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(input.AmountCents),
		Currency: stripe.String(strings.ToLower(string(input.Currency))),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Description: stripe.String("Order " + input.OrderNumber),
	}
	if input.Email != "" {
		params.ReceiptEmail = stripe.String(input.Email)
	}
	params.Context = ctx
	params.SetIdempotencyKey(input.IdempotencyKey())
	params.AddMetadata("order_id", input.OrderID.String())
	params.AddMetadata("order_number", input.OrderNumber)

	pi, err := paymentintent.New(params)
	if err != nil {
		g.logger.Error("Failed to create Stripe payment intent",
			zap.String("order_number", input.OrderNumber),
			zap.Error(err))
		return nil, shared.NewUpstreamError("stripe", err)
	}

	g.logger.Info("Created Stripe payment intent",
		zap.String("order_number", input.OrderNumber),
		zap.String("payment_intent_id", pi.ID))
	return toIntent(pi), nil
}

// UpdateIntentAmount changes the amount of an unconfirmed intent
func (g *StripeGateway) UpdateIntentAmount(ctx context.Context, intentID string, amountCents int64, currency valueobject.Currency) (*checkout.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(strings.ToLower(string(currency))),
	}
	params.Context = ctx

	pi, err := paymentintent.Update(intentID, params)
	if err != nil {
		g.logger.Error("Failed to update Stripe payment intent",
			zap.String("payment_intent_id", intentID),
			zap.Error(err))
		return nil, shared.NewUpstreamError("stripe", err)
	}
	return toIntent(pi), nil
}

// CancelIntent cancels an intent that will never be paid
func (g *StripeGateway) CancelIntent(ctx context.Context, intentID string) error {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String("abandoned"),
	}
	params.Context = ctx

	if _, err := paymentintent.Cancel(intentID, params); err != nil {
		g.logger.Error("Failed to cancel Stripe payment intent",
			zap.String("payment_intent_id", intentID),
			zap.Error(err))
		return shared.NewUpstreamError("stripe", err)
	}
	return nil
}

// Refund refunds the full amount captured on the intent
func (g *StripeGateway) Refund(ctx context.Context, intentID, idempotencyKey string) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
		Reason:        stripe.String("requested_by_customer"),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	r, err := refund.New(params)
	if err != nil {
		g.logger.Error("Failed to refund Stripe payment intent",
			zap.String("payment_intent_id", intentID),
			zap.Error(err))
		return "", shared.NewUpstreamError("stripe", err)
	}

	g.logger.Info("Refunded Stripe payment intent",
		zap.String("payment_intent_id", intentID),
		zap.String("refund_id", r.ID))
	return r.ID, nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the
// payment intent fields checkout needs
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*checkout.GatewayEvent, error) {
	if signature == "" {
		return nil, checkout.ErrInvalidSignature
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		g.logger.Warn("Rejected Stripe webhook", zap.Error(err))
		return nil, checkout.ErrInvalidSignature
	}

	out := &checkout.GatewayEvent{
		ID:      event.ID,
		Type:    string(event.Type),
		Payload: payload,
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return out, nil
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("stripe: decode payment intent: %w", err)
		}
		out.PaymentIntentID = pi.ID
		out.AmountCents = pi.Amount
		out.AmountReceivedCents = pi.AmountReceived
		out.Currency = strings.ToUpper(string(pi.Currency))
		if pi.LastPaymentError != nil {
			out.FailureMessage = pi.LastPaymentError.Msg
		}
	case stripe.EventTypeChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("stripe: decode charge: %w", err)
		}
		if ch.PaymentIntent != nil {
			out.PaymentIntentID = ch.PaymentIntent.ID
		}
		out.AmountCents = ch.Amount
		out.AmountReceivedCents = ch.AmountRefunded
		out.Currency = strings.ToUpper(string(ch.Currency))
	}
	return out, nil
}

func toIntent(pi *stripe.PaymentIntent) *checkout.PaymentIntent {
	return &checkout.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountCents:  pi.Amount,
		Currency:     strings.ToUpper(string(pi.Currency)),
	}
}

var _ checkout.PaymentGateway = (*StripeGateway)(nil)
