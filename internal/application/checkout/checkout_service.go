// Package checkout prices carts, creates Stripe payment intents for pending
// orders and finalizes orders from payment webhooks.
package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/fruitstand/backend/internal/domain/cart"
	"github.com/fruitstand/backend/internal/domain/catalog"
	"github.com/fruitstand/backend/internal/domain/checkout"
	"github.com/fruitstand/backend/internal/domain/order"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/fruitstand/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MetricsRecorder counts checkout outcomes
type MetricsRecorder interface {
	PaymentIntent(result string)
	WebhookEvent(eventType, outcome string)
}

type nopMetrics struct{}

func (nopMetrics) PaymentIntent(string)        {}
func (nopMetrics) WebhookEvent(string, string) {}

// CheckoutService handles quoting, payment intents and payment webhooks
type CheckoutService struct {
	cartRepo    cart.Repository
	productRepo catalog.ProductRepository
	couponRepo  checkout.CouponRepository
	orderRepo   order.Repository
	gateway     checkout.PaymentGateway
	webhookLog  checkout.WebhookEventLog
	idempotency shared.IdempotencyStore
	txScope     TransactionScope
	events      shared.EventPublisher
	metrics     MetricsRecorder
	policy      checkout.PricingPolicy
	logger      *zap.Logger
	now         func() time.Time
}

// CheckoutServiceConfig contains the dependencies of CheckoutService
type CheckoutServiceConfig struct {
	CartRepo    cart.Repository
	ProductRepo catalog.ProductRepository
	CouponRepo  checkout.CouponRepository
	OrderRepo   order.Repository
	Gateway     checkout.PaymentGateway
	WebhookLog  checkout.WebhookEventLog
	Idempotency shared.IdempotencyStore
	TxScope     TransactionScope
	Events      shared.EventPublisher
	Metrics     MetricsRecorder
	Policy      checkout.PricingPolicy
	Logger      *zap.Logger
}

// NewCheckoutService creates a new CheckoutService
func NewCheckoutService(cfg CheckoutServiceConfig) *CheckoutService {
	s := &CheckoutService{
		cartRepo:    cfg.CartRepo,
		productRepo: cfg.ProductRepo,
		couponRepo:  cfg.CouponRepo,
		orderRepo:   cfg.OrderRepo,
		gateway:     cfg.Gateway,
		webhookLog:  cfg.WebhookLog,
		idempotency: cfg.Idempotency,
		txScope:     cfg.TxScope,
		events:      cfg.Events,
		metrics:     cfg.Metrics,
		policy:      cfg.Policy,
		logger:      cfg.Logger,
		now:         time.Now,
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.txScope == nil {
		s.txScope = NewNoOpTransactionScope(cfg.OrderRepo, cfg.ProductRepo, cfg.CouponRepo, cfg.CartRepo)
	}
	return s
}

// pricedCart is a cart checked against current products and priced
type pricedCart struct {
	cart  *cart.Cart
	lines []order.Line
	quote checkout.Quote
}

// Quote prices the owner's cart with an optional coupon
func (s *CheckoutService) Quote(ctx context.Context, owner cart.Owner, req QuoteRequest) (*QuoteResponse, error) {
	priced, err := s.price(ctx, owner, req.CouponCode)
	if err != nil {
		return nil, err
	}
	resp := toQuoteResponse(priced.quote)
	return &resp, nil
}

// CreatePaymentIntent creates the pending order for the cart, or refreshes it
// when the shopper changed the cart, and returns the intent client secret.
// An existing intent is updated to the new amount rather than replaced.
func (s *CheckoutService) CreatePaymentIntent(ctx context.Context, owner cart.Owner, req PaymentIntentRequest) (*PaymentIntentResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "checkout", "create_payment_intent")
	defer span.End()

	address, err := req.ShippingAddress.ToAddress()
	if err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", err.Error())
	}
	priced, err := s.price(ctx, owner, req.CouponCode)
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCartID, priced.cart.ID.String(),
		telemetry.SpanAttrAmountCents, priced.quote.AmountCents)

	o, err := s.orderRepo.FindAwaitingPaymentByCart(ctx, priced.cart.ID)
	switch {
	case err == nil:
		if err := o.Reprice(req.Email, address, priced.lines, priced.quote); err != nil {
			return nil, err
		}
	case errors.Is(err, shared.ErrNotFound):
		o, err = order.NewOrder(order.NewOrderParams{
			UserID:          owner.UserID,
			SessionToken:    owner.SessionToken,
			CartID:          priced.cart.ID,
			Email:           req.Email,
			ShippingAddress: address,
			Lines:           priced.lines,
			Quote:           priced.quote,
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, o.ID.String(),
		telemetry.SpanAttrOrderNumber, o.Number)

	var (
		intent *checkout.PaymentIntent
		result = "created"
	)
	if o.PaymentIntentID != "" {
		result = "updated"
		intent, err = s.gateway.UpdateIntentAmount(ctx, o.PaymentIntentID, o.AmountCents, o.Currency)
	} else {
		intent, err = s.gateway.CreateIntent(ctx, checkout.CreateIntentInput{
			OrderID:     o.ID,
			OrderNumber: o.Number,
			AmountCents: o.AmountCents,
			Currency:    o.Currency,
			Email:       o.Email,
		})
	}
	if err != nil {
		s.metrics.PaymentIntent("error")
		telemetry.RecordError(span, err)
		s.logger.Error("Payment intent request failed",
			zap.String("order_id", o.ID.String()),
			zap.Int64("amount_cents", o.AmountCents),
			zap.Error(err))
		return nil, shared.NewUpstreamError("payment provider", err)
	}
	if o.PaymentIntentID != intent.ID {
		o.AttachPaymentIntent(intent.ID)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentIntent, intent.ID)

	if err := s.orderRepo.Save(ctx, o); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.metrics.PaymentIntent(result)
	s.publish(ctx, o)

	s.logger.Info("Payment intent ready",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.Number),
		zap.String("payment_intent_id", intent.ID),
		zap.String("result", result),
		zap.Int64("amount_cents", o.AmountCents))

	return &PaymentIntentResponse{
		OrderID:        o.ID,
		OrderNumber:    o.Number,
		ClientSecret:   intent.ClientSecret,
		PublishableKey: s.gateway.PublishableKey(),
		Quote:          toQuoteResponse(priced.quote),
	}, nil
}

// price loads the owner's cart, re-checks availability against current
// products and runs the pricing pipeline
func (s *CheckoutService) price(ctx context.Context, owner cart.Owner, couponCode string) (*pricedCart, error) {
	c, err := s.findCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Cart is empty")
	}

	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	found, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	products := make(map[uuid.UUID]*catalog.Product, len(found))
	for i := range found {
		products[found[i].ID] = &found[i]
	}

	lines := make([]order.Line, 0, len(c.Items))
	for _, it := range c.Items {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, shared.NewDomainError("INVALID_STATE", it.ProductName+" is no longer available")
		}
		if err := p.EnsureAvailable(it.VariantID, it.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, order.Line{
			ProductID:    it.ProductID,
			VariantID:    it.VariantID,
			ProductName:  it.ProductName,
			VariantLabel: it.VariantLabel,
			SKU:          it.SKU,
			UnitPrice:    it.UnitPrice,
			Quantity:     it.Quantity,
		})
	}

	subtotal := c.Subtotal()
	discount := valueobject.Zero(s.policy.Currency)
	code := checkout.NormalizeCode(couponCode)
	if code != "" {
		coupon, err := s.couponRepo.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("INVALID_INPUT", "Coupon code is not valid")
			}
			return nil, err
		}
		if err := coupon.CheckApplicable(subtotal, s.now()); err != nil {
			return nil, err
		}
		discount = coupon.DiscountFor(subtotal)
	}

	quote, err := s.policy.Calculate(checkout.PricingInput{
		Subtotal:   subtotal,
		Discount:   discount,
		CouponCode: code,
	})
	if err != nil {
		return nil, err
	}
	return &pricedCart{cart: c, lines: lines, quote: quote}, nil
}

func (s *CheckoutService) findCart(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	var (
		c   *cart.Cart
		err error
	)
	if owner.IsGuest() {
		c, err = s.cartRepo.FindBySession(ctx, owner.SessionToken)
	} else {
		c, err = s.cartRepo.FindByUser(ctx, *owner.UserID)
	}
	if errors.Is(err, shared.ErrNotFound) || (err == nil && c.IsExpired(s.now())) {
		return nil, shared.NewDomainError("INVALID_INPUT", "Cart is empty")
	}
	return c, err
}

func (s *CheckoutService) publish(ctx context.Context, o *order.Order) {
	if s.events != nil {
		if err := s.events.Publish(ctx, o.GetDomainEvents()...); err != nil {
			s.logger.Warn("Failed to publish order events",
				zap.String("order_id", o.ID.String()),
				zap.Error(err))
		}
	}
	o.ClearDomainEvents()
}
