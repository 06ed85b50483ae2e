// Package order serves customer order history, guest lookups and the staff
// fulfilment workflow.
package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fruitstand/backend/internal/domain/checkout"
	"github.com/fruitstand/backend/internal/domain/order"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxPageSize caps order list pages
const MaxPageSize = 100

// PackingSlipRenderer produces the printable packing slip of an order
type PackingSlipRenderer interface {
	PackingSlipPDF(ctx context.Context, o *order.Order) ([]byte, error)
}

// OrderService handles order queries and fulfilment
type OrderService struct {
	orderRepo      order.Repository
	gateway        checkout.PaymentGateway
	slips          PackingSlipRenderer
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time

	pendingTTL time.Duration
	staleBatch int
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo order.Repository,
	gateway checkout.PaymentGateway,
	slips PackingSlipRenderer,
	logger *zap.Logger,
) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		orderRepo:  orderRepo,
		gateway:    gateway,
		slips:      slips,
		logger:     logger,
		now:        time.Now,
		pendingTTL: 48 * time.Hour,
		staleBatch: 100,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetStalePolicy configures how old an unpaid order must be before the
// sweeper cancels it, and how many are handled per run
func (s *OrderService) SetStalePolicy(ttl time.Duration, batch int) {
	if ttl > 0 {
		s.pendingTTL = ttl
	}
	if batch > 0 {
		s.staleBatch = batch
	}
}

// ListMine returns the orders placed by a signed-in customer
func (s *OrderService) ListMine(ctx context.Context, userID uuid.UUID, q ListOrdersQuery) (shared.Paginated[OrderSummary], error) {
	filter := shared.Filter{Page: q.Page, PageSize: q.PageSize, OrderBy: "placed_at"}
	filter.Normalize(MaxPageSize)
	filter.Filters["user_id"] = userID
	return s.list(ctx, filter)
}

// Get returns one order if the user or guest session placed it. Orders that
// belong to someone else are reported as not found.
func (s *OrderService) Get(ctx context.Context, id uuid.UUID, userID *uuid.UUID, sessionToken string) (*OrderResponse, error) {
	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.IsOwnedBy(userID, sessionToken) {
		return nil, shared.NewNotFoundError("order")
	}
	return toOrderResponse(o, false), nil
}

// Lookup finds an order by number and email, for guests without an account
func (s *OrderService) Lookup(ctx context.Context, q LookupQuery) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByNumber(ctx, strings.ToUpper(strings.TrimSpace(q.Number)))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("order")
		}
		return nil, err
	}
	if !strings.EqualFold(o.Email, strings.TrimSpace(q.Email)) {
		return nil, shared.NewNotFoundError("order")
	}
	return toOrderResponse(o, false), nil
}

// AdminList returns all orders matching the query
func (s *OrderService) AdminList(ctx context.Context, q AdminListOrdersQuery) (shared.Paginated[OrderSummary], error) {
	filter := shared.Filter{Page: q.Page, PageSize: q.PageSize, Search: strings.TrimSpace(q.Search), OrderBy: "placed_at"}
	filter.Normalize(MaxPageSize)
	if q.PaymentStatus != "" {
		status := order.PaymentStatus(q.PaymentStatus)
		if !status.IsValid() {
			return shared.Paginated[OrderSummary]{}, shared.NewDomainError("INVALID_INPUT", "Unknown payment status: "+q.PaymentStatus)
		}
		filter.Filters["payment_status"] = string(status)
	}
	if q.FulfillmentStatus != "" {
		status := order.FulfillmentStatus(q.FulfillmentStatus)
		if !status.IsValid() {
			return shared.Paginated[OrderSummary]{}, shared.NewDomainError("INVALID_INPUT", "Unknown fulfillment status: "+q.FulfillmentStatus)
		}
		filter.Filters["fulfillment_status"] = string(status)
	}
	return s.list(ctx, filter)
}

// AdminGet returns an order with staff-only fields
func (s *OrderService) AdminGet(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return toOrderResponse(o, true), nil
}

// MarkProcessing moves a paid order into picking and packing
func (s *OrderService) MarkProcessing(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	return s.mutate(ctx, id, func(o *order.Order) error {
		return o.StartProcessing()
	})
}

// Ship records tracking details and notifies the customer
func (s *OrderService) Ship(ctx context.Context, id uuid.UUID, req ShipRequest) (*OrderResponse, error) {
	return s.mutate(ctx, id, func(o *order.Order) error {
		return o.Ship(req.Carrier, req.TrackingNumber)
	})
}

// MarkDelivered completes fulfilment
func (s *OrderService) MarkDelivered(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	return s.mutate(ctx, id, func(o *order.Order) error {
		return o.MarkDelivered()
	})
}

// Cancel stops an order. An unpaid order has its payment intent cancelled so
// it can no longer be charged; a paid order is refunded in full.
func (s *OrderService) Cancel(ctx context.Context, id uuid.UUID, req CancelRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "order", "cancel")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, id.String())

	return s.mutate(ctx, id, func(o *order.Order) error {
		awaiting := o.IsAwaitingPayment()
		if err := o.Cancel(req.Reason); err != nil {
			return err
		}
		if o.NeedsRefund() {
			return s.refund(ctx, o)
		}
		if awaiting && o.PaymentIntentID != "" {
			return s.gateway.CancelIntent(ctx, o.PaymentIntentID)
		}
		return nil
	})
}

// Refund returns the full payment of a paid order
func (s *OrderService) Refund(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "order", "refund")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, id.String())

	return s.mutate(ctx, id, func(o *order.Order) error {
		if o.PaymentStatus != order.PaymentStatusPaid && o.PaymentStatus != order.PaymentStatusNeedsReview {
			return shared.NewDomainError("INVALID_STATE", "Only paid orders can be refunded")
		}
		return s.refund(ctx, o)
	})
}

// PackingSlipPDF renders the packing slip of an order
func (s *OrderService) PackingSlipPDF(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	if s.slips == nil {
		return nil, "", shared.NewDomainError("UPSTREAM", "Packing slip printing is not configured")
	}
	o, err := s.find(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if o.PaymentStatus != order.PaymentStatusPaid {
		return nil, "", shared.NewDomainError("INVALID_STATE", "Packing slips are only available for paid orders")
	}
	pdf, err := s.slips.PackingSlipPDF(ctx, o)
	if err != nil {
		s.logger.Error("Failed to render packing slip",
			zap.String("order_number", o.Number),
			zap.Error(err))
		return nil, "", shared.NewUpstreamError("pdf renderer", err)
	}
	return pdf, o.Number, nil
}

// CancelStalePending cancels orders whose payment was never completed. Each
// order's payment intent is cancelled first; an order whose intent cannot be
// cancelled is left for the next run.
func (s *OrderService) CancelStalePending(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.pendingTTL)
	stale, err := s.orderRepo.FindStalePending(ctx, cutoff, s.staleBatch)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for i := range stale {
		o := &stale[i]
		if o.PaymentIntentID != "" {
			if err := s.gateway.CancelIntent(ctx, o.PaymentIntentID); err != nil {
				s.logger.Warn("Skipping stale order, payment intent not cancelled",
					zap.String("order_number", o.Number),
					zap.String("payment_intent_id", o.PaymentIntentID),
					zap.Error(err))
				continue
			}
		}
		if err := o.Cancel("Payment was not completed"); err != nil {
			s.logger.Warn("Skipping stale order", zap.String("order_number", o.Number), zap.Error(err))
			continue
		}
		if err := s.orderRepo.Save(ctx, o); err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				// paid or edited after it was listed
				s.logger.Warn("Skipping stale order changed during sweep", zap.String("order_number", o.Number))
				continue
			}
			return cancelled, err
		}
		s.publish(ctx, o)
		cancelled++
	}
	if cancelled > 0 {
		s.logger.Info("Cancelled stale pending orders",
			zap.Int("count", cancelled),
			zap.Time("placed_before", cutoff))
	}
	return cancelled, nil
}

func (s *OrderService) refund(ctx context.Context, o *order.Order) error {
	if o.PaymentIntentID == "" {
		return shared.NewDomainError("INVALID_STATE", "Order has no payment to refund")
	}
	refundID, err := s.gateway.Refund(ctx, o.PaymentIntentID, "refund-"+o.ID.String())
	if err != nil {
		return err
	}
	if err := o.MarkRefunded(s.now()); err != nil {
		return err
	}
	s.logger.Info("Order refunded",
		zap.String("order_number", o.Number),
		zap.String("refund_id", refundID),
		zap.Int64("amount_cents", o.AmountCents))
	return nil
}

func (s *OrderService) list(ctx context.Context, filter shared.Filter) (shared.Paginated[OrderSummary], error) {
	orders, err := s.orderRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[OrderSummary]{}, err
	}
	total, err := s.orderRepo.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[OrderSummary]{}, err
	}
	items := make([]OrderSummary, len(orders))
	for i := range orders {
		items[i] = toOrderSummary(&orders[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

func (s *OrderService) find(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("order")
		}
		return nil, err
	}
	return o, nil
}

func (s *OrderService) mutate(ctx context.Context, id uuid.UUID, fn func(*order.Order) error) (*OrderResponse, error) {
	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(o); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, o); err != nil {
		return nil, err
	}
	s.publish(ctx, o)
	return toOrderResponse(o, true), nil
}

func (s *OrderService) publish(ctx context.Context, o *order.Order) {
	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, o.GetDomainEvents()...); err != nil {
			s.logger.Warn("Failed to publish order events",
				zap.String("order_id", o.ID.String()),
				zap.Error(err))
		}
	}
	o.ClearDomainEvents()
}
