package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/fruitstand/backend/internal/domain/checkout"
	"github.com/fruitstand/backend/internal/domain/order"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// WebhookDedupTTL is how long processed gateway event ids are remembered
const WebhookDedupTTL = 24 * time.Hour

// Webhook outcomes recorded in the event log and metrics
const (
	OutcomeReceived      = "received"
	OutcomePaid          = "paid"
	OutcomeNeedsReview   = "needs_review"
	OutcomeFailed        = "failed"
	OutcomeRefunded      = "refunded"
	OutcomeIgnored       = "ignored"
	OutcomeUnknownIntent = "unknown_intent"
	OutcomeDuplicate     = "duplicate"
	OutcomeError         = "error"
)

// HandleWebhook verifies and applies one payment provider event. Each event
// id is processed at most once; a failed attempt is forgotten so the
// provider's retry can run it again.
func (s *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "checkout", "handle_webhook")
	defer span.End()

	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		s.logger.Warn("Rejected payment webhook", zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrEventID, ev.ID,
		telemetry.SpanAttrEventType, ev.Type,
		telemetry.SpanAttrPaymentIntent, ev.PaymentIntentID)

	result := &WebhookResult{EventID: ev.ID, EventType: ev.Type}
	dedupKey := "stripe:" + ev.ID
	if s.idempotency != nil {
		fresh, err := s.idempotency.MarkProcessed(ctx, dedupKey, WebhookDedupTTL)
		if err != nil {
			// order state transitions are themselves idempotent, so carry on
			s.logger.Warn("Idempotency store unavailable", zap.String("event_id", ev.ID), zap.Error(err))
		} else if !fresh {
			s.logger.Info("Duplicate payment webhook ignored",
				zap.String("event_id", ev.ID),
				zap.String("event_type", ev.Type))
			s.metrics.WebhookEvent(ev.Type, OutcomeDuplicate)
			result.Outcome = OutcomeDuplicate
			result.Duplicate = true
			return result, nil
		}
	}

	s.recordEvent(ctx, ev)

	var outcome string
	switch ev.Type {
	case checkout.GatewayEventPaymentSucceeded:
		outcome, err = s.handlePaymentSucceeded(ctx, ev)
	case checkout.GatewayEventPaymentFailed:
		outcome, err = s.handlePaymentFailed(ctx, ev)
	case checkout.GatewayEventChargeRefunded:
		outcome, err = s.handleChargeRefunded(ctx, ev)
	default:
		s.logger.Debug("Unhandled payment webhook type", zap.String("event_type", ev.Type))
		outcome = OutcomeIgnored
	}

	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("Failed to process payment webhook",
			zap.String("event_id", ev.ID),
			zap.String("event_type", ev.Type),
			zap.Error(err))
		if s.idempotency != nil {
			if ferr := s.idempotency.Forget(ctx, dedupKey); ferr != nil {
				s.logger.Warn("Failed to release webhook event for retry", zap.String("event_id", ev.ID), zap.Error(ferr))
			}
		}
		s.setOutcome(ctx, ev.ID, OutcomeError)
		s.metrics.WebhookEvent(ev.Type, OutcomeError)
		return nil, err
	}

	s.setOutcome(ctx, ev.ID, outcome)
	s.metrics.WebhookEvent(ev.Type, outcome)
	telemetry.AddEvent(span, "webhook_processed", "outcome", outcome)
	result.Outcome = outcome
	return result, nil
}

func (s *CheckoutService) handlePaymentSucceeded(ctx context.Context, ev *checkout.GatewayEvent) (string, error) {
	o, err := s.orderForIntent(ctx, ev)
	if o == nil {
		return OutcomeUnknownIntent, err
	}
	if o.PaymentStatus == order.PaymentStatusPaid {
		return OutcomeIgnored, nil
	}

	if mismatch := checkout.ReconcileAmount(o.AmountCents, o.Currency, ev.ChargedCents(), ev.Currency); mismatch != nil {
		s.logger.Error("Payment amount does not match order",
			zap.String("order_id", o.ID.String()),
			zap.String("order_number", o.Number),
			zap.String("payment_intent_id", ev.PaymentIntentID),
			zap.Int64("expected_cents", o.AmountCents),
			zap.Int64("charged_cents", ev.ChargedCents()),
			zap.String("charged_currency", ev.Currency))
		if err := o.FlagForReview(mismatch.Error()); err != nil {
			return "", err
		}
		if err := s.orderRepo.Save(ctx, o); err != nil {
			return "", err
		}
		s.publish(ctx, o)
		return OutcomeNeedsReview, nil
	}

	if err := o.MarkPaid(s.now()); err != nil {
		return "", err
	}
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		for _, item := range o.Items {
			if err := repos.Products().AdjustStock(ctx, item.VariantID, -item.Quantity); err != nil {
				if !errors.Is(err, shared.ErrInsufficientStock) && !errors.Is(err, shared.ErrNotFound) {
					return err
				}
				// the charge already went through; fulfil by hand
				s.logger.Error("Stock could not cover a paid order",
					zap.String("order_number", o.Number),
					zap.String("sku", item.SKU),
					zap.Int("quantity", item.Quantity),
					zap.Error(err))
			}
		}

		if o.CouponCode != "" {
			if err := s.redeemCoupon(ctx, repos.Coupons(), o); err != nil {
				return err
			}
		}

		c, err := repos.Carts().FindByID(ctx, o.CartID)
		switch {
		case err == nil:
			c.Clear()
			if err := repos.Carts().Save(ctx, c); err != nil {
				return err
			}
		case !errors.Is(err, shared.ErrNotFound):
			return err
		}

		return repos.Orders().Save(ctx, o)
	})
	if err != nil {
		o.ClearDomainEvents()
		return "", err
	}

	s.publish(ctx, o)
	s.logger.Info("Order paid",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.Number),
		zap.Int64("amount_cents", o.AmountCents))
	return OutcomePaid, nil
}

func (s *CheckoutService) redeemCoupon(ctx context.Context, coupons checkout.CouponRepository, o *order.Order) error {
	coupon, err := coupons.FindByCode(ctx, o.CouponCode)
	if errors.Is(err, shared.ErrNotFound) {
		s.logger.Warn("Coupon on paid order no longer exists", zap.String("coupon", o.CouponCode))
		return nil
	}
	if err != nil {
		return err
	}
	err = coupons.IncrementRedemptions(ctx, coupon.ID)
	if err != nil && errors.Is(err, shared.ErrInvalidState) {
		// the cap was reached between quote and payment; honour the price paid
		s.logger.Warn("Coupon redemption cap exceeded by paid order",
			zap.String("coupon", o.CouponCode),
			zap.String("order_number", o.Number))
		return nil
	}
	return err
}

func (s *CheckoutService) handlePaymentFailed(ctx context.Context, ev *checkout.GatewayEvent) (string, error) {
	o, err := s.orderForIntent(ctx, ev)
	if o == nil {
		return OutcomeUnknownIntent, err
	}
	if !o.IsAwaitingPayment() {
		return OutcomeIgnored, nil
	}
	reason := ev.FailureMessage
	if reason == "" {
		reason = "Payment was declined"
	}
	if err := o.MarkPaymentFailed(reason); err != nil {
		return "", err
	}
	if err := s.orderRepo.Save(ctx, o); err != nil {
		return "", err
	}
	s.publish(ctx, o)
	return OutcomeFailed, nil
}

func (s *CheckoutService) handleChargeRefunded(ctx context.Context, ev *checkout.GatewayEvent) (string, error) {
	o, err := s.orderForIntent(ctx, ev)
	if o == nil {
		return OutcomeUnknownIntent, err
	}
	if o.PaymentStatus == order.PaymentStatusRefunded {
		return OutcomeIgnored, nil
	}
	if !o.PaymentStatus.CanTransitionTo(order.PaymentStatusRefunded) {
		s.logger.Warn("Refund for an order that was never paid",
			zap.String("order_number", o.Number),
			zap.String("payment_status", string(o.PaymentStatus)))
		return OutcomeIgnored, nil
	}
	if err := o.MarkRefunded(s.now()); err != nil {
		return "", err
	}
	if err := s.orderRepo.Save(ctx, o); err != nil {
		return "", err
	}
	s.publish(ctx, o)
	return OutcomeRefunded, nil
}

// orderForIntent returns nil with a nil error when no order uses the intent,
// which is acknowledged so the provider stops retrying
func (s *CheckoutService) orderForIntent(ctx context.Context, ev *checkout.GatewayEvent) (*order.Order, error) {
	if ev.PaymentIntentID == "" {
		return nil, nil
	}
	o, err := s.orderRepo.FindByPaymentIntent(ctx, ev.PaymentIntentID)
	if errors.Is(err, shared.ErrNotFound) {
		s.logger.Warn("No order for payment intent",
			zap.String("event_id", ev.ID),
			zap.String("payment_intent_id", ev.PaymentIntentID))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *CheckoutService) recordEvent(ctx context.Context, ev *checkout.GatewayEvent) {
	if s.webhookLog == nil {
		return
	}
	err := s.webhookLog.Record(ctx, checkout.WebhookEvent{
		ID:              ev.ID,
		Type:            ev.Type,
		PaymentIntentID: ev.PaymentIntentID,
		Payload:         ev.Payload,
		ReceivedAt:      s.now(),
		Outcome:         OutcomeReceived,
	})
	if err != nil {
		s.logger.Warn("Failed to record webhook event", zap.String("event_id", ev.ID), zap.Error(err))
	}
}

func (s *CheckoutService) setOutcome(ctx context.Context, eventID, outcome string) {
	if s.webhookLog == nil {
		return
	}
	if err := s.webhookLog.SetOutcome(ctx, eventID, outcome); err != nil {
		s.logger.Warn("Failed to record webhook outcome", zap.String("event_id", eventID), zap.Error(err))
	}
}
