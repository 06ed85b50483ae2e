package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/fruitstand/backend/internal/domain/checkout"
	"github.com/fruitstand/backend/internal/domain/order"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testPayload   = []byte(`{"id":"evt_1"}`)
	testSignature = "t=1,v1=abc"
)

func succeededEvent(id string, cents int64) *checkout.GatewayEvent {
	return &checkout.GatewayEvent{
		ID:                  id,
		Type:                checkout.GatewayEventPaymentSucceeded,
		PaymentIntentID:     "pi_1",
		AmountCents:         cents,
		AmountReceivedCents: cents,
		Currency:            "usd",
		Payload:             testPayload,
	}
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	f := newCheckoutFixture(t)
	f.gateway.On("ParseWebhook", testPayload, "bad").Return(nil, checkout.ErrInvalidSignature)

	_, err := f.svc.HandleWebhook(context.Background(), testPayload, "bad")
	assert.ErrorIs(t, err, checkout.ErrInvalidSignature)
	f.orders.AssertNotCalled(t, "FindByPaymentIntent", mock.Anything, mock.Anything)
}

func TestHandleWebhook_PaymentSucceeded(t *testing.T) {
	f := newCheckoutFixture(t)
	p := newTestProduct(t)
	userID := uuid.New()
	c := newUserCart(t, userID, p, 2)
	o := newPendingOrder(t, c, p, 2, "SAVE10")

	coupon, err := checkout.NewPercentCoupon("SAVE10", decimal.NewFromInt(10), valueobject.USD)
	require.NoError(t, err)

	f.gateway.On("ParseWebhook", testPayload, testSignature).Return(succeededEvent("evt_1", o.AmountCents), nil)
	f.orders.On("FindByPaymentIntent", mock.Anything, "pi_1").Return(o, nil)
	f.products.On("AdjustStock", mock.Anything, p.Variants[0].ID, -2).Return(nil)
	f.coupons.On("FindByCode", mock.Anything, "SAVE10").Return(coupon, nil)
	f.coupons.On("IncrementRedemptions", mock.Anything, coupon.ID).
		Return(shared.NewDomainError("INVALID_STATE", "Coupon has reached its redemption limit"))
	f.carts.On("FindByID", mock.Anything, c.ID).Return(c, nil)
	f.carts.On("Save", mock.Anything, c).Return(nil)
	f.orders.On("Save", mock.Anything, o).Return(nil)

	result, err := f.svc.HandleWebhook(context.Background(), testPayload, testSignature)
	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, result.Outcome)
	assert.False(t, result.Duplicate)
	assert.Equal(t, order.PaymentStatusPaid, o.PaymentStatus)
	assert.NotNil(t, o.PaidAt)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, []string{order.EventTypeOrderPaid}, f.events.types())
	assert.Equal(t, OutcomePaid, f.log.outcome("evt_1"))
	assert.Equal(t, []string{checkout.GatewayEventPaymentSucceeded + ":" + OutcomePaid}, f.metrics.webhooks)
	f.products.AssertExpectations(t)
	f.carts.AssertExpectations(t)
}

func TestHandleWebhook_DuplicateEvent(t *testing.T) {
	f := newCheckoutFixture(t)
	p := newTestProduct(t)
	c := newUserCart(t, uuid.New(), p, 1)
	o := newPendingOrder(t, c, p, 1, "")

	f.gateway.On("ParseWebhook", testPayload, testSignature).Return(succeededEvent("evt_1", o.AmountCents), nil)
	f.orders.On("FindByPaymentIntent", mock.Anything, "pi_1").Return(o, nil)
	f.products.On("AdjustStock", mock.Anything, p.Variants[0].ID, -1).Return(nil)
	f.carts.On("FindByID", mock.Anything, c.ID).Return(nil, shared.ErrNotFound)
	f.orders.On("Save", mock.Anything, o).Return(nil)

	first, err := f.svc.HandleWebhook(context.Background(), testPayload, testSignature)
	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, first.Outcome)

	second, err := f.svc.HandleWebhook(context.Background(), testPayload, testSignature)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, second.Outcome)
	assert.True(t, second.Duplicate)
	f.orders.AssertNumberOfCalls(t, "FindByPaymentIntent", 1)
	f.products.AssertNumberOfCalls(t, "AdjustStock", 1)
}

func TestHandleWebhook_AmountMismatch(t *testing.T) {
	f := newCheckoutFixture(t)
	p := newTestProduct(t)
	c := newUserCart(t, uuid.New(), p, 1)
	o := newPendingOrder(t, c, p, 1, "")

	f.gateway.On("ParseWebhook", testPayload, testSignature).Return(succeededEvent("evt_1", o.AmountCents-100), nil)
	f.orders.On("FindByPaymentIntent", mock.Anything, "pi_1").Return(o, nil)
	f.orders.On("Save", mock.Anything, o).Return(nil)

	result, err := f.svc.HandleWebhook(context.Background(), testPayload, testSignature)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNeedsReview, result.Outcome)
	assert.Equal(t, order.PaymentStatusNeedsReview, o.PaymentStatus)
	assert.Nil(t, o.PaidAt)
	assert.False(t, c.IsEmpty())
	f.products.AssertNotCalled(t, "AdjustStock", mock.Anything, mock.Anything, mock.Anything)
	f.carts.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestHandleWebhook_CurrencyMismatch(t *testing.T) {
	f := newCheckoutFixture(t)
	p := newTestProduct(t)
	c := newUserCart(t, uuid.New(), p, 1)
	o := newPendingOrder(t, c, p, 1, "")

	ev := succeededEvent("evt_1", o.AmountCents)
	ev.Currency = "eur"
	f.gateway.On("ParseWebhook", testPayload, testSignature).Return(ev, nil)
	f.orders.On("FindByPaymentIntent", mock.Anything, "pi_1").Return(o, nil)
	f.orders.On("Save", mock.Anything, o).Return(nil)

	result, err := f.svc.HandleWebhook(context.Background(), testPayload, testSignature)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNeedsReview, result.Outcome)
}

func TestHandleWebhook_FailedProcessingIsRetried(t *testing.T) {
	f := newCheckoutFixture(t)
	p := newTestProduct(t)
	c := newUserCart(t, uuid.New(), p, 1)
	o := newPendingOrder(t, c, p, 1, "")

	f.gateway.On("ParseWebhook", testPayload, testSignature).Return(succeededEvent("evt_1", o.AmountCents), nil)
	f.orders.On("FindByPaymentIntent", mock.Anything, "pi_1").Return(nil, errors.New("connection reset")).Once()
	f.orders.On("FindByPaymentIntent", mock.Anything, "pi_1").Return(o, nil)
	f.products.On("AdjustStock", mock.Anything, p.Variants[0].ID, -1).Return(nil)
	f.carts.On("FindByID", mock.Anything, c.ID).Return(c, nil)
	f.carts.On("Save", mock.Anything, c).Return(nil)
	f.orders.On("Save", mock.Anything, o).Return(nil)

	_, err := f.svc.HandleWebhook(context.Background(), testPayload, testSignature)
	require.Error(t, err)
	assert.Equal(t, OutcomeError, f.log.outcome("evt_1"))

	result, err := f.svc.HandleWebhook(context.Background(), testPayload, testSignature)
	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, result.Outcome)
	assert.Equal(t, OutcomePaid, f.log.outcome("evt_1"))
}

func TestHandleWebhook_OversellIsLogged(t *testing.T) {
	f := newCheckoutFixture(t)
	p := newTestProduct(t)
	c := newUserCart(t, uuid.New(), p, 1)
	o := newPendingOrder(t, c, p, 1, "")

	f.gateway.On("ParseWebhook", testPayload, testSignature).Return(succeededEvent("evt_1", o.AmountCents), nil)
	f.orders.On("FindByPaymentIntent", mock.Anything, "pi_1").Return(o, nil)
	f.products.On("AdjustStock", mock.Anything, p.Variants[0].ID, -1).Return(shared.ErrInsufficientStock)
	f.carts.On("FindByID", mock.Anything, c.ID).Return(c, nil)
	f.carts.On("Save", mock.Anything, c).Return(nil)
	f.orders.On("Save", mock.Anything, o).Return(nil)

	result, err := f.svc.HandleWebhook(context.Background(), testPayload, testSignature)
	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, result.Outcome)
}

func TestHandleWebhook_AlreadyPaid(t *testing.T) {
	f := newCheckoutFixture(t)
	p := newTestProduct(t)
	c := newUserCart(t, uuid.New(), p, 1)
	o := newPendingOrder(t, c, p, 1, "")
	require.NoError(t, o.MarkPaid(o.PlacedAt))
	o.ClearDomainEvents()

	f.gateway.On("ParseWebhook", testPayload, testSignature).Return(succeededEvent("evt_2", o.AmountCents), nil)
	f.orders.On("FindByPaymentIntent", mock.Anything, "pi_1").Return(o, nil)

	result, err := f.svc.HandleWebhook(context.Background(), testPayload, testSignature)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, result.Outcome)
	f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestHandleWebhook_UnknownIntent(t *testing.T) {
	f := newCheckoutFixture(t)
	f.gateway.On("ParseWebhook", testPayload, testSignature).Return(succeededEvent("evt_1", 1000), nil)
	f.orders.On("FindByPaymentIntent", mock.Anything, "pi_1").Return(nil, shared.ErrNotFound)

	result, err := f.svc.HandleWebhook(context.Background(), testPayload, testSignature)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownIntent, result.Outcome)
}

func TestHandleWebhook_PaymentFailed(t *testing.T) {
	f := newCheckoutFixture(t)
	p := newTestProduct(t)
	c := newUserCart(t, uuid.New(), p, 1)
	o := newPendingOrder(t, c, p, 1, "")

	f.gateway.On("ParseWebhook", testPayload, testSignature).Return(&checkout.GatewayEvent{
		ID:              "evt_3",
		Type:            checkout.GatewayEventPaymentFailed,
		PaymentIntentID: "pi_1",
		FailureMessage:  "Your card was declined.",
	}, nil)
	f.orders.On("FindByPaymentIntent", mock.Anything, "pi_1").Return(o, nil)
	f.orders.On("Save", mock.Anything, o).Return(nil)

	result, err := f.svc.HandleWebhook(context.Background(), testPayload, testSignature)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, order.PaymentStatusFailed, o.PaymentStatus)
	assert.Equal(t, []string{order.EventTypeOrderPaymentFailed}, f.events.types())
}

func TestHandleWebhook_ChargeRefunded(t *testing.T) {
	f := newCheckoutFixture(t)
	p := newTestProduct(t)
	c := newUserCart(t, uuid.New(), p, 1)
	o := newPendingOrder(t, c, p, 1, "")

	refund := &checkout.GatewayEvent{
		ID:              "evt_4",
		Type:            checkout.GatewayEventChargeRefunded,
		PaymentIntentID: "pi_1",
	}
	f.gateway.On("ParseWebhook", testPayload, testSignature).Return(refund, nil)
	f.orders.On("FindByPaymentIntent", mock.Anything, "pi_1").Return(o, nil)

	// a refund for an order that never got paid is acknowledged but ignored
	result, err := f.svc.HandleWebhook(context.Background(), testPayload, testSignature)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, result.Outcome)

	require.NoError(t, o.MarkPaid(o.PlacedAt))
	o.ClearDomainEvents()
	refund.ID = "evt_5"
	f.orders.On("Save", mock.Anything, o).Return(nil)

	result, err = f.svc.HandleWebhook(context.Background(), testPayload, testSignature)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefunded, result.Outcome)
	assert.Equal(t, order.PaymentStatusRefunded, o.PaymentStatus)
	assert.NotNil(t, o.RefundedAt)
	assert.Equal(t, []string{order.EventTypeOrderRefunded}, f.events.types())
}

func TestHandleWebhook_UnhandledType(t *testing.T) {
	f := newCheckoutFixture(t)
	f.gateway.On("ParseWebhook", testPayload, testSignature).Return(&checkout.GatewayEvent{
		ID:   "evt_6",
		Type: "customer.created",
	}, nil)

	result, err := f.svc.HandleWebhook(context.Background(), testPayload, testSignature)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, result.Outcome)
	assert.Equal(t, OutcomeIgnored, f.log.outcome("evt_6"))
}
