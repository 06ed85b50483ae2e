package order

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/fruitstand/backend/internal/domain/checkout"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usd(s string) valueobject.Money {
	return valueobject.MustMoney(s, valueobject.USD)
}

func testAddress(t *testing.T) valueobject.Address {
	t.Helper()
	addr, err := valueobject.NewAddress("Ada Lovelace", "1 Orchard Way", "Portland", "97201", "us",
		valueobject.WithState("or"), valueobject.WithPhone("+15035550100"))
	require.NoError(t, err)
	return addr
}

func testLines() []Line {
	return []Line{
		{ProductID: uuid.New(), VariantID: uuid.New(), ProductName: "Mango Tee", VariantLabel: "M / Yellow",
			SKU: "MANGO-M", UnitPrice: usd("25.00"), Quantity: 2},
		{ProductID: uuid.New(), VariantID: uuid.New(), ProductName: "Kiwi Cap", VariantLabel: "Default",
			SKU: "KIWI", UnitPrice: usd("15.00"), Quantity: 1},
	}
}

func testQuote(t *testing.T) checkout.Quote {
	t.Helper()
	policy := checkout.PricingPolicy{
		Currency:     valueobject.USD,
		FlatShipping: usd("5.99"),
		TaxRate:      decimal.RequireFromString("0.1"),
	}
	q, err := policy.Calculate(checkout.PricingInput{Subtotal: usd("65.00")})
	require.NoError(t, err)
	return q
}

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	userID := uuid.New()
	o, err := NewOrder(NewOrderParams{
		UserID:          &userID,
		CartID:          uuid.New(),
		Email:           " Ada@Example.com ",
		ShippingAddress: testAddress(t),
		Lines:           testLines(),
		Quote:           testQuote(t),
	})
	require.NoError(t, err)
	return o
}

func TestNewOrder(t *testing.T) {
	o := newTestOrder(t)

	assert.Regexp(t, regexp.MustCompile(`^FS-\d{6}-[2-9A-Z]{6}$`), o.Number)
	assert.Equal(t, "ada@example.com", o.Email)
	assert.Equal(t, PaymentStatusPending, o.PaymentStatus)
	assert.Equal(t, FulfillmentStatusUnfulfilled, o.FulfillmentStatus)
	assert.Len(t, o.Items, 2)
	assert.Equal(t, "50.00", o.Items[0].LineTotal.StringFixed())
	assert.Equal(t, o.ID, o.Items[0].OrderID)
	assert.Equal(t, "65.00", o.Subtotal.StringFixed())
	assert.Equal(t, "5.99", o.Shipping.StringFixed())
	assert.Equal(t, "6.50", o.Tax.StringFixed())
	assert.Equal(t, "77.49", o.Total.StringFixed())
	assert.Equal(t, int64(7749), o.AmountCents)
	assert.Equal(t, "+15035550100", o.ContactPhone())

	events := o.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeOrderPlaced, events[0].EventType())
}

func TestNewOrder_Validation(t *testing.T) {
	addr := testAddress(t)
	q := testQuote(t)
	userID := uuid.New()

	tests := []struct {
		name   string
		params NewOrderParams
		code   error
	}{
		{"no owner", NewOrderParams{Email: "a@b.co", ShippingAddress: addr, Lines: testLines(), Quote: q}, shared.ErrUnauthorized},
		{"missing email", NewOrderParams{UserID: &userID, ShippingAddress: addr, Lines: testLines(), Quote: q}, shared.ErrInvalidInput},
		{"bad email", NewOrderParams{UserID: &userID, Email: "nope", ShippingAddress: addr, Lines: testLines(), Quote: q}, shared.ErrInvalidInput},
		{"missing address", NewOrderParams{UserID: &userID, Email: "a@b.co", Lines: testLines(), Quote: q}, shared.ErrInvalidInput},
		{"no lines", NewOrderParams{UserID: &userID, Email: "a@b.co", ShippingAddress: addr, Quote: q}, shared.ErrInvalidInput},
		{"quote mismatch", NewOrderParams{UserID: &userID, Email: "a@b.co", ShippingAddress: addr, Lines: testLines()[:1], Quote: q}, shared.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrder(tt.params)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestOrder_PaymentLifecycle(t *testing.T) {
	o := newTestOrder(t)
	o.ClearDomainEvents()

	require.NoError(t, o.MarkPaymentFailed("card_declined"))
	require.NoError(t, o.MarkPaymentFailed("card_declined"))
	assert.Equal(t, PaymentStatusFailed, o.PaymentStatus)
	assert.Len(t, o.GetDomainEvents(), 1)

	require.NoError(t, o.MarkPaid(time.Now()))
	assert.Equal(t, PaymentStatusPaid, o.PaymentStatus)
	assert.NotNil(t, o.PaidAt)
	assert.False(t, o.IsAwaitingPayment())

	err := o.MarkPaymentFailed("late failure")
	assert.True(t, errors.Is(err, shared.ErrInvalidState))

	require.NoError(t, o.MarkRefunded(time.Now()))
	require.NoError(t, o.MarkRefunded(time.Now()))
	assert.Equal(t, PaymentStatusRefunded, o.PaymentStatus)
	assert.Error(t, o.MarkPaid(time.Now()))
}

func TestOrder_FlagForReview(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.FlagForReview("amount mismatch"))
	assert.Equal(t, PaymentStatusNeedsReview, o.PaymentStatus)
	assert.Error(t, o.MarkPaymentFailed("x"))
	require.NoError(t, o.MarkPaid(time.Now()))
}

func TestOrder_Fulfillment(t *testing.T) {
	o := newTestOrder(t)

	assert.True(t, errors.Is(o.StartProcessing(), shared.ErrInvalidState))
	assert.True(t, errors.Is(o.Ship("UPS", "1Z"), shared.ErrInvalidState))

	require.NoError(t, o.MarkPaid(time.Now()))
	assert.Error(t, o.Ship("UPS", "1Z"), "must be processing first")
	require.NoError(t, o.StartProcessing())

	assert.True(t, errors.Is(o.Ship("", "1Z"), shared.ErrInvalidInput))
	assert.True(t, errors.Is(o.Ship("UPS", " "), shared.ErrInvalidInput))
	o.ClearDomainEvents()
	require.NoError(t, o.Ship(" UPS ", "1Z999"))
	assert.Equal(t, "UPS", o.TrackingCarrier)
	assert.NotNil(t, o.ShippedAt)
	require.Len(t, o.GetDomainEvents(), 1)
	shipped, ok := o.GetDomainEvents()[0].(*OrderShippedEvent)
	require.True(t, ok)
	assert.Equal(t, "1Z999", shipped.TrackingNumber)

	assert.Error(t, o.Cancel("too late"))
	require.NoError(t, o.MarkDelivered())
	assert.Equal(t, FulfillmentStatusDelivered, o.FulfillmentStatus)
	assert.Error(t, o.MarkDelivered())
}

func TestOrder_Cancel(t *testing.T) {
	unpaid := newTestOrder(t)
	require.NoError(t, unpaid.Cancel(" changed mind "))
	assert.Equal(t, "changed mind", unpaid.CancelReason)
	assert.False(t, unpaid.NeedsRefund())
	assert.Error(t, unpaid.Cancel("again"))

	paid := newTestOrder(t)
	require.NoError(t, paid.MarkPaid(time.Now()))
	require.NoError(t, paid.StartProcessing())
	require.NoError(t, paid.Cancel("out of stock"))
	assert.True(t, paid.NeedsRefund())
	require.NoError(t, paid.MarkRefunded(time.Now()))
	assert.False(t, paid.NeedsRefund())
}

func TestOrder_Reprice(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.MarkPaymentFailed("declined"))

	policy := checkout.PricingPolicy{Currency: valueobject.USD, FlatShipping: usd("5.99")}
	q, err := policy.Calculate(checkout.PricingInput{Subtotal: usd("25.00")})
	require.NoError(t, err)
	lines := testLines()[:1]
	lines[0].Quantity = 1

	require.NoError(t, o.Reprice("new@example.com", testAddress(t), lines, q))
	assert.Equal(t, PaymentStatusPending, o.PaymentStatus)
	assert.Equal(t, int64(3099), o.AmountCents)
	assert.Len(t, o.Items, 1)

	require.NoError(t, o.MarkPaid(time.Now()))
	assert.True(t, errors.Is(o.Reprice("new@example.com", testAddress(t), lines, q), shared.ErrInvalidState))
}

func TestOrder_IsOwnedBy(t *testing.T) {
	o := newTestOrder(t)
	owner := *o.UserID
	other := uuid.New()
	assert.True(t, o.IsOwnedBy(&owner, ""))
	assert.False(t, o.IsOwnedBy(&other, ""))
	assert.False(t, o.IsOwnedBy(nil, "guest"))

	guest := &Order{SessionToken: "sess-1"}
	assert.True(t, guest.IsOwnedBy(nil, "sess-1"))
	assert.False(t, guest.IsOwnedBy(nil, ""))
	assert.True(t, guest.IsGuest())
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusNeedsReview))
	assert.True(t, PaymentStatusFailed.CanTransitionTo(PaymentStatusPending))
	assert.False(t, PaymentStatusPaid.CanTransitionTo(PaymentStatusFailed))
	assert.False(t, PaymentStatusRefunded.CanTransitionTo(PaymentStatusPaid))
	assert.False(t, PaymentStatus("bogus").IsValid())

	assert.True(t, FulfillmentStatusProcessing.CanTransitionTo(FulfillmentStatusCancelled))
	assert.False(t, FulfillmentStatusShipped.CanTransitionTo(FulfillmentStatusCancelled))
	assert.False(t, FulfillmentStatusUnfulfilled.CanTransitionTo(FulfillmentStatusShipped))
	assert.True(t, FulfillmentStatusDelivered.IsValid())
}

func TestOrder_SetNotes(t *testing.T) {
	o := newTestOrder(t)

	require.NoError(t, o.SetNotes("  gift wrap  "))
	assert.Equal(t, "gift wrap", o.Notes)

	err := o.SetNotes(strings.Repeat("x", 2001))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
