package order

import (
	"crypto/rand"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/fruitstand/backend/internal/domain/checkout"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Item is an immutable order line
type Item struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	ProductID    uuid.UUID
	VariantID    uuid.UUID
	ProductName  string
	VariantLabel string
	SKU          string
	UnitPrice    valueobject.Money
	Quantity     int
	LineTotal    valueobject.Money
}

// Line is the input used to build order items from a cart
type Line struct {
	ProductID    uuid.UUID
	VariantID    uuid.UUID
	ProductName  string
	VariantLabel string
	SKU          string
	UnitPrice    valueobject.Money
	Quantity     int
}

// Order is the purchase aggregate root
type Order struct {
	shared.BaseAggregateRoot
	Number            string
	UserID            *uuid.UUID
	SessionToken      string
	CartID            uuid.UUID
	Email             string
	ShippingAddress   valueobject.Address
	Items             []Item
	Subtotal          valueobject.Money
	Discount          valueobject.Money
	Shipping          valueobject.Money
	Tax               valueobject.Money
	Total             valueobject.Money
	AmountCents       int64
	Currency          valueobject.Currency
	CouponCode        string
	PaymentStatus     PaymentStatus
	FulfillmentStatus FulfillmentStatus
	PaymentIntentID   string
	TrackingCarrier   string
	TrackingNumber    string
	CancelReason      string
	Notes             string
	PlacedAt          time.Time
	PaidAt            *time.Time
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
	CancelledAt       *time.Time
	RefundedAt        *time.Time
}

// NewOrderParams carries everything needed to place an order
type NewOrderParams struct {
	UserID          *uuid.UUID
	SessionToken    string
	CartID          uuid.UUID
	Email           string
	ShippingAddress valueobject.Address
	Lines           []Line
	Quote           checkout.Quote
}

// NewOrder creates an order awaiting payment
func NewOrder(p NewOrderParams) (*Order, error) {
	if p.UserID == nil && p.SessionToken == "" {
		return nil, shared.NewDomainError("UNAUTHORIZED", "A user or guest session is required")
	}
	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            GenerateNumber(time.Now()),
		UserID:            p.UserID,
		SessionToken:      p.SessionToken,
		CartID:            p.CartID,
		PaymentStatus:     PaymentStatusPending,
		FulfillmentStatus: FulfillmentStatusUnfulfilled,
		PlacedAt:          time.Now(),
	}
	if err := o.apply(p.Email, p.ShippingAddress, p.Lines, p.Quote); err != nil {
		return nil, err
	}
	o.AddDomainEvent(NewOrderPlacedEvent(o))
	return o, nil
}

// Reprice replaces lines, totals and contact details of an unpaid order,
// used when the shopper changes the cart before paying
func (o *Order) Reprice(email string, address valueobject.Address, lines []Line, quote checkout.Quote) error {
	if !o.IsAwaitingPayment() {
		return shared.NewDomainError("INVALID_STATE", "Only unpaid orders can be repriced")
	}
	if err := o.apply(email, address, lines, quote); err != nil {
		return err
	}
	if o.PaymentStatus == PaymentStatusFailed {
		o.PaymentStatus = PaymentStatusPending
	}
	o.touch()
	return nil
}

func (o *Order) apply(email string, address valueobject.Address, lines []Line, quote checkout.Quote) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return shared.NewMissingFieldError("email")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return shared.NewDomainError("INVALID_INPUT", "Email address is invalid")
	}
	if address.IsEmpty() {
		return shared.NewMissingFieldError("shipping_address")
	}
	if len(lines) == 0 {
		return shared.NewDomainError("INVALID_INPUT", "Order must contain at least one item")
	}

	items := make([]Item, 0, len(lines))
	sum := valueobject.Zero(quote.Currency)
	for _, l := range lines {
		if l.Quantity < 1 {
			return shared.NewDomainError("INVALID_INPUT", "Quantity must be at least 1")
		}
		if l.UnitPrice.IsNegative() {
			return shared.NewDomainError("INVALID_INPUT", "Unit price cannot be negative")
		}
		lineTotal := l.UnitPrice.MultiplyByInt(int64(l.Quantity))
		var err error
		if sum, err = sum.Add(lineTotal); err != nil {
			return shared.NewDomainError("INVALID_INPUT", err.Error())
		}
		items = append(items, Item{
			ID:           uuid.New(),
			OrderID:      o.ID,
			ProductID:    l.ProductID,
			VariantID:    l.VariantID,
			ProductName:  l.ProductName,
			VariantLabel: l.VariantLabel,
			SKU:          l.SKU,
			UnitPrice:    l.UnitPrice,
			Quantity:     l.Quantity,
			LineTotal:    lineTotal,
		})
	}
	if !sum.Round().Equals(quote.Subtotal) {
		return shared.NewDomainError("INVALID_INPUT", "Quote does not match order lines")
	}

	o.Email = email
	o.ShippingAddress = address
	o.Items = items
	o.Subtotal = quote.Subtotal
	o.Discount = quote.Discount
	o.Shipping = quote.Shipping
	o.Tax = quote.Tax
	o.Total = quote.Total
	o.AmountCents = quote.AmountCents
	o.Currency = quote.Currency
	o.CouponCode = quote.CouponCode
	return nil
}

// AttachPaymentIntent records the payment provider's intent id
func (o *Order) AttachPaymentIntent(intentID string) {
	o.PaymentIntentID = intentID
	o.touch()
}

// MarkPaid records a successful payment
func (o *Order) MarkPaid(at time.Time) error {
	if err := o.transitionPayment(PaymentStatusPaid); err != nil {
		return err
	}
	o.PaidAt = &at
	o.AddDomainEvent(NewOrderPaidEvent(o))
	return nil
}

// MarkPaymentFailed records a failed payment attempt. Repeated failures are a no-op.
func (o *Order) MarkPaymentFailed(reason string) error {
	if o.PaymentStatus == PaymentStatusFailed {
		return nil
	}
	if err := o.transitionPayment(PaymentStatusFailed); err != nil {
		return err
	}
	o.AddDomainEvent(NewOrderPaymentFailedEvent(o, reason))
	return nil
}

// FlagForReview parks an order whose payment did not reconcile
func (o *Order) FlagForReview(reason string) error {
	if err := o.transitionPayment(PaymentStatusNeedsReview); err != nil {
		return err
	}
	o.AddDomainEvent(NewOrderPaymentFailedEvent(o, reason))
	return nil
}

// MarkRefunded records a full refund
func (o *Order) MarkRefunded(at time.Time) error {
	if o.PaymentStatus == PaymentStatusRefunded {
		return nil
	}
	if err := o.transitionPayment(PaymentStatusRefunded); err != nil {
		return err
	}
	o.RefundedAt = &at
	o.AddDomainEvent(NewOrderRefundedEvent(o))
	return nil
}

// StartProcessing moves a paid order into picking/packing
func (o *Order) StartProcessing() error {
	if o.PaymentStatus != PaymentStatusPaid {
		return shared.NewDomainError("INVALID_STATE", "Only paid orders can be processed")
	}
	return o.transitionFulfillment(FulfillmentStatusProcessing)
}

// Ship records carrier and tracking details
func (o *Order) Ship(carrier, trackingNumber string) error {
	if o.PaymentStatus != PaymentStatusPaid {
		return shared.NewDomainError("INVALID_STATE", "Only paid orders can be shipped")
	}
	carrier = strings.TrimSpace(carrier)
	trackingNumber = strings.TrimSpace(trackingNumber)
	if carrier == "" {
		return shared.NewMissingFieldError("carrier")
	}
	if trackingNumber == "" {
		return shared.NewMissingFieldError("tracking_number")
	}
	if err := o.transitionFulfillment(FulfillmentStatusShipped); err != nil {
		return err
	}
	now := time.Now()
	o.TrackingCarrier = carrier
	o.TrackingNumber = trackingNumber
	o.ShippedAt = &now
	o.AddDomainEvent(NewOrderShippedEvent(o))
	return nil
}

// MarkDelivered completes fulfillment
func (o *Order) MarkDelivered() error {
	if err := o.transitionFulfillment(FulfillmentStatusDelivered); err != nil {
		return err
	}
	now := time.Now()
	o.DeliveredAt = &now
	return nil
}

// Cancel stops fulfillment. A paid order still needs a refund afterwards;
// see NeedsRefund.
func (o *Order) Cancel(reason string) error {
	if err := o.transitionFulfillment(FulfillmentStatusCancelled); err != nil {
		return err
	}
	now := time.Now()
	o.CancelledAt = &now
	o.CancelReason = strings.TrimSpace(reason)
	o.AddDomainEvent(NewOrderCancelledEvent(o))
	return nil
}

// SetNotes replaces the internal staff notes
func (o *Order) SetNotes(notes string) error {
	notes = strings.TrimSpace(notes)
	if len(notes) > 2000 {
		return shared.NewDomainError("INVALID_INPUT", "Notes cannot exceed 2000 characters")
	}
	o.Notes = notes
	o.touch()
	return nil
}

// NeedsRefund reports whether money was captured for a cancelled order
func (o *Order) NeedsRefund() bool {
	return o.FulfillmentStatus == FulfillmentStatusCancelled &&
		(o.PaymentStatus == PaymentStatusPaid || o.PaymentStatus == PaymentStatusNeedsReview)
}

// IsAwaitingPayment reports whether the order can still be paid or repriced
func (o *Order) IsAwaitingPayment() bool {
	return (o.PaymentStatus == PaymentStatusPending || o.PaymentStatus == PaymentStatusFailed) &&
		o.FulfillmentStatus == FulfillmentStatusUnfulfilled
}

// IsGuest reports whether the order was placed without an account
func (o *Order) IsGuest() bool {
	return o.UserID == nil
}

// IsOwnedBy reports whether the user or guest session placed this order
func (o *Order) IsOwnedBy(userID *uuid.UUID, sessionToken string) bool {
	if o.UserID != nil {
		return userID != nil && *userID == *o.UserID
	}
	return sessionToken != "" && sessionToken == o.SessionToken
}

// ContactPhone returns the phone on the shipping address, if any
func (o *Order) ContactPhone() string {
	return o.ShippingAddress.Phone()
}

func (o *Order) transitionPayment(target PaymentStatus) error {
	if !o.PaymentStatus.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot change payment status from %s to %s", o.PaymentStatus, target))
	}
	o.PaymentStatus = target
	o.touch()
	return nil
}

func (o *Order) transitionFulfillment(target FulfillmentStatus) error {
	if !o.FulfillmentStatus.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot change fulfillment status from %s to %s", o.FulfillmentStatus, target))
	}
	o.FulfillmentStatus = target
	o.touch()
	return nil
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
}

// numberAlphabet omits characters that are easy to misread (0/O, 1/I/L)
const numberAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// GenerateNumber returns a customer-facing order number such as FS-260314-7KQ2XM
func GenerateNumber(now time.Time) string {
	return "FS-" + now.UTC().Format("060102") + "-" + randomCode(6)
}

func randomCode(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return string(out)
}
