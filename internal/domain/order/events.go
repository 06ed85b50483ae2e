package order

import (
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// AggregateTypeOrder is the aggregate type name for order events
const AggregateTypeOrder = "Order"

const (
	EventTypeOrderPlaced        = "OrderPlaced"
	EventTypeOrderPaid          = "OrderPaid"
	EventTypeOrderPaymentFailed = "OrderPaymentFailed"
	EventTypeOrderShipped       = "OrderShipped"
	EventTypeOrderCancelled     = "OrderCancelled"
	EventTypeOrderRefunded      = "OrderRefunded"
)

// OrderEvent carries the order snapshot notification handlers need
type OrderEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone,omitempty"`
	Total       valueobject.Money `json:"total"`
}

func newOrderEvent(eventType string, o *Order) OrderEvent {
	return OrderEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.Number,
		Email:           o.Email,
		Phone:           o.ContactPhone(),
		Total:           o.Total,
	}
}

// OrderPlacedEvent is published when an order is created awaiting payment
type OrderPlacedEvent struct {
	OrderEvent
}

func NewOrderPlacedEvent(o *Order) *OrderPlacedEvent {
	return &OrderPlacedEvent{OrderEvent: newOrderEvent(EventTypeOrderPlaced, o)}
}

// OrderPaidEvent is published when payment is confirmed
type OrderPaidEvent struct {
	OrderEvent
	PaymentIntentID string `json:"payment_intent_id"`
	ItemCount       int    `json:"item_count"`
}

func NewOrderPaidEvent(o *Order) *OrderPaidEvent {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return &OrderPaidEvent{
		OrderEvent:      newOrderEvent(EventTypeOrderPaid, o),
		PaymentIntentID: o.PaymentIntentID,
		ItemCount:       count,
	}
}

// OrderPaymentFailedEvent is published when a payment fails or needs review
type OrderPaymentFailedEvent struct {
	OrderEvent
	Status PaymentStatus `json:"status"`
	Reason string        `json:"reason"`
}

func NewOrderPaymentFailedEvent(o *Order, reason string) *OrderPaymentFailedEvent {
	return &OrderPaymentFailedEvent{
		OrderEvent: newOrderEvent(EventTypeOrderPaymentFailed, o),
		Status:     o.PaymentStatus,
		Reason:     reason,
	}
}

// OrderShippedEvent is published when tracking details are recorded
type OrderShippedEvent struct {
	OrderEvent
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"tracking_number"`
}

func NewOrderShippedEvent(o *Order) *OrderShippedEvent {
	return &OrderShippedEvent{
		OrderEvent:     newOrderEvent(EventTypeOrderShipped, o),
		Carrier:        o.TrackingCarrier,
		TrackingNumber: o.TrackingNumber,
	}
}

// OrderCancelledEvent is published when fulfillment is cancelled
type OrderCancelledEvent struct {
	OrderEvent
	Reason  string `json:"reason"`
	WasPaid bool   `json:"was_paid"`
}

func NewOrderCancelledEvent(o *Order) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		OrderEvent: newOrderEvent(EventTypeOrderCancelled, o),
		Reason:     o.CancelReason,
		WasPaid:    o.PaymentStatus == PaymentStatusPaid || o.PaymentStatus == PaymentStatusNeedsReview,
	}
}

// OrderRefundedEvent is published when a refund completes
type OrderRefundedEvent struct {
	OrderEvent
}

func NewOrderRefundedEvent(o *Order) *OrderRefundedEvent {
	return &OrderRefundedEvent{OrderEvent: newOrderEvent(EventTypeOrderRefunded, o)}
}
