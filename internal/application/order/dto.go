package order

import (
	"time"

	"github.com/fruitstand/backend/internal/domain/order"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ListOrdersQuery holds customer order list parameters
type ListOrdersQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// AdminListOrdersQuery holds admin order list parameters
type AdminListOrdersQuery struct {
	Search            string `form:"search"`
	PaymentStatus     string `form:"payment_status"`
	FulfillmentStatus string `form:"fulfillment_status"`
	Page              int    `form:"page"`
	PageSize          int    `form:"page_size"`
}

// LookupQuery finds a guest order by its number and email
type LookupQuery struct {
	Number string `form:"number" binding:"required,max=32"`
	Email  string `form:"email" binding:"required,email"`
}

// ShipRequest records carrier and tracking details
type ShipRequest struct {
	Carrier        string `json:"carrier" binding:"required,max=50"`
	TrackingNumber string `json:"tracking_number" binding:"required,max=100"`
}

// CancelRequest cancels an order with an optional reason
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ItemResponse represents an order line in API responses
type ItemResponse struct {
	ID           uuid.UUID         `json:"id"`
	ProductID    uuid.UUID         `json:"product_id"`
	VariantID    uuid.UUID         `json:"variant_id"`
	ProductName  string            `json:"product_name"`
	VariantLabel string            `json:"variant_label"`
	SKU          string            `json:"sku"`
	UnitPrice    valueobject.Money `json:"unit_price"`
	Quantity     int               `json:"quantity"`
	LineTotal    valueobject.Money `json:"line_total"`
}

// OrderResponse represents an order in API responses. Staff-only fields are
// left empty for customers.
type OrderResponse struct {
	ID                uuid.UUID              `json:"id"`
	Number            string                 `json:"number"`
	Email             string                 `json:"email"`
	ShippingAddress   valueobject.AddressDTO `json:"shipping_address"`
	Items             []ItemResponse         `json:"items"`
	Subtotal          valueobject.Money      `json:"subtotal"`
	Discount          valueobject.Money      `json:"discount"`
	CouponCode        string                 `json:"coupon_code,omitempty"`
	Shipping          valueobject.Money      `json:"shipping"`
	Tax               valueobject.Money      `json:"tax"`
	Total             valueobject.Money      `json:"total"`
	PaymentStatus     string                 `json:"payment_status"`
	FulfillmentStatus string                 `json:"fulfillment_status"`
	TrackingCarrier   string                 `json:"tracking_carrier,omitempty"`
	TrackingNumber    string                 `json:"tracking_number,omitempty"`
	CancelReason      string                 `json:"cancel_reason,omitempty"`
	PlacedAt          time.Time              `json:"placed_at"`
	PaidAt            *time.Time             `json:"paid_at,omitempty"`
	ShippedAt         *time.Time             `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time             `json:"delivered_at,omitempty"`
	CancelledAt       *time.Time             `json:"cancelled_at,omitempty"`
	RefundedAt        *time.Time             `json:"refunded_at,omitempty"`

	UserID          *uuid.UUID `json:"user_id,omitempty"`
	PaymentIntentID string     `json:"payment_intent_id,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

// OrderSummary is the compact list representation
type OrderSummary struct {
	ID                uuid.UUID         `json:"id"`
	Number            string            `json:"number"`
	Email             string            `json:"email"`
	ItemCount         int               `json:"item_count"`
	Total             valueobject.Money `json:"total"`
	PaymentStatus     string            `json:"payment_status"`
	FulfillmentStatus string            `json:"fulfillment_status"`
	PlacedAt          time.Time         `json:"placed_at"`
}

func toOrderResponse(o *order.Order, staff bool) *OrderResponse {
	items := make([]ItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = ItemResponse{
			ID:           it.ID,
			ProductID:    it.ProductID,
			VariantID:    it.VariantID,
			ProductName:  it.ProductName,
			VariantLabel: it.VariantLabel,
			SKU:          it.SKU,
			UnitPrice:    it.UnitPrice,
			Quantity:     it.Quantity,
			LineTotal:    it.LineTotal,
		}
	}
	resp := &OrderResponse{
		ID:                o.ID,
		Number:            o.Number,
		Email:             o.Email,
		ShippingAddress:   o.ShippingAddress.ToDTO(),
		Items:             items,
		Subtotal:          o.Subtotal,
		Discount:          o.Discount,
		CouponCode:        o.CouponCode,
		Shipping:          o.Shipping,
		Tax:               o.Tax,
		Total:             o.Total,
		PaymentStatus:     string(o.PaymentStatus),
		FulfillmentStatus: string(o.FulfillmentStatus),
		TrackingCarrier:   o.TrackingCarrier,
		TrackingNumber:    o.TrackingNumber,
		CancelReason:      o.CancelReason,
		PlacedAt:          o.PlacedAt,
		PaidAt:            o.PaidAt,
		ShippedAt:         o.ShippedAt,
		DeliveredAt:       o.DeliveredAt,
		CancelledAt:       o.CancelledAt,
		RefundedAt:        o.RefundedAt,
	}
	if staff {
		resp.UserID = o.UserID
		resp.PaymentIntentID = o.PaymentIntentID
		resp.Notes = o.Notes
	}
	return resp
}

func toOrderSummary(o *order.Order) OrderSummary {
	count := 0
	for _, it := range o.Items {
		count += it.Quantity
	}
	return OrderSummary{
		ID:                o.ID,
		Number:            o.Number,
		Email:             o.Email,
		ItemCount:         count,
		Total:             o.Total,
		PaymentStatus:     string(o.PaymentStatus),
		FulfillmentStatus: string(o.FulfillmentStatus),
		PlacedAt:          o.PlacedAt,
	}
}
