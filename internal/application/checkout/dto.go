package checkout

import (
	"time"

	"github.com/fruitstand/backend/internal/domain/checkout"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteRequest prices the current cart
type QuoteRequest struct {
	CouponCode string `json:"coupon_code" binding:"max=40"`
}

// PaymentIntentRequest starts or refreshes payment for the current cart
type PaymentIntentRequest struct {
	Email           string                 `json:"email" binding:"required,email,max=254"`
	ShippingAddress valueobject.AddressDTO `json:"shipping_address" binding:"required"`
	CouponCode      string                 `json:"coupon_code" binding:"max=40"`
}

// QuoteResponse is the priced breakdown shown before payment
type QuoteResponse struct {
	Subtotal    valueobject.Money    `json:"subtotal"`
	Discount    valueobject.Money    `json:"discount"`
	Shipping    valueobject.Money    `json:"shipping"`
	Tax         valueobject.Money    `json:"tax"`
	Total       valueobject.Money    `json:"total"`
	AmountCents int64                `json:"amount_cents"`
	Currency    valueobject.Currency `json:"currency"`
	CouponCode  string               `json:"coupon_code,omitempty"`
}

// PaymentIntentResponse carries what the browser needs to confirm payment
type PaymentIntentResponse struct {
	OrderID        uuid.UUID     `json:"order_id"`
	OrderNumber    string        `json:"order_number"`
	ClientSecret   string        `json:"client_secret"`
	PublishableKey string        `json:"publishable_key"`
	Quote          QuoteResponse `json:"quote"`
}

// WebhookResult reports how a gateway event was handled
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Outcome   string `json:"outcome"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// CreateCouponRequest represents a request to create a coupon
type CreateCouponRequest struct {
	Code           string           `json:"code" binding:"required,min=3,max=40"`
	Type           string           `json:"type" binding:"required,oneof=percent fixed"`
	Value          decimal.Decimal  `json:"value" binding:"required"`
	MinSubtotal    *decimal.Decimal `json:"min_subtotal"`
	StartsAt       *time.Time       `json:"starts_at"`
	EndsAt         *time.Time       `json:"ends_at"`
	MaxRedemptions *int             `json:"max_redemptions" binding:"omitempty,min=1"`
}

// ListCouponsQuery holds coupon list parameters
type ListCouponsQuery struct {
	Search   string `form:"search"`
	Active   *bool  `form:"active"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// CouponResponse represents a coupon in API responses
type CouponResponse struct {
	ID             uuid.UUID          `json:"id"`
	Code           string             `json:"code"`
	Type           string             `json:"type"`
	Value          decimal.Decimal    `json:"value"`
	Currency       string             `json:"currency"`
	MinSubtotal    *valueobject.Money `json:"min_subtotal,omitempty"`
	StartsAt       *time.Time         `json:"starts_at,omitempty"`
	EndsAt         *time.Time         `json:"ends_at,omitempty"`
	MaxRedemptions *int               `json:"max_redemptions,omitempty"`
	Redemptions    int                `json:"redemptions"`
	Active         bool               `json:"active"`
	CreatedAt      time.Time          `json:"created_at"`
}

func toQuoteResponse(q checkout.Quote) QuoteResponse {
	return QuoteResponse{
		Subtotal:    q.Subtotal,
		Discount:    q.Discount,
		Shipping:    q.Shipping,
		Tax:         q.Tax,
		Total:       q.Total,
		AmountCents: q.AmountCents,
		Currency:    q.Currency,
		CouponCode:  q.CouponCode,
	}
}

func toCouponResponse(c *checkout.Coupon) CouponResponse {
	return CouponResponse{
		ID:             c.ID,
		Code:           c.Code,
		Type:           string(c.Type),
		Value:          c.Value,
		Currency:       string(c.Currency),
		MinSubtotal:    c.MinSubtotal,
		StartsAt:       c.StartsAt,
		EndsAt:         c.EndsAt,
		MaxRedemptions: c.MaxRedemptions,
		Redemptions:    c.Redemptions,
		Active:         c.Active,
		CreatedAt:      c.CreatedAt,
	}
}
