package models

import (
	"time"

	"github.com/fruitstand/backend/internal/domain/order"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OrderModel is the persistence model for the Order aggregate
type OrderModel struct {
	AggregateModel
	Number            string                                     `gorm:"type:varchar(20);not null;uniqueIndex"`
	UserID            *uuid.UUID                                 `gorm:"type:uuid;index"`
	SessionToken      string                                     `gorm:"type:varchar(64)"`
	CartID            uuid.UUID                                  `gorm:"type:uuid;not null;index"`
	Email             string                                     `gorm:"type:varchar(255);not null;index"`
	ShippingAddress   datatypes.JSONType[valueobject.AddressDTO] `gorm:"not null"`
	Subtotal          decimal.Decimal                            `gorm:"type:decimal(12,2);not null"`
	Discount          decimal.Decimal                            `gorm:"type:decimal(12,2);not null"`
	Shipping          decimal.Decimal                            `gorm:"type:decimal(12,2);not null"`
	Tax               decimal.Decimal                            `gorm:"type:decimal(12,2);not null"`
	Total             decimal.Decimal                            `gorm:"type:decimal(12,2);not null"`
	AmountCents       int64                                      `gorm:"not null"`
	Currency          string                                     `gorm:"type:varchar(3);not null"`
	CouponCode        string                                     `gorm:"type:varchar(40)"`
	PaymentStatus     order.PaymentStatus                        `gorm:"type:varchar(20);not null;index"`
	FulfillmentStatus order.FulfillmentStatus                    `gorm:"type:varchar(20);not null;index"`
	PaymentIntentID   *string                                    `gorm:"type:varchar(255);uniqueIndex"`
	TrackingCarrier   string                                     `gorm:"type:varchar(60)"`
	TrackingNumber    string                                     `gorm:"type:varchar(100)"`
	CancelReason      string                                     `gorm:"type:varchar(500)"`
	Notes             string                                     `gorm:"type:text"`
	PlacedAt          time.Time                                  `gorm:"not null;index"`
	PaidAt            *time.Time
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
	CancelledAt       *time.Time
	RefundedAt        *time.Time
	Items             []OrderItemModel `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is an immutable order line
type OrderItemModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null"`
	VariantID    uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName  string          `gorm:"type:varchar(200);not null"`
	VariantLabel string          `gorm:"type:varchar(100)"`
	SKU          string          `gorm:"column:sku;type:varchar(64)"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity     int             `gorm:"not null"`
	LineTotal    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain Order. An address that
// no longer validates is returned empty rather than failing the whole load.
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		BaseAggregateRoot: m.aggregate(),
		Number:            m.Number,
		UserID:            m.UserID,
		SessionToken:      m.SessionToken,
		CartID:            m.CartID,
		Email:             m.Email,
		Subtotal:          money(m.Subtotal, m.Currency),
		Discount:          money(m.Discount, m.Currency),
		Shipping:          money(m.Shipping, m.Currency),
		Tax:               money(m.Tax, m.Currency),
		Total:             money(m.Total, m.Currency),
		AmountCents:       m.AmountCents,
		Currency:          valueobject.Currency(m.Currency),
		CouponCode:        m.CouponCode,
		PaymentStatus:     m.PaymentStatus,
		FulfillmentStatus: m.FulfillmentStatus,
		TrackingCarrier:   m.TrackingCarrier,
		TrackingNumber:    m.TrackingNumber,
		CancelReason:      m.CancelReason,
		Notes:             m.Notes,
		PlacedAt:          m.PlacedAt,
		PaidAt:            m.PaidAt,
		ShippedAt:         m.ShippedAt,
		DeliveredAt:       m.DeliveredAt,
		CancelledAt:       m.CancelledAt,
		RefundedAt:        m.RefundedAt,
		Items:             make([]order.Item, 0, len(m.Items)),
	}
	if addr, err := m.ShippingAddress.Data().ToAddress(); err == nil {
		o.ShippingAddress = addr
	}
	if m.PaymentIntentID != nil {
		o.PaymentIntentID = *m.PaymentIntentID
	}
	for _, it := range m.Items {
		o.Items = append(o.Items, order.Item{
			ID:           it.ID,
			OrderID:      it.OrderID,
			ProductID:    it.ProductID,
			VariantID:    it.VariantID,
			ProductName:  it.ProductName,
			VariantLabel: it.VariantLabel,
			SKU:          it.SKU,
			UnitPrice:    money(it.UnitPrice, m.Currency),
			Quantity:     it.Quantity,
			LineTotal:    money(it.LineTotal, m.Currency),
		})
	}
	return o
}

// FromDomain populates the persistence model from a domain Order
func (m *OrderModel) FromDomain(o *order.Order) {
	m.setAggregate(o.BaseAggregateRoot)
	m.Number = o.Number
	m.UserID = o.UserID
	m.SessionToken = o.SessionToken
	m.CartID = o.CartID
	m.Email = o.Email
	m.ShippingAddress = datatypes.NewJSONType(o.ShippingAddress.ToDTO())
	m.Subtotal = o.Subtotal.Amount()
	m.Discount = o.Discount.Amount()
	m.Shipping = o.Shipping.Amount()
	m.Tax = o.Tax.Amount()
	m.Total = o.Total.Amount()
	m.AmountCents = o.AmountCents
	m.Currency = string(o.Currency)
	m.CouponCode = o.CouponCode
	m.PaymentStatus = o.PaymentStatus
	m.FulfillmentStatus = o.FulfillmentStatus
	m.PaymentIntentID = nil
	if o.PaymentIntentID != "" {
		id := o.PaymentIntentID
		m.PaymentIntentID = &id
	}
	m.TrackingCarrier = o.TrackingCarrier
	m.TrackingNumber = o.TrackingNumber
	m.CancelReason = o.CancelReason
	m.Notes = o.Notes
	m.PlacedAt = o.PlacedAt
	m.PaidAt = o.PaidAt
	m.ShippedAt = o.ShippedAt
	m.DeliveredAt = o.DeliveredAt
	m.CancelledAt = o.CancelledAt
	m.RefundedAt = o.RefundedAt
	m.Items = make([]OrderItemModel, 0, len(o.Items))
	for _, it := range o.Items {
		m.Items = append(m.Items, OrderItemModel{
			ID:           it.ID,
			OrderID:      o.ID,
			ProductID:    it.ProductID,
			VariantID:    it.VariantID,
			ProductName:  it.ProductName,
			VariantLabel: it.VariantLabel,
			SKU:          it.SKU,
			UnitPrice:    it.UnitPrice.Amount(),
			Quantity:     it.Quantity,
			LineTotal:    it.LineTotal.Amount(),
		})
	}
}

// OrderModelFromDomain creates a persistence model from a domain Order
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}
