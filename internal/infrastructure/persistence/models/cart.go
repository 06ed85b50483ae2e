package models

import (
	"time"

	"github.com/fruitstand/backend/internal/domain/cart"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartModel is the persistence model for the Cart aggregate
type CartModel struct {
	AggregateModel
	UserID       *uuid.UUID      `gorm:"type:uuid;uniqueIndex"`
	SessionToken *string         `gorm:"type:varchar(64);uniqueIndex"`
	Currency     string          `gorm:"type:varchar(3);not null"`
	ExpiresAt    *time.Time      `gorm:"index"`
	Items        []CartItemModel `gorm:"foreignKey:CartID"`
}

// TableName returns the table name for GORM
func (CartModel) TableName() string {
	return "carts"
}

// CartItemModel is one cart line
type CartItemModel struct {
	BaseModel
	CartID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null"`
	VariantID    uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName  string          `gorm:"type:varchar(200);not null"`
	VariantLabel string          `gorm:"type:varchar(100)"`
	SKU          string          `gorm:"column:sku;type:varchar(64)"`
	ImageKey     string          `gorm:"type:varchar(255)"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity     int             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CartItemModel) TableName() string {
	return "cart_items"
}

// ToDomain converts the persistence model to a domain Cart
func (m *CartModel) ToDomain() *cart.Cart {
	c := &cart.Cart{
		BaseAggregateRoot: m.aggregate(),
		UserID:            m.UserID,
		Currency:          valueobject.Currency(m.Currency),
		ExpiresAt:         m.ExpiresAt,
		Items:             make([]cart.Item, 0, len(m.Items)),
	}
	if m.SessionToken != nil {
		c.SessionToken = *m.SessionToken
	}
	for _, it := range m.Items {
		c.Items = append(c.Items, cart.Item{
			BaseEntity:   it.BaseModel.entity(),
			CartID:       it.CartID,
			ProductID:    it.ProductID,
			VariantID:    it.VariantID,
			ProductName:  it.ProductName,
			VariantLabel: it.VariantLabel,
			SKU:          it.SKU,
			ImageKey:     it.ImageKey,
			UnitPrice:    money(it.UnitPrice, m.Currency),
			Quantity:     it.Quantity,
		})
	}
	return c
}

// FromDomain populates the persistence model from a domain Cart
func (m *CartModel) FromDomain(c *cart.Cart) {
	m.setAggregate(c.BaseAggregateRoot)
	m.UserID = c.UserID
	m.SessionToken = nil
	if c.SessionToken != "" {
		token := c.SessionToken
		m.SessionToken = &token
	}
	m.Currency = string(c.Currency)
	m.ExpiresAt = c.ExpiresAt
	m.Items = make([]CartItemModel, 0, len(c.Items))
	for _, it := range c.Items {
		im := CartItemModel{
			CartID:       c.ID,
			ProductID:    it.ProductID,
			VariantID:    it.VariantID,
			ProductName:  it.ProductName,
			VariantLabel: it.VariantLabel,
			SKU:          it.SKU,
			ImageKey:     it.ImageKey,
			UnitPrice:    it.UnitPrice.Amount(),
			Quantity:     it.Quantity,
		}
		im.setEntity(it.BaseEntity)
		m.Items = append(m.Items, im)
	}
}

// CartModelFromDomain creates a persistence model from a domain Cart
func CartModelFromDomain(c *cart.Cart) *CartModel {
	m := &CartModel{}
	m.FromDomain(c)
	return m
}
