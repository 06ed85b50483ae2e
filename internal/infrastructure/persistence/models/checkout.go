package models

import (
	"time"

	"github.com/fruitstand/backend/internal/domain/checkout"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// CouponModel is the persistence model for the Coupon aggregate
type CouponModel struct {
	AggregateModel
	Code           string                `gorm:"type:varchar(40);not null;uniqueIndex"`
	Type           checkout.DiscountType `gorm:"type:varchar(20);not null"`
	Value          decimal.Decimal       `gorm:"type:decimal(12,2);not null"`
	Currency       string                `gorm:"type:varchar(3);not null"`
	MinSubtotal    *decimal.Decimal      `gorm:"type:decimal(12,2)"`
	StartsAt       *time.Time
	EndsAt         *time.Time
	MaxRedemptions *int
	Redemptions    int  `gorm:"not null;default:0"`
	Active         bool `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (CouponModel) TableName() string {
	return "coupons"
}

// ToDomain converts the persistence model to a domain Coupon
func (m *CouponModel) ToDomain() *checkout.Coupon {
	return &checkout.Coupon{
		BaseAggregateRoot: m.aggregate(),
		Code:              m.Code,
		Type:              m.Type,
		Value:             m.Value,
		Currency:          valueobject.Currency(m.Currency),
		MinSubtotal:       optionalMoney(m.MinSubtotal, m.Currency),
		StartsAt:          m.StartsAt,
		EndsAt:            m.EndsAt,
		MaxRedemptions:    m.MaxRedemptions,
		Redemptions:       m.Redemptions,
		Active:            m.Active,
	}
}

// FromDomain populates the persistence model from a domain Coupon
func (m *CouponModel) FromDomain(c *checkout.Coupon) {
	m.setAggregate(c.BaseAggregateRoot)
	m.Code = c.Code
	m.Type = c.Type
	m.Value = c.Value
	m.Currency = string(c.Currency)
	m.MinSubtotal = optionalAmount(c.MinSubtotal)
	m.StartsAt = c.StartsAt
	m.EndsAt = c.EndsAt
	m.MaxRedemptions = c.MaxRedemptions
	m.Redemptions = c.Redemptions
	m.Active = c.Active
}

// CouponModelFromDomain creates a persistence model from a domain Coupon
func CouponModelFromDomain(c *checkout.Coupon) *CouponModel {
	m := &CouponModel{}
	m.FromDomain(c)
	return m
}
