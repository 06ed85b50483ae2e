package checkout

import (
	"strings"
	"time"

	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DiscountType distinguishes percentage and fixed-amount coupons
type DiscountType string

const (
	DiscountTypePercent DiscountType = "percent"
	DiscountTypeFixed   DiscountType = "fixed"
)

// Coupon is a redeemable discount code
type Coupon struct {
	shared.BaseAggregateRoot
	Code           string
	Type           DiscountType
	Value          decimal.Decimal
	Currency       valueobject.Currency
	MinSubtotal    *valueobject.Money
	StartsAt       *time.Time
	EndsAt         *time.Time
	MaxRedemptions *int
	Redemptions    int
	Active         bool
}

var hundred = decimal.NewFromInt(100)

// NewPercentCoupon creates a coupon taking pct percent off the subtotal
func NewPercentCoupon(code string, pct decimal.Decimal, currency valueobject.Currency) (*Coupon, error) {
	if !pct.IsPositive() || pct.GreaterThan(hundred) {
		return nil, shared.NewDomainError("INVALID_INPUT", "Percentage must be greater than 0 and at most 100")
	}
	return newCoupon(code, DiscountTypePercent, pct, currency)
}

// NewFixedCoupon creates a coupon taking a fixed amount off the subtotal
func NewFixedCoupon(code string, amount valueobject.Money) (*Coupon, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Discount amount must be positive")
	}
	return newCoupon(code, DiscountTypeFixed, amount.Amount(), amount.Currency())
}

func newCoupon(code string, t DiscountType, value decimal.Decimal, currency valueobject.Currency) (*Coupon, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, shared.NewMissingFieldError("code")
	}
	if len(code) > 40 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Coupon code cannot exceed 40 characters")
	}
	return &Coupon{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Type:              t,
		Value:             value,
		Currency:          currency,
		Active:            true,
	}, nil
}

// NormalizeCode upper-cases and trims a customer-entered code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// SetWindow restricts when the coupon can be used
func (c *Coupon) SetWindow(startsAt, endsAt *time.Time) error {
	if startsAt != nil && endsAt != nil && !endsAt.After(*startsAt) {
		return shared.NewDomainError("INVALID_INPUT", "Coupon end must be after its start")
	}
	c.StartsAt = startsAt
	c.EndsAt = endsAt
	c.UpdatedAt = time.Now()
	return nil
}

// SetLimits sets the minimum subtotal and redemption cap
func (c *Coupon) SetLimits(minSubtotal *valueobject.Money, maxRedemptions *int) error {
	if minSubtotal != nil && (minSubtotal.IsNegative() || minSubtotal.Currency() != c.Currency) {
		return shared.NewDomainError("INVALID_INPUT", "Invalid minimum subtotal")
	}
	if maxRedemptions != nil && *maxRedemptions < 1 {
		return shared.NewDomainError("INVALID_INPUT", "Max redemptions must be at least 1")
	}
	c.MinSubtotal = minSubtotal
	c.MaxRedemptions = maxRedemptions
	c.UpdatedAt = time.Now()
	return nil
}

// CheckApplicable verifies the coupon can be used on a subtotal at a point in time
func (c *Coupon) CheckApplicable(subtotal valueobject.Money, now time.Time) error {
	if !c.Active {
		return shared.NewDomainError("INVALID_INPUT", "Coupon is no longer active")
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return shared.NewDomainError("INVALID_INPUT", "Coupon is not active yet")
	}
	if c.EndsAt != nil && !now.Before(*c.EndsAt) {
		return shared.NewDomainError("INVALID_INPUT", "Coupon has expired")
	}
	if c.MaxRedemptions != nil && c.Redemptions >= *c.MaxRedemptions {
		return shared.NewDomainError("INVALID_INPUT", "Coupon has reached its redemption limit")
	}
	if subtotal.Currency() != c.Currency {
		return shared.NewDomainError("INVALID_INPUT", "Coupon cannot be used with this currency")
	}
	if c.MinSubtotal != nil {
		ok, _ := subtotal.GreaterThanOrEqual(*c.MinSubtotal)
		if !ok {
			return shared.NewDomainError("INVALID_INPUT", "Order does not meet the coupon minimum of "+c.MinSubtotal.StringFixed())
		}
	}
	return nil
}

// DiscountFor returns the discount on a subtotal, rounded to cents and never
// more than the subtotal itself
func (c *Coupon) DiscountFor(subtotal valueobject.Money) valueobject.Money {
	var discount valueobject.Money
	switch c.Type {
	case DiscountTypePercent:
		discount = subtotal.Percentage(c.Value).Round()
	default:
		discount, _ = valueobject.NewMoney(c.Value, c.Currency)
		discount = discount.Round()
	}
	if capped, err := discount.Min(subtotal); err == nil {
		return capped
	}
	return valueobject.Zero(subtotal.Currency())
}

// Redeem counts one use of the coupon
func (c *Coupon) Redeem() error {
	if c.MaxRedemptions != nil && c.Redemptions >= *c.MaxRedemptions {
		return shared.NewDomainError("INVALID_STATE", "Coupon has reached its redemption limit")
	}
	c.Redemptions++
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return nil
}

// Deactivate disables the coupon
func (c *Coupon) Deactivate() {
	c.Active = false
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}
