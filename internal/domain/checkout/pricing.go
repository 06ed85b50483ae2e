package checkout

import (
	"fmt"
	"strings"

	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PricingPolicy holds the store-wide shipping and tax rules
type PricingPolicy struct {
	Currency valueobject.Currency
	// FlatShipping is charged on every non-empty order below the free threshold
	FlatShipping valueobject.Money
	// FreeShippingThreshold waives shipping when the discounted subtotal reaches it.
	// Nil means shipping is never free.
	FreeShippingThreshold *valueobject.Money
	// TaxRate is a fraction, e.g. 0.0875 for 8.75%
	TaxRate     decimal.Decimal
	TaxShipping bool
}

// PricingInput is what the pipeline needs from the cart and coupon
type PricingInput struct {
	Subtotal   valueobject.Money
	Discount   valueobject.Money
	CouponCode string
}

// Quote is the fully priced checkout breakdown
type Quote struct {
	Subtotal    valueobject.Money
	Discount    valueobject.Money
	Shipping    valueobject.Money
	Tax         valueobject.Money
	Total       valueobject.Money
	AmountCents int64
	Currency    valueobject.Currency
	CouponCode  string
}

// Validate checks the policy is internally consistent
func (p PricingPolicy) Validate() error {
	if p.Currency == "" {
		return fmt.Errorf("pricing currency is required")
	}
	if p.FlatShipping.IsNegative() {
		return fmt.Errorf("flat shipping cannot be negative")
	}
	if p.FlatShipping.Currency() != p.Currency {
		return fmt.Errorf("flat shipping currency %s does not match %s", p.FlatShipping.Currency(), p.Currency)
	}
	if p.TaxRate.IsNegative() || p.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax rate must be a fraction between 0 and 1")
	}
	return nil
}

// Calculate runs subtotal, discount, shipping, tax and total in that order.
// All amounts are rounded to cents; the discount may never exceed the subtotal.
func (p PricingPolicy) Calculate(in PricingInput) (Quote, error) {
	subtotal := in.Subtotal.Round()
	discount := in.Discount
	if discount.Currency() == "" {
		discount = valueobject.Zero(p.Currency)
	}
	discount = discount.Round()

	if subtotal.Currency() != p.Currency || discount.Currency() != p.Currency {
		return Quote{}, shared.NewDomainError("INVALID_INPUT", "Currency does not match store currency")
	}
	if subtotal.IsNegative() {
		return Quote{}, shared.NewDomainError("INVALID_INPUT", "Subtotal cannot be negative")
	}
	if subtotal.IsZero() {
		return Quote{}, shared.NewDomainError("INVALID_INPUT", "Cart is empty")
	}
	if discount.IsNegative() {
		return Quote{}, shared.NewDomainError("INVALID_INPUT", "Discount cannot be negative")
	}
	if over, _ := discount.GreaterThan(subtotal); over {
		return Quote{}, shared.NewDomainError("INVALID_INPUT", "Discount cannot exceed subtotal")
	}

	discounted, _ := subtotal.Subtract(discount)
	shipping := p.shippingFor(discounted)

	taxable := discounted
	if p.TaxShipping {
		taxable, _ = taxable.Add(shipping)
	}
	tax := taxable.Multiply(p.TaxRate).Round()

	total, _ := discounted.Add(shipping)
	total, _ = total.Add(tax)

	return Quote{
		Subtotal:    subtotal,
		Discount:    discount,
		Shipping:    shipping,
		Tax:         tax,
		Total:       total,
		AmountCents: total.Cents(),
		Currency:    p.Currency,
		CouponCode:  strings.ToUpper(strings.TrimSpace(in.CouponCode)),
	}, nil
}

func (p PricingPolicy) shippingFor(discounted valueobject.Money) valueobject.Money {
	if p.FreeShippingThreshold != nil {
		if free, err := discounted.GreaterThanOrEqual(*p.FreeShippingThreshold); err == nil && free {
			return valueobject.Zero(p.Currency)
		}
	}
	return p.FlatShipping.Round()
}

// AmountMismatchError is returned when the amount a payment provider reports
// differs from what the order was priced at
type AmountMismatchError struct {
	ExpectedCents    int64
	ExpectedCurrency string
	ActualCents      int64
	ActualCurrency   string
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("payment amount mismatch: expected %d %s, got %d %s",
		e.ExpectedCents, e.ExpectedCurrency, e.ActualCents, e.ActualCurrency)
}

// ReconcileAmount compares a charged amount with the expected order total.
// Currency codes are compared case-insensitively.
func ReconcileAmount(expectedCents int64, expectedCurrency valueobject.Currency, actualCents int64, actualCurrency string) error {
	if expectedCents == actualCents && strings.EqualFold(string(expectedCurrency), actualCurrency) {
		return nil
	}
	return &AmountMismatchError{
		ExpectedCents:    expectedCents,
		ExpectedCurrency: string(expectedCurrency),
		ActualCents:      actualCents,
		ActualCurrency:   strings.ToUpper(actualCurrency),
	}
}
