package checkout

import (
	"context"
	"errors"

	"github.com/fruitstand/backend/internal/domain/checkout"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// CouponService handles coupon administration
type CouponService struct {
	couponRepo checkout.CouponRepository
	currency   valueobject.Currency
}

// NewCouponService creates a new CouponService
func NewCouponService(couponRepo checkout.CouponRepository, currency valueobject.Currency) *CouponService {
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	return &CouponService{couponRepo: couponRepo, currency: currency}
}

// Create creates a new active coupon
func (s *CouponService) Create(ctx context.Context, req CreateCouponRequest) (*CouponResponse, error) {
	code := checkout.NormalizeCode(req.Code)
	_, err := s.couponRepo.FindByCode(ctx, code)
	if err == nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Coupon with this code already exists")
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	var coupon *checkout.Coupon
	switch checkout.DiscountType(req.Type) {
	case checkout.DiscountTypePercent:
		coupon, err = checkout.NewPercentCoupon(code, req.Value, s.currency)
	case checkout.DiscountTypeFixed:
		var amount valueobject.Money
		amount, err = valueobject.NewMoney(req.Value, s.currency)
		if err == nil {
			coupon, err = checkout.NewFixedCoupon(code, amount)
		}
	default:
		return nil, shared.NewDomainError("INVALID_INPUT", "Coupon type must be percent or fixed")
	}
	if err != nil {
		return nil, err
	}

	if err := coupon.SetWindow(req.StartsAt, req.EndsAt); err != nil {
		return nil, err
	}
	var minSubtotal *valueobject.Money
	if req.MinSubtotal != nil {
		m, err := valueobject.NewMoney(*req.MinSubtotal, s.currency)
		if err != nil {
			return nil, err
		}
		minSubtotal = &m
	}
	if err := coupon.SetLimits(minSubtotal, req.MaxRedemptions); err != nil {
		return nil, err
	}

	if err := s.couponRepo.Save(ctx, coupon); err != nil {
		return nil, err
	}
	resp := toCouponResponse(coupon)
	return &resp, nil
}

// List returns coupons, newest first
func (s *CouponService) List(ctx context.Context, q ListCouponsQuery) (shared.Paginated[CouponResponse], error) {
	filter := shared.Filter{Page: q.Page, PageSize: q.PageSize, Search: q.Search}
	filter.Normalize(100)
	if q.Active != nil {
		filter.Filters["active"] = *q.Active
	}

	coupons, err := s.couponRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[CouponResponse]{}, err
	}
	total, err := s.couponRepo.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[CouponResponse]{}, err
	}
	items := make([]CouponResponse, len(coupons))
	for i := range coupons {
		items[i] = toCouponResponse(&coupons[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Deactivate disables a coupon for future checkouts
func (s *CouponService) Deactivate(ctx context.Context, id uuid.UUID) (*CouponResponse, error) {
	coupon, err := s.couponRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("coupon")
		}
		return nil, err
	}
	coupon.Deactivate()
	if err := s.couponRepo.Save(ctx, coupon); err != nil {
		return nil, err
	}
	resp := toCouponResponse(coupon)
	return &resp, nil
}
