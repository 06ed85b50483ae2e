package checkout

import (
	"context"
	"testing"

	"github.com/fruitstand/backend/internal/domain/checkout"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCouponService_Create(t *testing.T) {
	repo := new(MockCouponRepository)
	svc := NewCouponService(repo, valueobject.USD)

	repo.On("FindByCode", mock.Anything, "SPRING25").Return(nil, shared.ErrNotFound)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*checkout.Coupon")).Return(nil)

	minSubtotal := decimal.NewFromInt(50)
	maxUses := 100
	resp, err := svc.Create(context.Background(), CreateCouponRequest{
		Code:           " spring25 ",
		Type:           "percent",
		Value:          decimal.NewFromInt(25),
		MinSubtotal:    &minSubtotal,
		MaxRedemptions: &maxUses,
	})
	require.NoError(t, err)
	assert.Equal(t, "SPRING25", resp.Code)
	assert.Equal(t, "percent", resp.Type)
	assert.True(t, resp.Active)
	require.NotNil(t, resp.MinSubtotal)
	assert.Equal(t, "50.00", resp.MinSubtotal.StringFixed())
	assert.Equal(t, 100, *resp.MaxRedemptions)
	repo.AssertExpectations(t)
}

func TestCouponService_Create_Fixed(t *testing.T) {
	repo := new(MockCouponRepository)
	svc := NewCouponService(repo, valueobject.USD)

	repo.On("FindByCode", mock.Anything, "FIVEOFF").Return(nil, shared.ErrNotFound)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.Create(context.Background(), CreateCouponRequest{
		Code:  "fiveoff",
		Type:  "fixed",
		Value: decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	assert.Equal(t, "fixed", resp.Type)
	assert.Equal(t, "USD", resp.Currency)
}

func TestCouponService_Create_Duplicate(t *testing.T) {
	repo := new(MockCouponRepository)
	svc := NewCouponService(repo, valueobject.USD)
	existing, err := checkout.NewPercentCoupon("SPRING25", decimal.NewFromInt(25), valueobject.USD)
	require.NoError(t, err)
	repo.On("FindByCode", mock.Anything, "SPRING25").Return(existing, nil)

	_, err = svc.Create(context.Background(), CreateCouponRequest{
		Code:  "spring25",
		Type:  "percent",
		Value: decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCouponService_Create_InvalidPercent(t *testing.T) {
	repo := new(MockCouponRepository)
	svc := NewCouponService(repo, valueobject.USD)
	repo.On("FindByCode", mock.Anything, "HUGE").Return(nil, shared.ErrNotFound)

	_, err := svc.Create(context.Background(), CreateCouponRequest{
		Code:  "huge",
		Type:  "percent",
		Value: decimal.NewFromInt(150),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestCouponService_List(t *testing.T) {
	repo := new(MockCouponRepository)
	svc := NewCouponService(repo, valueobject.USD)
	c, err := checkout.NewPercentCoupon("SPRING25", decimal.NewFromInt(25), valueobject.USD)
	require.NoError(t, err)

	active := true
	matchFilter := mock.MatchedBy(func(f shared.Filter) bool {
		return f.Filters["active"] == true && f.PageSize == 20 && f.Page == 1
	})
	repo.On("FindAll", mock.Anything, matchFilter).Return([]checkout.Coupon{*c}, nil)
	repo.On("Count", mock.Anything, matchFilter).Return(int64(1), nil)

	page, err := svc.List(context.Background(), ListCouponsQuery{Active: &active})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "SPRING25", page.Items[0].Code)
	assert.Equal(t, int64(1), page.Total)
}

func TestCouponService_Deactivate(t *testing.T) {
	repo := new(MockCouponRepository)
	svc := NewCouponService(repo, valueobject.USD)
	c, err := checkout.NewPercentCoupon("SPRING25", decimal.NewFromInt(25), valueobject.USD)
	require.NoError(t, err)

	repo.On("FindByID", mock.Anything, c.ID).Return(c, nil)
	repo.On("Save", mock.Anything, c).Return(nil)

	resp, err := svc.Deactivate(context.Background(), c.ID)
	require.NoError(t, err)
	assert.False(t, resp.Active)

	missing := uuid.New()
	repo.On("FindByID", mock.Anything, missing).Return(nil, shared.ErrNotFound)
	_, err = svc.Deactivate(context.Background(), missing)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
