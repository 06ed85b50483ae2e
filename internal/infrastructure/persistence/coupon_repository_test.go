package persistence

import (
	"context"
	"testing"

	"github.com/fruitstand/backend/internal/domain/checkout"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormCouponRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCouponRepository(db)
	ctx := context.Background()

	coupon, err := checkout.NewPercentCoupon("summer10", decimal.NewFromInt(10), valueobject.USD)
	require.NoError(t, err)
	limit := 1
	minSubtotal := valueobject.MustMoney("20.00", valueobject.USD)
	require.NoError(t, coupon.SetLimits(&minSubtotal, &limit))
	require.NoError(t, repo.Save(ctx, coupon))

	found, err := repo.FindByCode(ctx, " Summer10 ")
	require.NoError(t, err)
	assert.Equal(t, checkout.DiscountTypePercent, found.Type)
	require.NotNil(t, found.MinSubtotal)
	assert.Equal(t, "20.00", found.MinSubtotal.StringFixed())

	require.NoError(t, repo.IncrementRedemptions(ctx, coupon.ID))
	err = repo.IncrementRedemptions(ctx, coupon.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	err = repo.IncrementRedemptions(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	reloaded, err := repo.FindByID(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Redemptions)

	filter := shared.DefaultFilter()
	filter.Filters["active"] = true
	coupons, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, coupons, 1)

	t.Run("copy loaded before a redemption is stale", func(t *testing.T) {
		found.Deactivate()
		assert.ErrorIs(t, repo.Save(ctx, found), shared.ErrConcurrencyConflict)

		reloaded.Deactivate()
		require.NoError(t, repo.Save(ctx, reloaded))

		again, err := repo.FindByID(ctx, coupon.ID)
		require.NoError(t, err)
		assert.False(t, again.Active)
		assert.Equal(t, 1, again.Redemptions)
	})
}
