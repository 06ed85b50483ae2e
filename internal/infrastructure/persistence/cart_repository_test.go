package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/fruitstand/backend/internal/domain/cart"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormCartRepository_SaveAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCartRepository(db)
	ctx := context.Background()

	product := newTestProduct(t, "Mango Tee", "mango-tee", 10)
	require.NoError(t, product.Publish())
	_, err := product.AddVariant("mango-tee-s", "S", "Red", 10, nil)
	require.NoError(t, err)

	c, err := cart.NewCart(cart.GuestOwner("guest-token"), valueobject.USD, 7*24*time.Hour)
	require.NoError(t, err)
	first, err := c.AddItem(product, product.Variants[0].ID, 2)
	require.NoError(t, err)
	firstID := first.ID
	_, err = c.AddItem(product, product.Variants[1].ID, 1)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, c))

	found, err := repo.FindBySession(ctx, "guest-token")
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)
	assert.True(t, found.IsGuest())
	require.NotNil(t, found.ExpiresAt)
	require.Len(t, found.Items, 2)
	assert.Equal(t, "75.00", found.Subtotal().StringFixed())

	t.Run("removed lines are deleted", func(t *testing.T) {
		require.NoError(t, found.RemoveItem(firstID))
		require.NoError(t, repo.Save(ctx, found))

		again, err := repo.FindByID(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, again.Items, 1)
		assert.Equal(t, "S / Red", again.Items[0].VariantLabel)
	})

	t.Run("user cart lookup", func(t *testing.T) {
		userID := uuid.New()
		uc, err := cart.NewCart(cart.UserOwner(userID), valueobject.USD, time.Hour)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, uc))

		byUser, err := repo.FindByUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, uc.ID, byUser.ID)
		assert.Nil(t, byUser.ExpiresAt)

		_, err = repo.FindByUser(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormCartRepository_SaveStaleCopy(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCartRepository(db)
	ctx := context.Background()

	product := newTestProduct(t, "Mango Tee", "mango-tee", 10)
	require.NoError(t, product.Publish())
	variantID := product.Variants[0].ID

	c, err := cart.NewCart(cart.GuestOwner("guest-token"), valueobject.USD, time.Hour)
	require.NoError(t, err)
	_, err = c.AddItem(product, variantID, 1)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, c))

	tab1, err := repo.FindBySession(ctx, "guest-token")
	require.NoError(t, err)
	tab2, err := repo.FindBySession(ctx, "guest-token")
	require.NoError(t, err)

	tab1.Clear()
	require.NoError(t, repo.Save(ctx, tab1))

	_, err = tab2.AddItem(product, variantID, 2)
	require.NoError(t, err)
	err = repo.Save(ctx, tab2)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	found, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, found.IsEmpty())
	assert.Equal(t, tab1.Version, found.Version)
}

func TestGormCartRepository_DeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCartRepository(db)
	ctx := context.Background()

	expired, err := cart.NewCart(cart.GuestOwner("old"), valueobject.USD, time.Hour)
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	expired.ExpiresAt = &past
	fresh, err := cart.NewCart(cart.GuestOwner("new"), valueobject.USD, time.Hour)
	require.NoError(t, err)
	member, err := cart.NewCart(cart.UserOwner(uuid.New()), valueobject.USD, time.Hour)
	require.NoError(t, err)
	for _, c := range []*cart.Cart{expired, fresh, member} {
		require.NoError(t, repo.Save(ctx, c))
	}

	deleted, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindByID(ctx, expired.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = repo.FindByID(ctx, fresh.ID)
	assert.NoError(t, err)
	_, err = repo.FindByID(ctx, member.ID)
	assert.NoError(t, err)
}

func TestGormCartRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCartRepository(db)
	ctx := context.Background()

	c, err := cart.NewCart(cart.GuestOwner("bye"), valueobject.USD, time.Hour)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, c))

	require.NoError(t, repo.Delete(ctx, c.ID))
	_, err = repo.FindBySession(ctx, "bye")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
