package persistence

import (
	"context"
	"time"

	"github.com/fruitstand/backend/internal/domain/cart"
	"github.com/fruitstand/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCartRepository implements cart.Repository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

func (r *GormCartRepository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	})
}

func (r *GormCartRepository) findOne(query *gorm.DB) (*cart.Cart, error) {
	var model models.CartModel
	if err := query.First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByID finds a cart by its ID
func (r *GormCartRepository) FindByID(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	return r.findOne(r.withItems(ctx).Where("id = ?", id))
}

// FindByUser finds the cart of a signed-in user
func (r *GormCartRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	return r.findOne(r.withItems(ctx).Where("user_id = ?", userID))
}

// FindBySession finds a guest cart by its session token
func (r *GormCartRepository) FindBySession(ctx context.Context, sessionToken string) (*cart.Cart, error) {
	return r.findOne(r.withItems(ctx).Where("session_token = ? AND user_id IS NULL", sessionToken))
}

// Save writes the cart at the version it was loaded at and replaces its
// lines
func (r *GormCartRepository) Save(ctx context.Context, c *cart.Cart) error {
	model := models.CartModelFromDomain(c)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveRoot(tx, model, &c.BaseAggregateRoot); err != nil {
			return err
		}

		itemIDs := make([]uuid.UUID, len(model.Items))
		for i, it := range model.Items {
			itemIDs[i] = it.ID
		}
		stale := tx.Where("cart_id = ?", model.ID)
		if len(itemIDs) > 0 {
			stale = stale.Where("id NOT IN ?", itemIDs)
		}
		if err := stale.Delete(&models.CartItemModel{}).Error; err != nil {
			return err
		}

		for i := range model.Items {
			if err := tx.Save(&model.Items[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return translateError(err)
	}
	c.MarkPersisted()
	return nil
}

// Delete removes a cart and its lines
func (r *GormCartRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", id).Delete(&models.CartItemModel{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.CartModel{}).Error
	})
}

// DeleteExpired removes guest carts whose expiry is before the given time
func (r *GormCartRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired := tx.Model(&models.CartModel{}).
			Select("id").
			Where("user_id IS NULL AND expires_at IS NOT NULL AND expires_at < ?", before)
		if err := tx.Where("cart_id IN (?)", expired).Delete(&models.CartItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("user_id IS NULL AND expires_at IS NOT NULL AND expires_at < ?", before).
			Delete(&models.CartModel{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	return deleted, err
}
