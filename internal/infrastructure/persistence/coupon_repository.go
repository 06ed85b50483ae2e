package persistence

import (
	"context"
	"time"

	"github.com/fruitstand/backend/internal/domain/checkout"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCouponRepository implements checkout.CouponRepository using GORM
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// FindByID finds a coupon by its ID
func (r *GormCouponRepository) FindByID(ctx context.Context, id uuid.UUID) (*checkout.Coupon, error) {
	var model models.CouponModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByCode finds a coupon by its customer-facing code
func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*checkout.Coupon, error) {
	var model models.CouponModel
	if err := r.db.WithContext(ctx).
		Where("code = ?", checkout.NormalizeCode(code)).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds coupons matching the filter. Supported filter key: "active".
func (r *GormCouponRepository) FindAll(ctx context.Context, filter shared.Filter) ([]checkout.Coupon, error) {
	var rows []models.CouponModel
	query := paginate(r.applyFilter(r.db.WithContext(ctx).Model(&models.CouponModel{}), filter),
		filter, couponSort, "created_at")
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	coupons := make([]checkout.Coupon, len(rows))
	for i := range rows {
		coupons[i] = *rows[i].ToDomain()
	}
	return coupons, nil
}

// Count counts coupons matching the filter
func (r *GormCouponRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.CouponModel{}), filter).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save inserts a new coupon or updates a stored one at the version it was
// loaded at
func (r *GormCouponRepository) Save(ctx context.Context, coupon *checkout.Coupon) error {
	if err := saveRoot(r.db.WithContext(ctx), models.CouponModelFromDomain(coupon), &coupon.BaseAggregateRoot); err != nil {
		return translateError(err)
	}
	coupon.MarkPersisted()
	return nil
}

// IncrementRedemptions atomically counts one redemption, respecting the cap
func (r *GormCouponRepository) IncrementRedemptions(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.CouponModel{}).
		Where("id = ? AND (max_redemptions IS NULL OR redemptions < max_redemptions)", id).
		Updates(map[string]any{
			"redemptions": gorm.Expr("redemptions + 1"),
			"version":     gorm.Expr("version + 1"),
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return shared.NewDomainError("INVALID_STATE", "Coupon has reached its redemption limit")
}

func (r *GormCouponRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("LOWER(code) LIKE ?", likePattern(filter.Search))
	}
	if v, ok := filter.Filters["active"].(bool); ok {
		query = query.Where("active = ?", v)
	}
	return query
}
