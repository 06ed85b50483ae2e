package persistence

import (
	"context"
	"time"

	"github.com/fruitstand/backend/internal/domain/order"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var awaitingPaymentStatuses = []string{
	string(order.PaymentStatusPending),
	string(order.PaymentStatusFailed),
}

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("product_name ASC, id ASC")
	})
}

func (r *GormOrderRepository) findOne(query *gorm.DB) (*order.Order, error) {
	var model models.OrderModel
	if err := query.First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.findOne(r.withItems(ctx).Where("id = ?", id))
}

// FindByNumber finds an order by its customer-facing number
func (r *GormOrderRepository) FindByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.findOne(r.withItems(ctx).Where("number = ?", number))
}

// FindByPaymentIntent finds the order a payment intent was created for
func (r *GormOrderRepository) FindByPaymentIntent(ctx context.Context, intentID string) (*order.Order, error) {
	if intentID == "" {
		return nil, shared.ErrNotFound
	}
	return r.findOne(r.withItems(ctx).Where("payment_intent_id = ?", intentID))
}

// FindAwaitingPaymentByCart returns the newest unpaid order created from a cart
func (r *GormOrderRepository) FindAwaitingPaymentByCart(ctx context.Context, cartID uuid.UUID) (*order.Order, error) {
	return r.findOne(r.withItems(ctx).
		Where("cart_id = ? AND payment_status IN ? AND fulfillment_status = ?",
			cartID, awaitingPaymentStatuses, string(order.FulfillmentStatusUnfulfilled)).
		Order("placed_at DESC"))
}

// FindAll finds orders matching the filter
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, error) {
	var rows []models.OrderModel
	query := r.applyFilter(r.withItems(ctx).Model(&models.OrderModel{}), filter)
	query = paginate(query, filter, orderSort, "placed_at")
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return ordersToDomain(rows), nil
}

// Count counts orders matching the filter
func (r *GormOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.OrderModel{}), filter).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindStalePending returns unpaid, unfulfilled orders placed before the cutoff, oldest first
func (r *GormOrderRepository) FindStalePending(ctx context.Context, placedBefore time.Time, limit int) ([]order.Order, error) {
	var rows []models.OrderModel
	query := r.withItems(ctx).
		Where("payment_status IN ? AND fulfillment_status = ? AND placed_at < ?",
			awaitingPaymentStatuses, string(order.FulfillmentStatusUnfulfilled), placedBefore).
		Order("placed_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return ordersToDomain(rows), nil
}

// Save writes the order at the version it was loaded at and replaces its
// lines. A copy that went stale returns shared.ErrConcurrencyConflict.
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	model := models.OrderModelFromDomain(o)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveRoot(tx, model, &o.BaseAggregateRoot); err != nil {
			return err
		}

		itemIDs := make([]uuid.UUID, len(model.Items))
		for i, it := range model.Items {
			itemIDs[i] = it.ID
		}
		stale := tx.Where("order_id = ?", model.ID)
		if len(itemIDs) > 0 {
			stale = stale.Where("id NOT IN ?", itemIDs)
		}
		if err := stale.Delete(&models.OrderItemModel{}).Error; err != nil {
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
	o.MarkPersisted()
	return nil
}

func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(number) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}
	for key, value := range filter.Filters {
		switch key {
		case "payment_status":
			if s, ok := filterString(value); ok {
				query = query.Where("payment_status = ?", s)
			}
		case "fulfillment_status":
			if s, ok := filterString(value); ok {
				query = query.Where("fulfillment_status = ?", s)
			}
		case "user_id":
			if id, ok := value.(uuid.UUID); ok {
				query = query.Where("user_id = ?", id)
			}
		}
	}
	return query
}

func ordersToDomain(rows []models.OrderModel) []order.Order {
	orders := make([]order.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders
}
