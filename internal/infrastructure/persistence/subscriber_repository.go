package persistence

import (
	"context"
	"strings"

	"github.com/fruitstand/backend/internal/domain/marketing"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSubscriberRepository implements marketing.SubscriberRepository using GORM
type GormSubscriberRepository struct {
	db *gorm.DB
}

// NewGormSubscriberRepository creates a new GormSubscriberRepository
func NewGormSubscriberRepository(db *gorm.DB) *GormSubscriberRepository {
	return &GormSubscriberRepository{db: db}
}

// FindByEmail finds a subscriber by email
func (r *GormSubscriberRepository) FindByEmail(ctx context.Context, email string) (*marketing.Subscriber, error) {
	var model models.SubscriberModel
	if err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByToken finds a subscriber by unsubscribe token
func (r *GormSubscriberRepository) FindByToken(ctx context.Context, token string) (*marketing.Subscriber, error) {
	if token == "" {
		return nil, shared.ErrNotFound
	}
	var model models.SubscriberModel
	if err := r.db.WithContext(ctx).Where("unsubscribe_token = ?", token).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds subscribers matching the filter
func (r *GormSubscriberRepository) FindAll(ctx context.Context, filter shared.Filter) ([]marketing.Subscriber, error) {
	var rows []models.SubscriberModel
	query := paginate(r.applyFilter(r.db.WithContext(ctx).Model(&models.SubscriberModel{}), filter),
		filter, subscriberSort, "subscribed_at")
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	subs := make([]marketing.Subscriber, len(rows))
	for i := range rows {
		subs[i] = *rows[i].ToDomain()
	}
	return subs, nil
}

// Count counts subscribers matching the filter
func (r *GormSubscriberRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.SubscriberModel{}), filter).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save inserts a new subscriber or updates a stored one at the version it
// was loaded at
func (r *GormSubscriberRepository) Save(ctx context.Context, s *marketing.Subscriber) error {
	if err := saveRoot(r.db.WithContext(ctx), models.SubscriberModelFromDomain(s), &s.BaseAggregateRoot); err != nil {
		return translateError(err)
	}
	s.MarkPersisted()
	return nil
}

func (r *GormSubscriberRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("LOWER(email) LIKE ?", likePattern(filter.Search))
	}
	if s, ok := filterString(filter.Filters["status"]); ok {
		query = query.Where("status = ?", s)
	}
	if b, ok := filter.Filters["sms_opt_in"].(bool); ok {
		query = query.Where("sms_opt_in = ?", b)
	}
	return query
}
