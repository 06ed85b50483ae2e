package persistence

import (
	"context"

	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/support"
	"github.com/fruitstand/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTicketRepository implements support.Repository using GORM
type GormTicketRepository struct {
	db *gorm.DB
}

// NewGormTicketRepository creates a new GormTicketRepository
func NewGormTicketRepository(db *gorm.DB) *GormTicketRepository {
	return &GormTicketRepository{db: db}
}

// FindByID loads a ticket with its full message history, oldest first
func (r *GormTicketRepository) FindByID(ctx context.Context, id uuid.UUID) (*support.Ticket, error) {
	var model models.TicketModel
	if err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll returns tickets without messages
func (r *GormTicketRepository) FindAll(ctx context.Context, filter shared.Filter) ([]support.Ticket, error) {
	var rows []models.TicketModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.TicketModel{}), filter)
	query = paginate(query, filter, ticketSort, "last_message_at")
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	tickets := make([]support.Ticket, len(rows))
	for i := range rows {
		tickets[i] = *rows[i].ToDomain()
	}
	return tickets, nil
}

// Count counts tickets matching the filter
func (r *GormTicketRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.TicketModel{}), filter).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save writes the ticket at the version it was loaded at and inserts any
// messages not yet stored.
// Messages are append-only, so existing rows are never rewritten.
func (r *GormTicketRepository) Save(ctx context.Context, ticket *support.Ticket) error {
	model := models.TicketModelFromDomain(ticket)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveRoot(tx, model, &ticket.BaseAggregateRoot); err != nil {
			return err
		}
		if len(model.Messages) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Messages).Error
	})
	if err != nil {
		return translateError(err)
	}
	ticket.MarkPersisted()
	return nil
}

func (r *GormTicketRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(number) LIKE ? OR LOWER(subject) LIKE ? OR LOWER(email) LIKE ?",
			pattern, pattern, pattern)
	}
	for key, value := range filter.Filters {
		switch key {
		case "status", "category", "priority":
			if s, ok := filterString(value); ok {
				query = query.Where(key+" = ?", s)
			}
		case "user_id", "assignee_id":
			if id, ok := value.(uuid.UUID); ok {
				query = query.Where(key+" = ?", id)
			}
		}
	}
	return query
}
