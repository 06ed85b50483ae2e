package persistence

import (
	"context"

	"github.com/fruitstand/backend/internal/domain/checkout"
	"github.com/fruitstand/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWebhookEventLog implements checkout.WebhookEventLog using GORM
type GormWebhookEventLog struct {
	db *gorm.DB
}

// NewGormWebhookEventLog creates a new GormWebhookEventLog
func NewGormWebhookEventLog(db *gorm.DB) *GormWebhookEventLog {
	return &GormWebhookEventLog{db: db}
}

// Record stores the event; a redelivered id keeps the first copy
func (l *GormWebhookEventLog) Record(ctx context.Context, event checkout.WebhookEvent) error {
	return l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.WebhookEventModelFromDomain(event)).Error
}

// SetOutcome notes how the event was handled
func (l *GormWebhookEventLog) SetOutcome(ctx context.Context, eventID, outcome string) error {
	return l.db.WithContext(ctx).Model(&models.WebhookEventModel{}).
		Where("id = ?", eventID).
		Update("outcome", outcome).Error
}
