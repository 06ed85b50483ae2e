package models

import (
	"time"

	"github.com/fruitstand/backend/internal/domain/checkout"
	"gorm.io/datatypes"
)

// WebhookEventModel is the audit log of payment provider notifications
type WebhookEventModel struct {
	ID              string         `gorm:"type:varchar(255);primary_key"`
	Type            string         `gorm:"type:varchar(100);not null;index"`
	PaymentIntentID string         `gorm:"type:varchar(255);index"`
	Payload         datatypes.JSON `gorm:"not null"`
	Outcome         string         `gorm:"type:varchar(40)"`
	ReceivedAt      time.Time      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WebhookEventModel) TableName() string {
	return "payment_webhook_events"
}

// WebhookEventModelFromDomain creates a persistence model from a webhook event
func WebhookEventModelFromDomain(e checkout.WebhookEvent) *WebhookEventModel {
	return &WebhookEventModel{
		ID:              e.ID,
		Type:            e.Type,
		PaymentIntentID: e.PaymentIntentID,
		Payload:         datatypes.JSON(e.Payload),
		Outcome:         e.Outcome,
		ReceivedAt:      e.ReceivedAt,
	}
}

// AllModels lists every persisted model, used by AutoMigrate in tests
func AllModels() []any {
	return []any{
		&ProductModel{},
		&VariantModel{},
		&CartModel{},
		&CartItemModel{},
		&CouponModel{},
		&OrderModel{},
		&OrderItemModel{},
		&TicketModel{},
		&TicketMessageModel{},
		&UserModel{},
		&SubscriberModel{},
		&WebhookEventModel{},
	}
}
