package models

import (
	"time"

	"github.com/fruitstand/backend/internal/domain/marketing"
)

// SubscriberModel is the persistence model for newsletter subscribers
type SubscriberModel struct {
	AggregateModel
	Email            string                     `gorm:"type:varchar(255);not null;uniqueIndex"`
	Phone            string                     `gorm:"type:varchar(20)"`
	SMSOptIn         bool                       `gorm:"column:sms_opt_in;not null;default:false"`
	Status           marketing.SubscriberStatus `gorm:"type:varchar(20);not null;index"`
	Source           string                     `gorm:"type:varchar(40)"`
	UnsubscribeToken string                     `gorm:"type:varchar(64);not null;uniqueIndex"`
	SubscribedAt     time.Time                  `gorm:"not null"`
	UnsubscribedAt   *time.Time
}

// TableName returns the table name for GORM
func (SubscriberModel) TableName() string {
	return "newsletter_subscribers"
}

// ToDomain converts the persistence model to a domain Subscriber
func (m *SubscriberModel) ToDomain() *marketing.Subscriber {
	return &marketing.Subscriber{
		BaseAggregateRoot: m.aggregate(),
		Email:             m.Email,
		Phone:             m.Phone,
		SMSOptIn:          m.SMSOptIn,
		Status:            m.Status,
		Source:            m.Source,
		UnsubscribeToken:  m.UnsubscribeToken,
		SubscribedAt:      m.SubscribedAt,
		UnsubscribedAt:    m.UnsubscribedAt,
	}
}

// FromDomain populates the persistence model from a domain Subscriber
func (m *SubscriberModel) FromDomain(s *marketing.Subscriber) {
	m.setAggregate(s.BaseAggregateRoot)
	m.Email = s.Email
	m.Phone = s.Phone
	m.SMSOptIn = s.SMSOptIn
	m.Status = s.Status
	m.Source = s.Source
	m.UnsubscribeToken = s.UnsubscribeToken
	m.SubscribedAt = s.SubscribedAt
	m.UnsubscribedAt = s.UnsubscribedAt
}

// SubscriberModelFromDomain creates a persistence model from a domain Subscriber
func SubscriberModelFromDomain(s *marketing.Subscriber) *SubscriberModel {
	m := &SubscriberModel{}
	m.FromDomain(s)
	return m
}
