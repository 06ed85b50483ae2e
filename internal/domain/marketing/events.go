package marketing

import (
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeSubscriber is the aggregate type name for newsletter events
const AggregateTypeSubscriber = "Subscriber"

const EventTypeSubscribed = "NewsletterSubscribed"

// SubscribedEvent is published for a new or re-activated subscription
type SubscribedEvent struct {
	shared.BaseDomainEvent
	SubscriberID     uuid.UUID `json:"subscriber_id"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone,omitempty"`
	SMSOptIn         bool      `json:"sms_opt_in"`
	UnsubscribeToken string    `json:"-"`
}

func NewSubscribedEvent(s *Subscriber) *SubscribedEvent {
	return &SubscribedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeSubscribed, AggregateTypeSubscriber, s.ID),
		SubscriberID:     s.ID,
		Email:            s.Email,
		Phone:            s.Phone,
		SMSOptIn:         s.SMSOptIn,
		UnsubscribeToken: s.UnsubscribeToken,
	}
}
