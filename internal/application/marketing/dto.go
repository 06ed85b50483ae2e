package marketing

import (
	"time"

	"github.com/fruitstand/backend/internal/domain/marketing"
	"github.com/google/uuid"
)

// SubscribeRequest signs an address up for the newsletter
type SubscribeRequest struct {
	Email    string `json:"email" binding:"required,email,max=200"`
	Phone    string `json:"phone" binding:"max=20"`
	SMSOptIn bool   `json:"sms_opt_in"`
	Source   string `json:"source" binding:"max=50"`
}

// UnsubscribeRequest carries the token from the email footer link
type UnsubscribeRequest struct {
	Token string `json:"token" binding:"required,max=128"`
}

// ListSubscribersQuery holds admin list parameters
type ListSubscribersQuery struct {
	Search   string `form:"search"`
	Status   string `form:"status"`
	SMSOptIn *bool  `form:"sms_opt_in"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// SubscriptionResponse is the public result of subscribe and unsubscribe.
// It never includes the unsubscribe token.
type SubscriptionResponse struct {
	Email    string `json:"email"`
	Status   string `json:"status"`
	SMSOptIn bool   `json:"sms_opt_in"`
}

// SubscriberResponse is the admin view of a subscriber
type SubscriberResponse struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone,omitempty"`
	SMSOptIn       bool       `json:"sms_opt_in"`
	Status         string     `json:"status"`
	Source         string     `json:"source"`
	SubscribedAt   time.Time  `json:"subscribed_at"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at,omitempty"`
}

func toSubscription(s *marketing.Subscriber) *SubscriptionResponse {
	return &SubscriptionResponse{Email: s.Email, Status: string(s.Status), SMSOptIn: s.SMSOptIn}
}

func toSubscriberResponse(s *marketing.Subscriber) SubscriberResponse {
	return SubscriberResponse{
		ID:             s.ID,
		Email:          s.Email,
		Phone:          s.Phone,
		SMSOptIn:       s.SMSOptIn,
		Status:         string(s.Status),
		Source:         s.Source,
		SubscribedAt:   s.SubscribedAt,
		UnsubscribedAt: s.UnsubscribedAt,
	}
}
