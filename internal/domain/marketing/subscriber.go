package marketing

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/fruitstand/backend/internal/domain/shared"
)

// SubscriberStatus is the newsletter membership state
type SubscriberStatus string

const (
	StatusSubscribed   SubscriberStatus = "subscribed"
	StatusUnsubscribed SubscriberStatus = "unsubscribed"
)

// IsValid checks if the status is a known value
func (s SubscriberStatus) IsValid() bool {
	return s == StatusSubscribed || s == StatusUnsubscribed
}

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	e164Regex  = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)
)

// Subscriber is a newsletter signup
type Subscriber struct {
	shared.BaseAggregateRoot
	Email            string
	Phone            string
	SMSOptIn         bool
	Status           SubscriberStatus
	Source           string
	UnsubscribeToken string
	SubscribedAt     time.Time
	UnsubscribedAt   *time.Time
}

// NewSubscriber creates an active subscription
func NewSubscriber(email, phone string, smsOptIn bool, source string) (*Subscriber, error) {
	email, phone, err := normalizeContact(email, phone, smsOptIn)
	if err != nil {
		return nil, err
	}
	s := &Subscriber{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		Phone:             phone,
		SMSOptIn:          smsOptIn && phone != "",
		Status:            StatusSubscribed,
		Source:            normalizeSource(source),
		UnsubscribeToken:  newToken(),
		SubscribedAt:      time.Now(),
	}
	s.AddDomainEvent(NewSubscribedEvent(s))
	return s, nil
}

// Resubscribe updates contact preferences. It reports whether the subscriber
// was previously unsubscribed and has now been re-activated.
func (s *Subscriber) Resubscribe(phone string, smsOptIn bool, source string) (bool, error) {
	if strings.TrimSpace(phone) == "" {
		phone = s.Phone
	}
	_, phone, err := normalizeContact(s.Email, phone, smsOptIn)
	if err != nil {
		return false, err
	}
	s.Phone = phone
	s.SMSOptIn = smsOptIn
	if s.Status == StatusSubscribed {
		s.touch()
		return false, nil
	}

	s.Status = StatusSubscribed
	s.Source = normalizeSource(source)
	s.SubscribedAt = time.Now()
	s.UnsubscribedAt = nil
	s.UnsubscribeToken = newToken()
	s.touch()
	s.AddDomainEvent(NewSubscribedEvent(s))
	return true, nil
}

// Unsubscribe stops all newsletter mail and texts. Repeating it is a no-op.
func (s *Subscriber) Unsubscribe() {
	if s.Status == StatusUnsubscribed {
		return
	}
	now := time.Now()
	s.Status = StatusUnsubscribed
	s.SMSOptIn = false
	s.UnsubscribedAt = &now
	s.touch()
}

// IsSubscribed reports whether the address currently receives mail
func (s *Subscriber) IsSubscribed() bool {
	return s.Status == StatusSubscribed
}

// WantsSMS reports whether a welcome or campaign text may be sent
func (s *Subscriber) WantsSMS() bool {
	return s.IsSubscribed() && s.SMSOptIn && s.Phone != ""
}

func (s *Subscriber) touch() {
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}

func normalizeContact(email, phone string, smsOptIn bool) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", "", shared.NewMissingFieldError("email")
	}
	if len(email) > 200 || !emailRegex.MatchString(email) {
		return "", "", shared.NewDomainError("INVALID_INPUT", "Invalid email format")
	}
	phone = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
	if phone != "" && !e164Regex.MatchString(phone) {
		return "", "", shared.NewDomainError("INVALID_INPUT", "Phone must be in international format, e.g. +15035550100")
	}
	if smsOptIn && phone == "" {
		return "", "", shared.NewMissingFieldError("phone")
	}
	return email, phone, nil
}

func normalizeSource(source string) string {
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		return "website"
	}
	if len(source) > 50 {
		source = source[:50]
	}
	return source
}

func newToken() string {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
