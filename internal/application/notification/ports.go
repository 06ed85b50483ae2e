package notification

import "context"

// Email is a rendered transactional message
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers transactional email
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// SMSSender delivers text messages to E.164 phone numbers
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// StoreInfo is the storefront branding used in message templates
type StoreInfo struct {
	Name         string
	PublicURL    string
	SupportEmail string
}
