// Package notify delivers transactional email and text messages through
// Amazon SES and SNS, with log-only fallbacks for development.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/fruitstand/backend/internal/application/notification"
	"github.com/fruitstand/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const charset = "UTF-8"

// SESAPI is the subset of the SES v2 client the mailer uses
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer sends email through Amazon SES v2
type SESMailer struct {
	client  SESAPI
	from    string
	replyTo string
	logger  *zap.Logger
}

var _ notification.Mailer = (*SESMailer)(nil)

// NewSESMailer creates a mailer around an SES client
func NewSESMailer(client SESAPI, from, replyTo string, logger *zap.Logger) (*SESMailer, error) {
	if from == "" {
		return nil, errors.New("mail from address is required")
	}
	return &SESMailer{client: client, from: from, replyTo: replyTo, logger: logger}, nil
}

// LoadAWSConfig loads the default AWS credential chain for region
func LoadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// Send delivers one email
func (m *SESMailer) Send(ctx context.Context, email notification.Email) error {
	if email.To == "" {
		return shared.NewMissingFieldError("to")
	}

	body := &sestypes.Body{}
	if email.HTML != "" {
		body.Html = &sestypes.Content{Data: aws.String(email.HTML), Charset: aws.String(charset)}
	}
	if email.Text != "" {
		body.Text = &sestypes.Content{Data: aws.String(email.Text), Charset: aws.String(charset)}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination:      &sestypes.Destination{ToAddresses: []string{email.To}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(email.Subject), Charset: aws.String(charset)},
				Body:    body,
			},
		},
	}
	if m.replyTo != "" {
		input.ReplyToAddresses = []string{m.replyTo}
	}

	out, err := m.client.SendEmail(ctx, input)
	if err != nil {
		m.logger.Error("Failed to send email",
			append(awsErrorFields(err), zap.String("subject", email.Subject))...)
		return shared.NewUpstreamError("ses", err)
	}

	m.logger.Info("Email sent",
		zap.String("subject", email.Subject),
		zap.String("message_id", aws.ToString(out.MessageId)))
	return nil
}
