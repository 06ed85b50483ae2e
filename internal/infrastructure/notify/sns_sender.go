package notify

import (
	"context"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/fruitstand/backend/internal/application/notification"
	"github.com/fruitstand/backend/internal/domain/shared"
	"go.uber.org/zap"
)

var e164 = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// SNSAPI is the subset of the SNS client the sender uses
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSender sends transactional texts through Amazon SNS
type SNSSender struct {
	client   SNSAPI
	senderID string
	logger   *zap.Logger
}

var _ notification.SMSSender = (*SNSSender)(nil)

func NewSNSSender(client SNSAPI, senderID string, logger *zap.Logger) *SNSSender {
	return &SNSSender{client: client, senderID: senderID, logger: logger}
}

// Send texts body to an E.164 number
func (s *SNSSender) Send(ctx context.Context, to, body string) error {
	if !e164.MatchString(to) {
		return shared.NewDomainError("INVALID_INPUT", "Phone number must be in E.164 format")
	}

	attrs := map[string]snstypes.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}

	out, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(to),
		Message:           aws.String(body),
		MessageAttributes: attrs,
	})
	if err != nil {
		s.logger.Error("Failed to send SMS", awsErrorFields(err)...)
		return shared.NewUpstreamError("sns", err)
	}

	s.logger.Info("SMS sent", zap.String("message_id", aws.ToString(out.MessageId)))
	return nil
}
