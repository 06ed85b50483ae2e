package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/fruitstand/backend/internal/application/notification"
	"github.com/fruitstand/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewMailer builds the mailer selected by cfg.Provider
func NewMailer(ctx context.Context, cfg config.MailConfig, logger *zap.Logger) (notification.Mailer, error) {
	switch cfg.Provider {
	case "ses":
		awsCfg, err := LoadAWSConfig(ctx, cfg.Region)
		if err != nil {
			return nil, err
		}
		return NewSESMailer(sesv2.NewFromConfig(awsCfg), cfg.From, cfg.ReplyTo, logger)
	case "", "log":
		return NewLogMailer(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

// NewSMSSender builds the SMS sender selected by cfg.Provider
func NewSMSSender(ctx context.Context, cfg config.SMSConfig, logger *zap.Logger) (notification.SMSSender, error) {
	switch cfg.Provider {
	case "sns":
		awsCfg, err := LoadAWSConfig(ctx, cfg.Region)
		if err != nil {
			return nil, err
		}
		return NewSNSSender(sns.NewFromConfig(awsCfg), cfg.SenderID, logger), nil
	case "", "log":
		return NewLogSMSSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown sms provider %q", cfg.Provider)
	}
}
