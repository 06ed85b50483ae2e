package notify

import (
	"context"

	"github.com/fruitstand/backend/internal/application/notification"
	"go.uber.org/zap"
)

// LogMailer logs emails instead of sending them
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, email notification.Email) error {
	m.logger.Info("Email (not sent)",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.String("text", email.Text))
	return nil
}

// LogSMSSender logs texts instead of sending them
type LogSMSSender struct {
	logger *zap.Logger
}

func NewLogSMSSender(logger *zap.Logger) *LogSMSSender {
	return &LogSMSSender{logger: logger}
}

func (s *LogSMSSender) Send(_ context.Context, to, body string) error {
	s.logger.Info("SMS (not sent)", zap.String("to", to), zap.String("body", body))
	return nil
}

var (
	_ notification.Mailer    = (*LogMailer)(nil)
	_ notification.SMSSender = (*LogSMSSender)(nil)
)
