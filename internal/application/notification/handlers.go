package notification

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/fruitstand/backend/internal/domain/marketing"
	"github.com/fruitstand/backend/internal/domain/order"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/support"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// OrderNotificationHandler emails customers about payment, shipping and
// refunds, and texts them when an order ships
type OrderNotificationHandler struct {
	mailer Mailer
	sms    SMSSender
	store  StoreInfo
	locale language.Tag
	logger *zap.Logger
}

// NewOrderNotificationHandler creates a new handler for order events
func NewOrderNotificationHandler(mailer Mailer, sms SMSSender, store StoreInfo, logger *zap.Logger) *OrderNotificationHandler {
	return &OrderNotificationHandler{
		mailer: mailer,
		sms:    sms,
		store:  store,
		locale: language.AmericanEnglish,
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderNotificationHandler) EventTypes() []string {
	return []string{
		order.EventTypeOrderPaid,
		order.EventTypeOrderShipped,
		order.EventTypeOrderRefunded,
	}
}

type orderData struct {
	Store          StoreInfo
	OrderNumber    string
	Total          string
	Link           string
	Carrier        string
	TrackingNumber string
}

// Handle renders and sends the message for one order event
func (h *OrderNotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *order.OrderPaidEvent:
		return h.sendEmail(ctx, orderPaidMessage, e.Email, h.orderData(e.OrderEvent))

	case *order.OrderShippedEvent:
		data := h.orderData(e.OrderEvent)
		data.Carrier = e.Carrier
		data.TrackingNumber = e.TrackingNumber
		emailErr := h.sendEmail(ctx, orderShippedMessage, e.Email, data)

		var smsErr error
		if e.Phone != "" && h.sms != nil {
			body := fmt.Sprintf("%s: order %s shipped via %s, tracking %s", h.store.Name, e.OrderNumber, e.Carrier, e.TrackingNumber)
			smsErr = h.sms.Send(ctx, e.Phone, body)
		}
		return errors.Join(emailErr, smsErr)

	case *order.OrderRefundedEvent:
		return h.sendEmail(ctx, orderRefundedMessage, e.Email, h.orderData(e.OrderEvent))

	default:
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
}

func (h *OrderNotificationHandler) orderData(e order.OrderEvent) orderData {
	return orderData{
		Store:       h.store,
		OrderNumber: e.OrderNumber,
		Total:       e.Total.Format(h.locale),
		Link:        link(h.store.PublicURL, "/orders/lookup", url.Values{"number": {e.OrderNumber}, "email": {e.Email}}),
	}
}

func (h *OrderNotificationHandler) sendEmail(ctx context.Context, m message, to string, data any) error {
	if to == "" {
		return nil
	}
	email, err := m.render(to, data)
	if err != nil {
		return err
	}
	if err := h.mailer.Send(ctx, email); err != nil {
		return err
	}
	h.logger.Debug("Order email sent", zap.String("subject", email.Subject))
	return nil
}

// TicketReplyHandler emails the customer when staff reply publicly
type TicketReplyHandler struct {
	mailer Mailer
	store  StoreInfo
}

func NewTicketReplyHandler(mailer Mailer, store StoreInfo) *TicketReplyHandler {
	return &TicketReplyHandler{mailer: mailer, store: store}
}

func (h *TicketReplyHandler) EventTypes() []string {
	return []string{support.EventTypeTicketReplied}
}

func (h *TicketReplyHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*support.TicketRepliedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s", support.EventTypeTicketReplied, event.EventType())
	}
	if e.Email == "" {
		return nil
	}
	email, err := ticketReplyMessage.render(e.Email, struct {
		Store   StoreInfo
		Number  string
		Subject string
		Body    string
		Link    string
	}{
		Store:   h.store,
		Number:  e.Number,
		Subject: e.Subject,
		Body:    e.Body,
		Link:    link(h.store.PublicURL, "/account/tickets/"+e.TicketID.String(), nil),
	})
	if err != nil {
		return err
	}
	return h.mailer.Send(ctx, email)
}

// NewsletterWelcomeHandler greets new subscribers by email, and by text
// when they opted in with a phone number
type NewsletterWelcomeHandler struct {
	mailer Mailer
	sms    SMSSender
	store  StoreInfo
}

func NewNewsletterWelcomeHandler(mailer Mailer, sms SMSSender, store StoreInfo) *NewsletterWelcomeHandler {
	return &NewsletterWelcomeHandler{mailer: mailer, sms: sms, store: store}
}

func (h *NewsletterWelcomeHandler) EventTypes() []string {
	return []string{marketing.EventTypeSubscribed}
}

func (h *NewsletterWelcomeHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*marketing.SubscribedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s", marketing.EventTypeSubscribed, event.EventType())
	}

	email, err := newsletterWelcomeMessage.render(e.Email, struct {
		Store           StoreInfo
		UnsubscribeLink string
	}{
		Store:           h.store,
		UnsubscribeLink: link(h.store.PublicURL, "/newsletter/unsubscribe", url.Values{"token": {e.UnsubscribeToken}}),
	})
	if err != nil {
		return err
	}
	emailErr := h.mailer.Send(ctx, email)

	var smsErr error
	if e.SMSOptIn && e.Phone != "" && h.sms != nil {
		smsErr = h.sms.Send(ctx, e.Phone, fmt.Sprintf("Thanks for joining %s texts! Reply STOP to opt out.", h.store.Name))
	}
	return errors.Join(emailErr, smsErr)
}

func link(base, path string, query url.Values) string {
	u := strings.TrimRight(base, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
