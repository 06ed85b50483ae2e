// Package marketing manages newsletter subscriptions.
package marketing

import (
	"context"
	"errors"
	"strings"

	"github.com/fruitstand/backend/internal/domain/marketing"
	"github.com/fruitstand/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// MaxPageSize caps subscriber list pages
const MaxPageSize = 200

// NewsletterService handles newsletter signups
type NewsletterService struct {
	repo           marketing.SubscriberRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewNewsletterService creates a new NewsletterService
func NewNewsletterService(repo marketing.SubscriberRepository, logger *zap.Logger) *NewsletterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NewsletterService{repo: repo, logger: logger}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *NewsletterService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Subscribe is idempotent. An existing subscription only has its contact
// preferences updated; an unsubscribed address is re-activated and welcomed
// again.
func (s *NewsletterService) Subscribe(ctx context.Context, req SubscribeRequest) (*SubscriptionResponse, error) {
	return s.subscribe(ctx, req, true)
}

func (s *NewsletterService) subscribe(ctx context.Context, req SubscribeRequest, retry bool) (*SubscriptionResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	if existing == nil {
		sub, err := marketing.NewSubscriber(email, req.Phone, req.SMSOptIn, req.Source)
		if err != nil {
			return nil, err
		}
		if err := s.repo.Save(ctx, sub); err != nil {
			// lost a race with a concurrent signup for the same address
			if retry && errors.Is(err, shared.ErrAlreadyExists) {
				return s.subscribe(ctx, req, false)
			}
			return nil, err
		}
		s.publish(ctx, sub)
		s.logger.Info("Newsletter subscription created",
			zap.String("subscriber_id", sub.ID.String()),
			zap.String("source", sub.Source),
			zap.Bool("sms_opt_in", sub.SMSOptIn))
		return toSubscription(sub), nil
	}

	reactivated, err := existing.Resubscribe(req.Phone, req.SMSOptIn, req.Source)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, existing); err != nil {
		return nil, err
	}
	s.publish(ctx, existing)
	if reactivated {
		s.logger.Info("Newsletter subscription re-activated", zap.String("subscriber_id", existing.ID.String()))
	}
	return toSubscription(existing), nil
}

// Unsubscribe stops the subscription behind an unsubscribe token
func (s *NewsletterService) Unsubscribe(ctx context.Context, req UnsubscribeRequest) (*SubscriptionResponse, error) {
	sub, err := s.repo.FindByToken(ctx, strings.TrimSpace(req.Token))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("subscription")
		}
		return nil, err
	}
	if sub.IsSubscribed() {
		sub.Unsubscribe()
		if err := s.repo.Save(ctx, sub); err != nil {
			return nil, err
		}
		s.logger.Info("Newsletter subscription cancelled", zap.String("subscriber_id", sub.ID.String()))
	}
	return toSubscription(sub), nil
}

// List returns subscribers for the admin console
func (s *NewsletterService) List(ctx context.Context, q ListSubscribersQuery) (shared.Paginated[SubscriberResponse], error) {
	filter := shared.Filter{Page: q.Page, PageSize: q.PageSize, Search: strings.TrimSpace(q.Search), OrderBy: "subscribed_at"}
	filter.Normalize(MaxPageSize)
	if q.Status != "" {
		if !marketing.SubscriberStatus(q.Status).IsValid() {
			return shared.Paginated[SubscriberResponse]{}, shared.NewDomainError("INVALID_INPUT", "Unknown subscriber status: "+q.Status)
		}
		filter.Filters["status"] = q.Status
	}
	if q.SMSOptIn != nil {
		filter.Filters["sms_opt_in"] = *q.SMSOptIn
	}

	subs, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[SubscriberResponse]{}, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[SubscriberResponse]{}, err
	}
	items := make([]SubscriberResponse, len(subs))
	for i := range subs {
		items[i] = toSubscriberResponse(&subs[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

func (s *NewsletterService) publish(ctx context.Context, sub *marketing.Subscriber) {
	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, sub.GetDomainEvents()...); err != nil {
			s.logger.Warn("Failed to publish subscriber events",
				zap.String("subscriber_id", sub.ID.String()),
				zap.Error(err))
		}
	}
	sub.ClearDomainEvents()
}
