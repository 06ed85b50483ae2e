package marketing

import (
	"context"
	"errors"
	"testing"

	"github.com/fruitstand/backend/internal/domain/marketing"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockSubscriberRepository is a mock implementation of marketing.SubscriberRepository
type MockSubscriberRepository struct {
	mock.Mock
}

func (m *MockSubscriberRepository) FindByEmail(ctx context.Context, email string) (*marketing.Subscriber, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketing.Subscriber), args.Error(1)
}

func (m *MockSubscriberRepository) FindByToken(ctx context.Context, token string) (*marketing.Subscriber, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketing.Subscriber), args.Error(1)
}

func (m *MockSubscriberRepository) FindAll(ctx context.Context, filter shared.Filter) ([]marketing.Subscriber, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]marketing.Subscriber), args.Error(1)
}

func (m *MockSubscriberRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSubscriberRepository) Save(ctx context.Context, s *marketing.Subscriber) error {
	return m.Called(ctx, s).Error(0)
}

type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func newNewsletterService() (*NewsletterService, *MockSubscriberRepository, *recordingPublisher) {
	repo := new(MockSubscriberRepository)
	publisher := &recordingPublisher{}
	svc := NewNewsletterService(repo, zap.NewNop())
	svc.SetEventPublisher(publisher)
	return svc, repo, publisher
}

func existingSubscriber(t *testing.T) *marketing.Subscriber {
	t.Helper()
	sub, err := marketing.NewSubscriber("ada@example.com", "", false, "footer")
	require.NoError(t, err)
	sub.ClearDomainEvents()
	return sub
}

func TestNewsletterService_Subscribe_New(t *testing.T) {
	svc, repo, publisher := newNewsletterService()
	ctx := context.Background()

	repo.On("FindByEmail", ctx, "ada@example.com").Return(nil, shared.ErrNotFound)
	repo.On("Save", ctx, mock.AnythingOfType("*marketing.Subscriber")).Return(nil)

	resp, err := svc.Subscribe(ctx, SubscribeRequest{Email: " Ada@Example.com", Phone: "+1 503 555 0100", SMSOptIn: true})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", resp.Email)
	assert.Equal(t, "subscribed", resp.Status)
	assert.True(t, resp.SMSOptIn)

	require.Len(t, publisher.events, 1)
	ev := publisher.events[0].(*marketing.SubscribedEvent)
	assert.Equal(t, "+15035550100", ev.Phone)
	assert.NotEmpty(t, ev.UnsubscribeToken)
}

func TestNewsletterService_Subscribe_SMSWithoutPhone(t *testing.T) {
	svc, repo, _ := newNewsletterService()
	ctx := context.Background()

	repo.On("FindByEmail", ctx, "ada@example.com").Return(nil, shared.ErrNotFound)

	_, err := svc.Subscribe(ctx, SubscribeRequest{Email: "ada@example.com", SMSOptIn: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestNewsletterService_Subscribe_Idempotent(t *testing.T) {
	svc, repo, publisher := newNewsletterService()
	ctx := context.Background()
	sub := existingSubscriber(t)

	repo.On("FindByEmail", ctx, "ada@example.com").Return(sub, nil)
	repo.On("Save", ctx, sub).Return(nil)

	resp, err := svc.Subscribe(ctx, SubscribeRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "subscribed", resp.Status)
	assert.Empty(t, publisher.events, "an active subscriber is not welcomed twice")
}

func TestNewsletterService_Subscribe_Reactivates(t *testing.T) {
	svc, repo, publisher := newNewsletterService()
	ctx := context.Background()
	sub := existingSubscriber(t)
	sub.Unsubscribe()
	oldToken := sub.UnsubscribeToken

	repo.On("FindByEmail", ctx, "ada@example.com").Return(sub, nil)
	repo.On("Save", ctx, sub).Return(nil)

	resp, err := svc.Subscribe(ctx, SubscribeRequest{Email: "ada@example.com", Source: "checkout"})
	require.NoError(t, err)
	assert.Equal(t, "subscribed", resp.Status)
	assert.Equal(t, "checkout", sub.Source)
	assert.NotEqual(t, oldToken, sub.UnsubscribeToken)
	assert.Nil(t, sub.UnsubscribedAt)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, marketing.EventTypeSubscribed, publisher.events[0].EventType())
}

func TestNewsletterService_Subscribe_ConcurrentSignup(t *testing.T) {
	svc, repo, publisher := newNewsletterService()
	ctx := context.Background()
	winner := existingSubscriber(t)

	repo.On("FindByEmail", ctx, "ada@example.com").Return(nil, shared.ErrNotFound).Once()
	repo.On("FindByEmail", ctx, "ada@example.com").Return(winner, nil).Once()
	repo.On("Save", ctx, mock.MatchedBy(func(s *marketing.Subscriber) bool { return s.ID != winner.ID })).
		Return(shared.ErrAlreadyExists).Once()
	repo.On("Save", ctx, winner).Return(nil).Once()

	resp, err := svc.Subscribe(ctx, SubscribeRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "subscribed", resp.Status)
	assert.Empty(t, publisher.events)
	repo.AssertExpectations(t)
}

func TestNewsletterService_Unsubscribe(t *testing.T) {
	svc, repo, _ := newNewsletterService()
	ctx := context.Background()
	sub := existingSubscriber(t)

	repo.On("FindByToken", ctx, sub.UnsubscribeToken).Return(sub, nil)
	repo.On("FindByToken", ctx, "nope").Return(nil, shared.ErrNotFound)
	repo.On("Save", ctx, sub).Return(nil).Once()

	resp, err := svc.Unsubscribe(ctx, UnsubscribeRequest{Token: sub.UnsubscribeToken})
	require.NoError(t, err)
	assert.Equal(t, "unsubscribed", resp.Status)
	assert.NotNil(t, sub.UnsubscribedAt)

	// repeating is a no-op
	_, err = svc.Unsubscribe(ctx, UnsubscribeRequest{Token: sub.UnsubscribeToken})
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "Save", 1)

	_, err = svc.Unsubscribe(ctx, UnsubscribeRequest{Token: "nope"})
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestNewsletterService_List(t *testing.T) {
	svc, repo, _ := newNewsletterService()
	ctx := context.Background()
	sub := existingSubscriber(t)
	optIn := true

	matchFilter := mock.MatchedBy(func(f shared.Filter) bool {
		return f.Filters["status"] == "subscribed" && f.Filters["sms_opt_in"] == true && f.OrderBy == "subscribed_at"
	})
	repo.On("FindAll", ctx, matchFilter).Return([]marketing.Subscriber{*sub}, nil)
	repo.On("Count", ctx, matchFilter).Return(int64(1), nil)

	page, err := svc.List(ctx, ListSubscribersQuery{Status: "subscribed", SMSOptIn: &optIn})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "footer", page.Items[0].Source)

	_, err = svc.List(ctx, ListSubscribersQuery{Status: "bounced"})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}
