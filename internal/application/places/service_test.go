package places

import (
	"context"
	"errors"
	"testing"

	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Autocomplete(ctx context.Context, input, sessionToken, country string) ([]Prediction, error) {
	args := m.Called(ctx, input, sessionToken, country)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Prediction), args.Error(1)
}

func (m *MockProvider) Details(ctx context.Context, placeID, sessionToken string) (valueobject.AddressDTO, error) {
	args := m.Called(ctx, placeID, sessionToken)
	return args.Get(0).(valueobject.AddressDTO), args.Error(1)
}

func TestService_Autocomplete(t *testing.T) {
	provider := new(MockProvider)
	svc := NewService(provider, "US", zap.NewNop())

	provider.On("Autocomplete", mock.Anything, "1600 Amph", "tok", "us").Return([]Prediction{
		{PlaceID: "p1", Description: "1600 Amphitheatre Pkwy, Mountain View, CA, USA"},
	}, nil)

	got, err := svc.Autocomplete(context.Background(), "  1600 Amph ", "tok", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].PlaceID)
	provider.AssertExpectations(t)
}

func TestService_Autocomplete_ShortInputSkipsProvider(t *testing.T) {
	provider := new(MockProvider)
	svc := NewService(provider, "US", zap.NewNop())

	got, err := svc.Autocomplete(context.Background(), "16", "", "")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	provider.AssertNotCalled(t, "Autocomplete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Autocomplete_CountryOverride(t *testing.T) {
	provider := new(MockProvider)
	svc := NewService(provider, "US", zap.NewNop())
	provider.On("Autocomplete", mock.Anything, "10 Downing", "", "gb").Return(nil, nil)

	got, err := svc.Autocomplete(context.Background(), "10 Downing", "", "GB")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_UpstreamFailure(t *testing.T) {
	provider := new(MockProvider)
	svc := NewService(provider, "US", zap.NewNop())
	provider.On("Autocomplete", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("OVER_QUERY_LIMIT"))
	provider.On("Details", mock.Anything, "p1", "").Return(valueobject.AddressDTO{}, errors.New("timeout"))

	_, err := svc.Autocomplete(context.Background(), "1600 Amph", "", "")
	assert.ErrorIs(t, err, shared.ErrUpstream)

	_, err = svc.Details(context.Background(), "p1", "")
	assert.ErrorIs(t, err, shared.ErrUpstream)
}

func TestService_NotConfigured(t *testing.T) {
	svc := NewService(nil, "US", zap.NewNop())

	_, err := svc.Autocomplete(context.Background(), "1600 Amph", "", "")
	assert.ErrorIs(t, err, shared.ErrUpstream)
	assert.Equal(t, "places autocomplete is not configured", err.Error())

	_, err = svc.Details(context.Background(), "p1", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestService_Details(t *testing.T) {
	provider := new(MockProvider)
	svc := NewService(provider, "US", zap.NewNop())
	provider.On("Details", mock.Anything, "p1", "tok").Return(valueobject.AddressDTO{
		Line1: "1600 Amphitheatre Pkwy", City: "Mountain View", State: "CA", PostalCode: "94043", Country: "US",
	}, nil)

	addr, err := svc.Details(context.Background(), "p1", "tok")
	require.NoError(t, err)
	assert.Equal(t, "Mountain View", addr.City)

	_, err = svc.Details(context.Background(), " ", "")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
