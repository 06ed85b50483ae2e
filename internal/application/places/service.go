package places

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// MinInputLength is the shortest input worth sending upstream
const MinInputLength = 3

// ErrNotConfigured is returned when no provider API key is set
var ErrNotConfigured = shared.NewDomainError("UPSTREAM", "places autocomplete is not configured")

// Prediction is one autocomplete suggestion
type Prediction struct {
	PlaceID       string `json:"place_id"`
	Description   string `json:"description"`
	MainText      string `json:"main_text"`
	SecondaryText string `json:"secondary_text"`
}

// Provider is the port to the address lookup backend
type Provider interface {
	Autocomplete(ctx context.Context, input, sessionToken, country string) ([]Prediction, error)
	Details(ctx context.Context, placeID, sessionToken string) (valueobject.AddressDTO, error)
}

// Service proxies address autocomplete so the API key never reaches the browser
type Service struct {
	provider       Provider
	defaultCountry string
	logger         *zap.Logger
}

// NewService creates a places service. A nil provider disables it.
func NewService(provider Provider, defaultCountry string, logger *zap.Logger) *Service {
	return &Service{
		provider:       provider,
		defaultCountry: strings.ToLower(defaultCountry),
		logger:         logger,
	}
}

// Autocomplete returns address predictions for input. Inputs shorter than
// MinInputLength return an empty list without calling the provider.
func (s *Service) Autocomplete(ctx context.Context, input, sessionToken, country string) ([]Prediction, error) {
	if s.provider == nil {
		return nil, ErrNotConfigured
	}
	input = strings.TrimSpace(input)
	if utf8.RuneCountInString(input) < MinInputLength {
		return []Prediction{}, nil
	}
	if country == "" {
		country = s.defaultCountry
	}

	predictions, err := s.provider.Autocomplete(ctx, input, sessionToken, strings.ToLower(country))
	if err != nil {
		s.logger.Warn("Places autocomplete failed", zap.Error(err))
		return nil, shared.NewUpstreamError("places", err)
	}
	if predictions == nil {
		predictions = []Prediction{}
	}
	return predictions, nil
}

// Details resolves a place id into shipping address fields
func (s *Service) Details(ctx context.Context, placeID, sessionToken string) (*valueobject.AddressDTO, error) {
	if s.provider == nil {
		return nil, ErrNotConfigured
	}
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, shared.NewMissingFieldError("place_id")
	}

	addr, err := s.provider.Details(ctx, placeID, sessionToken)
	if err != nil {
		s.logger.Warn("Places details failed", zap.String("place_id", placeID), zap.Error(err))
		return nil, shared.NewUpstreamError("places", err)
	}
	return &addr, nil
}
