// Package places adapts the Google Maps Places API to address autocomplete.
package places

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	appplaces "github.com/fruitstand/backend/internal/application/places"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"googlemaps.github.io/maps"
)

// GoogleProvider implements places.Provider with the Maps Places API
type GoogleProvider struct {
	client *maps.Client
	logger *zap.Logger
}

var _ appplaces.Provider = (*GoogleProvider)(nil)

// Option configures the provider
type Option func(*[]maps.ClientOption)

// WithBaseURL points the client at a different host, used in tests
func WithBaseURL(baseURL string) Option {
	return func(opts *[]maps.ClientOption) {
		if baseURL != "" {
			*opts = append(*opts, maps.WithBaseURL(strings.TrimRight(baseURL, "/")))
		}
	}
}

// WithTimeout bounds each upstream request
func WithTimeout(d time.Duration) Option {
	return func(opts *[]maps.ClientOption) {
		if d > 0 {
			*opts = append(*opts, maps.WithHTTPClient(&http.Client{Timeout: d}))
		}
	}
}

// NewGoogleProvider creates a provider for apiKey
func NewGoogleProvider(apiKey string, logger *zap.Logger, opts ...Option) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, errors.New("places api key is required")
	}
	clientOpts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	for _, opt := range opts {
		opt(&clientOpts)
	}
	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &GoogleProvider{client: client, logger: logger}, nil
}

// Autocomplete returns street address predictions
func (p *GoogleProvider) Autocomplete(ctx context.Context, input, sessionToken, country string) ([]appplaces.Prediction, error) {
	req := &maps.PlaceAutocompleteRequest{
		Input:        input,
		Types:        maps.AutocompletePlaceTypeAddress,
		SessionToken: parseSessionToken(sessionToken),
	}
	if country != "" {
		req.Components = map[maps.Component][]string{maps.ComponentCountry: {country}}
	}

	resp, err := p.client.PlaceAutocomplete(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make([]appplaces.Prediction, 0, len(resp.Predictions))
	for _, pr := range resp.Predictions {
		out = append(out, appplaces.Prediction{
			PlaceID:       pr.PlaceID,
			Description:   pr.Description,
			MainText:      pr.StructuredFormatting.MainText,
			SecondaryText: pr.StructuredFormatting.SecondaryText,
		})
	}
	return out, nil
}

// Details fetches a place's address components and maps them onto
// shipping address fields
func (p *GoogleProvider) Details(ctx context.Context, placeID, sessionToken string) (valueobject.AddressDTO, error) {
	res, err := p.client.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
		PlaceID:      placeID,
		SessionToken: parseSessionToken(sessionToken),
		Fields: []maps.PlaceDetailsFieldMask{
			maps.PlaceDetailsFieldMaskAddressComponent,
			maps.PlaceDetailsFieldMaskFormattedAddress,
		},
	})
	if err != nil {
		return valueobject.AddressDTO{}, err
	}
	return addressFromComponents(res.AddressComponents), nil
}

func addressFromComponents(components []maps.AddressComponent) valueobject.AddressDTO {
	var addr valueobject.AddressDTO
	var streetNumber, route, locality, postalTown, sublocality, postalCode, postalSuffix string

	for _, c := range components {
		switch {
		case has(c, "street_number"):
			streetNumber = c.LongName
		case has(c, "route"):
			route = c.LongName
		case has(c, "subpremise"):
			addr.Line2 = c.LongName
		case has(c, "locality"):
			locality = c.LongName
		case has(c, "postal_town"):
			postalTown = c.LongName
		case has(c, "sublocality"), has(c, "sublocality_level_1"):
			sublocality = c.LongName
		case has(c, "administrative_area_level_1"):
			addr.State = c.ShortName
		case has(c, "postal_code"):
			postalCode = c.LongName
		case has(c, "postal_code_suffix"):
			postalSuffix = c.LongName
		case has(c, "country"):
			addr.Country = c.ShortName
		}
	}

	addr.Line1 = strings.TrimSpace(streetNumber + " " + route)
	addr.City = firstNonEmpty(locality, postalTown, sublocality)
	addr.PostalCode = postalCode
	if postalCode != "" && postalSuffix != "" && addr.Country == "US" {
		addr.PostalCode = postalCode + "-" + postalSuffix
	}
	return addr
}

func has(c maps.AddressComponent, t string) bool {
	return slices.Contains(c.Types, t)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseSessionToken accepts the client's UUID session token; anything else
// is sent without a session
func parseSessionToken(token string) maps.PlaceAutocompleteSessionToken {
	id, err := uuid.Parse(token)
	if err != nil {
		return maps.PlaceAutocompleteSessionToken{}
	}
	return maps.PlaceAutocompleteSessionToken(id)
}
