package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *GoogleProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewGoogleProvider("test-key", zap.NewNop(), WithBaseURL(server.URL))
	require.NoError(t, err)
	return p
}

func TestNewGoogleProvider_RequiresKey(t *testing.T) {
	_, err := NewGoogleProvider("", zap.NewNop())
	assert.Error(t, err)
}

func TestGoogleProvider_Autocomplete(t *testing.T) {
	token := uuid.New()
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/place/autocomplete/json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "1600 Amph", q.Get("input"))
		assert.Equal(t, "address", q.Get("types"))
		assert.Equal(t, "country:us", q.Get("components"))
		assert.Equal(t, token.String(), q.Get("sessiontoken"))
		assert.Equal(t, "test-key", q.Get("key"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"predictions": []map[string]any{{
				"place_id":    "ChIJ2eUgeAK6j4ARbn5u_wAGqWA",
				"description": "1600 Amphitheatre Parkway, Mountain View, CA, USA",
				"structured_formatting": map[string]any{
					"main_text":      "1600 Amphitheatre Parkway",
					"secondary_text": "Mountain View, CA, USA",
				},
			}},
		})
	})

	got, err := p.Autocomplete(context.Background(), "1600 Amph", token.String(), "us")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ChIJ2eUgeAK6j4ARbn5u_wAGqWA", got[0].PlaceID)
	assert.Equal(t, "1600 Amphitheatre Parkway", got[0].MainText)
	assert.Equal(t, "Mountain View, CA, USA", got[0].SecondaryText)
}

func TestGoogleProvider_Autocomplete_UpstreamError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "REQUEST_DENIED", "error_message": "bad key"})
	})

	_, err := p.Autocomplete(context.Background(), "1600 Amph", "not-a-uuid", "")
	assert.Error(t, err)
}

func TestGoogleProvider_Details(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/place/details/json", r.URL.Path)
		assert.Equal(t, "p1", r.URL.Query().Get("placeid"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"result": map[string]any{
				"formatted_address": "1600 Amphitheatre Pkwy Unit 4, Mountain View, CA 94043-1351, USA",
				"address_components": []map[string]any{
					{"long_name": "4", "short_name": "4", "types": []string{"subpremise"}},
					{"long_name": "1600", "short_name": "1600", "types": []string{"street_number"}},
					{"long_name": "Amphitheatre Parkway", "short_name": "Amphitheatre Pkwy", "types": []string{"route"}},
					{"long_name": "Mountain View", "short_name": "Mountain View", "types": []string{"locality", "political"}},
					{"long_name": "California", "short_name": "CA", "types": []string{"administrative_area_level_1", "political"}},
					{"long_name": "United States", "short_name": "US", "types": []string{"country", "political"}},
					{"long_name": "94043", "short_name": "94043", "types": []string{"postal_code"}},
					{"long_name": "1351", "short_name": "1351", "types": []string{"postal_code_suffix"}},
				},
			},
		})
	})

	addr, err := p.Details(context.Background(), "p1", "")
	require.NoError(t, err)
	assert.Equal(t, "1600 Amphitheatre Parkway", addr.Line1)
	assert.Equal(t, "4", addr.Line2)
	assert.Equal(t, "Mountain View", addr.City)
	assert.Equal(t, "CA", addr.State)
	assert.Equal(t, "94043-1351", addr.PostalCode)
	assert.Equal(t, "US", addr.Country)
}

func TestAddressFromComponents_PostalTown(t *testing.T) {
	addr := addressFromComponents(nil)
	assert.Empty(t, addr.Line1)

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"result": map[string]any{
				"address_components": []map[string]any{
					{"long_name": "10", "types": []string{"street_number"}},
					{"long_name": "Downing Street", "types": []string{"route"}},
					{"long_name": "London", "types": []string{"postal_town"}},
					{"long_name": "SW1A 2AA", "types": []string{"postal_code"}},
					{"long_name": "United Kingdom", "short_name": "GB", "types": []string{"country"}},
				},
			},
		})
	})
	addr, err := p.Details(context.Background(), "p2", "")
	require.NoError(t, err)
	assert.Equal(t, "10 Downing Street", addr.Line1)
	assert.Equal(t, "London", addr.City)
	assert.Equal(t, "SW1A 2AA", addr.PostalCode)
	assert.Equal(t, "GB", addr.Country)
}
