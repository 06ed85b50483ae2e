package handler

import (
	"errors"
	"net/http"
	"testing"

	placesapp "github.com/fruitstand/backend/internal/application/places"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/fruitstand/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupPlacesRouter(svc *MockPlacesService) http.Handler {
	router := setupTestRouter()
	h := NewPlacesHandler(svc)
	router.GET("/places/autocomplete", h.Autocomplete)
	router.GET("/places/details/:place_id", h.Details)
	return router
}

func TestPlacesHandler_Autocomplete(t *testing.T) {
	svc := new(MockPlacesService)
	svc.On("Autocomplete", mock.Anything, "1 Orchard", "sess-1", "US").
		Return([]placesapp.Prediction{{PlaceID: "ChIJ1", Description: "1 Orchard Way, Portland, OR"}}, nil)

	w := doJSON(setupPlacesRouter(svc), http.MethodGet, "/places/autocomplete?input=1+Orchard&session_token=sess-1&country=US", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"place_id":"ChIJ1"`)
	svc.AssertExpectations(t)
}

func TestPlacesHandler_Autocomplete_Validation(t *testing.T) {
	svc := new(MockPlacesService)
	router := setupPlacesRouter(svc)

	w := doJSON(router, http.MethodGet, "/places/autocomplete?country=US", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/places/autocomplete?input=main&country=USA", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, errCode(t, w))

	svc.AssertNotCalled(t, "Autocomplete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPlacesHandler_Autocomplete_Upstream(t *testing.T) {
	svc := new(MockPlacesService)
	svc.On("Autocomplete", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, shared.NewUpstreamError("places", errors.New("deadline exceeded")))

	w := doJSON(setupPlacesRouter(svc), http.MethodGet, "/places/autocomplete?input=main", nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, dto.ErrCodeUpstream, errCode(t, w))
}

func TestPlacesHandler_Details(t *testing.T) {
	svc := new(MockPlacesService)
	svc.On("Details", mock.Anything, "ChIJ1", "sess-1").Return(&valueobject.AddressDTO{
		Line1:      "1 Orchard Way",
		City:       "Portland",
		State:      "OR",
		PostalCode: "97201",
		Country:    "US",
	}, nil)

	w := doJSON(setupPlacesRouter(svc), http.MethodGet, "/places/details/ChIJ1?session_token=sess-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"postal_code":"97201"`)
}
