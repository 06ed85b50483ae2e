package handler

import (
	"context"

	placesapp "github.com/fruitstand/backend/internal/application/places"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/gin-gonic/gin"
)

// PlacesService is the address lookup surface the handler needs
type PlacesService interface {
	Autocomplete(ctx context.Context, input, sessionToken, country string) ([]placesapp.Prediction, error)
	Details(ctx context.Context, placeID, sessionToken string) (*valueobject.AddressDTO, error)
}

// AutocompleteQuery holds address autocomplete parameters
type AutocompleteQuery struct {
	Input        string `form:"input" binding:"required,max=200"`
	SessionToken string `form:"session_token" binding:"max=128"`
	Country      string `form:"country" binding:"omitempty,iso3166_1_alpha2"`
}

// PlacesHandler proxies address autocomplete for the checkout form
type PlacesHandler struct {
	BaseHandler
	places PlacesService
}

// NewPlacesHandler creates a new PlacesHandler
func NewPlacesHandler(places PlacesService) *PlacesHandler {
	return &PlacesHandler{places: places}
}

// Autocomplete handles GET /places/autocomplete
func (h *PlacesHandler) Autocomplete(c *gin.Context) {
	var q AutocompleteQuery
	if !bindQuery(c, &q) {
		return
	}
	predictions, err := h.places.Autocomplete(c.Request.Context(), q.Input, q.SessionToken, q.Country)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, predictions)
}

// Details handles GET /places/details/:place_id
func (h *PlacesHandler) Details(c *gin.Context) {
	addr, err := h.places.Details(c.Request.Context(), c.Param("place_id"), c.Query("session_token"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, addr)
}
