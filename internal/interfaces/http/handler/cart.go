package handler

import (
	"context"

	cartapp "github.com/fruitstand/backend/internal/application/cart"
	"github.com/fruitstand/backend/internal/domain/cart"
	"github.com/fruitstand/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CartService is the cart use-case surface the handler needs
type CartService interface {
	Get(ctx context.Context, owner cart.Owner) (*cartapp.CartResponse, error)
	AddItem(ctx context.Context, owner cart.Owner, req cartapp.AddItemRequest) (*cartapp.CartResponse, error)
	UpdateItem(ctx context.Context, owner cart.Owner, itemID uuid.UUID, req cartapp.UpdateItemRequest) (*cartapp.CartResponse, error)
	RemoveItem(ctx context.Context, owner cart.Owner, itemID uuid.UUID) (*cartapp.CartResponse, error)
	Clear(ctx context.Context, owner cart.Owner) (*cartapp.CartResponse, error)
}

// CartHandler serves the shopping cart of a signed-in user or guest session
type CartHandler struct {
	BaseHandler
	carts CartService
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// cartOwner resolves who the cart belongs to. Signed-in users win over the
// guest token.
func (h *BaseHandler) cartOwner(c *gin.Context) (cart.Owner, bool) {
	if userID, ok := middleware.GetUserID(c); ok {
		return cart.UserOwner(userID), true
	}
	if token := middleware.GetSessionToken(c); token != "" {
		return cart.GuestOwner(token), true
	}
	h.BadRequest(c, "A session token is required")
	return cart.Owner{}, false
}

// Get handles GET /cart
func (h *CartHandler) Get(c *gin.Context) {
	owner, ok := h.cartOwner(c)
	if !ok {
		return
	}
	resp, err := h.carts.Get(c.Request.Context(), owner)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AddItem handles POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	owner, ok := h.cartOwner(c)
	if !ok {
		return
	}
	var req cartapp.AddItemRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.carts.AddItem(c.Request.Context(), owner, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpdateItem handles PATCH /cart/items/:id. Quantity 0 removes the line.
func (h *CartHandler) UpdateItem(c *gin.Context) {
	owner, ok := h.cartOwner(c)
	if !ok {
		return
	}
	itemID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req cartapp.UpdateItemRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.carts.UpdateItem(c.Request.Context(), owner, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RemoveItem handles DELETE /cart/items/:id
func (h *CartHandler) RemoveItem(c *gin.Context) {
	owner, ok := h.cartOwner(c)
	if !ok {
		return
	}
	itemID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.carts.RemoveItem(c.Request.Context(), owner, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Clear handles DELETE /cart
func (h *CartHandler) Clear(c *gin.Context) {
	owner, ok := h.cartOwner(c)
	if !ok {
		return
	}
	resp, err := h.carts.Clear(c.Request.Context(), owner)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
