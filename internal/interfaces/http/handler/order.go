package handler

import (
	"context"
	"net/http"

	orderapp "github.com/fruitstand/backend/internal/application/order"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/interfaces/http/dto"
	"github.com/fruitstand/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderService is the order use-case surface the handler needs
type OrderService interface {
	ListMine(ctx context.Context, userID uuid.UUID, q orderapp.ListOrdersQuery) (shared.Paginated[orderapp.OrderSummary], error)
	Get(ctx context.Context, id uuid.UUID, userID *uuid.UUID, sessionToken string) (*orderapp.OrderResponse, error)
	Lookup(ctx context.Context, q orderapp.LookupQuery) (*orderapp.OrderResponse, error)
	AdminList(ctx context.Context, q orderapp.AdminListOrdersQuery) (shared.Paginated[orderapp.OrderSummary], error)
	AdminGet(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error)
	Ship(ctx context.Context, id uuid.UUID, req orderapp.ShipRequest) (*orderapp.OrderResponse, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error)
	Cancel(ctx context.Context, id uuid.UUID, req orderapp.CancelRequest) (*orderapp.OrderResponse, error)
	Refund(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error)
	PackingSlipPDF(ctx context.Context, id uuid.UUID) ([]byte, string, error)
}

// OrderHandler serves order history for customers and fulfillment for staff
type OrderHandler struct {
	BaseHandler
	orders OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// ListMine handles GET /orders
func (h *OrderHandler) ListMine(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var q orderapp.ListOrdersQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.orders.ListMine(c.Request.Context(), userID, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessPage(c, dto.NewPageResponse(page))
}

// Get handles GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var userID *uuid.UUID
	if uid, ok := middleware.GetUserID(c); ok {
		userID = &uid
	}
	resp, err := h.orders.Get(c.Request.Context(), id, userID, middleware.GetSessionToken(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Lookup handles GET /orders/lookup?number=&email=
func (h *OrderHandler) Lookup(c *gin.Context) {
	var q orderapp.LookupQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.orders.Lookup(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AdminList handles GET /admin/orders
func (h *OrderHandler) AdminList(c *gin.Context) {
	var q orderapp.AdminListOrdersQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.orders.AdminList(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessPage(c, dto.NewPageResponse(page))
}

// AdminGet handles GET /admin/orders/:id
func (h *OrderHandler) AdminGet(c *gin.Context) {
	h.transition(c, h.orders.AdminGet)
}

// MarkProcessing handles POST /admin/orders/:id/process
func (h *OrderHandler) MarkProcessing(c *gin.Context) {
	h.transition(c, h.orders.MarkProcessing)
}

// MarkDelivered handles POST /admin/orders/:id/deliver
func (h *OrderHandler) MarkDelivered(c *gin.Context) {
	h.transition(c, h.orders.MarkDelivered)
}

// Refund handles POST /admin/orders/:id/refund
func (h *OrderHandler) Refund(c *gin.Context) {
	h.transition(c, h.orders.Refund)
}

func (h *OrderHandler) transition(c *gin.Context, fn func(context.Context, uuid.UUID) (*orderapp.OrderResponse, error)) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Ship handles POST /admin/orders/:id/ship
func (h *OrderHandler) Ship(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req orderapp.ShipRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.orders.Ship(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel handles POST /admin/orders/:id/cancel. The reason is optional.
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req orderapp.CancelRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	resp, err := h.orders.Cancel(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// PackingSlip handles GET /admin/orders/:id/packing-slip
func (h *OrderHandler) PackingSlip(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	pdf, filename, err := h.orders.PackingSlipPDF(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
