package handler

import (
	"net/http"
	"testing"

	orderapp "github.com/fruitstand/backend/internal/application/order"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/interfaces/http/dto"
	"github.com/fruitstand/backend/internal/interfaces/http/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupOrderRouter(svc *MockOrderService, userID uuid.UUID) http.Handler {
	router := setupTestRouter()
	h := NewOrderHandler(svc)
	router.GET("/orders/lookup", h.Lookup)

	mine := router.Group("/orders", asUser(userID, "customer"), guestSession())
	mine.GET("", h.ListMine)
	mine.GET("/:id", h.Get)

	admin := router.Group("/admin/orders", asUser(userID, "admin"))
	admin.GET("", h.AdminList)
	admin.POST("/:id/ship", h.Ship)
	admin.POST("/:id/cancel", h.Cancel)
	admin.POST("/:id/refund", h.Refund)
	admin.GET("/:id/packing-slip", h.PackingSlip)
	return router
}

func TestOrderHandler_ListMine(t *testing.T) {
	svc := new(MockOrderService)
	userID := uuid.New()
	svc.On("ListMine", mock.Anything, userID, orderapp.ListOrdersQuery{Page: 1, PageSize: 10}).
		Return(shared.NewPaginated([]orderapp.OrderSummary{{Number: "FS-1001"}}, 1, 1, 10), nil)

	w := doJSON(setupOrderRouter(svc, userID), http.MethodGet, "/orders?page=1&page_size=10", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "FS-1001")
	svc.AssertExpectations(t)
}

func TestOrderHandler_Get_PassesOwnership(t *testing.T) {
	svc := new(MockOrderService)
	userID, orderID := uuid.New(), uuid.New()
	svc.On("Get", mock.Anything, orderID, &userID, testSessionToken).Return(&orderapp.OrderResponse{ID: orderID}, nil)

	w := doJSON(setupOrderRouter(svc, userID), http.MethodGet, "/orders/"+orderID.String(), nil,
		middleware.SessionHeader, testSessionToken)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestOrderHandler_Get_ForeignOrder(t *testing.T) {
	svc := new(MockOrderService)
	svc.On("Get", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, shared.NewNotFoundError("order"))

	w := doJSON(setupOrderRouter(svc, uuid.New()), http.MethodGet, "/orders/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderHandler_Lookup(t *testing.T) {
	svc := new(MockOrderService)
	svc.On("Lookup", mock.Anything, orderapp.LookupQuery{Number: "FS-1001", Email: "pat@example.com"}).
		Return(&orderapp.OrderResponse{Number: "FS-1001"}, nil)
	router := setupOrderRouter(svc, uuid.New())

	w := doJSON(router, http.MethodGet, "/orders/lookup?number=FS-1001&email=pat@example.com", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/orders/lookup?number=FS-1001", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, errCode(t, w))
	svc.AssertNumberOfCalls(t, "Lookup", 1)
}

func TestOrderHandler_Ship(t *testing.T) {
	svc := new(MockOrderService)
	orderID := uuid.New()
	req := orderapp.ShipRequest{Carrier: "UPS", TrackingNumber: "1Z999"}
	svc.On("Ship", mock.Anything, orderID, req).Return(&orderapp.OrderResponse{ID: orderID, FulfillmentStatus: "shipped"}, nil)

	w := doJSON(setupOrderRouter(svc, uuid.New()), http.MethodPost, "/admin/orders/"+orderID.String()+"/ship", req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestOrderHandler_Cancel_WithoutBody(t *testing.T) {
	svc := new(MockOrderService)
	orderID := uuid.New()
	svc.On("Cancel", mock.Anything, orderID, orderapp.CancelRequest{}).Return(&orderapp.OrderResponse{ID: orderID}, nil)

	w := doJSON(setupOrderRouter(svc, uuid.New()), http.MethodPost, "/admin/orders/"+orderID.String()+"/cancel", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestOrderHandler_Refund_Unpaid(t *testing.T) {
	svc := new(MockOrderService)
	orderID := uuid.New()
	svc.On("Refund", mock.Anything, orderID).Return(nil, shared.NewDomainError("INVALID_STATE", "only paid orders can be refunded"))

	w := doJSON(setupOrderRouter(svc, uuid.New()), http.MethodPost, "/admin/orders/"+orderID.String()+"/refund", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestOrderHandler_PackingSlip(t *testing.T) {
	svc := new(MockOrderService)
	orderID := uuid.New()
	svc.On("PackingSlipPDF", mock.Anything, orderID).Return([]byte("%PDF-1.7"), "packing-slip-FS-1001.pdf", nil)

	w := doJSON(setupOrderRouter(svc, uuid.New()), http.MethodGet, "/admin/orders/"+orderID.String()+"/packing-slip", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "packing-slip-FS-1001.pdf")
	assert.Equal(t, "%PDF-1.7", w.Body.String())
}

func TestOrderHandler_ListMine_RequiresUser(t *testing.T) {
	svc := new(MockOrderService)
	router := setupTestRouter()
	router.GET("/orders", NewOrderHandler(svc).ListMine)

	w := doJSON(router, http.MethodGet, "/orders", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
