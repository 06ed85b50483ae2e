package handler

import (
	"net/http"
	"testing"

	catalogapp "github.com/fruitstand/backend/internal/application/catalog"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupProductRouter(svc *MockProductService) http.Handler {
	router := setupTestRouter()
	h := NewProductHandler(svc)
	router.GET("/products", h.List)
	router.GET("/products/:slug", h.GetBySlug)
	router.POST("/admin/products", h.Create)
	router.PUT("/admin/products/:id", h.Update)
	router.POST("/admin/products/:id/publish", h.Publish)
	router.PUT("/admin/products/:id/variants/:variant_id/stock", h.SetStock)
	router.DELETE("/admin/products/:id/images", h.RemoveImage)
	return router
}

func TestProductHandler_List(t *testing.T) {
	svc := new(MockProductService)
	items := []catalogapp.ProductListResponse{{ID: uuid.New(), Slug: "honeycrisp-apples", Name: "Honeycrisp Apples"}}
	svc.On("List", mock.Anything, mock.MatchedBy(func(q catalogapp.ListProductsQuery) bool {
		return q.Category == "apples" && q.Page == 2 && q.InStock != nil && *q.InStock
	})).Return(shared.NewPaginated(items, 21, 2, 20), nil)

	w := doJSON(setupProductRouter(svc), http.MethodGet, "/products?category=apples&in_stock=true&page=2", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(21), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)
	assert.Len(t, resp.Data, 1)
	svc.AssertExpectations(t)
}

func TestProductHandler_List_EmptyIsArray(t *testing.T) {
	svc := new(MockProductService)
	svc.On("List", mock.Anything, mock.Anything).
		Return(shared.NewPaginated[catalogapp.ProductListResponse](nil, 0, 1, 20), nil)

	w := doJSON(setupProductRouter(svc), http.MethodGet, "/products", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestProductHandler_GetBySlug_NotFound(t *testing.T) {
	svc := new(MockProductService)
	svc.On("GetBySlug", mock.Anything, "dragonfruit").Return(nil, shared.NewNotFoundError("product"))

	w := doJSON(setupProductRouter(svc), http.MethodGet, "/products/dragonfruit", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, errCode(t, w))
}

func TestProductHandler_Create(t *testing.T) {
	svc := new(MockProductService)
	created := &catalogapp.ProductResponse{ID: uuid.New(), Slug: "kiwi", Name: "Kiwi", Status: "draft"}
	svc.On("Create", mock.Anything, mock.MatchedBy(func(req catalogapp.CreateProductRequest) bool {
		return req.Slug == "kiwi" && req.Price.Equal(decimal.RequireFromString("3.50"))
	})).Return(created, nil)

	w := doJSON(setupProductRouter(svc), http.MethodPost, "/admin/products", map[string]any{
		"name":  "Kiwi",
		"slug":  "kiwi",
		"price": "3.50",
		"stock": 40,
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}

func TestProductHandler_Create_Validation(t *testing.T) {
	svc := new(MockProductService)

	w := doJSON(setupProductRouter(svc), http.MethodPost, "/admin/products", map[string]any{
		"slug":  "kiwi",
		"stock": -1,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	fields := make([]string, 0, len(resp.Error.Details))
	for _, d := range resp.Error.Details {
		fields = append(fields, d.Field)
	}
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "stock")
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProductHandler_InvalidID(t *testing.T) {
	svc := new(MockProductService)

	w := doJSON(setupProductRouter(svc), http.MethodPost, "/admin/products/not-a-uuid/publish", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeBadRequest, errCode(t, w))
}

func TestProductHandler_Publish_InvalidState(t *testing.T) {
	svc := new(MockProductService)
	id := uuid.New()
	svc.On("Publish", mock.Anything, id).
		Return(nil, shared.NewDomainError("INVALID_STATE", "a product needs at least one variant to be published"))

	w := doJSON(setupProductRouter(svc), http.MethodPost, "/admin/products/"+id.String()+"/publish", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "at least one variant")
}

func TestProductHandler_SetStock(t *testing.T) {
	svc := new(MockProductService)
	id, variantID := uuid.New(), uuid.New()
	svc.On("SetStock", mock.Anything, id, variantID, mock.MatchedBy(func(req catalogapp.SetStockRequest) bool {
		return req.Stock != nil && *req.Stock == 0
	})).Return(&catalogapp.ProductResponse{ID: id}, nil)

	w := doJSON(setupProductRouter(svc), http.MethodPut,
		"/admin/products/"+id.String()+"/variants/"+variantID.String()+"/stock", map[string]any{"stock": 0})

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestProductHandler_RemoveImage(t *testing.T) {
	svc := new(MockProductService)
	id := uuid.New()
	key := "products/" + id.String() + "/a.jpg"
	svc.On("RemoveImage", mock.Anything, id, catalogapp.RemoveImageRequest{Key: key}).
		Return(&catalogapp.ProductResponse{ID: id}, nil)

	w := doJSON(setupProductRouter(svc), http.MethodDelete, "/admin/products/"+id.String()+"/images", map[string]any{"key": key})

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}
