package handler

import (
	"context"
	"io"
	"mime"

	catalogapp "github.com/fruitstand/backend/internal/application/catalog"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProductService is the catalog use-case surface the handler needs
type ProductService interface {
	List(ctx context.Context, q catalogapp.ListProductsQuery) (shared.Paginated[catalogapp.ProductListResponse], error)
	AdminList(ctx context.Context, q catalogapp.ListProductsQuery) (shared.Paginated[catalogapp.ProductListResponse], error)
	GetBySlug(ctx context.Context, slug string) (*catalogapp.ProductResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error)
	Create(ctx context.Context, req catalogapp.CreateProductRequest) (*catalogapp.ProductResponse, error)
	Update(ctx context.Context, id uuid.UUID, req catalogapp.UpdateProductRequest) (*catalogapp.ProductResponse, error)
	Publish(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error)
	Archive(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error)
	AddVariant(ctx context.Context, id uuid.UUID, req catalogapp.VariantRequest) (*catalogapp.ProductResponse, error)
	SetStock(ctx context.Context, id, variantID uuid.UUID, req catalogapp.SetStockRequest) (*catalogapp.ProductResponse, error)
	CreateImageUploadURL(ctx context.Context, id uuid.UUID, req catalogapp.ImageUploadRequest) (*catalogapp.ImageUploadResponse, error)
	AttachImage(ctx context.Context, id uuid.UUID, req catalogapp.AttachImageRequest) (*catalogapp.ProductResponse, error)
	RemoveImage(ctx context.Context, id uuid.UUID, req catalogapp.RemoveImageRequest) (*catalogapp.ProductResponse, error)
	ImportProducts(ctx context.Context, src io.Reader, req catalogapp.ImportRequest) (*catalogapp.ImportResult, error)
}

// ProductHandler serves the public catalog and admin product management
type ProductHandler struct {
	BaseHandler
	products ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(products ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

// List handles GET /products
func (h *ProductHandler) List(c *gin.Context) {
	var q catalogapp.ListProductsQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.products.List(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessPage(c, dto.NewPageResponse(page))
}

// GetBySlug handles GET /products/:slug
func (h *ProductHandler) GetBySlug(c *gin.Context) {
	product, err := h.products.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// AdminList handles GET /admin/products, including drafts and archived
func (h *ProductHandler) AdminList(c *gin.Context) {
	var q catalogapp.ListProductsQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.products.AdminList(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessPage(c, dto.NewPageResponse(page))
}

// AdminGet handles GET /admin/products/:id
func (h *ProductHandler) AdminGet(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	product, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Create handles POST /admin/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req catalogapp.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.products.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// Update handles PUT /admin/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.products.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Publish handles POST /admin/products/:id/publish
func (h *ProductHandler) Publish(c *gin.Context) {
	h.transition(c, h.products.Publish)
}

// Archive handles POST /admin/products/:id/archive
func (h *ProductHandler) Archive(c *gin.Context) {
	h.transition(c, h.products.Archive)
}

func (h *ProductHandler) transition(c *gin.Context, fn func(context.Context, uuid.UUID) (*catalogapp.ProductResponse, error)) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	product, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// AddVariant handles POST /admin/products/:id/variants
func (h *ProductHandler) AddVariant(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.VariantRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.products.AddVariant(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// SetStock handles PUT /admin/products/:id/variants/:variant_id/stock
func (h *ProductHandler) SetStock(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	variantID, ok := h.uuidParam(c, "variant_id")
	if !ok {
		return
	}
	var req catalogapp.SetStockRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.products.SetStock(c.Request.Context(), id, variantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// ImageUploadURL handles POST /admin/products/:id/images/upload-url
func (h *ProductHandler) ImageUploadURL(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.ImageUploadRequest
	if !bindJSON(c, &req) {
		return
	}
	upload, err := h.products.CreateImageUploadURL(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, upload)
}

// AttachImage handles POST /admin/products/:id/images
func (h *ProductHandler) AttachImage(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.AttachImageRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.products.AttachImage(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// RemoveImage handles DELETE /admin/products/:id/images
func (h *ProductHandler) RemoveImage(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.RemoveImageRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.products.RemoveImage(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Import handles POST /admin/products/import. The CSV is sent either as the
// "file" field of a multipart form or as a raw text/csv body.
func (h *ProductHandler) Import(c *gin.Context) {
	var req catalogapp.ImportRequest
	if !bindQuery(c, &req) {
		return
	}

	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	var src io.Reader
	switch mediaType {
	case "multipart/form-data":
		header, err := c.FormFile("file")
		if err != nil {
			h.BadRequest(c, "multipart field \"file\" is required")
			return
		}
		file, err := header.Open()
		if err != nil {
			h.BadRequest(c, "uploaded file could not be read")
			return
		}
		defer file.Close()
		src = file
	case "text/csv", "text/plain", "application/csv":
		src = c.Request.Body
	default:
		h.BadRequest(c, "send the CSV as multipart/form-data or text/csv")
		return
	}

	result, err := h.products.ImportProducts(c.Request.Context(), src, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if req.DryRun || len(result.Products) == 0 {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}
