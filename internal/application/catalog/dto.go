package catalog

import (
	"time"

	"github.com/fruitstand/backend/internal/domain/catalog"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	Name           string           `json:"name" binding:"required,min=1,max=200"`
	Slug           string           `json:"slug" binding:"required,min=1,max=120"`
	Description    string           `json:"description" binding:"max=5000"`
	Category       string           `json:"category" binding:"max=60"`
	Price          decimal.Decimal  `json:"price" binding:"required"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price"`
	Variants       []VariantRequest `json:"variants" binding:"omitempty,dive"`
	// Stock seeds the default variant when no variants are given
	Stock int `json:"stock" binding:"min=0"`
}

// UpdateProductRequest represents a request to update a product
type UpdateProductRequest struct {
	Name           *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Description    *string          `json:"description" binding:"omitempty,max=5000"`
	Category       *string          `json:"category" binding:"omitempty,max=60"`
	Price          *decimal.Decimal `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price"`
	ClearCompareAt bool             `json:"clear_compare_at"`
}

// VariantRequest adds a size/color variant
type VariantRequest struct {
	SKU           string           `json:"sku" binding:"required,min=1,max=64"`
	Size          string           `json:"size" binding:"max=40"`
	Color         string           `json:"color" binding:"max=40"`
	Stock         int              `json:"stock" binding:"min=0"`
	PriceOverride *decimal.Decimal `json:"price_override"`
}

// SetStockRequest sets the on-hand quantity of a variant
type SetStockRequest struct {
	Stock *int `json:"stock" binding:"required,min=0"`
}

// ImageUploadRequest asks for a presigned upload URL
type ImageUploadRequest struct {
	FileName    string `json:"file_name" binding:"required,min=1,max=255"`
	ContentType string `json:"content_type" binding:"required"`
	Size        int64  `json:"size" binding:"required,min=1"`
}

// ImageUploadResponse carries the presigned PUT URL for the browser
type ImageUploadResponse struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"upload_url"`
	PublicURL string    `json:"public_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AttachImageRequest attaches an uploaded object to the gallery
type AttachImageRequest struct {
	Key string `json:"key" binding:"required"`
	Alt string `json:"alt" binding:"max=200"`
}

// RemoveImageRequest detaches an image from the gallery
type RemoveImageRequest struct {
	Key string `json:"key" binding:"required"`
}

// ListProductsQuery holds storefront list parameters
type ListProductsQuery struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	InStock  *bool  `form:"in_stock"`
	Status   string `form:"status"`
	Sort     string `form:"sort"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ImageResponse is a gallery image with its public URL
type ImageResponse struct {
	Key string `json:"key"`
	Alt string `json:"alt,omitempty"`
	URL string `json:"url"`
}

// VariantResponse represents a variant in API responses
type VariantResponse struct {
	ID    uuid.UUID         `json:"id"`
	SKU   string            `json:"sku"`
	Size  string            `json:"size,omitempty"`
	Color string            `json:"color,omitempty"`
	Label string            `json:"label"`
	Stock int               `json:"stock"`
	Price valueobject.Money `json:"price"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID             uuid.UUID          `json:"id"`
	Slug           string             `json:"slug"`
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	Category       string             `json:"category"`
	Price          valueobject.Money  `json:"price"`
	CompareAtPrice *valueobject.Money `json:"compare_at_price,omitempty"`
	Images         []ImageResponse    `json:"images"`
	Status         string             `json:"status"`
	InStock        bool               `json:"in_stock"`
	Variants       []VariantResponse  `json:"variants"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	Version        int                `json:"version"`
}

// ProductListResponse represents a list item for products
type ProductListResponse struct {
	ID             uuid.UUID          `json:"id"`
	Slug           string             `json:"slug"`
	Name           string             `json:"name"`
	Category       string             `json:"category"`
	Price          valueobject.Money  `json:"price"`
	CompareAtPrice *valueobject.Money `json:"compare_at_price,omitempty"`
	ImageURL       string             `json:"image_url,omitempty"`
	Status         string             `json:"status"`
	InStock        bool               `json:"in_stock"`
}

func toVariantResponse(p *catalog.Product, v catalog.Variant) VariantResponse {
	price := p.Price
	if v.PriceOverride != nil {
		price = *v.PriceOverride
	}
	return VariantResponse{
		ID:    v.ID,
		SKU:   v.SKU,
		Size:  v.Size,
		Color: v.Color,
		Label: v.Label(),
		Stock: v.Stock,
		Price: price,
	}
}
