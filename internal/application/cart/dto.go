package cart

import (
	"time"

	"github.com/fruitstand/backend/internal/domain/cart"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// AddItemRequest adds a product variant to the cart
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	VariantID uuid.UUID `json:"variant_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1,max=99"`
}

// UpdateItemRequest sets a line quantity; zero removes the line
type UpdateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0,max=99"`
}

// ItemResponse represents a cart line in API responses
type ItemResponse struct {
	ID           uuid.UUID         `json:"id"`
	ProductID    uuid.UUID         `json:"product_id"`
	VariantID    uuid.UUID         `json:"variant_id"`
	ProductName  string            `json:"product_name"`
	VariantLabel string            `json:"variant_label"`
	SKU          string            `json:"sku"`
	ImageURL     string            `json:"image_url,omitempty"`
	UnitPrice    valueobject.Money `json:"unit_price"`
	Quantity     int               `json:"quantity"`
	LineTotal    valueobject.Money `json:"line_total"`
}

// CartResponse represents a cart in API responses. ID is nil until the
// first item is added.
type CartResponse struct {
	ID        *uuid.UUID        `json:"id"`
	Items     []ItemResponse    `json:"items"`
	ItemCount int               `json:"item_count"`
	Subtotal  valueobject.Money `json:"subtotal"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
}

// MergeResult reports how a guest cart was folded into a user cart
type MergeResult struct {
	Merged  bool `json:"merged"`
	Skipped int  `json:"skipped"`
}

func toCartResponse(c *cart.Cart, storage shared.ObjectStorageService) *CartResponse {
	items := make([]ItemResponse, len(c.Items))
	for i, it := range c.Items {
		items[i] = ItemResponse{
			ID:           it.ID,
			ProductID:    it.ProductID,
			VariantID:    it.VariantID,
			ProductName:  it.ProductName,
			VariantLabel: it.VariantLabel,
			SKU:          it.SKU,
			UnitPrice:    it.UnitPrice,
			Quantity:     it.Quantity,
			LineTotal:    it.LineTotal(),
		}
		if storage != nil && it.ImageKey != "" {
			items[i].ImageURL = storage.PublicURL(it.ImageKey)
		}
	}
	id := c.ID
	return &CartResponse{
		ID:        &id,
		Items:     items,
		ItemCount: c.ItemCount(),
		Subtotal:  c.Subtotal(),
		ExpiresAt: c.ExpiresAt,
	}
}

func emptyCartResponse(currency valueobject.Currency) *CartResponse {
	return &CartResponse{
		Items:    make([]ItemResponse, 0),
		Subtotal: valueobject.Zero(currency),
	}
}
