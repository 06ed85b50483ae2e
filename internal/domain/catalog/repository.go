package catalog

import (
	"context"

	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductRepository defines the interface for product persistence.
// Supported filter keys: "status", "category", "in_stock".
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindBySlug(ctx context.Context, slug string) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	ExistsBySKU(ctx context.Context, sku string) (bool, error)

	// Save creates or updates a product together with its variants
	Save(ctx context.Context, product *Product) error

	// AdjustStock atomically adds delta to a variant's stock. A change that
	// would make stock negative fails with shared.ErrInsufficientStock.
	AdjustStock(ctx context.Context, variantID uuid.UUID, delta int) error
}
