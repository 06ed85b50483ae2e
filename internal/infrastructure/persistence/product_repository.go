package persistence

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/fruitstand/backend/internal/domain/catalog"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) withVariants(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Variants", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	})
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.withVariants(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindBySlug finds a product by its storefront slug
func (r *GormProductRepository) FindBySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.withVariants(ctx).
		Where("slug = ?", strings.ToLower(strings.TrimSpace(slug))).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByIDs loads several products at once; missing ids are skipped
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var rows []models.ProductModel
	if err := r.withVariants(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return productsToDomain(rows), nil
}

// FindAll finds products matching the filter
func (r *GormProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	var rows []models.ProductModel
	query := r.applyFilter(r.withVariants(ctx).Model(&models.ProductModel{}), filter)
	query = paginate(query, filter, productSort, "created_at")
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return productsToDomain(rows), nil
}

// Count counts products matching the filter
func (r *GormProductRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ProductModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsBySlug checks if a product with the given slug exists
func (r *GormProductRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("slug = ?", strings.ToLower(strings.TrimSpace(slug))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsBySKU checks if any variant uses the given SKU
func (r *GormProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.VariantModel{}).
		Where("sku = ?", strings.ToUpper(strings.TrimSpace(sku))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save writes the product at the version it was loaded at and replaces its
// variant set. Existing variants keep their stored stock unless it was set
// on this copy.
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	model := models.ProductModelFromDomain(product)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveRoot(tx, model, &product.BaseAggregateRoot); err != nil {
			return err
		}

		var stored []uuid.UUID
		if err := tx.Model(&models.VariantModel{}).Where("product_id = ?", model.ID).Pluck("id", &stored).Error; err != nil {
			return err
		}
		variantIDs := make([]uuid.UUID, len(model.Variants))
		for i, v := range model.Variants {
			variantIDs[i] = v.ID
		}
		stale := tx.Where("product_id = ?", model.ID)
		if len(variantIDs) > 0 {
			stale = stale.Where("id NOT IN ?", variantIDs)
		}
		if err := stale.Delete(&models.VariantModel{}).Error; err != nil {
			return err
		}

		for i := range model.Variants {
			v := &model.Variants[i]
			if !slices.Contains(stored, v.ID) {
				if err := tx.Create(v).Error; err != nil {
					return err
				}
				continue
			}
			// stock moves through AdjustStock; only a stock the admin set
			// on this copy overwrites it
			omit := []string{"id", "created_at"}
			if !product.StockChanged(v.ID) {
				omit = append(omit, "stock")
			}
			if err := tx.Model(v).Select("*").Omit(omit...).Updates(v).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return translateError(err)
	}
	product.MarkPersisted()
	return nil
}

// AdjustStock atomically adds delta to a variant's stock
func (r *GormProductRepository) AdjustStock(ctx context.Context, variantID uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.VariantModel{}).
		Where("id = ? AND stock + ? >= 0", variantID, delta).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock + ?", delta),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.VariantModel{}).
		Where("id = ?", variantID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.NewNotFoundError("variant")
	}
	return shared.ErrInsufficientStock
}

func (r *GormProductRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	for key, value := range filter.Filters {
		switch key {
		case "status":
			if s, ok := filterString(value); ok {
				query = query.Where("status = ?", s)
			}
		case "category":
			if s, ok := filterString(value); ok {
				query = query.Where("category = ?", strings.ToLower(s))
			}
		case "in_stock":
			if b, ok := value.(bool); ok && b {
				query = query.Where("EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = products.id AND v.stock > 0)")
			}
		}
	}
	return query
}

func productsToDomain(rows []models.ProductModel) []catalog.Product {
	products := make([]catalog.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products
}
