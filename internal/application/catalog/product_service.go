package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/fruitstand/backend/internal/domain/catalog"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxPageSize caps list page sizes
const MaxPageSize = 100

// ProductService handles product-related business operations
type ProductService struct {
	productRepo    catalog.ProductRepository
	storage        shared.ObjectStorageService
	eventPublisher shared.EventPublisher
	currency       valueobject.Currency
	images         ImageConfig
	imports        ImportConfig
	logger         *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(
	productRepo catalog.ProductRepository,
	storage shared.ObjectStorageService,
	currency valueobject.Currency,
	logger *zap.Logger,
) *ProductService {
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	return &ProductService{
		productRepo: productRepo,
		storage:     storage,
		currency:    currency,
		images:      DefaultImageConfig(),
		imports:     DefaultImportConfig(),
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for product events
func (s *ProductService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetImageConfig overrides upload limits
func (s *ProductService) SetImageConfig(cfg ImageConfig) {
	s.images = cfg
}

// List returns storefront products. Only active products are visible.
func (s *ProductService) List(ctx context.Context, q ListProductsQuery) (shared.Paginated[ProductListResponse], error) {
	q.Status = string(catalog.ProductStatusActive)
	return s.list(ctx, q)
}

// AdminList returns products in any status
func (s *ProductService) AdminList(ctx context.Context, q ListProductsQuery) (shared.Paginated[ProductListResponse], error) {
	if q.Status != "" && !catalog.ProductStatus(q.Status).IsValid() {
		return shared.Paginated[ProductListResponse]{}, shared.NewDomainError("INVALID_INPUT", "Unknown product status")
	}
	return s.list(ctx, q)
}

func (s *ProductService) list(ctx context.Context, q ListProductsQuery) (shared.Paginated[ProductListResponse], error) {
	filter := shared.Filter{
		Page:     q.Page,
		PageSize: q.PageSize,
		Search:   strings.TrimSpace(q.Search),
	}
	filter.OrderBy, filter.OrderDir = sortFor(q.Sort)
	filter.Normalize(MaxPageSize)
	if q.Status != "" {
		filter.Filters["status"] = q.Status
	}
	if q.Category != "" {
		filter.Filters["category"] = q.Category
	}
	if q.InStock != nil && *q.InStock {
		filter.Filters["in_stock"] = true
	}

	products, err := s.productRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[ProductListResponse]{}, err
	}
	total, err := s.productRepo.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[ProductListResponse]{}, err
	}

	items := make([]ProductListResponse, len(products))
	for i := range products {
		items[i] = s.toListResponse(&products[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

func sortFor(sort string) (string, string) {
	switch sort {
	case "price_asc":
		return "price", "asc"
	case "price_desc":
		return "price", "desc"
	case "name":
		return "name", "asc"
	default:
		return "created_at", "desc"
	}
}

// GetBySlug returns an active product for the storefront
func (s *ProductService) GetBySlug(ctx context.Context, slug string) (*ProductResponse, error) {
	product, err := s.productRepo.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, notFoundAsProduct(err)
	}
	if product.Status != catalog.ProductStatusActive {
		return nil, shared.NewNotFoundError("product")
	}
	return s.toResponse(product), nil
}

// GetByID returns a product in any status
func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(product), nil
}

// Create creates a new draft product. Without explicit variants a single
// default variant is added under the slug as SKU.
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	exists, err := s.productRepo.ExistsBySlug(ctx, req.Slug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Product with this slug already exists")
	}

	price, err := s.money(req.Price)
	if err != nil {
		return nil, err
	}
	product, err := catalog.NewProduct(req.Name, req.Slug, price)
	if err != nil {
		return nil, err
	}
	if err := product.Update(product.Name, req.Description, req.Category); err != nil {
		return nil, err
	}
	if req.CompareAtPrice != nil {
		compareAt, err := s.money(*req.CompareAtPrice)
		if err != nil {
			return nil, err
		}
		if err := product.SetPrice(price, &compareAt); err != nil {
			return nil, err
		}
	}

	variants := req.Variants
	if len(variants) == 0 {
		variants = []VariantRequest{{SKU: product.Slug, Stock: req.Stock}}
	}
	for _, v := range variants {
		if err := s.addVariant(ctx, product, v); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.publish(ctx, product)
	return s.toResponse(product), nil
}

// Update changes descriptive fields and prices
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	name, description, category := product.Name, product.Description, product.Category
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		description = *req.Description
	}
	if req.Category != nil {
		category = *req.Category
	}
	if err := product.Update(name, description, category); err != nil {
		return nil, err
	}

	if req.Price != nil || req.CompareAtPrice != nil || req.ClearCompareAt {
		price := product.Price
		if req.Price != nil {
			if price, err = s.money(*req.Price); err != nil {
				return nil, err
			}
		}
		compareAt := product.CompareAtPrice
		if req.ClearCompareAt {
			compareAt = nil
		}
		if req.CompareAtPrice != nil {
			m, err := s.money(*req.CompareAtPrice)
			if err != nil {
				return nil, err
			}
			compareAt = &m
		}
		if err := product.SetPrice(price, compareAt); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.publish(ctx, product)
	return s.toResponse(product), nil
}

// Publish makes a product visible in the storefront
func (s *ProductService) Publish(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, id, func(p *catalog.Product) error { return p.Publish() })
}

// Archive hides a product
func (s *ProductService) Archive(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, id, func(p *catalog.Product) error { return p.Archive() })
}

// AddVariant adds a size/color variant
func (s *ProductService) AddVariant(ctx context.Context, id uuid.UUID, req VariantRequest) (*ProductResponse, error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.addVariant(ctx, product, req); err != nil {
		return nil, err
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	return s.toResponse(product), nil
}

// SetStock sets the on-hand quantity of a variant
func (s *ProductService) SetStock(ctx context.Context, id, variantID uuid.UUID, req SetStockRequest) (*ProductResponse, error) {
	if req.Stock == nil {
		return nil, shared.NewMissingFieldError("stock")
	}
	return s.mutate(ctx, id, func(p *catalog.Product) error { return p.SetStock(variantID, *req.Stock) })
}

func (s *ProductService) addVariant(ctx context.Context, product *catalog.Product, req VariantRequest) error {
	exists, err := s.productRepo.ExistsBySKU(ctx, req.SKU)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError("ALREADY_EXISTS", "Variant with this SKU already exists")
	}
	var override *valueobject.Money
	if req.PriceOverride != nil {
		m, err := s.money(*req.PriceOverride)
		if err != nil {
			return err
		}
		override = &m
	}
	_, err = product.AddVariant(req.SKU, req.Size, req.Color, req.Stock, override)
	return err
}

func (s *ProductService) mutate(ctx context.Context, id uuid.UUID, fn func(*catalog.Product) error) (*ProductResponse, error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(product); err != nil {
		return nil, err
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.publish(ctx, product)
	return s.toResponse(product), nil
}

func (s *ProductService) find(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAsProduct(err)
	}
	return product, nil
}

func (s *ProductService) money(amount decimal.Decimal) (valueobject.Money, error) {
	if amount.IsNegative() {
		return valueobject.Money{}, shared.NewDomainError("INVALID_INPUT", "Price cannot be negative")
	}
	return valueobject.NewMoney(amount.Round(2), s.currency)
}

// publish forwards pending product events; failures are logged only
func (s *ProductService) publish(ctx context.Context, product *catalog.Product) {
	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, product.GetDomainEvents()...); err != nil {
			s.logger.Warn("Failed to publish product events",
				zap.String("product_id", product.ID.String()),
				zap.Error(err))
		}
	}
	product.ClearDomainEvents()
}

func (s *ProductService) toResponse(p *catalog.Product) *ProductResponse {
	images := make([]ImageResponse, len(p.Images))
	for i, img := range p.Images {
		images[i] = ImageResponse{Key: img.Key, Alt: img.Alt, URL: s.storage.PublicURL(img.Key)}
	}
	variants := make([]VariantResponse, len(p.Variants))
	for i, v := range p.Variants {
		variants[i] = toVariantResponse(p, v)
	}
	return &ProductResponse{
		ID:             p.ID,
		Slug:           p.Slug,
		Name:           p.Name,
		Description:    p.Description,
		Category:       p.Category,
		Price:          p.Price,
		CompareAtPrice: p.CompareAtPrice,
		Images:         images,
		Status:         string(p.Status),
		InStock:        p.InStock(),
		Variants:       variants,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		Version:        p.Version,
	}
}

func (s *ProductService) toListResponse(p *catalog.Product) ProductListResponse {
	resp := ProductListResponse{
		ID:             p.ID,
		Slug:           p.Slug,
		Name:           p.Name,
		Category:       p.Category,
		Price:          p.Price,
		CompareAtPrice: p.CompareAtPrice,
		Status:         string(p.Status),
		InStock:        p.InStock(),
	}
	if key := p.PrimaryImage(); key != "" {
		resp.ImageURL = s.storage.PublicURL(key)
	}
	return resp
}

func notFoundAsProduct(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewNotFoundError("product")
	}
	return err
}
