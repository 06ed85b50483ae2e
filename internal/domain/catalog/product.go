package catalog

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ProductStatus represents the lifecycle status of a product
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusArchived ProductStatus = "archived"
)

// IsValid checks if the status is a known value
func (s ProductStatus) IsValid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusActive, ProductStatusArchived:
		return true
	}
	return false
}

const (
	maxImagesPerProduct = 12
	maxNameLength       = 200
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Image is a product gallery entry stored in object storage
type Image struct {
	Key string `json:"key"`
	Alt string `json:"alt,omitempty"`
}

// Variant is a purchasable size/color combination with its own stock
type Variant struct {
	shared.BaseEntity
	ProductID     uuid.UUID
	SKU           string
	Size          string
	Color         string
	Stock         int
	PriceOverride *valueobject.Money
}

// Label returns a human-readable variant description such as "M / Red"
func (v Variant) Label() string {
	parts := make([]string, 0, 2)
	if v.Size != "" {
		parts = append(parts, v.Size)
	}
	if v.Color != "" {
		parts = append(parts, v.Color)
	}
	if len(parts) == 0 {
		return "Default"
	}
	return strings.Join(parts, " / ")
}

// Product is the catalog aggregate root
type Product struct {
	shared.BaseAggregateRoot
	Slug           string
	Name           string
	Description    string
	Category       string
	Price          valueobject.Money
	CompareAtPrice *valueobject.Money
	Images         []Image
	Status         ProductStatus
	Variants       []Variant

	// variants whose stock was set through this aggregate since it was
	// last saved; every other stock column belongs to AdjustStock
	stockChanged map[uuid.UUID]bool
}

// NewProduct creates a draft product
func NewProduct(name, slug string, price valueobject.Money) (*Product, error) {
	name = strings.TrimSpace(name)
	slug = strings.ToLower(strings.TrimSpace(slug))
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateSlug(slug); err != nil {
		return nil, err
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Price cannot be negative")
	}

	p := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Slug:              slug,
		Name:              name,
		Price:             price,
		Images:            make([]Image, 0),
		Status:            ProductStatusDraft,
		Variants:          make([]Variant, 0),
	}
	p.AddDomainEvent(NewProductCreatedEvent(p))
	return p, nil
}

// Update changes descriptive fields
func (p *Product) Update(name, description, category string) error {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}
	p.Name = name
	p.Description = strings.TrimSpace(description)
	p.Category = strings.ToLower(strings.TrimSpace(category))
	p.touch()
	return nil
}

// SetPrice sets the selling price and the optional compare-at price
func (p *Product) SetPrice(price valueobject.Money, compareAt *valueobject.Money) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "Price cannot be negative")
	}
	if compareAt != nil {
		lower, err := compareAt.LessThan(price)
		if err != nil {
			return shared.NewDomainError("INVALID_INPUT", err.Error())
		}
		if lower {
			return shared.NewDomainError("INVALID_INPUT", "Compare-at price cannot be lower than price")
		}
	}
	for _, v := range p.Variants {
		if v.PriceOverride != nil && v.PriceOverride.Currency() != price.Currency() {
			return shared.NewDomainError("INVALID_INPUT", "Price currency does not match variant prices")
		}
	}
	old := p.Price
	p.Price = price
	p.CompareAtPrice = compareAt
	p.touch()
	if !old.Equals(price) {
		p.AddDomainEvent(NewProductPriceChangedEvent(p, old))
	}
	return nil
}

// AddVariant adds a size/color variant. SKUs are unique within the product.
func (p *Product) AddVariant(sku, size, color string, stock int, priceOverride *valueobject.Money) (*Variant, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return nil, shared.NewMissingFieldError("sku")
	}
	if stock < 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Stock cannot be negative")
	}
	if priceOverride != nil {
		if priceOverride.IsNegative() {
			return nil, shared.NewDomainError("INVALID_INPUT", "Variant price cannot be negative")
		}
		if priceOverride.Currency() != p.Price.Currency() {
			return nil, shared.NewDomainError("INVALID_INPUT", "Variant price currency does not match product")
		}
	}
	size = strings.TrimSpace(size)
	color = strings.TrimSpace(color)
	for _, v := range p.Variants {
		if v.SKU == sku {
			return nil, shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Variant with SKU %s already exists", sku))
		}
		if strings.EqualFold(v.Size, size) && strings.EqualFold(v.Color, color) {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Variant with this size and color already exists")
		}
	}

	v := Variant{
		BaseEntity:    shared.NewBaseEntity(),
		ProductID:     p.ID,
		SKU:           sku,
		Size:          size,
		Color:         color,
		Stock:         stock,
		PriceOverride: priceOverride,
	}
	p.Variants = append(p.Variants, v)
	p.touch()
	return &p.Variants[len(p.Variants)-1], nil
}

// Variant returns the variant with the given id
func (p *Product) Variant(variantID uuid.UUID) (*Variant, error) {
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			return &p.Variants[i], nil
		}
	}
	return nil, shared.NewNotFoundError("variant")
}

// PriceFor returns the effective unit price of a variant
func (p *Product) PriceFor(variantID uuid.UUID) (valueobject.Money, error) {
	v, err := p.Variant(variantID)
	if err != nil {
		return valueobject.Money{}, err
	}
	if v.PriceOverride != nil {
		return *v.PriceOverride, nil
	}
	return p.Price, nil
}

// SetStock sets the on-hand quantity of a variant
func (p *Product) SetStock(variantID uuid.UUID, stock int) error {
	if stock < 0 {
		return shared.NewDomainError("INVALID_INPUT", "Stock cannot be negative")
	}
	v, err := p.Variant(variantID)
	if err != nil {
		return err
	}
	old := v.Stock
	v.Stock = stock
	v.UpdatedAt = time.Now()
	p.markStock(v.ID)
	p.touch()
	p.AddDomainEvent(NewProductStockChangedEvent(p, v, old))
	return nil
}

// EnsureAvailable checks that qty units of the variant can be sold
func (p *Product) EnsureAvailable(variantID uuid.UUID, qty int) error {
	if !p.IsPurchasable() {
		return shared.NewDomainError("INVALID_STATE", "Product is not available for purchase")
	}
	v, err := p.Variant(variantID)
	if err != nil {
		return err
	}
	if qty > v.Stock {
		return &shared.DomainError{
			Code:    shared.ErrInsufficientStock.Code,
			Message: fmt.Sprintf("Only %d left in stock for %s (%s)", v.Stock, p.Name, v.Label()),
		}
	}
	return nil
}

// Reserve removes qty units from a variant's stock
func (p *Product) Reserve(variantID uuid.UUID, qty int) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "Quantity must be positive")
	}
	v, err := p.Variant(variantID)
	if err != nil {
		return err
	}
	if v.Stock < qty {
		return shared.ErrInsufficientStock
	}
	v.Stock -= qty
	p.markStock(v.ID)
	p.touch()
	return nil
}

// Release returns qty units to a variant's stock
func (p *Product) Release(variantID uuid.UUID, qty int) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "Quantity must be positive")
	}
	v, err := p.Variant(variantID)
	if err != nil {
		return err
	}
	v.Stock += qty
	p.markStock(v.ID)
	p.touch()
	return nil
}

// TotalStock sums stock across variants
func (p *Product) TotalStock() int {
	total := 0
	for _, v := range p.Variants {
		total += v.Stock
	}
	return total
}

// InStock reports whether any variant can be bought
func (p *Product) InStock() bool {
	return p.TotalStock() > 0
}

// IsPurchasable reports whether the product can be added to carts
func (p *Product) IsPurchasable() bool {
	return p.Status == ProductStatusActive
}

// Publish makes the product visible in the storefront
func (p *Product) Publish() error {
	if p.Status == ProductStatusActive {
		return nil
	}
	if p.Status == ProductStatusArchived {
		return shared.NewDomainError("INVALID_STATE", "Archived products cannot be published")
	}
	if len(p.Variants) == 0 {
		return shared.NewDomainError("INVALID_STATE", "Product needs at least one variant before publishing")
	}
	p.changeStatus(ProductStatusActive)
	return nil
}

// Archive hides the product permanently
func (p *Product) Archive() error {
	if p.Status == ProductStatusArchived {
		return shared.NewDomainError("INVALID_STATE", "Product is already archived")
	}
	p.changeStatus(ProductStatusArchived)
	return nil
}

// AddImage appends an image to the gallery
func (p *Product) AddImage(key, alt string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return shared.NewMissingFieldError("key")
	}
	if len(p.Images) >= maxImagesPerProduct {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("A product can have at most %d images", maxImagesPerProduct))
	}
	for _, img := range p.Images {
		if img.Key == key {
			return shared.NewDomainError("ALREADY_EXISTS", "Image already attached")
		}
	}
	p.Images = append(p.Images, Image{Key: key, Alt: strings.TrimSpace(alt)})
	p.touch()
	return nil
}

// RemoveImage removes an image from the gallery
func (p *Product) RemoveImage(key string) error {
	for i, img := range p.Images {
		if img.Key == key {
			p.Images = append(p.Images[:i], p.Images[i+1:]...)
			p.touch()
			return nil
		}
	}
	return shared.NewNotFoundError("image")
}

// ReorderImages rearranges the gallery to follow keys. keys must name every
// attached image exactly once.
func (p *Product) ReorderImages(keys []string) error {
	if len(keys) != len(p.Images) {
		return shared.NewDomainError("INVALID_INPUT", "Image order must list every image exactly once")
	}
	byKey := make(map[string]Image, len(p.Images))
	for _, img := range p.Images {
		byKey[img.Key] = img
	}
	ordered := make([]Image, 0, len(keys))
	for _, k := range keys {
		img, ok := byKey[k]
		if !ok {
			return shared.NewDomainError("INVALID_INPUT", "Image order must list every image exactly once")
		}
		delete(byKey, k)
		ordered = append(ordered, img)
	}
	p.Images = ordered
	p.touch()
	return nil
}

// PrimaryImage returns the first gallery image key, or "" when there is none
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].Key
}

func (p *Product) changeStatus(status ProductStatus) {
	old := p.Status
	p.Status = status
	p.touch()
	p.AddDomainEvent(NewProductStatusChangedEvent(p, old, status))
}

// StockChanged reports whether the variant's stock was set on this copy
// since it was loaded or last saved
func (p *Product) StockChanged(variantID uuid.UUID) bool {
	return p.stockChanged[variantID]
}

// MarkPersisted records a successful save, stock included
func (p *Product) MarkPersisted() {
	p.BaseAggregateRoot.MarkPersisted()
	p.stockChanged = nil
}

func (p *Product) markStock(variantID uuid.UUID) {
	if p.stockChanged == nil {
		p.stockChanged = make(map[uuid.UUID]bool)
	}
	p.stockChanged[variantID] = true
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

func validateName(name string) error {
	if name == "" {
		return shared.NewMissingFieldError("name")
	}
	if len(name) > maxNameLength {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Name cannot exceed %d characters", maxNameLength))
	}
	return nil
}

func validateSlug(slug string) error {
	if slug == "" {
		return shared.NewMissingFieldError("slug")
	}
	if len(slug) > 120 || !slugPattern.MatchString(slug) {
		return shared.NewDomainError("INVALID_INPUT", "Slug may only contain lowercase letters, digits and single hyphens")
	}
	return nil
}
