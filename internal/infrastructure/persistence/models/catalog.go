package models

import (
	"github.com/fruitstand/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ProductModel is the persistence model for the Product aggregate
type ProductModel struct {
	AggregateModel
	Slug           string                             `gorm:"type:varchar(120);not null;uniqueIndex"`
	Name           string                             `gorm:"type:varchar(200);not null"`
	Description    string                             `gorm:"type:text"`
	Category       string                             `gorm:"type:varchar(60);index"`
	Price          decimal.Decimal                    `gorm:"type:decimal(12,2);not null"`
	CompareAtPrice *decimal.Decimal                   `gorm:"type:decimal(12,2)"`
	Currency       string                             `gorm:"type:varchar(3);not null"`
	Images         datatypes.JSONSlice[catalog.Image] `gorm:"not null"`
	Status         catalog.ProductStatus              `gorm:"type:varchar(20);not null;index"`
	Variants       []VariantModel                     `gorm:"foreignKey:ProductID"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// VariantModel stores one size/color combination and its stock
type VariantModel struct {
	BaseModel
	ProductID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	SKU           string           `gorm:"column:sku;type:varchar(64);not null;uniqueIndex"`
	Size          string           `gorm:"type:varchar(40)"`
	Color         string           `gorm:"type:varchar(40)"`
	Stock         int              `gorm:"not null;default:0"`
	PriceOverride *decimal.Decimal `gorm:"type:decimal(12,2)"`
}

// TableName returns the table name for GORM
func (VariantModel) TableName() string {
	return "product_variants"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	p := &catalog.Product{
		BaseAggregateRoot: m.aggregate(),
		Slug:              m.Slug,
		Name:              m.Name,
		Description:       m.Description,
		Category:          m.Category,
		Price:             money(m.Price, m.Currency),
		CompareAtPrice:    optionalMoney(m.CompareAtPrice, m.Currency),
		Images:            append([]catalog.Image{}, m.Images...),
		Status:            m.Status,
		Variants:          make([]catalog.Variant, 0, len(m.Variants)),
	}
	for i := range m.Variants {
		v := m.Variants[i]
		p.Variants = append(p.Variants, catalog.Variant{
			BaseEntity:    v.BaseModel.entity(),
			ProductID:     v.ProductID,
			SKU:           v.SKU,
			Size:          v.Size,
			Color:         v.Color,
			Stock:         v.Stock,
			PriceOverride: optionalMoney(v.PriceOverride, m.Currency),
		})
	}
	return p
}

// FromDomain populates the persistence model from a domain Product
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.setAggregate(p.BaseAggregateRoot)
	m.Slug = p.Slug
	m.Name = p.Name
	m.Description = p.Description
	m.Category = p.Category
	m.Price = p.Price.Amount()
	m.CompareAtPrice = optionalAmount(p.CompareAtPrice)
	m.Currency = string(p.Price.Currency())
	m.Images = datatypes.JSONSlice[catalog.Image](append([]catalog.Image{}, p.Images...))
	m.Status = p.Status
	m.Variants = make([]VariantModel, 0, len(p.Variants))
	for _, v := range p.Variants {
		vm := VariantModel{
			ProductID:     p.ID,
			SKU:           v.SKU,
			Size:          v.Size,
			Color:         v.Color,
			Stock:         v.Stock,
			PriceOverride: optionalAmount(v.PriceOverride),
		}
		vm.setEntity(v.BaseEntity)
		m.Variants = append(m.Variants, vm)
	}
}

// ProductModelFromDomain creates a persistence model from a domain Product
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
