package models

import (
	"time"

	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BaseModel holds the columns every table has
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (m *BaseModel) entity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (m *BaseModel) setEntity(e shared.BaseEntity) {
	m.ID, m.CreatedAt, m.UpdatedAt = e.ID, e.CreatedAt, e.UpdatedAt
}

// AggregateModel adds the aggregate version, bumped on every change
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

func (m *AggregateModel) setAggregate(a shared.BaseAggregateRoot) {
	m.setEntity(a.BaseEntity)
	m.Version = a.Version
}

// aggregate rebuilds the root without pending events, remembering the
// stored version for the next save
func (m *AggregateModel) aggregate() shared.BaseAggregateRoot {
	return shared.RestoreAggregateRoot(m.entity(), m.Version)
}

// money rebuilds a Money from an amount column and its currency column
func money(amount decimal.Decimal, currency string) valueobject.Money {
	if currency == "" {
		currency = string(valueobject.DefaultCurrency)
	}
	m, _ := valueobject.NewMoney(amount, valueobject.Currency(currency))
	return m
}

func optionalMoney(amount *decimal.Decimal, currency string) *valueobject.Money {
	if amount == nil {
		return nil
	}
	m := money(*amount, currency)
	return &m
}

func optionalAmount(m *valueobject.Money) *decimal.Decimal {
	if m == nil {
		return nil
	}
	d := m.Amount()
	return &d
}
