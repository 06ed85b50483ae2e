package persistence

import (
	"github.com/fruitstand/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// saveRoot writes the root row of an aggregate without its associations.
// An aggregate that was never stored is inserted. A stored one is updated
// only while its row still carries the version it was loaded at; otherwise
// someone else saved in between and shared.ErrConcurrencyConflict is
// returned.
func saveRoot(tx *gorm.DB, model any, root *shared.BaseAggregateRoot) error {
	if root.StoredVersion() == 0 {
		return tx.Omit(clause.Associations).Create(model).Error
	}
	result := tx.Model(model).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Where("version = ?", root.StoredVersion()).
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}
