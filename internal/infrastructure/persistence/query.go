package persistence

import (
	"errors"
	"slices"
	"strings"

	"github.com/fruitstand/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// sortColumns whitelists the columns a listing may be ordered by. Anything
// else, including expressions, falls back to the repository's default.
type sortColumns []string

func (s sortColumns) clause(field, dir, fallback string) string {
	column := fallback
	if f := strings.TrimSpace(field); f != "" && slices.Contains(s, f) {
		column = f
	}
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return column + " ASC"
	}
	return column + " DESC"
}

var (
	productSort    = sortColumns{"created_at", "updated_at", "name", "slug", "category", "price", "status"}
	orderSort      = sortColumns{"created_at", "number", "email", "total", "payment_status", "fulfillment_status", "placed_at", "paid_at", "shipped_at"}
	ticketSort     = sortColumns{"created_at", "updated_at", "number", "subject", "status", "priority", "category", "last_message_at"}
	userSort       = sortColumns{"created_at", "email", "first_name", "last_name", "role", "status", "last_login_at"}
	couponSort     = sortColumns{"created_at", "code", "ends_at", "redemptions", "active"}
	subscriberSort = sortColumns{"created_at", "email", "status", "source", "subscribed_at", "unsubscribed_at"}
)

// paginate applies whitelisted ordering plus offset/limit from the filter
func paginate(query *gorm.DB, filter shared.Filter, sortable sortColumns, fallback string) *gorm.DB {
	query = query.Order(sortable.clause(filter.OrderBy, filter.OrderDir, fallback))
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

// likePattern builds a case-insensitive contains pattern for LOWER(col) LIKE ?
func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}

// translateError maps driver and gorm errors onto domain errors
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	}
	return err
}

// filterString reads a string filter value, accepting named string types
func filterString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, s != ""
	case interface{ String() string }:
		str := s.String()
		return str, str != ""
	}
	return "", false
}
