package persistence

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/salesflow/backend/internal/domain/document"
	"github.com/salesflow/backend/internal/domain/shared"
)

// scopeVisibility applies the soft-delete scope to a query. The default
// scope hides deleted rows; callers opt in to see them.
func scopeVisibility(query *gorm.DB, visibility shared.Visibility) *gorm.DB {
	switch visibility {
	case shared.VisibilityAll:
		return query
	case shared.VisibilityDeleted:
		return query.Where("is_deleted = ?", true)
	default:
		return query.Where("is_deleted = ?", false)
	}
}

// isDuplicateKey reports whether err is a unique-constraint violation.
// GORM only translates these when TranslateError is enabled, so the
// driver messages are matched as well (Postgres in production, SQLite
// in tests).
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	if strings.Contains(msg, "duplicate key value violates unique constraint") {
		return true
	}
	return strings.Contains(msg, "UNIQUE constraint failed")
}

// paginate applies page-based offset and limit from a filter.
func paginate(query *gorm.DB, filter shared.Filter) *gorm.DB {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}

// pageOf normalizes filter paging values for building a Paginated result.
func pageOf(filter shared.Filter) (page, pageSize int) {
	page = filter.Page
	if page < 1 {
		page = 1
	}
	pageSize = filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	return page, pageSize
}

// insertChanges writes accumulated change log entries inside the
// caller's transaction. Entries already carry their IDs and timestamps.
func insertChanges(tx *gorm.DB, entries []document.ChangeEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return tx.Create(&entries).Error
}
