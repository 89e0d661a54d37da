package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/salesflow/backend/internal/domain/document"
)

// GormChangeLogRepository implements document.ChangeLogRepository using
// GORM. It only reads; entries are written by the document repositories
// inside the transaction that produced them.
type GormChangeLogRepository struct {
	db *gorm.DB
}

// NewGormChangeLogRepository creates a new GormChangeLogRepository
func NewGormChangeLogRepository(db *gorm.DB) *GormChangeLogRepository {
	return &GormChangeLogRepository{db: db}
}

// ListForDocument lists the change history of a document, oldest first.
// Ties on the timestamp keep a stable order via the entry ID.
func (r *GormChangeLogRepository) ListForDocument(ctx context.Context, documentType document.Type, documentID uuid.UUID) ([]document.ChangeEntry, error) {
	var entries []document.ChangeEntry
	if err := r.db.WithContext(ctx).
		Where("document_type = ? AND document_id = ?", documentType, documentID).
		Order("occurred_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Ensure GormChangeLogRepository implements document.ChangeLogRepository
var _ document.ChangeLogRepository = (*GormChangeLogRepository)(nil)
