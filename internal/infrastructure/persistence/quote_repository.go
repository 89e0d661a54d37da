package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/salesflow/backend/internal/domain/document"
	"github.com/salesflow/backend/internal/domain/order"
	"github.com/salesflow/backend/internal/domain/quote"
	"github.com/salesflow/backend/internal/domain/shared"
)

// GormQuoteRepository implements quote.Repository using GORM
type GormQuoteRepository struct {
	db *gorm.DB
}

// NewGormQuoteRepository creates a new GormQuoteRepository
func NewGormQuoteRepository(db *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: db}
}

// FindByID finds a quote by its ID with lines loaded
func (r *GormQuoteRepository) FindByID(ctx context.Context, id uuid.UUID, visibility shared.Visibility) (*quote.Quote, error) {
	var q quote.Quote
	query := scopeVisibility(r.db.WithContext(ctx).Preload("Lines"), visibility)
	if err := query.First(&q, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

// FindByNumber finds a quote by its quote number
func (r *GormQuoteRepository) FindByNumber(ctx context.Context, quoteNumber string, visibility shared.Visibility) (*quote.Quote, error) {
	var q quote.Quote
	query := scopeVisibility(r.db.WithContext(ctx).Preload("Lines"), visibility)
	if err := query.Where("quote_number = ?", quoteNumber).First(&q).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

// FindAll lists quotes matching the filter
func (r *GormQuoteRepository) FindAll(ctx context.Context, filter shared.Filter) (shared.Paginated[quote.Quote], error) {
	return r.findPage(ctx, filter, nil)
}

// FindByClient lists quotes for a client
func (r *GormQuoteRepository) FindByClient(ctx context.Context, clientID uuid.UUID, filter shared.Filter) (shared.Paginated[quote.Quote], error) {
	return r.findPage(ctx, filter, func(query *gorm.DB) *gorm.DB {
		return query.Where("client_id = ?", clientID)
	})
}

// FindByStatus lists quotes in a given status
func (r *GormQuoteRepository) FindByStatus(ctx context.Context, status quote.Status, filter shared.Filter) (shared.Paginated[quote.Quote], error) {
	return r.findPage(ctx, filter, func(query *gorm.DB) *gorm.DB {
		return query.Where("status = ?", status)
	})
}

// FindRevisions lists the revisions created from a quote, oldest first
func (r *GormQuoteRepository) FindRevisions(ctx context.Context, parentQuoteID uuid.UUID) ([]quote.Quote, error) {
	var quotes []quote.Quote
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("parent_quote_id = ? AND is_deleted = ?", parentQuoteID, false).
		Order("revision ASC").
		Find(&quotes).Error; err != nil {
		return nil, err
	}
	return quotes, nil
}

// FindExpiring lists open quotes whose validity window ends before the
// given time. Terminal statuses are excluded; they can no longer expire.
func (r *GormQuoteRepository) FindExpiring(ctx context.Context, until time.Time, filter shared.Filter) (shared.Paginated[quote.Quote], error) {
	openStatuses := []quote.Status{
		quote.StatusDraft, quote.StatusPending, quote.StatusSent,
		quote.StatusViewed, quote.StatusNegotiation, quote.StatusAccepted,
	}
	return r.findPage(ctx, filter, func(query *gorm.DB) *gorm.DB {
		return query.Where("valid_until < ? AND status IN ?", until, openStatuses)
	})
}

// Save inserts a new quote with its lines and pending change log
// entries in one transaction
func (r *GormQuoteRepository) Save(ctx context.Context, q *quote.Quote) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(q).Error; err != nil {
			return err
		}
		for i := range q.Lines {
			q.Lines[i].DocumentID = q.ID
			if err := tx.Create(&q.Lines[i]).Error; err != nil {
				return err
			}
		}
		return insertChanges(tx, q.PendingChanges())
	})
	if err != nil {
		if isDuplicateKey(err) {
			return shared.ErrDuplicateNumber
		}
		return err
	}
	q.ClearPendingChanges()
	return nil
}

// SaveWithLock updates the quote under optimistic locking. The version
// check and increment happen in a single statement; zero affected rows
// means another writer got there first.
func (r *GormQuoteRepository) SaveWithLock(ctx context.Context, q *quote.Quote) error {
	currentVersion := q.GetVersion()
	q.UpdatedAt = time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&quote.Quote{}).
			Where("id = ? AND version = ?", q.ID, currentVersion).
			Updates(quoteUpdateColumns(q, currentVersion+1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if err := r.syncLines(tx, q); err != nil {
			return err
		}
		return insertChanges(tx, q.PendingChanges())
	})
	if err != nil {
		return err
	}

	q.IncrementVersion()
	q.ClearPendingChanges()
	return nil
}

// SaveRevision inserts a revision and the original's change log entries
// in one transaction. The original's row is not touched.
func (r *GormQuoteRepository) SaveRevision(ctx context.Context, original, revision *quote.Quote) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(revision).Error; err != nil {
			return err
		}
		for i := range revision.Lines {
			revision.Lines[i].DocumentID = revision.ID
			if err := tx.Create(&revision.Lines[i]).Error; err != nil {
				return err
			}
		}
		if err := insertChanges(tx, revision.PendingChanges()); err != nil {
			return err
		}
		return insertChanges(tx, original.PendingChanges())
	})
	if err != nil {
		if isDuplicateKey(err) {
			return shared.ErrDuplicateNumber
		}
		return err
	}
	original.ClearPendingChanges()
	revision.ClearPendingChanges()
	return nil
}

// SaveConversion persists the converted quote and inserts the new order
// in one transaction. The quote update runs under the version check, so
// a concurrent conversion loses cleanly and no order row is written.
func (r *GormQuoteRepository) SaveConversion(ctx context.Context, q *quote.Quote, o *order.Order) error {
	currentVersion := q.GetVersion()
	q.UpdatedAt = time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&quote.Quote{}).
			Where("id = ? AND version = ?", q.ID, currentVersion).
			Updates(quoteUpdateColumns(q, currentVersion+1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if err := tx.Omit(clause.Associations).Create(o).Error; err != nil {
			return err
		}
		for i := range o.Lines {
			o.Lines[i].DocumentID = o.ID
			if err := tx.Create(&o.Lines[i]).Error; err != nil {
				return err
			}
		}
		if err := insertChanges(tx, q.PendingChanges()); err != nil {
			return err
		}
		return insertChanges(tx, o.PendingChanges())
	})
	if err != nil {
		if isDuplicateKey(err) {
			return shared.ErrDuplicateNumber
		}
		return err
	}

	q.IncrementVersion()
	q.ClearPendingChanges()
	o.ClearPendingChanges()
	return nil
}

// HardDelete removes the quote row, its lines and its change log
// permanently
func (r *GormQuoteRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&quote.Line{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ? AND document_type = ?", id, document.TypeQuote).
			Delete(&document.ChangeEntry{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&quote.Quote{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// CountByStatus counts active quotes in a given status
func (r *GormQuoteRepository) CountByStatus(ctx context.Context, status quote.Status) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&quote.Quote{}).
		Where("status = ? AND is_deleted = ?", status, false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByNumberPrefix counts quotes whose number starts with the given
// prefix. Soft-deleted rows count too; their numbers stay taken.
func (r *GormQuoteRepository) CountByNumberPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&quote.Quote{}).
		Where("quote_number LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByNumber checks if a quote number is already taken
func (r *GormQuoteRepository) ExistsByNumber(ctx context.Context, quoteNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&quote.Quote{}).
		Where("quote_number = ?", quoteNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// findPage runs a paginated listing. Count and find run as separate
// queries over the same conditions; lines are preloaded because the
// list items derive their totals from them.
func (r *GormQuoteRepository) findPage(ctx context.Context, filter shared.Filter, scope func(*gorm.DB) *gorm.DB) (shared.Paginated[quote.Quote], error) {
	base := func() *gorm.DB {
		query := scopeVisibility(r.db.WithContext(ctx).Model(&quote.Quote{}), filter.Visibility)
		query = r.applyConditions(query, filter)
		if scope != nil {
			query = scope(query)
		}
		return query
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return shared.Paginated[quote.Quote]{}, err
	}

	orderBy := ValidateSortField(filter.OrderBy, QuoteSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var quotes []quote.Quote
	query := paginate(base().Preload("Lines"), filter).Order(orderBy + " " + orderDir)
	if err := query.Find(&quotes).Error; err != nil {
		return shared.Paginated[quote.Quote]{}, err
	}

	page, pageSize := pageOf(filter)
	return shared.NewPaginated(quotes, total, page, pageSize), nil
}

// applyConditions applies search and field filters to the query
func (r *GormQuoteRepository) applyConditions(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("quote_number ILIKE ? OR reference ILIKE ?",
			searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "client_id":
			query = query.Where("client_id = ?", value)
		case "contact_id":
			query = query.Where("contact_id = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "statuses":
			if statuses, ok := value.([]string); ok && len(statuses) > 0 {
				query = query.Where("status IN ?", statuses)
			}
		case "priority":
			query = query.Where("priority = ?", value)
		case "parent_quote_id":
			query = query.Where("parent_quote_id = ?", value)
		case "start_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at >= ?", t)
			}
		case "end_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at <= ?", t)
			}
		case "valid_until_before":
			if t, ok := value.(time.Time); ok {
				query = query.Where("valid_until <= ?", t)
			}
		}
	}

	return query
}

// syncLines reconciles the stored lines with the aggregate's lines:
// removed lines are deleted, the rest upserted, all inside tx.
func (r *GormQuoteRepository) syncLines(tx *gorm.DB, q *quote.Quote) error {
	lineIDs := make([]uuid.UUID, len(q.Lines))
	for i, line := range q.Lines {
		lineIDs[i] = line.ID
	}

	if len(lineIDs) > 0 {
		if err := tx.Where("document_id = ? AND id NOT IN ?", q.ID, lineIDs).
			Delete(&quote.Line{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("document_id = ?", q.ID).
			Delete(&quote.Line{}).Error; err != nil {
			return err
		}
	}

	for i := range q.Lines {
		q.Lines[i].DocumentID = q.ID
		if err := tx.Save(&q.Lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// quoteUpdateColumns is the compare-and-swap update set. Identity
// columns never change after insert: quote_number, revision,
// parent_quote_id, client_id, created_at and created_by are absent.
func quoteUpdateColumns(q *quote.Quote, newVersion int) map[string]interface{} {
	return map[string]interface{}{
		"reference":             q.Reference,
		"contact_id":            q.ContactID,
		"status":                q.Status,
		"priority":              q.Priority,
		"currency":              q.Currency,
		"exchange_rate":         q.ExchangeRate,
		"tax_rate":              q.TaxRate,
		"tax_inclusive":         q.TaxInclusive,
		"valid_from":            q.ValidFrom,
		"valid_until":           q.ValidUntil,
		"delivery_address_id":   q.DeliveryAddressID,
		"billing_address_id":    q.BillingAddressID,
		"delivery_date":         q.DeliveryDate,
		"payment_terms":         q.PaymentTerms,
		"delivery_terms":        q.DeliveryTerms,
		"internal_notes":        q.InternalNotes,
		"client_notes":          q.ClientNotes,
		"terms_conditions":      q.TermsConditions,
		"sent_at":               q.SentAt,
		"viewed_at":             q.ViewedAt,
		"responded_at":          q.RespondedAt,
		"accepted_at":           q.AcceptedAt,
		"expired_at":            q.ExpiredAt,
		"converted_to_order_id": q.ConvertedToOrderID,
		"updated_by":            q.UpdatedBy,
		"is_deleted":            q.IsDeleted,
		"deleted_at":            q.DeletedAt,
		"version":               newVersion,
		"updated_at":            q.UpdatedAt,
	}
}

// Ensure GormQuoteRepository implements quote.Repository
var _ quote.Repository = (*GormQuoteRepository)(nil)
