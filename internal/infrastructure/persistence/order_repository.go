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
	"github.com/salesflow/backend/internal/domain/shared"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by its ID with lines and payments loaded
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID, visibility shared.Visibility) (*order.Order, error) {
	var o order.Order
	query := scopeVisibility(r.db.WithContext(ctx).Preload("Lines").Preload("Payments"), visibility)
	if err := query.First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByNumber finds an order by its order number
func (r *GormOrderRepository) FindByNumber(ctx context.Context, orderNumber string, visibility shared.Visibility) (*order.Order, error) {
	var o order.Order
	query := scopeVisibility(r.db.WithContext(ctx).Preload("Lines").Preload("Payments"), visibility)
	if err := query.Where("order_number = ?", orderNumber).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByQuote finds the order created from a quote
func (r *GormOrderRepository) FindByQuote(ctx context.Context, quoteID uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Payments").
		Where("quote_id = ? AND is_deleted = ?", quoteID, false).
		First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindAll lists orders matching the filter
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) (shared.Paginated[order.Order], error) {
	return r.findPage(ctx, filter, nil)
}

// FindByClient lists orders for a client
func (r *GormOrderRepository) FindByClient(ctx context.Context, clientID uuid.UUID, filter shared.Filter) (shared.Paginated[order.Order], error) {
	return r.findPage(ctx, filter, func(query *gorm.DB) *gorm.DB {
		return query.Where("client_id = ?", clientID)
	})
}

// FindByStatus lists orders in a given status
func (r *GormOrderRepository) FindByStatus(ctx context.Context, status order.Status, filter shared.Filter) (shared.Paginated[order.Order], error) {
	return r.findPage(ctx, filter, func(query *gorm.DB) *gorm.DB {
		return query.Where("status = ?", status)
	})
}

// FindOverdue lists unpaid orders whose payment due date passed before
// asOf. Drafts owe nothing yet and cancelled or refunded orders no
// longer owe, so both are excluded.
func (r *GormOrderRepository) FindOverdue(ctx context.Context, asOf time.Time, filter shared.Filter) (shared.Paginated[order.Order], error) {
	unpaid := []order.PaymentStatus{
		order.PaymentStatusPending, order.PaymentStatusPartiallyPaid, order.PaymentStatusOverdue,
	}
	excluded := []order.Status{
		order.StatusDraft, order.StatusCancelled, order.StatusRefunded,
	}
	return r.findPage(ctx, filter, func(query *gorm.DB) *gorm.DB {
		return query.Where(
			"payment_due_date IS NOT NULL AND payment_due_date < ? AND payment_status IN ? AND status NOT IN ?",
			asOf, unpaid, excluded,
		)
	})
}

// Save inserts a new order with its lines and pending change log
// entries in one transaction
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(o).Error; err != nil {
			return err
		}
		for i := range o.Lines {
			o.Lines[i].DocumentID = o.ID
			if err := tx.Create(&o.Lines[i]).Error; err != nil {
				return err
			}
		}
		for i := range o.Payments {
			o.Payments[i].OrderID = o.ID
			if err := tx.Create(&o.Payments[i]).Error; err != nil {
				return err
			}
		}
		return insertChanges(tx, o.PendingChanges())
	})
	if err != nil {
		if isDuplicateKey(err) {
			return shared.ErrDuplicateNumber
		}
		return err
	}
	o.ClearPendingChanges()
	return nil
}

// SaveWithLock updates the order under optimistic locking. The version
// check and increment happen in a single statement; zero affected rows
// means another writer got there first.
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	currentVersion := o.GetVersion()
	o.UpdatedAt = time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&order.Order{}).
			Where("id = ? AND version = ?", o.ID, currentVersion).
			Updates(orderUpdateColumns(o, currentVersion+1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if err := r.syncLines(tx, o); err != nil {
			return err
		}
		if err := r.syncPayments(tx, o); err != nil {
			return err
		}
		return insertChanges(tx, o.PendingChanges())
	})
	if err != nil {
		return err
	}

	o.IncrementVersion()
	o.ClearPendingChanges()
	return nil
}

// HardDelete removes the order row, its lines, payments and change log
// permanently
func (r *GormOrderRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&order.Line{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&order.Payment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ? AND document_type = ?", id, document.TypeOrder).
			Delete(&document.ChangeEntry{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&order.Order{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// CountByStatus counts active orders in a given status
func (r *GormOrderRepository) CountByStatus(ctx context.Context, status order.Status) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&order.Order{}).
		Where("status = ? AND is_deleted = ?", status, false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByNumberPrefix counts orders whose number starts with the given
// prefix. Soft-deleted rows count too; their numbers stay taken.
func (r *GormOrderRepository) CountByNumberPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&order.Order{}).
		Where("order_number LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByNumber checks if an order number is already taken
func (r *GormOrderRepository) ExistsByNumber(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&order.Order{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// findPage runs a paginated listing. Count and find run as separate
// queries over the same conditions; lines and payments are preloaded
// because list items derive totals and paid amounts from them.
func (r *GormOrderRepository) findPage(ctx context.Context, filter shared.Filter, scope func(*gorm.DB) *gorm.DB) (shared.Paginated[order.Order], error) {
	base := func() *gorm.DB {
		query := scopeVisibility(r.db.WithContext(ctx).Model(&order.Order{}), filter.Visibility)
		query = r.applyConditions(query, filter)
		if scope != nil {
			query = scope(query)
		}
		return query
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return shared.Paginated[order.Order]{}, err
	}

	orderBy := ValidateSortField(filter.OrderBy, OrderSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var orders []order.Order
	query := paginate(base().Preload("Lines").Preload("Payments"), filter).Order(orderBy + " " + orderDir)
	if err := query.Find(&orders).Error; err != nil {
		return shared.Paginated[order.Order]{}, err
	}

	page, pageSize := pageOf(filter)
	return shared.NewPaginated(orders, total, page, pageSize), nil
}

// applyConditions applies search and field filters to the query
func (r *GormOrderRepository) applyConditions(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("order_number ILIKE ? OR reference ILIKE ? OR tracking_number ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "client_id":
			query = query.Where("client_id = ?", value)
		case "contact_id":
			query = query.Where("contact_id = ?", value)
		case "quote_id":
			query = query.Where("quote_id = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "statuses":
			if statuses, ok := value.([]string); ok && len(statuses) > 0 {
				query = query.Where("status IN ?", statuses)
			}
		case "payment_status":
			query = query.Where("payment_status = ?", value)
		case "payment_method":
			query = query.Where("payment_method = ?", value)
		case "priority":
			query = query.Where("priority = ?", value)
		case "start_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at >= ?", t)
			}
		case "end_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at <= ?", t)
			}
		case "due_before":
			if t, ok := value.(time.Time); ok {
				query = query.Where("payment_due_date <= ?", t)
			}
		}
	}

	return query
}

// syncLines reconciles the stored lines with the aggregate's lines:
// removed lines are deleted, the rest upserted, all inside tx.
func (r *GormOrderRepository) syncLines(tx *gorm.DB, o *order.Order) error {
	lineIDs := make([]uuid.UUID, len(o.Lines))
	for i, line := range o.Lines {
		lineIDs[i] = line.ID
	}

	if len(lineIDs) > 0 {
		if err := tx.Where("document_id = ? AND id NOT IN ?", o.ID, lineIDs).
			Delete(&order.Line{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("document_id = ?", o.ID).
			Delete(&order.Line{}).Error; err != nil {
			return err
		}
	}

	for i := range o.Lines {
		o.Lines[i].DocumentID = o.ID
		if err := tx.Save(&o.Lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// syncPayments upserts the aggregate's payments. Payments are financial
// records and are never deleted, only appended and state-changed.
func (r *GormOrderRepository) syncPayments(tx *gorm.DB, o *order.Order) error {
	for i := range o.Payments {
		o.Payments[i].OrderID = o.ID
		if err := tx.Save(&o.Payments[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// orderUpdateColumns is the compare-and-swap update set. Identity
// columns never change after insert: order_number, quote_id, client_id,
// created_at and created_by are absent.
func orderUpdateColumns(o *order.Order, newVersion int) map[string]interface{} {
	return map[string]interface{}{
		"reference":             o.Reference,
		"contact_id":            o.ContactID,
		"status":                o.Status,
		"priority":              o.Priority,
		"currency":              o.Currency,
		"exchange_rate":         o.ExchangeRate,
		"tax_rate":              o.TaxRate,
		"tax_inclusive":         o.TaxInclusive,
		"payment_status":        o.PaymentStatus,
		"payment_method":        o.PaymentMethod,
		"payment_terms":         o.PaymentTerms,
		"payment_due_date":      o.PaymentDueDate,
		"shipping_costs":        o.ShippingCosts,
		"shipping_method":       o.ShippingMethod,
		"tracking_number":       o.TrackingNumber,
		"delivery_address_id":   o.DeliveryAddressID,
		"billing_address_id":    o.BillingAddressID,
		"delivery_date":         o.DeliveryDate,
		"actual_delivery_date":  o.ActualDeliveryDate,
		"internal_notes":        o.InternalNotes,
		"client_notes":          o.ClientNotes,
		"confirmed_at":          o.ConfirmedAt,
		"processing_started_at": o.ProcessingStartedAt,
		"shipped_at":            o.ShippedAt,
		"delivered_at":          o.DeliveredAt,
		"cancelled_at":          o.CancelledAt,
		"completed_at":          o.CompletedAt,
		"updated_by":            o.UpdatedBy,
		"is_deleted":            o.IsDeleted,
		"deleted_at":            o.DeletedAt,
		"version":               newVersion,
		"updated_at":            o.UpdatedAt,
	}
}

// Ensure GormOrderRepository implements order.Repository
var _ order.Repository = (*GormOrderRepository)(nil)
