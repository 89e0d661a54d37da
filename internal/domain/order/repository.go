package order

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/salesflow/backend/internal/domain/shared"
)

// Repository defines the interface for order persistence. Reads follow
// the visibility rules of the filter: soft-deleted orders are excluded
// unless explicitly requested.
type Repository interface {
	// FindByID finds an order with its lines and payments.
	FindByID(ctx context.Context, id uuid.UUID, visibility shared.Visibility) (*Order, error)

	// FindByNumber finds an order by its order number.
	FindByNumber(ctx context.Context, orderNumber string, visibility shared.Visibility) (*Order, error)

	// FindByQuote finds the order created from a quote, if any.
	FindByQuote(ctx context.Context, quoteID uuid.UUID) (*Order, error)

	// FindAll lists orders matching the filter.
	FindAll(ctx context.Context, filter shared.Filter) (shared.Paginated[Order], error)

	// FindByClient lists orders for a client.
	FindByClient(ctx context.Context, clientID uuid.UUID, filter shared.Filter) (shared.Paginated[Order], error)

	// FindByStatus lists orders in a given status.
	FindByStatus(ctx context.Context, status Status, filter shared.Filter) (shared.Paginated[Order], error)

	// FindOverdue lists unpaid orders whose payment due date has
	// passed.
	FindOverdue(ctx context.Context, asOf time.Time, filter shared.Filter) (shared.Paginated[Order], error)

	// Save inserts a new order with its lines.
	Save(ctx context.Context, o *Order) error

	// SaveWithLock updates the order under optimistic locking: the
	// update only applies when the stored version still matches, the
	// version is incremented in the same statement, and line, payment
	// and change log writes share the transaction. A lost race yields
	// a concurrency conflict error.
	SaveWithLock(ctx context.Context, o *Order) error

	// HardDelete removes the order row and its lines permanently.
	// Reserved for draft orders; soft deletion goes through the
	// aggregate and SaveWithLock.
	HardDelete(ctx context.Context, id uuid.UUID) error

	// CountByStatus counts orders in a given status.
	CountByStatus(ctx context.Context, status Status) (int64, error)

	// CountByNumberPrefix counts orders whose number starts with the
	// given prefix. Used to seed sequence counters.
	CountByNumberPrefix(ctx context.Context, prefix string) (int64, error)

	// ExistsByNumber checks whether an order number is already taken.
	ExistsByNumber(ctx context.Context, orderNumber string) (bool, error)
}
