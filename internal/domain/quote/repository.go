package quote

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/salesflow/backend/internal/domain/order"
	"github.com/salesflow/backend/internal/domain/shared"
)

// Repository defines the interface for quote persistence. Reads follow
// the visibility rules of the filter: soft-deleted quotes are excluded
// unless explicitly requested.
type Repository interface {
	// FindByID finds a quote with its lines.
	FindByID(ctx context.Context, id uuid.UUID, visibility shared.Visibility) (*Quote, error)

	// FindByNumber finds a quote by its quote number.
	FindByNumber(ctx context.Context, quoteNumber string, visibility shared.Visibility) (*Quote, error)

	// FindAll lists quotes matching the filter.
	FindAll(ctx context.Context, filter shared.Filter) (shared.Paginated[Quote], error)

	// FindByClient lists quotes for a client.
	FindByClient(ctx context.Context, clientID uuid.UUID, filter shared.Filter) (shared.Paginated[Quote], error)

	// FindByStatus lists quotes in a given status.
	FindByStatus(ctx context.Context, status Status, filter shared.Filter) (shared.Paginated[Quote], error)

	// FindRevisions lists the revisions created from a quote.
	FindRevisions(ctx context.Context, parentQuoteID uuid.UUID) ([]Quote, error)

	// FindExpiring lists non-terminal quotes whose validity window
	// ends strictly before the given time.
	FindExpiring(ctx context.Context, until time.Time, filter shared.Filter) (shared.Paginated[Quote], error)

	// Save inserts a new quote with its lines.
	Save(ctx context.Context, q *Quote) error

	// SaveWithLock updates the quote under optimistic locking: the
	// update only applies when the stored version still matches, the
	// version is incremented in the same statement, and line and
	// change log writes share the transaction. A lost race yields a
	// concurrency conflict error.
	SaveWithLock(ctx context.Context, q *Quote) error

	// SaveRevision inserts a revision and the original's change log
	// entries in one transaction. The original's content is not
	// modified.
	SaveRevision(ctx context.Context, original, revision *Quote) error

	// SaveConversion persists the converted quote and the new order in
	// one transaction, both or neither.
	SaveConversion(ctx context.Context, q *Quote, o *order.Order) error

	// HardDelete removes the quote row and its lines permanently.
	// Reserved for draft quotes; soft deletion goes through the
	// aggregate and SaveWithLock.
	HardDelete(ctx context.Context, id uuid.UUID) error

	// CountByStatus counts quotes in a given status.
	CountByStatus(ctx context.Context, status Status) (int64, error)

	// CountByNumberPrefix counts quotes whose number starts with the
	// given prefix. Used to seed sequence counters.
	CountByNumberPrefix(ctx context.Context, prefix string) (int64, error)

	// ExistsByNumber checks whether a quote number is already taken.
	ExistsByNumber(ctx context.Context, quoteNumber string) (bool, error)
}
