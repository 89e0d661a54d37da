// Package quote is the application service for the quotation workflow:
// creation with generated numbers, lifecycle transitions, expiry
// housekeeping, revisioning and conversion into orders.
package quote

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salesflow/backend/internal/application/validation"
	"github.com/salesflow/backend/internal/domain/document"
	"github.com/salesflow/backend/internal/domain/quote"
	"github.com/salesflow/backend/internal/domain/shared"
	"github.com/salesflow/backend/internal/domain/shared/valueobject"
)

// numberAttempts caps retries when a generated document number races an
// existing one on the unique index.
const numberAttempts = 3

// Config carries the workflow defaults applied when a request omits
// them.
type Config struct {
	NumberPrefix string
	OrderPrefix  string
	ValidityDays int
	Defaults     document.Settings
}

// Service handles quote business operations.
type Service struct {
	quotes    quote.Repository
	changeLog document.ChangeLogRepository
	numbers   *document.NumberGenerator
	publisher shared.EventPublisher
	logger    *zap.Logger
	cfg       Config
}

// NewService creates a quote service.
func NewService(quotes quote.Repository, changeLog document.ChangeLogRepository, numbers *document.NumberGenerator, logger *zap.Logger, cfg Config) *Service {
	return &Service{
		quotes:    quotes,
		changeLog: changeLog,
		numbers:   numbers,
		logger:    logger,
		cfg:       cfg,
	}
}

// SetEventPublisher sets the publisher for domain events. Events are
// published after the aggregate has been persisted.
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Create creates a draft quote with a generated quote number. A number
// collision on the unique index is retried with a fresh number.
func (s *Service) Create(ctx context.Context, req CreateQuoteRequest, actor *uuid.UUID) (*QuoteResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	settings, err := s.settingsFromRequest(req)
	if err != nil {
		return nil, err
	}

	validFrom := time.Now()
	if req.ValidFrom != nil {
		validFrom = *req.ValidFrom
	}
	validUntil := validFrom.AddDate(0, 0, s.cfg.ValidityDays)
	if req.ValidUntil != nil {
		validUntil = *req.ValidUntil
	}

	var q *quote.Quote
	for attempt := 1; attempt <= numberAttempts; attempt++ {
		number, err := s.numbers.Generate(ctx, s.cfg.NumberPrefix, time.Now())
		if err != nil {
			return nil, err
		}

		q, err = quote.NewQuote(number, req.ClientID, settings, validFrom, validUntil, actor)
		if err != nil {
			return nil, err
		}
		s.applyAttributes(q, req, actor)
		for _, line := range req.Lines {
			if _, err := q.AddLine(actor, line.toDomain()); err != nil {
				return nil, err
			}
		}

		err = s.quotes.Save(ctx, q)
		if err == nil {
			break
		}
		if errors.Is(err, shared.ErrDuplicateNumber) && attempt < numberAttempts {
			s.logger.Warn("quote number collision, regenerating",
				zap.String("quote_number", number),
				zap.Int("attempt", attempt))
			continue
		}
		return nil, err
	}

	s.publishEvents(ctx, q)
	s.logger.Info("quote created",
		zap.String("quote_id", q.ID.String()),
		zap.String("quote_number", q.QuoteNumber),
		zap.String("client_id", q.ClientID.String()))

	response := ToQuoteResponse(q, time.Now())
	return &response, nil
}

// Get retrieves a quote. A quote whose validity window has passed is
// expired on read and the transition persisted; losing that write to a
// concurrent expiry is harmless and the fresh row is returned instead.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*QuoteResponse, error) {
	q, err := s.quotes.FindByID(ctx, id, shared.VisibilityActive)
	if err != nil {
		return nil, err
	}
	q, err = s.expireOnRead(ctx, q)
	if err != nil {
		return nil, err
	}
	response := ToQuoteResponse(q, time.Now())
	return &response, nil
}

// GetByNumber retrieves a quote by its quote number.
func (s *Service) GetByNumber(ctx context.Context, quoteNumber string) (*QuoteResponse, error) {
	q, err := s.quotes.FindByNumber(ctx, quoteNumber, shared.VisibilityActive)
	if err != nil {
		return nil, err
	}
	q, err = s.expireOnRead(ctx, q)
	if err != nil {
		return nil, err
	}
	response := ToQuoteResponse(q, time.Now())
	return &response, nil
}

// GetHistory returns the change log of a quote, oldest first.
func (s *Service) GetHistory(ctx context.Context, id uuid.UUID) ([]document.ChangeEntry, error) {
	if _, err := s.quotes.FindByID(ctx, id, shared.VisibilityAll); err != nil {
		return nil, err
	}
	return s.changeLog.ListForDocument(ctx, document.TypeQuote, id)
}

// List retrieves quotes matching the filter. Statuses in the response
// reflect expiry as of now without persisting it.
func (s *Service) List(ctx context.Context, filter QuoteListFilter) (shared.Paginated[QuoteListItemResponse], error) {
	domainFilter := s.domainFilter(filter)

	var (
		page shared.Paginated[quote.Quote]
		err  error
	)
	switch {
	case filter.ExpiringBefore != nil:
		page, err = s.quotes.FindExpiring(ctx, *filter.ExpiringBefore, domainFilter)
	case filter.ClientID != nil:
		page, err = s.quotes.FindByClient(ctx, *filter.ClientID, domainFilter)
	case filter.Status != nil:
		page, err = s.quotes.FindByStatus(ctx, quote.Status(*filter.Status), domainFilter)
	default:
		page, err = s.quotes.FindAll(ctx, domainFilter)
	}
	if err != nil {
		return shared.Paginated[QuoteListItemResponse]{}, err
	}

	return shared.Paginated[QuoteListItemResponse]{
		Items:      ToQuoteListItemResponses(page.Items, time.Now()),
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}

// ListRevisions returns the revisions created from a quote.
func (s *Service) ListRevisions(ctx context.Context, parentQuoteID uuid.UUID) ([]QuoteListItemResponse, error) {
	revisions, err := s.quotes.FindRevisions(ctx, parentQuoteID)
	if err != nil {
		return nil, err
	}
	return ToQuoteListItemResponses(revisions, time.Now()), nil
}

// Update applies attribute changes to a quote under optimistic locking.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateQuoteRequest, actor *uuid.UUID) (*QuoteResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	q, err := s.quotes.FindByID(ctx, id, shared.VisibilityActive)
	if err != nil {
		return nil, err
	}

	if req.Reference != nil {
		q.SetReference(*req.Reference, actor)
	}
	if req.Priority != nil {
		if err := q.SetPriority(document.Priority(*req.Priority), actor); err != nil {
			return nil, err
		}
	}
	if req.ContactID != nil {
		q.SetContact(req.ContactID, actor)
	}
	if req.DeliveryAddressID != nil || req.BillingAddressID != nil {
		delivery := q.DeliveryAddressID
		billing := q.BillingAddressID
		if req.DeliveryAddressID != nil {
			delivery = req.DeliveryAddressID
		}
		if req.BillingAddressID != nil {
			billing = req.BillingAddressID
		}
		q.SetAddresses(delivery, billing, actor)
	}
	if req.DeliveryDate != nil {
		q.SetDeliveryDate(req.DeliveryDate, actor)
	}
	if req.ValidFrom != nil || req.ValidUntil != nil {
		validFrom := q.ValidFrom
		validUntil := q.ValidUntil
		if req.ValidFrom != nil {
			validFrom = *req.ValidFrom
		}
		if req.ValidUntil != nil {
			validUntil = *req.ValidUntil
		}
		if err := q.SetValidity(validFrom, validUntil, actor); err != nil {
			return nil, err
		}
	}
	if req.PaymentTerms != nil || req.DeliveryTerms != nil {
		paymentTerms := q.PaymentTerms
		deliveryTerms := q.DeliveryTerms
		if req.PaymentTerms != nil {
			paymentTerms = *req.PaymentTerms
		}
		if req.DeliveryTerms != nil {
			deliveryTerms = *req.DeliveryTerms
		}
		q.SetTerms(paymentTerms, deliveryTerms, actor)
	}
	if req.InternalNotes != nil || req.ClientNotes != nil {
		internal := q.InternalNotes
		client := q.ClientNotes
		if req.InternalNotes != nil {
			internal = *req.InternalNotes
		}
		if req.ClientNotes != nil {
			client = *req.ClientNotes
		}
		q.SetNotes(internal, client, actor)
	}
	if req.TermsConditions != nil {
		q.SetTermsConditions(*req.TermsConditions, actor)
	}

	return s.persist(ctx, q)
}

// AddLine appends a line to a quote.
func (s *Service) AddLine(ctx context.Context, id uuid.UUID, req LineInput, actor *uuid.UUID) (*QuoteResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	q, err := s.quotes.FindByID(ctx, id, shared.VisibilityActive)
	if err != nil {
		return nil, err
	}
	if _, err := q.AddLine(actor, req.toDomain()); err != nil {
		return nil, err
	}
	return s.persist(ctx, q)
}

// UpdateLine applies a partial update to a quote line.
func (s *Service) UpdateLine(ctx context.Context, id uuid.UUID, lineNumber int, req UpdateLineRequest, actor *uuid.UUID) (*QuoteResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	q, err := s.quotes.FindByID(ctx, id, shared.VisibilityActive)
	if err != nil {
		return nil, err
	}
	if err := q.UpdateLine(actor, lineNumber, req.toDomain()); err != nil {
		return nil, err
	}
	return s.persist(ctx, q)
}

// RemoveLine removes a line from a quote.
func (s *Service) RemoveLine(ctx context.Context, id uuid.UUID, lineNumber int, actor *uuid.UUID) (*QuoteResponse, error) {
	q, err := s.quotes.FindByID(ctx, id, shared.VisibilityActive)
	if err != nil {
		return nil, err
	}
	if err := q.RemoveLine(actor, lineNumber); err != nil {
		return nil, err
	}
	return s.persist(ctx, q)
}

// MarkPending moves a draft quote to pending internal approval.
func (s *Service) MarkPending(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*QuoteResponse, error) {
	return s.transition(ctx, id, actor, func(q *quote.Quote) error {
		return q.MarkPending(actor)
	})
}

// Send marks the quote as sent to the client.
func (s *Service) Send(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*QuoteResponse, error) {
	return s.transition(ctx, id, actor, func(q *quote.Quote) error {
		return q.Send(actor)
	})
}

// MarkViewed records that the client opened the quote.
func (s *Service) MarkViewed(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*QuoteResponse, error) {
	return s.transition(ctx, id, actor, func(q *quote.Quote) error {
		return q.MarkViewed(actor)
	})
}

// StartNegotiation marks the quote as under negotiation.
func (s *Service) StartNegotiation(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*QuoteResponse, error) {
	return s.transition(ctx, id, actor, func(q *quote.Quote) error {
		return q.StartNegotiation(actor)
	})
}

// Accept records the client's acceptance.
func (s *Service) Accept(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*QuoteResponse, error) {
	return s.transition(ctx, id, actor, func(q *quote.Quote) error {
		return q.Accept(actor)
	})
}

// Reject records the client's rejection.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, req RejectQuoteRequest, actor *uuid.UUID) (*QuoteResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, actor, func(q *quote.Quote) error {
		return q.Reject(actor, req.Reason)
	})
}

// Cancel withdraws the quote internally.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, req CancelQuoteRequest, actor *uuid.UUID) (*QuoteResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, actor, func(q *quote.Quote) error {
		return q.Cancel(actor, req.Reason)
	})
}

// CreateRevision clones the quote into a new draft revision with a
// fresh quote number. The original is left untouched apart from its
// change log.
func (s *Service) CreateRevision(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*QuoteResponse, error) {
	q, err := s.quotes.FindByID(ctx, id, shared.VisibilityActive)
	if err != nil {
		return nil, err
	}

	var rev *quote.Quote
	for attempt := 1; attempt <= numberAttempts; attempt++ {
		number, err := s.numbers.Generate(ctx, s.cfg.NumberPrefix, time.Now())
		if err != nil {
			return nil, err
		}
		rev, err = q.CreateRevision(number, actor)
		if err != nil {
			return nil, err
		}

		err = s.quotes.SaveRevision(ctx, q, rev)
		if err == nil {
			break
		}
		if errors.Is(err, shared.ErrDuplicateNumber) && attempt < numberAttempts {
			q.ClearPendingChanges()
			continue
		}
		return nil, err
	}

	s.publishEvents(ctx, q)
	s.publishEvents(ctx, rev)
	s.logger.Info("quote revision created",
		zap.String("quote_id", q.ID.String()),
		zap.String("revision_id", rev.ID.String()),
		zap.Int("revision", rev.Revision))

	response := ToQuoteResponse(rev, time.Now())
	return &response, nil
}

// ConvertToOrder turns an accepted quote into a draft order. The quote
// and the new order are persisted in one transaction; a quote converts
// exactly once.
func (s *Service) ConvertToOrder(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*ConversionResponse, error) {
	q, err := s.quotes.FindByID(ctx, id, shared.VisibilityActive)
	if err != nil {
		return nil, err
	}

	orderNumber, err := s.numbers.Generate(ctx, s.cfg.OrderPrefix, time.Now())
	if err != nil {
		return nil, err
	}
	o, err := q.ConvertToOrder(orderNumber, actor)
	if err != nil {
		return nil, err
	}

	if err := s.quotes.SaveConversion(ctx, q, o); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, q)
	s.publishEvents(ctx, o)
	s.logger.Info("quote converted to order",
		zap.String("quote_id", q.ID.String()),
		zap.String("quote_number", q.QuoteNumber),
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber))

	return &ConversionResponse{
		Quote:       ToQuoteResponse(q, time.Now()),
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
	}, nil
}

// ExpireDueQuotes expires every open quote whose validity window ended
// before the given time. Returns the number of quotes expired. A
// concurrency conflict on a single quote means another worker got there
// first and is skipped, not retried.
func (s *Service) ExpireDueQuotes(ctx context.Context, asOf time.Time) (int, error) {
	filter := shared.DefaultFilter()
	filter.PageSize = 100

	expired := 0
	for {
		// Expired quotes drop out of the result set, so every pass
		// re-reads the first page of what remains.
		page, err := s.quotes.FindExpiring(ctx, asOf, filter)
		if err != nil {
			return expired, err
		}
		progressed := false
		for i := range page.Items {
			q := &page.Items[i]
			if !q.ExpireIfDue(asOf) {
				continue
			}
			if err := s.quotes.SaveWithLock(ctx, q); err != nil {
				if errors.Is(err, shared.ErrConcurrencyConflict) {
					progressed = true
					continue
				}
				return expired, err
			}
			s.publishEvents(ctx, q)
			expired++
			progressed = true
		}
		if !progressed {
			break
		}
	}

	if expired > 0 {
		s.logger.Info("expired due quotes", zap.Int("count", expired))
	}
	return expired, nil
}

// Delete soft deletes a quote. The row stays for audit and can be
// restored.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor *uuid.UUID) error {
	q, err := s.quotes.FindByID(ctx, id, shared.VisibilityActive)
	if err != nil {
		return err
	}
	if !q.SoftDelete(actor) {
		return nil
	}
	if err := s.quotes.SaveWithLock(ctx, q); err != nil {
		return err
	}
	s.logger.Info("quote deleted",
		zap.String("quote_id", q.ID.String()),
		zap.String("quote_number", q.QuoteNumber))
	return nil
}

// Restore brings a soft-deleted quote back.
func (s *Service) Restore(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*QuoteResponse, error) {
	q, err := s.quotes.FindByID(ctx, id, shared.VisibilityDeleted)
	if err != nil {
		return nil, err
	}
	if q.Restore(actor) {
		if err := s.quotes.SaveWithLock(ctx, q); err != nil {
			return nil, err
		}
	}
	response := ToQuoteResponse(q, time.Now())
	return &response, nil
}

// PurgeDraft permanently removes a draft quote and its lines. Quotes
// that left draft keep their audit trail and can only be soft deleted.
func (s *Service) PurgeDraft(ctx context.Context, id uuid.UUID) error {
	q, err := s.quotes.FindByID(ctx, id, shared.VisibilityAll)
	if err != nil {
		return err
	}
	if !q.IsDraft() {
		return shared.ErrNotModifiable.WithDetail("status", q.Status.String())
	}
	if err := s.quotes.HardDelete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("draft quote purged",
		zap.String("quote_id", id.String()),
		zap.String("quote_number", q.QuoteNumber))
	return nil
}

// GetStatusSummary returns quote counts per status.
func (s *Service) GetStatusSummary(ctx context.Context) (*StatusSummary, error) {
	summary := &StatusSummary{}
	counts := []struct {
		status quote.Status
		target *int64
	}{
		{quote.StatusDraft, &summary.Draft},
		{quote.StatusSent, &summary.Sent},
		{quote.StatusViewed, &summary.Viewed},
		{quote.StatusNegotiation, &summary.Negotiation},
		{quote.StatusAccepted, &summary.Accepted},
		{quote.StatusRejected, &summary.Rejected},
		{quote.StatusExpired, &summary.Expired},
		{quote.StatusConverted, &summary.Converted},
	}
	for _, c := range counts {
		n, err := s.quotes.CountByStatus(ctx, c.status)
		if err != nil {
			return nil, err
		}
		*c.target = n
		summary.Total += n
	}
	return summary, nil
}

// --- helpers ---

// transition loads, applies a domain transition and persists under
// optimistic locking.
func (s *Service) transition(ctx context.Context, id uuid.UUID, actor *uuid.UUID, apply func(*quote.Quote) error) (*QuoteResponse, error) {
	q, err := s.quotes.FindByID(ctx, id, shared.VisibilityActive)
	if err != nil {
		return nil, err
	}
	if err := apply(q); err != nil {
		return nil, err
	}
	return s.persist(ctx, q)
}

func (s *Service) persist(ctx context.Context, q *quote.Quote) (*QuoteResponse, error) {
	if err := s.quotes.SaveWithLock(ctx, q); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, q)
	response := ToQuoteResponse(q, time.Now())
	return &response, nil
}

// expireOnRead persists a due expiry observed while reading. When the
// optimistic write is lost to a concurrent expiry the row is re-read;
// the quote ends up expired either way.
func (s *Service) expireOnRead(ctx context.Context, q *quote.Quote) (*quote.Quote, error) {
	if !q.ExpireIfDue(time.Now()) {
		return q, nil
	}
	if err := s.quotes.SaveWithLock(ctx, q); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return s.quotes.FindByID(ctx, q.ID, shared.VisibilityActive)
		}
		return nil, err
	}
	s.publishEvents(ctx, q)
	return q, nil
}

// publishEvents publishes accumulated domain events after persistence.
// Publish failures are logged, not surfaced: event delivery is
// best-effort on top of the committed state.
func (s *Service) publishEvents(ctx context.Context, aggregate interface {
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}) {
	if s.publisher == nil {
		aggregate.ClearDomainEvents()
		return
	}
	for _, event := range aggregate.GetDomainEvents() {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.String("aggregate_id", event.AggregateID().String()),
				zap.Error(err))
		}
	}
	aggregate.ClearDomainEvents()
}

func (s *Service) settingsFromRequest(req CreateQuoteRequest) (document.Settings, error) {
	settings := s.cfg.Defaults
	currency := settings.Currency
	exchangeRate := settings.ExchangeRate
	taxRate := settings.TaxRate
	taxInclusive := settings.TaxInclusive

	if req.Currency != "" {
		currency = valueobject.Currency(req.Currency)
	}
	if req.ExchangeRate != nil {
		exchangeRate = *req.ExchangeRate
	}
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}
	if req.TaxInclusive != nil {
		taxInclusive = *req.TaxInclusive
	}
	return document.NewSettings(currency, exchangeRate, taxRate, taxInclusive)
}

func (s *Service) applyAttributes(q *quote.Quote, req CreateQuoteRequest, actor *uuid.UUID) {
	if req.Reference != "" {
		q.SetReference(req.Reference, actor)
	}
	if req.Priority != "" {
		_ = q.SetPriority(document.Priority(req.Priority), actor)
	}
	if req.ContactID != nil {
		q.SetContact(req.ContactID, actor)
	}
	if req.DeliveryAddressID != nil || req.BillingAddressID != nil {
		q.SetAddresses(req.DeliveryAddressID, req.BillingAddressID, actor)
	}
	if req.DeliveryDate != nil {
		q.SetDeliveryDate(req.DeliveryDate, actor)
	}
	if req.PaymentTerms != "" || req.DeliveryTerms != "" {
		q.SetTerms(req.PaymentTerms, req.DeliveryTerms, actor)
	}
	if req.InternalNotes != "" || req.ClientNotes != "" {
		q.SetNotes(req.InternalNotes, req.ClientNotes, actor)
	}
	if req.TermsConditions != "" {
		q.SetTermsConditions(req.TermsConditions, actor)
	}
}

func (s *Service) domainFilter(filter QuoteListFilter) shared.Filter {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	domainFilter.Search = filter.Search
	if filter.IncludeDeleted {
		domainFilter.Visibility = shared.VisibilityAll
	}
	if filter.Priority != nil {
		domainFilter.Filters["priority"] = *filter.Priority
	}
	return domainFilter
}
