package quote

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salesflow/backend/internal/domain/shared"
)

const AggregateTypeQuote = "Quote"

const (
	EventTypeQuoteCreated         = "quote.created"
	EventTypeQuoteStatusChanged   = "quote.status_changed"
	EventTypeQuoteSent            = "quote.sent"
	EventTypeQuoteViewed          = "quote.viewed"
	EventTypeQuoteAccepted        = "quote.accepted"
	EventTypeQuoteRejected        = "quote.rejected"
	EventTypeQuoteCancelled       = "quote.cancelled"
	EventTypeQuoteExpired         = "quote.expired"
	EventTypeQuoteConverted       = "quote.converted"
	EventTypeQuoteRevisionCreated = "quote.revision_created"
)

type QuoteCreatedEvent struct {
	shared.BaseDomainEvent
	QuoteNumber string    `json:"quote_number"`
	ClientID    uuid.UUID `json:"client_id"`
	Revision    int       `json:"revision"`
}

func NewQuoteCreatedEvent(q *Quote, actor *uuid.UUID) *QuoteCreatedEvent {
	return &QuoteCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteCreated, AggregateTypeQuote, q.ID, actor),
		QuoteNumber:     q.QuoteNumber,
		ClientID:        q.ClientID,
		Revision:        q.Revision,
	}
}

func (e *QuoteCreatedEvent) EventType() string { return EventTypeQuoteCreated }

type QuoteStatusChangedEvent struct {
	shared.BaseDomainEvent
	QuoteNumber string `json:"quote_number"`
	FromStatus  string `json:"from_status"`
	ToStatus    string `json:"to_status"`
}

func NewQuoteStatusChangedEvent(q *Quote, from Status, actor *uuid.UUID) *QuoteStatusChangedEvent {
	return &QuoteStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteStatusChanged, AggregateTypeQuote, q.ID, actor),
		QuoteNumber:     q.QuoteNumber,
		FromStatus:      from.String(),
		ToStatus:        q.Status.String(),
	}
}

func (e *QuoteStatusChangedEvent) EventType() string { return EventTypeQuoteStatusChanged }

type QuoteSentEvent struct {
	shared.BaseDomainEvent
	QuoteNumber string          `json:"quote_number"`
	ClientID    uuid.UUID       `json:"client_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func NewQuoteSentEvent(q *Quote, actor *uuid.UUID) *QuoteSentEvent {
	return &QuoteSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteSent, AggregateTypeQuote, q.ID, actor),
		QuoteNumber:     q.QuoteNumber,
		ClientID:        q.ClientID,
		TotalAmount:     q.Totals().TotalInclTax,
	}
}

func (e *QuoteSentEvent) EventType() string { return EventTypeQuoteSent }

type QuoteViewedEvent struct {
	shared.BaseDomainEvent
	QuoteNumber string `json:"quote_number"`
}

func NewQuoteViewedEvent(q *Quote, actor *uuid.UUID) *QuoteViewedEvent {
	return &QuoteViewedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteViewed, AggregateTypeQuote, q.ID, actor),
		QuoteNumber:     q.QuoteNumber,
	}
}

func (e *QuoteViewedEvent) EventType() string { return EventTypeQuoteViewed }

type QuoteAcceptedEvent struct {
	shared.BaseDomainEvent
	QuoteNumber string          `json:"quote_number"`
	ClientID    uuid.UUID       `json:"client_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func NewQuoteAcceptedEvent(q *Quote, actor *uuid.UUID) *QuoteAcceptedEvent {
	return &QuoteAcceptedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteAccepted, AggregateTypeQuote, q.ID, actor),
		QuoteNumber:     q.QuoteNumber,
		ClientID:        q.ClientID,
		TotalAmount:     q.Totals().TotalInclTax,
	}
}

func (e *QuoteAcceptedEvent) EventType() string { return EventTypeQuoteAccepted }

type QuoteRejectedEvent struct {
	shared.BaseDomainEvent
	QuoteNumber string `json:"quote_number"`
	Reason      string `json:"reason,omitempty"`
}

func NewQuoteRejectedEvent(q *Quote, actor *uuid.UUID, reason string) *QuoteRejectedEvent {
	return &QuoteRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteRejected, AggregateTypeQuote, q.ID, actor),
		QuoteNumber:     q.QuoteNumber,
		Reason:          reason,
	}
}

func (e *QuoteRejectedEvent) EventType() string { return EventTypeQuoteRejected }

type QuoteCancelledEvent struct {
	shared.BaseDomainEvent
	QuoteNumber string `json:"quote_number"`
	Reason      string `json:"reason,omitempty"`
}

func NewQuoteCancelledEvent(q *Quote, actor *uuid.UUID, reason string) *QuoteCancelledEvent {
	return &QuoteCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteCancelled, AggregateTypeQuote, q.ID, actor),
		QuoteNumber:     q.QuoteNumber,
		Reason:          reason,
	}
}

func (e *QuoteCancelledEvent) EventType() string { return EventTypeQuoteCancelled }

type QuoteExpiredEvent struct {
	shared.BaseDomainEvent
	QuoteNumber string    `json:"quote_number"`
	ClientID    uuid.UUID `json:"client_id"`
}

func NewQuoteExpiredEvent(q *Quote) *QuoteExpiredEvent {
	return &QuoteExpiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteExpired, AggregateTypeQuote, q.ID, nil),
		QuoteNumber:     q.QuoteNumber,
		ClientID:        q.ClientID,
	}
}

func (e *QuoteExpiredEvent) EventType() string { return EventTypeQuoteExpired }

type QuoteConvertedEvent struct {
	shared.BaseDomainEvent
	QuoteNumber string    `json:"quote_number"`
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
}

func NewQuoteConvertedEvent(q *Quote, orderID uuid.UUID, orderNumber string, actor *uuid.UUID) *QuoteConvertedEvent {
	return &QuoteConvertedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteConverted, AggregateTypeQuote, q.ID, actor),
		QuoteNumber:     q.QuoteNumber,
		OrderID:         orderID,
		OrderNumber:     orderNumber,
	}
}

func (e *QuoteConvertedEvent) EventType() string { return EventTypeQuoteConverted }

type QuoteRevisionCreatedEvent struct {
	shared.BaseDomainEvent
	QuoteNumber    string    `json:"quote_number"`
	RevisionID     uuid.UUID `json:"revision_id"`
	RevisionNumber string    `json:"revision_number"`
	Revision       int       `json:"revision"`
}

func NewQuoteRevisionCreatedEvent(q, rev *Quote, actor *uuid.UUID) *QuoteRevisionCreatedEvent {
	return &QuoteRevisionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteRevisionCreated, AggregateTypeQuote, q.ID, actor),
		QuoteNumber:     q.QuoteNumber,
		RevisionID:      rev.ID,
		RevisionNumber:  rev.QuoteNumber,
		Revision:        rev.Revision,
	}
}

func (e *QuoteRevisionCreatedEvent) EventType() string { return EventTypeQuoteRevisionCreated }
