// Package event contains application-level consumers of domain events.
package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/salesflow/backend/internal/domain/order"
	"github.com/salesflow/backend/internal/domain/quote"
	"github.com/salesflow/backend/internal/domain/shared"
)

// ActivityLogHandler writes every document lifecycle event to the
// structured log, giving operations a single stream of workflow
// activity across quotes and orders.
type ActivityLogHandler struct {
	logger *zap.Logger
}

// NewActivityLogHandler creates a new activity log handler.
func NewActivityLogHandler(logger *zap.Logger) *ActivityLogHandler {
	return &ActivityLogHandler{logger: logger}
}

// EventTypes returns nil so the bus registers the handler as a
// wildcard subscriber receiving every event.
func (h *ActivityLogHandler) EventTypes() []string {
	return nil
}

// Handle logs the event with its identifying fields plus whatever
// detail the concrete event carries.
func (h *ActivityLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}
	fields = append(fields, detailFields(event)...)
	h.logger.Info("document activity", fields...)
	return nil
}

func detailFields(event shared.DomainEvent) []zap.Field {
	switch e := event.(type) {
	case *quote.QuoteCreatedEvent:
		return []zap.Field{
			zap.String("document_number", e.QuoteNumber),
			zap.String("client_id", e.ClientID.String()),
			zap.Int("revision", e.Revision),
		}
	case *quote.QuoteStatusChangedEvent:
		return []zap.Field{
			zap.String("document_number", e.QuoteNumber),
			zap.String("from_status", e.FromStatus),
			zap.String("to_status", e.ToStatus),
		}
	case *quote.QuoteSentEvent:
		return []zap.Field{
			zap.String("document_number", e.QuoteNumber),
			zap.String("total_amount", e.TotalAmount.String()),
		}
	case *quote.QuoteViewedEvent:
		return []zap.Field{zap.String("document_number", e.QuoteNumber)}
	case *quote.QuoteAcceptedEvent:
		return []zap.Field{
			zap.String("document_number", e.QuoteNumber),
			zap.String("total_amount", e.TotalAmount.String()),
		}
	case *quote.QuoteRejectedEvent:
		return []zap.Field{
			zap.String("document_number", e.QuoteNumber),
			zap.String("reason", e.Reason),
		}
	case *quote.QuoteCancelledEvent:
		return []zap.Field{
			zap.String("document_number", e.QuoteNumber),
			zap.String("reason", e.Reason),
		}
	case *quote.QuoteExpiredEvent:
		return []zap.Field{zap.String("document_number", e.QuoteNumber)}
	case *quote.QuoteConvertedEvent:
		return []zap.Field{
			zap.String("document_number", e.QuoteNumber),
			zap.String("order_id", e.OrderID.String()),
			zap.String("order_number", e.OrderNumber),
		}
	case *quote.QuoteRevisionCreatedEvent:
		return []zap.Field{
			zap.String("document_number", e.QuoteNumber),
			zap.String("revision_number", e.RevisionNumber),
			zap.Int("revision", e.Revision),
		}
	case *order.OrderCreatedEvent:
		fields := []zap.Field{
			zap.String("document_number", e.OrderNumber),
			zap.String("client_id", e.ClientID.String()),
		}
		if e.QuoteID != nil {
			fields = append(fields, zap.String("quote_id", e.QuoteID.String()))
		}
		return fields
	case *order.OrderConfirmedEvent:
		return []zap.Field{
			zap.String("document_number", e.OrderNumber),
			zap.String("total_amount", e.TotalAmount.String()),
		}
	case *order.OrderProcessingStartedEvent:
		return []zap.Field{zap.String("document_number", e.OrderNumber)}
	case *order.OrderReadyForShipmentEvent:
		return []zap.Field{zap.String("document_number", e.OrderNumber)}
	case *order.OrderShippedEvent:
		return []zap.Field{
			zap.String("document_number", e.OrderNumber),
			zap.String("tracking_number", e.TrackingNumber),
		}
	case *order.OrderDeliveredEvent:
		return []zap.Field{zap.String("document_number", e.OrderNumber)}
	case *order.OrderPartiallyDeliveredEvent:
		return []zap.Field{zap.String("document_number", e.OrderNumber)}
	case *order.OrderCompletedEvent:
		return []zap.Field{
			zap.String("document_number", e.OrderNumber),
			zap.String("total_amount", e.TotalAmount.String()),
		}
	case *order.OrderCancelledEvent:
		return []zap.Field{
			zap.String("document_number", e.OrderNumber),
			zap.String("reason", e.Reason),
		}
	case *order.OrderRefundedEvent:
		return []zap.Field{
			zap.String("document_number", e.OrderNumber),
			zap.String("reason", e.Reason),
		}
	case *order.OrderLineDeliveredEvent:
		return []zap.Field{
			zap.String("document_number", e.OrderNumber),
			zap.Int("line_number", e.LineNumber),
			zap.String("quantity", e.Quantity.String()),
		}
	case *order.OrderPaymentReceivedEvent:
		return []zap.Field{
			zap.String("document_number", e.OrderNumber),
			zap.String("payment_number", e.PaymentNumber),
			zap.String("amount", e.Amount.String()),
			zap.String("amount_due", e.AmountDue.String()),
		}
	}
	return nil
}

// Ensure ActivityLogHandler implements shared.EventHandler
var _ shared.EventHandler = (*ActivityLogHandler)(nil)
