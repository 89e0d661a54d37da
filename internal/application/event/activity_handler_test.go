package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/salesflow/backend/internal/domain/document"
	"github.com/salesflow/backend/internal/domain/order"
	"github.com/salesflow/backend/internal/domain/quote"
)

func newActivityTestQuote(t *testing.T) *quote.Quote {
	t.Helper()

	settings, err := document.NewSettings("EUR", decimal.NewFromInt(1), decimal.NewFromFloat(21), false)
	require.NoError(t, err)

	q, err := quote.NewQuote("QT2026010001ABCD", uuid.New(), settings, time.Now(), time.Now().AddDate(0, 0, 30), nil)
	require.NoError(t, err)
	_, err = q.AddLine(nil, document.LineInput{
		Description: "Consulting hours",
		Quantity:    decimal.NewFromInt(2),
		UnitPrice:   decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	return q
}

func TestActivityLogHandler_SubscribesToEverything(t *testing.T) {
	handler := NewActivityLogHandler(zap.NewNop())
	assert.Empty(t, handler.EventTypes())
}

func TestActivityLogHandler_Handle(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	handler := NewActivityLogHandler(zap.New(core))
	q := newActivityTestQuote(t)

	t.Run("logs quote sent with totals", func(t *testing.T) {
		recorded.TakeAll()

		event := quote.NewQuoteSentEvent(q, nil)
		err := handler.Handle(context.Background(), event)
		require.NoError(t, err)

		entries := recorded.TakeAll()
		require.Len(t, entries, 1)
		assert.Equal(t, "document activity", entries[0].Message)

		fields := entries[0].ContextMap()
		assert.Equal(t, "quote.sent", fields["event_type"])
		assert.Equal(t, "Quote", fields["aggregate_type"])
		assert.Equal(t, q.ID.String(), fields["aggregate_id"])
		assert.Equal(t, q.QuoteNumber, fields["document_number"])
		assert.Equal(t, "242", fields["total_amount"])
	})

	t.Run("logs status transitions with both states", func(t *testing.T) {
		recorded.TakeAll()

		event := quote.NewQuoteStatusChangedEvent(q, quote.StatusDraft, nil)
		err := handler.Handle(context.Background(), event)
		require.NoError(t, err)

		entries := recorded.TakeAll()
		require.Len(t, entries, 1)

		fields := entries[0].ContextMap()
		assert.Equal(t, "quote.status_changed", fields["event_type"])
		assert.Equal(t, "draft", fields["from_status"])
	})

	t.Run("logs payment received with amounts", func(t *testing.T) {
		recorded.TakeAll()

		settings, err := document.NewSettings("EUR", decimal.NewFromInt(1), decimal.NewFromFloat(21), false)
		require.NoError(t, err)
		o, err := order.NewOrder("ORD2026010001ABCD", uuid.New(), settings, nil)
		require.NoError(t, err)
		_, err = o.AddLine(nil, document.LineInput{
			Description: "Office chairs",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.NewFromInt(100),
		})
		require.NoError(t, err)

		p, err := order.NewPayment("PAY2026010001ABCD", o.ID, decimal.NewFromInt(100), o.Currency, order.PaymentMethodBankTransfer, time.Now())
		require.NoError(t, err)

		event := order.NewOrderPaymentReceivedEvent(o, nil, p)
		err = handler.Handle(context.Background(), event)
		require.NoError(t, err)

		entries := recorded.TakeAll()
		require.Len(t, entries, 1)

		fields := entries[0].ContextMap()
		assert.Equal(t, "order.payment_received", fields["event_type"])
		assert.Equal(t, "Order", fields["aggregate_type"])
		assert.Equal(t, o.OrderNumber, fields["document_number"])
		assert.Equal(t, p.PaymentNumber, fields["payment_number"])
		assert.Equal(t, "100", fields["amount"])
		assert.Equal(t, "242", fields["amount_due"])
	})

	t.Run("logs conversion linkage", func(t *testing.T) {
		recorded.TakeAll()

		orderID := uuid.New()
		event := quote.NewQuoteConvertedEvent(q, orderID, "ORD2026010002EFGH", nil)
		err := handler.Handle(context.Background(), event)
		require.NoError(t, err)

		entries := recorded.TakeAll()
		require.Len(t, entries, 1)

		fields := entries[0].ContextMap()
		assert.Equal(t, "quote.converted", fields["event_type"])
		assert.Equal(t, orderID.String(), fields["order_id"])
		assert.Equal(t, "ORD2026010002EFGH", fields["order_number"])
	})
}
