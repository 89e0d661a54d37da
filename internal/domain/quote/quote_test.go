package quote

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesflow/backend/internal/domain/document"
	"github.com/salesflow/backend/internal/domain/shared"
)

// Test helpers
func createTestQuote(t *testing.T) *Quote {
	t.Helper()
	clientID := uuid.New()
	now := time.Now()
	q, err := NewQuote("QT2025080001ABCD", clientID, document.DefaultSettings(), now, now.AddDate(0, 0, 30), nil)
	require.NoError(t, err)
	return q
}

func addTestLine(t *testing.T, q *Quote, description string, quantity, price float64) *Line {
	t.Helper()
	line, err := q.AddLine(nil, document.LineInput{
		Description: description,
		Quantity:    decimal.NewFromFloat(quantity),
		UnitPrice:   decimal.NewFromFloat(price),
	})
	require.NoError(t, err)
	return line
}

func sentTestQuote(t *testing.T) *Quote {
	t.Helper()
	q := createTestQuote(t)
	addTestLine(t, q, "Widget", 1, 100)
	require.NoError(t, q.Send(nil))
	return q
}

// ============================================
// Status Tests
// ============================================

func TestStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  Status
		isValid bool
	}{
		{StatusDraft, true},
		{StatusPending, true},
		{StatusSent, true},
		{StatusViewed, true},
		{StatusNegotiation, true},
		{StatusAccepted, true},
		{StatusRejected, true},
		{StatusExpired, true},
		{StatusCancelled, true},
		{StatusConverted, true},
		{Status("INVALID"), false},
		{Status(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     Status
		to       Status
		canTrans bool
	}{
		// From draft
		{StatusDraft, StatusPending, true},
		{StatusDraft, StatusSent, true},
		{StatusDraft, StatusCancelled, true},
		{StatusDraft, StatusExpired, true},
		{StatusDraft, StatusAccepted, false},
		{StatusDraft, StatusViewed, false},
		{StatusDraft, StatusConverted, false},
		// From sent
		{StatusSent, StatusViewed, true},
		{StatusSent, StatusNegotiation, true},
		{StatusSent, StatusAccepted, true},
		{StatusSent, StatusRejected, true},
		{StatusSent, StatusExpired, true},
		{StatusSent, StatusDraft, false},
		// From viewed
		{StatusViewed, StatusAccepted, true},
		{StatusViewed, StatusRejected, true},
		{StatusViewed, StatusNegotiation, true},
		{StatusViewed, StatusSent, false},
		// From negotiation
		{StatusNegotiation, StatusAccepted, true},
		{StatusNegotiation, StatusRejected, true},
		{StatusNegotiation, StatusViewed, false},
		// From accepted
		{StatusAccepted, StatusConverted, true},
		{StatusAccepted, StatusExpired, true},
		{StatusAccepted, StatusCancelled, true},
		{StatusAccepted, StatusRejected, false},
		// Terminal statuses
		{StatusConverted, StatusDraft, false},
		{StatusConverted, StatusExpired, false},
		{StatusRejected, StatusAccepted, false},
		{StatusRejected, StatusExpired, false},
		{StatusExpired, StatusSent, false},
		{StatusCancelled, StatusDraft, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.canTrans, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	terminal := []Status{StatusRejected, StatusExpired, StatusCancelled, StatusConverted}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "%s should be terminal", s)
	}

	open := []Status{StatusDraft, StatusPending, StatusSent, StatusViewed, StatusNegotiation, StatusAccepted}
	for _, s := range open {
		assert.False(t, s.IsTerminal(), "%s should not be terminal", s)
	}

	assert.False(t, Status("INVALID").IsTerminal())
}

// ============================================
// NewQuote Tests
// ============================================

func TestNewQuote(t *testing.T) {
	clientID := uuid.New()
	now := time.Now()

	t.Run("creates quote with valid inputs", func(t *testing.T) {
		actor := uuid.New()
		q, err := NewQuote("QT2025080001ABCD", clientID, document.DefaultSettings(), now, now.AddDate(0, 0, 30), &actor)
		require.NoError(t, err)
		require.NotNil(t, q)

		assert.Equal(t, "QT2025080001ABCD", q.QuoteNumber)
		assert.Equal(t, clientID, q.ClientID)
		assert.Equal(t, StatusDraft, q.Status)
		assert.Equal(t, 1, q.Revision)
		assert.Equal(t, 1, q.GetVersion())
		assert.Equal(t, document.PriorityMedium, q.Priority)
		assert.Nil(t, q.ParentQuoteID)
		assert.Nil(t, q.SentAt)
		assert.Empty(t, q.Lines)
		require.NotNil(t, q.CreatedBy)
		assert.Equal(t, actor, *q.CreatedBy)
	})

	t.Run("publishes created event and change entry", func(t *testing.T) {
		q, err := NewQuote("QT2025080002ABCD", clientID, document.DefaultSettings(), now, now.AddDate(0, 0, 30), nil)
		require.NoError(t, err)

		events := q.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeQuoteCreated, events[0].EventType())

		changes := q.PendingChanges()
		require.Len(t, changes, 1)
		assert.Equal(t, document.ChangeCreated, changes[0].Action)
		assert.Equal(t, "draft", changes[0].ToStatus)
	})

	t.Run("fails with empty quote number", func(t *testing.T) {
		_, err := NewQuote("", clientID, document.DefaultSettings(), now, now.AddDate(0, 0, 30), nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("fails with nil client", func(t *testing.T) {
		_, err := NewQuote("QT2025080003ABCD", uuid.Nil, document.DefaultSettings(), now, now.AddDate(0, 0, 30), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "client_id")
	})

	t.Run("fails when valid_until is not after valid_from", func(t *testing.T) {
		_, err := NewQuote("QT2025080004ABCD", clientID, document.DefaultSettings(), now, now, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "valid_until")
	})
}

// ============================================
// Line management Tests
// ============================================

func TestQuote_AddLine(t *testing.T) {
	t.Run("adds lines with dense numbering", func(t *testing.T) {
		q := createTestQuote(t)

		first := addTestLine(t, q, "Widget", 2, 100)
		second := addTestLine(t, q, "Gadget", 1, 50)

		assert.Equal(t, 1, first.LineNumber)
		assert.Equal(t, 2, second.LineNumber)
		assert.Equal(t, 2, q.LineCount())
	})

	t.Run("fails once the quote is accepted", func(t *testing.T) {
		q := sentTestQuote(t)
		require.NoError(t, q.Accept(nil))

		_, err := q.AddLine(nil, document.LineInput{
			Description: "Late addition",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.NewFromInt(10),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrNotModifiable))
	})

	t.Run("propagates line validation errors", func(t *testing.T) {
		q := createTestQuote(t)

		_, err := q.AddLine(nil, document.LineInput{
			Description: "Bad",
			Quantity:    decimal.NewFromInt(-1),
			UnitPrice:   decimal.NewFromInt(10),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestQuote_UpdateLine(t *testing.T) {
	t.Run("updates an existing line", func(t *testing.T) {
		q := createTestQuote(t)
		addTestLine(t, q, "Widget", 2, 100)

		newQty := decimal.NewFromInt(5)
		err := q.UpdateLine(nil, 1, document.LinePatch{Quantity: &newQty})
		require.NoError(t, err)
		assert.True(t, q.GetLine(1).Quantity.Equal(newQty))
	})

	t.Run("fails for unknown line number", func(t *testing.T) {
		q := createTestQuote(t)
		addTestLine(t, q, "Widget", 2, 100)

		newQty := decimal.NewFromInt(5)
		err := q.UpdateLine(nil, 99, document.LinePatch{Quantity: &newQty})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestQuote_RemoveLine(t *testing.T) {
	q := createTestQuote(t)
	addTestLine(t, q, "First", 1, 10)
	addTestLine(t, q, "Second", 1, 20)
	addTestLine(t, q, "Third", 1, 30)

	require.NoError(t, q.RemoveLine(nil, 2))

	require.Equal(t, 2, q.LineCount())
	assert.Equal(t, "First", q.GetLine(1).Description)
	assert.Equal(t, "Third", q.GetLine(2).Description)
}

// ============================================
// Workflow Tests
// ============================================

func TestQuote_Send(t *testing.T) {
	t.Run("stamps sent_at and records the change", func(t *testing.T) {
		q := createTestQuote(t)
		addTestLine(t, q, "Widget", 1, 100)
		q.ClearPendingChanges()
		q.ClearDomainEvents()

		require.NoError(t, q.Send(nil))

		assert.Equal(t, StatusSent, q.Status)
		require.NotNil(t, q.SentAt)

		changes := q.PendingChanges()
		require.Len(t, changes, 1)
		assert.Equal(t, document.ChangeSent, changes[0].Action)
		assert.Equal(t, "draft", changes[0].FromStatus)
		assert.Equal(t, "sent", changes[0].ToStatus)

		events := q.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeQuoteSent, events[0].EventType())
	})

	t.Run("fails without lines", func(t *testing.T) {
		q := createTestQuote(t)
		err := q.Send(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line")
	})
}

func TestQuote_Accept(t *testing.T) {
	t.Run("accepts a sent quote", func(t *testing.T) {
		q := sentTestQuote(t)

		require.NoError(t, q.Accept(nil))

		assert.Equal(t, StatusAccepted, q.Status)
		assert.NotNil(t, q.AcceptedAt)
		assert.NotNil(t, q.RespondedAt)
	})

	t.Run("accepts from negotiation", func(t *testing.T) {
		q := sentTestQuote(t)
		require.NoError(t, q.StartNegotiation(nil))
		require.NoError(t, q.Accept(nil))
		assert.Equal(t, StatusAccepted, q.Status)
	})

	t.Run("rejects acceptance from draft with transition details", func(t *testing.T) {
		q := createTestQuote(t)
		addTestLine(t, q, "Widget", 1, 100)

		err := q.Accept(nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInvalidTransition))

		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "draft", domainErr.Detail("current"))
		assert.Equal(t, "accepted", domainErr.Detail("target"))
	})
}

func TestQuote_Reject(t *testing.T) {
	q := sentTestQuote(t)

	require.NoError(t, q.Reject(nil, "too expensive"))

	assert.Equal(t, StatusRejected, q.Status)
	assert.NotNil(t, q.RespondedAt)
	assert.Nil(t, q.AcceptedAt)
	assert.Contains(t, q.InternalNotes, "too expensive")
	assert.True(t, q.Status.IsTerminal())
}

func TestQuote_MarkViewed(t *testing.T) {
	q := sentTestQuote(t)

	require.NoError(t, q.MarkViewed(nil))

	assert.Equal(t, StatusViewed, q.Status)
	assert.NotNil(t, q.ViewedAt)

	// viewing twice is not a legal transition
	err := q.MarkViewed(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidTransition))
}

func TestQuote_Cancel(t *testing.T) {
	q := sentTestQuote(t)

	require.NoError(t, q.Cancel(nil, "client went silent"))

	assert.Equal(t, StatusCancelled, q.Status)
	assert.Contains(t, q.InternalNotes, "client went silent")
	assert.Error(t, q.Accept(nil))
}

// ============================================
// Expiry Tests
// ============================================

func TestQuote_ExpireIfDue(t *testing.T) {
	t.Run("no-op while the window is open", func(t *testing.T) {
		q := sentTestQuote(t)

		assert.False(t, q.ExpireIfDue(time.Now()))
		assert.Equal(t, StatusSent, q.Status)
		assert.Nil(t, q.ExpiredAt)
	})

	t.Run("expires after valid_until and is idempotent", func(t *testing.T) {
		q := sentTestQuote(t)
		after := q.ValidUntil.Add(24 * time.Hour)

		assert.True(t, q.ExpireIfDue(after))
		assert.Equal(t, StatusExpired, q.Status)
		require.NotNil(t, q.ExpiredAt)
		firstStamp := *q.ExpiredAt

		// second pass changes nothing
		assert.False(t, q.ExpireIfDue(after.Add(time.Hour)))
		assert.Equal(t, firstStamp, *q.ExpiredAt)
	})

	t.Run("expires accepted quotes that were never converted", func(t *testing.T) {
		q := sentTestQuote(t)
		require.NoError(t, q.Accept(nil))

		assert.True(t, q.ExpireIfDue(q.ValidUntil.Add(time.Hour)))
		assert.Equal(t, StatusExpired, q.Status)
	})

	t.Run("never expires terminal quotes", func(t *testing.T) {
		q := sentTestQuote(t)
		require.NoError(t, q.Reject(nil, "no"))

		assert.False(t, q.ExpireIfDue(q.ValidUntil.Add(time.Hour)))
		assert.Equal(t, StatusRejected, q.Status)
	})

	t.Run("exactly at valid_until is still open", func(t *testing.T) {
		q := sentTestQuote(t)
		assert.False(t, q.ExpireIfDue(q.ValidUntil))
	})
}

func TestQuote_IsExpired(t *testing.T) {
	q := sentTestQuote(t)

	assert.False(t, q.IsExpired(q.ValidUntil))
	assert.True(t, q.IsExpired(q.ValidUntil.Add(time.Second)))
	assert.Equal(t, 0, q.DaysUntilExpiry(q.ValidUntil.Add(time.Hour)))
	assert.Equal(t, 29, q.DaysUntilExpiry(q.ValidFrom.Add(12*time.Hour)))
}

// ============================================
// Validity Tests
// ============================================

func TestQuote_SetValidity(t *testing.T) {
	t.Run("extends the window", func(t *testing.T) {
		q := sentTestQuote(t)
		newUntil := q.ValidUntil.AddDate(0, 1, 0)

		require.NoError(t, q.SetValidity(q.ValidFrom, newUntil, nil))
		assert.Equal(t, newUntil, q.ValidUntil)
	})

	t.Run("rejects inverted windows", func(t *testing.T) {
		q := createTestQuote(t)
		err := q.SetValidity(q.ValidUntil, q.ValidFrom, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("rejects changes on terminal quotes", func(t *testing.T) {
		q := sentTestQuote(t)
		require.NoError(t, q.Reject(nil, ""))

		err := q.SetValidity(q.ValidFrom, q.ValidUntil.AddDate(0, 1, 0), nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrNotModifiable))
	})
}

// ============================================
// Totals Tests
// ============================================

func TestQuote_Totals(t *testing.T) {
	clientID := uuid.New()
	now := time.Now()
	settings, err := document.NewSettings("EUR", decimal.NewFromInt(1), decimal.NewFromInt(21), false)
	require.NoError(t, err)

	q, err := NewQuote("QT2025080010ABCD", clientID, settings, now, now.AddDate(0, 0, 30), nil)
	require.NoError(t, err)

	_, err = q.AddLine(nil, document.LineInput{
		Description:        "Widget",
		Quantity:           decimal.NewFromInt(2),
		UnitPrice:          decimal.NewFromInt(100),
		DiscountPercentage: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	totals := q.Totals().Rounded()
	assert.Equal(t, "180.00", totals.SubtotalExclTax.StringFixed(2))
	assert.Equal(t, "37.80", totals.TaxAmount.StringFixed(2))
	assert.Equal(t, "217.80", totals.TotalInclTax.StringFixed(2))
}

// ============================================
// Conversion Tests
// ============================================

func TestQuote_ConvertToOrder(t *testing.T) {
	t.Run("converts an accepted quote", func(t *testing.T) {
		q := sentTestQuote(t)
		addTestLineWhileSent(t, q)
		require.NoError(t, q.Accept(nil))

		o, err := q.ConvertToOrder("ORD2025080001WXYZ", nil)
		require.NoError(t, err)
		require.NotNil(t, o)

		assert.Equal(t, StatusConverted, q.Status)
		require.NotNil(t, q.ConvertedToOrderID)
		assert.Equal(t, o.ID, *q.ConvertedToOrderID)

		require.NotNil(t, o.QuoteID)
		assert.Equal(t, q.ID, *o.QuoteID)
		assert.Equal(t, q.ClientID, o.ClientID)
		assert.Equal(t, q.Currency, o.Currency)
		assert.True(t, o.IsDraft())
		assert.Equal(t, q.LineCount(), o.LineCount())

		// totals carry over through the copied lines
		assert.True(t, q.Totals().TotalInclTax.Equal(o.Totals().TotalInclTax))
	})

	t.Run("copied lines are independent", func(t *testing.T) {
		q := sentTestQuote(t)
		require.NoError(t, q.Accept(nil))

		o, err := q.ConvertToOrder("ORD2025080002WXYZ", nil)
		require.NoError(t, err)

		newQty := decimal.NewFromInt(42)
		require.NoError(t, o.UpdateLine(nil, 1, document.LinePatch{Quantity: &newQty}))

		assert.True(t, q.GetLine(1).Quantity.Equal(decimal.NewFromInt(1)))
		assert.True(t, o.GetLine(1).Quantity.Equal(newQty))
		assert.NotEqual(t, q.GetLine(1).ID, o.GetLine(1).ID)
	})

	t.Run("converts exactly once", func(t *testing.T) {
		q := sentTestQuote(t)
		require.NoError(t, q.Accept(nil))

		first, err := q.ConvertToOrder("ORD2025080003WXYZ", nil)
		require.NoError(t, err)

		_, err = q.ConvertToOrder("ORD2025080004WXYZ", nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrAlreadyConverted))

		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, first.ID.String(), domainErr.Detail("order_id"))
	})

	t.Run("rejects conversion before acceptance", func(t *testing.T) {
		q := sentTestQuote(t)

		_, err := q.ConvertToOrder("ORD2025080005WXYZ", nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInvalidTransition))
	})
}

// addTestLineWhileSent adds a second line through the still-open sent status.
func addTestLineWhileSent(t *testing.T, q *Quote) {
	t.Helper()
	_, err := q.AddLine(nil, document.LineInput{
		Description: "Second widget",
		Quantity:    decimal.NewFromInt(3),
		UnitPrice:   decimal.NewFromInt(50),
	})
	require.NoError(t, err)
}

// ============================================
// Revision Tests
// ============================================

func TestQuote_CreateRevision(t *testing.T) {
	t.Run("clones into a fresh draft", func(t *testing.T) {
		q := sentTestQuote(t)

		rev, err := q.CreateRevision("QT2025080020EFGH", nil)
		require.NoError(t, err)
		require.NotNil(t, rev)

		assert.Equal(t, StatusDraft, rev.Status)
		assert.Equal(t, q.Revision+1, rev.Revision)
		require.NotNil(t, rev.ParentQuoteID)
		assert.Equal(t, q.ID, *rev.ParentQuoteID)
		assert.NotEqual(t, q.ID, rev.ID)
		assert.Equal(t, "QT2025080020EFGH", rev.QuoteNumber)
		assert.Equal(t, 1, rev.GetVersion())

		// stamps start clean on the clone
		assert.Nil(t, rev.SentAt)
		assert.Nil(t, rev.AcceptedAt)
		assert.Nil(t, rev.ConvertedToOrderID)

		// the original is untouched
		assert.Equal(t, StatusSent, q.Status)
		assert.NotNil(t, q.SentAt)
		assert.Equal(t, 1, q.Revision)
	})

	t.Run("revision lines are deep copies", func(t *testing.T) {
		q := sentTestQuote(t)

		rev, err := q.CreateRevision("QT2025080021EFGH", nil)
		require.NoError(t, err)
		require.Equal(t, q.LineCount(), rev.LineCount())

		newQty := decimal.NewFromInt(99)
		require.NoError(t, rev.UpdateLine(nil, 1, document.LinePatch{Quantity: &newQty}))

		assert.True(t, q.GetLine(1).Quantity.Equal(decimal.NewFromInt(1)))
		assert.True(t, rev.GetLine(1).Quantity.Equal(newQty))
		assert.Equal(t, rev.ID, rev.GetLine(1).DocumentID)
	})

	t.Run("requires a distinct number", func(t *testing.T) {
		q := sentTestQuote(t)

		_, err := q.CreateRevision(q.QuoteNumber, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("records the revision on both sides", func(t *testing.T) {
		q := sentTestQuote(t)
		q.ClearPendingChanges()

		rev, err := q.CreateRevision("QT2025080022EFGH", nil)
		require.NoError(t, err)

		originalChanges := q.PendingChanges()
		require.Len(t, originalChanges, 1)
		assert.Equal(t, document.ChangeRevisionCreated, originalChanges[0].Action)

		revChanges := rev.PendingChanges()
		require.Len(t, revChanges, 1)
		assert.Equal(t, document.ChangeCreated, revChanges[0].Action)
	})
}

// ============================================
// Soft delete Tests
// ============================================

func TestQuote_SoftDelete(t *testing.T) {
	q := createTestQuote(t)
	actor := uuid.New()

	require.True(t, q.SoftDelete(&actor))
	assert.True(t, q.IsDeleted)
	assert.NotNil(t, q.DeletedAt)

	// idempotent, then reversible
	assert.False(t, q.SoftDelete(&actor))
	require.True(t, q.Restore(&actor))
	assert.False(t, q.IsDeleted)
	assert.Nil(t, q.DeletedAt)
}
