// Package quote implements the quotation aggregate: a priced offer
// with a validity window, a negotiation lifecycle, revisioning and a
// one-time conversion into a sales order.
package quote

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salesflow/backend/internal/domain/document"
	"github.com/salesflow/backend/internal/domain/order"
	"github.com/salesflow/backend/internal/domain/shared"
)

// Line is a single quote position.
type Line struct {
	document.Line
}

func (Line) TableName() string {
	return "quote_lines"
}

// Quote is the quotation aggregate root. Totals are always derived
// from the lines and settings. Expiry is derived from the validity
// window on access rather than by a background job.
type Quote struct {
	shared.AuditedAggregateRoot
	QuoteNumber   string     `gorm:"type:varchar(50);not null;uniqueIndex" json:"quote_number"`
	Reference     string     `gorm:"type:varchar(100)" json:"reference,omitempty"`
	Revision      int        `gorm:"not null;default:1" json:"revision"`
	ParentQuoteID *uuid.UUID `gorm:"type:uuid;index" json:"parent_quote_id,omitempty"`
	ClientID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"client_id"`
	ContactID     *uuid.UUID `gorm:"type:uuid" json:"contact_id,omitempty"`

	Status   Status            `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	Priority document.Priority `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`

	document.Settings

	ValidFrom  time.Time `gorm:"not null" json:"valid_from"`
	ValidUntil time.Time `gorm:"not null;index" json:"valid_until"`

	DeliveryAddressID *uuid.UUID `gorm:"type:uuid" json:"delivery_address_id,omitempty"`
	BillingAddressID  *uuid.UUID `gorm:"type:uuid" json:"billing_address_id,omitempty"`
	DeliveryDate      *time.Time `json:"delivery_date,omitempty"`

	PaymentTerms    string `gorm:"type:text" json:"payment_terms,omitempty"`
	DeliveryTerms   string `gorm:"type:text" json:"delivery_terms,omitempty"`
	InternalNotes   string `gorm:"type:text" json:"internal_notes,omitempty"`
	ClientNotes     string `gorm:"type:text" json:"client_notes,omitempty"`
	TermsConditions string `gorm:"type:text" json:"terms_conditions,omitempty"`

	SentAt      *time.Time `json:"sent_at,omitempty"`
	ViewedAt    *time.Time `json:"viewed_at,omitempty"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	ExpiredAt   *time.Time `json:"expired_at,omitempty"`

	ConvertedToOrderID *uuid.UUID `gorm:"type:uuid" json:"converted_to_order_id,omitempty"`

	Lines []Line `gorm:"foreignKey:DocumentID" json:"lines,omitempty"`

	pendingChanges []document.ChangeEntry `gorm:"-"`
}

func (Quote) TableName() string {
	return "quotes"
}

// NewQuote creates a draft quote for a client with the given validity
// window.
func NewQuote(quoteNumber string, clientID uuid.UUID, settings document.Settings, validFrom, validUntil time.Time, actor *uuid.UUID) (*Quote, error) {
	if quoteNumber == "" {
		return nil, shared.NewValidationError("quote_number", "cannot be empty")
	}
	if len(quoteNumber) > 50 {
		return nil, shared.NewValidationError("quote_number", "cannot exceed 50 characters")
	}
	if clientID == uuid.Nil {
		return nil, shared.NewValidationError("client_id", "cannot be empty")
	}
	if !validUntil.After(validFrom) {
		return nil, shared.NewValidationError("valid_until", "must be after valid_from")
	}

	q := &Quote{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(actor),
		QuoteNumber:          quoteNumber,
		Revision:             1,
		ClientID:             clientID,
		Status:               StatusDraft,
		Priority:             document.PriorityMedium,
		Settings:             settings,
		ValidFrom:            validFrom,
		ValidUntil:           validUntil,
		Lines:                make([]Line, 0),
	}
	q.recordChange(document.ChangeCreated, "", q.Status.String(), actor, "")
	q.AddDomainEvent(NewQuoteCreatedEvent(q, actor))
	return q, nil
}

func (q *Quote) recordChange(action document.ChangeAction, from, to string, actor *uuid.UUID, note string) {
	q.pendingChanges = append(q.pendingChanges,
		document.NewChangeEntry(document.TypeQuote, q.ID, action, from, to, actor, note))
}

// PendingChanges returns the change log entries accumulated since the
// aggregate was loaded. The repository persists them together with the
// quote and clears them afterwards.
func (q *Quote) PendingChanges() []document.ChangeEntry {
	return q.pendingChanges
}

func (q *Quote) ClearPendingChanges() {
	q.pendingChanges = nil
}

// --- attribute updates ---

func (q *Quote) SetReference(reference string, actor *uuid.UUID) {
	q.Reference = reference
	q.Touch(actor)
}

func (q *Quote) SetPriority(priority document.Priority, actor *uuid.UUID) error {
	if !priority.IsValid() {
		return shared.NewValidationError("priority", "unknown priority")
	}
	q.Priority = priority
	q.Touch(actor)
	return nil
}

func (q *Quote) SetContact(contactID *uuid.UUID, actor *uuid.UUID) {
	q.ContactID = contactID
	q.Touch(actor)
}

func (q *Quote) SetAddresses(deliveryAddressID, billingAddressID *uuid.UUID, actor *uuid.UUID) {
	q.DeliveryAddressID = deliveryAddressID
	q.BillingAddressID = billingAddressID
	q.Touch(actor)
}

func (q *Quote) SetDeliveryDate(deliveryDate *time.Time, actor *uuid.UUID) {
	q.DeliveryDate = deliveryDate
	q.Touch(actor)
}

func (q *Quote) SetTerms(paymentTerms, deliveryTerms string, actor *uuid.UUID) {
	q.PaymentTerms = paymentTerms
	q.DeliveryTerms = deliveryTerms
	q.Touch(actor)
}

func (q *Quote) SetNotes(internalNotes, clientNotes string, actor *uuid.UUID) {
	q.InternalNotes = internalNotes
	q.ClientNotes = clientNotes
	q.Touch(actor)
}

func (q *Quote) SetTermsConditions(termsConditions string, actor *uuid.UUID) {
	q.TermsConditions = termsConditions
	q.Touch(actor)
}

// SetValidity moves the validity window, typically to extend a quote
// during negotiation. Terminal quotes keep their window.
func (q *Quote) SetValidity(validFrom, validUntil time.Time, actor *uuid.UUID) error {
	if q.Status.IsTerminal() {
		return shared.ErrNotModifiable.WithDetail("status", q.Status.String())
	}
	if !validUntil.After(validFrom) {
		return shared.NewValidationError("valid_until", "must be after valid_from")
	}
	q.ValidFrom = validFrom
	q.ValidUntil = validUntil
	q.Touch(actor)
	return nil
}

// UpdateSettings replaces currency, exchange rate and tax settings.
// Settings drive the derived totals, so they freeze together with the
// lines.
func (q *Quote) UpdateSettings(settings document.Settings, actor *uuid.UUID) error {
	if !q.CanModifyLines() {
		return shared.ErrNotModifiable.WithDetail("status", q.Status.String())
	}
	q.Settings = settings
	q.Touch(actor)
	return nil
}

// --- line management ---

// CanModifyLines reports whether the line set is still open for
// changes. Accepted and terminal quotes are frozen.
func (q *Quote) CanModifyLines() bool {
	return q.Status.allowsLineChanges()
}

// AddLine appends a new line with the next dense line number.
func (q *Quote) AddLine(actor *uuid.UUID, in document.LineInput) (*Line, error) {
	if !q.CanModifyLines() {
		return nil, shared.ErrNotModifiable.WithDetail("status", q.Status.String())
	}
	base, err := document.NewLine(q.ID, len(q.Lines)+1, in)
	if err != nil {
		return nil, err
	}
	q.Lines = append(q.Lines, Line{Line: *base})
	q.Touch(actor)
	return &q.Lines[len(q.Lines)-1], nil
}

// UpdateLine applies a partial update to the line with the given
// number.
func (q *Quote) UpdateLine(actor *uuid.UUID, lineNumber int, patch document.LinePatch) error {
	if !q.CanModifyLines() {
		return shared.ErrNotModifiable.WithDetail("status", q.Status.String())
	}
	line := q.GetLine(lineNumber)
	if line == nil {
		return shared.ErrNotFound.WithDetail("line_number", strconv.Itoa(lineNumber))
	}
	if err := line.Apply(patch); err != nil {
		return err
	}
	q.Touch(actor)
	return nil
}

// RemoveLine deletes a line and renumbers the remainder so line
// numbers stay dense.
func (q *Quote) RemoveLine(actor *uuid.UUID, lineNumber int) error {
	if !q.CanModifyLines() {
		return shared.ErrNotModifiable.WithDetail("status", q.Status.String())
	}
	idx := -1
	for i := range q.Lines {
		if q.Lines[i].LineNumber == lineNumber {
			idx = i
			break
		}
	}
	if idx < 0 {
		return shared.ErrNotFound.WithDetail("line_number", strconv.Itoa(lineNumber))
	}
	q.Lines = append(q.Lines[:idx], q.Lines[idx+1:]...)
	for i := range q.Lines {
		q.Lines[i].LineNumber = i + 1
	}
	q.Touch(actor)
	return nil
}

// GetLine returns the line with the given number, or nil.
func (q *Quote) GetLine(lineNumber int) *Line {
	for i := range q.Lines {
		if q.Lines[i].LineNumber == lineNumber {
			return &q.Lines[i]
		}
	}
	return nil
}

func (q *Quote) LineCount() int {
	return len(q.Lines)
}

// --- status transitions ---

func (q *Quote) transitionTo(target Status) error {
	if !q.Status.CanTransitionTo(target) {
		return shared.NewInvalidTransition("quote", q.Status.String(), target.String())
	}
	q.Status = target
	return nil
}

// MarkPending flags a draft quote as awaiting internal approval before
// it goes out.
func (q *Quote) MarkPending(actor *uuid.UUID) error {
	from := q.Status
	if err := q.transitionTo(StatusPending); err != nil {
		return err
	}
	q.Touch(actor)
	q.recordChange(document.ChangeStatusChanged, from.String(), q.Status.String(), actor, "")
	q.AddDomainEvent(NewQuoteStatusChangedEvent(q, from, actor))
	return nil
}

// Send records that the quote went out to the client. A quote without
// lines cannot be sent.
func (q *Quote) Send(actor *uuid.UUID) error {
	if len(q.Lines) == 0 {
		return shared.NewValidationError("lines", "quote must have at least one line")
	}
	from := q.Status
	if err := q.transitionTo(StatusSent); err != nil {
		return err
	}
	now := time.Now()
	q.SentAt = &now
	q.Touch(actor)
	q.recordChange(document.ChangeSent, from.String(), q.Status.String(), actor, "")
	q.AddDomainEvent(NewQuoteSentEvent(q, actor))
	return nil
}

// MarkViewed records the first time the client opened the quote.
func (q *Quote) MarkViewed(actor *uuid.UUID) error {
	from := q.Status
	if err := q.transitionTo(StatusViewed); err != nil {
		return err
	}
	now := time.Now()
	q.ViewedAt = &now
	q.Touch(actor)
	q.recordChange(document.ChangeViewed, from.String(), q.Status.String(), actor, "")
	q.AddDomainEvent(NewQuoteViewedEvent(q, actor))
	return nil
}

// StartNegotiation marks the quote as under active negotiation.
func (q *Quote) StartNegotiation(actor *uuid.UUID) error {
	from := q.Status
	if err := q.transitionTo(StatusNegotiation); err != nil {
		return err
	}
	q.Touch(actor)
	q.recordChange(document.ChangeStatusChanged, from.String(), q.Status.String(), actor, "")
	q.AddDomainEvent(NewQuoteStatusChangedEvent(q, from, actor))
	return nil
}

// Accept records the client's acceptance. Only quotes that actually
// reached the client can be accepted.
func (q *Quote) Accept(actor *uuid.UUID) error {
	from := q.Status
	if err := q.transitionTo(StatusAccepted); err != nil {
		return err
	}
	now := time.Now()
	q.AcceptedAt = &now
	q.RespondedAt = &now
	q.Touch(actor)
	q.recordChange(document.ChangeAccepted, from.String(), q.Status.String(), actor, "")
	q.AddDomainEvent(NewQuoteAcceptedEvent(q, actor))
	return nil
}

// Reject records the client's rejection with a reason.
func (q *Quote) Reject(actor *uuid.UUID, reason string) error {
	from := q.Status
	if err := q.transitionTo(StatusRejected); err != nil {
		return err
	}
	now := time.Now()
	q.RespondedAt = &now
	if reason != "" {
		q.InternalNotes = prependNote(q.InternalNotes, "Rejection reason: "+reason)
	}
	q.Touch(actor)
	q.recordChange(document.ChangeRejected, from.String(), q.Status.String(), actor, reason)
	q.AddDomainEvent(NewQuoteRejectedEvent(q, actor, reason))
	return nil
}

// Cancel withdraws the quote internally with a reason.
func (q *Quote) Cancel(actor *uuid.UUID, reason string) error {
	from := q.Status
	if err := q.transitionTo(StatusCancelled); err != nil {
		return err
	}
	if reason != "" {
		q.InternalNotes = prependNote(q.InternalNotes, "Cancellation reason: "+reason)
	}
	q.Touch(actor)
	q.recordChange(document.ChangeCancelled, from.String(), q.Status.String(), actor, reason)
	q.AddDomainEvent(NewQuoteCancelledEvent(q, actor, reason))
	return nil
}

// ExpireIfDue moves the quote to expired when the validity window has
// passed. It reports whether a transition happened, so callers can
// persist the change. Calling it on an already expired or otherwise
// terminal quote is a no-op.
func (q *Quote) ExpireIfDue(now time.Time) bool {
	if q.Status.IsTerminal() {
		return false
	}
	if !now.After(q.ValidUntil) {
		return false
	}
	from := q.Status
	q.Status = StatusExpired
	if q.ExpiredAt == nil {
		expiredAt := now
		q.ExpiredAt = &expiredAt
	}
	q.Touch(nil)
	q.recordChange(document.ChangeExpired, from.String(), q.Status.String(), nil, "")
	q.AddDomainEvent(NewQuoteExpiredEvent(q))
	return true
}

// --- conversion and revisioning ---

// ConvertToOrder turns an accepted quote into a draft order carrying
// the same client, settings and lines. A quote converts at most once;
// the second attempt reports the existing order.
func (q *Quote) ConvertToOrder(orderNumber string, actor *uuid.UUID) (*order.Order, error) {
	if q.ConvertedToOrderID != nil {
		return nil, shared.ErrAlreadyConverted.
			WithDetail("order_id", q.ConvertedToOrderID.String())
	}
	if !q.Status.CanTransitionTo(StatusConverted) {
		return nil, shared.NewInvalidTransition("quote", q.Status.String(), StatusConverted.String())
	}

	o, err := order.NewOrder(orderNumber, q.ClientID, q.Settings, actor)
	if err != nil {
		return nil, err
	}
	o.QuoteID = &q.ID
	o.Reference = q.Reference
	o.ContactID = copyUUIDPtr(q.ContactID)
	o.Priority = q.Priority
	o.DeliveryAddressID = copyUUIDPtr(q.DeliveryAddressID)
	o.BillingAddressID = copyUUIDPtr(q.BillingAddressID)
	o.DeliveryDate = copyTimePtr(q.DeliveryDate)
	o.PaymentTerms = q.PaymentTerms
	o.InternalNotes = q.InternalNotes
	o.ClientNotes = q.ClientNotes

	for i := range q.Lines {
		if _, err := o.AddLine(actor, lineInput(&q.Lines[i].Line)); err != nil {
			return nil, err
		}
	}

	from := q.Status
	q.Status = StatusConverted
	q.ConvertedToOrderID = &o.ID
	q.Touch(actor)
	q.recordChange(document.ChangeConverted, from.String(), q.Status.String(), actor, orderNumber)
	q.AddDomainEvent(NewQuoteConvertedEvent(q, o.ID, orderNumber, actor))
	return o, nil
}

// CreateRevision clones the quote into a fresh draft with a bumped
// revision number. The original keeps its status, lines and stamps;
// the clone starts clean with copies of the lines.
func (q *Quote) CreateRevision(newNumber string, actor *uuid.UUID) (*Quote, error) {
	if newNumber == "" {
		return nil, shared.NewValidationError("quote_number", "cannot be empty")
	}
	if newNumber == q.QuoteNumber {
		return nil, shared.NewValidationError("quote_number", "revision needs a new quote number")
	}

	rev := &Quote{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(actor),
		QuoteNumber:          newNumber,
		Reference:            q.Reference,
		Revision:             q.Revision + 1,
		ParentQuoteID:        &q.ID,
		ClientID:             q.ClientID,
		ContactID:            copyUUIDPtr(q.ContactID),
		Status:               StatusDraft,
		Priority:             q.Priority,
		Settings:             q.Settings,
		ValidFrom:            q.ValidFrom,
		ValidUntil:           q.ValidUntil,
		DeliveryAddressID:    copyUUIDPtr(q.DeliveryAddressID),
		BillingAddressID:     copyUUIDPtr(q.BillingAddressID),
		DeliveryDate:         copyTimePtr(q.DeliveryDate),
		PaymentTerms:         q.PaymentTerms,
		DeliveryTerms:        q.DeliveryTerms,
		InternalNotes:        q.InternalNotes,
		ClientNotes:          q.ClientNotes,
		TermsConditions:      q.TermsConditions,
		Lines:                make([]Line, len(q.Lines)),
	}
	for i := range q.Lines {
		rev.Lines[i] = Line{Line: q.Lines[i].CopyTo(rev.ID)}
	}

	q.recordChange(document.ChangeRevisionCreated, q.Status.String(), q.Status.String(), actor, newNumber)
	q.AddDomainEvent(NewQuoteRevisionCreatedEvent(q, rev, actor))
	rev.recordChange(document.ChangeCreated, "", rev.Status.String(), actor, "revision of "+q.QuoteNumber)
	rev.AddDomainEvent(NewQuoteCreatedEvent(rev, actor))
	return rev, nil
}

// --- derived amounts ---

// Totals computes the document totals from the lines and tax settings.
func (q *Quote) Totals() document.Totals {
	return document.Calculate(q.docLines(), q.Settings, decimal.Zero)
}

// TotalCost sums quantity times cost price over the lines that carry a
// cost price.
func (q *Quote) TotalCost() decimal.Decimal {
	return document.TotalCost(q.docLines())
}

// TotalProfit sums the per-line profit.
func (q *Quote) TotalProfit() decimal.Decimal {
	return document.TotalProfit(q.docLines())
}

// ProfitMargin is the profit relative to total cost in percent, zero
// when no cost prices are known.
func (q *Quote) ProfitMargin() decimal.Decimal {
	return document.ProfitMargin(q.docLines(), q.Settings)
}

func (q *Quote) docLines() []document.Line {
	lines := make([]document.Line, len(q.Lines))
	for i := range q.Lines {
		lines[i] = q.Lines[i].Line
	}
	return lines
}

// --- queries ---

// IsExpired reports whether the validity window has passed, regardless
// of status.
func (q *Quote) IsExpired(now time.Time) bool {
	return now.After(q.ValidUntil)
}

// EffectiveStatus is the status as of now: a non-terminal quote past
// its validity window reads as expired even before the stored status
// catches up.
func (q *Quote) EffectiveStatus(now time.Time) Status {
	if !q.Status.IsTerminal() && q.IsExpired(now) {
		return StatusExpired
	}
	return q.Status
}

// DaysUntilExpiry is the number of whole days before the quote
// expires, zero when already expired.
func (q *Quote) DaysUntilExpiry(now time.Time) int {
	if q.IsExpired(now) {
		return 0
	}
	return int(q.ValidUntil.Sub(now).Hours() / 24)
}

// IsConvertible reports whether the quote can still be turned into an
// order.
func (q *Quote) IsConvertible() bool {
	return q.Status == StatusAccepted && q.ConvertedToOrderID == nil
}

// IsDraft reports whether the quote is still in draft.
func (q *Quote) IsDraft() bool {
	return q.Status == StatusDraft
}

// SoftDelete hides the quote and logs the removal. Shadows the embedded
// audit method so deletions always reach the change log.
func (q *Quote) SoftDelete(actor *uuid.UUID) bool {
	if !q.AuditedAggregateRoot.SoftDelete(actor) {
		return false
	}
	q.recordChange(document.ChangeDeleted, q.Status.String(), q.Status.String(), actor, "")
	return true
}

// Restore brings a soft-deleted quote back into the active set.
func (q *Quote) Restore(actor *uuid.UUID) bool {
	if !q.AuditedAggregateRoot.Restore(actor) {
		return false
	}
	q.recordChange(document.ChangeRestored, q.Status.String(), q.Status.String(), actor, "")
	return true
}

func lineInput(l *document.Line) document.LineInput {
	in := document.LineInput{
		Kind:               l.Kind,
		ProductID:          copyUUIDPtr(l.ProductID),
		ServiceID:          copyUUIDPtr(l.ServiceID),
		Description:        l.Description,
		Specification:      l.Specification,
		Quantity:           l.Quantity,
		Unit:               l.Unit,
		UnitPrice:          l.UnitPrice,
		DiscountPercentage: l.DiscountPercentage,
		Notes:              l.Notes,
	}
	if l.CostPrice != nil {
		cost := *l.CostPrice
		in.CostPrice = &cost
	}
	if l.TaxRate != nil {
		rate := *l.TaxRate
		in.TaxRate = &rate
	}
	return in
}

func copyUUIDPtr(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func copyTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func prependNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return note + "\n" + existing
}
