// Package order implements the sales order aggregate: fulfillment
// status, per-line delivery tracking and payment settlement against
// the derived document totals.
package order

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salesflow/backend/internal/domain/document"
	"github.com/salesflow/backend/internal/domain/shared"
)

// Line is a single order position. It carries the shared document line
// plus fulfillment state: how much of the ordered quantity has been
// delivered and where the goods are picked from.
type Line struct {
	document.Line
	StockLocation     string          `gorm:"type:varchar(100)" json:"stock_location,omitempty"`
	BatchNumber       string          `gorm:"type:varchar(100)" json:"batch_number,omitempty"`
	SerialNumber      string          `gorm:"type:varchar(100)" json:"serial_number,omitempty"`
	DeliveredQuantity decimal.Decimal `gorm:"type:decimal(10,3);not null;default:0" json:"delivered_quantity"`
	IsDelivered       bool            `gorm:"not null;default:false" json:"is_delivered"`
	DeliveryDate      *time.Time      `json:"delivery_date,omitempty"`
}

func (Line) TableName() string {
	return "order_lines"
}

// RemainingQuantity is the ordered quantity not yet delivered.
func (l *Line) RemainingQuantity() decimal.Decimal {
	return l.Quantity.Sub(l.DeliveredQuantity)
}

// IsFullyDelivered reports whether the entire ordered quantity has
// been delivered.
func (l *Line) IsFullyDelivered() bool {
	return l.DeliveredQuantity.GreaterThanOrEqual(l.Quantity)
}

// recordDelivery adds quantity to the delivered amount. Deliveries can
// never exceed the ordered quantity; over-delivery is rejected rather
// than clamped so the caller can correct the input.
func (l *Line) recordDelivery(quantity decimal.Decimal, deliveredAt time.Time) error {
	if !quantity.IsPositive() {
		return shared.NewValidationError("quantity", "must be positive")
	}
	if quantity.GreaterThan(l.RemainingQuantity()) {
		return shared.NewValidationError("quantity", "exceeds remaining quantity").
			WithDetail("remaining", l.RemainingQuantity().String())
	}
	l.DeliveredQuantity = l.DeliveredQuantity.Add(quantity)
	l.DeliveryDate = &deliveredAt
	if l.IsFullyDelivered() {
		l.IsDelivered = true
	}
	l.UpdatedAt = time.Now()
	return nil
}

// Order is the sales order aggregate root. Totals are always derived
// from the lines and settings, never stored; the payment status is
// recomputed from the completed payments.
type Order struct {
	shared.AuditedAggregateRoot
	OrderNumber string     `gorm:"type:varchar(50);not null;uniqueIndex" json:"order_number"`
	Reference   string     `gorm:"type:varchar(100)" json:"reference,omitempty"`
	QuoteID     *uuid.UUID `gorm:"type:uuid;index" json:"quote_id,omitempty"`
	ClientID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"client_id"`
	ContactID   *uuid.UUID `gorm:"type:uuid" json:"contact_id,omitempty"`

	Status   Status            `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	Priority document.Priority `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`

	document.Settings

	PaymentStatus  PaymentStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status"`
	PaymentMethod  PaymentMethod   `gorm:"type:varchar(50)" json:"payment_method,omitempty"`
	PaymentTerms   string          `gorm:"type:text" json:"payment_terms,omitempty"`
	PaymentDueDate *time.Time      `json:"payment_due_date,omitempty"`
	ShippingCosts  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"shipping_costs"`
	ShippingMethod string          `gorm:"type:varchar(100)" json:"shipping_method,omitempty"`
	TrackingNumber string          `gorm:"type:varchar(100)" json:"tracking_number,omitempty"`

	DeliveryAddressID  *uuid.UUID `gorm:"type:uuid" json:"delivery_address_id,omitempty"`
	BillingAddressID   *uuid.UUID `gorm:"type:uuid" json:"billing_address_id,omitempty"`
	DeliveryDate       *time.Time `json:"delivery_date,omitempty"`
	ActualDeliveryDate *time.Time `json:"actual_delivery_date,omitempty"`

	InternalNotes string `gorm:"type:text" json:"internal_notes,omitempty"`
	ClientNotes   string `gorm:"type:text" json:"client_notes,omitempty"`

	ConfirmedAt         *time.Time `json:"confirmed_at,omitempty"`
	ProcessingStartedAt *time.Time `json:"processing_started_at,omitempty"`
	ShippedAt           *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt         *time.Time `json:"delivered_at,omitempty"`
	CancelledAt         *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`

	Lines    []Line    `gorm:"foreignKey:DocumentID" json:"lines,omitempty"`
	Payments []Payment `gorm:"foreignKey:OrderID" json:"payments,omitempty"`

	pendingChanges []document.ChangeEntry `gorm:"-"`
}

func (Order) TableName() string {
	return "orders"
}

// NewOrder creates a draft order for a client. Lines are added
// afterwards; the order cannot be confirmed while empty.
func NewOrder(orderNumber string, clientID uuid.UUID, settings document.Settings, actor *uuid.UUID) (*Order, error) {
	if orderNumber == "" {
		return nil, shared.NewValidationError("order_number", "cannot be empty")
	}
	if len(orderNumber) > 50 {
		return nil, shared.NewValidationError("order_number", "cannot exceed 50 characters")
	}
	if clientID == uuid.Nil {
		return nil, shared.NewValidationError("client_id", "cannot be empty")
	}

	o := &Order{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(actor),
		OrderNumber:          orderNumber,
		ClientID:             clientID,
		Status:               StatusDraft,
		Priority:             document.PriorityMedium,
		Settings:             settings,
		PaymentStatus:        PaymentStatusPending,
		ShippingCosts:        decimal.Zero,
		Lines:                make([]Line, 0),
		Payments:             make([]Payment, 0),
	}
	o.recordChange(document.ChangeCreated, "", o.Status.String(), actor, "")
	o.AddDomainEvent(NewOrderCreatedEvent(o, actor))
	return o, nil
}

func (o *Order) recordChange(action document.ChangeAction, from, to string, actor *uuid.UUID, note string) {
	o.pendingChanges = append(o.pendingChanges,
		document.NewChangeEntry(document.TypeOrder, o.ID, action, from, to, actor, note))
}

// PendingChanges returns the change log entries accumulated since the
// aggregate was loaded. The repository persists them together with the
// order and clears them afterwards.
func (o *Order) PendingChanges() []document.ChangeEntry {
	return o.pendingChanges
}

func (o *Order) ClearPendingChanges() {
	o.pendingChanges = nil
}

// --- attribute updates ---

func (o *Order) SetReference(reference string, actor *uuid.UUID) {
	o.Reference = reference
	o.Touch(actor)
}

func (o *Order) SetPriority(priority document.Priority, actor *uuid.UUID) error {
	if !priority.IsValid() {
		return shared.NewValidationError("priority", "unknown priority")
	}
	o.Priority = priority
	o.Touch(actor)
	return nil
}

func (o *Order) SetContact(contactID *uuid.UUID, actor *uuid.UUID) {
	o.ContactID = contactID
	o.Touch(actor)
}

func (o *Order) SetAddresses(deliveryAddressID, billingAddressID *uuid.UUID, actor *uuid.UUID) {
	o.DeliveryAddressID = deliveryAddressID
	o.BillingAddressID = billingAddressID
	o.Touch(actor)
}

func (o *Order) SetPaymentTerms(terms string, dueDate *time.Time, actor *uuid.UUID) {
	o.PaymentTerms = terms
	o.PaymentDueDate = dueDate
	o.Touch(actor)
}

func (o *Order) SetPaymentMethod(method PaymentMethod, actor *uuid.UUID) error {
	if method != "" && !method.IsValid() {
		return shared.NewValidationError("payment_method", "unknown payment method")
	}
	o.PaymentMethod = method
	o.Touch(actor)
	return nil
}

// SetShipping updates shipping costs and method. Shipping costs are
// added on top of the taxed document total, so they can be corrected
// until the order ships.
func (o *Order) SetShipping(costs decimal.Decimal, method string, actor *uuid.UUID) error {
	if costs.IsNegative() {
		return shared.NewValidationError("shipping_costs", "cannot be negative")
	}
	if o.ShippedAt != nil {
		return shared.ErrNotModifiable.WithDetail("status", o.Status.String())
	}
	o.ShippingCosts = costs
	o.ShippingMethod = method
	o.Touch(actor)
	return nil
}

func (o *Order) SetNotes(internalNotes, clientNotes string, actor *uuid.UUID) {
	o.InternalNotes = internalNotes
	o.ClientNotes = clientNotes
	o.Touch(actor)
}

func (o *Order) SetDeliveryDate(deliveryDate *time.Time, actor *uuid.UUID) {
	o.DeliveryDate = deliveryDate
	o.Touch(actor)
}

func (o *Order) SetTrackingNumber(trackingNumber string, actor *uuid.UUID) {
	o.TrackingNumber = trackingNumber
	o.Touch(actor)
}

// UpdateSettings replaces currency, exchange rate and tax settings.
// Settings drive the derived totals, so they freeze together with the
// lines.
func (o *Order) UpdateSettings(settings document.Settings, actor *uuid.UUID) error {
	if !o.CanModifyLines() {
		return shared.ErrNotModifiable.WithDetail("status", o.Status.String())
	}
	o.Settings = settings
	o.Touch(actor)
	return nil
}

// --- line management ---

// CanModifyLines reports whether the line set is still open for
// changes.
func (o *Order) CanModifyLines() bool {
	return o.Status.allowsLineChanges()
}

// AddLine appends a new line with the next dense line number.
func (o *Order) AddLine(actor *uuid.UUID, in document.LineInput) (*Line, error) {
	if !o.CanModifyLines() {
		return nil, shared.ErrNotModifiable.WithDetail("status", o.Status.String())
	}
	base, err := document.NewLine(o.ID, len(o.Lines)+1, in)
	if err != nil {
		return nil, err
	}
	line := Line{Line: *base, DeliveredQuantity: decimal.Zero}
	o.Lines = append(o.Lines, line)
	o.Touch(actor)
	return &o.Lines[len(o.Lines)-1], nil
}

// UpdateLine applies a partial update to the line with the given
// number.
func (o *Order) UpdateLine(actor *uuid.UUID, lineNumber int, patch document.LinePatch) error {
	if !o.CanModifyLines() {
		return shared.ErrNotModifiable.WithDetail("status", o.Status.String())
	}
	line := o.GetLine(lineNumber)
	if line == nil {
		return shared.ErrNotFound.WithDetail("line_number", itoa(lineNumber))
	}
	if err := line.Apply(patch); err != nil {
		return err
	}
	o.Touch(actor)
	return nil
}

// RemoveLine deletes a line and renumbers the remainder so line
// numbers stay dense.
func (o *Order) RemoveLine(actor *uuid.UUID, lineNumber int) error {
	if !o.CanModifyLines() {
		return shared.ErrNotModifiable.WithDetail("status", o.Status.String())
	}
	idx := -1
	for i := range o.Lines {
		if o.Lines[i].LineNumber == lineNumber {
			idx = i
			break
		}
	}
	if idx < 0 {
		return shared.ErrNotFound.WithDetail("line_number", itoa(lineNumber))
	}
	o.Lines = append(o.Lines[:idx], o.Lines[idx+1:]...)
	renumberLines(o.Lines)
	o.Touch(actor)
	return nil
}

// SetLineStock records warehouse details for a line. Nil fields are
// left untouched. Picking happens during processing, so stock details
// stay editable until the order reaches a terminal state.
func (o *Order) SetLineStock(actor *uuid.UUID, lineNumber int, location, batchNumber, serialNumber *string) error {
	if o.Status.IsTerminal() {
		return shared.ErrNotModifiable.WithDetail("status", o.Status.String())
	}
	line := o.GetLine(lineNumber)
	if line == nil {
		return shared.ErrNotFound.WithDetail("line_number", itoa(lineNumber))
	}
	if location != nil {
		line.StockLocation = *location
	}
	if batchNumber != nil {
		line.BatchNumber = *batchNumber
	}
	if serialNumber != nil {
		line.SerialNumber = *serialNumber
	}
	line.UpdatedAt = time.Now()
	o.Touch(actor)
	return nil
}

// GetLine returns the line with the given number, or nil.
func (o *Order) GetLine(lineNumber int) *Line {
	for i := range o.Lines {
		if o.Lines[i].LineNumber == lineNumber {
			return &o.Lines[i]
		}
	}
	return nil
}

func (o *Order) LineCount() int {
	return len(o.Lines)
}

// --- status transitions ---

func (o *Order) transitionTo(target Status) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewInvalidTransition("order", o.Status.String(), target.String())
	}
	o.Status = target
	return nil
}

// Confirm moves a draft order into the confirmed state. An order
// without lines cannot be confirmed.
func (o *Order) Confirm(actor *uuid.UUID) error {
	if len(o.Lines) == 0 {
		return shared.NewValidationError("lines", "order must have at least one line")
	}
	from := o.Status
	if err := o.transitionTo(StatusConfirmed); err != nil {
		return err
	}
	now := time.Now()
	o.ConfirmedAt = &now
	o.Touch(actor)
	o.recordChange(document.ChangeConfirmed, from.String(), o.Status.String(), actor, "")
	o.AddDomainEvent(NewOrderConfirmedEvent(o, actor))
	return nil
}

// StartProcessing marks the order as being picked and prepared.
func (o *Order) StartProcessing(actor *uuid.UUID) error {
	from := o.Status
	if err := o.transitionTo(StatusProcessing); err != nil {
		return err
	}
	now := time.Now()
	o.ProcessingStartedAt = &now
	o.Touch(actor)
	o.recordChange(document.ChangeStatusChanged, from.String(), o.Status.String(), actor, "")
	o.AddDomainEvent(NewOrderProcessingStartedEvent(o, actor))
	return nil
}

// MarkReadyForShipment flags a processed order as packed and waiting
// for carrier pickup.
func (o *Order) MarkReadyForShipment(actor *uuid.UUID) error {
	from := o.Status
	if err := o.transitionTo(StatusReadyForShipment); err != nil {
		return err
	}
	o.Touch(actor)
	o.recordChange(document.ChangeStatusChanged, from.String(), o.Status.String(), actor, "")
	o.AddDomainEvent(NewOrderReadyForShipmentEvent(o, actor))
	return nil
}

// Ship records the handover to the carrier, optionally with a tracking
// number.
func (o *Order) Ship(actor *uuid.UUID, trackingNumber string) error {
	from := o.Status
	if err := o.transitionTo(StatusShipped); err != nil {
		return err
	}
	now := time.Now()
	o.ShippedAt = &now
	if trackingNumber != "" {
		o.TrackingNumber = trackingNumber
	}
	o.Touch(actor)
	o.recordChange(document.ChangeShipped, from.String(), o.Status.String(), actor, trackingNumber)
	o.AddDomainEvent(NewOrderShippedEvent(o, actor, trackingNumber))
	return nil
}

// MarkDelivered records arrival at the client. Line-level delivery
// quantities are tracked separately and are not forced by this
// transition.
func (o *Order) MarkDelivered(actor *uuid.UUID, deliveredAt time.Time) error {
	from := o.Status
	if err := o.transitionTo(StatusDelivered); err != nil {
		return err
	}
	o.DeliveredAt = &deliveredAt
	o.ActualDeliveryDate = &deliveredAt
	o.Touch(actor)
	o.recordChange(document.ChangeDelivered, from.String(), o.Status.String(), actor, "")
	o.AddDomainEvent(NewOrderDeliveredEvent(o, actor))
	return nil
}

// MarkPartiallyDelivered records that only part of the shipment
// arrived.
func (o *Order) MarkPartiallyDelivered(actor *uuid.UUID) error {
	from := o.Status
	if err := o.transitionTo(StatusPartiallyDelivered); err != nil {
		return err
	}
	o.Touch(actor)
	o.recordChange(document.ChangeStatusChanged, from.String(), o.Status.String(), actor, "")
	o.AddDomainEvent(NewOrderPartiallyDeliveredEvent(o, actor))
	return nil
}

// Complete closes a delivered order. Completion requires the order to
// be fully paid; the outstanding amount is reported back otherwise.
func (o *Order) Complete(actor *uuid.UUID) error {
	due := o.AmountDue()
	if due.IsPositive() {
		return shared.ErrPaymentIncomplete.
			WithDetail("amount_due", due.StringFixed(2)).
			WithDetail("currency", string(o.Currency))
	}
	from := o.Status
	if err := o.transitionTo(StatusCompleted); err != nil {
		return err
	}
	now := time.Now()
	o.CompletedAt = &now
	o.Touch(actor)
	o.recordChange(document.ChangeCompleted, from.String(), o.Status.String(), actor, "")
	o.AddDomainEvent(NewOrderCompletedEvent(o, actor))
	return nil
}

// Cancel aborts the order with a reason. Completed and refunded orders
// cannot be cancelled anymore.
func (o *Order) Cancel(actor *uuid.UUID, reason string) error {
	from := o.Status
	if err := o.transitionTo(StatusCancelled); err != nil {
		return err
	}
	now := time.Now()
	o.CancelledAt = &now
	if reason != "" {
		o.InternalNotes = appendNote(o.InternalNotes, "Cancellation reason: "+reason)
	}
	o.Touch(actor)
	o.recordChange(document.ChangeCancelled, from.String(), o.Status.String(), actor, reason)
	o.AddDomainEvent(NewOrderCancelledEvent(o, actor, reason))
	return nil
}

// Refund reverses a delivered or completed order. Individual payment
// records are refunded separately; this marks the order-level outcome.
func (o *Order) Refund(actor *uuid.UUID, reason string) error {
	from := o.Status
	if err := o.transitionTo(StatusRefunded); err != nil {
		return err
	}
	o.PaymentStatus = PaymentStatusRefunded
	if reason != "" {
		o.InternalNotes = appendNote(o.InternalNotes, "Refund reason: "+reason)
	}
	o.Touch(actor)
	o.recordChange(document.ChangeRefunded, from.String(), o.Status.String(), actor, reason)
	o.AddDomainEvent(NewOrderRefundedEvent(o, actor, reason))
	return nil
}

// --- delivery tracking ---

// MarkLineDelivered records a delivery against a single line. A nil
// quantity delivers the full remaining amount. The returned flag tells
// the caller whether every line is now fully delivered, so the order
// level transition can be offered without being forced.
func (o *Order) MarkLineDelivered(actor *uuid.UUID, lineNumber int, quantity *decimal.Decimal, deliveredAt time.Time) (bool, error) {
	if o.Status != StatusShipped && o.Status != StatusPartiallyDelivered && o.Status != StatusDelivered {
		return false, shared.NewInvalidTransition("order", o.Status.String(), "line delivery").
			WithDetail("line_number", itoa(lineNumber))
	}
	line := o.GetLine(lineNumber)
	if line == nil {
		return false, shared.ErrNotFound.WithDetail("line_number", itoa(lineNumber))
	}
	qty := line.RemainingQuantity()
	if quantity != nil {
		qty = *quantity
	}
	if err := line.recordDelivery(qty, deliveredAt); err != nil {
		return false, err
	}
	o.Touch(actor)
	o.recordChange(document.ChangeLineDelivered, o.Status.String(), o.Status.String(), actor,
		"line "+itoa(lineNumber)+": "+qty.String()+" "+line.Unit)
	o.AddDomainEvent(NewOrderLineDeliveredEvent(o, actor, lineNumber, qty))
	return o.AllLinesDelivered(), nil
}

// AllLinesDelivered reports whether every line has been delivered in
// full. An order without lines is never considered delivered.
func (o *Order) AllLinesDelivered() bool {
	if len(o.Lines) == 0 {
		return false
	}
	for i := range o.Lines {
		if !o.Lines[i].IsFullyDelivered() {
			return false
		}
	}
	return true
}

// --- payments ---

// AddPayment attaches a payment record to the order and recomputes the
// payment status. Cancelled and refunded orders no longer accept
// payments.
func (o *Order) AddPayment(p *Payment, actor *uuid.UUID) error {
	if o.Status == StatusCancelled || o.Status == StatusRefunded {
		return shared.NewValidationError("status", "order no longer accepts payments").
			WithDetail("status", o.Status.String())
	}
	if p.OrderID != o.ID {
		return shared.NewValidationError("order_id", "payment belongs to a different order")
	}
	if p.Currency != o.Currency {
		return shared.NewValidationError("currency", "payment currency must match order currency").
			WithDetail("order_currency", string(o.Currency)).
			WithDetail("payment_currency", string(p.Currency))
	}
	o.Payments = append(o.Payments, *p)
	o.RecalculatePaymentStatus(time.Now())
	o.Touch(actor)
	if p.IsCompleted() {
		o.recordChange(document.ChangePaymentReceived, o.Status.String(), o.Status.String(), actor,
			p.PaymentNumber+": "+p.Amount.StringFixed(2)+" "+string(p.Currency))
		o.AddDomainEvent(NewOrderPaymentReceivedEvent(o, actor, p))
	}
	return nil
}

// CompletePayment marks a pending or processing payment as received
// and recomputes the payment status.
func (o *Order) CompletePayment(paymentID uuid.UUID, receivedAt time.Time, actor *uuid.UUID) error {
	p := o.getPayment(paymentID)
	if p == nil {
		return shared.ErrNotFound.WithDetail("payment_id", paymentID.String())
	}
	if err := p.Complete(receivedAt); err != nil {
		return err
	}
	o.RecalculatePaymentStatus(time.Now())
	o.Touch(actor)
	o.recordChange(document.ChangePaymentReceived, o.Status.String(), o.Status.String(), actor,
		p.PaymentNumber+": "+p.Amount.StringFixed(2)+" "+string(p.Currency))
	o.AddDomainEvent(NewOrderPaymentReceivedEvent(o, actor, p))
	return nil
}

// FailPayment records a failed settlement attempt. If nothing has been
// paid yet the order-level payment status reflects the failure.
func (o *Order) FailPayment(paymentID uuid.UUID, reason string, actor *uuid.UUID) error {
	p := o.getPayment(paymentID)
	if p == nil {
		return shared.ErrNotFound.WithDetail("payment_id", paymentID.String())
	}
	if err := p.Fail(reason); err != nil {
		return err
	}
	if !o.AmountPaid().IsPositive() {
		o.PaymentStatus = PaymentStatusFailed
	}
	o.Touch(actor)
	return nil
}

// RefundPayment reverses a single completed payment and recomputes the
// payment status from the remaining completed payments.
func (o *Order) RefundPayment(paymentID uuid.UUID, reason string, actor *uuid.UUID) error {
	p := o.getPayment(paymentID)
	if p == nil {
		return shared.ErrNotFound.WithDetail("payment_id", paymentID.String())
	}
	if err := p.Refund(reason); err != nil {
		return err
	}
	o.RecalculatePaymentStatus(time.Now())
	o.Touch(actor)
	return nil
}

// MarkPaymentProcessing flags a pending payment as in flight with the
// gateway, storing the transaction reference.
func (o *Order) MarkPaymentProcessing(paymentID uuid.UUID, transactionID string, actor *uuid.UUID) error {
	p := o.getPayment(paymentID)
	if p == nil {
		return shared.ErrNotFound.WithDetail("payment_id", paymentID.String())
	}
	if err := p.MarkProcessing(transactionID); err != nil {
		return err
	}
	o.Touch(actor)
	return nil
}

// CancelPayment abandons a pending or processing payment. Cancelled
// payments never count towards the amount paid, so they leave the
// payment status alone.
func (o *Order) CancelPayment(paymentID uuid.UUID, actor *uuid.UUID) error {
	p := o.getPayment(paymentID)
	if p == nil {
		return shared.ErrNotFound.WithDetail("payment_id", paymentID.String())
	}
	if err := p.Cancel(); err != nil {
		return err
	}
	o.Touch(actor)
	return nil
}

func (o *Order) getPayment(paymentID uuid.UUID) *Payment {
	for i := range o.Payments {
		if o.Payments[i].ID == paymentID {
			return &o.Payments[i]
		}
	}
	return nil
}

// AmountPaid sums the completed payments.
func (o *Order) AmountPaid() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Payments {
		if o.Payments[i].IsCompleted() {
			total = total.Add(o.Payments[i].Amount)
		}
	}
	return total
}

// AmountDue is the tax-inclusive total including shipping minus the
// amount paid. Overpayment yields a negative value.
func (o *Order) AmountDue() decimal.Decimal {
	return o.Totals().TotalInclTax.Sub(o.AmountPaid())
}

// IsPaid reports whether nothing is outstanding.
func (o *Order) IsPaid() bool {
	return !o.AmountDue().IsPositive()
}

// RecalculatePaymentStatus derives the payment status from the
// completed payments and the due date. Full payment wins over partial,
// partial over overdue. A refunded order keeps its refunded status.
func (o *Order) RecalculatePaymentStatus(now time.Time) {
	o.PaymentStatus = o.EffectivePaymentStatus(now)
}

// EffectivePaymentStatus is the payment status as of now, derived
// without touching the stored value. Failed and refunded are sticky;
// they are set by their transitions, never by recomputation.
func (o *Order) EffectivePaymentStatus(now time.Time) PaymentStatus {
	if o.PaymentStatus == PaymentStatusRefunded {
		return PaymentStatusRefunded
	}
	paid := o.AmountPaid()
	total := o.Totals().TotalInclTax
	switch {
	case total.IsPositive() && paid.GreaterThanOrEqual(total):
		return PaymentStatusPaid
	case paid.IsPositive():
		return PaymentStatusPartiallyPaid
	case o.PaymentStatus == PaymentStatusFailed:
		return PaymentStatusFailed
	case o.PaymentDueDate != nil && now.After(*o.PaymentDueDate):
		return PaymentStatusOverdue
	default:
		return PaymentStatusPending
	}
}

// IsOverdue reports whether the due date has passed without full
// payment.
func (o *Order) IsOverdue(now time.Time) bool {
	if o.PaymentDueDate == nil || o.PaymentStatus == PaymentStatusPaid {
		return false
	}
	return now.After(*o.PaymentDueDate)
}

// DaysOverdue is the number of whole days past the due date, zero when
// not overdue.
func (o *Order) DaysOverdue(now time.Time) int {
	if !o.IsOverdue(now) {
		return 0
	}
	return int(now.Sub(*o.PaymentDueDate).Hours() / 24)
}

// --- derived amounts ---

// Totals computes the document totals from the lines, tax settings and
// shipping costs.
func (o *Order) Totals() document.Totals {
	return document.Calculate(o.docLines(), o.Settings, o.ShippingCosts)
}

// TotalCost sums quantity times cost price over the lines that carry a
// cost price.
func (o *Order) TotalCost() decimal.Decimal {
	return document.TotalCost(o.docLines())
}

// TotalProfit sums the per-line profit.
func (o *Order) TotalProfit() decimal.Decimal {
	return document.TotalProfit(o.docLines())
}

// ProfitMargin is the profit relative to total cost in percent, zero
// when no cost prices are known.
func (o *Order) ProfitMargin() decimal.Decimal {
	return document.ProfitMargin(o.docLines(), o.Settings)
}

func (o *Order) docLines() []document.Line {
	lines := make([]document.Line, len(o.Lines))
	for i := range o.Lines {
		lines[i] = o.Lines[i].Line
	}
	return lines
}

// IsDraft reports whether the order is still in draft.
func (o *Order) IsDraft() bool {
	return o.Status == StatusDraft
}

// SoftDelete hides the order and logs the removal. Shadows the embedded
// audit method so deletions always reach the change log.
func (o *Order) SoftDelete(actor *uuid.UUID) bool {
	if !o.AuditedAggregateRoot.SoftDelete(actor) {
		return false
	}
	o.recordChange(document.ChangeDeleted, o.Status.String(), o.Status.String(), actor, "")
	return true
}

// Restore brings a soft-deleted order back into the active set.
func (o *Order) Restore(actor *uuid.UUID) bool {
	if !o.AuditedAggregateRoot.Restore(actor) {
		return false
	}
	o.recordChange(document.ChangeRestored, o.Status.String(), o.Status.String(), actor, "")
	return true
}

func renumberLines(lines []Line) {
	for i := range lines {
		lines[i].LineNumber = i + 1
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
