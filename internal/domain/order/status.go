package order

// Status is the fulfillment state of a sales order. Transitions are
// restricted to the edges listed in statusTransitions.
type Status string

const (
	StatusDraft              Status = "draft"
	StatusConfirmed          Status = "confirmed"
	StatusProcessing         Status = "processing"
	StatusReadyForShipment   Status = "ready_for_shipment"
	StatusShipped            Status = "shipped"
	StatusDelivered          Status = "delivered"
	StatusPartiallyDelivered Status = "partially_delivered"
	StatusCancelled          Status = "cancelled"
	StatusRefunded           Status = "refunded"
	StatusCompleted          Status = "completed"
)

// statusTransitions is the legality table for order status changes.
// A status maps to the exhaustive set of statuses it may move to;
// terminal statuses map to an empty set.
var statusTransitions = map[Status][]Status{
	StatusDraft:              {StatusConfirmed, StatusCancelled},
	StatusConfirmed:          {StatusProcessing, StatusCancelled},
	StatusProcessing:         {StatusReadyForShipment, StatusShipped, StatusCancelled},
	StatusReadyForShipment:   {StatusShipped, StatusCancelled},
	StatusShipped:            {StatusDelivered, StatusPartiallyDelivered, StatusCancelled},
	StatusPartiallyDelivered: {StatusDelivered, StatusCancelled},
	StatusDelivered:          {StatusCompleted, StatusRefunded, StatusCancelled},
	StatusCompleted:          {StatusRefunded},
	StatusCancelled:          {},
	StatusRefunded:           {},
}

func (s Status) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

func (s Status) String() string {
	return string(s)
}

// CanTransitionTo reports whether moving from s to target is a legal
// status change.
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status change is possible.
func (s Status) IsTerminal() bool {
	targets, ok := statusTransitions[s]
	return ok && len(targets) == 0
}

// CanCancel reports whether the order may still be cancelled. Completed
// orders cannot be cancelled even though they allow a refund.
func (s Status) CanCancel() bool {
	return s.CanTransitionTo(StatusCancelled)
}

// allowsLineChanges reports whether order lines may still be added,
// updated or removed. Once processing starts the line set is frozen.
func (s Status) allowsLineChanges() bool {
	return s == StatusDraft || s == StatusConfirmed
}

// PaymentStatus tracks how much of the order total has been settled.
// It is recomputed from the completed payments on every payment event
// and on read, never stored authoritative state on its own.
type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "pending"
	PaymentStatusPartiallyPaid PaymentStatus = "partially_paid"
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusOverdue       PaymentStatus = "overdue"
	PaymentStatusRefunded      PaymentStatus = "refunded"
	PaymentStatusFailed        PaymentStatus = "failed"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPartiallyPaid, PaymentStatusPaid,
		PaymentStatusOverdue, PaymentStatusRefunded, PaymentStatusFailed:
		return true
	}
	return false
}

func (s PaymentStatus) String() string {
	return string(s)
}

// PaymentMethod is the settlement channel recorded on orders and
// individual payments.
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodDebitCard    PaymentMethod = "debit_card"
	PaymentMethodPayPal       PaymentMethod = "paypal"
	PaymentMethodIdeal        PaymentMethod = "ideal"
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodInvoice      PaymentMethod = "invoice"
	PaymentMethodOther        PaymentMethod = "other"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodPayPal, PaymentMethodIdeal, PaymentMethodCash,
		PaymentMethodInvoice, PaymentMethodOther:
		return true
	}
	return false
}

func (m PaymentMethod) String() string {
	return string(m)
}
