package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salesflow/backend/internal/domain/shared"
	"github.com/salesflow/backend/internal/domain/shared/valueobject"
)

// PaymentState is the lifecycle of a single payment record, separate
// from the order-level PaymentStatus which aggregates over all
// completed payments.
type PaymentState string

const (
	PaymentStatePending    PaymentState = "pending"
	PaymentStateProcessing PaymentState = "processing"
	PaymentStateCompleted  PaymentState = "completed"
	PaymentStateFailed     PaymentState = "failed"
	PaymentStateRefunded   PaymentState = "refunded"
	PaymentStateCancelled  PaymentState = "cancelled"
)

var paymentStateTransitions = map[PaymentState][]PaymentState{
	PaymentStatePending:    {PaymentStateProcessing, PaymentStateCompleted, PaymentStateFailed, PaymentStateCancelled},
	PaymentStateProcessing: {PaymentStateCompleted, PaymentStateFailed, PaymentStateCancelled},
	PaymentStateCompleted:  {PaymentStateRefunded},
	PaymentStateFailed:     {},
	PaymentStateRefunded:   {},
	PaymentStateCancelled:  {},
}

func (s PaymentState) IsValid() bool {
	_, ok := paymentStateTransitions[s]
	return ok
}

func (s PaymentState) String() string {
	return string(s)
}

func (s PaymentState) CanTransitionTo(target PaymentState) bool {
	for _, allowed := range paymentStateTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Payment is a single settlement attempt against an order. An order can
// carry any number of payments; only completed ones count towards the
// amount paid.
type Payment struct {
	shared.BaseEntity
	PaymentNumber string               `gorm:"type:varchar(50);not null;uniqueIndex" json:"payment_number"`
	OrderID       uuid.UUID            `gorm:"type:uuid;not null;index" json:"order_id"`
	Amount        decimal.Decimal      `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency      valueobject.Currency `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	Method        PaymentMethod        `gorm:"type:varchar(50);not null" json:"method"`
	State         PaymentState         `gorm:"type:varchar(20);not null;default:'pending'" json:"state"`
	TransactionID string               `gorm:"type:varchar(200);index" json:"transaction_id,omitempty"`
	PaymentDate   time.Time            `gorm:"not null;index" json:"payment_date"`
	ReceivedDate  *time.Time           `json:"received_date,omitempty"`
	PayerName     string               `gorm:"type:varchar(200)" json:"payer_name,omitempty"`
	PayerEmail    string               `gorm:"type:varchar(254)" json:"payer_email,omitempty"`
	Notes         string               `gorm:"type:text" json:"notes,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}

// NewPayment creates a pending payment record for an order.
func NewPayment(paymentNumber string, orderID uuid.UUID, amount decimal.Decimal, currency valueobject.Currency, method PaymentMethod, paymentDate time.Time) (*Payment, error) {
	if paymentNumber == "" {
		return nil, shared.NewValidationError("payment_number", "cannot be empty")
	}
	if orderID == uuid.Nil {
		return nil, shared.NewValidationError("order_id", "cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("amount", "must be positive")
	}
	if !currency.IsSupported() {
		return nil, shared.NewValidationError("currency", "unsupported currency")
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError("method", "unknown payment method")
	}
	return &Payment{
		BaseEntity:    shared.NewBaseEntity(),
		PaymentNumber: paymentNumber,
		OrderID:       orderID,
		Amount:        amount,
		Currency:      currency,
		Method:        method,
		State:         PaymentStatePending,
		PaymentDate:   paymentDate,
	}, nil
}

func (p *Payment) transition(target PaymentState) error {
	if !p.State.CanTransitionTo(target) {
		return shared.NewInvalidTransition("payment", p.State.String(), target.String())
	}
	p.State = target
	p.UpdatedAt = time.Now()
	return nil
}

// MarkProcessing flags the payment as handed off to a payment provider.
func (p *Payment) MarkProcessing(transactionID string) error {
	if err := p.transition(PaymentStateProcessing); err != nil {
		return err
	}
	if transactionID != "" {
		p.TransactionID = transactionID
	}
	return nil
}

// Complete records the payment as received and stamps the receipt time.
func (p *Payment) Complete(receivedAt time.Time) error {
	if err := p.transition(PaymentStateCompleted); err != nil {
		return err
	}
	p.ReceivedDate = &receivedAt
	return nil
}

// Fail records a failed settlement attempt, keeping the provider
// reference for troubleshooting.
func (p *Payment) Fail(reason string) error {
	if err := p.transition(PaymentStateFailed); err != nil {
		return err
	}
	if reason != "" {
		p.Notes = appendNote(p.Notes, "Failure reason: "+reason)
	}
	return nil
}

// Refund reverses a completed payment. The payment keeps its original
// amount; the refund is reflected in the order-level payment status.
func (p *Payment) Refund(reason string) error {
	if err := p.transition(PaymentStateRefunded); err != nil {
		return err
	}
	if reason != "" {
		p.Notes = appendNote(p.Notes, "Refund reason: "+reason)
	}
	return nil
}

// Cancel withdraws a payment that never completed.
func (p *Payment) Cancel() error {
	return p.transition(PaymentStateCancelled)
}

// IsCompleted reports whether this payment counts towards the amount
// paid on the order.
func (p *Payment) IsCompleted() bool {
	return p.State == PaymentStateCompleted
}

// AmountMoney returns the payment amount as a money value.
func (p *Payment) AmountMoney() valueobject.Money {
	return valueobject.MustNewMoney(p.Amount, p.Currency)
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
