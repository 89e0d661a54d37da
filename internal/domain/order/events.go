package order

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salesflow/backend/internal/domain/shared"
)

const AggregateTypeOrder = "Order"

const (
	EventTypeOrderCreated            = "order.created"
	EventTypeOrderConfirmed          = "order.confirmed"
	EventTypeOrderProcessingStarted  = "order.processing_started"
	EventTypeOrderReadyForShipment   = "order.ready_for_shipment"
	EventTypeOrderShipped            = "order.shipped"
	EventTypeOrderDelivered          = "order.delivered"
	EventTypeOrderPartiallyDelivered = "order.partially_delivered"
	EventTypeOrderCompleted          = "order.completed"
	EventTypeOrderCancelled          = "order.cancelled"
	EventTypeOrderRefunded           = "order.refunded"
	EventTypeOrderLineDelivered      = "order.line_delivered"
	EventTypeOrderPaymentReceived    = "order.payment_received"
)

type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string     `json:"order_number"`
	ClientID    uuid.UUID  `json:"client_id"`
	QuoteID     *uuid.UUID `json:"quote_id,omitempty"`
}

func NewOrderCreatedEvent(o *Order, actor *uuid.UUID) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID, actor),
		OrderNumber:     o.OrderNumber,
		ClientID:        o.ClientID,
		QuoteID:         o.QuoteID,
	}
}

func (e *OrderCreatedEvent) EventType() string { return EventTypeOrderCreated }

type OrderConfirmedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	ClientID    uuid.UUID       `json:"client_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func NewOrderConfirmedEvent(o *Order, actor *uuid.UUID) *OrderConfirmedEvent {
	return &OrderConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderConfirmed, AggregateTypeOrder, o.ID, actor),
		OrderNumber:     o.OrderNumber,
		ClientID:        o.ClientID,
		TotalAmount:     o.Totals().TotalInclTax,
	}
}

func (e *OrderConfirmedEvent) EventType() string { return EventTypeOrderConfirmed }

type OrderProcessingStartedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
}

func NewOrderProcessingStartedEvent(o *Order, actor *uuid.UUID) *OrderProcessingStartedEvent {
	return &OrderProcessingStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderProcessingStarted, AggregateTypeOrder, o.ID, actor),
		OrderNumber:     o.OrderNumber,
	}
}

func (e *OrderProcessingStartedEvent) EventType() string { return EventTypeOrderProcessingStarted }

type OrderReadyForShipmentEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
}

func NewOrderReadyForShipmentEvent(o *Order, actor *uuid.UUID) *OrderReadyForShipmentEvent {
	return &OrderReadyForShipmentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderReadyForShipment, AggregateTypeOrder, o.ID, actor),
		OrderNumber:     o.OrderNumber,
	}
}

func (e *OrderReadyForShipmentEvent) EventType() string { return EventTypeOrderReadyForShipment }

type OrderShippedEvent struct {
	shared.BaseDomainEvent
	OrderNumber    string `json:"order_number"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

func NewOrderShippedEvent(o *Order, actor *uuid.UUID, trackingNumber string) *OrderShippedEvent {
	return &OrderShippedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderShipped, AggregateTypeOrder, o.ID, actor),
		OrderNumber:     o.OrderNumber,
		TrackingNumber:  trackingNumber,
	}
}

func (e *OrderShippedEvent) EventType() string { return EventTypeOrderShipped }

type OrderDeliveredEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
}

func NewOrderDeliveredEvent(o *Order, actor *uuid.UUID) *OrderDeliveredEvent {
	return &OrderDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDelivered, AggregateTypeOrder, o.ID, actor),
		OrderNumber:     o.OrderNumber,
	}
}

func (e *OrderDeliveredEvent) EventType() string { return EventTypeOrderDelivered }

type OrderPartiallyDeliveredEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
}

func NewOrderPartiallyDeliveredEvent(o *Order, actor *uuid.UUID) *OrderPartiallyDeliveredEvent {
	return &OrderPartiallyDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPartiallyDelivered, AggregateTypeOrder, o.ID, actor),
		OrderNumber:     o.OrderNumber,
	}
}

func (e *OrderPartiallyDeliveredEvent) EventType() string { return EventTypeOrderPartiallyDelivered }

type OrderCompletedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func NewOrderCompletedEvent(o *Order, actor *uuid.UUID) *OrderCompletedEvent {
	return &OrderCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCompleted, AggregateTypeOrder, o.ID, actor),
		OrderNumber:     o.OrderNumber,
		TotalAmount:     o.Totals().TotalInclTax,
	}
}

func (e *OrderCompletedEvent) EventType() string { return EventTypeOrderCompleted }

type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason,omitempty"`
}

func NewOrderCancelledEvent(o *Order, actor *uuid.UUID, reason string) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypeOrder, o.ID, actor),
		OrderNumber:     o.OrderNumber,
		Reason:          reason,
	}
}

func (e *OrderCancelledEvent) EventType() string { return EventTypeOrderCancelled }

type OrderRefundedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason,omitempty"`
}

func NewOrderRefundedEvent(o *Order, actor *uuid.UUID, reason string) *OrderRefundedEvent {
	return &OrderRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderRefunded, AggregateTypeOrder, o.ID, actor),
		OrderNumber:     o.OrderNumber,
		Reason:          reason,
	}
}

func (e *OrderRefundedEvent) EventType() string { return EventTypeOrderRefunded }

type OrderLineDeliveredEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	LineNumber  int             `json:"line_number"`
	Quantity    decimal.Decimal `json:"quantity"`
}

func NewOrderLineDeliveredEvent(o *Order, actor *uuid.UUID, lineNumber int, quantity decimal.Decimal) *OrderLineDeliveredEvent {
	return &OrderLineDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderLineDelivered, AggregateTypeOrder, o.ID, actor),
		OrderNumber:     o.OrderNumber,
		LineNumber:      lineNumber,
		Quantity:        quantity,
	}
}

func (e *OrderLineDeliveredEvent) EventType() string { return EventTypeOrderLineDelivered }

type OrderPaymentReceivedEvent struct {
	shared.BaseDomainEvent
	OrderNumber   string          `json:"order_number"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	PaymentNumber string          `json:"payment_number"`
	Amount        decimal.Decimal `json:"amount"`
	AmountDue     decimal.Decimal `json:"amount_due"`
}

func NewOrderPaymentReceivedEvent(o *Order, actor *uuid.UUID, p *Payment) *OrderPaymentReceivedEvent {
	return &OrderPaymentReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPaymentReceived, AggregateTypeOrder, o.ID, actor),
		OrderNumber:     o.OrderNumber,
		PaymentID:       p.ID,
		PaymentNumber:   p.PaymentNumber,
		Amount:          p.Amount,
		AmountDue:       o.AmountDue(),
	}
}

func (e *OrderPaymentReceivedEvent) EventType() string { return EventTypeOrderPaymentReceived }
