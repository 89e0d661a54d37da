package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salesflow/backend/internal/domain/document"
	"github.com/salesflow/backend/internal/domain/order"
)

// ==================== Request DTOs ====================

// LineInput represents a document line in create and update requests.
type LineInput struct {
	Kind               string           `json:"kind" binding:"omitempty,oneof=product service material labor other"`
	ProductID          *uuid.UUID       `json:"product_id"`
	ServiceID          *uuid.UUID       `json:"service_id"`
	Description        string           `json:"description" binding:"required,min=1,max=500"`
	Specification      string           `json:"specification" binding:"max=2000"`
	Quantity           *decimal.Decimal `json:"quantity"`
	Unit               string           `json:"unit" binding:"max=20"`
	UnitPrice          decimal.Decimal  `json:"unit_price"`
	CostPrice          *decimal.Decimal `json:"cost_price"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage"`
	TaxRate            *decimal.Decimal `json:"tax_rate"`
	Notes              string           `json:"notes" binding:"max=2000"`
	StockLocation      string           `json:"stock_location" binding:"max=100"`
}

func (in LineInput) toDomain() document.LineInput {
	domainInput := document.LineInput{
		Kind:          document.LineKind(in.Kind),
		ProductID:     in.ProductID,
		ServiceID:     in.ServiceID,
		Description:   in.Description,
		Specification: in.Specification,
		Unit:          in.Unit,
		UnitPrice:     in.UnitPrice,
		CostPrice:     in.CostPrice,
		TaxRate:       in.TaxRate,
		Notes:         in.Notes,
	}
	if in.Quantity != nil {
		domainInput.Quantity = *in.Quantity
	}
	if in.DiscountPercentage != nil {
		domainInput.DiscountPercentage = *in.DiscountPercentage
	}
	return domainInput
}

// CreateOrderRequest represents a request to create an order directly,
// without going through a quote.
type CreateOrderRequest struct {
	ClientID          uuid.UUID        `json:"client_id" binding:"required"`
	ContactID         *uuid.UUID       `json:"contact_id"`
	Reference         string           `json:"reference" binding:"max=100"`
	Priority          string           `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Currency          string           `json:"currency" binding:"omitempty,len=3"`
	ExchangeRate      *decimal.Decimal `json:"exchange_rate"`
	TaxRate           *decimal.Decimal `json:"tax_rate"`
	TaxInclusive      *bool            `json:"tax_inclusive"`
	PaymentTerms      string           `json:"payment_terms" binding:"max=2000"`
	PaymentDueDate    *time.Time       `json:"payment_due_date"`
	PaymentMethod     string           `json:"payment_method" binding:"omitempty,oneof=bank_transfer credit_card debit_card paypal ideal cash invoice other"`
	ShippingCosts     *decimal.Decimal `json:"shipping_costs"`
	ShippingMethod    string           `json:"shipping_method" binding:"max=100"`
	DeliveryAddressID *uuid.UUID       `json:"delivery_address_id"`
	BillingAddressID  *uuid.UUID       `json:"billing_address_id"`
	DeliveryDate      *time.Time       `json:"delivery_date"`
	InternalNotes     string           `json:"internal_notes"`
	ClientNotes       string           `json:"client_notes"`
	Lines             []LineInput      `json:"lines"`
}

// UpdateOrderRequest represents a partial update of order attributes.
type UpdateOrderRequest struct {
	Reference         *string          `json:"reference" binding:"omitempty,max=100"`
	Priority          *string          `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	ContactID         *uuid.UUID       `json:"contact_id"`
	DeliveryAddressID *uuid.UUID       `json:"delivery_address_id"`
	BillingAddressID  *uuid.UUID       `json:"billing_address_id"`
	DeliveryDate      *time.Time       `json:"delivery_date"`
	PaymentTerms      *string          `json:"payment_terms"`
	PaymentDueDate    *time.Time       `json:"payment_due_date"`
	PaymentMethod     *string          `json:"payment_method" binding:"omitempty,oneof=bank_transfer credit_card debit_card paypal ideal cash invoice other"`
	ShippingCosts     *decimal.Decimal `json:"shipping_costs"`
	ShippingMethod    *string          `json:"shipping_method" binding:"omitempty,max=100"`
	TrackingNumber    *string          `json:"tracking_number" binding:"omitempty,max=100"`
	InternalNotes     *string          `json:"internal_notes"`
	ClientNotes       *string          `json:"client_notes"`
}

// UpdateLineRequest represents a partial update of a single line.
type UpdateLineRequest struct {
	Kind               *string          `json:"kind" binding:"omitempty,oneof=product service material labor other"`
	Description        *string          `json:"description" binding:"omitempty,min=1,max=500"`
	Specification      *string          `json:"specification"`
	Quantity           *decimal.Decimal `json:"quantity"`
	Unit               *string          `json:"unit" binding:"omitempty,max=20"`
	UnitPrice          *decimal.Decimal `json:"unit_price"`
	CostPrice          *decimal.Decimal `json:"cost_price"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage"`
	TaxRate            *decimal.Decimal `json:"tax_rate"`
	Notes              *string          `json:"notes"`
	StockLocation      *string          `json:"stock_location" binding:"omitempty,max=100"`
	BatchNumber        *string          `json:"batch_number" binding:"omitempty,max=100"`
	SerialNumber       *string          `json:"serial_number" binding:"omitempty,max=100"`
}

func (in UpdateLineRequest) hasStockChanges() bool {
	return in.StockLocation != nil || in.BatchNumber != nil || in.SerialNumber != nil
}

func (in UpdateLineRequest) toDomain() document.LinePatch {
	patch := document.LinePatch{
		Description:        in.Description,
		Specification:      in.Specification,
		Quantity:           in.Quantity,
		Unit:               in.Unit,
		UnitPrice:          in.UnitPrice,
		CostPrice:          in.CostPrice,
		DiscountPercentage: in.DiscountPercentage,
		TaxRate:            in.TaxRate,
		Notes:              in.Notes,
	}
	if in.Kind != nil {
		kind := document.LineKind(*in.Kind)
		patch.Kind = &kind
	}
	return patch
}

// ShipOrderRequest carries the optional tracking number for shipping.
type ShipOrderRequest struct {
	TrackingNumber string `json:"tracking_number" binding:"max=100"`
}

// DeliverOrderRequest carries the delivery timestamp, defaulting to now.
type DeliverOrderRequest struct {
	DeliveredAt *time.Time `json:"delivered_at"`
}

// CancelOrderRequest carries the cancellation reason.
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// RefundOrderRequest carries the refund reason.
type RefundOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// DeliverLineRequest records a delivery against a single line. A nil
// quantity delivers the full remaining amount.
type DeliverLineRequest struct {
	Quantity    *decimal.Decimal `json:"quantity"`
	DeliveredAt *time.Time       `json:"delivered_at"`
}

// PostPaymentRequest registers a payment against an order. Completed
// marks the payment as received immediately, the cash-over-the-counter
// case; otherwise the payment starts pending.
type PostPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Method        string          `json:"method" binding:"required,oneof=bank_transfer credit_card debit_card paypal ideal cash invoice other"`
	Completed     bool            `json:"completed"`
	PaymentDate   *time.Time      `json:"payment_date"`
	TransactionID string          `json:"transaction_id" binding:"max=200"`
	PayerName     string          `json:"payer_name" binding:"max=200"`
	PayerEmail    string          `json:"payer_email" binding:"omitempty,email"`
	Notes         string          `json:"notes" binding:"max=2000"`
}

// ProcessPaymentRequest hands a pending payment off to the payment
// provider with its transaction reference.
type ProcessPaymentRequest struct {
	TransactionID string `json:"transaction_id" binding:"max=200"`
}

// FailPaymentRequest records why a settlement attempt failed.
type FailPaymentRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// RefundPaymentRequest records why a payment was reversed.
type RefundPaymentRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// OrderListFilter represents filter options for order lists.
type OrderListFilter struct {
	Search         string     `form:"search"`
	ClientID       *uuid.UUID `form:"client_id"`
	QuoteID        *uuid.UUID `form:"quote_id"`
	Status         *string    `form:"status"`
	PaymentStatus  *string    `form:"payment_status"`
	Priority       *string    `form:"priority"`
	OverdueOnly    bool       `form:"overdue_only"`
	IncludeDeleted bool       `form:"include_deleted"`
	Page           int        `form:"page" binding:"omitempty,min=1"`
	PageSize       int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy        string     `form:"order_by"`
	OrderDir       string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ==================== Response DTOs ====================

// LineResponse represents an order line with its fulfillment state.
type LineResponse struct {
	ID                 uuid.UUID        `json:"id"`
	LineNumber         int              `json:"line_number"`
	Kind               string           `json:"kind"`
	ProductID          *uuid.UUID       `json:"product_id,omitempty"`
	ServiceID          *uuid.UUID       `json:"service_id,omitempty"`
	Description        string           `json:"description"`
	Specification      string           `json:"specification,omitempty"`
	Quantity           decimal.Decimal  `json:"quantity"`
	Unit               string           `json:"unit"`
	UnitPrice          decimal.Decimal  `json:"unit_price"`
	CostPrice          *decimal.Decimal `json:"cost_price,omitempty"`
	DiscountPercentage decimal.Decimal  `json:"discount_percentage"`
	TaxRate            *decimal.Decimal `json:"tax_rate,omitempty"`
	EffectiveTaxRate   decimal.Decimal  `json:"effective_tax_rate"`
	Subtotal           decimal.Decimal  `json:"subtotal"`
	TaxAmount          decimal.Decimal  `json:"tax_amount"`
	Total              decimal.Decimal  `json:"total"`
	Notes              string           `json:"notes,omitempty"`
	StockLocation      string           `json:"stock_location,omitempty"`
	BatchNumber        string           `json:"batch_number,omitempty"`
	SerialNumber       string           `json:"serial_number,omitempty"`
	DeliveredQuantity  decimal.Decimal  `json:"delivered_quantity"`
	RemainingQuantity  decimal.Decimal  `json:"remaining_quantity"`
	IsDelivered        bool             `json:"is_delivered"`
	DeliveryDate       *time.Time       `json:"delivery_date,omitempty"`
}

// TotalsResponse represents the derived document totals.
type TotalsResponse struct {
	SubtotalExclTax decimal.Decimal `json:"subtotal_excl_tax"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	ShippingCosts   decimal.Decimal `json:"shipping_costs"`
	TotalExclTax    decimal.Decimal `json:"total_excl_tax"`
	TotalInclTax    decimal.Decimal `json:"total_incl_tax"`
}

// PaymentResponse represents a payment record in API responses.
type PaymentResponse struct {
	ID            uuid.UUID       `json:"id"`
	PaymentNumber string          `json:"payment_number"`
	OrderID       uuid.UUID       `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Method        string          `json:"method"`
	State         string          `json:"state"`
	TransactionID string          `json:"transaction_id,omitempty"`
	PaymentDate   time.Time       `json:"payment_date"`
	ReceivedDate  *time.Time      `json:"received_date,omitempty"`
	PayerName     string          `json:"payer_name,omitempty"`
	PayerEmail    string          `json:"payer_email,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID                  uuid.UUID         `json:"id"`
	OrderNumber         string            `json:"order_number"`
	Reference           string            `json:"reference,omitempty"`
	QuoteID             *uuid.UUID        `json:"quote_id,omitempty"`
	ClientID            uuid.UUID         `json:"client_id"`
	ContactID           *uuid.UUID        `json:"contact_id,omitempty"`
	Status              string            `json:"status"`
	Priority            string            `json:"priority"`
	Currency            string            `json:"currency"`
	ExchangeRate        decimal.Decimal   `json:"exchange_rate"`
	TaxRate             decimal.Decimal   `json:"tax_rate"`
	TaxInclusive        bool              `json:"tax_inclusive"`
	PaymentStatus       string            `json:"payment_status"`
	PaymentMethod       string            `json:"payment_method,omitempty"`
	PaymentTerms        string            `json:"payment_terms,omitempty"`
	PaymentDueDate      *time.Time        `json:"payment_due_date,omitempty"`
	IsOverdue           bool              `json:"is_overdue"`
	DaysOverdue         int               `json:"days_overdue"`
	ShippingCosts       decimal.Decimal   `json:"shipping_costs"`
	ShippingMethod      string            `json:"shipping_method,omitempty"`
	TrackingNumber      string            `json:"tracking_number,omitempty"`
	DeliveryAddressID   *uuid.UUID        `json:"delivery_address_id,omitempty"`
	BillingAddressID    *uuid.UUID        `json:"billing_address_id,omitempty"`
	DeliveryDate        *time.Time        `json:"delivery_date,omitempty"`
	ActualDeliveryDate  *time.Time        `json:"actual_delivery_date,omitempty"`
	InternalNotes       string            `json:"internal_notes,omitempty"`
	ClientNotes         string            `json:"client_notes,omitempty"`
	Lines               []LineResponse    `json:"lines"`
	Payments            []PaymentResponse `json:"payments"`
	Totals              TotalsResponse    `json:"totals"`
	AmountPaid          decimal.Decimal   `json:"amount_paid"`
	AmountDue           decimal.Decimal   `json:"amount_due"`
	IsPaid              bool              `json:"is_paid"`
	AllLinesDelivered   bool              `json:"all_lines_delivered"`
	ConfirmedAt         *time.Time        `json:"confirmed_at,omitempty"`
	ProcessingStartedAt *time.Time        `json:"processing_started_at,omitempty"`
	ShippedAt           *time.Time        `json:"shipped_at,omitempty"`
	DeliveredAt         *time.Time        `json:"delivered_at,omitempty"`
	CancelledAt         *time.Time        `json:"cancelled_at,omitempty"`
	CompletedAt         *time.Time        `json:"completed_at,omitempty"`
	IsDeleted           bool              `json:"is_deleted,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
	Version             int               `json:"version"`
}

// OrderListItemResponse represents an order in list responses.
type OrderListItemResponse struct {
	ID            uuid.UUID       `json:"id"`
	OrderNumber   string          `json:"order_number"`
	Reference     string          `json:"reference,omitempty"`
	QuoteID       *uuid.UUID      `json:"quote_id,omitempty"`
	ClientID      uuid.UUID       `json:"client_id"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	Priority      string          `json:"priority"`
	Currency      string          `json:"currency"`
	LineCount     int             `json:"line_count"`
	TotalInclTax  decimal.Decimal `json:"total_incl_tax"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	IsOverdue     bool            `json:"is_overdue"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

/// DeliveryResponse is the outcome of a line delivery: the updated order
// plus whether every line is now fully delivered, so the caller can
// offer the order-level delivered transition.
type DeliveryResponse struct {
	Order             OrderResponse `json:"order"`
	AllLinesDelivered bool          `json:"all_lines_delivered"`
}

// PostPaymentResponse is the outcome of registering a payment.
type PostPaymentResponse struct {
	Order   OrderResponse   `json:"order"`
	Payment PaymentResponse `json:"payment"`
}

// StatusSummary represents order counts per status.
type StatusSummary struct {
	Draft              int64 `json:"draft"`
	Confirmed          int64 `json:"confirmed"`
	Processing         int64 `json:"processing"`
	ReadyForShipment   int64 `json:"ready_for_shipment"`
	Shipped            int64 `json:"shipped"`
	Delivered          int64 `json:"delivered"`
	PartiallyDelivered int64 `json:"partially_delivered"`
	Completed          int64 `json:"completed"`
	Cancelled          int64 `json:"cancelled"`
	Refunded           int64 `json:"refunded"`
	Total              int64 `json:"total"`
}

// ==================== Mappers ====================

// ToLineResponse maps an order line with derived amounts under the
// document settings.
func ToLineResponse(l *order.Line, settings document.Settings) LineResponse {
	return LineResponse{
		ID:                 l.ID,
		LineNumber:         l.LineNumber,
		Kind:               string(l.Kind),
		ProductID:          l.ProductID,
		ServiceID:          l.ServiceID,
		Description:        l.Description,
		Specification:      l.Specification,
		Quantity:           l.Quantity,
		Unit:               l.Unit,
		UnitPrice:          l.UnitPrice,
		CostPrice:          l.CostPrice,
		DiscountPercentage: l.DiscountPercentage,
		TaxRate:            l.TaxRate,
		EffectiveTaxRate:   l.EffectiveTaxRate(settings.TaxRate),
		Subtotal:           l.Subtotal().Round(2),
		TaxAmount:          l.TaxAmount(settings.TaxRate).Round(2),
		Total:              l.TotalWithTax(settings.TaxRate).Round(2),
		Notes:              l.Notes,
		StockLocation:      l.StockLocation,
		BatchNumber:        l.BatchNumber,
		SerialNumber:       l.SerialNumber,
		DeliveredQuantity:  l.DeliveredQuantity,
		RemainingQuantity:  l.RemainingQuantity(),
		IsDelivered:        l.IsDelivered,
		DeliveryDate:       l.DeliveryDate,
	}
}

// ToTotalsResponse maps derived totals rounded for presentation.
func ToTotalsResponse(t document.Totals) TotalsResponse {
	rounded := t.Rounded()
	return TotalsResponse{
		SubtotalExclTax: rounded.SubtotalExclTax,
		DiscountAmount:  rounded.DiscountAmount,
		TaxAmount:       rounded.TaxAmount,
		ShippingCosts:   rounded.ShippingCosts,
		TotalExclTax:    rounded.TotalExclTax,
		TotalInclTax:    rounded.TotalInclTax,
	}
}

// ToPaymentResponse maps a payment record.
func ToPaymentResponse(p *order.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		PaymentNumber: p.PaymentNumber,
		OrderID:       p.OrderID,
		Amount:        p.Amount,
		Currency:      string(p.Currency),
		Method:        string(p.Method),
		State:         string(p.State),
		TransactionID: p.TransactionID,
		PaymentDate:   p.PaymentDate,
		ReceivedDate:  p.ReceivedDate,
		PayerName:     p.PayerName,
		PayerEmail:    p.PayerEmail,
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt,
	}
}

// ToOrderResponse maps an order aggregate. The payment status reflects
// the completed payments and due date as of now even when the stored
// value has not been refreshed yet.
func ToOrderResponse(o *order.Order, now time.Time) OrderResponse {
	lines := make([]LineResponse, len(o.Lines))
	for i := range o.Lines {
		lines[i] = ToLineResponse(&o.Lines[i], o.Settings)
	}
	payments := make([]PaymentResponse, len(o.Payments))
	for i := range o.Payments {
		payments[i] = ToPaymentResponse(&o.Payments[i])
	}
	return OrderResponse{
		ID:                  o.ID,
		OrderNumber:         o.OrderNumber,
		Reference:           o.Reference,
		QuoteID:             o.QuoteID,
		ClientID:            o.ClientID,
		ContactID:           o.ContactID,
		Status:              o.Status.String(),
		Priority:            string(o.Priority),
		Currency:            string(o.Currency),
		ExchangeRate:        o.ExchangeRate,
		TaxRate:             o.TaxRate,
		TaxInclusive:        o.TaxInclusive,
		PaymentStatus:       o.EffectivePaymentStatus(now).String(),
		PaymentMethod:       string(o.PaymentMethod),
		PaymentTerms:        o.PaymentTerms,
		PaymentDueDate:      o.PaymentDueDate,
		IsOverdue:           o.IsOverdue(now),
		DaysOverdue:         o.DaysOverdue(now),
		ShippingCosts:       o.ShippingCosts.Round(2),
		ShippingMethod:      o.ShippingMethod,
		TrackingNumber:      o.TrackingNumber,
		DeliveryAddressID:   o.DeliveryAddressID,
		BillingAddressID:    o.BillingAddressID,
		DeliveryDate:        o.DeliveryDate,
		ActualDeliveryDate:  o.ActualDeliveryDate,
		InternalNotes:       o.InternalNotes,
		ClientNotes:         o.ClientNotes,
		Lines:               lines,
		Payments:            payments,
		Totals:              ToTotalsResponse(o.Totals()),
		AmountPaid:          o.AmountPaid().Round(2),
		AmountDue:           o.AmountDue().Round(2),
		IsPaid:              o.IsPaid(),
		AllLinesDelivered:   o.AllLinesDelivered(),
		ConfirmedAt:         o.ConfirmedAt,
		ProcessingStartedAt: o.ProcessingStartedAt,
		ShippedAt:           o.ShippedAt,
		DeliveredAt:         o.DeliveredAt,
		CancelledAt:         o.CancelledAt,
		CompletedAt:         o.CompletedAt,
		IsDeleted:           o.IsDeleted,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
		Version:             o.GetVersion(),
	}
}

// ToOrderListItemResponse maps an order for list views.
func ToOrderListItemResponse(o *order.Order, now time.Time) OrderListItemResponse {
	return OrderListItemResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Reference:     o.Reference,
		QuoteID:       o.QuoteID,
		ClientID:      o.ClientID,
		Status:        o.Status.String(),
		PaymentStatus: o.EffectivePaymentStatus(now).String(),
		Priority:      string(o.Priority),
		Currency:      string(o.Currency),
		LineCount:     o.LineCount(),
		TotalInclTax:  o.Totals().TotalInclTax.Round(2),
		AmountDue:     o.AmountDue().Round(2),
		IsOverdue:     o.IsOverdue(now),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

// ToOrderListItemResponses maps a page of orders.
func ToOrderListItemResponses(orders []order.Order, now time.Time) []OrderListItemResponse {
	responses := make([]OrderListItemResponse, len(orders))
	for i := range orders {
		responses[i] = ToOrderListItemResponse(&orders[i], now)
	}
	return responses
}
