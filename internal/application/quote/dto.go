package quote

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salesflow/backend/internal/domain/document"
	"github.com/salesflow/backend/internal/domain/quote"
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
}

// toDomain converts the transport shape into the domain line input,
// letting the domain apply its defaults for omitted values.
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

// CreateQuoteRequest represents a request to create a quote.
type CreateQuoteRequest struct {
	ClientID          uuid.UUID        `json:"client_id" binding:"required"`
	ContactID         *uuid.UUID       `json:"contact_id"`
	Reference         string           `json:"reference" binding:"max=100"`
	Priority          string           `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Currency          string           `json:"currency" binding:"omitempty,len=3"`
	ExchangeRate      *decimal.Decimal `json:"exchange_rate"`
	TaxRate           *decimal.Decimal `json:"tax_rate"`
	TaxInclusive      *bool            `json:"tax_inclusive"`
	ValidFrom         *time.Time       `json:"valid_from"`
	ValidUntil        *time.Time       `json:"valid_until"`
	DeliveryAddressID *uuid.UUID       `json:"delivery_address_id"`
	BillingAddressID  *uuid.UUID       `json:"billing_address_id"`
	DeliveryDate      *time.Time       `json:"delivery_date"`
	PaymentTerms      string           `json:"payment_terms" binding:"max=2000"`
	DeliveryTerms     string           `json:"delivery_terms" binding:"max=2000"`
	InternalNotes     string           `json:"internal_notes"`
	ClientNotes       string           `json:"client_notes"`
	TermsConditions   string           `json:"terms_conditions"`
	Lines             []LineInput      `json:"lines"`
}

// UpdateQuoteRequest represents a partial update of quote attributes.
// Lines and status are changed through their own endpoints.
type UpdateQuoteRequest struct {
	Reference         *string    `json:"reference" binding:"omitempty,max=100"`
	Priority          *string    `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	ContactID         *uuid.UUID `json:"contact_id"`
	DeliveryAddressID *uuid.UUID `json:"delivery_address_id"`
	BillingAddressID  *uuid.UUID `json:"billing_address_id"`
	DeliveryDate      *time.Time `json:"delivery_date"`
	ValidFrom         *time.Time `json:"valid_from"`
	ValidUntil        *time.Time `json:"valid_until"`
	PaymentTerms      *string    `json:"payment_terms"`
	DeliveryTerms     *string    `json:"delivery_terms"`
	InternalNotes     *string    `json:"internal_notes"`
	ClientNotes       *string    `json:"client_notes"`
	TermsConditions   *string    `json:"terms_conditions"`
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

// RejectQuoteRequest carries the client's rejection reason.
type RejectQuoteRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// CancelQuoteRequest carries the internal cancellation reason.
type CancelQuoteRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// QuoteListFilter represents filter options for quote lists.
type QuoteListFilter struct {
	Search         string     `form:"search"`
	ClientID       *uuid.UUID `form:"client_id"`
	Status         *string    `form:"status"`
	Priority       *string    `form:"priority"`
	ExpiringBefore *time.Time `form:"expiring_before"`
	IncludeDeleted bool       `form:"include_deleted"`
	Page           int        `form:"page" binding:"omitempty,min=1"`
	PageSize       int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy        string     `form:"order_by"`
	OrderDir       string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ==================== Response DTOs ====================

// LineResponse represents a document line in API responses.
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

// QuoteResponse represents a quote in API responses.
type QuoteResponse struct {
	ID                 uuid.UUID      `json:"id"`
	QuoteNumber        string         `json:"quote_number"`
	Reference          string         `json:"reference,omitempty"`
	Revision           int            `json:"revision"`
	ParentQuoteID      *uuid.UUID     `json:"parent_quote_id,omitempty"`
	ClientID           uuid.UUID      `json:"client_id"`
	ContactID          *uuid.UUID     `json:"contact_id,omitempty"`
	Status             string         `json:"status"`
	Priority           string         `json:"priority"`
	Currency           string         `json:"currency"`
	ExchangeRate       decimal.Decimal `json:"exchange_rate"`
	TaxRate            decimal.Decimal `json:"tax_rate"`
	TaxInclusive       bool           `json:"tax_inclusive"`
	ValidFrom          time.Time      `json:"valid_from"`
	ValidUntil         time.Time      `json:"valid_until"`
	DaysUntilExpiry    int            `json:"days_until_expiry"`
	IsExpired          bool           `json:"is_expired"`
	DeliveryAddressID  *uuid.UUID     `json:"delivery_address_id,omitempty"`
	BillingAddressID   *uuid.UUID     `json:"billing_address_id,omitempty"`
	DeliveryDate       *time.Time     `json:"delivery_date,omitempty"`
	PaymentTerms       string         `json:"payment_terms,omitempty"`
	DeliveryTerms      string         `json:"delivery_terms,omitempty"`
	InternalNotes      string         `json:"internal_notes,omitempty"`
	ClientNotes        string         `json:"client_notes,omitempty"`
	TermsConditions    string         `json:"terms_conditions,omitempty"`
	Lines              []LineResponse `json:"lines"`
	Totals             TotalsResponse `json:"totals"`
	SentAt             *time.Time     `json:"sent_at,omitempty"`
	ViewedAt           *time.Time     `json:"viewed_at,omitempty"`
	RespondedAt        *time.Time     `json:"responded_at,omitempty"`
	AcceptedAt         *time.Time     `json:"accepted_at,omitempty"`
	ExpiredAt          *time.Time     `json:"expired_at,omitempty"`
	ConvertedToOrderID *uuid.UUID     `json:"converted_to_order_id,omitempty"`
	IsDeleted          bool           `json:"is_deleted,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	Version            int            `json:"version"`
}

// QuoteListItemResponse represents a quote in list responses.
type QuoteListItemResponse struct {
	ID              uuid.UUID       `json:"id"`
	QuoteNumber     string          `json:"quote_number"`
	Reference       string          `json:"reference,omitempty"`
	Revision        int             `json:"revision"`
	ClientID        uuid.UUID       `json:"client_id"`
	Status          string          `json:"status"`
	Priority        string          `json:"priority"`
	Currency        string          `json:"currency"`
	LineCount       int             `json:"line_count"`
	TotalInclTax    decimal.Decimal `json:"total_incl_tax"`
	ValidUntil      time.Time       `json:"valid_until"`
	DaysUntilExpiry int             `json:"days_until_expiry"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ConversionResponse represents the outcome of a quote conversion.
type ConversionResponse struct {
	Quote       QuoteResponse `json:"quote"`
	OrderID     uuid.UUID     `json:"order_id"`
	OrderNumber string        `json:"order_number"`
}

// StatusSummary represents quote counts per status.
type StatusSummary struct {
	Draft       int64 `json:"draft"`
	Sent        int64 `json:"sent"`
	Viewed      int64 `json:"viewed"`
	Negotiation int64 `json:"negotiation"`
	Accepted    int64 `json:"accepted"`
	Rejected    int64 `json:"rejected"`
	Expired     int64 `json:"expired"`
	Converted   int64 `json:"converted"`
	Total       int64 `json:"total"`
}

// ==================== Mappers ====================

// ToLineResponse maps a domain line with the document tax rate applied
// for the effective rate and derived amounts.
func ToLineResponse(l *document.Line, settings document.Settings) LineResponse {
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

// ToQuoteResponse maps a quote aggregate. The status reflects expiry as
// of now even when the stored status has not been updated yet.
func ToQuoteResponse(q *quote.Quote, now time.Time) QuoteResponse {
	lines := make([]LineResponse, len(q.Lines))
	for i := range q.Lines {
		lines[i] = ToLineResponse(&q.Lines[i].Line, q.Settings)
	}
	return QuoteResponse{
		ID:                 q.ID,
		QuoteNumber:        q.QuoteNumber,
		Reference:          q.Reference,
		Revision:           q.Revision,
		ParentQuoteID:      q.ParentQuoteID,
		ClientID:           q.ClientID,
		ContactID:          q.ContactID,
		Status:             q.EffectiveStatus(now).String(),
		Priority:           string(q.Priority),
		Currency:           string(q.Currency),
		ExchangeRate:       q.ExchangeRate,
		TaxRate:            q.TaxRate,
		TaxInclusive:       q.TaxInclusive,
		ValidFrom:          q.ValidFrom,
		ValidUntil:         q.ValidUntil,
		DaysUntilExpiry:    q.DaysUntilExpiry(now),
		IsExpired:          q.IsExpired(now),
		DeliveryAddressID:  q.DeliveryAddressID,
		BillingAddressID:   q.BillingAddressID,
		DeliveryDate:       q.DeliveryDate,
		PaymentTerms:       q.PaymentTerms,
		DeliveryTerms:      q.DeliveryTerms,
		InternalNotes:      q.InternalNotes,
		ClientNotes:        q.ClientNotes,
		TermsConditions:    q.TermsConditions,
		Lines:              lines,
		Totals:             ToTotalsResponse(q.Totals()),
		SentAt:             q.SentAt,
		ViewedAt:           q.ViewedAt,
		RespondedAt:        q.RespondedAt,
		AcceptedAt:         q.AcceptedAt,
		ExpiredAt:          q.ExpiredAt,
		ConvertedToOrderID: q.ConvertedToOrderID,
		IsDeleted:          q.IsDeleted,
		CreatedAt:          q.CreatedAt,
		UpdatedAt:          q.UpdatedAt,
		Version:            q.GetVersion(),
	}
}

// ToQuoteListItemResponse maps a quote for list views.
func ToQuoteListItemResponse(q *quote.Quote, now time.Time) QuoteListItemResponse {
	return QuoteListItemResponse{
		ID:              q.ID,
		QuoteNumber:     q.QuoteNumber,
		Reference:       q.Reference,
		Revision:        q.Revision,
		ClientID:        q.ClientID,
		Status:          q.EffectiveStatus(now).String(),
		Priority:        string(q.Priority),
		Currency:        string(q.Currency),
		LineCount:       q.LineCount(),
		TotalInclTax:    q.Totals().TotalInclTax.Round(2),
		ValidUntil:      q.ValidUntil,
		DaysUntilExpiry: q.DaysUntilExpiry(now),
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
}

// ToQuoteListItemResponses maps a page of quotes.
func ToQuoteListItemResponses(quotes []quote.Quote, now time.Time) []QuoteListItemResponse {
	responses := make([]QuoteListItemResponse, len(quotes))
	for i := range quotes {
		responses[i] = ToQuoteListItemResponse(&quotes[i], now)
	}
	return responses
}
