package document

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salesflow/backend/internal/domain/shared"
)

// LineKind classifies what a line bills for.
type LineKind string

const (
	LineKindProduct  LineKind = "product"
	LineKindService  LineKind = "service"
	LineKindMaterial LineKind = "material"
	LineKindLabor    LineKind = "labor"
	LineKindOther    LineKind = "other"
)

// IsValid checks if the kind is a known LineKind
func (k LineKind) IsValid() bool {
	switch k {
	case LineKindProduct, LineKindService, LineKindMaterial, LineKindLabor, LineKindOther:
		return true
	}
	return false
}

// String returns the string representation of LineKind
func (k LineKind) String() string {
	return string(k)
}

// DefaultUnit is the unit of measure applied when none is given.
const DefaultUnit = "piece"

// Line is a single priced entry in a financial document. Monetary figures
// (subtotal, tax, total, profit) are derived on every read and never stored.
// Quantities carry 3 decimal places, prices 2, percentages 2.
type Line struct {
	ID                 uuid.UUID        `gorm:"type:uuid;primaryKey"`
	DocumentID         uuid.UUID        `gorm:"type:uuid;not null;index"`
	LineNumber         int              `gorm:"not null"`
	Kind               LineKind         `gorm:"type:varchar(20);not null;default:'product'"`
	ProductID          *uuid.UUID       `gorm:"type:uuid"`
	ServiceID          *uuid.UUID       `gorm:"type:uuid"`
	Description        string           `gorm:"type:text;not null"`
	Specification      string           `gorm:"type:text"`
	Quantity           decimal.Decimal  `gorm:"type:decimal(10,3);not null;default:1"`
	Unit               string           `gorm:"type:varchar(20);not null;default:'piece'"`
	UnitPrice          decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	CostPrice          *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DiscountPercentage decimal.Decimal  `gorm:"type:decimal(5,2);not null;default:0"`
	TaxRate            *decimal.Decimal `gorm:"type:decimal(5,2)"`
	Notes              string           `gorm:"type:text"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// LineInput is the caller-supplied content of a line. Zero values fall back
// to defaults where one exists (Kind product, Unit piece, Quantity 1).
type LineInput struct {
	Kind               LineKind
	ProductID          *uuid.UUID
	ServiceID          *uuid.UUID
	Description        string
	Specification      string
	Quantity           decimal.Decimal
	Unit               string
	UnitPrice          decimal.Decimal
	CostPrice          *decimal.Decimal
	DiscountPercentage decimal.Decimal
	TaxRate            *decimal.Decimal
	Notes              string
}

// LinePatch is a partial update of a line; nil fields are left untouched.
type LinePatch struct {
	Kind               *LineKind
	Description        *string
	Specification      *string
	Quantity           *decimal.Decimal
	Unit               *string
	UnitPrice          *decimal.Decimal
	CostPrice          *decimal.Decimal
	DiscountPercentage *decimal.Decimal
	TaxRate            *decimal.Decimal
	Notes              *string
}

// NewLine creates a line for the given document at the given position.
func NewLine(documentID uuid.UUID, lineNumber int, in LineInput) (*Line, error) {
	if documentID == uuid.Nil {
		return nil, shared.NewValidationError("document_id", "cannot be empty")
	}
	if lineNumber < 1 {
		return nil, shared.NewValidationError("line_number", "must be positive")
	}
	if in.Kind == "" {
		in.Kind = LineKindProduct
	}
	if !in.Kind.IsValid() {
		return nil, shared.NewValidationError("kind", "is not a known line kind")
	}
	if in.Description == "" {
		return nil, shared.NewValidationError("description", "cannot be empty")
	}
	if in.Unit == "" {
		in.Unit = DefaultUnit
	}
	if in.Quantity.IsZero() {
		in.Quantity = decimal.NewFromInt(1)
	}
	if err := validateLineValues(in.Quantity, in.UnitPrice, in.DiscountPercentage, in.TaxRate, in.CostPrice); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Line{
		ID:                 uuid.New(),
		DocumentID:         documentID,
		LineNumber:         lineNumber,
		Kind:               in.Kind,
		ProductID:          in.ProductID,
		ServiceID:          in.ServiceID,
		Description:        in.Description,
		Specification:      in.Specification,
		Quantity:           in.Quantity,
		Unit:               in.Unit,
		UnitPrice:          in.UnitPrice,
		CostPrice:          in.CostPrice,
		DiscountPercentage: in.DiscountPercentage,
		TaxRate:            in.TaxRate,
		Notes:              in.Notes,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func validateLineValues(quantity, unitPrice, discount decimal.Decimal, taxRate, costPrice *decimal.Decimal) error {
	hundred := decimal.NewFromInt(100)
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("quantity", "must be positive")
	}
	if unitPrice.IsNegative() {
		return shared.NewValidationError("unit_price", "cannot be negative")
	}
	if discount.IsNegative() || discount.GreaterThan(hundred) {
		return shared.NewValidationError("discount_percentage", "must be between 0 and 100")
	}
	if taxRate != nil && (taxRate.IsNegative() || taxRate.GreaterThan(hundred)) {
		return shared.NewValidationError("tax_rate", "must be between 0 and 100")
	}
	if costPrice != nil && costPrice.IsNegative() {
		return shared.NewValidationError("cost_price", "cannot be negative")
	}
	return nil
}

// Apply merges a patch into the line. Validation happens against the merged
// values before anything is assigned, so a rejected patch leaves the line
// untouched.
func (l *Line) Apply(patch LinePatch) error {
	quantity := l.Quantity
	if patch.Quantity != nil {
		quantity = *patch.Quantity
	}
	unitPrice := l.UnitPrice
	if patch.UnitPrice != nil {
		unitPrice = *patch.UnitPrice
	}
	discount := l.DiscountPercentage
	if patch.DiscountPercentage != nil {
		discount = *patch.DiscountPercentage
	}
	taxRate := l.TaxRate
	if patch.TaxRate != nil {
		taxRate = patch.TaxRate
	}
	costPrice := l.CostPrice
	if patch.CostPrice != nil {
		costPrice = patch.CostPrice
	}
	if patch.Kind != nil && !patch.Kind.IsValid() {
		return shared.NewValidationError("kind", "is not a known line kind")
	}
	if patch.Description != nil && *patch.Description == "" {
		return shared.NewValidationError("description", "cannot be empty")
	}
	if patch.Unit != nil && *patch.Unit == "" {
		return shared.NewValidationError("unit", "cannot be empty")
	}
	if err := validateLineValues(quantity, unitPrice, discount, taxRate, costPrice); err != nil {
		return err
	}

	if patch.Kind != nil {
		l.Kind = *patch.Kind
	}
	if patch.Description != nil {
		l.Description = *patch.Description
	}
	if patch.Specification != nil {
		l.Specification = *patch.Specification
	}
	if patch.Unit != nil {
		l.Unit = *patch.Unit
	}
	if patch.Notes != nil {
		l.Notes = *patch.Notes
	}
	l.Quantity = quantity
	l.UnitPrice = unitPrice
	l.DiscountPercentage = discount
	l.TaxRate = taxRate
	l.CostPrice = costPrice
	l.UpdatedAt = time.Now()
	return nil
}

// EffectiveTaxRate returns the line's own tax rate, or the document rate
// when the line has no override.
func (l *Line) EffectiveTaxRate(documentRate decimal.Decimal) decimal.Decimal {
	if l.TaxRate != nil {
		return *l.TaxRate
	}
	return documentRate
}

// Subtotal returns quantity * unit price with the line discount applied.
// In tax-inclusive documents this figure still contains tax; the document
// totals back it out at the aggregate level.
func (l *Line) Subtotal() decimal.Decimal {
	base := l.Quantity.Mul(l.UnitPrice)
	discount := base.Mul(l.DiscountPercentage).Div(decimal.NewFromInt(100))
	return base.Sub(discount)
}

// TaxAmount returns the tax computed forward on the line subtotal using the
// effective rate.
func (l *Line) TaxAmount(documentRate decimal.Decimal) decimal.Decimal {
	return l.Subtotal().Mul(l.EffectiveTaxRate(documentRate)).Div(decimal.NewFromInt(100))
}

// TotalWithTax returns subtotal plus tax.
func (l *Line) TotalWithTax(documentRate decimal.Decimal) decimal.Decimal {
	return l.Subtotal().Add(l.TaxAmount(documentRate))
}

// DiscountAmount returns the monetary value of the line discount.
func (l *Line) DiscountAmount() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice).Mul(l.DiscountPercentage).Div(decimal.NewFromInt(100))
}

// HasCostPrice reports whether a cost price is recorded for the line.
func (l *Line) HasCostPrice() bool {
	return l.CostPrice != nil
}

// Profit returns (unit price - cost price) * quantity, zero when no cost
// price is recorded.
func (l *Line) Profit() decimal.Decimal {
	if l.CostPrice == nil {
		return decimal.Zero
	}
	return l.UnitPrice.Sub(*l.CostPrice).Mul(l.Quantity)
}

// ProfitMarginPercent returns the per-unit margin over cost as a percentage,
// zero when no positive cost price is recorded.
func (l *Line) ProfitMarginPercent() decimal.Decimal {
	if l.CostPrice == nil || !l.CostPrice.IsPositive() {
		return decimal.Zero
	}
	return l.UnitPrice.Sub(*l.CostPrice).Div(*l.CostPrice).Mul(decimal.NewFromInt(100))
}

// CopyTo returns an independent copy of the line attached to another
// document, with a fresh identity. Used by quote revisions and quote-to-
// order conversion.
func (l *Line) CopyTo(documentID uuid.UUID) Line {
	now := time.Now()
	copied := *l
	copied.ID = uuid.New()
	copied.DocumentID = documentID
	copied.CreatedAt = now
	copied.UpdatedAt = now
	if l.CostPrice != nil {
		cost := *l.CostPrice
		copied.CostPrice = &cost
	}
	if l.TaxRate != nil {
		rate := *l.TaxRate
		copied.TaxRate = &rate
	}
	if l.ProductID != nil {
		id := *l.ProductID
		copied.ProductID = &id
	}
	if l.ServiceID != nil {
		id := *l.ServiceID
		copied.ServiceID = &id
	}
	return copied
}

// Renumber assigns dense 1..N line numbers in slice order. Called after
// every line removal so numbering never has gaps.
func Renumber(lines []Line) {
	for idx := range lines {
		lines[idx].LineNumber = idx + 1
	}
}
