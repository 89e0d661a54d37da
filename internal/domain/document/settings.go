// Package document holds the financial building blocks shared by quotes and
// orders: priced line items, derived totals, document numbering, and the
// change log written by workflow transitions.
package document

import (
	"github.com/shopspring/decimal"

	"github.com/salesflow/backend/internal/domain/shared"
	"github.com/salesflow/backend/internal/domain/shared/valueobject"
)

// Type identifies which aggregate a shared document record belongs to.
type Type string

const (
	TypeQuote Type = "quote"
	TypeOrder Type = "order"
)

// Settings carries the financial configuration every document is created
// with: the trading currency, the exchange rate against the bookkeeping
// currency, the document-level tax rate, and whether entered unit prices
// already contain tax.
type Settings struct {
	Currency     valueobject.Currency `gorm:"type:varchar(3);not null;default:'EUR'"`
	ExchangeRate decimal.Decimal      `gorm:"type:decimal(10,6);not null;default:1"`
	TaxRate      decimal.Decimal      `gorm:"type:decimal(5,2);not null;default:21.00"`
	TaxInclusive bool                 `gorm:"not null;default:true"`
}

// NewSettings validates and builds document settings.
func NewSettings(currency valueobject.Currency, exchangeRate, taxRate decimal.Decimal, taxInclusive bool) (Settings, error) {
	if !currency.IsSupported() {
		return Settings{}, shared.NewValidationError("currency", "must be a supported ISO 4217 code")
	}
	if exchangeRate.LessThanOrEqual(decimal.Zero) {
		return Settings{}, shared.NewValidationError("exchange_rate", "must be positive")
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(decimal.NewFromInt(100)) {
		return Settings{}, shared.NewValidationError("tax_rate", "must be between 0 and 100")
	}
	return Settings{
		Currency:     currency,
		ExchangeRate: exchangeRate,
		TaxRate:      taxRate,
		TaxInclusive: taxInclusive,
	}, nil
}

// DefaultSettings returns the system defaults: EUR at exchange rate 1 with
// 21% tax on tax-inclusive prices.
func DefaultSettings() Settings {
	return Settings{
		Currency:     valueobject.DefaultCurrency,
		ExchangeRate: decimal.NewFromInt(1),
		TaxRate:      decimal.NewFromFloat(21.00),
		TaxInclusive: true,
	}
}

// taxFactor returns 1 + TaxRate/100, the divisor used to back tax out of
// inclusive amounts.
func (s Settings) taxFactor() decimal.Decimal {
	return decimal.NewFromInt(1).Add(s.TaxRate.Div(decimal.NewFromInt(100)))
}
