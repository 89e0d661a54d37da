package document

import (
	"github.com/shopspring/decimal"

	"github.com/salesflow/backend/internal/domain/shared/valueobject"
)

// Totals is the derived financial summary of a document. It is computed
// from the current lines on every call and never persisted, so line edits
// can never drift from the displayed totals.
type Totals struct {
	SubtotalExclTax decimal.Decimal
	DiscountAmount  decimal.Decimal
	TaxAmount       decimal.Decimal
	ShippingCosts   decimal.Decimal
	TotalExclTax    decimal.Decimal
	TotalInclTax    decimal.Decimal
}

// Calculate derives document totals from lines under the given settings.
// Shipping costs are added after tax, outside the line aggregation.
//
// Exclusive documents aggregate forward: subtotal is the sum of discounted
// line subtotals and tax is summed per line using each line's effective
// rate. Inclusive documents treat the entered line amounts as the
// tax-inclusive ground truth: the exclusive subtotal is backed out by
// dividing through 1 + documentRate/100, and tax is the difference, which
// keeps subtotal + tax exactly equal to the entered total. The back-out
// uses the document rate even when lines override their rate, so documents
// mixing inclusive pricing with per-line rates are unsupported.
func Calculate(lines []Line, s Settings, shippingCosts decimal.Decimal) Totals {
	grossSubtotal := decimal.Zero
	discount := decimal.Zero
	forwardTax := decimal.Zero
	for idx := range lines {
		grossSubtotal = grossSubtotal.Add(lines[idx].Subtotal())
		discount = discount.Add(lines[idx].DiscountAmount())
		forwardTax = forwardTax.Add(lines[idx].TaxAmount(s.TaxRate))
	}

	var t Totals
	t.DiscountAmount = discount
	t.ShippingCosts = shippingCosts
	if s.TaxInclusive {
		t.SubtotalExclTax = grossSubtotal.Div(s.taxFactor())
		t.TaxAmount = grossSubtotal.Sub(t.SubtotalExclTax)
		t.TotalInclTax = grossSubtotal
	} else {
		t.SubtotalExclTax = grossSubtotal
		t.TaxAmount = forwardTax
		t.TotalInclTax = grossSubtotal.Add(forwardTax)
	}
	t.TotalExclTax = t.SubtotalExclTax.Add(shippingCosts)
	t.TotalInclTax = t.TotalInclTax.Add(shippingCosts)
	return t
}

// Rounded returns a presentation copy with every amount rounded to 2
// decimal places. Derivation always runs at full precision; rounding is
// applied only at this boundary.
func (t Totals) Rounded() Totals {
	return Totals{
		SubtotalExclTax: t.SubtotalExclTax.Round(2),
		DiscountAmount:  t.DiscountAmount.Round(2),
		TaxAmount:       t.TaxAmount.Round(2),
		ShippingCosts:   t.ShippingCosts.Round(2),
		TotalExclTax:    t.TotalExclTax.Round(2),
		TotalInclTax:    t.TotalInclTax.Round(2),
	}
}

// TotalInclTaxMoney returns the tax-inclusive total as Money in the
// document currency.
func (t Totals) TotalInclTaxMoney(currency valueobject.Currency) valueobject.Money {
	return valueobject.MustNewMoney(t.TotalInclTax, currency)
}

// TotalCost returns the summed cost basis of the lines, cost price *
// quantity over lines that record a cost price.
func TotalCost(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for idx := range lines {
		if lines[idx].CostPrice != nil {
			total = total.Add(lines[idx].CostPrice.Mul(lines[idx].Quantity))
		}
	}
	return total
}

// TotalProfit returns the summed line profits.
func TotalProfit(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for idx := range lines {
		total = total.Add(lines[idx].Profit())
	}
	return total
}

// ProfitMargin returns (subtotal excluding tax - total cost) / total cost *
// 100. Returns zero when no cost basis is recorded, never dividing by zero.
// Shipping costs are not part of the margin.
func ProfitMargin(lines []Line, s Settings) decimal.Decimal {
	cost := TotalCost(lines)
	if !cost.IsPositive() {
		return decimal.Zero
	}
	subtotal := Calculate(lines, s, decimal.Zero).SubtotalExclTax
	return subtotal.Sub(cost).Div(cost).Mul(decimal.NewFromInt(100))
}
