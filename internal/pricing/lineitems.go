package pricing

import (
	"fmt"

	"github.com/railzwaylabs/caremarket/internal/money"
	"github.com/shopspring/decimal"
)

// LineItem is one invoice line. Unit prices are VAT inclusive.
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	VATRate     decimal.Decimal
}

// PricedLine carries the rounded line total and the exact VAT portion.
type PricedLine struct {
	LineItem
	LineTotal decimal.Decimal
	LineVAT   decimal.Decimal
}

// Totals are invoice level amounts. Total == Net + VAT.
type Totals struct {
	Total decimal.Decimal `json:"total_amount"`
	VAT   decimal.Decimal `json:"vat_amount"`
	Net   decimal.Decimal `json:"net_amount"`
}

// DisplayVAT is the line VAT rounded for presentation only.
func (l PricedLine) DisplayVAT() decimal.Decimal {
	return money.Round(l.LineVAT)
}

// PriceLine computes line_total = round(quantity x unit_price) and the VAT
// contained in it.
func PriceLine(item LineItem) (PricedLine, error) {
	if item.Quantity.IsNegative() || item.UnitPrice.IsNegative() {
		return PricedLine{}, ErrNegativeAmount
	}
	if err := ValidateVATRate(item.VATRate); err != nil {
		return PricedLine{}, err
	}
	total := money.Round(item.Quantity.Mul(item.UnitPrice))
	return PricedLine{
		LineItem:  item,
		LineTotal: total,
		LineVAT:   ExtractVAT(total, item.VATRate),
	}, nil
}

// AggregateLineItems folds the whole sequence into invoice totals. VAT is
// summed at full precision and rounded once, so the result does not depend on
// the order of the lines and is identical on every call.
func AggregateLineItems(items []LineItem) (Totals, []PricedLine, error) {
	lines := make([]PricedLine, 0, len(items))
	total := decimal.Zero
	vat := decimal.Zero
	for i, item := range items {
		line, err := PriceLine(item)
		if err != nil {
			return Totals{}, nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		lines = append(lines, line)
		total = total.Add(line.LineTotal)
		vat = vat.Add(line.LineVAT)
	}

	vat = money.Round(vat)
	return Totals{
		Total: total,
		VAT:   vat,
		Net:   total.Sub(vat),
	}, lines, nil
}

// ReconcileTotals recomputes the totals of items and compares them with
// stored ones. A gap above one minor unit means the stored figures were
// produced with a different rounding sequence.
func ReconcileTotals(stored Totals, items []LineItem) (Totals, error) {
	computed, _, err := AggregateLineItems(items)
	if err != nil {
		return Totals{}, err
	}

	checks := []struct {
		name             string
		stored, computed decimal.Decimal
	}{
		{"total_amount", stored.Total, computed.Total},
		{"vat_amount", stored.VAT, computed.VAT},
		{"net_amount", stored.Net, computed.Net},
	}
	for _, c := range checks {
		if !money.WithinOneCent(c.stored, c.computed) {
			return computed, fmt.Errorf("%w: %s stored=%s computed=%s",
				ErrRoundingOverflow, c.name, c.stored.StringFixed(money.MinorUnits), c.computed.StringFixed(money.MinorUnits))
		}
	}
	if !stored.Total.Equal(stored.Net.Add(stored.VAT)) {
		return computed, fmt.Errorf("%w: total_amount != net_amount + vat_amount", ErrRoundingOverflow)
	}
	return computed, nil
}
