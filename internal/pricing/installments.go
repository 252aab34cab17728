package pricing

import (
	"github.com/railzwaylabs/caremarket/internal/money"
	"github.com/shopspring/decimal"
)

// Installment is one scheduled part of an invoice paid in installments.
type Installment struct {
	Sequence   int             `json:"sequence"`
	Percentage decimal.Decimal `json:"percentage_due"`
	Amount     decimal.Decimal `json:"amount_due"`
}

// SplitInstallments divides total by the given percentages, which must have
// at most two decimals and add up to exactly 100. Amounts are derived from cumulative rounding so every
// amount is non-negative and the amounts add up to total.
func SplitInstallments(total decimal.Decimal, percentages []decimal.Decimal) ([]Installment, error) {
	if len(percentages) == 0 {
		return nil, ErrEmptyInstallments
	}
	if total.IsNegative() {
		return nil, ErrNegativeAmount
	}

	sum := decimal.Zero
	for _, p := range percentages {
		if p.IsNegative() || !money.FitsScale(p, RateScale) {
			return nil, ErrInstallmentPercentage
		}
		sum = sum.Add(p)
	}
	if !sum.Equal(money.Hundred()) {
		return nil, ErrInstallmentPercentage
	}

	total = money.Round(total)
	out := make([]Installment, 0, len(percentages))
	cumulative := decimal.Zero
	allocated := decimal.Zero
	for i, p := range percentages {
		cumulative = cumulative.Add(p)
		reached := money.Round(total.Mul(cumulative).Div(money.Hundred()))
		out = append(out, Installment{
			Sequence:   i + 1,
			Percentage: p,
			Amount:     reached.Sub(allocated),
		})
		allocated = reached
	}
	return out, nil
}

// ValidateInstallments checks that percentages add up to 100 and amounts to total.
func ValidateInstallments(total decimal.Decimal, installments []Installment) error {
	if len(installments) == 0 {
		return ErrEmptyInstallments
	}
	pct := decimal.Zero
	amount := decimal.Zero
	for _, in := range installments {
		if in.Percentage.IsNegative() || in.Amount.IsNegative() {
			return ErrNegativeAmount
		}
		pct = pct.Add(in.Percentage)
		amount = amount.Add(in.Amount)
	}
	if !pct.Equal(money.Hundred()) {
		return ErrInstallmentPercentage
	}
	if !amount.Equal(money.Round(total)) {
		return ErrInstallmentAmount
	}
	return nil
}
