package pricing

import (
	"github.com/railzwaylabs/caremarket/internal/money"
	"github.com/shopspring/decimal"
)

// PayoutLine is one earning line of a provider payout.
type PayoutLine struct {
	Amount               decimal.Decimal `json:"amount"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
	CommissionAmount     decimal.Decimal `json:"commission_amount"`
	NetAmount            decimal.Decimal `json:"net_amount"`
}

// ComputePayoutLine applies commission_amount = amount x pct / 100.
func ComputePayoutLine(amount, commissionPct decimal.Decimal) (PayoutLine, error) {
	if amount.IsNegative() {
		return PayoutLine{}, ErrNegativeAmount
	}
	if err := ValidateCommissionRate(commissionPct); err != nil {
		return PayoutLine{}, err
	}
	amount = money.Round(amount)
	commission := money.Round(amount.Mul(commissionPct).Div(money.Hundred()))
	return PayoutLine{
		Amount:               amount,
		CommissionPercentage: commissionPct,
		CommissionAmount:     commission,
		NetAmount:            amount.Sub(commission),
	}, nil
}

// PayoutTotal is the sum of the net-of-commission amounts.
func PayoutTotal(lines []PayoutLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.NetAmount)
	}
	return total
}
