// Package pricing is the single home of the marketplace's monetary rules:
// VAT extraction, commission split, invoice aggregation, installment and
// payout splits, discount applicability and booking price estimation.
//
// Every function is pure. Intermediate values keep full decimal precision and
// are rounded half-up to cents once, where they leave the package.
package pricing

import (
	"github.com/railzwaylabs/caremarket/internal/money"
	"github.com/shopspring/decimal"
)

var (
	// DefaultVATRate is the VAT percentage applied to service prices.
	DefaultVATRate = decimal.NewFromInt(21)
	// DefaultCommissionRate is the platform-wide fallback when neither the
	// provider service nor its category carries a rate.
	DefaultCommissionRate = decimal.NewFromInt(15)
)

// RateScale is the number of decimal places kept for percentages.
const RateScale int32 = 2

var one = decimal.NewFromInt(1)

// EarningsInput describes a VAT-inclusive selling price.
type EarningsInput struct {
	SellingPrice   decimal.Decimal
	VATRate        decimal.Decimal
	CommissionRate decimal.Decimal
}

// Breakdown is the decomposition of a selling price.
// NetPrice + VATAmount == SellingPrice and ProviderEarning + CommissionAmount == NetPrice.
type Breakdown struct {
	SellingPrice     decimal.Decimal `json:"selling_price"`
	VATRate          decimal.Decimal `json:"vat_rate"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	NetPrice         decimal.Decimal `json:"net_price"`
	VATAmount        decimal.Decimal `json:"vat_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	ProviderEarning  decimal.Decimal `json:"provider_earning"`
}

// ResolveCommissionRate picks the per-service override, then the category
// default, then the platform default.
func ResolveCommissionRate(override, categoryDefault *decimal.Decimal, platformDefault decimal.Decimal) (decimal.Decimal, error) {
	rate := platformDefault
	switch {
	case override != nil:
		rate = *override
	case categoryDefault != nil:
		rate = *categoryDefault
	}
	if err := ValidateCommissionRate(rate); err != nil {
		return decimal.Zero, err
	}
	return rate, nil
}

// ValidateCommissionRate rejects rates outside [0,100] or with more than
// two decimals.
func ValidateCommissionRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(money.Hundred()) || !money.FitsScale(rate, RateScale) {
		return ErrInvalidCommissionRate
	}
	return nil
}

func ValidateVATRate(rate decimal.Decimal) error {
	if rate.IsNegative() || !money.FitsScale(rate, RateScale) {
		return ErrInvalidVATRate
	}
	return nil
}

// ExtractVAT returns the VAT contained in a VAT-inclusive amount, unrounded.
func ExtractVAT(amount, vatRate decimal.Decimal) decimal.Decimal {
	return amount.Mul(vatRate).Div(money.Hundred().Add(vatRate))
}

// Earnings splits a VAT-inclusive selling price into net price, VAT,
// platform commission and the provider's earning:
//
//	earning = price / (1 + vat/100) / (1 + commission/100)
func Earnings(in EarningsInput) (Breakdown, error) {
	if in.SellingPrice.IsNegative() {
		return Breakdown{}, ErrNegativeAmount
	}
	if err := ValidateVATRate(in.VATRate); err != nil {
		return Breakdown{}, err
	}
	if err := ValidateCommissionRate(in.CommissionRate); err != nil {
		return Breakdown{}, err
	}

	price := money.Round(in.SellingPrice)
	netExact := price.Div(one.Add(in.VATRate.Div(money.Hundred())))
	earningExact := netExact.Div(one.Add(in.CommissionRate.Div(money.Hundred())))

	net := money.Round(netExact)
	earning := money.Round(earningExact)

	return Breakdown{
		SellingPrice:     price,
		VATRate:          in.VATRate,
		CommissionRate:   in.CommissionRate,
		NetPrice:         net,
		VATAmount:        price.Sub(net),
		CommissionAmount: net.Sub(earning),
		ProviderEarning:  earning,
	}, nil
}
