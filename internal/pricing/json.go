package pricing

import (
	"encoding/json"

	"github.com/railzwaylabs/caremarket/internal/money"
)

// Money fields leave the package as two-decimal strings. Each method shadows
// the money fields of an alias, so rates and units keep their own precision.

func (b Breakdown) MarshalJSON() ([]byte, error) {
	type alias Breakdown
	return json.Marshal(struct {
		alias
		SellingPrice     string `json:"selling_price"`
		NetPrice         string `json:"net_price"`
		VATAmount        string `json:"vat_amount"`
		CommissionAmount string `json:"commission_amount"`
		ProviderEarning  string `json:"provider_earning"`
	}{
		alias:            alias(b),
		SellingPrice:     money.Fixed(b.SellingPrice),
		NetPrice:         money.Fixed(b.NetPrice),
		VATAmount:        money.Fixed(b.VATAmount),
		CommissionAmount: money.Fixed(b.CommissionAmount),
		ProviderEarning:  money.Fixed(b.ProviderEarning),
	})
}

func (t Totals) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Total string `json:"total_amount"`
		VAT   string `json:"vat_amount"`
		Net   string `json:"net_amount"`
	}{
		Total: money.Fixed(t.Total),
		VAT:   money.Fixed(t.VAT),
		Net:   money.Fixed(t.Net),
	})
}

func (e Estimate) MarshalJSON() ([]byte, error) {
	type alias Estimate
	return json.Marshal(struct {
		alias
		UnitPrice string `json:"unit_price"`
		Total     string `json:"estimated_total"`
	}{
		alias:     alias(e),
		UnitPrice: money.Fixed(e.UnitPrice),
		Total:     money.Fixed(e.Total),
	})
}

func (l PayoutLine) MarshalJSON() ([]byte, error) {
	type alias PayoutLine
	return json.Marshal(struct {
		alias
		Amount           string `json:"amount"`
		CommissionAmount string `json:"commission_amount"`
		NetAmount        string `json:"net_amount"`
	}{
		alias:            alias(l),
		Amount:           money.Fixed(l.Amount),
		CommissionAmount: money.Fixed(l.CommissionAmount),
		NetAmount:        money.Fixed(l.NetAmount),
	})
}

func (i Installment) MarshalJSON() ([]byte, error) {
	type alias Installment
	return json.Marshal(struct {
		alias
		Amount string `json:"amount_due"`
	}{
		alias:  alias(i),
		Amount: money.Fixed(i.Amount),
	})
}
