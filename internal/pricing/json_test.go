package pricing

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakdownJSONKeepsTwoDecimals(t *testing.T) {
	b, err := Earnings(EarningsInput{SellingPrice: dec("121"), VATRate: dec("21"), CommissionRate: dec("15")})
	require.NoError(t, err)

	raw, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"selling_price": "121.00",
		"vat_rate": "21",
		"commission_rate": "15",
		"net_price": "100.00",
		"vat_amount": "21.00",
		"commission_amount": "13.04",
		"provider_earning": "86.96"
	}`, string(raw))

	var back Breakdown
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.NetPrice.Equal(b.NetPrice))
}

func TestMoneyTypesJSON(t *testing.T) {
	raw, err := json.Marshal(Totals{Total: dec("60"), VAT: dec("10.4"), Net: dec("49.6")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_amount":"60.00","vat_amount":"10.40","net_amount":"49.60"}`, string(raw))

	raw, err = json.Marshal(Estimate{Unit: PriceUnitPerHour, UnitPrice: dec("20"), Units: dec("3"), Total: dec("60")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price_unit":"per_hour","unit_price":"20.00","units":"3","estimated_total":"60.00"}`, string(raw))

	line, err := ComputePayoutLine(dec("100"), dec("10"))
	require.NoError(t, err)
	raw, err = json.Marshal([]PayoutLine{line})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"amount":"100.00","commission_percentage":"10","commission_amount":"10.00","net_amount":"90.00"}]`, string(raw))

	raw, err = json.Marshal(Installment{Sequence: 1, Percentage: decimal.NewFromInt(100), Amount: dec("5")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"sequence":1,"percentage_due":"100","amount_due":"5.00"}`, string(raw))
}
