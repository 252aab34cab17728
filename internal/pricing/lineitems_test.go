package pricing

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateExample(t *testing.T) {
	totals, lines, err := AggregateLineItems([]LineItem{
		{Description: "Home care visit", Quantity: dec("2"), UnitPrice: dec("100.00"), VATRate: dec("21")},
	})
	require.NoError(t, err)
	require.Len(t, lines, 1)

	assert.Equal(t, "200.00", lines[0].LineTotal.StringFixed(2))
	assert.Equal(t, "34.71", lines[0].DisplayVAT().StringFixed(2))
	assert.Equal(t, "200.00", totals.Total.StringFixed(2))
	assert.Equal(t, "34.71", totals.VAT.StringFixed(2))
	assert.Equal(t, "165.29", totals.Net.StringFixed(2))
}

func TestAggregateEmpty(t *testing.T) {
	totals, lines, err := AggregateLineItems(nil)
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.True(t, totals.Total.IsZero())
	assert.True(t, totals.VAT.IsZero())
	assert.True(t, totals.Net.IsZero())
}

func TestAggregateMixedRates(t *testing.T) {
	totals, _, err := AggregateLineItems([]LineItem{
		{Quantity: dec("1"), UnitPrice: dec("121.00"), VATRate: dec("21")},
		{Quantity: dec("3"), UnitPrice: dec("10.90"), VATRate: dec("9")},
		{Quantity: dec("1.5"), UnitPrice: dec("33.33"), VATRate: dec("0")},
	})
	require.NoError(t, err)
	// 121.00 + 32.70 + 50.00 (49.995 rounded)
	assert.Equal(t, "203.70", totals.Total.StringFixed(2))
	// 21.00 + 2.7000... + 0
	assert.Equal(t, "23.70", totals.VAT.StringFixed(2))
	assert.True(t, totals.Total.Equal(totals.Net.Add(totals.VAT)))
}

func TestAggregateOrderIndependentAndIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rates := []string{"0", "9", "21"}
	items := make([]LineItem, 0, 40)
	for i := 0; i < 40; i++ {
		items = append(items, LineItem{
			Quantity:  decimal.NewFromInt(rng.Int63n(5) + 1),
			UnitPrice: decimal.New(rng.Int63n(50_000), -2),
			VATRate:   dec(rates[rng.Intn(len(rates))]),
		})
	}

	first, lines, err := AggregateLineItems(items)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.LineTotal)
	}
	assert.True(t, sum.Equal(first.Total))

	again, _, err := AggregateLineItems(items)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	shuffled := append([]LineItem(nil), items...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	reordered, _, err := AggregateLineItems(shuffled)
	require.NoError(t, err)
	assert.True(t, first.Total.Equal(reordered.Total))
	assert.True(t, first.VAT.Equal(reordered.VAT))
	assert.True(t, first.Net.Equal(reordered.Net))
}

func TestAggregateRejectsNegativeLine(t *testing.T) {
	_, _, err := AggregateLineItems([]LineItem{
		{Quantity: dec("1"), UnitPrice: dec("10"), VATRate: dec("21")},
		{Quantity: dec("-1"), UnitPrice: dec("10"), VATRate: dec("21")},
	})
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestReconcileTotals(t *testing.T) {
	items := make([]LineItem, 0, 10)
	for i := 0; i < 10; i++ {
		items = append(items, LineItem{Quantity: dec("1"), UnitPrice: dec("1.05"), VATRate: dec("21")})
	}

	computed, _, err := AggregateLineItems(items)
	require.NoError(t, err)

	_, err = ReconcileTotals(computed, items)
	require.NoError(t, err)

	// Rounding each line VAT first (0.18 x 10) lands two cents away from 1.82.
	perLine := Totals{Total: dec("10.50"), VAT: dec("1.80"), Net: dec("8.70")}
	_, err = ReconcileTotals(perLine, items)
	assert.ErrorIs(t, err, ErrRoundingOverflow)

	inconsistent := Totals{Total: computed.Total, VAT: computed.VAT, Net: computed.Net.Add(dec("0.01"))}
	_, err = ReconcileTotals(inconsistent, items)
	assert.ErrorIs(t, err, ErrRoundingOverflow)
}
