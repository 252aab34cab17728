package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateDiscountPercentage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := Discount{Code: "WELCOME10", IsPercentage: true, Value: dec("10"), MinOrderAmount: dec("50"), IsActive: true}

	amount, err := EvaluateDiscount(d, dec("100"), now)
	require.NoError(t, err)
	assert.Equal(t, "10.00", amount.StringFixed(2))

	_, err = EvaluateDiscount(d, dec("40"), now)
	assert.ErrorIs(t, err, ErrDiscountBelowMinimum)
	assert.ErrorIs(t, err, ErrInvalidDiscount)
}

func TestEvaluateDiscountFixedIsCapped(t *testing.T) {
	d := Discount{Value: dec("25"), IsActive: true}
	amount, err := EvaluateDiscount(d, dec("18.50"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "18.50", amount.StringFixed(2))
}

func TestEvaluateDiscountReasons(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)
	maxUses := 3

	cases := []struct {
		name string
		d    Discount
		want error
	}{
		{"inactive", Discount{Value: dec("5")}, ErrDiscountInactive},
		{"not started", Discount{Value: dec("5"), IsActive: true, StartsAt: &later}, ErrDiscountNotStarted},
		{"expired", Discount{Value: dec("5"), IsActive: true, EndsAt: &earlier}, ErrDiscountExpired},
		{"exhausted", Discount{Value: dec("5"), IsActive: true, MaxUses: &maxUses, UsesCount: 3}, ErrDiscountUsageExhausted},
		{"below minimum", Discount{Value: dec("5"), IsActive: true, MinOrderAmount: dec("500")}, ErrDiscountBelowMinimum},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := EvaluateDiscount(tc.d, dec("100"), now)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want))
			assert.NotEmpty(t, DiscountMessage(err))
		})
	}
}

func TestEvaluateDiscountWindowBoundsAreInclusive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	maxUses := 1
	d := Discount{Value: dec("5"), IsActive: true, StartsAt: &now, EndsAt: &now, MaxUses: &maxUses}

	amount, err := EvaluateDiscount(d, dec("100"), now)
	require.NoError(t, err)
	assert.Equal(t, "5.00", amount.StringFixed(2))
}

func TestEvaluateDiscountRejectsBadValue(t *testing.T) {
	_, err := EvaluateDiscount(Discount{IsPercentage: true, Value: dec("120"), IsActive: true}, dec("10"), time.Now())
	assert.ErrorIs(t, err, ErrInvalidDiscountValue)

	_, err = EvaluateDiscount(Discount{Value: decimal.NewFromInt(-1), IsActive: true}, dec("10"), time.Now())
	assert.ErrorIs(t, err, ErrInvalidDiscountValue)
}

func TestDiscountMessageForOtherErrors(t *testing.T) {
	assert.Empty(t, DiscountMessage(ErrNegativeAmount))
}

func TestValidateDiscountValueScale(t *testing.T) {
	assert.ErrorIs(t, ValidateDiscountValue(true, dec("12.345")), ErrInvalidDiscountValue)
	assert.ErrorIs(t, ValidateDiscountValue(false, dec("5.001")), ErrInvalidDiscountValue)
	assert.NoError(t, ValidateDiscountValue(false, dec("5.10")))
}
