package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePayoutLine(t *testing.T) {
	line, err := ComputePayoutLine(dec("165.29"), dec("15"))
	require.NoError(t, err)
	// 24.7935 rounds half-up
	assert.Equal(t, "24.79", line.CommissionAmount.StringFixed(2))
	assert.Equal(t, "140.50", line.NetAmount.StringFixed(2))

	line, err = ComputePayoutLine(dec("80"), dec("0"))
	require.NoError(t, err)
	assert.True(t, line.NetAmount.Equal(dec("80")))
}

func TestComputePayoutLineRejectsInvalid(t *testing.T) {
	_, err := ComputePayoutLine(dec("10"), dec("101"))
	assert.ErrorIs(t, err, ErrInvalidCommissionRate)

	_, err = ComputePayoutLine(dec("-10"), dec("15"))
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestPayoutTotal(t *testing.T) {
	a, err := ComputePayoutLine(dec("100"), dec("15"))
	require.NoError(t, err)
	b, err := ComputePayoutLine(dec("50.50"), dec("10"))
	require.NoError(t, err)

	// 85.00 + 45.45 (5.05 commission)
	assert.Equal(t, "130.45", PayoutTotal([]PayoutLine{a, b}).StringFixed(2))
	assert.True(t, PayoutTotal(nil).IsZero())
}
