package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, "34.71", Round(decimal.RequireFromString("34.7107")).StringFixed(2))
	assert.Equal(t, "0.13", Round(decimal.RequireFromString("0.125")).StringFixed(2))
	assert.Equal(t, "86.96", Round(decimal.RequireFromString("86.9565217")).StringFixed(2))
}

func TestCentsRoundTrip(t *testing.T) {
	assert.Equal(t, int64(16529), ToCents(decimal.RequireFromString("165.29")))
	assert.Equal(t, int64(3471), ToCents(decimal.RequireFromString("34.7107")))
	assert.True(t, FromCents(12100).Equal(decimal.RequireFromString("121")))
}

func TestParse(t *testing.T) {
	d, err := Parse(" 20.50 ")
	require.NoError(t, err)
	assert.Equal(t, "20.50", d.StringFixed(2))

	_, err = Parse("abc")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Parse("")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "EUR 12.34", Format(1234, "eur"))
	assert.Equal(t, "0.05", Format(5, ""))
}

func TestWithinOneCent(t *testing.T) {
	assert.True(t, WithinOneCent(decimal.RequireFromString("10.00"), decimal.RequireFromString("10.01")))
	assert.False(t, WithinOneCent(decimal.RequireFromString("10.00"), decimal.RequireFromString("10.02")))
}
