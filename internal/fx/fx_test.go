package fx

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestConvert(t *testing.T) {
	got, err := Convert(dec("1000"), dec("15000"))
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("15000000")), "got %s", got)
}

func TestConvertRoundsToBasePrecision(t *testing.T) {
	got, err := Convert(dec("10.333"), dec("3"))
	require.NoError(t, err)
	assert.Equal(t, "31.00", got.StringFixed(2))
}

func TestConvertZeroAmountIgnoresRate(t *testing.T) {
	got, err := Convert(decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestConvertRejectsZeroRate(t *testing.T) {
	_, err := Convert(dec("1000"), decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestConvertRejectsNegativeRate(t *testing.T) {
	_, err := Convert(dec("1000"), dec("-15000"))
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestConvertRejectsNegativeAmount(t *testing.T) {
	_, err := Convert(dec("-1"), dec("15000"))
	assert.ErrorIs(t, err, ErrNegativeInput)
}
