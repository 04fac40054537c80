package fixed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clob/pkg/exception"
)

var btcUsdc = Scale{BaseDecimals: 8, QuoteDecimals: 6, PriceDecimals: 9}

func TestQuoteAmount(t *testing.T) {
	testCases := []struct {
		desc     string
		size     uint64
		price    uint64
		scale    Scale
		expected uint64
	}{
		{"one btc at 45000", 100_000_000, 45_000_000_000_000, btcUsdc, 45_000_000_000},
		{"two btc at 46000", 200_000_000, 46_000_000_000_000, btcUsdc, 92_000_000_000},
		{"one satoshi rounds down", 1, 45_000_000_000_000, btcUsdc, 450},
		{"dust rounds to zero", 1, 1, btcUsdc, 0},
		{"same decimals", 1_000_000_000, 10, Scale{9, 9, 9}, 10},
		{"zero decimals", 3, 7, Scale{}, 21},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			q, err := QuoteAmount(tc.size, tc.price, tc.scale)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, q)
		})
	}
}

func TestQuoteAmountOverflow(t *testing.T) {
	_, err := QuoteAmount(math.MaxUint64, math.MaxUint64, Scale{QuoteDecimals: 18})
	require.ErrorIs(t, err, exception.ErrArithmeticOverflow)
}

func TestBaseAmountInvertsQuoteAmount(t *testing.T) {
	b, err := BaseAmount(45_000_000_000, 45_000_000_000_000, btcUsdc)
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000_000), b)

	_, err = BaseAmount(1, 0, btcUsdc)
	require.ErrorIs(t, err, exception.ErrArithmeticOverflow)
}

func TestFees(t *testing.T) {
	assert.Equal(t, uint64(112_500_000), FeeOf(45_000_000_000, 25))
	assert.Equal(t, uint64(0), FeeOf(399, 25))
	assert.Equal(t, uint64(1), FeeReserve(399, 25))
	assert.Equal(t, uint64(0), FeeReserve(0, 40))
	assert.Equal(t, uint64(math.MaxUint64), FeeOf(math.MaxUint64, BpsDenominator))
}

func TestCheckedArithmetic(t *testing.T) {
	_, err := Add(math.MaxUint64, 1)
	require.ErrorIs(t, err, exception.ErrArithmeticOverflow)
	_, err = Sub(1, 2)
	require.ErrorIs(t, err, exception.ErrArithmeticOverflow)

	v, err := Sub(5, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), v)

	assert.Equal(t, uint64(1)<<63, Abs(math.MinInt64))
	assert.Equal(t, uint64(7), Abs(-7))
}

func TestUnits(t *testing.T) {
	v, err := ParseUnits("0.001", 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), v)

	v, err = ParseUnits("45000", 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(45_000_000_000), v)

	_, err = ParseUnits("0.0000001", 6)
	require.ErrorIs(t, err, exception.ErrInvalidAmount)

	_, err = ParseUnits("-1", 6)
	require.ErrorIs(t, err, exception.ErrInvalidAmount)

	s, err := ParseSignedUnits("-2", 8)
	require.NoError(t, err)
	assert.Equal(t, int64(-200_000_000), s)

	assert.Equal(t, "1.5", FormatUnits(150_000_000, 8))
	assert.Equal(t, "-0.25", FormatSignedUnits(-25_000_000, 8))
}
