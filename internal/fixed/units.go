package fixed

// Human amounts go through shopspring/decimal rather than yanun0323/decimal:
// the audit tables store the same decimal.Decimal values, and it implements
// the sql Valuer/Scanner pair gorm needs for those columns.

import (
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"clob/pkg/exception"
)

// ParseUnits converts a human decimal string such as "0.001" into native
// units of an asset with the given decimals. Digits beyond the asset
// precision are rejected rather than rounded.
func ParseUnits(s string, decimals uint32) (uint64, error) {
	d, err := parseScaled(s, decimals)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, errors.Wrap(exception.ErrInvalidAmount, "negative amount").With("input", s)
	}
	bi := d.BigInt()
	if !bi.IsUint64() {
		return 0, errors.Wrap(exception.ErrArithmeticOverflow, "amount out of range").With("input", s)
	}
	return bi.Uint64(), nil
}

// ParseSignedUnits is ParseUnits for signed order sizes.
func ParseSignedUnits(s string, decimals uint32) (int64, error) {
	d, err := parseScaled(s, decimals)
	if err != nil {
		return 0, err
	}
	bi := d.BigInt()
	if !bi.IsInt64() {
		return 0, errors.Wrap(exception.ErrArithmeticOverflow, "size out of range").With("input", s)
	}
	return bi.Int64(), nil
}

// FormatUnits renders native units as a human decimal string.
func FormatUnits(v uint64, decimals uint32) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -int32(decimals)).String()
}

// FormatSignedUnits renders a signed native amount.
func FormatSignedUnits(v int64, decimals uint32) string {
	return decimal.New(v, -int32(decimals)).String()
}

func parseScaled(s string, decimals uint32) (decimal.Decimal, error) {
	if decimals > MaxDecimals {
		return decimal.Decimal{}, errors.Wrapf(exception.ErrInvalidArgument, "decimals %d out of range", decimals)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "parse decimal").With("input", s)
	}
	d = d.Shift(int32(decimals))
	if !d.Equal(d.Truncate(0)) {
		return decimal.Decimal{}, errors.Wrapf(exception.ErrInvalidAmount, "%s has more than %d decimals", s, decimals)
	}
	return d, nil
}
