// Package fixed holds the integer arithmetic shared by the ledger, the
// matcher and settlement. Amounts are native asset units; prices are
// quote-per-base scaled by 10^PriceDecimals.
package fixed

import (
	"math/big"
	"math/bits"

	"github.com/yanun0323/errors"

	"clob/pkg/exception"
)

// MaxDecimals bounds asset and price decimals.
const MaxDecimals = 18

// BpsDenominator is the basis point scale.
const BpsDenominator = 10_000

var pow10 [MaxDecimals*3 + 1]*big.Int

func init() {
	ten := big.NewInt(10)
	pow10[0] = big.NewInt(1)
	for i := 1; i < len(pow10); i++ {
		pow10[i] = new(big.Int).Mul(pow10[i-1], ten)
	}
}

// Scale is the decimal layout of a market.
type Scale struct {
	BaseDecimals  uint32 `json:"baseDecimals"`
	QuoteDecimals uint32 `json:"quoteDecimals"`
	PriceDecimals uint32 `json:"priceDecimals"`
}

// Validate checks every decimal count is within range.
func (s Scale) Validate() error {
	if s.BaseDecimals > MaxDecimals || s.QuoteDecimals > MaxDecimals || s.PriceDecimals > MaxDecimals {
		return errors.Wrapf(exception.ErrInvalidArgument, "decimals must be <= %d", MaxDecimals)
	}
	return nil
}

// QuoteAmount converts a base amount to quote units at price:
//
//	quote = size * price * 10^quoteDec / 10^(priceDec+baseDec)
//
// rounded down.
func QuoteAmount(size, price uint64, s Scale) (uint64, error) {
	n := new(big.Int).SetUint64(size)
	n.Mul(n, new(big.Int).SetUint64(price))
	n.Mul(n, pow10[s.QuoteDecimals])
	n.Quo(n, pow10[s.PriceDecimals+s.BaseDecimals])
	if !n.IsUint64() {
		return 0, exception.ErrArithmeticOverflow
	}
	return n.Uint64(), nil
}

// BaseAmount converts a quote amount to base units at price, rounded down.
func BaseAmount(quote, price uint64, s Scale) (uint64, error) {
	if price == 0 {
		return 0, exception.ErrArithmeticOverflow
	}
	n := new(big.Int).SetUint64(quote)
	n.Mul(n, pow10[s.PriceDecimals+s.BaseDecimals])
	d := new(big.Int).SetUint64(price)
	d.Mul(d, pow10[s.QuoteDecimals])
	n.Quo(n, d)
	if !n.IsUint64() {
		return 0, exception.ErrArithmeticOverflow
	}
	return n.Uint64(), nil
}

// FeeOf returns amount*bps/10000 rounded down. bps must not exceed 10000.
func FeeOf(amount, bps uint64) uint64 {
	q, _ := mulDivBps(amount, bps)
	return q
}

// FeeReserve returns amount*bps/10000 rounded up. It is what a buyer sets
// aside so that fees rounded down at fill time never exceed it.
func FeeReserve(amount, bps uint64) uint64 {
	q, r := mulDivBps(amount, bps)
	if r != 0 {
		q++
	}
	return q
}

func mulDivBps(amount, bps uint64) (uint64, uint64) {
	if bps > BpsDenominator {
		bps = BpsDenominator
	}
	hi, lo := bits.Mul64(amount, bps)
	return bits.Div64(hi, lo, BpsDenominator)
}

// Add returns a+b or ErrArithmeticOverflow.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, exception.ErrArithmeticOverflow
	}
	return sum, nil
}

// Sub returns a-b or ErrArithmeticOverflow when b > a.
func Sub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, exception.ErrArithmeticOverflow
	}
	return diff, nil
}

// Abs returns |v| as an unsigned value.
func Abs(v int64) uint64 {
	if v < 0 {
		return uint64(-(v + 1)) + 1
	}
	return uint64(v)
}
