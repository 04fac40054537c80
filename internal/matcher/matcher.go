// Package matcher decides whether two resting orders cross and how much of
// them trades. It does not move funds.
package matcher

import (
	"clob/internal/book"
	"clob/pkg/exception"
)

// Fill is the outcome of crossing two orders.
type Fill struct {
	Taken book.Order
	Given book.Order
	Buy   book.Order
	Sell  book.Order
	Size  uint64
	Price uint64
}

// BuyerIsMaker reports whether the buy order was the taken one.
func (f Fill) BuyerIsMaker() bool {
	return f.Taken.ID == f.Buy.ID
}

// ExecutionPrice returns the price a crossing pair trades at: the price of
// the taken order, the one already resting when the match was requested.
func ExecutionPrice(taken, given book.Order) uint64 {
	return taken.Price
}

// Match crosses taken with given. Both must be on the same asset, on
// opposite sides, and the buy price must reach the sell price.
func Match(taken, given book.Order) (Fill, error) {
	if taken.ID == given.ID || taken.Asset != given.Asset {
		return Fill{}, exception.ErrOrdersCantBeMatched
	}
	if taken.Size == 0 || given.Size == 0 || taken.IsBuy() == given.IsBuy() {
		return Fill{}, exception.ErrOrdersCantBeMatched
	}

	buy, sell := taken, given
	if !buy.IsBuy() {
		buy, sell = given, taken
	}
	if buy.Price < sell.Price {
		return Fill{}, exception.ErrOrdersCantBeMatched
	}

	return Fill{
		Taken: taken,
		Given: given,
		Buy:   buy,
		Sell:  sell,
		Size:  min(buy.Remaining(), sell.Remaining()),
		Price: ExecutionPrice(taken, given),
	}, nil
}
