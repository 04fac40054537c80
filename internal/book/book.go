// Package book stores resting orders by id.
package book

import (
	"sort"

	"github.com/yanun0323/errors"

	"clob/internal/schema"
	"clob/pkg/exception"
)

// Book holds open and partially filled orders. Filled and cancelled orders
// are removed, so a lookup of either reads as not found.
type Book struct {
	orders map[OrderID]*Order
	nonce  uint64
}

// New creates an empty book.
func New() *Book {
	return &Book{orders: make(map[OrderID]*Order)}
}

// NextNonce returns the nonce the next inserted order will use.
func (b *Book) NextNonce() uint64 {
	return b.nonce
}

// Insert stores o as Open, consuming the current nonce.
func (b *Book) Insert(o Order) (Order, error) {
	if o.ID.IsZero() {
		return Order{}, errors.Wrap(exception.ErrInvalidArgument, "empty order id")
	}
	if _, ok := b.orders[o.ID]; ok {
		return Order{}, errors.Wrap(exception.ErrInternal, "duplicate order id").With("id", o.ID.String())
	}
	o.Status = StatusOpen
	o.Nonce = b.nonce
	b.nonce++
	b.orders[o.ID] = &o
	return o, nil
}

// Get returns a copy of the order.
func (b *Book) Get(id OrderID) (Order, bool) {
	o, ok := b.orders[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Fill shrinks the order by filled and stores the new lock. A fully filled
// order is removed and returned with status Filled.
func (b *Book) Fill(id OrderID, filled uint64, locked uint64) (Order, error) {
	o, ok := b.orders[id]
	if !ok {
		return Order{}, exception.ErrOrderNotFound
	}
	next := *o
	if err := next.shrink(filled); err != nil {
		return *o, err
	}
	next.Locked = locked
	if next.Status == StatusFilled {
		delete(b.orders, id)
		return next, nil
	}
	*o = next
	return next, nil
}

// Cancel removes the order and returns it with status Cancelled.
func (b *Book) Cancel(id OrderID) (Order, error) {
	o, ok := b.orders[id]
	if !ok {
		return Order{}, exception.ErrOrderNotFound
	}
	delete(b.orders, id)
	out := *o
	out.Status = StatusCancelled
	return out, nil
}

// Orders returns the resting orders of owner, oldest first.
func (b *Book) Orders(owner schema.Identity) []Order {
	out := make([]Order, 0)
	for _, o := range b.orders {
		if o.Owner == owner {
			out = append(out, *o)
		}
	}
	sortByNonce(out)
	return out
}

// All returns every resting order, oldest first.
func (b *Book) All() []Order {
	out := make([]Order, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, *o)
	}
	sortByNonce(out)
	return out
}

// Len returns the number of resting orders.
func (b *Book) Len() int {
	return len(b.orders)
}

// Snapshot is the serialized form of a book.
type Snapshot struct {
	Nonce  uint64  `json:"nonce"`
	Orders []Order `json:"orders"`
}

// Snapshot dumps the book in nonce order.
func (b *Book) Snapshot() Snapshot {
	return Snapshot{Nonce: b.nonce, Orders: b.All()}
}

// Restore replaces the book contents with snap.
func (b *Book) Restore(snap Snapshot) {
	clear(b.orders)
	b.nonce = snap.Nonce
	for _, o := range snap.Orders {
		o := o
		b.orders[o.ID] = &o
	}
}

func sortByNonce(orders []Order) {
	sort.Slice(orders, func(i, j int) bool { return orders[i].Nonce < orders[j].Nonce })
}
