package market

import (
	"github.com/yanun0323/errors"

	"clob/internal/book"
	"clob/internal/fixed"
	"clob/internal/ledger"
	"clob/internal/risk"
	"clob/internal/schema"
	"clob/pkg/exception"
)

// OpenOrder locks the funds the order needs and rests it on the book. A
// positive size buys base, a negative size sells it. A buy locks its quote
// cost plus a protocol fee reserve at the highest rate of the schedule; a
// sell locks its base size.
func (m *Market) OpenOrder(caller schema.Identity, asset schema.AssetID, size int64, price uint64) (book.OrderID, []schema.Event, error) {
	now := m.clock()
	m.rollEpoch(now)

	if err := m.risk.Evaluate(risk.Intent{Asset: asset, Size: size, Price: price}, m.limits()); err != nil {
		return book.OrderID{}, nil, err
	}

	side := ledger.SideBase
	lock := fixed.Abs(size)
	var reserveBps uint64
	if size > 0 {
		side = ledger.SideQuote
		reserveBps = m.fees.MaxBps()
		var err error
		if lock, err = m.buyLock(lock, price, reserveBps); err != nil {
			return book.OrderID{}, nil, err
		}
	}

	tx := m.ledger.Begin()
	if err := tx.Lock(caller, side, lock); err != nil {
		return book.OrderID{}, nil, err
	}

	o, err := m.book.Insert(book.Order{
		ID:         book.NewOrderID(caller, asset, size, price, m.book.NextNonce()),
		Owner:      caller,
		Asset:      asset,
		Size:       size,
		Price:      price,
		Locked:     lock,
		ReserveBps: reserveBps,
		Created:    now,
	})
	if err != nil {
		return book.OrderID{}, nil, err
	}
	acc := tx.Account(caller)
	tx.Commit()

	return o.ID, []schema.Event{OpenOrderEvent{
		OrderID: o.ID,
		Asset:   asset,
		Size:    size,
		Price:   price,
		Locked:  lock,
		User:    caller,
		Account: acc,
	}}, nil
}

// CancelOrder removes the caller's order and unlocks what it still holds.
func (m *Market) CancelOrder(caller schema.Identity, id book.OrderID) ([]schema.Event, error) {
	o, ok := m.book.Get(id)
	if !ok {
		return nil, exception.ErrOrderNotFound
	}
	if o.Owner != caller {
		return nil, exception.ErrNotOwner
	}

	tx := m.ledger.Begin()
	if err := tx.Unlock(o.Owner, m.lockSide(o), o.Locked); err != nil {
		return nil, errors.Wrap(err, "order lock out of sync").With("order", o.ID.String())
	}
	if _, err := m.book.Cancel(id); err != nil {
		return nil, err
	}
	acc := tx.Account(caller)
	tx.Commit()

	return []schema.Event{CancelOrderEvent{
		OrderID:  id,
		Unlocked: o.Locked,
		User:     caller,
		Account:  acc,
	}}, nil
}

// buyLock is the quote a buy of size at price must hold: its cost plus the
// fee reserve, rounded up.
func (m *Market) buyLock(size, price, reserveBps uint64) (uint64, error) {
	q, err := fixed.QuoteAmount(size, price, m.scale)
	if err != nil {
		return 0, err
	}
	return fixed.Add(q, fixed.FeeReserve(q, reserveBps))
}

func (m *Market) lockSide(o book.Order) ledger.Side {
	if o.IsBuy() {
		return ledger.SideQuote
	}
	return ledger.SideBase
}

func (m *Market) limits() risk.Limits {
	return risk.Limits{
		Paused:        m.cfg.Paused,
		MinOrderSize:  m.cfg.MinOrderSize,
		MinOrderPrice: m.cfg.MinOrderPrice,
	}
}
