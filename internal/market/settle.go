package market

import (
	"github.com/yanun0323/errors"

	"clob/internal/book"
	"clob/internal/fixed"
	"clob/internal/ledger"
	"clob/internal/matcher"
	"clob/internal/schema"
	"clob/pkg/exception"
)

// settlement holds every amount a match moves. It is computed in full
// before anything is applied.
type settlement struct {
	fill       matcher.Fill
	quote      uint64
	buyerFee   uint64
	sellerFee  uint64
	matcherFee uint64
	proceeds   uint64
	refund     uint64
	buyLocked  uint64
	sellLocked uint64
	buyerMaker bool
}

// MatchOrders crosses the taken order with the given one and settles the
// trade at the taken order's price. The taken owner pays the maker rate
// and the given owner the taker rate. The caller earns the matcher fee out
// of the seller's proceeds.
func (m *Market) MatchOrders(caller schema.Identity, takenID, givenID book.OrderID) ([]schema.Event, error) {
	if m.cfg.Paused {
		return nil, exception.ErrPaused
	}
	m.rollEpoch(m.clock())

	taken, ok := m.book.Get(takenID)
	if !ok {
		return nil, exception.ErrOrderNotFound
	}
	given, ok := m.book.Get(givenID)
	if !ok {
		return nil, exception.ErrOrderNotFound
	}

	f, err := matcher.Match(taken, given)
	if err != nil {
		return nil, err
	}
	s, err := m.plan(f)
	if err != nil {
		return nil, err
	}

	buy, sell := f.Buy, f.Sell
	tx := m.ledger.Begin()
	if err := m.stage(tx, caller, s); err != nil {
		return nil, errors.Wrap(err, "settle trade").
			With("taken", takenID.String()).
			With("given", givenID.String())
	}

	buyAfter, err := m.book.Fill(buy.ID, f.Size, s.buyLocked)
	if err != nil {
		return nil, err
	}
	sellAfter, err := m.book.Fill(sell.ID, f.Size, s.sellLocked)
	if err != nil {
		return nil, err
	}
	tx.Commit()

	return []schema.Event{TradeEvent{
		TakenOrderID: takenID,
		GivenOrderID: givenID,
		Buyer:        buy.Owner,
		Seller:       sell.Owner,
		Matcher:      caller,
		Size:         f.Size,
		Price:        f.Price,
		QuoteAmount:  s.quote,
		BuyerFee:     s.buyerFee,
		SellerFee:    s.sellerFee,
		MatcherFee:   s.matcherFee,
		BuyerRemain:  buyAfter.Size,
		SellerRemain: sellAfter.Size,
	}}, nil
}

// plan computes the settlement of f. The buy order's lock always covers
// the trade, the buyer's fee and the cost of what stays on the book, and
// the buyer's fee is capped so that this holds even when the schedule was
// raised after the order was opened.
func (m *Market) plan(f matcher.Fill) (settlement, error) {
	buy, sell := f.Buy, f.Sell
	s := settlement{fill: f, buyerMaker: f.BuyerIsMaker()}

	q, err := fixed.QuoteAmount(f.Size, f.Price, m.scale)
	if err != nil {
		return s, err
	}
	s.quote = q

	makerBps, _ := m.fees.Lookup(m.ledger.Volume(f.Taken.Owner))
	_, takerBps := m.fees.Lookup(m.ledger.Volume(f.Given.Owner))
	buyerBps, sellerBps := takerBps, makerBps
	if s.buyerMaker {
		buyerBps, sellerBps = makerBps, takerBps
	}

	avail, err := fixed.Sub(buy.Locked, q)
	if err != nil {
		return s, errors.Wrap(exception.ErrInsufficientBalance, "buy order lock below trade cost").
			With("order", buy.ID.String())
	}
	left := buy.Remaining() - f.Size
	leftCost, err := fixed.QuoteAmount(left, buy.Price, m.scale)
	if err != nil {
		return s, err
	}
	leftLock, err := m.buyLock(left, buy.Price, buy.ReserveBps)
	if err != nil {
		return s, err
	}
	if avail < leftCost {
		return s, errors.Wrap(exception.ErrInsufficientBalance, "buy order lock below remaining cost").
			With("order", buy.ID.String())
	}

	s.buyerFee = min(fixed.FeeOf(q, buyerBps), avail-leftCost)
	rest := avail - s.buyerFee
	s.buyLocked = min(leftLock, rest)
	s.refund = rest - s.buyLocked

	s.sellerFee = fixed.FeeOf(q, sellerBps)
	s.matcherFee = min(m.cfg.MatcherFee, q-s.sellerFee)
	s.proceeds = q - s.sellerFee - s.matcherFee

	if sell.Locked < f.Size {
		return s, errors.Wrap(exception.ErrInsufficientBalance, "sell order lock below fill").
			With("order", sell.ID.String())
	}
	s.sellLocked = sell.Locked - f.Size
	return s, nil
}

func (m *Market) stage(tx *ledger.Txn, matcherID schema.Identity, s settlement) error {
	buyer, seller := s.fill.Buy.Owner, s.fill.Sell.Owner
	paid := s.quote + s.buyerFee

	if err := tx.Spend(seller, ledger.SideBase, s.fill.Size); err != nil {
		return err
	}
	if err := tx.Credit(buyer, ledger.SideBase, s.fill.Size); err != nil {
		return err
	}
	if err := tx.Spend(buyer, ledger.SideQuote, paid); err != nil {
		return err
	}
	if err := tx.Unlock(buyer, ledger.SideQuote, s.refund); err != nil {
		return err
	}
	if err := tx.Credit(seller, ledger.SideQuote, s.proceeds); err != nil {
		return err
	}
	if err := tx.Credit(matcherID, ledger.SideQuote, s.matcherFee); err != nil {
		return err
	}
	if err := tx.CreditPool(m.quote.ID, s.buyerFee+s.sellerFee); err != nil {
		return err
	}
	tx.AddVolume(buyer, s.quote)
	tx.AddVolume(seller, s.quote)
	return nil
}
