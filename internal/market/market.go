// Package market is the single threaded core of a two asset spot market:
// custody balances, resting orders, pairwise matching and settlement.
//
// Every mutating method validates and computes all amounts before it
// changes anything, so an error always leaves the market untouched. The
// caller is responsible for serializing access.
package market

import (
	"clob/internal/book"
	"clob/internal/fee"
	"clob/internal/fixed"
	"clob/internal/ledger"
	"clob/internal/risk"
	"clob/internal/schema"
	"clob/pkg/exception"
)

// Market is not safe for concurrent use.
type Market struct {
	base   schema.Asset
	quote  schema.Asset
	scale  fixed.Scale
	cfg    Config
	fees   fee.Schedule
	ledger *ledger.Ledger
	book   *book.Book
	risk   *risk.Engine
	clock  Clock
}

// Option customizes a Market.
type Option func(*Market)

// WithClock replaces the wall clock used for epoch accounting and order
// timestamps.
func WithClock(c Clock) Option {
	return func(m *Market) {
		if c != nil {
			m.clock = c
		}
	}
}

// New deploys a market.
func New(p Params, opts ...Option) (*Market, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	fees := fee.Default()
	if len(p.Fees) > 0 {
		var err error
		if fees, err = fee.New(p.Fees); err != nil {
			return nil, err
		}
	}

	m := &Market{
		base:  p.Base,
		quote: p.Quote,
		scale: p.Scale(),
		cfg: Config{
			Owner:         p.Owner,
			Paused:        p.Paused,
			EpochStart:    p.EpochStart,
			EpochDuration: p.EpochDuration,
			MinOrderSize:  p.MinOrderSize,
			MinOrderPrice: p.MinOrderPrice,
			MatcherFee:    p.MatcherFee,
		},
		fees:   fees,
		ledger: ledger.New(p.Base.ID, p.Quote.ID),
		book:   book.New(),
		risk:   risk.NewEngine(p.Base.ID),
		clock:  SystemClock,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Base returns the base asset.
func (m *Market) Base() schema.Asset { return m.base }

// Quote returns the quote asset.
func (m *Market) Quote() schema.Asset { return m.quote }

// Scale returns the decimal layout of the market.
func (m *Market) Scale() fixed.Scale { return m.scale }

// Now reads the market clock.
func (m *Market) Now() uint64 { return m.clock() }

// Config returns the current configuration.
func (m *Market) Config() Config { return m.cfg }

// Account returns the balances of id.
func (m *Market) Account(id schema.Identity) schema.Account {
	return m.ledger.Account(id)
}

// Order returns a resting order.
func (m *Market) Order(id book.OrderID) (book.Order, error) {
	o, ok := m.book.Get(id)
	if !ok {
		return book.Order{}, exception.ErrOrderNotFound
	}
	return o, nil
}

// Orders returns the resting orders of owner, oldest first.
func (m *Market) Orders(owner schema.Identity) []book.Order {
	return m.book.Orders(owner)
}

// ProtocolFee returns the fee schedule.
func (m *Market) ProtocolFee() []fee.Tier {
	return m.fees.Tiers()
}

// FeePool returns the protocol fees collected in asset.
func (m *Market) FeePool(asset schema.AssetID) uint64 {
	return m.ledger.Pool(asset)
}

// Volume returns the quote volume id traded in the current epoch.
func (m *Market) Volume(id schema.Identity) uint64 {
	if m.epochExpired(m.clock()) {
		return 0
	}
	return m.ledger.Volume(id)
}

// ProtocolFeeUser returns the maker and taker rates id currently pays.
func (m *Market) ProtocolFeeUser(id schema.Identity) (maker, taker uint64) {
	return m.fees.Lookup(m.Volume(id))
}

// ProtocolFeeUserAmount returns the maker and taker fee id would pay on a
// trade of quote amount.
func (m *Market) ProtocolFeeUserAmount(amount uint64, id schema.Identity) (maker, taker uint64) {
	makerBps, takerBps := m.ProtocolFeeUser(id)
	return fixed.FeeOf(amount, makerBps), fixed.FeeOf(amount, takerBps)
}

// Custody returns what the market holds in asset across accounts and the
// fee pool.
func (m *Market) Custody(asset schema.AssetID) (uint64, error) {
	side, err := m.ledger.Side(asset)
	if err != nil {
		return 0, err
	}
	return m.ledger.Custody(side)
}

func (m *Market) onlyOwner(caller schema.Identity) error {
	if m.cfg.Owner.IsZero() || caller != m.cfg.Owner {
		return exception.ErrNotOwner
	}
	return nil
}

func (m *Market) epochExpired(now uint64) bool {
	d := m.cfg.EpochDuration
	return d != 0 && now >= m.cfg.EpochStart && now-m.cfg.EpochStart >= d
}

// rollEpoch advances the epoch by whole durations once now has passed its
// end, and resets epoch volumes.
func (m *Market) rollEpoch(now uint64) {
	if !m.epochExpired(now) {
		return
	}
	d := m.cfg.EpochDuration
	m.cfg.EpochStart += (now - m.cfg.EpochStart) / d * d
	m.ledger.ResetVolumes()
}
