package market

import (
	"clob/internal/book"
	"clob/internal/fee"
	"clob/internal/ledger"
	"clob/internal/schema"
)

// Snapshot is the complete state of a market.
type Snapshot struct {
	Base          schema.Asset    `json:"base"`
	Quote         schema.Asset    `json:"quote"`
	PriceDecimals uint32          `json:"priceDecimals"`
	Config        Config          `json:"config"`
	Fees          []fee.Tier      `json:"fees"`
	Ledger        ledger.Snapshot `json:"ledger"`
	Book          book.Snapshot   `json:"book"`
}

// Snapshot captures the market state. Two markets that went through the
// same operations produce equal snapshots.
func (m *Market) Snapshot() Snapshot {
	return Snapshot{
		Base:          m.base,
		Quote:         m.quote,
		PriceDecimals: m.scale.PriceDecimals,
		Config:        m.cfg,
		Fees:          m.fees.Tiers(),
		Ledger:        m.ledger.Snapshot(),
		Book:          m.book.Snapshot(),
	}
}

// Restore rebuilds a market from a snapshot.
func Restore(snap Snapshot, opts ...Option) (*Market, error) {
	m, err := New(Params{
		Base:          snap.Base,
		Quote:         snap.Quote,
		PriceDecimals: snap.PriceDecimals,
		Owner:         snap.Config.Owner,
		Paused:        snap.Config.Paused,
		EpochStart:    snap.Config.EpochStart,
		EpochDuration: snap.Config.EpochDuration,
		MinOrderSize:  snap.Config.MinOrderSize,
		MinOrderPrice: snap.Config.MinOrderPrice,
		MatcherFee:    snap.Config.MatcherFee,
		Fees:          snap.Fees,
	}, opts...)
	if err != nil {
		return nil, err
	}
	m.ledger.Restore(snap.Ledger)
	m.book.Restore(snap.Book)
	return m, nil
}
