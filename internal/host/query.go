package host

import (
	"clob/internal/book"
	"clob/internal/fee"
	"clob/internal/fixed"
	"clob/internal/market"
	"clob/internal/obs"
	"clob/internal/schema"
)

func (u *Usecase) Account(id schema.Identity) schema.Account {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.market.Account(id)
}

func (u *Usecase) Order(id book.OrderID) (book.Order, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.market.Order(id)
}

func (u *Usecase) Orders(owner schema.Identity) []book.Order {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.market.Orders(owner)
}

func (u *Usecase) Config() market.Config {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.market.Config()
}

func (u *Usecase) ProtocolFee() []fee.Tier {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.market.ProtocolFee()
}

func (u *Usecase) FeePool(asset schema.AssetID) uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.market.FeePool(asset)
}

// Volume is the identity's traded volume in the current epoch.
func (u *Usecase) Volume(id schema.Identity) uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.market.Volume(id)
}

// ProtocolFeeUser returns the maker and taker bps id currently pays.
func (u *Usecase) ProtocolFeeUser(id schema.Identity) (maker, taker uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.market.ProtocolFeeUser(id)
}

// ProtocolFeeUserAmount returns the maker and taker fee id would pay on a
// quote amount.
func (u *Usecase) ProtocolFeeUserAmount(amount uint64, id schema.Identity) (maker, taker uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.market.ProtocolFeeUserAmount(amount, id)
}

// Custody is the total the market holds of asset.
func (u *Usecase) Custody(asset schema.AssetID) (uint64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.market.Custody(asset)
}

func (u *Usecase) Base() schema.Asset {
	return u.market.Base()
}

func (u *Usecase) Quote() schema.Asset {
	return u.market.Quote()
}

func (u *Usecase) Scale() fixed.Scale {
	return u.market.Scale()
}

// LastSeq is the sequence of the last accepted command.
func (u *Usecase) LastSeq() uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.seq
}

// Snapshot captures the current market state.
func (u *Usecase) Snapshot() market.Snapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.market.Snapshot()
}

func (u *Usecase) Metrics() obs.Snapshot {
	return u.metrics.Snapshot()
}
