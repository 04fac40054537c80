// Package ledger keeps per-participant balances of the two market assets,
// the locked/liquid split, epoch trading volume and the protocol fee pool.
//
// All mutation goes through a Txn. A Txn stages changes against copies and
// only touches the ledger on Commit, so a failed operation never leaves a
// half-applied transfer behind.
package ledger

import (
	"sort"

	"clob/internal/fixed"
	"clob/internal/schema"
	"clob/pkg/exception"
)

// Side tells which of the two market assets an amount is in.
type Side uint8

const (
	SideUnknown Side = iota
	SideBase
	SideQuote
)

// Ledger is not safe for concurrent use.
type Ledger struct {
	base     schema.AssetID
	quote    schema.AssetID
	accounts map[schema.Identity]schema.Account
	volumes  map[schema.Identity]uint64
	pool     map[schema.AssetID]uint64
}

// New creates an empty ledger for a base/quote pair.
func New(base, quote schema.AssetID) *Ledger {
	return &Ledger{
		base:     base,
		quote:    quote,
		accounts: make(map[schema.Identity]schema.Account),
		volumes:  make(map[schema.Identity]uint64),
		pool:     make(map[schema.AssetID]uint64),
	}
}

// Side resolves an asset id to a market side.
func (l *Ledger) Side(asset schema.AssetID) (Side, error) {
	switch asset {
	case l.base:
		return SideBase, nil
	case l.quote:
		return SideQuote, nil
	default:
		return SideUnknown, exception.ErrInvalidAsset
	}
}

// Asset returns the asset id of a side.
func (l *Ledger) Asset(side Side) schema.AssetID {
	if side == SideBase {
		return l.base
	}
	return l.quote
}

// Account returns the balances of id. Absent accounts read as zero.
func (l *Ledger) Account(id schema.Identity) schema.Account {
	return l.accounts[id]
}

// Volume returns the quote volume id traded in the current epoch.
func (l *Ledger) Volume(id schema.Identity) uint64 {
	return l.volumes[id]
}

// ResetVolumes starts a new epoch.
func (l *Ledger) ResetVolumes() {
	clear(l.volumes)
}

// Pool returns the protocol fees held in asset.
func (l *Ledger) Pool(asset schema.AssetID) uint64 {
	return l.pool[asset]
}

// PoolAssets returns the assets with a non-empty fee pool, base first.
func (l *Ledger) PoolAssets() []schema.AssetID {
	out := make([]schema.AssetID, 0, 2)
	for _, a := range []schema.AssetID{l.base, l.quote} {
		if l.pool[a] > 0 {
			out = append(out, a)
		}
	}
	return out
}

// Custody sums every balance and the fee pool of one side. It is what the
// market must hold in custody for that asset.
func (l *Ledger) Custody(side Side) (uint64, error) {
	var total uint64
	var err error
	for _, acc := range l.accounts {
		liquid, locked := split(acc, side)
		if total, err = fixed.Add(total, liquid); err != nil {
			return 0, err
		}
		if total, err = fixed.Add(total, locked); err != nil {
			return 0, err
		}
	}
	return fixed.Add(total, l.pool[l.Asset(side)])
}

// Len returns the number of non-empty accounts.
func (l *Ledger) Len() int {
	return len(l.accounts)
}

// Begin opens a staging transaction.
func (l *Ledger) Begin() *Txn {
	return &Txn{
		l:        l,
		accounts: make(map[schema.Identity]schema.Account, 4),
		volumes:  make(map[schema.Identity]uint64, 2),
		pool:     make(map[schema.AssetID]uint64, 1),
	}
}

// Owners returns the identities of all non-empty accounts in a stable order.
func (l *Ledger) Owners() []schema.Identity {
	out := make([]schema.Identity, 0, len(l.accounts))
	for id := range l.accounts {
		out = append(out, id)
	}
	sortIdentities(out)
	return out
}

func sortIdentities(ids []schema.Identity) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Kind != ids[j].Kind {
			return ids[i].Kind < ids[j].Kind
		}
		return string(ids[i].ID[:]) < string(ids[j].ID[:])
	})
}

func split(acc schema.Account, side Side) (liquid, locked uint64) {
	if side == SideBase {
		return acc.BaseLiquid, acc.BaseLocked
	}
	return acc.QuoteLiquid, acc.QuoteLocked
}
