package ledger

import (
	"clob/internal/schema"
)

// AccountEntry is one account in a snapshot.
type AccountEntry struct {
	Owner   schema.Identity `json:"owner"`
	Account schema.Account  `json:"account"`
	Volume  uint64          `json:"volume,omitempty"`
}

// PoolEntry is one fee pool balance in a snapshot.
type PoolEntry struct {
	Asset  schema.AssetID `json:"asset"`
	Amount uint64         `json:"amount"`
}

// Snapshot is a deterministic dump of the ledger.
type Snapshot struct {
	Accounts []AccountEntry `json:"accounts"`
	Pool     []PoolEntry    `json:"pool"`
}

// Snapshot captures accounts, volumes and pools ordered by owner.
func (l *Ledger) Snapshot() Snapshot {
	owners := make([]schema.Identity, 0, len(l.accounts)+len(l.volumes))
	seen := make(map[schema.Identity]struct{}, len(l.accounts)+len(l.volumes))
	for id := range l.accounts {
		owners = append(owners, id)
		seen[id] = struct{}{}
	}
	for id := range l.volumes {
		if _, ok := seen[id]; !ok {
			owners = append(owners, id)
		}
	}
	sortIdentities(owners)

	snap := Snapshot{Accounts: make([]AccountEntry, 0, len(owners))}
	for _, id := range owners {
		snap.Accounts = append(snap.Accounts, AccountEntry{
			Owner:   id,
			Account: l.accounts[id],
			Volume:  l.volumes[id],
		})
	}
	for _, a := range []schema.AssetID{l.base, l.quote} {
		if v := l.pool[a]; v > 0 {
			snap.Pool = append(snap.Pool, PoolEntry{Asset: a, Amount: v})
		}
	}
	return snap
}

// Restore replaces the ledger contents with snap.
func (l *Ledger) Restore(snap Snapshot) {
	clear(l.accounts)
	clear(l.volumes)
	clear(l.pool)
	for _, e := range snap.Accounts {
		if !e.Account.IsEmpty() {
			l.accounts[e.Owner] = e.Account
		}
		if e.Volume > 0 {
			l.volumes[e.Owner] = e.Volume
		}
	}
	for _, p := range snap.Pool {
		if p.Amount > 0 {
			l.pool[p.Asset] = p.Amount
		}
	}
}
