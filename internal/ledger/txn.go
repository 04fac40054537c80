package ledger

import (
	"clob/internal/fixed"
	"clob/internal/schema"
	"clob/pkg/exception"
)

// Txn stages ledger changes. Reads see staged values. A Txn that is never
// committed has no effect.
type Txn struct {
	l        *Ledger
	accounts map[schema.Identity]schema.Account
	volumes  map[schema.Identity]uint64
	pool     map[schema.AssetID]uint64
}

// Account returns the staged balances of id.
func (t *Txn) Account(id schema.Identity) schema.Account {
	if acc, ok := t.accounts[id]; ok {
		return acc
	}
	return t.l.accounts[id]
}

// Credit adds amount to the liquid balance.
func (t *Txn) Credit(id schema.Identity, side Side, amount uint64) error {
	return t.update(id, func(acc *schema.Account) error {
		liquid, _ := fields(acc, side)
		v, err := fixed.Add(*liquid, amount)
		if err != nil {
			return err
		}
		*liquid = v
		return nil
	})
}

// Debit removes amount from the liquid balance.
func (t *Txn) Debit(id schema.Identity, side Side, amount uint64) error {
	return t.update(id, func(acc *schema.Account) error {
		liquid, _ := fields(acc, side)
		if *liquid < amount {
			return exception.ErrInsufficientBalance
		}
		*liquid -= amount
		return nil
	})
}

// Lock moves amount from liquid to locked.
func (t *Txn) Lock(id schema.Identity, side Side, amount uint64) error {
	return t.update(id, func(acc *schema.Account) error {
		liquid, locked := fields(acc, side)
		if *liquid < amount {
			return exception.ErrInsufficientBalance
		}
		v, err := fixed.Add(*locked, amount)
		if err != nil {
			return err
		}
		*liquid -= amount
		*locked = v
		return nil
	})
}

// Unlock moves amount from locked back to liquid.
func (t *Txn) Unlock(id schema.Identity, side Side, amount uint64) error {
	return t.update(id, func(acc *schema.Account) error {
		liquid, locked := fields(acc, side)
		if *locked < amount {
			return exception.ErrInsufficientBalance
		}
		v, err := fixed.Add(*liquid, amount)
		if err != nil {
			return err
		}
		*locked -= amount
		*liquid = v
		return nil
	})
}

// Spend removes amount from the locked balance. The amount leaves the
// account and must be credited elsewhere by the caller.
func (t *Txn) Spend(id schema.Identity, side Side, amount uint64) error {
	return t.update(id, func(acc *schema.Account) error {
		_, locked := fields(acc, side)
		if *locked < amount {
			return exception.ErrInsufficientBalance
		}
		*locked -= amount
		return nil
	})
}

// AddVolume adds traded quote volume to id for the current epoch. The
// counter saturates instead of failing a trade.
func (t *Txn) AddVolume(id schema.Identity, amount uint64) {
	cur, ok := t.volumes[id]
	if !ok {
		cur = t.l.volumes[id]
	}
	v, err := fixed.Add(cur, amount)
	if err != nil {
		v = ^uint64(0)
	}
	t.volumes[id] = v
}

// Pool returns the staged fee pool of asset.
func (t *Txn) Pool(asset schema.AssetID) uint64 {
	if v, ok := t.pool[asset]; ok {
		return v
	}
	return t.l.pool[asset]
}

// CreditPool adds protocol fees to the pool of asset.
func (t *Txn) CreditPool(asset schema.AssetID, amount uint64) error {
	v, err := fixed.Add(t.Pool(asset), amount)
	if err != nil {
		return err
	}
	t.pool[asset] = v
	return nil
}

// DrainPool empties the pool of asset and returns what it held.
func (t *Txn) DrainPool(asset schema.AssetID) uint64 {
	v := t.Pool(asset)
	t.pool[asset] = 0
	return v
}

// Commit applies every staged change. Accounts that end up empty are
// dropped so they read the same as never-seen ones.
func (t *Txn) Commit() {
	for id, acc := range t.accounts {
		if acc.IsEmpty() {
			delete(t.l.accounts, id)
			continue
		}
		t.l.accounts[id] = acc
	}
	for id, v := range t.volumes {
		if v == 0 {
			delete(t.l.volumes, id)
			continue
		}
		t.l.volumes[id] = v
	}
	for asset, v := range t.pool {
		if v == 0 {
			delete(t.l.pool, asset)
			continue
		}
		t.l.pool[asset] = v
	}
}

func (t *Txn) update(id schema.Identity, fn func(acc *schema.Account) error) error {
	acc := t.Account(id)
	if err := fn(&acc); err != nil {
		return err
	}
	t.accounts[id] = acc
	return nil
}

func fields(acc *schema.Account, side Side) (liquid, locked *uint64) {
	if side == SideBase {
		return &acc.BaseLiquid, &acc.BaseLocked
	}
	return &acc.QuoteLiquid, &acc.QuoteLocked
}
