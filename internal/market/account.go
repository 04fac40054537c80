package market

import (
	"clob/internal/schema"
	"clob/pkg/exception"
)

// Deposit credits amount of asset to the caller's liquid balance.
func (m *Market) Deposit(caller schema.Identity, asset schema.AssetID, amount uint64) ([]schema.Event, error) {
	if m.cfg.Paused {
		return nil, exception.ErrPaused
	}
	m.rollEpoch(m.clock())
	side, err := m.ledger.Side(asset)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, exception.ErrInvalidAmount
	}

	tx := m.ledger.Begin()
	if err := tx.Credit(caller, side, amount); err != nil {
		return nil, err
	}
	acc := tx.Account(caller)
	tx.Commit()

	return []schema.Event{DepositEvent{
		Amount:  amount,
		Asset:   asset,
		User:    caller,
		Account: acc,
		Caller:  caller,
	}}, nil
}

// Withdraw releases amount of asset from the caller's liquid balance back
// to the caller. Locked funds cannot be withdrawn.
func (m *Market) Withdraw(caller schema.Identity, asset schema.AssetID, amount uint64) ([]schema.Event, error) {
	m.rollEpoch(m.clock())
	side, err := m.ledger.Side(asset)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, exception.ErrInvalidAmount
	}

	tx := m.ledger.Begin()
	if err := tx.Debit(caller, side, amount); err != nil {
		return nil, err
	}
	acc := tx.Account(caller)
	tx.Commit()

	return []schema.Event{WithdrawEvent{
		Amount:  amount,
		Asset:   asset,
		User:    caller,
		Account: acc,
		Caller:  caller,
	}}, nil
}
