package codec

import (
	"clob/internal/market"
	"clob/internal/schema"
)

type Deposit struct {
	Caller schema.Identity `json:"caller"`
	Asset  schema.AssetID  `json:"asset"`
	Amount uint64          `json:"amount"`
}

func (Deposit) CommandType() schema.EventType { return schema.EventDeposit }

func (c Deposit) Apply(m *market.Market) ([]schema.Event, error) {
	return m.Deposit(c.Caller, c.Asset, c.Amount)
}

type Withdraw struct {
	Caller schema.Identity `json:"caller"`
	Asset  schema.AssetID  `json:"asset"`
	Amount uint64          `json:"amount"`
}

func (Withdraw) CommandType() schema.EventType { return schema.EventWithdraw }

func (c Withdraw) Apply(m *market.Market) ([]schema.Event, error) {
	return m.Withdraw(c.Caller, c.Asset, c.Amount)
}
