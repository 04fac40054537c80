package codec

import (
	"clob/internal/fee"
	"clob/internal/market"
	"clob/internal/schema"
)

type SetEpoch struct {
	Caller   schema.Identity `json:"caller"`
	Start    uint64          `json:"start"`
	Duration uint64          `json:"duration"`
}

func (SetEpoch) CommandType() schema.EventType { return schema.EventSetEpoch }

func (c SetEpoch) Apply(m *market.Market) ([]schema.Event, error) {
	return m.SetEpoch(c.Caller, c.Start, c.Duration)
}

type SetMinOrderSize struct {
	Caller schema.Identity `json:"caller"`
	Size   uint64          `json:"size"`
}

func (SetMinOrderSize) CommandType() schema.EventType { return schema.EventSetMinOrderSize }

func (c SetMinOrderSize) Apply(m *market.Market) ([]schema.Event, error) {
	return m.SetMinOrderSize(c.Caller, c.Size)
}

type SetMinOrderPrice struct {
	Caller schema.Identity `json:"caller"`
	Price  uint64          `json:"price"`
}

func (SetMinOrderPrice) CommandType() schema.EventType { return schema.EventSetMinOrderPrice }

func (c SetMinOrderPrice) Apply(m *market.Market) ([]schema.Event, error) {
	return m.SetMinOrderPrice(c.Caller, c.Price)
}

type SetMatcherFee struct {
	Caller schema.Identity `json:"caller"`
	Amount uint64          `json:"amount"`
}

func (SetMatcherFee) CommandType() schema.EventType { return schema.EventSetMatcherFee }

func (c SetMatcherFee) Apply(m *market.Market) ([]schema.Event, error) {
	return m.SetMatcherFee(c.Caller, c.Amount)
}

type SetProtocolFee struct {
	Caller schema.Identity `json:"caller"`
	Tiers  []fee.Tier      `json:"tiers"`
}

func (SetProtocolFee) CommandType() schema.EventType { return schema.EventSetProtocolFee }

func (c SetProtocolFee) Apply(m *market.Market) ([]schema.Event, error) {
	return m.SetProtocolFee(c.Caller, c.Tiers)
}

type Pause struct {
	Caller schema.Identity `json:"caller"`
}

func (Pause) CommandType() schema.EventType { return schema.EventPause }

func (c Pause) Apply(m *market.Market) ([]schema.Event, error) {
	return m.Pause(c.Caller)
}

type Unpause struct {
	Caller schema.Identity `json:"caller"`
}

func (Unpause) CommandType() schema.EventType { return schema.EventUnpause }

func (c Unpause) Apply(m *market.Market) ([]schema.Event, error) {
	return m.Unpause(c.Caller)
}

// Ownership either initializes ownership of a fresh market or transfers it.
type Ownership struct {
	Caller     schema.Identity `json:"caller"`
	Owner      schema.Identity `json:"owner"`
	Initialize bool            `json:"initialize,omitempty"`
}

func (Ownership) CommandType() schema.EventType { return schema.EventOwnership }

func (c Ownership) Apply(m *market.Market) ([]schema.Event, error) {
	if c.Initialize {
		return m.InitializeOwnership(c.Caller, c.Owner)
	}
	return m.TransferOwnership(c.Caller, c.Owner)
}

// WithdrawProtocolFee drains every fee pool, or only Asset when it is set.
type WithdrawProtocolFee struct {
	Caller schema.Identity `json:"caller"`
	To     schema.Identity `json:"to"`
	Asset  *schema.AssetID `json:"asset,omitempty"`
}

func (WithdrawProtocolFee) CommandType() schema.EventType { return schema.EventWithdrawProtocolFee }

func (c WithdrawProtocolFee) Apply(m *market.Market) ([]schema.Event, error) {
	if c.Asset != nil {
		return m.WithdrawProtocolFeeAsset(c.Caller, c.To, *c.Asset)
	}
	return m.WithdrawProtocolFee(c.Caller, c.To)
}
