package market

import (
	"github.com/yanun0323/errors"

	"clob/internal/fee"
	"clob/internal/fixed"
	"clob/internal/schema"
	"clob/pkg/exception"
)

// Params are fixed at deploy time, except for the values Config also
// carries, which the owner may change later.
type Params struct {
	Base          schema.Asset    `json:"base"`
	Quote         schema.Asset    `json:"quote"`
	PriceDecimals uint32          `json:"priceDecimals"`
	Owner         schema.Identity `json:"owner"`
	Paused        bool            `json:"paused"`
	EpochStart    uint64          `json:"epochStart"`
	EpochDuration uint64          `json:"epochDuration"`
	MinOrderSize  uint64          `json:"minOrderSize"`
	MinOrderPrice uint64          `json:"minOrderPrice"`
	MatcherFee    uint64          `json:"matcherFee"`
	Fees          []fee.Tier      `json:"fees"`
}

// Scale returns the decimal layout described by the params.
func (p Params) Scale() fixed.Scale {
	return fixed.Scale{
		BaseDecimals:  p.Base.Decimals,
		QuoteDecimals: p.Quote.Decimals,
		PriceDecimals: p.PriceDecimals,
	}
}

// Validate checks the params describe a deployable market.
func (p Params) Validate() error {
	if p.Base.ID.IsZero() || p.Quote.ID.IsZero() {
		return errors.Wrap(exception.ErrInvalidAsset, "asset id is empty")
	}
	if p.Base.ID == p.Quote.ID {
		return errors.Wrap(exception.ErrInvalidAsset, "base and quote are the same asset")
	}
	if err := p.Scale().Validate(); err != nil {
		return err
	}
	if _, err := fixed.Add(p.EpochStart, p.EpochDuration); err != nil {
		return errors.Wrap(err, "epoch end")
	}
	if len(p.Fees) > 0 {
		if err := fee.Validate(p.Fees); err != nil {
			return err
		}
	}
	return nil
}

// Config is the owner controlled configuration of a deployed market. A
// zero Owner means ownership was never initialized.
type Config struct {
	Owner         schema.Identity `json:"owner"`
	Paused        bool            `json:"paused"`
	EpochStart    uint64          `json:"epochStart"`
	EpochDuration uint64          `json:"epochDuration"`
	MinOrderSize  uint64          `json:"minOrderSize"`
	MinOrderPrice uint64          `json:"minOrderPrice"`
	MatcherFee    uint64          `json:"matcherFee"`
}

// InitializeOwnership sets the first owner. It only succeeds on a market
// whose ownership was never initialized.
func (m *Market) InitializeOwnership(caller, owner schema.Identity) ([]schema.Event, error) {
	if !m.cfg.Owner.IsZero() {
		return nil, exception.ErrNotOwner
	}
	if owner.IsZero() {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "owner is empty")
	}
	m.cfg.Owner = owner
	return []schema.Event{OwnershipEvent{Owner: owner}}, nil
}

// TransferOwnership hands the market to a new owner.
func (m *Market) TransferOwnership(caller, owner schema.Identity) ([]schema.Event, error) {
	if err := m.onlyOwner(caller); err != nil {
		return nil, err
	}
	if owner.IsZero() {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "owner is empty")
	}
	prev := m.cfg.Owner
	m.cfg.Owner = owner
	return []schema.Event{OwnershipEvent{Previous: prev, Owner: owner}}, nil
}

// SetEpoch starts a new fee epoch. Volumes of the previous epoch are
// discarded.
func (m *Market) SetEpoch(caller schema.Identity, start, duration uint64) ([]schema.Event, error) {
	if err := m.onlyOwner(caller); err != nil {
		return nil, err
	}
	if _, err := fixed.Add(start, duration); err != nil {
		return nil, err
	}
	m.cfg.EpochStart = start
	m.cfg.EpochDuration = duration
	m.ledger.ResetVolumes()
	m.rollEpoch(m.clock())
	return []schema.Event{SetEpochEvent{Start: start, Duration: duration}}, nil
}

func (m *Market) SetMinOrderSize(caller schema.Identity, size uint64) ([]schema.Event, error) {
	if err := m.onlyOwner(caller); err != nil {
		return nil, err
	}
	m.cfg.MinOrderSize = size
	return []schema.Event{SetMinOrderSizeEvent{Size: size}}, nil
}

func (m *Market) SetMinOrderPrice(caller schema.Identity, price uint64) ([]schema.Event, error) {
	if err := m.onlyOwner(caller); err != nil {
		return nil, err
	}
	m.cfg.MinOrderPrice = price
	return []schema.Event{SetMinOrderPriceEvent{Price: price}}, nil
}

// SetMatcherFee sets the flat quote amount paid to whoever calls
// MatchOrders.
func (m *Market) SetMatcherFee(caller schema.Identity, amount uint64) ([]schema.Event, error) {
	if err := m.onlyOwner(caller); err != nil {
		return nil, err
	}
	m.cfg.MatcherFee = amount
	return []schema.Event{SetMatcherFeeEvent{Amount: amount}}, nil
}

// SetProtocolFee replaces the fee schedule. Orders already resting keep
// the fee reserve they locked at open.
func (m *Market) SetProtocolFee(caller schema.Identity, tiers []fee.Tier) ([]schema.Event, error) {
	if err := m.onlyOwner(caller); err != nil {
		return nil, err
	}
	s, err := fee.New(tiers)
	if err != nil {
		return nil, err
	}
	m.fees = s
	return []schema.Event{SetProtocolFeeEvent{Tiers: s.Tiers()}}, nil
}

func (m *Market) Pause(caller schema.Identity) ([]schema.Event, error) {
	if err := m.onlyOwner(caller); err != nil {
		return nil, err
	}
	m.cfg.Paused = true
	return []schema.Event{PauseEvent{Caller: caller}}, nil
}

func (m *Market) Unpause(caller schema.Identity) ([]schema.Event, error) {
	if err := m.onlyOwner(caller); err != nil {
		return nil, err
	}
	m.cfg.Paused = false
	return []schema.Event{UnpauseEvent{Caller: caller}}, nil
}

// WithdrawProtocolFee sends every non-empty fee pool to to.
func (m *Market) WithdrawProtocolFee(caller, to schema.Identity) ([]schema.Event, error) {
	if err := m.onlyOwner(caller); err != nil {
		return nil, err
	}
	if to.IsZero() {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "recipient is empty")
	}
	assets := m.ledger.PoolAssets()
	if len(assets) == 0 {
		return nil, exception.ErrInsufficientBalance
	}
	tx := m.ledger.Begin()
	events := make([]schema.Event, 0, len(assets))
	for _, a := range assets {
		events = append(events, WithdrawProtocolFeeEvent{
			Amount: tx.DrainPool(a),
			Asset:  a,
			To:     to,
			Caller: caller,
		})
	}
	tx.Commit()
	return events, nil
}

// WithdrawProtocolFeeAsset sends the fee pool of one asset to to.
func (m *Market) WithdrawProtocolFeeAsset(caller, to schema.Identity, asset schema.AssetID) ([]schema.Event, error) {
	if err := m.onlyOwner(caller); err != nil {
		return nil, err
	}
	if to.IsZero() {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "recipient is empty")
	}
	if _, err := m.ledger.Side(asset); err != nil {
		return nil, err
	}
	if m.ledger.Pool(asset) == 0 {
		return nil, exception.ErrInsufficientBalance
	}
	tx := m.ledger.Begin()
	amount := tx.DrainPool(asset)
	tx.Commit()
	return []schema.Event{WithdrawProtocolFeeEvent{Amount: amount, Asset: asset, To: to, Caller: caller}}, nil
}
