package host

import (
	"context"

	"clob/internal/book"
	"clob/internal/codec"
	"clob/internal/fee"
	"clob/internal/market"
	"clob/internal/schema"
)

// Caller issues commands as one identity.
type Caller struct {
	u  *Usecase
	id schema.Identity
}

// Identity returns the identity commands are sent as.
func (c Caller) Identity() schema.Identity {
	return c.id
}

func (c Caller) Deposit(ctx context.Context, amount uint64, asset schema.AssetID) ([]schema.Event, error) {
	return c.u.apply(ctx, c.id, codec.Deposit{Caller: c.id, Asset: asset, Amount: amount})
}

func (c Caller) Withdraw(ctx context.Context, amount uint64, asset schema.AssetID) ([]schema.Event, error) {
	return c.u.apply(ctx, c.id, codec.Withdraw{Caller: c.id, Asset: asset, Amount: amount})
}

// OpenOrder places an order and returns its id.
func (c Caller) OpenOrder(ctx context.Context, asset schema.AssetID, size int64, price uint64) (book.OrderID, []schema.Event, error) {
	events, err := c.u.apply(ctx, c.id, codec.OpenOrder{Caller: c.id, Asset: asset, Size: size, Price: price})
	if err != nil {
		return book.OrderID{}, nil, err
	}
	for _, e := range events {
		if open, ok := e.(market.OpenOrderEvent); ok {
			return open.OrderID, events, nil
		}
	}
	return book.OrderID{}, events, nil
}

func (c Caller) CancelOrder(ctx context.Context, id book.OrderID) ([]schema.Event, error) {
	return c.u.apply(ctx, c.id, codec.CancelOrder{Caller: c.id, OrderID: id})
}

// MatchOrders settles taken against given. The caller collects the matcher
// fee.
func (c Caller) MatchOrders(ctx context.Context, taken, given book.OrderID) ([]schema.Event, error) {
	return c.u.apply(ctx, c.id, codec.MatchOrders{Caller: c.id, Taken: taken, Given: given})
}

// WithdrawProtocolFee drains every fee pool to to.
func (c Caller) WithdrawProtocolFee(ctx context.Context, to schema.Identity) ([]schema.Event, error) {
	return c.u.apply(ctx, c.id, codec.WithdrawProtocolFee{Caller: c.id, To: to})
}

// WithdrawProtocolFeeAsset drains the fee pool of one asset.
func (c Caller) WithdrawProtocolFeeAsset(ctx context.Context, to schema.Identity, asset schema.AssetID) ([]schema.Event, error) {
	return c.u.apply(ctx, c.id, codec.WithdrawProtocolFee{Caller: c.id, To: to, Asset: &asset})
}

func (c Caller) SetEpoch(ctx context.Context, start, duration uint64) ([]schema.Event, error) {
	return c.u.apply(ctx, c.id, codec.SetEpoch{Caller: c.id, Start: start, Duration: duration})
}

func (c Caller) SetMinOrderSize(ctx context.Context, size uint64) ([]schema.Event, error) {
	return c.u.apply(ctx, c.id, codec.SetMinOrderSize{Caller: c.id, Size: size})
}

func (c Caller) SetMinOrderPrice(ctx context.Context, price uint64) ([]schema.Event, error) {
	return c.u.apply(ctx, c.id, codec.SetMinOrderPrice{Caller: c.id, Price: price})
}

func (c Caller) SetMatcherFee(ctx context.Context, amount uint64) ([]schema.Event, error) {
	return c.u.apply(ctx, c.id, codec.SetMatcherFee{Caller: c.id, Amount: amount})
}

func (c Caller) SetProtocolFee(ctx context.Context, tiers []fee.Tier) ([]schema.Event, error) {
	return c.u.apply(ctx, c.id, codec.SetProtocolFee{Caller: c.id, Tiers: tiers})
}

func (c Caller) Pause(ctx context.Context) ([]schema.Event, error) {
	return c.u.apply(ctx, c.id, codec.Pause{Caller: c.id})
}

func (c Caller) Unpause(ctx context.Context) ([]schema.Event, error) {
	return c.u.apply(ctx, c.id, codec.Unpause{Caller: c.id})
}

// InitializeOwnership claims a market deployed without an owner.
func (c Caller) InitializeOwnership(ctx context.Context, owner schema.Identity) ([]schema.Event, error) {
	return c.u.apply(ctx, c.id, codec.Ownership{Caller: c.id, Owner: owner, Initialize: true})
}

func (c Caller) TransferOwnership(ctx context.Context, owner schema.Identity) ([]schema.Event, error) {
	return c.u.apply(ctx, c.id, codec.Ownership{Caller: c.id, Owner: owner})
}

// Account returns the caller's own balances.
func (c Caller) Account() schema.Account {
	return c.u.Account(c.id)
}

// Orders lists the caller's resting orders.
func (c Caller) Orders() []book.Order {
	return c.u.Orders(c.id)
}
