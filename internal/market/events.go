package market

import (
	"clob/internal/book"
	"clob/internal/fee"
	"clob/internal/schema"
)

type DepositEvent struct {
	Amount  uint64          `json:"amount"`
	Asset   schema.AssetID  `json:"asset"`
	User    schema.Identity `json:"user"`
	Account schema.Account  `json:"account"`
	Caller  schema.Identity `json:"caller"`
}

func (DepositEvent) EventType() schema.EventType { return schema.EventDeposit }

type WithdrawEvent struct {
	Amount  uint64          `json:"amount"`
	Asset   schema.AssetID  `json:"asset"`
	User    schema.Identity `json:"user"`
	Account schema.Account  `json:"account"`
	Caller  schema.Identity `json:"caller"`
}

func (WithdrawEvent) EventType() schema.EventType { return schema.EventWithdraw }

type OpenOrderEvent struct {
	OrderID book.OrderID    `json:"orderId"`
	Asset   schema.AssetID  `json:"asset"`
	Size    int64           `json:"size"`
	Price   uint64          `json:"price"`
	Locked  uint64          `json:"locked"`
	User    schema.Identity `json:"user"`
	Account schema.Account  `json:"account"`
}

func (OpenOrderEvent) EventType() schema.EventType { return schema.EventOpenOrder }

type CancelOrderEvent struct {
	OrderID  book.OrderID    `json:"orderId"`
	Unlocked uint64          `json:"unlocked"`
	User     schema.Identity `json:"user"`
	Account  schema.Account  `json:"account"`
}

func (CancelOrderEvent) EventType() schema.EventType { return schema.EventCancelOrder }

// TradeEvent describes one settled match. Fees are in quote units.
type TradeEvent struct {
	TakenOrderID book.OrderID    `json:"takenOrderId"`
	GivenOrderID book.OrderID    `json:"givenOrderId"`
	Buyer        schema.Identity `json:"buyer"`
	Seller       schema.Identity `json:"seller"`
	Matcher      schema.Identity `json:"matcher"`
	Size         uint64          `json:"size"`
	Price        uint64          `json:"price"`
	QuoteAmount  uint64          `json:"quoteAmount"`
	BuyerFee     uint64          `json:"buyerFee"`
	SellerFee    uint64          `json:"sellerFee"`
	MatcherFee   uint64          `json:"matcherFee"`
	BuyerRemain  int64           `json:"buyerRemain"`
	SellerRemain int64           `json:"sellerRemain"`
}

func (TradeEvent) EventType() schema.EventType { return schema.EventTrade }

type SetEpochEvent struct {
	Start    uint64 `json:"start"`
	Duration uint64 `json:"duration"`
}

func (SetEpochEvent) EventType() schema.EventType { return schema.EventSetEpoch }

type SetMinOrderSizeEvent struct {
	Size uint64 `json:"size"`
}

func (SetMinOrderSizeEvent) EventType() schema.EventType { return schema.EventSetMinOrderSize }

type SetMinOrderPriceEvent struct {
	Price uint64 `json:"price"`
}

func (SetMinOrderPriceEvent) EventType() schema.EventType { return schema.EventSetMinOrderPrice }

type SetMatcherFeeEvent struct {
	Amount uint64 `json:"amount"`
}

func (SetMatcherFeeEvent) EventType() schema.EventType { return schema.EventSetMatcherFee }

type SetProtocolFeeEvent struct {
	Tiers []fee.Tier `json:"tiers"`
}

func (SetProtocolFeeEvent) EventType() schema.EventType { return schema.EventSetProtocolFee }

type PauseEvent struct {
	Caller schema.Identity `json:"caller"`
}

func (PauseEvent) EventType() schema.EventType { return schema.EventPause }

type UnpauseEvent struct {
	Caller schema.Identity `json:"caller"`
}

func (UnpauseEvent) EventType() schema.EventType { return schema.EventUnpause }

type OwnershipEvent struct {
	Previous schema.Identity `json:"previous"`
	Owner    schema.Identity `json:"owner"`
}

func (OwnershipEvent) EventType() schema.EventType { return schema.EventOwnership }

type WithdrawProtocolFeeEvent struct {
	Amount uint64          `json:"amount"`
	Asset  schema.AssetID  `json:"asset"`
	To     schema.Identity `json:"to"`
	Caller schema.Identity `json:"caller"`
}

func (WithdrawProtocolFeeEvent) EventType() schema.EventType {
	return schema.EventWithdrawProtocolFee
}
