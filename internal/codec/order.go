package codec

import (
	"clob/internal/book"
	"clob/internal/market"
	"clob/internal/schema"
)

type OpenOrder struct {
	Caller schema.Identity `json:"caller"`
	Asset  schema.AssetID  `json:"asset"`
	Size   int64           `json:"size"`
	Price  uint64          `json:"price"`
}

func (OpenOrder) CommandType() schema.EventType { return schema.EventOpenOrder }

func (c OpenOrder) Apply(m *market.Market) ([]schema.Event, error) {
	_, events, err := m.OpenOrder(c.Caller, c.Asset, c.Size, c.Price)
	return events, err
}

type CancelOrder struct {
	Caller  schema.Identity `json:"caller"`
	OrderID book.OrderID    `json:"orderId"`
}

func (CancelOrder) CommandType() schema.EventType { return schema.EventCancelOrder }

func (c CancelOrder) Apply(m *market.Market) ([]schema.Event, error) {
	return m.CancelOrder(c.Caller, c.OrderID)
}

type MatchOrders struct {
	Caller schema.Identity `json:"caller"`
	Taken  book.OrderID    `json:"taken"`
	Given  book.OrderID    `json:"given"`
}

func (MatchOrders) CommandType() schema.EventType { return schema.EventTrade }

func (c MatchOrders) Apply(m *market.Market) ([]schema.Event, error) {
	return m.MatchOrders(c.Caller, c.Taken, c.Given)
}
