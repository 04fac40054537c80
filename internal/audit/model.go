package audit

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommandRecord is one applied command.
type CommandRecord struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	MarketID  string    `gorm:"not null;size:36;uniqueIndex:idx_command_market_seq" json:"marketId"`
	Seq       uint64    `gorm:"not null;uniqueIndex:idx_command_market_seq" json:"seq"`
	Type      string    `gorm:"not null;size:32;index" json:"type"`
	Caller    string    `gorm:"not null;size:80;index" json:"caller"`
	Timestamp uint64    `gorm:"not null" json:"timestamp"` // TAI64
	Command   string    `gorm:"type:text" json:"command"`
	Envelope  string    `gorm:"type:text" json:"envelope"`
	CreatedAt time.Time `json:"createdAt"`
}

// TradeRecord is one settled match in human units.
type TradeRecord struct {
	ID           int64           `gorm:"primaryKey" json:"id"`
	MarketID     string          `gorm:"not null;size:36;uniqueIndex:idx_trade_market_seq_index" json:"marketId"`
	Seq          uint64          `gorm:"not null;uniqueIndex:idx_trade_market_seq_index" json:"seq"`
	EventIndex   int             `gorm:"not null;uniqueIndex:idx_trade_market_seq_index" json:"eventIndex"`
	TakenOrderID string          `gorm:"not null;size:66;index" json:"takenOrderId"`
	GivenOrderID string          `gorm:"not null;size:66;index" json:"givenOrderId"`
	Buyer        string          `gorm:"not null;size:80;index" json:"buyer"`
	Seller       string          `gorm:"not null;size:80;index" json:"seller"`
	Matcher      string          `gorm:"not null;size:80" json:"matcher"`
	Size         decimal.Decimal `gorm:"type:decimal(38,18);not null" json:"size"`
	Price        decimal.Decimal `gorm:"type:decimal(38,18);not null" json:"price"`
	QuoteAmount  decimal.Decimal `gorm:"type:decimal(38,18);not null" json:"quoteAmount"`
	BuyerFee     decimal.Decimal `gorm:"type:decimal(38,18);not null" json:"buyerFee"`
	SellerFee    decimal.Decimal `gorm:"type:decimal(38,18);not null" json:"sellerFee"`
	MatcherFee   decimal.Decimal `gorm:"type:decimal(38,18);not null" json:"matcherFee"`
	Timestamp    uint64          `gorm:"not null" json:"timestamp"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func (CommandRecord) TableName() string { return "market_commands" }
func (TradeRecord) TableName() string   { return "market_trades" }
