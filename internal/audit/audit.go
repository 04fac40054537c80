// Package audit writes applied commands and trades to a SQL database.
package audit

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clob/internal/bus"
	"clob/internal/fixed"
	"clob/internal/market"
)

// Repository is a bus sink persisting the command log and the trade tape.
// Inserts are idempotent on (market, seq) so a replayed journal can be fed
// through it again.
type Repository struct {
	db       *gorm.DB
	marketID string
	scale    fixed.Scale
}

// New binds a repository to one market.
func New(db *gorm.DB, marketID string, scale fixed.Scale) (*Repository, error) {
	if db == nil {
		return nil, errors.New("audit db is nil")
	}
	if marketID == "" {
		return nil, errors.New("audit market id is empty")
	}
	return &Repository{db: db, marketID: marketID, scale: scale}, nil
}

// Migrate creates or updates the audit tables.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&CommandRecord{}, &TradeRecord{}); err != nil {
		return errors.Wrap(err, "migrate audit tables")
	}
	return nil
}

func (r *Repository) Name() string { return "audit" }

// Consume stores the command and any trades it settled in one transaction.
func (r *Repository) Consume(ctx context.Context, e bus.Event) error {
	envelope, err := bus.Marshal(e)
	if err != nil {
		return err
	}
	cmd := CommandRecord{
		MarketID:  r.marketID,
		Seq:       e.Header.Seq,
		Type:      e.Header.Type.String(),
		Caller:    e.Caller.String(),
		Timestamp: e.Header.Timestamp,
		Command:   string(e.Payload),
		Envelope:  string(envelope),
	}

	var trades []TradeRecord
	for i, ev := range e.Events {
		if t, ok := ev.(market.TradeEvent); ok {
			trades = append(trades, r.trade(e.Header.Seq, e.Header.Timestamp, i, t))
		}
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&cmd).Error; err != nil {
			return err
		}
		if len(trades) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&trades).Error
	})
	if err != nil {
		return errors.Wrapf(err, "store audit record, seq: %d", e.Header.Seq)
	}
	return nil
}

func (r *Repository) trade(seq, ts uint64, index int, t market.TradeEvent) TradeRecord {
	return TradeRecord{
		MarketID:     r.marketID,
		Seq:          seq,
		EventIndex:   index,
		TakenOrderID: t.TakenOrderID.String(),
		GivenOrderID: t.GivenOrderID.String(),
		Buyer:        t.Buyer.String(),
		Seller:       t.Seller.String(),
		Matcher:      t.Matcher.String(),
		Size:         units(t.Size, r.scale.BaseDecimals),
		Price:        units(t.Price, r.scale.PriceDecimals),
		QuoteAmount:  units(t.QuoteAmount, r.scale.QuoteDecimals),
		BuyerFee:     units(t.BuyerFee, r.scale.QuoteDecimals),
		SellerFee:    units(t.SellerFee, r.scale.QuoteDecimals),
		MatcherFee:   units(t.MatcherFee, r.scale.QuoteDecimals),
		Timestamp:    ts,
	}
}

// LastSeq returns the highest stored command sequence of the market.
func (r *Repository) LastSeq(ctx context.Context) (uint64, error) {
	var seq uint64
	err := r.db.WithContext(ctx).
		Model(&CommandRecord{}).
		Where("market_id = ?", r.marketID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&seq).Error
	if err != nil {
		return 0, errors.Wrap(err, "query last audit seq")
	}
	return seq, nil
}

// Trades lists the latest trades of the market, newest first.
func (r *Repository) Trades(ctx context.Context, limit int) ([]TradeRecord, error) {
	var out []TradeRecord
	q := r.db.WithContext(ctx).
		Where("market_id = ?", r.marketID).
		Order("seq DESC, event_index DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "query trades")
	}
	return out, nil
}

// TradesOf lists trades where owner was buyer or seller, newest first.
func (r *Repository) TradesOf(ctx context.Context, owner string, limit int) ([]TradeRecord, error) {
	var out []TradeRecord
	q := r.db.WithContext(ctx).
		Where("market_id = ? AND (buyer = ? OR seller = ?)", r.marketID, owner, owner).
		Order("seq DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "query trades of owner")
	}
	return out, nil
}

func units(v uint64, decimals uint32) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -int32(decimals))
}
