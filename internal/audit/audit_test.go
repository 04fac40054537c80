package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"clob/internal/bus"
	"clob/internal/market"
	"clob/internal/schema"
)

const epoch = uint64(4611686020163100000)

var (
	btc   = schema.AssetID{1}
	usdc  = schema.AssetID{2}
	admin = schema.Address([32]byte{0xad})
	alice = schema.Address([32]byte{0xa1})
	bob   = schema.Address([32]byte{0xb0})
)

func openRepo(t *testing.T, m *market.Market) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	repo, err := New(db, "market-1", m.Scale())
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func tradeEvent(t *testing.T) (*market.Market, bus.Event) {
	t.Helper()
	m, err := market.New(market.Params{
		Base:          schema.Asset{ID: btc, Decimals: 8},
		Quote:         schema.Asset{ID: usdc, Decimals: 6},
		PriceDecimals: 9,
		Owner:         admin,
		EpochStart:    epoch,
		EpochDuration: 100,
	}, market.WithClock(market.FixedClock(epoch)))
	require.NoError(t, err)

	_, err = m.Deposit(alice, usdc, 50_000_000_000)
	require.NoError(t, err)
	_, err = m.Deposit(bob, btc, 100_000_000)
	require.NoError(t, err)
	buy, _, err := m.OpenOrder(alice, btc, 50_000_000, 45_000_000_000_000)
	require.NoError(t, err)
	sell, _, err := m.OpenOrder(bob, btc, -100_000_000, 45_000_000_000_000)
	require.NoError(t, err)
	events, err := m.MatchOrders(admin, sell, buy)
	require.NoError(t, err)

	return m, bus.Event{
		Header:  schema.NewHeader(schema.EventTrade, 5, epoch, 0),
		Caller:  admin,
		Events:  events,
		Payload: []byte(`{"caller":"x"}`),
	}
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, "m", market.Params{}.Scale())
	require.Error(t, err)
}

func TestConsumeStoresCommandAndTrades(t *testing.T) {
	m, e := tradeEvent(t)
	repo := openRepo(t, m)
	ctx := context.Background()

	seq, err := repo.LastSeq(ctx)
	require.NoError(t, err)
	assert.Zero(t, seq)

	require.NoError(t, repo.Consume(ctx, e))
	require.NoError(t, repo.Consume(ctx, e), "replayed record is ignored")

	seq, err = repo.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), seq)

	trades, err := repo.Trades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, alice.String(), tr.Buyer)
	assert.Equal(t, bob.String(), tr.Seller)
	assert.True(t, decimal.RequireFromString("0.5").Equal(tr.Size), tr.Size.String())
	assert.True(t, decimal.RequireFromString("45000").Equal(tr.Price), tr.Price.String())
	assert.True(t, decimal.RequireFromString("22500").Equal(tr.QuoteAmount), tr.QuoteAmount.String())

	mine, err := repo.TradesOf(ctx, bob.String(), 0)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	none, err := repo.TradesOf(ctx, admin.String(), 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	var cmds []CommandRecord
	require.NoError(t, repo.db.Find(&cmds).Error)
	require.Len(t, cmds, 1)
	assert.Equal(t, "Trade", cmds[0].Type)
	assert.Contains(t, cmds[0].Envelope, `"seq":5`)
}
