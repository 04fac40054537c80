package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clob/internal/book"
	"clob/internal/fee"
	"clob/internal/market"
	"clob/internal/schema"
	"clob/pkg/exception"
)

var (
	btc   = schema.AssetID{1}
	usdc  = schema.AssetID{2}
	admin = schema.Address([32]byte{0xad})
	alice = schema.Address([32]byte{0xa1})
	bob   = schema.Contract([32]byte{0xb0})
)

func TestDecodeRestoresCommand(t *testing.T) {
	commands := []Command{
		Deposit{Caller: alice, Asset: usdc, Amount: 10},
		OpenOrder{Caller: bob, Asset: btc, Size: -5, Price: 7},
		MatchOrders{Caller: admin, Taken: book.OrderID{1}, Given: book.OrderID{2}},
		SetProtocolFee{Caller: admin, Tiers: []fee.Tier{{MakerBps: 1, TakerBps: 2}}},
		Ownership{Caller: alice, Owner: admin, Initialize: true},
		WithdrawProtocolFee{Caller: admin, To: bob, Asset: &usdc},
	}

	for _, cmd := range commands {
		t.Run(cmd.CommandType().String(), func(t *testing.T) {
			data, err := Encode(cmd)
			require.NoError(t, err)
			got, err := Decode(cmd.CommandType(), data)
			require.NoError(t, err)
			assert.Equal(t, cmd, got)
		})
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode(schema.EventUnknown, []byte(`{}`))
	require.ErrorIs(t, err, exception.ErrUnknownCommand)

	_, err = Encode(nil)
	require.ErrorIs(t, err, exception.ErrNilInstance)
}

func TestApply(t *testing.T) {
	m, err := market.New(market.Params{
		Base:          schema.Asset{ID: btc, Decimals: 8},
		Quote:         schema.Asset{ID: usdc, Decimals: 6},
		PriceDecimals: 9,
	}, market.WithClock(market.FixedClock(1<<62)))
	require.NoError(t, err)

	steps := []Command{
		Ownership{Caller: alice, Owner: admin, Initialize: true},
		Deposit{Caller: alice, Asset: usdc, Amount: 45_000_000_000},
		Deposit{Caller: bob, Asset: btc, Amount: 100_000_000},
		SetMatcherFee{Caller: admin, Amount: 1},
		OpenOrder{Caller: alice, Asset: btc, Size: 100_000_000, Price: 45_000_000_000_000},
		OpenOrder{Caller: bob, Asset: btc, Size: -100_000_000, Price: 45_000_000_000_000},
	}
	var ids []book.OrderID
	for _, cmd := range steps {
		events, err := cmd.Apply(m)
		require.NoError(t, err)
		if e, ok := events[0].(market.OpenOrderEvent); ok {
			ids = append(ids, e.OrderID)
		}
	}
	require.Len(t, ids, 2)

	events, err := MatchOrders{Caller: admin, Taken: ids[1], Given: ids[0]}.Apply(m)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(1), m.Account(admin).QuoteLiquid)

	_, err = Pause{Caller: alice}.Apply(m)
	require.ErrorIs(t, err, exception.ErrNotOwner)
}
