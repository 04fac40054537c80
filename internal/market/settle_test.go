package market

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clob/internal/book"
	"clob/internal/fee"
	"clob/internal/fixed"
	"clob/internal/schema"
	"clob/pkg/exception"
)

// feeTable rows are maker bps, taker bps, volume threshold.
type feeTable [][3]uint64

func (f feeTable) tiers() []fee.Tier {
	out := make([]fee.Tier, 0, len(f))
	for _, r := range f {
		out = append(out, fee.Tier{MakerBps: r[0], TakerBps: r[1], VolumeThreshold: r[2]})
	}
	return out
}

func TestMatchWithFees(t *testing.T) {
	p := params()
	p.Fees = feeTable{{25, 40, 0}}.tiers()
	p.MatcherFee = 30_000
	m := newMarket(t, p)

	deposit(t, m, alice, usdc, usd(t, "46000"))
	deposit(t, m, bob, btc, sats(t, "1"))

	buyID := open(t, m, alice, size(t, "1"), px(t, "45000"))
	o, err := m.Order(buyID)
	require.NoError(t, err)
	assert.Equal(t, usd(t, "45180"), o.Locked, "cost plus 40 bps reserve")
	assert.Equal(t, uint64(40), o.ReserveBps)

	sellID := open(t, m, bob, size(t, "-1"), px(t, "45000"))

	events, err := m.MatchOrders(carol, sellID, buyID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, TradeEvent{
		TakenOrderID: sellID,
		GivenOrderID: buyID,
		Buyer:        alice,
		Seller:       bob,
		Matcher:      carol,
		Size:         100_000_000,
		Price:        px(t, "45000"),
		QuoteAmount:  usd(t, "45000"),
		BuyerFee:     usd(t, "180"),
		SellerFee:    usd(t, "112.5"),
		MatcherFee:   30_000,
	}, events[0])

	assert.Equal(t, schema.NewAccount(100_000_000, 0, usd(t, "820"), 0), m.Account(alice))
	assert.Equal(t, schema.NewAccount(0, 0, usd(t, "44887.47"), 0), m.Account(bob))
	assert.Equal(t, schema.NewAccount(0, 0, 30_000, 0), m.Account(carol))
	assert.Equal(t, usd(t, "292.5"), m.FeePool(usdc))

	custody, err := m.Custody(usdc)
	require.NoError(t, err)
	assert.Equal(t, usd(t, "46000"), custody)

	assert.Equal(t, usd(t, "45000"), m.Volume(alice))
	assert.Equal(t, usd(t, "45000"), m.Volume(bob))
}

func TestMatcherFeeClampedToProceeds(t *testing.T) {
	p := params()
	p.MatcherFee = usd(t, "1000")
	m := newMarket(t, p)

	deposit(t, m, alice, usdc, usd(t, "1"))
	deposit(t, m, bob, btc, sats(t, "1"))
	buyID := open(t, m, alice, size(t, "0.0001"), px(t, "1000"))
	sellID := open(t, m, bob, size(t, "-0.0001"), px(t, "1000"))

	events, err := m.MatchOrders(carol, sellID, buyID)
	require.NoError(t, err)
	trade := events[0].(TradeEvent)
	assert.Equal(t, usd(t, "0.1"), trade.QuoteAmount)
	assert.Equal(t, usd(t, "0.1"), trade.MatcherFee)
	assert.Zero(t, m.Account(bob).QuoteLiquid)
	assert.Equal(t, usd(t, "0.1"), m.Account(carol).QuoteLiquid)
}

func TestPartialFillShrinksFeeReserve(t *testing.T) {
	p := params()
	p.Fees = feeTable{{25, 40, 0}}.tiers()
	m := newMarket(t, p)

	deposit(t, m, alice, usdc, usd(t, "100000"))
	deposit(t, m, bob, btc, sats(t, "1"))

	buyID := open(t, m, alice, size(t, "2"), px(t, "45000"))
	sellID := open(t, m, bob, size(t, "-1"), px(t, "44000"))

	_, err := m.MatchOrders(admin, sellID, buyID)
	require.NoError(t, err)

	o, err := m.Order(buyID)
	require.NoError(t, err)
	assert.Equal(t, usd(t, "45180"), o.Locked)

	// 100000 - 90360 locked at open, trade at 44000 plus 176 taker fee,
	// the rest of the first unit's lock comes back.
	acc := m.Account(alice)
	assert.Equal(t, usd(t, "45180"), acc.QuoteLocked)
	assert.Equal(t, usd(t, "100000")-usd(t, "44000")-usd(t, "176")-usd(t, "45180"), acc.QuoteLiquid)

	_, err = m.CancelOrder(alice, buyID)
	require.NoError(t, err)
	assert.Zero(t, m.Account(alice).QuoteLocked)
}

func TestFeeRaisedAfterOpenIsCapped(t *testing.T) {
	m := newMarket(t, params())
	deposit(t, m, alice, usdc, usd(t, "45000"))
	deposit(t, m, bob, btc, sats(t, "1"))

	buyID := open(t, m, alice, size(t, "1"), px(t, "45000"))
	sellID := open(t, m, bob, size(t, "-1"), px(t, "45000"))

	_, err := m.SetProtocolFee(admin, feeTable{{100, 100, 0}}.tiers())
	require.NoError(t, err)

	events, err := m.MatchOrders(admin, sellID, buyID)
	require.NoError(t, err)
	trade := events[0].(TradeEvent)
	assert.Zero(t, trade.BuyerFee, "buy order reserved nothing")
	assert.Equal(t, usd(t, "450"), trade.SellerFee)
	assert.Equal(t, schema.NewAccount(100_000_000, 0, 0, 0), m.Account(alice))
}

func TestVolumeTiersAndEpochRoll(t *testing.T) {
	now := uint64(4611686020163100000)
	clock := func() uint64 { return now }

	p := params()
	p.Fees = feeTable{{25, 40, 0}, {20, 35, 10_000_000_000}}.tiers()
	p.EpochStart = now
	p.EpochDuration = 2_600_000
	m := newMarket(t, p, WithClock(clock))

	deposit(t, m, alice, usdc, usd(t, "50000"))
	deposit(t, m, bob, btc, sats(t, "1"))

	maker, taker := m.ProtocolFeeUser(alice)
	assert.Equal(t, []uint64{25, 40}, []uint64{maker, taker})

	buyID := open(t, m, alice, size(t, "1"), px(t, "45000"))
	sellID := open(t, m, bob, size(t, "-1"), px(t, "45000"))
	_, err := m.MatchOrders(admin, sellID, buyID)
	require.NoError(t, err)

	maker, taker = m.ProtocolFeeUser(alice)
	assert.Equal(t, []uint64{20, 35}, []uint64{maker, taker})
	makerFee, takerFee := m.ProtocolFeeUserAmount(usd(t, "1000"), alice)
	assert.Equal(t, usd(t, "2"), makerFee)
	assert.Equal(t, usd(t, "3.5"), takerFee)

	now += 2_600_000*3 + 5
	assert.Zero(t, m.Volume(alice))
	maker, _ = m.ProtocolFeeUser(alice)
	assert.Equal(t, uint64(25), maker)

	deposit(t, m, bob, btc, 1)
	assert.Equal(t, uint64(4611686020163100000+2_600_000*3), m.Config().EpochStart)
}

func TestWithdrawProtocolFee(t *testing.T) {
	p := params()
	p.Fees = feeTable{{25, 40, 0}}.tiers()
	m := newMarket(t, p)

	_, err := m.WithdrawProtocolFee(admin, admin)
	require.ErrorIs(t, err, exception.ErrInsufficientBalance)

	deposit(t, m, alice, usdc, usd(t, "46000"))
	deposit(t, m, bob, btc, sats(t, "1"))
	buyID := open(t, m, alice, size(t, "1"), px(t, "45000"))
	sellID := open(t, m, bob, size(t, "-1"), px(t, "45000"))
	_, err = m.MatchOrders(admin, sellID, buyID)
	require.NoError(t, err)

	treasury := schema.Contract([32]byte{0x7e})
	_, err = m.WithdrawProtocolFee(alice, treasury)
	require.ErrorIs(t, err, exception.ErrNotOwner)

	events, err := m.WithdrawProtocolFee(admin, treasury)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, WithdrawProtocolFeeEvent{
		Amount: usd(t, "292.5"),
		Asset:  usdc,
		To:     treasury,
		Caller: admin,
	}, events[0])
	assert.Zero(t, m.FeePool(usdc))

	_, err = m.WithdrawProtocolFeeAsset(admin, treasury, usdc)
	require.ErrorIs(t, err, exception.ErrInsufficientBalance)
	_, err = m.WithdrawProtocolFeeAsset(admin, treasury, schema.AssetID{0xee})
	require.ErrorIs(t, err, exception.ErrInvalidAsset)
}

// TestRandomSessionConservation runs a seeded random session and checks
// after every operation that custody equals deposits minus withdrawals and
// that every locked balance is backed by resting orders.
func TestRandomSessionConservation(t *testing.T) {
	p := params()
	p.Fees = feeTable{{25, 40, 0}, {10, 20, 50_000_000_000}}.tiers()
	p.MatcherFee = 30_000
	m := newMarket(t, p)

	users := []schema.Identity{alice, bob, carol}
	r := rand.New(rand.NewSource(7))
	var deposited, withdrawn [2]uint64
	ids := make([]book.OrderID, 0)

	for i := 0; i < 2000; i++ {
		who := users[r.Intn(len(users))]
		switch r.Intn(6) {
		case 0:
			amount := uint64(r.Int63n(100_000_000_000)) + 1
			if _, err := m.Deposit(who, usdc, amount); err == nil {
				deposited[1] += amount
			}
			amount = uint64(r.Int63n(300_000_000)) + 1
			if _, err := m.Deposit(who, btc, amount); err == nil {
				deposited[0] += amount
			}
		case 1:
			amount := uint64(r.Int63n(10_000_000_000)) + 1
			if _, err := m.Withdraw(who, usdc, amount); err == nil {
				withdrawn[1] += amount
			}
		case 2, 3:
			sz := r.Int63n(50_000_000) + 1
			if r.Intn(2) == 0 {
				sz = -sz
			}
			price := uint64(40_000+r.Intn(10_000)) * 1_000_000_000
			if id, _, err := m.OpenOrder(who, btc, sz, price); err == nil {
				ids = append(ids, id)
			}
		case 4:
			if len(ids) < 2 {
				continue
			}
			a, b := ids[r.Intn(len(ids))], ids[r.Intn(len(ids))]
			_, _ = m.MatchOrders(who, a, b)
		case 5:
			if len(ids) == 0 {
				continue
			}
			id := ids[r.Intn(len(ids))]
			if o, err := m.Order(id); err == nil {
				_, err = m.CancelOrder(o.Owner, id)
				require.NoError(t, err)
			}
		}

		if i%100 == 0 {
			if events, err := m.WithdrawProtocolFee(admin, admin); err == nil {
				for _, e := range events {
					withdrawn[1] += e.(WithdrawProtocolFeeEvent).Amount
				}
			}
		}

		assertConserved(t, m, deposited, withdrawn)
	}
}

func assertConserved(t *testing.T, m *Market, deposited, withdrawn [2]uint64) {
	t.Helper()
	base, err := m.Custody(btc)
	require.NoError(t, err)
	quote, err := m.Custody(usdc)
	require.NoError(t, err)
	require.Equal(t, deposited[0]-withdrawn[0], base)
	require.Equal(t, deposited[1]-withdrawn[1], quote)

	for _, owner := range m.ledger.Owners() {
		var baseLocked, quoteLocked uint64
		for _, o := range m.Orders(owner) {
			if o.IsBuy() {
				quoteLocked += o.Locked
				cost, err := fixed.QuoteAmount(o.Remaining(), o.Price, m.Scale())
				require.NoError(t, err)
				require.GreaterOrEqual(t, o.Locked, cost)
			} else {
				baseLocked += o.Locked
				require.Equal(t, o.Remaining(), o.Locked)
			}
		}
		acc := m.Account(owner)
		require.Equal(t, baseLocked, acc.BaseLocked)
		require.Equal(t, quoteLocked, acc.QuoteLocked)
	}
}

func TestSnapshotRestore(t *testing.T) {
	p := params()
	p.Fees = feeTable{{25, 40, 0}}.tiers()
	m := newMarket(t, p)

	deposit(t, m, alice, usdc, usd(t, "100000"))
	deposit(t, m, bob, btc, sats(t, "3"))
	buyID := open(t, m, alice, size(t, "2"), px(t, "45000"))
	sellID := open(t, m, bob, size(t, "-1"), px(t, "45000"))
	open(t, m, bob, size(t, "-1"), px(t, "47000"))
	_, err := m.MatchOrders(admin, sellID, buyID)
	require.NoError(t, err)

	snap := m.Snapshot()
	restored, err := Restore(snap, WithClock(FixedClock(1<<62)))
	require.NoError(t, err)
	assert.Equal(t, snap, restored.Snapshot())

	// both continue identically
	id1 := open(t, m, bob, size(t, "-0.5"), px(t, "45000"))
	id2 := open(t, restored, bob, size(t, "-0.5"), px(t, "45000"))
	assert.Equal(t, id1, id2)
	_, err = m.MatchOrders(admin, buyID, id1)
	require.NoError(t, err)
	_, err = restored.MatchOrders(admin, buyID, id2)
	require.NoError(t, err)
	assert.Equal(t, m.Snapshot(), restored.Snapshot())
}
