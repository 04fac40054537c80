package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clob/internal/fee"
	"clob/internal/market"
)

const sample = `
market:
  base:
    id: "0xa168394dda72a436becdbd920e7cdea302b49f7b1160ed13c5102ebf185f3bf4"
    decimals: 9
  quote:
    id: "0xf8f8b6283d7fa5b672b530cbb84fcccb4ff8dc40f8176ef4544ddb1f1952ad07"
    decimals: 9
  price_decimals: 9
  owner: "address:0x0101010101010101010101010101010101010101010101010101010101010101"
  paused: true
  epoch_start: 4611686020163100000
  epoch_duration: 722h13m20s
  min_order_size: "0.001"
  min_order_price: "0.00000001"
  matcher_fee: "0.00003"
journal:
  dir: /tmp/journal
  sync_every_record: false
snapshot:
  every: 50
store:
  dir: /tmp/store
kafka:
  brokers: ["localhost:9092"]
  topic: market-events
postgres:
  host: db
  database: clob
chaos:
  seed: 9
  duplicate_rate: 0.5
  max_delay: 1ms
`

func TestParseSample(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	p := cfg.Params
	assert.Equal(t, uint32(9), p.Base.Decimals)
	assert.True(t, p.Paused)
	assert.Equal(t, uint64(4611686020163100000), p.EpochStart)
	assert.Equal(t, uint64(2_600_000), p.EpochDuration)
	assert.Equal(t, uint64(1_000_000), p.MinOrderSize)
	assert.Equal(t, uint64(10), p.MinOrderPrice)
	assert.Equal(t, uint64(30_000), p.MatcherFee)
	assert.Equal(t, DefaultFeeTiers(), p.Fees)
	assert.Equal(t, byte(1), p.Owner.ID[0])

	_, err = uuid.Parse(cfg.MarketID)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/journal", cfg.Journal.Dir)
	assert.False(t, cfg.Journal.SyncEveryRecord)
	assert.Equal(t, 50, cfg.SnapshotEvery)
	assert.Equal(t, defaultBusCapacity, cfg.BusCapacity)
	require.NotNil(t, cfg.Store)
	assert.Equal(t, "/tmp/store", cfg.StoreDir)
	require.NotNil(t, cfg.Kafka)
	assert.Equal(t, "market-events", cfg.Kafka.Topic)
	require.NotNil(t, cfg.Postgres)
	assert.Equal(t, "db", cfg.Postgres.Host)
	require.NotNil(t, cfg.Chaos)
	assert.Equal(t, 1, cfg.Chaos.ReorderWindow)
	assert.Equal(t, time.Millisecond, cfg.Chaos.MaxDelay)

	_, err = market.New(p)
	require.NoError(t, err)
}

func TestDefaultFeeTiersValid(t *testing.T) {
	tiers := DefaultFeeTiers()
	require.Len(t, tiers, 10)
	require.NoError(t, fee.Validate(tiers))
	s, err := fee.New(tiers)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), s.MaxBps())
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"bad yaml":      "market: [",
		"missing asset": "market: {}\njournal: {dir: /tmp/j}",
		"precision": `
market:
  base: {id: "0x0101010101010101010101010101010101010101010101010101010101010101", decimals: 2}
  quote: {id: "0x0202020202020202020202020202020202020202020202020202020202020202", decimals: 6}
  min_order_size: "0.001"
journal: {dir: /tmp/j}`,
		"no journal dir": `
market:
  base: {id: "0x0101010101010101010101010101010101010101010101010101010101010101", decimals: 8}
  quote: {id: "0x0202020202020202020202020202020202020202020202020202020202020202", decimals: 6}`,
		"kafka without topic": `
market:
  base: {id: "0x0101010101010101010101010101010101010101010101010101010101010101", decimals: 8}
  quote: {id: "0x0202020202020202020202020202020202020202020202020202020202020202", decimals: 6}
journal: {dir: /tmp/j}
kafka: {brokers: ["k:9092"]}`,
		"chaos drop rate": `
market:
  base: {id: "0x0101010101010101010101010101010101010101010101010101010101010101", decimals: 8}
  quote: {id: "0x0202020202020202020202020202020202020202020202020202020202020202", decimals: 6}
journal: {dir: /tmp/j}
chaos: {drop_rate: 2}`,
		"bad market id": `
market:
  id: nope
  base: {id: "0x0101010101010101010101010101010101010101010101010101010101010101", decimals: 8}
  quote: {id: "0x0202020202020202020202020202020202020202020202020202020202020202", decimals: 6}
journal: {dir: /tmp/j}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestLoadFileWithStartTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.yaml")
	doc := `
market:
  id: 7d0c2f36-8f59-4d0b-9a39-0e6f3c9f1a11
  base: {id: "0x0101010101010101010101010101010101010101010101010101010101010101", decimals: 8}
  quote: {id: "0x0202020202020202020202020202020202020202020202020202020202020202", decimals: 6}
  epoch_start_time: "2025-01-01T00:00:00Z"
  fee_tiers:
    - {maker_bps: 1, taker_bps: 2, volume_threshold: 0}
journal: {dir: /tmp/j}
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7d0c2f36-8f59-4d0b-9a39-0e6f3c9f1a11", cfg.MarketID)
	assert.Equal(t, market.TAI64(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)), cfg.Params.EpochStart)
	assert.Equal(t, []fee.Tier{{MakerBps: 1, TakerBps: 2}}, cfg.Params.Fees)
	assert.True(t, cfg.Journal.SyncEveryRecord)
	assert.Nil(t, cfg.Store)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
