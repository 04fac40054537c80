package ops

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/yanun0323/errors"
	"gopkg.in/yaml.v3"

	"clob/internal/chaos"
	"clob/internal/fee"
	"clob/internal/fixed"
	"clob/internal/market"
	"clob/internal/publish"
	"clob/internal/recorder"
	"clob/internal/schema"
	"clob/internal/store"
	"clob/pkg/conn"
)

const (
	defaultBusCapacity   = 4096
	defaultSnapshotEvery = 1000
)

// FileConfig mirrors the YAML config layout. JSON files parse as well.
type FileConfig struct {
	Market   MarketConfig    `yaml:"market"`
	Journal  JournalConfig   `yaml:"journal"`
	Snapshot SnapshotConfig  `yaml:"snapshot"`
	Store    *StoreConfig    `yaml:"store"`
	Kafka    *KafkaConfig    `yaml:"kafka"`
	Postgres *PostgresConfig `yaml:"postgres"`
	Bus      BusConfig       `yaml:"bus"`
	Chaos    *chaos.Config   `yaml:"chaos"`
}

// AssetConfig describes one side of the pair.
type AssetConfig struct {
	ID       string `yaml:"id"`
	Decimals uint32 `yaml:"decimals"`
}

// MarketConfig holds the deploy parameters. Sizes, prices and the matcher
// fee are human decimals ("0.001"), converted with the asset decimals.
type MarketConfig struct {
	ID             string        `yaml:"id"`
	Base           AssetConfig   `yaml:"base"`
	Quote          AssetConfig   `yaml:"quote"`
	PriceDecimals  uint32        `yaml:"price_decimals"`
	Owner          string        `yaml:"owner"`
	Paused         bool          `yaml:"paused"`
	EpochStart     uint64        `yaml:"epoch_start"`
	EpochStartTime string        `yaml:"epoch_start_time"`
	EpochDuration  time.Duration `yaml:"epoch_duration"`
	MinOrderSize   string        `yaml:"min_order_size"`
	MinOrderPrice  string        `yaml:"min_order_price"`
	MatcherFee     string        `yaml:"matcher_fee"`
	FeeTiers       []fee.Tier    `yaml:"fee_tiers"`
}

// JournalConfig controls the command journal.
type JournalConfig struct {
	Dir             string        `yaml:"dir"`
	FilePrefix      string        `yaml:"file_prefix"`
	SegmentMaxBytes int64         `yaml:"segment_max_bytes"`
	FlushInterval   time.Duration `yaml:"flush_interval"`
	SyncEveryRecord *bool         `yaml:"sync_every_record"`
}

// SnapshotConfig controls periodic snapshots. Path selects a JSON file
// store when no pebble store is configured.
type SnapshotConfig struct {
	Every int    `yaml:"every"`
	Path  string `yaml:"path"`
}

// StoreConfig enables the pebble snapshot store and event index.
type StoreConfig struct {
	Dir           string `yaml:"dir"`
	InMemory      bool   `yaml:"in_memory"`
	NoSync        bool   `yaml:"no_sync"`
	KeepSnapshots int    `yaml:"keep_snapshots"`
}

// KafkaConfig enables the kafka publisher.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	Async        bool          `yaml:"async"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

// PostgresConfig enables the audit sink.
type PostgresConfig struct {
	DSN      string            `yaml:"dsn"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	User     string            `yaml:"user"`
	Password string            `yaml:"password"`
	Database string            `yaml:"database"`
	SSLMode  string            `yaml:"ssl_mode"`
	Params   map[string]string `yaml:"params"`
}

// BusConfig sizes the sink queue.
type BusConfig struct {
	Capacity int `yaml:"capacity"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	MarketID      string
	Params        market.Params
	Journal       recorder.Config
	SnapshotEvery int
	SnapshotPath  string
	StoreDir      string
	Store         *store.Options
	Kafka         *publish.Config
	Postgres      *conn.Option
	BusCapacity   int
	// Chaos, when set, perturbs delivery to the audit sink.
	Chaos *chaos.Config
}

// Load reads a YAML config file and resolves it.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrapf(err, "read config %q", path)
	}
	return Parse(data)
}

// Parse resolves a YAML document.
func Parse(data []byte) (Loaded, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, errors.Wrap(err, "decode config")
	}
	return cfg.Resolve()
}

// Resolve converts the file layout into engine and sink settings.
func (c FileConfig) Resolve() (Loaded, error) {
	params, err := c.Market.params()
	if err != nil {
		return Loaded{}, err
	}
	if err := params.Validate(); err != nil {
		return Loaded{}, errors.Wrap(err, "invalid market config")
	}

	id := c.Market.ID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return Loaded{}, errors.Wrapf(err, "invalid market id %q", id)
	}

	out := Loaded{
		MarketID:      id,
		Params:        params,
		Journal:       c.Journal.recorder(),
		SnapshotEvery: c.Snapshot.Every,
		SnapshotPath:  c.Snapshot.Path,
		BusCapacity:   c.Bus.Capacity,
	}
	if out.SnapshotEvery == 0 {
		out.SnapshotEvery = defaultSnapshotEvery
	}
	if out.SnapshotEvery < 0 {
		return Loaded{}, errors.New("invalid snapshot config: every must be >= 0")
	}
	if out.BusCapacity <= 0 {
		out.BusCapacity = defaultBusCapacity
	}
	if err := out.Journal.Validate(); err != nil {
		return Loaded{}, err
	}

	if ch := c.Chaos; ch != nil {
		cc := *ch
		if cc.ReorderWindow == 0 {
			cc.ReorderWindow = 1
		}
		if err := cc.Validate(); err != nil {
			return Loaded{}, err
		}
		out.Chaos = &cc
	}

	if s := c.Store; s != nil {
		if s.Dir == "" && !s.InMemory {
			return Loaded{}, errors.New("invalid store config: dir is empty")
		}
		out.StoreDir = s.Dir
		out.Store = &store.Options{InMemory: s.InMemory, NoSync: s.NoSync, KeepSnapshots: s.KeepSnapshots}
	}
	if k := c.Kafka; k != nil {
		kc := publish.Config{Brokers: k.Brokers, Topic: k.Topic, Async: k.Async, BatchTimeout: k.BatchTimeout}
		if err := kc.Validate(); err != nil {
			return Loaded{}, err
		}
		out.Kafka = &kc
	}
	if p := c.Postgres; p != nil {
		out.Postgres = &conn.Option{
			Host:       p.Host,
			Port:       p.Port,
			User:       p.User,
			Password:   p.Password,
			Database:   p.Database,
			SSLMode:    p.SSLMode,
			Params:     p.Params,
			ConnString: p.DSN,
		}
	}
	return out, nil
}

func (c MarketConfig) params() (market.Params, error) {
	base, err := c.Base.asset()
	if err != nil {
		return market.Params{}, errors.Wrap(err, "base asset")
	}
	quote, err := c.Quote.asset()
	if err != nil {
		return market.Params{}, errors.Wrap(err, "quote asset")
	}

	p := market.Params{
		Base:          base,
		Quote:         quote,
		PriceDecimals: c.PriceDecimals,
		Paused:        c.Paused,
		EpochStart:    c.EpochStart,
		EpochDuration: uint64(c.EpochDuration / time.Second),
		Fees:          c.FeeTiers,
	}
	if c.EpochDuration < 0 {
		return market.Params{}, errors.New("epoch duration must be >= 0")
	}
	if c.EpochStartTime != "" {
		t, err := time.Parse(time.RFC3339, c.EpochStartTime)
		if err != nil {
			return market.Params{}, errors.Wrap(err, "parse epoch_start_time")
		}
		p.EpochStart = market.TAI64(t)
	}
	if c.Owner != "" {
		if p.Owner, err = schema.ParseIdentity(c.Owner); err != nil {
			return market.Params{}, err
		}
	}
	if len(p.Fees) == 0 {
		p.Fees = DefaultFeeTiers()
	}
	if p.MinOrderSize, err = units(c.MinOrderSize, base.Decimals); err != nil {
		return market.Params{}, errors.Wrap(err, "min_order_size")
	}
	if p.MinOrderPrice, err = units(c.MinOrderPrice, c.PriceDecimals); err != nil {
		return market.Params{}, errors.Wrap(err, "min_order_price")
	}
	if p.MatcherFee, err = units(c.MatcherFee, quote.Decimals); err != nil {
		return market.Params{}, errors.Wrap(err, "matcher_fee")
	}
	return p, nil
}

func (c AssetConfig) asset() (schema.Asset, error) {
	id, err := schema.ParseAssetID(c.ID)
	if err != nil {
		return schema.Asset{}, err
	}
	return schema.Asset{ID: id, Decimals: c.Decimals}, nil
}

func (c JournalConfig) recorder() recorder.Config {
	cfg := recorder.DefaultConfig(c.Dir)
	if c.FilePrefix != "" {
		cfg.FilePrefix = c.FilePrefix
	}
	if c.SegmentMaxBytes > 0 {
		cfg.SegmentMaxBytes = c.SegmentMaxBytes
	}
	if c.FlushInterval > 0 {
		cfg.FlushInterval = c.FlushInterval
	}
	cfg.SyncEveryRecord = true
	if c.SyncEveryRecord != nil {
		cfg.SyncEveryRecord = *c.SyncEveryRecord
	}
	return cfg
}

func units(s string, decimals uint32) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return fixed.ParseUnits(s, decimals)
}

// DefaultFeeTiers is the ten tier schedule markets are deployed with.
// Thresholds are epoch volume in quote units of a 6 decimal asset.
func DefaultFeeTiers() []fee.Tier {
	return []fee.Tier{
		{MakerBps: 25, TakerBps: 40, VolumeThreshold: 0},
		{MakerBps: 20, TakerBps: 35, VolumeThreshold: 10_000_000_000},
		{MakerBps: 14, TakerBps: 24, VolumeThreshold: 50_000_000_000},
		{MakerBps: 12, TakerBps: 22, VolumeThreshold: 100_000_000_000},
		{MakerBps: 10, TakerBps: 20, VolumeThreshold: 250_000_000_000},
		{MakerBps: 8, TakerBps: 18, VolumeThreshold: 500_000_000_000},
		{MakerBps: 6, TakerBps: 16, VolumeThreshold: 1_000_000_000_000},
		{MakerBps: 4, TakerBps: 14, VolumeThreshold: 2_500_000_000_000},
		{MakerBps: 2, TakerBps: 12, VolumeThreshold: 5_000_000_000_000},
		{MakerBps: 0, TakerBps: 10, VolumeThreshold: 10_000_000_000_000},
	}
}
