package main

import (
	"context"
	"flag"
	"os"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"clob/internal/audit"
	"clob/internal/bus"
	"clob/internal/chaos"
	"clob/internal/host"
	"clob/internal/obs"
	"clob/internal/ops"
	"clob/internal/publish"
	"clob/internal/state"
	"clob/internal/store"
	"clob/pkg/conn"
)

func main() {
	configPath := flag.String("config", "market.yaml", "Path to the market config")
	scenarioPath := flag.String("scenario", "", "Path to a scenario of commands to run")
	recoverMarket := flag.Bool("recover", false, "Rebuild the market from snapshot + journal before running")
	profileAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disabled)")
	flag.Parse()

	if *profileAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "clob/market",
			ServerAddress:   *profileAddr,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			logs.Errorf("pyroscope start failed, err: %+v", err)
			os.Exit(1)
		}
		defer func() { _ = profiler.Stop() }()
	}

	if err := run(*configPath, *scenarioPath, *recoverMarket); err != nil {
		logs.Errorf("market failed, err: %+v", err)
		os.Exit(1)
	}
}

func run(configPath, scenarioPath string, recoverMarket bool) error {
	cfg, err := ops.Load(configPath)
	if err != nil {
		return err
	}
	ctx := context.Background()

	opts := host.Options{
		MarketID:      cfg.MarketID,
		Journal:       &cfg.Journal,
		Recover:       recoverMarket,
		SnapshotEvery: cfg.SnapshotEvery,
		BusCapacity:   cfg.BusCapacity,
		Metrics:       obs.NewMetrics(),
	}

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logs.Errorf("close failed, err: %+v", err)
			}
		}
	}()

	switch {
	case cfg.Store != nil:
		s, err := store.Open(cfg.StoreDir, *cfg.Store)
		if err != nil {
			return err
		}
		closers = append(closers, s.Close)
		if err := s.PutMeta("market", []byte(cfg.MarketID)); err != nil {
			return err
		}
		opts.Snapshots = s
		opts.Sinks = append(opts.Sinks, s)
	case cfg.SnapshotPath != "":
		opts.Snapshots = state.FileStore{Path: cfg.SnapshotPath}
	}

	if cfg.Kafka != nil {
		p, err := publish.NewPublisher(*cfg.Kafka, cfg.MarketID)
		if err != nil {
			return err
		}
		closers = append(closers, p.Close)
		opts.Sinks = append(opts.Sinks, p)
	}

	if cfg.Postgres != nil {
		sink, closeDB, err := openAudit(ctx, *cfg.Postgres, cfg)
		if err != nil {
			return err
		}
		closers = append(closers, closeDB)
		if cfg.Chaos != nil {
			drill, err := chaos.Wrap(sink, *cfg.Chaos)
			if err != nil {
				return err
			}
			closers = append(closers, func() error { return drill.Flush(ctx) })
			sink = drill
		}
		opts.Sinks = append(opts.Sinks, sink)
	}

	u, err := host.Deploy(cfg.Params, opts)
	if err != nil {
		return err
	}
	// the host drains its sinks on close, before they are closed themselves
	closers = append(closers, func() error {
		_, err := closeAndReport(u, opts.Metrics)
		return err
	})

	if scenarioPath != "" {
		sc, err := loadScenario(scenarioPath)
		if err != nil {
			return err
		}
		if err := sc.run(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

func openAudit(ctx context.Context, opt conn.Option, cfg ops.Loaded) (bus.Sink, func() error, error) {
	client, err := conn.New(opt)
	if err != nil {
		return nil, nil, err
	}
	repo, err := audit.New(client.DB(), cfg.MarketID, cfg.Params.Scale())
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, nil, errors.Wrap(err, "audit")
	}
	return repo, client.Close, nil
}

// closeAndReport closes the host, so the last events reached the sinks, and
// logs the final metrics.
func closeAndReport(u *host.Usecase, metrics *obs.Metrics) (obs.Snapshot, error) {
	err := u.Close()
	m := metrics.Snapshot()
	report(u, m)
	return m, err
}

func report(u *host.Usecase, m obs.Snapshot) {
	logs.Infof("market %s stopped at seq %d", u.ID(), u.LastSeq())
	for t, n := range m.CommandCounts {
		logs.Infof("  %-20s applied: %d, rejected: %d", t, n, m.RejectCounts[t])
	}
	logs.Infof("  apply latency avg: %s, max: %s, journal avg: %s", m.ApplyLatency.Avg, m.ApplyLatency.Max, m.JournalLatency.Avg)
	if m.QueueDrops > 0 || m.SinkErrors > 0 {
		logs.Infof("  sink drops: %d, sink errors: %d", m.QueueDrops, m.SinkErrors)
	}
}
