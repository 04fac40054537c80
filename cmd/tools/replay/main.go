package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"clob/internal/codec"
	"clob/internal/fixed"
	"clob/internal/ops"
	"clob/internal/schema"
	"clob/internal/state"
	"clob/internal/store"
	"clob/pkg/exception"
)

func main() {
	configPath := flag.String("config", "market.yaml", "Path to the market config")
	speed := flag.Float64("speed", 0, "Playback speed (1=real-time, 0=no pacing)")
	noChecksum := flag.Bool("no-checksum", false, "Disable checksum validation")
	maxPayload := flag.Int("max-payload", 0, "Max payload size in bytes (0=16 MiB)")
	printRecords := flag.Bool("print", false, "Print every replayed command")
	verify := flag.Bool("verify", true, "Verify the rebuilt market against the latest snapshot")
	at := flag.Uint64("at", 0, "Verify against the stored snapshot at this seq instead of the latest")
	flag.Parse()

	if err := run(*configPath, *speed, *noChecksum, *maxPayload, *printRecords, *verify, *at); err != nil {
		logs.Errorf("replay failed, err: %+v", err)
		os.Exit(1)
	}
}

type snapshotAt interface {
	Snapshot(seq uint64) (state.Snapshot, bool, error)
}

func run(configPath string, speed float64, noChecksum bool, maxPayload int, printRecords, verify bool, at uint64) error {
	cfg, err := ops.Load(configPath)
	if err != nil {
		return err
	}

	snapshots, closeStore, err := openSnapshots(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	rc := state.RecoverConfig{
		JournalDir:       cfg.Journal.Dir,
		FilePrefix:       cfg.Journal.FilePrefix,
		DisableChecksum:  noChecksum,
		MaxPayloadSize:   maxPayload,
		TolerateTornTail: true,
		Speed:            speed,
	}
	if printRecords {
		rc.OnRecord = printRecord
	}

	var (
		want state.Snapshot
		ok   bool
	)
	switch {
	case verify && snapshots != nil && at > 0:
		byseq, isIndexed := snapshots.(snapshotAt)
		if !isIndexed {
			return errors.Wrap(exception.ErrTypeUnsupported, "snapshot file keeps only the latest snapshot, use a store")
		}
		if want, ok, err = byseq.Snapshot(at); err != nil {
			return err
		}
		if !ok {
			return errors.Wrapf(exception.ErrSnapshotNotFound, "seq %d", at)
		}
		rc.UntilSeq = want.LastSeq
	case verify && snapshots != nil:
		if want, ok, err = snapshots.LatestSnapshot(); err != nil {
			return err
		}
		if ok {
			rc.UntilSeq = want.LastSeq
		}
	}

	ctx := context.Background()
	res, err := state.Recover(ctx, rc, cfg.Params)
	if err != nil {
		return err
	}
	logs.Infof("replayed %d commands, last seq: %d", res.Replayed, res.LastSeq)

	if ok {
		got := state.Capture(res.Market, res.LastSeq, res.LastEventTime)
		if got.LastSeq != want.LastSeq {
			return errors.Errorf("journal ends at seq %d before snapshot seq %d", got.LastSeq, want.LastSeq)
		}
		if err := state.CompareSnapshots(want, got); err != nil {
			return err
		}
		logs.Infof("market matches snapshot at seq %d", want.LastSeq)
	}

	q := res.Market.Quote()
	for _, entry := range res.Market.Snapshot().Ledger.Pool {
		logs.Infof("fee pool %s: %s", entry.Asset, fixed.FormatUnits(entry.Amount, decimalsOf(res.Market.Base(), q, entry.Asset)))
	}
	return nil
}

func openSnapshots(cfg ops.Loaded) (state.Store, func(), error) {
	switch {
	case cfg.Store != nil:
		s, err := store.Open(cfg.StoreDir, *cfg.Store)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case cfg.SnapshotPath != "":
		return state.FileStore{Path: cfg.SnapshotPath}, func() {}, nil
	default:
		return nil, func() {}, nil
	}
}

func decimalsOf(base, quote schema.Asset, asset schema.AssetID) uint32 {
	if asset == base.ID {
		return base.Decimals
	}
	return quote.Decimals
}

func printRecord(h schema.EventHeader, cmd codec.Command, events []schema.Event) {
	fmt.Printf("seq=%d type=%s ts=%d recv=%d events=%d cmd=%+v\n", h.Seq, h.Type, h.Timestamp, h.RecvTime, len(events), cmd)
}
