package state

import (
	"context"

	"github.com/yanun0323/errors"

	"clob/internal/codec"
	"clob/internal/market"
	"clob/internal/recorder"
	"clob/internal/schema"
)

var errStopReplay = errors.New("stop replay")

// RecoverConfig controls snapshot + journal recovery.
type RecoverConfig struct {
	JournalDir       string
	FilePrefix       string
	Snapshots        Store
	DisableChecksum  bool
	MaxPayloadSize   int
	TolerateTornTail bool
	// UntilSeq stops replay after this sequence; zero replays everything.
	UntilSeq uint64
	// Speed paces replay against the recorded receive times; zero does not
	// pace.
	Speed float64
	// OnRecord observes every replayed command and the events it produced.
	OnRecord func(header schema.EventHeader, cmd codec.Command, events []schema.Event)
}

// RecoverResult contains recovered state and metadata.
type RecoverResult struct {
	Market        *market.Market
	Clock         *market.ManualClock
	LastSeq       uint64
	LastEventTime uint64
	Replayed      int
	FromSnapshot  bool
}

// Recover loads the latest snapshot, or deploys params when there is none,
// and replays the journal tail on top of it. Every command is applied with
// the market clock set to the time it was first applied at, so the result
// is the state the market had when the last record was written.
func Recover(ctx context.Context, cfg RecoverConfig, params market.Params) (RecoverResult, error) {
	if cfg.JournalDir == "" {
		return RecoverResult{}, errors.New("journal dir is empty")
	}

	var (
		res   RecoverResult
		err   error
		clock = market.NewManualClock(params.EpochStart)
	)
	res.Clock = clock

	if cfg.Snapshots != nil {
		snap, ok, err := cfg.Snapshots.LatestSnapshot()
		if err != nil {
			return RecoverResult{}, errors.Wrap(err, "load snapshot")
		}
		if ok {
			clock.Set(snap.LastEventTime)
			if res.Market, err = market.Restore(snap.Market, market.WithClock(clock.Now)); err != nil {
				return RecoverResult{}, errors.Wrap(err, "restore snapshot")
			}
			res.LastSeq = snap.LastSeq
			res.LastEventTime = snap.LastEventTime
			res.FromSnapshot = true
		}
	}
	if res.Market == nil {
		if res.Market, err = market.New(params, market.WithClock(clock.Now)); err != nil {
			return RecoverResult{}, errors.Wrap(err, "deploy market")
		}
	}

	pb, err := recorder.NewPlayback(recorder.PlaybackConfig{
		Dir:              cfg.JournalDir,
		FilePrefix:       cfg.FilePrefix,
		AfterSeq:         res.LastSeq,
		DisableChecksum:  cfg.DisableChecksum,
		MaxPayloadSize:   cfg.MaxPayloadSize,
		TolerateTornTail: cfg.TolerateTornTail,
		Speed:            cfg.Speed,
	})
	if err != nil {
		return RecoverResult{}, err
	}

	lastSeq, err := pb.Run(ctx, func(header schema.EventHeader, payload []byte) error {
		if cfg.UntilSeq > 0 && header.Seq > cfg.UntilSeq {
			return errStopReplay
		}
		cmd, err := codec.Decode(header.Type, payload)
		if err != nil {
			return errors.Wrap(err, "decode journal record").With("seq", header.Seq)
		}
		clock.Set(header.Timestamp)
		events, err := cmd.Apply(res.Market)
		if err != nil {
			return errors.Wrap(err, "replay journal record").With("seq", header.Seq)
		}
		res.LastEventTime = header.Timestamp
		res.Replayed++
		if cfg.OnRecord != nil {
			cfg.OnRecord(header, cmd, events)
		}
		return nil
	})
	if err != nil && err != errStopReplay {
		return RecoverResult{}, err
	}
	res.LastSeq = lastSeq
	return res, nil
}
