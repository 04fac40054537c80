package recorder

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yanun0323/errors"

	"clob/internal/schema"
)

// PlaybackConfig controls journal playback behavior.
type PlaybackConfig struct {
	Dir        string
	FilePrefix string
	// AfterSeq skips records whose sequence is not above it.
	AfterSeq uint64
	// Speed paces playback by receive time. Zero replays as fast as
	// possible.
	Speed           float64
	DisableChecksum bool
	MaxPayloadSize  int
	// TolerateTornTail stops quietly at a truncated last record, which is
	// what a crash during append leaves behind.
	TolerateTornTail bool
}

// Clock allows deterministic playback control.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Playback replays journal records in append order.
type Playback struct {
	cfg   PlaybackConfig
	clock Clock
}

// NewPlayback validates the config and creates a playback engine.
func NewPlayback(cfg PlaybackConfig) (*Playback, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Playback{cfg: cfg, clock: realClock{}}, nil
}

// WithClock swaps the clock implementation.
func (p *Playback) WithClock(clock Clock) *Playback {
	if clock != nil {
		p.clock = clock
	}
	return p
}

// Run replays records and calls the handler for each one. It returns the
// sequence of the last record handed to the handler.
func (p *Playback) Run(ctx context.Context, handler func(schema.EventHeader, []byte) error) (uint64, error) {
	if handler == nil {
		return 0, errors.New("playback handler is nil")
	}
	files, err := p.collectFiles()
	if err != nil {
		return 0, err
	}

	var (
		prevTS  int64
		lastSeq = p.cfg.AfterSeq
	)
	for i, path := range files {
		last := i == len(files)-1
		if err := p.playFile(ctx, path, last, handler, &prevTS, &lastSeq); err != nil {
			return lastSeq, err
		}
	}
	return lastSeq, nil
}

func (c PlaybackConfig) withDefaults() PlaybackConfig {
	if c.FilePrefix == "" {
		c.FilePrefix = defaultFilePrefix
	}
	return c
}

// Validate checks if the config is usable.
func (c PlaybackConfig) Validate() error {
	if c.Dir == "" {
		return errors.New("invalid playback config: Dir is empty")
	}
	if c.Speed < 0 {
		return errors.New("invalid playback config: Speed must be >= 0")
	}
	if c.MaxPayloadSize < 0 {
		return errors.New("invalid playback config: MaxPayloadSize must be >= 0")
	}
	return nil
}

func (p *Playback) collectFiles() ([]string, error) {
	entries, err := os.ReadDir(p.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read journal dir").With("dir", p.cfg.Dir)
	}
	prefix := p.cfg.FilePrefix + "-"
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		files = append(files, filepath.Join(p.cfg.Dir, name))
	}
	sort.Strings(files)
	return files, nil
}

func (p *Playback) playFile(ctx context.Context, path string, last bool, handler func(schema.EventHeader, []byte) error, prevTS *int64, lastSeq *uint64) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open journal segment").With("path", path)
	}
	defer file.Close()

	reader := NewReader(file, ReaderOptions{
		DisableChecksum: p.cfg.DisableChecksum,
		MaxPayloadSize:  p.cfg.MaxPayloadSize,
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		header, payload, err := reader.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if err == io.ErrUnexpectedEOF && last && p.cfg.TolerateTornTail {
				return nil
			}
			return errors.Wrap(err, "read journal").With("path", path)
		}
		if header.Seq <= p.cfg.AfterSeq {
			continue
		}
		if header.Seq <= *lastSeq {
			return errors.Errorf("journal sequence went backwards at %d after %d in %s", header.Seq, *lastSeq, path)
		}

		if err := p.pace(ctx, header, prevTS); err != nil {
			return err
		}
		if err := handler(header, payload); err != nil {
			return err
		}
		*lastSeq = header.Seq
	}
}

func (p *Playback) pace(ctx context.Context, header schema.EventHeader, prevTS *int64) error {
	if p.cfg.Speed <= 0 || header.RecvTime <= 0 {
		return nil
	}
	if *prevTS > 0 {
		if delta := header.RecvTime - *prevTS; delta > 0 {
			if err := p.clock.Sleep(ctx, time.Duration(float64(delta)/p.cfg.Speed)); err != nil {
				return err
			}
		}
	}
	*prevTS = header.RecvTime
	return nil
}
