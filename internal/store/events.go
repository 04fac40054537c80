package store

import (
	"context"

	"github.com/yanun0323/errors"

	"clob/internal/bus"
)

var _ bus.Sink = (*Store)(nil)

func (s *Store) Name() string { return "pebble" }

// Consume indexes the event envelope by sequence.
func (s *Store) Consume(_ context.Context, e bus.Event) error {
	data, err := bus.Marshal(e)
	if err != nil {
		return err
	}
	if err := s.db.Set(keyFor(eventPrefix, e.Header.Seq), data, s.write); err != nil {
		return errors.Wrapf(err, "index event, seq: %d", e.Header.Seq)
	}
	return nil
}

// Event returns the indexed envelope of seq.
func (s *Store) Event(seq uint64) ([]byte, bool, error) {
	return s.get(keyFor(eventPrefix, seq))
}

// LastEventSeq returns the highest indexed sequence, or zero.
func (s *Store) LastEventSeq() (uint64, error) {
	seq, _, _, err := s.last(eventPrefix)
	return seq, err
}

// ScanEvents calls fn for every indexed envelope with seq >= from. The value
// is only valid during the call.
func (s *Store) ScanEvents(from uint64, fn func(seq uint64, envelope []byte) error) error {
	return s.scan(eventPrefix, from, fn)
}
