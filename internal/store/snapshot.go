package store

import (
	"github.com/yanun0323/errors"

	"clob/internal/state"
)

var _ state.Store = (*Store)(nil)

// SaveSnapshot stores snap under its sequence and drops all but the newest
// KeepSnapshots entries.
func (s *Store) SaveSnapshot(snap state.Snapshot) error {
	data, err := state.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := s.db.Set(keyFor(snapshotPrefix, snap.LastSeq), data, s.write); err != nil {
		return errors.Wrapf(err, "save snapshot, seq: %d", snap.LastSeq)
	}
	return s.prune()
}

// LatestSnapshot returns the snapshot with the highest sequence.
func (s *Store) LatestSnapshot() (state.Snapshot, bool, error) {
	_, data, ok, err := s.last(snapshotPrefix)
	if err != nil || !ok {
		return state.Snapshot{}, false, err
	}
	snap, err := state.DecodeSnapshot(data)
	if err != nil {
		return state.Snapshot{}, false, err
	}
	return snap, true, nil
}

// Snapshot returns the snapshot taken at seq.
func (s *Store) Snapshot(seq uint64) (state.Snapshot, bool, error) {
	data, ok, err := s.get(keyFor(snapshotPrefix, seq))
	if err != nil || !ok {
		return state.Snapshot{}, false, err
	}
	snap, err := state.DecodeSnapshot(data)
	if err != nil {
		return state.Snapshot{}, false, err
	}
	return snap, true, nil
}

// SnapshotSeqs lists the sequences of the stored snapshots in ascending order.
func (s *Store) SnapshotSeqs() ([]uint64, error) {
	var seqs []uint64
	err := s.scan(snapshotPrefix, 0, func(seq uint64, _ []byte) error {
		seqs = append(seqs, seq)
		return nil
	})
	return seqs, err
}

func (s *Store) prune() error {
	seqs, err := s.SnapshotSeqs()
	if err != nil {
		return err
	}
	if len(seqs) <= s.keep {
		return nil
	}
	cut := seqs[len(seqs)-s.keep]
	if err := s.db.DeleteRange(keyFor(snapshotPrefix, 0), keyFor(snapshotPrefix, cut), s.write); err != nil {
		return errors.Wrapf(err, "prune snapshots below seq %d", cut)
	}
	return nil
}
