// Package store keeps market snapshots and the published event index in a
// pebble database.
package store

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/yanun0323/errors"
)

const (
	snapshotPrefix = "snap/"
	eventPrefix    = "evt/"
	metaPrefix     = "meta/"

	defaultKeepSnapshots = 8
)

// Options controls how the database is opened.
type Options struct {
	// InMemory keeps everything in a memory filesystem; Dir is ignored.
	InMemory bool
	// NoSync skips fsync on writes.
	NoSync bool
	// KeepSnapshots is the number of snapshots retained after each save.
	KeepSnapshots int
}

func (o Options) withDefaults() Options {
	if o.KeepSnapshots <= 0 {
		o.KeepSnapshots = defaultKeepSnapshots
	}
	return o
}

// Store is a pebble-backed snapshot store and event index.
type Store struct {
	db    *pebble.DB
	write *pebble.WriteOptions
	keep  int
}

// Open opens or creates the database at dir.
func Open(dir string, opts Options) (*Store, error) {
	opts = opts.withDefaults()
	po := &pebble.Options{}
	if opts.InMemory {
		po.FS = vfs.NewMem()
		dir = ""
	} else if dir == "" {
		return nil, errors.New("store dir is empty")
	}

	db, err := pebble.Open(dir, po)
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble at %q", dir)
	}

	write := pebble.Sync
	if opts.NoSync {
		write = pebble.NoSync
	}
	return &Store{db: db, write: write, keep: opts.KeepSnapshots}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PutMeta stores a small metadata value.
func (s *Store) PutMeta(key string, value []byte) error {
	return s.db.Set([]byte(metaPrefix+key), value, s.write)
}

// Meta loads a metadata value.
func (s *Store) Meta(key string) ([]byte, bool, error) {
	return s.get([]byte(metaPrefix + key))
}

func (s *Store) get(key []byte) ([]byte, bool, error) {
	val, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "get %q", key)
	}
	defer closer.Close()

	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

// last returns the value of the highest key under prefix.
func (s *Store) last(prefix string) (uint64, []byte, bool, error) {
	iter, err := s.db.NewIter(prefixBounds(prefix))
	if err != nil {
		return 0, nil, false, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, nil, false, iter.Error()
	}
	seq, err := parseKey(prefix, iter.Key())
	if err != nil {
		return 0, nil, false, err
	}
	val := make([]byte, len(iter.Value()))
	copy(val, iter.Value())
	return seq, val, true, nil
}

func (s *Store) scan(prefix string, from uint64, fn func(seq uint64, val []byte) error) error {
	opts := prefixBounds(prefix)
	opts.LowerBound = keyFor(prefix, from)
	iter, err := s.db.NewIter(opts)
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(prefix, iter.Key())
		if err != nil {
			return err
		}
		if err := fn(seq, iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func prefixBounds(prefix string) *pebble.IterOptions {
	upper := []byte(prefix)
	upper[len(upper)-1]++
	return &pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: upper,
	}
}

// keyFor appends the big-endian sequence so keys sort numerically.
func keyFor(prefix string, seq uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], seq)
	return key
}

func parseKey(prefix string, key []byte) (uint64, error) {
	if len(key) != len(prefix)+8 {
		return 0, errors.Errorf("invalid %s key length %d", prefix, len(key))
	}
	return binary.BigEndian.Uint64(key[len(prefix):]), nil
}
