package state

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"clob/internal/market"
)

// Snapshot is a market state together with the journal position it
// reflects.
type Snapshot struct {
	Timestamp     int64           `json:"timestamp"`
	LastSeq       uint64          `json:"lastSeq"`
	LastEventTime uint64          `json:"lastEventTime"`
	Market        market.Snapshot `json:"market"`
}

// Capture snapshots m at journal position lastSeq.
func Capture(m *market.Market, lastSeq, lastEventTime uint64) Snapshot {
	return Snapshot{
		Timestamp:     time.Now().UTC().UnixNano(),
		LastSeq:       lastSeq,
		LastEventTime: lastEventTime,
		Market:        m.Snapshot(),
	}
}

// Store persists snapshots.
type Store interface {
	SaveSnapshot(snap Snapshot) error
	// LatestSnapshot reports false when nothing was saved yet.
	LatestSnapshot() (Snapshot, bool, error)
}

// FileStore keeps the latest snapshot in one JSON file.
type FileStore struct {
	Path string
}

func (s FileStore) SaveSnapshot(snap Snapshot) error {
	return WriteSnapshot(s.Path, snap)
}

func (s FileStore) LatestSnapshot() (Snapshot, bool, error) {
	snap, err := ReadSnapshot(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, errors.Wrap(err, "read snapshot").With("path", s.Path)
	}
	return snap, true, nil
}

// WriteSnapshot writes a snapshot to disk as JSON. The file is replaced
// atomically so a crash never leaves a half written snapshot.
func WriteSnapshot(path string, snapshot Snapshot) error {
	data, err := sonic.ConfigStd.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create snapshot dir").With("dir", dir)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write snapshot").With("path", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "replace snapshot").With("path", path)
	}
	return nil
}

// ReadSnapshot loads a snapshot from disk.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	return DecodeSnapshot(data)
}

// EncodeSnapshot serializes a snapshot.
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	data, err := sonic.ConfigFastest.Marshal(snap)
	if err != nil {
		return nil, errors.Wrap(err, "marshal snapshot")
	}
	return data, nil
}

// DecodeSnapshot parses a serialized snapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := sonic.ConfigFastest.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, errors.Wrap(err, "unmarshal snapshot")
	}
	return snap, nil
}
