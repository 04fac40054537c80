package recorder

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clob/internal/schema"
)

func writeRecords(t *testing.T, cfg Config, seqs ...uint64) {
	t.Helper()
	w, err := NewWriter(cfg)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	for _, seq := range seqs {
		h := schema.NewHeader(schema.EventDeposit, seq, 4611686020163100000+seq, int64(seq)*int64(time.Millisecond))
		require.NoError(t, w.Append(context.Background(), h, []byte(`{"seq":`+string(rune('0'+seq%10))+`}`)))
	}
	require.NoError(t, w.Close())
}

func TestHeaderRoundTrip(t *testing.T) {
	h := schema.EventHeader{
		Type:      schema.EventTrade,
		Version:   schema.SchemaVersion,
		Flags:     3,
		Seq:       42,
		Timestamp: 4611686020163100000,
		RecvTime:  -1,
		TraceID:   7,
	}
	buf := make([]byte, recordHeaderSize)
	encodeHeader(buf, h, 99)

	got, n, err := decodeRecordHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
	assert.Equal(t, uint32(99), n)

	buf[0] = 'X'
	_, _, err = decodeRecordHeader(buf)
	require.ErrorIs(t, err, ErrInvalidMagic)
}

func TestWriteAndPlayback(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.SyncEveryRecord = true
	writeRecords(t, cfg, 1, 2, 3)

	// a restarted writer appends to a new segment
	writeRecords(t, cfg, 4, 5)

	p, err := NewPlayback(PlaybackConfig{Dir: dir})
	require.NoError(t, err)

	var seqs []uint64
	last, err := p.Run(context.Background(), func(h schema.EventHeader, payload []byte) error {
		seqs = append(seqs, h.Seq)
		assert.Equal(t, schema.EventDeposit, h.Type)
		assert.Equal(t, schema.SchemaVersion, h.Version)
		assert.NotEmpty(t, payload)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, seqs)
	assert.Equal(t, uint64(5), last)

	p, err = NewPlayback(PlaybackConfig{Dir: dir, AfterSeq: 3})
	require.NoError(t, err)
	seqs = seqs[:0]
	_, err = p.Run(context.Background(), func(h schema.EventHeader, _ []byte) error {
		seqs = append(seqs, h.Seq)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{4, 5}, seqs)
}

func TestPlaybackEmptyDir(t *testing.T) {
	p, err := NewPlayback(PlaybackConfig{Dir: filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)
	last, err := p.Run(context.Background(), func(schema.EventHeader, []byte) error { return nil })
	require.NoError(t, err)
	assert.Zero(t, last)
}

func TestChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	writeRecords(t, DefaultConfig(dir), 1)

	files, err := filepath.Glob(filepath.Join(dir, "*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)
	raw[recordHeaderSize] ^= 0xff

	_, _, err = NewReader(bytes.NewReader(raw), ReaderOptions{}).Next()
	require.ErrorIs(t, err, ErrChecksumMismatch)

	_, _, err = NewReader(bytes.NewReader(raw), ReaderOptions{DisableChecksum: true}).Next()
	require.NoError(t, err)
}

func TestReaderRejectsOversizedLength(t *testing.T) {
	raw := make([]byte, recordHeaderSize+8)
	encodeHeader(raw, schema.NewHeader(schema.EventDeposit, 1, 0, 0), int(^uint32(0)))

	_, _, err := NewReader(bytes.NewReader(raw), ReaderOptions{}).Next()
	require.ErrorIs(t, err, ErrPayloadTooLarge)

	_, _, err = NewReader(bytes.NewReader(raw), ReaderOptions{MaxPayloadSize: 4}).Next()
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestWriterRejectsOversizedPayload(t *testing.T) {
	w, err := NewWriter(DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Close()

	err = w.Append(context.Background(), schema.NewHeader(schema.EventDeposit, 1, 0, 0), make([]byte, DefaultMaxPayloadSize+1))
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestTornTail(t *testing.T) {
	dir := t.TempDir()
	writeRecords(t, DefaultConfig(dir), 1, 2)

	files, err := filepath.Glob(filepath.Join(dir, "*.log"))
	require.NoError(t, err)
	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(files[0], raw[:len(raw)-3], 0o644))

	p, err := NewPlayback(PlaybackConfig{Dir: dir})
	require.NoError(t, err)
	_, err = p.Run(context.Background(), func(schema.EventHeader, []byte) error { return nil })
	require.Error(t, err)

	p, err = NewPlayback(PlaybackConfig{Dir: dir, TolerateTornTail: true})
	require.NoError(t, err)
	last, err := p.Run(context.Background(), func(schema.EventHeader, []byte) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, uint64(1), last)
}

func TestWriterLifecycle(t *testing.T) {
	w, err := NewWriter(DefaultConfig(t.TempDir()))
	require.NoError(t, err)

	require.ErrorIs(t, w.TryAppend(schema.EventHeader{Seq: 1}, nil), ErrNotStarted)
	require.NoError(t, w.Start(context.Background()))
	require.ErrorIs(t, w.Start(context.Background()), ErrAlreadyStarted)
	require.NoError(t, w.TryAppend(schema.EventHeader{Seq: 1}, nil))
	require.NoError(t, w.Close())
	require.ErrorIs(t, w.TryAppend(schema.EventHeader{Seq: 2}, nil), ErrClosed)

	_, err = NewWriter(Config{})
	require.Error(t, err)
}

func TestLastSegmentID(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"journal-20250101-000000-000002.log",
		"journal-20250101-000001-000007.log",
		"other-20250101-000001-000009.log",
		"journal-20250101-000001-000011.tmp",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	last, err := lastSegmentID(dir, "journal")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), last)
}
