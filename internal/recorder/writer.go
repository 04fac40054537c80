package recorder

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"

	"clob/internal/schema"
)

var (
	ErrQueueFull       = errors.New("journal queue full")
	ErrClosed          = errors.New("journal writer closed")
	ErrNotStarted      = errors.New("journal writer not started")
	ErrAlreadyStarted  = errors.New("journal writer already started")
	ErrPayloadTooLarge = errors.New("journal payload too large")
)

const maxPayloadLen = uint64(DefaultMaxPayloadSize)

// Writer appends records to journal segments from a buffered queue. A
// single goroutine owns the files, so records land in the order they were
// appended.
type Writer struct {
	cfg Config
	ch  chan recordRequest
	wg  sync.WaitGroup
	err atomic.Value
	mu  sync.RWMutex

	started uint32
	closed  uint32
	lastSeg uint64
}

// NewWriter creates a journal writer and ensures the target directory exists.
func NewWriter(cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create journal dir").With("dir", cfg.Dir)
	}
	last, err := lastSegmentID(cfg.Dir, cfg.FilePrefix)
	if err != nil {
		return nil, err
	}
	return &Writer{
		cfg:     cfg,
		ch:      make(chan recordRequest, cfg.QueueSize),
		lastSeg: last,
	}, nil
}

// Start runs the writer loop in a new goroutine.
func (w *Writer) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&w.started, 0, 1) {
		return ErrAlreadyStarted
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	return nil
}

// Close stops the writer and flushes any buffered data.
func (w *Writer) Close() error {
	w.mu.Lock()
	if atomic.CompareAndSwapUint32(&w.closed, 0, 1) {
		close(w.ch)
	}
	w.mu.Unlock()
	w.wg.Wait()
	return w.Err()
}

// Err returns the first error observed by the writer, if any.
func (w *Writer) Err() error {
	if v := w.err.Load(); v != nil {
		return v.(errBox).err
	}
	return nil
}

// TryAppend enqueues a record without blocking.
func (w *Writer) TryAppend(header schema.EventHeader, payload []byte) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if err := w.check(payload); err != nil {
		return err
	}
	select {
	case w.ch <- newRequest(header, payload, nil):
		return nil
	default:
		return ErrQueueFull
	}
}

// Append enqueues a record, waiting for queue space. With SyncEveryRecord
// it also waits until the record is on disk.
func (w *Writer) Append(ctx context.Context, header schema.EventHeader, payload []byte) error {
	var done chan error
	if w.cfg.SyncEveryRecord {
		done = make(chan error, 1)
	}

	w.mu.RLock()
	if err := w.check(payload); err != nil {
		w.mu.RUnlock()
		return err
	}
	select {
	case w.ch <- newRequest(header, payload, done):
		w.mu.RUnlock()
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}

	if done == nil {
		return nil
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) check(payload []byte) error {
	if atomic.LoadUint32(&w.closed) != 0 {
		return ErrClosed
	}
	if atomic.LoadUint32(&w.started) == 0 {
		return ErrNotStarted
	}
	if err := w.Err(); err != nil {
		return err
	}
	if uint64(len(payload)) > maxPayloadLen {
		return ErrPayloadTooLarge
	}
	return nil
}

func newRequest(header schema.EventHeader, payload []byte, done chan error) recordRequest {
	if header.Version == 0 {
		header.Version = schema.SchemaVersion
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	return recordRequest{header: header, payload: cp, done: done}
}

func (w *Writer) run(ctx context.Context) {
	var (
		seg         *segmentWriter
		segID       = w.lastSeg
		headerBuf   = make([]byte, recordHeaderSize)
		checksumBuf [4]byte
		flushC      <-chan time.Time
		syncC       <-chan time.Time
		flushTicker *time.Ticker
		syncTicker  *time.Ticker
	)

	if w.cfg.FlushInterval > 0 {
		flushTicker = time.NewTicker(w.cfg.FlushInterval)
		flushC = flushTicker.C
	}
	if w.cfg.SyncInterval > 0 {
		syncTicker = time.NewTicker(w.cfg.SyncInterval)
		syncC = syncTicker.C
	}

	defer func() {
		if flushTicker != nil {
			flushTicker.Stop()
		}
		if syncTicker != nil {
			syncTicker.Stop()
		}
		if err := w.closeSegment(seg); err != nil {
			w.setErr(err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.drainNonBlocking(&seg, &segID, headerBuf, &checksumBuf)
			return
		case req, ok := <-w.ch:
			if !ok {
				return
			}
			if !w.handle(&seg, &segID, headerBuf, &checksumBuf, req) {
				return
			}
		case <-flushC:
			if err := w.flushSegment(seg); err != nil {
				w.setErr(err)
				return
			}
		case <-syncC:
			if err := w.syncSegment(seg); err != nil {
				w.setErr(err)
				return
			}
		}
	}
}

func (w *Writer) handle(seg **segmentWriter, segID *uint64, headerBuf []byte, checksumBuf *[4]byte, req recordRequest) bool {
	err := w.writeRecord(seg, segID, headerBuf, checksumBuf, req)
	if err == nil && req.done != nil {
		err = w.syncSegment(*seg)
	}
	if req.done != nil {
		req.done <- err
	}
	if err != nil {
		w.setErr(err)
		return false
	}
	return true
}

func (w *Writer) drainNonBlocking(seg **segmentWriter, segID *uint64, headerBuf []byte, checksumBuf *[4]byte) {
	for {
		select {
		case req, ok := <-w.ch:
			if !ok {
				return
			}
			if !w.handle(seg, segID, headerBuf, checksumBuf, req) {
				return
			}
		default:
			return
		}
	}
}

func (w *Writer) writeRecord(seg **segmentWriter, segID *uint64, headerBuf []byte, checksumBuf *[4]byte, req recordRequest) error {
	now := time.Now().UTC()
	recordSize := int64(recordHeaderSize + len(req.payload) + recordChecksumSize)
	if w.shouldRotate(*seg, now, recordSize) {
		if err := w.closeSegment(*seg); err != nil {
			return err
		}
		opened, err := w.openSegment(segID, now)
		if err != nil {
			return err
		}
		*seg = opened
	}

	encodeHeader(headerBuf, req.header, len(req.payload))
	binary.LittleEndian.PutUint32(checksumBuf[:], checksum(headerBuf, req.payload))

	if _, err := (*seg).buf.Write(headerBuf); err != nil {
		return err
	}
	if len(req.payload) > 0 {
		if _, err := (*seg).buf.Write(req.payload); err != nil {
			return err
		}
	}
	if _, err := (*seg).buf.Write(checksumBuf[:]); err != nil {
		return err
	}

	(*seg).size += recordSize
	return nil
}

func (w *Writer) shouldRotate(seg *segmentWriter, now time.Time, nextSize int64) bool {
	if seg == nil {
		return true
	}
	if w.cfg.SegmentMaxBytes > 0 && seg.size > 0 && seg.size+nextSize > w.cfg.SegmentMaxBytes {
		return true
	}
	return w.cfg.SegmentMaxDuration > 0 && now.Sub(seg.openedAt) >= w.cfg.SegmentMaxDuration
}

func (w *Writer) flushSegment(seg *segmentWriter) error {
	if seg == nil {
		return nil
	}
	return seg.buf.Flush()
}

func (w *Writer) syncSegment(seg *segmentWriter) error {
	if seg == nil {
		return nil
	}
	if err := seg.buf.Flush(); err != nil {
		return err
	}
	return seg.file.Sync()
}

func (w *Writer) closeSegment(seg *segmentWriter) error {
	if seg == nil {
		return nil
	}
	if err := w.syncSegment(seg); err != nil {
		_ = seg.file.Close()
		return err
	}
	return seg.file.Close()
}

// openSegment names segments by wall time and a counter so that a plain
// lexical sort is append order.
func (w *Writer) openSegment(segID *uint64, now time.Time) (*segmentWriter, error) {
	ts := now.Format("20060102-150405")
	for {
		*segID = *segID + 1
		name := fmt.Sprintf("%s-%s-%06d.log", w.cfg.FilePrefix, ts, *segID)
		path := filepath.Join(w.cfg.Dir, name)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return nil, errors.Wrap(err, "open journal segment").With("path", path)
		}
		return &segmentWriter{
			file:     file,
			buf:      bufio.NewWriterSize(file, w.cfg.BufferSize),
			openedAt: now,
		}, nil
	}
}

// lastSegmentID finds the highest segment counter already in dir, so a
// reopened journal keeps sorting after the segments it continues.
func lastSegmentID(dir, prefix string) (uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, errors.Wrap(err, "read journal dir").With("dir", dir)
	}
	var last uint64
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		stem := strings.TrimSuffix(name, ".log")
		i := strings.LastIndexByte(stem, '-')
		if i < 0 {
			continue
		}
		id, err := strconv.ParseUint(stem[i+1:], 10, 64)
		if err != nil {
			continue
		}
		last = max(last, id)
	}
	return last, nil
}

func (w *Writer) setErr(err error) {
	if err == nil || w.err.Load() != nil {
		return
	}
	w.err.CompareAndSwap(nil, errBox{err: err})
}

// errBox keeps atomic.Value stores of differently typed errors consistent.
type errBox struct {
	err error
}

type recordRequest struct {
	header  schema.EventHeader
	payload []byte
	done    chan error
}

type segmentWriter struct {
	file     *os.File
	buf      *bufio.Writer
	size     int64
	openedAt time.Time
}
