package recorder

import (
	"time"

	"github.com/yanun0323/errors"
)

const (
	defaultSegmentMaxBytes int64 = 256 << 20
	defaultQueueSize             = 1024
	defaultBufferSize            = 64 * 1024
	defaultFilePrefix            = "journal"
)

// Config controls journal writer behavior.
type Config struct {
	Dir                string
	SegmentMaxBytes    int64
	SegmentMaxDuration time.Duration
	QueueSize          int
	BufferSize         int
	FilePrefix         string
	FlushInterval      time.Duration
	SyncInterval       time.Duration
	// SyncEveryRecord flushes and fsyncs after each record. A command is
	// only acknowledged once it is durable.
	SyncEveryRecord bool
}

// DefaultConfig returns a baseline configuration for the journal writer.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:             dir,
		SegmentMaxBytes: defaultSegmentMaxBytes,
		QueueSize:       defaultQueueSize,
		BufferSize:      defaultBufferSize,
		FilePrefix:      defaultFilePrefix,
		FlushInterval:   50 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	if c.SegmentMaxBytes == 0 {
		c.SegmentMaxBytes = defaultSegmentMaxBytes
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.BufferSize == 0 {
		c.BufferSize = defaultBufferSize
	}
	if c.FilePrefix == "" {
		c.FilePrefix = defaultFilePrefix
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.Dir == "" {
		return errors.New("invalid recorder config: Dir is empty")
	}
	if c.SegmentMaxBytes <= 0 {
		return errors.New("invalid recorder config: SegmentMaxBytes must be > 0")
	}
	if c.QueueSize <= 0 {
		return errors.New("invalid recorder config: QueueSize must be > 0")
	}
	if c.BufferSize <= 0 {
		return errors.New("invalid recorder config: BufferSize must be > 0")
	}
	if c.FlushInterval < 0 || c.SyncInterval < 0 {
		return errors.New("invalid recorder config: intervals must be >= 0")
	}
	return nil
}
