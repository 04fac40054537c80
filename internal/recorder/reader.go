package recorder

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/yanun0323/errors"

	"clob/internal/schema"
)

var ErrChecksumMismatch = errors.New("journal checksum mismatch")

// DefaultMaxPayloadSize bounds a record payload when no limit is set. The
// writer refuses larger payloads, so a bigger length in a header is corrupt.
const DefaultMaxPayloadSize = 16 << 20

// ReaderOptions controls record decoding.
type ReaderOptions struct {
	DisableChecksum bool
	// MaxPayloadSize caps the payload length read from a header. Zero
	// means DefaultMaxPayloadSize.
	MaxPayloadSize int
}

// Reader decodes journal records sequentially.
type Reader struct {
	r         *bufio.Reader
	opts      ReaderOptions
	headerBuf []byte
	payload   []byte
}

// NewReader wraps an io.Reader with journal decoding.
func NewReader(r io.Reader, opts ReaderOptions) *Reader {
	if opts.MaxPayloadSize <= 0 {
		opts.MaxPayloadSize = DefaultMaxPayloadSize
	}
	return &Reader{
		r:         bufio.NewReader(r),
		opts:      opts,
		headerBuf: make([]byte, recordHeaderSize),
	}
}

// Next returns the next record header and payload. The payload is only
// valid until the next call to Next. A record cut short by a crash reads
// as io.ErrUnexpectedEOF.
func (r *Reader) Next() (schema.EventHeader, []byte, error) {
	var header schema.EventHeader

	n, err := io.ReadFull(r.r, r.headerBuf)
	if err != nil {
		if err == io.EOF && n == 0 {
			return header, nil, io.EOF
		}
		return header, nil, io.ErrUnexpectedEOF
	}

	header, payloadLen, err := decodeRecordHeader(r.headerBuf)
	if err != nil {
		return header, nil, err
	}
	if uint64(payloadLen) > uint64(r.opts.MaxPayloadSize) {
		return header, nil, ErrPayloadTooLarge
	}

	if cap(r.payload) < int(payloadLen) {
		r.payload = make([]byte, payloadLen)
	}
	r.payload = r.payload[:payloadLen]
	if _, err := io.ReadFull(r.r, r.payload); err != nil {
		return header, nil, io.ErrUnexpectedEOF
	}

	var checksumBuf [recordChecksumSize]byte
	if _, err := io.ReadFull(r.r, checksumBuf[:]); err != nil {
		return header, nil, io.ErrUnexpectedEOF
	}

	if !r.opts.DisableChecksum {
		if checksum(r.headerBuf, r.payload) != binary.LittleEndian.Uint32(checksumBuf[:]) {
			return header, nil, ErrChecksumMismatch
		}
	}

	return header, r.payload, nil
}
