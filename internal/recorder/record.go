package recorder

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/yanun0323/errors"

	"clob/internal/schema"
)

// On disk a record is a 56 byte header, the payload and a CRC32C of both.
//
//	[0:4]   magic
//	[4:6]   record version
//	[6:8]   header size
//	[8:10]  command type
//	[10:12] schema version
//	[12:14] flags
//	[14:16] reserved
//	[16:20] payload length
//	[20:28] sequence
//	[28:36] market clock, TAI64 seconds
//	[36:44] receive time, unix nanos
//	[44:52] trace id
//	[52:56] reserved
const (
	recordVersion      uint16 = 1
	recordHeaderSize          = 56
	recordChecksumSize        = 4
)

var (
	recordMagic = [4]byte{'C', 'J', 'N', '1'}
	crcTable    = crc32.MakeTable(crc32.Castagnoli)
)

var (
	ErrInvalidMagic            = errors.New("journal invalid magic")
	ErrUnsupportedRecordVer    = errors.New("journal unsupported record version")
	ErrInvalidRecordHeaderSize = errors.New("journal invalid header size")
)

func encodeHeader(dst []byte, header schema.EventHeader, payloadLen int) {
	_ = dst[recordHeaderSize-1]
	copy(dst[0:4], recordMagic[:])
	binary.LittleEndian.PutUint16(dst[4:6], recordVersion)
	binary.LittleEndian.PutUint16(dst[6:8], uint16(recordHeaderSize))
	binary.LittleEndian.PutUint16(dst[8:10], uint16(header.Type))
	binary.LittleEndian.PutUint16(dst[10:12], header.Version)
	binary.LittleEndian.PutUint16(dst[12:14], header.Flags)
	binary.LittleEndian.PutUint16(dst[14:16], 0)
	binary.LittleEndian.PutUint32(dst[16:20], uint32(payloadLen))
	binary.LittleEndian.PutUint64(dst[20:28], header.Seq)
	binary.LittleEndian.PutUint64(dst[28:36], header.Timestamp)
	binary.LittleEndian.PutUint64(dst[36:44], uint64(header.RecvTime))
	binary.LittleEndian.PutUint64(dst[44:52], header.TraceID)
	binary.LittleEndian.PutUint32(dst[52:56], 0)
}

func checksum(header []byte, payload []byte) uint32 {
	crc := crc32.Update(0, crcTable, header)
	return crc32.Update(crc, crcTable, payload)
}

func decodeRecordHeader(src []byte) (schema.EventHeader, uint32, error) {
	if len(src) < recordHeaderSize {
		return schema.EventHeader{}, 0, ErrInvalidRecordHeaderSize
	}
	if !bytes.Equal(src[0:4], recordMagic[:]) {
		return schema.EventHeader{}, 0, ErrInvalidMagic
	}
	if ver := binary.LittleEndian.Uint16(src[4:6]); ver != recordVersion {
		return schema.EventHeader{}, 0, ErrUnsupportedRecordVer
	}
	if headerSize := binary.LittleEndian.Uint16(src[6:8]); headerSize != recordHeaderSize {
		return schema.EventHeader{}, 0, ErrInvalidRecordHeaderSize
	}
	h := schema.EventHeader{
		Type:      schema.EventType(binary.LittleEndian.Uint16(src[8:10])),
		Version:   binary.LittleEndian.Uint16(src[10:12]),
		Flags:     binary.LittleEndian.Uint16(src[12:14]),
		Seq:       binary.LittleEndian.Uint64(src[20:28]),
		Timestamp: binary.LittleEndian.Uint64(src[28:36]),
		RecvTime:  int64(binary.LittleEndian.Uint64(src[36:44])),
		TraceID:   binary.LittleEndian.Uint64(src[44:52]),
	}
	return h, binary.LittleEndian.Uint32(src[16:20]), nil
}
