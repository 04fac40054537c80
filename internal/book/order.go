package book

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/yanun0323/errors"
	"github.com/zeebo/blake3"

	"clob/internal/fixed"
	"clob/internal/schema"
	"clob/pkg/exception"
)

// OrderID is a content derived order identifier.
type OrderID [32]byte

// NewOrderID hashes the order terms together with a nonce that the book
// never hands out twice, so ids are never reused.
func NewOrderID(owner schema.Identity, asset schema.AssetID, size int64, price uint64, nonce uint64) OrderID {
	var buf [1 + schema.IDSize + schema.IDSize + 8 + 8 + 8]byte
	buf[0] = byte(owner.Kind)
	n := 1
	n += copy(buf[n:], owner.ID[:])
	n += copy(buf[n:], asset[:])
	binary.BigEndian.PutUint64(buf[n:], uint64(size))
	n += 8
	binary.BigEndian.PutUint64(buf[n:], price)
	n += 8
	binary.BigEndian.PutUint64(buf[n:], nonce)
	return OrderID(blake3.Sum256(buf[:]))
}

// IsZero reports whether the id is unset.
func (id OrderID) IsZero() bool {
	return id == OrderID{}
}

func (id OrderID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id OrderID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *OrderID) UnmarshalText(text []byte) error {
	parsed, err := ParseOrderID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseOrderID parses a hex order id with an optional 0x prefix.
func ParseOrderID(s string) (OrderID, error) {
	var id OrderID
	raw := strings.TrimPrefix(s, "0x")
	if len(raw) != len(id)*2 {
		return id, errors.Wrap(exception.ErrInvalidArgument, "order id length").With("input", s)
	}
	if _, err := hex.Decode(id[:], []byte(raw)); err != nil {
		return id, errors.Wrap(exception.ErrInvalidArgument, "order id hex").With("input", s)
	}
	return id, nil
}

// Status is the lifecycle state of an order.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusOpen
	StatusPartiallyFilled
	StatusFilled
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusPartiallyFilled:
		return "PartiallyFilled"
	case StatusFilled:
		return "Filled"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the order can no longer change.
func (s Status) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled
}

// Order is a resting order. Size is the signed remaining size: positive
// buys, negative sells. Locked is what the order still holds of its
// owner's funds, quote for buys and base for sells.
type Order struct {
	ID         OrderID         `json:"id"`
	Owner      schema.Identity `json:"owner"`
	Asset      schema.AssetID  `json:"asset"`
	Size       int64           `json:"size"`
	Price      uint64          `json:"price"`
	Status     Status          `json:"status"`
	Locked     uint64          `json:"locked"`
	ReserveBps uint64          `json:"reserveBps,omitempty"`
	Nonce      uint64          `json:"nonce"`
	Created    uint64          `json:"created"`
}

// IsBuy reports whether the order buys the base asset.
func (o Order) IsBuy() bool {
	return o.Size > 0
}

// Remaining returns the unsigned remaining size.
func (o Order) Remaining() uint64 {
	return fixed.Abs(o.Size)
}

// shrink reduces the remaining size by filled toward zero.
func (o *Order) shrink(filled uint64) error {
	rem := o.Remaining()
	if filled == 0 || filled > rem {
		return errors.Wrapf(exception.ErrInvalidArgument, "fill %d exceeds remaining %d", filled, rem)
	}
	left := int64(rem - filled)
	if o.Size < 0 {
		left = -left
	}
	o.Size = left
	if left == 0 {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartiallyFilled
	}
	return nil
}
