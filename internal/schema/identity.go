package schema

import (
	"encoding/hex"
	"strings"

	"github.com/yanun0323/errors"

	"clob/pkg/exception"
)

// IDSize is the width of identity and asset identifiers.
const IDSize = 32

// IdentityKind tells a plain address from a contract identity.
type IdentityKind uint8

const (
	IdentityUnknown IdentityKind = iota
	IdentityAddress
	IdentityContract
)

func (k IdentityKind) String() string {
	switch k {
	case IdentityAddress:
		return "address"
	case IdentityContract:
		return "contract"
	default:
		return "unknown"
	}
}

// Identity is an opaque participant id. Two identities with the same bytes
// but different kinds are different participants.
type Identity struct {
	Kind IdentityKind
	ID   [IDSize]byte
}

// Address returns an address identity.
func Address(id [IDSize]byte) Identity {
	return Identity{Kind: IdentityAddress, ID: id}
}

// Contract returns a contract identity.
func Contract(id [IDSize]byte) Identity {
	return Identity{Kind: IdentityContract, ID: id}
}

// IsZero reports whether the identity is unset.
func (i Identity) IsZero() bool {
	return i == Identity{}
}

func (i Identity) String() string {
	return i.Kind.String() + ":0x" + hex.EncodeToString(i.ID[:])
}

// MarshalText implements encoding.TextMarshaler.
func (i Identity) MarshalText() ([]byte, error) {
	if i.IsZero() {
		return []byte{}, nil
	}
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Identity) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*i = Identity{}
		return nil
	}
	id, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*i = id
	return nil
}

// ParseIdentity parses "address:0x<hex>", "contract:0x<hex>" or a bare hex
// string, which is taken as an address.
func ParseIdentity(s string) (Identity, error) {
	kind := IdentityAddress
	if prefix, rest, ok := strings.Cut(s, ":"); ok {
		switch strings.ToLower(prefix) {
		case "address":
			kind = IdentityAddress
		case "contract":
			kind = IdentityContract
		default:
			return Identity{}, errors.Wrap(exception.ErrMalformedIdentity, "unknown identity kind").With("input", s)
		}
		s = rest
	}
	id, err := parseID(s)
	if err != nil {
		return Identity{}, errors.Wrap(err, "parse identity").With("input", s)
	}
	return Identity{Kind: kind, ID: id}, nil
}

// AssetID identifies an asset.
type AssetID [IDSize]byte

// IsZero reports whether the asset id is unset.
func (a AssetID) IsZero() bool {
	return a == AssetID{}
}

func (a AssetID) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a AssetID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AssetID) UnmarshalText(text []byte) error {
	id, err := ParseAssetID(string(text))
	if err != nil {
		return err
	}
	*a = id
	return nil
}

// ParseAssetID parses a 32-byte hex asset id with an optional 0x prefix.
func ParseAssetID(s string) (AssetID, error) {
	id, err := parseID(s)
	if err != nil {
		return AssetID{}, errors.Wrap(err, "parse asset id").With("input", s)
	}
	return AssetID(id), nil
}

func parseID(s string) ([IDSize]byte, error) {
	var out [IDSize]byte
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != IDSize*2 {
		return out, exception.ErrMalformedIdentity
	}
	if _, err := hex.Decode(out[:], []byte(s)); err != nil {
		return out, exception.ErrMalformedIdentity
	}
	return out, nil
}
