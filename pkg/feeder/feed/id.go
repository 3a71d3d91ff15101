package feed

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

// IDSize is the width of a feed identifier in bytes.
const IDSize = 32

// ID is a feed name left-packed into a fixed-width, zero-padded identifier.
type ID [IDSize]byte

// NewID derives the identifier of a pair from its canonical name.
func NewID(pair sources.Pair) (ID, error) {
	return IDFromName(pair.String())
}

// IDFromName packs name into an identifier.
func IDFromName(name string) (ID, error) {
	var id ID
	if name == "" {
		return id, ErrEmptyName
	}
	if len(name) > IDSize {
		return id, fmt.Errorf("%w: %q is %d bytes", ErrIdentifierOverflow, name, len(name))
	}
	copy(id[:], name)
	return id, nil
}

// ParseHex decodes a 0x-prefixed 32-byte identifier.
func ParseHex(s string) (ID, error) {
	var id ID
	b, err := hexutil.Decode(s)
	if err != nil {
		return id, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	if len(b) != IDSize {
		return id, fmt.Errorf("%w: got %d bytes", ErrInvalidHex, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Name returns the packed name without trailing padding.
func (id ID) Name() string {
	return string(bytes.TrimRight(id[:], "\x00"))
}

// Hex returns the 0x-prefixed hex encoding of the full identifier.
func (id ID) Hex() string {
	return hexutil.Encode(id[:])
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return id.Name()
}

// IsZero reports whether the identifier is all padding.
func (id ID) IsZero() bool {
	return id == ID{}
}

// MarshalText encodes the identifier as hex so it can key JSON objects.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.Hex()), nil
}

// UnmarshalText decodes a hex identifier.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
