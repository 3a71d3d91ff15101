// Package feed derives on-chain feed identifiers and fixed-point values from
// consensus prices.
package feed

import "errors"

var (
	// ErrIdentifierOverflow indicates a pair name does not fit the identifier width.
	ErrIdentifierOverflow = errors.New("feed name exceeds identifier width")
	// ErrEmptyName indicates an empty feed name.
	ErrEmptyName = errors.New("empty feed name")
	// ErrInvalidHex indicates a malformed hex identifier.
	ErrInvalidHex = errors.New("invalid hex feed identifier")
	// ErrValueOverflow indicates a value outside the int256 range once scaled.
	ErrValueOverflow = errors.New("value overflows int256")
)
