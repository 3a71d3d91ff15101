package feed

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional digits in an encoded value.
const Decimals = 18

var (
	maxInt256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	minInt256 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
)

// Encode converts a price to a signed 256-bit fixed-point integer with 18
// fractional digits. Digits beyond the 18th are rounded half away from zero.
func Encode(price decimal.Decimal) (*big.Int, error) {
	v := price.Round(Decimals).Shift(Decimals).BigInt()
	if v.Cmp(maxInt256) > 0 || v.Cmp(minInt256) < 0 {
		return nil, fmt.Errorf("%w: %s", ErrValueOverflow, price)
	}
	return v, nil
}

// Decode converts an encoded value back to a decimal.
func Decode(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -Decimals)
}

// ratioPrecision bounds the fractional digits of DiffRatio.
const ratioPrecision = 18

// DiffRatio returns |min(old, new) / max(old, new)|, a closeness measure in
// [0, 1] where 1 means unchanged. When the larger value is zero the ratio is
// 1 if both are equal and 0 otherwise.
func DiffRatio(previous, next *big.Int) decimal.Decimal {
	a := Decode(previous)
	b := Decode(next)
	lo, hi := decimal.Min(a, b), decimal.Max(a, b)
	if hi.IsZero() {
		if a.Equal(b) {
			return decimal.NewFromInt(1)
		}
		return decimal.Zero
	}
	return lo.DivRound(hi, ratioPrecision).Abs()
}

// State is the last value published for every known feed.
type State map[ID]*big.Int

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := make(State, len(s))
	for id, v := range s {
		if v != nil {
			v = new(big.Int).Set(v)
		}
		out[id] = v
	}
	return out
}

// IDs returns the identifiers in s sorted by name.
func (s State) IDs() []ID {
	ids := make([]ID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	SortIDs(ids)
	return ids
}

// SortIDs sorts identifiers by name.
func SortIDs(ids []ID) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].Name() < ids[j].Name()
	})
}
