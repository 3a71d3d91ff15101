package aggregator

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// divPrecision is the number of fractional digits kept by divisions in the
// statistics below.
const divPrecision = 32

var (
	half = decimal.New(5, -1)
	two  = decimal.NewFromInt(2)
)

// Median returns the middle of values, or the mean of the two middle values
// for an even count. The input is not modified.
func Median(values []decimal.Decimal) (decimal.Decimal, error) {
	if len(values) == 0 {
		return decimal.Zero, ErrEmptySet
	}
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LessThan(sorted[j])
	})

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2], nil
	}
	return sorted[n/2-1].Add(sorted[n/2]).Mul(half), nil
}

// Mean returns the arithmetic mean of values.
func Mean(values []decimal.Decimal) (decimal.Decimal, error) {
	if len(values) == 0 {
		return decimal.Zero, ErrEmptySet
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.DivRound(decimal.NewFromInt(int64(len(values))), divPrecision), nil
}

// Variance returns the population variance of values.
func Variance(values []decimal.Decimal) (decimal.Decimal, error) {
	mean, err := Mean(values)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, v := range values {
		d := v.Sub(mean)
		sum = sum.Add(d.Mul(d))
	}
	return sum.DivRound(decimal.NewFromInt(int64(len(values))), divPrecision), nil
}

// StdDev returns the population standard deviation of values.
func StdDev(values []decimal.Decimal) (decimal.Decimal, error) {
	v, err := Variance(values)
	if err != nil {
		return decimal.Zero, err
	}
	return Sqrt(v)
}

// Sqrt computes a square root by Newton iteration in decimal arithmetic.
// The float64 root only seeds the iteration.
func Sqrt(d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeSqrt
	}
	if d.IsZero() {
		return decimal.Zero, nil
	}

	x := d
	if f, _ := d.Float64(); f > 0 && !math.IsInf(f, 0) {
		if seed := math.Sqrt(f); seed > 0 && !math.IsInf(seed, 0) {
			x = decimal.NewFromFloat(seed)
		}
	}

	epsilon := decimal.New(1, -divPrecision)
	for i := 0; i < 200; i++ {
		next := x.Add(d.DivRound(x, divPrecision)).DivRound(two, divPrecision)
		if next.Sub(x).Abs().LessThanOrEqual(epsilon) {
			return next, nil
		}
		x = next
	}
	return x, nil
}
