package aggregator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decs(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []decimal.Decimal
		want   string
	}{
		{"one", decs("5"), "5"},
		{"two", decs("1", "3"), "2"},
		{"three", decs("3", "1", "2"), "2"},
		{"four", decs("4", "1", "3", "2"), "2.5"},
		{"five", decs("5", "1", "4", "2", "3"), "3"},
		{"six", decs("6", "1", "5", "2", "4", "3"), "3.5"},
		{"fine fractions", decs("0.000000000000000001", "0.000000000000000002"), "0.0000000000000000015"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Median(tt.values)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestMedian_DoesNotReorderInput(t *testing.T) {
	values := decs("3", "1", "2")
	_, err := Median(values)
	require.NoError(t, err)
	assert.Equal(t, "3", values[0].String())
	assert.Equal(t, "1", values[1].String())
}

func TestStatistics_EmptySet(t *testing.T) {
	_, err := Median(nil)
	assert.ErrorIs(t, err, ErrEmptySet)
	_, err = Mean(nil)
	assert.ErrorIs(t, err, ErrEmptySet)
	_, err = Variance(nil)
	assert.ErrorIs(t, err, ErrEmptySet)
	_, err = StdDev(nil)
	assert.ErrorIs(t, err, ErrEmptySet)
}

func TestMeanVariance(t *testing.T) {
	values := decs("2", "4", "4", "4", "5", "5", "7", "9")

	mean, err := Mean(values)
	require.NoError(t, err)
	assert.True(t, mean.Equal(decimal.NewFromInt(5)))

	variance, err := Variance(values)
	require.NoError(t, err)
	assert.True(t, variance.Equal(decimal.NewFromInt(4)))

	stddev, err := StdDev(values)
	require.NoError(t, err)
	assert.True(t, stddev.Equal(decimal.NewFromInt(2)), "got %s", stddev)
}

func TestSqrt(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		round int32
	}{
		{"0", "0", 0},
		{"4", "2", 0},
		{"2", "1.41421356237309504880", 20},
		{"0.0001", "0.01", 20},
		{"199933355.55555555555555555556", "14139.779190", 6},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Sqrt(decimal.RequireFromString(tt.in))
			require.NoError(t, err)
			assert.Equal(t, decimal.RequireFromString(tt.want).StringFixed(tt.round), got.StringFixed(tt.round))
		})
	}
}

func TestSqrt_Negative(t *testing.T) {
	_, err := Sqrt(decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrNegativeSqrt)
}
