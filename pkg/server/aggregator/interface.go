package aggregator

// Aggregator reduces accumulated samples into consensus values.
type Aggregator interface {
	// Aggregate returns one value for every pair that survives filtering and
	// an exclusion record for every pair that does not.
	Aggregate(acc *Accumulator) (Result, error)
}
