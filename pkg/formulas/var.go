package formulas

import "sort"

// ValueAtRisk calculates historical value-at-risk from periodic returns
// at the given confidence level: at 0.95 it is the 5th-percentile return.
// A loss threshold comes back as a negative number.
//
// Returns nil when there are fewer than two returns or the confidence
// level is outside (0, 1).
func ValueAtRisk(returns []float64, confidence float64) *float64 {
	if len(returns) < 2 || confidence <= 0 || confidence >= 1 {
		return nil
	}

	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * (1 - confidence))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	v := sorted[idx]
	return &v
}

// ConditionalValueAtRisk calculates expected shortfall: the mean of the
// returns at or below the value-at-risk threshold. Nil whenever
// ValueAtRisk is.
func ConditionalValueAtRisk(returns []float64, confidence float64) *float64 {
	threshold := ValueAtRisk(returns, confidence)
	if threshold == nil {
		return nil
	}

	// The threshold observation itself is in the tail, so n >= 1.
	var sum float64
	n := 0
	for _, r := range returns {
		if r <= *threshold {
			sum += r
			n++
		}
	}
	mean := sum / float64(n)
	return &mean
}
