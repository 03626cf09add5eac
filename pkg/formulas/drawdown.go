package formulas

// DrawdownMetrics represents drawdown analysis results for a value series
type DrawdownMetrics struct {
	MaxDrawdown     float64 `json:"max_drawdown"`     // Deepest peak-to-trough decline, negative fraction (-0.25 = 25% loss)
	MaxDuration     int     `json:"max_duration"`     // Longest run of consecutive points below the prior peak
	CurrentDrawdown float64 `json:"current_drawdown"` // Decline from peak at the final point, negative fraction
	PeakValue       float64 `json:"peak_value"`       // Highest value seen
}

// MaxDrawdown calculates the maximum peak-to-trough decline of a value
// series in a single forward pass tracking the running peak.
//
// The result is expressed as a negative fraction (-0.25 = a 25% decline);
// a monotonically rising series yields 0. Returns nil for series shorter
// than two points.
func MaxDrawdown(values []float64) *float64 {
	m := Drawdown(values)
	if m == nil {
		return nil
	}
	return &m.MaxDrawdown
}

// Drawdown computes full drawdown metrics for a value series.
// Returns nil for series shorter than two points.
func Drawdown(values []float64) *DrawdownMetrics {
	if len(values) < 2 {
		return nil
	}

	peak := values[0]
	maxDD := 0.0
	maxDuration := 0
	duration := 0

	for _, v := range values {
		if v >= peak {
			peak = v
			duration = 0
			continue
		}

		duration++
		if duration > maxDuration {
			maxDuration = duration
		}

		if peak > 0 {
			dd := (v - peak) / peak
			if dd < maxDD {
				maxDD = dd
			}
		}
	}

	current := 0.0
	if peak > 0 {
		current = (values[len(values)-1] - peak) / peak
	}

	return &DrawdownMetrics{
		MaxDrawdown:     maxDD,
		MaxDuration:     maxDuration,
		CurrentDrawdown: current,
		PeakValue:       peak,
	}
}
