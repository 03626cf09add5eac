package scorers

// BandPoint anchors one (value, score) pair of a piecewise-linear scoring
// band. Points must be ordered by ascending Value; Score may rise or fall.
type BandPoint struct {
	Value float64
	Score float64
}

// BandScore maps a value onto 0-100 through the configured band points.
// Values between two anchors interpolate linearly; values beyond the
// first or last anchor clamp to that anchor's score. Bands are never
// extrapolated.
func BandScore(value float64, bands []BandPoint) float64 {
	if len(bands) == 0 {
		return 0
	}

	if value <= bands[0].Value {
		return bands[0].Score
	}
	if value >= bands[len(bands)-1].Value {
		return bands[len(bands)-1].Score
	}

	for i := 1; i < len(bands); i++ {
		lo, hi := bands[i-1], bands[i]
		if value <= hi.Value {
			span := hi.Value - lo.Value
			if span == 0 {
				return hi.Score
			}
			frac := (value - lo.Value) / span
			return lo.Score + frac*(hi.Score-lo.Score)
		}
	}

	return bands[len(bands)-1].Score
}

// Clamp100 bounds a score to the 0-100 scale
func Clamp100(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
