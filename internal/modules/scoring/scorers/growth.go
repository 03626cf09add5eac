package scorers

import (
	"fmt"
	"math"

	"github.com/aristath/market-screener/internal/domain"
)

// MinGrowthPeriods is the minimum number of trailing fundamental periods
// required before a growth score is meaningful.
const MinGrowthPeriods = 3

// GrowthScorer calculates the growth sub-score from trailing multi-period
// fundamentals. When history is too short the score is reported as
// unavailable, never zero-filled, which would bias composites downward.
type GrowthScorer struct{}

// NewGrowthScorer creates a new growth scorer
func NewGrowthScorer() *GrowthScorer {
	return &GrowthScorer{}
}

// Growth of -10% maps to 0 and +40% maps to 100, linear in between.
var growthBands = []BandPoint{
	{Value: -0.10, Score: 0},
	{Value: 0.40, Score: 100},
}

// Score calculates the growth sub-score. The second return value is false
// when trailing history is insufficient.
func (gs *GrowthScorer) Score(snap domain.StockSnapshot) (float64, bool, []string) {
	if len(snap.History) < MinGrowthPeriods {
		return 0, false, nil
	}

	revGrowth, revOK := periodGrowth(snap.History, func(p domain.FundamentalPeriod) *float64 { return p.Revenue })
	profitGrowth, profitOK := periodGrowth(snap.History, func(p domain.FundamentalPeriod) *float64 { return p.NetProfit })

	if !revOK && !profitOK {
		return 0, false, nil
	}

	var tags []string

	revScore := 0.0
	if revOK {
		revScore = BandScore(revGrowth, growthBands)
	}
	profitScore := 0.0
	if profitOK {
		profitScore = BandScore(profitGrowth, growthBands)
	}

	var score float64
	switch {
	case revOK && profitOK:
		score = revScore*0.6 + profitScore*0.4
	case revOK:
		score = revScore
		tags = append(tags, "profit history incomplete, revenue only")
	default:
		score = profitScore
		tags = append(tags, "revenue history incomplete, profit only")
	}

	if revOK && revGrowth > 0.15 {
		tags = append(tags, fmt.Sprintf("revenue compounding %.0f%%/yr", revGrowth*100))
	}

	return Clamp100(score), true, tags
}

// periodGrowth computes the annualized growth rate of a field across the
// trailing periods (oldest first). Requires positive endpoints.
func periodGrowth(history []domain.FundamentalPeriod, field func(domain.FundamentalPeriod) *float64) (float64, bool) {
	first := field(history[0])
	last := field(history[len(history)-1])
	if first == nil || last == nil || *first <= 0 || *last <= 0 {
		return 0, false
	}

	years := float64(len(history) - 1)
	if years <= 0 {
		return 0, false
	}

	return math.Pow(*last / *first, 1/years) - 1, true
}
