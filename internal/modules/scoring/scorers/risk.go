package scorers

import (
	"fmt"

	"github.com/aristath/market-screener/pkg/formulas"
)

// MinRiskObservations is the minimum number of trailing closes needed for
// a meaningful volatility and drawdown estimate.
const MinRiskObservations = 30

// RSI period and the threshold beyond which a stock is considered
// overbought enough to penalize.
const (
	rsiPeriod              = 14
	overboughtRSIThreshold = 80.0
	overboughtPenalty      = 10.0
)

// RiskScorer calculates the risk sub-score from trailing price history:
// annualized volatility (60%) and maximum drawdown (40%), both mapped so
// higher risk yields a lower score. A deeply overbought RSI shaves a
// further penalty off the score.
type RiskScorer struct{}

// NewRiskScorer creates a new risk scorer
func NewRiskScorer() *RiskScorer {
	return &RiskScorer{}
}

var (
	// 10% annualized volatility is placid, 60% is violent.
	volatilityBands = []BandPoint{
		{Value: 0.10, Score: 100},
		{Value: 0.25, Score: 70},
		{Value: 0.40, Score: 40},
		{Value: 0.60, Score: 0},
	}
	// Drawdown magnitude: 5% is a blip, 50% is a catastrophe.
	drawdownBands = []BandPoint{
		{Value: 0.05, Score: 100},
		{Value: 0.20, Score: 70},
		{Value: 0.35, Score: 40},
		{Value: 0.50, Score: 0},
	}
)

// Score calculates the risk sub-score from trailing daily closes (oldest
// first). The second return value is false when history is too short.
func (rs *RiskScorer) Score(closes []float64) (float64, bool, []string) {
	if len(closes) < MinRiskObservations {
		return 0, false, nil
	}

	var tags []string

	returns := formulas.Returns(closes)
	vol := formulas.AnnualizedVolatility(returns)
	volScore := BandScore(vol, volatilityBands)

	ddScore := 50.0
	if dd := formulas.MaxDrawdown(closes); dd != nil {
		ddScore = BandScore(-*dd, drawdownBands)
		if *dd < -0.35 {
			tags = append(tags, fmt.Sprintf("max drawdown %.0f%%", *dd*100))
		}
	}

	score := volScore*0.6 + ddScore*0.4

	if rsi := formulas.RSI(closes, rsiPeriod); rsi != nil && *rsi > overboughtRSIThreshold {
		score -= overboughtPenalty
		tags = append(tags, fmt.Sprintf("overbought, RSI %.0f", *rsi))
	}

	if vol > 0.40 {
		tags = append(tags, fmt.Sprintf("volatility %.0f%% annualized", vol*100))
	}

	return Clamp100(score), true, tags
}
