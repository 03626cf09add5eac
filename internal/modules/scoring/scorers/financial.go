package scorers

import (
	"github.com/aristath/market-screener/internal/domain"
)

// FinancialScorer calculates the company-health sub-score from
// profitability and balance-sheet strength.
//
// Components:
//   - ROE (50%): higher is better
//   - Debt ratio (30%): lower is better
//   - Current ratio (20%): higher is better, capped
type FinancialScorer struct{}

// NewFinancialScorer creates a new financial health scorer
func NewFinancialScorer() *FinancialScorer {
	return &FinancialScorer{}
}

var (
	roeBands = []BandPoint{
		{Value: 0.00, Score: 0},
		{Value: 0.05, Score: 40},
		{Value: 0.10, Score: 60},
		{Value: 0.15, Score: 80},
		{Value: 0.25, Score: 100},
	}
	debtRatioBands = []BandPoint{
		{Value: 0.20, Score: 100},
		{Value: 0.40, Score: 70},
		{Value: 0.60, Score: 40},
		{Value: 0.80, Score: 10},
		{Value: 1.00, Score: 0},
	}
	currentRatioBands = []BandPoint{
		{Value: 0.5, Score: 0},
		{Value: 1.0, Score: 40},
		{Value: 1.5, Score: 70},
		{Value: 2.0, Score: 90},
		{Value: 3.0, Score: 100},
	}
)

// Score calculates the financial sub-score for a snapshot.
// A missing input contributes a neutral 50 and a tag, so one absent field
// cannot sink an otherwise healthy company to zero.
func (fs *FinancialScorer) Score(snap domain.StockSnapshot) (float64, []string) {
	var tags []string

	roeScore := 50.0
	if snap.ROE != nil {
		roeScore = BandScore(*snap.ROE, roeBands)
	} else {
		tags = append(tags, "roe unavailable, neutral")
	}

	debtScore := 50.0
	if snap.DebtRatio != nil {
		debtScore = BandScore(*snap.DebtRatio, debtRatioBands)
	} else {
		tags = append(tags, "debt ratio unavailable, neutral")
	}

	crScore := 50.0
	if snap.CurrentRatio != nil {
		crScore = BandScore(*snap.CurrentRatio, currentRatioBands)
	} else {
		tags = append(tags, "current ratio unavailable, neutral")
	}

	score := Clamp100(roeScore*0.50 + debtScore*0.30 + crScore*0.20)

	if score >= 80 {
		tags = append(tags, "strong financial health")
	}
	return score, tags
}
