package scoring

import (
	"context"
	"math"
	"time"

	"github.com/aristath/market-screener/internal/domain"
)

// Sub-score names used in Result.SubScores and Result.Unavailable
const (
	SubScoreFinancial = "financial"
	SubScoreGrowth    = "growth"
	SubScoreValuation = "valuation"
	SubScoreRisk      = "risk"
)

// Weights is the caller-supplied weighting of the four sub-scores.
// The four weights must sum to 100.
type Weights struct {
	Financial float64 `json:"financial" yaml:"financial"`
	Growth    float64 `json:"growth" yaml:"growth"`
	Valuation float64 `json:"valuation" yaml:"valuation"`
	Risk      float64 `json:"risk" yaml:"risk"`
}

// DefaultWeights mirrors the classic Schloss emphasis: valuation first,
// financial safety second.
func DefaultWeights() Weights {
	return Weights{Financial: 30, Growth: 10, Valuation: 40, Risk: 20}
}

const weightSumTolerance = 1e-6

// Validate checks that the weights are non-negative and sum to 100
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		SubScoreFinancial: w.Financial,
		SubScoreGrowth:    w.Growth,
		SubScoreValuation: w.Valuation,
		SubScoreRisk:      w.Risk,
	} {
		if v < 0 {
			return domain.NewConfigError("score_weights", "%s weight must be >= 0, got %v", name, v)
		}
	}
	sum := w.Financial + w.Growth + w.Valuation + w.Risk
	if math.Abs(sum-100) > weightSumTolerance {
		return domain.NewConfigError("score_weights", "weights must sum to 100, got %v", sum)
	}
	return nil
}

// Result is the composite score for one candidate. Immutable once
// computed.
type Result struct {
	Stock       domain.StockID     `json:"stock"`
	Composite   float64            `json:"composite"` // 0-100
	SubScores   map[string]float64 `json:"sub_scores"`
	Unavailable []string           `json:"unavailable,omitempty"` // sub-scores with insufficient data
	Tags        []string           `json:"tags,omitempty"`        // textual rationale
	MarketCap   *float64           `json:"market_cap,omitempty"`  // carried from the snapshot for cap weighting
}

// PriceProvider is the read-only price-history dependency of the
// pipeline. Satisfied by universe.Store.
type PriceProvider interface {
	Prices(ctx context.Context, id domain.StockID, from, to time.Time) ([]domain.PricePoint, error)
}
