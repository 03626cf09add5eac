package scoring

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/market-screener/internal/domain"
	"github.com/aristath/market-screener/internal/modules/scoring/scorers"
	"github.com/aristath/market-screener/internal/modules/screening"
)

// riskLookback is the trailing window of price history fed to the risk
// scorer.
const riskLookback = 365 * 24 * time.Hour

// Pipeline combines the four sub-scorers into a composite 0-100 score
// and ranks candidates. Stateless across invocations; all state lives in
// the arguments of Score.
type Pipeline struct {
	weights   Weights
	prices    PriceProvider
	financial *scorers.FinancialScorer
	growth    *scorers.GrowthScorer
	valuation *scorers.ValuationScorer
	risk      *scorers.RiskScorer
	log       zerolog.Logger
}

// NewPipeline creates a scoring pipeline. Fails with a ConfigError when
// the weights do not sum to 100.
func NewPipeline(weights Weights, prices PriceProvider, log zerolog.Logger) (*Pipeline, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		weights:   weights,
		prices:    prices,
		financial: scorers.NewFinancialScorer(),
		growth:    scorers.NewGrowthScorer(),
		valuation: scorers.NewValuationScorer(),
		risk:      scorers.NewRiskScorer(),
		log:       log.With().Str("component", "scoring").Logger(),
	}, nil
}

// Score computes composite scores for the passing candidates.
//
// Valuation is peer-relative, so the whole batch's snapshots are gathered
// first and every candidate is scored against that context. Sub-scores
// with insufficient data are reported unavailable and their weight is
// redistributed proportionally across the available ones.
//
// Output is sorted by composite descending; ties break by stock
// identifier ascending for determinism. Data-quality issues (missing
// price history) are returned as warnings, never as errors.
func (p *Pipeline) Score(
	ctx context.Context,
	candidates []screening.Result,
	snapshots map[domain.StockID]domain.StockSnapshot,
	asOf time.Time,
) ([]Result, []domain.DataWarning, error) {
	var passing []domain.StockSnapshot
	for _, c := range candidates {
		if !c.Pass {
			continue
		}
		snap, ok := snapshots[c.Stock]
		if !ok {
			return nil, nil, fmt.Errorf("no snapshot for screened candidate %s", c.Stock)
		}
		passing = append(passing, snap)
	}

	peers := scorers.NewPeerContext(passing)

	var warnings []domain.DataWarning
	results := make([]Result, 0, len(passing))
	for _, snap := range passing {
		res, warns := p.scoreOne(ctx, snap, peers, asOf)
		results = append(results, res)
		warnings = append(warnings, warns...)
	}

	p.log.Debug().
		Int("candidates", len(passing)).
		Int("warnings", len(warnings)).
		Time("as_of", asOf).
		Msg("Scored candidate batch")

	sort.Slice(results, func(i, j int) bool {
		if results[i].Composite != results[j].Composite {
			return results[i].Composite > results[j].Composite
		}
		return results[i].Stock.String() < results[j].Stock.String()
	})

	return results, warnings, nil
}

func (p *Pipeline) scoreOne(ctx context.Context, snap domain.StockSnapshot, peers *scorers.PeerContext, asOf time.Time) (Result, []domain.DataWarning) {
	res := Result{
		Stock:     snap.ID,
		SubScores: make(map[string]float64, 4),
		MarketCap: snap.MarketCap,
	}
	var warnings []domain.DataWarning

	type weighted struct {
		name   string
		score  float64
		weight float64
	}
	var available []weighted

	finScore, finTags := p.financial.Score(snap)
	available = append(available, weighted{SubScoreFinancial, finScore, p.weights.Financial})
	res.Tags = append(res.Tags, finTags...)

	if growthScore, ok, growthTags := p.growth.Score(snap); ok {
		available = append(available, weighted{SubScoreGrowth, growthScore, p.weights.Growth})
		res.Tags = append(res.Tags, growthTags...)
	} else {
		res.Unavailable = append(res.Unavailable, SubScoreGrowth)
	}

	valScore, valTags := p.valuation.Score(snap, peers)
	available = append(available, weighted{SubScoreValuation, valScore, p.weights.Valuation})
	res.Tags = append(res.Tags, valTags...)

	closes, err := p.trailingCloses(ctx, snap.ID, asOf)
	if err != nil {
		warnings = append(warnings, domain.DataWarning{
			Date: asOf, Stock: snap.ID, Field: "price_history",
			Detail: err.Error(),
		})
	}
	if riskScore, ok, riskTags := p.risk.Score(closes); ok {
		available = append(available, weighted{SubScoreRisk, riskScore, p.weights.Risk})
		res.Tags = append(res.Tags, riskTags...)
	} else {
		res.Unavailable = append(res.Unavailable, SubScoreRisk)
		warnings = append(warnings, domain.DataWarning{
			Date: asOf, Stock: snap.ID, Field: "risk",
			Detail: fmt.Sprintf("insufficient price history: %d closes", len(closes)),
		})
	}

	// Redistribute unavailable weight proportionally across what remains.
	var totalWeight float64
	for _, w := range available {
		totalWeight += w.weight
	}
	if totalWeight > 0 {
		for _, w := range available {
			res.SubScores[w.name] = w.score
			res.Composite += w.score * (w.weight / totalWeight)
		}
	}

	return res, warnings
}

// trailingCloses fetches the trailing-year closes up to and including
// asOf, dropping any point a misbehaving provider dates in the future.
func (p *Pipeline) trailingCloses(ctx context.Context, id domain.StockID, asOf time.Time) ([]float64, error) {
	points, err := p.prices.Prices(ctx, id, asOf.Add(-riskLookback), asOf)
	if err != nil {
		return nil, fmt.Errorf("price history fetch failed: %w", err)
	}

	closes := make([]float64, 0, len(points))
	for _, pt := range points {
		if pt.Date.After(asOf) {
			continue
		}
		closes = append(closes, pt.Close)
	}
	return closes, nil
}
