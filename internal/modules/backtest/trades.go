package backtest

import (
	"sort"
	"time"

	"github.com/aristath/market-screener/internal/domain"
	"github.com/aristath/market-screener/internal/modules/scoring"
)

// Weighter converts a ranked candidate list into target portfolio
// weights. Weights are fractions of total value and must sum to <= 1;
// the remainder stays in cash.
type Weighter interface {
	Name() string
	TargetWeights(ranked []scoring.Result, topN int) map[domain.StockID]float64
}

// EqualWeighter spreads capital evenly across the top-N candidates
type EqualWeighter struct{}

func (EqualWeighter) Name() string { return "equal_weight" }

// TargetWeights assigns 1/n to each of the top-N ranked candidates.
// Fewer than N candidates still get 1/len each.
func (EqualWeighter) TargetWeights(ranked []scoring.Result, topN int) map[domain.StockID]float64 {
	n := len(ranked)
	if n > topN {
		n = topN
	}
	if n == 0 {
		return map[domain.StockID]float64{}
	}

	w := 1.0 / float64(n)
	targets := make(map[domain.StockID]float64, n)
	for _, r := range ranked[:n] {
		targets[r.Stock] = w
	}
	return targets
}

// ScoreWeighter sizes positions proportionally to their composite score,
// so conviction in the ranking carries into position size. A batch whose
// scores sum to zero degrades to equal weighting.
type ScoreWeighter struct{}

func (ScoreWeighter) Name() string { return "score_weight" }

func (ScoreWeighter) TargetWeights(ranked []scoring.Result, topN int) map[domain.StockID]float64 {
	n := len(ranked)
	if n > topN {
		n = topN
	}
	if n == 0 {
		return map[domain.StockID]float64{}
	}

	var total float64
	for _, r := range ranked[:n] {
		total += r.Composite
	}
	if total <= 0 {
		return EqualWeighter{}.TargetWeights(ranked, topN)
	}

	targets := make(map[domain.StockID]float64, n)
	for _, r := range ranked[:n] {
		targets[r.Stock] = r.Composite / total
	}
	return targets
}

// MarketCapWeighter sizes positions proportionally to market cap.
// Candidates without a known positive market cap are left out and their
// share of capital stays in cash.
type MarketCapWeighter struct{}

func (MarketCapWeighter) Name() string { return "market_cap_weight" }

func (MarketCapWeighter) TargetWeights(ranked []scoring.Result, topN int) map[domain.StockID]float64 {
	n := len(ranked)
	if n > topN {
		n = topN
	}

	var total float64
	for _, r := range ranked[:n] {
		if r.MarketCap != nil && *r.MarketCap > 0 {
			total += *r.MarketCap
		}
	}
	if total <= 0 {
		return map[domain.StockID]float64{}
	}

	targets := make(map[domain.StockID]float64, n)
	for _, r := range ranked[:n] {
		if r.MarketCap != nil && *r.MarketCap > 0 {
			targets[r.Stock] = *r.MarketCap / total
		}
	}
	return targets
}

// weighterFor maps a configured weighting name to its implementation.
// The empty name means "use the engine default".
func weighterFor(name string) (Weighter, bool) {
	switch name {
	case "":
		return nil, true
	case "equal_weight":
		return EqualWeighter{}, true
	case "score_weight":
		return ScoreWeighter{}, true
	case "market_cap_weight":
		return MarketCapWeighter{}, true
	}
	return nil, false
}

// commissionFor calculates the commission on a trade of the given gross
// value. A per-market override takes precedence over the flat rate; the
// configured minimum applies either way.
func commissionFor(cfg Config, market domain.Market, value float64) float64 {
	rate := cfg.CommissionRate
	if override, ok := cfg.PerMarketCommission[market]; ok {
		rate = override
	}
	c := rate * value
	if c < cfg.MinCommission {
		c = cfg.MinCommission
	}
	return c
}

// rebalanceTolerance is the weight drift below which a held position is
// considered at target. Without it, commission drag alone would shave the
// total value enough to trigger a dribble of tiny corrective trades at
// every rebalance.
const rebalanceTolerance = 0.005

// planRebalance mutates the portfolio toward the target weights and
// returns the executed trades. Sells run before buys so cash freed by
// exits is available for entries; quantities are whole shares. Positions
// within rebalanceTolerance of their target weight are left alone.
//
// prices carries the tradable price per id on the rebalance date. Target
// shares are sized against the pre-trade total value. Held ids without a
// price are left untouched rather than traded blind; a candidate whose
// affordable quantity rounds to zero is skipped and the residual stays
// in cash.
func planRebalance(
	p *Portfolio,
	targets map[domain.StockID]float64,
	prices map[domain.StockID]float64,
	cfg Config,
	date time.Time,
) []Trade {
	for id, price := range prices {
		p.MarkPrice(id, price)
	}
	total := p.Value()

	var trades []Trade

	// Sells first.
	for _, id := range p.HeldIDs() {
		price, ok := prices[id]
		if !ok || price <= 0 {
			continue
		}
		held := p.Positions[id].Shares
		targetWeight, inTargets := targets[id]
		if inTargets && total > 0 {
			currentWeight := float64(held) * price / total
			if currentWeight-targetWeight < rebalanceTolerance {
				continue
			}
		}
		targetShares := int64(targetWeight * total / price)
		if targetShares >= held {
			continue
		}

		qty := held - targetShares
		value := float64(qty) * price
		t := Trade{
			Date:       date,
			Stock:      id,
			Side:       SideSell,
			Quantity:   qty,
			Price:      price,
			Commission: commissionFor(cfg, id.Market, value),
		}
		if err := p.Apply(t); err != nil {
			continue
		}
		trades = append(trades, t)
	}

	// Then buys, in deterministic id order.
	ids := make([]domain.StockID, 0, len(targets))
	for id := range targets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		price, ok := prices[id]
		if !ok || price <= 0 {
			continue
		}

		var held int64
		if pos := p.Positions[id]; pos != nil {
			held = pos.Shares
		}
		// Drift tolerance only applies to topping up an existing position;
		// a first entry is always attempted no matter how small its target.
		targetWeight := targets[id]
		if held > 0 && total > 0 {
			currentWeight := float64(held) * price / total
			if targetWeight-currentWeight < rebalanceTolerance {
				continue
			}
		}
		qty := int64(targetWeight*total/price) - held
		if qty <= 0 {
			continue
		}

		// Cap to whole shares affordable after commission.
		if byCash := int64(p.Cash / price); qty > byCash {
			qty = byCash
		}
		for qty > 0 {
			value := float64(qty) * price
			if value+commissionFor(cfg, id.Market, value) <= p.Cash {
				break
			}
			qty--
		}
		if qty == 0 {
			continue
		}

		value := float64(qty) * price
		t := Trade{
			Date:       date,
			Stock:      id,
			Side:       SideBuy,
			Quantity:   qty,
			Price:      price,
			Commission: commissionFor(cfg, id.Market, value),
		}
		if err := p.Apply(t); err != nil {
			continue
		}
		trades = append(trades, t)
	}

	return trades
}
