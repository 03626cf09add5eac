package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/market-screener/internal/domain"
	"github.com/aristath/market-screener/internal/modules/scoring"
)

func ranked(ids ...domain.StockID) []scoring.Result {
	out := make([]scoring.Result, len(ids))
	for i, id := range ids {
		out[i] = scoring.Result{Stock: id, Composite: float64(100 - i)}
	}
	return out
}

func TestEqualWeighter(t *testing.T) {
	w := EqualWeighter{}

	t.Run("splits evenly across top-N", func(t *testing.T) {
		c := domain.StockID{Market: domain.MarketUS, Ticker: "CCC"}
		targets := w.TargetWeights(ranked(stockA, stockB, c), 2)
		require.Len(t, targets, 2)
		assert.InDelta(t, 0.5, targets[stockA], 1e-9)
		assert.InDelta(t, 0.5, targets[stockB], 1e-9)
	})

	t.Run("fewer candidates than N", func(t *testing.T) {
		targets := w.TargetWeights(ranked(stockA), 20)
		require.Len(t, targets, 1)
		assert.InDelta(t, 1.0, targets[stockA], 1e-9)
	})

	t.Run("empty ranking", func(t *testing.T) {
		assert.Empty(t, w.TargetWeights(nil, 20))
	})
}

func TestScoreWeighter(t *testing.T) {
	w := ScoreWeighter{}

	t.Run("weights follow composite", func(t *testing.T) {
		in := []scoring.Result{
			{Stock: stockA, Composite: 75},
			{Stock: stockB, Composite: 25},
		}
		targets := w.TargetWeights(in, 20)
		require.Len(t, targets, 2)
		assert.InDelta(t, 0.75, targets[stockA], 1e-9)
		assert.InDelta(t, 0.25, targets[stockB], 1e-9)
	})

	t.Run("respects top-N cutoff", func(t *testing.T) {
		c := domain.StockID{Market: domain.MarketUS, Ticker: "CCC"}
		targets := w.TargetWeights(ranked(stockA, stockB, c), 2)
		require.Len(t, targets, 2)
		assert.NotContains(t, targets, c)
	})

	t.Run("zero scores degrade to equal weight", func(t *testing.T) {
		in := []scoring.Result{
			{Stock: stockA, Composite: 0},
			{Stock: stockB, Composite: 0},
		}
		targets := w.TargetWeights(in, 20)
		require.Len(t, targets, 2)
		assert.InDelta(t, 0.5, targets[stockA], 1e-9)
		assert.InDelta(t, 0.5, targets[stockB], 1e-9)
	})

	t.Run("empty ranking", func(t *testing.T) {
		assert.Empty(t, w.TargetWeights(nil, 20))
	})
}

func TestMarketCapWeighter(t *testing.T) {
	w := MarketCapWeighter{}
	mcap := func(v float64) *float64 { return &v }

	t.Run("weights follow market cap", func(t *testing.T) {
		in := []scoring.Result{
			{Stock: stockA, Composite: 50, MarketCap: mcap(300e9)},
			{Stock: stockB, Composite: 90, MarketCap: mcap(100e9)},
		}
		targets := w.TargetWeights(in, 20)
		require.Len(t, targets, 2)
		assert.InDelta(t, 0.75, targets[stockA], 1e-9)
		assert.InDelta(t, 0.25, targets[stockB], 1e-9)
	})

	t.Run("unknown cap left in cash", func(t *testing.T) {
		in := []scoring.Result{
			{Stock: stockA, MarketCap: mcap(100e9)},
			{Stock: stockB}, // no market cap
		}
		targets := w.TargetWeights(in, 20)
		require.Len(t, targets, 1)
		assert.InDelta(t, 1.0, targets[stockA], 1e-9)
	})

	t.Run("no caps at all", func(t *testing.T) {
		assert.Empty(t, w.TargetWeights(ranked(stockA, stockB), 20))
	})
}

func TestWeighterFor(t *testing.T) {
	cases := []struct {
		name string
		want string
		ok   bool
	}{
		{"", "", true},
		{"equal_weight", "equal_weight", true},
		{"score_weight", "score_weight", true},
		{"market_cap_weight", "market_cap_weight", true},
		{"inverse_vol", "", false},
	}
	for _, tc := range cases {
		w, ok := weighterFor(tc.name)
		assert.Equal(t, tc.ok, ok, tc.name)
		if tc.want != "" {
			require.NotNil(t, w)
			assert.Equal(t, tc.want, w.Name())
		}
	}
}

func TestCommissionFor(t *testing.T) {
	cfg := Config{
		CommissionRate:      0.001,
		MinCommission:       5,
		PerMarketCommission: map[domain.Market]float64{domain.MarketHK: 0.002},
	}

	assert.InDelta(t, 100.0, commissionFor(cfg, domain.MarketUS, 100_000), 1e-9)
	assert.InDelta(t, 200.0, commissionFor(cfg, domain.MarketHK, 100_000), 1e-9, "per-market override wins")
	assert.InDelta(t, 5.0, commissionFor(cfg, domain.MarketUS, 100), 1e-9, "minimum applies to small trades")
}

func TestPlanRebalanceSellsBeforeBuys(t *testing.T) {
	cfg := Config{CommissionRate: 0.001, TopN: 1}
	p := NewPortfolio(1_000)
	require.NoError(t, p.Apply(Trade{Stock: stockA, Side: SideBuy, Quantity: 9, Price: 100}))
	// Cash is now 100: buying B requires the proceeds of selling A first.

	trades := planRebalance(p,
		map[domain.StockID]float64{stockB: 1.0},
		map[domain.StockID]float64{stockA: 100, stockB: 100},
		cfg, d(2024, 1, 1))

	require.Len(t, trades, 2)
	assert.Equal(t, SideSell, trades[0].Side)
	assert.Equal(t, stockA, trades[0].Stock)
	assert.Equal(t, SideBuy, trades[1].Side)
	assert.Equal(t, stockB, trades[1].Stock)
	assert.NotContains(t, p.Positions, stockA)
}

func TestPlanRebalanceSkipsUnaffordable(t *testing.T) {
	cfg := Config{CommissionRate: 0.001}
	p := NewPortfolio(50) // cannot afford a single 100 share

	trades := planRebalance(p,
		map[domain.StockID]float64{stockA: 1.0},
		map[domain.StockID]float64{stockA: 100},
		cfg, d(2024, 1, 1))

	assert.Empty(t, trades)
	assert.InDelta(t, 50.0, p.Cash, 1e-9, "residual stays in cash")
}

func TestPlanRebalanceSkipsMissingPrices(t *testing.T) {
	cfg := Config{CommissionRate: 0.001}
	p := NewPortfolio(10_000)
	require.NoError(t, p.Apply(Trade{Stock: stockA, Side: SideBuy, Quantity: 10, Price: 100}))

	// No price for held A and none for target B: nothing can trade.
	trades := planRebalance(p,
		map[domain.StockID]float64{stockB: 1.0},
		map[domain.StockID]float64{},
		cfg, d(2024, 1, 1))

	assert.Empty(t, trades)
	assert.Equal(t, int64(10), p.Positions[stockA].Shares, "held position untouched without a price")
}

func TestPlanRebalanceToleratesSmallDrift(t *testing.T) {
	cfg := Config{CommissionRate: 0.001}
	p := NewPortfolio(0)
	p.Positions[stockA] = &Position{Shares: 5000, AvgCost: 100, LastPrice: 100}
	p.Cash = 1 // weight is 500000/500001, a hair off 1.0

	trades := planRebalance(p,
		map[domain.StockID]float64{stockA: 1.0},
		map[domain.StockID]float64{stockA: 100},
		cfg, d(2024, 1, 1))

	assert.Empty(t, trades, "sub-tolerance drift must not trade")
}

func TestPlanRebalanceBuysTinyFirstEntry(t *testing.T) {
	cfg := Config{CommissionRate: 0.001}
	p := NewPortfolio(1_000_000)

	// A broad portfolio puts each name below the drift tolerance. The
	// first entry must still be bought.
	trades := planRebalance(p,
		map[domain.StockID]float64{stockA: 0.004},
		map[domain.StockID]float64{stockA: 1},
		cfg, d(2024, 1, 1))

	require.Len(t, trades, 1)
	assert.Equal(t, SideBuy, trades[0].Side)
	assert.Equal(t, int64(4000), trades[0].Quantity)
}
