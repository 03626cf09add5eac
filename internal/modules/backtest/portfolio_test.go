package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/market-screener/internal/domain"
)

var (
	stockA = domain.StockID{Market: domain.MarketUS, Ticker: "AAA"}
	stockB = domain.StockID{Market: domain.MarketHK, Ticker: "0001"}
)

func TestPortfolioApplyBuy(t *testing.T) {
	p := NewPortfolio(10_000)

	err := p.Apply(Trade{Stock: stockA, Side: SideBuy, Quantity: 50, Price: 100, Commission: 5})
	require.NoError(t, err)

	assert.InDelta(t, 10_000-5_000-5, p.Cash, 1e-9)
	pos := p.Positions[stockA]
	require.NotNil(t, pos)
	assert.Equal(t, int64(50), pos.Shares)
	assert.InDelta(t, 100.1, pos.AvgCost, 1e-9) // commission in the cost basis
	assert.InDelta(t, 100.0, pos.LastPrice, 1e-9)
}

func TestPortfolioApplyRejectsOverdraw(t *testing.T) {
	p := NewPortfolio(1_000)

	err := p.Apply(Trade{Stock: stockA, Side: SideBuy, Quantity: 50, Price: 100, Commission: 5})
	require.Error(t, err)

	// Portfolio untouched on rejection.
	assert.InDelta(t, 1_000, p.Cash, 1e-9)
	assert.Empty(t, p.Positions)
}

func TestPortfolioApplyRejectsOversell(t *testing.T) {
	p := NewPortfolio(10_000)
	require.NoError(t, p.Apply(Trade{Stock: stockA, Side: SideBuy, Quantity: 10, Price: 100}))

	err := p.Apply(Trade{Stock: stockA, Side: SideSell, Quantity: 11, Price: 100})
	require.Error(t, err)
	assert.Equal(t, int64(10), p.Positions[stockA].Shares)

	err = p.Apply(Trade{Stock: stockB, Side: SideSell, Quantity: 1, Price: 100})
	assert.Error(t, err)
}

func TestPortfolioSellClosesPosition(t *testing.T) {
	p := NewPortfolio(10_000)
	require.NoError(t, p.Apply(Trade{Stock: stockA, Side: SideBuy, Quantity: 10, Price: 100, Commission: 1}))
	require.NoError(t, p.Apply(Trade{Stock: stockA, Side: SideSell, Quantity: 10, Price: 110, Commission: 1}))

	assert.NotContains(t, p.Positions, stockA)
	assert.InDelta(t, 10_000-1_000-1+1_100-1, p.Cash, 1e-9)
}

func TestPortfolioValueMarksLastPrice(t *testing.T) {
	p := NewPortfolio(10_000)
	require.NoError(t, p.Apply(Trade{Stock: stockA, Side: SideBuy, Quantity: 10, Price: 100}))

	assert.InDelta(t, 10_000, p.Value(), 1e-9) // cash + 10x100

	p.MarkPrice(stockA, 120)
	assert.InDelta(t, 10_200, p.Value(), 1e-9)

	// Marking an unheld id is a no-op.
	p.MarkPrice(stockB, 999)
	assert.InDelta(t, 10_200, p.Value(), 1e-9)
}

func TestPortfolioHeldIDsDeterministic(t *testing.T) {
	p := NewPortfolio(100_000)
	require.NoError(t, p.Apply(Trade{Stock: stockB, Side: SideBuy, Quantity: 1, Price: 10}))
	require.NoError(t, p.Apply(Trade{Stock: stockA, Side: SideBuy, Quantity: 1, Price: 10}))

	ids := p.HeldIDs()
	assert.Equal(t, []domain.StockID{stockB, stockA}, ids) // "0001.HK" < "AAA.US"
}

func TestPortfolioAverageCostAcrossBuys(t *testing.T) {
	p := NewPortfolio(100_000)
	require.NoError(t, p.Apply(Trade{Stock: stockA, Side: SideBuy, Quantity: 10, Price: 100}))
	require.NoError(t, p.Apply(Trade{Stock: stockA, Side: SideBuy, Quantity: 10, Price: 200}))

	pos := p.Positions[stockA]
	assert.Equal(t, int64(20), pos.Shares)
	assert.InDelta(t, 150.0, pos.AvgCost, 1e-9)
	assert.InDelta(t, 200.0, pos.LastPrice, 1e-9)
}
