package backtest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/market-screener/internal/database"
)

func newTestCache(t *testing.T, ttl time.Duration) *ResultCache {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cache, err := NewResultCache(db, ttl, zerolog.Nop())
	require.NoError(t, err)
	return cache
}

func cachedResult(id string) *Result {
	dd := -0.1
	return &Result{
		ID:    id,
		State: StateCompleted,
		Config: Config{
			StrategyName:   "schloss",
			InitialCapital: 1_000_000,
			Frequency:      FrequencyMonthly,
		},
		Series: []ValuePoint{
			{Date: d(2024, 1, 1), Value: 1_000_000},
			{Date: d(2024, 1, 2), Value: 1_010_000},
		},
		Trades: []Trade{
			{Date: d(2024, 1, 1), Stock: stockA, Side: SideBuy, Quantity: 100, Price: 50, Commission: 5},
		},
		Metrics: &MetricsReport{TotalReturn: 0.01, MaxDrawdown: &dd, TotalTrades: 1},
	}
}

func TestResultCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t, 24*time.Hour)

	stored := cachedResult("run-1")
	require.NoError(t, cache.Put(stored))

	loaded, err := cache.Get("run-1")
	require.NoError(t, err)

	assert.Equal(t, stored.ID, loaded.ID)
	assert.Equal(t, stored.State, loaded.State)
	assert.Equal(t, stored.Trades, loaded.Trades)
	require.NotNil(t, loaded.Metrics)
	assert.InDelta(t, 0.01, loaded.Metrics.TotalReturn, 1e-9)
	require.NotNil(t, loaded.Metrics.MaxDrawdown)
	assert.InDelta(t, -0.1, *loaded.Metrics.MaxDrawdown, 1e-9)
}

func TestResultCachePutOverwrites(t *testing.T) {
	cache := newTestCache(t, 24*time.Hour)

	res := cachedResult("run-1")
	require.NoError(t, cache.Put(res))

	res.Metrics.TotalReturn = 0.5
	require.NoError(t, cache.Put(res))

	loaded, err := cache.Get("run-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, loaded.Metrics.TotalReturn, 1e-9)
}

func TestResultCacheGetUnknown(t *testing.T) {
	cache := newTestCache(t, 24*time.Hour)

	_, err := cache.Get("no-such-run")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResultCacheCleanupEvictsExpired(t *testing.T) {
	// Negative TTL: everything is already expired.
	cache := newTestCache(t, -time.Hour)

	require.NoError(t, cache.Put(cachedResult("run-1")))
	require.NoError(t, cache.Put(cachedResult("run-2")))

	removed, err := cache.Cleanup()
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = cache.Get("run-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResultCacheCleanupKeepsFresh(t *testing.T) {
	cache := newTestCache(t, 24*time.Hour)
	require.NoError(t, cache.Put(cachedResult("run-1")))

	removed, err := cache.Cleanup()
	require.NoError(t, err)
	assert.Zero(t, removed)

	_, err = cache.Get("run-1")
	assert.NoError(t, err)
}
