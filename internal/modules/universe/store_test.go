package universe

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/market-screener/internal/database"
	"github.com/aristath/market-screener/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStore_UniverseAsOfSemantics(t *testing.T) {
	store := newTestStore(t)
	id := domain.StockID{Market: domain.MarketAShare, Ticker: "600519"}

	pe1, pe2 := 10.0, 12.0
	require.NoError(t, store.UpsertSnapshot(domain.StockSnapshot{
		ID: id, AsOf: day(2023, 1, 31), Close: 100, PE: &pe1,
	}))
	require.NoError(t, store.UpsertSnapshot(domain.StockSnapshot{
		ID: id, AsOf: day(2023, 3, 31), Close: 110, PE: &pe2,
	}))

	ctx := context.Background()

	// Query between the two snapshot dates: only the older one is visible.
	snaps, err := store.Universe(ctx, day(2023, 2, 15), nil)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, day(2023, 1, 31), snaps[0].AsOf)
	require.NotNil(t, snaps[0].PE)
	assert.InDelta(t, 10.0, *snaps[0].PE, 1e-9)

	// Query before any snapshot: nothing leaks.
	snaps, err = store.Universe(ctx, day(2022, 12, 31), nil)
	require.NoError(t, err)
	assert.Empty(t, snaps)

	// Query after both: latest wins.
	snaps, err = store.Universe(ctx, day(2023, 6, 30), nil)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, day(2023, 3, 31), snaps[0].AsOf)
}

func TestStore_UniverseMarketFilter(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.UpsertSnapshot(domain.StockSnapshot{
		ID: domain.StockID{Market: domain.MarketAShare, Ticker: "600519"}, AsOf: day(2023, 1, 31), Close: 100,
	}))
	require.NoError(t, store.UpsertSnapshot(domain.StockSnapshot{
		ID: domain.StockID{Market: domain.MarketUS, Ticker: "KO"}, AsOf: day(2023, 1, 31), Close: 60,
	}))

	snaps, err := store.Universe(context.Background(), day(2023, 2, 1), []domain.Market{domain.MarketUS})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, domain.MarketUS, snaps[0].ID.Market)
}

func TestStore_PricesRangeAndOrder(t *testing.T) {
	store := newTestStore(t)
	id := domain.StockID{Market: domain.MarketUS, Ticker: "KO"}

	dates := []time.Time{day(2023, 1, 3), day(2023, 1, 5), day(2023, 1, 4), day(2023, 1, 10)}
	for i, d := range dates {
		require.NoError(t, store.UpsertPrice(id, domain.PricePoint{Date: d, Close: float64(60 + i)}))
	}

	points, err := store.Prices(context.Background(), id, day(2023, 1, 4), day(2023, 1, 5))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, day(2023, 1, 4), points[0].Date)
	assert.Equal(t, day(2023, 1, 5), points[1].Date)
}

func TestStore_FundamentalsHistoryRoundTrip(t *testing.T) {
	store := newTestStore(t)
	id := domain.StockID{Market: domain.MarketUS, Ticker: "KO"}

	rev := func(v float64) *float64 { return &v }
	require.NoError(t, store.UpsertSnapshot(domain.StockSnapshot{
		ID: id, AsOf: day(2023, 1, 31), Close: 60,
		History: []domain.FundamentalPeriod{
			{PeriodEnd: day(2020, 12, 31), Revenue: rev(33e9), NetProfit: rev(7.7e9)},
			{PeriodEnd: day(2021, 12, 31), Revenue: rev(38e9), NetProfit: rev(9.8e9)},
			{PeriodEnd: day(2022, 12, 31), Revenue: rev(43e9), NetProfit: rev(9.5e9)},
		},
	}))

	snaps, err := store.Universe(context.Background(), day(2023, 2, 1), nil)
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	require.Len(t, snaps[0].History, 3, "trailing periods survive the round trip")
	assert.Equal(t, day(2020, 12, 31), snaps[0].History[0].PeriodEnd, "oldest first")
	require.NotNil(t, snaps[0].History[2].Revenue)
	assert.InDelta(t, 43e9, *snaps[0].History[2].Revenue, 1)
}

func TestStore_FundamentalsHistoryAsOfBound(t *testing.T) {
	store := newTestStore(t)
	id := domain.StockID{Market: domain.MarketUS, Ticker: "KO"}

	rev := func(v float64) *float64 { return &v }
	require.NoError(t, store.UpsertSnapshot(domain.StockSnapshot{
		ID: id, AsOf: day(2021, 6, 30), Close: 55,
		History: []domain.FundamentalPeriod{
			{PeriodEnd: day(2020, 12, 31), Revenue: rev(33e9)},
		},
	}))
	// A later reporting period lands in the table afterwards.
	require.NoError(t, store.UpsertFundamentals(id, domain.FundamentalPeriod{
		PeriodEnd: day(2021, 12, 31), Revenue: rev(38e9),
	}))

	// As of mid-2021 only the 2020 period is visible.
	snaps, err := store.Universe(context.Background(), day(2021, 7, 1), nil)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	require.Len(t, snaps[0].History, 1)
	assert.Equal(t, day(2020, 12, 31), snaps[0].History[0].PeriodEnd)
}

func TestStore_NullableFundamentalsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	id := domain.StockID{Market: domain.MarketHK, Ticker: "0700"}

	roe := 0.18
	require.NoError(t, store.UpsertSnapshot(domain.StockSnapshot{
		ID: id, AsOf: day(2023, 1, 31), Close: 350, ROE: &roe,
	}))

	snaps, err := store.Universe(context.Background(), day(2023, 2, 1), nil)
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	assert.Nil(t, snaps[0].PE, "absent fundamentals stay nil")
	require.NotNil(t, snaps[0].ROE)
	assert.InDelta(t, 0.18, *snaps[0].ROE, 1e-9)
}
