package universe

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/market-screener/internal/database"
	"github.com/aristath/market-screener/internal/domain"
)

// Store is the sqlite-backed point-in-time Provider. Every query is
// bounded by the requested as-of date in SQL, so a row timestamped in the
// future can never reach a caller.
type Store struct {
	db  *database.DB
	log zerolog.Logger
}

// NewStore creates a store on top of an open database, creating the
// schema if needed.
func NewStore(db *database.DB, log zerolog.Logger) (*Store, error) {
	s := &Store{
		db:  db,
		log: log.With().Str("component", "universe_store").Logger(),
	}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying database for callers needing raw counters
func (s *Store) DB() *database.DB {
	return s.db
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schemaSnapshots); err != nil {
		return fmt.Errorf("failed to create snapshots table: %w", err)
	}
	if _, err := s.db.Exec(schemaFundamentals); err != nil {
		return fmt.Errorf("failed to create fundamentals table: %w", err)
	}
	if _, err := s.db.Exec(schemaDailyPrices); err != nil {
		return fmt.Errorf("failed to create daily_prices table: %w", err)
	}
	return nil
}

// Universe returns the latest snapshot per stock dated on or before asOf.
func (s *Store) Universe(ctx context.Context, asOf time.Time, markets []domain.Market) ([]domain.StockSnapshot, error) {
	// Latest row per (market, ticker) not newer than asOf.
	query := `
		SELECT market, ticker, as_of, name, close, volume,
		       pe, pb, roe, debt_ratio, current_ratio, market_cap,
		       revenue_growth, profit_growth, dividend_years, industry
		FROM snapshots s
		WHERE as_of = (
			SELECT MAX(as_of) FROM snapshots
			WHERE market = s.market AND ticker = s.ticker AND as_of <= ?
		)
		ORDER BY market, ticker
	`

	rows, err := s.db.Query(query, dateKey(asOf))
	if err != nil {
		return nil, fmt.Errorf("failed to query universe: %w", err)
	}
	defer rows.Close()

	allowed := make(map[domain.Market]bool, len(markets))
	for _, m := range markets {
		allowed[m] = true
	}

	var snaps []domain.StockSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		if len(markets) > 0 && !allowed[snap.ID.Market] {
			continue
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating universe rows: %w", err)
	}

	if err := s.attachHistory(snaps, asOf); err != nil {
		return nil, err
	}

	s.log.Debug().
		Time("as_of", asOf).
		Int("count", len(snaps)).
		Msg("Universe loaded")

	return snaps, nil
}

// attachHistory loads trailing fundamentals for every snapshot in one
// query. The period bound is the same as-of date as the snapshot query,
// so a reporting period from the future can never feed growth scoring.
func (s *Store) attachHistory(snaps []domain.StockSnapshot, asOf time.Time) error {
	if len(snaps) == 0 {
		return nil
	}

	rows, err := s.db.Query(`
		SELECT market, ticker, period_end, revenue, net_profit
		FROM fundamentals
		WHERE period_end <= ?
		ORDER BY market, ticker, period_end ASC
	`, dateKey(asOf))
	if err != nil {
		return fmt.Errorf("failed to query fundamentals: %w", err)
	}
	defer rows.Close()

	history := make(map[domain.StockID][]domain.FundamentalPeriod)
	for rows.Next() {
		var market, ticker, endStr string
		var revenue, netProfit sql.NullFloat64
		if err := rows.Scan(&market, &ticker, &endStr, &revenue, &netProfit); err != nil {
			return fmt.Errorf("failed to scan fundamentals row: %w", err)
		}
		end, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return fmt.Errorf("bad period_end %q in fundamentals: %w", endStr, err)
		}
		id := domain.StockID{Market: domain.Market(market), Ticker: ticker}
		history[id] = append(history[id], domain.FundamentalPeriod{
			PeriodEnd: end,
			Revenue:   nullableFloat(revenue),
			NetProfit: nullableFloat(netProfit),
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating fundamentals rows: %w", err)
	}

	for i := range snaps {
		snaps[i].History = history[snaps[i].ID]
	}
	return nil
}

// Prices returns daily closes for a stock in [from, to], ascending.
func (s *Store) Prices(ctx context.Context, id domain.StockID, from, to time.Time) ([]domain.PricePoint, error) {
	query := `
		SELECT date, close
		FROM daily_prices
		WHERE market = ? AND ticker = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := s.db.Query(query, string(id.Market), id.Ticker, dateKey(from), dateKey(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for %s: %w", id, err)
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var dateStr string
		var p domain.PricePoint
		if err := rows.Scan(&dateStr, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("bad date %q in daily_prices: %w", dateStr, err)
		}
		p.Date = date
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price rows: %w", err)
	}

	return points, nil
}

// UpsertSnapshot writes one point-in-time snapshot. Used by data loaders,
// which live outside this module.
func (s *Store) UpsertSnapshot(snap domain.StockSnapshot) error {
	_, err := s.db.Exec(`
		INSERT INTO snapshots (
			market, ticker, as_of, name, close, volume,
			pe, pb, roe, debt_ratio, current_ratio, market_cap,
			revenue_growth, profit_growth, dividend_years, industry
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(market, ticker, as_of) DO UPDATE SET
			name = excluded.name,
			close = excluded.close,
			volume = excluded.volume,
			pe = excluded.pe,
			pb = excluded.pb,
			roe = excluded.roe,
			debt_ratio = excluded.debt_ratio,
			current_ratio = excluded.current_ratio,
			market_cap = excluded.market_cap,
			revenue_growth = excluded.revenue_growth,
			profit_growth = excluded.profit_growth,
			dividend_years = excluded.dividend_years,
			industry = excluded.industry
	`,
		string(snap.ID.Market), snap.ID.Ticker, dateKey(snap.AsOf), snap.Name, snap.Close, snap.Volume,
		snap.PE, snap.PB, snap.ROE, snap.DebtRatio, snap.CurrentRatio, snap.MarketCap,
		snap.RevenueGrowth, snap.ProfitGrowth, snap.DividendYears, snap.Industry,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot %s@%s: %w", snap.ID, dateKey(snap.AsOf), err)
	}

	for _, p := range snap.History {
		if err := s.UpsertFundamentals(snap.ID, p); err != nil {
			return err
		}
	}
	return nil
}

// UpsertFundamentals writes one trailing reporting period
func (s *Store) UpsertFundamentals(id domain.StockID, p domain.FundamentalPeriod) error {
	_, err := s.db.Exec(`
		INSERT INTO fundamentals (market, ticker, period_end, revenue, net_profit)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(market, ticker, period_end) DO UPDATE SET
			revenue = excluded.revenue,
			net_profit = excluded.net_profit
	`, string(id.Market), id.Ticker, dateKey(p.PeriodEnd), p.Revenue, p.NetProfit)
	if err != nil {
		return fmt.Errorf("failed to upsert fundamentals %s@%s: %w", id, dateKey(p.PeriodEnd), err)
	}
	return nil
}

// UpsertPrice writes one daily close
func (s *Store) UpsertPrice(id domain.StockID, p domain.PricePoint) error {
	_, err := s.db.Exec(`
		INSERT INTO daily_prices (market, ticker, date, close)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(market, ticker, date) DO UPDATE SET close = excluded.close
	`, string(id.Market), id.Ticker, dateKey(p.Date), p.Close)
	if err != nil {
		return fmt.Errorf("failed to upsert price %s@%s: %w", id, dateKey(p.Date), err)
	}
	return nil
}

func scanSnapshot(rows *sql.Rows) (domain.StockSnapshot, error) {
	var snap domain.StockSnapshot
	var market, asOfStr string
	var name, industry sql.NullString
	var volume sql.NullInt64
	var pe, pb, roe, debtRatio, currentRatio, marketCap, revenueGrowth, profitGrowth sql.NullFloat64

	err := rows.Scan(
		&market, &snap.ID.Ticker, &asOfStr, &name, &snap.Close, &volume,
		&pe, &pb, &roe, &debtRatio, &currentRatio, &marketCap,
		&revenueGrowth, &profitGrowth, &snap.DividendYears, &industry,
	)
	if err != nil {
		return snap, fmt.Errorf("failed to scan snapshot row: %w", err)
	}

	snap.ID.Market = domain.Market(market)
	asOf, err := time.Parse("2006-01-02", asOfStr)
	if err != nil {
		return snap, fmt.Errorf("bad as_of %q in snapshots: %w", asOfStr, err)
	}
	snap.AsOf = asOf
	snap.Name = name.String
	snap.Industry = industry.String
	if volume.Valid {
		snap.Volume = &volume.Int64
	}
	snap.PE = nullableFloat(pe)
	snap.PB = nullableFloat(pb)
	snap.ROE = nullableFloat(roe)
	snap.DebtRatio = nullableFloat(debtRatio)
	snap.CurrentRatio = nullableFloat(currentRatio)
	snap.MarketCap = nullableFloat(marketCap)
	snap.RevenueGrowth = nullableFloat(revenueGrowth)
	snap.ProfitGrowth = nullableFloat(profitGrowth)

	return snap, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// dateKey formats a date for lexicographically sortable storage
func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
