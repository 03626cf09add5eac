package backtest

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/market-screener/internal/database"
)

// ErrNotFound is returned by Get for unknown or expired run ids
var ErrNotFound = errors.New("backtest result not found")

const resultCacheSchema = `
CREATE TABLE IF NOT EXISTS backtest_results (
	id         TEXT PRIMARY KEY,
	strategy   TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	payload    BLOB NOT NULL
)`

const resultCacheIndex = `
CREATE INDEX IF NOT EXISTS idx_backtest_results_created ON backtest_results(created_at)`

// ResultCache persists completed backtest results so repeated lookups of
// the same run don't have to re-simulate. Payloads are msgpack blobs;
// entries older than the TTL are evicted by the nightly cleanup job.
type ResultCache struct {
	db  *database.DB
	ttl time.Duration
	log zerolog.Logger
}

// NewResultCache creates the cache and its schema
func NewResultCache(db *database.DB, ttl time.Duration, log zerolog.Logger) (*ResultCache, error) {
	if _, err := db.Exec(resultCacheSchema); err != nil {
		return nil, fmt.Errorf("create backtest_results schema: %w", err)
	}
	if _, err := db.Exec(resultCacheIndex); err != nil {
		return nil, fmt.Errorf("create backtest_results index: %w", err)
	}
	return &ResultCache{
		db:  db,
		ttl: ttl,
		log: log.With().Str("component", "result_cache").Logger(),
	}, nil
}

// Put stores a completed result keyed by its run id
func (c *ResultCache) Put(res *Result) error {
	payload, err := msgpack.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result %s: %w", res.ID, err)
	}

	_, err = c.db.Exec(
		`INSERT INTO backtest_results (id, strategy, created_at, payload)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		res.ID, res.Config.StrategyName, time.Now().Unix(), payload,
	)
	if err != nil {
		return fmt.Errorf("store result %s: %w", res.ID, err)
	}
	return nil
}

// Get loads a stored result by run id. Returns ErrNotFound for unknown
// ids.
func (c *ResultCache) Get(id string) (*Result, error) {
	var payload []byte
	err := c.db.QueryRow(`SELECT payload FROM backtest_results WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load result %s: %w", id, err)
	}

	var res Result
	if err := msgpack.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", id, err)
	}
	return &res, nil
}

// Cleanup evicts entries older than the TTL and returns how many were
// removed.
func (c *ResultCache) Cleanup() (int64, error) {
	cutoff := time.Now().Add(-c.ttl).Unix()
	out, err := c.db.Exec(`DELETE FROM backtest_results WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup backtest_results: %w", err)
	}
	removed, _ := out.RowsAffected()
	if removed > 0 {
		c.log.Info().Int64("removed", removed).Msg("Evicted expired backtest results")
	}
	return removed, nil
}
