package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/aristath/market-screener/internal/modules/backtest"
)

// CacheCleanupJob evicts expired backtest results from the result cache.
// Runs nightly; the TTL lives in the cache itself.
type CacheCleanupJob struct {
	cache *backtest.ResultCache
	log   zerolog.Logger
}

// NewCacheCleanupJob creates the nightly result-cache cleanup job
func NewCacheCleanupJob(cache *backtest.ResultCache, log zerolog.Logger) *CacheCleanupJob {
	return &CacheCleanupJob{
		cache: cache,
		log:   log.With().Str("component", "cache_cleanup").Logger(),
	}
}

// Name returns the job name
func (j *CacheCleanupJob) Name() string {
	return "result_cache_cleanup"
}

// Run evicts expired entries
func (j *CacheCleanupJob) Run() error {
	removed, err := j.cache.Cleanup()
	if err != nil {
		return err
	}
	j.log.Info().Int64("removed", removed).Msg("Result cache cleanup finished")
	return nil
}
