package backtest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/market-screener/internal/domain"
	"github.com/aristath/market-screener/internal/modules/scoring"
	"github.com/aristath/market-screener/internal/modules/screening"
	"github.com/aristath/market-screener/internal/modules/universe"
)

// Engine runs backtest simulations. One Engine is safe for concurrent
// use: each Run owns all of its mutable state (portfolio, trade log,
// series), and the provider is read-only.
type Engine struct {
	provider universe.Provider
	screener screening.Screener
	weighter Weighter
	log      zerolog.Logger
}

// NewEngine creates a backtest engine around a point-in-time data
// provider and a screening strategy. The weighter defaults to equal
// weighting when nil.
func NewEngine(provider universe.Provider, screener screening.Screener, weighter Weighter, log zerolog.Logger) *Engine {
	if weighter == nil {
		weighter = EqualWeighter{}
	}
	return &Engine{
		provider: provider,
		screener: screener,
		weighter: weighter,
		log:      log.With().Str("component", "backtest").Logger(),
	}
}

// Run executes one backtest. Invalid configuration fails immediately
// with a ConfigError and no partial state. Faults during the simulation
// transition the run to FAILED and return a RunError carrying the
// partial result; the same partial result is also returned directly.
func (e *Engine) Run(ctx context.Context, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pipeline, err := scoring.NewPipeline(cfg.ScoreWeights, e.provider, e.log)
	if err != nil {
		return nil, err
	}

	// A configured weighting overrides the engine default for this run.
	weighter := e.weighter
	if w, _ := weighterFor(cfg.Weighting); w != nil {
		weighter = w
	}

	days := SimulationDays(cfg.Start, cfg.End)
	if len(days) == 0 {
		return nil, domain.NewConfigError("start_date", "no trading days between %s and %s",
			cfg.Start.Format("2006-01-02"), cfg.End.Format("2006-01-02"))
	}
	rebalances := RebalanceDates(days, cfg.Frequency)

	res := &Result{
		ID:        uuid.NewString(),
		State:     StateRunning,
		Config:    cfg,
		StartedAt: time.Now().UTC(),
	}
	e.log.Info().
		Str("run_id", res.ID).
		Str("strategy", cfg.StrategyName).
		Str("frequency", string(cfg.Frequency)).
		Int("trading_days", len(days)).
		Int("rebalances", len(rebalances)).
		Msg("Backtest started")

	portfolio := NewPortfolio(cfg.InitialCapital)

	// Held ids that produced no price at all during the previous period.
	// These are treated as delisted and force-liquidated at the next
	// rebalance at their last known price.
	stale := make(map[domain.StockID]bool)

	dayIdx := 0
	for ri, rebalDate := range rebalances {
		if err := ctx.Err(); err != nil {
			return e.fail(res, "cancellation", err)
		}

		e.liquidateStale(portfolio, stale, rebalDate, cfg, res)

		trades, warns, err := e.rebalance(ctx, portfolio, pipeline, weighter, cfg, rebalDate)
		if err != nil {
			return e.fail(res, "rebalance", err)
		}
		res.Trades = append(res.Trades, trades...)
		res.Warnings = append(res.Warnings, warns...)

		// Value the portfolio day by day through the end of this period.
		periodEnd := days[len(days)-1]
		if ri+1 < len(rebalances) {
			periodEnd = rebalances[ri+1].AddDate(0, 0, -1)
		}

		priced, warns, err := e.periodPrices(ctx, portfolio, rebalDate, periodEnd)
		if err != nil {
			return e.fail(res, "pricing", err)
		}
		res.Warnings = append(res.Warnings, warns...)

		sawPrice := make(map[domain.StockID]bool)
		for ; dayIdx < len(days) && !days[dayIdx].After(periodEnd); dayIdx++ {
			day := days[dayIdx]
			for _, id := range portfolio.HeldIDs() {
				price, ok := priced[id][day]
				if !ok {
					res.Warnings = append(res.Warnings, domain.DataWarning{
						Date: day, Stock: id, Field: "price",
						Detail: "missing price, held at last known valuation",
					})
					continue
				}
				sawPrice[id] = true
				portfolio.MarkPrice(id, price)
			}
			res.Series = append(res.Series, ValuePoint{Date: day, Value: portfolio.Value()})
		}

		stale = make(map[domain.StockID]bool)
		for _, id := range portfolio.HeldIDs() {
			if !sawPrice[id] {
				stale[id] = true
			}
		}
	}

	res.Metrics = ComputeMetrics(res.Series, res.Trades, cfg.InitialCapital, cfg.RiskFreeRate)
	res.State = StateCompleted
	res.FinishedAt = time.Now().UTC()

	e.log.Info().
		Str("run_id", res.ID).
		Float64("final_value", res.Series[len(res.Series)-1].Value).
		Int("trades", len(res.Trades)).
		Int("warnings", len(res.Warnings)).
		Msg("Backtest completed")
	return res, nil
}

// rebalance runs the screen -> score -> select -> trade sequence for one
// rebalance date. The universe fetch is the only blocking call.
func (e *Engine) rebalance(
	ctx context.Context,
	portfolio *Portfolio,
	pipeline *scoring.Pipeline,
	weighter Weighter,
	cfg Config,
	date time.Time,
) ([]Trade, []domain.DataWarning, error) {
	snaps, err := e.provider.Universe(ctx, date, cfg.Params.AllowedMarkets)
	if err != nil {
		return nil, nil, err
	}

	// Defend against a misbehaving provider: anything dated after the
	// rebalance date is invisible to this period.
	var warnings []domain.DataWarning
	kept := snaps[:0]
	for _, s := range snaps {
		if s.AsOf.After(date) {
			warnings = append(warnings, domain.DataWarning{
				Date: date, Stock: s.ID, Field: "as_of",
				Detail: "snapshot dated in the future, dropped",
			})
			continue
		}
		kept = append(kept, s)
	}
	snaps = kept

	screened, err := e.screener.Screen(snaps, cfg.Params)
	if err != nil {
		return nil, warnings, err
	}

	snapByID := make(map[domain.StockID]domain.StockSnapshot, len(snaps))
	for _, s := range snaps {
		snapByID[s.ID] = s
	}

	ranked, scoreWarns, err := pipeline.Score(ctx, screened, snapByID, date)
	if err != nil {
		return nil, warnings, err
	}
	warnings = append(warnings, scoreWarns...)

	targets := weighter.TargetWeights(ranked, cfg.TopN)

	// Tradable prices: the day's closes for candidates and holdings.
	prices := make(map[domain.StockID]float64, len(targets)+len(portfolio.Positions))
	for id := range targets {
		if s, ok := snapByID[id]; ok && s.Close > 0 {
			prices[id] = s.Close
		}
	}
	for _, id := range portfolio.HeldIDs() {
		if s, ok := snapByID[id]; ok && s.Close > 0 {
			prices[id] = s.Close
		}
	}

	trades := planRebalance(portfolio, targets, prices, cfg, date)

	e.log.Debug().
		Time("date", date).
		Int("universe", len(snaps)).
		Int("targets", len(targets)).
		Int("trades", len(trades)).
		Msg("Rebalanced")
	return trades, warnings, nil
}

// periodPrices fetches per-day closes for every held position across one
// valuation window. Points dated outside the window are dropped with a
// warning rather than trusted.
func (e *Engine) periodPrices(
	ctx context.Context,
	portfolio *Portfolio,
	from, to time.Time,
) (map[domain.StockID]map[time.Time]float64, []domain.DataWarning, error) {
	priced := make(map[domain.StockID]map[time.Time]float64)
	var warnings []domain.DataWarning

	for _, id := range portfolio.HeldIDs() {
		points, err := e.provider.Prices(ctx, id, from, to)
		if err != nil {
			return nil, warnings, err
		}
		byDay := make(map[time.Time]float64, len(points))
		for _, pt := range points {
			day := dateOnly(pt.Date)
			if day.After(to) || day.Before(from) {
				warnings = append(warnings, domain.DataWarning{
					Date: from, Stock: id, Field: "price_date",
					Detail: "price outside requested window, dropped",
				})
				continue
			}
			byDay[day] = pt.Close
		}
		priced[id] = byDay
	}
	return priced, warnings, nil
}

// liquidateStale force-sells positions whose prices disappeared for an
// entire period, at their last known price. Each forced exit is recorded
// as a warning.
func (e *Engine) liquidateStale(portfolio *Portfolio, stale map[domain.StockID]bool, date time.Time, cfg Config, res *Result) {
	for _, id := range portfolio.HeldIDs() {
		if !stale[id] {
			continue
		}
		pos := portfolio.Positions[id]
		if pos.LastPrice <= 0 {
			continue
		}
		value := float64(pos.Shares) * pos.LastPrice
		t := Trade{
			Date:       date,
			Stock:      id,
			Side:       SideSell,
			Quantity:   pos.Shares,
			Price:      pos.LastPrice,
			Commission: commissionFor(cfg, id.Market, value),
			Note:       "forced liquidation, no price data",
		}
		if err := portfolio.Apply(t); err != nil {
			continue
		}
		res.Trades = append(res.Trades, t)
		res.Warnings = append(res.Warnings, domain.DataWarning{
			Date: date, Stock: id, Field: "delisted",
			Detail: "no prices for a full period, liquidated at last known price",
		})
	}
}

// fail transitions the run to FAILED, preserving the partial series and
// trade log, and wraps the cause in a RunError.
func (e *Engine) fail(res *Result, stage string, cause error) (*Result, error) {
	res.State = StateFailed
	res.FinishedAt = time.Now().UTC()
	e.log.Error().
		Err(cause).
		Str("run_id", res.ID).
		Str("stage", stage).
		Int("series_points", len(res.Series)).
		Msg("Backtest failed")
	return res, &RunError{RunID: res.ID, Stage: stage, Partial: res, Err: cause}
}
