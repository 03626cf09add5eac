package backtest

import (
	"fmt"
	"time"

	"github.com/aristath/market-screener/internal/domain"
	"github.com/aristath/market-screener/internal/modules/scoring"
	"github.com/aristath/market-screener/internal/modules/screening"
)

// Frequency controls how often the portfolio is re-selected
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

// IsValid checks if the rebalance frequency is one we support
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly:
		return true
	}
	return false
}

// DefaultTopN is the portfolio breadth used when the config leaves TopN
// unset.
const DefaultTopN = 20

// Config is the immutable configuration of one backtest run. The engine
// never reads ambient state during a run; everything it needs is here.
type Config struct {
	StrategyName string           `json:"strategy_name"`
	Params       screening.Params `json:"strategy_params"`
	ScoreWeights scoring.Weights  `json:"score_weights"`

	Start          time.Time `json:"start_date"`
	End            time.Time `json:"end_date"`
	InitialCapital float64   `json:"initial_capital"`

	// Flat commission rate, overridable per market. MinCommission is the
	// floor charged on any trade regardless of size.
	CommissionRate      float64                   `json:"commission_rate"`
	PerMarketCommission map[domain.Market]float64 `json:"per_market_commission,omitempty"`
	MinCommission       float64                   `json:"min_commission"`

	TopN         int       `json:"top_n"`
	RiskFreeRate float64   `json:"risk_free_rate"`
	Frequency    Frequency `json:"rebalance_frequency"`

	// Weighting selects how the top-N candidates are sized: equal_weight,
	// score_weight or market_cap_weight. Empty uses the engine's default.
	Weighting string `json:"weighting,omitempty"`
}

// withDefaults returns a copy of the config with unset optional fields
// filled in.
func (c Config) withDefaults() Config {
	if c.TopN == 0 {
		c.TopN = DefaultTopN
	}
	return c
}

// Validate checks the config before any simulation state exists.
// Every violation is a ConfigError; the engine never starts a run on a
// config that fails here.
func (c Config) Validate() error {
	if !c.Start.Before(c.End) {
		return domain.NewConfigError("start_date", "start %s must be before end %s",
			c.Start.Format("2006-01-02"), c.End.Format("2006-01-02"))
	}
	if c.InitialCapital <= 0 {
		return domain.NewConfigError("initial_capital", "must be > 0, got %v", c.InitialCapital)
	}
	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		return domain.NewConfigError("commission_rate", "must be in [0, 1), got %v", c.CommissionRate)
	}
	for market, rate := range c.PerMarketCommission {
		if !market.IsValid() {
			return domain.NewConfigError("per_market_commission", "unknown market %q", market)
		}
		if rate < 0 || rate >= 1 {
			return domain.NewConfigError("per_market_commission", "rate for %s must be in [0, 1), got %v", market, rate)
		}
	}
	if c.MinCommission < 0 {
		return domain.NewConfigError("min_commission", "must be >= 0, got %v", c.MinCommission)
	}
	if c.TopN <= 0 {
		return domain.NewConfigError("top_n", "must be > 0, got %d", c.TopN)
	}
	if !c.Frequency.IsValid() {
		return domain.NewConfigError("rebalance_frequency", "must be one of daily, weekly, monthly, quarterly, got %q", c.Frequency)
	}
	if _, ok := weighterFor(c.Weighting); !ok {
		return domain.NewConfigError("weighting", "must be one of equal_weight, score_weight, market_cap_weight, got %q", c.Weighting)
	}
	if err := c.Params.Validate(); err != nil {
		return err
	}
	return c.ScoreWeights.Validate()
}

// Side is the direction of a trade
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Trade is one entry of the append-only trade log, generated only at
// rebalance boundaries.
type Trade struct {
	Date       time.Time      `json:"date"`
	Stock      domain.StockID `json:"stock"`
	Side       Side           `json:"side"`
	Quantity   int64          `json:"quantity"`
	Price      float64        `json:"price"`
	Commission float64        `json:"commission"`
	Note       string         `json:"note,omitempty"`
}

// Value is the gross trade value before commission
func (t Trade) Value() float64 {
	return float64(t.Quantity) * t.Price
}

// ValuePoint is one (date, total portfolio value) observation of the
// simulated equity curve.
type ValuePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// RunState is the lifecycle state of a backtest run
type RunState string

const (
	StateConfigured RunState = "CONFIGURED"
	StateRunning    RunState = "RUNNING"
	StateCompleted  RunState = "COMPLETED"
	StateFailed     RunState = "FAILED"
)

// Result is the output of one backtest run. Terminal results are
// immutable; a FAILED result carries whatever series and trade log had
// been produced before the fault.
type Result struct {
	ID     string   `json:"id"`
	State  RunState `json:"state"`
	Config Config   `json:"config"`

	Series   []ValuePoint         `json:"series"`
	Trades   []Trade              `json:"trades"`
	Warnings []domain.DataWarning `json:"warnings,omitempty"`
	Metrics  *MetricsReport       `json:"metrics,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// RunError is an unexpected fault during a running simulation. The
// partial result gathered up to the fault is attached for diagnostics;
// the run it belongs to is in state FAILED.
type RunError struct {
	RunID   string
	Stage   string
	Partial *Result
	Err     error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("backtest %s failed during %s: %v", e.RunID, e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
