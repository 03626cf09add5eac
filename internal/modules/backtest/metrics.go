package backtest

import (
	"github.com/aristath/market-screener/internal/domain"
	"github.com/aristath/market-screener/pkg/formulas"
)

// MetricsReport is the performance summary of one backtest run. Metrics
// that are mathematically undefined for the input (zero volatility, no
// losing trades, sub-day series) are nil rather than zero or infinity.
type MetricsReport struct {
	TotalReturn  float64  `json:"total_return"`
	AnnualReturn *float64 `json:"annual_return"`

	Volatility          float64  `json:"volatility"`
	MaxDrawdown         *float64 `json:"max_drawdown"`          // negative fraction
	MaxDrawdownDuration int      `json:"max_drawdown_duration"` // trading days below prior peak

	SharpeRatio  *float64 `json:"sharpe_ratio"`
	SortinoRatio *float64 `json:"sortino_ratio"`
	CalmarRatio  *float64 `json:"calmar_ratio"`

	WinRate      *float64 `json:"win_rate"`
	ProfitFactor *float64 `json:"profit_factor"`
	TotalTrades  int      `json:"total_trades"`

	BestDay          *float64 `json:"best_day"`
	WorstDay         *float64 `json:"worst_day"`
	PositiveDayRatio *float64 `json:"positive_day_ratio"`

	// Historical daily tail risk at 95% confidence
	ValueAtRisk95    *float64 `json:"value_at_risk_95"`
	ConditionalVaR95 *float64 `json:"conditional_var_95"`
}

// varConfidence is the confidence level of the reported tail-risk metrics
const varConfidence = 0.95

// ComputeMetrics calculates the full performance report from a value
// series, trade log and starting capital. Pure function: no state, no
// side effects.
func ComputeMetrics(series []ValuePoint, trades []Trade, initialCapital, riskFreeRate float64) *MetricsReport {
	report := &MetricsReport{TotalTrades: len(trades)}
	if len(series) == 0 || initialCapital <= 0 {
		return report
	}

	values := make([]float64, len(series))
	for i, pt := range series {
		values[i] = pt.Value
	}
	last := values[len(values)-1]

	report.TotalReturn = last/initialCapital - 1

	elapsedDays := series[len(series)-1].Date.Sub(series[0].Date).Hours() / 24
	report.AnnualReturn = formulas.CAGR(initialCapital, last, elapsedDays)

	returns := formulas.Returns(values)
	report.Volatility = formulas.AnnualizedVolatility(returns)

	if dd := formulas.Drawdown(values); dd != nil {
		report.MaxDrawdown = &dd.MaxDrawdown
		report.MaxDrawdownDuration = dd.MaxDuration

		if report.AnnualReturn != nil && dd.MaxDrawdown < 0 {
			calmar := *report.AnnualReturn / -dd.MaxDrawdown
			report.CalmarRatio = &calmar
		}
	}

	// Sharpe per the classic definition: annualized excess return over
	// annualized volatility. Undefined when either input is undefined.
	if report.AnnualReturn != nil && report.Volatility > 0 {
		sharpe := (*report.AnnualReturn - riskFreeRate) / report.Volatility
		report.SharpeRatio = &sharpe
	}
	report.SortinoRatio = formulas.SortinoRatio(returns, riskFreeRate, formulas.TradingDaysPerYear)

	report.ValueAtRisk95 = formulas.ValueAtRisk(returns, varConfidence)
	report.ConditionalVaR95 = formulas.ConditionalValueAtRisk(returns, varConfidence)

	report.WinRate, report.ProfitFactor = tradeStats(trades)

	if len(returns) > 0 {
		best, worst := returns[0], returns[0]
		positive := 0
		for _, r := range returns {
			if r > best {
				best = r
			}
			if r < worst {
				worst = r
			}
			if r > 0 {
				positive++
			}
		}
		ratio := float64(positive) / float64(len(returns))
		report.BestDay = &best
		report.WorstDay = &worst
		report.PositiveDayRatio = &ratio
	}

	return report
}

// lot is an open buy awaiting FIFO matching
type lot struct {
	shares     int64
	price      float64
	commission float64 // remaining unallocated buy commission
}

// tradeStats computes win rate and profit factor over closed round
// trips. Sells are matched against buys FIFO per stock; each sell is one
// round trip whose realized P&L nets out the allocated commissions.
//
// Win rate is nil when no round trip closed. Profit factor is nil when
// there are no losing round trips.
func tradeStats(trades []Trade) (winRate, profitFactor *float64) {
	open := make(map[domain.StockID][]lot)

	var wins, closed int
	var grossProfit, grossLoss float64

	for _, t := range trades {
		if t.Side == SideBuy {
			open[t.Stock] = append(open[t.Stock], lot{
				shares:     t.Quantity,
				price:      t.Price,
				commission: t.Commission,
			})
			continue
		}

		remaining := t.Quantity
		pnl := -t.Commission
		queue := open[t.Stock]
		for remaining > 0 && len(queue) > 0 {
			l := &queue[0]
			matched := remaining
			if l.shares < matched {
				matched = l.shares
			}

			buyCommission := l.commission * float64(matched) / float64(l.shares)
			pnl += float64(matched)*(t.Price-l.price) - buyCommission

			l.shares -= matched
			l.commission -= buyCommission
			remaining -= matched
			if l.shares == 0 {
				queue = queue[1:]
			}
		}
		open[t.Stock] = queue

		if remaining == t.Quantity {
			// Nothing matched (sell without a recorded buy); not a round trip.
			continue
		}
		closed++
		if pnl > 0 {
			wins++
			grossProfit += pnl
		} else {
			grossLoss += -pnl
		}
	}

	if closed > 0 {
		wr := float64(wins) / float64(closed)
		winRate = &wr
	}
	if grossLoss > 0 {
		pf := grossProfit / grossLoss
		profitFactor = &pf
	}
	return winRate, profitFactor
}
