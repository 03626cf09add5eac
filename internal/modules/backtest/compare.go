package backtest

import "sort"

// ComparisonRow summarizes one completed run for side-by-side display
type ComparisonRow struct {
	ID           string    `json:"id"`
	StrategyName string    `json:"strategy_name"`
	Frequency    Frequency `json:"frequency"`
	TotalReturn  float64   `json:"total_return"`
	AnnualReturn *float64  `json:"annual_return"`
	MaxDrawdown  *float64  `json:"max_drawdown"`
	SharpeRatio  *float64  `json:"sharpe_ratio"`
	WinRate      *float64  `json:"win_rate"`
	TotalTrades  int       `json:"total_trades"`
	Warnings     int       `json:"warnings"`
}

// ComparisonTable ranks multiple runs by total return, best first
type ComparisonTable struct {
	Rows []ComparisonRow `json:"rows"`
}

// Compare aggregates completed results into a comparison table. Runs
// without metrics (failed before completion) are skipped.
func Compare(results []*Result) ComparisonTable {
	rows := make([]ComparisonRow, 0, len(results))
	for _, r := range results {
		if r == nil || r.Metrics == nil {
			continue
		}
		rows = append(rows, ComparisonRow{
			ID:           r.ID,
			StrategyName: r.Config.StrategyName,
			Frequency:    r.Config.Frequency,
			TotalReturn:  r.Metrics.TotalReturn,
			AnnualReturn: r.Metrics.AnnualReturn,
			MaxDrawdown:  r.Metrics.MaxDrawdown,
			SharpeRatio:  r.Metrics.SharpeRatio,
			WinRate:      r.Metrics.WinRate,
			TotalTrades:  r.Metrics.TotalTrades,
			Warnings:     len(r.Warnings),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalReturn != rows[j].TotalReturn {
			return rows[i].TotalReturn > rows[j].TotalReturn
		}
		return rows[i].ID < rows[j].ID
	})
	return ComparisonTable{Rows: rows}
}
