package formulas

import "math"

// SharpeRatio calculates the annualized Sharpe ratio from periodic returns.
//
// Sharpe Formula:
//
//	Sharpe = (Mean Periodic Return - Periodic Risk-free Rate) / StdDev of Returns
//	Annualized: Sharpe x sqrt(periods per year)
//
// Args:
//
//	returns: Array of periodic returns (daily, monthly, etc.)
//	riskFreeRate: Risk-free rate (annual, as decimal, e.g. 0.03 for 3%)
//	periodsPerYear: Number of periods per year (252 for daily, 12 for monthly)
//
// Returns nil when there are fewer than two returns or when the standard
// deviation is zero. A flat series has no defined Sharpe, and reporting
// zero or infinity would misrank it.
func SharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	sharpe := (Mean(returns) - periodicRiskFree) / stdDev
	annualized := sharpe * math.Sqrt(float64(periodsPerYear))
	return &annualized
}

// SortinoRatio calculates the annualized Sortino ratio, the downside
// deviation variant of Sharpe. Only returns below the periodic risk-free
// rate contribute to the denominator.
//
// Returns nil when no return falls below the target or when the downside
// deviation is zero.
func SortinoRatio(returns []float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)

	var downsideSquaredSum float64
	downsideCount := 0
	for _, r := range returns {
		if r < periodicRiskFree {
			d := r - periodicRiskFree
			downsideSquaredSum += d * d
			downsideCount++
		}
	}

	if downsideCount == 0 {
		return nil
	}

	downsideDev := math.Sqrt(downsideSquaredSum / float64(downsideCount))
	if downsideDev == 0 {
		return nil
	}

	sortino := (Mean(returns) - periodicRiskFree) / downsideDev
	annualized := sortino * math.Sqrt(float64(periodsPerYear))
	return &annualized
}
