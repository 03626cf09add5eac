package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualization basis for daily return series.
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Correlation calculates the Pearson correlation coefficient between two series
func Correlation(x, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// PercentileRank returns the fraction of values in data that are strictly
// below v. Used for peer-relative valuation scoring.
func PercentileRank(v float64, data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	below := 0
	for _, d := range data {
		if d < v {
			below++
		}
	}
	return float64(below) / float64(len(data))
}

// Returns converts a value series to simple periodic returns.
// Returns[i] = (v[i+1] - v[i]) / v[i]. Zero-valued points yield a zero
// return rather than a division blowup.
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}

	rets := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] != 0 {
			rets[i-1] = (values[i] - values[i-1]) / values[i-1]
		}
	}
	return rets
}

// AnnualizedVolatility calculates annualized volatility from daily returns.
//
// Formula: StdDev of daily returns x sqrt(252 trading days).
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// CAGR calculates the compound annual growth rate between the first and
// last point of a value series using actual elapsed calendar days.
//
// Returns nil when the series is shorter than two points, when either
// endpoint is non-positive, or when fewer than one day has elapsed.
// Annualizing over a near-zero horizon is meaningless.
func CAGR(first, last float64, elapsedDays float64) *float64 {
	if first <= 0 || last <= 0 || elapsedDays < 1 {
		return nil
	}

	growth := math.Pow(last/first, 365.0/elapsedDays) - 1
	return &growth
}
