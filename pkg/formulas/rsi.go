package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// RSI calculates the current Relative Strength Index from closing prices.
//
// RSI Formula:
//
//	RSI = 100 - (100 / (1 + RS))
//	where RS = Average Gain / Average Loss over N periods
//
// Returns the latest RSI value (0-100) or nil if there is not enough data
// for the requested period.
func RSI(closes []float64, period int) *float64 {
	if len(closes) < period+1 {
		return nil
	}

	series := talib.Rsi(closes, period)
	if len(series) == 0 {
		return nil
	}

	last := series[len(series)-1]
	if math.IsNaN(last) {
		return nil
	}
	return &last
}
