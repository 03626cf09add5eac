package domain

import (
	"fmt"
	"time"
)

// Market identifies the exchange universe a stock trades in
type Market string

const (
	MarketAShare Market = "A"  // Shanghai / Shenzhen
	MarketUS     Market = "US" // NYSE / NASDAQ
	MarketHK     Market = "HK" // Hong Kong
)

// IsValid checks if the market tag is one we support
func (m Market) IsValid() bool {
	return m == MarketAShare || m == MarketUS || m == MarketHK
}

// StockID uniquely identifies a stock as market plus ticker
type StockID struct {
	Market Market `json:"market"`
	Ticker string `json:"ticker"`
}

// String returns the canonical "TICKER.MARKET" form, also used as a
// deterministic sort key for tie-breaking.
func (id StockID) String() string {
	return fmt.Sprintf("%s.%s", id.Ticker, id.Market)
}

// FundamentalPeriod is one trailing reporting period of fundamentals,
// used by growth scoring.
type FundamentalPeriod struct {
	PeriodEnd time.Time `json:"period_end"`
	Revenue   *float64  `json:"revenue,omitempty"`
	NetProfit *float64  `json:"net_profit,omitempty"`
}

// StockSnapshot is an immutable point-in-time record of a stock's price
// and fundamentals as known on AsOf. Nullable fundamentals are pointers:
// nil means the provider had no value, which is different from zero.
type StockSnapshot struct {
	ID     StockID   `json:"id"`
	AsOf   time.Time `json:"as_of"`
	Name   string    `json:"name,omitempty"`
	Close  float64   `json:"close"`
	Volume *int64    `json:"volume,omitempty"`

	PE            *float64 `json:"pe,omitempty"`
	PB            *float64 `json:"pb,omitempty"`
	ROE           *float64 `json:"roe,omitempty"` // fraction, 0.15 = 15%
	DebtRatio     *float64 `json:"debt_ratio,omitempty"`
	CurrentRatio  *float64 `json:"current_ratio,omitempty"`
	MarketCap     *float64 `json:"market_cap,omitempty"`
	RevenueGrowth *float64 `json:"revenue_growth,omitempty"` // YoY fraction
	ProfitGrowth  *float64 `json:"profit_growth,omitempty"`  // YoY fraction
	DividendYears int      `json:"dividend_years"`           // consecutive years of dividends

	Industry string `json:"industry,omitempty"`

	// History carries trailing reporting periods ordered oldest first.
	// Empty when the provider has no multi-period fundamentals.
	History []FundamentalPeriod `json:"history,omitempty"`
}

// PricePoint is one (date, close) observation
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// DataWarning records a non-fatal data-quality issue encountered during a
// run. Warnings are accumulated in results for caller visibility and are
// never raised as errors.
type DataWarning struct {
	Date   time.Time `json:"date"`
	Stock  StockID   `json:"stock"`
	Field  string    `json:"field"`
	Detail string    `json:"detail"`
}

func (w DataWarning) String() string {
	return fmt.Sprintf("%s %s %s: %s", w.Date.Format("2006-01-02"), w.Stock, w.Field, w.Detail)
}
