package screening

import (
	"github.com/aristath/market-screener/internal/domain"
)

// Params enumerates the screening thresholds. A nil pointer means the
// rule is disabled; zero is a legitimate threshold value and is never
// treated as "unset".
type Params struct {
	PEMax            *float64 `json:"pe_max,omitempty" yaml:"pe_max"`
	PBMax            *float64 `json:"pb_max,omitempty" yaml:"pb_max"`
	DebtRatioMax     *float64 `json:"debt_ratio_max,omitempty" yaml:"debt_ratio_max"`
	ROEMin           *float64 `json:"roe_min,omitempty" yaml:"roe_min"`
	MarketCapMin     *float64 `json:"market_cap_min,omitempty" yaml:"market_cap_min"`
	MarketCapMax     *float64 `json:"market_cap_max,omitempty" yaml:"market_cap_max"`
	DividendYearsMin *int     `json:"dividend_years_min,omitempty" yaml:"dividend_years_min"`

	IncludedIndustries []string        `json:"included_industries,omitempty" yaml:"included_industries"`
	ExcludedIndustries []string        `json:"excluded_industries,omitempty" yaml:"excluded_industries"`
	AllowedMarkets     []domain.Market `json:"allowed_markets,omitempty" yaml:"allowed_markets"`
}

// Validate checks parameter consistency before any snapshot is evaluated.
// Returns a domain.ConfigError on the first problem found.
func (p Params) Validate() error {
	if p.PEMax != nil && *p.PEMax < 0 {
		return domain.NewConfigError("pe_max", "must be >= 0, got %v", *p.PEMax)
	}
	if p.PBMax != nil && *p.PBMax < 0 {
		return domain.NewConfigError("pb_max", "must be >= 0, got %v", *p.PBMax)
	}
	if p.DebtRatioMax != nil && *p.DebtRatioMax < 0 {
		return domain.NewConfigError("debt_ratio_max", "must be >= 0, got %v", *p.DebtRatioMax)
	}
	if p.MarketCapMin != nil && *p.MarketCapMin < 0 {
		return domain.NewConfigError("market_cap_min", "must be >= 0, got %v", *p.MarketCapMin)
	}
	if p.MarketCapMin != nil && p.MarketCapMax != nil && *p.MarketCapMin > *p.MarketCapMax {
		return domain.NewConfigError("market_cap", "min %v exceeds max %v", *p.MarketCapMin, *p.MarketCapMax)
	}
	if p.DividendYearsMin != nil && *p.DividendYearsMin < 0 {
		return domain.NewConfigError("dividend_years_min", "must be >= 0, got %d", *p.DividendYearsMin)
	}
	for _, m := range p.AllowedMarkets {
		if !m.IsValid() {
			return domain.NewConfigError("allowed_markets", "unknown market %q", string(m))
		}
	}
	return nil
}

// Float returns a pointer to v, for building Params literals.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for building Params literals.
func Int(v int) *int { return &v }
