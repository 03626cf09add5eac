package screening

import (
	"fmt"
	"slices"

	"github.com/aristath/market-screener/internal/domain"
)

// SchlossScreener applies Walter Schloss style value filters: cheap
// relative to earnings and book, conservatively financed, with enough
// operating history to judge. All enabled rules must hold for a snapshot
// to pass.
type SchlossScreener struct{}

// NewSchlossScreener creates a new Schloss value screener
func NewSchlossScreener() *SchlossScreener {
	return &SchlossScreener{}
}

// Name returns the strategy name used in configs and results
func (s *SchlossScreener) Name() string {
	return "schloss"
}

// Screen evaluates every snapshot in the universe against the enabled
// rules. Output order matches input order; ranking happens downstream.
//
// A missing fundamental never lets a stock through: the affected rule
// fails with a "missing data" reason so the exclusion is visible.
func (s *SchlossScreener) Screen(universe []domain.StockSnapshot, params Params) ([]Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(universe))
	for _, snap := range universe {
		results = append(results, s.evaluate(snap, params))
	}
	return results, nil
}

func (s *SchlossScreener) evaluate(snap domain.StockSnapshot, params Params) Result {
	res := Result{Stock: snap.ID, Pass: true}

	add := func(r RuleResult) {
		res.Rules = append(res.Rules, r)
		if !r.Satisfied {
			res.Pass = false
		}
	}

	if len(params.AllowedMarkets) > 0 {
		ok := slices.Contains(params.AllowedMarkets, snap.ID.Market)
		add(RuleResult{Rule: "allowed_markets", Satisfied: ok, Reason: reasonUnless(ok, fmt.Sprintf("market %s not allowed", snap.ID.Market))})
	}

	if len(params.IncludedIndustries) > 0 {
		ok := snap.Industry != "" && slices.Contains(params.IncludedIndustries, snap.Industry)
		reason := ""
		if snap.Industry == "" {
			reason = ReasonMissingData
		} else if !ok {
			reason = fmt.Sprintf("industry %s not included", snap.Industry)
		}
		add(RuleResult{Rule: "included_industries", Satisfied: ok, Reason: reason})
	}

	if len(params.ExcludedIndustries) > 0 {
		excluded := slices.Contains(params.ExcludedIndustries, snap.Industry)
		add(RuleResult{Rule: "excluded_industries", Satisfied: !excluded, Reason: reasonUnless(!excluded, fmt.Sprintf("industry %s excluded", snap.Industry))})
	}

	if params.PEMax != nil {
		add(upperBoundRule("pe_max", snap.PE, *params.PEMax, true))
	}
	if params.PBMax != nil {
		add(upperBoundRule("pb_max", snap.PB, *params.PBMax, true))
	}
	if params.DebtRatioMax != nil {
		add(upperBoundRule("debt_ratio_max", snap.DebtRatio, *params.DebtRatioMax, false))
	}
	if params.ROEMin != nil {
		add(lowerBoundRule("roe_min", snap.ROE, *params.ROEMin))
	}
	if params.MarketCapMin != nil {
		add(lowerBoundRule("market_cap_min", snap.MarketCap, *params.MarketCapMin))
	}
	if params.MarketCapMax != nil {
		add(upperBoundRule("market_cap_max", snap.MarketCap, *params.MarketCapMax, false))
	}
	if params.DividendYearsMin != nil {
		years := float64(snap.DividendYears)
		ok := snap.DividendYears >= *params.DividendYearsMin
		add(RuleResult{Rule: "dividend_years_min", Value: &years, Threshold: float64(*params.DividendYearsMin), Satisfied: ok})
	}

	if res.Pass {
		res.Reasons = schlossReasons(snap)
		res.Warnings = schlossWarnings(snap)
	}

	return res
}

// upperBoundRule checks value <= threshold. With requirePositive the value
// must also be > 0 (a negative P/E means losses, not cheapness).
func upperBoundRule(name string, value *float64, threshold float64, requirePositive bool) RuleResult {
	if value == nil {
		return RuleResult{Rule: name, Threshold: threshold, Satisfied: false, Reason: ReasonMissingData}
	}
	ok := *value <= threshold
	if requirePositive && *value <= 0 {
		ok = false
	}
	return RuleResult{Rule: name, Value: value, Threshold: threshold, Satisfied: ok}
}

// lowerBoundRule checks value >= threshold
func lowerBoundRule(name string, value *float64, threshold float64) RuleResult {
	if value == nil {
		return RuleResult{Rule: name, Threshold: threshold, Satisfied: false, Reason: ReasonMissingData}
	}
	return RuleResult{Rule: name, Value: value, Threshold: threshold, Satisfied: *value >= threshold}
}

func reasonUnless(ok bool, reason string) string {
	if ok {
		return ""
	}
	return reason
}

// schlossReasons highlights the classic Schloss signals on a passing stock
func schlossReasons(snap domain.StockSnapshot) []string {
	var reasons []string
	if snap.PE != nil && *snap.PE > 0 && *snap.PE < 10 {
		reasons = append(reasons, fmt.Sprintf("deep value: P/E %.1f below 10", *snap.PE))
	}
	if snap.PB != nil && *snap.PB > 0 && *snap.PB < 1.0 {
		reasons = append(reasons, fmt.Sprintf("trading below book: P/B %.2f", *snap.PB))
	}
	if snap.DebtRatio != nil && *snap.DebtRatio < 0.3 {
		reasons = append(reasons, fmt.Sprintf("conservative balance sheet: debt ratio %.2f", *snap.DebtRatio))
	}
	if snap.DividendYears >= 10 {
		reasons = append(reasons, fmt.Sprintf("%d consecutive years of dividends", snap.DividendYears))
	}
	return reasons
}

// schlossWarnings flags residual risks on a passing stock
func schlossWarnings(snap domain.StockSnapshot) []string {
	var warnings []string
	if snap.MarketCap != nil && *snap.MarketCap < 5e8 {
		warnings = append(warnings, "small market cap, liquidity risk")
	}
	if snap.RevenueGrowth != nil && *snap.RevenueGrowth < -0.2 {
		warnings = append(warnings, fmt.Sprintf("revenue shrinking %.0f%% YoY", *snap.RevenueGrowth*100))
	}
	if snap.CurrentRatio != nil && *snap.CurrentRatio < 1.0 {
		warnings = append(warnings, fmt.Sprintf("current ratio %.2f below 1", *snap.CurrentRatio))
	}
	return warnings
}
