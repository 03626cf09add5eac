package screening

import "github.com/aristath/market-screener/internal/domain"

// Reason constants recorded on rule evaluations
const (
	ReasonMissingData = "missing data"
)

// RuleResult records the evaluation of a single rule against a snapshot,
// kept for explainability: name, observed value, configured threshold,
// and whether the rule was satisfied.
type RuleResult struct {
	Rule      string   `json:"rule"`
	Value     *float64 `json:"value,omitempty"` // nil when the field was missing
	Threshold float64  `json:"threshold"`
	Satisfied bool     `json:"satisfied"`
	Reason    string   `json:"reason,omitempty"`
}

// Result is the per-candidate screening outcome. A candidate passes only
// if every enabled rule is satisfied.
type Result struct {
	Stock    domain.StockID `json:"stock"`
	Pass     bool           `json:"pass"`
	Rules    []RuleResult   `json:"rules"`
	Reasons  []string       `json:"reasons,omitempty"`  // human-readable highlights
	Warnings []string       `json:"warnings,omitempty"` // human-readable cautions
}

// Screener screens a universe of snapshots against a parameter set.
// Implementations must be pure: same inputs, same outputs, no side effects.
type Screener interface {
	Name() string
	Screen(universe []domain.StockSnapshot, params Params) ([]Result, error)
}
