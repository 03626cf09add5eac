package universe

import (
	"context"
	"time"

	"github.com/aristath/market-screener/internal/domain"
)

// Provider supplies point-in-time stock universes and price history.
//
// Implementations must honor as-of semantics: Universe never returns a
// snapshot dated after asOf, and Prices never returns a point outside the
// requested range. Providers are shared read-only resources; concurrent
// backtest runs may call them without locking.
type Provider interface {
	// Universe returns the screening universe as known on asOf.
	// An empty markets slice means all markets.
	Universe(ctx context.Context, asOf time.Time, markets []domain.Market) ([]domain.StockSnapshot, error)

	// Prices returns daily closes for a stock in [from, to], ordered by
	// date ascending. Gaps (non-trading days, missing data) are allowed.
	Prices(ctx context.Context, id domain.StockID, from, to time.Time) ([]domain.PricePoint, error)
}
