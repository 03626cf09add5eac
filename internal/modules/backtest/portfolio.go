package backtest

import (
	"fmt"
	"sort"

	"github.com/aristath/market-screener/internal/domain"
)

// Position is one holding inside a Portfolio. LastPrice is the most
// recent price the position was marked at; when a price goes missing the
// position keeps contributing at LastPrice rather than dropping to zero.
type Position struct {
	Shares    int64   `json:"shares"`
	AvgCost   float64 `json:"avg_cost"`
	LastPrice float64 `json:"last_price"`
}

// Portfolio is the single live portfolio of a backtest run: cash plus
// whole-share positions. The engine owns exactly one at any simulated
// instant; rebalances mutate it in place.
//
// Invariants enforced by Apply: cash never goes negative, shares never go
// negative.
type Portfolio struct {
	Cash      float64
	Positions map[domain.StockID]*Position
}

// NewPortfolio creates an all-cash portfolio
func NewPortfolio(cash float64) *Portfolio {
	return &Portfolio{
		Cash:      cash,
		Positions: make(map[domain.StockID]*Position),
	}
}

// Value is cash plus every position at its last marked price
func (p *Portfolio) Value() float64 {
	total := p.Cash
	for _, pos := range p.Positions {
		total += float64(pos.Shares) * pos.LastPrice
	}
	return total
}

// MarkPrice updates the valuation price of a held position. Unheld ids
// are ignored.
func (p *Portfolio) MarkPrice(id domain.StockID, price float64) {
	if pos, ok := p.Positions[id]; ok {
		pos.LastPrice = price
	}
}

// HeldIDs returns the held identifiers in deterministic ascending order
func (p *Portfolio) HeldIDs() []domain.StockID {
	ids := make([]domain.StockID, 0, len(p.Positions))
	for id := range p.Positions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Apply executes one trade against the portfolio, deducting commission
// from cash. A buy that would overdraw cash or a sell that exceeds the
// held share count is rejected; the portfolio is left untouched on error.
func (p *Portfolio) Apply(t Trade) error {
	if t.Quantity <= 0 {
		return fmt.Errorf("trade quantity must be > 0, got %d", t.Quantity)
	}
	if t.Price <= 0 {
		return fmt.Errorf("trade price must be > 0, got %v", t.Price)
	}

	value := t.Value()
	switch t.Side {
	case SideBuy:
		cost := value + t.Commission
		if cost > p.Cash {
			return fmt.Errorf("buy %s: cost %.2f exceeds cash %.2f", t.Stock, cost, p.Cash)
		}
		p.Cash -= cost
		pos := p.Positions[t.Stock]
		if pos == nil {
			pos = &Position{}
			p.Positions[t.Stock] = pos
		}
		// Commission is part of the cost basis.
		totalCost := pos.AvgCost*float64(pos.Shares) + cost
		pos.Shares += t.Quantity
		pos.AvgCost = totalCost / float64(pos.Shares)
		pos.LastPrice = t.Price

	case SideSell:
		pos := p.Positions[t.Stock]
		if pos == nil || pos.Shares < t.Quantity {
			held := int64(0)
			if pos != nil {
				held = pos.Shares
			}
			return fmt.Errorf("sell %s: quantity %d exceeds held %d", t.Stock, t.Quantity, held)
		}
		if p.Cash+value-t.Commission < 0 {
			return fmt.Errorf("sell %s: commission %.2f would overdraw cash", t.Stock, t.Commission)
		}
		p.Cash += value - t.Commission
		pos.Shares -= t.Quantity
		if pos.Shares == 0 {
			delete(p.Positions, t.Stock)
		} else {
			pos.LastPrice = t.Price
		}

	default:
		return fmt.Errorf("unknown trade side %q", t.Side)
	}

	return nil
}
