package scorers

import (
	"fmt"

	"github.com/aristath/market-screener/pkg/formulas"

	"github.com/aristath/market-screener/internal/domain"
)

// MinIndustryPeers is the smallest industry group scored against itself;
// thinner industries fall back to the whole candidate batch.
const MinIndustryPeers = 3

// PeerContext carries the valuation multiples of the full candidate
// batch, grouped by industry. Valuation is relative, not absolute, so it
// can only be computed after the whole batch is known.
type PeerContext struct {
	peByIndustry map[string][]float64
	pbByIndustry map[string][]float64
	allPE        []float64
	allPB        []float64
}

// NewPeerContext builds the peer distributions from the passing
// candidates' snapshots.
func NewPeerContext(snapshots []domain.StockSnapshot) *PeerContext {
	ctx := &PeerContext{
		peByIndustry: make(map[string][]float64),
		pbByIndustry: make(map[string][]float64),
	}
	for _, snap := range snapshots {
		if snap.PE != nil && *snap.PE > 0 {
			ctx.allPE = append(ctx.allPE, *snap.PE)
			if snap.Industry != "" {
				ctx.peByIndustry[snap.Industry] = append(ctx.peByIndustry[snap.Industry], *snap.PE)
			}
		}
		if snap.PB != nil && *snap.PB > 0 {
			ctx.allPB = append(ctx.allPB, *snap.PB)
			if snap.Industry != "" {
				ctx.pbByIndustry[snap.Industry] = append(ctx.pbByIndustry[snap.Industry], *snap.PB)
			}
		}
	}
	return ctx
}

func (pc *PeerContext) pePeers(industry string) []float64 {
	if peers := pc.peByIndustry[industry]; len(peers) >= MinIndustryPeers {
		return peers
	}
	return pc.allPE
}

func (pc *PeerContext) pbPeers(industry string) []float64 {
	if peers := pc.pbByIndustry[industry]; len(peers) >= MinIndustryPeers {
		return peers
	}
	return pc.allPB
}

// ValuationScorer scores cheapness relative to industry peers: the lower
// a candidate's P/E and P/B sit in the peer distribution, the higher the
// sub-score. P/E weighs 60%, P/B 40%.
type ValuationScorer struct{}

// NewValuationScorer creates a new peer-relative valuation scorer
func NewValuationScorer() *ValuationScorer {
	return &ValuationScorer{}
}

// Score calculates the valuation sub-score for one candidate against the
// batch peer context. Missing multiples contribute a neutral 50.
func (vs *ValuationScorer) Score(snap domain.StockSnapshot, peers *PeerContext) (float64, []string) {
	var tags []string

	peScore := 50.0
	if snap.PE != nil && *snap.PE > 0 {
		rank := formulas.PercentileRank(*snap.PE, peers.pePeers(snap.Industry))
		peScore = (1 - rank) * 100
	} else {
		tags = append(tags, "pe unavailable, neutral")
	}

	pbScore := 50.0
	if snap.PB != nil && *snap.PB > 0 {
		rank := formulas.PercentileRank(*snap.PB, peers.pbPeers(snap.Industry))
		pbScore = (1 - rank) * 100
	} else {
		tags = append(tags, "pb unavailable, neutral")
	}

	score := Clamp100(peScore*0.6 + pbScore*0.4)
	if score >= 80 {
		tags = append(tags, fmt.Sprintf("cheap vs %s peers", peerLabel(snap.Industry)))
	}
	return score, tags
}

func peerLabel(industry string) string {
	if industry == "" {
		return "market"
	}
	return industry
}
