// Package strategy implements the opportunity-detection strategies. The set
// is closed and known at compile time; new variants are added as a case in
// the factory rather than through open registration.
package strategy

import (
	"context"
	"sort"
	"time"

	"github.com/arblab/solarbot/internal/domain"
)

// Strategy is the capability set every detection strategy exposes. Analyze
// scans the given fresh market states and emits candidate opportunities
// sorted by descending profit percentage. Validate re-checks a previously
// emitted opportunity against current state at decision time; an opportunity
// past its freshness window always fails. Execution is not part of this
// interface: all strategies share the engine's atomic build-and-submit path.
type Strategy interface {
	Name() string
	Analyze(ctx context.Context, states []domain.MarketState) ([]domain.ArbitrageOpportunity, error)
	Validate(now time.Time, opp domain.ArbitrageOpportunity, states map[string]domain.MarketState) bool
	// Freshness returns the maximum age after which an opportunity from
	// this strategy must be re-derived rather than trusted.
	Freshness() time.Duration
}

// sortByProfit orders opportunities best-first so downstream consumers can
// take greedily.
func sortByProfit(opps []domain.ArbitrageOpportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].ProfitPercentage > opps[j].ProfitPercentage
	})
}
