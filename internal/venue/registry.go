package venue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arblab/solarbot/internal/domain"
)

// Registry holds the configured venue adapters and answers venue-selection
// and cross-venue spread queries. Venue count is small (at most a handful),
// so the pairwise scans here are not a bottleneck.
type Registry struct {
	adapters []Adapter
	logger   *slog.Logger
}

// NewRegistry creates a Registry over the given adapters. Adapter order is
// preserved: price ties keep the first adapter found.
func NewRegistry(adapters []Adapter, logger *slog.Logger) *Registry {
	return &Registry{
		adapters: adapters,
		logger:   logger.With(slog.String("component", "venue_registry")),
	}
}

// Adapters returns the registered adapters in registration order.
func (r *Registry) Adapters() []Adapter { return r.adapters }

// Adapter returns the adapter with the given name.
func (r *Registry) Adapter(name string) (Adapter, error) {
	for _, a := range r.adapters {
		if a.Name() == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("venue %q not registered", name)
}

// Listings enumerates every (venue, market) the registry knows for the given
// pairs.
func (r *Registry) Listings(pairs []domain.TokenPair) []Listing {
	var listings []Listing
	for _, a := range r.adapters {
		for _, pair := range pairs {
			market, err := a.Market(pair)
			if err != nil {
				continue
			}
			listings = append(listings, Listing{Venue: a.Name(), Market: market, Pair: pair})
		}
	}
	return listings
}

// BestExecutionVenue picks the venue with the best price among those
// reporting depth >= amount. isBuy minimizes the ask; a sell maximizes the
// bid. Comparison is strict, so ties keep the first venue found. Returns
// domain.ErrNoVenue when no venue qualifies.
func (r *Registry) BestExecutionVenue(ctx context.Context, pair domain.TokenPair, amount uint64, isBuy bool) (Adapter, float64, error) {
	var (
		best      Adapter
		bestPrice float64
	)

	for _, a := range r.adapters {
		market, err := a.Market(pair)
		if err != nil {
			continue
		}
		bid, ask, err := a.BestPrice(ctx, market)
		if err != nil {
			r.logger.Debug("venue price fetch failed",
				slog.String("venue", a.Name()),
				slog.String("market", market),
				slog.String("error", err.Error()),
			)
			continue
		}
		price := bid
		if isBuy {
			price = ask
		}
		if price <= 0 {
			continue
		}
		if best != nil {
			if isBuy && price >= bestPrice {
				continue
			}
			if !isBuy && price <= bestPrice {
				continue
			}
		}
		liquidity, err := a.Liquidity(ctx, market)
		if err != nil || liquidity < amount {
			continue
		}
		best = a
		bestPrice = price
	}

	if best == nil {
		return nil, 0, fmt.Errorf("%s amount=%d: %w", pair, amount, domain.ErrNoVenue)
	}
	return best, bestPrice, nil
}

// CrossVenueOpportunities computes, for every unordered pair of venues
// listing the pair, both directional spreads and keeps the larger when it
// clears minProfitPct. Venues failing to quote are skipped.
func (r *Registry) CrossVenueOpportunities(ctx context.Context, pair domain.TokenPair, minProfitPct float64) ([]domain.CrossVenueOpportunity, error) {
	type quote struct {
		adapter Adapter
		market  string
		bid     float64
		ask     float64
	}

	var quotes []quote
	for _, a := range r.adapters {
		market, err := a.Market(pair)
		if err != nil {
			if errors.Is(err, domain.ErrMarketNotFound) {
				continue
			}
			return nil, err
		}
		bid, ask, err := a.BestPrice(ctx, market)
		if err != nil || bid <= 0 || ask <= 0 {
			continue
		}
		quotes = append(quotes, quote{adapter: a, market: market, bid: bid, ask: ask})
	}

	var opps []domain.CrossVenueOpportunity
	for i := 0; i < len(quotes); i++ {
		for j := i + 1; j < len(quotes); j++ {
			a, b := quotes[i], quotes[j]

			// Buy on a, sell on b, and the reverse. Keep the better one.
			forward := (b.bid/a.ask - 1.0) * 100.0
			reverse := (a.bid/b.ask - 1.0) * 100.0

			src, dst, profit := a, b, forward
			if reverse > forward {
				src, dst, profit = b, a, reverse
			}
			if profit < minProfitPct {
				continue
			}
			opps = append(opps, domain.CrossVenueOpportunity{
				SourceMarket:     src.market,
				TargetMarket:     dst.market,
				SourceVenue:      src.adapter.Name(),
				TargetVenue:      dst.adapter.Name(),
				Pair:             pair,
				ProfitPercentage: profit,
			})
		}
	}
	return opps, nil
}
