// Package market owns the shared market-state cache: a read-mostly snapshot
// of per-market top-of-book refreshed by polling venue adapters.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arblab/solarbot/internal/domain"
	"github.com/arblab/solarbot/internal/venue"
)

// Cache is the one piece of state shared between the poller and concurrently
// running strategy evaluations. Readers get an immutable snapshot table that
// is swapped atomically on refresh, so a read observes either a fully-old or
// fully-new MarketState per market and never holds a lock across evaluation.
// Writes are serialized by a mutex and only copy the table in memory; no
// lock is held across RPC calls.
type Cache struct {
	registry *venue.Registry
	listings []venue.Listing
	maxAge   time.Duration
	logger   *slog.Logger

	writeMu sync.Mutex
	table   atomic.Pointer[map[string]domain.MarketState]

	now func() time.Time
}

// NewCache creates a Cache over the given listings. maxAge is the staleness
// bound applied by IsFresh.
func NewCache(registry *venue.Registry, listings []venue.Listing, maxAge time.Duration, logger *slog.Logger) *Cache {
	c := &Cache{
		registry: registry,
		listings: listings,
		maxAge:   maxAge,
		logger:   logger.With(slog.String("component", "market_cache")),
		now:      time.Now,
	}
	empty := map[string]domain.MarketState{}
	c.table.Store(&empty)
	return c
}

// Listings returns the monitored listings.
func (c *Cache) Listings() []venue.Listing { return c.listings }

// MaxAge returns the configured staleness bound.
func (c *Cache) MaxAge() time.Duration { return c.maxAge }

// Refresh polls the venue for one market and publishes the new state. A poll
// failure keeps the previous entry; the state simply ages until IsFresh
// rejects it. A crossed book (bid > ask) is treated the same way: the fetched
// value is discarded with domain.ErrCrossedBook.
func (c *Cache) Refresh(ctx context.Context, marketID string) (domain.MarketState, error) {
	listing, ok := c.listing(marketID)
	if !ok {
		return domain.MarketState{}, fmt.Errorf("market %s: %w", marketID, domain.ErrMarketNotFound)
	}

	adapter, err := c.registry.Adapter(listing.Venue)
	if err != nil {
		return domain.MarketState{}, err
	}

	bid, ask, err := adapter.BestPrice(ctx, marketID)
	if err != nil {
		return domain.MarketState{}, fmt.Errorf("refresh %s: %w", marketID, err)
	}
	liquidity, err := adapter.Liquidity(ctx, marketID)
	if err != nil {
		return domain.MarketState{}, fmt.Errorf("refresh %s: %w", marketID, err)
	}

	state := domain.MarketState{
		Market:     marketID,
		Venue:      listing.Venue,
		Base:       listing.Pair.Base,
		Quote:      listing.Pair.Quote,
		BestBid:    bid,
		BestAsk:    ask,
		Liquidity:  liquidity,
		LastUpdate: c.now(),
	}
	if state.Crossed() {
		return domain.MarketState{}, fmt.Errorf("refresh %s: bid %.6f > ask %.6f: %w",
			marketID, bid, ask, domain.ErrCrossedBook)
	}

	c.publish(state)
	return state, nil
}

// RefreshAll refreshes every monitored market. Individual failures are
// logged and skipped; the error count is returned for the caller's logging.
func (c *Cache) RefreshAll(ctx context.Context) int {
	failures := 0
	for _, l := range c.listings {
		if _, err := c.Refresh(ctx, l.Market); err != nil {
			failures++
			c.logger.Warn("market refresh failed",
				slog.String("market", l.Market),
				slog.String("venue", l.Venue),
				slog.String("error", err.Error()),
			)
		}
		if ctx.Err() != nil {
			return failures
		}
	}
	return failures
}

// Snapshot returns the current table. The returned map must be treated as
// read-only; it is shared with every other concurrent reader.
func (c *Cache) Snapshot() map[string]domain.MarketState {
	return *c.table.Load()
}

// Get returns the state for one market.
func (c *Cache) Get(marketID string) (domain.MarketState, bool) {
	state, ok := c.Snapshot()[marketID]
	return state, ok
}

// IsFresh reports whether the market exists, is not crossed, and was updated
// within the cache's max age.
func (c *Cache) IsFresh(marketID string) bool {
	state, ok := c.Get(marketID)
	if !ok {
		return false
	}
	if state.Crossed() {
		return false
	}
	return state.Age(c.now()) <= c.maxAge
}

// FreshStates returns every non-crossed market state within the staleness
// bound, the view strategies scan each cycle.
func (c *Cache) FreshStates() []domain.MarketState {
	snapshot := c.Snapshot()
	now := c.now()
	states := make([]domain.MarketState, 0, len(snapshot))
	for _, s := range snapshot {
		if s.Crossed() || s.Age(now) > c.maxAge {
			continue
		}
		states = append(states, s)
	}
	return states
}

// publish swaps in a new table containing state. Copy-on-write keeps the
// old table intact for in-flight readers.
func (c *Cache) publish(state domain.MarketState) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	old := *c.table.Load()
	next := make(map[string]domain.MarketState, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[state.Market] = state
	c.table.Store(&next)
}

func (c *Cache) listing(marketID string) (venue.Listing, bool) {
	for _, l := range c.listings {
		if l.Market == marketID {
			return l, true
		}
	}
	return venue.Listing{}, false
}
