package market

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Poller drives periodic cache refreshes in the background so strategy
// evaluation always reads from a recently polled snapshot.
type Poller struct {
	cache    *Cache
	interval time.Duration
	logger   *slog.Logger
}

// NewPoller creates a Poller refreshing cache every interval.
func NewPoller(cache *Cache, interval time.Duration, logger *slog.Logger) *Poller {
	return &Poller{
		cache:    cache,
		interval: interval,
		logger:   logger.With(slog.String("component", "market_poller")),
	}
}

// Run polls until the context is cancelled. Markets are refreshed
// concurrently, one goroutine per listing, because each refresh is an
// independent RPC round trip.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("market poller started",
		slog.Int("markets", len(p.cache.Listings())),
		slog.Duration("interval", p.interval),
	)
	defer p.logger.Info("market poller stopped")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// First pass immediately so the engine does not start on an empty cache.
	p.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range p.cache.Listings() {
		l := l
		g.Go(func() error {
			if _, err := p.cache.Refresh(gctx, l.Market); err != nil {
				p.logger.Debug("poll failed",
					slog.String("market", l.Market),
					slog.String("error", err.Error()),
				)
			}
			// Poll failures are non-fatal; staleness handles them.
			return nil
		})
	}
	_ = g.Wait()
}
