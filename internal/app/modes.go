package app

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// recentJournalWindow bounds the journal lookback logged at startup.
const recentJournalWindow = 20

// RunMode starts the market poller, the pending-swap feed when enabled, and
// the full execution engine.
func (a *App) RunMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting run mode")
	a.logJournaledExecutions(ctx, deps)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return deps.Poller.Run(ctx) })
	if deps.FeedListener != nil {
		g.Go(func() error { return deps.FeedListener.Run(ctx) })
	}
	g.Go(func() error { return deps.Engine.Run(ctx) })
	return g.Wait()
}

// logJournaledExecutions surfaces what the previous run left in the journal,
// so an operator restarting after a crash sees the recent execution tail.
func (a *App) logJournaledExecutions(ctx context.Context, deps *Dependencies) {
	if deps.Journal == nil {
		return
	}
	recent, err := deps.Journal.Recent(ctx, recentJournalWindow)
	if err != nil {
		a.logger.WarnContext(ctx, "journal readback failed", "error", err)
		return
	}
	executed := 0
	for _, result := range recent {
		if result.Success {
			executed++
		}
	}
	a.logger.InfoContext(ctx, "journal readback",
		"recorded", len(recent), "succeeded", executed)
}

// MonitorMode runs detection and scoring without ever submitting a
// transaction. The engine skips execution in this mode.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return deps.Poller.Run(ctx) })
	if deps.FeedListener != nil {
		g.Go(func() error { return deps.FeedListener.Run(ctx) })
	}
	g.Go(func() error { return deps.Engine.Run(ctx) })
	return g.Wait()
}
