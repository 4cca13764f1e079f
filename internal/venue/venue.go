// Package venue exposes the per-venue capability interface the engine trades
// through, and the registry that picks execution venues across them.
package venue

import (
	"context"

	"github.com/arblab/solarbot/internal/domain"
)

// Adapter is the uniform capability a trading venue exposes to the core.
// Implementations own their wire format; the core only sees prices, depth,
// and opaque encoded instructions. All methods are fallible; a failing venue
// is excluded from the current cycle, never fatal.
type Adapter interface {
	// Name returns the venue identifier (e.g. "orca").
	Name() string
	// BestPrice returns the top-of-book (bid, ask) for a market address.
	BestPrice(ctx context.Context, market string) (bid, ask float64, err error)
	// Liquidity returns available depth in base-token smallest units.
	Liquidity(ctx context.Context, market string) (uint64, error)
	// EncodeTrade builds the venue-specific instruction data for one leg.
	EncodeTrade(market string, amount uint64, isBuy bool) ([]byte, error)
	// PriceImpact estimates the relative price move a trade of this size
	// would cause.
	PriceImpact(ctx context.Context, market string, amount uint64, isBuy bool) (float64, error)
	// ProgramID returns the venue's on-chain program address.
	ProgramID() string
	// Market resolves the venue's market address for a pair, or
	// domain.ErrMarketNotFound if the venue does not list it.
	Market(pair domain.TokenPair) (string, error)
}

// Listing is one venue market the engine monitors.
type Listing struct {
	Venue  string
	Market string
	Pair   domain.TokenPair
}
