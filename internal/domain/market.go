package domain

import "time"

// MarketState is one venue market's top-of-book as of LastUpdate. Instances
// are immutable once published: the market cache replaces the whole value on
// refresh, it never mutates fields in place.
type MarketState struct {
	Market     string // base58 market address
	Venue      string
	Base       Token
	Quote      Token
	BestBid    float64
	BestAsk    float64
	Liquidity  uint64 // available depth in base-token smallest units
	LastUpdate time.Time
}

// Pair returns the market's token pair.
func (m MarketState) Pair() TokenPair {
	return TokenPair{Base: m.Base, Quote: m.Quote}
}

// Crossed reports whether the book is crossed (bid above ask). A crossed
// book means the snapshot is stale or the venue is mid-update; such states
// are excluded from opportunity detection.
func (m MarketState) Crossed() bool {
	return m.BestBid > m.BestAsk
}

// Spread returns the relative bid/ask spread. Zero when the bid is unset.
func (m MarketState) Spread() float64 {
	if m.BestBid <= 0 {
		return 0
	}
	return (m.BestAsk - m.BestBid) / m.BestBid
}

// Age returns how long ago the state was last refreshed.
func (m MarketState) Age(now time.Time) time.Duration {
	return now.Sub(m.LastUpdate)
}
