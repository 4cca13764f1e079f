package domain

import "time"

// TradeSide is the direction of a single trade leg.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// Opposite returns the inverse side.
func (s TradeSide) Opposite() TradeSide {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// StepKind distinguishes trade legs from flash-loan bookkeeping legs.
type StepKind string

const (
	StepTrade  StepKind = "trade"
	StepBorrow StepKind = "borrow"
	StepRepay  StepKind = "repay"
)

// TradeStep is one leg of a route. Immutable.
type TradeStep struct {
	Kind   StepKind
	Market string // base58 market address; protocol address for borrow/repay
	Side   TradeSide
	Amount uint64 // base-token smallest units
	Price  float64
}

// ArbitrageOpportunity is a candidate detected by a strategy. It is consumed
// read-only downstream; a stale opportunity is discarded and re-derived,
// never patched.
type ArbitrageOpportunity struct {
	ID               string
	Strategy         string
	SourceMarket     string
	TargetMarket     string
	Pair             TokenPair
	ProfitPercentage float64
	RequiredAmount   uint64
	EstimatedProfit  uint64
	Route            []TradeStep
	Timestamp        time.Time
}

// Borrowed reports whether the route starts with a borrow leg, meaning the
// capital is flash-loaned and must be repaid within the same transaction.
func (o ArbitrageOpportunity) Borrowed() bool {
	return len(o.Route) > 0 && o.Route[0].Kind == StepBorrow
}

// Age returns how long ago the opportunity was derived.
func (o ArbitrageOpportunity) Age(now time.Time) time.Duration {
	return now.Sub(o.Timestamp)
}

// CrossVenueOpportunity is a directional price spread between two venues'
// markets for the same pair.
type CrossVenueOpportunity struct {
	SourceMarket     string // buy here
	TargetMarket     string // sell here
	SourceVenue      string
	TargetVenue      string
	Pair             TokenPair
	ProfitPercentage float64
}
