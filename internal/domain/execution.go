package domain

import "time"

// ExecutionResult is the terminal record of one execution attempt, one-to-one
// with a submitted transaction.
type ExecutionResult struct {
	OpportunityID        string
	Success              bool
	ProfitRealized       uint64 // base-token smallest units; 0 on failure
	Error                string
	TransactionSignature string
	ExecutionTimeMs      int64
	CompletedAt          time.Time
}

// PendingSwap is a locally observed counterparty action that has not settled
// yet. The front-running strategy reacts to these before they land.
type PendingSwap struct {
	Market     string
	Side       TradeSide
	Amount     uint64
	Price      float64
	ObservedAt time.Time
}

// Age returns how long ago the swap was observed.
func (p PendingSwap) Age(now time.Time) time.Duration {
	return now.Sub(p.ObservedAt)
}
