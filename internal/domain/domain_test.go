package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTradeSideOpposite(t *testing.T) {
	assert.Equal(t, SideSell, SideBuy.Opposite())
	assert.Equal(t, SideBuy, SideSell.Opposite())
}

func TestMarketStateCrossed(t *testing.T) {
	assert.False(t, MarketState{BestBid: 10.0, BestAsk: 10.1}.Crossed())
	assert.False(t, MarketState{BestBid: 10.0, BestAsk: 10.0}.Crossed())
	assert.True(t, MarketState{BestBid: 10.2, BestAsk: 10.1}.Crossed())
}

func TestMarketStateSpread(t *testing.T) {
	assert.InDelta(t, 0.01, MarketState{BestBid: 10.0, BestAsk: 10.1}.Spread(), 1e-9)
	assert.Zero(t, MarketState{BestBid: 0, BestAsk: 10.1}.Spread())
}

func TestMarketStateAge(t *testing.T) {
	now := time.Now()
	state := MarketState{LastUpdate: now.Add(-3 * time.Second)}
	assert.Equal(t, 3*time.Second, state.Age(now))
}

func TestTokenPairString(t *testing.T) {
	pair := TokenPair{
		Base:  Token{Symbol: "SOL"},
		Quote: Token{Symbol: "USDC"},
	}
	assert.Equal(t, "SOL/USDC", pair.String())
}

func TestOpportunityBorrowed(t *testing.T) {
	plain := ArbitrageOpportunity{Route: []TradeStep{{Kind: StepTrade}}}
	assert.False(t, plain.Borrowed())

	borrowed := ArbitrageOpportunity{Route: []TradeStep{
		{Kind: StepBorrow},
		{Kind: StepTrade},
		{Kind: StepRepay},
	}}
	assert.True(t, borrowed.Borrowed())

	assert.False(t, ArbitrageOpportunity{}.Borrowed())
}

func TestPendingSwapAge(t *testing.T) {
	now := time.Now()
	swap := PendingSwap{ObservedAt: now.Add(-1500 * time.Millisecond)}
	assert.Equal(t, 1500*time.Millisecond, swap.Age(now))
}
