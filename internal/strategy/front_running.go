package strategy

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/arblab/solarbot/internal/config"
	"github.com/arblab/solarbot/internal/domain"
	"github.com/arblab/solarbot/internal/profit"
)

const (
	frontRunFreshness = 1 * time.Second
	maxPendingAge     = 2 * time.Second
	impactFactor      = 0.0001 // price impact per unit of base asset
	pendingShare      = 4      // trade 1/4 of the pending swap's size
	impactLiquidity   = 100    // min impactful size is 1/100 of depth
)

// PendingSource supplies locally observed swaps that have not settled yet.
// Draining is destructive: each swap is analyzed exactly once.
type PendingSource interface {
	Drain() []domain.PendingSwap
}

// FrontRunning positions ahead of large pending swaps whose expected price
// impact exceeds the market's spread bound. Its windows are the tightest of
// all strategies since the edge evaporates the moment the swap lands.
type FrontRunning struct {
	cfg     *config.Config
	calc    *profit.Calculator
	pending PendingSource
	logger  *slog.Logger
}

func NewFrontRunning(cfg *config.Config, calc *profit.Calculator, pending PendingSource, logger *slog.Logger) *FrontRunning {
	return &FrontRunning{
		cfg:     cfg,
		calc:    calc,
		pending: pending,
		logger:  logger.With(slog.String("strategy", "front_running")),
	}
}

// Name returns the strategy identifier.
func (s *FrontRunning) Name() string { return "front_running" }

// Freshness returns the front-running re-validation cutoff.
func (s *FrontRunning) Freshness() time.Duration { return frontRunFreshness }

// Analyze drains the pending-swap queue and derives an opportunity for each
// swap still fresh and large enough to move its market.
func (s *FrontRunning) Analyze(_ context.Context, states []domain.MarketState) ([]domain.ArbitrageOpportunity, error) {
	byMarket := make(map[string]domain.MarketState, len(states))
	for _, state := range states {
		byMarket[state.Market] = state
	}

	var opps []domain.ArbitrageOpportunity
	now := time.Now()

	for _, swap := range s.pending.Drain() {
		state, ok := byMarket[swap.Market]
		if !ok {
			continue
		}
		opp, ok := s.analyzeSwap(swap, state, now)
		if !ok {
			continue
		}
		opps = append(opps, opp)
	}

	sortByProfit(opps)
	return opps, nil
}

func (s *FrontRunning) analyzeSwap(swap domain.PendingSwap, state domain.MarketState, now time.Time) (domain.ArbitrageOpportunity, bool) {
	if !s.suitable(swap, state, now) {
		return domain.ArbitrageOpportunity{}, false
	}

	size := s.positionSize(swap, state)
	if size == 0 {
		return domain.ArbitrageOpportunity{}, false
	}

	pct, estProfit := s.frontRunProfit(swap, state, size)
	if pct < s.cfg.Execution.MinProfitPct {
		return domain.ArbitrageOpportunity{}, false
	}

	return domain.ArbitrageOpportunity{
		ID:               uuid.New().String(),
		Strategy:         s.Name(),
		SourceMarket:     swap.Market,
		TargetMarket:     swap.Market,
		Pair:             state.Pair(),
		ProfitPercentage: pct,
		RequiredAmount:   size,
		EstimatedProfit:  estProfit,
		Route: []domain.TradeStep{
			{Kind: domain.StepTrade, Market: swap.Market, Side: swap.Side.Opposite(), Amount: size, Price: state.BestAsk},
			{Kind: domain.StepTrade, Market: swap.Market, Side: swap.Side, Amount: size, Price: state.BestBid},
		},
		Timestamp: now,
	}, true
}

// suitable keeps only swaps fresh enough to beat, big enough to matter, and
// on markets deep enough to absorb both the swap and our position.
func (s *FrontRunning) suitable(swap domain.PendingSwap, state domain.MarketState, now time.Time) bool {
	if swap.Age(now) > maxPendingAge {
		return false
	}
	if state.Crossed() || state.BestBid <= 0 || state.BestAsk <= 0 {
		return false
	}
	if swap.Amount < state.Liquidity/impactLiquidity {
		return false
	}
	if state.Liquidity < s.cfg.Markets.MinLiquidity {
		return false
	}
	return s.priceImpact(swap) >= s.cfg.Markets.MaxSpread
}

// positionSize trades a quarter of the pending swap, clamped to risk limits
// and raised to the smallest size that can clear fees.
func (s *FrontRunning) positionSize(swap domain.PendingSwap, state domain.MarketState) uint64 {
	size := swap.Amount / pendingShare
	if size > s.cfg.Execution.MaxPositionSize {
		size = s.cfg.Execution.MaxPositionSize
	}
	if min := s.minProfitableSize(state); size < min {
		size = min
	}
	return size
}

// minProfitableSize is the smallest position whose expected move covers the
// venue fee at the configured profit floor.
func (s *FrontRunning) minProfitableSize(state domain.MarketState) uint64 {
	floor := s.cfg.Execution.MinProfitPct / 100
	if floor <= 0 {
		return 0
	}
	return uint64(state.BestAsk * tradingFeeRate / floor)
}

func (s *FrontRunning) priceImpact(swap domain.PendingSwap) float64 {
	return float64(swap.Amount) * impactFactor
}

// frontRunProfit models entering before the swap lands and exiting into the
// post-impact price.
func (s *FrontRunning) frontRunProfit(swap domain.PendingSwap, state domain.MarketState, size uint64) (pct float64, estProfit uint64) {
	slip := s.calc.Slippage(float64(size))
	entry := state.BestAsk * (1 + slip)

	impact := s.priceImpact(swap)
	var expected, exit, gross float64
	switch swap.Side {
	case domain.SideBuy:
		expected = state.BestAsk * (1 + impact)
		exit = expected * 1.01
		gross = (exit - entry) * float64(size)
	case domain.SideSell:
		expected = state.BestBid * (1 - impact)
		exit = expected * 0.99
		gross = (entry - exit) * float64(size)
	}

	fees := float64(size) * state.BestAsk * tradingFeeRate
	net := gross - fees
	if net <= 0 || entry <= 0 {
		return 0, 0
	}
	return net / (float64(size) * entry) * 100, uint64(net)
}

// Validate enforces the one-second cutoff and that the market still has the
// depth the opportunity was sized against.
func (s *FrontRunning) Validate(now time.Time, opp domain.ArbitrageOpportunity, states map[string]domain.MarketState) bool {
	if opp.Age(now) > frontRunFreshness {
		return false
	}
	state, ok := states[opp.SourceMarket]
	if !ok {
		return false
	}
	return state.Liquidity >= s.cfg.Markets.MinLiquidity
}
