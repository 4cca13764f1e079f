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
	roundTripFreshness = 5 * time.Second
	networkFeeRate     = 0.000005
	liquidityShare     = 10 // trade at most 1/10 of available depth
)

// RoundTrip evaluates buy-then-sell within a single venue market's current
// spread. It only fires on tight, liquid books where the round trip clears
// fees despite crossing the spread twice.
type RoundTrip struct {
	cfg    *config.Config
	calc   *profit.Calculator
	logger *slog.Logger
}

// NewRoundTrip creates the same-venue round-trip strategy. Settings and the
// calculator are the engine's shared instances, never strategy-local copies.
func NewRoundTrip(cfg *config.Config, calc *profit.Calculator, logger *slog.Logger) *RoundTrip {
	return &RoundTrip{
		cfg:    cfg,
		calc:   calc,
		logger: logger.With(slog.String("strategy", "round_trip")),
	}
}

// Name returns the strategy identifier.
func (s *RoundTrip) Name() string { return "round_trip" }

// Freshness returns the round-trip re-validation cutoff.
func (s *RoundTrip) Freshness() time.Duration { return roundTripFreshness }

// Analyze scans every fresh market for a profitable same-venue round trip.
func (s *RoundTrip) Analyze(_ context.Context, states []domain.MarketState) ([]domain.ArbitrageOpportunity, error) {
	var opps []domain.ArbitrageOpportunity
	now := time.Now()

	for _, state := range states {
		opp, ok := s.analyzeMarket(state, now)
		if !ok {
			continue
		}
		opps = append(opps, opp)
	}

	sortByProfit(opps)
	return opps, nil
}

func (s *RoundTrip) analyzeMarket(state domain.MarketState, now time.Time) (domain.ArbitrageOpportunity, bool) {
	if !s.suitable(state) {
		return domain.ArbitrageOpportunity{}, false
	}

	size := s.tradeSize(state)
	if size == 0 {
		return domain.ArbitrageOpportunity{}, false
	}

	pct, estProfit := s.roundTripProfit(state, size)
	if pct < s.cfg.Execution.MinProfitPct {
		return domain.ArbitrageOpportunity{}, false
	}

	return domain.ArbitrageOpportunity{
		ID:               uuid.New().String(),
		Strategy:         s.Name(),
		SourceMarket:     state.Market,
		TargetMarket:     state.Market,
		Pair:             state.Pair(),
		ProfitPercentage: pct,
		RequiredAmount:   size,
		EstimatedProfit:  estProfit,
		Route: []domain.TradeStep{
			{Kind: domain.StepTrade, Market: state.Market, Side: domain.SideBuy, Amount: size, Price: state.BestAsk},
			{Kind: domain.StepTrade, Market: state.Market, Side: domain.SideSell, Amount: size, Price: state.BestBid},
		},
		Timestamp: now,
	}, true
}

// suitable rejects thin or wide markets before sizing.
func (s *RoundTrip) suitable(state domain.MarketState) bool {
	if state.Crossed() || state.BestBid <= 0 || state.BestAsk <= 0 {
		return false
	}
	if state.Liquidity < s.cfg.Markets.MinLiquidity {
		return false
	}
	return state.Spread() <= s.cfg.Markets.MaxSpread
}

func (s *RoundTrip) tradeSize(state domain.MarketState) uint64 {
	size := s.cfg.Execution.MaxPositionSize
	if cap := state.Liquidity / liquidityShare; cap < size {
		size = cap
	}
	return size
}

// roundTripProfit prices entry at the ask and exit at the bid, both adjusted
// for slippage, then subtracts trading and network fees.
func (s *RoundTrip) roundTripProfit(state domain.MarketState, size uint64) (pct float64, estProfit uint64) {
	slip := s.calc.Slippage(float64(size))
	entry := state.BestAsk * (1 + slip)
	exit := state.BestBid * (1 - slip)

	gross := (exit - entry) * float64(size)
	fees := float64(size)*tradingFeeRate + float64(size)*networkFeeRate
	net := gross - fees
	if net <= 0 || entry <= 0 {
		return 0, 0
	}
	return net / (float64(size) * entry) * 100, uint64(net)
}

// Validate re-checks freshness and that the market still supports the spread
// the opportunity was derived from.
func (s *RoundTrip) Validate(now time.Time, opp domain.ArbitrageOpportunity, states map[string]domain.MarketState) bool {
	if opp.Age(now) > roundTripFreshness {
		return false
	}
	state, ok := states[opp.SourceMarket]
	if !ok || !s.suitable(state) {
		return false
	}
	return opp.ProfitPercentage >= s.cfg.Execution.MinProfitPct
}

// tradingFeeRate mirrors the calculator's per-leg venue fee for strategy-side
// pre-filtering. The calculator remains the authority at scoring time.
const tradingFeeRate = 0.003
