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

const flashLoanFreshness = 3 * time.Second

// protocolRates are the per-protocol flash-loan fee rates. The cheapest
// available protocol is selected when building the borrow leg.
var protocolRates = map[domain.FlashLoanProtocol]float64{
	domain.ProtocolSolend:   0.0009,
	domain.ProtocolPort:     0.001,
	domain.ProtocolMarinade: 0.002,
}

// FlashLoan detects cross-market spreads wide enough to cover a borrowed
// round trip: borrow, buy on the cheap market, sell on the rich one, repay;
// all inside one atomic transaction.
type FlashLoan struct {
	cfg    *config.Config
	calc   *profit.Calculator
	logger *slog.Logger
}

// NewFlashLoan creates the borrowed-capital strategy sharing the engine's
// settings and calculator.
func NewFlashLoan(cfg *config.Config, calc *profit.Calculator, logger *slog.Logger) *FlashLoan {
	return &FlashLoan{
		cfg:    cfg,
		calc:   calc,
		logger: logger.With(slog.String("strategy", "flash_loan")),
	}
}

// Name returns the strategy identifier.
func (s *FlashLoan) Name() string { return "flash_loan" }

// Freshness returns the borrowed-capital re-validation cutoff. Borrow routes
// decay fast: the repay leg leaves no room for price drift.
func (s *FlashLoan) Freshness() time.Duration { return flashLoanFreshness }

// Analyze scans every ordered pair of distinct markets quoting the same
// token pair.
func (s *FlashLoan) Analyze(_ context.Context, states []domain.MarketState) ([]domain.ArbitrageOpportunity, error) {
	var opps []domain.ArbitrageOpportunity
	now := time.Now()

	for i := range states {
		for j := range states {
			if i == j {
				continue
			}
			buy, sell := states[i], states[j]
			if buy.Pair() != sell.Pair() {
				continue
			}
			opp, ok := s.analyzePair(buy, sell, now)
			if !ok {
				continue
			}
			opps = append(opps, opp)
		}
	}

	sortByProfit(opps)
	return opps, nil
}

func (s *FlashLoan) analyzePair(buy, sell domain.MarketState, now time.Time) (domain.ArbitrageOpportunity, bool) {
	if !s.suitable(buy, sell) {
		return domain.ArbitrageOpportunity{}, false
	}

	size := s.tradeSize(buy, sell)
	if size == 0 {
		return domain.ArbitrageOpportunity{}, false
	}

	pct, estProfit := s.flashLoanProfit(buy, sell, size)
	if pct < s.cfg.Execution.MinProfitPct {
		return domain.ArbitrageOpportunity{}, false
	}

	protocol := cheapestProtocol()
	repay := size + uint64(float64(size)*protocolRates[protocol])

	return domain.ArbitrageOpportunity{
		ID:               uuid.New().String(),
		Strategy:         s.Name(),
		SourceMarket:     buy.Market,
		TargetMarket:     sell.Market,
		Pair:             buy.Pair(),
		ProfitPercentage: pct,
		RequiredAmount:   size,
		EstimatedProfit:  estProfit,
		Route: []domain.TradeStep{
			{Kind: domain.StepBorrow, Market: string(protocol), Side: domain.SideBuy, Amount: size},
			{Kind: domain.StepTrade, Market: buy.Market, Side: domain.SideBuy, Amount: size, Price: buy.BestAsk},
			{Kind: domain.StepTrade, Market: sell.Market, Side: domain.SideSell, Amount: size, Price: sell.BestBid},
			{Kind: domain.StepRepay, Market: string(protocol), Side: domain.SideSell, Amount: repay},
		},
		Timestamp: now,
	}, true
}

// suitable requires liquidity on both legs and a spread that covers the
// worst-case borrow fee on top of the minimum profit.
func (s *FlashLoan) suitable(buy, sell domain.MarketState) bool {
	minLiq := s.cfg.Markets.MinLiquidity
	if buy.Liquidity < minLiq || sell.Liquidity < minLiq {
		return false
	}
	if buy.BestAsk <= 0 {
		return false
	}
	spread := (sell.BestBid - buy.BestAsk) / buy.BestAsk
	if spread <= 0 {
		return false
	}
	return spread*100 >= worstCaseRate()*100+s.cfg.Execution.MinProfitPct
}

// tradeSize is bounded by both markets' depth, the position cap, and the
// protocol's loan limit.
func (s *FlashLoan) tradeSize(buy, sell domain.MarketState) uint64 {
	size := buy.Liquidity
	if sell.Liquidity < size {
		size = sell.Liquidity
	}
	if s.cfg.Execution.MaxPositionSize < size {
		size = s.cfg.Execution.MaxPositionSize
	}
	if limit := s.cfg.Execution.FlashLoanLimit; limit > 0 && limit < size {
		size = limit
	}
	return size
}

func (s *FlashLoan) flashLoanProfit(buy, sell domain.MarketState, size uint64) (pct float64, estProfit uint64) {
	entry := float64(size) * buy.BestAsk
	exit := float64(size) * sell.BestBid

	flashFee := float64(size) * protocolRates[cheapestProtocol()]
	tradingFees := float64(size)*buy.BestAsk*tradingFeeRate + float64(size)*sell.BestBid*tradingFeeRate

	net := exit - entry - flashFee - tradingFees
	if net <= 0 || entry <= 0 {
		return 0, 0
	}
	return net / entry * 100, uint64(net)
}

// Validate re-checks freshness and that both markets still support the
// borrow round trip.
func (s *FlashLoan) Validate(now time.Time, opp domain.ArbitrageOpportunity, states map[string]domain.MarketState) bool {
	if opp.Age(now) > flashLoanFreshness {
		return false
	}
	buy, ok := states[opp.SourceMarket]
	if !ok {
		return false
	}
	sell, ok := states[opp.TargetMarket]
	if !ok {
		return false
	}
	return s.suitable(buy, sell)
}

// cheapestProtocol returns the protocol with the lowest fee rate.
func cheapestProtocol() domain.FlashLoanProtocol {
	var best domain.FlashLoanProtocol
	lowest := 2.0
	for p, rate := range protocolRates {
		if rate < lowest {
			lowest = rate
			best = p
		}
	}
	return best
}

// worstCaseRate returns the highest protocol fee rate, used when judging
// whether a spread can cover the borrow in the worst case.
func worstCaseRate() float64 {
	highest := 0.0
	for _, rate := range protocolRates {
		if rate > highest {
			highest = rate
		}
	}
	return highest
}
