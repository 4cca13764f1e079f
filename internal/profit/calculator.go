// Package profit implements the cost and risk model that gates execution:
// per-leg slippage and fees, borrow fees, gas, and the profitability verdict.
package profit

import (
	"fmt"

	"github.com/arblab/solarbot/internal/config"
	"github.com/arblab/solarbot/internal/domain"
)

// Model constants. The slippage model is deliberately simple and replaceable;
// its contract is "monotonic non-decreasing in size, capped at the configured
// tolerance", not this exact formula.
const (
	tradingFeeRate   = 0.003  // 0.3% per trade leg
	flashLoanFeeRate = 0.0009 // 0.09% when the route borrows
	protocolFeeRate  = 0.001  // 0.1% of required amount
	baseLiquidity    = 1_000_000_000.0 // one SOL in lamports
	slippageFactor   = 0.1

	gasBase           = 5_000
	gasPerInstruction = 1_000
	gasFlashLoan      = 2_000
	gasMevProtection  = 1_000
)

// Calculator scores opportunities against the loaded settings. It is pure:
// every method is a function of its arguments and the shared read-only
// config.
type Calculator struct {
	cfg *config.Config
}

// NewCalculator creates a Calculator sharing the engine's validated config.
func NewCalculator(cfg *config.Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// TotalProfit flows the required amount through the route leg by leg,
// applying slippage and the venue fee to each, and returns what remains over
// the starting amount after borrow fees, protocol fees, and gas. Every
// strategy route returns to its starting unit (buy/sell legs come in
// opposite-direction pairs), so the difference is well-defined.
func (c *Calculator) TotalProfit(opp domain.ArbitrageOpportunity, states map[string]domain.MarketState) (float64, error) {
	initial := float64(opp.RequiredAmount)
	amount := initial

	for _, step := range opp.Route {
		if step.Kind != domain.StepTrade {
			continue
		}
		if _, ok := states[step.Market]; !ok {
			return 0, fmt.Errorf("route leg market %s: %w", step.Market, domain.ErrMarketNotFound)
		}
		amount = c.stepOutput(step, amount)
	}

	total := amount - initial
	total -= c.TotalFees(opp)
	total -= float64(c.GasEstimate(opp))
	return total, nil
}

// stepOutput applies slippage and the venue fee to one leg and returns the
// amount carried into the next leg.
func (c *Calculator) stepOutput(step domain.TradeStep, input float64) float64 {
	slip := c.Slippage(input)
	switch step.Side {
	case domain.SideBuy:
		effective := step.Price * (1 + slip)
		if effective <= 0 {
			return 0
		}
		return input / effective * (1 - tradingFeeRate)
	case domain.SideSell:
		effective := step.Price * (1 - slip)
		return input * effective * (1 - tradingFeeRate)
	}
	return input
}

// RawSlippage is the uncapped linear estimate: trade size relative to the
// liquidity baseline. The engine's security gate compares this against the
// configured tolerance; pricing uses the capped Slippage.
func (c *Calculator) RawSlippage(amount float64) float64 {
	return amount / baseLiquidity * slippageFactor
}

// Slippage is RawSlippage capped at the configured tolerance.
func (c *Calculator) Slippage(amount float64) float64 {
	slip := c.RawSlippage(amount)
	if max := c.cfg.Risk.SlippageTolerance; slip > max {
		return max
	}
	return slip
}

// TotalFees sums per-leg trading fees, the flash-loan fee when the route
// borrows, and the protocol fee.
func (c *Calculator) TotalFees(opp domain.ArbitrageOpportunity) float64 {
	fees := 0.0
	for _, step := range opp.Route {
		if step.Kind == domain.StepTrade {
			fees += float64(step.Amount) * tradingFeeRate
		}
	}
	if opp.Borrowed() {
		fees += float64(opp.RequiredAmount) * flashLoanFeeRate
	}
	fees += float64(opp.RequiredAmount) * protocolFeeRate
	return fees
}

// GasEstimate returns the fixed-plus-per-instruction gas cost in lamports.
func (c *Calculator) GasEstimate(opp domain.ArbitrageOpportunity) uint64 {
	cost := uint64(gasBase)
	cost += uint64(len(opp.Route)) * gasPerInstruction
	if opp.Borrowed() {
		cost += gasFlashLoan
	}
	if c.cfg.Security.MevProtection.Enabled {
		cost += gasMevProtection
	}
	return cost
}

// IsProfitable applies the three execution gates: absolute profit floor,
// risk-adjusted profit floor, and position-size cap. All must hold. "Not
// profitable" is an expected outcome, so failures (including a missing
// market state) reject silently rather than erroring.
func (c *Calculator) IsProfitable(opp domain.ArbitrageOpportunity, states map[string]domain.MarketState) bool {
	if opp.RequiredAmount > c.cfg.Execution.MaxPositionSize {
		return false
	}
	if opp.RequiredAmount == 0 {
		return false
	}

	total, err := c.TotalProfit(opp, states)
	if err != nil {
		return false
	}
	if total < c.cfg.Execution.MinProfitThreshold {
		return false
	}
	if total/float64(opp.RequiredAmount) < c.cfg.Risk.MaxLossThreshold {
		return false
	}
	return true
}
