// Package engine runs the arbitrage cycle: refresh market state, let each
// strategy detect, re-validate against live data, score, then build, submit,
// and confirm at most one transaction per cycle.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arblab/solarbot/internal/config"
	"github.com/arblab/solarbot/internal/domain"
	"github.com/arblab/solarbot/internal/market"
	"github.com/arblab/solarbot/internal/profit"
	"github.com/arblab/solarbot/internal/solana"
	"github.com/arblab/solarbot/internal/strategy"
	"github.com/arblab/solarbot/internal/txbuilder"
)

// State is the engine's position in the execution cycle.
type State string

const (
	StateIdle       State = "idle"
	StateRefreshing State = "refreshing"
	StateDetecting  State = "detecting"
	StateValidating State = "validating"
	StateScoring    State = "scoring"
	StateBuilding   State = "building"
	StateSubmitting State = "submitting"
	StateConfirming State = "confirming"
)

const confirmTimeout = 30 * time.Second

// Recorder journals execution results and in-flight signatures. Optional;
// the engine works with a nil recorder.
type Recorder interface {
	Record(ctx context.Context, result domain.ExecutionResult)
	MarkPending(ctx context.Context, signature string) bool
	ClearPending(ctx context.Context, signature string)
}

// Engine drives detection and execution. One transaction in flight at a
// time; a failed cycle backs off exponentially before the next attempt.
type Engine struct {
	cfg        *config.Config
	cache      *market.Cache
	strategies []strategy.Strategy
	byName     map[string]strategy.Strategy
	calc       *profit.Calculator
	builder    *txbuilder.Builder
	rpc        *solana.Client
	recorder   Recorder
	logger     *slog.Logger

	monitor bool

	mu         sync.Mutex
	state      State
	volumeDay  time.Time
	volumeUsed uint64
}

func New(cfg *config.Config, cache *market.Cache, strategies []strategy.Strategy, calc *profit.Calculator, builder *txbuilder.Builder, rpc *solana.Client, recorder Recorder, logger *slog.Logger) *Engine {
	byName := make(map[string]strategy.Strategy, len(strategies))
	for _, s := range strategies {
		byName[s.Name()] = s
	}
	return &Engine{
		cfg:        cfg,
		cache:      cache,
		strategies: strategies,
		byName:     byName,
		calc:       calc,
		builder:    builder,
		rpc:        rpc,
		recorder:   recorder,
		logger:     logger.With(slog.String("component", "engine")),
		monitor:    cfg.Mode == "monitor",
		state:      StateIdle,
	}
}

// State returns the current cycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Run executes cycles until ctx is cancelled. Cycle errors never stop the
// engine; they widen the pause before the next cycle up to the configured
// ceiling.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting",
		"mode", e.cfg.Mode,
		"strategies", len(e.strategies),
		"poll_interval", e.cfg.Engine.PollInterval.Duration)

	backoff := e.cfg.Engine.Backoff.Duration
	for {
		err := e.cycle(ctx)
		e.setState(StateIdle)
		if ctx.Err() != nil {
			e.logger.Info("engine stopping")
			return ctx.Err()
		}

		pause := e.cfg.Engine.PollInterval.Duration
		if err != nil {
			e.logger.Warn("cycle failed", "error", err, "backoff", backoff)
			pause = backoff
			backoff *= 2
			if max := e.cfg.Engine.MaxBackoff.Duration; backoff > max {
				backoff = max
			}
		} else {
			backoff = e.cfg.Engine.Backoff.Duration
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping")
			return ctx.Err()
		case <-time.After(pause):
		}
	}
}

func (e *Engine) cycle(ctx context.Context) error {
	e.setState(StateRefreshing)
	if failures := e.cache.RefreshAll(ctx); failures == len(e.cache.Listings()) {
		return fmt.Errorf("%w: all %d markets failed to refresh", domain.ErrNetwork, failures)
	}

	e.setState(StateDetecting)
	opps := e.detect(ctx)
	if len(opps) == 0 {
		return nil
	}

	e.setState(StateValidating)
	snapshot := e.cache.Snapshot()
	now := time.Now()
	valid := opps[:0]
	for _, opp := range opps {
		if e.validate(now, opp, snapshot) {
			valid = append(valid, opp)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	e.setState(StateScoring)
	best, ok := e.score(valid, snapshot)
	if !ok {
		return nil
	}

	e.logger.Info("opportunity selected",
		"opportunity", best.ID,
		"strategy", best.Strategy,
		"pair", best.Pair.String(),
		"profit_pct", best.ProfitPercentage,
		"amount", best.RequiredAmount)

	if e.monitor {
		return nil
	}

	result := e.execute(ctx, best, snapshot)
	if e.recorder != nil {
		e.recorder.Record(ctx, result)
	}
	if result.Success {
		e.logger.Info("execution succeeded",
			"opportunity", result.OpportunityID,
			"signature", result.TransactionSignature,
			"profit", result.ProfitRealized,
			"elapsed_ms", result.ExecutionTimeMs)
	} else {
		e.logger.Warn("execution failed",
			"opportunity", result.OpportunityID,
			"error", result.Error,
			"elapsed_ms", result.ExecutionTimeMs)
	}
	return nil
}

// detect fans the fresh snapshot out to every strategy. A failing strategy
// loses its cycle, not the engine's.
func (e *Engine) detect(ctx context.Context) []domain.ArbitrageOpportunity {
	states := e.cache.FreshStates()
	var opps []domain.ArbitrageOpportunity
	for _, s := range e.strategies {
		found, err := s.Analyze(ctx, states)
		if err != nil {
			e.logger.Warn("strategy analysis failed", "strategy", s.Name(), "error", err)
			continue
		}
		opps = append(opps, found...)
	}
	return opps
}

// validate re-checks an opportunity against live data just before scoring:
// global and strategy-specific staleness, every trade leg's market fresh,
// and the security gates.
func (e *Engine) validate(now time.Time, opp domain.ArbitrageOpportunity, states map[string]domain.MarketState) bool {
	if opp.Age(now) > e.cfg.Markets.MaxAge.Duration {
		return false
	}
	strat, ok := e.byName[opp.Strategy]
	if !ok {
		return false
	}
	if opp.Age(now) > strat.Freshness() {
		return false
	}
	for _, step := range opp.Route {
		if step.Kind != domain.StepTrade {
			continue
		}
		if _, ok := states[step.Market]; !ok {
			return false
		}
		if !e.cache.IsFresh(step.Market) {
			return false
		}
	}
	if !e.securityCheck(opp) {
		return false
	}
	return strat.Validate(now, opp, states)
}

// securityCheck enforces the configured protections per opportunity. A
// misconfigured shield fails closed.
func (e *Engine) securityCheck(opp domain.ArbitrageOpportunity) bool {
	sec := e.cfg.Security
	if sec.MevProtection.Enabled && sec.MevProtection.ProtectionLevel <= 0 {
		e.logger.Warn("rejecting opportunity: MEV protection enabled without a level", "opportunity", opp.ID)
		return false
	}
	if e.calc.RawSlippage(float64(opp.RequiredAmount)) > e.cfg.Risk.SlippageTolerance {
		e.logger.Warn("rejecting opportunity: expected slippage above tolerance",
			"opportunity", opp.ID, "amount", opp.RequiredAmount)
		return false
	}
	if sec.QuantumSecurity {
		for _, step := range opp.Route {
			if step.Kind != domain.StepTrade {
				continue
			}
			if err := solana.ValidatePubkey(step.Market); err != nil {
				e.logger.Warn("rejecting opportunity: market key failed validation",
					"opportunity", opp.ID, "market", step.Market, "error", err)
				return false
			}
		}
	}
	if opp.RequiredAmount > e.cfg.Execution.MaxPositionSize {
		return false
	}
	if !e.volumeAllows(opp.RequiredAmount) {
		e.logger.Warn("rejecting opportunity: daily volume limit reached",
			"opportunity", opp.ID, "amount", opp.RequiredAmount)
		return false
	}
	return true
}

// volumeAllows checks the daily executed-volume budget. The counter resets
// at the first check of each new UTC day.
func (e *Engine) volumeAllows(amount uint64) bool {
	limit := e.cfg.Risk.DailyVolumeLimit
	if limit == 0 {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	day := time.Now().UTC().Truncate(24 * time.Hour)
	if !day.Equal(e.volumeDay) {
		e.volumeDay = day
		e.volumeUsed = 0
	}
	return e.volumeUsed+amount <= limit
}

func (e *Engine) addVolume(amount uint64) {
	e.mu.Lock()
	e.volumeUsed += amount
	e.mu.Unlock()
}

// score keeps only opportunities the calculator accepts and returns the most
// profitable of them.
func (e *Engine) score(opps []domain.ArbitrageOpportunity, states map[string]domain.MarketState) (domain.ArbitrageOpportunity, bool) {
	var best domain.ArbitrageOpportunity
	found := false
	for _, opp := range opps {
		if !e.calc.IsProfitable(opp, states) {
			continue
		}
		if !found || opp.ProfitPercentage > best.ProfitPercentage {
			best = opp
			found = true
		}
	}
	return best, found
}

// execute builds, simulates, submits, and confirms one transaction. A failed
// simulation is never submitted.
func (e *Engine) execute(ctx context.Context, opp domain.ArbitrageOpportunity, states map[string]domain.MarketState) domain.ExecutionResult {
	start := time.Now()
	fail := func(err error) domain.ExecutionResult {
		return domain.ExecutionResult{
			OpportunityID:   opp.ID,
			Success:         false,
			Error:           err.Error(),
			ExecutionTimeMs: time.Since(start).Milliseconds(),
			CompletedAt:     time.Now(),
		}
	}

	e.setState(StateBuilding)
	blockhash, err := e.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return fail(fmt.Errorf("blockhash: %w", err))
	}
	tx, err := e.builder.Build(opp, states, blockhash)
	if err != nil {
		return fail(err)
	}
	if e.cfg.Security.Guards.SignatureVerification && !tx.Signed() {
		return fail(fmt.Errorf("%w: transaction is unsigned", domain.ErrSecurityViolation))
	}

	e.setState(StateSubmitting)
	encoded, err := tx.Base64()
	if err != nil {
		return fail(fmt.Errorf("encode: %w", err))
	}
	if err := e.rpc.SimulateTransaction(ctx, encoded); err != nil {
		return fail(fmt.Errorf("simulation: %w", err))
	}
	signature, err := e.rpc.SendTransaction(ctx, encoded)
	if err != nil {
		return fail(fmt.Errorf("submit: %w", err))
	}
	if e.recorder != nil && !e.recorder.MarkPending(ctx, signature) {
		e.logger.Warn("signature already pending, not confirming twice", "signature", signature)
	}

	e.setState(StateConfirming)
	confirmCtx, cancel := context.WithTimeout(ctx, confirmTimeout)
	err = e.rpc.ConfirmTransaction(confirmCtx, signature, e.cfg.Security.Guards.RequireConfirmations)
	cancel()
	if e.recorder != nil {
		e.recorder.ClearPending(ctx, signature)
	}
	if err != nil {
		result := fail(fmt.Errorf("confirm %s: %w", signature, err))
		result.TransactionSignature = signature
		return result
	}

	e.addVolume(opp.RequiredAmount)
	return domain.ExecutionResult{
		OpportunityID:        opp.ID,
		Success:              true,
		ProfitRealized:       opp.EstimatedProfit,
		TransactionSignature: signature,
		ExecutionTimeMs:      time.Since(start).Milliseconds(),
		CompletedAt:          time.Now(),
	}
}
