package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/arblab/solarbot/internal/domain"
	"github.com/arblab/solarbot/internal/profit"
)

func TestRoundTripAnalyzeRejectsNormalBooks(t *testing.T) {
	cfg := testConfig()
	s := NewRoundTrip(cfg, profit.NewCalculator(cfg), testLogger())

	// Buying the ask and selling the bid in the same book always pays the
	// spread plus fees, so an orderly market must yield nothing.
	states := []domain.MarketState{
		solUsdcState("mktA", "serum", 10.05, 10.10, 10_000_000),
		solUsdcState("mktB", "orca", 99.90, 100.10, 50_000_000),
	}
	opps, err := s.Analyze(context.Background(), states)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(opps) != 0 {
		t.Errorf("orderly books produced %d opportunities", len(opps))
	}
}

func TestRoundTripSuitability(t *testing.T) {
	cfg := testConfig()
	s := NewRoundTrip(cfg, profit.NewCalculator(cfg), testLogger())

	cases := []struct {
		name  string
		state domain.MarketState
		want  bool
	}{
		{"orderly book", solUsdcState("mkt", "serum", 10.05, 10.10, 10_000_000), true},
		{"crossed book", solUsdcState("mkt", "serum", 10.20, 10.10, 10_000_000), false},
		{"zero bid", solUsdcState("mkt", "serum", 0, 10.10, 10_000_000), false},
		{"thin book", solUsdcState("mkt", "serum", 10.05, 10.10, 500_000), false},
		{"wide spread", solUsdcState("mkt", "serum", 9.00, 10.10, 10_000_000), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.suitable(tc.state); got != tc.want {
				t.Errorf("suitable = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRoundTripTradeSize(t *testing.T) {
	cfg := testConfig()
	s := NewRoundTrip(cfg, profit.NewCalculator(cfg), testLogger())

	// Depth-bounded below the position cap.
	state := solUsdcState("mkt", "serum", 10.05, 10.10, 50_000_000)
	if got := s.tradeSize(state); got != 5_000_000 {
		t.Errorf("tradeSize = %d, want 5_000_000", got)
	}

	// Position cap binds on a very deep book.
	cfg.Execution.MaxPositionSize = 1_000_000
	if got := s.tradeSize(state); got != 1_000_000 {
		t.Errorf("capped tradeSize = %d, want 1_000_000", got)
	}
}

func TestRoundTripValidate(t *testing.T) {
	cfg := testConfig()
	s := NewRoundTrip(cfg, profit.NewCalculator(cfg), testLogger())

	now := time.Now()
	state := solUsdcState("mkt", "serum", 10.05, 10.10, 10_000_000)
	opp := domain.ArbitrageOpportunity{
		ID:               "opp",
		Strategy:         "round_trip",
		SourceMarket:     "mkt",
		ProfitPercentage: 2.0,
		Timestamp:        now,
	}
	states := statesByMarket(state)

	if !s.Validate(now, opp, states) {
		t.Error("fresh opportunity on a suitable market rejected")
	}
	if s.Validate(now.Add(6*time.Second), opp, states) {
		t.Error("opportunity past the freshness window accepted")
	}
	if s.Validate(now, opp, map[string]domain.MarketState{}) {
		t.Error("opportunity with vanished market accepted")
	}

	belowFloor := opp
	belowFloor.ProfitPercentage = 0.5
	if s.Validate(now, belowFloor, states) {
		t.Error("opportunity below the profit floor accepted")
	}
}
