package strategy

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/arblab/solarbot/internal/config"
	"github.com/arblab/solarbot/internal/domain"
	"github.com/arblab/solarbot/internal/profit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	return &cfg
}

var (
	solToken  = domain.Token{Address: "So11111111111111111111111111111111111111112", Symbol: "SOL", Decimals: 9}
	usdcToken = domain.Token{Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Symbol: "USDC", Decimals: 6}
)

func solUsdcState(market, venue string, bid, ask float64, liquidity uint64) domain.MarketState {
	return domain.MarketState{
		Market:     market,
		Venue:      venue,
		Base:       solToken,
		Quote:      usdcToken,
		BestBid:    bid,
		BestAsk:    ask,
		Liquidity:  liquidity,
		LastUpdate: time.Now(),
	}
}

func statesByMarket(states ...domain.MarketState) map[string]domain.MarketState {
	byMarket := make(map[string]domain.MarketState, len(states))
	for _, s := range states {
		byMarket[s.Market] = s
	}
	return byMarket
}

func TestSortByProfit(t *testing.T) {
	opps := []domain.ArbitrageOpportunity{
		{ID: "low", ProfitPercentage: 1.1},
		{ID: "high", ProfitPercentage: 4.5},
		{ID: "mid", ProfitPercentage: 2.3},
	}
	sortByProfit(opps)

	want := []string{"high", "mid", "low"}
	for i, id := range want {
		if opps[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, opps[i].ID, id)
		}
	}
}

func TestBuildStrategies(t *testing.T) {
	cfg := testConfig()
	calc := profit.NewCalculator(cfg)
	pending := &stubPending{}

	cfg.Execution.Strategies = []string{"round_trip", "flash_loan", "front_running"}
	strategies, err := Build(cfg, calc, pending, testLogger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(strategies) != 3 {
		t.Fatalf("built %d strategies, want 3", len(strategies))
	}
	for i, name := range cfg.Execution.Strategies {
		if strategies[i].Name() != name {
			t.Errorf("strategy %d = %s, want %s", i, strategies[i].Name(), name)
		}
	}
}

func TestBuildUnknownStrategy(t *testing.T) {
	cfg := testConfig()
	cfg.Execution.Strategies = []string{"momentum"}

	if _, err := Build(cfg, profit.NewCalculator(cfg), nil, testLogger()); err == nil {
		t.Fatal("expected error for unknown strategy name")
	}
}

func TestBuildFlashLoanDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Execution.Strategies = []string{"flash_loan"}
	cfg.Execution.FlashLoanEnabled = false

	if _, err := Build(cfg, profit.NewCalculator(cfg), nil, testLogger()); err == nil {
		t.Fatal("expected error when flash_loan is configured but disabled")
	}
}

func TestBuildFrontRunningNeedsFeed(t *testing.T) {
	cfg := testConfig()
	cfg.Execution.Strategies = []string{"front_running"}

	if _, err := Build(cfg, profit.NewCalculator(cfg), nil, testLogger()); err == nil {
		t.Fatal("expected error when front_running has no pending-swap source")
	}
}

func TestFreshnessWindows(t *testing.T) {
	cfg := testConfig()
	calc := profit.NewCalculator(cfg)

	cases := []struct {
		strategy Strategy
		want     time.Duration
	}{
		{NewRoundTrip(cfg, calc, testLogger()), 5 * time.Second},
		{NewFlashLoan(cfg, calc, testLogger()), 3 * time.Second},
		{NewFrontRunning(cfg, calc, &stubPending{}, testLogger()), 1 * time.Second},
	}
	for _, tc := range cases {
		if got := tc.strategy.Freshness(); got != tc.want {
			t.Errorf("%s freshness = %v, want %v", tc.strategy.Name(), got, tc.want)
		}
	}
}
