package profit

import (
	"testing"
	"time"

	"github.com/arblab/solarbot/internal/config"
	"github.com/arblab/solarbot/internal/domain"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	return &cfg
}

func crossVenueOpp(amount uint64) (domain.ArbitrageOpportunity, map[string]domain.MarketState) {
	// Buy at 10.10 on mktA, sell into a 10.75 bid on mktB: a 6.4% spread,
	// wide enough to survive slippage on both legs plus fees and gas at the
	// sizes the tests use.
	states := map[string]domain.MarketState{
		"mktA": {Market: "mktA", Venue: "serum", BestBid: 10.05, BestAsk: 10.10, Liquidity: 10_000_000, LastUpdate: time.Now()},
		"mktB": {Market: "mktB", Venue: "orca", BestBid: 10.75, BestAsk: 10.80, Liquidity: 10_000_000, LastUpdate: time.Now()},
	}
	opp := domain.ArbitrageOpportunity{
		ID:             "opp-1",
		Strategy:       "flash_loan",
		SourceMarket:   "mktA",
		TargetMarket:   "mktB",
		RequiredAmount: amount,
		Route: []domain.TradeStep{
			{Kind: domain.StepTrade, Market: "mktA", Side: domain.SideBuy, Amount: amount, Price: 10.10},
			{Kind: domain.StepTrade, Market: "mktB", Side: domain.SideSell, Amount: amount, Price: 10.75},
		},
		Timestamp: time.Now(),
	}
	return opp, states
}

func TestSlippageMonotoneAndCapped(t *testing.T) {
	calc := NewCalculator(testConfig())

	prev := -1.0
	for _, amount := range []float64{0, 100, 1_000, 10_000, 100_000, 1_000_000} {
		slip := calc.Slippage(amount)
		if slip < prev {
			t.Errorf("slippage decreased at amount %v: %v < %v", amount, slip, prev)
		}
		prev = slip
	}

	cap := testConfig().Risk.SlippageTolerance
	if got := calc.Slippage(1e12); got != cap {
		t.Errorf("slippage at huge size = %v, want cap %v", got, cap)
	}
	if got := calc.RawSlippage(1e12); got <= cap {
		t.Errorf("raw slippage at huge size = %v, must exceed the cap", got)
	}
	if got := calc.Slippage(1_000); got != 1_000/1_000_000_000.0*0.1 {
		t.Errorf("small-size slippage = %v", got)
	}
}

func TestTotalProfitOnWideSpread(t *testing.T) {
	calc := NewCalculator(testConfig())
	opp, states := crossVenueOpp(1_000_000)

	// Slippage at this size is 1e-4: 1e6/(10.10*1.0001)*0.997 base out, sold
	// at 10.75 less slippage and the trade fee, minus 7_000 fees and 8_000
	// gas.
	total, err := calc.TotalProfit(opp, states)
	if err != nil {
		t.Fatalf("TotalProfit: %v", err)
	}
	if total <= 0 {
		t.Errorf("wide spread at depth should be net profitable, got %v", total)
	}
	if total < 40_000 || total > 46_000 {
		t.Errorf("total profit = %v, want roughly 42_900", total)
	}
}

func TestTotalProfitMissingMarket(t *testing.T) {
	calc := NewCalculator(testConfig())
	opp, states := crossVenueOpp(100_000)
	delete(states, "mktB")

	if _, err := calc.TotalProfit(opp, states); err == nil {
		t.Fatal("expected error for route leg without market state")
	}
}

func TestTotalProfitSkipsBorrowLegs(t *testing.T) {
	calc := NewCalculator(testConfig())
	opp, states := crossVenueOpp(100_000)
	withBorrow := opp
	withBorrow.Route = append([]domain.TradeStep{
		{Kind: domain.StepBorrow, Market: "solend", Amount: opp.RequiredAmount},
	}, opp.Route...)
	withBorrow.Route = append(withBorrow.Route,
		domain.TradeStep{Kind: domain.StepRepay, Market: "solend", Amount: opp.RequiredAmount})

	// Borrow and repay legs have no market state and zero price; the walk
	// must not error or divide by them.
	total, err := calc.TotalProfit(withBorrow, states)
	if err != nil {
		t.Fatalf("TotalProfit with borrow route: %v", err)
	}

	plain, err := calc.TotalProfit(opp, states)
	if err != nil {
		t.Fatal(err)
	}
	// The borrowed variant pays the flash-loan fee and extra gas on top.
	if total >= plain {
		t.Errorf("borrowed route should net less: %v >= %v", total, plain)
	}
}

func TestGasEstimate(t *testing.T) {
	cfg := testConfig()
	calc := NewCalculator(cfg)
	opp, _ := crossVenueOpp(100_000)

	want := uint64(5_000 + 2*1_000 + 1_000) // base + 2 legs + MEV (enabled by default)
	if got := calc.GasEstimate(opp); got != want {
		t.Errorf("gas = %d, want %d", got, want)
	}

	cfg.Security.MevProtection.Enabled = false
	if got := calc.GasEstimate(opp); got != want-1_000 {
		t.Errorf("gas without MEV = %d, want %d", got, want-1_000)
	}

	opp.Route = append([]domain.TradeStep{{Kind: domain.StepBorrow, Market: "solend"}}, opp.Route...)
	if got := calc.GasEstimate(opp); got != 5_000+3*1_000+2_000 {
		t.Errorf("gas with borrow = %d", got)
	}
}

func TestIsProfitableGates(t *testing.T) {
	cfg := testConfig()
	calc := NewCalculator(cfg)

	t.Run("accepts good opportunity", func(t *testing.T) {
		opp, states := crossVenueOpp(1_000_000)
		if !calc.IsProfitable(opp, states) {
			t.Error("profitable opportunity rejected")
		}
	})

	t.Run("rejects when gas swamps the edge", func(t *testing.T) {
		// Same spread, but at a size where fixed gas exceeds the gross edge.
		opp, states := crossVenueOpp(1_000)
		if calc.IsProfitable(opp, states) {
			t.Error("dust-sized opportunity accepted")
		}
	})

	t.Run("position size cap", func(t *testing.T) {
		opp, states := crossVenueOpp(cfg.Execution.MaxPositionSize + 1)
		if calc.IsProfitable(opp, states) {
			t.Error("oversized position accepted")
		}
	})

	t.Run("zero amount", func(t *testing.T) {
		opp, states := crossVenueOpp(0)
		if calc.IsProfitable(opp, states) {
			t.Error("zero-size opportunity accepted")
		}
	})

	t.Run("missing market rejects silently", func(t *testing.T) {
		opp, states := crossVenueOpp(100_000)
		delete(states, "mktA")
		if calc.IsProfitable(opp, states) {
			t.Error("opportunity with missing market accepted")
		}
	})

	t.Run("negative spread rejected", func(t *testing.T) {
		opp, states := crossVenueOpp(100_000)
		// Sell side collapses below the buy price.
		b := states["mktB"]
		b.BestBid = 10.00
		states["mktB"] = b
		opp.Route[1].Price = 10.00
		if calc.IsProfitable(opp, states) {
			t.Error("losing trade accepted")
		}
	})
}

func TestTotalFees(t *testing.T) {
	calc := NewCalculator(testConfig())
	opp, _ := crossVenueOpp(100_000)

	plain := calc.TotalFees(opp)
	want := 2*100_000*0.003 + 100_000*0.001
	if plain != want {
		t.Errorf("fees = %v, want %v", plain, want)
	}

	opp.Route = append([]domain.TradeStep{{Kind: domain.StepBorrow, Market: "solend", Amount: 100_000}}, opp.Route...)
	borrowed := calc.TotalFees(opp)
	if borrowed != want+100_000*0.0009 {
		t.Errorf("borrowed fees = %v", borrowed)
	}
}
