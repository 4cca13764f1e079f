package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "monitor"

[execution]
min_profit_pct = 2.5
strategies = ["flash_loan"]

[engine]
poll_interval = "250ms"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "monitor" {
		t.Errorf("mode = %q, want monitor", cfg.Mode)
	}
	if cfg.Execution.MinProfitPct != 2.5 {
		t.Errorf("min_profit_pct = %v, want 2.5", cfg.Execution.MinProfitPct)
	}
	if got := cfg.Engine.PollInterval.Duration; got != 250*time.Millisecond {
		t.Errorf("poll_interval = %v, want 250ms", got)
	}

	// Untouched fields keep their defaults.
	if cfg.Execution.MaxPositionSize != Defaults().Execution.MaxPositionSize {
		t.Errorf("max_position_size lost its default")
	}
	if len(cfg.Network.RPCEndpoints) == 0 {
		t.Error("rpc endpoints default was dropped")
	}
}

func TestLoadDecodesMarketUniverse(t *testing.T) {
	path := writeConfig(t, `
[[markets.tokens]]
symbol = "SOL"
address = "So11111111111111111111111111111111111111112"
decimals = 9

[[markets.tokens]]
symbol = "USDC"
address = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
decimals = 6

[[markets.listings]]
venue = "orca"
market = "9wFFyRfZBsuAha4YcuxcXLKwMxJR43S7fPfQLusDBzvT"
base = "SOL"
quote = "USDC"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Markets.Tokens) != 2 || len(cfg.Markets.Listings) != 1 {
		t.Fatalf("universe not decoded: %d tokens, %d listings",
			len(cfg.Markets.Tokens), len(cfg.Markets.Listings))
	}
	if cfg.Markets.Listings[0].Venue != "orca" {
		t.Errorf("listing venue = %q", cfg.Markets.Listings[0].Venue)
	}
	// Default venue programs survive the merge.
	if cfg.Venues.Programs["orca"] == "" {
		t.Error("default orca program was dropped by the merge")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SOLARBOT_MODE", "monitor")
	t.Setenv("SOLARBOT_MIN_PROFIT_PCT", "3.5")
	t.Setenv("SOLARBOT_MAX_POSITION_SIZE", "42")
	t.Setenv("SOLARBOT_POLL_INTERVAL", "2s")
	t.Setenv("SOLARBOT_STRATEGIES", "round_trip, front_running")
	t.Setenv("SOLARBOT_MEV_PROTECTION", "false")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	if cfg.Mode != "monitor" {
		t.Errorf("mode = %q", cfg.Mode)
	}
	if cfg.Execution.MinProfitPct != 3.5 {
		t.Errorf("min_profit_pct = %v", cfg.Execution.MinProfitPct)
	}
	if cfg.Execution.MaxPositionSize != 42 {
		t.Errorf("max_position_size = %d", cfg.Execution.MaxPositionSize)
	}
	if cfg.Engine.PollInterval.Duration != 2*time.Second {
		t.Errorf("poll_interval = %v", cfg.Engine.PollInterval.Duration)
	}
	want := []string{"round_trip", "front_running"}
	if len(cfg.Execution.Strategies) != len(want) {
		t.Fatalf("strategies = %v", cfg.Execution.Strategies)
	}
	for i := range want {
		if cfg.Execution.Strategies[i] != want[i] {
			t.Errorf("strategies[%d] = %q, want %q", i, cfg.Execution.Strategies[i], want[i])
		}
	}
	if cfg.Security.MevProtection.Enabled {
		t.Error("mev protection should be disabled by env override")
	}
}

func TestEnvOverrideIgnoresGarbage(t *testing.T) {
	t.Setenv("SOLARBOT_MAX_POSITION_SIZE", "not-a-number")
	cfg := Defaults()
	before := cfg.Execution.MaxPositionSize
	applyEnvOverrides(&cfg)
	if cfg.Execution.MaxPositionSize != before {
		t.Error("unparseable env value should not override the default")
	}
}
