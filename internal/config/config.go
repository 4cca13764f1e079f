// Package config defines the top-level configuration for the arbitrage bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SOLARBOT_* environment
// variables. The loaded value is shared read-only across every component for
// the engine's lifetime.
type Config struct {
	Network   NetworkConfig   `toml:"network"`
	Wallet    WalletConfig    `toml:"wallet"`
	Markets   MarketsConfig   `toml:"markets"`
	Venues    VenuesConfig    `toml:"venues"`
	Execution ExecutionConfig `toml:"execution"`
	Risk      RiskConfig      `toml:"risk"`
	Security  SecurityConfig  `toml:"security"`
	Engine    EngineConfig    `toml:"engine"`
	Feed      FeedConfig      `toml:"feed"`
	Journal   JournalConfig   `toml:"journal"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// NetworkConfig holds Solana RPC connection parameters.
type NetworkConfig struct {
	RPCEndpoints   []string `toml:"rpc_endpoints"`
	WSEndpoint     string   `toml:"ws_endpoint"`
	MaxRetries     int      `toml:"max_retries"`
	RequestTimeout duration `toml:"request_timeout"`
	ConfirmTimeout duration `toml:"confirm_timeout"`
}

// WalletConfig holds signing credential parameters. The keypair file is a
// Solana CLI style JSON byte array or a base58-encoded 64-byte secret.
type WalletConfig struct {
	KeypairPath string `toml:"keypair_path"`
}

// MarketsConfig holds the market universe and per-market sanity limits.
type MarketsConfig struct {
	Tokens       []TokenConfig   `toml:"tokens"`
	Listings     []ListingConfig `toml:"listings"`
	Whitelist    []string        `toml:"whitelist"`
	Blacklist    []string        `toml:"blacklist"`
	MinLiquidity uint64          `toml:"min_liquidity"`
	MaxSpread    float64         `toml:"max_spread"`
	MaxAge       duration        `toml:"max_age"`
}

// TokenConfig declares one token tradable by the bot.
type TokenConfig struct {
	Symbol   string `toml:"symbol"`
	Address  string `toml:"address"`
	Decimals uint8  `toml:"decimals"`
}

// ListingConfig binds one venue market account to a token pair. Base and
// Quote reference token symbols declared in markets.tokens.
type ListingConfig struct {
	Venue  string `toml:"venue"`
	Market string `toml:"market"`
	Base   string `toml:"base"`
	Quote  string `toml:"quote"`
}

// VenuesConfig maps venue names to their on-chain program addresses.
type VenuesConfig struct {
	Programs map[string]string `toml:"programs"`
}

// ExecutionConfig holds thresholds gating opportunity execution.
type ExecutionConfig struct {
	MinProfitThreshold float64  `toml:"min_profit_threshold"`
	MinProfitPct       float64  `toml:"min_profit_pct"`
	MaxPositionSize    uint64   `toml:"max_position_size"`
	FlashLoanEnabled   bool     `toml:"flash_loan_enabled"`
	FlashLoanLimit     uint64   `toml:"flash_loan_limit"`
	Strategies         []string `toml:"strategies"`
}

// RiskConfig holds risk limits applied by the profit calculator.
type RiskConfig struct {
	MaxLossThreshold  float64 `toml:"max_loss_threshold"`
	SlippageTolerance float64 `toml:"slippage_tolerance"`
	DailyVolumeLimit  uint64  `toml:"daily_volume_limit"`
}

// SecurityConfig holds MEV-protection and transaction-guard flags.
type SecurityConfig struct {
	MevProtection   MevProtectionConfig `toml:"mev_protection"`
	QuantumSecurity bool                `toml:"quantum_security"`
	Guards          GuardConfig         `toml:"guards"`
}

// MevProtectionConfig selects which guard instructions are appended to
// transactions.
type MevProtectionConfig struct {
	Enabled           bool `toml:"enabled"`
	ProtectionLevel   int  `toml:"protection_level"`
	FrontrunningGuard bool `toml:"frontrunning_guard"`
	BackrunningGuard  bool `toml:"backrunning_guard"`
	SandwichGuard     bool `toml:"sandwich_guard"`
}

// GuardConfig holds transaction submission guards.
type GuardConfig struct {
	SignatureVerification bool `toml:"signature_verification"`
	RequireConfirmations  int  `toml:"require_confirmations"`
}

// EngineConfig holds the orchestrator cycle parameters.
type EngineConfig struct {
	PollInterval duration `toml:"poll_interval"`
	Backoff      duration `toml:"backoff"`
	MaxBackoff   duration `toml:"max_backoff"`
}

// FeedConfig holds the locally fed pending-swap queue parameters.
type FeedConfig struct {
	Enabled   bool   `toml:"enabled"`
	WSAddr    string `toml:"ws_addr"`
	QueueSize int    `toml:"queue_size"`
}

// JournalConfig holds the optional Redis execution journal parameters.
type JournalConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	TTL        duration `toml:"ttl"`
	MaxRecords int64    `toml:"max_records"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5s", "500ms").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for the TOML decoder.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// knownStrategies enumerates the strategy names accepted in
// execution.strategies.
var knownStrategies = map[string]bool{
	"round_trip":    true,
	"flash_loan":    true,
	"front_running": true,
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"run":     true,
	"monitor": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Network: NetworkConfig{
			RPCEndpoints:   []string{"https://api.mainnet-beta.solana.com"},
			MaxRetries:     3,
			RequestTimeout: duration{30 * time.Second},
			ConfirmTimeout: duration{30 * time.Second},
		},
		Markets: MarketsConfig{
			MinLiquidity: 1_000_000,
			MaxSpread:    0.05,
			MaxAge:       duration{5 * time.Second},
		},
		Venues: VenuesConfig{
			Programs: map[string]string{
				"serum":    "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
				"orca":     "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc",
				"raydium":  "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8",
				"jupiter":  "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4",
				"openbook": "opnb2LAfJYbRMAHHvqjCwQxanZn7ReEHp1k81EohpZb",
			},
		},
		Execution: ExecutionConfig{
			MinProfitThreshold: 0.01,
			MinProfitPct:       1.0,
			MaxPositionSize:    1_000_000_000,
			FlashLoanEnabled:   true,
			FlashLoanLimit:     1_000_000_000,
			Strategies:         []string{"round_trip", "flash_loan"},
		},
		Risk: RiskConfig{
			MaxLossThreshold:  -0.02,
			SlippageTolerance: 0.01,
			DailyVolumeLimit:  1_000_000_000_000,
		},
		Security: SecurityConfig{
			MevProtection: MevProtectionConfig{
				Enabled:           true,
				ProtectionLevel:   2,
				FrontrunningGuard: true,
				BackrunningGuard:  true,
				SandwichGuard:     true,
			},
			QuantumSecurity: true,
			Guards: GuardConfig{
				SignatureVerification: true,
				RequireConfirmations:  1,
			},
		},
		Engine: EngineConfig{
			PollInterval: duration{400 * time.Millisecond},
			Backoff:      duration{1 * time.Second},
			MaxBackoff:   duration{30 * time.Second},
		},
		Feed: FeedConfig{
			Enabled:   false,
			WSAddr:    "ws://127.0.0.1:8900/pending",
			QueueSize: 256,
		},
		Journal: JournalConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			TTL:        duration{time.Hour},
			MaxRecords: 500,
		},
		Mode:     "run",
		LogLevel: "info",
	}
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: run, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Network
	if len(c.Network.RPCEndpoints) == 0 {
		errs = append(errs, "network: at least one rpc endpoint is required")
	}
	for i, ep := range c.Network.RPCEndpoints {
		if strings.TrimSpace(ep) == "" {
			errs = append(errs, fmt.Sprintf("network: rpc_endpoints[%d] is empty", i))
		}
	}
	if c.Network.MaxRetries < 0 {
		errs = append(errs, "network: max_retries must be >= 0")
	}
	if c.Network.RequestTimeout.Duration <= 0 {
		errs = append(errs, "network: request_timeout must be positive")
	}

	// Wallet: required when the bot submits transactions.
	if strings.ToLower(c.Mode) == "run" && c.Wallet.KeypairPath == "" {
		errs = append(errs, "wallet: keypair_path is required for mode run")
	}

	// Markets
	tokens := make(map[string]bool, len(c.Markets.Tokens))
	for i, tok := range c.Markets.Tokens {
		if tok.Symbol == "" {
			errs = append(errs, fmt.Sprintf("markets: tokens[%d] is missing a symbol", i))
			continue
		}
		if tokens[tok.Symbol] {
			errs = append(errs, fmt.Sprintf("markets: duplicate token symbol %q", tok.Symbol))
		}
		tokens[tok.Symbol] = true
		if tok.Address == "" {
			errs = append(errs, fmt.Sprintf("markets: token %s is missing an address", tok.Symbol))
		}
	}
	if len(c.Markets.Listings) == 0 {
		errs = append(errs, "markets: at least one listing is required")
	}
	for i, l := range c.Markets.Listings {
		if l.Venue == "" || l.Market == "" {
			errs = append(errs, fmt.Sprintf("markets: listings[%d] needs both venue and market", i))
		}
		if _, ok := c.Venues.Programs[l.Venue]; l.Venue != "" && !ok {
			errs = append(errs, fmt.Sprintf("markets: listings[%d] references unknown venue %q", i, l.Venue))
		}
		if !tokens[l.Base] {
			errs = append(errs, fmt.Sprintf("markets: listings[%d] references undeclared base token %q", i, l.Base))
		}
		if !tokens[l.Quote] {
			errs = append(errs, fmt.Sprintf("markets: listings[%d] references undeclared quote token %q", i, l.Quote))
		}
	}
	if c.Markets.MaxSpread <= 0 {
		errs = append(errs, "markets: max_spread must be > 0")
	}
	if c.Markets.MaxAge.Duration <= 0 {
		errs = append(errs, "markets: max_age must be positive")
	}

	// Execution
	if c.Execution.MinProfitThreshold <= 0 {
		errs = append(errs, "execution: min_profit_threshold must be > 0")
	}
	if c.Execution.MinProfitPct <= 0 {
		errs = append(errs, "execution: min_profit_pct must be > 0")
	}
	if c.Execution.MaxPositionSize == 0 {
		errs = append(errs, "execution: max_position_size must be > 0")
	}
	if len(c.Execution.Strategies) == 0 {
		errs = append(errs, "execution: at least one strategy must be enabled")
	}
	for _, name := range c.Execution.Strategies {
		if !knownStrategies[name] {
			errs = append(errs, fmt.Sprintf("execution: unknown strategy %q (valid: round_trip, flash_loan, front_running)", name))
		}
	}

	// Risk
	if c.Risk.SlippageTolerance <= 0 || c.Risk.SlippageTolerance >= 1 {
		errs = append(errs, "risk: slippage_tolerance must be in (0, 1)")
	}

	// Security: an enabled MEV shield with level 0 is a misconfiguration.
	if c.Security.MevProtection.Enabled && c.Security.MevProtection.ProtectionLevel <= 0 {
		errs = append(errs, "security: mev_protection.protection_level must be > 0 when enabled")
	}
	if c.Security.Guards.RequireConfirmations < 1 {
		errs = append(errs, "security: guards.require_confirmations must be >= 1")
	}

	// Engine
	if c.Engine.PollInterval.Duration <= 0 {
		errs = append(errs, "engine: poll_interval must be positive")
	}
	if c.Engine.Backoff.Duration <= 0 {
		errs = append(errs, "engine: backoff must be positive")
	}
	if c.Engine.MaxBackoff.Duration < c.Engine.Backoff.Duration {
		errs = append(errs, "engine: max_backoff must not be below backoff")
	}

	// Feed: only matters when the front_running strategy is enabled.
	if c.Feed.Enabled && c.Feed.QueueSize < 1 {
		errs = append(errs, "feed: queue_size must be >= 1")
	}

	// Journal
	if c.Journal.Enabled && c.Journal.Addr == "" {
		errs = append(errs, "journal: addr must not be empty when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
