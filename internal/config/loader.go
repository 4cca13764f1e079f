package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SOLARBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SOLARBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject endpoints and key paths at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Network ──
	setStringSlice(&cfg.Network.RPCEndpoints, "SOLARBOT_RPC_ENDPOINTS")
	setStr(&cfg.Network.WSEndpoint, "SOLARBOT_WS_ENDPOINT")
	setInt(&cfg.Network.MaxRetries, "SOLARBOT_MAX_RETRIES")
	setDuration(&cfg.Network.RequestTimeout, "SOLARBOT_REQUEST_TIMEOUT")
	setDuration(&cfg.Network.ConfirmTimeout, "SOLARBOT_CONFIRM_TIMEOUT")

	// ── Wallet ──
	setStr(&cfg.Wallet.KeypairPath, "SOLARBOT_KEYPAIR_PATH")

	// ── Markets ──
	setStringSlice(&cfg.Markets.Whitelist, "SOLARBOT_MARKETS_WHITELIST")
	setStringSlice(&cfg.Markets.Blacklist, "SOLARBOT_MARKETS_BLACKLIST")
	setUint64(&cfg.Markets.MinLiquidity, "SOLARBOT_MIN_LIQUIDITY")
	setFloat64(&cfg.Markets.MaxSpread, "SOLARBOT_MAX_SPREAD")
	setDuration(&cfg.Markets.MaxAge, "SOLARBOT_MARKET_MAX_AGE")

	// ── Execution ──
	setFloat64(&cfg.Execution.MinProfitThreshold, "SOLARBOT_MIN_PROFIT_THRESHOLD")
	setFloat64(&cfg.Execution.MinProfitPct, "SOLARBOT_MIN_PROFIT_PCT")
	setUint64(&cfg.Execution.MaxPositionSize, "SOLARBOT_MAX_POSITION_SIZE")
	setBool(&cfg.Execution.FlashLoanEnabled, "SOLARBOT_FLASH_LOAN_ENABLED")
	setUint64(&cfg.Execution.FlashLoanLimit, "SOLARBOT_FLASH_LOAN_LIMIT")
	setStringSlice(&cfg.Execution.Strategies, "SOLARBOT_STRATEGIES")

	// ── Risk ──
	setFloat64(&cfg.Risk.MaxLossThreshold, "SOLARBOT_MAX_LOSS_THRESHOLD")
	setFloat64(&cfg.Risk.SlippageTolerance, "SOLARBOT_SLIPPAGE_TOLERANCE")
	setUint64(&cfg.Risk.DailyVolumeLimit, "SOLARBOT_DAILY_VOLUME_LIMIT")

	// ── Security ──
	setBool(&cfg.Security.MevProtection.Enabled, "SOLARBOT_MEV_PROTECTION")
	setInt(&cfg.Security.MevProtection.ProtectionLevel, "SOLARBOT_MEV_PROTECTION_LEVEL")
	setBool(&cfg.Security.MevProtection.FrontrunningGuard, "SOLARBOT_MEV_FRONTRUNNING_GUARD")
	setBool(&cfg.Security.MevProtection.BackrunningGuard, "SOLARBOT_MEV_BACKRUNNING_GUARD")
	setBool(&cfg.Security.MevProtection.SandwichGuard, "SOLARBOT_MEV_SANDWICH_GUARD")
	setBool(&cfg.Security.QuantumSecurity, "SOLARBOT_QUANTUM_SECURITY")
	setBool(&cfg.Security.Guards.SignatureVerification, "SOLARBOT_SIGNATURE_VERIFICATION")
	setInt(&cfg.Security.Guards.RequireConfirmations, "SOLARBOT_REQUIRE_CONFIRMATIONS")

	// ── Engine ──
	setDuration(&cfg.Engine.PollInterval, "SOLARBOT_POLL_INTERVAL")
	setDuration(&cfg.Engine.Backoff, "SOLARBOT_BACKOFF")
	setDuration(&cfg.Engine.MaxBackoff, "SOLARBOT_MAX_BACKOFF")

	// ── Feed ──
	setBool(&cfg.Feed.Enabled, "SOLARBOT_FEED_ENABLED")
	setStr(&cfg.Feed.WSAddr, "SOLARBOT_FEED_WS_ADDR")
	setInt(&cfg.Feed.QueueSize, "SOLARBOT_FEED_QUEUE_SIZE")

	// ── Journal ──
	setBool(&cfg.Journal.Enabled, "SOLARBOT_JOURNAL_ENABLED")
	setStr(&cfg.Journal.Addr, "SOLARBOT_JOURNAL_ADDR")
	setStr(&cfg.Journal.Password, "SOLARBOT_JOURNAL_PASSWORD")
	setInt(&cfg.Journal.DB, "SOLARBOT_JOURNAL_DB")

	// ── Top-level ──
	setStr(&cfg.Mode, "SOLARBOT_MODE")
	setStr(&cfg.LogLevel, "SOLARBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
