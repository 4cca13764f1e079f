package strategy

import (
	"fmt"
	"log/slog"

	"github.com/arblab/solarbot/internal/config"
	"github.com/arblab/solarbot/internal/profit"
)

// Build instantiates the strategies named in the execution settings, in the
// configured order. Every strategy shares the engine's settings and
// calculator. Unknown names fail loudly rather than being skipped.
func Build(cfg *config.Config, calc *profit.Calculator, pending PendingSource, logger *slog.Logger) ([]Strategy, error) {
	strategies := make([]Strategy, 0, len(cfg.Execution.Strategies))
	for _, name := range cfg.Execution.Strategies {
		switch name {
		case "round_trip":
			strategies = append(strategies, NewRoundTrip(cfg, calc, logger))
		case "flash_loan":
			if !cfg.Execution.FlashLoanEnabled {
				return nil, fmt.Errorf("strategy %q is configured but flash loans are disabled", name)
			}
			strategies = append(strategies, NewFlashLoan(cfg, calc, logger))
		case "front_running":
			if pending == nil {
				return nil, fmt.Errorf("strategy %q requires the pending-swap feed", name)
			}
			strategies = append(strategies, NewFrontRunning(cfg, calc, pending, logger))
		default:
			return nil, fmt.Errorf("unknown strategy %q", name)
		}
	}
	return strategies, nil
}
