package app

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/arblab/solarbot/internal/config"
	"github.com/arblab/solarbot/internal/domain"
	"github.com/arblab/solarbot/internal/engine"
	"github.com/arblab/solarbot/internal/feed"
	"github.com/arblab/solarbot/internal/journal"
	"github.com/arblab/solarbot/internal/market"
	"github.com/arblab/solarbot/internal/profit"
	"github.com/arblab/solarbot/internal/solana"
	"github.com/arblab/solarbot/internal/strategy"
	"github.com/arblab/solarbot/internal/txbuilder"
	"github.com/arblab/solarbot/internal/venue"
)

// Dependencies bundles everything the application modes need to operate.
// Constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	RPC      *solana.Client
	Keypair  *solana.Keypair
	Registry *venue.Registry
	Cache    *market.Cache
	Poller   *market.Poller
	Engine   *engine.Engine

	// FeedListener is nil when the pending-swap feed is disabled.
	FeedListener *feed.Listener

	// Journal is nil when journaling is disabled.
	Journal *journal.Journal
}

// Wire constructs all concrete dependencies from the configuration and
// returns them together with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	rpc := solana.NewClient(cfg.Network.RPCEndpoints[0],
		solana.WithTimeout(cfg.Network.RequestTimeout.Duration),
		solana.WithMaxRetries(cfg.Network.MaxRetries),
	)

	keypair, err := loadWallet(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: wallet: %w", err)
	}

	registry, listings, err := buildVenues(cfg, rpc, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: venues: %w", err)
	}

	cache := market.NewCache(registry, listings, cfg.Markets.MaxAge.Duration, logger)
	poller := market.NewPoller(cache, cfg.Engine.PollInterval.Duration, logger)
	calc := profit.NewCalculator(cfg)

	var (
		pending  strategy.PendingSource
		listener *feed.Listener
	)
	if cfg.Feed.Enabled {
		queue := feed.NewQueue(cfg.Feed.QueueSize)
		listener = feed.NewListener(cfg.Feed.WSAddr, queue, logger)
		pending = queue
	}

	strategies, err := strategy.Build(cfg, calc, pending, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: strategies: %w", err)
	}

	builder := txbuilder.New(cfg, keypair, registry, logger)

	var (
		jnl      *journal.Journal
		recorder engine.Recorder
	)
	if cfg.Journal.Enabled {
		jnl, err = journal.New(ctx, cfg.Journal.Addr, cfg.Journal.Password, cfg.Journal.DB,
			cfg.Journal.TTL.Duration, cfg.Journal.MaxRecords, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("wire: journal: %w", err)
		}
		closers = append(closers, func() { _ = jnl.Close() })
		recorder = jnl
	}

	eng := engine.New(cfg, cache, strategies, calc, builder, rpc, recorder, logger)

	deps := &Dependencies{
		RPC:          rpc,
		Keypair:      keypair,
		Registry:     registry,
		Cache:        cache,
		Poller:       poller,
		Engine:       eng,
		FeedListener: listener,
		Journal:      jnl,
	}
	return deps, cleanup, nil
}

// loadWallet loads the signing keypair. Monitor mode never submits, so a
// missing keypair path there gets an ephemeral key instead of failing.
func loadWallet(cfg *config.Config) (*solana.Keypair, error) {
	if cfg.Wallet.KeypairPath != "" {
		return solana.LoadKeypair(cfg.Wallet.KeypairPath)
	}
	if strings.ToLower(cfg.Mode) != "monitor" {
		return nil, fmt.Errorf("keypair_path is required for mode %q", cfg.Mode)
	}
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral keypair: %w", err)
	}
	return solana.NewKeypair(priv)
}

// buildVenues creates one adapter per configured venue that actually lists a
// market, honoring the whitelist and blacklist.
func buildVenues(cfg *config.Config, rpc *solana.Client, logger *slog.Logger) (*venue.Registry, []venue.Listing, error) {
	tokens := make(map[string]domain.Token, len(cfg.Markets.Tokens))
	for _, tok := range cfg.Markets.Tokens {
		tokens[tok.Symbol] = domain.Token{
			Address:  tok.Address,
			Symbol:   tok.Symbol,
			Decimals: tok.Decimals,
		}
	}

	whitelist := toSet(cfg.Markets.Whitelist)
	blacklist := toSet(cfg.Markets.Blacklist)

	venueMarkets := make(map[string]map[string]string)
	var listings []venue.Listing
	for _, l := range cfg.Markets.Listings {
		if len(whitelist) > 0 && !whitelist[l.Market] {
			continue
		}
		if blacklist[l.Market] {
			continue
		}
		base, ok := tokens[l.Base]
		if !ok {
			return nil, nil, fmt.Errorf("listing %s: unknown base token %q", l.Market, l.Base)
		}
		quote, ok := tokens[l.Quote]
		if !ok {
			return nil, nil, fmt.Errorf("listing %s: unknown quote token %q", l.Market, l.Quote)
		}
		pair := domain.TokenPair{Base: base, Quote: quote}

		if venueMarkets[l.Venue] == nil {
			venueMarkets[l.Venue] = make(map[string]string)
		}
		venueMarkets[l.Venue][pair.String()] = l.Market
		listings = append(listings, venue.Listing{Venue: l.Venue, Market: l.Market, Pair: pair})
	}
	if len(listings) == 0 {
		return nil, nil, fmt.Errorf("no markets remain after whitelist/blacklist filtering")
	}

	// Registry order decides best-venue tie-breaks, so it must not depend on
	// map iteration.
	names := make([]string, 0, len(venueMarkets))
	for name := range venueMarkets {
		names = append(names, name)
	}
	sort.Strings(names)

	adapters := make([]venue.Adapter, 0, len(names))
	for _, name := range names {
		program, ok := cfg.Venues.Programs[name]
		if !ok {
			return nil, nil, fmt.Errorf("no program configured for venue %q", name)
		}
		adapters = append(adapters, venue.NewRPCAdapter(name, program, rpc, venueMarkets[name]))
	}

	return venue.NewRegistry(adapters, logger), listings, nil
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
