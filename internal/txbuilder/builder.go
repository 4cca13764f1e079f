// Package txbuilder turns an arbitrage route into a single signed atomic
// Solana transaction: borrow first, trades with settlement in route order,
// repayment last, so a failed leg reverts the whole sequence on-chain.
package txbuilder

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/arblab/solarbot/internal/config"
	"github.com/arblab/solarbot/internal/domain"
	"github.com/arblab/solarbot/internal/solana"
	"github.com/arblab/solarbot/internal/venue"
)

const (
	computeBudgetProgram = "ComputeBudget111111111111111111111111111111"
	memoProgram          = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"

	computeUnitLimit = 400_000
	computeUnitPrice = 10_000 // micro-lamports per compute unit
)

// flashLoanPrograms maps each lending protocol to its on-chain program.
var flashLoanPrograms = map[domain.FlashLoanProtocol]string{
	domain.ProtocolSolend:   "So1endDq2YkqhipRh3WViPa8hdiSpxWy6z3Z6tMCpAo",
	domain.ProtocolPort:     "Port7uDYB3wk6GJAw4KT1WpTeMtSu9bTcChBHkX2LfR",
	domain.ProtocolMarinade: "MarBmsSgKXdrN1egZf5sqe1TMai9K1rChYNDJgjq7aD",
}

// Flash loan instruction tags.
const (
	flashBorrowTag byte = 0x10
	flashRepayTag  byte = 0x11
	settleTag      byte = 0x20
)

// Builder assembles, optimizes, and signs arbitrage transactions. It never
// decides whether to trade; it faithfully encodes a route the engine has
// already validated.
type Builder struct {
	cfg      *config.Config
	keypair  *solana.Keypair
	registry *venue.Registry
	logger   *slog.Logger
}

func New(cfg *config.Config, keypair *solana.Keypair, registry *venue.Registry, logger *slog.Logger) *Builder {
	return &Builder{
		cfg:      cfg,
		keypair:  keypair,
		registry: registry,
		logger:   logger.With("component", "txbuilder"),
	}
}

// Build encodes the route into a signed transaction. The states map resolves
// each trade leg's market to the venue that lists it; a leg on an unknown
// market fails the build.
func (b *Builder) Build(opp domain.ArbitrageOpportunity, states map[string]domain.MarketState, blockhash string) (*solana.Transaction, error) {
	instructions, err := b.routeInstructions(opp, states)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransaction, err)
	}

	instructions = b.optimize(instructions)

	tx := solana.NewTransaction(b.keypair.Pubkey(), blockhash, instructions)
	if err := tx.Sign(b.keypair); err != nil {
		return nil, fmt.Errorf("%w: sign: %v", domain.ErrTransaction, err)
	}

	b.logger.Debug("transaction built",
		"opportunity", opp.ID,
		"instructions", len(instructions),
		"borrowed", opp.Borrowed())
	return tx, nil
}

func (b *Builder) routeInstructions(opp domain.ArbitrageOpportunity, states map[string]domain.MarketState) ([]solana.Instruction, error) {
	var instructions []solana.Instruction
	for _, step := range opp.Route {
		switch step.Kind {
		case domain.StepBorrow:
			ix, err := b.borrowInstruction(opp, step)
			if err != nil {
				return nil, err
			}
			instructions = append(instructions, ix)
		case domain.StepTrade:
			group, err := b.tradeInstructions(step, states)
			if err != nil {
				return nil, err
			}
			instructions = append(instructions, group...)
		case domain.StepRepay:
			ix, err := b.repayInstruction(opp, step)
			if err != nil {
				return nil, err
			}
			instructions = append(instructions, ix)
		default:
			return nil, fmt.Errorf("unknown route step kind %q", step.Kind)
		}
	}
	if len(instructions) == 0 {
		return nil, fmt.Errorf("empty route for opportunity %s", opp.ID)
	}
	return instructions, nil
}

// tradeInstructions emits the venue trade, its settlement, and the
// configured MEV guards for one leg.
func (b *Builder) tradeInstructions(step domain.TradeStep, states map[string]domain.MarketState) ([]solana.Instruction, error) {
	state, ok := states[step.Market]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrMarketNotFound, step.Market)
	}
	adapter, err := b.registry.Adapter(state.Venue)
	if err != nil {
		return nil, err
	}

	data, err := adapter.EncodeTrade(step.Market, step.Amount, step.Side == domain.SideBuy)
	if err != nil {
		return nil, fmt.Errorf("encode %s leg on %s: %w", step.Side, state.Venue, err)
	}

	group := []solana.Instruction{
		{
			ProgramID: adapter.ProgramID(),
			Accounts: []solana.AccountMeta{
				{Pubkey: b.keypair.Pubkey(), Signer: true, Writable: true},
				{Pubkey: step.Market, Writable: true},
			},
			Data: data,
		},
		b.settlementInstruction(adapter, step),
	}

	group = append(group, b.mevGuards(step)...)
	return group, nil
}

func (b *Builder) settlementInstruction(adapter venue.Adapter, step domain.TradeStep) solana.Instruction {
	data := make([]byte, 9)
	data[0] = settleTag
	binary.LittleEndian.PutUint64(data[1:], step.Amount)
	return solana.Instruction{
		ProgramID: adapter.ProgramID(),
		Accounts: []solana.AccountMeta{
			{Pubkey: b.keypair.Pubkey(), Signer: true, Writable: true},
			{Pubkey: step.Market, Writable: true},
		},
		Data: data,
	}
}

// borrowInstruction encodes the flash borrow from the leg's loan parameters.
// Borrow steps carry the protocol name in the market field.
func (b *Builder) borrowInstruction(opp domain.ArbitrageOpportunity, step domain.TradeStep) (solana.Instruction, error) {
	params := domain.FlashLoanParams{
		Token:    opp.Pair.Base,
		Amount:   step.Amount,
		Protocol: domain.FlashLoanProtocol(step.Market),
	}
	program, ok := flashLoanPrograms[params.Protocol]
	if !ok {
		return solana.Instruction{}, fmt.Errorf("%w: unknown protocol %q", domain.ErrFlashLoan, step.Market)
	}
	if params.Amount == 0 {
		return solana.Instruction{}, fmt.Errorf("%w: zero borrow amount in route %s", domain.ErrFlashLoan, opp.ID)
	}
	data := make([]byte, 9)
	data[0] = flashBorrowTag
	binary.LittleEndian.PutUint64(data[1:], params.Amount)
	return solana.Instruction{
		ProgramID: program,
		Accounts: []solana.AccountMeta{
			{Pubkey: b.keypair.Pubkey(), Signer: true, Writable: true},
		},
		Data: data,
	}, nil
}

// repayInstruction settles the borrow against the same protocol, principal
// plus fee as priced at analysis time.
func (b *Builder) repayInstruction(opp domain.ArbitrageOpportunity, step domain.TradeStep) (solana.Instruction, error) {
	protocol := flashProtocolOf(opp)
	program, ok := flashLoanPrograms[protocol]
	if !ok {
		return solana.Instruction{}, fmt.Errorf("%w: repay without borrow in route %s", domain.ErrFlashLoan, opp.ID)
	}
	data := make([]byte, 9)
	data[0] = flashRepayTag
	binary.LittleEndian.PutUint64(data[1:], step.Amount)
	return solana.Instruction{
		ProgramID: program,
		Accounts: []solana.AccountMeta{
			{Pubkey: b.keypair.Pubkey(), Signer: true, Writable: true},
		},
		Data: data,
	}, nil
}

func flashProtocolOf(opp domain.ArbitrageOpportunity) domain.FlashLoanProtocol {
	for _, step := range opp.Route {
		if step.Kind == domain.StepBorrow {
			return domain.FlashLoanProtocol(step.Market)
		}
	}
	return ""
}

// mevGuards emits memo guard markers for each enabled protection; bundlers
// and guard validators key off these to reject reordered inclusion.
func (b *Builder) mevGuards(step domain.TradeStep) []solana.Instruction {
	mev := b.cfg.Security.MevProtection
	if !mev.Enabled {
		return nil
	}
	var guards []solana.Instruction
	if mev.FrontrunningGuard {
		guards = append(guards, b.guardInstruction("guard:frontrun", step))
	}
	if mev.BackrunningGuard {
		guards = append(guards, b.guardInstruction("guard:backrun", step))
	}
	if mev.SandwichGuard {
		guards = append(guards, b.guardInstruction("guard:sandwich", step))
	}
	return guards
}

func (b *Builder) guardInstruction(tag string, step domain.TradeStep) solana.Instruction {
	return solana.Instruction{
		ProgramID: memoProgram,
		Accounts: []solana.AccountMeta{
			{Pubkey: b.keypair.Pubkey(), Signer: true},
		},
		Data: []byte(fmt.Sprintf("%s:%s", tag, step.Market)),
	}
}

// optimize prepends the compute budget and priority fee requests. It never
// reorders route instructions; atomicity depends on their order.
func (b *Builder) optimize(instructions []solana.Instruction) []solana.Instruction {
	limit := make([]byte, 5)
	limit[0] = 0x02 // SetComputeUnitLimit
	binary.LittleEndian.PutUint32(limit[1:], computeUnitLimit)

	price := make([]byte, 9)
	price[0] = 0x03 // SetComputeUnitPrice
	binary.LittleEndian.PutUint64(price[1:], computeUnitPrice)

	budget := []solana.Instruction{
		{ProgramID: computeBudgetProgram, Data: limit},
		{ProgramID: computeBudgetProgram, Data: price},
	}
	return append(budget, instructions...)
}
