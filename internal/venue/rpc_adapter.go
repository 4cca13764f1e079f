package venue

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/arblab/solarbot/internal/domain"
	"github.com/arblab/solarbot/internal/solana"
)

// priceScale converts on-chain fixed-point price ticks to display prices.
const priceScale = 1e6

// headerLayout gives the byte offset of the quote header inside a venue's
// market account. Each venue prefixes the header with its own discriminator.
type headerLayout struct {
	discriminator []byte
	quoteOffset   int
}

// quoteHeader is the common top-of-book header layout: three little-endian
// u64 fields (bid ticks, ask ticks, base depth).
const quoteHeaderSize = 24

// RPCAdapter reads venue market accounts over Solana JSON-RPC and decodes
// the top-of-book quote header. One instance per venue, differing in program
// id, account layout, and instruction tag.
type RPCAdapter struct {
	name      string
	programID string
	layout    headerLayout
	tradeTag  byte
	impact    float64 // relative impact per full depth consumed
	rpc       *solana.Client
	markets   map[string]string // pair display form -> market address
}

// NewRPCAdapter creates a venue adapter. The markets map is keyed by the
// pair's display form (BASE/QUOTE).
func NewRPCAdapter(name, programID string, rpc *solana.Client, markets map[string]string) *RPCAdapter {
	layouts := map[string]headerLayout{
		"serum":    {discriminator: []byte("srm1"), quoteOffset: 13},
		"orca":     {discriminator: []byte("orc1"), quoteOffset: 8},
		"raydium":  {discriminator: []byte("ray1"), quoteOffset: 8},
		"jupiter":  {discriminator: []byte("jup1"), quoteOffset: 16},
		"openbook": {discriminator: []byte("opb1"), quoteOffset: 13},
	}
	tags := map[string]byte{"serum": 0x01, "orca": 0x02, "raydium": 0x03, "jupiter": 0x04, "openbook": 0x05}
	impacts := map[string]float64{"serum": 0.08, "orca": 0.10, "raydium": 0.10, "jupiter": 0.06, "openbook": 0.08}

	layout, ok := layouts[name]
	if !ok {
		layout = headerLayout{quoteOffset: 8}
	}
	return &RPCAdapter{
		name:      name,
		programID: programID,
		layout:    layout,
		tradeTag:  tags[name],
		impact:    impacts[name],
		rpc:       rpc,
		markets:   markets,
	}
}

// Name returns the venue identifier.
func (a *RPCAdapter) Name() string { return a.name }

// ProgramID returns the venue's on-chain program address.
func (a *RPCAdapter) ProgramID() string { return a.programID }

// Market resolves the market address for a pair.
func (a *RPCAdapter) Market(pair domain.TokenPair) (string, error) {
	addr, ok := a.markets[pair.String()]
	if !ok {
		return "", fmt.Errorf("%s: %s: %w", a.name, pair, domain.ErrMarketNotFound)
	}
	return addr, nil
}

// BestPrice fetches and decodes the market's top-of-book.
func (a *RPCAdapter) BestPrice(ctx context.Context, market string) (float64, float64, error) {
	h, err := a.fetchHeader(ctx, market)
	if err != nil {
		return 0, 0, err
	}
	return h.bid, h.ask, nil
}

// Liquidity fetches the market's available base-token depth.
func (a *RPCAdapter) Liquidity(ctx context.Context, market string) (uint64, error) {
	h, err := a.fetchHeader(ctx, market)
	if err != nil {
		return 0, err
	}
	return h.depth, nil
}

// EncodeTrade builds the venue's swap instruction data: tag byte, side byte,
// then the amount as little-endian u64.
func (a *RPCAdapter) EncodeTrade(market string, amount uint64, isBuy bool) ([]byte, error) {
	if amount == 0 {
		return nil, fmt.Errorf("%s: zero trade amount: %w", a.name, domain.ErrTransaction)
	}
	data := make([]byte, 10)
	data[0] = a.tradeTag
	if isBuy {
		data[1] = 0
	} else {
		data[1] = 1
	}
	binary.LittleEndian.PutUint64(data[2:], amount)
	return data, nil
}

// PriceImpact models impact as linear in the share of depth consumed.
func (a *RPCAdapter) PriceImpact(ctx context.Context, market string, amount uint64, isBuy bool) (float64, error) {
	h, err := a.fetchHeader(ctx, market)
	if err != nil {
		return 0, err
	}
	if h.depth == 0 {
		return 0, fmt.Errorf("%s: market %s: %w", a.name, market, domain.ErrInsufficientDepth)
	}
	return float64(amount) / float64(h.depth) * a.impact, nil
}

type header struct {
	bid   float64
	ask   float64
	depth uint64
}

func (a *RPCAdapter) fetchHeader(ctx context.Context, market string) (header, error) {
	info, err := a.rpc.GetAccountInfo(ctx, market)
	if err != nil {
		return header{}, fmt.Errorf("%s: fetch market %s: %w", a.name, market, err)
	}
	data := info.Data
	if len(a.layout.discriminator) > 0 {
		if len(data) < len(a.layout.discriminator) || !bytes.HasPrefix(data, a.layout.discriminator) {
			return header{}, fmt.Errorf("%s: market %s: bad discriminator: %w", a.name, market, domain.ErrMarketNotFound)
		}
	}
	end := a.layout.quoteOffset + quoteHeaderSize
	if len(data) < end {
		return header{}, fmt.Errorf("%s: market %s: account data too short (%d bytes)", a.name, market, len(data))
	}
	q := data[a.layout.quoteOffset:end]
	return header{
		bid:   float64(binary.LittleEndian.Uint64(q[0:8])) / priceScale,
		ask:   float64(binary.LittleEndian.Uint64(q[8:16])) / priceScale,
		depth: binary.LittleEndian.Uint64(q[16:24]),
	}, nil
}

// Compile-time interface check.
var _ Adapter = (*RPCAdapter)(nil)
