package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arblab/solarbot/internal/domain"
)

const (
	reconnectDelay    = time.Second
	maxReconnectDelay = 30 * time.Second
	readDeadline      = 60 * time.Second
)

// pendingSwapMessage is the wire shape pushed by the pending-swap feed.
type pendingSwapMessage struct {
	Market     string  `json:"market"`
	Side       string  `json:"side"`
	Amount     uint64  `json:"amount"`
	Price      float64 `json:"price"`
	ObservedAt int64   `json:"observed_at"`
}

// Listener consumes a websocket stream of pending swaps and feeds the queue.
// Connection failures are retried with backoff; the listener only stops when
// its context is cancelled.
type Listener struct {
	addr   string
	queue  *Queue
	logger *slog.Logger
}

func NewListener(addr string, queue *Queue, logger *slog.Logger) *Listener {
	return &Listener{
		addr:   addr,
		queue:  queue,
		logger: logger.With("component", "feed"),
	}
}

// Run connects to the feed and pushes decoded swaps until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	delay := reconnectDelay
	for {
		if err := l.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Warn("feed connection lost, reconnecting",
				"addr", l.addr, "delay", delay, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > maxReconnectDelay {
				delay = maxReconnectDelay
			}
			continue
		}
		delay = reconnectDelay
	}
}

func (l *Listener) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.addr, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", l.addr, err)
	}
	defer conn.Close()

	// The watcher must die with this connection, not linger until ctx is
	// cancelled, or reconnect cycles pile up goroutines.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	l.logger.Info("feed connected", "addr", l.addr)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return err
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}
		swap, err := decodePendingSwap(data)
		if err != nil {
			l.logger.Debug("dropping malformed feed message", "error", err)
			continue
		}
		l.queue.Push(swap)
	}
}

func decodePendingSwap(data []byte) (domain.PendingSwap, error) {
	var msg pendingSwapMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.PendingSwap{}, err
	}
	if msg.Market == "" {
		return domain.PendingSwap{}, errors.New("missing market")
	}
	var side domain.TradeSide
	switch msg.Side {
	case string(domain.SideBuy):
		side = domain.SideBuy
	case string(domain.SideSell):
		side = domain.SideSell
	default:
		return domain.PendingSwap{}, fmt.Errorf("unknown side %q", msg.Side)
	}
	observed := time.Now()
	if msg.ObservedAt > 0 {
		observed = time.UnixMilli(msg.ObservedAt)
	}
	return domain.PendingSwap{
		Market:     msg.Market,
		Side:       side,
		Amount:     msg.Amount,
		Price:      msg.Price,
		ObservedAt: observed,
	}, nil
}
