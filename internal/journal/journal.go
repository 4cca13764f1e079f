// Package journal keeps a short-lived Redis record of recent execution
// results and in-flight signatures. The bot runs fine without it; every
// journal failure is logged and swallowed.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arblab/solarbot/internal/domain"
)

const (
	resultsKey = "solarbot:executions"
	pendingKey = "solarbot:pending"
)

// Journal records execution results in a capped, TTL'd Redis list and tracks
// in-flight transaction signatures for dedup across restarts.
type Journal struct {
	rdb        *redis.Client
	ttl        time.Duration
	maxRecords int64
	logger     *slog.Logger
}

// New connects to Redis and verifies connectivity before returning.
func New(ctx context.Context, addr, password string, db int, ttl time.Duration, maxRecords int64, logger *slog.Logger) (*Journal, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("journal: ping %s: %w", addr, err)
	}
	return &Journal{
		rdb:        rdb,
		ttl:        ttl,
		maxRecords: maxRecords,
		logger:     logger.With("component", "journal"),
	}, nil
}

// Record appends an execution result, trimming the list to the configured
// cap. Failures are logged, never returned.
func (j *Journal) Record(ctx context.Context, result domain.ExecutionResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		j.logger.Warn("journal encode failed", "opportunity", result.OpportunityID, "error", err)
		return
	}
	pipe := j.rdb.TxPipeline()
	pipe.LPush(ctx, resultsKey, payload)
	pipe.LTrim(ctx, resultsKey, 0, j.maxRecords-1)
	pipe.Expire(ctx, resultsKey, j.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		j.logger.Warn("journal write failed", "opportunity", result.OpportunityID, "error", err)
	}
}

// MarkPending registers a submitted signature so a restarted bot will not
// chase the same transaction twice. Returns false when the signature was
// already pending.
func (j *Journal) MarkPending(ctx context.Context, signature string) bool {
	ok, err := j.rdb.SetNX(ctx, pendingKey+":"+signature, time.Now().Unix(), j.ttl).Result()
	if err != nil {
		j.logger.Warn("journal pending mark failed", "signature", signature, "error", err)
		return true
	}
	return ok
}

// ClearPending drops a signature once confirmation resolves either way.
func (j *Journal) ClearPending(ctx context.Context, signature string) {
	if err := j.rdb.Del(ctx, pendingKey+":"+signature).Err(); err != nil {
		j.logger.Warn("journal pending clear failed", "signature", signature, "error", err)
	}
}

// Recent returns up to n most recent execution results, newest first.
func (j *Journal) Recent(ctx context.Context, n int64) ([]domain.ExecutionResult, error) {
	raw, err := j.rdb.LRange(ctx, resultsKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("journal: read: %w", err)
	}
	results := make([]domain.ExecutionResult, 0, len(raw))
	for _, item := range raw {
		var result domain.ExecutionResult
		if err := json.Unmarshal([]byte(item), &result); err != nil {
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

// Close releases the Redis connection.
func (j *Journal) Close() error {
	return j.rdb.Close()
}
