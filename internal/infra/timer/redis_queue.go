package timer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dueSetKey      = "alarm:timers:due"
	payloadHashKey = "alarm:timers:payload"

	defaultPollInterval = 15 * time.Second
	defaultRetryDelay   = time.Minute
	claimBatchSize      = 100
)

// claimScript removes a due key and returns its payload in one step, so only
// one poller can win a given timer.
var claimScript = redis.NewScript(`
if redis.call('ZREM', KEYS[1], ARGV[1]) == 0 then
	return false
end
local payload = redis.call('HGET', KEYS[2], ARGV[1])
redis.call('HDEL', KEYS[2], ARGV[1])
return payload
`)

type RedisQueueConfig struct {
	PollInterval time.Duration
	// RetryDelay postpones a timer whose dispatch failed.
	RetryDelay time.Duration
	Now        func() time.Time
}

// RedisDelayQueue stores timers in a sorted set scored by fire time and
// dispatches them from Run. Precision is bounded by the poll interval, so both
// modes are accepted and treated as inexact.
type RedisDelayQueue struct {
	client   *redis.Client
	dispatch DispatchFunc
	cfg      RedisQueueConfig
}

func NewRedisDelayQueue(client *redis.Client, dispatch DispatchFunc, cfg RedisQueueConfig) *RedisDelayQueue {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RedisDelayQueue{
		client:   client,
		dispatch: dispatch,
		cfg:      cfg,
	}
}

func (q *RedisDelayQueue) SetDispatch(dispatch DispatchFunc) {
	q.dispatch = dispatch
}

func (q *RedisDelayQueue) Register(ctx context.Context, reg Registration) error {
	data, err := json.Marshal(reg.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal timer payload: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.ZAdd(ctx, dueSetKey, redis.Z{
		Score:  float64(reg.FireAt.UnixMilli()),
		Member: reg.Key,
	})
	pipe.HSet(ctx, payloadHashKey, reg.Key, data)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue timer %s: %w", reg.Key, err)
	}
	return nil
}

func (q *RedisDelayQueue) Cancel(ctx context.Context, key string) error {
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, dueSetKey, key)
	pipe.HDel(ctx, payloadHashKey, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cancel timer %s: %w", key, err)
	}
	return nil
}

// Pending reports the instant a key is armed for.
func (q *RedisDelayQueue) Pending(ctx context.Context, key string) (time.Time, bool, error) {
	score, err := q.client.ZScore(ctx, dueSetKey, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return time.UnixMilli(int64(score)), true, nil
}

// Run polls until ctx is cancelled.
func (q *RedisDelayQueue) Run(ctx context.Context) error {
	ticker := time.NewTicker(q.cfg.PollInterval)
	defer ticker.Stop()

	slog.Info("redis delay queue started",
		slog.Duration("poll_interval", q.cfg.PollInterval),
	)

	for {
		if _, err := q.Poll(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("delay queue poll failed",
				slog.String("event", "timer.poll.fail"),
				slog.String("error", err.Error()),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll dispatches every timer due at the current instant and returns how many
// were claimed.
func (q *RedisDelayQueue) Poll(ctx context.Context) (int, error) {
	now := q.cfg.Now()

	keys, err := q.client.ZRangeByScore(ctx, dueSetKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: claimBatchSize,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read due timers: %w", err)
	}

	claimed := 0
	for _, key := range keys {
		payload, ok, err := q.claim(ctx, key)
		if err != nil {
			return claimed, err
		}
		if !ok {
			continue
		}
		claimed++

		if q.dispatch == nil {
			slog.WarnContext(ctx, "delay queue timer elapsed without dispatcher", slog.String("key", key))
			continue
		}

		if err := q.dispatch(ctx, payload); err != nil {
			slog.ErrorContext(ctx, "timer dispatch failed, requeueing",
				slog.String("key", key),
				slog.String("event", "timer.dispatch.fail"),
				slog.Duration("retry_delay", q.cfg.RetryDelay),
				slog.String("error", err.Error()),
			)
			q.requeue(ctx, payload, now.Add(q.cfg.RetryDelay))
		}
	}

	return claimed, nil
}

func (q *RedisDelayQueue) claim(ctx context.Context, key string) (Payload, bool, error) {
	raw, err := claimScript.Run(ctx, q.client, []string{dueSetKey, payloadHashKey}, key).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Payload{}, false, nil
		}
		return Payload{}, false, fmt.Errorf("failed to claim timer %s: %w", key, err)
	}

	var payload Payload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		slog.WarnContext(ctx, "dropping timer with unreadable payload",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return Payload{}, false, nil
	}
	return payload, true, nil
}

// requeue only restores the timer if nothing re-armed the key meanwhile.
func (q *RedisDelayQueue) requeue(ctx context.Context, payload Payload, at time.Time) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	pipe := q.client.TxPipeline()
	pipe.ZAddNX(ctx, dueSetKey, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: payload.Key,
	})
	pipe.HSetNX(ctx, payloadHashKey, payload.Key, data)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to requeue timer",
			slog.String("key", payload.Key),
			slog.String("error", err.Error()),
		)
	}
}
