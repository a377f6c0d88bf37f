package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jdziat/simple-uow/pkg/core"
)

// DefaultRedisKey is the list jobs are pushed onto.
const DefaultRedisKey = "simple-uow:jobs"

// RedisBus queues jobs on a Redis list.
type RedisBus struct {
	client redis.UniversalClient
	key    string
	config Config
}

// NewRedisBus creates a RedisBus using the list key.
func NewRedisBus(client redis.UniversalClient, key string, opts ...Option) (*RedisBus, error) {
	if client == nil {
		return nil, errors.New("uow: redis client is required")
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisBus{client: client, key: key, config: newConfig(opts)}, nil
}

// Key returns the Redis list key.
func (b *RedisBus) Key() string {
	return b.key
}

// Publish appends the job's frame to the list.
func (b *RedisBus) Publish(ctx context.Context, job core.Job) error {
	data, err := b.config.encodeJob(job)
	if err != nil {
		return err
	}
	if err := b.client.RPush(ctx, b.key, data).Err(); err != nil {
		return fmt.Errorf("redis rpush: %w", err)
	}
	return nil
}

// Subscribe pops frames with BLPOP and feeds them to fn. A frame whose
// handler was interrupted by ctx is pushed back before Subscribe returns.
func (b *RedisBus) Subscribe(ctx context.Context, fn func(context.Context, core.Job) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := b.client.BLPop(ctx, b.config.PollTimeout, b.key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case errors.Is(err, redis.ErrClosed):
			return nil
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.config.Logger.Warn("redis pop failed", "key", b.key, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.config.RetryDelay):
			}
			continue
		}

		// result is [key, value]
		if len(result) != 2 {
			continue
		}
		if err := b.config.deliver(ctx, "redis", []byte(result[1]), fn); interrupted(ctx, err) {
			b.requeue(ctx, result[1])
			return ctx.Err()
		}
	}
}

// requeue pushes a popped frame back to the head of the list so the next
// consumer takes it first.
func (b *RedisBus) requeue(ctx context.Context, frame string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.config.PollTimeout)
	defer cancel()
	if err := b.client.LPush(ctx, b.key, frame).Err(); err != nil {
		b.config.Logger.Error("failed to requeue job frame", "key", b.key, "error", err)
	}
}

// Pending returns the number of queued frames.
func (b *RedisBus) Pending(ctx context.Context) (int64, error) {
	return b.client.LLen(ctx, b.key).Result()
}
