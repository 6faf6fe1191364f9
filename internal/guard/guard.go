package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"erp-ledger/internal/core"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// SubmissionGuard serialises write requests that share a key, so a sale
// submitted twice at once is processed at most once across server
// instances. Later duplicates are caught by the idempotency key column.
type SubmissionGuard interface {
	// Acquire returns a release func, or an ErrInvalidInput error when
	// another submission with the same key is in flight.
	Acquire(ctx context.Context, key string) (func(), error)
	Close() error
}

type redisGuard struct {
	client *redis.Client
	locker *redislock.Client
	ttl    time.Duration
	log    logrus.FieldLogger
}

// NewRedisGuard connects to addr and pings it once. There is no retry loop:
// a guard that cannot reach redis at startup is a configuration error.
func NewRedisGuard(ctx context.Context, addr string, ttl time.Duration, log logrus.FieldLogger) (SubmissionGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       0,
		PoolSize: 20,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect redis at %s: %w", addr, err)
	}
	log.WithField("addr", addr).Info("submission guard connected to redis")
	return &redisGuard{client: client, locker: redislock.New(client), ttl: ttl, log: log}, nil
}

func (g *redisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	lock, err := g.locker.Obtain(ctx, "submission:"+key, g.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("submission %s is already being processed: %w", key, core.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain submission lock: %w", errors.Join(core.ErrUnavailable, err))
	}
	return func() {
		// A fresh context: the request context may already be cancelled.
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			g.log.WithError(err).WithField("key", key).Warn("failed to release submission lock")
		}
	}, nil
}

func (g *redisGuard) Close() error {
	return g.client.Close()
}

type noopGuard struct{}

// NewNoopGuard is used when REDIS_ADDRESS is not configured. Duplicate
// protection then rests on the idempotency key alone.
func NewNoopGuard() SubmissionGuard { return noopGuard{} }

func (noopGuard) Acquire(context.Context, string) (func(), error) { return func() {}, nil }

func (noopGuard) Close() error { return nil }
