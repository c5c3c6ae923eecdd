package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "profilecheck:kv:"
	maxWatchRetries    = 8
)

// ErrWriteConflict means a batch lost the optimistic WATCH race too many times.
var ErrWriteConflict = errors.New("kv: redis write conflict")

// RedisBackend stores entries as Redis strings under a key prefix. Batches are
// applied in MULTI/EXEC guarded by WATCH on the usage counter.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// RedisOption configures a RedisBackend.
type RedisOption func(*RedisBackend)

// WithKeyPrefix namespaces all keys.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisBackend) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// NewRedisBackend wraps client.
func NewRedisBackend(client *redis.Client, opts ...RedisOption) *RedisBackend {
	r := &RedisBackend{client: client, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisBackend) key(k []byte) string {
	return r.prefix + string(k)
}

func (r *RedisBackend) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (r *RedisBackend) Usage(ctx context.Context) (uint64, error) {
	return readRedisUsage(ctx, r.client, r.key(usageKey))
}

type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readRedisUsage(ctx context.Context, c redisGetter, key string) (uint64, error) {
	s, err := c.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get usage: %w", err)
	}
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis usage %q: %w", s, err)
	}
	return u, nil
}

func (r *RedisBackend) Apply(ctx context.Context, batch *Batch) error {
	uKey := r.key(usageKey)

	txf := func(tx *redis.Tx) error {
		usage, err := readRedisUsage(ctx, tx, uKey)
		if err != nil {
			return err
		}
		next, err := applyDelta(usage, batch.UsageDelta)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, op := range batch.Ops {
				if op.Delete {
					pipe.Del(ctx, r.key(op.Key))
					continue
				}
				pipe.Set(ctx, r.key(op.Key), op.Value, 0)
			}
			pipe.Set(ctx, uKey, strconv.FormatUint(next, 10), 0)
			return nil
		})
		return err
	}

	for range maxWatchRetries {
		err := r.client.Watch(ctx, txf, uKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis apply: %w", err)
		}
		return nil
	}
	return ErrWriteConflict
}

// Close is a no-op; the client is owned by the caller.
func (r *RedisBackend) Close() error {
	return nil
}
