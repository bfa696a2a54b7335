package session

import (
	"context"
	"errors"
	"time"
)

// RedisClient is the subset of Redis operations the store needs.
// The method set matches github.com/redis/go-redis/v9, so a *redis.Client
// can back it through a thin adapter without this package importing the
// driver.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) RedisStatusCmd
	Get(ctx context.Context, key string) RedisStringCmd
	Del(ctx context.Context, keys ...string) RedisIntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) RedisBoolCmd
	Pipeline() RedisPipeliner
	Close() error
}

// RedisStatusCmd is a status command result.
type RedisStatusCmd interface {
	Err() error
}

// RedisStringCmd is a string command result.
type RedisStringCmd interface {
	Bytes() ([]byte, error)
	Err() error
}

// RedisIntCmd is an integer command result.
type RedisIntCmd interface {
	Err() error
}

// RedisBoolCmd is a boolean command result.
type RedisBoolCmd interface {
	Err() error
}

// RedisPipeliner batches commands into one round trip.
type RedisPipeliner interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) RedisStatusCmd
	Exec(ctx context.Context) ([]interface{}, error)
}

// ErrRedisNil mirrors redis.Nil from go-redis, the error a Get returns
// for an absent key.
var ErrRedisNil = errors.New("redis: nil")

// RedisStore is a Redis-backed session store for multi-server
// deployments. Expiration rides on Redis TTLs, so no cleanup loop is
// needed.
type RedisStore struct {
	client RedisClient
	prefix string
	closed bool
}

// RedisStoreOption configures RedisStore behavior.
type RedisStoreOption func(*redisStoreConfig)

type redisStoreConfig struct {
	prefix string
}

// WithRedisPrefix sets the key prefix for session keys.
// Default: "mm:session:".
func WithRedisPrefix(prefix string) RedisStoreOption {
	return func(c *redisStoreConfig) {
		c.prefix = prefix
	}
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client RedisClient, opts ...RedisStoreOption) *RedisStore {
	cfg := &redisStoreConfig{
		prefix: "mm:session:",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &RedisStore{
		client: client,
		prefix: cfg.prefix,
	}
}

func (r *RedisStore) key(sessionID string) string {
	return r.prefix + sessionID
}

// Save stores session data under a TTL derived from expiresAt.
func (r *RedisStore) Save(ctx context.Context, sessionID string, data []byte, expiresAt time.Time) error {
	if r.closed {
		return ErrStoreClosed{}
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already expired, delete instead.
		return r.Delete(ctx, sessionID)
	}

	return r.client.Set(ctx, r.key(sessionID), data, ttl).Err()
}

// Load retrieves session data if it exists.
func (r *RedisStore) Load(ctx context.Context, sessionID string) ([]byte, error) {
	if r.closed {
		return nil, ErrStoreClosed{}
	}

	data, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {
		// Absent keys answer with redis.Nil, which is not a failure.
		if err.Error() == ErrRedisNil.Error() {
			return nil, nil
		}
		return nil, err
	}

	return data, nil
}

// Delete removes a session from Redis.
func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if r.closed {
		return ErrStoreClosed{}
	}

	return r.client.Del(ctx, r.key(sessionID)).Err()
}

// Touch resets the TTL for a session.
func (r *RedisStore) Touch(ctx context.Context, sessionID string, expiresAt time.Time) error {
	if r.closed {
		return ErrStoreClosed{}
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return r.Delete(ctx, sessionID)
	}

	return r.client.Expire(ctx, r.key(sessionID), ttl).Err()
}

// SaveAll saves multiple sessions in one pipeline round trip.
func (r *RedisStore) SaveAll(ctx context.Context, sessions map[string]SessionData) error {
	if r.closed {
		return ErrStoreClosed{}
	}

	if len(sessions) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for id, sd := range sessions {
		ttl := time.Until(sd.ExpiresAt)
		if ttl > 0 {
			pipe.Set(ctx, r.key(id), sd.Data, ttl)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

// Close marks the store as closed. The underlying client is left open
// since it may be shared with other components.
func (r *RedisStore) Close() error {
	r.closed = true
	return nil
}

// Prefix returns the key prefix in use.
func (r *RedisStore) Prefix() string {
	return r.prefix
}
