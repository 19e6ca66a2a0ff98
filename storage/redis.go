package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces the hashes written by the Redis backend.
const DefaultRedisPrefix = "miniperscache"

// RedisClient is the minimal Redis interface needed by the backend.
type RedisClient interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisConfig configures a Redis backend created from connection settings.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int

	// Prefix namespaces the per-tag hashes.
	// Default: DefaultRedisPrefix
	Prefix string
}

// Redis stores each tag as one hash whose fields are hex-encoded digests.
type Redis struct {
	client RedisClient
	prefix string
}

// NewRedis wraps an existing client.
func NewRedis(client RedisClient, prefix string) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis: client is nil")
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}, nil
}

// OpenRedis creates a client from cfg and wraps it. Addr, Username and
// Password may reference environment variables as ${NAME}.
func OpenRedis(cfg RedisConfig) (*Redis, error) {
	if err := expandAll(&cfg.Addr, &cfg.Username, &cfg.Password); err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	if cfg.Addr == "" {
		return nil, errors.New("redis: addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedis(client, cfg.Prefix)
}

func (r *Redis) key(tag string) string {
	return r.prefix + ":" + tag
}

// Get reads the hash field for digest.
func (r *Redis) Get(ctx context.Context, tag string, digest []byte) ([]byte, bool, error) {
	value, err := r.client.HGet(ctx, r.key(tag), hex.EncodeToString(digest)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis: get entry: %w", err)
	}
	return value, true, nil
}

// Set writes the hash field for digest.
func (r *Redis) Set(ctx context.Context, tag string, digest, value []byte) error {
	if err := r.client.HSet(ctx, r.key(tag), hex.EncodeToString(digest), value).Err(); err != nil {
		return fmt.Errorf("redis: set entry: %w", err)
	}
	return nil
}

// DeleteAllWithTag deletes the tag's hash.
func (r *Redis) DeleteAllWithTag(ctx context.Context, tag string) error {
	if err := r.client.Del(ctx, r.key(tag)).Err(); err != nil {
		return fmt.Errorf("redis: delete tag: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

var (
	_ Storage = (*Redis)(nil)
	_ Pinger  = (*Redis)(nil)
)
