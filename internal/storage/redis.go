package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hfi/waypoint/internal/errs"
)

// RedisStore is a Redis-based implementation of Store, useful for sharing
// bookmarks between machines.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis-based store
func NewRedisStore(ctx context.Context, address, password string, db int, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errs.Internal(err, "failed to connect to Redis at %s", address)
	}

	return newRedisStore(client, prefix), nil
}

func newRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "waypoint:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) mappingsKey() string { return r.prefix + "mappings" }
func (r *RedisStore) historyKey() string  { return r.prefix + "history" }

// LoadMappings retrieves the bookmarks document
func (r *RedisStore) LoadMappings(ctx context.Context) ([]Mapping, error) {
	data, found, err := r.get(ctx, r.mappingsKey())
	if err != nil || !found {
		return nil, err
	}
	return decodeMappings(data, r.mappingsKey())
}

// SaveMappings writes the bookmarks document
func (r *RedisStore) SaveMappings(ctx context.Context, mappings []Mapping) error {
	data, err := encodeMappings(mappings)
	if err != nil {
		return errs.Internal(err, "failed to encode mappings")
	}
	return r.set(ctx, r.mappingsKey(), data)
}

// LoadHistory retrieves the history document
func (r *RedisStore) LoadHistory(ctx context.Context) (HistoryState, error) {
	data, found, err := r.get(ctx, r.historyKey())
	if err != nil || !found {
		return HistoryState{}, err
	}
	return decodeHistory(data, r.historyKey())
}

// SaveHistory writes the history document
func (r *RedisStore) SaveHistory(ctx context.Context, state HistoryState) error {
	data, err := encodeHistory(state)
	if err != nil {
		return errs.Internal(err, "failed to encode history")
	}
	return r.set(ctx, r.historyKey(), data)
}

// get reports found=false for a missing key; an empty value is still found
func (r *RedisStore) get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Internal(err, "failed to read %s", key)
	}
	return data, true, nil
}

func (r *RedisStore) set(ctx context.Context, key string, data []byte) error {
	// no expiry: bookmarks live until removed
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return errs.Internal(err, "failed to write %s", key)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// String describes the store for logs
func (r *RedisStore) String() string {
	return fmt.Sprintf("redis(%s, prefix=%q)", r.client.Options().Addr, r.prefix)
}
