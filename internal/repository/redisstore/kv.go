package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// KVStore keeps each collection under "<namespace>:<key>".
type KVStore struct {
	rdb       *redis.Client
	namespace string
}

// NewKVStore parses redisURL and validates connectivity.
func NewKVStore(ctx context.Context, redisURL, namespace string) (*KVStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewKVStoreFromClient(rdb, namespace), nil
}

// NewKVStoreFromClient wraps an existing client.
func NewKVStoreFromClient(rdb *redis.Client, namespace string) *KVStore {
	return &KVStore{rdb: rdb, namespace: namespace}
}

func (s *KVStore) key(k string) string {
	return s.namespace + ":" + k
}

// Get returns the value stored under key.
func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

// SetMany writes every value inside MULTI/EXEC.
func (s *KVStore) SetMany(ctx context.Context, values map[string]string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, s.key(k), v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis commit: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *KVStore) Close(context.Context) error {
	return s.rdb.Close()
}
