package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/Angmiin/buccynew/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	cartPrefix      = "cart"
	favoritesPrefix = "favorites"
)

type RedisStore[T any] struct {
	client  *redis.Client
	prefix  string
	baseTTL time.Duration
}

func NewRedisStore[T any](client *redis.Client, prefix string, baseTTL time.Duration) *RedisStore[T] {
	return &RedisStore[T]{
		client:  client,
		prefix:  prefix,
		baseTTL: baseTTL,
	}
}

func NewCartCache(client *redis.Client) *RedisStore[domain.Cart] {
	return NewRedisStore[domain.Cart](client, cartPrefix, 15*time.Minute)
}

func NewFavoritesCache(client *redis.Client) *RedisStore[domain.Favorites] {
	return NewRedisStore[domain.Favorites](client, favoritesPrefix, 15*time.Minute)
}

func (r *RedisStore[T]) Get(ctx context.Context, userID string) (*T, error) {
	key := r.cacheKey(userID)

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %s failed: %w", r.prefix, err)
	}

	return &v, nil
}

func (r *RedisStore[T]) Set(ctx context.Context, userID string, v *T) error {
	key := r.cacheKey(userID)
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", r.prefix, err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	ttl := r.baseTTL + jitter
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore[T]) Delete(ctx context.Context, userID string) error {
	key := r.cacheKey(userID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}

	return nil
}

func (r *RedisStore[T]) cacheKey(userID string) string {
	return fmt.Sprintf("%s:%s", r.prefix, userID)
}
