package cache

import (
	"context"
	"errors"

	"github.com/Angmiin/buccynew/internal/domain"
)

// Store caches one document per user.
type Store[T any] interface {
	Get(ctx context.Context, userID string) (*T, error)
	Set(ctx context.Context, userID string, v *T) error
	Delete(ctx context.Context, userID string) error
}

type (
	CartCache      = Store[domain.Cart]
	FavoritesCache = Store[domain.Favorites]
)

var (
	ErrCacheMiss        = errors.New("cache miss")
	ErrCacheUnavailable = errors.New("cache unavailable")
)
