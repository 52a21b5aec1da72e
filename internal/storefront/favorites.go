package storefront

import (
	"context"
	"errors"
	"sync"

	"github.com/Angmiin/buccynew/internal/domain"
)

var ErrSignedOut = errors.New("no signed-in user")

type FavoritesAPI interface {
	ListFavorites(ctx context.Context, userID string) ([]domain.Product, error)
	AddFavorite(ctx context.Context, userID, productID string) ([]domain.Product, error)
	RemoveFavorite(ctx context.Context, userID, productID string) ([]domain.Product, error)
}

// Favorites mirrors the server's favorites list. It never changes locally:
// every successful call replaces the list with the server's answer, and a
// failed call returns its error and leaves the list as it was.
type Favorites struct {
	m       sync.RWMutex
	api     FavoritesAPI
	userID  string
	items   []domain.Product
	issued  uint64
	applied uint64
}

func NewFavorites(api FavoritesAPI, userID string) *Favorites {
	return &Favorites{api: api, userID: userID, items: []domain.Product{}}
}

func (f *Favorites) Refresh(ctx context.Context) error {
	return f.call(ctx, func(ctx context.Context, userID string) ([]domain.Product, error) {
		return f.api.ListFavorites(ctx, userID)
	})
}

func (f *Favorites) Add(ctx context.Context, productID string) error {
	return f.call(ctx, func(ctx context.Context, userID string) ([]domain.Product, error) {
		return f.api.AddFavorite(ctx, userID, productID)
	})
}

func (f *Favorites) Remove(ctx context.Context, productID string) error {
	return f.call(ctx, func(ctx context.Context, userID string) ([]domain.Product, error) {
		return f.api.RemoveFavorite(ctx, userID, productID)
	})
}

func (f *Favorites) IsFavorite(productID string) bool {
	f.m.RLock()
	defer f.m.RUnlock()
	for _, p := range f.items {
		if p.ID == productID {
			return true
		}
	}
	return false
}

func (f *Favorites) Products() []domain.Product {
	f.m.RLock()
	defer f.m.RUnlock()
	return append([]domain.Product(nil), f.items...)
}

// Reset drops the cached list and detaches the user.
func (f *Favorites) Reset() {
	f.m.Lock()
	defer f.m.Unlock()
	f.userID = ""
	f.items = []domain.Product{}
	f.applied = f.issued
}

// call applies a response only if no later-issued call has already landed.
func (f *Favorites) call(ctx context.Context, fn func(context.Context, string) ([]domain.Product, error)) error {
	f.m.Lock()
	userID := f.userID
	f.issued++
	seq := f.issued
	f.m.Unlock()

	if userID == "" {
		return ErrSignedOut
	}

	products, err := fn(ctx, userID)
	if err != nil {
		return err
	}

	f.m.Lock()
	defer f.m.Unlock()
	if seq > f.applied && f.userID == userID {
		f.items = products
		f.applied = seq
	}
	return nil
}
