package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Angmiin/buccynew/internal/cache"
	"github.com/Angmiin/buccynew/internal/domain"
	"github.com/Angmiin/buccynew/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockCartRepository struct {
	m     sync.RWMutex
	carts map[string]*domain.Cart
	err   error
	calls int
	// afterGet runs once the snapshot is taken, outside the lock.
	afterGet func()
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{carts: map[string]*domain.Cart{}}
}

func (m *mockCartRepository) cart(userID string) *domain.Cart {
	c, ok := m.carts[userID]
	if !ok {
		c = &domain.Cart{UserID: userID, Items: []domain.CartItem{}}
		m.carts[userID] = c
	}
	return c
}

func (m *mockCartRepository) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.m.Lock()
	m.calls++
	if m.err != nil {
		m.m.Unlock()
		return nil, m.err
	}
	c := *m.cart(userID)
	c.Items = append([]domain.CartItem(nil), c.Items...)
	hook := m.afterGet
	m.m.Unlock()

	if hook != nil {
		hook()
	}
	return &c, nil
}

func (m *mockCartRepository) AddItem(_ context.Context, userID string, item domain.CartItem) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	c := m.cart(userID)
	c.Items = domain.MergeAdd(c.Items, item)
	return nil
}

func (m *mockCartRepository) UpdateItemQuantity(_ context.Context, userID string, key domain.LineKey, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	c := m.cart(userID)
	found := false
	for _, item := range c.Items {
		if item.Key() == key {
			found = true
		}
	}
	if !found && quantity > 0 {
		return repository.ErrItemNotFound
	}
	sel := domain.Selector{ProductID: key.ProductID, Size: &key.Size, Color: &key.Color}
	c.Items = domain.ApplyQuantity(c.Items, sel, domain.MatchExact, quantity, domain.RemoveAtZero)
	return nil
}

func (m *mockCartRepository) RemoveItem(_ context.Context, userID string, key domain.LineKey) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	c := m.cart(userID)
	sel := domain.Selector{ProductID: key.ProductID, Size: &key.Size, Color: &key.Color}
	c.Items = domain.RemoveMatching(c.Items, sel, domain.MatchExact)
	return nil
}

func (m *mockCartRepository) ClearCart(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cart(userID).Items = []domain.CartItem{}
	return nil
}

func (m *mockCartRepository) SetCart(_ context.Context, userID string, items []domain.CartItem) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cart(userID).Items = append([]domain.CartItem{}, items...)
	return nil
}

type mockProducts struct {
	products map[string]*domain.Product
	err      error
}

func (m *mockProducts) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

func (m *mockProducts) GetProducts(_ context.Context, ids []string) (map[string]*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := map[string]*domain.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *mockProducts) InsertProduct(_ context.Context, p *domain.Product) (string, error) {
	m.products[p.ID] = p
	return p.ID, nil
}

type mockFavoritesRepository struct {
	m        sync.Mutex
	favs     map[string][]string
	err      error
	afterGet func()
}

func (m *mockFavoritesRepository) GetFavorites(_ context.Context, userID string) (*domain.Favorites, error) {
	m.m.Lock()
	if m.err != nil {
		m.m.Unlock()
		return nil, m.err
	}
	favs := &domain.Favorites{UserID: userID, ProductIDs: append([]string{}, m.favs[userID]...)}
	hook := m.afterGet
	m.m.Unlock()

	if hook != nil {
		hook()
	}
	return favs, nil
}

// blockFirstRead parks the first read after its snapshot until release is
// closed; later reads pass straight through.
func blockFirstRead(snapshotTaken chan<- struct{}, release <-chan struct{}) func() {
	var first atomic.Bool
	return func() {
		if first.CompareAndSwap(false, true) {
			close(snapshotTaken)
			<-release
		}
	}
}

func (m *mockFavoritesRepository) AddFavorite(_ context.Context, userID, productID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, id := range m.favs[userID] {
		if id == productID {
			return nil
		}
	}
	m.favs[userID] = append(m.favs[userID], productID)
	return nil
}

func (m *mockFavoritesRepository) RemoveFavorite(_ context.Context, userID, productID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	var kept []string
	for _, id := range m.favs[userID] {
		if id != productID {
			kept = append(kept, id)
		}
	}
	m.favs[userID] = kept
	return nil
}

type mockOrders struct {
	orders []domain.Order
	err    error
}

func (m *mockOrders) CreateOrder(_ context.Context, order *domain.Order) error {
	if m.err != nil {
		return m.err
	}
	order.ID = "order-1"
	m.orders = append(m.orders, *order)
	return nil
}

func (m *mockOrders) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	for _, o := range m.orders {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrders) ListOrders(_ context.Context, userID string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

type mockCache[T any] struct {
	m       sync.RWMutex
	entries map[string]*T
	err     error
}

func newMockCache[T any]() *mockCache[T] {
	return &mockCache[T]{entries: map[string]*T{}}
}

func (m *mockCache[T]) Get(_ context.Context, userID string) (*T, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.entries[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return v, nil
}

func (m *mockCache[T]) Set(_ context.Context, userID string, v *T) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.entries[userID] = v
	return m.err
}

func (m *mockCache[T]) Delete(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.entries, userID)
	return m.err
}

func (m *mockCache[T]) has(userID string) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	_, ok := m.entries[userID]
	return ok
}
