package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Angmiin/buccynew/internal/domain"
	"github.com/Angmiin/buccynew/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCarts struct {
	cart     *domain.ResolvedCart
	err      error
	userID   string
	addReq   service.AddItemRequest
	key      domain.LineKey
	quantity int
	setItems []domain.CartItem
	cleared  bool
}

func (f *fakeCarts) ResolveCart(_ context.Context, userID string) (*domain.ResolvedCart, error) {
	f.userID = userID
	return f.cart, f.err
}

func (f *fakeCarts) AddToCart(_ context.Context, userID string, req service.AddItemRequest) (*domain.ResolvedCart, error) {
	f.userID, f.addReq = userID, req
	return f.cart, f.err
}

func (f *fakeCarts) UpdateCartItem(_ context.Context, userID string, key domain.LineKey, quantity int) (*domain.ResolvedCart, error) {
	f.userID, f.key, f.quantity = userID, key, quantity
	return f.cart, f.err
}

func (f *fakeCarts) RemoveFromCart(_ context.Context, userID string, key domain.LineKey) (*domain.ResolvedCart, error) {
	f.userID, f.key = userID, key
	return f.cart, f.err
}

func (f *fakeCarts) ClearCart(_ context.Context, userID string) error {
	if userID == "" {
		return domain.Validation("userId", "is required")
	}
	f.userID, f.cleared = userID, true
	return f.err
}

func (f *fakeCarts) SetCart(_ context.Context, userID string, items []domain.CartItem) (*domain.ResolvedCart, error) {
	f.userID, f.setItems = userID, items
	return f.cart, f.err
}

type fakeFavorites struct {
	entries   []domain.FavoriteEntry
	err       error
	productID string
}

func (f *fakeFavorites) List(context.Context, string) ([]domain.FavoriteEntry, error) {
	return f.entries, f.err
}

func (f *fakeFavorites) Add(_ context.Context, _ string, productID string) ([]domain.FavoriteEntry, error) {
	f.productID = productID
	return f.entries, f.err
}

func (f *fakeFavorites) Remove(_ context.Context, _ string, productID string) ([]domain.FavoriteEntry, error) {
	f.productID = productID
	return f.entries, f.err
}

type fakeOrders struct {
	order *domain.Order
	list  []domain.Order
	err   error
	req   service.PlaceOrderRequest
	id    string
}

func (f *fakeOrders) PlaceOrder(_ context.Context, req service.PlaceOrderRequest) (*domain.Order, error) {
	f.req = req
	return f.order, f.err
}

func (f *fakeOrders) ListOrders(context.Context, string) ([]domain.Order, error) {
	return f.list, f.err
}

func (f *fakeOrders) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	f.id = id
	return f.order, f.err
}

func newTestRouter(carts *fakeCarts, favs *fakeFavorites, orders *fakeOrders, health *HealthHandler) http.Handler {
	logger := discardLogger()
	if health == nil {
		health = NewHealthHandler(nil, nil, time.Second)
	}
	return NewRouter(
		RouterConfig{RequestTimeout: 5 * time.Second, MaxRequestBodySize: 1 << 20},
		NewCartHandler(carts, 5*time.Second, logger),
		NewFavoritesHandler(favs, 5*time.Second, logger),
		NewOrdersHandler(orders, 5*time.Second, logger),
		health,
		logger,
	)
}
