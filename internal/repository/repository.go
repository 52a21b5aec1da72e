package repository

import (
	"context"

	"github.com/Angmiin/buccynew/internal/domain"
)

// CartRepository defines the interface for cart data operations
// Consumers define this interface, not the MongoDB implementation
type CartRepository interface {
	// GetCart returns the user's cart, creating an empty one when absent.
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	// AddItem increments the line with the same key or appends a new line.
	AddItem(ctx context.Context, userID string, item domain.CartItem) error
	// UpdateItemQuantity sets the quantity of the exact line; quantity <= 0 removes it.
	UpdateItemQuantity(ctx context.Context, userID string, key domain.LineKey, quantity int) error
	RemoveItem(ctx context.Context, userID string, key domain.LineKey) error
	ClearCart(ctx context.Context, userID string) error
	SetCart(ctx context.Context, userID string, items []domain.CartItem) error
}

type ProductRepository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	// GetProducts fetches products in one batch; missing ids are absent from the map.
	GetProducts(ctx context.Context, ids []string) (map[string]*domain.Product, error)
	InsertProduct(ctx context.Context, p *domain.Product) (string, error)
}

type FavoritesRepository interface {
	GetFavorites(ctx context.Context, userID string) (*domain.Favorites, error)
	AddFavorite(ctx context.Context, userID, productID string) error
	RemoveFavorite(ctx context.Context, userID, productID string) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string) ([]domain.Order, error)
}
