package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Angmiin/buccynew/internal/cache"
	"github.com/Angmiin/buccynew/internal/domain"
	"github.com/Angmiin/buccynew/internal/repository"
	"golang.org/x/sync/singleflight"
)

type CartService struct {
	repo     repository.CartRepository
	products repository.ProductRepository
	cache    cache.CartCache
	logger   *slog.Logger
	sfg      singleflight.Group // Prevents cache stampede
	fills    *fillGuard
}

func NewCartService(
	repo repository.CartRepository,
	products repository.ProductRepository,
	cache cache.CartCache,
	logger *slog.Logger,
) *CartService {
	return &CartService{
		repo:     repo,
		products: products,
		cache:    cache,
		logger:   logger.With(slog.String("component", "cart")),
		fills:    newFillGuard(),
	}
}

type AddItemRequest struct {
	ProductID string
	Quantity  int
	Size      string
	Color     string
}

// GetCart returns the stored cart, creating an empty one on first access.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "cache get error", slog.String("user_id", userID), slog.Any("error", err))
		}

		gen := s.fills.begin(userID)
		cart, err = s.repo.GetCart(ctx, userID)
		if err != nil {
			s.fills.commit(userID, gen, nil)
			s.logger.ErrorContext(ctx, "repo get cart error", slog.String("user_id", userID), slog.Any("error", err))
			return nil, err
		}

		// a write that landed after the read above has already bumped the generation
		s.fills.commit(userID, gen, func() {
			if errSet := s.cache.Set(ctx, userID, cart); errSet != nil {
				s.logger.WarnContext(ctx, "cache set error", slog.String("user_id", userID), slog.Any("error", errSet))
			}
		})

		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// ResolveCart joins every line with the current product record in one
// batched lookup. Deleted products leave the line with a nil Product.
func (s *CartService) ResolveCart(ctx context.Context, userID string) (*domain.ResolvedCart, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, userID, cart)
}

// resolveFresh reads the cart straight from the repository so a mutation
// always answers with its own write.
func (s *CartService) resolveFresh(ctx context.Context, userID string) (*domain.ResolvedCart, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "repo get cart error", slog.String("user_id", userID), slog.Any("error", err))
		return nil, err
	}
	return s.resolve(ctx, userID, cart)
}

func (s *CartService) resolve(ctx context.Context, userID string, cart *domain.Cart) (*domain.ResolvedCart, error) {
	products, err := s.products.GetProducts(ctx, productIDs(cart.Items))
	if err != nil {
		s.logger.ErrorContext(ctx, "product lookup error", slog.String("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	return domain.Resolve(cart, products), nil
}

// AddToCart validates the product and its stock before touching the cart,
// so a failed add leaves the cart unchanged.
func (s *CartService) AddToCart(ctx context.Context, userID string, req AddItemRequest) (*domain.ResolvedCart, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ProductID) == "" {
		return nil, domain.Validation("productId", "is required")
	}
	if req.Quantity < 1 {
		return nil, domain.Validation("quantity", "must be at least 1")
	}

	product, err := s.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, domain.NotFound("product", req.ProductID)
		}
		s.logger.ErrorContext(ctx, "product lookup error", slog.String("product_id", req.ProductID), slog.Any("error", err))
		return nil, err
	}
	if !product.HasStock(req.Quantity) {
		return nil, domain.InsufficientStock(req.ProductID, req.Quantity, product.Stock)
	}

	item := domain.CartItem{
		ProductID: req.ProductID,
		Size:      req.Size,
		Color:     req.Color,
		Quantity:  req.Quantity,
		AddedAt:   time.Now(),
	}
	if err := s.repo.AddItem(ctx, userID, item); err != nil {
		s.logger.ErrorContext(ctx, "repo add item error", slog.String("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	s.invalidateCache(userID)
	return s.resolveFresh(ctx, userID)
}

// UpdateCartItem sets an absolute quantity; quantity <= 0 removes the line.
func (s *CartService) UpdateCartItem(ctx context.Context, userID string, key domain.LineKey, quantity int) (*domain.ResolvedCart, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if key.ProductID == "" {
		return nil, domain.Validation("productId", "is required")
	}

	if err := s.repo.UpdateItemQuantity(ctx, userID, key, quantity); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, domain.NotFound("cart item", key.ProductID)
		}
		s.logger.ErrorContext(ctx, "repo update item quantity error", slog.String("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	s.invalidateCache(userID)
	return s.resolveFresh(ctx, userID)
}

// RemoveFromCart removes the line whose key matches exactly.
func (s *CartService) RemoveFromCart(ctx context.Context, userID string, key domain.LineKey) (*domain.ResolvedCart, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if key.ProductID == "" {
		return nil, domain.Validation("productId", "is required")
	}

	if err := s.repo.RemoveItem(ctx, userID, key); err != nil {
		s.logger.ErrorContext(ctx, "repo remove item error", slog.String("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	s.invalidateCache(userID)
	return s.resolveFresh(ctx, userID)
}

func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	if err := s.repo.ClearCart(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "repo clear cart error", slog.String("user_id", userID), slog.Any("error", err))
		return err
	}

	s.invalidateCache(userID)
	return nil
}

// SetCart replaces the stored lines wholesale. Stock is not re-validated;
// duplicate keys within the payload are collapsed into one line.
func (s *CartService) SetCart(ctx context.Context, userID string, items []domain.CartItem) (*domain.ResolvedCart, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.ProductID == "" {
			return nil, domain.Validation("cart", "every item needs a productId")
		}
		if item.Quantity < 1 {
			return nil, domain.Validation("cart", "every item needs a quantity of at least 1")
		}
	}

	if err := s.repo.SetCart(ctx, userID, domain.Collapse(items)); err != nil {
		s.logger.ErrorContext(ctx, "repo set cart error", slog.String("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	s.invalidateCache(userID)
	return s.resolveFresh(ctx, userID)
}

func (s *CartService) invalidateCache(userID string) {
	s.fills.invalidate(userID)
	s.sfg.Forget(userID)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cache invalidate error", slog.String("user_id", userID), slog.Any("error", err))
	}
}

func productIDs(items []domain.CartItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.Validation("userId", "is required")
	}
	return nil
}
