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
)

// FavoritesService is the sole source of truth for favorites; every mutation
// returns the full resolved list so clients can replace their copy.
type FavoritesService struct {
	repo     repository.FavoritesRepository
	products repository.ProductRepository
	cache    cache.FavoritesCache
	logger   *slog.Logger
	fills    *fillGuard
}

func NewFavoritesService(
	repo repository.FavoritesRepository,
	products repository.ProductRepository,
	cache cache.FavoritesCache,
	logger *slog.Logger,
) *FavoritesService {
	return &FavoritesService{
		repo:     repo,
		products: products,
		cache:    cache,
		logger:   logger.With(slog.String("component", "favorites")),
		fills:    newFillGuard(),
	}
}

func (s *FavoritesService) List(ctx context.Context, userID string) ([]domain.FavoriteEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	favs, err := s.cache.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "cache get error", slog.String("user_id", userID), slog.Any("error", err))
		}
		gen := s.fills.begin(userID)
		favs, err = s.repo.GetFavorites(ctx, userID)
		if err != nil {
			s.fills.commit(userID, gen, nil)
			s.logger.ErrorContext(ctx, "repo get favorites error", slog.String("user_id", userID), slog.Any("error", err))
			return nil, err
		}
		s.fills.commit(userID, gen, func() {
			if errSet := s.cache.Set(ctx, userID, favs); errSet != nil {
				s.logger.WarnContext(ctx, "cache set error", slog.String("user_id", userID), slog.Any("error", errSet))
			}
		})
	}

	return s.resolve(ctx, userID, favs)
}

// listFresh bypasses the cache so a mutation answers with its own write.
func (s *FavoritesService) listFresh(ctx context.Context, userID string) ([]domain.FavoriteEntry, error) {
	favs, err := s.repo.GetFavorites(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "repo get favorites error", slog.String("user_id", userID), slog.Any("error", err))
		return nil, err
	}
	return s.resolve(ctx, userID, favs)
}

func (s *FavoritesService) resolve(ctx context.Context, userID string, favs *domain.Favorites) ([]domain.FavoriteEntry, error) {
	products, err := s.products.GetProducts(ctx, favs.ProductIDs)
	if err != nil {
		s.logger.ErrorContext(ctx, "product lookup error", slog.String("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	entries := domain.ResolveFavorites(favs, products)
	if dangling := len(favs.ProductIDs) - len(products); dangling > 0 {
		s.logger.DebugContext(ctx, "favorites reference missing products",
			slog.String("user_id", userID), slog.Int("dangling", dangling))
	}
	return entries, nil
}

// Add is idempotent; adding a present product returns the unchanged list.
func (s *FavoritesService) Add(ctx context.Context, userID, productID string) ([]domain.FavoriteEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, domain.Validation("productId", "is required")
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, domain.NotFound("product", productID)
		}
		return nil, err
	}

	if err := s.repo.AddFavorite(ctx, userID, product.ID); err != nil {
		s.logger.ErrorContext(ctx, "repo add favorite error", slog.String("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	s.invalidateCache(userID)
	return s.listFresh(ctx, userID)
}

// Remove is idempotent; removing an absent product is a no-op.
func (s *FavoritesService) Remove(ctx context.Context, userID, productID string) ([]domain.FavoriteEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, domain.Validation("productId", "is required")
	}

	if err := s.repo.RemoveFavorite(ctx, userID, productID); err != nil {
		s.logger.ErrorContext(ctx, "repo remove favorite error", slog.String("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	s.invalidateCache(userID)
	return s.listFresh(ctx, userID)
}

func (s *FavoritesService) invalidateCache(userID string) {
	s.fills.invalidate(userID)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cache invalidate error", slog.String("user_id", userID), slog.Any("error", err))
	}
}
