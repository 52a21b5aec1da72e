package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Angmiin/buccynew/internal/domain"
)

type FavoritesService interface {
	List(ctx context.Context, userID string) ([]domain.FavoriteEntry, error)
	Add(ctx context.Context, userID, productID string) ([]domain.FavoriteEntry, error)
	Remove(ctx context.Context, userID, productID string) ([]domain.FavoriteEntry, error)
}

type FavoritesHandler struct {
	favorites FavoritesService
	timeout   time.Duration
	logger    *slog.Logger
}

func NewFavoritesHandler(favorites FavoritesService, timeout time.Duration, logger *slog.Logger) *FavoritesHandler {
	return &FavoritesHandler{
		favorites: favorites,
		timeout:   timeout,
		logger:    logger,
	}
}

// FavoritesResponse lists resolved products; ids whose product is gone are omitted.
type FavoritesResponse struct {
	Favorites []domain.Product `json:"favorites"`
}

type ProductRefDTO struct {
	ID string `json:"id" validate:"required"`
}

type AddFavoriteRequestDTO struct {
	UserID  string         `json:"userId" validate:"required"`
	Product *ProductRefDTO `json:"product" validate:"required"`
}

type RemoveFavoriteRequestDTO struct {
	UserID    string `json:"userId" validate:"required"`
	ProductID string `json:"productId" validate:"required"`
}

func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		respondJSON(w, http.StatusOK, FavoritesResponse{Favorites: []domain.Product{}})
		return
	}

	entries, err := h.favorites.List(ctx, userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, FavoritesResponse{Favorites: domain.Products(entries)})
}

func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddFavoriteRequestDTO
	if err := decodeAndValidate(r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	entries, err := h.favorites.Add(ctx, req.UserID, req.Product.ID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, FavoritesResponse{Favorites: domain.Products(entries)})
}

func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req RemoveFavoriteRequestDTO
	if err := decodeAndValidate(r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	entries, err := h.favorites.Remove(ctx, req.UserID, req.ProductID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, FavoritesResponse{Favorites: domain.Products(entries)})
}
