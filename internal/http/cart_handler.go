package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Angmiin/buccynew/internal/domain"
	"github.com/Angmiin/buccynew/internal/service"
)

type CartService interface {
	ResolveCart(ctx context.Context, userID string) (*domain.ResolvedCart, error)
	AddToCart(ctx context.Context, userID string, req service.AddItemRequest) (*domain.ResolvedCart, error)
	UpdateCartItem(ctx context.Context, userID string, key domain.LineKey, quantity int) (*domain.ResolvedCart, error)
	RemoveFromCart(ctx context.Context, userID string, key domain.LineKey) (*domain.ResolvedCart, error)
	ClearCart(ctx context.Context, userID string) error
	SetCart(ctx context.Context, userID string, items []domain.CartItem) (*domain.ResolvedCart, error)
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
	logger  *slog.Logger
}

func NewCartHandler(carts CartService, timeout time.Duration, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
		logger:  logger,
	}
}

// CartLineDTO is the wire form of a line item. Display fields are filled
// from the product record on responses and ignored on requests.
type CartLineDTO struct {
	ProductID string  `json:"productId"`
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
	Quantity  int     `json:"quantity"`
	Available bool    `json:"available"`
}

type CartResponse struct {
	Cart  []CartLineDTO `json:"cart"`
	Total float64       `json:"total"`
}

type SetCartRequestDTO struct {
	UserID string          `json:"userId" validate:"required"`
	Cart   json.RawMessage `json:"cart"`
}

type AddItemRequestDTO struct {
	UserID    string `json:"userId" validate:"required"`
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type UpdateItemRequestDTO struct {
	UserID    string `json:"userId" validate:"required"`
	ProductID string `json:"productId" validate:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

type RemoveItemRequestDTO struct {
	UserID    string `json:"userId" validate:"required"`
	ProductID string `json:"productId" validate:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// GetCart answers with an empty cart when no user is given.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		respondJSON(w, http.StatusOK, CartResponse{Cart: []CartLineDTO{}})
		return
	}

	cart, err := h.carts.ResolveCart(ctx, userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(cart))
}

// SetCart replaces the server cart with the posted lines.
func (h *CartHandler) SetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SetCartRequestDTO
	if err := decodeAndValidate(r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	raw := bytes.TrimSpace(req.Cart)
	if len(raw) == 0 || raw[0] != '[' {
		respondError(w, http.StatusBadRequest, "validation_error", "cart must be an array")
		return
	}
	var lines []CartLineDTO
	if err := json.Unmarshal(raw, &lines); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "cart contains invalid line items")
		return
	}

	items := make([]domain.CartItem, 0, len(lines))
	now := time.Now()
	for _, line := range lines {
		productID := line.ProductID
		if productID == "" {
			productID = line.ID
		}
		items = append(items, domain.CartItem{
			ProductID: productID,
			Size:      line.Size,
			Color:     line.Color,
			Quantity:  line.Quantity,
			AddedAt:   now,
		})
	}

	cart, err := h.carts.SetCart(ctx, req.UserID, items)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := decodeAndValidate(r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	cart, err := h.carts.AddToCart(ctx, req.UserID, service.AddItemRequest{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, toCartResponse(cart))
}

// UpdateQuantity sets an absolute quantity; zero or less removes the line.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateItemRequestDTO
	if err := decodeAndValidate(r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	key := domain.LineKey{ProductID: req.ProductID, Size: req.Size, Color: req.Color}
	cart, err := h.carts.UpdateCartItem(ctx, req.UserID, key, req.Quantity)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req RemoveItemRequestDTO
	if err := decodeAndValidate(r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	key := domain.LineKey{ProductID: req.ProductID, Size: req.Size, Color: req.Color}
	cart, err := h.carts.RemoveFromCart(ctx, req.UserID, key)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if err := h.carts.ClearCart(ctx, userID); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, CartResponse{Cart: []CartLineDTO{}})
}

func toCartResponse(cart *domain.ResolvedCart) CartResponse {
	lines := make([]CartLineDTO, len(cart.Items))
	for i, item := range cart.Items {
		line := CartLineDTO{
			ProductID: item.ProductID,
			Size:      item.Size,
			Color:     item.Color,
			Quantity:  item.Quantity,
		}
		if p := item.Product; p != nil {
			line.Name = p.Name
			line.Price = p.Price
			line.Available = true
			if len(p.Images) > 0 {
				line.Image = p.Images[0]
			}
		}
		lines[i] = line
	}
	return CartResponse{Cart: lines, Total: cart.Total}
}
