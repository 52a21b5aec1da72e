package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Angmiin/buccynew/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// APIError is a non-2xx answer from the storefront API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Client talks to the cart and favorites endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type serverLine struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
	Quantity  int     `json:"quantity"`
	Available bool    `json:"available"`
}

type cartEnvelope struct {
	Cart  []serverLine `json:"cart"`
	Total float64      `json:"total"`
}

type favoritesEnvelope struct {
	Favorites []domain.Product `json:"favorites"`
}

type errorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ServerCart is the server copy of a cart. Lines whose product no longer
// exists come back with Available false.
type ServerCart struct {
	Lines       []LineItem
	Unavailable []string
	Total       float64
}

func (c *Client) GetCart(ctx context.Context, userID string) (*ServerCart, error) {
	var env cartEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/cart?userId="+url.QueryEscape(userID), nil, &env); err != nil {
		return nil, err
	}
	return env.toServerCart(), nil
}

// SetCart replaces the server cart with lines.
func (c *Client) SetCart(ctx context.Context, userID string, lines []LineItem) (*ServerCart, error) {
	wire := make([]serverLine, len(lines))
	for i, l := range lines {
		wire[i] = serverLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.Price,
			Image:     l.Image,
			Size:      l.Size,
			Color:     l.Color,
			Quantity:  l.Quantity,
		}
	}
	body := map[string]interface{}{"userId": userID, "cart": wire}

	var env cartEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/cart", body, &env); err != nil {
		return nil, err
	}
	return env.toServerCart(), nil
}

func (c *Client) ListFavorites(ctx context.Context, userID string) ([]domain.Product, error) {
	var env favoritesEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/favorites?userId="+url.QueryEscape(userID), nil, &env); err != nil {
		return nil, err
	}
	return env.products(), nil
}

func (c *Client) AddFavorite(ctx context.Context, userID, productID string) ([]domain.Product, error) {
	body := map[string]interface{}{"userId": userID, "product": map[string]string{"id": productID}}

	var env favoritesEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/favorites", body, &env); err != nil {
		return nil, err
	}
	return env.products(), nil
}

func (c *Client) RemoveFavorite(ctx context.Context, userID, productID string) ([]domain.Product, error) {
	body := map[string]string{"userId": userID, "productId": productID}

	var env favoritesEnvelope
	if err := c.do(ctx, http.MethodDelete, "/api/favorites", body, &env); err != nil {
		return nil, err
	}
	return env.products(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var env errorEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&env); err == nil {
		if env.Error != "" {
			apiErr.Message = env.Error
		}
		apiErr.Code = env.Code
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		apiErr.Err = domain.ErrValidation
	case http.StatusNotFound:
		apiErr.Err = domain.ErrNotFound
	case http.StatusConflict:
		apiErr.Err = domain.ErrInsufficientStock
	default:
		apiErr.Err = errors.New(strings.ToLower(http.StatusText(resp.StatusCode)))
	}
	return apiErr
}

func (e cartEnvelope) toServerCart() *ServerCart {
	out := &ServerCart{Lines: make([]LineItem, 0, len(e.Cart)), Total: e.Total}
	for _, l := range e.Cart {
		if !l.Available {
			out.Unavailable = append(out.Unavailable, l.ProductID)
		}
		out.Lines = append(out.Lines, LineItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.Price,
			Image:     l.Image,
			Size:      l.Size,
			Color:     l.Color,
			Quantity:  l.Quantity,
		})
	}
	return out
}

func (e favoritesEnvelope) products() []domain.Product {
	if e.Favorites == nil {
		return []domain.Product{}
	}
	return e.Favorites
}
