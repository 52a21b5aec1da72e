package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Angmiin/buccynew/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCart() *domain.ResolvedCart {
	return &domain.ResolvedCart{
		UserID: "u1",
		Items: []domain.ResolvedItem{
			{
				CartItem: domain.CartItem{ProductID: "p1", Size: "M", Quantity: 2},
				Product:  &domain.ProductSnapshot{ID: "p1", Name: "Jackie Bag", Price: 100, Images: []string{"/a.jpg", "/b.jpg"}},
			},
			{CartItem: domain.CartItem{ProductID: "gone", Quantity: 1}},
		},
		Total: 200,
	}
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestGetCart_Success(t *testing.T) {
	carts := &fakeCarts{cart: sampleCart()}
	router := newTestRouter(carts, &fakeFavorites{}, &fakeOrders{}, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/cart?userId=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", carts.userID)

	var resp CartResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Cart, 2)
	assert.Equal(t, "Jackie Bag", resp.Cart[0].Name)
	assert.Equal(t, "/a.jpg", resp.Cart[0].Image)
	assert.True(t, resp.Cart[0].Available)
	assert.False(t, resp.Cart[1].Available)
	assert.Equal(t, 200.0, resp.Total)
}

func TestGetCart_NoUserReturnsEmpty(t *testing.T) {
	carts := &fakeCarts{}
	router := newTestRouter(carts, &fakeFavorites{}, &fakeOrders{}, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cart":[],"total":0}`, rec.Body.String())
	assert.Empty(t, carts.userID)
}

func TestGetCart_InternalErrorIsGeneric(t *testing.T) {
	carts := &fakeCarts{err: errors.New("connection refused to mongo:27017")}
	router := newTestRouter(carts, &fakeFavorites{}, &fakeOrders{}, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/cart?userId=u1", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "internal_error", resp.Code)
	assert.NotContains(t, resp.Error, "mongo")
}

func TestSetCart_Success(t *testing.T) {
	carts := &fakeCarts{cart: sampleCart()}
	router := newTestRouter(carts, &fakeFavorites{}, &fakeOrders{}, nil)

	body := `{"userId":"u1","cart":[{"productId":"p1","name":"ignored","price":1,"size":"M","quantity":2},{"id":"p2","quantity":1}]}`
	rec := doRequest(t, router, http.MethodPost, "/api/cart", body)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, carts.setItems, 2)
	assert.Equal(t, domain.LineKey{ProductID: "p1", Size: "M"}, carts.setItems[0].Key())
	assert.Equal(t, "p2", carts.setItems[1].ProductID)
}

func TestSetCart_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing user", `{"cart":[]}`},
		{"cart is object", `{"userId":"u1","cart":{"productId":"p1"}}`},
		{"cart is missing", `{"userId":"u1"}`},
		{"cart is null", `{"userId":"u1","cart":null}`},
		{"invalid json", `{"userId":`},
		{"empty body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			carts := &fakeCarts{cart: sampleCart()}
			router := newTestRouter(carts, &fakeFavorites{}, &fakeOrders{}, nil)

			rec := doRequest(t, router, http.MethodPost, "/api/cart", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, carts.setItems)
		})
	}
}

func TestAddItem_Success(t *testing.T) {
	carts := &fakeCarts{cart: sampleCart()}
	router := newTestRouter(carts, &fakeFavorites{}, &fakeOrders{}, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/cart/items",
		`{"userId":"u1","productId":"p1","quantity":2,"size":"M","color":"black"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "p1", carts.addReq.ProductID)
	assert.Equal(t, 2, carts.addReq.Quantity)
	assert.Equal(t, "black", carts.addReq.Color)
}

func TestAddItem_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", domain.NotFound("product", "p9"), http.StatusNotFound, "not_found"},
		{"insufficient stock", domain.InsufficientStock("p1", 5, 1), http.StatusConflict, "insufficient_stock"},
		{"validation", domain.Validation("quantity", "must be at least 1"), http.StatusBadRequest, "validation_error"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&fakeCarts{err: tt.err}, &fakeFavorites{}, &fakeOrders{}, nil)

			rec := doRequest(t, router, http.MethodPost, "/api/cart/items", `{"userId":"u1","productId":"p1","quantity":1}`)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	carts := &fakeCarts{cart: sampleCart()}
	router := newTestRouter(carts, &fakeFavorites{}, &fakeOrders{}, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/cart/items", `{"userId":"u1","productId":"p1","quantity":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Contains(t, resp.Error, "quantity")
	assert.Empty(t, carts.addReq.ProductID)
}

func TestUpdateQuantity_PassesExactKey(t *testing.T) {
	carts := &fakeCarts{cart: sampleCart()}
	router := newTestRouter(carts, &fakeFavorites{}, &fakeOrders{}, nil)

	rec := doRequest(t, router, http.MethodPatch, "/api/cart/items",
		`{"userId":"u1","productId":"p1","size":"M","quantity":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.LineKey{ProductID: "p1", Size: "M"}, carts.key)
	assert.Equal(t, 0, carts.quantity)
}

func TestRemoveItem(t *testing.T) {
	carts := &fakeCarts{cart: sampleCart()}
	router := newTestRouter(carts, &fakeFavorites{}, &fakeOrders{}, nil)

	rec := doRequest(t, router, http.MethodDelete, "/api/cart/items", `{"userId":"u1","productId":"p1","color":"red"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.LineKey{ProductID: "p1", Color: "red"}, carts.key)
}

func TestClearCart(t *testing.T) {
	carts := &fakeCarts{}
	router := newTestRouter(carts, &fakeFavorites{}, &fakeOrders{}, nil)

	rec := doRequest(t, router, http.MethodDelete, "/api/cart?userId=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, carts.cleared)

	rec = doRequest(t, router, http.MethodDelete, "/api/cart", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestBodyTooLarge(t *testing.T) {
	carts := &fakeCarts{cart: sampleCart()}
	router := NewRouter(
		RouterConfig{RequestTimeout: 5 * time.Second, MaxRequestBodySize: 16},
		NewCartHandler(carts, 5 * time.Second, discardLogger()),
		NewFavoritesHandler(&fakeFavorites{}, 5 * time.Second, discardLogger()),
		NewOrdersHandler(&fakeOrders{}, 5 * time.Second, discardLogger()),
		NewHealthHandler(nil, nil, time.Second),
		discardLogger(),
	)

	rec := doRequest(t, router, http.MethodPost, "/api/cart", `{"userId":"u1","cart":[{"productId":"p1","quantity":1}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, carts.setItems)
}

func TestRequestIDHeader(t *testing.T) {
	router := newTestRouter(&fakeCarts{}, &fakeFavorites{}, &fakeOrders{}, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/cart", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}
