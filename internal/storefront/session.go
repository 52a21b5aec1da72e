package storefront

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Angmiin/buccynew/internal/domain"
)

var ErrSessionClosed = errors.New("session closed")

type CartAPI interface {
	SetCart(ctx context.Context, userID string, lines []LineItem) (*ServerCart, error)
}

// Session owns the cart and favorites state for one browsing session. It is
// built on sign-in (or for an anonymous visitor) and closed on sign-out.
type Session struct {
	m         sync.Mutex
	userID    string
	cart      *LocalCart
	favorites *Favorites
	carts     CartAPI
	logger    *slog.Logger
	closed    bool
}

// NewSession hydrates the device cart. An empty userID is an anonymous session.
func NewSession(userID string, store Storage, client *Client, logger *slog.Logger) *Session {
	return newSession(userID, store, client, client, logger)
}

func newSession(userID string, store Storage, carts CartAPI, favs FavoritesAPI, logger *slog.Logger) *Session {
	logger = logger.With(slog.String("component", "session"))
	return &Session{
		userID:    userID,
		cart:      NewLocalCart(store, logger),
		favorites: NewFavorites(favs, userID),
		carts:     carts,
		logger:    logger,
	}
}

func (s *Session) UserID() string { return s.userID }

func (s *Session) Cart() *LocalCart { return s.cart }

func (s *Session) Favorites() *Favorites { return s.favorites }

// AddToCart updates the device cart first and then reconciles the server copy.
// The local change stands even when the returned sync error is non-nil. A
// closed session rejects every mutation before touching the device cart.
func (s *Session) AddToCart(ctx context.Context, p *domain.Product, size, color string, quantity int) error {
	return s.mutate(ctx, func() error { return s.cart.Add(p, size, color, quantity) })
}

func (s *Session) UpdateQuantity(ctx context.Context, sel domain.Selector, quantity int) error {
	return s.mutate(ctx, func() error { return s.cart.UpdateQuantity(sel, quantity) })
}

func (s *Session) RemoveFromCart(ctx context.Context, sel domain.Selector) error {
	return s.mutate(ctx, func() error { return s.cart.Remove(sel) })
}

func (s *Session) ClearCart(ctx context.Context) error {
	return s.mutate(ctx, s.cart.Clear)
}

func (s *Session) mutate(ctx context.Context, apply func() error) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	localErr := apply()
	return errors.Join(localErr, s.SyncCart(ctx))
}

func (s *Session) isClosed() bool {
	s.m.Lock()
	defer s.m.Unlock()
	return s.closed
}

// SyncCart pushes the device cart to the server. Anonymous sessions have no
// server copy, so there is nothing to do.
func (s *Session) SyncCart(ctx context.Context) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	if s.userID == "" {
		return nil
	}

	server, err := s.carts.SetCart(ctx, s.userID, s.cart.Items())
	if err != nil {
		s.logger.WarnContext(ctx, "cart sync failed", slog.String("user_id", s.userID), slog.Any("error", err))
		return err
	}
	if len(server.Unavailable) > 0 {
		s.logger.InfoContext(ctx, "cart references unavailable products",
			slog.String("user_id", s.userID), slog.Any("product_ids", server.Unavailable))
	}
	return nil
}

// Close ends the session. The device cart survives; favorites are dropped.
func (s *Session) Close() {
	s.m.Lock()
	defer s.m.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.favorites.Reset()
}
