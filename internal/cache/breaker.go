package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Breaker guards a Store with a circuit breaker. While open, reads report a
// miss so callers fall through to the database, and sets fail fast.
//
// Deletes always go to the store. A key whose delete failed stays pending
// and reads as a miss until a later delete or set for it succeeds.
type Breaker[T any] struct {
	next Store[T]
	cb   *gobreaker.CircuitBreaker[*T]

	mu      sync.Mutex
	pending map[string]struct{}
}

func NewBreaker[T any](name string, next Store[T], logger *slog.Logger) *Breaker[T] {
	return newBreaker(name, next, logger, 10*time.Second)
}

func newBreaker[T any](name string, next Store[T], logger *slog.Logger, openTimeout time.Duration) *Breaker[T] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCacheMiss)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cache breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}
	return &Breaker[T]{
		next:    next,
		cb:      gobreaker.NewCircuitBreaker[*T](settings),
		pending: make(map[string]struct{}),
	}
}

func (b *Breaker[T]) Get(ctx context.Context, userID string) (*T, error) {
	if b.isPending(userID) {
		if b.cb.State() != gobreaker.StateOpen && b.next.Delete(ctx, userID) == nil {
			b.clearPending(userID)
		}
		return nil, ErrCacheMiss
	}

	v, err := b.cb.Execute(func() (*T, error) {
		return b.next.Get(ctx, userID)
	})
	if isOpen(err) {
		return nil, ErrCacheMiss
	}
	return v, err
}

func (b *Breaker[T]) Set(ctx context.Context, userID string, v *T) error {
	_, err := b.cb.Execute(func() (*T, error) {
		return nil, b.next.Set(ctx, userID, v)
	})
	if isOpen(err) {
		return ErrCacheUnavailable
	}
	if err == nil {
		b.clearPending(userID)
	}
	return err
}

func (b *Breaker[T]) Delete(ctx context.Context, userID string) error {
	if err := b.next.Delete(ctx, userID); err != nil {
		b.mu.Lock()
		b.pending[userID] = struct{}{}
		b.mu.Unlock()
		return err
	}
	b.clearPending(userID)
	return nil
}

func (b *Breaker[T]) isPending(userID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.pending[userID]
	return ok
}

func (b *Breaker[T]) clearPending(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, userID)
}

func (b *Breaker[T]) State() gobreaker.State {
	return b.cb.State()
}

func isOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
