package poller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

const readRetryDelay = time.Second

// CartClearer empties a user's cart and drops any cached copy.
type CartClearer interface {
	ClearCart(ctx context.Context, userID string) error
}

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Poller consumes completed-checkout events and clears the buyer's cart.
type Poller struct {
	carts  CartClearer
	reader MessageReader
	logger *slog.Logger
}

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

func NewPoller(carts CartClearer, cfg Config, logger *slog.Logger) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return NewPollerWithReader(carts, reader, logger)
}

func NewPollerWithReader(carts CartClearer, reader MessageReader, logger *slog.Logger) *Poller {
	return &Poller{
		carts:  carts,
		reader: reader,
		logger: logger.With(slog.String("component", "checkout-poller")),
	}
}

type checkoutEvent struct {
	CheckoutID string `json:"checkout_id"`
	UserID     string `json:"user_id"`
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.ErrorContext(ctx, "error reading message", slog.Any("error", err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(readRetryDelay):
			}
			continue
		}
		if err := p.handleMessage(ctx, m.Value); err != nil {
			p.logger.WarnContext(ctx, "skipping checkout event",
				slog.Int64("offset", m.Offset),
				slog.Any("error", err),
			)
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Error("error closing reader", slog.Any("error", err))
	}
}

var errMissingUserID = errors.New("missing or invalid user_id")

func (p *Poller) handleMessage(ctx context.Context, value []byte) error {
	var event checkoutEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}
	if strings.TrimSpace(event.UserID) == "" {
		return errMissingUserID
	}

	if err := p.carts.ClearCart(ctx, event.UserID); err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "cart cleared after checkout",
		slog.String("user_id", event.UserID),
		slog.String("checkout_id", event.CheckoutID),
	)
	return nil
}
