package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Angmiin/buccynew/internal/domain"
	"github.com/Angmiin/buccynew/internal/repository"
)

// OrderEvents announces stored orders to downstream consumers.
type OrderEvents interface {
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
}

type OrderService struct {
	carts  *CartService
	orders repository.OrderRepository
	events OrderEvents
	logger *slog.Logger
}

// NewOrderService builds the service; events may be nil when no broker is configured.
func NewOrderService(carts *CartService, orders repository.OrderRepository, events OrderEvents, logger *slog.Logger) *OrderService {
	return &OrderService{
		carts:  carts,
		orders: orders,
		events: events,
		logger: logger.With(slog.String("component", "orders")),
	}
}

type PlaceOrderRequest struct {
	UserID          string
	ShippingAddress domain.Address
	PaymentMethod   string
}

// PlaceOrder snapshots the resolved cart into an order and clears the cart.
// Product stock is not adjusted.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*domain.Order, error) {
	if err := requireUser(req.UserID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return nil, domain.Validation("paymentMethod", "is required")
	}

	cart, err := s.carts.ResolveCart(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, domain.Validation("cart", "is empty")
	}

	items := make([]domain.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		if line.Product == nil {
			return nil, domain.NotFound("product", line.ProductID)
		}
		items = append(items, domain.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Product.Name,
			Price:     line.Product.Price,
			Quantity:  line.Quantity,
			Size:      line.Size,
			Color:     line.Color,
		})
	}

	order := &domain.Order{
		UserID:          req.UserID,
		Items:           items,
		TotalAmount:     domain.Total(items),
		Status:          domain.OrderStatusPending,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "repo create order error", slog.String("user_id", req.UserID), slog.Any("error", err))
		return nil, err
	}

	// clearing is best effort once the order is stored
	if err := s.carts.ClearCart(ctx, req.UserID); err != nil {
		s.logger.ErrorContext(ctx, "clear cart after order failed",
			slog.String("user_id", req.UserID), slog.String("order_id", order.ID), slog.Any("error", err))
	}

	if s.events != nil {
		if err := s.events.PublishOrderPlaced(ctx, order); err != nil {
			s.logger.ErrorContext(ctx, "publish order event failed",
				slog.String("order_id", order.ID), slog.Any("error", err))
		}
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("user_id", req.UserID),
		slog.String("order_id", order.ID),
		slog.Float64("total", order.TotalAmount),
	)
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.orders.ListOrders(ctx, userID)
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, domain.NotFound("order", id)
		}
		return nil, err
	}
	return order, nil
}
