package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

// NewRouter mounts every storefront endpoint behind the shared middleware
// stack and wraps the result in an OpenTelemetry handler.
func NewRouter(
	cfg RouterConfig,
	cart *CartHandler,
	favorites *FavoritesHandler,
	orders *OrdersHandler,
	health *HealthHandler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(BodyLimitMiddleware(cfg.MaxRequestBodySize))

	r.Get("/health", health.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cart.GetCart)
			r.Post("/", cart.SetCart)
			r.Delete("/", cart.ClearCart)
			r.Post("/items", cart.AddItem)
			r.Patch("/items", cart.UpdateQuantity)
			r.Delete("/items", cart.RemoveItem)
		})
		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", favorites.List)
			r.Post("/", favorites.Add)
			r.Delete("/", favorites.Remove)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", orders.PlaceOrder)
			r.Get("/", orders.ListOrders)
			r.Get("/{id}", orders.GetOrder)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
