package grpc

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-checked service exposed next to the overall ("") status.
const ServiceName = "storefront.Cart"

// HealthReporter flips the health status according to the required
// dependency checks. Optional checks are probed and logged only.
type HealthReporter struct {
	health   *health.Server
	required map[string]func(context.Context) error
	optional map[string]func(context.Context) error
	interval time.Duration
	logger   *slog.Logger
}

func NewHealthReporter(required, optional map[string]func(context.Context) error, interval time.Duration, logger *slog.Logger) *HealthReporter {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthReporter{
		health:   hs,
		required: required,
		optional: optional,
		interval: interval,
		logger:   logger.With(slog.String("component", "health")),
	}
}

// Probe runs every check once and publishes the result of the required ones.
func (h *HealthReporter) Probe(ctx context.Context) bool {
	h.run(ctx, h.optional)
	healthy := h.run(ctx, h.required)

	status := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
	return healthy
}

func (h *HealthReporter) run(ctx context.Context, checks map[string]func(context.Context) error) bool {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	ok := true
	for _, name := range names {
		if err := checks[name](ctx); err != nil {
			h.logger.WarnContext(ctx, "dependency check failed", slog.String("dependency", name), slog.Any("error", err))
			ok = false
		}
	}
	return ok
}

// Run probes immediately and then on every interval until ctx is done.
func (h *HealthReporter) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		probeCtx, cancel := context.WithTimeout(ctx, h.interval)
		h.Probe(probeCtx)
		cancel()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Shutdown marks every service NOT_SERVING so load balancers drain first.
func (h *HealthReporter) Shutdown() {
	h.health.Shutdown()
}

// NewServer builds the operational gRPC server with health and reflection.
func NewServer(reporter *HealthReporter) *grpc.Server {
	s := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthpb.RegisterHealthServer(s, reporter.health)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(s)
	return s
}
