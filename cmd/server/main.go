package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Angmiin/buccynew/internal/cache"
	"github.com/Angmiin/buccynew/internal/config"
	"github.com/Angmiin/buccynew/internal/domain"
	"github.com/Angmiin/buccynew/internal/events"
	cartgrpc "github.com/Angmiin/buccynew/internal/grpc"
	h "github.com/Angmiin/buccynew/internal/http"
	"github.com/Angmiin/buccynew/internal/logger"
	"github.com/Angmiin/buccynew/internal/poller"
	"github.com/Angmiin/buccynew/internal/repository"
	s "github.com/Angmiin/buccynew/internal/service"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("server exited")
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set up MongoDB connection
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer func() {
		_ = mongoDB.Client().Disconnect(context.Background())
	}()
	log.Info("connected to MongoDB", slog.String("database", cfg.MongoDBName))

	if cfg.RunMigrations {
		if err := repository.RunMigrations(cfg.MongoURI, cfg.MongoDBName); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		log.Info("migrations applied")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// the breaker keeps requests on MongoDB until Redis comes back
		log.Warn("redis ping failed", slog.String("addr", cfg.RedisAddr), slog.Any("error", err))
	}

	cartCache := cache.NewBreaker[domain.Cart]("cart-cache", cache.NewCartCache(redisClient), log)
	favoritesCache := cache.NewBreaker[domain.Favorites]("favorites-cache", cache.NewFavoritesCache(redisClient), log)

	products := repository.NewProductRepository(mongoDB)
	carts := s.NewCartService(repository.NewMongoRepository(mongoDB), products, cartCache, log)
	favorites := s.NewFavoritesService(repository.NewFavoritesRepository(mongoDB), products, favoritesCache, log)

	var orderEvents s.OrderEvents
	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.OrderEventsTopic, log)
		defer publisher.Close()
		orderEvents = publisher
	}
	orders := s.NewOrderService(carts, repository.NewOrderRepository(mongoDB), orderEvents, log)

	required := map[string]func(context.Context) error{
		"mongo": func(ctx context.Context) error { return mongoDB.Client().Ping(ctx, nil) },
	}
	// a Redis outage degrades latency only; reads fall through to MongoDB
	optional := map[string]func(context.Context) error{
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}

	router := h.NewRouter(
		h.RouterConfig{RequestTimeout: cfg.RequestTimeout, MaxRequestBodySize: cfg.MaxRequestBodySize},
		h.NewCartHandler(carts, cfg.RequestTimeout, log),
		h.NewFavoritesHandler(favorites, cfg.RequestTimeout, log),
		h.NewOrdersHandler(orders, cfg.RequestTimeout, log),
		h.NewHealthHandler(required, optional, 2*time.Second),
		log,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	reporter := cartgrpc.NewHealthReporter(required, optional, 10*time.Second, log)
	grpcServer := cartgrpc.NewServer(reporter)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen on grpc port: %w", err)
	}

	errCh := make(chan error, 2)
	go reporter.Run(ctx)

	go func() {
		log.Info("grpc server listening", slog.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	go func() {
		log.Info("http server listening", slog.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if len(cfg.KafkaBrokers) > 0 {
		p := poller.NewPoller(carts, poller.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		}, log)
		defer p.Close()
		go p.Run(ctx)
		log.Info("checkout poller started", slog.String("topic", cfg.KafkaTopic))
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-errCh:
		log.Error("server failed, shutting down", slog.Any("error", runErr))
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	reporter.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server forced to shutdown", slog.Any("error", err))
	}
	grpcServer.GracefulStop()

	return runErr
}
