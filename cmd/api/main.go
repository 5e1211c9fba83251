package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/posledger-backend/api/routes"
	"github.com/angelmondragon/posledger-backend/internal/catalog"
	"github.com/angelmondragon/posledger-backend/internal/checkout"
	"github.com/angelmondragon/posledger-backend/internal/discounts"
	"github.com/angelmondragon/posledger-backend/internal/inventory"
	"github.com/angelmondragon/posledger-backend/internal/orders"
	"github.com/angelmondragon/posledger-backend/internal/wallet"
	"github.com/angelmondragon/posledger-backend/pkg/config"
	"github.com/angelmondragon/posledger-backend/pkg/db"
	"github.com/angelmondragon/posledger-backend/pkg/instance"
	"github.com/angelmondragon/posledger-backend/pkg/locks"
	"github.com/angelmondragon/posledger-backend/pkg/logger"
	"github.com/angelmondragon/posledger-backend/pkg/metrics"
	"github.com/angelmondragon/posledger-backend/pkg/migrate"
	"github.com/angelmondragon/posledger-backend/pkg/outbox"
	"github.com/angelmondragon/posledger-backend/pkg/phone"
	"github.com/angelmondragon/posledger-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return err
	}
	closers = append(closers, dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	settlementMetrics := metrics.NewSettlementMetrics(registry)

	deps := routes.Deps{
		DB:      dbClient,
		Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}

	var locker locks.Locker = locks.NewMutexLocker()
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		closers = append(closers, redisClient.Close)

		redisLocker, err := locks.NewRedisLocker(redisClient, cfg.Wallet.LockTTL)
		if err != nil {
			return err
		}
		locker = redisLocker
		deps.Redis = redisClient
		deps.Idempotency = redisClient
		deps.RateLimiter = redisClient
	} else {
		logg.Warn(ctx, "redis not configured; using in-process wallet locks without idempotency replay or rate limiting")
	}

	gateway := inventory.NewUnavailableGateway()
	if cfg.Inventory.BaseURL != "" {
		httpGateway, err := inventory.NewHTTPGateway(
			cfg.Inventory.BaseURL,
			cfg.Inventory.Timeout,
			inventory.WithAPIKey(cfg.Inventory.APIKey),
			inventory.WithMetrics(settlementMetrics),
		)
		if err != nil {
			return err
		}
		gateway = httpGateway
	} else {
		logg.Warn(ctx, "inventory base url not set; every settled line will be recorded as a shortage")
	}
	allocator, err := inventory.NewAllocator(gateway, cfg.Inventory.Timeout, settlementMetrics, logg)
	if err != nil {
		return err
	}

	phones := phone.NewNormalizer(cfg.Wallet.CountryCode)
	gdb := dbClient.DB()

	walletService, err := wallet.NewService(dbClient, wallet.NewRepository(gdb), locker, phones, settlementMetrics, logg)
	if err != nil {
		return err
	}
	catalogService, err := catalog.NewService(catalog.NewRepository(gdb))
	if err != nil {
		return err
	}
	discountService, err := discounts.NewService(discounts.NewRepository(gdb), nil)
	if err != nil {
		return err
	}
	ordersRepo := orders.NewRepository(gdb)
	events := outbox.NewService(outbox.NewRepository(gdb), logg)
	orderService, err := orders.NewService(ordersRepo, dbClient, walletService, events, logg)
	if err != nil {
		return err
	}
	checkoutService, err := checkout.NewService(checkout.Deps{
		Tx:        dbClient,
		Orders:    ordersRepo,
		Catalog:   catalogService,
		Discounts: discountService,
		Wallet:    walletService,
		Stock:     allocator,
		Events:    events,
		Phones:    phones,
		Metrics:   settlementMetrics,
		Logger:    logg,
	})
	if err != nil {
		return err
	}

	deps.Checkout = checkoutService
	deps.Orders = orderService
	deps.Wallet = walletService
	deps.Discounts = discountService

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
