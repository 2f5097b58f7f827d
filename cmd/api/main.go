package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"kartcore/internal/cache"
	"kartcore/internal/config"
	"kartcore/internal/coupon"
	"kartcore/internal/database"
	"kartcore/internal/events"
	"kartcore/internal/handler"
	"kartcore/internal/inventory"
	"kartcore/internal/metrics"
	"kartcore/internal/pricing"
	"kartcore/internal/repository"
	"kartcore/internal/router"
	"kartcore/internal/service"
	"kartcore/internal/worker"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting kartcore API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info().Msg("database schema applied")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	couponRepo := repository.NewCouponRepository(pool, logger)
	outboxRepo := repository.NewOutboxRepository(pool, logger)
	ledger := inventory.NewLedger(repository.NewInventoryRepository(pool, logger), logger)

	if err := seedCoupons(ctx, cfg, couponRepo, logger); err != nil {
		return err
	}

	checks := map[string]handler.Pinger{"postgres": pool}

	var (
		idempotency cache.IdempotencyStore = cache.NoopIdempotencyStore{}
		deduper     cache.WebhookDeduper   = cache.NoopWebhookDeduper{}
	)
	if cfg.Redis.Enabled {
		client, err := cache.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		defer client.Close()

		idempotency = cache.NewIdempotencyStore(client, cfg.Redis.IdempotencyTTL, logger)
		deduper = cache.NewWebhookDeduper(client, cfg.Redis.WebhookDedupTTL, logger)
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })
	} else {
		logger.Info().Msg("redis disabled, idempotency keys and webhook dedup cache are off")
	}

	publisher := events.NewLogPublisher(logger)
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Kafka, logger)
	} else {
		logger.Info().Msg("kafka disabled, outbox events are logged instead of published")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	deps := service.Dependencies{
		Orders:    orderRepo,
		Carts:     cartRepo,
		Addresses: repository.NewAddressRepository(logger),
		Coupons:   couponRepo,
		Wallets:   repository.NewWalletRepository(pool, logger),
		Outbox:    outboxRepo,
		Ledger:    ledger,
		Evaluator: coupon.NewEvaluator(),
		Pricing:   pricing.NewAggregator(cfg.Pricing.TaxRate, cfg.Pricing.ShippingFee),
		Metrics:   m,
	}

	productService := service.NewProductService(productRepo, logger)
	cartService := service.NewCartService(cartRepo, productRepo, logger)
	orderService := service.NewOrderService(deps, logger)
	paymentService := service.NewPaymentService(deps, deduper, logger)

	mux := router.New(router.Handlers{
		Product: handler.NewProductHandler(productService, logger),
		Cart:    handler.NewCartHandler(cartService, logger),
		Order:   handler.NewOrderHandler(orderService, idempotency, logger),
		Payment: handler.NewPaymentHandler(paymentService, logger),
		Health:  handler.NewHealthHandler(checks, logger),
	}, router.Options{
		APIKey:           cfg.Auth.APIKey,
		WebhookSecret:    cfg.Auth.WebhookSecret,
		WebhookTolerance: cfg.Auth.WebhookTolerance,
		RequestTimeout:   cfg.Server.RequestTimeout,
		Metrics:          m,
	}, logger)

	sweeper := worker.NewSweeper(orderRepo, paymentService, ledger, m, cfg.Reservation.TTL, logger)
	relay := worker.NewRelay(outboxRepo, publisher, m, cfg.Outbox.BatchSize, logger)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	var workers sync.WaitGroup
	workers.Go(func() {
		worker.Run(workerCtx, "sweeper", cfg.Reservation.SweepInterval, cfg.Server.RequestTimeout, sweeper, logger)
	})
	workers.Go(func() {
		worker.Run(workerCtx, "outbox-relay", cfg.Outbox.PollInterval, cfg.Server.RequestTimeout, relay, logger)
	})

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		stopWorkers()
		workers.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		stopWorkers()
		workers.Wait()

		// Publish what the last requests wrote before the broker connection closes.
		if err := relay.Drain(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to drain outbox")
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// seedCoupons upserts the configured coupon files, reading from S3 when
// enabled and falling back to the local copies.
func seedCoupons(ctx context.Context, cfg *config.Config, store coupon.Store, logger zerolog.Logger) error {
	if len(cfg.Coupons.SeedPaths) == 0 {
		logger.Info().Msg("no coupon seed files configured")
		return nil
	}

	fileLoader := coupon.NewFileLoader(logger)
	var s3Loader coupon.Loader
	if cfg.S3.Enabled {
		l, err := coupon.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			s3Loader = l
		}
	}

	loader := coupon.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, s3Loader != nil, logger)
	n, err := coupon.NewSeeder(loader, store, logger).Seed(ctx, cfg.Coupons.SeedPaths)
	if err != nil {
		return fmt.Errorf("failed to seed coupons: %w", err)
	}
	logger.Info().Int("coupons", n).Msg("coupon definitions seeded")
	return nil
}
