// Package main is the entry point for the minimart background worker.
// It runs the order expiry sweep: wholesale orders untouched past the
// configured age are cancelled and their reserved stock released.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"minimart/internal/domain/audit"
	"minimart/internal/domain/inventory"
	"minimart/internal/domain/order"
	"minimart/internal/domain/views"
	"minimart/internal/infrastructure/cache"
	"minimart/internal/infrastructure/storage/postgres"
	"minimart/pkg/logger"
	"minimart/pkg/numerator"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting minimart worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	var invalidator views.Invalidator = views.Noop{}
	if redisAddr := getEnv("REDIS_ADDR", ""); redisAddr != "" {
		redisCache := cache.NewRedisInvalidator(redisAddr, getEnv("REDIS_PASSWORD", ""), getEnvInt("REDIS_DB", 0))
		if err := redisCache.Ping(ctx); err != nil {
			log.Warnw("redis unreachable, view invalidation disabled", "error", err)
		} else {
			defer redisCache.Close()
			invalidator = redisCache
		}
	}

	productRepo := postgres.NewProductRepo(txManager)
	inventoryRepo := postgres.NewInventoryRepo(txManager)
	orderRepo := postgres.NewOrderRepo(txManager)
	salesRepo := postgres.NewSalesRepo(txManager)

	auditStore, err := postgres.NewAuditStore(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit store", "error", err)
	}

	orderService := order.NewService(
		orderRepo,
		inventory.NewService(inventoryRepo),
		salesRepo,
		productRepo,
		numerator.New(txManager),
		audit.NewService(auditStore),
		invalidator,
		txManager,
	)

	sweeper := NewExpirySweeper(
		orderService,
		log,
		getEnvInt("ORDER_EXPIRY_HOURS", 48),
		getEnvDuration("EXPIRY_SWEEP_INTERVAL", time.Hour),
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// ExpirySweeper periodically cancels stale wholesale orders.
type ExpirySweeper struct {
	orders   *order.Service
	log      *logger.Logger
	hours    int
	interval time.Duration
}

func NewExpirySweeper(orders *order.Service, log *logger.Logger, hours int, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{
		orders:   orders,
		log:      log.WithComponent("expiry-sweeper"),
		hours:    hours,
		interval: interval,
	}
}

// Run sweeps once at startup, then on every tick until ctx is cancelled.
func (s *ExpirySweeper) Run(ctx context.Context) {
	s.log.Infow("expiry sweeper started", "hours_threshold", s.hours, "interval", s.interval)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	result, err := s.orders.AutoCancelExpired(ctx, s.hours)
	if err != nil {
		s.log.Errorw("expiry sweep failed", "error", err)
		return
	}
	if result.CancelledCount > 0 {
		s.log.Infow("expiry sweep cancelled stale orders",
			"count", result.CancelledCount,
			"order_ids", result.CancelledOrderIDs,
		)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
