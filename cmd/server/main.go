// Package main is the entry point for the minimart API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"minimart/internal/domain/audit"
	"minimart/internal/domain/auth"
	"minimart/internal/domain/catalog/product"
	"minimart/internal/domain/inventory"
	"minimart/internal/domain/order"
	"minimart/internal/domain/sales"
	"minimart/internal/domain/views"
	"minimart/internal/infrastructure/cache"
	v1 "minimart/internal/infrastructure/http/v1"
	"minimart/internal/infrastructure/storage/postgres"
	"minimart/pkg/logger"
	"minimart/pkg/numerator"
)

const version = "1.0.0"

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting minimart server")

	// --- Database ---
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- View cache ---
	// Redis is optional: without it invalidations become no-ops and the
	// API serves straight from Postgres.
	var invalidator views.Invalidator = views.Noop{}
	var viewCache views.SnapshotStore = views.Noop{}
	if redisAddr := getEnv("REDIS_ADDR", ""); redisAddr != "" {
		redisCache := cache.NewRedisInvalidator(redisAddr, getEnv("REDIS_PASSWORD", ""), getEnvInt("REDIS_DB", 0))
		if err := redisCache.Ping(ctx); err != nil {
			log.Warnw("redis unreachable, view invalidation disabled", "error", err)
		} else {
			defer redisCache.Close()
			invalidator = redisCache
			viewCache = redisCache
			log.Infow("redis cache connected", "addr", redisAddr)
		}
	}

	// --- Repositories ---
	productRepo := postgres.NewProductRepo(txManager)
	inventoryRepo := postgres.NewInventoryRepo(txManager)
	orderRepo := postgres.NewOrderRepo(txManager)
	salesRepo := postgres.NewSalesRepo(txManager)
	userRepo := postgres.NewUserRepo(txManager)

	auditStore, err := postgres.NewAuditStore(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit store", "error", err)
	}

	// --- Services ---
	numbering := numerator.New(txManager)
	auditService := audit.NewService(auditStore)
	inventoryService := inventory.NewService(inventoryRepo)
	productService := product.NewService(productRepo, txManager)
	salesService := sales.NewService(salesRepo, productRepo, inventoryService, numbering, auditService, invalidator, txManager)
	orderService := order.NewService(orderRepo, inventoryService, salesRepo, productRepo, numbering, auditService, invalidator, txManager)

	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(mustEnv("JWT_SECRET")))
	authService := auth.NewService(userRepo, jwtService, txManager)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:             pool.Pool,
		Logger:           log,
		Version:          version,
		JWTValidator:     jwtService,
		TxManager:        txManager,
		ViewCache:        viewCache,
		AuthService:      authService,
		ProductService:   productService,
		InventoryService: inventoryService,
		OrderService:     orderService,
		SalesService:     salesService,
		AuditService:     auditService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
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
