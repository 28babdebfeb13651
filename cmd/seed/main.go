// Package main provides a CLI tool for seeding the database with an
// admin account and a starter catalog.
package main

import (
	"context"
	"fmt"
	"os"

	"minimart/internal/core/apperror"
	"minimart/internal/core/appctx"
	"minimart/internal/core/types"
	"minimart/internal/domain/auth"
	"minimart/internal/domain/catalog/product"
	"minimart/internal/domain/inventory"
	"minimart/internal/infrastructure/storage/postgres"
	"minimart/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)
	userRepo := postgres.NewUserRepo(txManager)
	productRepo := postgres.NewProductRepo(txManager)
	inventoryRepo := postgres.NewInventoryRepo(txManager)

	jwtService := auth.NewJWTService(auth.DefaultJWTConfig("seed-only"))
	authService := auth.NewService(userRepo, jwtService, txManager)

	if err := seedAdminUser(ctx, authService, log); err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		productService := product.NewService(productRepo, txManager)
		inventoryService := inventory.NewService(inventoryRepo)
		if err := seedCatalog(ctx, productService, inventoryService, txManager, log); err != nil {
			log.Fatalw("failed to seed catalog", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedAdminUser(ctx context.Context, authService *auth.Service, log *logger.Logger) error {
	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "Admin123!"
	}

	user, err := authService.CreateUser(ctx, auth.CreateUserRequest{
		Username:    username,
		Password:    password,
		DisplayName: "Store Administrator",
		Role:        appctx.RoleAdmin,
	})
	if err != nil {
		if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeDuplicate {
			log.Infow("admin user already exists", "username", username)
			return nil
		}
		return err
	}

	log.Infow("admin user created", "username", username, "user_id", user.ID)
	return nil
}

type seedProduct struct {
	name      string
	barcode   string
	category  string
	retail    string
	wholesale string
	cost      string
	stock     int64
}

// seedCatalog loads a starter set of sari-sari store staples.
func seedCatalog(
	ctx context.Context,
	products *product.Service,
	inv *inventory.Service,
	txManager *postgres.TxManager,
	log *logger.Logger,
) error {
	catalog := []seedProduct{
		{"Lucky Me Pancit Canton Original", "4807770190728", "Instant Noodles", "18.00", "15.50", "13.25", 120},
		{"Bear Brand Powdered Milk 320g", "4800361413480", "Dairy", "112.00", "102.00", "94.50", 48},
		{"C2 Apple 355ml", "4800016644474", "Soda", "25.00", "21.00", "18.00", 96},
		{"Kopiko Blanca Twin Pack", "8996001600146", "Coffee", "12.00", "10.00", "8.40", 200},
		{"Argentina Corned Beef 150g", "4807770271281", "Canned Goods", "38.00", "34.00", "30.50", 60},
		{"Surf Powder Detergent 70g", "4800888136398", "Household", "9.00", "7.50", "6.25", 150},
		{"Sky Flakes Crackers 25g", "4800092330704", "Snacks", "8.00", "6.75", "5.50", 180},
		{"Coca-Cola Sakto 200ml", "4801981122233", "Soda", "15.00", "12.50", "10.75", 144},
	}

	for _, sp := range catalog {
		p := product.New(sp.name, sp.category)
		barcode := sp.barcode
		p.Barcode = &barcode
		p.RetailPrice = types.MustMoney(sp.retail)
		p.WholesalePrice = types.MustMoney(sp.wholesale)
		p.CostPrice = types.MustMoney(sp.cost)

		if err := products.Create(ctx, p); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeDuplicate {
				log.Infow("product already seeded", "name", sp.name)
				continue
			}
			return fmt.Errorf("create %s: %w", sp.name, err)
		}

		stock := sp.stock
		err := txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			if err := inv.EnsureExists(ctx, p.ID); err != nil {
				return err
			}
			return inv.Adjust(ctx, inventory.AdjustRequest{
				ProductID:    p.ID,
				ProductName:  p.Name,
				Delta:        stock,
				MovementType: inventory.MovementRestock,
				Reason:       "initial stock",
				Reference:    "SEED",
				UserID:       "seed",
			})
		})
		if err != nil {
			return fmt.Errorf("stock %s: %w", sp.name, err)
		}

		log.Infow("product seeded", "name", sp.name, "stock", stock)
	}

	return nil
}

