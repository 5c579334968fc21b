package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/notifications"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/rabbitmq"
)

// App is the wired storefront service.
type App struct {
	Fiber *fiber.App
	Auth  *services.AuthService

	// events is nil when RabbitMQ is disabled.
	events *rabbitmq.Client
}

type stores struct {
	products repositories.ProductRepository
	variants repositories.VariantRepository
	coupons  repositories.CouponRepository
	orders   repositories.OrderRepository
	users    repositories.UserRepository
}

func openStores(cfg config.Config) (stores, error) {
	if cfg.StoreDriver == config.DriverMemory {
		return stores{
			products: repositories.NewMemoryProductRepository(),
			variants: repositories.NewMemoryVariantRepository(),
			coupons:  repositories.NewMemoryCouponRepository(),
			orders:   repositories.NewMemoryOrderRepository(),
			users:    repositories.NewMemoryUserRepository(),
		}, nil
	}

	db, err := database.Open(cfg.StoreDriver, cfg.DatabaseDSN)
	if err != nil {
		return stores{}, err
	}
	if cfg.StoreDriver == config.DriverSQLite {
		// SQLite serializes writers; one connection keeps conditional updates from failing with SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return stores{}, fmt.Errorf("failed to get sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := database.Migrate(db); err != nil {
		return stores{}, err
	}
	return stores{
		products: repositories.NewGORMProductRepository(db),
		variants: repositories.NewGORMVariantRepository(db),
		coupons:  repositories.NewGORMCouponRepository(db),
		orders:   repositories.NewGORMOrderRepository(db),
		users:    repositories.NewGORMUserRepository(db),
	}, nil
}

// NewApp wires repositories, services and handlers according to cfg.
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	st, err := openStores(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{}
	var publisher services.EventPublisher
	if cfg.RabbitMQEnabled {
		app.events, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		publisher = app.events
	}

	// --- Services ---
	inventoryService := services.NewInventoryService(st.products, st.variants, cfg.LowStockThreshold)
	productService := services.NewProductService(st.products, st.variants, inventoryService)
	couponService := services.NewCouponService(st.coupons)
	orderService := services.NewOrderService(st.orders, st.products, st.variants, st.coupons, inventoryService, publisher, services.Pricing{
		Shipping: services.ShippingRule{FreeThreshold: cfg.FreeShippingThreshold, FlatRate: cfg.FlatShippingRate},
		Tax:      services.TaxRule{Rate: cfg.TaxRate},
	})
	app.Auth = services.NewAuthService(st.users, cfg.JWTSecret)

	if err := app.Auth.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to ensure admin user: %w", err)
	}
	if cfg.SeedFixtures {
		if err := seedFixtures(ctx, productService, couponService); err != nil {
			app.Close()
			return nil, err
		}
	}

	// --- Fiber App ---
	app.Fiber = fiber.New()
	app.Fiber.Use(logger.New())

	apiV1 := app.Fiber.Group("/api/v1")
	authRequired := middleware.AuthRequired(app.Auth)
	routers := handlers.Routers{
		Public: apiV1,
		Admin:  apiV1.Group("/admin", authRequired, middleware.AdminOnly()),
		Auth:   authRequired,
	}

	handlers.NewAuthHandler(app.Auth).RegisterRoutes(apiV1)
	handlers.NewProductHandler(productService).RegisterRoutes(routers)
	handlers.NewOrderHandler(orderService).RegisterRoutes(routers)
	handlers.NewInventoryHandler(inventoryService).RegisterRoutes(routers)
	handlers.NewCouponHandler(couponService).RegisterRoutes(routers)

	app.Fiber.Get("/health", func(c *fiber.Ctx) error {
		events := "disabled"
		if app.events != nil {
			events = "enabled"
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"store":  cfg.StoreDriver,
			"events": events,
		})
	})

	return app, nil
}

// Close releases the broker connection.
func (a *App) Close() error {
	if a.events == nil {
		return nil
	}
	return a.events.Close()
}

// seedFixtures fills an empty catalog with demo products and the DEMO2026 coupon.
func seedFixtures(ctx context.Context, products *services.ProductService, coupons *services.CouponService) error {
	existing, err := products.ListProducts(ctx, repositories.ProductFilter{})
	if err != nil {
		return fmt.Errorf("failed to check catalog before seeding: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	catalog := []models.Product{
		{
			Name:        "Classic Oxford Shirt",
			Description: "Cotton oxford shirt with a button-down collar",
			Price:       decimal.NewFromInt(650),
			Category:    "shirts",
			IsActive:    true,
			IsFeatured:  true,
			Variants: []models.Variant{
				{SKU: "OXF-WHT-S", Color: "White", Size: "S", StockQuantity: 12},
				{SKU: "OXF-WHT-M", Color: "White", Size: "M", StockQuantity: 20},
				{SKU: "OXF-BLU-L", Color: "Blue", Size: "L", StockQuantity: 4},
			},
		},
		{
			Name:           "Slim Chino",
			Description:    "Stretch chino trousers",
			Price:          decimal.NewFromInt(899),
			CompareAtPrice: decimal.NewNullDecimal(decimal.NewFromInt(1199)),
			Category:       "trousers",
			IsActive:       true,
			Variants: []models.Variant{
				{SKU: "CHN-KHK-32", Color: "Khaki", Size: "32", StockQuantity: 6},
				{SKU: "CHN-NVY-34", Color: "Navy", Size: "34", StockQuantity: 3},
			},
		},
		{
			Name:        "Canvas Tote",
			Description: "Heavy canvas tote bag",
			Price:       decimal.NewFromInt(240),
			Category:    "accessories",
			IsActive:    true,
			Variants: []models.Variant{
				{SKU: "TOTE-NAT", Color: "Natural", StockQuantity: 0},
			},
		},
	}
	for i := range catalog {
		if err := products.CreateProduct(ctx, &catalog[i]); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", catalog[i].Name, err)
		}
		log.Printf("Seeded product: %s (ID: %s)", catalog[i].Name, catalog[i].ID)
	}

	usageLimit := 100
	demo := models.Coupon{
		Code:              "DEMO2026",
		DiscountType:      models.DiscountPercentage,
		DiscountValue:     decimal.NewFromInt(20),
		MinPurchaseAmount: decimal.NewFromInt(1000),
		UsageLimit:        &usageLimit,
		IsActive:          true,
	}
	if err := coupons.CreateCoupon(ctx, &demo); err != nil && !errors.Is(err, repositories.ErrDuplicate) {
		return fmt.Errorf("failed to seed coupon %s: %w", demo.Code, err)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(viper.New())
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("Error closing RabbitMQ connection: %v", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Starting server on port %s (store: %s)", cfg.AppPort, cfg.StoreDriver)
		return app.Fiber.Listen(cfg.AppPort)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		return app.Fiber.Shutdown()
	})
	if app.events != nil {
		g.Go(func() error {
			handler := notifications.NewHandler(nil)
			if err := app.events.ConsumeEvents(gctx, handler.HandleDelivery); err != nil {
				// The API keeps serving without notifications.
				log.Printf("RabbitMQ consumer stopped: %v", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("Server stopped with error: %v", err)
		os.Exit(1)
	}
	log.Println("Server gracefully stopped")
}
