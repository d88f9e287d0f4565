package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/SigNoz/ecommerce-rest-api/internal/api"
	"github.com/SigNoz/ecommerce-rest-api/internal/cache"
	"github.com/SigNoz/ecommerce-rest-api/internal/dao"
	"github.com/SigNoz/ecommerce-rest-api/internal/db"
	"github.com/SigNoz/ecommerce-rest-api/internal/memstore"
	"github.com/SigNoz/ecommerce-rest-api/internal/metrics"
	"github.com/SigNoz/ecommerce-rest-api/internal/services"
	"github.com/SigNoz/ecommerce-rest-api/pkg/config"
	"github.com/SigNoz/ecommerce-rest-api/pkg/jwt"
)

const defaultPort = "8080"

// resolvePort prefers the first command-line argument over the configured port.
func resolvePort(args []string, configured string) string {
	if len(args) == 0 {
		return configured
	}
	port, err := strconv.Atoi(args[0])
	if err != nil || port < 1 || port > 65535 {
		log.Printf("Invalid port number, using default %s", defaultPort)
		return defaultPort
	}
	return strconv.Itoa(port)
}

// stores is the persistence the services run on.
type stores struct {
	users      services.UserStore
	categories services.CategoryStore
	products   services.ProductStore
	inventory  services.InventoryStore
	orders     services.OrderStore
	reviews    services.ReviewStore
	close      func() error
}

// openStores connects to MySQL and applies schema.sql, or builds the
// in-process store when db.driver is "memory".
func openStores(ctx context.Context, cfg *config.Config, appMetrics *metrics.AppMetrics) (*stores, error) {
	if cfg.UsesMemoryStore() {
		log.Println("[DB] Using in-process store, data is lost on exit")
		store := memstore.New()
		return &stores{
			users:      store.Users(),
			categories: store.Categories(),
			products:   store.Products(),
			inventory:  store.Inventory(),
			orders:     store.Orders(),
			reviews:    store.Reviews(),
			close:      func() error { return nil },
		}, nil
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}
	database, err := db.NewDB(dsn, cfg.Pool, appMetrics, cfg.OTELServiceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	schemaSQL, err := os.ReadFile("schema.sql")
	if err != nil {
		log.Printf("Warning: Could not read schema.sql: %v", err)
		log.Println("Assuming database schema already exists")
	} else if err := database.InitSchema(ctx, string(schemaSQL)); err != nil {
		log.Printf("Warning: Could not initialize schema: %v", err)
		log.Println("Assuming database schema already exists")
	}

	inventoryDAO := dao.NewInventoryDAO(database)
	return &stores{
		users:      dao.NewUserDAO(database),
		categories: dao.NewCategoryDAO(database),
		products:   dao.NewProductDAO(database),
		inventory:  inventoryDAO,
		orders:     dao.NewOrderDAO(database, inventoryDAO),
		reviews:    dao.NewReviewDAO(database),
		close:      database.Close,
	}, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	port := resolvePort(args, cfg.AppPort)

	// Initialize OpenTelemetry metrics
	ctx := context.Background()
	appMetrics, meterProvider, err := metrics.InitMetrics(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down meter provider: %v", err)
		}
	}()

	// Initialize storage
	st, err := openStores(ctx, cfg, appMetrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Product cache
	var productCache cache.ProductCache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			return fmt.Errorf("failed to connect to cache: %w", err)
		}
		defer redisCache.Close()
		productCache = redisCache
		log.Printf("[CACHE] Using redis at %s", cfg.RedisAddr)
	} else {
		productCache = cache.NewMemoryCache(cfg.CacheTTL)
		log.Printf("[CACHE] Using in-process cache (ttl=%s)", cfg.CacheTTL)
	}

	// Initialize services
	tokens := jwt.NewService(cfg.JWTSecret, cfg.JWTExpiration, cfg.JWTIssuer)
	userService := services.NewUserService(st.users, appMetrics)
	authService := services.NewAuthService(userService, tokens, appMetrics)
	productService := services.NewProductService(st.products, st.inventory, productCache, appMetrics)
	categoryService := services.NewCategoryService(st.categories, productCache)
	orderService := services.NewOrderService(st.orders, st.products, productCache, appMetrics)
	reviewService := services.NewReviewService(st.reviews, st.products, appMetrics)

	if cfg.AdminUsername != "" {
		if err := userService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword, cfg.AdminEmail); err != nil {
			log.Printf("Warning: Could not seed admin user %s: %v", cfg.AdminUsername, err)
		}
	}

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	go services.NewStockMonitor(productService, cfg.InventoryMonitorInterval).Run(monitorCtx)

	// Initialize app
	app := api.NewApp(appMetrics, tokens, authService, userService, productService, categoryService, orderService, reviewService)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      app.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on port %s", port)
		if cfg.OTELEnabled {
			log.Printf("OTLP endpoint: %s", cfg.OTELExporterOTLPEndpoint)
		}
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)
	}

	log.Println("Shutting down server...")
	stopMonitor()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}
