package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cartapp "github.com/storefront/backend/internal/application/cart"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting storefront backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Postgres: authenticated carts and the product catalog
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled {
		if err := telemetry.InstrumentDatabase(db.DB, telemetry.DBTracingConfig{
			DBName: cfg.Database.DBName,
		}); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected")

	productRepo := persistence.NewGormProductRepository(db.DB)
	userCartStore := persistence.NewGormCartStore(db.DB)

	// Redis: guest carts with a sliding TTL. Falls back to an in-process
	// store so a Redis outage does not take the whole storefront down.
	guestCartStore, err := cache.NewGuestCartStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Cart.GuestTTL, cache.WithLogger(log), cache.WithInMemoryFallback())
	if err != nil {
		log.Fatal("Failed to initialize guest cart store", zap.Error(err))
	}

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Application services. ProductService doubles as the catalog lookup the
	// cart sessions reconcile against.
	productService := catalogapp.NewProductService(productRepo, eventBus)
	jwtService := auth.NewJWTService(cfg.JWT)

	cartConfig := cartapp.Config{
		StockPolicy:    cart.StockPolicy(cfg.Cart.StockPolicy),
		MergePolicy:    cartapp.MergePolicy(cfg.Cart.MergePolicy),
		WriteQueueSize: cfg.Cart.WriteQueueSize,
		WriteTimeout:   cfg.Cart.WriteTimeout,
	}
	cartManager := cartapp.NewManager(userCartStore, guestCartStore, productService, eventBus, cartConfig, log)

	log.Info("Cart manager initialized",
		zap.String("stock_policy", cfg.Cart.StockPolicy),
		zap.String("merge_policy", cfg.Cart.MergePolicy),
		zap.Int("write_queue_size", cfg.Cart.WriteQueueSize),
	)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if cfg.Telemetry.Enabled {
		engine.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}

	// Liveness/readiness outside API versioning
	handler.NewSystemHandler(db, version).RegisterRoutes(&engine.RouterGroup)

	api := engine.Group("/api/v1")

	// Cart routes resolve the caller's identity first: a valid bearer token
	// wins, otherwise the X-Device-ID header names a guest cart.
	cartGroup := api.Group("/cart",
		middleware.OptionalJWTAuthMiddleware(jwtService),
		middleware.Identity(),
	)
	handler.NewCartHandler(cartManager).RegisterRoutes(cartGroup)

	handler.NewAuthHandler(jwtService, cartManager).RegisterRoutes(api.Group("/auth"))

	// Catalog management requires an authenticated caller; reads are open so
	// the storefront can browse without signing in.
	productHandler := handler.NewProductHandler(productService)
	productGroup := api.Group("/catalog/products")
	productGroup.GET("", productHandler.List)
	productGroup.GET("/:id", productHandler.GetByID)
	productGroup.GET("/sku/:sku", productHandler.GetBySKU)
	adminGroup := api.Group("/catalog/products", middleware.JWTAuthMiddleware(jwtService, log))
	adminGroup.POST("", productHandler.Create)
	adminGroup.PUT("/:id", productHandler.Update)
	adminGroup.PUT("/:id/price", productHandler.ChangePrice)
	adminGroup.POST("/:id/stock", productHandler.AdjustStock)
	adminGroup.POST("/:id/activate", productHandler.Activate)
	adminGroup.POST("/:id/deactivate", productHandler.Deactivate)
	adminGroup.DELETE("/:id", productHandler.Delete)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	// Close drains every session's write queue so queued cart writes land
	// before the process exits.
	cartManager.Close()

	log.Info("Server exited gracefully")
}
