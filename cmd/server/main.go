package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/ispcrm/backend/internal/application/billing"
	catalogapp "github.com/ispcrm/backend/internal/application/catalog"
	"github.com/ispcrm/backend/internal/domain/billing"
	"github.com/ispcrm/backend/internal/domain/shared"
	"github.com/ispcrm/backend/internal/infrastructure/auth"
	"github.com/ispcrm/backend/internal/infrastructure/cache"
	"github.com/ispcrm/backend/internal/infrastructure/config"
	"github.com/ispcrm/backend/internal/infrastructure/logger"
	"github.com/ispcrm/backend/internal/infrastructure/persistence"
	"github.com/ispcrm/backend/internal/infrastructure/telemetry"
	"github.com/ispcrm/backend/internal/interfaces/http/handler"
	"github.com/ispcrm/backend/internal/interfaces/http/middleware"
	"github.com/ispcrm/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
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

	log.Info("Starting ISP Billing Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize OpenTelemetry tracing (no-op provider when disabled)
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Register database query tracing (otelgorm) when enabled
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:         "postgresql",
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Initialize repositories
	subscriptionRepo := persistence.NewGormSubscriptionRepository(db.DB)
	chargeRepo := persistence.NewGormChargeRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	templateRepo := persistence.NewGormChargeTemplateRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Idempotency store for batch charge generation: Redis when reachable,
	// in-memory otherwise (single-instance deployments)
	var idempotencyStore shared.IdempotencyStore
	redisStore, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, using in-memory idempotency store", zap.Error(err))
		memStore := cache.NewInMemoryIdempotencyStore()
		defer memStore.Close()
		idempotencyStore = memStore
	} else {
		defer func() {
			if err := redisStore.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		idempotencyStore = redisStore
		log.Info("Redis idempotency store connected",
			zap.String("host", cfg.Redis.Host),
			zap.Int("port", cfg.Redis.Port),
		)
	}

	// Initialize application services
	reconciler := billing.NewReconciliationService()
	ledgerService := billingapp.NewLedgerService(txScope, subscriptionRepo, chargeRepo, templateRepo, idempotencyStore, log)
	paymentService := billingapp.NewPaymentService(txScope, paymentRepo, chargeRepo, reconciler, log)
	accountService := billingapp.NewAccountService(subscriptionRepo, chargeRepo, paymentRepo, log)
	templateService := catalogapp.NewChargeTemplateService(templateRepo, log)

	// Staff identity (JWT); tokens are issued by the operator's identity
	// service, this backend only validates them
	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize HTTP handlers
	subscriptionHandler := handler.NewSubscriptionHandler(ledgerService)
	chargeHandler := handler.NewChargeHandler(ledgerService)
	paymentHandler := handler.NewPaymentHandler(paymentService, ledgerService)
	accountHandler := handler.NewAccountHandler(accountService, ledgerService)
	templateHandler := handler.NewChargeTemplateHandler(templateService)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing - OpenTelemetry spans
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Billing domain (subscriptions, charges, payments, account state)
	billingRoutes := router.NewDomainGroup("billing", "/billing")

	// Subscription routes
	billingRoutes.POST("/subscriptions", subscriptionHandler.Create)
	billingRoutes.GET("/subscriptions/:id", subscriptionHandler.GetByID)
	billingRoutes.GET("/subscriptions/client/:client_id", subscriptionHandler.GetByClient)
	billingRoutes.GET("/subscriptions/:id/preview-proration", subscriptionHandler.PreviewProration)
	billingRoutes.POST("/subscriptions/:id/balance/recompute", subscriptionHandler.RecomputeBalance)

	// Charge routes
	billingRoutes.POST("/charges/generate", chargeHandler.GenerateBatch)
	billingRoutes.POST("/subscriptions/:id/charges/generate", chargeHandler.Generate)
	billingRoutes.POST("/subscriptions/:id/charges", chargeHandler.AddAdHoc)
	billingRoutes.GET("/subscriptions/:id/charges", chargeHandler.List)
	billingRoutes.PUT("/charges/:id", chargeHandler.Update)
	billingRoutes.DELETE("/charges/:id", chargeHandler.Delete)

	// Payment routes
	billingRoutes.POST("/subscriptions/:id/payments", paymentHandler.Apply)
	billingRoutes.GET("/subscriptions/:id/payments", paymentHandler.List)
	billingRoutes.GET("/payments/:id", paymentHandler.GetByID)
	billingRoutes.GET("/payments/:id/charges", paymentHandler.SettledCharges)
	billingRoutes.DELETE("/payments/:id", paymentHandler.Delete)

	// Derived account state routes
	billingRoutes.GET("/subscriptions/:id/account-state", accountHandler.GetState)
	billingRoutes.GET("/subscriptions/:id/account-overview", accountHandler.GetOverview)
	billingRoutes.GET("/debtors", accountHandler.ListDebtors)

	// Catalog domain (charge templates)
	catalogRoutes := router.NewDomainGroup("catalog", "/catalog")
	catalogRoutes.POST("/templates", templateHandler.Create)
	catalogRoutes.GET("/templates", templateHandler.List)
	catalogRoutes.GET("/templates/:id", templateHandler.GetByID)
	catalogRoutes.PUT("/templates/:id", templateHandler.Update)
	catalogRoutes.DELETE("/templates/:id", templateHandler.Delete)
	catalogRoutes.POST("/templates/:id/activate", templateHandler.Activate)
	catalogRoutes.POST("/templates/:id/deactivate", templateHandler.Deactivate)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	r.Register(billingRoutes).
		Register(catalogRoutes).
		Register(systemRoutes)

	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
