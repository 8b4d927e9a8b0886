package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cobrodiario/cobrodiario-backend/internal/cache"
	"github.com/cobrodiario/cobrodiario-backend/internal/config"
	"github.com/cobrodiario/cobrodiario-backend/internal/handler"
	"github.com/cobrodiario/cobrodiario-backend/internal/messaging"
	"github.com/cobrodiario/cobrodiario-backend/internal/middleware"
	"github.com/cobrodiario/cobrodiario-backend/internal/repository/postgres"
	"github.com/cobrodiario/cobrodiario-backend/internal/repository/storage"
	"github.com/cobrodiario/cobrodiario-backend/internal/service"
	"github.com/cobrodiario/cobrodiario-backend/internal/util"
	"github.com/cobrodiario/cobrodiario-backend/internal/websocket"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		log.Info().Msg("Migrations applied")
	}

	// Connect to database
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	log.Info().Str("timezone", cfg.Timezone).Msg("Connected to database")

	clock := util.NewSystemClock(cfg.Location)

	// Summary cache: Redis when configured, otherwise in-process
	var summaryCache cache.Cache
	var redisCache *cache.RedisCache
	if cfg.RedisURL != "" {
		redisCache, err = cache.NewRedisCache(ctx, cfg.RedisURL, "cobrodiario", cfg.CacheTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		summaryCache = redisCache
		log.Info().Msg("Using Redis cache")
	} else {
		summaryCache = cache.NewMemoryCache(clock, cfg.CacheTTL, cfg.CacheMaxEntries)
	}

	// Object storage for receipts and close snapshots
	var objects storage.ObjectRepository
	if cfg.S3.Enabled() {
		s3Repo, err := storage.NewS3ObjectRepository(ctx, cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 storage")
		}
		objects = s3Repo
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("S3 storage enabled")
	} else {
		log.Warn().Msg("S3 storage not configured, receipts and snapshots are disabled")
	}

	// Broker for close-day announcements
	var broker messaging.Publisher = messaging.NoOpPublisher{}
	if cfg.AMQP.URL != "" {
		amqpPublisher, err := messaging.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
		}
		broker = amqpPublisher
	}

	// Initialize repositories
	userRepo := postgres.NewUserRepository(pool)
	workspaceRepo := postgres.NewWorkspaceRepository(pool)
	clientRepo := postgres.NewClientRepository(pool)
	loanRepo := postgres.NewLoanRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	expenseRepo := postgres.NewExpenseRepository(pool)
	dailyCloseRepo := postgres.NewDailyCloseRepository(pool)

	// Initialize services
	authService := service.NewAuthService(userRepo, workspaceRepo)
	collectorService := service.NewCollectorService(userRepo)
	clientService := service.NewClientService(clientRepo, loanRepo, collectorService, summaryCache)
	loanService := service.NewLoanService(loanRepo, clientRepo, paymentRepo, collectorService, clock)
	receiptService := service.NewReceiptService(objects, paymentRepo)
	paymentService := service.NewPaymentService(paymentRepo, loanRepo, dailyCloseRepo, receiptService, clock, summaryCache)
	expenseService := service.NewExpenseService(expenseRepo, dailyCloseRepo, clock, summaryCache)
	closeService := service.NewCloseDayService(dailyCloseRepo, paymentRepo, expenseRepo, loanRepo, objects, broker, clock, summaryCache)
	dashboardService := service.NewDashboardService(loanRepo, paymentRepo, clock, summaryCache)

	// Real-time updates
	hub := websocket.NewHub()
	loanService.SetEventPublisher(hub)
	paymentService.SetEventPublisher(hub)
	expenseService.SetEventPublisher(hub)
	closeService.SetEventPublisher(hub)

	arrearsWorker := service.NewArrearsWorker(dashboardService, workspaceRepo, hub, log.Logger, service.ArrearsWorkerConfig{
		Interval: cfg.ArrearsInterval,
	})
	arrearsWorker.Start(ctx)

	// Initialize auth middleware
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience, authService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth middleware")
	}
	rateLimiter := middleware.NewRateLimiterWithConfig(cfg.RateLimitPerMinute, cfg.RateLimitBurst)

	wsValidator, err := websocket.NewAuth0JWTValidator(cfg.Auth0Domain, cfg.Auth0Audience, authService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create WebSocket validator")
	}

	// Initialize handlers
	handlers := handler.Handlers{
		Auth:      handler.NewAuthHandler(authService, summaryCache),
		Collector: handler.NewCollectorHandler(collectorService),
		Client:    handler.NewClientHandler(clientService),
		Loan:      handler.NewLoanHandler(loanService, clock),
		Payment:   handler.NewPaymentHandler(paymentService, receiptService, clock),
		Expense:   handler.NewExpenseHandler(expenseService, clock),
		Close:     handler.NewCloseHandler(closeService, clock),
		Dashboard: handler.NewDashboardHandler(dashboardService),
		WebSocket: handler.NewWebSocketHandler(hub, wsValidator, cfg.CORSOrigins),
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = handler.JSONSerializer{}

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Register routes
	handler.RegisterRoutes(e, authMiddleware, rateLimiter, handlers)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	arrearsWorker.Stop()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.Shutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	rateLimiter.Stop()
	if err := broker.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close broker connection")
	}
	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis connection")
		}
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			event := log.Info()
			if res.Status >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Int32("workspace_id", middleware.GetWorkspaceID(c)).
				Msg("request")

			return nil
		}
	}
}
