package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/volthost/volthost-api/internal/adapter/cache"
	"github.com/volthost/volthost-api/internal/adapter/external/notification"
	"github.com/volthost/volthost-api/internal/adapter/http/fiber/handlers"
	"github.com/volthost/volthost-api/internal/adapter/http/fiber/middleware"
	"github.com/volthost/volthost-api/internal/adapter/queue"
	"github.com/volthost/volthost-api/internal/adapter/storage/postgres"
	wsAdapter "github.com/volthost/volthost-api/internal/adapter/websocket"
	"github.com/volthost/volthost-api/internal/ports"
	"github.com/volthost/volthost-api/internal/service/auth"
	"github.com/volthost/volthost-api/internal/service/booking"
	"github.com/volthost/volthost-api/internal/service/charger"
	"github.com/volthost/volthost-api/internal/service/ledger"
	"github.com/volthost/volthost-api/internal/service/verification"
	"github.com/volthost/volthost-api/pkg/config"
)

const (
	serviceName    = "volthost-api"
	serviceVersion = "v1.0.0"
)

func main() {
	// 1. Initialize Logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	logger.Info("Starting VoltHost API",
		zap.String("service", serviceName),
		zap.String("version", serviceVersion),
	)

	// 2. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// 3. Initialize PostgreSQL Connection Pool
	db, err := postgres.NewConnection(cfg.Database.URL, cfg.Database.LogQueries, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer postgres.Close(db)

	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(db); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	// 4. Initialize Cache (Redis, or in-memory when unconfigured)
	var appCache ports.Cache
	if cfg.Redis.URL != "" {
		appCache, err = cache.NewRedisCache(cfg.Redis.URL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
	} else {
		appCache = cache.NewLocalCache(time.Minute, logger)
	}
	defer appCache.Close()

	// 5. Initialize Message Queue (NATS)
	var messageQueue queue.MessageQueue
	if cfg.NATS.URL != "" {
		messageQueue, err = queue.NewNATSQueue(cfg.NATS.URL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer messageQueue.Close()
	}

	// 6. Initialize Repositories and Unit of Work
	bookingRepo := postgres.NewBookingRepository(db, logger)
	chargerRepo := postgres.NewChargerRepository(db, logger)
	transactionRepo := postgres.NewTransactionRepository(db, logger)
	unitOfWork := postgres.NewUnitOfWork(db, logger)

	// 7. Initialize Services (Business Logic Layer)
	tokenService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.TokenDuration, logger)
	otpNotifier := notification.NewLogOTPNotifier(logger)
	bookingService := booking.NewService(bookingRepo, chargerRepo, messageQueue, logger)
	verificationService := verification.NewService(unitOfWork, otpNotifier, messageQueue, logger)
	chargerService := charger.NewService(chargerRepo, appCache, logger)
	ledgerService := ledger.NewService(transactionRepo, logger)

	// 8. Initialize WebSocket Hub (for real-time dashboard updates)
	wsHub := wsAdapter.NewHub()
	go wsHub.Run()

	// Bridge booking events onto the hub so open dashboards update live.
	if messageQueue != nil {
		for _, subject := range []string{
			"booking.created", "booking.accepted", "booking.cancelled",
			"booking.missed", "booking.verified", "booking.completed",
		} {
			if err := messageQueue.Subscribe(subject, func(data []byte) error {
				wsHub.Broadcast(data)
				return nil
			}); err != nil {
				logger.Warn("Failed to subscribe to booking events",
					zap.String("subject", subject), zap.Error(err))
			}
		}
	}

	// 9. Initialize Fiber HTTP Server
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		ServerHeader:          serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		IdleTimeout:           cfg.HTTP.IdleTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	// Global Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.HTTP.AllowedOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))
	app.Use(middleware.CircuitBreaker(logger))

	// Health Check Endpoints
	app.Get("/health/live", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/health/ready", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.Ping() != nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString("Database not ready")
		}
		if err := appCache.Ping(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString("Cache not ready")
		}
		return c.SendString("Ready")
	})

	// Metrics endpoint for Prometheus
	if cfg.Metrics.Enabled {
		metricsPath := cfg.Metrics.Path
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		app.Get(metricsPath, func(c *fiber.Ctx) error {
			handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
			handler(c.Context())
			return nil
		})
	}

	// API v1 Routes
	v1 := app.Group("/api/v1")
	protected := v1.Group("", middleware.AuthRequired(tokenService))

	// Booking routes
	bookingHandler := handlers.NewBookingHandler(bookingService, verificationService, logger)
	protected.Post("/bookings", bookingHandler.Create)
	protected.Get("/bookings", bookingHandler.List)
	protected.Get("/bookings/:id", bookingHandler.Get)
	protected.Post("/bookings/:id/accept", bookingHandler.Accept)
	protected.Post("/bookings/:id/cancel", bookingHandler.Cancel)
	protected.Post("/bookings/:id/missed", bookingHandler.MarkMissed)
	protected.Post("/bookings/:id/otp", bookingHandler.GenerateOTP)
	protected.Post("/bookings/:id/verify", bookingHandler.Verify)
	protected.Post("/bookings/:id/complete", bookingHandler.Complete)

	// Charger routes
	chargerHandler := handlers.NewChargerHandler(chargerService, logger)
	protected.Get("/chargers", chargerHandler.List)
	protected.Get("/chargers/:id", chargerHandler.Get)
	protected.Get("/chargers/:id/availability", chargerHandler.Availability)

	// Ledger routes
	ledgerHandler := handlers.NewLedgerHandler(ledgerService, logger)
	protected.Get("/ledger", ledgerHandler.List)
	protected.Get("/ledger/summary", ledgerHandler.Summary)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/updates", websocket.New(func(c *websocket.Conn) {
		hostID := c.Query("hostId", "guest")
		wsHub.ServeClient(c, hostID)
	}))

	// 10. Start HTTP Server
	go func() {
		logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			logger.Fatal("HTTP Server failed", zap.Error(err))
		}
	}()

	// 11. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}
