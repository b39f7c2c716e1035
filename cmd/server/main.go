package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tripnest/booking-service/internal/booking"
	"github.com/tripnest/booking-service/internal/config"
	"github.com/tripnest/booking-service/internal/database"
	"github.com/tripnest/booking-service/internal/handlers"
	"github.com/tripnest/booking-service/internal/middleware"
	"github.com/tripnest/booking-service/internal/services"
	"github.com/tripnest/booking-service/pkg/jwt"
	"github.com/tripnest/booking-service/pkg/tourapi"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

// countdownTick is the OTP countdown resolution
const countdownTick = time.Second

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting TripNest booking service")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Optional database for audit rows and shared rate limit windows
	var db database.DB
	if cfg.Database.Enabled() {
		logger.Info("Connecting to database...")
		conn, err := database.NewConnection(cfg.Database)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer conn.Close()

		if err := database.EnsureSchema(conn); err != nil {
			logger.Fatalf("Failed to apply schema: %v", err)
		}
		db = conn
		logger.Info("Database connection established")
	} else {
		logger.Warn("DATABASE_URL not set, audit events go to the log and rate limits are per instance")
	}

	// Initialize services
	logger.Info("Initializing services...")
	hasher, err := services.NewPhoneHasher(cfg.Security.AuditHashKey)
	if err != nil {
		logger.Fatalf("Failed to initialize phone hasher: %v", err)
	}

	rateLimitConfig := services.NewRateLimitConfig(cfg.OTP)
	var limiter services.OTPRateLimiter
	if db != nil {
		limiter = services.NewRateLimitService(db, rateLimitConfig, hasher)
	} else {
		limiter = services.NewMemoryRateLimiter(rateLimitConfig, hasher)
	}

	var auditDB database.DB
	if cfg.Security.EnableAuditLog {
		auditDB = db
	}
	auditService := services.NewAuditService(auditDB, hasher, logger)

	infantPolicy, err := booking.ParseInfantPolicy(cfg.Booking.InfantPolicy)
	if err != nil {
		logger.Fatalf("Invalid pricing policy: %v", err)
	}
	policy := booking.PricingPolicy{
		Infant: infantPolicy,
		RoomRates: booking.RoomRates{
			Triple: cfg.Booking.RoomRateTriple,
			Twin:   cfg.Booking.RoomRateTwin,
			Double: cfg.Booking.RoomRateDouble,
			Single: cfg.Booking.SingleSupplementOverride,
		},
	}

	tourClient := tourapi.NewClient(
		tourapi.WithBaseURL(cfg.TourAPI.BaseURL),
		tourapi.WithTimeout(cfg.TourAPI.Timeout),
		tourapi.WithLogger(logger),
	)

	draftStore := services.NewDraftStore(countdownTick)
	bookingFormService := services.NewBookingFormService(
		tourClient,
		draftStore,
		limiter,
		auditService,
		services.BookingFormConfig{
			Policy:          policy,
			ExposeDebugCode: cfg.OTP.ExposeDebugCode,
		},
		logger,
	)

	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpiry)

	// Initialize cron service for draft eviction and retention jobs
	cronService := services.NewCronService(
		draftStore,
		limiter,
		auditService,
		services.CronConfig{
			DraftIdleTTL:   cfg.Booking.DraftIdleTTL,
			SweepSchedule:  cfg.Booking.SweepSchedule,
			AuditRetention: cfg.Security.AuditRetention,
		},
		logger,
	)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	// Initialize handlers
	bookingDraftHandler := handlers.NewBookingDraftHandler(bookingFormService, logger)
	healthHandler := handlers.NewHealthHandler(db, draftStore, version)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthHandler.Check)

	// API v1 routes, guests and members alike
	v1 := router.Group("/api/v1")
	v1.Use(middleware.OptionalAuthMiddleware(jwtService, logger))
	bookingDraftHandler.RegisterRoutes(v1)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.TourAPI.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	cronService.Stop()

	// Stop the OTP countdowns of drafts still open
	draftStore.CloseAll()

	logger.Info("Server exited successfully")
}
