package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"libhub/database"
	"libhub/internal/config"
	"libhub/internal/httpapi/handler"
	"libhub/internal/httpapi/middleware"
	"libhub/internal/httpapi/repository"
	"libhub/internal/httpapi/service"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := newLogger(cfg)

	// Open GORM DB (used by the repositories)
	gdb, err := database.OpenGorm(cfg, logger)
	if err != nil {
		log.Fatalf("failed to open gorm DB: %v", err)
	}

	// Try to initialize optional pgx pool (used by the stats endpoint). Non-fatal.
	var statsRepo *repository.StatsRepository
	pool, err := database.ConnectPool(context.Background(), cfg, logger)
	if err != nil {
		logger.Warn("pgx connect failed, stats endpoint disabled", "error", err)
	} else {
		defer pool.Close()
		statsRepo = repository.NewStatsRepository(pool)
	}

	// Optional Redis catalog cache. Non-fatal; nil cache is a no-op.
	var cache *repository.BookCache
	if cfg.RedisURL != "" {
		cache, err = repository.NewBookCache(cfg.RedisURL, cfg.RedisPassword, time.Duration(cfg.CacheTTL)*time.Second)
		if err != nil {
			logger.Warn("redis connect failed, catalog cache disabled", "error", err)
			cache = nil
		}
	}

	// Create repositories
	userRepo := repository.NewUserRepository(gdb)
	refreshTokenRepo := repository.NewRefreshTokenRepository(gdb)
	bookRepo := repository.NewBookRepository(gdb)
	commentRepo := repository.NewCommentRepository(gdb)
	reservationRepo := repository.NewReservationRepository(gdb)
	notificationRepo := repository.NewNotificationRepository(gdb)
	historyRepo := repository.NewHistoryRepository(gdb)

	// Create services
	authService := service.NewAuthService(userRepo, refreshTokenRepo, cfg)
	notificationService := service.NewNotificationService(notificationRepo, logger)
	bookService := service.NewBookService(bookRepo, commentRepo, userRepo, notificationService, cache, logger)
	historyService := service.NewHistoryService(historyRepo)
	reservationService := service.NewReservationService(
		reservationRepo, bookRepo, notificationService, cache, logger, cfg.LoanPeriod)

	// Create handlers
	authHandler := handler.NewAuthHandler(authService)
	bookHandler := handler.NewBookHandler(bookService, historyService)
	reservationHandler := handler.NewReservationHandler(reservationService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	historyHandler := handler.NewHistoryHandler(historyService)
	statsHandler := handler.NewStatsHandler(statsRepo)

	// Setup Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.GET("/check-conn", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": "API is alive and database connected"})
	})

	api := r.Group("/api")

	// Public routes
	authHandler.RegisterRoutes(api.Group("/auth"))

	// Authenticated routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(authService))
	bookHandler.RegisterRoutes(protected.Group("/books"))
	reservationHandler.RegisterRoutes(protected.Group("/reservations"))
	notificationHandler.RegisterRoutes(protected.Group("/notifications"))
	historyHandler.RegisterRoutes(protected.Group("/history"))
	statsHandler.RegisterRoutes(protected.Group("/stats"))

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	logger.Info("HTTP server starting", "addr", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
