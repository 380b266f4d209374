package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"libhub/database"
	"libhub/internal/config"
	"libhub/internal/httpapi/repository"
	"libhub/internal/httpapi/service"
	"libhub/internal/reminder"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := newLogger(cfg)

	gdb, err := database.OpenGorm(cfg, logger)
	if err != nil {
		log.Fatalf("failed to open gorm DB: %v", err)
	}

	reservationRepo := repository.NewReservationRepository(gdb)
	refreshTokenRepo := repository.NewRefreshTokenRepository(gdb)
	notificationRepo := repository.NewNotificationRepository(gdb)
	notificationService := service.NewNotificationService(notificationRepo, logger)

	sweeper := reminder.NewSweeper(reservationRepo, refreshTokenRepo, notificationService, cfg.ReminderInterval, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Reminder worker starting", "interval", cfg.ReminderInterval)
	sweeper.Run(ctx)
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
