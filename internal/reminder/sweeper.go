// Package reminder periodically notifies members whose borrowed books are
// past their due date. Each overdue loan is reminded at most once.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"libhub/internal/httpapi/models"
	"libhub/internal/httpapi/repository"
	"libhub/internal/httpapi/service"

	"golang.org/x/time/rate"
)

const sweepBatchSize = 100

type Sweeper struct {
	repo     repository.ReservationRepository
	tokens   repository.RefreshTokenRepository
	notifier service.Notifier
	limiter  *rate.Limiter
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(
	repo repository.ReservationRepository,
	tokens repository.RefreshTokenRepository,
	notifier service.Notifier,
	interval time.Duration,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		repo:     repo,
		tokens:   tokens,
		notifier: notifier,
		// throttle notification fan-out to 5/s with small bursts
		limiter:  rate.NewLimiter(rate.Limit(5), 10),
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reminder sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	// session hygiene rides on the same cadence as the reminders
	if err := s.tokens.DeleteExpired(); err != nil {
		s.logger.Warn("Failed to purge expired refresh tokens", "error", err)
	}

	slots, err := s.repo.DueForReminder(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		s.logger.Error("Failed to list overdue loans", "error", err)
		return
	}
	if len(slots) == 0 {
		return
	}

	s.logger.Info("Sweeping overdue loans", "count", len(slots))

	for _, slot := range slots {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		title := "ce livre"
		if slot.BookTitle != nil {
			title = *slot.BookTitle
		}
		s.notifier.Notify(ctx, slot.UserID, models.NotifReminder,
			"Retour attendu",
			fmt.Sprintf("Le livre %q a depasse sa date de retour, merci de le rapporter.", title))

		if err := s.repo.MarkReminded(ctx, slot.ID, time.Now()); err != nil {
			// next sweep will retry this slot, possibly duplicating the reminder
			s.logger.Warn("Failed to mark loan as reminded",
				"slot_id", slot.ID, "user_id", slot.UserID, "error", err)
		}
	}
}
