package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"libhub/internal/httpapi/models"
	"libhub/internal/httpapi/repository"

	"gorm.io/gorm"
)

// User-facing reservation errors, in the order the preconditions are checked.
var (
	ErrUnauthenticated  = errors.New("no authenticated user")
	ErrOutOfStock       = errors.New("no copies available")
	ErrSlotLimitReached = errors.New("all three reservation slots are in use")
	ErrAlreadyReserved  = errors.New("book already reserved in another slot")
	ErrNoFreeSlot       = errors.New("no free reservation slot")
	ErrBookNotFound     = errors.New("book not found in catalog")
	ErrNothingToCancel  = errors.New("slot has no cancellable reservation")
	ErrNotReserved      = errors.New("slot has no reserved book")
	ErrCorruptState     = errors.New("reservation slot detail is corrupt")
	ErrNotBorrowed      = errors.New("slot has no borrowed book")
	ErrInvalidSlot      = errors.New("slot index must be 1, 2 or 3")
)

type ReservationService interface {
	Slots(ctx context.Context, userID string) ([]models.ReservationSlot, error)
	Reserve(ctx context.Context, userID, title string) (int, error)
	Cancel(ctx context.Context, userID string, slotIndex int) error
	MarkBorrowed(ctx context.Context, userID string, slotIndex int) (*models.ReservationSlot, error)
	MarkReturned(ctx context.Context, userID string, slotIndex int) error
}

type reservationService struct {
	repo       repository.ReservationRepository
	bookRepo   repository.BookRepository
	notifier   Notifier
	cache      *repository.BookCache
	logger     *slog.Logger
	loanPeriod time.Duration
}

func NewReservationService(
	repo repository.ReservationRepository,
	bookRepo repository.BookRepository,
	notifier Notifier,
	cache *repository.BookCache,
	logger *slog.Logger,
	loanPeriod time.Duration,
) ReservationService {
	return &reservationService{
		repo:       repo,
		bookRepo:   bookRepo,
		notifier:   notifier,
		cache:      cache,
		logger:     logger,
		loanPeriod: loanPeriod,
	}
}

func (s *reservationService) Slots(ctx context.Context, userID string) ([]models.ReservationSlot, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return s.repo.GetSlots(ctx, userID)
}

// Reserve allocates the lowest free slot for the given title. Preconditions
// are checked cheaply against possibly-stale reads first; the commit itself
// re-validates every one of them under row locks, so a failed precheck saves a
// transaction but a passed precheck proves nothing.
func (s *reservationService) Reserve(ctx context.Context, userID, title string) (int, error) {
	if userID == "" {
		return 0, ErrUnauthenticated
	}
	normalized := models.NormalizeTitle(title)
	if normalized == "" {
		return 0, ErrBookNotFound
	}

	book, err := s.bookRepo.FindByNormalizedTitle(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// catalog/history drifted apart; worth an operator's attention
			s.logger.Warn("reservation for unknown title", "title", title, "normalized", normalized)
			return 0, ErrBookNotFound
		}
		return 0, fmt.Errorf("resolve book: %w", err)
	}
	if book.Stock <= 0 {
		return 0, ErrOutOfStock
	}

	slots, err := s.repo.GetSlots(ctx, userID)
	if err != nil {
		return 0, err
	}
	held := 0
	duplicate := false
	for _, slot := range slots {
		if !slot.Held() {
			continue
		}
		held++
		if slot.BookTitle != nil && models.NormalizeTitle(*slot.BookTitle) == normalized {
			duplicate = true
		}
	}
	// the limit check outranks the duplicate check, same as in the commit
	if held >= models.MaxSlots {
		return 0, ErrSlotLimitReached
	}
	if duplicate {
		return 0, ErrAlreadyReserved
	}

	slot, err := s.repo.Reserve(ctx, userID, normalized)
	if err != nil {
		return 0, mapReserveError(err)
	}

	if cerr := s.cache.Invalidate(ctx, book.ID); cerr != nil {
		s.logger.Warn("cache invalidation failed", "book_id", book.ID, "error", cerr)
	}

	// best-effort; a lost notification never rolls back a reservation
	s.notifier.Notify(ctx, userID, models.NotifReservation,
		"Réservation confirmée",
		fmt.Sprintf("Votre réservation de « %s » est enregistrée (emplacement %d).", book.Title, slot.SlotIndex))

	return slot.SlotIndex, nil
}

// Cancel frees a reserved slot. A missing catalog row downgrades to a logged
// warning: losing the member's ability to cancel is worse than a stock drift.
func (s *reservationService) Cancel(ctx context.Context, userID string, slotIndex int) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	if slotIndex < 1 || slotIndex > models.MaxSlots {
		return ErrInvalidSlot
	}

	result, err := s.repo.Cancel(ctx, userID, slotIndex)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotNotReserved):
			return ErrNothingToCancel
		case errors.Is(err, repository.ErrCorruptSlot):
			return ErrCorruptState
		default:
			return fmt.Errorf("cancel reservation: %w", err)
		}
	}

	title := ""
	if result.Slot.BookTitle != nil {
		title = *result.Slot.BookTitle
	}
	if !result.StockRestored {
		s.logger.Warn("catalog row missing on cancellation, stock not restored",
			"user_id", userID, "slot", slotIndex, "title", title)
	}
	if result.Slot.BookID != nil {
		if cerr := s.cache.Invalidate(ctx, *result.Slot.BookID); cerr != nil {
			s.logger.Warn("cache invalidation failed", "book_id", *result.Slot.BookID, "error", cerr)
		}
	}

	s.notifier.Notify(ctx, userID, models.NotifCancellation,
		"Réservation annulée",
		fmt.Sprintf("Votre réservation de « %s » a été annulée.", title))

	return nil
}

// MarkBorrowed records the pickup of a reserved copy (staff action) and stamps
// the due date the reminder sweep watches.
func (s *reservationService) MarkBorrowed(ctx context.Context, userID string, slotIndex int) (*models.ReservationSlot, error) {
	if slotIndex < 1 || slotIndex > models.MaxSlots {
		return nil, ErrInvalidSlot
	}
	dueDate := time.Now().Add(s.loanPeriod)
	slot, err := s.repo.MarkBorrowed(ctx, userID, slotIndex, dueDate)
	if err != nil {
		if errors.Is(err, repository.ErrSlotNotReserved) {
			return nil, ErrNotReserved
		}
		return nil, fmt.Errorf("mark borrowed: %w", err)
	}

	title := ""
	if slot.BookTitle != nil {
		title = *slot.BookTitle
	}
	s.notifier.Notify(ctx, userID, models.NotifBorrow,
		"Emprunt enregistré",
		fmt.Sprintf("Vous avez emprunté « %s ». Retour attendu le %s.", title, dueDate.Format("02/01/2006")))

	return slot, nil
}

// MarkReturned closes out a borrowed slot (staff action).
func (s *reservationService) MarkReturned(ctx context.Context, userID string, slotIndex int) error {
	if slotIndex < 1 || slotIndex > models.MaxSlots {
		return ErrInvalidSlot
	}
	result, err := s.repo.MarkReturned(ctx, userID, slotIndex)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotNotBorrowed):
			return ErrNotBorrowed
		case errors.Is(err, repository.ErrCorruptSlot):
			return ErrCorruptState
		default:
			return fmt.Errorf("mark returned: %w", err)
		}
	}

	title := ""
	if result.Slot.BookTitle != nil {
		title = *result.Slot.BookTitle
	}
	if !result.StockRestored {
		s.logger.Warn("catalog row missing on return, stock not restored",
			"user_id", userID, "slot", slotIndex, "title", title)
	}
	if result.Slot.BookID != nil {
		if cerr := s.cache.Invalidate(ctx, *result.Slot.BookID); cerr != nil {
			s.logger.Warn("cache invalidation failed", "book_id", *result.Slot.BookID, "error", cerr)
		}
	}

	s.notifier.Notify(ctx, userID, models.NotifReturn,
		"Retour enregistré",
		fmt.Sprintf("Merci d'avoir rendu « %s ».", title))

	return nil
}

// mapReserveError translates the transaction-level sentinels to the
// user-facing error set.
func mapReserveError(err error) error {
	switch {
	case errors.Is(err, repository.ErrStockExhausted):
		return ErrOutOfStock
	case errors.Is(err, repository.ErrSlotLimit):
		return ErrSlotLimitReached
	case errors.Is(err, repository.ErrDuplicateHold):
		return ErrAlreadyReserved
	case errors.Is(err, repository.ErrNoFreeSlot):
		return ErrNoFreeSlot
	case errors.Is(err, repository.ErrBookMissing):
		return ErrBookNotFound
	default:
		return fmt.Errorf("commit reservation: %w", err)
	}
}
