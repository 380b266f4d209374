package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"libhub/internal/httpapi/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Conditions detected inside the reserve/cancel transaction. The service layer
// maps these onto its user-facing error set.
var (
	ErrStockExhausted  = errors.New("no copies left in stock")
	ErrSlotLimit       = errors.New("all reservation slots occupied")
	ErrDuplicateHold   = errors.New("book already held in another slot")
	ErrNoFreeSlot      = errors.New("no free slot found")
	ErrBookMissing     = errors.New("book not found in catalog")
	ErrSlotNotReserved = errors.New("slot is not in reserved state")
	ErrSlotNotBorrowed = errors.New("slot is not in borrowed state")
	ErrCorruptSlot     = errors.New("slot detail is incomplete")
)

// CancelResult reports what the cancellation transaction actually did.
// StockRestored is false when the recorded catalog row no longer exists; the
// slot is freed regardless.
type CancelResult struct {
	Slot          *models.ReservationSlot
	StockRestored bool
}

type ReservationRepository interface {
	GetSlots(ctx context.Context, userID string) ([]models.ReservationSlot, error)
	Reserve(ctx context.Context, userID, normalizedTitle string) (*models.ReservationSlot, error)
	Cancel(ctx context.Context, userID string, slotIndex int) (*CancelResult, error)
	MarkBorrowed(ctx context.Context, userID string, slotIndex int, dueDate time.Time) (*models.ReservationSlot, error)
	MarkReturned(ctx context.Context, userID string, slotIndex int) (*CancelResult, error)
	DueForReminder(ctx context.Context, now time.Time, limit int) ([]models.ReservationSlot, error)
	MarkReminded(ctx context.Context, slotID int64, at time.Time) error
}

type reservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

// GetSlots returns the user's three slots ordered by index, creating the free
// rows on first use.
func (r *reservationRepository) GetSlots(ctx context.Context, userID string) ([]models.ReservationSlot, error) {
	var slots []models.ReservationSlot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		slots, txErr = lockSlots(tx, userID)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("get slots: %w", err)
	}
	return slots, nil
}

// lockSlots loads the user's slot rows under FOR UPDATE, seeding the three
// free rows if the user has never reserved before. Must run inside a tx.
func lockSlots(tx *gorm.DB, userID string) ([]models.ReservationSlot, error) {
	var slots []models.ReservationSlot
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Order("slot_index asc").
		Find(&slots).Error; err != nil {
		return nil, err
	}
	if len(slots) == models.MaxSlots {
		return slots, nil
	}

	// seed missing rows (first reservation attempt for this user)
	have := make(map[int]bool, len(slots))
	for _, s := range slots {
		have[s.SlotIndex] = true
	}
	for i := 1; i <= models.MaxSlots; i++ {
		if have[i] {
			continue
		}
		seed := models.ReservationSlot{UserID: userID, SlotIndex: i, Status: models.SlotFree}
		if err := tx.Create(&seed).Error; err != nil {
			return nil, err
		}
		slots = append(slots, seed)
	}
	// re-read ordered so callers always see index 1..3
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Order("slot_index asc").
		Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

// Reserve runs the whole allocation as one transaction: the slot preconditions
// and the stock decrement are re-validated under row locks so a stale read
// from the precheck can never over-commit. Lowest free slot index wins.
func (r *reservationRepository) Reserve(ctx context.Context, userID, normalizedTitle string) (*models.ReservationSlot, error) {
	var reserved *models.ReservationSlot

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slots, err := lockSlots(tx, userID)
		if err != nil {
			return err
		}

		// live re-resolution of the book, locked for the decrement below
		var book models.Book
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("normalized_title = ?", normalizedTitle).
			First(&book).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookMissing
			}
			return err
		}

		held := 0
		duplicate := false
		var free *models.ReservationSlot
		for i := range slots {
			s := &slots[i]
			if !s.Held() {
				if free == nil {
					free = s
				}
				continue
			}
			held++
			if s.BookTitle != nil && models.NormalizeTitle(*s.BookTitle) == normalizedTitle {
				duplicate = true
			}
		}
		// the limit check outranks the duplicate check
		if held >= models.MaxSlots {
			return ErrSlotLimit
		}
		if duplicate {
			return ErrDuplicateHold
		}
		if free == nil {
			// unreachable given the count check, kept as a guard against
			// slot rows in an unexpected state
			return ErrNoFreeSlot
		}
		if book.Stock <= 0 {
			return ErrStockExhausted
		}

		if err := tx.Model(&models.Book{}).
			Where("id = ?", book.ID).
			UpdateColumn("stock", gorm.Expr("stock - 1")).Error; err != nil {
			return err
		}

		now := time.Now()
		remaining := book.Stock - 1
		free.Status = models.SlotReserved
		free.BookID = &book.ID
		free.BookTitle = &book.Title
		free.Category = book.Category
		free.ImageURL = book.ImageURL
		free.Collection = &book.Collection
		free.RemainingStock = &remaining
		free.ReservedAt = &now
		free.DueDate = nil
		free.RemindedAt = nil
		if err := tx.Save(free).Error; err != nil {
			return err
		}

		// history entry travels in the same batch as the slot write
		entry := models.BrowseHistory{
			UserID:   userID,
			BookID:   book.ID,
			Title:    book.Title,
			Category: book.Category,
			ViewedAt: now,
		}
		if err := appendBrowseHistory(tx, &entry); err != nil {
			return err
		}

		reserved = free
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reserved, nil
}

// Cancel frees a reserved slot and restores the copy to the recorded source
// collection. A missing catalog row never blocks the cancellation; the stock
// increment is skipped and reported through CancelResult instead.
func (r *reservationRepository) Cancel(ctx context.Context, userID string, slotIndex int) (*CancelResult, error) {
	result := &CancelResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slot, err := lockSlot(tx, userID, slotIndex)
		if err != nil {
			return err
		}
		if slot.Status != models.SlotReserved {
			return ErrSlotNotReserved
		}
		if slot.BookTitle == nil || *slot.BookTitle == "" || slot.Collection == nil {
			return ErrCorruptSlot
		}

		restored, err := restoreStock(tx, *slot.BookTitle, *slot.Collection)
		if err != nil {
			return err
		}
		result.StockRestored = restored

		detail := *slot
		slot.ClearDetail()
		if err := tx.Save(slot).Error; err != nil {
			return err
		}
		result.Slot = &detail
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarkBorrowed transitions a reserved slot to borrowed when staff hand the
// copy over, stamping the due date used by the reminder sweep.
func (r *reservationRepository) MarkBorrowed(ctx context.Context, userID string, slotIndex int, dueDate time.Time) (*models.ReservationSlot, error) {
	var out *models.ReservationSlot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slot, err := lockSlot(tx, userID, slotIndex)
		if err != nil {
			return err
		}
		if slot.Status != models.SlotReserved {
			return ErrSlotNotReserved
		}
		slot.Status = models.SlotBorrowed
		slot.DueDate = &dueDate
		slot.RemindedAt = nil
		if err := tx.Save(slot).Error; err != nil {
			return err
		}
		out = slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkReturned closes out a borrowed slot and restores stock with the same
// missing-row tolerance as Cancel.
func (r *reservationRepository) MarkReturned(ctx context.Context, userID string, slotIndex int) (*CancelResult, error) {
	result := &CancelResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slot, err := lockSlot(tx, userID, slotIndex)
		if err != nil {
			return err
		}
		if slot.Status != models.SlotBorrowed {
			return ErrSlotNotBorrowed
		}
		if slot.BookTitle == nil || *slot.BookTitle == "" || slot.Collection == nil {
			return ErrCorruptSlot
		}

		restored, err := restoreStock(tx, *slot.BookTitle, *slot.Collection)
		if err != nil {
			return err
		}
		result.StockRestored = restored

		detail := *slot
		slot.ClearDetail()
		if err := tx.Save(slot).Error; err != nil {
			return err
		}
		result.Slot = &detail
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DueForReminder lists borrowed slots past their due date that have not been
// reminded yet.
func (r *reservationRepository) DueForReminder(ctx context.Context, now time.Time, limit int) ([]models.ReservationSlot, error) {
	var slots []models.ReservationSlot
	if err := r.db.WithContext(ctx).
		Where("status = ? AND due_date < ? AND reminded_at IS NULL", models.SlotBorrowed, now).
		Order("due_date asc").
		Limit(limit).
		Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("list due slots: %w", err)
	}
	return slots, nil
}

func (r *reservationRepository) MarkReminded(ctx context.Context, slotID int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ReservationSlot{}).
		Where("id = ?", slotID).
		Update("reminded_at", at).Error
}

// lockSlot loads one slot row under FOR UPDATE.
func lockSlot(tx *gorm.DB, userID string, slotIndex int) (*models.ReservationSlot, error) {
	var slot models.ReservationSlot
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND slot_index = ?", userID, slotIndex).
		First(&slot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotReserved
		}
		return nil, err
	}
	return &slot, nil
}

// restoreStock increments the stock of the catalog row recorded on the slot,
// matched by exact title in the recorded collection (no fuzzy re-search).
// Returns false when the row no longer exists.
func restoreStock(tx *gorm.DB, title, collection string) (bool, error) {
	var book models.Book
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("title = ? AND collection = ?", title, collection).
		First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := tx.Model(&models.Book{}).
		Where("id = ?", book.ID).
		UpdateColumn("stock", gorm.Expr("stock + 1")).Error; err != nil {
		return false, err
	}
	return true, nil
}

// appendBrowseHistory inserts a history row and trims the user's history to
// the cap, oldest rows first.
func appendBrowseHistory(tx *gorm.DB, entry *models.BrowseHistory) error {
	if err := tx.Create(entry).Error; err != nil {
		return err
	}
	return trimBrowseHistory(tx, entry.UserID)
}

func trimBrowseHistory(tx *gorm.DB, userID string) error {
	sub := tx.Model(&models.BrowseHistory{}).
		Select("id").
		Where("user_id = ?", userID).
		Order("viewed_at desc").
		Limit(models.MaxBrowseHistory)
	return tx.Where("user_id = ? AND id NOT IN (?)", userID, sub).
		Delete(&models.BrowseHistory{}).Error
}
