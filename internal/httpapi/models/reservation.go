package models

import "time"

// MaxSlots is the number of reservation slots every member account has.
// A member can never hold more than this many concurrent reservations.
const MaxSlots = 3

// Slot statuses.
const (
	SlotFree     = "free"
	SlotReserved = "reserved"
	SlotBorrowed = "borrowed"
)

// ReservationSlot is one of the three fixed hold positions of a member.
// The three rows per user are created lazily on first use; (user_id, slot_index)
// is unique and slot_index is always 1..3. The detail columns are null while
// the slot is free and are written/cleared together with the status transition.
type ReservationSlot struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string `gorm:"type:uuid;not null;uniqueIndex:idx_user_slot,priority:1" json:"user_id"`
	SlotIndex int    `gorm:"not null;uniqueIndex:idx_user_slot,priority:2" json:"slot_index"`
	Status    string `gorm:"not null;default:'free'" json:"status"`

	BookID         *int64     `json:"book_id,omitempty"`
	BookTitle      *string    `json:"book_title,omitempty"`
	Category       *string    `json:"category,omitempty"`
	ImageURL       *string    `json:"image_url,omitempty"`
	Collection     *string    `json:"collection,omitempty"`
	RemainingStock *int       `json:"remaining_stock,omitempty"`
	ReservedAt     *time.Time `json:"reserved_at,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	RemindedAt     *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Held reports whether the slot currently holds a book (reserved or borrowed).
func (s *ReservationSlot) Held() bool {
	return s.Status != SlotFree
}

// ClearDetail resets the slot back to free and wipes every detail column.
func (s *ReservationSlot) ClearDetail() {
	s.Status = SlotFree
	s.BookID = nil
	s.BookTitle = nil
	s.Category = nil
	s.ImageURL = nil
	s.Collection = nil
	s.RemainingStock = nil
	s.ReservedAt = nil
	s.DueDate = nil
	s.RemindedAt = nil
}

func (ReservationSlot) TableName() string {
	return "reservation_slots"
}
