package dto

import (
	"time"

	"libhub/internal/httpapi/models"
)

type ReserveRequest struct {
	Title string `json:"title" binding:"required"`
}

type ReserveResponse struct {
	SlotIndex int    `json:"slot_index"`
	Message   string `json:"message"`
}

type SlotResponse struct {
	SlotIndex      int        `json:"slot_index"`
	Status         string     `json:"status"`
	BookID         *int64     `json:"book_id,omitempty"`
	BookTitle      *string    `json:"book_title,omitempty"`
	Category       *string    `json:"category,omitempty"`
	ImageURL       *string    `json:"image_url,omitempty"`
	Collection     *string    `json:"collection,omitempty"`
	RemainingStock *int       `json:"remaining_stock,omitempty"`
	ReservedAt     *time.Time `json:"reserved_at,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
}

type SlotListResponse struct {
	Slots []SlotResponse `json:"slots"`
}

func FromSlotModel(s models.ReservationSlot) SlotResponse {
	return SlotResponse{
		SlotIndex:      s.SlotIndex,
		Status:         s.Status,
		BookID:         s.BookID,
		BookTitle:      s.BookTitle,
		Category:       s.Category,
		ImageURL:       s.ImageURL,
		Collection:     s.Collection,
		RemainingStock: s.RemainingStock,
		ReservedAt:     s.ReservedAt,
		DueDate:        s.DueDate,
	}
}
