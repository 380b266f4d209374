package dto

import (
	"time"

	"libhub/internal/httpapi/models"
)

type CreateBookRequest struct {
	Title      string  `json:"title" binding:"required"`
	Category   *string `json:"category,omitempty"`
	ImageURL   *string `json:"image_url,omitempty"`
	Collection string  `json:"collection" binding:"required"`
	Stock      int     `json:"stock" binding:"min=0"`
}

type BookResponse struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Category   *string   `json:"category,omitempty"`
	ImageURL   *string   `json:"image_url,omitempty"`
	Collection string    `json:"collection"`
	Stock      int       `json:"stock"`
	CreatedAt  time.Time `json:"created_at"`
}

type BookListResponse struct {
	Items []BookResponse `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
}

type AdjustStockRequest struct {
	// Delta is signed; zero is rejected since it would be a no-op.
	Delta int `json:"delta" binding:"required"`
}

type AddCommentRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

func FromBookModel(b models.Book) BookResponse {
	return BookResponse{
		ID:         b.ID,
		Title:      b.Title,
		Category:   b.Category,
		ImageURL:   b.ImageURL,
		Collection: b.Collection,
		Stock:      b.Stock,
		CreatedAt:  b.CreatedAt,
	}
}
