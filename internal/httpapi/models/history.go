package models

import "time"

// Per-user history caps. Rows beyond the cap are trimmed oldest-first.
const (
	MaxBrowseHistory = 20
	MaxSearchHistory = 8
)

// BrowseHistory records a book a member looked at or reserved, most recent first.
type BrowseHistory struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   string    `gorm:"type:uuid;not null;index" json:"user_id"`
	BookID   int64     `gorm:"not null;index" json:"book_id"`
	Title    string    `json:"title"`
	Category *string   `json:"category,omitempty"`
	ViewedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"viewed_at"`

	// Associations
	Book *Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

func (BrowseHistory) TableName() string {
	return "browse_history"
}

// SearchHistory keeps a member's recent search terms, deduplicated.
type SearchHistory struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Term       string    `gorm:"not null" json:"term"`
	SearchedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"searched_at"`
}

func (SearchHistory) TableName() string {
	return "search_history"
}
