package models

import (
	"time"

	"gorm.io/gorm"
)

type Book struct {
	ID              int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Title           string    `json:"title" gorm:"not null"`
	NormalizedTitle string    `json:"-" gorm:"index;size:255;not null"`
	Category        *string   `json:"category,omitempty"`
	ImageURL        *string   `json:"image_url,omitempty"`
	Collection      string    `json:"collection" gorm:"not null;default:'livres'"` // source shelf collection the book belongs to
	Stock           int       `json:"stock" gorm:"not null;default:0"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// association
	Comments []Comment `json:"comments,omitempty" gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE;"`
}

// BeforeSave keeps the normalized title in sync with the display title.
// Reservation lookups only ever match on the normalized form.
func (b *Book) BeforeSave(tx *gorm.DB) (err error) {
	b.NormalizedTitle = NormalizeTitle(b.Title)
	return
}

func (Book) TableName() string {
	return "books"
}
