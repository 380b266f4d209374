package models

import "time"

// Notification types kept in the wire vocabulary the mobile client already
// understands (French circulation terms).
const (
	NotifReservation  = "reservation"
	NotifBorrow       = "emprunt"
	NotifReturn       = "retour"
	NotifCancellation = "annulation"
	NotifReminder     = "rappel"
	NotifNewBook      = "nouveau_livre"
	NotifMessage      = "message"
)

type Notification struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      string    `gorm:"not null" json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `gorm:"default:false" json:"read"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`

	// Associations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}
