package model

import "time"

// User stores Telegram profile data for an owner.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	TelegramID int64     `gorm:"uniqueIndex" json:"telegram_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
