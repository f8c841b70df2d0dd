package model

import "time"

// UserPreference holds per-user settings. There is at most one row per owner.
type UserPreference struct {
	OwnerID              int64     `gorm:"primaryKey;autoIncrement:false" json:"owner_id"`
	ReminderTime         string    `gorm:"not null" json:"reminder_time"`
	Timezone             string    `gorm:"not null" json:"timezone"`
	NotificationsEnabled bool      `gorm:"not null" json:"notifications_enabled"`
	Language             string    `gorm:"not null" json:"language"`
	DailyGoal            int       `gorm:"not null" json:"daily_goal"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
