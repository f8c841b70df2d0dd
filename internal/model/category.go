package model

import "time"

// GlobalOwner is the owner id of the default categories every user sees.
const GlobalOwner int64 = 0

// Category groups tasks by area (work, study, shopping, etc.).
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   int64     `gorm:"uniqueIndex:idx_category_owner_name;not null" json:"owner_id"`
	Name      string    `gorm:"uniqueIndex:idx_category_owner_name;not null" json:"name"`
	Emoji     string    `gorm:"not null" json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// IsGlobal reports whether the category is one of the shared defaults.
func (c Category) IsGlobal() bool {
	return c.OwnerID == GlobalOwner
}

// CategoryCount is one row of the open-task summary.
type CategoryCount struct {
	Category string
	Count    int64
}
