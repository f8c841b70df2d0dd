package model

import "time"

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskOpen TaskStatus = "open"
	TaskDone TaskStatus = "done"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	return s == TaskOpen || s == TaskDone
}

// Task is a single short text item owned by one user.
type Task struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	OwnerID   int64      `gorm:"index;not null" json:"owner_id"`
	Content   string     `gorm:"not null" json:"content"`
	Category  string     `gorm:"index;not null" json:"category"`
	Status    TaskStatus `gorm:"index;not null;default:open" json:"status"`
	Tags      []Tag      `gorm:"foreignKey:TaskID" json:"tags,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
