package model

import "time"

// DateLayout is the layout of DailyStat.Date.
const DateLayout = "2006-01-02"

// DailyStat aggregates one user's task activity for one calendar day.
type DailyStat struct {
	ID                uint      `gorm:"primaryKey" json:"-"`
	OwnerID           int64     `gorm:"uniqueIndex:idx_stat_owner_date;not null" json:"owner_id"`
	Date              string    `gorm:"uniqueIndex:idx_stat_owner_date;not null" json:"date"`
	TasksCreated      int       `gorm:"not null" json:"tasks_created"`
	TasksCompleted    int       `gorm:"not null" json:"tasks_completed"`
	TasksDeleted      int       `gorm:"not null" json:"tasks_deleted"`
	ProductivityScore float64   `gorm:"not null" json:"productivity_score"`
	CreatedAt         time.Time `json:"created_at"`
}

// DailyPoint is one element of the series handed to chart rendering.
type DailyPoint struct {
	Date      time.Time
	Created   int
	Completed int
	Score     float64
}

// ActivityKind is a counted event in a user's day.
type ActivityKind string

const (
	ActivityCreated   ActivityKind = "created"
	ActivityCompleted ActivityKind = "completed"
	ActivityDeleted   ActivityKind = "deleted"
)

// Column returns the daily_stats counter column for k, or "" when k is unknown.
func (k ActivityKind) Column() string {
	switch k {
	case ActivityCreated:
		return "tasks_created"
	case ActivityCompleted:
		return "tasks_completed"
	case ActivityDeleted:
		return "tasks_deleted"
	default:
		return ""
	}
}

// Score computes the productivity score of a day. It is never negative.
func Score(created, completed, deleted int) float64 {
	s := float64(completed)*2 + float64(created) - float64(deleted)*0.5
	if s < 0 {
		return 0
	}
	return s
}

// Recompute refreshes ProductivityScore from the day's counters.
func (s *DailyStat) Recompute() {
	s.ProductivityScore = Score(s.TasksCreated, s.TasksCompleted, s.TasksDeleted)
}
