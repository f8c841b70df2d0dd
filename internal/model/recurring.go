package model

import (
	"fmt"
	"time"
)

// Frequency controls how often a recurring task is materialised.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// ParseFrequency accepts daily, weekly or monthly (case-sensitive).
func ParseFrequency(raw string) (Frequency, error) {
	switch f := Frequency(raw); f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return f, nil
	default:
		return "", fmt.Errorf("unknown frequency %q", raw)
	}
}

// Next returns the due date following from. Monthly steps land on anchorDay,
// clamped to the length of the target month; anchorDay <= 0 means from's day.
func (f Frequency) Next(from time.Time, anchorDay int) time.Time {
	switch f {
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyMonthly:
		if anchorDay <= 0 {
			anchorDay = from.Day()
		}
		first := time.Date(from.Year(), from.Month()+1, 1, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
		day := min(anchorDay, daysIn(first))
		return first.AddDate(0, 0, day-1)
	default:
		return from.AddDate(0, 0, 1)
	}
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// RecurringTask is a template that produces an ordinary task on each due date.
type RecurringTask struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OwnerID     int64     `gorm:"index;not null" json:"owner_id"`
	Content     string    `gorm:"not null" json:"content"`
	Category    string    `gorm:"not null" json:"category"`
	Frequency   Frequency `gorm:"not null" json:"frequency"`
	NextDueDate string    `gorm:"index;not null" json:"next_due_date"`
	// AnchorDay is the day of month monthly definitions return to.
	AnchorDay int       `json:"anchor_day"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
