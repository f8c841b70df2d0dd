package service

import (
	"time"

	"todo-assistant/internal/model"
)

// Clock yields the current time in the configured zone. The zero value uses time.Now and UTC.
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

func (c Clock) Time() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return now().In(loc)
}

// Today is the local calendar date formatted with model.DateLayout.
func (c Clock) Today() string {
	return c.Time().Format(model.DateLayout)
}

// DaysAgo returns the local date n days before today.
func (c Clock) DaysAgo(n int) string {
	return c.Time().AddDate(0, 0, -n).Format(model.DateLayout)
}
