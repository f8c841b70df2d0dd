package service

import (
	"context"
	"fmt"
	"html"
	"strings"
)

// ReminderService builds the morning reminder text.
type ReminderService struct {
	tasks      *TaskService
	categories *CategoryService
	stats      *StatsService
	prefs      *PreferenceService
	clock      Clock
}

func NewReminderService(tasks *TaskService, categories *CategoryService, stats *StatsService, prefs *PreferenceService, clock Clock) *ReminderService {
	return &ReminderService{tasks: tasks, categories: categories, stats: stats, prefs: prefs, clock: clock}
}

// BuildReminder returns the reminder for ownerID. ok is false when nothing should be sent:
// notifications are off or there are no open tasks.
func (s *ReminderService) BuildReminder(ctx context.Context, ownerID int64) (text string, ok bool, err error) {
	pref, err := s.prefs.Get(ctx, ownerID)
	if err != nil {
		return "", false, err
	}
	if !pref.NotificationsEnabled {
		return "", false, nil
	}

	summary, err := s.tasks.Summary(ctx, ownerID)
	if err != nil {
		return "", false, err
	}
	var total int64
	for _, row := range summary {
		total += row.Count
	}
	if total == 0 {
		return "", false, nil
	}

	categories, err := s.categories.Visible(ctx, ownerID)
	if err != nil {
		return "", false, err
	}
	emoji := EmojiIndex(categories)

	motivation, err := s.stats.MotivationalMessage(ctx, ownerID)
	if err != nil {
		return "", false, err
	}

	var b strings.Builder
	b.WriteString("🌅 <b>Good morning!</b>\n")
	fmt.Fprintf(&b, "🗓 %s\n\n", s.clock.Time().Format("Monday, 02.01.2006"))
	b.WriteString("📋 <b>Your open tasks</b>\n")
	for _, row := range summary {
		fmt.Fprintf(&b, "%s %s: %d\n", EmojiFor(emoji, row.Category), html.EscapeString(row.Category), row.Count)
	}
	fmt.Fprintf(&b, "\n📊 Total: <b>%d</b>\n", total)
	if pref.DailyGoal > 0 {
		fmt.Fprintf(&b, "🎯 Today's goal: complete %d\n", pref.DailyGoal)
	}
	b.WriteString("\n")
	b.WriteString(html.EscapeString(motivation))
	return b.String(), true, nil
}
