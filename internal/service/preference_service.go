package service

import (
	"context"
	"fmt"
	"strings"

	"todo-assistant/internal/config"
	"todo-assistant/internal/model"
	"todo-assistant/internal/repository"
)

const (
	minDailyGoal     = 1
	maxDailyGoal     = 50
	defaultDailyGoal = 3
)

// PreferenceService manages reminder and goal settings.
type PreferenceService struct {
	repo     *repository.PreferenceRepository
	defaults model.UserPreference
}

func NewPreferenceService(repo *repository.PreferenceRepository, cfg config.Config) *PreferenceService {
	return &PreferenceService{
		repo: repo,
		defaults: model.UserPreference{
			ReminderTime:         cfg.ReminderTime,
			Timezone:             cfg.Timezone,
			NotificationsEnabled: true,
			Language:             "en",
			DailyGoal:            defaultDailyGoal,
		},
	}
}

func (s *PreferenceService) defaultsFor(ownerID int64) model.UserPreference {
	p := s.defaults
	p.OwnerID = ownerID
	return p
}

// Ensure stores the default row for a new owner.
func (s *PreferenceService) Ensure(ctx context.Context, ownerID int64) error {
	return s.repo.EnsureDefaults(ctx, s.defaultsFor(ownerID))
}

// Get returns stored preferences, or the defaults when none were saved.
func (s *PreferenceService) Get(ctx context.Context, ownerID int64) (*model.UserPreference, error) {
	p, err := s.repo.Get(ctx, ownerID)
	if repository.IsNotFound(err) {
		d := s.defaultsFor(ownerID)
		return &d, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PreferenceService) update(ctx context.Context, ownerID int64, apply func(*model.UserPreference) error) (*model.UserPreference, error) {
	p, err := s.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := apply(p); err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetReminder sets the reminder time ("HH:MM") or turns reminders off ("off").
func (s *PreferenceService) SetReminder(ctx context.Context, ownerID int64, raw string) (*model.UserPreference, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	return s.update(ctx, ownerID, func(p *model.UserPreference) error {
		if raw == "off" {
			p.NotificationsEnabled = false
			return nil
		}
		h, m, err := config.ParseClock(raw)
		if err != nil {
			return invalid("reminder_time", "use HH:MM, for example 08:30")
		}
		p.ReminderTime = fmt.Sprintf("%02d:%02d", h, m)
		p.NotificationsEnabled = true
		return nil
	})
}

func (s *PreferenceService) ToggleNotifications(ctx context.Context, ownerID int64) (*model.UserPreference, error) {
	return s.update(ctx, ownerID, func(p *model.UserPreference) error {
		p.NotificationsEnabled = !p.NotificationsEnabled
		return nil
	})
}

func (s *PreferenceService) SetGoal(ctx context.Context, ownerID int64, goal int) (*model.UserPreference, error) {
	if goal < minDailyGoal || goal > maxDailyGoal {
		return nil, invalid("daily_goal", "goal must be between %d and %d", minDailyGoal, maxDailyGoal)
	}
	return s.update(ctx, ownerID, func(p *model.UserPreference) error {
		p.DailyGoal = goal
		return nil
	})
}

// AdjustGoal moves the daily goal by delta within the allowed range.
func (s *PreferenceService) AdjustGoal(ctx context.Context, ownerID int64, delta int) (*model.UserPreference, error) {
	return s.update(ctx, ownerID, func(p *model.UserPreference) error {
		p.DailyGoal = min(max(p.DailyGoal+delta, minDailyGoal), maxDailyGoal)
		return nil
	})
}

// DueOwners lists owners whose reminder time is hhmm.
func (s *PreferenceService) DueOwners(ctx context.Context, hhmm string) ([]int64, error) {
	prefs, err := s.repo.ListByReminderTime(ctx, hhmm)
	if err != nil {
		return nil, err
	}
	owners := make([]int64, 0, len(prefs))
	for _, p := range prefs {
		owners = append(owners, p.OwnerID)
	}
	return owners, nil
}
