package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"todo-assistant/internal/model"
	"todo-assistant/internal/repository"
	"todo-assistant/internal/telemetry"
)

// DefaultRecurringCategory files tasks produced by /repeat.
const DefaultRecurringCategory = "General"

// RecurringService manages recurring definitions and turns them into tasks.
type RecurringService struct {
	repo    *repository.RecurringRepository
	tasks   *TaskService
	clock   Clock
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

func NewRecurringService(repo *repository.RecurringRepository, tasks *TaskService, clock Clock, metrics *telemetry.Metrics, logger *slog.Logger) *RecurringService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecurringService{repo: repo, tasks: tasks, clock: clock, metrics: metrics, logger: logger}
}

// Create registers a definition and adds today's task right away.
func (s *RecurringService) Create(ctx context.Context, ownerID int64, frequency, content string) (*model.RecurringTask, error) {
	freq, err := model.ParseFrequency(strings.ToLower(strings.TrimSpace(frequency)))
	if err != nil {
		return nil, invalid("frequency", "use daily, weekly or monthly")
	}
	content, err = s.tasks.ValidateContent(content)
	if err != nil {
		return nil, err
	}

	if _, err := s.tasks.Create(ctx, ownerID, content, DefaultRecurringCategory); err != nil {
		return nil, err
	}
	now := s.clock.Time()
	rt := &model.RecurringTask{
		OwnerID:     ownerID,
		Content:     content,
		Category:    DefaultRecurringCategory,
		Frequency:   freq,
		NextDueDate: freq.Next(now, now.Day()).Format(model.DateLayout),
		AnchorDay:   now.Day(),
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

func (s *RecurringService) List(ctx context.Context, ownerID int64) ([]model.RecurringTask, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *RecurringService) Stop(ctx context.Context, ownerID int64, id uint) error {
	ok, err := s.repo.Deactivate(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// MaterializeDue creates one task per due definition and moves each past today.
func (s *RecurringService) MaterializeDue(ctx context.Context) (int, error) {
	today := s.clock.Today()
	due, err := s.repo.ListDue(ctx, today)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, rt := range due {
		if _, err := s.tasks.Create(ctx, rt.OwnerID, rt.Content, rt.Category); err != nil {
			s.logger.Error("materialize recurring task failed", "recurring_id", rt.ID, "owner_id", rt.OwnerID, "error", err)
			continue
		}
		created++
		if s.metrics != nil {
			s.metrics.RecurringCreated.Inc()
		}
		if err := s.repo.Advance(ctx, rt.ID, nextAfter(rt, today, s.clock.Time().Location())); err != nil {
			return created, err
		}
	}
	return created, nil
}

// nextAfter steps the definition's due date until it is later than today.
func nextAfter(rt model.RecurringTask, today string, loc *time.Location) string {
	due, err := time.ParseInLocation(model.DateLayout, rt.NextDueDate, loc)
	if err != nil {
		due, _ = time.ParseInLocation(model.DateLayout, today, loc)
	}
	for due.Format(model.DateLayout) <= today {
		due = rt.Frequency.Next(due, rt.AnchorDay)
	}
	return due.Format(model.DateLayout)
}
