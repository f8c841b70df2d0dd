package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"todo-assistant/internal/config"
	"todo-assistant/internal/model"
	"todo-assistant/internal/repository"
	"todo-assistant/internal/telemetry"
)

const topCategoriesLimit = 5

// Statistics summarises one user's activity over a window of calendar days.
type Statistics struct {
	WindowDays      int                   `json:"window_days"`
	TotalCreated    int64                 `json:"total_created"`
	TotalCompleted  int64                 `json:"total_completed"`
	TotalDeleted    int64                 `json:"total_deleted"`
	AvgProductivity float64               `json:"avg_productivity"`
	ActiveDays      int64                 `json:"active_days"`
	OpenTasks       int64                 `json:"open_tasks"`
	TopCategories   []model.CategoryCount `json:"top_categories"`
	// CompletionRate is completed/created in percent, 0 when nothing was created.
	CompletionRate float64 `json:"completion_rate"`
}

// StatsService records daily activity and derives statistics from it.
type StatsService struct {
	stats      *repository.StatsRepository
	tasks      *repository.TaskRepository
	clock      Clock
	motivation atomic.Pointer[config.Motivation]
	metrics    *telemetry.Metrics
	logger     *slog.Logger
}

func NewStatsService(stats *repository.StatsRepository, tasks *repository.TaskRepository, clock Clock, motivation config.Motivation, metrics *telemetry.Metrics, logger *slog.Logger) *StatsService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &StatsService{stats: stats, tasks: tasks, clock: clock, metrics: metrics, logger: logger}
	s.SetMotivation(motivation)
	return s
}

// SetMotivation swaps the motivational wording. Safe for concurrent use.
func (s *StatsService) SetMotivation(m config.Motivation) {
	s.motivation.Store(&m)
}

// RecordActivity counts one event on today's row of the owner.
func (s *StatsService) RecordActivity(ctx context.Context, ownerID int64, kind model.ActivityKind) error {
	if _, err := s.stats.Increment(ctx, ownerID, s.clock.Today(), kind); err != nil {
		return fmt.Errorf("record %s activity: %w", kind, err)
	}
	if s.metrics != nil {
		s.metrics.TaskActivity.WithLabelValues(string(kind)).Inc()
	}
	return nil
}

// UserStatistics aggregates the windowDays calendar dates ending today.
func (s *StatsService) UserStatistics(ctx context.Context, ownerID int64, windowDays int) (Statistics, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	agg, err := s.stats.Aggregate(ctx, ownerID, s.clock.DaysAgo(windowDays-1), s.clock.Today())
	if err != nil {
		return Statistics{}, err
	}
	open, err := s.tasks.CountOpen(ctx, ownerID)
	if err != nil {
		return Statistics{}, err
	}
	top, err := s.tasks.TopCompletedCategories(ctx, ownerID, topCategoriesLimit)
	if err != nil {
		return Statistics{}, err
	}

	st := Statistics{
		WindowDays:      windowDays,
		TotalCreated:    agg.Created,
		TotalCompleted:  agg.Completed,
		TotalDeleted:    agg.Deleted,
		AvgProductivity: agg.AvgScore,
		ActiveDays:      agg.ActiveDays,
		OpenTasks:       open,
		TopCategories:   top,
	}
	if st.TotalCreated > 0 {
		st.CompletionRate = float64(st.TotalCompleted) / float64(st.TotalCreated) * 100
	}
	return st, nil
}

// Series returns the stored days of the last `days` dates, oldest first.
func (s *StatsService) Series(ctx context.Context, ownerID int64, days int) ([]model.DailyPoint, error) {
	if days <= 0 {
		days = 14
	}
	rows, err := s.stats.Window(ctx, ownerID, s.clock.DaysAgo(days-1), s.clock.Today())
	if err != nil {
		return nil, err
	}
	loc := s.clock.Time().Location()
	points := make([]model.DailyPoint, 0, len(rows))
	for _, row := range rows {
		date, err := time.ParseInLocation(model.DateLayout, row.Date, loc)
		if err != nil {
			s.logger.Warn("skip malformed stat date", "owner_id", ownerID, "date", row.Date)
			continue
		}
		points = append(points, model.DailyPoint{
			Date:      date,
			Created:   row.TasksCreated,
			Completed: row.TasksCompleted,
			Score:     row.ProductivityScore,
		})
	}
	return points, nil
}

// MotivationalMessage is chosen from the last 7 days of activity.
func (s *StatsService) MotivationalMessage(ctx context.Context, ownerID int64) (string, error) {
	st, err := s.UserStatistics(ctx, ownerID, 7)
	if err != nil {
		return "", err
	}
	return s.Motivate(st), nil
}

// Motivate renders the message for already computed statistics.
func (s *StatsService) Motivate(st Statistics) string {
	return s.motivation.Load().Message(st.TotalCompleted, st.CompletionRate)
}
