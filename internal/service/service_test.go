package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-assistant/internal/config"
	"todo-assistant/internal/model"
	"todo-assistant/internal/repository"
	"todo-assistant/internal/service"
	"todo-assistant/internal/telemetry"
)

type fixture struct {
	now        time.Time
	cfg        config.Config
	metrics    *telemetry.Metrics
	taskRepo   *repository.TaskRepository
	statsRepo  *repository.StatsRepository
	tasks      *service.TaskService
	categories *service.CategoryService
	stats      *service.StatsService
	prefs      *service.PreferenceService
	reminders  *service.ReminderService
	backups    *service.BackupService
	recurring  *service.RecurringService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "svc.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := config.Default()
	loc, err := time.LoadLocation(cfg.Timezone)
	require.NoError(t, err)
	cfg.Location = loc

	f := &fixture{
		now:       time.Date(2024, 3, 10, 9, 0, 0, 0, loc),
		cfg:       cfg,
		metrics:   telemetry.NewMetrics(),
		taskRepo:  repository.NewTaskRepository(db),
		statsRepo: repository.NewStatsRepository(db),
	}
	clock := service.Clock{Location: loc, Now: func() time.Time { return f.now }}
	categoryRepo := repository.NewCategoryRepository(db)
	recurringRepo := repository.NewRecurringRepository(db)

	f.stats = service.NewStatsService(f.statsRepo, f.taskRepo, clock, cfg.Motivation, f.metrics, nil)
	f.tasks = service.NewTaskService(f.taskRepo, f.stats, cfg.Limits, nil)
	f.categories = service.NewCategoryService(categoryRepo, cfg.Limits, cfg.DefaultCategories)
	f.prefs = service.NewPreferenceService(repository.NewPreferenceRepository(db), cfg)
	f.reminders = service.NewReminderService(f.tasks, f.categories, f.stats, f.prefs, clock)
	f.backups = service.NewBackupService(f.taskRepo, categoryRepo, f.statsRepo, recurringRepo, f.prefs, clock)
	f.recurring = service.NewRecurringService(recurringRepo, f.tasks, clock, f.metrics, nil)

	require.NoError(t, f.categories.SeedDefaults(context.Background()))
	return f
}

func TestExtractTags(t *testing.T) {
	assert.Equal(t, []string{"work", "urgent", "дом"}, service.ExtractTags("Fix #Work bug #urgent #work #дом"))
	assert.Nil(t, service.ExtractTags("no tags here # alone"))
}

func TestTaskService_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tasks.Create(ctx, 1, "   ", "Work")
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "content", verr.Field)

	_, err = f.tasks.Create(ctx, 1, strings.Repeat("я", 501), "Work")
	require.ErrorAs(t, err, &verr)

	task, err := f.tasks.Create(ctx, 1, strings.Repeat("я", 500), "Work")
	require.NoError(t, err)
	assert.NotZero(t, task.ID, "500 characters is the limit, not bytes")
}

func TestTaskService_LifecycleRecordsActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.tasks.Create(ctx, 1, "  write tests #go ", "Work")
	require.NoError(t, err)
	assert.Equal(t, "write tests #go", a.Content)
	b, err := f.tasks.Create(ctx, 1, "buy bread", "Shopping")
	require.NoError(t, err)

	change, err := f.tasks.Complete(ctx, 1, a.ID)
	require.NoError(t, err)
	assert.True(t, change.Changed)
	change, err = f.tasks.Complete(ctx, 1, a.ID)
	require.NoError(t, err, "completing twice is a no-op success")
	assert.False(t, change.Changed)

	_, err = f.tasks.Complete(ctx, 2, a.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	require.NoError(t, f.tasks.Delete(ctx, 1, b.ID))
	assert.ErrorIs(t, f.tasks.Delete(ctx, 1, b.ID), service.ErrNotFound)

	rows, err := f.statsRepo.Window(ctx, 1, "2024-03-10", "2024-03-10")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].TasksCreated)
	assert.Equal(t, 1, rows[0].TasksCompleted)
	assert.Equal(t, 1, rows[0].TasksDeleted)
	assert.Equal(t, 3.5, rows[0].ProductivityScore)

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.TaskActivity.WithLabelValues("created")))

	_, err = f.tasks.Get(ctx, 1, b.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestTaskService_SearchLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		_, err := f.tasks.Create(ctx, 1, "read chapter", "Study")
		require.NoError(t, err)
	}

	res, err := f.tasks.Search(ctx, 1, "chapter")
	require.NoError(t, err)
	assert.Equal(t, 12, res.Total)
	assert.Len(t, res.Tasks, 10)

	_, err = f.tasks.Search(ctx, 1, " ")
	var verr *service.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCategoryService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.categories.Create(ctx, 1, "🌱 Garden work")
	require.NoError(t, err)
	assert.Equal(t, "🌱", c.Emoji)
	assert.Equal(t, "Garden work", c.Name)

	c, err = f.categories.Create(ctx, 1, "Hobby")
	require.NoError(t, err)
	assert.Equal(t, service.FallbackEmoji, c.Emoji)

	_, err = f.categories.Create(ctx, 1, "Hobby")
	assert.ErrorIs(t, err, service.ErrConflict)

	_, err = f.categories.Create(ctx, 1, strings.Repeat("x", 51))
	var verr *service.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.categories.Create(ctx, 1, "")
	assert.ErrorAs(t, err, &verr)

	visible, err := f.categories.Visible(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, visible, len(f.cfg.DefaultCategories)+2)

	others, err := f.categories.Visible(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, others, len(f.cfg.DefaultCategories))

	_, err = f.categories.Get(ctx, 2, 9999)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestSplitEmoji(t *testing.T) {
	tests := []struct {
		in, emoji, name string
	}{
		{"🌱 Garden", "🌱", "Garden"},
		{"Garden", "", "Garden"},
		{"  🎸   Music lessons ", "🎸", "Music lessons"},
		{"🎸", "", "🎸"},
		{"2024 goals", "", "2024 goals"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			emoji, name := service.SplitEmoji(tt.in)
			assert.Equal(t, tt.emoji, emoji)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestStatsService_UserStatistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Eight days ago falls outside a 7-day window.
	f.now = f.now.AddDate(0, 0, -8)
	_, err := f.tasks.Create(ctx, 1, "old", "Work")
	require.NoError(t, err)

	f.now = f.now.AddDate(0, 0, 6)
	for i := 0; i < 3; i++ {
		task, err := f.tasks.Create(ctx, 1, "task", "Work")
		require.NoError(t, err)
		if i < 2 {
			_, err = f.tasks.Complete(ctx, 1, task.ID)
			require.NoError(t, err)
		}
	}
	f.now = f.now.AddDate(0, 0, 2)
	_, err = f.tasks.Create(ctx, 1, "today", "Study")
	require.NoError(t, err)

	st, err := f.stats.UserStatistics(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(4), st.TotalCreated)
	assert.Equal(t, int64(2), st.TotalCompleted)
	assert.Equal(t, int64(2), st.ActiveDays)
	assert.Equal(t, int64(3), st.OpenTasks, "open tasks are not windowed")
	assert.InDelta(t, 50.0, st.CompletionRate, 1e-9)
	assert.InDelta(t, (7.0+1.0)/2, st.AvgProductivity, 1e-9)
	assert.Equal(t, []model.CategoryCount{{Category: "Work", Count: 2}}, st.TopCategories)

	empty, err := f.stats.UserStatistics(ctx, 99, 7)
	require.NoError(t, err)
	assert.Zero(t, empty.CompletionRate)
	assert.Zero(t, empty.ActiveDays)

	series, err := f.stats.Series(ctx, 1, 14)
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.True(t, series[0].Date.Before(series[1].Date))
	assert.Equal(t, 2, series[1].Completed)
}

func TestStatsService_Motivation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.stats.MotivationalMessage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, f.cfg.Motivation.Starter, msg)

	task, err := f.tasks.Create(ctx, 1, "one", "Work")
	require.NoError(t, err)
	_, err = f.tasks.Complete(ctx, 1, task.ID)
	require.NoError(t, err)

	msg, err = f.stats.MotivationalMessage(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, msg, "Champion")

	f.stats.SetMotivation(config.Motivation{Starter: "s", Tiers: []config.MotivationTier{{MinRate: 0, Text: "done {completed} at {rate}%"}}})
	msg, err = f.stats.MotivationalMessage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "done 1 at 100%", msg)
}

func TestReminderService_BuildReminder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, ok, err := f.reminders.BuildReminder(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok, "nothing to remind about")

	_, err = f.tasks.Create(ctx, 1, "a <b>", "Work")
	require.NoError(t, err)
	_, err = f.tasks.Create(ctx, 1, "b", "Mystery")
	require.NoError(t, err)

	text, ok, err := f.reminders.BuildReminder(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, text, "💼 Work: 1")
	assert.Contains(t, text, "📂 Mystery: 1")
	assert.Contains(t, text, "Total: <b>2</b>")
	assert.Contains(t, text, "complete 3")

	_, err = f.prefs.SetReminder(ctx, 1, "off")
	require.NoError(t, err)
	_, ok, err = f.reminders.BuildReminder(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPreferenceService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.prefs.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "09:00", p.ReminderTime)
	assert.True(t, p.NotificationsEnabled)

	require.NoError(t, f.prefs.Ensure(ctx, 1))
	due, err := f.prefs.DueOwners(ctx, "09:00")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, due)

	p, err = f.prefs.SetReminder(ctx, 1, "7:05")
	require.NoError(t, err)
	assert.Equal(t, "07:05", p.ReminderTime)

	_, err = f.prefs.SetReminder(ctx, 1, "later")
	var verr *service.ValidationError
	assert.ErrorAs(t, err, &verr)

	p, err = f.prefs.AdjustGoal(ctx, 1, -10)
	require.NoError(t, err)
	assert.Equal(t, 1, p.DailyGoal)
	p, err = f.prefs.SetGoal(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, p.DailyGoal)
	_, err = f.prefs.SetGoal(ctx, 1, 0)
	assert.ErrorAs(t, err, &verr)

	p, err = f.prefs.ToggleNotifications(ctx, 1)
	require.NoError(t, err)
	assert.False(t, p.NotificationsEnabled)
	due, err = f.prefs.DueOwners(ctx, "07:05")
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestBackupService_Export(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.tasks.Create(ctx, 1, "pack #travel", "Travel")
	require.NoError(t, err)
	_, err = f.categories.Create(ctx, 1, "Garden")
	require.NoError(t, err)

	b, err := f.backups.Export(ctx, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Len(t, b.Tasks, 1)
	assert.Len(t, b.Categories, 1, "global categories are not exported")
	assert.Len(t, b.DailyStats, 1)
	assert.Equal(t, "todo_backup_1_20240310_090000.json", b.FileName())

	data, err := b.JSON()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "tasks")
	assert.Contains(t, string(data), `"name": "travel"`)
}

func TestRecurringService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.recurring.Create(ctx, 1, "hourly", "stretch")
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)

	rt, err := f.recurring.Create(ctx, 1, "Weekly", "water plants")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-17", rt.NextDueDate)

	open, err := f.tasks.List(ctx, 1, "")
	require.NoError(t, err)
	assert.Len(t, open, 1, "first occurrence is created immediately")

	n, err := f.recurring.MaterializeDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Three weeks later one task is produced and the due date moves past today.
	f.now = f.now.AddDate(0, 0, 21)
	n, err = f.recurring.MaterializeDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	list, err := f.recurring.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2024-04-07", list[0].NextDueDate)

	assert.ErrorIs(t, f.recurring.Stop(ctx, 2, rt.ID), service.ErrNotFound)
	require.NoError(t, f.recurring.Stop(ctx, 1, rt.ID))
	f.now = f.now.AddDate(0, 0, 30)
	n, err = f.recurring.MaterializeDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecurringService_MonthlyAtMonthEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.now = time.Date(2024, 1, 31, 9, 0, 0, 0, f.cfg.Location)

	rt, err := f.recurring.Create(ctx, 1, "monthly", "pay rent")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", rt.NextDueDate, "february is not skipped")
	assert.Equal(t, 31, rt.AnchorDay)

	f.now = time.Date(2024, 2, 29, 0, 5, 0, 0, f.cfg.Location)
	n, err := f.recurring.MaterializeDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := f.recurring.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2024-03-31", list[0].NextDueDate, "back on the original day after a short month")

	f.now = time.Date(2024, 3, 31, 0, 5, 0, 0, f.cfg.Location)
	_, err = f.recurring.MaterializeDue(ctx)
	require.NoError(t, err)
	list, err = f.recurring.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-30", list[0].NextDueDate)
}

func TestSchedulerService_RejectsBadTime(t *testing.T) {
	s := service.NewSchedulerService(time.UTC, nil)
	_, err := s.ScheduleDaily("24:00", func() {})
	assert.Error(t, err)
	_, err = s.ScheduleDaily("00:05", func() {})
	assert.NoError(t, err)
	_, err = s.ScheduleEveryMinute(func() {})
	assert.NoError(t, err)
	s.Start()
	s.Stop()
}

func TestStoreFailureIsUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.tasks.Create(ctx, 1, "x", "Work")
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrUnavailable) || errors.Is(err, context.Canceled))
}
