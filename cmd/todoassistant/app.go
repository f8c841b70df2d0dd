package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"gorm.io/gorm"

	"todo-assistant/internal/assistant"
	"todo-assistant/internal/config"
	"todo-assistant/internal/conversation"
	"todo-assistant/internal/repository"
	"todo-assistant/internal/service"
	"todo-assistant/internal/telemetry"
)

// app is the wired object graph shared by every subcommand.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *telemetry.Metrics
	db      *gorm.DB
	clock   service.Clock

	tasks      *service.TaskService
	categories *service.CategoryService
	stats      *service.StatsService
	prefs      *service.PreferenceService
	reminders  *service.ReminderService
	backups    *service.BackupService
	recurring  *service.RecurringService
	assistant  *assistant.Service
	users      *repository.UserRepository
}

// loadApp reads the configuration and wires storage and services. Logs go to logOut.
func loadApp(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := telemetry.NewLogger(logOut, cfg.LogLevel)

	db, err := repository.NewDB(cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: telemetry.NewMetrics(),
		db:      db,
		clock:   service.Clock{Location: cfg.Location},
	}

	taskRepo := repository.NewTaskRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	recurringRepo := repository.NewRecurringRepository(db)

	a.stats = service.NewStatsService(statsRepo, taskRepo, a.clock, cfg.Motivation, a.metrics, logger)
	a.tasks = service.NewTaskService(taskRepo, a.stats, cfg.Limits, logger)
	a.categories = service.NewCategoryService(categoryRepo, cfg.Limits, cfg.DefaultCategories)
	a.prefs = service.NewPreferenceService(repository.NewPreferenceRepository(db), cfg)
	a.reminders = service.NewReminderService(a.tasks, a.categories, a.stats, a.prefs, a.clock)
	a.backups = service.NewBackupService(taskRepo, categoryRepo, statsRepo, recurringRepo, a.prefs, a.clock)
	a.users = repository.NewUserRepository(db)
	a.recurring = service.NewRecurringService(recurringRepo, a.tasks, a.clock, a.metrics, logger)

	if err := a.categories.SeedDefaults(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("seed categories: %w", err)
	}

	a.assistant = assistant.New(assistant.Deps{
		Tasks:       a.tasks,
		Categories:  a.categories,
		Stats:       a.stats,
		Reminders:   a.reminders,
		Backups:     a.backups,
		Preferences: a.prefs,
		Recurring:   a.recurring,
		Users:       a.users,
		States:      conversation.NewMemoryStore(),
		Limits:      cfg.Limits,
		Logger:      logger,
		Metrics:     a.metrics,
	})
	return a, nil
}

func (a *app) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
