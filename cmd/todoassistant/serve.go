package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"todo-assistant/internal/bot"
	"todo-assistant/internal/config"
	"todo-assistant/internal/service"
)

const (
	recurringRunTime = "00:05"
	jobTimeout       = 30 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	a, err := loadApp(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.cfg.RequireToken(); err != nil {
		return err
	}
	logger := a.logger

	if _, err := os.Stat(a.cfg.Path); err == nil {
		watcher := config.NewWatcher(a.cfg.Path, logger, a.stats.SetMotivation)
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("config watcher disabled", "path", a.cfg.Path, "error", err)
		}
	}

	if a.cfg.MetricsAddr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, a.cfg.MetricsAddr, logger); err != nil {
				logger.Error("metrics endpoint stopped", "error", err)
			}
		}()
	}

	telegramBot, err := bot.New(a.cfg.TelegramToken, bot.Options{
		Assistant:   a.assistant,
		Reminders:   a.reminders,
		Preferences: a.prefs,
		Logger:      logger,
		Metrics:     a.metrics,
	})
	if err != nil {
		return err
	}

	scheduler := service.NewSchedulerService(a.cfg.Location, logger)
	if a.cfg.RemindersEnabled {
		if _, err := scheduler.ScheduleEveryMinute(func() {
			jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
			defer cancel()
			if err := telegramBot.SendDueReminders(jobCtx, a.clock.Time()); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("send reminders failed", "error", err)
			}
		}); err != nil {
			return err
		}
	}
	if _, err := scheduler.ScheduleDaily(recurringRunTime, func() {
		jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()
		n, err := a.recurring.MaterializeDue(jobCtx)
		if err != nil {
			logger.Error("recurring tasks failed", "error", err)
			return
		}
		logger.Info("recurring tasks created", "count", n)
	}); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("todo assistant started", "env", a.cfg.Env, "timezone", a.cfg.Timezone, "reminders", a.cfg.RemindersEnabled)
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
