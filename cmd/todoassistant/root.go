package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	root := &cobra.Command{
		Use:   "todoassistant",
		Short: "Telegram to-do assistant",
		Long: `A Telegram bot that keeps per-user task lists with categories, tags,
daily statistics, reminders and recurring tasks.

Without a subcommand the bot is started.`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.AddCommand(serve, newStatsCmd(), newBackupCmd(), newMigrateCmd(), newUsersCmd())
	return root
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return id, nil
}
