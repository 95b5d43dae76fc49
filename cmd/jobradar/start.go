package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobradar/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the polling daemon",
	Long:  "Start the scheduler daemon: one cycle immediately, then one per interval. Blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger, cfg, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	lock, err := scheduler.AcquireLock(cfg.LockFile)
	if err != nil {
		if errors.Is(err, scheduler.ErrAlreadyRunning) {
			logger.Error("refusing to start", "lock_file", cfg.LockFile, "error", err)
		}
		return err
	}
	defer lock.Unlock()

	schedule, err := scheduler.ParseSchedule(cfg.Schedule, cfg.CheckInterval)
	if err != nil {
		logger.Error("invalid schedule", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx, cfg, false, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return err
	}
	defer p.Close()

	logger.Info("config loaded",
		"interval", cfg.CheckInterval.String(),
		"schedule", cfg.Schedule,
		"sources", p.aggregator.Sources(),
		"keywords", len(cfg.Search.Keywords),
		"exclude_keywords", len(cfg.Filters.ExcludeKeywords),
		"min_new_for_notify", cfg.Filters.MinNewForNotify,
		"store", cfg.Store.Driver,
		"notification", cfg.Notification.Type,
	)

	sched := scheduler.NewScheduler(p.poller, schedule, logger)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		return err
	}

	logger.Info("goodbye")
	return nil
}
