package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test email",
	Long:  "Sends a single sample listing through the configured channels.",
	RunE:  runNotifyTest,
}

var notifyPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Deliver every recorded posting not yet notified",
	Long:  "Sends all unnotified postings as one batch and marks them notified. Use after a delivery outage.",
	RunE:  runNotifyPending,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd, notifyPendingCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	logger, cfg, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	d, recipient, err := buildDispatcher(cfg, false, logger)
	if err != nil {
		logger.Error("failed to set up notifier", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.SendTest(ctx, recipient); err != nil {
		logger.Error("test notification failed", "error", err)
		return err
	}
	logger.Info("test notification sent successfully", "recipient", recipient)
	return nil
}

func runNotifyPending(cmd *cobra.Command, args []string) error {
	logger, cfg, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx, cfg, false, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return err
	}
	defer p.Close()

	r, err := p.poller.DeliverPending(ctx)
	if err != nil {
		logger.Error("pending delivery failed", "error", err)
		return err
	}
	logger.Info("pending delivery complete", "delivered", r.Delivered, "acknowledged", r.Acknowledged)
	return nil
}
