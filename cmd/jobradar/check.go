package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var checkDryRun bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one cycle and exit",
	Long: "One-shot cycle: scrape every enabled source, filter, record and notify, then exit.\n" +
		"With --dry-run nothing is recorded and matches are only logged.",
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkDryRun, "dry-run", false, "log matches without recording or emailing them")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger, cfg, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx, cfg, checkDryRun, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return err
	}
	defer p.Close()

	r, err := p.poller.Poll(ctx)
	if err != nil {
		logger.Error("check failed", "error", err)
		return err
	}
	logger.Info("check complete",
		"scraped", r.Scraped,
		"kept", r.Kept,
		"new", r.New,
		"delivered", r.Delivered,
	)
	return nil
}
