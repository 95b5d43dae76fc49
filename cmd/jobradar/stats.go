package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobradar/internal/model"
)

var statsPending int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dedup store statistics",
	Long:  "Prints how many postings have been recorded and notified, and optionally the newest pending ones.",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsPending, "pending", 0, "also list up to N postings awaiting notification")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	logger, cfg, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	defer st.Close()

	s, err := st.Stats(ctx)
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}

	var pending []model.Posting
	if statsPending > 0 {
		if pending, err = st.Unnotified(ctx); err != nil {
			return fmt.Errorf("reading pending postings: %w", err)
		}
		if len(pending) > statsPending {
			pending = pending[:statsPending]
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderStats(cfg.Store.Driver, s, pending))
	return nil
}

func renderStats(driver string, s model.Stats, pending []model.Posting) string {
	rows := []string{
		titleStyle.Render("jobradar store (" + driver + ")"),
		labelStyle.Render("Total") + fmt.Sprint(s.Total),
		labelStyle.Render("Notified") + fmt.Sprint(s.Notified),
		labelStyle.Render("Pending") + fmt.Sprint(s.Unnotified),
	}
	if len(pending) > 0 {
		rows = append(rows, "", titleStyle.Render("Newest pending"))
		for _, p := range pending {
			rows = append(rows, fmt.Sprintf("%s at %s (%s)", p.Title, p.CompanyOrUnknown(), p.Source.DisplayName()))
		}
	}
	return boxStyle.Render(strings.Join(rows, "\n"))
}
