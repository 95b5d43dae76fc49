package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobradar/internal/config"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured listing sites",
	Long:  "Reads the config and prints every listing site with its status.",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	_, cfg, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	fmt.Fprintln(cmd.OutOrStdout(), renderSources(cfg))
	return nil
}

func renderSources(cfg *config.Config) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%-14s %-10s %-8s %s", "Source", "Status", "Max", "Base URL")))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", 60))
	b.WriteString("\n")

	enabled := 0
	for _, s := range cfg.Search.Sources {
		status := disabledStyle.Render(fmt.Sprintf("%-10s", "disabled"))
		if s.Enabled {
			status = enabledStyle.Render(fmt.Sprintf("%-10s", "enabled"))
			enabled++
		}
		limit := "default"
		if s.MaxResults > 0 {
			limit = fmt.Sprint(s.MaxResults)
		}
		base := s.BaseURL
		if base == "" {
			base = "default"
		}
		fmt.Fprintf(&b, "%-14s %s %-8s %s\n", s.Name.DisplayName(), status, limit, base)
	}

	fmt.Fprintf(&b, "\nTotal: %d sources (%d enabled, %d disabled)\n", len(cfg.Search.Sources), enabled, len(cfg.Search.Sources)-enabled)
	fmt.Fprintf(&b, "Location: %s, keywords: %s", cfg.Search.Location, strings.Join(cfg.Search.Keywords, ", "))
	return b.String()
}
