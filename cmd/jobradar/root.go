package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobradar/internal/config"
)

var (
	cfgPath string
	debug   bool
	logFile string
)

var rootCmd = &cobra.Command{
	Use:   "jobradar",
	Short: "Entry-level job radar for Indian listing sites",
	Long:  "jobradar searches LinkedIn, Internshala, Naukri and Indeed for entry-level roles and emails you the ones you have not seen.",
	// Default to `start` so that `jobradar` with no args runs the daemon.
	RunE:         runStart,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBRADAR_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also append logs to this file")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBRADAR_CONFIG env var > "./config.yaml".
// Only the implicit ./config.yaml may be absent, in which case defaults and
// environment variables are used.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if env := os.Getenv("JOBRADAR_CONFIG"); env != "" {
		return config.Load(env)
	}
	return config.LoadOrDefault("config.yaml")
}

// setupLogger returns a text logger on stdout, teed into logPath when set.
// The returned func closes the log file.
func setupLogger(dbg bool, logPath string) (*slog.Logger, func(), error) {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}

	var out io.Writer = os.Stdout
	closeFn := func() {}
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
		closeFn = func() { _ = f.Close() }
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: logLevel})), closeFn, nil
}

// setup loads logger and config for a subcommand.
func setup() (*slog.Logger, *config.Config, func(), error) {
	logger, closeLog, err := setupLogger(debug, logFile)
	if err != nil {
		return nil, nil, nil, err
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		closeLog()
		return nil, nil, nil, err
	}
	return logger, cfg, closeLog, nil
}
