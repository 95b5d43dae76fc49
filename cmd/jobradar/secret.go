package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobradar/internal/secrets"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage the SMTP password in the OS keychain",
}

var secretSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the SMTP password (read from stdin)",
	RunE:  runSecretSet,
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored SMTP password",
	RunE:  runSecretDelete,
}

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.AddCommand(secretSetCmd, secretDeleteCmd)
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	logger, cfg, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	account := secrets.SMTPKeyringAccount(cfg.Notification.SMTP)
	fmt.Fprintf(cmd.ErrOrStderr(), "SMTP password for %s: ", account)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read password: %w", err)
	}

	if err := secrets.SetSMTPPassword(account, strings.TrimRight(line, "\r\n")); err != nil {
		logger.Error("failed to store password", "account", account, "error", err)
		return err
	}
	logger.Info("password stored in keychain", "service", secrets.KeyringService, "account", account)
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	logger, cfg, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	account := secrets.SMTPKeyringAccount(cfg.Notification.SMTP)
	if err := secrets.DeleteSMTPPassword(account); err != nil {
		logger.Error("failed to delete password", "account", account, "error", err)
		return err
	}
	logger.Info("password removed from keychain", "account", account)
	return nil
}
