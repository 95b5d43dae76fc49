package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/amishk599/jobradar/internal/config"
)

// KeyringService groups jobradar's secrets in the OS keychain.
const KeyringService = "jobradar"

// ErrPasswordNotFound is returned when neither config nor keychain holds an SMTP password.
var ErrPasswordNotFound = errors.New("SMTP password not found (set it in the keychain or via SENDER_PASSWORD)")

// SMTPKeyringAccount returns the keychain account for the configured relay
// login. An explicit keyring_account wins.
func SMTPKeyringAccount(smtp config.SMTPConfig) string {
	if strings.TrimSpace(smtp.KeyringAccount) != "" {
		return smtp.KeyringAccount
	}
	return fmt.Sprintf("jobradar:smtp:%s@%s", smtp.Username, smtp.Host)
}

// SMTPPassword resolves the relay password. A password from config or the
// environment takes precedence over the keychain.
func SMTPPassword(smtp config.SMTPConfig) (string, error) {
	if smtp.Password != "" {
		return smtp.Password, nil
	}
	pw, err := keyring.Get(KeyringService, SMTPKeyringAccount(smtp))
	if err == nil && strings.TrimSpace(pw) != "" {
		return pw, nil
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("read keychain: %w", err)
	}
	return "", ErrPasswordNotFound
}

func SetSMTPPassword(account, password string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, account, password)
}

func DeleteSMTPPassword(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}
