package secrets

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringService is the OS keyring service the account password is stored
// under, keyed by email.
const KeyringService = "anylist-mcp"

// ErrNoPassword is returned when the keyring holds no password for the
// account.
var ErrNoPassword = errors.New("no password in keyring")

// KeyringPassword returns the password stored for email.
func KeyringPassword(email string) (string, error) {
	pw, err := keyring.Get(KeyringService, email)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoPassword
	}
	if err != nil {
		return "", fmt.Errorf("keyring get: %w", err)
	}
	return pw, nil
}

// SetKeyringPassword stores password for email, replacing any existing
// entry.
func SetKeyringPassword(email, password string) error {
	if email == "" || password == "" {
		return errors.New("email and password are required")
	}
	if err := keyring.Set(KeyringService, email, password); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

// DeleteKeyringPassword removes the password stored for email.
func DeleteKeyringPassword(email string) error {
	err := keyring.Delete(KeyringService, email)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNoPassword
	}
	if err != nil {
		return fmt.Errorf("keyring delete: %w", err)
	}
	return nil
}
