// Package secrets stores the upstream session token in an age-encrypted
// credentials file and looks up the account password in the OS keyring.
package secrets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/revittco/anylist-mcp/internal/anylist"
)

var _ anylist.TokenStore = (*CredentialsFile)(nil)

// CredentialsFile is an anylist.TokenStore backed by a passphrase-encrypted
// (age scrypt, ASCII armored) file.
type CredentialsFile struct {
	path       string
	passphrase string
	workFactor int
}

// CredentialsOption configures a CredentialsFile.
type CredentialsOption func(*CredentialsFile)

// WithWorkFactor sets the scrypt work factor (log2 N) used when writing.
// Lower values are only suitable for tests.
func WithWorkFactor(logN int) CredentialsOption {
	return func(c *CredentialsFile) { c.workFactor = logN }
}

// NewCredentialsFile returns a store for path encrypted with passphrase.
func NewCredentialsFile(path, passphrase string, opts ...CredentialsOption) (*CredentialsFile, error) {
	if path == "" {
		return nil, errors.New("credentials file path is empty")
	}
	if passphrase == "" {
		return nil, errors.New("credentials passphrase is empty")
	}
	c := &CredentialsFile{path: path, passphrase: passphrase}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Path returns the file location.
func (c *CredentialsFile) Path() string { return c.path }

// Load returns the stored token, or "" when the file does not exist yet.
func (c *CredentialsFile) Load() (string, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read credentials: %w", err)
	}

	id, err := age.NewScryptIdentity(c.passphrase)
	if err != nil {
		return "", fmt.Errorf("create identity: %w", err)
	}
	r, err := age.Decrypt(armor.NewReader(bytes.NewReader(data)), id)
	if err != nil {
		return "", fmt.Errorf("decrypt credentials: %w", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read decrypted credentials: %w", err)
	}
	return strings.TrimSpace(string(plain)), nil
}

// Save encrypts token and atomically replaces the file. The parent
// directory is created when missing.
func (c *CredentialsFile) Save(token string) error {
	rcpt, err := age.NewScryptRecipient(c.passphrase)
	if err != nil {
		return fmt.Errorf("create recipient: %w", err)
	}
	if c.workFactor > 0 {
		rcpt.SetWorkFactor(c.workFactor)
	}

	var buf bytes.Buffer
	aw := armor.NewWriter(&buf)
	w, err := age.Encrypt(aw, rcpt)
	if err != nil {
		return fmt.Errorf("encrypt credentials: %w", err)
	}
	if _, err := io.WriteString(w, token); err != nil {
		return fmt.Errorf("encrypt credentials: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish encryption: %w", err)
	}
	if err := aw.Close(); err != nil {
		return fmt.Errorf("finish armor: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credentials: %w", err)
	}
	return os.Rename(tmp.Name(), c.path)
}
