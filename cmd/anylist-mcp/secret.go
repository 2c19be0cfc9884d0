package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/revittco/anylist-mcp/internal/config"
	"github.com/revittco/anylist-mcp/internal/secrets"
)

// newSecretCmd manages the account password in the OS keyring, so it does
// not have to live in the environment.
func newSecretCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage the AnyList password in the system keyring",
	}
	cmd.PersistentFlags().StringVar(&email, "email", "", "account email (default $ANYLIST_EMAIL)")

	set := &cobra.Command{
		Use:   "set",
		Short: "Store the password, read from the first line of stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			account, err := secretEmail(email)
			if err != nil {
				return err
			}
			sc := bufio.NewScanner(cmd.InOrStdin())
			if !sc.Scan() {
				if err := sc.Err(); err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				return errors.New("no password on stdin")
			}
			password := strings.TrimRight(sc.Text(), "\r")
			if password == "" {
				return errors.New("password must not be empty")
			}
			if err := secrets.SetKeyringPassword(account, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password stored for %s\n", account)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			account, err := secretEmail(email)
			if err != nil {
				return err
			}
			if err := secrets.DeleteKeyringPassword(account); err != nil {
				if errors.Is(err, secrets.ErrNoPassword) {
					return fmt.Errorf("no password stored for %s", account)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password deleted for %s\n", account)
			return nil
		},
	}

	cmd.AddCommand(set, del)
	return cmd
}

func secretEmail(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if v := os.Getenv(config.EnvEmail); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("--email or %s is required", config.EnvEmail)
}
