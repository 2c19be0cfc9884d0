package config

import (
	"fmt"
	"strings"
)

// ValidationError holds all configuration failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: %s", strings.Join(e.Errors, "; "))
}

func (c *Config) validate() error {
	var errs []string
	switch c.Mode {
	case ModeHTTP, ModeStdio:
	default:
		errs = append(errs, fmt.Sprintf("invalid mode %q (must be http or stdio)", c.Mode))
	}
	switch c.Metrics {
	case "prometheus", "stdout", "none":
	default:
		errs = append(errs, fmt.Sprintf("invalid metrics exporter %q (must be prometheus, stdout or none)", c.Metrics))
	}
	if c.Mode == ModeHTTP && c.HTTPAddr == "" {
		errs = append(errs, "http address is required in http mode")
	}
	if c.DBDSN == "" {
		errs = append(errs, "database path is required")
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// RequireCredentials reports the account credentials that are missing.
// Call it after any keyring fallback has filled in the password.
func (c *Config) RequireCredentials() error {
	var missing []string
	if c.Email == "" {
		missing = append(missing, EnvEmail)
	}
	if c.Password == "" {
		missing = append(missing, EnvPassword)
	}
	if len(missing) > 0 {
		return &ValidationError{Errors: []string{
			"Missing required environment variables: " + strings.Join(missing, ", "),
		}}
	}
	return nil
}
