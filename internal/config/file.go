package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML configuration. It holds no secrets:
// the password only comes from the environment or the OS keyring.
type FileConfig struct {
	Email           string   `yaml:"email"`
	UserID          string   `yaml:"user_id"`
	CredentialsFile *string  `yaml:"credentials_file"`
	CacheTTLMs      *float64 `yaml:"cache_ttl_ms"`
	Mode            string   `yaml:"mode"`
	HTTPAddr        string   `yaml:"http_addr"`
	DBDSN           string   `yaml:"db_dsn"`
	LogLevel        string   `yaml:"log_level"`
	Metrics         string   `yaml:"metrics"`
	AllowedHosts    []string `yaml:"allowed_hosts"`
	Audit           struct {
		RedactKeys []string `yaml:"redact_keys"`
	} `yaml:"audit"`
}

// loadFile reads path. A missing file is an error only when required.
func loadFile(path string, required bool) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data. Unknown keys are rejected.
func Parse(data []byte) (*FileConfig, error) {
	var fc FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &fc, nil
}

func (fc *FileConfig) apply(cfg *Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Email, fc.Email)
	set(&cfg.UserID, fc.UserID)
	if fc.CredentialsFile != nil {
		cfg.CredentialsFile = ResolveCredentialsFile(*fc.CredentialsFile)
	}
	if fc.CacheTTLMs != nil {
		cfg.CacheTTL = ParseCacheTTL(fmt.Sprint(*fc.CacheTTLMs))
	}
	set(&cfg.Mode, fc.Mode)
	set(&cfg.HTTPAddr, fc.HTTPAddr)
	set(&cfg.DBDSN, fc.DBDSN)
	if fc.LogLevel != "" {
		cfg.LogLevel = ParseLogLevel(fc.LogLevel)
	}
	set(&cfg.Metrics, fc.Metrics)
	if len(fc.AllowedHosts) > 0 {
		cfg.AllowedHosts = fc.AllowedHosts
	}
	cfg.RedactKeys = fc.Audit.RedactKeys
}
