// Package config loads server configuration from the environment and an
// optional YAML file. Environment variables win over the file.
package config

import (
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Environment keys.
const (
	EnvEmail           = "ANYLIST_EMAIL"
	EnvPassword        = "ANYLIST_PASSWORD"
	EnvUserID          = "ANYLIST_USER_ID"
	EnvCredentialsFile = "ANYLIST_CREDENTIALS_FILE"
	EnvCacheTTL        = "ANYLIST_CACHE_TTL_MS"
	EnvMode            = "ANYLIST_MCP_MODE"
	EnvHTTPAddr        = "ANYLIST_MCP_HTTP_ADDR"
	EnvDBDSN           = "ANYLIST_MCP_DB_DSN"
	EnvLogLevel        = "ANYLIST_MCP_LOG_LEVEL"
	EnvMetrics         = "ANYLIST_MCP_METRICS"
	EnvAllowedHosts    = "ANYLIST_MCP_ALLOWED_HOSTS"
	EnvConfigFile      = "ANYLIST_MCP_CONFIG"
)

// DefaultCacheTTL applies when the TTL is unset or unusable.
const DefaultCacheTTL = 30 * time.Second

const defaultPort = "3333"

// Server modes.
const (
	ModeHTTP  = "http"
	ModeStdio = "stdio"
)

// DefaultAllowedHosts are the Host header values the HTTP transport
// accepts when none are configured.
var DefaultAllowedHosts = []string{"anylist-mcp", "localhost", "127.0.0.1"}

// Config holds the server configuration.
type Config struct {
	Email    string
	Password string
	UserID   string // identity override

	// CredentialsFile is where the session token is persisted. Empty means
	// persistence is disabled.
	CredentialsFile string
	CacheTTL        time.Duration

	Mode         string
	HTTPAddr     string
	DBDSN        string
	LogLevel     slog.Level
	Metrics      string
	AllowedHosts []string
	RedactKeys   []string

	// ConfigFile is the YAML file that was applied, if any.
	ConfigFile string
}

// LookupFunc reads one environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Load builds a Config from defaults, then the YAML file (when present),
// then the environment.
func Load(lookup LookupFunc) (*Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := func(key string) string {
		v, _ := lookup(key)
		return v
	}

	cfg := &Config{
		CredentialsFile: defaultDataPath("credentials.age"),
		CacheTTL:        DefaultCacheTTL,
		Mode:            ModeHTTP,
		HTTPAddr:        ":" + firstNonEmpty(env("MCP_PORT"), env("PORT"), defaultPort),
		DBDSN:           defaultDataPath("anylist.db"),
		LogLevel:        slog.LevelInfo,
		Metrics:         "prometheus",
		AllowedHosts:    DefaultAllowedHosts,
	}

	path, explicit := lookup(EnvConfigFile)
	if !explicit || path == "" {
		path = defaultDataPath("config.yaml")
	}
	fc, err := loadFile(path, explicit && path != "")
	if err != nil {
		return nil, err
	}
	if fc != nil {
		fc.apply(cfg)
		cfg.ConfigFile = path
	}

	cfg.Email = envOr(lookup, EnvEmail, cfg.Email)
	cfg.Password = envOr(lookup, EnvPassword, cfg.Password)
	cfg.UserID = envOr(lookup, EnvUserID, cfg.UserID)
	if raw, ok := lookup(EnvCredentialsFile); ok {
		cfg.CredentialsFile = ResolveCredentialsFile(raw)
	}
	if raw, ok := lookup(EnvCacheTTL); ok {
		cfg.CacheTTL = ParseCacheTTL(raw)
	}
	cfg.Mode = envOr(lookup, EnvMode, cfg.Mode)
	cfg.HTTPAddr = envOr(lookup, EnvHTTPAddr, cfg.HTTPAddr)
	cfg.DBDSN = envOr(lookup, EnvDBDSN, cfg.DBDSN)
	if v := env(EnvLogLevel); v != "" {
		cfg.LogLevel = ParseLogLevel(v)
	}
	cfg.Metrics = envOr(lookup, EnvMetrics, cfg.Metrics)
	if v := env(EnvAllowedHosts); v != "" {
		cfg.AllowedHosts = splitList(v)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolveCredentialsFile interprets a set credentials file value: "",
// "null" and "false" (any case) disable persistence, anything else is the
// path. An unset value keeps the default path.
func ResolveCredentialsFile(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "null", "false":
		return ""
	}
	return raw
}

// maxCacheTTLMillis is the longest TTL a time.Duration can hold.
const maxCacheTTLMillis = float64(math.MaxInt64 / int64(time.Millisecond))

// ParseCacheTTL parses a TTL in milliseconds. Non-numeric, negative or
// unrepresentably large values fall back to DefaultCacheTTL; zero
// disables caching.
func ParseCacheTTL(raw string) time.Duration {
	ms, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(ms) || ms < 0 || ms > maxCacheTTLMillis {
		return DefaultCacheTTL
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// ParseLogLevel maps a level name to a slog.Level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// defaultDataPath returns ~/.anylist-mcp/<filename>, falling back to a
// CWD-relative path if the home directory can't be resolved.
func defaultDataPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filename
	}
	return filepath.Join(home, ".anylist-mcp", filename)
}

func envOr(lookup LookupFunc, key, fallback string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
