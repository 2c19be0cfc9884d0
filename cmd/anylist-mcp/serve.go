package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/revittco/anylist-mcp/internal/anylist"
	"github.com/revittco/anylist-mcp/internal/api"
	"github.com/revittco/anylist-mcp/internal/audit"
	"github.com/revittco/anylist-mcp/internal/cache"
	"github.com/revittco/anylist-mcp/internal/config"
	"github.com/revittco/anylist-mcp/internal/gateway"
	"github.com/revittco/anylist-mcp/internal/observe"
	"github.com/revittco/anylist-mcp/internal/secrets"
	"github.com/revittco/anylist-mcp/internal/store/sqlite"
	"github.com/revittco/anylist-mcp/internal/tools"
)

const shutdownTimeout = 10 * time.Second

// serveOptions are command-line overrides applied after config.Load.
type serveOptions struct {
	mode string
	addr string
}

func (o *serveOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.mode, "mode", "", "transport: http or stdio (overrides ANYLIST_MCP_MODE)")
	cmd.Flags().StringVar(&o.addr, "addr", "", "HTTP listen address (overrides ANYLIST_MCP_HTTP_ADDR)")
}

func (o *serveOptions) apply(cfg *config.Config) {
	if o.mode != "" {
		cfg.Mode = o.mode
	}
	if o.addr != "" {
		cfg.HTTPAddr = o.addr
	}
}

func loadServeConfig(opts *serveOptions) (*config.Config, error) {
	cfg, err := config.Load(os.LookupEnv)
	if err != nil {
		return nil, err
	}
	opts.apply(cfg)
	if cfg.Mode != config.ModeHTTP && cfg.Mode != config.ModeStdio {
		return nil, fmt.Errorf("invalid mode %q (must be http or stdio)", cfg.Mode)
	}

	if cfg.Password == "" && cfg.Email != "" {
		pw, err := secrets.KeyringPassword(cfg.Email)
		switch {
		case err == nil:
			cfg.Password = pw
		case !errors.Is(err, secrets.ErrNoPassword):
			slog.Warn("keyring lookup failed", "error", err)
		}
	}
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, opts *serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadServeConfig(opts)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)
	if cfg.ConfigFile != "" {
		logger.Info("loaded config", "file", cfg.ConfigFile)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBDSN), 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := sqlite.New(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	provider, err := observe.NewProvider(cfg.Metrics, os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		if err := provider.Shutdown(sctx); err != nil {
			slog.Warn("metrics shutdown failed", "error", err)
		}
	}()

	sessionOpts := []anylist.SessionOption{anylist.WithUserID(cfg.UserID)}
	if cfg.CredentialsFile != "" {
		creds, err := secrets.NewCredentialsFile(cfg.CredentialsFile, cfg.Password)
		if err != nil {
			return err
		}
		sessionOpts = append(sessionOpts, anylist.WithTokenStore(creds))
	}
	session := anylist.NewSession(db,
		anylist.Credentials{Email: cfg.Email, Password: cfg.Password},
		sessionOpts...)

	sessionCache := cache.NewSessionCache(cfg.CacheTTL)
	client := cache.NewCachingClient(session, sessionCache, provider.Metrics)
	registry := tools.NewRegistry(client)

	auditBus := audit.NewBus()
	auditor := audit.NewLogger(db, auditBus, cfg.RedactKeys...)
	gw := gateway.NewServer(registry,
		gateway.WithAuditor(auditor),
		gateway.WithMetrics(provider.Metrics),
		gateway.WithVersion(version),
	)

	logger.Info("starting anylist-mcp",
		"mode", cfg.Mode,
		"cache_ttl_ms", cfg.CacheTTL.Milliseconds(),
		"credentials_file", cfg.CredentialsFile != "",
		"metrics", cfg.Metrics,
	)

	if cfg.Mode == config.ModeStdio {
		return gw.RunStdio(ctx)
	}

	router := api.NewRouter(api.RouterDeps{
		MCP:          gw.HTTPHandler(),
		Cache:        sessionCache,
		Audit:        db,
		AuditBus:     auditBus,
		Metrics:      provider.Handler(),
		AllowedHosts: cfg.AllowedHosts,
		Version:      version,
	})
	return runHTTP(ctx, cfg.HTTPAddr, router)
}

// runHTTP serves until ctx is cancelled, then shuts down gracefully.
func runHTTP(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", addr, "endpoint", "/mcp")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down http server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
