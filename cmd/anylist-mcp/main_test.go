package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/zalando/go-keyring"

	"github.com/revittco/anylist-mcp/internal/config"
	"github.com/revittco/anylist-mcp/internal/secrets"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out, &out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSecretSetAndDelete(t *testing.T) {
	keyring.MockInit()

	out, err := execute(t, "hunter2\n", "secret", "set", "--email", "cook@example.com")
	if err != nil {
		t.Fatalf("secret set: %v", err)
	}
	if !strings.Contains(out, "cook@example.com") {
		t.Fatalf("unexpected output %q", out)
	}
	pw, err := secrets.KeyringPassword("cook@example.com")
	if err != nil || pw != "hunter2" {
		t.Fatalf("KeyringPassword = %q, %v", pw, err)
	}

	if _, err := execute(t, "", "secret", "delete", "--email", "cook@example.com"); err != nil {
		t.Fatalf("secret delete: %v", err)
	}
	if _, err := execute(t, "", "secret", "delete", "--email", "cook@example.com"); err == nil {
		t.Fatal("expected error deleting a missing password")
	}
}

func TestSecretSetRequiresInput(t *testing.T) {
	keyring.MockInit()
	t.Setenv(config.EnvEmail, "")

	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{"no email", "pw\n", []string{"secret", "set"}},
		{"no stdin", "", []string{"secret", "set", "--email", "a@b.c"}},
		{"empty line", "\n", []string{"secret", "set", "--email", "a@b.c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.stdin, tt.args...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadServeConfigKeyringFallback(t *testing.T) {
	keyring.MockInit()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv(config.EnvEmail, "cook@example.com")
	t.Setenv(config.EnvPassword, "")

	if _, err := loadServeConfig(&serveOptions{}); err == nil {
		t.Fatal("expected missing credentials error")
	}

	if err := secrets.SetKeyringPassword("cook@example.com", "from-keyring"); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadServeConfig(&serveOptions{mode: "stdio", addr: ":9999"})
	if err != nil {
		t.Fatalf("loadServeConfig: %v", err)
	}
	if cfg.Password != "from-keyring" {
		t.Fatalf("Password = %q", cfg.Password)
	}
	if cfg.Mode != config.ModeStdio || cfg.HTTPAddr != ":9999" {
		t.Fatalf("flags not applied: mode=%q addr=%q", cfg.Mode, cfg.HTTPAddr)
	}

	if _, err := loadServeConfig(&serveOptions{mode: "grpc"}); err == nil {
		t.Fatal("expected invalid mode error")
	}
}

func TestRunHTTPShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runHTTP(ctx, addr, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runHTTP: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runHTTP did not return after cancel")
	}
}
