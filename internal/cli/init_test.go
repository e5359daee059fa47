package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"financas/internal/config"
	"financas/internal/core"
)

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&config.Config{LogLevel: "warn", LogFormat: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("expected JSON warn record, got: %s", out)
	}
}

func TestOpenStores_Memory(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	cfg := &config.Config{DataBackend: config.BackendMemory, LogLevel: "error", LogFormat: "text"}

	stores, err := OpenStores(ctx, cfg, SetupLogger(cfg, &buf))
	if err != nil {
		t.Fatalf("OpenStores() error = %v", err)
	}
	defer stores.Cleanup()

	if _, err := stores.Sessions.Register(ctx, "Ana", "ana@x.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	if _, err := stores.Ledger.Balance(ctx); err != core.ErrNoSession {
		t.Fatalf("expected no session before login, got %v", err)
	}
	if _, err := stores.Sessions.Login(ctx, "ana@x.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	cats, err := stores.Ledger.Categories(ctx)
	if err != nil || len(cats) != 9 {
		t.Fatalf("expected seeded categories, got %d (err %v)", len(cats), err)
	}
}

func TestOpenStores_InvalidBackend(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{DataBackend: "sheets"}
	if _, err := OpenStores(context.Background(), cfg, SetupLogger(cfg, &buf)); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
