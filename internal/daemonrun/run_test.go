package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"automerge/internal/daemonctl"
	"automerge/internal/logging"
	"automerge/internal/testsupport"
)

func TestRunServesUntilCanceled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg, Options{LogLevel: "debug", Ready: func(addr string) { ready <- addr }})
	}()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not become ready")
	}

	status, err := daemonctl.NewClient(addr, "").Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.Backend != "sqlite" {
		t.Fatalf("unexpected status: %+v", status)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.StateDir, "automerge.pid")); err != nil {
		t.Fatalf("expected pid file: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}

	if _, err := os.Stat(filepath.Join(cfg.Paths.StateDir, "automerge.pid")); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed, got %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(cfg.Paths.LogDir, logging.RunLogPattern))
	if len(matches) != 1 || !strings.Contains(filepath.Base(matches[0]), "-daemon-") {
		t.Fatalf("expected one daemon run log, got %v", matches)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}
