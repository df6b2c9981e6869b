package daemon

import (
	"context"
	"log/slog"
	"testing"

	"clipsight/internal/logging"
	"clipsight/internal/queue"
	"clipsight/internal/testsupport"
)

func discardLogger() *slog.Logger {
	return logging.NewNop()
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	first, err := New(cfg, queue.NewQueue(queue.Config{}, stubPipeline{}, nil), nil, discardLogger())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	t.Cleanup(func() { _ = first.Close() })

	second, err := New(cfg, queue.NewQueue(queue.Config{}, stubPipeline{}, nil), nil, discardLogger())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to fail acquiring the lock")
	}
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	d, err := New(cfg, queue.NewQueue(queue.Config{}, stubPipeline{}, nil), nil, discardLogger())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected error starting an already-running daemon")
	}
	d.Stop()
	// Stop twice must be safe.
	d.Stop()
}
