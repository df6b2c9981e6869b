package toolrun

import (
	"context"
	"errors"
	"strings"
	"testing"

	"clipsight/internal/services"
)

func TestRunCapturesOutput(t *testing.T) {
	runner := NewRunner()
	var lines []string
	inv, err := runner.Run(context.Background(), Spec{
		Binary:   "sh",
		Args:     []string{"-c", "echo one; echo two"},
		OnOutput: func(line string) { lines = append(lines, line) },
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if inv.Lines != 2 {
		t.Fatalf("expected 2 lines, got %d", inv.Lines)
	}
	if inv.Bytes == 0 {
		t.Fatal("expected nonzero byte count")
	}
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Fatalf("unexpected callback lines: %v", lines)
	}
	if !strings.Contains(inv.OutputTail, "two") {
		t.Fatalf("expected tail to contain output, got %q", inv.OutputTail)
	}
}

func TestRunNonZeroExitTagged(t *testing.T) {
	runner := NewRunner()
	inv, err := runner.Run(context.Background(), Spec{
		Binary: "sh",
		Args:   []string{"-c", "echo diagnostic detail >&2; exit 3"},
	})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "diagnostic detail") {
		t.Fatalf("expected last output line in error, got %v", err)
	}
	if !strings.Contains(inv.OutputTail, "diagnostic detail") {
		t.Fatalf("expected stderr captured in tail, got %q", inv.OutputTail)
	}
}

func TestRunMissingBinary(t *testing.T) {
	runner := NewRunner()
	if _, err := runner.Run(context.Background(), Spec{Binary: "clipsight-no-such-binary"}); err == nil {
		t.Fatal("expected error for missing binary")
	}
	if _, err := runner.Run(context.Background(), Spec{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for empty binary, got %v", err)
	}
}

func TestRunHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := NewRunner()
	_, err := runner.Run(ctx, Spec{Binary: "sh", Args: []string{"-c", "sleep 10"}})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if !errors.Is(err, context.Canceled) && !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected cancellation to surface, got %v", err)
	}
}

func TestTailBounded(t *testing.T) {
	runner := NewRunner()
	inv, err := runner.Run(context.Background(), Spec{
		Binary: "sh",
		Args:   []string{"-c", "i=0; while [ $i -lt 200 ]; do echo line-$i; i=$((i+1)); done"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if inv.Lines != 200 {
		t.Fatalf("expected 200 lines counted, got %d", inv.Lines)
	}
	got := strings.Count(inv.OutputTail, "\n") + 1
	if got > tailLimit {
		t.Fatalf("expected tail bounded to %d lines, got %d", tailLimit, got)
	}
	if !strings.Contains(inv.OutputTail, "line-199") {
		t.Fatal("expected tail to keep most recent lines")
	}
}
