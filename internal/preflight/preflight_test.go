package preflight

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "OptionalMissing", Command: "also-not-present", Optional: true},
		{Name: "Unconfigured", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Passed {
		t.Fatalf("expected present binary to pass, got %+v", results[0])
	}
	if results[1].Passed || results[1].Detail == "" {
		t.Fatalf("expected missing binary to fail with detail, got %+v", results[1])
	}
	if !results[2].Passed {
		t.Fatalf("optional missing binary must still pass, got %+v", results[2])
	}
	if results[3].Passed || results[3].Detail != "command not configured" {
		t.Fatalf("unexpected unconfigured result %+v", results[3])
	}
}

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if result := CheckDirectoryAccess("Staging directory", dir); !result.Passed {
		t.Fatalf("expected writable temp dir to pass, got %+v", result)
	}
	if result := CheckDirectoryAccess("Staging directory", filepath.Join(dir, "missing")); result.Passed {
		t.Fatalf("expected missing dir to fail, got %+v", result)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if result := CheckDirectoryAccess("Staging directory", file); result.Passed {
		t.Fatalf("expected non-directory to fail, got %+v", result)
	}
}

func TestCheckDiskSpace(t *testing.T) {
	result := CheckDiskSpace("Staging free space", t.TempDir())
	if result.Detail == "" {
		t.Fatalf("expected detail with free space, got %+v", result)
	}
}

func TestHealthy(t *testing.T) {
	passing := []Result{{Name: "a", Passed: true}, {Name: "b", Passed: true}}
	if !Healthy(passing) {
		t.Fatal("expected all-passing results to be healthy")
	}
	failing := append(passing, Result{Name: "c"})
	if Healthy(failing) {
		t.Fatal("expected failing result to make report unhealthy")
	}
}
