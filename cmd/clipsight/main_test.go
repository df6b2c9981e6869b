package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipsight/internal/api"
	"clipsight/internal/queue"
)

func writeTestConfig(t *testing.T, apiBind string) string {
	t.Helper()
	base := t.TempDir()
	content := strings.Join([]string{
		"[paths]",
		`staging_dir = "` + filepath.Join(base, "staging") + `"`,
		`log_dir = "` + filepath.Join(base, "logs") + `"`,
		`cache_dir = "` + filepath.Join(base, "cache") + `"`,
		`api_bind = "` + apiBind + `"`,
		"",
	}, "\n")
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args []string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

// handleMethod registers pattern on mux and dispatches to fn only for the
// given HTTP method, mirroring Go 1.22+ "METHOD /path" ServeMux patterns on
// toolchains that predate them.
func handleMethod(mux *http.ServeMux, method, pattern string, fn http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		fn(w, r)
	})
}

func newFakeDaemon(t *testing.T, handler http.Handler) (*httptest.Server, string) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfgPath := writeTestConfig(t, server.URL)
	return server, cfgPath
}

func TestSubmitCommand(t *testing.T) {
	mux := http.NewServeMux()
	handleMethod(mux, "POST", "/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		var req api.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode submit request: %v", err)
		}
		if req.URL != "https://example.com/watch?v=abc" {
			t.Errorf("unexpected URL %q", req.URL)
		}
		if !req.Options.IncludeTranscript {
			t.Error("expected include_transcript to be set")
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(api.SubmitResponse{JobID: "job-1", Status: "waiting", EstimatedPosition: 2})
	})
	_, cfgPath := newFakeDaemon(t, mux)

	out, err := runCLI(t, []string{"--config", cfgPath, "submit", "https://example.com/watch?v=abc", "--transcript"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	requireContains(t, out, "Accepted job job-1")
	requireContains(t, out, "Queue position: 2")
}

func TestStatusCommand(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	handleMethod(mux, "GET", "/api/jobs/job-7", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.JobResponse{Job: queue.Snapshot{
			ID:          "job-7",
			URL:         "https://example.com/v",
			Status:      queue.StatusFailed,
			Progress:    40,
			Attempts:    3,
			MaxAttempts: 3,
			CreatedAt:   created,
			LastError:   "media download failed",
		}})
	})
	_, cfgPath := newFakeDaemon(t, mux)

	out, err := runCLI(t, []string{"--config", cfgPath, "status", "job-7"})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Job job-7")
	requireContains(t, out, "failed")
	requireContains(t, out, "media download failed")
	requireContains(t, out, "3/3")
}

func TestStatusCommandJSON(t *testing.T) {
	mux := http.NewServeMux()
	handleMethod(mux, "GET", "/api/jobs/job-9", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.JobResponse{Job: queue.Snapshot{ID: "job-9", Status: queue.StatusWaiting}})
	})
	_, cfgPath := newFakeDaemon(t, mux)

	out, err := runCLI(t, []string{"--config", cfgPath, "--json", "status", "job-9"})
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var resp api.JobResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("expected JSON output, got:\n%s", out)
	}
	if resp.Job.ID != "job-9" {
		t.Fatalf("unexpected job ID %q", resp.Job.ID)
	}
}

func TestStatusCommandNotFound(t *testing.T) {
	mux := http.NewServeMux()
	handleMethod(mux, "GET", "/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "job not found"})
	})
	_, cfgPath := newFakeDaemon(t, mux)

	_, err := runCLI(t, []string{"--config", cfgPath, "status", "missing"})
	if err == nil {
		t.Fatal("expected error for missing job")
	}
	if !strings.Contains(err.Error(), "job not found") {
		t.Fatalf("expected daemon error message, got %v", err)
	}
}

func TestQueueListAndStats(t *testing.T) {
	mux := http.NewServeMux()
	handleMethod(mux, "GET", "/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.JobListResponse{Jobs: []queue.Snapshot{
			{ID: "job-a", URL: "https://example.com/a", Status: queue.StatusActive, Progress: 55, Attempts: 1, MaxAttempts: 3, CreatedAt: time.Now()},
			{ID: "job-b", URL: "https://example.com/b", Status: queue.StatusWaiting, Attempts: 0, MaxAttempts: 3, CreatedAt: time.Now()},
		}})
	})
	handleMethod(mux, "GET", "/api/stats", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.StatsResponse{Stats: queue.Stats{Waiting: 1, Active: 1, Total: 2}})
	})
	_, cfgPath := newFakeDaemon(t, mux)

	out, err := runCLI(t, []string{"--config", cfgPath, "queue", "list"})
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "job-a")
	requireContains(t, out, "active")

	out, err = runCLI(t, []string{"--config", cfgPath, "queue", "list", "--status", "waiting"})
	if err != nil {
		t.Fatalf("queue list --status: %v", err)
	}
	if strings.Contains(out, "job-a") {
		t.Fatalf("expected active job filtered out, got:\n%s", out)
	}
	requireContains(t, out, "job-b")

	out, err = runCLI(t, []string{"--config", cfgPath, "queue", "stats"})
	if err != nil {
		t.Fatalf("queue stats: %v", err)
	}
	requireContains(t, out, "waiting")
	requireContains(t, out, "2")
}

func TestCancelCommand(t *testing.T) {
	mux := http.NewServeMux()
	handleMethod(mux, "POST", "/api/jobs/job-c/cancel", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.CancelResponse{JobID: "job-c", Removed: true, Status: "failed"})
	})
	handleMethod(mux, "POST", "/api/jobs/job-d/cancel", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.CancelResponse{JobID: "job-d", Removed: false, Status: "active"})
	})
	_, cfgPath := newFakeDaemon(t, mux)

	out, err := runCLI(t, []string{"--config", cfgPath, "cancel", "job-c"})
	if err != nil {
		t.Fatalf("cancel waiting: %v", err)
	}
	requireContains(t, out, "removed from the queue")

	out, err = runCLI(t, []string{"--config", cfgPath, "cancel", "job-d"})
	if err != nil {
		t.Fatalf("cancel active: %v", err)
	}
	requireContains(t, out, "cancellation acknowledged")
}

func TestHealthCommandUnhealthy(t *testing.T) {
	mux := http.NewServeMux()
	handleMethod(mux, "GET", "/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(api.HealthResponse{
			Healthy: false,
			Checks: []api.HealthCheck{
				{Name: "yt-dlp", Passed: true, Detail: "/usr/bin/yt-dlp"},
				{Name: "disk space", Passed: false, Detail: "0.2 GiB free"},
			},
		})
	})
	_, cfgPath := newFakeDaemon(t, mux)

	out, err := runCLI(t, []string{"--config", cfgPath, "health"})
	if err == nil {
		t.Fatal("expected non-nil error when a check fails")
	}
	requireContains(t, out, "disk space")
	requireContains(t, out, "ERROR")
}

func TestTokenFlagSetsBearerHeader(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	handleMethod(mux, "GET", "/api/stats", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(api.StatsResponse{})
	})
	_, cfgPath := newFakeDaemon(t, mux)

	if _, err := runCLI(t, []string{"--config", cfgPath, "--token", "sekrit", "queue", "stats"}); err != nil {
		t.Fatalf("queue stats: %v", err)
	}
	if gotAuth != "Bearer sekrit" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
}
