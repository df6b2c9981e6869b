package queue

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"clipsight/internal/services"
)

type fakePipeline struct {
	run func(ctx context.Context, job Job, reporter ProgressReporter) (*Result, error)
}

func (f *fakePipeline) Run(ctx context.Context, job Job, reporter ProgressReporter) (*Result, error) {
	if f.run == nil {
		return &Result{}, nil
	}
	return f.run(ctx, job, reporter)
}

func newTestQueue(t *testing.T, cfg Config, pipeline Pipeline, opts ...Option) *Queue {
	t.Helper()
	q := NewQueue(cfg, pipeline, nil, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = q.Stop(stopCtx)
		cancel()
	})
	return q
}

func waitForStatus(t *testing.T, q *Queue, jobID string, want Status) Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := q.Status(context.Background(), jobID)
		if err != nil {
			t.Fatalf("Status returned error: %v", err)
		}
		if snap.Status == want {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap, _ := q.Status(context.Background(), jobID)
	t.Fatalf("job %s never reached %s (last status %s, error %q)", jobID, want, snap.Status, snap.LastError)
	return Snapshot{}
}

func TestSubmitValidation(t *testing.T) {
	q := newTestQueue(t, Config{}, &fakePipeline{})

	cases := []struct {
		name    string
		payload Payload
	}{
		{name: "empty url", payload: Payload{}},
		{name: "bad scheme", payload: Payload{URL: "ftp://example.com/video"}},
		{name: "no host", payload: Payload{URL: "https:///clip"}},
		{name: "bad webhook", payload: Payload{
			URL:     "https://example.com/watch?v=abc",
			Options: Options{WebhookURL: "not a url"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := q.Submit(context.Background(), tc.payload)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestJobCompletes(t *testing.T) {
	pipeline := &fakePipeline{
		run: func(ctx context.Context, job Job, reporter ProgressReporter) (*Result, error) {
			reporter.Report("download", 40, "downloading")
			return &Result{
				Media: MediaInfo{ID: "abc", Title: "test clip", DurationSeconds: 45},
			}, nil
		},
	}
	q := newTestQueue(t, Config{}, pipeline)

	receipt, err := q.Submit(context.Background(), Payload{URL: "https://example.com/watch?v=abc"})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if receipt.Status != StatusWaiting {
		t.Fatalf("expected waiting receipt, got %s", receipt.Status)
	}
	if receipt.EstimatedPosition != 1 {
		t.Fatalf("expected position 1, got %d", receipt.EstimatedPosition)
	}

	snap := waitForStatus(t, q, receipt.JobID, StatusCompleted)
	if snap.Progress != 100 {
		t.Fatalf("expected progress 100, got %v", snap.Progress)
	}
	if snap.Result == nil || snap.Result.Media.Title != "test clip" {
		t.Fatalf("unexpected result %+v", snap.Result)
	}
	if snap.CompletedAt == nil {
		t.Fatal("expected CompletedAt to be set")
	}
	if snap.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", snap.Attempts)
	}
}

func TestConcurrencyBound(t *testing.T) {
	var current, peak atomic.Int64
	release := make(chan struct{})
	pipeline := &fakePipeline{
		run: func(ctx context.Context, job Job, reporter ProgressReporter) (*Result, error) {
			now := current.Add(1)
			for {
				max := peak.Load()
				if now <= max || peak.CompareAndSwap(max, now) {
					break
				}
			}
			defer current.Add(-1)
			select {
			case <-release:
				return &Result{}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
	q := newTestQueue(t, Config{ConcurrencyLimit: 2}, pipeline)

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		receipt, err := q.Submit(context.Background(), Payload{URL: "https://example.com/v"})
		if err != nil {
			t.Fatalf("Submit returned error: %v", err)
		}
		ids = append(ids, receipt.JobID)
	}

	deadline := time.Now().Add(5 * time.Second)
	for current.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := current.Load(); got != 2 {
		t.Fatalf("expected 2 active attempts, got %d", got)
	}

	close(release)
	for _, id := range ids {
		waitForStatus(t, q, id, StatusCompleted)
	}
	if got := peak.Load(); got > 2 {
		t.Fatalf("concurrency bound exceeded: peak %d", got)
	}
}

func TestRetryableFailureExhaustsAttempts(t *testing.T) {
	var calls atomic.Int64
	pipeline := &fakePipeline{
		run: func(ctx context.Context, job Job, reporter ProgressReporter) (*Result, error) {
			calls.Add(1)
			return nil, services.Wrap(services.ErrExternalTool, "ytdlp", "download", "exit status 1", nil)
		},
	}
	q := newTestQueue(t, Config{MaxAttempts: 3}, pipeline)

	receipt, err := q.Submit(context.Background(), Payload{URL: "https://example.com/v"})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	snap := waitForStatus(t, q, receipt.JobID, StatusFailed)
	if snap.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", snap.Attempts)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected pipeline to run 3 times, got %d", got)
	}
	if !strings.Contains(snap.LastError, "exit status 1") {
		t.Fatalf("unexpected last error %q", snap.LastError)
	}
	if snap.FailedAt == nil {
		t.Fatal("expected FailedAt to be set")
	}
}

func TestValidationFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int64
	pipeline := &fakePipeline{
		run: func(ctx context.Context, job Job, reporter ProgressReporter) (*Result, error) {
			calls.Add(1)
			return nil, services.Wrap(services.ErrValidation, "pipeline", "metadata", "video exceeds maximum duration", nil)
		},
	}
	q := newTestQueue(t, Config{MaxAttempts: 3}, pipeline)

	receipt, err := q.Submit(context.Background(), Payload{URL: "https://example.com/v"})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	snap := waitForStatus(t, q, receipt.JobID, StatusFailed)
	if snap.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", snap.Attempts)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected pipeline to run once, got %d", got)
	}
}

func TestCancelWaitingJob(t *testing.T) {
	release := make(chan struct{})
	pipeline := &fakePipeline{
		run: func(ctx context.Context, job Job, reporter ProgressReporter) (*Result, error) {
			select {
			case <-release:
				return &Result{}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
	q := newTestQueue(t, Config{ConcurrencyLimit: 1}, pipeline)

	first, err := q.Submit(context.Background(), Payload{URL: "https://example.com/a"})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	waitForStatus(t, q, first.JobID, StatusActive)

	second, err := q.Submit(context.Background(), Payload{URL: "https://example.com/b"})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	removed, err := q.Cancel(context.Background(), second.JobID, "no longer needed")
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if !removed {
		t.Fatal("expected waiting job to be removed")
	}
	snap, err := q.Status(context.Background(), second.JobID)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if snap.Status != StatusFailed || snap.LastError != "no longer needed" {
		t.Fatalf("unexpected canceled snapshot %+v", snap)
	}

	// Active jobs only acknowledge.
	removed, err = q.Cancel(context.Background(), first.JobID, "")
	if err != nil {
		t.Fatalf("Cancel of active job returned error: %v", err)
	}
	if removed {
		t.Fatal("active job should not be removed")
	}

	if _, err := q.Cancel(context.Background(), "missing", ""); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}

	close(release)
	waitForStatus(t, q, first.JobID, StatusCompleted)
}

func TestProgressNeverDecreases(t *testing.T) {
	reported := make(chan struct{})
	release := make(chan struct{})
	pipeline := &fakePipeline{
		run: func(ctx context.Context, job Job, reporter ProgressReporter) (*Result, error) {
			reporter.Report("download", 30, "downloading")
			reporter.Report("download", 10, "stale update")
			close(reported)
			select {
			case <-release:
				return &Result{}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
	q := newTestQueue(t, Config{}, pipeline)

	receipt, err := q.Submit(context.Background(), Payload{URL: "https://example.com/v"})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	<-reported

	snap, err := q.Status(context.Background(), receipt.JobID)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if snap.Progress != 30 {
		t.Fatalf("expected progress to hold at 30, got %v", snap.Progress)
	}

	close(release)
	snap = waitForStatus(t, q, receipt.JobID, StatusCompleted)
	if snap.Progress != 100 {
		t.Fatalf("expected final progress 100, got %v", snap.Progress)
	}
}

func TestStatsCountEvictedJobs(t *testing.T) {
	pipeline := &fakePipeline{}
	q := newTestQueue(t, Config{ConcurrencyLimit: 1, HistoryLimit: 1}, pipeline)

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		receipt, err := q.Submit(context.Background(), Payload{URL: "https://example.com/v"})
		if err != nil {
			t.Fatalf("Submit returned error: %v", err)
		}
		ids = append(ids, receipt.JobID)
		waitForStatus(t, q, receipt.JobID, StatusCompleted)
	}

	stats, err := q.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Completed != 3 || stats.Total != 3 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	snaps, err := q.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("expected 1 live job after eviction, got %d", len(snaps))
	}
	if snaps[0].ID != ids[2] {
		t.Fatalf("expected newest job retained, got %s", snaps[0].ID)
	}
}

func TestArchiverReceivesTerminalJobs(t *testing.T) {
	archived := make(chan Snapshot, 1)
	q := newTestQueue(t, Config{}, &fakePipeline{}, WithArchiver(archiverFunc(func(ctx context.Context, snap Snapshot) error {
		archived <- snap
		return nil
	})))

	receipt, err := q.Submit(context.Background(), Payload{URL: "https://example.com/v"})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	waitForStatus(t, q, receipt.JobID, StatusCompleted)

	select {
	case snap := <-archived:
		if snap.ID != receipt.JobID || snap.Status != StatusCompleted {
			t.Fatalf("unexpected archived snapshot %+v", snap)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("archiver was never called")
	}
}

func TestStopFailsJobParkedInRetryDelay(t *testing.T) {
	var attempts atomic.Int32
	pipeline := &fakePipeline{
		run: func(ctx context.Context, job Job, reporter ProgressReporter) (*Result, error) {
			attempts.Add(1)
			return nil, services.Wrap(services.ErrExternalTool, "download", "run", "tool exited", nil)
		},
	}
	archived := make(chan Snapshot, 4)
	q := newTestQueue(t, Config{ConcurrencyLimit: 1, MaxAttempts: 3, RetryDelay: time.Hour}, pipeline,
		WithArchiver(archiverFunc(func(ctx context.Context, snap Snapshot) error {
			archived <- snap
			return nil
		})))

	receipt, err := q.Submit(context.Background(), Payload{URL: "https://example.com/v"})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	// Wait for the first attempt to fail and the job to park in its delay.
	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err := q.Status(context.Background(), receipt.JobID)
		if err != nil {
			t.Fatalf("Status returned error: %v", err)
		}
		if attempts.Load() == 1 && snap.Status == StatusWaiting {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never parked in retry delay (status %s)", snap.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Stop(stopCtx); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}

	select {
	case snap := <-archived:
		if snap.ID != receipt.JobID || snap.Status != StatusFailed || snap.LastError != ShutdownErrorMessage {
			t.Fatalf("unexpected shutdown snapshot %+v", snap)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("delayed-retry job was never failed during shutdown")
	}
}

type archiverFunc func(ctx context.Context, snapshot Snapshot) error

func (f archiverFunc) ArchiveJob(ctx context.Context, snapshot Snapshot) error {
	return f(ctx, snapshot)
}

func TestStopFailsWaitingJobs(t *testing.T) {
	release := make(chan struct{})
	pipeline := &fakePipeline{
		run: func(ctx context.Context, job Job, reporter ProgressReporter) (*Result, error) {
			select {
			case <-release:
				return &Result{}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
	archived := make(chan Snapshot, 4)
	q := NewQueue(Config{ConcurrencyLimit: 1}, pipeline, nil, WithArchiver(archiverFunc(func(ctx context.Context, snap Snapshot) error {
		archived <- snap
		return nil
	})))
	q.Start(context.Background())

	active, err := q.Submit(context.Background(), Payload{URL: "https://example.com/a"})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	waitForStatus(t, q, active.JobID, StatusActive)
	queued, err := q.Submit(context.Background(), Payload{URL: "https://example.com/b"})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	stopped := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stopped <- q.Stop(ctx)
	}()

	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("Stop returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop never returned")
	}

	if _, err := q.Submit(context.Background(), Payload{URL: "https://example.com/c"}); err == nil {
		t.Fatal("expected submit after stop to fail")
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap := <-archived:
			if snap.ID != queued.JobID {
				continue
			}
			if snap.Status != StatusFailed || snap.LastError != ShutdownErrorMessage {
				t.Fatalf("unexpected shutdown snapshot %+v", snap)
			}
			close(release)
			return
		case <-deadline:
			t.Fatal("waiting job was never failed during shutdown")
		}
	}
}
