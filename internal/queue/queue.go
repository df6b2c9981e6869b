package queue

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipsight/internal/logging"
	"clipsight/internal/services"
)

// ProgressReporter receives stage progress from a running pipeline attempt.
type ProgressReporter interface {
	Report(stage string, percent float64, message string)
}

// Pipeline executes one attempt of a job and returns its assembled result.
type Pipeline interface {
	Run(ctx context.Context, job Job, reporter ProgressReporter) (*Result, error)
}

// Archiver records terminal jobs. Archival is best effort; failures are
// logged and never change a job's outcome.
type Archiver interface {
	ArchiveJob(ctx context.Context, snapshot Snapshot) error
}

const (
	defaultConcurrency  = 4
	defaultMaxAttempts  = 3
	defaultHistoryLimit = 500
	archiveTimeout      = 5 * time.Second
)

// Config controls queue behavior.
type Config struct {
	ConcurrencyLimit int
	MaxAttempts      int
	RetryDelay       time.Duration
	HistoryLimit     int
}

func (c Config) withDefaults() Config {
	if c.ConcurrencyLimit <= 0 {
		c.ConcurrencyLimit = defaultConcurrency
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = defaultHistoryLimit
	}
	return c
}

// Option customizes a Queue.
type Option func(*Queue)

// WithArchiver attaches a terminal-job archiver.
func WithArchiver(archiver Archiver) Option {
	return func(q *Queue) {
		q.archiver = archiver
	}
}

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// Queue dispatches submitted jobs to a pipeline with bounded concurrency.
// A single goroutine owns all job state; every operation is delivered to it
// as a closure on the ops channel, so no locking is needed anywhere.
type Queue struct {
	cfg      Config
	pipeline Pipeline
	logger   *slog.Logger
	archiver Archiver
	now      func() time.Time

	ops  chan func()
	quit chan struct{}

	runCtx    context.Context
	runCancel context.CancelFunc
	runners   sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once

	// Dispatcher-owned state. Touch only from inside ops closures.
	jobs           map[string]*Job
	waiting        []string
	delayed        map[string]*time.Timer
	order          []string
	active         int
	draining       bool
	evictCompleted int
	evictFailed    int
}

// NewQueue constructs a queue bound to the given pipeline. Call Start before
// submitting jobs.
func NewQueue(cfg Config, pipeline Pipeline, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = logging.NewNop()
	}
	q := &Queue{
		cfg:      cfg.withDefaults(),
		pipeline: pipeline,
		logger:   logger.With(logging.String(logging.FieldComponent, "queue")),
		now:      time.Now,
		ops:      make(chan func()),
		quit:     make(chan struct{}),
		jobs:     make(map[string]*Job),
		delayed:  make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start launches the dispatcher goroutine. The supplied context bounds every
// pipeline attempt; canceling it interrupts in-flight work.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		q.runCtx, q.runCancel = context.WithCancel(ctx)
		go q.loop()
		q.logger.Info("queue started",
			logging.Int("concurrency_limit", q.cfg.ConcurrencyLimit),
			logging.Int("max_attempts", q.cfg.MaxAttempts))
	})
}

// Stop drains the queue: waiting jobs are failed, active attempts are
// interrupted through context cancellation, and the dispatcher keeps running
// until every runner has reported back or ctx expires.
func (q *Queue) Stop(ctx context.Context) error {
	var err error
	q.stopOnce.Do(func() {
		_ = q.do(context.Background(), func() {
			q.draining = true
			for _, id := range q.waiting {
				job, ok := q.jobs[id]
				if !ok || job.Status != StatusWaiting {
					continue
				}
				q.failJob(job, ShutdownErrorMessage)
			}
			q.waiting = nil
			// Jobs parked in a retry delay are waiting too; their timers
			// would fire after the dispatcher is gone.
			for id, timer := range q.delayed {
				timer.Stop()
				job, ok := q.jobs[id]
				if !ok || job.Status != StatusWaiting {
					continue
				}
				q.failJob(job, ShutdownErrorMessage)
			}
			clear(q.delayed)
		})
		if q.runCancel != nil {
			q.runCancel()
		}

		done := make(chan struct{})
		go func() {
			q.runners.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("queue stop: %w", ctx.Err())
		}
		close(q.quit)
		q.logger.Info("queue stopped")
	})
	return err
}

func (q *Queue) loop() {
	for {
		select {
		case op := <-q.ops:
			op()
		case <-q.quit:
			return
		}
	}
}

// do runs fn on the dispatcher goroutine and waits for it to finish.
func (q *Queue) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case q.ops <- wrapped:
	case <-q.quit:
		return services.Wrap(services.ErrConfiguration, "queue", "dispatch", "queue is stopped", nil)
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// send delivers fn to the dispatcher without waiting for completion.
func (q *Queue) send(fn func()) {
	select {
	case q.ops <- fn:
	case <-q.quit:
	}
}

// Submit validates and admits a job, returning its ID and queue position.
func (q *Queue) Submit(ctx context.Context, payload Payload) (Receipt, error) {
	if err := validatePayload(payload); err != nil {
		return Receipt{}, err
	}

	var receipt Receipt
	var submitErr error
	err := q.do(ctx, func() {
		if q.draining {
			submitErr = services.Wrap(services.ErrConfiguration, "queue", "submit", "queue is shutting down", nil)
			return
		}
		job := &Job{
			ID:          uuid.NewString(),
			Payload:     payload,
			Status:      StatusWaiting,
			MaxAttempts: q.cfg.MaxAttempts,
			CreatedAt:   q.now().UTC(),
		}
		q.jobs[job.ID] = job
		q.order = append(q.order, job.ID)
		q.waiting = append(q.waiting, job.ID)
		receipt = Receipt{
			JobID:             job.ID,
			Status:            StatusWaiting,
			EstimatedPosition: len(q.waiting),
		}
		q.logger.Info("job submitted",
			logging.String(logging.FieldJobID, job.ID),
			logging.String("url", payload.URL),
			logging.Int("position", receipt.EstimatedPosition))
		q.dispatch()
	})
	if err != nil {
		return Receipt{}, err
	}
	return receipt, submitErr
}

// Status returns a snapshot of one job.
func (q *Queue) Status(ctx context.Context, jobID string) (Snapshot, error) {
	var snap Snapshot
	var lookupErr error
	err := q.do(ctx, func() {
		job, ok := q.jobs[jobID]
		if !ok {
			lookupErr = services.Wrap(services.ErrNotFound, "queue", "status", fmt.Sprintf("unknown job %s", jobID), nil)
			return
		}
		snap = job.snapshot()
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, lookupErr
}

// List returns snapshots of every live job in submission order.
func (q *Queue) List(ctx context.Context) ([]Snapshot, error) {
	var snaps []Snapshot
	err := q.do(ctx, func() {
		snaps = make([]Snapshot, 0, len(q.order))
		for _, id := range q.order {
			if job, ok := q.jobs[id]; ok {
				snaps = append(snaps, job.snapshot())
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return snaps, nil
}

// Stats returns aggregate queue counts, including evicted terminal jobs.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := q.do(ctx, func() {
		stats.Completed = q.evictCompleted
		stats.Failed = q.evictFailed
		for _, job := range q.jobs {
			switch job.Status {
			case StatusWaiting:
				stats.Waiting++
			case StatusActive:
				stats.Active++
			case StatusCompleted:
				stats.Completed++
			case StatusFailed:
				stats.Failed++
			}
		}
		stats.Total = stats.Waiting + stats.Active + stats.Completed + stats.Failed
	})
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// Cancel removes a waiting job from the queue. Active jobs are only
// acknowledged: the in-flight attempt keeps running and the job finishes
// normally. Returns true when the job was actually removed.
func (q *Queue) Cancel(ctx context.Context, jobID, reason string) (bool, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "canceled by user"
	}

	var removed bool
	var cancelErr error
	err := q.do(ctx, func() {
		job, ok := q.jobs[jobID]
		if !ok {
			cancelErr = services.Wrap(services.ErrNotFound, "queue", "cancel", fmt.Sprintf("unknown job %s", jobID), nil)
			return
		}
		switch job.Status {
		case StatusWaiting:
			q.removeWaiting(jobID)
			q.failJob(job, reason)
			removed = true
			q.logger.Info("job canceled", logging.String(logging.FieldJobID, jobID))
		case StatusActive:
			// Acknowledge only. The running tools are not killed.
			q.logger.Info("cancel acknowledged for active job", logging.String(logging.FieldJobID, jobID))
		default:
			cancelErr = services.Wrap(services.ErrValidation, "queue", "cancel", fmt.Sprintf("job %s already %s", jobID, job.Status), nil)
		}
	})
	if err != nil {
		return false, err
	}
	return removed, cancelErr
}

// dispatch fills free slots from the head of the waiting list. Dispatcher
// goroutine only.
func (q *Queue) dispatch() {
	for q.active < q.cfg.ConcurrencyLimit && len(q.waiting) > 0 {
		id := q.waiting[0]
		q.waiting = q.waiting[1:]
		job, ok := q.jobs[id]
		if !ok || job.Status != StatusWaiting {
			continue
		}
		q.startAttempt(job)
	}
}

func (q *Queue) startAttempt(job *Job) {
	job.Status = StatusActive
	job.Attempts++
	job.Progress = 0
	job.ProgressStage = ""
	job.ProgressMessage = ""
	if job.StartedAt == nil {
		started := q.now().UTC()
		job.StartedAt = &started
	}
	q.active++

	attempt := *job
	q.runners.Add(1)
	go q.run(attempt)

	q.logger.Info("job started",
		logging.String(logging.FieldJobID, job.ID),
		logging.Int("attempt", job.Attempts),
		logging.Int("active", q.active))
}

func (q *Queue) run(job Job) {
	defer q.runners.Done()

	ctx := services.WithJobID(q.runCtx, job.ID)
	result, err := q.pipeline.Run(ctx, job, &jobReporter{queue: q, jobID: job.ID})
	q.send(func() {
		q.finishAttempt(job.ID, result, err)
	})
}

// finishAttempt applies a pipeline outcome. Dispatcher goroutine only.
func (q *Queue) finishAttempt(jobID string, result *Result, runErr error) {
	q.active--
	defer q.dispatch()

	job, ok := q.jobs[jobID]
	if !ok {
		return
	}

	if runErr == nil {
		completed := q.now().UTC()
		job.Status = StatusCompleted
		job.Progress = 100
		job.ProgressStage = "completed"
		job.ProgressMessage = "processing complete"
		job.CompletedAt = &completed
		job.Result = result
		job.LastError = ""
		q.logger.Info("job completed", logging.String(logging.FieldJobID, jobID))
		q.archive(job.snapshot())
		q.evictTerminal()
		return
	}

	message := services.Message(runErr)
	retryable := services.Retryable(runErr) && job.Attempts < job.MaxAttempts &&
		!q.draining && q.runCtx.Err() == nil
	if !retryable {
		q.failJob(job, message)
		q.logger.Warn("job failed",
			logging.String(logging.FieldJobID, jobID),
			logging.Int("attempts", job.Attempts),
			logging.Error(runErr))
		q.evictTerminal()
		return
	}

	job.Status = StatusWaiting
	job.Progress = 0
	job.ProgressStage = ""
	job.ProgressMessage = fmt.Sprintf("retrying after error: %s", message)
	job.LastError = message
	q.logger.Warn("job attempt failed, requeueing",
		logging.String(logging.FieldJobID, jobID),
		logging.Int("attempt", job.Attempts),
		logging.Int("max_attempts", job.MaxAttempts),
		logging.Error(runErr))

	if q.cfg.RetryDelay <= 0 {
		q.waiting = append(q.waiting, jobID)
		return
	}
	q.delayed[jobID] = time.AfterFunc(q.cfg.RetryDelay, func() {
		q.send(func() {
			q.requeue(jobID)
		})
	})
}

// requeue returns a delayed-retry job to the waiting list if it was not
// canceled or drained in the meantime. Dispatcher goroutine only.
func (q *Queue) requeue(jobID string) {
	delete(q.delayed, jobID)
	job, ok := q.jobs[jobID]
	if !ok || job.Status != StatusWaiting {
		return
	}
	if q.draining {
		q.failJob(job, ShutdownErrorMessage)
		return
	}
	for _, id := range q.waiting {
		if id == jobID {
			return
		}
	}
	q.waiting = append(q.waiting, jobID)
	q.dispatch()
}

// failJob marks a job terminally failed. Dispatcher goroutine only.
func (q *Queue) failJob(job *Job, message string) {
	failed := q.now().UTC()
	job.Status = StatusFailed
	job.Progress = 0
	job.ProgressStage = "failed"
	job.ProgressMessage = message
	job.FailedAt = &failed
	job.LastError = message
	q.archive(job.snapshot())
}

func (q *Queue) removeWaiting(jobID string) {
	for i, id := range q.waiting {
		if id == jobID {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return
		}
	}
}

// reportProgress applies a pipeline progress update. Progress never moves
// backwards within an attempt. Dispatcher goroutine only.
func (q *Queue) reportProgress(jobID, stage string, percent float64, message string) {
	job, ok := q.jobs[jobID]
	if !ok || job.Status != StatusActive {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent > job.Progress {
		job.Progress = percent
	}
	job.ProgressStage = stage
	job.ProgressMessage = message
}

// archive hands a terminal snapshot to the archiver off the dispatcher
// goroutine.
func (q *Queue) archive(snap Snapshot) {
	if q.archiver == nil || !snap.Status.IsTerminal() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := q.archiver.ArchiveJob(ctx, snap); err != nil {
			q.logger.Warn("job archive failed",
				logging.String(logging.FieldJobID, snap.ID),
				logging.Error(err))
		}
	}()
}

// evictTerminal bounds how many terminal jobs stay in the live map.
// Dispatcher goroutine only.
func (q *Queue) evictTerminal() {
	terminal := 0
	for _, job := range q.jobs {
		if job.Status.IsTerminal() {
			terminal++
		}
	}
	if terminal <= q.cfg.HistoryLimit {
		return
	}

	kept := q.order[:0]
	for _, id := range q.order {
		job, ok := q.jobs[id]
		if !ok {
			continue
		}
		if terminal > q.cfg.HistoryLimit && job.Status.IsTerminal() {
			if job.Status == StatusCompleted {
				q.evictCompleted++
			} else {
				q.evictFailed++
			}
			delete(q.jobs, id)
			terminal--
			continue
		}
		kept = append(kept, id)
	}
	q.order = kept
}

type jobReporter struct {
	queue *Queue
	jobID string
}

func (r *jobReporter) Report(stage string, percent float64, message string) {
	r.queue.send(func() {
		r.queue.reportProgress(r.jobID, stage, percent, message)
	})
}

func validatePayload(payload Payload) error {
	raw := strings.TrimSpace(payload.URL)
	if raw == "" {
		return services.Wrap(services.ErrValidation, "queue", "submit", "url is required", nil)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return services.Wrap(services.ErrValidation, "queue", "submit", fmt.Sprintf("invalid url %q", raw), err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return services.Wrap(services.ErrValidation, "queue", "submit", fmt.Sprintf("unsupported url scheme %q", parsed.Scheme), nil)
	}
	if parsed.Host == "" {
		return services.Wrap(services.ErrValidation, "queue", "submit", fmt.Sprintf("url %q has no host", raw), nil)
	}
	if webhook := strings.TrimSpace(payload.Options.WebhookURL); webhook != "" {
		parsedHook, err := url.Parse(webhook)
		if err != nil || (parsedHook.Scheme != "http" && parsedHook.Scheme != "https") || parsedHook.Host == "" {
			return services.Wrap(services.ErrValidation, "queue", "submit", fmt.Sprintf("invalid webhook url %q", webhook), err)
		}
	}
	return nil
}
