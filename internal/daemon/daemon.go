package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"clipsight/internal/analysiscache"
	"clipsight/internal/config"
	"clipsight/internal/logging"
	"clipsight/internal/preflight"
	"clipsight/internal/queue"
)

// Daemon coordinates the job queue, the analysis cache, and the HTTP API,
// and enforces single-instance execution through a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	queue  *queue.Queue
	cache  *analysiscache.Store
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies. The cache may be
// nil when disabled.
func New(cfg *config.Config, q *queue.Queue, cache *analysiscache.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || q == nil || logger == nil {
		return nil, errors.New("daemon requires config, queue, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "clipsightd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		queue:    q,
		cache:    cache,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	server, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = server
	return d, nil
}

// Start acquires the daemon lock, runs preflight, and starts the queue and
// API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipsight daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	results := preflight.RunAll(d.ctx, d.cfg)
	for _, result := range results {
		if result.Passed {
			d.logger.Info("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
			continue
		}
		d.logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail))
	}

	d.queue.Start(d.ctx)
	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			d.queue.Stop(context.Background())
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("clipsight daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop drains the queue and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.api != nil {
		d.api.stop()
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.queue.Stop(stopCtx); err != nil {
		d.logger.Warn("queue drain incomplete", logging.Error(err))
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("clipsight daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.cache != nil {
		return d.cache.Close()
	}
	return nil
}

// APIAddr returns the bound API address, useful when the configured bind
// uses port 0.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Health reruns the preflight checks and returns current queue stats.
func (d *Daemon) Health(ctx context.Context) ([]preflight.Result, queue.Stats, error) {
	results := preflight.RunAll(ctx, d.cfg)
	stats, err := d.queue.Stats(ctx)
	return results, stats, err
}
