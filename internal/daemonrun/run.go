package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"clipsight/internal/analysiscache"
	"clipsight/internal/config"
	"clipsight/internal/daemon"
	"clipsight/internal/logging"
	"clipsight/internal/notifications"
	"clipsight/internal/pipeline"
	"clipsight/internal/queue"
	"clipsight/internal/services/ffmpeg"
	"clipsight/internal/services/llm"
	"clipsight/internal/services/whisper"
	"clipsight/internal/services/ytdlp"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the clipsight daemon runtime loop and blocks until a shutdown
// signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	loggerCfg := *cfg
	if opts.LogLevel != "" {
		loggerCfg.Logging.Level = opts.LogLevel
	}
	logger, err := logging.NewFromConfig(&loggerCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "clipsightd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	var cache *analysiscache.Store
	if cfg.Cache.Enabled {
		cache, err = analysiscache.Open(cfg)
		if err != nil {
			logger.Error("open analysis cache", logging.Error(err))
			return err
		}
		defer cache.Close()
	}

	q := buildQueue(cfg, cache, logger)
	d, err := daemon.New(cfg, q, cache, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("clipsight daemon shutting down")
	return nil
}

// buildQueue wires the pipeline collaborators and the queue together from
// configuration.
func buildQueue(cfg *config.Config, cache *analysiscache.Store, logger *slog.Logger) *queue.Queue {
	deps := pipeline.Deps{
		Media: ytdlp.NewClient(
			ytdlp.WithBinary(cfg.Media.YtdlpBinary),
			ytdlp.WithFormat(cfg.Media.DownloadFormat),
		),
		Audio: ffmpeg.NewExtractor(ffmpeg.WithBinary(cfg.Media.FFmpegBinary)),
		Transcriber: whisper.NewService(whisper.Config{
			Model:       cfg.Transcription.Model,
			CUDAEnabled: cfg.Transcription.CUDAEnabled,
			Language:    cfg.Transcription.Language,
		}),
		Notifier: notifications.NewService(cfg),
	}
	if cfg.Analysis.Enabled {
		deps.Analyzer = llm.NewClient(llm.Config{
			APIKey:         cfg.Analysis.APIKey,
			BaseURL:        cfg.Analysis.BaseURL,
			Model:          cfg.Analysis.Model,
			Referer:        cfg.Analysis.Referer,
			Title:          cfg.Analysis.Title,
			TimeoutSeconds: cfg.Analysis.TimeoutSeconds,
		})
	}
	if cache != nil {
		deps.Cache = cache
	}

	p := pipeline.New(pipeline.Config{
		StagingDir:              cfg.Paths.StagingDir,
		MaxVideoDurationSeconds: cfg.Media.MaxVideoDurationSeconds,
	}, deps, logger)

	queueCfg := queue.Config{
		ConcurrencyLimit: cfg.Queue.ConcurrencyLimit,
		MaxAttempts:      cfg.Queue.MaxAttempts,
		RetryDelay:       time.Duration(cfg.Queue.RetryDelaySeconds) * time.Second,
		HistoryLimit:     cfg.Queue.HistoryLimit,
	}
	var queueOpts []queue.Option
	if cache != nil {
		queueOpts = append(queueOpts, queue.WithArchiver(cache))
	}
	return queue.NewQueue(queueCfg, p, logger, queueOpts...)
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
