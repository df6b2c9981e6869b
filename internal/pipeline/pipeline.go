package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"clipsight/internal/logging"
	"clipsight/internal/queue"
	"clipsight/internal/services"
	"clipsight/internal/services/llm"
	"clipsight/internal/services/whisper"
	"clipsight/internal/services/ytdlp"
)

// MediaSource resolves metadata for a URL and downloads its media file.
// Implemented by the yt-dlp client.
type MediaSource interface {
	Fetch(ctx context.Context, url string) (ytdlp.Metadata, error)
	Download(ctx context.Context, url, destDir string, onOutput func(line string)) (string, error)
}

// AudioExtractor turns a downloaded media file into a mono 16 kHz WAV.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, source, dest string, onOutput func(line string)) error
}

// Transcriber produces a transcript from an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, source, outputDir string, onOutput func(line string)) (whisper.Result, error)
}

// Analyzer turns a transcript into a structured content analysis.
type Analyzer interface {
	Configured() bool
	Analyze(ctx context.Context, transcript string, media llm.MediaContext) (*llm.Analysis, error)
}

// AnalysisCache stores completed analyses keyed by platform media ID.
type AnalysisCache interface {
	Lookup(ctx context.Context, mediaID string) (*queue.AnalysisReport, bool, error)
	Store(ctx context.Context, mediaID string, report *queue.AnalysisReport) error
}

// Notifier delivers the completion webhook. Delivery is best effort.
type Notifier interface {
	JobCompleted(ctx context.Context, webhookURL, jobID string, result *queue.Result) error
}

// Config holds the pipeline's own settings.
type Config struct {
	StagingDir              string
	MaxVideoDurationSeconds int
}

// Deps are the stage collaborators. Media is required; Transcriber and
// Audio are required only when transcript jobs are submitted; Analyzer,
// Cache, and Notifier may be nil when the feature is disabled.
type Deps struct {
	Media       MediaSource
	Audio       AudioExtractor
	Transcriber Transcriber
	Analyzer    Analyzer
	Cache       AnalysisCache
	Notifier    Notifier
}

// Pipeline runs one attempt of a job from metadata to assembled result.
type Pipeline struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
}

// New constructs a pipeline.
func New(cfg Config, deps Deps, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With(logging.String(logging.FieldComponent, "pipeline")),
	}
}

// Run executes one attempt. Errors returned here feed the queue's
// retry-vs-terminal decision; analysis and webhook problems are absorbed
// and reflected in the result instead.
func (p *Pipeline) Run(ctx context.Context, job queue.Job, reporter queue.ProgressReporter) (*queue.Result, error) {
	started := time.Now()
	logger := p.logger.With(logging.String(logging.FieldJobID, job.ID))

	sess, err := newSession(p.cfg.StagingDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cleanupErr := sess.Cleanup(); cleanupErr != nil {
			logger.Warn("session cleanup failed", logging.Error(cleanupErr))
		}
	}()

	logger.Info("attempt started",
		logging.String("session_id", sess.ID),
		logging.Int("attempt", job.Attempts),
		logging.String("url", job.Payload.URL))

	var timings []queue.StageTiming
	timeStage := func(stage string, fn func() error) error {
		stageStart := time.Now()
		err := fn()
		timings = append(timings, queue.StageTiming{Stage: stage, Duration: time.Since(stageStart)})
		return err
	}

	// Metadata is mandatory and gates the duration limit before any bytes
	// are downloaded.
	var meta ytdlp.Metadata
	if err := timeStage(StageMetadata, func() error {
		tracker := newBandTracker(reporter, StageMetadata)
		fetched, err := p.deps.Media.Fetch(services.WithStage(ctx, StageMetadata), job.Payload.URL)
		if err != nil {
			return err
		}
		meta = fetched
		if p.cfg.MaxVideoDurationSeconds > 0 && meta.Duration > float64(p.cfg.MaxVideoDurationSeconds) {
			return services.Wrap(services.ErrValidation, "pipeline", StageMetadata,
				fmt.Sprintf("video duration %.0fs exceeds limit of %ds", meta.Duration, p.cfg.MaxVideoDurationSeconds), nil)
		}
		tracker.Done()
		return nil
	}); err != nil {
		return nil, err
	}

	cached := p.cachedAnalysis(ctx, logger, job, meta.ID)
	if cached != nil && !job.Payload.Options.IncludeTranscript {
		// Nothing left that needs the media file itself.
		logger.Info("serving analysis from cache", logging.String("media_id", meta.ID))
		reporter.Report(StageAnalysis, stageBands[StageAnalysis].end, "analysis served from cache")
		result := p.finalize(ctx, logger, job, reporter, mediaInfo(meta), nil, cached, queue.ProcessingInfo{
			SessionID:     sess.ID,
			Attempt:       job.Attempts,
			Stages:        timings,
			TotalDuration: time.Since(started),
		})
		return result, nil
	}

	var mediaPath string
	var mediaBytes int64
	if err := timeStage(StageDownload, func() error {
		tracker := newBandTracker(reporter, StageDownload)
		path, err := p.deps.Media.Download(services.WithStage(ctx, StageDownload), job.Payload.URL, sess.Dir, tracker.Observe)
		if err != nil {
			return err
		}
		mediaPath = path
		mediaBytes = fileSize(path)
		tracker.Done()
		return nil
	}); err != nil {
		return nil, err
	}

	var transcript *queue.Transcript
	var audioBytes int64
	if job.Payload.Options.IncludeTranscript {
		if err := timeStage(StageExtract, func() error {
			tracker := newBandTracker(reporter, StageExtract)
			if err := p.deps.Audio.ExtractAudio(services.WithStage(ctx, StageExtract), mediaPath, sess.AudioPath(), tracker.Observe); err != nil {
				return err
			}
			audioBytes = fileSize(sess.AudioPath())
			tracker.Done()
			return nil
		}); err != nil {
			return nil, err
		}

		if err := timeStage(StageTranscribe, func() error {
			tracker := newBandTracker(reporter, StageTranscribe)
			result, err := p.deps.Transcriber.Transcribe(services.WithStage(ctx, StageTranscribe), sess.AudioPath(), sess.Dir, tracker.Observe)
			if err != nil {
				return err
			}
			transcript = transcriptInfo(result)
			tracker.Done()
			return nil
		}); err != nil {
			return nil, err
		}
	}

	var analysis *queue.AnalysisReport
	if job.Payload.Options.IncludeAnalysis {
		_ = timeStage(StageAnalysis, func() error {
			analysis = p.analyze(ctx, logger, reporter, job, meta, transcript, cached)
			return nil
		})
	}

	processing := queue.ProcessingInfo{
		SessionID:     sess.ID,
		Attempt:       job.Attempts,
		Stages:        timings,
		MediaBytes:    mediaBytes,
		AudioBytes:    audioBytes,
		TotalDuration: time.Since(started),
	}
	if transcript != nil {
		processing.TranscriptRune = len([]rune(transcript.Text))
	}

	result := p.finalize(ctx, logger, job, reporter, mediaInfo(meta), transcript, analysis, processing)
	return result, nil
}

// analyze runs the analysis stage. It never returns an error: failures and
// missing prerequisites become a degraded report so the job still completes.
func (p *Pipeline) analyze(ctx context.Context, logger *slog.Logger, reporter queue.ProgressReporter, job queue.Job, meta ytdlp.Metadata, transcript *queue.Transcript, cached *queue.AnalysisReport) *queue.AnalysisReport {
	tracker := newBandTracker(reporter, StageAnalysis)

	if cached != nil {
		logger.Info("analysis served from cache", logging.String("media_id", meta.ID))
		tracker.Done()
		return cached
	}
	if p.deps.Analyzer == nil || !p.deps.Analyzer.Configured() {
		logger.Warn("analysis requested but backend not configured",
			logging.String(logging.FieldJobID, job.ID))
		tracker.Done()
		return degradedAnalysis("analysis backend not configured")
	}
	if transcript == nil || transcript.Text == "" {
		tracker.Done()
		return degradedAnalysis("no transcript available for analysis")
	}

	analysis, err := p.deps.Analyzer.Analyze(services.WithStage(ctx, StageAnalysis), transcript.Text, llm.MediaContext{
		Title:       meta.Title,
		Creator:     meta.Creator(),
		Duration:    int(meta.Duration),
		Platform:    meta.Extractor,
		Description: meta.Description,
	})
	if err != nil {
		wrapped := services.Wrap(services.ErrAnalysis, "llm", StageAnalysis, "content analysis failed", err)
		logger.Warn("analysis degraded", logging.Error(wrapped))
		tracker.Done()
		return degradedAnalysis(services.Message(wrapped))
	}

	report := analysisInfo(analysis)
	p.storeAnalysis(ctx, logger, meta.ID, report)
	tracker.Done()
	return report
}

// finalize assembles the result, fires the completion webhook, and reports
// the last progress tick.
func (p *Pipeline) finalize(ctx context.Context, logger *slog.Logger, job queue.Job, reporter queue.ProgressReporter, media queue.MediaInfo, transcript *queue.Transcript, analysis *queue.AnalysisReport, processing queue.ProcessingInfo) *queue.Result {
	reporter.Report(StageFinalize, stageBands[StageFinalize].start, "assembling result")
	result := Assemble(media, transcript, analysis, processing)

	if webhook := job.Payload.Options.WebhookURL; webhook != "" && p.deps.Notifier != nil {
		if err := p.deps.Notifier.JobCompleted(ctx, webhook, job.ID, result); err != nil {
			logger.Warn("completion webhook failed",
				logging.String("webhook_url", webhook),
				logging.Error(err))
		}
	}

	reporter.Report(StageFinalize, stageBands[StageFinalize].end, "processing complete")
	return result
}

// cachedAnalysis probes the analysis cache. Cache problems are logged and
// treated as a miss.
func (p *Pipeline) cachedAnalysis(ctx context.Context, logger *slog.Logger, job queue.Job, mediaID string) *queue.AnalysisReport {
	if p.deps.Cache == nil || mediaID == "" || !job.Payload.Options.IncludeAnalysis {
		return nil
	}
	report, found, err := p.deps.Cache.Lookup(ctx, mediaID)
	if err != nil {
		logger.Warn("analysis cache lookup failed",
			logging.String("media_id", mediaID),
			logging.Error(err))
		return nil
	}
	if !found || report.Degraded() {
		return nil
	}
	report.FromCache = true
	return report
}

func (p *Pipeline) storeAnalysis(ctx context.Context, logger *slog.Logger, mediaID string, report *queue.AnalysisReport) {
	if p.deps.Cache == nil || mediaID == "" || report.Degraded() {
		return
	}
	if err := p.deps.Cache.Store(ctx, mediaID, report); err != nil {
		logger.Warn("analysis cache store failed",
			logging.String("media_id", mediaID),
			logging.Error(err))
	}
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
