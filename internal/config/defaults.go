package config

const (
	defaultStagingDir       = "~/.local/share/clipsight/staging"
	defaultLogDir           = "~/.local/share/clipsight/logs"
	defaultCacheDir         = "~/.cache/clipsight"
	defaultAPIBind          = "127.0.0.1:7519"
	defaultConcurrency      = 4
	defaultMaxAttempts      = 3
	defaultRetryDelay       = 0
	defaultHistoryLimit     = 500
	defaultMaxVideoDuration = 600
	defaultYtdlpBinary      = "yt-dlp"
	defaultFFmpegBinary     = "ffmpeg"
	defaultDownloadFormat   = "bv*[height<=1080]+ba/b[height<=1080]/b"
	defaultWhisperModel     = "large-v3-turbo"
	defaultAnalysisBaseURL  = "https://openrouter.ai/api/v1/chat/completions"
	defaultAnalysisModel    = "google/gemini-3-flash-preview"
	defaultAnalysisReferer  = "https://github.com/clipsight/clipsight"
	defaultAnalysisTitle    = "Clipsight Content Analysis"
	defaultAnalysisTimeout  = 60
	defaultCacheTTLSeconds  = 7 * 24 * 60 * 60
	defaultWebhookTimeout   = 10
	defaultLogFormat        = "text"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			CacheDir:   defaultCacheDir,
			APIBind:    defaultAPIBind,
		},
		Queue: Queue{
			ConcurrencyLimit:  defaultConcurrency,
			MaxAttempts:       defaultMaxAttempts,
			RetryDelaySeconds: defaultRetryDelay,
			HistoryLimit:      defaultHistoryLimit,
		},
		Media: Media{
			MaxVideoDurationSeconds: defaultMaxVideoDuration,
			YtdlpBinary:             defaultYtdlpBinary,
			FFmpegBinary:            defaultFFmpegBinary,
			DownloadFormat:          defaultDownloadFormat,
		},
		Transcription: Transcription{
			Model: defaultWhisperModel,
		},
		Analysis: Analysis{
			Enabled:        true,
			BaseURL:        defaultAnalysisBaseURL,
			Model:          defaultAnalysisModel,
			Referer:        defaultAnalysisReferer,
			Title:          defaultAnalysisTitle,
			TimeoutSeconds: defaultAnalysisTimeout,
		},
		Cache: Cache{
			Enabled:    true,
			TTLSeconds: defaultCacheTTLSeconds,
		},
		Webhooks: Webhooks{
			RequestTimeout: defaultWebhookTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
