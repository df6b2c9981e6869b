package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeQueue()
	c.normalizeMedia()
	c.normalizeTranscription()
	c.normalizeAnalysis()
	c.normalizeCache()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeQueue() {
	if c.Queue.ConcurrencyLimit <= 0 {
		c.Queue.ConcurrencyLimit = defaultConcurrency
	}
	if c.Queue.MaxAttempts <= 0 {
		c.Queue.MaxAttempts = defaultMaxAttempts
	}
	if c.Queue.RetryDelaySeconds < 0 {
		c.Queue.RetryDelaySeconds = 0
	}
	if c.Queue.HistoryLimit <= 0 {
		c.Queue.HistoryLimit = defaultHistoryLimit
	}
}

func (c *Config) normalizeMedia() {
	c.Media.YtdlpBinary = strings.TrimSpace(c.Media.YtdlpBinary)
	if c.Media.YtdlpBinary == "" {
		c.Media.YtdlpBinary = defaultYtdlpBinary
	}
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = defaultFFmpegBinary
	}
	c.Media.DownloadFormat = strings.TrimSpace(c.Media.DownloadFormat)
	if c.Media.DownloadFormat == "" {
		c.Media.DownloadFormat = defaultDownloadFormat
	}
	if c.Media.MaxVideoDurationSeconds <= 0 {
		c.Media.MaxVideoDurationSeconds = defaultMaxVideoDuration
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultWhisperModel
	}
	c.Transcription.Language = strings.TrimSpace(c.Transcription.Language)
}

func (c *Config) normalizeAnalysis() {
	if c.Analysis.APIKey == "" {
		if value, ok := os.LookupEnv("CLIPSIGHT_LLM_API_KEY"); ok {
			c.Analysis.APIKey = value
		}
	}
	c.Analysis.APIKey = strings.TrimSpace(c.Analysis.APIKey)
	c.Analysis.BaseURL = strings.TrimSpace(c.Analysis.BaseURL)
	if c.Analysis.BaseURL == "" {
		c.Analysis.BaseURL = defaultAnalysisBaseURL
	}
	c.Analysis.Model = strings.TrimSpace(c.Analysis.Model)
	if c.Analysis.Model == "" {
		c.Analysis.Model = defaultAnalysisModel
	}
	if c.Analysis.TimeoutSeconds <= 0 {
		c.Analysis.TimeoutSeconds = defaultAnalysisTimeout
	}
}

func (c *Config) normalizeCache() {
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = defaultCacheTTLSeconds
	}
	if c.Webhooks.RequestTimeout <= 0 {
		c.Webhooks.RequestTimeout = defaultWebhookTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
