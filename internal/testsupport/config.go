package testsupport

import (
	"path/filepath"
	"testing"

	"clipsight/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithAnalysisKey sets the analysis API key on the test config.
func WithAnalysisKey(key string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Analysis.APIKey = key
	}
}

// WithConcurrency overrides the queue concurrency limit.
func WithConcurrency(limit int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Queue.ConcurrencyLimit = limit
	}
}

// WithCacheTTL overrides the analysis cache TTL in seconds.
func WithCacheTTL(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Cache.TTLSeconds = seconds
	}
}
