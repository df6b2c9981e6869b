package preflight

import (
	"context"

	"clipsight/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckDiskSpace("Staging free space", cfg.Paths.StagingDir))
	results = append(results, CheckBinaries(requirements(cfg))...)

	if cfg.Analysis.Enabled {
		results = append(results, CheckLLM(ctx, cfg))
	}

	return results
}

// Healthy reports whether every check passed.
func Healthy(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
