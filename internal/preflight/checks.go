package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"clipsight/internal/config"
	"clipsight/internal/services/llm"
	"clipsight/internal/services/whisper"
	"clipsight/internal/services/ytdlp"
)

// minFreeBytes is the staging free-space floor. Short videos are small, but
// intermediate WAVs and whisperx output need headroom.
const minFreeBytes = 1 << 30

// Requirement defines an external binary clipsight relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

func requirements(cfg *config.Config) []Requirement {
	ytdlpBinary := strings.TrimSpace(cfg.Media.YtdlpBinary)
	if ytdlpBinary == "" {
		ytdlpBinary = ytdlp.DefaultBinary
	}
	ffmpegBinary := strings.TrimSpace(cfg.Media.FFmpegBinary)
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	return []Requirement{
		{
			Name:        "yt-dlp",
			Command:     ytdlpBinary,
			Description: "Required for metadata lookup and media download",
		},
		{
			Name:        "FFmpeg",
			Command:     ffmpegBinary,
			Description: "Required for audio extraction",
		},
		{
			Name:        "uvx",
			Command:     whisper.UVXCommand,
			Description: "Required for WhisperX-driven transcription",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Result {
	results := make([]Result, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		result := Result{Name: req.Name}
		if cmd == "" {
			result.Detail = "command not configured"
			results = append(results, result)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			if req.Optional {
				result.Passed = true
				result.Detail = fmt.Sprintf("optional binary %q not found", cmd)
			} else {
				result.Detail = fmt.Sprintf("binary %q not found", cmd)
			}
			results = append(results, result)
			continue
		}
		result.Passed = true
		result.Detail = resolved
		results = append(results, result)
	}
	return results
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies the filesystem holding path has enough free space
// for session workspaces.
func CheckDiskSpace(name, path string) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%s (%.1f GiB free)", path, float64(free)/(1<<30))
	if free < minFreeBytes {
		return Result{Name: name, Detail: detail + ", below 1 GiB minimum"}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckLLM verifies that the analysis API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, cfg *config.Config) Result {
	const name = "Analysis LLM"
	if strings.TrimSpace(cfg.Analysis.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.Analysis.APIKey,
		BaseURL: cfg.Analysis.BaseURL,
		Model:   cfg.Analysis.Model,
		Referer: cfg.Analysis.Referer,
		Title:   cfg.Analysis.Title,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
