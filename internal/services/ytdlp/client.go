package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"clipsight/internal/services"
	"clipsight/internal/toolrun"
)

// DefaultBinary is the yt-dlp executable name.
const DefaultBinary = "yt-dlp"

var commandContext = exec.CommandContext

// Client wraps the yt-dlp command-line tool for metadata retrieval and media
// download.
type Client struct {
	binary string
	format string
	runner toolrun.Runner
}

// Option configures the client.
type Option func(*Client)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *Client) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithFormat overrides the download format selector.
func WithFormat(format string) Option {
	return func(c *Client) {
		if format != "" {
			c.format = format
		}
	}
}

// WithRunner overrides the tool runner (used in tests).
func WithRunner(runner toolrun.Runner) Option {
	return func(c *Client) {
		if runner != nil {
			c.runner = runner
		}
	}
}

// NewClient constructs a yt-dlp client using defaults.
func NewClient(opts ...Option) *Client {
	client := &Client{
		binary: DefaultBinary,
		format: "bv*[height<=1080]+ba/b[height<=1080]/b",
		runner: toolrun.NewRunner(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Metadata describes a remote video as reported by the platform.
type Metadata struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Duration    float64 `json:"duration"`
	Uploader    string  `json:"uploader"`
	Channel     string  `json:"channel"`
	UploadDate  string  `json:"upload_date"`
	ViewCount   int64   `json:"view_count"`
	LikeCount   int64   `json:"like_count"`
	Description string  `json:"description"`
	WebpageURL  string  `json:"webpage_url"`
	Extractor   string  `json:"extractor_key"`
}

// Creator returns the best available creator label.
func (m Metadata) Creator() string {
	if c := strings.TrimSpace(m.Channel); c != "" {
		return c
	}
	return strings.TrimSpace(m.Uploader)
}

// Fetch retrieves metadata for a URL without downloading media.
func (c *Client) Fetch(ctx context.Context, url string) (Metadata, error) {
	var meta Metadata
	url = strings.TrimSpace(url)
	if url == "" {
		return meta, services.Wrap(services.ErrValidation, "ytdlp", "metadata", "url required", nil)
	}

	args := []string{"-J", "--no-playlist", "--no-warnings", url}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := lastLine(stderr.String())
		if detail == "" {
			detail = "metadata fetch failed"
		}
		return meta, services.Wrap(services.ErrExternalTool, "ytdlp", "metadata", detail, err)
	}

	if err := json.Unmarshal(stdout.Bytes(), &meta); err != nil {
		return meta, services.Wrap(services.ErrExternalTool, "ytdlp", "metadata", "parse json", err)
	}
	if meta.ID == "" {
		return meta, services.Wrap(services.ErrExternalTool, "ytdlp", "metadata", "response missing video id", nil)
	}
	return meta, nil
}

// Download fetches the media for a URL into destDir and returns the local
// path. Output lines stream to onOutput for progress estimation.
func (c *Client) Download(ctx context.Context, url, destDir string, onOutput func(line string)) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", services.Wrap(services.ErrValidation, "ytdlp", "download", "url required", nil)
	}
	if strings.TrimSpace(destDir) == "" {
		return "", services.Wrap(services.ErrValidation, "ytdlp", "download", "destination directory required", nil)
	}

	template := filepath.Join(destDir, "media.%(ext)s")
	args := []string{
		"-f", c.format,
		"-o", template,
		"--newline",
		"--no-playlist",
		"--no-warnings",
		url,
	}
	if _, err := c.runner.Run(ctx, toolrun.Spec{
		Binary:   c.binary,
		Args:     args,
		OnOutput: onOutput,
	}); err != nil {
		return "", err
	}

	matches, err := filepath.Glob(filepath.Join(destDir, "media.*"))
	if err != nil || len(matches) == 0 {
		return "", services.Wrap(services.ErrExternalTool, "ytdlp", "download",
			fmt.Sprintf("no media file produced in %s", destDir), err)
	}
	return matches[0], nil
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
