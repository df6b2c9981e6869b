package whisper

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"clipsight/internal/services"
	"clipsight/internal/toolrun"
)

// Service provides WhisperX transcription capabilities.
type Service struct {
	cfg    Config
	runner toolrun.Runner
}

// Option configures the service.
type Option func(*Service)

// WithRunner overrides the tool runner (used in tests).
func WithRunner(runner toolrun.Runner) Option {
	return func(s *Service) {
		if runner != nil {
			s.runner = runner
		}
	}
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config, opts ...Option) *Service {
	service := &Service{
		cfg:    cfg,
		runner: toolrun.NewRunner(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// Result contains the outcome of a transcription.
type Result struct {
	// Text is the plain text transcription.
	Text string
	// Language is the detected or forced language code.
	Language string
	// Segments carries timestamped sentence segments.
	Segments []Segment
	// JSONPath is the path to the WhisperX JSON output file.
	JSONPath string
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcribe runs WhisperX against an audio file and returns the transcript.
// The source should be a mono 16 kHz WAV file; outputDir is where WhisperX
// writes its output files. Output lines stream to onOutput for progress
// estimation.
func (s *Service) Transcribe(ctx context.Context, source, outputDir string, onOutput func(line string)) (Result, error) {
	var result Result

	if strings.TrimSpace(source) == "" {
		return result, services.Wrap(services.ErrValidation, "whisper", "transcribe", "source path required", nil)
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrTranscription, "whisper", "transcribe", "ensure output dir", err)
	}

	args := s.buildArgs(source, outputDir)
	if _, err := s.runner.Run(ctx, toolrun.Spec{
		Binary:   UVXCommand,
		Args:     args,
		OnOutput: onOutput,
	}); err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return result, services.Wrap(services.ErrTranscription, "whisper", "transcribe", services.Message(err), err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	result.JSONPath = filepath.Join(outputDir, baseName+".json")

	payload, err := loadPayload(result.JSONPath)
	if err != nil {
		return result, services.Wrap(services.ErrTranscription, "whisper", "transcribe", "read output", err)
	}
	result.Segments = payload.Segments
	result.Language = payload.Language
	result.Text = joinSegments(payload.Segments)
	return result, nil
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 24)

	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	model := s.cfg.Model
	if model == "" {
		model = DefaultModel
	}

	args = append(args,
		"whisperx",
		source,
		"--model", model,
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
	)

	if lang := strings.TrimSpace(s.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}

	return args
}

// whisperXPayload is the JSON structure from WhisperX output.
type whisperXPayload struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

func loadPayload(jsonPath string) (whisperXPayload, error) {
	var payload whisperXPayload
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return payload, err
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

func joinSegments(segments []Segment) string {
	var parts []string
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
