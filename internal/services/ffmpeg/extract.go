package ffmpeg

import (
	"context"
	"strings"

	"clipsight/internal/services"
	"clipsight/internal/toolrun"
)

// DefaultBinary is the ffmpeg executable name.
const DefaultBinary = "ffmpeg"

// Extractor converts downloaded media into waveforms suitable for the
// transcription engine.
type Extractor struct {
	binary string
	runner toolrun.Runner
}

// Option configures the extractor.
type Option func(*Extractor)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(e *Extractor) {
		if binary != "" {
			e.binary = binary
		}
	}
}

// WithRunner overrides the tool runner (used in tests).
func WithRunner(runner toolrun.Runner) Option {
	return func(e *Extractor) {
		if runner != nil {
			e.runner = runner
		}
	}
}

// NewExtractor constructs an Extractor using defaults.
func NewExtractor(opts ...Option) *Extractor {
	extractor := &Extractor{
		binary: DefaultBinary,
		runner: toolrun.NewRunner(),
	}
	for _, opt := range opts {
		opt(extractor)
	}
	return extractor
}

// ExtractAudio extracts the audio stream from source into dest as a mono
// 16 kHz PCM WAV file suitable for WhisperX. Output lines stream to onOutput
// for progress estimation.
func (e *Extractor) ExtractAudio(ctx context.Context, source, dest string, onOutput func(line string)) error {
	if strings.TrimSpace(source) == "" {
		return services.Wrap(services.ErrValidation, "ffmpeg", "extract audio", "source path required", nil)
	}
	if strings.TrimSpace(dest) == "" {
		return services.Wrap(services.ErrValidation, "ffmpeg", "extract audio", "destination path required", nil)
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	_, err := e.runner.Run(ctx, toolrun.Spec{
		Binary:   e.binary,
		Args:     args,
		OnOutput: onOutput,
	})
	return err
}
