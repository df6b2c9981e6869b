package ffmpeg

import (
	"context"
	"errors"
	"strings"
	"testing"

	"clipsight/internal/services"
	"clipsight/internal/toolrun"
)

type fakeRunner struct {
	spec toolrun.Spec
	err  error
}

func (f *fakeRunner) Run(_ context.Context, spec toolrun.Spec) (toolrun.Invocation, error) {
	f.spec = spec
	return toolrun.Invocation{}, f.err
}

func TestExtractAudioBuildsArgs(t *testing.T) {
	runner := &fakeRunner{}
	extractor := NewExtractor(WithRunner(runner), WithBinary("ffmpeg-custom"))

	err := extractor.ExtractAudio(context.Background(), "/tmp/in.mp4", "/tmp/out.wav", nil)
	if err != nil {
		t.Fatalf("ExtractAudio failed: %v", err)
	}
	if runner.spec.Binary != "ffmpeg-custom" {
		t.Fatalf("expected custom binary, got %q", runner.spec.Binary)
	}
	joined := strings.Join(runner.spec.Args, " ")
	for _, fragment := range []string{"-ac 1", "-ar 16000", "pcm_s16le", "/tmp/in.mp4", "/tmp/out.wav"} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("expected %q in args %q", fragment, joined)
		}
	}
}

func TestExtractAudioValidatesPaths(t *testing.T) {
	extractor := NewExtractor(WithRunner(&fakeRunner{}))
	if err := extractor.ExtractAudio(context.Background(), "", "/tmp/out.wav", nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty source, got %v", err)
	}
	if err := extractor.ExtractAudio(context.Background(), "/tmp/in.mp4", "", nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty dest, got %v", err)
	}
}

func TestExtractAudioPropagatesRunnerError(t *testing.T) {
	wantErr := services.Wrap(services.ErrExternalTool, "toolrun", "ffmpeg", "exit 1", errors.New("exit status 1"))
	extractor := NewExtractor(WithRunner(&fakeRunner{err: wantErr}))
	err := extractor.ExtractAudio(context.Background(), "/tmp/in.mp4", "/tmp/out.wav", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}
