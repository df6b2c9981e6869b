package pipeline

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"clipsight/internal/queue"
)

// maxMessageBytes bounds progress messages copied from raw tool output.
const maxMessageBytes = 120

// Stage names in execution order.
const (
	StageMetadata   = "metadata"
	StageDownload   = "download"
	StageExtract    = "audio_extraction"
	StageTranscribe = "transcription"
	StageAnalysis   = "analysis"
	StageFinalize   = "finalize"
)

// band is the progress window a stage may occupy. Stage boundaries give a
// stable shape to the 0-100 range no matter how chatty each tool is.
type band struct {
	start float64
	end   float64
}

var stageBands = map[string]band{
	StageMetadata:   {start: 5, end: 15},
	StageDownload:   {start: 15, end: 40},
	StageExtract:    {start: 40, end: 50},
	StageTranscribe: {start: 50, end: 80},
	StageAnalysis:   {start: 80, end: 95},
	StageFinalize:   {start: 95, end: 100},
}

var titleCaser = cases.Title(language.English)

// StageLabel renders a stage name for human-facing progress messages.
func StageLabel(stage string) string {
	return titleCaser.String(strings.ReplaceAll(stage, "_", " "))
}

// bandTracker maps observed tool output onto a stage's progress band. The
// estimate approaches but never reaches the band end until the stage is
// explicitly finished, and it never moves backwards.
type bandTracker struct {
	reporter queue.ProgressReporter
	stage    string
	band     band
	lines    int
}

func newBandTracker(reporter queue.ProgressReporter, stage string) *bandTracker {
	t := &bandTracker{
		reporter: reporter,
		stage:    stage,
		band:     stageBands[stage],
	}
	t.reporter.Report(stage, t.band.start, StageLabel(stage)+" started")
	return t
}

// Observe advances the estimate for one line of tool output.
func (t *bandTracker) Observe(line string) {
	t.lines++
	span := t.band.end - t.band.start
	percent := t.band.start + span*float64(t.lines)/float64(t.lines+40)
	message := truncateAtRune(strings.TrimSpace(line), maxMessageBytes)
	if message == "" {
		message = StageLabel(t.stage) + " in progress"
	}
	t.reporter.Report(t.stage, percent, message)
}

// Done marks the stage complete at the band end.
func (t *bandTracker) Done() {
	t.reporter.Report(t.stage, t.band.end, StageLabel(t.stage)+" finished")
}

// truncateAtRune cuts s to at most limit bytes without splitting a rune.
func truncateAtRune(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
