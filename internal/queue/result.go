package queue

import "time"

// Result is the assembled output of a completed job. Transcript and Analysis
// are present only when the corresponding option was requested and the stage
// produced output; a failed analysis leaves Analysis non-nil with its Error
// field set.
type Result struct {
	Media      MediaInfo       `json:"media"`
	Transcript *Transcript     `json:"transcript,omitempty"`
	Analysis   *AnalysisReport `json:"analysis,omitempty"`
	Processing ProcessingInfo  `json:"processing"`
}

// MediaInfo is the platform metadata recorded for the source URL.
type MediaInfo struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Creator         string `json:"creator,omitempty"`
	DurationSeconds int    `json:"duration_seconds"`
	Platform        string `json:"platform,omitempty"`
	UploadDate      string `json:"upload_date,omitempty"`
	ViewCount       int64  `json:"view_count,omitempty"`
	LikeCount       int64  `json:"like_count,omitempty"`
	WebpageURL      string `json:"webpage_url,omitempty"`
}

// Transcript holds the transcription output.
type Transcript struct {
	Text     string              `json:"text"`
	Language string              `json:"language,omitempty"`
	Segments []TranscriptSegment `json:"segments,omitempty"`
}

// TranscriptSegment is one timed span of transcript text.
type TranscriptSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// AnalysisReport is the AI analysis of the transcript, or a marker explaining
// why no analysis is available. Exactly one of the payload fields and Error
// is meaningful.
type AnalysisReport struct {
	Summary     string   `json:"summary,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	Sentiment   string   `json:"sentiment,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	KeyPoints   []string `json:"key_points,omitempty"`
	FromCache   bool     `json:"from_cache,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Degraded reports whether the analysis carries an error marker instead of a
// payload.
func (a *AnalysisReport) Degraded() bool {
	return a != nil && a.Error != ""
}

// StageTiming records how long one pipeline stage ran.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// ProcessingInfo describes how the result was produced.
type ProcessingInfo struct {
	SessionID      string        `json:"session_id"`
	Attempt        int           `json:"attempt"`
	Stages         []StageTiming `json:"stages"`
	MediaBytes     int64         `json:"media_bytes,omitempty"`
	AudioBytes     int64         `json:"audio_bytes,omitempty"`
	TranscriptRune int           `json:"transcript_runes,omitempty"`
	TotalDuration  time.Duration `json:"total_duration"`
}
