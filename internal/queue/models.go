package queue

import (
	"math"
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ShutdownErrorMessage is the error recorded on waiting jobs when the daemon
// stops before they run.
const ShutdownErrorMessage = "daemon stopped before job ran"

var allStatuses = []Status{
	StatusWaiting,
	StatusActive,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status is final.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Options captures the per-job processing flags supplied at submission.
type Options struct {
	IncludeTranscript bool   `json:"include_transcript"`
	IncludeAnalysis   bool   `json:"include_analysis"`
	WebhookURL        string `json:"webhook_url,omitempty"`
	// Priority is accepted and surfaced but does not change dispatch order.
	Priority int `json:"priority,omitempty"`
}

// Payload is the immutable submission content of a job.
type Payload struct {
	URL     string  `json:"url"`
	Options Options `json:"options"`
}

// Job is the dispatcher's live record for one submission. Only the
// dispatcher goroutine mutates it; everyone else sees Snapshot copies.
type Job struct {
	ID              string
	Payload         Payload
	Status          Status
	Progress        float64
	ProgressStage   string
	ProgressMessage string
	Attempts        int
	MaxAttempts     int
	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	FailedAt        *time.Time
	Result          *Result
	LastError       string
}

// Snapshot is a point-in-time copy of a job handed out by Status and List.
// Progress is rounded to a whole percentage; the fractional band
// interpolation stays internal to the dispatcher.
type Snapshot struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	Options         Options    `json:"options"`
	Status          Status     `json:"status"`
	Progress        int        `json:"progress"`
	ProgressStage   string     `json:"progress_stage,omitempty"`
	ProgressMessage string     `json:"progress_message,omitempty"`
	Attempts        int        `json:"attempts"`
	MaxAttempts     int        `json:"max_attempts"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	FailedAt        *time.Time `json:"failed_at,omitempty"`
	Result          *Result    `json:"result,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
}

func (j *Job) snapshot() Snapshot {
	snap := Snapshot{
		ID:              j.ID,
		URL:             j.Payload.URL,
		Options:         j.Payload.Options,
		Status:          j.Status,
		Progress:        clampPercent(j.Progress),
		ProgressStage:   j.ProgressStage,
		ProgressMessage: j.ProgressMessage,
		Attempts:        j.Attempts,
		MaxAttempts:     j.MaxAttempts,
		CreatedAt:       j.CreatedAt,
		Result:          j.Result,
		LastError:       j.LastError,
	}
	snap.StartedAt = copyTime(j.StartedAt)
	snap.CompletedAt = copyTime(j.CompletedAt)
	snap.FailedAt = copyTime(j.FailedAt)
	return snap
}

func clampPercent(value float64) int {
	rounded := int(math.Round(value))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// Stats aggregates queue counts per lifecycle state. Completed and Failed
// include jobs already evicted from the live map.
type Stats struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// Receipt is returned by Submit.
type Receipt struct {
	JobID             string `json:"job_id"`
	Status            Status `json:"status"`
	EstimatedPosition int    `json:"estimated_position"`
}
