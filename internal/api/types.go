package api

import (
	"clipsight/internal/queue"
)

// SubmitRequest is the body of POST /api/jobs.
type SubmitRequest struct {
	URL     string        `json:"url"`
	Options SubmitOptions `json:"options"`
}

// SubmitOptions mirrors the per-job processing flags.
type SubmitOptions struct {
	IncludeTranscript bool   `json:"include_transcript"`
	IncludeAnalysis   bool   `json:"include_analysis"`
	WebhookURL        string `json:"webhook_url,omitempty"`
	Priority          int    `json:"priority,omitempty"`
}

// SubmitResponse acknowledges an admitted job.
type SubmitResponse struct {
	JobID             string `json:"job_id"`
	Status            string `json:"status"`
	EstimatedPosition int    `json:"estimated_position"`
}

// JobResponse wraps a single job snapshot.
type JobResponse struct {
	Job queue.Snapshot `json:"job"`
}

// JobListResponse wraps the live queue view.
type JobListResponse struct {
	Jobs []queue.Snapshot `json:"jobs"`
}

// CancelRequest is the optional body of POST /api/jobs/{id}/cancel.
type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CancelResponse reports the cancel outcome. Removed is false when the job
// was already active and only an acknowledgment was recorded.
type CancelResponse struct {
	JobID   string `json:"job_id"`
	Removed bool   `json:"removed"`
	Status  string `json:"status"`
}

// StatsResponse wraps aggregate queue counts.
type StatsResponse struct {
	Stats queue.Stats `json:"stats"`
}

// HealthCheck is one preflight result.
type HealthCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// HealthResponse summarizes daemon health.
type HealthResponse struct {
	Healthy bool          `json:"healthy"`
	Checks  []HealthCheck `json:"checks"`
	Stats   queue.Stats   `json:"stats"`
}

// ErrorResponse carries a human-readable error message.
type ErrorResponse struct {
	Error string `json:"error"`
}
