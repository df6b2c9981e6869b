package api

import (
	"clipsight/internal/preflight"
	"clipsight/internal/queue"
)

// ToPayload converts a submit request into the queue's payload.
func ToPayload(req SubmitRequest) queue.Payload {
	return queue.Payload{
		URL: req.URL,
		Options: queue.Options{
			IncludeTranscript: req.Options.IncludeTranscript,
			IncludeAnalysis:   req.Options.IncludeAnalysis,
			WebhookURL:        req.Options.WebhookURL,
			Priority:          req.Options.Priority,
		},
	}
}

// FromReceipt converts a queue receipt into the submit response.
func FromReceipt(receipt queue.Receipt) SubmitResponse {
	return SubmitResponse{
		JobID:             receipt.JobID,
		Status:            string(receipt.Status),
		EstimatedPosition: receipt.EstimatedPosition,
	}
}

// FromPreflight converts preflight results into health checks.
func FromPreflight(results []preflight.Result) []HealthCheck {
	checks := make([]HealthCheck, 0, len(results))
	for _, result := range results {
		checks = append(checks, HealthCheck{
			Name:   result.Name,
			Passed: result.Passed,
			Detail: result.Detail,
		})
	}
	return checks
}
