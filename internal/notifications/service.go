package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipsight/internal/config"
	"clipsight/internal/queue"
)

const userAgent = "Clipsight/0.1.0"

// EventJobCompleted is the event name sent when a job finishes processing.
const EventJobCompleted = "video_processing_completed"

// Service delivers completion webhooks to the URL a job was submitted with.
type Service interface {
	JobCompleted(ctx context.Context, webhookURL, jobID string, result *queue.Result) error
}

// NewService builds the webhook notifier. When webhooks are disabled a noop
// implementation is returned.
func NewService(cfg *config.Config) Service {
	timeout := time.Duration(cfg.Webhooks.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &webhookService{
		client: &http.Client{Timeout: timeout},
	}
}

// Event is the webhook request body.
type Event struct {
	Event     string        `json:"event"`
	JobID     string        `json:"job_id"`
	Timestamp time.Time     `json:"timestamp"`
	Data      *queue.Result `json:"data,omitempty"`
}

type webhookService struct {
	client *http.Client
}

func (w *webhookService) JobCompleted(ctx context.Context, webhookURL, jobID string, result *queue.Result) error {
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL == "" {
		return nil
	}
	event := Event{
		Event:     EventJobCompleted,
		JobID:     jobID,
		Timestamp: time.Now().UTC(),
		Data:      result,
	}
	return w.send(ctx, webhookURL, event)
}

func (w *webhookService) send(ctx context.Context, endpoint string, event Event) error {
	if w == nil || w.client == nil {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(tail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// NewNoop returns a notifier that drops every event.
func NewNoop() Service {
	return noopService{}
}

type noopService struct{}

func (noopService) JobCompleted(context.Context, string, string, *queue.Result) error { return nil }
