package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxTranscriptChars bounds how much transcript text is sent to the model.
const maxTranscriptChars = 24000

// MediaContext is the metadata forwarded alongside the transcript so the
// model can ground its analysis.
type MediaContext struct {
	Title       string `json:"title,omitempty"`
	Creator     string `json:"creator,omitempty"`
	Duration    int    `json:"duration_seconds,omitempty"`
	Platform    string `json:"platform,omitempty"`
	Description string `json:"description,omitempty"`
}

// Analysis is the structured content analysis produced by the model.
type Analysis struct {
	Summary     string   `json:"summary"`
	Topics      []string `json:"topics"`
	Sentiment   string   `json:"sentiment"`
	ContentType string   `json:"content_type"`
	Keywords    []string `json:"keywords"`
	KeyPoints   []string `json:"key_points"`
}

// Analyze sends the transcript and media context to the model and parses the
// structured analysis from its JSON reply.
func (c *Client) Analyze(ctx context.Context, transcript string, media MediaContext) (*Analysis, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, fmt.Errorf("llm analyze: transcript required")
	}
	if len(transcript) > maxTranscriptChars {
		cut := maxTranscriptChars
		for cut > 0 && !utf8.RuneStart(transcript[cut]) {
			cut--
		}
		transcript = transcript[:cut]
	}

	contextJSON, err := json.Marshal(media)
	if err != nil {
		return nil, fmt.Errorf("llm analyze: encode media context: %w", err)
	}
	userPrompt := fmt.Sprintf("Media context:\n%s\n\nTranscript:\n%s", contextJSON, transcript)

	content, err := c.CompleteJSON(ctx, ContentAnalysisPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("llm analyze: %w", err)
	}

	var parsed Analysis
	if err := DecodeJSON(content, &parsed); err != nil {
		return nil, fmt.Errorf("llm analyze: parse payload: %w", err)
	}
	parsed.normalize()
	if parsed.Summary == "" {
		return nil, fmt.Errorf("llm analyze: payload missing summary")
	}
	return &parsed, nil
}

func (a *Analysis) normalize() {
	a.Summary = strings.TrimSpace(a.Summary)
	a.Sentiment = strings.ToLower(strings.TrimSpace(a.Sentiment))
	a.ContentType = strings.ToLower(strings.TrimSpace(a.ContentType))
	a.Topics = cleanList(a.Topics)
	a.Keywords = cleanList(a.Keywords)
	a.KeyPoints = cleanList(a.KeyPoints)
	switch a.Sentiment {
	case "positive", "negative", "neutral", "mixed":
	default:
		a.Sentiment = "neutral"
	}
}

func cleanList(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value != "" {
			cleaned = append(cleaned, value)
		}
	}
	return cleaned
}
