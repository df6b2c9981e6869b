package pipeline

import (
	"strings"

	"clipsight/internal/queue"
	"clipsight/internal/services/llm"
	"clipsight/internal/services/whisper"
	"clipsight/internal/services/ytdlp"
)

// Assemble merges stage outputs into the job result. It is a pure function:
// absent transcript or analysis stay absent, nothing is synthesized.
func Assemble(media queue.MediaInfo, transcript *queue.Transcript, analysis *queue.AnalysisReport, processing queue.ProcessingInfo) *queue.Result {
	return &queue.Result{
		Media:      media,
		Transcript: transcript,
		Analysis:   analysis,
		Processing: processing,
	}
}

func mediaInfo(meta ytdlp.Metadata) queue.MediaInfo {
	return queue.MediaInfo{
		ID:              strings.TrimSpace(meta.ID),
		Title:           strings.TrimSpace(meta.Title),
		Creator:         meta.Creator(),
		DurationSeconds: int(meta.Duration),
		Platform:        strings.TrimSpace(meta.Extractor),
		UploadDate:      strings.TrimSpace(meta.UploadDate),
		ViewCount:       meta.ViewCount,
		LikeCount:       meta.LikeCount,
		WebpageURL:      strings.TrimSpace(meta.WebpageURL),
	}
}

func transcriptInfo(result whisper.Result) *queue.Transcript {
	segments := make([]queue.TranscriptSegment, 0, len(result.Segments))
	for _, segment := range result.Segments {
		segments = append(segments, queue.TranscriptSegment{
			Text:  segment.Text,
			Start: segment.Start,
			End:   segment.End,
		})
	}
	return &queue.Transcript{
		Text:     result.Text,
		Language: result.Language,
		Segments: segments,
	}
}

func analysisInfo(analysis *llm.Analysis) *queue.AnalysisReport {
	if analysis == nil {
		return nil
	}
	return &queue.AnalysisReport{
		Summary:     analysis.Summary,
		Topics:      analysis.Topics,
		Sentiment:   analysis.Sentiment,
		ContentType: analysis.ContentType,
		Keywords:    analysis.Keywords,
		KeyPoints:   analysis.KeyPoints,
	}
}

func degradedAnalysis(message string) *queue.AnalysisReport {
	return &queue.AnalysisReport{Error: message}
}
