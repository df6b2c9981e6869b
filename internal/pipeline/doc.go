// Package pipeline orchestrates one processing attempt for a submitted URL:
// metadata lookup, media download, audio extraction, transcription, AI
// analysis, and result assembly, each reporting progress inside its own
// band. Transcription failures abort the attempt; analysis failures degrade
// the result instead of failing the job.
package pipeline
