// Package whisper runs WhisperX (via uvx) to transcribe extracted audio and
// parses its JSON output into text plus timestamped segments.
package whisper
