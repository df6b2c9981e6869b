// Package llm implements the OpenRouter-compatible chat-completion client
// used to turn transcripts into structured content analyses.
package llm
