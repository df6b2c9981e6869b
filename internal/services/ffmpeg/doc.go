// Package ffmpeg extracts normalized audio from downloaded media. The output
// is always mono 16 kHz 16-bit PCM, the format the transcription engine
// expects.
package ffmpeg
