// Package stt is the contract for streaming speech recognition vendors.
package stt

import "context"

// Transcript is one recognition result. Final marks a settled segment;
// EndOfSpeech marks the end of the utterance the segments belong to.
type Transcript struct {
	Text        string
	Final       bool
	EndOfSpeech bool
}

// StreamingSTT defines the contract for any STT vendor implementation.
type StreamingSTT interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Start opens the vendor connection.
	Start(ctx context.Context) error
	// Close shuts the connection down and closes Results.
	Close() error
	// SendAudio forwards one chunk of caller audio.
	SendAudio(chunk []byte) error
	// Results delivers transcripts in arrival order.
	Results() <-chan Transcript
}

// Config contains vendor-agnostic STT configuration.
type Config struct {
	SessionID  string
	SampleRate int
	Encoding   string
	Language   string
}

// Factory opens a recognizer for one session.
type Factory func(cfg Config) (StreamingSTT, error)
