// Package tts is the contract for streaming speech synthesis vendors.
package tts

import "context"

// Chunk is a piece of synthesized audio. Final marks the last chunk of
// the text passed to SendText.
type Chunk struct {
	Audio []byte
	Final bool
}

// StreamingTTS defines the contract for any TTS vendor implementation.
type StreamingTTS interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Start opens the vendor connection.
	Start(ctx context.Context) error
	// Close shuts the connection down.
	Close() error
	// SendText synthesizes one complete utterance.
	SendText(text string) error
	// Flush stops current synthesis and drops buffered audio.
	Flush()
	// Results delivers audio chunks.
	Results() <-chan Chunk
}

// Config contains vendor-agnostic TTS configuration.
type Config struct {
	SessionID  string
	SampleRate int
	// Format is the vendor output format, e.g. "ulaw_8000" for phone calls.
	Format string
}

// Factory opens a synthesizer for one session.
type Factory func(cfg Config) (StreamingTTS, error)
