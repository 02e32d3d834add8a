package application

import (
	"time"

	"voice-recorder/internal/domain"
)

type EncoderConfig struct {
	MimeType      string
	BitsPerSecond int
}

// EncoderHandlers are the encoder's event subscriptions. OnData receives
// chunks in capture order; OnStop fires exactly once after the final chunk;
// OnError, if it fires, precedes OnStop.
type EncoderHandlers struct {
	OnData  func(chunk []byte)
	OnStop  func()
	OnError func(err error)
}

type EncoderFactory interface {
	Available() bool
	IsSupported(mimeType string) bool
	NewEncoder(stream Stream, cfg EncoderConfig, handlers EncoderHandlers) (Encoder, error)
}

type Encoder interface {
	MimeType() string
	// Start begins emitting OnData every interval. Handlers must not be
	// invoked before Start returns.
	Start(interval time.Duration) error
	// Stop asks the encoder to finalize. It may deliver the remaining
	// callbacks synchronously or later; it never blocks on them.
	Stop() error
}

// ReferenceStore hands out playable references for finished artifacts.
type ReferenceStore interface {
	Create(artifact *domain.Artifact) (domain.Reference, error)
	Release(ref domain.Reference)
}

// SelectEncoding returns the first preference reported as supported, or
// fallback when none is. The fallback is not verified.
func SelectEncoding(preferences []string, supported func(string) bool, fallback string) string {
	for _, mimeType := range preferences {
		if supported(mimeType) {
			return mimeType
		}
	}
	return fallback
}

// DefaultPreferences is the ranked encoding list used when the config does
// not name one.
func DefaultPreferences() []string {
	return []string{
		"audio/webm;codecs=opus",
		"audio/webm",
		"audio/ogg;codecs=opus",
		"audio/ogg",
		"audio/wav",
		"audio/mp4",
		"audio/basic",
	}
}

const DefaultFallbackMimeType = "audio/wav"
