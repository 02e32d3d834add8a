package application

import (
	"context"
	"time"

	"voice-recorder/internal/domain"
)

// CaptureProvider grants access to a live microphone stream.
type CaptureProvider interface {
	Available() bool
	// RequestStream may block for as long as the environment needs to
	// resolve access; cancel ctx to give up.
	RequestStream(ctx context.Context, constraints domain.Constraints) (Stream, error)
}

// Stream is a live capture stream delivering interleaved 16-bit frames.
type Stream interface {
	Format() AudioFormat
	Read() ([]int16, error)
	// Stop stops every track of the stream. Safe to call more than once.
	Stop() error
}

type AudioFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

func DefaultAudioFormat() AudioFormat {
	return AudioFormat{
		SampleRate: 44100,
		Channels:   1,
		BitDepth:   16,
	}
}

// Clock schedules the controller's elapsed-time tick.
type Clock interface {
	Every(d time.Duration, fn func()) (stop func())
}
