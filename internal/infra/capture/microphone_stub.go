//go:build !portaudio
// +build !portaudio

package capture

import (
	"context"
	"fmt"
	"log/slog"

	"voice-recorder/internal/application"
	"voice-recorder/internal/domain"
)

// Microphone stub when portaudio is not available
type Microphone struct {
	logger *slog.Logger
}

func NewMicrophone(logger *slog.Logger) *Microphone {
	return &Microphone{logger: logger}
}

func (m *Microphone) Name() string {
	return "microphone"
}

func (m *Microphone) Available() bool {
	return false
}

func (m *Microphone) RequestStream(_ context.Context, _ domain.Constraints) (application.Stream, error) {
	return nil, fmt.Errorf("microphone source not available: rebuild with -tags portaudio")
}
