//go:build portaudio
// +build portaudio

package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"voice-recorder/internal/application"
	"voice-recorder/internal/domain"
)

const framesPerBuffer = 1024

type Microphone struct {
	logger *slog.Logger
}

func NewMicrophone(logger *slog.Logger) *Microphone {
	return &Microphone{logger: logger}
}

func (m *Microphone) Name() string {
	return "microphone"
}

// Available reports whether portaudio initializes and exposes a default
// input device.
func (m *Microphone) Available() bool {
	if err := portaudio.Initialize(); err != nil {
		m.logger.Warn("initializing portaudio", "error", err)
		return false
	}
	defer portaudio.Terminate()

	dev, err := portaudio.DefaultInputDevice()
	if err != nil || dev == nil {
		m.logger.Warn("no default input device", "error", err)
		return false
	}
	return true
}

func (m *Microphone) RequestStream(ctx context.Context, c domain.Constraints) (application.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}

	stream, err := m.open(c)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	return stream, nil
}

func (m *Microphone) open(c domain.Constraints) (*micStream, error) {
	dev, err := portaudio.DefaultInputDevice()
	if err != nil || dev == nil {
		return nil, fmt.Errorf("default input device: %w", errors.Join(domain.ErrDeviceNotFound, err))
	}

	fallback := application.DefaultAudioFormat()
	channels := c.ChannelCount
	if channels <= 0 {
		channels = fallback.Channels
	}
	if channels > dev.MaxInputChannels {
		channels = dev.MaxInputChannels
	}
	sampleRate := c.SampleRate
	if sampleRate <= 0 {
		sampleRate = int(dev.DefaultSampleRate)
	}
	if sampleRate <= 0 {
		sampleRate = fallback.SampleRate
	}

	if c.EchoCancellation || c.NoiseSuppression || c.AutoGainControl {
		m.logger.Debug("input processing flags not supported by portaudio, capturing raw input",
			"echo_cancellation", c.EchoCancellation,
			"noise_suppression", c.NoiseSuppression,
			"auto_gain", c.AutoGainControl,
		)
	}

	buffer := make([]int16, framesPerBuffer*channels)
	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(sampleRate), framesPerBuffer, buffer)
	if err != nil {
		return nil, fmt.Errorf("opening stream: %w", classifyPortaudio(err))
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("starting stream: %w", classifyPortaudio(err))
	}

	m.logger.Info("microphone started", "device", dev.Name, "sampleRate", sampleRate, "channels", channels)

	return &micStream{
		stream: stream,
		buffer: buffer,
		format: application.AudioFormat{SampleRate: sampleRate, Channels: channels, BitDepth: fallback.BitDepth},
	}, nil
}

func classifyPortaudio(err error) error {
	switch {
	case errors.Is(err, portaudio.DeviceUnavailable):
		return errors.Join(domain.ErrPermissionDenied, err)
	case errors.Is(err, portaudio.InvalidDevice):
		return errors.Join(domain.ErrDeviceNotFound, err)
	default:
		return err
	}
}

// micStream serializes Read and Stop so tracks are never stopped while a
// blocking read is in flight.
type micStream struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	buffer  []int16
	format  application.AudioFormat
	stopped bool
}

func (s *micStream) Format() application.AudioFormat {
	return s.format
}

func (s *micStream) Read() ([]int16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, errors.New("stream stopped")
	}
	if err := s.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	frames := make([]int16, len(s.buffer))
	copy(frames, s.buffer)
	return frames, nil
}

func (s *micStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true

	stopErr := s.stream.Stop()
	closeErr := s.stream.Close()
	termErr := portaudio.Terminate()
	return errors.Join(stopErr, closeErr, termErr)
}
