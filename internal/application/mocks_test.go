package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"voice-recorder/internal/application"
	"voice-recorder/internal/domain"
)

var errTest = errors.New("test failure")

type mockStream struct {
	mu    sync.Mutex
	stops int
}

func (m *mockStream) Format() application.AudioFormat { return application.DefaultAudioFormat() }
func (m *mockStream) Read() ([]int16, error)          { return nil, errors.New("mock stream is not readable") }

func (m *mockStream) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	return nil
}

func (m *mockStream) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops > 0
}

type mockCapture struct {
	available bool
	err       error
	// gate, when set, holds RequestStream until it is closed.
	gate chan struct{}

	mu          sync.Mutex
	requests    int
	constraints []domain.Constraints
	streams     []*mockStream
}

func (m *mockCapture) Available() bool { return m.available }

func (m *mockCapture) RequestStream(ctx context.Context, c domain.Constraints) (application.Stream, error) {
	m.mu.Lock()
	m.requests++
	m.constraints = append(m.constraints, c)
	m.mu.Unlock()

	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}

	s := &mockStream{}
	m.mu.Lock()
	m.streams = append(m.streams, s)
	m.mu.Unlock()
	return s, nil
}

func (m *mockCapture) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

func (m *mockCapture) Stream(i int) *mockStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streams[i]
}

type mockEncoder struct {
	mimeType string
	handlers application.EncoderHandlers
	startErr error
	// stopSync makes Stop deliver OnStop before returning.
	stopSync bool

	mu       sync.Mutex
	interval time.Duration
	stops    int
}

func (m *mockEncoder) MimeType() string { return m.mimeType }

func (m *mockEncoder) Start(interval time.Duration) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.mu.Lock()
	m.interval = interval
	m.mu.Unlock()
	return nil
}

func (m *mockEncoder) Stop() error {
	m.mu.Lock()
	m.stops++
	first := m.stops == 1
	m.mu.Unlock()

	if m.stopSync && first {
		m.handlers.OnStop()
	}
	return nil
}

func (m *mockEncoder) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

func (m *mockEncoder) Emit(chunk string) { m.handlers.OnData([]byte(chunk)) }
func (m *mockEncoder) Finish()           { m.handlers.OnStop() }
func (m *mockEncoder) Fail(err error)    { m.handlers.OnError(err) }

type mockEncoderFactory struct {
	available bool
	supported map[string]bool
	newErr    error
	startErr  error
	stopSync  bool

	mu       sync.Mutex
	configs  []application.EncoderConfig
	encoders []*mockEncoder
}

func (m *mockEncoderFactory) Available() bool { return m.available }

func (m *mockEncoderFactory) IsSupported(mimeType string) bool { return m.supported[mimeType] }

func (m *mockEncoderFactory) NewEncoder(_ application.Stream, cfg application.EncoderConfig, handlers application.EncoderHandlers) (application.Encoder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.configs = append(m.configs, cfg)
	if m.newErr != nil {
		return nil, m.newErr
	}
	enc := &mockEncoder{
		mimeType: cfg.MimeType,
		handlers: handlers,
		startErr: m.startErr,
		stopSync: m.stopSync,
	}
	m.encoders = append(m.encoders, enc)
	return enc, nil
}

func (m *mockEncoderFactory) Encoder(i int) *mockEncoder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.encoders[i]
}

func (m *mockEncoderFactory) Created() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.encoders)
}

type mockReferences struct {
	createErr error

	mu       sync.Mutex
	next     int
	live     map[domain.Reference]*domain.Artifact
	released []domain.Reference
}

func newMockReferences() *mockReferences {
	return &mockReferences{live: make(map[domain.Reference]*domain.Artifact)}
}

func (m *mockReferences) Create(artifact *domain.Artifact) (domain.Reference, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	ref := domain.Reference(fmt.Sprintf("blob:mock-%d", m.next))
	m.live[ref] = artifact
	return ref, nil
}

func (m *mockReferences) Release(ref domain.Reference) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, ref)
	m.released = append(m.released, ref)
}

func (m *mockReferences) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}
