package application

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"voice-recorder/internal/domain"
)

type Options struct {
	Constraints   domain.Constraints
	Preferences   []string
	Fallback      string
	BitsPerSecond int
	// Timeslice is the encoder's data emission interval.
	Timeslice time.Duration
}

func DefaultOptions() Options {
	return Options{
		Constraints: domain.Constraints{
			EchoCancellation: true,
			NoiseSuppression: true,
			AutoGainControl:  true,
			SampleRate:       44100,
			ChannelCount:     1,
		},
		Preferences:   DefaultPreferences(),
		Fallback:      DefaultFallbackMimeType,
		BitsPerSecond: 128000,
		Timeslice:     100 * time.Millisecond,
	}
}

type Option func(*Recorder)

func WithOptions(opts Options) Option {
	return func(r *Recorder) {
		if len(opts.Preferences) == 0 {
			opts.Preferences = DefaultPreferences()
		}
		if opts.Fallback == "" {
			opts.Fallback = DefaultFallbackMimeType
		}
		if opts.Timeslice <= 0 {
			opts.Timeslice = 100 * time.Millisecond
		}
		r.options = opts
	}
}

// WithObserver registers fn to receive a snapshot after every state change.
// fn runs while the recorder is locked and must not call back into it.
func WithObserver(fn func(domain.Snapshot)) Option {
	return func(r *Recorder) {
		r.observer = fn
	}
}

// Recorder owns one recording session at a time: the capture stream, the
// encoder, the elapsed-time clock and the artifact reference. Every
// operation and encoder callback is applied atomically under mu.
type Recorder struct {
	capture  CaptureProvider
	encoders EncoderFactory
	refs     ReferenceStore
	clock    Clock
	logger   *slog.Logger
	options  Options
	observer func(domain.Snapshot)

	mu        sync.Mutex
	changed   chan struct{}
	supported bool
	status    domain.Status
	elapsed   int
	chunks    [][]byte
	artifact  *domain.Artifact
	reference domain.Reference
	lastErr   *domain.RecordingError

	session  uint64
	stream   Stream
	encoder  Encoder
	mimeType string
	stopTick func()
	stopping bool
	failed   bool
	torndown bool
}

func NewRecorder(
	capture CaptureProvider,
	encoders EncoderFactory,
	refs ReferenceStore,
	clock Clock,
	logger *slog.Logger,
	opts ...Option,
) *Recorder {
	r := &Recorder{
		capture:  capture,
		encoders: encoders,
		refs:     refs,
		clock:    clock,
		logger:   logger,
		options:  DefaultOptions(),
		changed:  make(chan struct{}),
		status:   domain.StatusIdle,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.supported = capture.Available() && encoders.Available()
	if !r.supported {
		r.lastErr = domain.NewUnsupportedError(domain.MessageUnsupportedEnvironment)
		r.logger.Warn("audio recording not supported in this environment")
	}
	return r
}

func (r *Recorder) Supported() bool {
	return r.supported
}

// Start requests a capture stream and begins recording. It blocks until the
// capture provider resolves the request. Failures are recorded on the
// session, never returned.
func (r *Recorder) Start(ctx context.Context) {
	r.mu.Lock()
	if r.torndown {
		r.mu.Unlock()
		r.logger.Warn("start ignored, recorder torn down")
		return
	}
	if !r.supported {
		r.lastErr = domain.NewUnsupportedError(domain.MessageUnsupported)
		r.notifyLocked()
		r.mu.Unlock()
		return
	}
	if status := r.status; status == domain.StatusRequesting || status == domain.StatusRecording {
		r.mu.Unlock()
		r.logger.Warn("start ignored, recording already in progress", "status", status)
		return
	}

	r.releaseReferenceLocked()
	r.artifact = nil
	r.lastErr = nil
	r.chunks = nil
	r.elapsed = 0
	r.failed = false
	r.stopping = false
	r.session++
	session := r.session
	r.status = domain.StatusRequesting
	r.notifyLocked()
	constraints := r.options.Constraints
	r.mu.Unlock()

	stream, err := r.capture.RequestStream(ctx, constraints)

	r.mu.Lock()
	unstarted := r.beginRecordingLocked(session, stream, err)
	r.mu.Unlock()

	r.stopEncoder(unstarted)
}

// beginRecordingLocked applies the outcome of a stream request. It returns
// an encoder that was built but failed to start; the caller must stop it
// once the lock is released.
func (r *Recorder) beginRecordingLocked(session uint64, stream Stream, err error) Encoder {
	if r.torndown || session != r.session {
		if err == nil {
			if stopErr := stream.Stop(); stopErr != nil {
				r.logger.Warn("stopping orphaned stream", "error", stopErr)
			}
		}
		return nil
	}

	if err != nil {
		r.lastErr = domain.ClassifyAcquisitionError(err)
		r.status = domain.StatusErrored
		r.logger.Error("acquiring capture stream", "error", err, "kind", r.lastErr.Kind)
		r.notifyLocked()
		return nil
	}
	r.stream = stream

	mimeType := SelectEncoding(r.options.Preferences, r.encoders.IsSupported, r.options.Fallback)
	enc, err := r.encoders.NewEncoder(stream, EncoderConfig{
		MimeType:      mimeType,
		BitsPerSecond: r.options.BitsPerSecond,
	}, r.handlers(session))
	if err != nil {
		r.failLocked(fmt.Errorf("creating %s encoder: %w", mimeType, err))
		return nil
	}
	if err := enc.Start(r.options.Timeslice); err != nil {
		r.failLocked(fmt.Errorf("starting %s encoder: %w", mimeType, err))
		return enc
	}

	r.encoder = enc
	r.mimeType = enc.MimeType()
	r.elapsed = 0
	r.status = domain.StatusRecording
	r.stopTick = r.clock.Every(time.Second, func() { r.tick(session) })

	format := stream.Format()
	r.logger.Info("recording started",
		"mime_type", r.mimeType,
		"sample_rate", format.SampleRate,
		"channels", format.Channels,
	)
	r.notifyLocked()
	return nil
}

// Stop asks the encoder to finalize. The transition to Stopped happens when
// the encoder reports it has stopped. Calling Stop outside Recording does
// nothing.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.status != domain.StatusRecording || r.stopping {
		r.mu.Unlock()
		return
	}
	enc := r.beginStopLocked()
	r.mu.Unlock()

	r.stopEncoder(enc)
}

// Discard drops a finished or failed session and returns to Idle.
func (r *Recorder) Discard() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != domain.StatusStopped && r.status != domain.StatusErrored {
		return
	}
	r.releaseReferenceLocked()
	r.artifact = nil
	r.chunks = nil
	r.lastErr = nil
	r.elapsed = 0
	r.failed = false
	r.status = domain.StatusIdle
	r.notifyLocked()
}

// Teardown stops any recording in progress and releases every resource the
// recorder holds. Later calls to any operation are ignored.
func (r *Recorder) Teardown() {
	r.mu.Lock()
	if r.torndown {
		r.mu.Unlock()
		return
	}

	var enc Encoder
	if r.status == domain.StatusRecording && !r.stopping {
		enc = r.encoder
	}
	r.torndown = true
	r.cancelTickLocked()
	r.releaseStreamLocked()
	r.releaseReferenceLocked()
	r.artifact = nil
	r.chunks = nil
	r.encoder = nil
	r.stopping = false
	r.elapsed = 0
	r.status = domain.StatusIdle
	r.notifyLocked()
	r.mu.Unlock()

	r.stopEncoder(enc)
	r.logger.Debug("recorder torn down")
}

func (r *Recorder) Snapshot() domain.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Await blocks until cond holds for the current snapshot or ctx is done.
func (r *Recorder) Await(ctx context.Context, cond func(domain.Snapshot) bool) (domain.Snapshot, error) {
	for {
		r.mu.Lock()
		snap := r.snapshotLocked()
		changed := r.changed
		r.mu.Unlock()

		if cond(snap) {
			return snap, nil
		}

		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-changed:
		}
	}
}

func (r *Recorder) handlers(session uint64) EncoderHandlers {
	return EncoderHandlers{
		OnData:  func(chunk []byte) { r.onData(session, chunk) },
		OnStop:  func() { r.onStop(session) },
		OnError: func(err error) { r.onError(session, err) },
	}
}

func (r *Recorder) onData(session uint64, chunk []byte) {
	if len(chunk) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.currentLocked(session) {
		return
	}
	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	r.chunks = append(r.chunks, buf)
}

func (r *Recorder) onError(session uint64, err error) {
	r.mu.Lock()
	if !r.currentLocked(session) {
		r.mu.Unlock()
		return
	}

	r.lastErr = domain.ClassifyEncodingError(err)
	r.failed = true
	r.logger.Error("encoder failed", "error", err)

	var enc Encoder
	if !r.stopping {
		enc = r.beginStopLocked()
	}
	r.notifyLocked()
	r.mu.Unlock()

	r.stopEncoder(enc)
}

func (r *Recorder) onStop(session uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.currentLocked(session) {
		return
	}

	r.cancelTickLocked()
	r.releaseStreamLocked()
	r.encoder = nil
	r.stopping = false

	if r.failed {
		r.status = domain.StatusErrored
		r.notifyLocked()
		return
	}

	artifact := &domain.Artifact{
		Data:      bytes.Join(r.chunks, nil),
		MimeType:  r.mimeType,
		CreatedAt: time.Now(),
		Duration:  r.elapsed,
	}
	ref, err := r.refs.Create(artifact)
	if err != nil {
		r.lastErr = domain.ClassifyEncodingError(fmt.Errorf("creating reference: %w", err))
		r.status = domain.StatusErrored
		r.logger.Error("creating artifact reference", "error", err)
		r.notifyLocked()
		return
	}

	r.artifact = artifact
	r.reference = ref
	r.status = domain.StatusStopped
	r.logger.Info("recording stopped",
		"bytes", artifact.Size(),
		"chunks", len(r.chunks),
		"seconds", r.elapsed,
	)
	r.notifyLocked()
}

func (r *Recorder) tick(session uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.currentLocked(session) || r.stopping {
		return
	}
	r.elapsed++
	r.notifyLocked()
}

// currentLocked reports whether a callback bound to session may still act.
func (r *Recorder) currentLocked(session uint64) bool {
	return !r.torndown && session == r.session && r.status == domain.StatusRecording
}

func (r *Recorder) beginStopLocked() Encoder {
	r.stopping = true
	r.cancelTickLocked()
	return r.encoder
}

func (r *Recorder) stopEncoder(enc Encoder) {
	if enc == nil {
		return
	}
	if err := enc.Stop(); err != nil {
		r.logger.Warn("stopping encoder", "error", err)
	}
}

func (r *Recorder) failLocked(err error) {
	r.lastErr = domain.ClassifyEncodingError(err)
	r.status = domain.StatusErrored
	r.releaseStreamLocked()
	r.encoder = nil
	r.logger.Error("starting encoder", "error", err)
	r.notifyLocked()
}

func (r *Recorder) cancelTickLocked() {
	if r.stopTick != nil {
		r.stopTick()
		r.stopTick = nil
	}
}

func (r *Recorder) releaseStreamLocked() {
	if r.stream == nil {
		return
	}
	if err := r.stream.Stop(); err != nil {
		r.logger.Warn("stopping capture stream", "error", err)
	}
	r.stream = nil
}

func (r *Recorder) releaseReferenceLocked() {
	if r.reference.IsZero() {
		return
	}
	r.refs.Release(r.reference)
	r.reference = ""
}

func (r *Recorder) notifyLocked() {
	close(r.changed)
	r.changed = make(chan struct{})
	if r.observer != nil {
		r.observer(r.snapshotLocked())
	}
}

func (r *Recorder) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Status:         r.status,
		Recording:      r.status == domain.StatusRecording,
		HasRecording:   r.artifact != nil,
		ElapsedSeconds: r.elapsed,
		Reference:      r.reference,
		Artifact:       r.artifact,
		Supported:      r.supported,
		Error:          r.lastErr,
		ChunkCount:     len(r.chunks),
	}
}
