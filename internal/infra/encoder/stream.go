package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"voice-recorder/internal/application"
)

type codec interface {
	header(f application.AudioFormat) []byte
	encode(dst *bytes.Buffer, frames []int16)
}

// streamEncoder pulls frames from the stream on its own goroutine and hands
// the encoded bytes to OnData once per interval.
type streamEncoder struct {
	stream   application.Stream
	mimeType string
	codec    codec
	handlers application.EncoderHandlers
	logger   *slog.Logger

	mu      sync.Mutex
	started bool

	pending  bytes.Buffer
	stop     chan struct{}
	stopOnce sync.Once
}

func newStreamEncoder(stream application.Stream, mimeType string, c codec, handlers application.EncoderHandlers, logger *slog.Logger) *streamEncoder {
	return &streamEncoder{
		stream:   stream,
		mimeType: mimeType,
		codec:    c,
		handlers: handlers,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

func (e *streamEncoder) MimeType() string {
	return e.mimeType
}

func (e *streamEncoder) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid emission interval %s", interval)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return errors.New("encoder already started")
	}
	e.started = true

	e.pending.Write(e.codec.header(e.stream.Format()))
	go e.run(interval)
	return nil
}

func (e *streamEncoder) Stop() error {
	e.stopOnce.Do(func() {
		close(e.stop)
	})
	return nil
}

func (e *streamEncoder) run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			e.finish(nil)
			return
		case <-ticker.C:
			e.flush()
		default:
		}

		frames, err := e.stream.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				e.logger.Debug("capture stream ended")
				e.finish(nil)
			} else {
				e.finish(fmt.Errorf("reading capture stream: %w", err))
			}
			return
		}
		e.codec.encode(&e.pending, frames)
	}
}

func (e *streamEncoder) flush() {
	if e.pending.Len() == 0 {
		return
	}
	chunk := make([]byte, e.pending.Len())
	copy(chunk, e.pending.Bytes())
	e.pending.Reset()
	e.handlers.OnData(chunk)
}

func (e *streamEncoder) finish(err error) {
	e.flush()
	if err != nil && e.handlers.OnError != nil {
		e.handlers.OnError(err)
	}
	e.handlers.OnStop()
}
