package encoder

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"

	"voice-recorder/internal/application"
)

var ErrUnsupportedMimeType = errors.New("unsupported mime type")

type format struct {
	codecs   []string
	newCodec func() codec
}

var formats = map[string]format{
	"audio/wav":          {codecs: []string{"1", "pcm"}, newCodec: newWAVCodec},
	"audio/wave":         {codecs: []string{"1", "pcm"}, newCodec: newWAVCodec},
	"audio/x-wav":        {codecs: []string{"1", "pcm"}, newCodec: newWAVCodec},
	"audio/basic":        {codecs: []string{"ulaw", "mulaw", "pcmu"}, newCodec: newULawCodec},
	"audio/x-alaw-basic": {codecs: []string{"alaw", "pcma"}, newCodec: newALawCodec},
}

// Factory builds encoders for the formats this package can produce without
// native libraries.
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	return &Factory{logger: logger}
}

func (f *Factory) Available() bool {
	return true
}

func (f *Factory) IsSupported(mimeType string) bool {
	_, ok := lookup(mimeType)
	return ok
}

func (f *Factory) NewEncoder(stream application.Stream, cfg application.EncoderConfig, handlers application.EncoderHandlers) (application.Encoder, error) {
	fm, ok := lookup(cfg.MimeType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMimeType, cfg.MimeType)
	}
	if handlers.OnData == nil || handlers.OnStop == nil {
		return nil, errors.New("encoder handlers: OnData and OnStop are required")
	}

	audioFormat := stream.Format()
	if audioFormat.BitDepth != 0 && audioFormat.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d", audioFormat.BitDepth)
	}
	if audioFormat.SampleRate <= 0 || audioFormat.Channels <= 0 {
		return nil, fmt.Errorf("invalid stream format: %d Hz, %d channels", audioFormat.SampleRate, audioFormat.Channels)
	}

	f.logger.Debug("creating encoder",
		"mime_type", cfg.MimeType,
		"requested_bps", cfg.BitsPerSecond,
		"sample_rate", audioFormat.SampleRate,
	)

	return newStreamEncoder(stream, cfg.MimeType, fm.newCodec(), handlers, f.logger), nil
}

func lookup(mimeType string) (format, bool) {
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return format{}, false
	}

	fm, ok := formats[mediaType]
	if !ok {
		return format{}, false
	}

	if codecs := params["codecs"]; codecs != "" {
		for _, c := range strings.Split(codecs, ",") {
			if !contains(fm.codecs, strings.ToLower(strings.TrimSpace(c))) {
				return format{}, false
			}
		}
	}
	return fm, true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
