package capture

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"voice-recorder/internal/application"
	"voice-recorder/internal/domain"
)

const fileFramesPerRead = 1024

// FileProvider replays a PCM16 WAV file as if it were a live microphone.
// When path is a directory the first .wav file in it is used.
type FileProvider struct {
	path   string
	loop   bool
	logger *slog.Logger

	// Realtime paces reads at the file's sample rate. Disable it to read as
	// fast as the consumer pulls.
	Realtime bool
}

func NewFileProvider(path string, loop bool, logger *slog.Logger) *FileProvider {
	return &FileProvider{
		path:     path,
		loop:     loop,
		logger:   logger,
		Realtime: true,
	}
}

func (f *FileProvider) Name() string {
	return "file"
}

func (f *FileProvider) Available() bool {
	return f.path != ""
}

func (f *FileProvider) RequestStream(ctx context.Context, c domain.Constraints) (application.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := f.resolve()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, classifyFileError(err))
	}

	format, samples, err := decodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	if c.SampleRate != 0 && c.SampleRate != format.SampleRate {
		f.logger.Debug("file sample rate differs from requested", "file", format.SampleRate, "requested", c.SampleRate)
	}
	f.logger.Info("file capture started", "path", path, "sampleRate", format.SampleRate, "channels", format.Channels)

	s := &fileStream{
		format:  format,
		samples: samples,
		loop:    f.loop,
		stopped: make(chan struct{}),
	}
	if f.Realtime {
		perRead := time.Duration(fileFramesPerRead) * time.Second / time.Duration(format.SampleRate)
		s.ticker = time.NewTicker(perRead)
	}
	return s, nil
}

func (f *FileProvider) resolve() (string, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", f.path, classifyFileError(err))
	}
	if !info.IsDir() {
		return f.path, nil
	}

	entries, err := os.ReadDir(f.path)
	if err != nil {
		return "", fmt.Errorf("reading dir: %w", classifyFileError(err))
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no .wav files in %s: %w", f.path, domain.ErrDeviceNotFound)
	}
	sort.Strings(names)
	return filepath.Join(f.path, names[0]), nil
}

func classifyFileError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return errors.Join(domain.ErrDeviceNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return errors.Join(domain.ErrPermissionDenied, err)
	default:
		return err
	}
}

type fileStream struct {
	format  application.AudioFormat
	samples []int16
	loop    bool
	ticker  *time.Ticker

	mu       sync.Mutex
	pos      int
	stopOnce sync.Once
	stopped  chan struct{}
}

func (s *fileStream) Format() application.AudioFormat {
	return s.format
}

func (s *fileStream) Read() ([]int16, error) {
	if s.ticker != nil {
		select {
		case <-s.stopped:
			return nil, io.EOF
		case <-s.ticker.C:
		}
	} else {
		select {
		case <-s.stopped:
			return nil, io.EOF
		default:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pos >= len(s.samples) {
		if !s.loop || len(s.samples) == 0 {
			return nil, io.EOF
		}
		s.pos = 0
	}

	end := s.pos + fileFramesPerRead*s.format.Channels
	if end > len(s.samples) {
		end = len(s.samples)
	}
	frames := make([]int16, end-s.pos)
	copy(frames, s.samples[s.pos:end])
	s.pos = end
	return frames, nil
}

func (s *fileStream) Stop() error {
	s.stopOnce.Do(func() {
		close(s.stopped)
		if s.ticker != nil {
			s.ticker.Stop()
		}
	})
	return nil
}

// decodeWAV extracts interleaved samples from a 16-bit PCM RIFF/WAVE file.
func decodeWAV(data []byte) (application.AudioFormat, []int16, error) {
	var format application.AudioFormat
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return format, nil, errors.New("not a RIFF/WAVE file")
	}

	var pcm []byte
	haveFormat := false
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		end := body + size
		if size < 0 || end > len(data) {
			end = len(data)
		}

		switch id {
		case "fmt ":
			if end-body < 16 {
				return format, nil, errors.New("short fmt chunk")
			}
			audioFormat := binary.LittleEndian.Uint16(data[body:])
			if audioFormat != 1 {
				return format, nil, fmt.Errorf("unsupported wav encoding %d", audioFormat)
			}
			format.Channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			format.SampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			format.BitDepth = int(binary.LittleEndian.Uint16(data[body+14:]))
			haveFormat = true
		case "data":
			pcm = data[body:end]
		}

		offset = end + (end-body)%2
	}

	if !haveFormat {
		return format, nil, errors.New("missing fmt chunk")
	}
	if format.BitDepth != 16 {
		return format, nil, fmt.Errorf("unsupported bit depth %d", format.BitDepth)
	}
	if format.Channels <= 0 || format.SampleRate <= 0 {
		return format, nil, errors.New("invalid wav format")
	}

	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return format, samples, nil
}
