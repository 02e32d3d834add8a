package audioutil_test

import (
	"testing"
	"time"

	"voice-recorder/internal/audioutil"
	"voice-recorder/internal/domain"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{5, "0:05"},
		{59, "0:59"},
		{60, "1:00"},
		{125, "2:05"},
		{3600, "60:00"},
		{-3, "0:00"},
	}

	for _, tt := range tests {
		if got := audioutil.FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFileExtension(t *testing.T) {
	tests := []struct {
		mimeType string
		want     string
	}{
		{"audio/webm;codecs=opus", "webm"},
		{"audio/ogg", "ogg"},
		{"audio/wav", "wav"},
		{"audio/x-wav", "wav"},
		{"audio/mp4", "m4a"},
		{"audio/mpeg", "mp3"},
		{"audio/basic", "au"},
		{"audio/x-alaw-basic", "au"},
		{"video/unknown", "webm"},
		{"", "webm"},
	}

	for _, tt := range tests {
		if got := audioutil.FileExtension(tt.mimeType); got != tt.want {
			t.Errorf("FileExtension(%q) = %q, want %q", tt.mimeType, got, tt.want)
		}
	}
}

func TestGenerateFilename(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 123_000_000, time.UTC)

	got := audioutil.GenerateFilename("Door Bell!", "audio/wav", now)
	want := "door_bell__2024-03-09T14-05-07-123Z.wav"
	if got != want {
		t.Errorf("GenerateFilename = %q, want %q", got, want)
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1_048_576, "1 MB"},
		{5_000_000, "4.77 MB"},
		{3 * 1 << 30, "3 GB"},
		{5 * 1 << 40, "5120 GB"},
	}

	for _, tt := range tests {
		if got := audioutil.FormatFileSize(tt.size); got != tt.want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestEstimateFileSize(t *testing.T) {
	if got := audioutil.EstimateFileSize(10, domain.QualityLow); got != 80000 {
		t.Errorf("low: got %d, want 80000", got)
	}
	if got := audioutil.EstimateFileSize(10, domain.QualityMedium); got != 160000 {
		t.Errorf("medium: got %d, want 160000", got)
	}
	if got := audioutil.EstimateFileSize(1, domain.QualityHigh); got != 32000 {
		t.Errorf("high: got %d, want 32000", got)
	}
}

func TestConstraints(t *testing.T) {
	tests := []struct {
		quality  domain.Quality
		rate     int
		channels int
	}{
		{domain.QualityLow, 22050, 1},
		{domain.QualityMedium, 44100, 1},
		{domain.QualityHigh, 48000, 2},
		{"", 44100, 1},
	}

	for _, tt := range tests {
		c := audioutil.Constraints(tt.quality)
		if c.SampleRate != tt.rate || c.ChannelCount != tt.channels {
			t.Errorf("Constraints(%q) = %d/%d, want %d/%d", tt.quality, c.SampleRate, c.ChannelCount, tt.rate, tt.channels)
		}
		if !c.EchoCancellation || !c.NoiseSuppression || !c.AutoGainControl {
			t.Errorf("Constraints(%q) should enable every processing flag", tt.quality)
		}
	}
}

func TestParseQuality(t *testing.T) {
	if q, err := audioutil.ParseQuality("HIGH"); err != nil || q != domain.QualityHigh {
		t.Errorf("ParseQuality(HIGH) = %q, %v", q, err)
	}
	if q, err := audioutil.ParseQuality(""); err != nil || q != domain.QualityMedium {
		t.Errorf("ParseQuality(\"\") = %q, %v", q, err)
	}
	if _, err := audioutil.ParseQuality("ultra"); err == nil {
		t.Error("expected error for unknown quality")
	}
}

func TestEncodeBase64(t *testing.T) {
	artifact := &domain.Artifact{Data: []byte("hello")}
	if got := audioutil.EncodeBase64(artifact); got != "aGVsbG8=" {
		t.Errorf("EncodeBase64 = %q", got)
	}
	if got := audioutil.EncodeBase64(nil); got != "" {
		t.Errorf("EncodeBase64(nil) = %q", got)
	}
}
