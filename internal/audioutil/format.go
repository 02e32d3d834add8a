// Package audioutil holds stateless helpers for naming, sizing and
// describing recordings.
package audioutil

import (
	"encoding/base64"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"voice-recorder/internal/domain"
)

var extensions = []struct {
	mimeType  string
	extension string
}{
	{"audio/webm", "webm"},
	{"audio/ogg", "ogg"},
	{"audio/wav", "wav"},
	{"audio/wave", "wav"},
	{"audio/x-wav", "wav"},
	{"audio/mp4", "m4a"},
	{"audio/mpeg", "mp3"},
	{"audio/basic", "au"},
	{"audio/x-alaw-basic", "au"},
}

const fallbackExtension = "webm"

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9]`)

// FormatDuration renders seconds as M:SS.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// FileExtension maps a MIME type, parameters included, to a file extension.
func FileExtension(mimeType string) string {
	for _, e := range extensions {
		if strings.Contains(mimeType, e.mimeType) {
			return e.extension
		}
	}
	return fallbackExtension
}

func GenerateFilename(name, mimeType string, now time.Time) string {
	timestamp := now.UTC().Format("2006-01-02T15:04:05.000Z")
	timestamp = strings.NewReplacer(":", "-", ".", "-").Replace(timestamp)
	safeName := strings.ToLower(unsafeName.ReplaceAllString(name, "_"))
	return fmt.Sprintf("%s_%s.%s", safeName, timestamp, FileExtension(mimeType))
}

// FormatFileSize renders a byte count in binary units rounded to two
// decimals, e.g. "1.5 KB".
func FormatFileSize(size int64) string {
	if size <= 0 {
		return "0 B"
	}

	units := []string{"B", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(size)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}

	value := math.Round(float64(size)/math.Pow(1024, float64(i))*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + units[i]
}

func bitRate(q domain.Quality) int {
	switch q {
	case domain.QualityLow:
		return 64000
	case domain.QualityHigh:
		return 256000
	default:
		return 128000
	}
}

// EstimateFileSize returns the expected byte count of a recording of the
// given length at the quality's nominal bitrate.
func EstimateFileSize(seconds int, q domain.Quality) int64 {
	return int64(math.Ceil(float64(seconds) * float64(bitRate(q)) / 8))
}

// Constraints returns the capture profile for a quality preset. Unknown
// qualities get the medium profile.
func Constraints(q domain.Quality) domain.Constraints {
	c := domain.Constraints{
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	}
	switch q {
	case domain.QualityLow:
		c.SampleRate, c.ChannelCount = 22050, 1
	case domain.QualityHigh:
		c.SampleRate, c.ChannelCount = 48000, 2
	default:
		c.SampleRate, c.ChannelCount = 44100, 1
	}
	return c
}

func ParseQuality(s string) (domain.Quality, error) {
	switch q := domain.Quality(strings.ToLower(s)); q {
	case domain.QualityLow, domain.QualityMedium, domain.QualityHigh:
		return q, nil
	case "":
		return domain.QualityMedium, nil
	default:
		return "", fmt.Errorf("unknown quality %q", s)
	}
}

// EncodeBase64 returns the artifact bytes as standard base64 without a data
// URL prefix.
func EncodeBase64(artifact *domain.Artifact) string {
	if artifact == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(artifact.Data)
}
