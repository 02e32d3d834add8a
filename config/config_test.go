package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voice-recorder/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("loading: %v", err)
	}

	if cfg.Capture.Source != "microphone" || cfg.Capture.Quality != "medium" {
		t.Errorf("capture defaults: got %+v", cfg.Capture)
	}
	if !*cfg.Capture.EchoCancellation || !*cfg.Capture.NoiseSuppression || !*cfg.Capture.AutoGainControl {
		t.Error("processing flags should default to on")
	}
	if cfg.Recording.FallbackType != "audio/wav" || cfg.Recording.BitsPerSecond != 128000 {
		t.Errorf("recording defaults: got %+v", cfg.Recording)
	}
	if cfg.Timeslice() != 100*time.Millisecond {
		t.Errorf("timeslice: got %v", cfg.Timeslice())
	}
	if cfg.Library.IndexPath != "./recordings/index.yaml" {
		t.Errorf("index path: got %q", cfg.Library.IndexPath)
	}
	if cfg.Server.Addr != ":8080" || cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("server/log defaults: got %+v %+v", cfg.Server, cfg.Log)
	}
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("RECORDER_DIR", "/tmp/rec")

	cfg, err := config.Load(writeConfig(t, `
capture:
  source: file
  file_path: ${RECORDER_DIR}/input.wav
  loop: true
  quality: high
  echo_cancellation: false
recording:
  preferred_types: [audio/basic, audio/wav]
  timeslice: 250ms
library:
  dir: ${RECORDER_DIR}
log:
  level: debug
  format: json
`))
	if err != nil {
		t.Fatalf("loading: %v", err)
	}

	if cfg.Capture.FilePath != "/tmp/rec/input.wav" || !cfg.Capture.Loop {
		t.Errorf("capture: got %+v", cfg.Capture)
	}
	if *cfg.Capture.EchoCancellation {
		t.Error("explicit false should be kept")
	}
	if len(cfg.Recording.PreferredTypes) != 2 || cfg.Recording.PreferredTypes[0] != "audio/basic" {
		t.Errorf("preferred types: got %v", cfg.Recording.PreferredTypes)
	}
	if cfg.Timeslice() != 250*time.Millisecond {
		t.Errorf("timeslice: got %v", cfg.Timeslice())
	}
	if cfg.Library.IndexPath != "/tmp/rec/index.yaml" {
		t.Errorf("index path: got %q", cfg.Library.IndexPath)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown source", "capture: {source: bluetooth}", "unknown capture source"},
		{"file without path", "capture: {source: file}", "file_path is required"},
		{"bad quality", "capture: {quality: ultra}", "unknown capture quality"},
		{"bad timeslice", "recording: {timeslice: soon}", "timeslice"},
		{"bad yaml", "capture: [", "parsing config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error: got %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("RECORDER_TEST_TOKEN=abc123\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RECORDER_TEST_TOKEN", "")
	os.Unsetenv("RECORDER_TEST_TOKEN")

	if err := config.LoadEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("loading env: %v", err)
	}
	if got := os.Getenv("RECORDER_TEST_TOKEN"); got != "abc123" {
		t.Errorf("env: got %q", got)
	}
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if cfg.Capture.Source != "microphone" || cfg.Server.Burst != 5 {
		t.Errorf("default: got %+v", cfg)
	}
}
