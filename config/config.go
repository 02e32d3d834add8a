package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Capture   CaptureConfig   `yaml:"capture"`
	Recording RecordingConfig `yaml:"recording"`
	Library   LibraryConfig   `yaml:"library"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

type CaptureConfig struct {
	Source           string `yaml:"source"`
	FilePath         string `yaml:"file_path"`
	Loop             bool   `yaml:"loop"`
	Quality          string `yaml:"quality"`
	EchoCancellation *bool  `yaml:"echo_cancellation"`
	NoiseSuppression *bool  `yaml:"noise_suppression"`
	AutoGainControl  *bool  `yaml:"auto_gain_control"`
}

type RecordingConfig struct {
	PreferredTypes []string `yaml:"preferred_types"`
	FallbackType   string   `yaml:"fallback_type"`
	BitsPerSecond  int      `yaml:"bits_per_second"`
	Timeslice      string   `yaml:"timeslice"`
}

type LibraryConfig struct {
	Dir       string `yaml:"dir"`
	IndexPath string `yaml:"index_path"`
}

type ServerConfig struct {
	Addr              string `yaml:"addr"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	Burst             int    `yaml:"burst"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadEnv reads KEY=value pairs from the given .env files into the process
// environment. Missing files are skipped.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

// Timeslice returns the encoder emission interval.
func (c *Config) Timeslice() time.Duration {
	d, err := time.ParseDuration(c.Recording.Timeslice)
	if err != nil || d <= 0 {
		return 100 * time.Millisecond
	}
	return d
}

func (c *Config) setDefaults() {
	if c.Capture.Source == "" {
		c.Capture.Source = "microphone"
	}
	if c.Capture.Quality == "" {
		c.Capture.Quality = "medium"
	}
	if c.Capture.EchoCancellation == nil {
		c.Capture.EchoCancellation = boolPtr(true)
	}
	if c.Capture.NoiseSuppression == nil {
		c.Capture.NoiseSuppression = boolPtr(true)
	}
	if c.Capture.AutoGainControl == nil {
		c.Capture.AutoGainControl = boolPtr(true)
	}
	if c.Recording.FallbackType == "" {
		c.Recording.FallbackType = "audio/wav"
	}
	if c.Recording.BitsPerSecond == 0 {
		c.Recording.BitsPerSecond = 128000
	}
	if c.Recording.Timeslice == "" {
		c.Recording.Timeslice = "100ms"
	}
	if c.Library.Dir == "" {
		c.Library.Dir = "./recordings"
	}
	if c.Library.IndexPath == "" {
		c.Library.IndexPath = c.Library.Dir + "/index.yaml"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RequestsPerMinute == 0 {
		c.Server.RequestsPerMinute = 30
	}
	if c.Server.Burst == 0 {
		c.Server.Burst = 5
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	switch c.Capture.Source {
	case "microphone":
	case "file":
		if c.Capture.FilePath == "" {
			return fmt.Errorf("capture.file_path is required for the file source")
		}
	default:
		return fmt.Errorf("unknown capture source %q", c.Capture.Source)
	}

	switch c.Capture.Quality {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("unknown capture quality %q", c.Capture.Quality)
	}

	if c.Recording.BitsPerSecond < 0 {
		return fmt.Errorf("recording.bits_per_second must be positive")
	}
	if _, err := time.ParseDuration(c.Recording.Timeslice); err != nil {
		return fmt.Errorf("parsing recording.timeslice: %w", err)
	}
	return nil
}

func boolPtr(b bool) *bool {
	return &b
}
