package main

import (
	"fmt"
	"log/slog"

	"voice-recorder/config"
	"voice-recorder/internal/application"
	"voice-recorder/internal/audioutil"
	"voice-recorder/internal/domain"
	"voice-recorder/internal/infra/blobref"
	"voice-recorder/internal/infra/capture"
	"voice-recorder/internal/infra/clock"
	"voice-recorder/internal/infra/encoder"
	"voice-recorder/internal/infra/kvstore"
	"voice-recorder/internal/infra/library"
)

// app is the wired recorder with the stores its commands need.
type app struct {
	recorder *application.Recorder
	blobs    *blobref.Registry
	library  *library.Library
	source   string
	quality  domain.Quality
}

// captureSource is a capture provider that can name itself in logs.
type captureSource interface {
	application.CaptureProvider
	Name() string
}

func newApp(cfg *config.Config, logger *slog.Logger, observer func(domain.Snapshot)) (*app, error) {
	quality, err := audioutil.ParseQuality(cfg.Capture.Quality)
	if err != nil {
		return nil, err
	}
	opts := recorderOptions(cfg, quality)

	source, err := newCaptureProvider(cfg.Capture, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("capture source selected", "source", source.Name(), "quality", quality)

	blobs := blobref.NewRegistry(logger)
	recorderOpts := []application.Option{application.WithOptions(opts)}
	if observer != nil {
		recorderOpts = append(recorderOpts, application.WithObserver(observer))
	}

	recorder := application.NewRecorder(
		source,
		encoder.NewFactory(logger),
		blobs,
		clock.System{},
		logger,
		recorderOpts...,
	)

	return &app{
		recorder: recorder,
		blobs:    blobs,
		library:  newLibrary(cfg, logger),
		source:   source.Name(),
		quality:  quality,
	}, nil
}

func newLibrary(cfg *config.Config, logger *slog.Logger) *library.Library {
	index := kvstore.New(cfg.Library.IndexPath, logger)
	return library.New(cfg.Library.Dir, index, logger)
}

func newCaptureProvider(cfg config.CaptureConfig, logger *slog.Logger) (captureSource, error) {
	switch cfg.Source {
	case "microphone":
		return capture.NewMicrophone(logger), nil
	case "file":
		return capture.NewFileProvider(cfg.FilePath, cfg.Loop, logger), nil
	default:
		return nil, fmt.Errorf("unknown capture source %q", cfg.Source)
	}
}

func recorderOptions(cfg *config.Config, quality domain.Quality) application.Options {
	constraints := audioutil.Constraints(quality)
	if cfg.Capture.EchoCancellation != nil {
		constraints.EchoCancellation = *cfg.Capture.EchoCancellation
	}
	if cfg.Capture.NoiseSuppression != nil {
		constraints.NoiseSuppression = *cfg.Capture.NoiseSuppression
	}
	if cfg.Capture.AutoGainControl != nil {
		constraints.AutoGainControl = *cfg.Capture.AutoGainControl
	}

	return application.Options{
		Constraints:   constraints,
		Preferences:   cfg.Recording.PreferredTypes,
		Fallback:      cfg.Recording.FallbackType,
		BitsPerSecond: cfg.Recording.BitsPerSecond,
		Timeslice:     cfg.Timeslice(),
	}
}
