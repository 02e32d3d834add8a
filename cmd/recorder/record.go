package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"voice-recorder/internal/audioutil"
	"voice-recorder/internal/domain"
	"voice-recorder/internal/infra/library"
)

const finalizeTimeout = 10 * time.Second

var (
	recordDuration time.Duration
	recordColor    string
)

var recordCmd = &cobra.Command{
	Use:   "record [name]",
	Short: "Record until Ctrl+C, the duration elapses or the source ends, then save",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRecord,
}

func init() {
	recordCmd.Flags().DurationVarP(&recordDuration, "duration", "d", 0, "stop after this long (0 records until interrupted)")
	recordCmd.Flags().StringVar(&recordColor, "color", "", "display color stored with the recording, e.g. #ff5722")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	name := "recording"
	if len(args) > 0 {
		name = args[0]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer a.recorder.Teardown()

	a.recorder.Start(ctx)
	snap := a.recorder.Snapshot()
	if snap.Status != domain.StatusRecording {
		return sessionError("starting recording", snap)
	}
	cmd.Println("Recording... press Ctrl+C to stop")

	waitCtx := ctx
	if recordDuration > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, recordDuration)
		defer cancel()
	}
	// Returns early when the source runs out on its own.
	a.recorder.Await(waitCtx, func(s domain.Snapshot) bool { return !s.Recording })

	a.recorder.Stop()

	finalizeCtx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()
	snap, err = a.recorder.Await(finalizeCtx, func(s domain.Snapshot) bool {
		return s.Status == domain.StatusStopped || s.Status == domain.StatusErrored
	})
	if err != nil {
		return fmt.Errorf("waiting for recording to finish: %w", err)
	}
	if snap.Status == domain.StatusErrored {
		return sessionError("recording", snap)
	}

	entry, err := a.library.Save(context.Background(), name, snap.Artifact, library.WithColor(recordColor))
	if err != nil {
		return fmt.Errorf("saving recording: %w", err)
	}

	cmd.Printf("Saved %s (%s, %s)\n",
		a.library.Path(entry),
		audioutil.FormatDuration(entry.Duration),
		audioutil.FormatFileSize(entry.Size),
	)
	return nil
}

func sessionError(action string, snap domain.Snapshot) error {
	if snap.Error != nil {
		return fmt.Errorf("%s: %w", action, snap.Error)
	}
	return errors.New(action + ": recorder is " + string(snap.Status))
}
