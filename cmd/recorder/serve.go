package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"voice-recorder/internal/infra/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP control server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := httpapi.NewHub(logger)
	a, err := newApp(cfg, logger, hub.Publish)
	if err != nil {
		return err
	}
	defer a.recorder.Teardown()

	server := httpapi.NewServer(httpapi.Config{
		Addr:              cfg.Server.Addr,
		RequestsPerMinute: cfg.Server.RequestsPerMinute,
		Burst:             cfg.Server.Burst,
		Quality:           a.quality,
	}, a.recorder, a.blobs, a.library, hub, logger)

	logger.Info("starting voice recorder",
		"capture_source", a.source,
		"supported", a.recorder.Supported(),
		"library", cfg.Library.Dir,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		return a.library.Watch(gctx)
	})

	err = g.Wait()
	logger.Info("shutting down")
	return err
}
