package main

import (
	"github.com/spf13/cobra"

	"voice-recorder/internal/application"
	"voice-recorder/internal/infra/encoder"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "Show the encoding preference list and which encoding would be used",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		factory := encoder.NewFactory(logger)

		preferences := cfg.Recording.PreferredTypes
		if len(preferences) == 0 {
			preferences = application.DefaultPreferences()
		}

		for _, mimeType := range preferences {
			mark := "-"
			if factory.IsSupported(mimeType) {
				mark = "+"
			}
			cmd.Printf("%s %s\n", mark, mimeType)
		}

		selected := application.SelectEncoding(preferences, factory.IsSupported, cfg.Recording.FallbackType)
		cmd.Printf("selected: %s\n", selected)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
