package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"voice-recorder/internal/infra/library"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved recording and its file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib := newLibrary(cfg, logger)

		entry, ok := lib.Get(args[0])
		if !ok {
			return fmt.Errorf("recording %s: %w", args[0], library.ErrNotFound)
		}
		if err := lib.Delete(entry.ID); err != nil {
			return fmt.Errorf("deleting recording: %w", err)
		}

		cmd.Printf("Deleted %s (%s)\n", entry.Name, entry.File)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
