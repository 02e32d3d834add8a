package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"voice-recorder/internal/audioutil"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved recordings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries := newLibrary(cfg, logger).List()
		if len(entries) == 0 {
			cmd.Println("no recordings")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCOLOR\tDURATION\tSIZE\tCREATED\tFILE")
		for _, e := range entries {
			color := e.Color
			if color == "" {
				color = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				e.ID,
				e.Name,
				color,
				audioutil.FormatDuration(e.Duration),
				audioutil.FormatFileSize(e.Size),
				e.CreatedAt.Local().Format(time.DateTime),
				e.File,
			)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
