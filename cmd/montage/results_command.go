package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"montage/internal/api"
)

func newResultsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "results",
		Short: "List rendered videos in the output directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results, err := api.ListOutputs(cfg.Paths.OutputDir)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, results)
			}
			out := cmd.OutOrStdout()
			if len(results.Files) == 0 {
				fmt.Fprintln(out, "No rendered videos")
				return nil
			}
			rows := make([][]string, 0, len(results.Files))
			for _, file := range results.Files {
				rows = append(rows, []string{file.Filename, formatBytes(file.Size), file.Modified})
			}
			fmt.Fprintln(out, renderTable(resultColumns, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return strconv.FormatInt(size, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
