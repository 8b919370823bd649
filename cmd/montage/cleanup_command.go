package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"montage/internal/queueaccess"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Run the retention sweep once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				resp, err := access.Cleanup(cmd.Context())
				if asJSON && err == nil {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				groups := []struct {
					label   string
					entries []string
				}{
					{"scratch", resp.Scratch},
					{"upload sessions", resp.Uploads},
					{"orphaned sessions", resp.Orphaned},
					{"outputs", resp.Outputs},
				}
				for _, group := range groups {
					fmt.Fprintf(out, "Removed %d %s\n", len(group.entries), group.label)
					for _, entry := range group.entries {
						fmt.Fprintf(out, "  %s\n", entry)
					}
				}
				for _, failure := range resp.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "cleanup: %s\n", failure)
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the sweep report as JSON")
	return cmd
}
