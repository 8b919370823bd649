package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"montage/internal/api"
	"montage/internal/ipc"
	"montage/internal/queue"
	"montage/internal/queueaccess"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage render jobs",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				stats, err := access.Stats(cmd.Context())
				if err != nil {
					return err
				}
				printQueueCounts(cmd.OutOrStdout(), stats)
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List render jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				jobs, err := access.List(cmd.Context(), statuses)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.JobListResponse{Jobs: jobs})
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(jobListColumns, buildQueueListRows(jobs)))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by job status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print jobs as JSON")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one render job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseJobIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				job, err := access.Describe(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.JobResponse{Job: *job})
				}
				printJobDetail(cmd, job)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the job as JSON")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Move failed jobs back to pending (all failed jobs when no id is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseJobIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				result, err := access.Retry(cmd.Context(), ids)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					fmt.Fprintf(out, "Retried %d failed jobs\n", result.UpdatedCount)
					return nil
				}
				for _, item := range result.Jobs {
					switch item.Outcome {
					case api.RetryJobUpdated:
						fmt.Fprintf(out, "Job %d moved to pending\n", item.ID)
					case api.RetryJobNotFound:
						fmt.Fprintf(out, "Job %d not found\n", item.ID)
					case api.RetryJobNotFailed:
						fmt.Fprintf(out, "Job %d is %s, not failed\n", item.ID, item.PriorStatus)
					}
				}
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove jobs that are not currently rendering",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseJobIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				result, err := access.Remove(cmd.Context(), ids)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, item := range result.Jobs {
					switch item.Outcome {
					case api.RemoveJobRemoved:
						fmt.Fprintf(out, "Job %d removed\n", item.ID)
					case api.RemoveJobNotFound:
						fmt.Fprintf(out, "Job %d not found\n", item.ID)
					case api.RemoveJobProcessing:
						fmt.Fprintf(out, "Job %d is rendering; stop the daemon or wait before removing it\n", item.ID)
					}
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			scope, label := api.ClearAll, ""
			switch {
			case clearCompleted:
				scope, label = api.ClearCompleted, "completed "
			case clearFailed:
				scope, label = api.ClearFailed, "failed "
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				removed, err := access.Clear(cmd.Context(), scope)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %sjobs\n", removed, label)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Only clear completed jobs")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Only clear failed jobs")
	return cmd
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Return jobs stuck in processing to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				updated, err := access.ResetStuck(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d jobs\n", updated)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check job database health (schema, integrity, columns)",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.databaseHealth(cmd)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database path: %s\n", resp.DBPath)
			fmt.Fprintf(out, "Database exists: %s\n", yesNo(resp.DatabaseExists))
			fmt.Fprintf(out, "Readable: %s\n", yesNo(resp.DatabaseReadable))
			fmt.Fprintf(out, "Schema version: %d\n", resp.SchemaVersion)
			fmt.Fprintf(out, "jobs table present: %s\n", yesNo(resp.TableExists))
			if len(resp.MissingColumns) > 0 {
				fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(resp.MissingColumns, ", "))
			} else {
				fmt.Fprintln(out, "Missing columns: none")
			}
			fmt.Fprintf(out, "Integrity check: %s\n", yesNo(resp.IntegrityCheck))
			fmt.Fprintf(out, "Total jobs: %d\n", resp.TotalJobs)
			if resp.Error != "" {
				fmt.Fprintf(out, "Error: %s\n", resp.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print health as JSON")
	return cmd
}

// databaseHealth asks the daemon first and reads the database directly when
// no daemon answers.
func (c *commandContext) databaseHealth(cmd *cobra.Command) (*ipc.DatabaseHealthResponse, error) {
	if client, err := c.dialClient(); err == nil {
		defer client.Close()
		return client.DatabaseHealth()
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	health, err := store.CheckHealth(cmd.Context())
	resp := ipc.DatabaseHealthResponse(health)
	if err != nil && resp.Error == "" {
		return nil, err
	}
	return &resp, nil
}

func buildQueueListRows(jobs []api.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			job.OutputFilename,
			job.Status,
			job.Progress.Stage,
			fmt.Sprintf("%.0f%%", job.Progress.Percent),
			job.CreatedAt,
		})
	}
	return rows
}

func printJobDetail(cmd *cobra.Command, job *api.Job) {
	out := cmd.OutOrStdout()
	field := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		fmt.Fprintf(out, "%-16s %s\n", label+":", value)
	}
	field("ID", strconv.FormatInt(job.ID, 10))
	field("Status", job.Status)
	field("Stage", job.Progress.Stage)
	field("Progress", fmt.Sprintf("%.0f%%", job.Progress.Percent))
	field("Message", job.Progress.Message)
	field("Output", job.OutputFilename)
	field("Audio", job.AudioFile)
	field("Subtitles", job.SubtitleFile)
	field("Clips", strconv.Itoa(job.ClipCount))
	field("Session", job.SessionID)
	field("Correlation ID", job.CorrelationID)
	field("Published", job.PublishedURL)
	field("Created", job.CreatedAt)
	field("Started", job.StartedAt)
	field("Finished", job.FinishedAt)
	field("Error kind", job.ErrorKind)
	field("Error", job.ErrorMessage)
	if detail := strings.TrimSpace(job.ErrorDetail); detail != "" {
		fmt.Fprintln(out, "Diagnostics:")
		for _, line := range strings.Split(detail, "\n") {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
}

func parseJobIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid job id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
