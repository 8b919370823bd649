package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"montage/internal/api"
	"montage/internal/queueaccess"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var req api.LocalSubmission
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Queue a render job from local files",
		Long: "Submit copies the audio, subtitle and clip files into a new upload session\n" +
			"and queues a job for the daemon. Without a running daemon the job is written\n" +
			"to the database and rendered on the next `montage start`.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(req.ClipPaths) == 0 {
				return errors.New("at least one --clip is required")
			}
			var err error
			if req.AudioPath, err = absPath(req.AudioPath); err != nil {
				return fmt.Errorf("--audio: %w", err)
			}
			if req.SubtitlePath, err = absPath(req.SubtitlePath); err != nil {
				return fmt.Errorf("--srt: %w", err)
			}
			for i, clip := range req.ClipPaths {
				if req.ClipPaths[i], err = absPath(clip); err != nil {
					return fmt.Errorf("--clip: %w", err)
				}
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				job, err := access.Submit(cmd.Context(), req)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.JobResponse{Job: job})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued job %d (%s)\n", job.ID, job.OutputFilename)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.AudioPath, "audio", "", "Soundtrack file")
	cmd.Flags().StringVar(&req.SubtitlePath, "srt", "", "SRT subtitle file")
	cmd.Flags().StringArrayVar(&req.ClipPaths, "clip", nil, "Video clip (repeatable, order is preserved)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the queued job as JSON")
	_ = cmd.MarkFlagRequired("audio")
	_ = cmd.MarkFlagRequired("srt")
	return cmd
}
