package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"montage/internal/engine"
	"montage/internal/render"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var audioPath string
	var srtPath string
	var clipPaths []string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a video in-process without the daemon",
		Long: "Render probes the audio track, loops the clips to cover it, attaches the audio,\n" +
			"and burns the subtitles into the output video. Intermediates are written to\n" +
			"paths.scratch_dir and removed when the render ends.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(clipPaths) == 0 {
				return errors.New("at least one --clip is required")
			}

			job := &render.Job{}
			if job.AudioPath, err = absPath(audioPath); err != nil {
				return fmt.Errorf("--audio: %w", err)
			}
			if job.SubtitlePath, err = absPath(srtPath); err != nil {
				return fmt.Errorf("--srt: %w", err)
			}
			for _, clip := range clipPaths {
				abs, err := absPath(clip)
				if err != nil {
					return fmt.Errorf("--clip: %w", err)
				}
				job.ClipPaths = append(job.ClipPaths, abs)
			}
			if strings.TrimSpace(outputPath) == "" {
				outputPath = filepath.Join(cfg.Paths.OutputDir, defaultOutputName(job.AudioPath))
			}
			if job.OutputPath, err = absPath(outputPath); err != nil {
				return fmt.Errorf("--output: %w", err)
			}

			logger, err := ctx.cliLogger(cfg)
			if err != nil {
				return err
			}
			renderer, err := render.NewFromConfig(cfg, engine.NewFFmpeg(cfg, logger), logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			observer := func(t render.Transition) {
				switch {
				case t.To == render.StateFailed:
					fmt.Fprintf(out, "[%3.0f%%] %s failed\n", t.From.Progress(), t.From)
				case t.To.Terminal():
					fmt.Fprintf(out, "[%3.0f%%] %s\n", t.To.Progress(), t.To)
				default:
					fmt.Fprintf(out, "[%3.0f%%] %s...\n", t.To.Progress(), t.To)
				}
			}

			result, err := renderer.Run(cmd.Context(), job, observer)
			if err != nil {
				if detail := render.Diagnostics(err); detail != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), detail)
				}
				return err
			}
			fmt.Fprintf(out, "Rendered %s\n", result.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&audioPath, "audio", "", "Soundtrack file")
	cmd.Flags().StringVar(&srtPath, "srt", "", "SRT subtitle file")
	cmd.Flags().StringArrayVar(&clipPaths, "clip", nil, "Video clip (repeatable, order is preserved)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default <output_dir>/<audio name>.mp4)")
	_ = cmd.MarkFlagRequired("audio")
	_ = cmd.MarkFlagRequired("srt")
	return cmd
}

func absPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("path is empty")
	}
	return filepath.Abs(path)
}

func defaultOutputName(audioPath string) string {
	base := filepath.Base(audioPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".mp4"
}
