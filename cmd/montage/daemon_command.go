package main

import (
	"github.com/spf13/cobra"

	"montage/internal/daemonrun"
)

// newDaemonRunCommand is the entry point `montage start` launches.
func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:          "daemon",
		Short:        "Run the montage daemon (internal)",
		Hidden:       true,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd, ctx)
		},
	}
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon and HTTP API in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd, ctx)
		},
	}
}

func runDaemon(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	opts := daemonrun.Options{LogLevel: ctx.logLevel(cfg)}
	if ctx.socketFlag != nil {
		opts.SocketPath = *ctx.socketFlag
	}
	return daemonrun.Run(cmd.Context(), cfg, opts)
}
