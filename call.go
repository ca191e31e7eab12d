package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phobologic/reponav/internal/message"
	"github.com/phobologic/reponav/internal/toon"
)

func newCallCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "call <command> [args...]",
		Short: "Send one request and print the reply",
		Long: `Send one request and print the reply as TOON.

Commands: getTopFiles, getTopDirs, getCurrentFiles, getCurrentDirs,
moveIntoFolderFiles <dir>, moveIntoFolderDirs <dir>, moveOutOfFolderFiles,
moveOutOfFolderDirs, performDepAnalysis <file>..., performStrongComp <file>...

Navigation only carries over between calls when client.endpoint is set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			c, err := connect(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer c.Close()

			reply, err := c.Call(ctx, message.Command(args[0]), args[1:]...)
			if err != nil && !reply.IsError() {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), toon.EncodeReply(reply))
			return err
		},
	}
}

func newShutdownCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown",
		Short: "Ask the server to stop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			c, err := connect(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if err := c.Shutdown(); err != nil {
				_ = c.Close()
				return err
			}
			if err := c.Close(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "shutdown sent to %s\n", cfg.Client.ServerURL)
			return nil
		},
	}
}
