package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phobologic/reponav/internal/analysis"
	"github.com/phobologic/reponav/internal/message"
	"github.com/phobologic/reponav/internal/server"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var (
		root     string
		addr     string
		patterns []string
	)

	cmd := &cobra.Command{
		Use:   "serve [root]",
		Short: "Serve a directory to navigator clients",
		Long: `Serve a directory to navigator clients over a websocket.

Requests are answered one at a time. Each client endpoint keeps its own
position in the tree. A shutdown request from any client stops the server.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			switch {
			case len(args) == 1:
				cfg.Server.Root = args[0]
			case root != "":
				cfg.Server.Root = root
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if len(patterns) > 0 {
				cfg.Server.Patterns = patterns
			}

			extractor, err := analysis.NewTreeSitterExtractor(cfg.Server.CacheSize, cfg.Server.MaxFileSize)
			if err != nil {
				return err
			}
			srv, err := server.New(server.Options{
				Root:      cfg.Server.Root,
				Endpoint:  message.Endpoint(cfg.Server.Endpoint),
				Patterns:  cfg.Server.Patterns,
				Extractor: extractor,
				Logger:    logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, cfg.Server.Addr)
		},
	}

	f := cmd.Flags()
	f.StringVar(&root, "root", "", "directory to serve (default from config, else .)")
	f.StringVar(&addr, "addr", "", "listen address (default from config)")
	f.StringSliceVarP(&patterns, "pattern", "p", nil, "only list files matching these globs")
	return cmd
}
