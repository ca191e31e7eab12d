// reponav browses a remote source tree and analyzes type dependencies
// between its files.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/phobologic/reponav/internal/client"
	"github.com/phobologic/reponav/internal/comm"
	"github.com/phobologic/reponav/internal/config"
	"github.com/phobologic/reponav/internal/logging"
	"github.com/phobologic/reponav/internal/message"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.Execute()
}

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	serverURL  string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "reponav",
		Short: "Browse a remote source tree and analyze file dependencies",
		Long: `reponav serves a directory over a websocket. Clients browse it folder by
folder and ask for type dependency tables or strongly connected components
of any set of files below the served root.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("reponav {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (default ./"+config.DefaultFile+" if present)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&opts.serverURL, "server-url", "", "websocket URL of the server (client commands)")

	cmd.AddCommand(
		newServeCmd(opts),
		newCallCmd(opts),
		newShellCmd(opts),
		newShutdownCmd(opts),
		newInitCmd(),
	)
	return cmd
}

// load reads the configuration and applies flag overrides.
func (o *globalOptions) load(stderr io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.serverURL != "" {
		cfg.Client.ServerURL = o.serverURL
	}
	logger := logging.New(stderr, logging.LevelFromString(cfg.Log.Level), logging.Format(cfg.Log.Format))
	return cfg, logger, nil
}

// connect dials the configured server and starts the client's receive
// loop. The caller closes the returned client.
func connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*client.Client, error) {
	conn, err := comm.Dial(ctx, cfg.Client.ServerURL)
	if err != nil {
		return nil, err
	}

	endpoint := cfg.Client.Endpoint
	if endpoint == "" {
		endpoint = "client-" + uuid.NewString()[:8]
	}
	c := client.New(conn, client.Options{
		Endpoint: message.Endpoint(endpoint),
		Server:   message.Endpoint(cfg.Server.Endpoint),
		Author:   cfg.Client.Author,
		Timeout:  cfg.Client.Timeout,
		Logger:   logger,
	})
	go func() {
		if err := c.Run(ctx); err != nil {
			logger.Error("connection lost", "error", err)
		}
	}()
	return c, nil
}
