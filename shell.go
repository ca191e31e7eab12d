package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/reponav/internal/client"
	"github.com/phobologic/reponav/internal/message"
	"github.com/phobologic/reponav/internal/toon"
)

const shellHelp = `commands:
  ls             list folders and files here
  cd <dir>       move into a folder
  up             move to the parent folder
  top            go back to the root
  add <file>...  select files (relative to here) for analysis
  sel            show the selection
  clear          empty the selection
  deps           dependency table of the selection
  scc            strongly connected components of the selection
  help           show this text
  quit           leave the shell`

func newShellCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Browse the server interactively",
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
			defer c.Close()

			return runShell(ctx, c, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// runShell reads commands from in until quit or end of input. Remote
// errors are printed and the shell keeps going; a lost connection ends it.
func runShell(ctx context.Context, c *client.Client, in io.Reader, out io.Writer) error {
	sh := &shell{c: c, out: out}
	if err := sh.call(ctx, message.GetTopDirs); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprintf(out, "reponav:/%s> ", c.View().Path)
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		var err error
		switch name, args := fields[0], fields[1:]; name {
		case "quit", "exit":
			return nil
		case "help":
			_, _ = fmt.Fprintln(out, shellHelp)
		case "ls":
			err = sh.call(ctx, message.GetCurrentDirs)
			if err == nil {
				err = sh.call(ctx, message.GetCurrentFiles)
			}
		case "cd":
			if len(args) != 1 {
				_, _ = fmt.Fprintln(out, "usage: cd <dir>")
				continue
			}
			err = sh.call(ctx, message.MoveIntoFolderDirs, args[0])
		case "up":
			err = sh.call(ctx, message.MoveOutOfFolderDirs)
		case "top":
			err = sh.call(ctx, message.GetTopDirs)
		case "add":
			for _, a := range args {
				_, _ = fmt.Fprintf(out, "selected %s\n", c.Select(a))
			}
		case "sel":
			_, _ = fmt.Fprintln(out, toon.EncodeList("selected", c.View().Selected))
		case "clear":
			c.ClearSelection()
		case "deps":
			err = sh.analyze(ctx, message.PerformDepAnalysis)
		case "scc":
			err = sh.analyze(ctx, message.PerformStrongComp)
		default:
			_, _ = fmt.Fprintf(out, "unknown command %q, try help\n", name)
		}
		if err != nil {
			return err
		}
	}
}

type shell struct {
	c   *client.Client
	out io.Writer
}

// call prints the reply. Remote errors are shown, not returned.
func (s *shell) call(ctx context.Context, cmd message.Command, args ...string) error {
	reply, err := s.c.Call(ctx, cmd, args...)
	return s.print(reply, err)
}

func (s *shell) analyze(ctx context.Context, cmd message.Command) error {
	reply, err := s.c.AnalyzeSelection(ctx, cmd)
	return s.print(reply, err)
}

func (s *shell) print(reply message.Envelope, err error) error {
	if err != nil && !reply.IsError() {
		return err
	}
	_, _ = fmt.Fprintln(s.out, toon.EncodeReply(reply))
	return nil
}
