package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/phobologic/reponav/internal/config"
)

// newInitCmd implements `reponav init`, which writes a default config file.
func newInitCmd() *cobra.Command {
	var dryRun, force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default config file",
		Long: `Write a default reponav config file.

path defaults to ./` + config.DefaultFile + `. An existing file is left alone
unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				data, err := config.Marshal(config.Default())
				if err != nil {
					return err
				}
				_, _ = cmd.OutOrStdout().Write(data)
				return nil
			}

			path := config.DefaultFile
			if len(args) > 0 {
				path = args[0]
			}
			if err := config.WriteDefault(path, force); err != nil {
				if errors.Is(err, fs.ErrExist) {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
				return err
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "wrote default config to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the config without writing it")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
