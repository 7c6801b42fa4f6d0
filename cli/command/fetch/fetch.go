package fetch

import (
	"context"

	"pkgmk/cli/command"

	"github.com/spf13/cobra"
)

type fetchOptions struct {
	dir   string
	force bool
}

func NewFetchCommand(pkgmkCli command.Cli) *cobra.Command {
	var opts fetchOptions

	cmd := &cobra.Command{
		Use:   "fetch [OPTIONS]",
		Short: "Download and verify the package sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd.Context(), pkgmkCli, opts)
		},
	}

	flags := cmd.Flags()
	command.AddDirFlag(flags, &opts.dir)
	flags.BoolVarP(&opts.force, "force", "f", false, "Download sources even if they are already present")

	return cmd
}

func runFetch(ctx context.Context, pkgmkCli command.Cli, opts fetchOptions) error {
	ws, err := command.LoadWorkspace(pkgmkCli, opts.dir)
	if err != nil {
		return err
	}

	_, err = ws.Prepare(ctx, pkgmkCli, opts.force)
	return err
}
