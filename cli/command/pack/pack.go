package pack

import (
	"context"
	"os"

	"pkgmk/cli/command"

	"github.com/docker/docker/errdefs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type packageOptions struct {
	dir     string
	archive bool
}

func NewPackageCommand(pkgmkCli command.Cli) *cobra.Command {
	var opts packageOptions

	cmd := &cobra.Command{
		Use:   "package [OPTIONS]",
		Short: "Run the package phase against the existing source tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := command.LoadWorkspace(pkgmkCli, opts.dir)
			if err != nil {
				return err
			}
			return Run(cmd.Context(), pkgmkCli, ws, opts.archive)
		},
	}

	flags := cmd.Flags()
	command.AddDirFlag(flags, &opts.dir)
	flags.BoolVarP(&opts.archive, "archive", "a", false, "Also create the package archive in PKGDEST")

	return cmd
}

// Run resets $pkgdir, runs the package phase and lists the result. With
// archive set the package directory is then packed into PKGDEST.
func Run(ctx context.Context, pkgmkCli command.Cli, ws *command.Workspace, archive bool) error {
	if _, err := os.Stat(ws.SrcDir()); err != nil {
		return errdefs.NotFound(errors.Errorf("%s does not exist, run build first", ws.SrcDir()))
	}

	pkgmkCli.Err().Step("Starting package()...")
	if err := ws.Runner(pkgmkCli).Package(ctx); err != nil {
		return err
	}

	if err := ws.ListPackageFiles(pkgmkCli); err != nil {
		return err
	}

	if !archive {
		return nil
	}

	_, err := ws.CreateArchive(ctx, pkgmkCli)
	return err
}
