package srcinfo

import (
	"pkgmk/cli/command"
	"pkgmk/pkg/manifest"

	"github.com/spf13/cobra"
)

type srcinfoOptions struct {
	dir string
}

func NewSrcinfoCommand(pkgmkCli command.Cli) *cobra.Command {
	var opts srcinfoOptions

	cmd := &cobra.Command{
		Use:   "srcinfo [OPTIONS]",
		Short: "Print .SRCINFO for the manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSrcinfo(pkgmkCli, opts)
		},
	}

	command.AddDirFlag(cmd.Flags(), &opts.dir)

	return cmd
}

func runSrcinfo(pkgmkCli command.Cli, opts srcinfoOptions) error {
	ws, err := command.LoadWorkspace(pkgmkCli, opts.dir)
	if err != nil {
		return err
	}

	return manifest.WriteSrcInfo(pkgmkCli.Out(), ws.Manifest)
}
