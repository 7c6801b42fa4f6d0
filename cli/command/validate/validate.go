package validate

import (
	"pkgmk/cli/command"
	"pkgmk/pkg/output"

	"github.com/morikuni/aec"
	"github.com/spf13/cobra"
)

type validateOptions struct {
	dir string
}

func NewValidateCommand(pkgmkCli command.Cli) *cobra.Command {
	var opts validateOptions

	cmd := &cobra.Command{
		Use:   "validate [OPTIONS]",
		Short: "Check the manifest for errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(pkgmkCli, opts)
		},
	}

	command.AddDirFlag(cmd.Flags(), &opts.dir)

	return cmd
}

func runValidate(pkgmkCli command.Cli, opts validateOptions) error {
	if _, err := command.LoadWorkspace(pkgmkCli, opts.dir); err != nil {
		return err
	}

	pkgmkCli.Output().Prettyln(output.Styled("manifest is valid", aec.GreenF))
	return nil
}
